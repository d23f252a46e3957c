package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// Smallest valid PNG header plus padding so mimetype sniffing recognizes it.
var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

type failingReader struct{ reads int }

func (f *failingReader) Read(p []byte) (int, error) {
	f.reads++
	return 0, errors.New("disk error")
}

func TestDecodeUploadRejectsNonImageBeforeRead(t *testing.T) {
	r := &failingReader{}
	_, err := DecodeUpload("notes.pdf", "application/pdf", 10, 0, r)
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("err = %v, want ErrInvalidType", err)
	}
	if r.reads != 0 {
		t.Fatalf("reader was read %d times before the type check", r.reads)
	}
}

func TestDecodeUploadRejectsOversizeBeforeRead(t *testing.T) {
	r := &failingReader{}
	_, err := DecodeUpload("big.png", "image/png", 6<<20, 5<<20, r)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if r.reads != 0 {
		t.Fatalf("reader was read %d times before the size check", r.reads)
	}
}

func TestDecodeUploadReadFailure(t *testing.T) {
	_, err := DecodeUpload("a.png", "image/png", 10, 0, &failingReader{})
	if !errors.Is(err, ErrReadFailure) {
		t.Fatalf("err = %v, want ErrReadFailure", err)
	}
}

func TestDecodeUploadSniffsContent(t *testing.T) {
	img, err := DecodeUpload("photo.jpg", "image/jpeg", int64(len(pngBytes)), 0, bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("DecodeUpload returned error: %v", err)
	}
	if img.Mime != "image/png" {
		t.Fatalf("Mime = %q, want sniffed image/png", img.Mime)
	}
}

func TestDecodeUploadRejectsDisguisedContent(t *testing.T) {
	_, err := DecodeUpload("fake.png", "image/png", 11, 0, strings.NewReader("hello world"))
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("err = %v, want ErrInvalidType", err)
	}
}

func TestTransportDisplayRoundTrip(t *testing.T) {
	img := &SourceImage{Name: "a.png", Mime: "image/png", Data: pngBytes}
	raw, mime, err := ToTransportForm(img)
	if err != nil {
		t.Fatalf("ToTransportForm returned error: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("mime = %q", mime)
	}

	uri := ToDisplayForm(raw)
	back, backMime, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI returned error: %v", err)
	}
	if backMime != "image/png" {
		t.Fatalf("round-trip mime = %q", backMime)
	}
	if !bytes.Equal(back, raw) {
		t.Fatal("round-trip bytes differ")
	}
}

func TestToTransportFormStripsEnvelope(t *testing.T) {
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpegdata"))
	img := &SourceImage{Mime: "image/jpeg", Data: []byte(uri)}
	raw, mime, err := ToTransportForm(img)
	if err != nil {
		t.Fatalf("ToTransportForm returned error: %v", err)
	}
	if string(raw) != "jpegdata" || mime != "image/jpeg" {
		t.Fatalf("got (%q, %q)", raw, mime)
	}
}

func TestToTransportFormMalformed(t *testing.T) {
	img := &SourceImage{Mime: "image/png", Data: []byte("data:image/png;base64")}
	if _, _, err := ToTransportForm(img); !errors.Is(err, ErrMalformedSource) {
		t.Fatalf("err = %v, want ErrMalformedSource", err)
	}
	if _, _, err := ToTransportForm(nil); !errors.Is(err, ErrMalformedSource) {
		t.Fatalf("nil source err = %v, want ErrMalformedSource", err)
	}
}
