// Package codec converts between user-selected binary image files and the
// representations the generation gateway and the browser need: raw bytes plus
// an explicit mime type on the way out, a self-describing data URI on the way
// back in.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrInvalidType means the file's declared type is not an image category.
	// It is reported before any read attempt.
	ErrInvalidType = errors.New("not an image file")

	// ErrTooLarge means the upload exceeds the surface's size cap. Checked
	// against the declared size before reading.
	ErrTooLarge = errors.New("file too large")

	// ErrReadFailure means the underlying read errored mid-stream.
	ErrReadFailure = errors.New("failed to read file")

	// ErrMalformedSource means no raw payload could be isolated from a
	// source image when preparing it for transport.
	ErrMalformedSource = errors.New("malformed source image")
)

// SourceImage is an uploaded image held fully in memory: raw bytes plus the
// mime type they were sniffed as.
type SourceImage struct {
	Name string
	Mime string
	Data []byte
}

// DecodeUpload validates and reads an uploaded file into a SourceImage.
// The declared content type must begin with "image/" — this is checked before
// any byte is read. declaredSize is checked against maxBytes (0 = no cap)
// before reading as well. After the read, the content is sniffed and the
// sniffed mime type wins over the declared one.
func DecodeUpload(name, declaredType string, declaredSize, maxBytes int64, r io.Reader) (*SourceImage, error) {
	if !strings.HasPrefix(declaredType, "image/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, declaredType)
	}
	if maxBytes > 0 && declaredSize > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrTooLarge, declaredSize, maxBytes)
	}

	limit := r
	if maxBytes > 0 {
		// The declared size can lie; the read itself is capped too.
		limit = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: content exceeds the %d byte limit", ErrTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrReadFailure)
	}

	sniffed := mimetype.Detect(data)
	if !strings.HasPrefix(sniffed.String(), "image/") {
		return nil, fmt.Errorf("%w: content sniffed as %q", ErrInvalidType, sniffed.String())
	}

	return &SourceImage{Name: name, Mime: sniffed.String(), Data: data}, nil
}

// ToTransportForm strips any data-URI envelope from a source image so the
// gateway receives raw bytes plus an explicit mime type.
func ToTransportForm(img *SourceImage) ([]byte, string, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, "", fmt.Errorf("%w: no payload", ErrMalformedSource)
	}
	if !strings.HasPrefix(string(img.Data[:min(5, len(img.Data))]), "data:") {
		return img.Data, img.Mime, nil
	}
	raw, mime, err := ParseDataURI(string(img.Data))
	if err != nil {
		return nil, "", err
	}
	if mime == "" {
		mime = img.Mime
	}
	return raw, mime, nil
}

// ToDisplayForm wraps raw returned bytes in a PNG data URI for rendering and
// download. Gateway output is always treated as PNG regardless of the input
// format.
func ToDisplayForm(raw []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
}

// ParseDataURI splits a data URI into its decoded payload and mime type.
func ParseDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("%w: not a data URI", ErrMalformedSource)
	}
	head, payload, ok := strings.Cut(uri, ",")
	if !ok || payload == "" {
		return nil, "", fmt.Errorf("%w: no payload", ErrMalformedSource)
	}
	meta := strings.TrimPrefix(head, "data:")
	mime, _, _ := strings.Cut(meta, ";")
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	return raw, mime, nil
}
