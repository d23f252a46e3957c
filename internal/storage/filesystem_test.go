package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	want := []byte("image-bytes")
	key, err := store.Write(context.Background(), "images/user-1/123_generated.png", want)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	got, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
}

func TestWriteRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	if _, err := store.Write(context.Background(), "../outside.png", []byte("x")); err == nil {
		t.Fatal("Write accepted a traversal key")
	}
}
