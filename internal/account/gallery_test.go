package account

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"studio/internal/apperr"
	"studio/internal/codec"
	"studio/internal/storage"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeSQL struct {
	queryRowArgs []any
	rowErr       error
	queryErr     error
	rows         pgx.Rows
}

func (f *fakeSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	f.queryRowArgs = args
	return fakeRow{scan: func(dest ...any) error {
		if f.rowErr != nil {
			return f.rowErr
		}
		if ts, ok := dest[0].(*time.Time); ok {
			*ts = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		}
		return nil
	}}
}

func (f *fakeSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

type listRows struct {
	pgx.Rows
	records []GalleryRecord
	pos     int
}

func (r *listRows) Next() bool {
	r.pos++
	return r.pos <= len(r.records)
}

func (r *listRows) Scan(dest ...any) error {
	rec := r.records[r.pos-1]
	*dest[0].(*string) = rec.ID
	*dest[1].(*string) = rec.Prompt
	*dest[2].(*string) = rec.GeneratedImageURL
	*dest[3].(**string) = rec.OriginalImageURL
	*dest[4].(*time.Time) = rec.CreatedAt
	return nil
}

func (r *listRows) Err() error { return nil }
func (r *listRows) Close()     {}

func newTestGallery(t *testing.T, sql *fakeSQL) (*GalleryService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return NewGalleryService(sql, store, "https://assets.example.com/", zerolog.New(io.Discard)), dir
}

func TestSaveResultWritesBothImagesAndRecord(t *testing.T) {
	sql := &fakeSQL{}
	gallery, dir := newTestGallery(t, sql)
	gallery.now = func() time.Time { return time.UnixMilli(1700000000000) }

	original := &codec.SourceImage{Name: "cat.png", Mime: "image/png", Data: []byte("original-bytes")}
	err := gallery.SaveResult(context.Background(), "user-1", []byte("generated-bytes"), "add a hat", original)
	if err != nil {
		t.Fatalf("SaveResult returned error: %v", err)
	}

	gen, err := os.ReadFile(filepath.Join(dir, "images/user-1/1700000000000_generated.png"))
	if err != nil || string(gen) != "generated-bytes" {
		t.Fatalf("generated asset = %q, err %v", gen, err)
	}
	orig, err := os.ReadFile(filepath.Join(dir, "images/user-1/1700000000000_original.png"))
	if err != nil || string(orig) != "original-bytes" {
		t.Fatalf("original asset = %q, err %v", orig, err)
	}

	if len(sql.queryRowArgs) != 5 {
		t.Fatalf("record insert args = %#v", sql.queryRowArgs)
	}
	if sql.queryRowArgs[3] != "https://assets.example.com/images/user-1/1700000000000_generated.png" {
		t.Fatalf("generated url arg = %v", sql.queryRowArgs[3])
	}
	origURL, ok := sql.queryRowArgs[4].(*string)
	if !ok || origURL == nil || *origURL != "https://assets.example.com/images/user-1/1700000000000_original.png" {
		t.Fatalf("original url arg = %v", sql.queryRowArgs[4])
	}
}

func TestSaveResultWithoutOriginalOmitsSecondUpload(t *testing.T) {
	sql := &fakeSQL{}
	gallery, dir := newTestGallery(t, sql)
	gallery.now = func() time.Time { return time.UnixMilli(42) }

	if err := gallery.SaveResult(context.Background(), "user-1", []byte("x"), "a lion", nil); err != nil {
		t.Fatalf("SaveResult returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "images/user-1/42_original.png")); !os.IsNotExist(err) {
		t.Fatalf("unexpected original asset, stat err = %v", err)
	}
	if origURL, ok := sql.queryRowArgs[4].(*string); !ok || origURL != nil {
		t.Fatalf("original url arg = %v", sql.queryRowArgs[4])
	}
}

func TestSaveResultRecordFailureLeavesUploadedAssets(t *testing.T) {
	sql := &fakeSQL{rowErr: errors.New("connection reset")}
	gallery, dir := newTestGallery(t, sql)
	gallery.now = func() time.Time { return time.UnixMilli(7) }

	err := gallery.SaveResult(context.Background(), "user-1", []byte("gen"), "p", nil)
	if !errors.Is(err, apperr.ErrSaveFailure) {
		t.Fatalf("err = %v, want ErrSaveFailure", err)
	}

	// The upload is not rolled back when the record write fails.
	if _, statErr := os.Stat(filepath.Join(dir, "images/user-1/7_generated.png")); statErr != nil {
		t.Fatalf("uploaded asset missing: %v", statErr)
	}
}

func TestSaveResultRejectsEmptyPayload(t *testing.T) {
	gallery, _ := newTestGallery(t, &fakeSQL{})
	if err := gallery.SaveResult(context.Background(), "user-1", nil, "p", nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestListResultsReturnsRecordsInStoredOrder(t *testing.T) {
	newer := GalleryRecord{ID: "b", Prompt: "second", GeneratedImageURL: "u2", CreatedAt: time.UnixMilli(2000)}
	older := GalleryRecord{ID: "a", Prompt: "first", GeneratedImageURL: "u1", CreatedAt: time.UnixMilli(1000)}
	sql := &fakeSQL{rows: &listRows{records: []GalleryRecord{newer, older}}}
	gallery, _ := newTestGallery(t, sql)

	records, err := gallery.ListResults(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListResults returned error: %v", err)
	}
	if len(records) != 2 || records[0].ID != "b" || records[1].ID != "a" {
		t.Fatalf("records = %#v", records)
	}
}

func TestListResultsQueryFailure(t *testing.T) {
	sql := &fakeSQL{queryErr: errors.New("down")}
	gallery, _ := newTestGallery(t, sql)

	if _, err := gallery.ListResults(context.Background(), "user-1"); !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}
