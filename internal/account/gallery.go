package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/apperr"
	"studio/internal/codec"
	"studio/internal/infra"
	"studio/internal/sqlinline"
	"studio/internal/storage"
)

// GalleryRecord is one persisted result, read-only once written. The store
// assigns the creation timestamp.
type GalleryRecord struct {
	ID                string    `json:"id"`
	Prompt            string    `json:"prompt"`
	GeneratedImageURL string    `json:"generatedImageUrl"`
	OriginalImageURL  *string   `json:"originalImageUrl"`
	CreatedAt         time.Time `json:"createdAt"`
}

// GalleryService saves generation results and lists a user's records.
type GalleryService struct {
	sql     infra.SQLExecutor
	store   *storage.FileStore
	baseURL string
	logger  zerolog.Logger
	now     func() time.Time
}

func NewGalleryService(sql infra.SQLExecutor, store *storage.FileStore, baseURL string, logger zerolog.Logger) *GalleryService {
	return &GalleryService{
		sql:     sql,
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

// SaveResult uploads the generated image (and the original, if the result
// came from an edit) and writes one metadata record. The two uploads and the
// record write are independent: if the record write fails after an upload
// succeeded, the uploaded bytes stay where they are and the caller sees a
// generic save failure. That inconsistency is accepted, not corrected.
func (s *GalleryService) SaveResult(ctx context.Context, userID string, generated []byte, prompt string, original *codec.SourceImage) error {
	if userID == "" {
		return fmt.Errorf("%w: user is not authenticated", apperr.ErrInvalidInput)
	}
	if len(generated) == 0 {
		return fmt.Errorf("%w: there is no generated image to save", apperr.ErrInvalidInput)
	}

	stamp := s.now().UnixMilli()

	genKey, err := s.store.Write(ctx, fmt.Sprintf("images/%s/%d_generated.png", userID, stamp), generated)
	if err != nil {
		return fmt.Errorf("%w: upload generated image: %v", apperr.ErrSaveFailure, err)
	}

	var originalURL *string
	if original != nil {
		raw, _, err := codec.ToTransportForm(original)
		if err != nil {
			return fmt.Errorf("%w: prepare original image: %v", apperr.ErrSaveFailure, err)
		}
		origKey, err := s.store.Write(ctx, fmt.Sprintf("images/%s/%d_original.png", userID, stamp), raw)
		if err != nil {
			return fmt.Errorf("%w: upload original image: %v", apperr.ErrSaveFailure, err)
		}
		u := s.assetURL(origKey)
		originalURL = &u
	}

	var createdAt time.Time
	row := s.sql.QueryRow(ctx, sqlinline.QInsertGalleryRecord,
		uuid.NewString(), userID, prompt, s.assetURL(genKey), originalURL)
	if err := row.Scan(&createdAt); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("gallery: record write failed after upload")
		return fmt.Errorf("%w: record write: %v", apperr.ErrSaveFailure, err)
	}

	s.logger.Info().Str("user_id", userID).Time("created_at", createdAt).Msg("gallery: result saved")
	return nil
}

// ListResults returns the user's records, most recent first.
func (s *GalleryService) ListResults(ctx context.Context, userID string) ([]GalleryRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is not authenticated", apperr.ErrInvalidInput)
	}

	rows, err := s.sql.Query(ctx, sqlinline.QListGalleryRecords, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	defer rows.Close()

	var records []GalleryRecord
	for rows.Next() {
		var rec GalleryRecord
		if err := rows.Scan(&rec.ID, &rec.Prompt, &rec.GeneratedImageURL, &rec.OriginalImageURL, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	return records, nil
}

func (s *GalleryService) assetURL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
