package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"concertjournal/internal/models"
)

// MaxUploadSize caps a single photo.
const MaxUploadSize = 20 << 20

var (
	ErrUnsupportedType = errors.New("only image files can be attached")
	ErrTooLarge        = errors.New("file exceeds upload limit")
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".heic": true,
}

// Concerts loads and saves the concert a photo belongs to.
type Concerts interface {
	Get(ctx context.Context, id int64) (*models.Concert, error)
	Save(ctx context.Context, concert models.Concert) (*models.Concert, error)
}

// Library attaches photos to concerts.
type Library struct {
	provider Provider
	concerts Concerts
}

// NewLibrary constructs a Library.
func NewLibrary(provider Provider, concerts Concerts) *Library {
	return &Library{provider: provider, concerts: concerts}
}

// IsImage reports whether filename has an accepted image extension.
func IsImage(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Key builds the storage key for a new photo of a concert.
func Key(concertID int64, filename string) string {
	return fmt.Sprintf("concerts/%d/%s%s", concertID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
}

// Attach stores body and appends its key to the concert's media paths.
func (l *Library) Attach(ctx context.Context, concertID int64, filename string, body io.Reader) (*models.Concert, string, error) {
	if !IsImage(filename) {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedType, filename)
	}

	concert, err := l.concerts.Get(ctx, concertID)
	if err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxUploadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, "", ErrTooLarge
	}

	key := Key(concertID, filename)
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if err := l.provider.Put(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, "", fmt.Errorf("store media: %w", err)
	}

	concert.MediaPaths = append(concert.MediaPaths, key)
	saved, err := l.concerts.Save(ctx, *concert)
	if err != nil {
		if derr := l.provider.Delete(ctx, key); derr != nil {
			log.Warn().Err(derr).Str("key", key).Msg("remove orphaned media")
		}
		return nil, "", fmt.Errorf("save concert media: %w", err)
	}

	log.Info().Int64("concert_id", concertID).Str("key", key).Int("bytes", len(data)).Msg("media attached")
	return saved, key, nil
}

// Open returns a stored photo.
func (l *Library) Open(ctx context.Context, key string) (*Object, error) {
	return l.provider.Get(ctx, key)
}
