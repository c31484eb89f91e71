package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/repository"
)

// ErrUnprocessableMedia means the attachment's pixel dimensions could
// not be determined. Such attachments are rejected outright; nothing
// is stored with placeholder dimensions.
var ErrUnprocessableMedia = errors.New("media has no decodable dimensions")

const (
	mediaKeyPrefix   = "note-media/"
	mediaContentType = "image/jpeg"
	jpegQuality      = 85
)

type MediaService interface {
	Ingest(ctx context.Context, sourceID string, index int, blob []byte, alt string) (*models.NoteMedium, error)
}

type mediaService struct {
	nm   repository.NoteMediaRepository
	blob BlobStorage
}

func NewMediaService(nm repository.NoteMediaRepository, blob BlobStorage) MediaService {
	return &mediaService{nm: nm, blob: blob}
}

// Ingest validates and transcodes one attachment. Every input format
// is normalized to JPEG, so storage cost and downstream rendering do
// not depend on what the author uploaded. The blob write and the row
// insert are not transactional with the caller's source insert; the
// sweep job reaps rows orphaned by a failed publish.
func (s *mediaService) Ingest(ctx context.Context, sourceID string, index int, blob []byte, alt string) (*models.NoteMedium, error) {
	if kind, err := filetype.Match(blob); err != nil || !filetype.IsImage(blob) {
		slog.Info("attachment is not an image", "source_id", sourceID, "index", index, "detected", kind.Extension)
		return nil, ErrUnprocessableMedia
	}

	img, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		slog.Info("attachment did not decode", "source_id", sourceID, "index", index)
		return nil, ErrUnprocessableMedia
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, ErrUnprocessableMedia
	}

	var transcoded bytes.Buffer
	if err := jpeg.Encode(&transcoded, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("transcoding attachment: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := mediaKeyPrefix + id + ".jpg"

	if err := s.blob.Put(ctx, key, transcoded.Bytes(), mediaContentType); err != nil {
		return nil, fmt.Errorf("storing attachment blob: %w", err)
	}

	medium := &models.NoteMedium{
		SourceID: sourceID,
		Index:    index,
		Key:      key,
		Alt:      alt,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}
	if err := s.nm.Create(ctx, medium); err != nil {
		return nil, err
	}

	return medium, nil
}
