package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/quillpub/quillpub/internal/models"
)

type NoteMediaRepository interface {
	Create(ctx context.Context, m *models.NoteMedium) error
	ListBySourceID(ctx context.Context, sourceID string) ([]*models.NoteMedium, error)
	ListOrphaned(ctx context.Context, olderThan time.Time) ([]*models.NoteMedium, error)
	RemoveByKey(ctx context.Context, key string) error
}

type noteMediaRepository struct {
	db *sql.DB
}

func NewNoteMediaRepository(db *sql.DB) NoteMediaRepository {
	return &noteMediaRepository{db: db}
}

func (r *noteMediaRepository) Create(ctx context.Context, m *models.NoteMedium) error {
	query := `
		INSERT INTO note_media (source_id, index, key, alt, width, height)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, m.SourceID, m.Index, m.Key, m.Alt, m.Width, m.Height)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *noteMediaRepository) ListBySourceID(ctx context.Context, sourceID string) ([]*models.NoteMedium, error) {
	query := `
		SELECT source_id, index, key, alt, width, height, created_at
		FROM note_media
		WHERE source_id = $1
		ORDER BY index
	`
	rows, err := r.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []*models.NoteMedium
	for rows.Next() {
		var m models.NoteMedium
		if err := rows.Scan(&m.SourceID, &m.Index, &m.Key, &m.Alt, &m.Width, &m.Height, &m.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		media = append(media, &m)
	}
	return media, rows.Err()
}

// ListOrphaned returns media rows whose source insert never landed.
// Ingestion is not transactional with the source write, so these can
// accumulate; the sweep job reaps them once they are old enough to be
// past any in-flight publish.
func (r *noteMediaRepository) ListOrphaned(ctx context.Context, olderThan time.Time) ([]*models.NoteMedium, error) {
	query := `
		SELECT nm.source_id, nm.index, nm.key, nm.alt, nm.width, nm.height, nm.created_at
		FROM note_media nm
		LEFT JOIN note_sources ns ON ns.id = nm.source_id
		WHERE ns.id IS NULL AND nm.created_at < $1
	`
	rows, err := r.db.QueryContext(ctx, query, olderThan)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []*models.NoteMedium
	for rows.Next() {
		var m models.NoteMedium
		if err := rows.Scan(&m.SourceID, &m.Index, &m.Key, &m.Alt, &m.Width, &m.Height, &m.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		media = append(media, &m)
	}
	return media, rows.Err()
}

func (r *noteMediaRepository) RemoveByKey(ctx context.Context, key string) error {
	query := `DELETE FROM note_media WHERE key = $1`
	_, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
