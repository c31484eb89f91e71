package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/quillpub/quillpub/internal/models"
)

type PostMediaRepository interface {
	ReplaceForPost(ctx context.Context, postID string, media []*models.PostMedium) error
	ListByPostID(ctx context.Context, postID string) ([]*models.PostMedium, error)
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

// ReplaceForPost overwrites the projected attachment set wholesale.
// The rows are derived state owned by the sync service; nothing else
// writes them.
func (r *postMediaRepository) ReplaceForPost(ctx context.Context, postID string, media []*models.PostMedium) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_media WHERE post_id = $1`, postID); err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		INSERT INTO post_media (post_id, index, key, alt, width, height)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, m := range media {
		if _, err := tx.ExecContext(ctx, query, postID, m.Index, m.Key, m.Alt, m.Width, m.Height); err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postMediaRepository) ListByPostID(ctx context.Context, postID string) ([]*models.PostMedium, error) {
	query := `
		SELECT post_id, index, key, alt, width, height
		FROM post_media
		WHERE post_id = $1
		ORDER BY index
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []*models.PostMedium
	for rows.Next() {
		var m models.PostMedium
		if err := rows.Scan(&m.PostID, &m.Index, &m.Key, &m.Alt, &m.Width, &m.Height); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		media = append(media, &m)
	}
	return media, rows.Err()
}
