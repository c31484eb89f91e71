package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/quillpub/quillpub/internal/models"
)

type MentionRepository interface {
	ReplaceForPost(ctx context.Context, postID string, mentions []*models.Mention) error
	ListByPostID(ctx context.Context, postID string) ([]*models.Mention, error)
}

type mentionRepository struct {
	db *sql.DB
}

func NewMentionRepository(db *sql.DB) MentionRepository {
	return &mentionRepository{db: db}
}

// ReplaceForPost swaps the mention set wholesale; each projection
// recomputes mentions from the rendered content rather than diffing.
func (r *mentionRepository) ReplaceForPost(ctx context.Context, postID string, mentions []*models.Mention) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mentions WHERE post_id = $1`, postID); err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		INSERT INTO mentions (post_id, actor_id, actor_iri, handle)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, actor_id) DO NOTHING
	`
	for _, m := range mentions {
		if _, err := tx.ExecContext(ctx, query, postID, m.ActorID, m.ActorIRI, m.Handle); err != nil {
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

func (r *mentionRepository) ListByPostID(ctx context.Context, postID string) ([]*models.Mention, error) {
	query := `SELECT post_id, actor_id, actor_iri, handle FROM mentions WHERE post_id = $1`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var mentions []*models.Mention
	for rows.Next() {
		var m models.Mention
		if err := rows.Scan(&m.PostID, &m.ActorID, &m.ActorIRI, &m.Handle); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		mentions = append(mentions, &m)
	}
	return mentions, rows.Err()
}
