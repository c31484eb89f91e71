package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/transfer"
)

type PostRepository interface {
	Upsert(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetBySourceID(ctx context.Context, sourceID string) (*models.Post, error)
	IncrementRepliesCount(ctx context.Context, id string) error
	ListPublic(ctx context.Context, q *transfer.FeedQuery) ([]*models.Post, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, actor_id, source_id, type, content_html, visibility, language, iri, reply_target_id, shared_post_id, replies_count, published, updated`

func scanPost(row *sql.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.ActorID, &p.SourceID, &p.Type, &p.ContentHTML, &p.Visibility, &p.Language, &p.IRI, &p.ReplyTargetID, &p.SharedPostID, &p.RepliesCount, &p.Published, &p.Updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &p, nil
}

// Upsert writes the projection. Re-projecting an existing post keeps
// its identifier, IRI, published instant and counters; only the
// editable fields move.
func (r *postRepository) Upsert(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (id, actor_id, source_id, type, content_html, visibility, language, iri, reply_target_id, shared_post_id, updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET content_html = EXCLUDED.content_html,
			visibility = EXCLUDED.visibility,
			language = EXCLUDED.language,
			updated = EXCLUDED.updated
		RETURNING ` + postColumns + `
	`
	row := r.db.QueryRowContext(ctx, query,
		post.ID, post.ActorID, post.SourceID, post.Type, post.ContentHTML, post.Visibility,
		post.Language, post.IRI, post.ReplyTargetID, post.SharedPostID, post.Updated)
	return scanPost(row)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	return scanPost(r.db.QueryRowContext(ctx, query, id))
}

func (r *postRepository) GetBySourceID(ctx context.Context, sourceID string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE source_id = $1`
	return scanPost(r.db.QueryRowContext(ctx, query, sourceID))
}

func (r *postRepository) IncrementRepliesCount(ctx context.Context, id string) error {
	query := `UPDATE posts SET replies_count = replies_count + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// publicFilterClause compiles the fan-in feed mode into SQL. Local
// means authored here or reshared by a local actor.
func publicFilterClause(filter transfer.FeedFilter) string {
	switch filter {
	case transfer.FilterLocal:
		return ` AND (p.source_id IS NOT NULL
			OR (p.shared_post_id IS NOT NULL
				AND EXISTS (SELECT 1 FROM actors a WHERE a.id = p.actor_id AND a.account_id IS NOT NULL)))`
	case transfer.FilterWithoutShares:
		return ` AND p.shared_post_id IS NULL`
	case transfer.FilterArticlesOnly:
		return ` AND p.type = 'Article'`
	}
	return ``
}

// ListPublic is the fan-in strategy: public top-level posts straight
// from the posts table, no timeline rows involved.
func (r *postRepository) ListPublic(ctx context.Context, q *transfer.FeedQuery) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		WHERE p.visibility = 'public' AND p.reply_target_id IS NULL
	`
	args := []interface{}{}
	if len(q.Languages) > 0 {
		args = append(args, pq.Array(q.Languages))
		query += fmt.Sprintf(` AND p.language = ANY($%d)`, len(args))
	}
	query += publicFilterClause(q.Filter)
	if !q.Until.IsZero() {
		args = append(args, q.Until)
		query += fmt.Sprintf(` AND p.published <= $%d`, len(args))
	}
	args = append(args, q.Window+1)
	query += fmt.Sprintf(` ORDER BY p.published DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var p models.Post
		err := rows.Scan(&p.ID, &p.ActorID, &p.SourceID, &p.Type, &p.ContentHTML, &p.Visibility, &p.Language, &p.IRI, &p.ReplyTargetID, &p.SharedPostID, &p.RepliesCount, &p.Published, &p.Updated)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}
