package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/quillpub/quillpub/internal/models"
)

type ActorRepository interface {
	GetByID(ctx context.Context, id string) (*models.Actor, error)
	GetByAccountID(ctx context.Context, accountID string) (*models.Actor, error)
	GetByHandle(ctx context.Context, username, host string) (*models.Actor, error)
	ListRecommended(ctx context.Context, locales []string, limit int) ([]*models.Actor, error)
}

type actorRepository struct {
	db *sql.DB
}

func NewActorRepository(db *sql.DB) ActorRepository {
	return &actorRepository{db: db}
}

const actorColumns = `id, account_id, iri, username, host, name, bio_html, locale, inbox_uri, shared_inbox_uri, followers_iri, created_at`

func scanActorRow(row *sql.Row) (*models.Actor, error) {
	var a models.Actor
	err := row.Scan(&a.ID, &a.AccountID, &a.IRI, &a.Username, &a.Host, &a.Name, &a.BioHTML, &a.Locale, &a.InboxURI, &a.SharedInboxURI, &a.FollowersIRI, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &a, nil
}

func (r *actorRepository) GetByID(ctx context.Context, id string) (*models.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE id = $1`
	return scanActorRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *actorRepository) GetByAccountID(ctx context.Context, accountID string) (*models.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE account_id = $1`
	return scanActorRow(r.db.QueryRowContext(ctx, query, accountID))
}

// GetByHandle looks an actor up by username plus host. Local actors
// are stored with an empty host.
func (r *actorRepository) GetByHandle(ctx context.Context, username, host string) (*models.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE username = $1 AND host = $2`
	return scanActorRow(r.db.QueryRowContext(ctx, query, username, host))
}

func (r *actorRepository) ListRecommended(ctx context.Context, locales []string, limit int) ([]*models.Actor, error) {
	query := `
		SELECT ` + actorColumns + `
		FROM actors
		WHERE account_id IS NOT NULL
	`
	args := []interface{}{}
	if len(locales) > 0 {
		query += ` AND locale = ANY($1) ORDER BY created_at DESC LIMIT $2`
		args = append(args, pq.Array(locales), limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var actors []*models.Actor
	for rows.Next() {
		var a models.Actor
		err := rows.Scan(&a.ID, &a.AccountID, &a.IRI, &a.Username, &a.Host, &a.Name, &a.BioHTML, &a.Locale, &a.InboxURI, &a.SharedInboxURI, &a.FollowersIRI, &a.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		actors = append(actors, &a)
	}
	return actors, rows.Err()
}
