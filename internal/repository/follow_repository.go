package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/quillpub/quillpub/internal/models"
)

type FollowRepository interface {
	ListFollowers(ctx context.Context, followeeID string) ([]*models.Actor, error)
	ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error)
}

type followRepository struct {
	db *sql.DB
}

func NewFollowRepository(db *sql.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) ListFollowers(ctx context.Context, followeeID string) ([]*models.Actor, error) {
	query := `
		SELECT a.id, a.account_id, a.iri, a.username, a.host, a.name, a.bio_html, a.locale, a.inbox_uri, a.shared_inbox_uri, a.followers_iri, a.created_at
		FROM follows f
		JOIN actors a ON a.id = f.follower_id
		WHERE f.followee_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, followeeID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var followers []*models.Actor
	for rows.Next() {
		var a models.Actor
		err := rows.Scan(&a.ID, &a.AccountID, &a.IRI, &a.Username, &a.Host, &a.Name, &a.BioHTML, &a.Locale, &a.InboxURI, &a.SharedInboxURI, &a.FollowersIRI, &a.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		followers = append(followers, &a)
	}
	return followers, rows.Err()
}

func (r *followRepository) ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error) {
	query := `SELECT followee_id FROM follows WHERE follower_id = $1`
	rows, err := r.db.QueryContext(ctx, query, followerID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
