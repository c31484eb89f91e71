package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/transfer"
)

type TimelineRepository interface {
	Upsert(ctx context.Context, item *models.TimelineItem) error
	ListForAccount(ctx context.Context, accountID, viewerActorID string, q *transfer.FeedQuery) ([]*models.TimelineItem, error)
}

type timelineRepository struct {
	db *sql.DB
}

func NewTimelineRepository(db *sql.DB) TimelineRepository {
	return &timelineRepository{db: db}
}

// Upsert inserts the fan-out row, or resurfaces the existing one: a
// second share of the same original post bumps appended and the
// sharer bookkeeping in place, never a duplicate row.
func (r *timelineRepository) Upsert(ctx context.Context, item *models.TimelineItem) error {
	query := `
		INSERT INTO timeline_items (account_id, post_id, original_post_id, added, appended, last_sharer_id, sharers_count)
		VALUES ($1, $2, $3, $4, $4, $5, $6)
		ON CONFLICT (account_id, original_post_id) DO UPDATE
		SET post_id = EXCLUDED.post_id,
			appended = EXCLUDED.appended,
			last_sharer_id = EXCLUDED.last_sharer_id,
			sharers_count = timeline_items.sharers_count + 1
	`
	_, err := r.db.ExecContext(ctx, query,
		item.AccountID, item.PostID, item.OriginalPostID, item.Added, item.LastSharerID, item.SharersCount)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// visibilityClause is the general predicate shared by every fan-out
// query: public or unlisted, authored by the viewer, mentioning the
// viewer, or follower-scoped by someone the viewer follows. The
// viewer actor id binds to the given placeholder.
func visibilityClause(viewerParam int) string {
	return fmt.Sprintf(` AND (p.visibility IN ('public', 'unlisted')
		OR p.actor_id = $%[1]d
		OR EXISTS (SELECT 1 FROM mentions m WHERE m.post_id = p.id AND m.actor_id = $%[1]d)
		OR (p.visibility = 'followers'
			AND EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = $%[1]d AND f.followee_id = p.actor_id)))`, viewerParam)
}

func timelineFilterClause(filter transfer.FeedFilter, viewerParam int) string {
	switch filter {
	case transfer.FilterLocal:
		return ` AND p.source_id IS NOT NULL`
	case transfer.FilterWithoutShares:
		return ` AND p.shared_post_id IS NULL`
	case transfer.FilterArticlesOnly:
		return ` AND p.type = 'Article'`
	case transfer.FilterMentionsAndQuotes:
		return fmt.Sprintf(` AND (EXISTS (SELECT 1 FROM mentions m WHERE m.post_id = p.id AND m.actor_id = $%[1]d)
			OR EXISTS (SELECT 1 FROM posts q WHERE q.id = p.shared_post_id AND q.actor_id = $%[1]d))`, viewerParam)
	}
	return ``
}

// ListForAccount is the fan-out strategy: the viewer's materialized
// timeline joined against posts, with the visibility predicate applied
// in the query itself. The service re-checks each row defensively.
func (r *timelineRepository) ListForAccount(ctx context.Context, accountID, viewerActorID string, q *transfer.FeedQuery) ([]*models.TimelineItem, error) {
	cursorColumn := "t.appended"
	if q.Filter == transfer.FilterWithoutShares {
		cursorColumn = "t.added"
	}

	query := `
		SELECT t.account_id, t.post_id, t.original_post_id, t.added, t.appended, t.last_sharer_id, t.sharers_count
		FROM timeline_items t
		JOIN posts p ON p.id = t.post_id
		WHERE t.account_id = $1
	`
	args := []interface{}{accountID, viewerActorID}
	query += visibilityClause(2)
	query += timelineFilterClause(q.Filter, 2)
	if !q.Until.IsZero() {
		args = append(args, q.Until)
		query += fmt.Sprintf(` AND %s <= $%d`, cursorColumn, len(args))
	}
	args = append(args, q.Window+1)
	query += fmt.Sprintf(` ORDER BY %s DESC LIMIT $%d`, cursorColumn, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []*models.TimelineItem
	for rows.Next() {
		var t models.TimelineItem
		err := rows.Scan(&t.AccountID, &t.PostID, &t.OriginalPostID, &t.Added, &t.Appended, &t.LastSharerID, &t.SharersCount)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}
