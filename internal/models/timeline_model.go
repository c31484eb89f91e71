package models

import (
	"database/sql"
	"time"
)

// TimelineItem is the fan-out row: one per (account, original post).
// Resharing an already-seen post bumps Appended and the sharer fields
// in place instead of inserting a second row. It is a read
// optimization only and can be rebuilt from posts plus follows.
type TimelineItem struct {
	AccountID      string         `db:"account_id" json:"account_id"`
	PostID         string         `db:"post_id" json:"post_id"`
	OriginalPostID string         `db:"original_post_id" json:"original_post_id"`
	Added          time.Time      `db:"added" json:"added"`
	Appended       time.Time      `db:"appended" json:"appended"`
	LastSharerID   sql.NullString `db:"last_sharer_id" json:"last_sharer_id"`
	SharersCount   int64          `db:"sharers_count" json:"sharers_count"`
}

// FeedEntry is what both feed strategies hand back to rendering: the
// hydrated post plus the timeline bookkeeping (zeroed on the fan-in
// path, which has no timeline rows).
type FeedEntry struct {
	Post         *PostDetail `json:"post"`
	Added        time.Time   `json:"added"`
	LastSharer   *Actor      `json:"last_sharer,omitempty"`
	SharersCount int64       `json:"sharers_count"`
}
