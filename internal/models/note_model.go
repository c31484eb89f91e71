package models

import "time"

// NoteSource is the authoring-time record. It is the only row the
// editor writes to; everything federation-facing is projected from it
// by the sync service.
type NoteSource struct {
	ID         string    `db:"id" json:"id"`
	AccountID  string    `db:"account_id" json:"account_id"`
	Content    string    `db:"content" json:"content"`
	Tags       []string  `db:"tags" json:"tags"`
	Visibility string    `db:"visibility" json:"visibility"`
	Language   string    `db:"language" json:"language"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type NoteMedium struct {
	SourceID  string    `db:"source_id" json:"source_id"`
	Index     int       `db:"index" json:"index"`
	Key       string    `db:"key" json:"key"`
	Alt       string    `db:"alt" json:"alt"`
	Width     int       `db:"width" json:"width"`
	Height    int       `db:"height" json:"height"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NoteSourceDetail bundles a source with the relations the editor and
// the sync service need in one load.
type NoteSourceDetail struct {
	NoteSource
	Account Account      `json:"account"`
	Media   []NoteMedium `json:"media"`
	Post    *PostDetail  `json:"post,omitempty"`
}
