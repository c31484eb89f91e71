package models

import (
	"database/sql"
	"time"
)

type Account struct {
	ID              string         `db:"id" json:"id"`
	Username        string         `db:"username" json:"username"`
	OldUsername     sql.NullString `db:"old_username" json:"-"`
	UsernameChanged sql.NullTime   `db:"username_changed" json:"-"`
	Name            string         `db:"name" json:"name"`
	BioHTML         string         `db:"bio_html" json:"bio_html"`
	Locale          string         `db:"locale" json:"locale"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Actor is the federation-facing identity. Local actors carry an
// AccountID; remote actors are cached rows discovered through mentions
// and follows.
type Actor struct {
	ID             string         `db:"id" json:"id"`
	AccountID      sql.NullString `db:"account_id" json:"account_id"`
	IRI            string         `db:"iri" json:"iri"`
	Username       string         `db:"username" json:"username"`
	Host           string         `db:"host" json:"host"`
	Name           string         `db:"name" json:"name"`
	BioHTML        string         `db:"bio_html" json:"bio_html"`
	Locale         string         `db:"locale" json:"locale"`
	InboxURI       string         `db:"inbox_uri" json:"-"`
	SharedInboxURI sql.NullString `db:"shared_inbox_uri" json:"-"`
	FollowersIRI   string         `db:"followers_iri" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

func (a *Actor) IsLocal() bool {
	return a.AccountID.Valid
}

// Handle returns @username for local actors and @username@host otherwise.
func (a *Actor) Handle() string {
	if a.IsLocal() {
		return "@" + a.Username
	}
	return "@" + a.Username + "@" + a.Host
}

type Follow struct {
	FollowerID string    `db:"follower_id" json:"follower_id"`
	FolloweeID string    `db:"followee_id" json:"followee_id"`
	Accepted   time.Time `db:"accepted" json:"accepted"`
}
