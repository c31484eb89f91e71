package models

import (
	"database/sql"
	"time"
)

// Post is the published projection of a NoteSource. Exactly one post
// exists per source, under the same identifier, and its IRI never
// changes once assigned.
type Post struct {
	ID            string         `db:"id" json:"id"`
	ActorID       string         `db:"actor_id" json:"actor_id"`
	SourceID      sql.NullString `db:"source_id" json:"source_id"`
	Type          string         `db:"type" json:"type"` // Note, Article
	ContentHTML   string         `db:"content_html" json:"content_html"`
	Visibility    string         `db:"visibility" json:"visibility"`
	Language      string         `db:"language" json:"language"`
	IRI           string         `db:"iri" json:"iri"`
	ReplyTargetID sql.NullString `db:"reply_target_id" json:"reply_target_id"`
	SharedPostID  sql.NullString `db:"shared_post_id" json:"shared_post_id"`
	RepliesCount  int64          `db:"replies_count" json:"replies_count"`
	Published     time.Time      `db:"published" json:"published"`
	Updated       time.Time      `db:"updated" json:"updated"`
}

type PostMedium struct {
	PostID string `db:"post_id" json:"post_id"`
	Index  int    `db:"index" json:"index"`
	Key    string `db:"key" json:"key"`
	Alt    string `db:"alt" json:"alt"`
	Width  int    `db:"width" json:"width"`
	Height int    `db:"height" json:"height"`
}

type Mention struct {
	PostID   string `db:"post_id" json:"post_id"`
	ActorID  string `db:"actor_id" json:"actor_id"`
	ActorIRI string `db:"actor_iri" json:"actor_iri"`
	Handle   string `db:"handle" json:"handle"`
}

const (
	PostTypeNote    = "Note"
	PostTypeArticle = "Article"
)

const (
	VisibilityPublic    = "public"
	VisibilityUnlisted  = "unlisted"
	VisibilityFollowers = "followers"
	VisibilityDirect    = "direct"
)

// PostDetail is the depth-bounded eager-load shape: one level of reply
// target and shared post, each without their own nested targets.
type PostDetail struct {
	Post
	Actor       Actor        `json:"actor"`
	Media       []PostMedium `json:"media"`
	Mentions    []Mention    `json:"mentions"`
	ReplyTarget *PostDetail  `json:"reply_target,omitempty"`
	SharedPost  *PostDetail  `json:"shared_post,omitempty"`
}

// VisibleTo reports whether a viewer may see the post. An empty
// viewerActorID means an anonymous request; follows holds the actor IDs
// the viewer follows. Query construction applies the same predicate —
// this re-check runs on every returned row regardless.
func (p *PostDetail) VisibleTo(viewerActorID string, follows map[string]bool) bool {
	switch p.Visibility {
	case VisibilityPublic, VisibilityUnlisted:
		return true
	}
	if viewerActorID == "" {
		return false
	}
	if p.ActorID == viewerActorID {
		return true
	}
	for _, m := range p.Mentions {
		if m.ActorID == viewerActorID {
			return true
		}
	}
	if p.Visibility == VisibilityFollowers {
		return follows[p.ActorID]
	}
	return false
}
