package federation

import (
	"time"

	"github.com/quillpub/quillpub/internal/models"
)

const (
	ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"
	PublicCollection       = "https://www.w3.org/ns/activitystreams#Public"
)

type Attachment struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

type Tag struct {
	Type string `json:"type"`
	Href string `json:"href"`
	Name string `json:"name"`
}

// Object is the protocol representation of a post, ready to be
// wrapped in an activity envelope.
type Object struct {
	Context      interface{}  `json:"@context,omitempty"`
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	AttributedTo string       `json:"attributedTo"`
	To           []string     `json:"to"`
	CC           []string     `json:"cc,omitempty"`
	InReplyTo    string       `json:"inReplyTo,omitempty"`
	Content      string       `json:"content"`
	Language     string       `json:"-"`
	Published    time.Time    `json:"published"`
	Updated      time.Time    `json:"updated,omitempty"`
	Attachment   []Attachment `json:"attachment,omitempty"`
	Tag          []Tag        `json:"tag,omitempty"`
}

// ObjectBuilder turns hydrated posts into protocol objects. It is a
// pure transformation: no storage, no network. The reply target's IRI
// is passed in resolved at call time, since targets can move.
type ObjectBuilder struct {
	MediaBaseURL string
}

func NewObjectBuilder(mediaBaseURL string) *ObjectBuilder {
	return &ObjectBuilder{MediaBaseURL: mediaBaseURL}
}

func (b *ObjectBuilder) BuildNote(post *models.PostDetail, replyTargetIRI string) *Object {
	obj := &Object{
		Context:      ActivityStreamsContext,
		ID:           post.IRI,
		Type:         post.Type,
		AttributedTo: post.Actor.IRI,
		InReplyTo:    replyTargetIRI,
		Content:      post.ContentHTML,
		Language:     post.Language,
		Published:    post.Published,
		Updated:      post.Updated,
	}

	mentionIRIs := make([]string, 0, len(post.Mentions))
	for _, m := range post.Mentions {
		mentionIRIs = append(mentionIRIs, m.ActorIRI)
		obj.Tag = append(obj.Tag, Tag{Type: "Mention", Href: m.ActorIRI, Name: m.Handle})
	}

	followers := post.Actor.FollowersIRI
	switch post.Visibility {
	case models.VisibilityPublic:
		obj.To = []string{PublicCollection}
		obj.CC = append([]string{followers}, mentionIRIs...)
	case models.VisibilityUnlisted:
		obj.To = []string{followers}
		obj.CC = append([]string{PublicCollection}, mentionIRIs...)
	case models.VisibilityFollowers:
		obj.To = []string{followers}
		obj.CC = mentionIRIs
	default: // direct
		obj.To = mentionIRIs
	}

	for _, m := range post.Media {
		obj.Attachment = append(obj.Attachment, Attachment{
			Type:      "Document",
			MediaType: "image/jpeg",
			URL:       b.MediaBaseURL + "/" + m.Key,
			Name:      m.Alt,
			Width:     m.Width,
			Height:    m.Height,
		})
	}

	return obj
}
