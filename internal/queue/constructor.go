package queue

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quillpub/quillpub/internal/repository"
)

// Queue is the delivery side of the transport: it resolves a recipient
// scope to concrete inboxes and performs the HTTP delivery. The
// publish path never waits on it.
type Queue struct {
	fr     repository.FollowRepository
	ar     repository.ActorRepository
	client *http.Client
}

func NewQueue(fr repository.FollowRepository, ar repository.ActorRepository) *Queue {
	return &Queue{
		fr:     fr,
		ar:     ar,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

const TaskTypeDeliverActivity = "federation:deliver"

type DeliverActivityPayload struct {
	SenderActorID     string          `json:"sender_actor_id"`
	Scope             string          `json:"scope"`
	Activity          json.RawMessage `json:"activity"`
	PreferSharedInbox bool            `json:"prefer_shared_inbox"`
	ExcludeBaseURIs   []string        `json:"exclude_base_uris"`
}
