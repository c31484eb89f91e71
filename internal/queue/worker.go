package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/quillpub/quillpub/internal/federation"
	"github.com/quillpub/quillpub/internal/models"
)

func (j *Queue) HandleDeliverActivityTask(ctx context.Context, task *asynq.Task) error {
	var payload DeliverActivityPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return j.Deliver(ctx, &payload)
}

// Deliver resolves the recipient scope to inboxes and posts the
// activity to each. With the shared-inbox preference set, followers on
// the same server collapse into one call to that server's shared
// inbox. Excluded base URIs are dropped before delivery, which is what
// keeps our own addresses from receiving our own activities.
func (j *Queue) Deliver(ctx context.Context, payload *DeliverActivityPayload) error {
	if payload.Scope != federation.ScopeFollowers {
		return fmt.Errorf("unknown recipient scope %q", payload.Scope)
	}

	followers, err := j.fr.ListFollowers(ctx, payload.SenderActorID)
	if err != nil {
		return err
	}

	inboxes := resolveInboxes(followers, payload.PreferSharedInbox, payload.ExcludeBaseURIs)
	if len(inboxes) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)
	failures := make(chan string, len(inboxes))

	for _, inbox := range inboxes {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(inbox string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.post(ctx, inbox, payload.Activity); err != nil {
				log.Printf("Error delivering to %s: %v", inbox, err)
				failures <- inbox
			}
		}(inbox)
	}

	wg.Wait()
	close(failures)

	if len(failures) > 0 {
		return fmt.Errorf("delivery failed for %d of %d inboxes", len(failures), len(inboxes))
	}
	return nil
}

func resolveInboxes(followers []*models.Actor, preferShared bool, excludeBaseURIs []string) []string {
	seen := make(map[string]bool)
	var inboxes []string
	for _, follower := range followers {
		inbox := follower.InboxURI
		if preferShared && follower.SharedInboxURI.Valid {
			inbox = follower.SharedInboxURI.String
		}
		if inbox == "" || seen[inbox] || excluded(inbox, excludeBaseURIs) {
			continue
		}
		seen[inbox] = true
		inboxes = append(inboxes, inbox)
	}
	return inboxes
}

func excluded(inbox string, baseURIs []string) bool {
	for _, base := range baseURIs {
		if base != "" && strings.HasPrefix(inbox, base) {
			return true
		}
	}
	return false
}

func (j *Queue) post(ctx context.Context, inbox string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inbox, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/activity+json")

	resp, err := j.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("inbox returned %s", resp.Status)
	}
	return nil
}
