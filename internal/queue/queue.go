package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
	"github.com/quillpub/quillpub/internal/federation"
)

// Enqueuer implements federation.Transport by handing envelopes to the
// asynq queue. Retry on delivery failure is asynq's business; the
// publish path only learns whether the enqueue itself succeeded.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) Send(ctx context.Context, senderActorID, scope string, activity *federation.Activity, opts federation.DeliveryOptions) error {
	body, err := json.Marshal(activity)
	if err != nil {
		return err
	}

	taskPayload, err := json.Marshal(DeliverActivityPayload{
		SenderActorID:     senderActorID,
		Scope:             scope,
		Activity:          body,
		PreferSharedInbox: opts.PreferSharedInbox,
		ExcludeBaseURIs:   opts.ExcludeBaseURIs,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDeliverActivity, taskPayload)

	_, err = e.client.EnqueueContext(ctx, task, asynq.MaxRetry(10))
	if err != nil {
		return err
	}

	log.Printf("Delivery queued: %s", activity.ID)
	return nil
}
