package federation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDispatchFailure marks an envelope that could not be handed to the
// delivery transport. The caller's storage state is already committed
// at that point; the error signals partial success, not rollback.
var ErrDispatchFailure = errors.New("dispatch failure")

const ScopeFollowers = "followers"

// Activity is the change-notification envelope around an object.
type Activity struct {
	Context interface{} `json:"@context"`
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Actor   string      `json:"actor"`
	To      []string    `json:"to"`
	CC      []string    `json:"cc,omitempty"`
	Object  *Object     `json:"object"`
}

type DeliveryOptions struct {
	PreferSharedInbox bool
	ExcludeBaseURIs   []string
}

// Transport resolves a recipient scope to concrete inboxes and
// delivers, including retry and signing. This package's contract ends
// at calling Send once per dispatch.
type Transport interface {
	Send(ctx context.Context, senderActorID, scope string, activity *Activity, opts DeliveryOptions) error
}

type Dispatcher struct {
	origin          string
	canonicalOrigin string
	transport       Transport
}

func NewDispatcher(origin, canonicalOrigin string, transport Transport) *Dispatcher {
	return &Dispatcher{origin: origin, canonicalOrigin: canonicalOrigin, transport: transport}
}

// DispatchCreate sends a Create envelope to the actor's followers.
// The envelope id is derived from the object's own address, so a
// redelivered creation carries the same id and receivers can drop it.
// The server's own origin is excluded to keep the activity from
// looping back through our inbox.
func (d *Dispatcher) DispatchCreate(ctx context.Context, actorID string, obj *Object) error {
	activity := &Activity{
		Context: ActivityStreamsContext,
		ID:      obj.ID + "#create",
		Type:    "Create",
		Actor:   obj.AttributedTo,
		To:      obj.To,
		CC:      obj.CC,
		Object:  obj,
	}
	err := d.transport.Send(ctx, actorID, ScopeFollowers, activity, DeliveryOptions{
		PreferSharedInbox: true,
		ExcludeBaseURIs:   []string{d.origin},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailure, err)
	}
	return nil
}

// DispatchUpdate folds the edit instant into the envelope id, so every
// edit of the same object gets a distinct, strictly time-ordered id;
// receivers apply last-write-wins on it. An update can be triggered
// through either of the server's addresses, so both the origin and the
// canonical origin are excluded from recipient resolution.
func (d *Dispatcher) DispatchUpdate(ctx context.Context, actorID string, obj *Object, updated time.Time) error {
	activity := &Activity{
		Context: ActivityStreamsContext,
		ID:      obj.ID + "#update/" + updated.UTC().Format(time.RFC3339Nano),
		Type:    "Update",
		Actor:   obj.AttributedTo,
		To:      obj.To,
		CC:      obj.CC,
		Object:  obj,
	}
	exclude := []string{d.origin}
	if d.canonicalOrigin != "" && d.canonicalOrigin != d.origin {
		exclude = append(exclude, d.canonicalOrigin)
	}
	err := d.transport.Send(ctx, actorID, ScopeFollowers, activity, DeliveryOptions{
		PreferSharedInbox: true,
		ExcludeBaseURIs:   exclude,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailure, err)
	}
	return nil
}
