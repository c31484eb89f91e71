package federation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	sent    []*Activity
	opts    []DeliveryOptions
	sendErr error
}

func (t *recordingTransport) Send(ctx context.Context, senderActorID, scope string, activity *Activity, opts DeliveryOptions) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, activity)
	t.opts = append(t.opts, opts)
	return nil
}

func objectFixture() *Object {
	return &Object{
		ID:           "https://quill.example/@alice/01post",
		Type:         "Note",
		AttributedTo: "https://quill.example/actors/alice",
		To:           []string{PublicCollection},
		CC:           []string{"https://quill.example/actors/alice/followers"},
	}
}

func TestDispatchCreateEnvelope(t *testing.T) {
	transport := &recordingTransport{}
	d := NewDispatcher("https://quill.example", "https://quill.pub", transport)

	require.NoError(t, d.DispatchCreate(context.Background(), "actor-alice", objectFixture()))
	require.Len(t, transport.sent, 1)

	activity := transport.sent[0]
	assert.Equal(t, "https://quill.example/@alice/01post#create", activity.ID)
	assert.Equal(t, "Create", activity.Type)
	assert.Equal(t, "https://quill.example/actors/alice", activity.Actor)
	assert.Equal(t, objectFixture().To, activity.To)

	opts := transport.opts[0]
	assert.True(t, opts.PreferSharedInbox)
	assert.Equal(t, []string{"https://quill.example"}, opts.ExcludeBaseURIs)
}

func TestDispatchCreateIsDeterministic(t *testing.T) {
	transport := &recordingTransport{}
	d := NewDispatcher("https://quill.example", "", transport)

	require.NoError(t, d.DispatchCreate(context.Background(), "actor-alice", objectFixture()))
	require.NoError(t, d.DispatchCreate(context.Background(), "actor-alice", objectFixture()))

	require.Len(t, transport.sent, 2)
	assert.Equal(t, transport.sent[0].ID, transport.sent[1].ID,
		"redelivered creation must carry the same envelope id")
}

func TestDispatchUpdateEnvelopeIDs(t *testing.T) {
	transport := &recordingTransport{}
	d := NewDispatcher("https://quill.example", "https://quill.pub", transport)

	first := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(3 * time.Second)

	require.NoError(t, d.DispatchUpdate(context.Background(), "actor-alice", objectFixture(), first))
	require.NoError(t, d.DispatchUpdate(context.Background(), "actor-alice", objectFixture(), second))
	require.Len(t, transport.sent, 2)

	assert.Equal(t, "https://quill.example/@alice/01post#update/2026-05-01T12:00:00Z", transport.sent[0].ID)
	assert.NotEqual(t, transport.sent[0].ID, transport.sent[1].ID)
	assert.Less(t, transport.sent[0].ID, transport.sent[1].ID,
		"later edits must sort after earlier ones")
}

func TestDispatchUpdateExcludesBothOrigins(t *testing.T) {
	transport := &recordingTransport{}
	d := NewDispatcher("https://quill.example", "https://quill.pub", transport)

	require.NoError(t, d.DispatchUpdate(context.Background(), "actor-alice", objectFixture(), time.Now()))
	assert.Equal(t, []string{"https://quill.example", "https://quill.pub"}, transport.opts[0].ExcludeBaseURIs)
}

func TestDispatchUpdateDeduplicatesOrigin(t *testing.T) {
	transport := &recordingTransport{}
	d := NewDispatcher("https://quill.example", "https://quill.example", transport)

	require.NoError(t, d.DispatchUpdate(context.Background(), "actor-alice", objectFixture(), time.Now()))
	assert.Equal(t, []string{"https://quill.example"}, transport.opts[0].ExcludeBaseURIs)
}

func TestDispatchWrapsTransportFailure(t *testing.T) {
	transport := &recordingTransport{sendErr: errors.New("queue unavailable")}
	d := NewDispatcher("https://quill.example", "", transport)

	err := d.DispatchCreate(context.Background(), "actor-alice", objectFixture())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDispatchFailure)

	err = d.DispatchUpdate(context.Background(), "actor-alice", objectFixture(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDispatchFailure)
}
