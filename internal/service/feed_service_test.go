package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedHarness struct {
	acc *fakeAccountRepo
	ar  *fakeActorRepo
	fr  *fakeFollowRepo
	pr  *fakePostRepo
	tr  *fakeTimelineRepo
	svc FeedService
}

func newFeedHarness() *feedHarness {
	h := &feedHarness{
		acc: &fakeAccountRepo{accounts: map[string]*models.Account{
			"acc-alice": {ID: "acc-alice", Username: "alice", Locale: "en"},
			"acc-bob":   {ID: "acc-bob", Username: "bob", Locale: "en"},
			"acc-carol": {ID: "acc-carol", Username: "carol", Locale: "en"},
		}},
		ar: &fakeActorRepo{actors: []*models.Actor{
			{ID: "actor-alice", AccountID: sql.NullString{String: "acc-alice", Valid: true}, Username: "alice", Locale: "en"},
			{ID: "actor-bob", AccountID: sql.NullString{String: "acc-bob", Valid: true}, Username: "bob", Locale: "en"},
			{ID: "actor-carol", AccountID: sql.NullString{String: "acc-carol", Valid: true}, Username: "carol", Locale: "en"},
		}},
		pr: newFakePostRepo(),
		tr: newFakeTimelineRepo(),
	}
	h.fr = &fakeFollowRepo{actors: h.ar}

	loader := NewPostLoader(h.pr, h.ar, newFakePostMediaRepo(), newFakeMentionRepo())
	recommend := NewRecommendService(h.ar)
	h.svc = NewFeedService(h.pr, h.tr, h.ar, h.fr, loader, recommend)
	return h
}

func (h *feedHarness) addPost(id, actorID, visibility string, published time.Time) {
	h.pr.posts[id] = &models.Post{
		ID:         id,
		ActorID:    actorID,
		Type:       models.PostTypeNote,
		Visibility: visibility,
		Published:  published,
		Updated:    published,
	}
}

func TestTimelineAnonymousPagination(t *testing.T) {
	h := newFeedHarness()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{}
	for i := 0; i < 60; i++ {
		id := string(rune('a'+i/26)) + string(rune('a'+i%26))
		ids = append(ids, id)
		h.addPost(id, "actor-alice", models.VisibilityPublic, base.Add(-time.Duration(i)*time.Minute))
	}

	page, err := h.svc.Timeline(context.Background(), nil, &transfer.FeedQuery{Window: 50})
	require.NoError(t, err)

	assert.Len(t, page.Entries, 50)
	require.NotNil(t, page.Next, "more rows remain, so a cursor is handed out")
	assert.True(t, page.Next.Equal(base.Add(-50*time.Minute)), "cursor is the first undelivered row's instant")
	assert.Empty(t, page.Recommended, "a feed with more pages suggests nothing")
	assert.Equal(t, ids[0], page.Entries[0].Post.ID, "newest first")

	// The cursor row opens the next page; no row is skipped or doubled.
	page2, err := h.svc.Timeline(context.Background(), nil, &transfer.FeedQuery{Window: 50, Until: *page.Next})
	require.NoError(t, err)
	assert.Len(t, page2.Entries, 10)
	assert.Equal(t, ids[50], page2.Entries[0].Post.ID)
	assert.Nil(t, page2.Next)
	assert.NotEmpty(t, page2.Recommended, "a drained feed falls back to suggestions")
}

func TestTimelineAnonymousSeesOnlyPublicTopLevel(t *testing.T) {
	h := newFeedHarness()
	now := time.Now()
	h.addPost("pub", "actor-alice", models.VisibilityPublic, now)
	h.addPost("fol", "actor-alice", models.VisibilityFollowers, now.Add(-time.Minute))
	h.addPost("dir", "actor-alice", models.VisibilityDirect, now.Add(-2*time.Minute))
	reply := &models.Post{
		ID: "rep", ActorID: "actor-alice", Type: models.PostTypeNote,
		Visibility: models.VisibilityPublic, Published: now.Add(-3 * time.Minute),
		ReplyTargetID: sql.NullString{String: "pub", Valid: true},
	}
	h.pr.posts["rep"] = reply

	page, err := h.svc.Timeline(context.Background(), nil, &transfer.FeedQuery{Window: 50})
	require.NoError(t, err)

	require.Len(t, page.Entries, 1)
	assert.Equal(t, "pub", page.Entries[0].Post.ID)
}

func TestTimelineFanOutRechecksVisibility(t *testing.T) {
	h := newFeedHarness()
	now := time.Now()
	h.addPost("secret", "actor-carol", models.VisibilityFollowers, now)

	// The materialized row exists, but bob does not follow carol, so the
	// read-time check must still drop it.
	require.NoError(t, h.tr.Upsert(context.Background(), &models.TimelineItem{
		AccountID: "acc-bob", PostID: "secret", OriginalPostID: "secret",
		Added: now, Appended: now,
	}))

	viewer := h.acc.accounts["acc-bob"]
	page, err := h.svc.Timeline(context.Background(), viewer, &transfer.FeedQuery{Window: 50})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
}

func TestTimelineFanOutFollowerSeesFollowersPost(t *testing.T) {
	h := newFeedHarness()
	h.fr.follows = []models.Follow{{FollowerID: "actor-bob", FolloweeID: "actor-carol"}}
	now := time.Now()
	h.addPost("secret", "actor-carol", models.VisibilityFollowers, now)
	require.NoError(t, h.tr.Upsert(context.Background(), &models.TimelineItem{
		AccountID: "acc-bob", PostID: "secret", OriginalPostID: "secret",
		Added: now, Appended: now,
	}))

	viewer := h.acc.accounts["acc-bob"]
	page, err := h.svc.Timeline(context.Background(), viewer, &transfer.FeedQuery{Window: 50})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "secret", page.Entries[0].Post.ID)
}

func TestTimelineFanOutAnnotatesShares(t *testing.T) {
	h := newFeedHarness()
	now := time.Now()
	h.addPost("p1", "actor-carol", models.VisibilityPublic, now)

	require.NoError(t, h.tr.Upsert(context.Background(), &models.TimelineItem{
		AccountID: "acc-bob", PostID: "p1", OriginalPostID: "p0",
		Added: now, Appended: now,
		LastSharerID: sql.NullString{String: "actor-alice", Valid: true},
		SharersCount: 2,
	}))

	viewer := h.acc.accounts["acc-bob"]
	page, err := h.svc.Timeline(context.Background(), viewer, &transfer.FeedQuery{Window: 50})
	require.NoError(t, err)

	require.Len(t, page.Entries, 1)
	entry := page.Entries[0]
	assert.Equal(t, int64(2), entry.SharersCount)
	require.NotNil(t, entry.LastSharer)
	assert.Equal(t, "actor-alice", entry.LastSharer.ID)
}

func TestTimelineRecommendationsMode(t *testing.T) {
	h := newFeedHarness()
	viewer := h.acc.accounts["acc-bob"]

	page, err := h.svc.Timeline(context.Background(), viewer, &transfer.FeedQuery{
		Filter: transfer.FilterRecommendations,
		Window: 50,
	})
	require.NoError(t, err)

	assert.Empty(t, page.Entries)
	require.NotEmpty(t, page.Recommended)
	for _, a := range page.Recommended {
		assert.NotEqual(t, "acc-bob", a.AccountID.String, "the viewer is never suggested to themselves")
	}
}
