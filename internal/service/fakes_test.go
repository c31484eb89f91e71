package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quillpub/quillpub/internal/federation"
	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/transfer"
)

type fakeAccountRepo struct {
	accounts map[string]*models.Account
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.accounts[id], nil
}

func (r *fakeAccountRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	var fallback *models.Account
	for _, a := range r.accounts {
		if a.OldUsername.Valid && a.OldUsername.String == username && a.UsernameChanged.Valid {
			if fallback == nil || a.UsernameChanged.Time.After(fallback.UsernameChanged.Time) {
				fallback = a
			}
		}
	}
	return fallback, nil
}

type fakeActorRepo struct {
	actors []*models.Actor
}

func (r *fakeActorRepo) GetByID(ctx context.Context, id string) (*models.Actor, error) {
	for _, a := range r.actors {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeActorRepo) GetByAccountID(ctx context.Context, accountID string) (*models.Actor, error) {
	for _, a := range r.actors {
		if a.AccountID.Valid && a.AccountID.String == accountID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeActorRepo) GetByHandle(ctx context.Context, username, host string) (*models.Actor, error) {
	for _, a := range r.actors {
		if a.Username == username && a.Host == host {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeActorRepo) ListRecommended(ctx context.Context, locales []string, limit int) ([]*models.Actor, error) {
	var recommended []*models.Actor
	for _, a := range r.actors {
		if !a.AccountID.Valid {
			continue
		}
		if len(locales) > 0 {
			match := false
			for _, locale := range locales {
				if a.Locale == locale {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		recommended = append(recommended, a)
		if len(recommended) == limit {
			break
		}
	}
	return recommended, nil
}

type fakeFollowRepo struct {
	follows []models.Follow
	actors  *fakeActorRepo
}

func (r *fakeFollowRepo) ListFollowers(ctx context.Context, followeeID string) ([]*models.Actor, error) {
	var followers []*models.Actor
	for _, f := range r.follows {
		if f.FolloweeID != followeeID {
			continue
		}
		actor, _ := r.actors.GetByID(ctx, f.FollowerID)
		if actor != nil {
			followers = append(followers, actor)
		}
	}
	return followers, nil
}

func (r *fakeFollowRepo) ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error) {
	var ids []string
	for _, f := range r.follows {
		if f.FollowerID == followerID {
			ids = append(ids, f.FolloweeID)
		}
	}
	return ids, nil
}

type fakeNoteSourceRepo struct {
	mu      sync.Mutex
	sources map[string]*models.NoteSource
}

func newFakeNoteSourceRepo() *fakeNoteSourceRepo {
	return &fakeNoteSourceRepo{sources: make(map[string]*models.NoteSource)}
}

func (r *fakeNoteSourceRepo) Create(ctx context.Context, source *models.NoteSource) (*models.NoteSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[source.ID]; exists {
		return nil, nil
	}
	stored := *source
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.sources[source.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeNoteSourceRepo) Update(ctx context.Context, id string, patch *transfer.NoteSourcePatch) (*models.NoteSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.sources[id]
	if !exists {
		return nil, nil
	}
	if patch.Content != nil {
		stored.Content = *patch.Content
	}
	if patch.Tags != nil {
		stored.Tags = patch.Tags
	}
	if patch.Visibility != nil {
		stored.Visibility = *patch.Visibility
	}
	if patch.Language != nil {
		stored.Language = *patch.Language
	}
	stored.UpdatedAt = time.Now()
	copied := *stored
	return &copied, nil
}

func (r *fakeNoteSourceRepo) GetByID(ctx context.Context, id string) (*models.NoteSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, exists := r.sources[id]; exists {
		copied := *stored
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeNoteSourceRepo) GetByAccountAndID(ctx context.Context, accountID, id string) (*models.NoteSource, error) {
	source, _ := r.GetByID(ctx, id)
	if source == nil || source.AccountID != accountID {
		return nil, nil
	}
	return source, nil
}

type fakeNoteMediaRepo struct {
	mu    sync.Mutex
	media []*models.NoteMedium
}

func (r *fakeNoteMediaRepo) Create(ctx context.Context, m *models.NoteMedium) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *m
	stored.CreatedAt = time.Now()
	r.media = append(r.media, &stored)
	return nil
}

func (r *fakeNoteMediaRepo) ListBySourceID(ctx context.Context, sourceID string) ([]*models.NoteMedium, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var media []*models.NoteMedium
	for _, m := range r.media {
		if m.SourceID == sourceID {
			copied := *m
			media = append(media, &copied)
		}
	}
	sort.Slice(media, func(i, j int) bool { return media[i].Index < media[j].Index })
	return media, nil
}

func (r *fakeNoteMediaRepo) ListOrphaned(ctx context.Context, olderThan time.Time) ([]*models.NoteMedium, error) {
	return nil, nil
}

func (r *fakeNoteMediaRepo) RemoveByKey(ctx context.Context, key string) error {
	return nil
}

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*models.Post)}
}

func (r *fakePostRepo) Upsert(ctx context.Context, post *models.Post) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, exists := r.posts[post.ID]; exists {
		existing.ContentHTML = post.ContentHTML
		existing.Visibility = post.Visibility
		existing.Language = post.Language
		existing.Updated = post.Updated
		copied := *existing
		return &copied, nil
	}
	stored := *post
	stored.Published = time.Now()
	if stored.Updated.IsZero() {
		stored.Updated = stored.Published
	}
	r.posts[post.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, exists := r.posts[id]; exists {
		copied := *stored
		return &copied, nil
	}
	return nil, nil
}

func (r *fakePostRepo) GetBySourceID(ctx context.Context, sourceID string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.SourceID.Valid && p.SourceID.String == sourceID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakePostRepo) IncrementRepliesCount(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, exists := r.posts[id]; exists {
		stored.RepliesCount++
	}
	return nil
}

func (r *fakePostRepo) ListPublic(ctx context.Context, q *transfer.FeedQuery) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var posts []*models.Post
	for _, p := range r.posts {
		if p.Visibility != models.VisibilityPublic || p.ReplyTargetID.Valid {
			continue
		}
		if q.Filter == transfer.FilterWithoutShares && p.SharedPostID.Valid {
			continue
		}
		if q.Filter == transfer.FilterArticlesOnly && p.Type != models.PostTypeArticle {
			continue
		}
		if !q.Until.IsZero() && p.Published.After(q.Until) {
			continue
		}
		copied := *p
		posts = append(posts, &copied)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].Published.After(posts[j].Published) })
	if len(posts) > q.Window+1 {
		posts = posts[:q.Window+1]
	}
	return posts, nil
}

type fakePostMediaRepo struct {
	mu    sync.Mutex
	media map[string][]*models.PostMedium
}

func newFakePostMediaRepo() *fakePostMediaRepo {
	return &fakePostMediaRepo{media: make(map[string][]*models.PostMedium)}
}

func (r *fakePostMediaRepo) ReplaceForPost(ctx context.Context, postID string, media []*models.PostMedium) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.media[postID] = append([]*models.PostMedium(nil), media...)
	return nil
}

func (r *fakePostMediaRepo) ListByPostID(ctx context.Context, postID string) ([]*models.PostMedium, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.PostMedium(nil), r.media[postID]...), nil
}

type fakeMentionRepo struct {
	mu       sync.Mutex
	mentions map[string][]*models.Mention
}

func newFakeMentionRepo() *fakeMentionRepo {
	return &fakeMentionRepo{mentions: make(map[string][]*models.Mention)}
}

func (r *fakeMentionRepo) ReplaceForPost(ctx context.Context, postID string, mentions []*models.Mention) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mentions[postID] = append([]*models.Mention(nil), mentions...)
	return nil
}

func (r *fakeMentionRepo) ListByPostID(ctx context.Context, postID string) ([]*models.Mention, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Mention(nil), r.mentions[postID]...), nil
}

type fakeTimelineRepo struct {
	mu    sync.Mutex
	items map[string]*models.TimelineItem
}

func newFakeTimelineRepo() *fakeTimelineRepo {
	return &fakeTimelineRepo{items: make(map[string]*models.TimelineItem)}
}

func (r *fakeTimelineRepo) Upsert(ctx context.Context, item *models.TimelineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := item.AccountID + "/" + item.OriginalPostID
	if existing, exists := r.items[key]; exists {
		existing.PostID = item.PostID
		existing.Appended = item.Appended
		existing.LastSharerID = item.LastSharerID
		existing.SharersCount++
		return nil
	}
	stored := *item
	r.items[key] = &stored
	return nil
}

func (r *fakeTimelineRepo) ListForAccount(ctx context.Context, accountID, viewerActorID string, q *transfer.FeedQuery) ([]*models.TimelineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*models.TimelineItem
	for _, item := range r.items {
		if item.AccountID != accountID {
			continue
		}
		cursor := item.Appended
		if q.Filter == transfer.FilterWithoutShares {
			cursor = item.Added
		}
		if !q.Until.IsZero() && cursor.After(q.Until) {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool {
		if q.Filter == transfer.FilterWithoutShares {
			return items[i].Added.After(items[j].Added)
		}
		return items[i].Appended.After(items[j].Appended)
	})
	if len(items) > q.Window+1 {
		items = items[:q.Window+1]
	}
	return items, nil
}

type fakeBlobStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBlobStorage() *fakeBlobStorage {
	return &fakeBlobStorage{objects: make(map[string][]byte)}
}

func (b *fakeBlobStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if b.putErr != nil {
		return b.putErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

func (b *fakeBlobStorage) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

type sentActivity struct {
	SenderActorID string
	Scope         string
	Activity      federation.Activity
	Options       federation.DeliveryOptions
}

type fakeTransport struct {
	mu      sync.Mutex
	sent    []sentActivity
	sendErr error
}

func (t *fakeTransport) Send(ctx context.Context, senderActorID, scope string, activity *federation.Activity, opts federation.DeliveryOptions) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, sentActivity{
		SenderActorID: senderActorID,
		Scope:         scope,
		Activity:      *activity,
		Options:       opts,
	})
	return nil
}

func (t *fakeTransport) lastSent() *sentActivity {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sent) == 0 {
		return nil
	}
	return &t.sent[len(t.sent)-1]
}

func hasSuffixID(activity *federation.Activity, suffix string) bool {
	return strings.HasSuffix(activity.ID, suffix)
}
