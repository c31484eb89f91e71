package service

import (
	"context"
	"time"

	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/repository"
	"github.com/quillpub/quillpub/internal/transfer"
)

const DefaultFeedWindow = 50

// FeedPage is one window of a timeline plus the cursor for the next
// one. Recommended is populated when the feed runs dry or the
// recommendations mode was requested.
type FeedPage struct {
	Entries     []*models.FeedEntry `json:"entries"`
	Next        *time.Time          `json:"next,omitempty"`
	Recommended []*models.Actor     `json:"recommended,omitempty"`
}

type FeedService interface {
	Timeline(ctx context.Context, viewer *models.Account, q *transfer.FeedQuery) (*FeedPage, error)
}

type feedService struct {
	pr        repository.PostRepository
	tr        repository.TimelineRepository
	ar        repository.ActorRepository
	fr        repository.FollowRepository
	loader    *PostLoader
	recommend RecommendService
}

func NewFeedService(
	pr repository.PostRepository,
	tr repository.TimelineRepository,
	ar repository.ActorRepository,
	fr repository.FollowRepository,
	loader *PostLoader,
	recommend RecommendService) FeedService {
	return &feedService{pr: pr, tr: tr, ar: ar, fr: fr, loader: loader, recommend: recommend}
}

// Timeline picks the strategy per request: anonymous viewers get the
// fan-in query over posts, signed-in viewers get their materialized
// fan-out timeline. Both fetch window+1 rows so the presence of a next
// page needs no extra query, and both re-check visibility on every
// returned row even though the queries already filter on it.
func (s *feedService) Timeline(ctx context.Context, viewer *models.Account, q *transfer.FeedQuery) (*FeedPage, error) {
	if q.Window <= 0 {
		q.Window = DefaultFeedWindow
	}

	var (
		entries []*models.FeedEntry
		cursors []time.Time
		err     error
	)
	if viewer == nil {
		entries, cursors, err = s.fanIn(ctx, q)
	} else if q.Filter != transfer.FilterRecommendations {
		entries, cursors, err = s.fanOut(ctx, viewer, q)
	}
	if err != nil {
		return nil, err
	}

	page := &FeedPage{}
	if len(entries) > q.Window {
		next := cursors[q.Window]
		page.Next = &next
		entries = entries[:q.Window]
	}

	viewerActorID, follows, err := s.viewerContext(ctx, viewer)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Post != nil && entry.Post.VisibleTo(viewerActorID, follows) {
			page.Entries = append(page.Entries, entry)
		}
	}

	if page.Next == nil || q.Filter == transfer.FilterRecommendations {
		page.Recommended, err = s.recommend.Recommend(ctx, q.Languages, viewer, DefaultFeedWindow)
		if err != nil {
			return nil, err
		}
	}

	return page, nil
}

func (s *feedService) fanIn(ctx context.Context, q *transfer.FeedQuery) ([]*models.FeedEntry, []time.Time, error) {
	posts, err := s.pr.ListPublic(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	var entries []*models.FeedEntry
	var cursors []time.Time
	for _, post := range posts {
		detail, err := s.loader.Hydrate(ctx, post, 1)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, &models.FeedEntry{Post: detail, Added: post.Published})
		cursors = append(cursors, post.Published)
	}
	return entries, cursors, nil
}

func (s *feedService) fanOut(ctx context.Context, viewer *models.Account, q *transfer.FeedQuery) ([]*models.FeedEntry, []time.Time, error) {
	actor, err := s.ar.GetByAccountID(ctx, viewer.ID)
	if err != nil {
		return nil, nil, err
	}
	var viewerActorID string
	if actor != nil {
		viewerActorID = actor.ID
	}

	items, err := s.tr.ListForAccount(ctx, viewer.ID, viewerActorID, q)
	if err != nil {
		return nil, nil, err
	}

	var entries []*models.FeedEntry
	var cursors []time.Time
	for _, item := range items {
		detail, err := s.loader.Load(ctx, item.PostID)
		if err != nil {
			return nil, nil, err
		}
		if detail == nil {
			continue
		}

		entry := &models.FeedEntry{Post: detail, Added: item.Added, SharersCount: item.SharersCount}
		if q.Filter != transfer.FilterWithoutShares && item.LastSharerID.Valid {
			entry.LastSharer, err = s.ar.GetByID(ctx, item.LastSharerID.String)
			if err != nil {
				return nil, nil, err
			}
		}
		entries = append(entries, entry)

		cursor := item.Appended
		if q.Filter == transfer.FilterWithoutShares {
			cursor = item.Added
		}
		cursors = append(cursors, cursor)
	}
	return entries, cursors, nil
}

func (s *feedService) viewerContext(ctx context.Context, viewer *models.Account) (string, map[string]bool, error) {
	if viewer == nil {
		return "", nil, nil
	}
	actor, err := s.ar.GetByAccountID(ctx, viewer.ID)
	if err != nil || actor == nil {
		return "", nil, err
	}
	followeeIDs, err := s.fr.ListFolloweeIDs(ctx, actor.ID)
	if err != nil {
		return "", nil, err
	}
	follows := make(map[string]bool, len(followeeIDs))
	for _, id := range followeeIDs {
		follows[id] = true
	}
	return actor.ID, follows, nil
}
