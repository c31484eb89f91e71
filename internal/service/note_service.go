package service

import (
	"context"

	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/repository"
)

type NoteService interface {
	GetNoteSource(ctx context.Context, username, id string, viewer *models.Account) (*models.NoteSourceDetail, error)
}

type noteService struct {
	acc    repository.AccountRepository
	ar     repository.ActorRepository
	fr     repository.FollowRepository
	ns     repository.NoteSourceRepository
	nm     repository.NoteMediaRepository
	pr     repository.PostRepository
	loader *PostLoader
}

func NewNoteService(
	acc repository.AccountRepository,
	ar repository.ActorRepository,
	fr repository.FollowRepository,
	ns repository.NoteSourceRepository,
	nm repository.NoteMediaRepository,
	pr repository.PostRepository,
	loader *PostLoader) NoteService {
	return &noteService{acc: acc, ar: ar, fr: fr, ns: ns, nm: nm, pr: pr, loader: loader}
}

// GetNoteSource resolves the owning account by username — tolerating a
// rename via the old-username fallback — and loads the source with its
// media and published projection. Any resolution miss, including a
// post the viewer may not see, comes back as (nil, nil).
func (s *noteService) GetNoteSource(ctx context.Context, username, id string, viewer *models.Account) (*models.NoteSourceDetail, error) {
	account, err := s.acc.GetByUsername(ctx, username)
	if err != nil || account == nil {
		return nil, err
	}

	source, err := s.ns.GetByAccountAndID(ctx, account.ID, id)
	if err != nil || source == nil {
		return nil, err
	}

	media, err := s.nm.ListBySourceID(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	detail := &models.NoteSourceDetail{NoteSource: *source, Account: *account}
	for _, m := range media {
		detail.Media = append(detail.Media, *m)
	}

	post, err := s.pr.GetBySourceID(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	if post != nil {
		detail.Post, err = s.loader.Hydrate(ctx, post, 1)
		if err != nil {
			return nil, err
		}
	}

	if viewer == nil || viewer.ID != account.ID {
		if detail.Post == nil {
			return nil, nil
		}
		viewerActorID, follows, err := s.viewerContext(ctx, viewer)
		if err != nil {
			return nil, err
		}
		if !detail.Post.VisibleTo(viewerActorID, follows) {
			return nil, nil
		}
	}

	return detail, nil
}

func (s *noteService) viewerContext(ctx context.Context, viewer *models.Account) (string, map[string]bool, error) {
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
