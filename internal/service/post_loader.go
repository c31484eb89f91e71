package service

import (
	"context"

	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/repository"
)

// PostLoader hydrates posts into the fixed, depth-bounded relation
// shape the feed and federation layers consume: actor, media and
// mentions always; reply target and shared post one level deep, each
// without their own nested targets.
type PostLoader struct {
	pr repository.PostRepository
	ar repository.ActorRepository
	pm repository.PostMediaRepository
	mr repository.MentionRepository
}

func NewPostLoader(
	pr repository.PostRepository,
	ar repository.ActorRepository,
	pm repository.PostMediaRepository,
	mr repository.MentionRepository) *PostLoader {
	return &PostLoader{pr: pr, ar: ar, pm: pm, mr: mr}
}

func (l *PostLoader) Load(ctx context.Context, id string) (*models.PostDetail, error) {
	post, err := l.pr.GetByID(ctx, id)
	if err != nil || post == nil {
		return nil, err
	}
	return l.Hydrate(ctx, post, 1)
}

func (l *PostLoader) Hydrate(ctx context.Context, post *models.Post, depth int) (*models.PostDetail, error) {
	actor, err := l.ar.GetByID(ctx, post.ActorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, nil
	}

	detail := &models.PostDetail{Post: *post, Actor: *actor}

	media, err := l.pm.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range media {
		detail.Media = append(detail.Media, *m)
	}

	mentions, err := l.mr.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range mentions {
		detail.Mentions = append(detail.Mentions, *m)
	}

	if depth > 0 {
		if post.ReplyTargetID.Valid {
			target, err := l.pr.GetByID(ctx, post.ReplyTargetID.String)
			if err != nil {
				return nil, err
			}
			if target != nil {
				detail.ReplyTarget, err = l.Hydrate(ctx, target, depth-1)
				if err != nil {
					return nil, err
				}
			}
		}
		if post.SharedPostID.Valid {
			shared, err := l.pr.GetByID(ctx, post.SharedPostID.String)
			if err != nil {
				return nil, err
			}
			if shared != nil {
				detail.SharedPost, err = l.Hydrate(ctx, shared, depth-1)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	return detail, nil
}
