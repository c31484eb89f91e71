package service

import (
	"context"

	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/repository"
)

// RecommendService suggests local actors to follow, preferring the
// viewer's locale chain. Scoring beyond the locale match is out of
// this service's hands.
type RecommendService interface {
	Recommend(ctx context.Context, locales []string, viewer *models.Account, limit int) ([]*models.Actor, error)
}

type recommendService struct {
	ar repository.ActorRepository
}

func NewRecommendService(ar repository.ActorRepository) RecommendService {
	return &recommendService{ar: ar}
}

func (s *recommendService) Recommend(ctx context.Context, locales []string, viewer *models.Account, limit int) ([]*models.Actor, error) {
	actors, err := s.ar.ListRecommended(ctx, locales, limit)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return actors, nil
	}

	filtered := actors[:0]
	for _, a := range actors {
		if a.AccountID.Valid && a.AccountID.String == viewer.ID {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered, nil
}
