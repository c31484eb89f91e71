package markup

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/repository"
)

// MentionResolver turns rendered HTML into the set of actors it
// mentions. Remote handles resolve only if the actor is already known
// locally; discovery of unseen actors is the inbox side's business.
type MentionResolver interface {
	Resolve(ctx context.Context, renderedHTML string) ([]*models.Actor, error)
}

var handlePattern = regexp.MustCompile(`@([a-zA-Z0-9_]+)(?:@([a-zA-Z0-9.-]+))?`)

type mentionResolver struct {
	ar repository.ActorRepository
}

func NewMentionResolver(ar repository.ActorRepository) MentionResolver {
	return &mentionResolver{ar: ar}
}

func (r *mentionResolver) Resolve(ctx context.Context, renderedHTML string) ([]*models.Actor, error) {
	matches := handlePattern.FindAllStringSubmatch(renderedHTML, -1)

	seen := make(map[string]bool)
	var actors []*models.Actor
	for _, match := range matches {
		username, host := match[1], match[2]
		key := username + "@" + host
		if seen[key] {
			continue
		}
		seen[key] = true

		actor, err := r.ar.GetByHandle(ctx, username, host)
		if err != nil {
			return nil, err
		}
		if actor == nil {
			slog.Info("mentioned handle not known", "username", username, "host", host)
			continue
		}
		actors = append(actors, actor)
	}
	return actors, nil
}
