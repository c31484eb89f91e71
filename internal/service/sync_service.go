package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillpub/quillpub/internal/federation"
	"github.com/quillpub/quillpub/internal/markup"
	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/repository"
	"github.com/quillpub/quillpub/internal/transfer"
	"github.com/quillpub/quillpub/pkg/utils"
)

// SyncService keeps the published post — media copies, mentions,
// counters, timelines — consistent with the authoring-time source, and
// triggers outbound dispatch once per logical change.
type SyncService interface {
	PublishNew(ctx context.Context, source *models.NoteSource, media []transfer.MediaUpload, replyTarget *models.Post) (*models.PostDetail, error)
	PublishUpdate(ctx context.Context, sourceID string, patch *transfer.NoteSourcePatch) (*models.PostDetail, error)
}

type syncService struct {
	origin     string
	acc        repository.AccountRepository
	ar         repository.ActorRepository
	fr         repository.FollowRepository
	ns         repository.NoteSourceRepository
	nm         repository.NoteMediaRepository
	pr         repository.PostRepository
	pm         repository.PostMediaRepository
	mr         repository.MentionRepository
	tl         repository.TimelineRepository
	media      MediaService
	mentions   markup.MentionResolver
	builder    *federation.ObjectBuilder
	dispatcher *federation.Dispatcher
	loader     *PostLoader
}

func NewSyncService(
	origin string,
	acc repository.AccountRepository,
	ar repository.ActorRepository,
	fr repository.FollowRepository,
	ns repository.NoteSourceRepository,
	nm repository.NoteMediaRepository,
	pr repository.PostRepository,
	pm repository.PostMediaRepository,
	mr repository.MentionRepository,
	tl repository.TimelineRepository,
	media MediaService,
	mentions markup.MentionResolver,
	builder *federation.ObjectBuilder,
	dispatcher *federation.Dispatcher,
	loader *PostLoader) SyncService {
	return &syncService{
		origin:     origin,
		acc:        acc,
		ar:         ar,
		fr:         fr,
		ns:         ns,
		nm:         nm,
		pr:         pr,
		pm:         pm,
		mr:         mr,
		tl:         tl,
		media:      media,
		mentions:   mentions,
		builder:    builder,
		dispatcher: dispatcher,
		loader:     loader,
	}
}

var visibilityRank = map[string]int{
	models.VisibilityDirect:    0,
	models.VisibilityFollowers: 1,
	models.VisibilityUnlisted:  2,
	models.VisibilityPublic:    3,
}

// clampVisibility keeps a reply from being broader than its target.
func clampVisibility(visibility string, replyTarget *models.Post) string {
	if replyTarget == nil {
		return visibility
	}
	if visibilityRank[visibility] > visibilityRank[replyTarget.Visibility] {
		return replyTarget.Visibility
	}
	return visibility
}

// PublishNew inserts the source and projects it into a post. A failed
// source insert aborts everything: no post, no counter change, no
// dispatch. A duplicate identifier is an idempotent no-op and returns
// (nil, nil). Individual attachment failures are skipped, so the
// published post can carry fewer attachments than were uploaded.
// Returns the hydrated post; a dispatch failure is returned alongside
// it, never rolled back.
func (s *syncService) PublishNew(ctx context.Context, source *models.NoteSource, media []transfer.MediaUpload, replyTarget *models.Post) (*models.PostDetail, error) {
	if source.ID == "" {
		id, err := utils.NewID()
		if err != nil {
			return nil, err
		}
		source.ID = id
	}

	created, err := s.ns.Create(ctx, source)
	if err != nil || created == nil {
		return nil, err
	}

	var ingested []*models.NoteMedium
	for i, upload := range media {
		medium, err := s.media.Ingest(ctx, created.ID, i, upload.Blob, upload.Alt)
		if err != nil {
			if !errors.Is(err, ErrUnprocessableMedia) {
				slog.Info(err.Error())
			}
			slog.Info("skipping attachment", "source_id", created.ID, "index", i)
			continue
		}
		ingested = append(ingested, medium)
	}

	account, err := s.acc.GetByID(ctx, created.AccountID)
	if err != nil || account == nil {
		return nil, err
	}
	actor, err := s.ar.GetByAccountID(ctx, account.ID)
	if err != nil || actor == nil {
		return nil, err
	}

	post := &models.Post{
		ID:          created.ID,
		ActorID:     actor.ID,
		SourceID:    sql.NullString{String: created.ID, Valid: true},
		Type:        models.PostTypeNote,
		Visibility:  clampVisibility(created.Visibility, replyTarget),
		Language:    created.Language,
		IRI:         fmt.Sprintf("%s/@%s/%s", s.origin, account.Username, created.ID),
		Updated:     created.UpdatedAt,
	}
	if replyTarget != nil {
		post.ReplyTargetID = sql.NullString{String: replyTarget.ID, Valid: true}
	}

	detail, err := s.project(ctx, post, actor, created.Content, ingested)
	if err != nil {
		return nil, err
	}

	// Reply counters move on creation only; edits never touch them.
	if replyTarget != nil {
		if err := s.pr.IncrementRepliesCount(ctx, replyTarget.ID); err != nil {
			return nil, err
		}
		target, err := s.pr.GetByID(ctx, replyTarget.ID)
		if err != nil {
			return nil, err
		}
		if target != nil {
			detail.ReplyTarget, err = s.loader.Hydrate(ctx, target, 0)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := s.fanOut(ctx, account.ID, actor.ID, &detail.Post); err != nil {
		return nil, err
	}

	var replyTargetIRI string
	if detail.ReplyTarget != nil {
		replyTargetIRI = detail.ReplyTarget.IRI
	}
	obj := s.builder.BuildNote(detail, replyTargetIRI)
	if err := s.dispatcher.DispatchCreate(ctx, actor.ID, obj); err != nil {
		return detail, err
	}

	return detail, nil
}

// PublishUpdate re-projects an already-published source in place: same
// post identifier, same IRI. Updating a source that never published
// is a lookup miss, so a creation envelope always precedes any update
// envelope for a given post.
func (s *syncService) PublishUpdate(ctx context.Context, sourceID string, patch *transfer.NoteSourcePatch) (*models.PostDetail, error) {
	updated, err := s.ns.Update(ctx, sourceID, patch)
	if err != nil || updated == nil {
		return nil, err
	}

	existing, err := s.pr.GetBySourceID(ctx, sourceID)
	if err != nil || existing == nil {
		return nil, err
	}

	account, err := s.acc.GetByID(ctx, updated.AccountID)
	if err != nil || account == nil {
		return nil, err
	}
	actor, err := s.ar.GetByAccountID(ctx, account.ID)
	if err != nil || actor == nil {
		return nil, err
	}

	media, err := s.nm.ListBySourceID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	var replyTarget *models.Post
	if existing.ReplyTargetID.Valid {
		replyTarget, err = s.pr.GetByID(ctx, existing.ReplyTargetID.String)
		if err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		ID:            existing.ID,
		ActorID:       existing.ActorID,
		SourceID:      existing.SourceID,
		Type:          existing.Type,
		Visibility:    clampVisibility(updated.Visibility, replyTarget),
		Language:      updated.Language,
		IRI:           existing.IRI,
		ReplyTargetID: existing.ReplyTargetID,
		SharedPostID:  existing.SharedPostID,
		Updated:       updated.UpdatedAt,
	}

	detail, err := s.project(ctx, post, actor, updated.Content, media)
	if err != nil {
		return nil, err
	}

	// Resolved now rather than cached: the target may have moved since
	// the reply was created.
	var replyTargetIRI string
	if replyTarget != nil {
		replyTargetIRI = replyTarget.IRI
		detail.ReplyTarget, err = s.loader.Hydrate(ctx, replyTarget, 0)
		if err != nil {
			return nil, err
		}
	}

	obj := s.builder.BuildNote(detail, replyTargetIRI)
	if err := s.dispatcher.DispatchUpdate(ctx, actor.ID, obj, detail.Updated); err != nil {
		return detail, err
	}

	return detail, nil
}

// project renders the source content, stores the post row, and
// overwrites the derived media copies and the mention set wholesale.
func (s *syncService) project(ctx context.Context, post *models.Post, actor *models.Actor, content string, media []*models.NoteMedium) (*models.PostDetail, error) {
	html, err := markup.Render(content)
	if err != nil {
		return nil, err
	}
	post.ContentHTML = html

	stored, err := s.pr.Upsert(ctx, post)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.New("post projection stored no row")
	}

	copies := make([]*models.PostMedium, 0, len(media))
	for _, m := range media {
		copies = append(copies, &models.PostMedium{
			PostID: stored.ID,
			Index:  m.Index,
			Key:    m.Key,
			Alt:    m.Alt,
			Width:  m.Width,
			Height: m.Height,
		})
	}
	if err := s.pm.ReplaceForPost(ctx, stored.ID, copies); err != nil {
		return nil, err
	}

	mentionedActors, err := s.mentions.Resolve(ctx, html)
	if err != nil {
		return nil, err
	}
	mentions := make([]*models.Mention, 0, len(mentionedActors))
	for _, a := range mentionedActors {
		mentions = append(mentions, &models.Mention{
			PostID:   stored.ID,
			ActorID:  a.ID,
			ActorIRI: a.IRI,
			Handle:   a.Handle(),
		})
	}
	if err := s.mr.ReplaceForPost(ctx, stored.ID, mentions); err != nil {
		return nil, err
	}

	detail := &models.PostDetail{Post: *stored, Actor: *actor}
	for _, c := range copies {
		detail.Media = append(detail.Media, *c)
	}
	for _, m := range mentions {
		detail.Mentions = append(detail.Mentions, *m)
	}
	return detail, nil
}

// fanOut materializes one timeline row per local follower, plus the
// author's own timeline. Anonymous viewers never get rows; they read
// the posts table directly.
func (s *syncService) fanOut(ctx context.Context, authorAccountID, actorID string, post *models.Post) error {
	now := time.Now()
	item := &models.TimelineItem{
		PostID:         post.ID,
		OriginalPostID: post.ID,
		Added:          now,
		Appended:       now,
	}
	if post.SharedPostID.Valid {
		item.OriginalPostID = post.SharedPostID.String
		item.LastSharerID = sql.NullString{String: actorID, Valid: true}
		item.SharersCount = 1
	}

	item.AccountID = authorAccountID
	if err := s.tl.Upsert(ctx, item); err != nil {
		return err
	}

	followers, err := s.fr.ListFollowers(ctx, actorID)
	if err != nil {
		return err
	}
	for _, follower := range followers {
		if !follower.IsLocal() {
			continue
		}
		entry := *item
		entry.AccountID = follower.AccountID.String
		if err := s.tl.Upsert(ctx, &entry); err != nil {
			return err
		}
	}
	return nil
}
