package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/quillpub/quillpub/internal/repository"
	"github.com/quillpub/quillpub/internal/service"
)

// MediaSweepJob reaps media rows and blobs left behind when a publish
// ingested attachments but the source insert never landed. Only rows
// older than an hour are touched, so a publish still in flight is
// never swept out from under itself.
type MediaSweepJob struct {
	nm   repository.NoteMediaRepository
	blob service.BlobStorage
}

func NewMediaSweepJob(nm repository.NoteMediaRepository, blob service.BlobStorage) *MediaSweepJob {
	return &MediaSweepJob{nm: nm, blob: blob}
}

func (c *MediaSweepJob) Sweep() {
	ctx := context.Background()

	orphans, err := c.nm.ListOrphaned(ctx, time.Now().Add(-1*time.Hour))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, orphan := range orphans {
		if err := c.blob.Delete(ctx, orphan.Key); err != nil {
			slog.Info("Unable to delete orphaned blob", "key", orphan.Key)
			continue
		}
		if err := c.nm.RemoveByKey(ctx, orphan.Key); err != nil {
			slog.Info("Unable to remove orphaned media row", "key", orphan.Key)
		}
	}

	if len(orphans) > 0 {
		slog.Info("Swept orphaned media", "count", len(orphans))
	}
}
