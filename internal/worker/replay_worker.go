package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/model"
	"github.com/talentbridge/aptitude-backend/internal/service"
	"github.com/talentbridge/aptitude-backend/internal/store"
)

// ReplayInterval is how often the fallback store is scanned for
// records to promote into the primary store.
const ReplayInterval = 1 * time.Minute

// ResultInserter is the primary-store write surface the replay needs.
// Satisfied by *repository.ResultRepository.
type ResultInserter interface {
	Insert(ctx context.Context, record model.SessionRecord) (uuid.UUID, error)
}

// ReplayWorker drains the local fallback store once the primary store
// comes back: each local record is re-inserted, its resume moved under
// the new primary id, and the local copy removed. A record is deleted
// locally only after its primary insert succeeded.
type ReplayWorker struct {
	results     ResultInserter
	attachments *service.AttachmentStore
	fallback    *store.Fallback
	interval    time.Duration
	log         zerolog.Logger
}

// NewReplayWorker creates a new ReplayWorker.
func NewReplayWorker(results ResultInserter, attachments *service.AttachmentStore, fallback *store.Fallback, log zerolog.Logger) *ReplayWorker {
	return &ReplayWorker{
		results:     results,
		attachments: attachments,
		fallback:    fallback,
		interval:    ReplayInterval,
		log:         log.With().Str("component", "replay_worker").Logger(),
	}
}

func (w *ReplayWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ReplayWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ReplayWorker stopping")
			return
		case <-ticker.C:
			w.replayAll(ctx)
		}
	}
}

// replayAll promotes every local record it can. The first failed
// insert aborts the pass; the primary is likely still down and the
// remaining records will be retried on the next tick.
func (w *ReplayWorker) replayAll(ctx context.Context) {
	ids, err := w.fallback.ListIDs()
	if err != nil {
		w.log.Error().Err(err).Msg("Fallback scan failed")
		return
	}
	if len(ids) == 0 {
		return
	}

	w.log.Info().Int("count", len(ids)).Msg("Replaying fallback records")

	for _, id := range ids {
		if err := w.replayOne(ctx, id); err != nil {
			w.log.Warn().Err(err).Str("id", id).Msg("Replay failed, will retry next tick")
			return
		}
	}
}

func (w *ReplayWorker) replayOne(ctx context.Context, localID string) error {
	stored, err := w.fallback.GetRecord(localID)
	if err != nil {
		return err
	}

	newID, err := w.results.Insert(ctx, stored.Record)
	if err != nil {
		return err
	}

	w.moveAttachments(localID, newID.String())

	if err := w.fallback.Remove(localID); err != nil {
		// The record now exists in both stores; removal is retried on
		// the next tick and the duplicate local copy is harmless.
		w.log.Warn().Err(err).Str("id", localID).Msg("Local cleanup failed")
	}

	w.log.Info().Str("local_id", localID).Str("id", newID.String()).Msg("Fallback record promoted")
	return nil
}

// moveAttachments rebinds local resume files to the new primary id.
// Attachment loss never rolls back the promoted record.
func (w *ReplayWorker) moveAttachments(localID, newID string) {
	paths, err := w.fallback.Attachments(localID)
	if err != nil {
		w.log.Warn().Err(err).Str("id", localID).Msg("Attachment scan failed")
		return
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("Attachment read failed")
			continue
		}

		name := strings.TrimPrefix(filepath.Base(path), localID+"_")
		if err := w.attachments.Save(newID, &model.Attachment{Name: name, Data: data}); err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("Attachment promote failed")
			continue
		}

		if err := os.Remove(path); err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("Attachment cleanup failed")
		}
	}
}
