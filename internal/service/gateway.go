package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/model"
	"github.com/talentbridge/aptitude-backend/internal/repository"
	"github.com/talentbridge/aptitude-backend/internal/store"
)

// PrimaryStore is the durable primary record store. Satisfied by
// repository.ResultRepository; abstracted so the fallback path is
// testable with no primary store present.
type PrimaryStore interface {
	Insert(ctx context.Context, record model.SessionRecord) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.StoredResult, error)
}

// Gateway is the resilient result-persistence gateway: a two-stage
// pipeline where the primary attempt is fully resolved before any
// fallback work begins, and exactly one of the two write paths
// executes per record. Persist never fails; every outcome carries an
// id, with Fallback marking degraded persistence.
type Gateway struct {
	results     PrimaryStore
	attachments *AttachmentStore
	fallback    *store.Fallback
	log         zerolog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(results PrimaryStore, attachments *AttachmentStore, fallback *store.Fallback, log zerolog.Logger) *Gateway {
	return &Gateway{
		results:     results,
		attachments: attachments,
		fallback:    fallback,
		log:         log.With().Str("component", "gateway").Logger(),
	}
}

// Persist durably records a finished session and its optional
// attachment. A primary-store failure of any kind falls through to the
// local store; attachment write failures never invalidate the already
// persisted record.
func (g *Gateway) Persist(ctx context.Context, record model.SessionRecord, attachment *model.Attachment) model.PersistedResult {
	id, err := g.results.Insert(ctx, record)
	if err == nil {
		if attachment != nil {
			if attErr := g.attachments.Save(id.String(), attachment); attErr != nil {
				g.log.Warn().Err(attErr).Str("id", id.String()).Msg("Attachment write failed, record kept")
			}
		}
		return model.PersistedResult{ID: id.String()}
	}

	g.log.Warn().Err(err).Msg("Primary store write failed, using fallback")

	localID := store.NewID()
	if saveErr := g.fallback.SaveRecordAs(localID, record); saveErr != nil {
		// Both stores failed. The contract still resolves to a value;
		// the loss is logged loudly instead of surfaced as an error.
		g.log.Error().Err(saveErr).Str("id", localID).Msg("Fallback write failed, record lost")
	}

	if attachment != nil {
		if attErr := g.fallback.SaveAttachment(localID, attachment); attErr != nil {
			g.log.Warn().Err(attErr).Str("id", localID).Msg("Fallback attachment write failed")
		}
	}

	return model.PersistedResult{ID: localID, Fallback: true}
}

// Lookup resolves a result id from whichever store issued it. Fallback
// ids are recognized by their lexical shape.
func (g *Gateway) Lookup(ctx context.Context, id string) (*model.StoredResult, error) {
	if store.IsFallbackID(id) {
		return g.fallback.GetRecord(id)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return g.results.GetByID(ctx, parsed)
}
