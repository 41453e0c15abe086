package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/talentbridge/aptitude-backend/internal/database"
	"github.com/talentbridge/aptitude-backend/internal/model"
)

// ViolationRepository persists the proctoring audit trail.
type ViolationRepository struct {
	db *database.LazyPool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(db *database.LazyPool) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// BulkInsert writes a batch of violation events with COPY.
func (r *ViolationRepository) BulkInsert(ctx context.Context, events []*model.ViolationEvent) error {
	pool, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire pool: %w", err)
	}

	rows := make([][]interface{}, 0, len(events))
	for _, ev := range events {
		sessionID, err := uuid.Parse(ev.SessionID)
		if err != nil {
			// Return error to trigger the row-by-row fallback, which
			// handles the bad id individually.
			return err
		}
		rows = append(rows, []interface{}{
			sessionID, ev.Kind, ev.Message, time.Unix(ev.Timestamp, 0),
		})
	}

	_, err = pool.CopyFrom(
		ctx,
		pgx.Identifier{"violation_events"},
		[]string{"session_id", "kind", "message", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single violation event.
func (r *ViolationRepository) Insert(ctx context.Context, ev *model.ViolationEvent) error {
	pool, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire pool: %w", err)
	}

	sessionID, err := uuid.Parse(ev.SessionID)
	if err != nil {
		return fmt.Errorf("parse session id: %w", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO violation_events (session_id, kind, message, recorded_at)
		 VALUES ($1, $2, $3, $4)`,
		sessionID, ev.Kind, ev.Message, time.Unix(ev.Timestamp, 0),
	)
	return err
}
