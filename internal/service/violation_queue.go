package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/config"
	"github.com/talentbridge/aptitude-backend/internal/model"
)

// ViolationQueue feeds the proctoring audit trail: events are pushed
// to Redis and drained by the violation worker. Enqueue is best-effort;
// a queue outage never blocks session termination.
type ViolationQueue struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewViolationQueue creates a ViolationQueue.
func NewViolationQueue(rdb *redis.Client, log zerolog.Logger) *ViolationQueue {
	return &ViolationQueue{
		rdb: rdb,
		log: log.With().Str("component", "violation_queue").Logger(),
	}
}

// Enqueue pushes one violation event onto the persistence queue.
func (q *ViolationQueue) Enqueue(ctx context.Context, event model.ViolationEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		q.log.Error().Err(err).Msg("Encode violation event")
		return
	}

	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data).Err(); err != nil {
		q.log.Error().Err(err).Str("session_id", event.SessionID).Msg("Queue violation event failed")
	}
}
