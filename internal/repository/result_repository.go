package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/talentbridge/aptitude-backend/internal/database"
	"github.com/talentbridge/aptitude-backend/internal/model"
)

// ErrNotFound is returned when no result row exists for an id.
var ErrNotFound = errors.New("result not found")

// ResultRepository handles aptitude result data access against the
// primary store. It goes through the lazy pool, so every call may
// re-probe a previously unavailable server.
type ResultRepository struct {
	db *database.LazyPool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(db *database.LazyPool) *ResultRepository {
	return &ResultRepository{db: db}
}

// Insert writes a finished session record and returns the issued id.
func (r *ResultRepository) Insert(ctx context.Context, record model.SessionRecord) (uuid.UUID, error) {
	pool, err := r.db.Acquire(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("acquire pool: %w", err)
	}

	answers, err := json.Marshal(record.Answers)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode answers: %w", err)
	}
	meta, err := json.Marshal(record.Meta)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode meta: %w", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO aptitude_results (score, batch, violation, answers, meta)
		 VALUES ($1, $2, $3, $4::jsonb, $5::jsonb)
		 RETURNING id`,
		record.Score, record.Batch, record.Violation, answers, meta,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert result: %w", err)
	}
	return id, nil
}

// GetByID retrieves a stored result by its primary id.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.StoredResult, error) {
	pool, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire pool: %w", err)
	}

	var (
		out     model.StoredResult
		answers []byte
		meta    []byte
	)
	err = pool.QueryRow(ctx,
		`SELECT id, score, batch, violation, answers, meta, created_at
		 FROM aptitude_results
		 WHERE id = $1`, id,
	).Scan(&id, &out.Record.Score, &out.Record.Batch, &out.Record.Violation, &answers, &meta, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select result: %w", err)
	}

	if err := json.Unmarshal(answers, &out.Record.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if err := json.Unmarshal(meta, &out.Record.Meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}

	out.ID = id.String()
	return &out, nil
}
