package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/config"
)

// PoolState is the lifecycle state of the lazy PostgreSQL pool.
type PoolState int32

const (
	PoolUninitialized PoolState = iota
	PoolConnected
	PoolUnavailable
)

func (s PoolState) String() string {
	switch s {
	case PoolConnected:
		return "CONNECTED"
	case PoolUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNINITIALIZED"
	}
}

// LazyPool is a process-wide PostgreSQL pool with lazy, retrying
// initialization. A failed connection attempt is never cached as
// permanent: every Acquire may re-probe, since the outage may be
// transient. Initialization failure degrades to "no primary store"
// instead of crashing the process.
type LazyPool struct {
	cfg *config.Config
	log zerolog.Logger

	mu    sync.Mutex
	pool  *pgxpool.Pool
	state PoolState
}

// NewLazyPool creates the pool wrapper without connecting.
func NewLazyPool(cfg *config.Config, log zerolog.Logger) *LazyPool {
	return &LazyPool{
		cfg:   cfg,
		log:   log.With().Str("component", "postgres").Logger(),
		state: PoolUninitialized,
	}
}

// Acquire returns a live pool, connecting on first use. On failure it
// returns an error and leaves the pool re-probeable.
func (p *LazyPool) Acquire(ctx context.Context) (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool != nil {
		return p.pool, nil
	}

	pool, err := p.connect(ctx)
	if err != nil {
		p.state = PoolUnavailable
		return nil, err
	}

	p.pool = pool
	p.state = PoolConnected
	return pool, nil
}

func (p *LazyPool) connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(p.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = p.cfg.MaxDBConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p.log.Info().
		Int32("max_conns", p.cfg.MaxDBConns).
		Msg("PostgreSQL connected")

	return pool, nil
}

// State reports the pool's current state.
func (p *LazyPool) State() PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close releases the underlying pool, if any.
func (p *LazyPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}
