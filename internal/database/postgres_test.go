package database

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentbridge/aptitude-backend/internal/config"
)

func TestLazyPoolStartsUninitialized(t *testing.T) {
	p := NewLazyPool(&config.Config{DatabaseURL: "postgres://localhost/x"}, zerolog.Nop())
	assert.Equal(t, PoolUninitialized, p.State())
}

func TestLazyPoolFailureIsNotCached(t *testing.T) {
	p := NewLazyPool(&config.Config{DatabaseURL: "not a url"}, zerolog.Nop())

	_, err := p.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, PoolUnavailable, p.State())

	// The failure must not be terminal: a later Acquire probes again
	// instead of replaying a cached error or panicking.
	_, err = p.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, PoolUnavailable, p.State())
}

func TestPoolStateString(t *testing.T) {
	assert.Equal(t, "UNINITIALIZED", PoolUninitialized.String())
	assert.Equal(t, "CONNECTED", PoolConnected.String())
	assert.Equal(t, "UNAVAILABLE", PoolUnavailable.String())
}
