package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	d, err := s.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "memory", d.Backend)
}

func TestOpen_Redis(t *testing.T) {
	_, server := newTestRedis(t)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisAddr = server.Addr()

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Insert(context.Background(), "k", []byte(`{}`), 0))
	assert.True(t, server.Exists("k"))
}

func TestOpen_RedisUnreachable(t *testing.T) {
	_, server := newTestRedis(t)
	addr := server.Addr()
	server.Close()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisAddr = addr
	cfg.StoreTimeout = 500 * time.Millisecond

	_, err := Open(context.Background(), cfg)
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := &config.Config{StoreBackend: "couch"}

	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}
