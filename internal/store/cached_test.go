package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/models"
)

func newTestCached(t *testing.T) (*Cached, *Memory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mem := NewMemory()
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	return NewCached(mem, client, time.Minute, logger), mem, mr
}

func TestCachedReadThrough(t *testing.T) {
	ctx := context.Background()
	cached, mem, mr := newTestCached(t)

	token := &models.Token{Address: "0x0a", Symbol: "USDC", Decimals: 6}
	require.NoError(t, mem.Save(ctx, token))

	loaded := &models.Token{Address: "0x0a"}
	found, err := cached.Load(ctx, loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "USDC", loaded.Symbol)

	// backing-store hit should have populated the cache
	assert.True(t, mr.Exists(EntityCacheKey(models.KindToken, "0x0a")))

	// a cached read no longer touches the backing store
	mem.Restore(map[string][]byte{})
	again := &models.Token{Address: "0x0a"}
	found, err = cached.Load(ctx, again)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "USDC", again.Symbol)
}

func TestCachedSaveWritesThrough(t *testing.T) {
	ctx := context.Background()
	cached, mem, mr := newTestCached(t)

	token := &models.Token{Address: "0x0b", Symbol: "DAI", Decimals: 18}
	require.NoError(t, cached.Save(ctx, token))

	// both the backing store and the cache hold the entity
	stored := &models.Token{Address: "0x0b"}
	found, err := mem.Load(ctx, stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "DAI", stored.Symbol)
	assert.True(t, mr.Exists(EntityCacheKey(models.KindToken, "0x0b")))
}

func TestCachedMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	cached, _, _ := newTestCached(t)

	found, err := cached.Load(ctx, &models.Token{Address: "0x0c"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCachedSurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	cached, mem, mr := newTestCached(t)

	token := &models.Token{Address: "0x0d", Symbol: "WBTC", Decimals: 8}
	require.NoError(t, mem.Save(ctx, token))

	mr.Close()

	loaded := &models.Token{Address: "0x0d"}
	found, err := cached.Load(ctx, loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "WBTC", loaded.Symbol)
}
