package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/types"
)

func TestMemoryLoadSave(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	token := &models.Token{
		Address:  "0xabc0000000000000000000000000000000000001",
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
		Decimals: 18,
		Tail:     types.TailShort,
		PriceUSD: decimal.RequireFromString("1850.25"),
	}

	found, err := mem.Load(ctx, &models.Token{Address: token.Address})
	require.NoError(t, err)
	assert.False(t, found, "token should not exist before save")

	require.NoError(t, mem.Save(ctx, token))

	loaded := &models.Token{Address: token.Address}
	found, err = mem.Load(ctx, loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "WETH", loaded.Symbol)
	assert.True(t, loaded.PriceUSD.Equal(decimal.RequireFromString("1850.25")))

	// loaded copies are independent of the stored record
	loaded.Symbol = "MUTATED"
	again := &models.Token{Address: token.Address}
	_, err = mem.Load(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, "WETH", again.Symbol)
}

func TestMemoryKindsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	addr := "0xabc0000000000000000000000000000000000001"
	require.NoError(t, mem.Save(ctx, &models.Token{Address: addr, Symbol: "TKN"}))
	require.NoError(t, mem.Save(ctx, &models.Pool{Address: addr, TxCount: 7}))

	token := &models.Token{Address: addr}
	found, err := mem.Load(ctx, token)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "TKN", token.Symbol)

	pool := &models.Pool{Address: addr}
	found, err = mem.Load(ctx, pool)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7), pool.TxCount)
}

func TestMemorySnapshotRestore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	require.NoError(t, mem.Save(ctx, &models.Token{Address: "0x01", Symbol: "A"}))
	snap := mem.Snapshot()

	require.NoError(t, mem.Save(ctx, &models.Token{Address: "0x01", Symbol: "B"}))
	require.NoError(t, mem.Save(ctx, &models.Token{Address: "0x02", Symbol: "C"}))
	assert.Equal(t, 2, mem.Len())

	mem.Restore(snap)
	assert.Equal(t, 1, mem.Len())

	token := &models.Token{Address: "0x01"}
	found, err := mem.Load(ctx, token)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "A", token.Symbol)
}
