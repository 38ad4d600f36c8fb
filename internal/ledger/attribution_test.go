package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/store"
)

func TestPairCanonicalization(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	first, err := LoadOrCreatePair(ctx, mem, "0xAA", "0xBB")
	require.NoError(t, err)
	assert.Equal(t, "0xaa:0xbb", first.EntityID())

	// the flipped ordering resolves to the same entity
	second, err := LoadOrCreatePair(ctx, mem, "0xBB", "0xAA")
	require.NoError(t, err)
	assert.Equal(t, first.EntityID(), second.EntityID())
	assert.Equal(t, 1, mem.Len())
}

func TestPairCanonicalizationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	hexAddr := gen.IntRange(1, 1<<30).Map(func(n int) string {
		return fmt.Sprintf("0x%040x", n)
	})

	properties := gopter.NewProperties(parameters)
	properties.Property("both orderings resolve to one pair entity", prop.ForAll(
		func(a, b string) bool {
			ctx := context.Background()
			mem := store.NewMemory()
			p1, err := LoadOrCreatePair(ctx, mem, a, b)
			if err != nil {
				return false
			}
			p2, err := LoadOrCreatePair(ctx, mem, b, a)
			if err != nil {
				return false
			}
			return p1.EntityID() == p2.EntityID() && mem.Len() == 1
		},
		hexAddr, hexAddr,
	))
	properties.TestingRun(t)
}

func TestBumpPairAccumulates(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	_, err := BumpPair(ctx, mem, "0x01", "0xAA", "0xBB", decimal.NewFromInt(100))
	require.NoError(t, err)
	pair, err := BumpPair(ctx, mem, "0x01", "0xBB", "0xAA", decimal.NewFromInt(50))
	require.NoError(t, err)

	assert.Equal(t, int64(2), pair.TxCount)
	assert.True(t, pair.VolumeUSD.Equal(decimal.NewFromInt(150)))

	pp := &models.PoolPair{Pool: "0x01", Pair: pair.EntityID()}
	found, err := mem.Load(ctx, pp)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, pp.VolumeUSD.Equal(decimal.NewFromInt(150)))
}

func TestBumpSource(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	require.NoError(t, BumpSource(ctx, mem, "0x01", "Unknown", decimal.NewFromInt(10)))
	require.NoError(t, BumpSource(ctx, mem, "0x02", "Unknown", decimal.NewFromInt(5)))

	src := &models.TransactionSource{Name: "Unknown"}
	found, err := mem.Load(ctx, src)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2), src.TxCount)
	assert.True(t, src.VolumeUSD.Equal(decimal.NewFromInt(15)))

	ps := &models.PoolTransactionSource{Pool: "0x01", Source: "Unknown"}
	found, err = mem.Load(ctx, ps)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1), ps.TxCount)
}

func TestTouchUserFirstSight(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	isNew, err := TouchUser(ctx, mem, "0xDEAD", 1_700_000_000, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = TouchUser(ctx, mem, "0xdead", 1_700_000_100, decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.False(t, isNew, "address case must not fork the user")

	user := &models.User{Wallet: "0xDEAD"}
	found, err := mem.Load(ctx, user)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1_700_000_000), user.FirstSeenAt)
	assert.Equal(t, int64(2), user.TxCount)
	assert.True(t, user.VolumeUSD.Equal(decimal.NewFromInt(50)))
}
