package accounting

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pool-ledger/internal/chain"
	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/errors"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/models"
)

func swapEvent(inAmount, outAmount int64, aux []byte, ts int64) *events.Swapped {
	return &events.Swapped{
		Meta:          meta(txA, 2, ts),
		InAsset:       tokenA,
		OutAsset:      tokenB,
		Recipient:     walletAddr,
		InAmount:      new(big.Int).Mul(big.NewInt(inAmount), big.NewInt(1e6)),
		OutAmount:     new(big.Int).Mul(big.NewInt(outAmount), big.NewInt(1e6)),
		AuxiliaryData: aux,
	}
}

func TestSwapFeeAndVolume(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setPoolState(1000, 1000, lp(1000))

	// 100 of A at $1 in, 95 of B at $1 out
	require.NoError(t, f.acct.HandleSwapped(ctx, swapEvent(100, 95, nil, baseTime)))

	swap := &models.Swap{TxHash: txA.Hex(), LogIndex: 2}
	found, err := f.store.Load(ctx, swap)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "5.00", swap.FeeUSD.StringFixed(2))
	assert.Equal(t, "97.50", swap.VolumeUSD.StringFixed(2))
	assert.Equal(t, "100.00", swap.AmountInUSD.StringFixed(2))
	assert.Equal(t, "95.00", swap.AmountOutUSD.StringFixed(2))
	assert.Equal(t, "Unknown", swap.Source)

	pool := f.loadPool(t)
	assert.Equal(t, "5.00", pool.FeeUSD.StringFixed(2))
	assert.Equal(t, "97.50", pool.VolumeUSD.StringFixed(2))
	assert.Equal(t, int64(1), pool.TxCount)
	assert.Equal(t, int64(1), pool.UniqueUsers)

	// pair accumulated under one canonical identity
	pair := &models.Pair{Asset0: tokenA.Hex(), Asset1: tokenB.Hex()}
	found, err = f.store.Load(ctx, pair)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "97.50", pair.VolumeUSD.StringFixed(2))
}

func TestSwapFeeNeverNegative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setPoolState(1000, 1000, lp(1000))

	// out leg worth more than in leg: fee floors at zero
	require.NoError(t, f.acct.HandleSwapped(ctx, swapEvent(90, 100, nil, baseTime)))

	swap := &models.Swap{TxHash: txA.Hex(), LogIndex: 2}
	_, err := f.store.Load(ctx, swap)
	require.NoError(t, err)
	assert.True(t, swap.FeeUSD.IsZero())
	assert.Equal(t, "95.00", swap.VolumeUSD.StringFixed(2))
}

func TestSwapFeeNonNegativityProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property test in short mode")
	}
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	properties.Property("fee is never negative", prop.ForAll(
		func(in, out int64) bool {
			ctx := context.Background()
			f := newFixture(t)
			f.setPoolState(1_000_000, 1_000_000, lp(1_000_000))
			if err := f.acct.HandleSwapped(ctx, swapEvent(in, out, nil, baseTime)); err != nil {
				return false
			}
			swap := &models.Swap{TxHash: txA.Hex(), LogIndex: 2}
			if _, err := f.store.Load(ctx, swap); err != nil {
				return false
			}
			return swap.FeeUSD.Sign() >= 0
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 1_000_000),
	))
	properties.TestingRun(t)
}

func TestSwapUnresolvedPriceZeroesFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setPoolState(1000, 1000, lp(1000))
	delete(f.dep.StaticPrices, models.NormalizeAddress(tokenB.Hex()))

	require.NoError(t, f.acct.HandleSwapped(ctx, swapEvent(100, 95, nil, baseTime)))

	swap := &models.Swap{TxHash: txA.Hex(), LogIndex: 2}
	_, err := f.store.Load(ctx, swap)
	require.NoError(t, err)
	// without the guard the whole in leg would be misreported as fee
	assert.True(t, swap.FeeUSD.IsZero())
	assert.Equal(t, "50.00", swap.VolumeUSD.StringFixed(2), "volume keeps the resolved leg's half")
}

func TestSwapSourceNormalization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setPoolState(1000, 1000, lp(1000))

	aux := append([]byte("CLPR widget"), 0, 0, 0)
	require.NoError(t, f.acct.HandleSwapped(ctx, swapEvent(10, 9, aux, baseTime)))

	swap := &models.Swap{TxHash: txA.Hex(), LogIndex: 2}
	_, err := f.store.Load(ctx, swap)
	require.NoError(t, err)
	assert.Equal(t, "CLPR", swap.Source)

	src := &models.TransactionSource{Name: "CLPR"}
	found, err := f.store.Load(ctx, src)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1), src.TxCount)
}

func TestSwapRevenueSplit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	split := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	f.dep.Pools[models.NormalizeAddress(poolAddr.Hex())] = &config.PoolConfig{
		FeeSplits: []string{split.Hex()},
	}
	f.setPoolState(1000, 1000, lp(1000))
	// the fee-split set holds a quarter of the LP supply
	f.reader.Balances[chain.HolderKey{Contract: poolAddr, Account: split}] = lp(250)

	// before the cutover half the split revenue accrues
	require.NoError(t, f.acct.HandleSwapped(ctx, swapEvent(100, 95, nil, 1690848000-1)))
	swap := &models.Swap{TxHash: txA.Hex(), LogIndex: 2}
	_, err := f.store.Load(ctx, swap)
	require.NoError(t, err)
	assert.Equal(t, "0.625", swap.RevenueUSD.StringFixed(3), "5 * 0.25 * 0.5")

	// after the cutover the full split revenue accrues
	f2 := newFixture(t)
	f2.dep.Pools[models.NormalizeAddress(poolAddr.Hex())] = &config.PoolConfig{
		FeeSplits: []string{split.Hex()},
	}
	f2.setPoolState(1000, 1000, lp(1000))
	f2.reader.Balances[chain.HolderKey{Contract: poolAddr, Account: split}] = lp(250)

	require.NoError(t, f2.acct.HandleSwapped(ctx, swapEvent(100, 95, nil, 1690848000)))
	_, err = f2.store.Load(ctx, swap)
	require.NoError(t, err)
	assert.Equal(t, "1.250", swap.RevenueUSD.StringFixed(3), "5 * 0.25 * 1.0")
}

func TestSwapIntoTokenAddedByBatchSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setPoolState(1000, 1000, lp(1000))

	// the pool is created with tokens A and B only
	_, err := f.acct.ledger.LoadOrCreatePool(ctx, poolAddr, baseTime)
	require.NoError(t, err)

	// tokenC joins the pool; the batched read is the first to see it
	tokenC := common.HexToAddress("0x00000000000000000000000000000000000000a3")
	f.reader.SetToken(tokenC, "TKC", "Token C", 6)
	f.dep.StaticPrices[models.NormalizeAddress(tokenC.Hex())] = decimal.NewFromInt(1)
	batch := f.reader.Batched[poolAddr]
	batch.Tokens = append(batch.Tokens, tokenC)
	batch.Balances = append(batch.Balances, new(big.Int).Mul(big.NewInt(500), big.NewInt(1e6)))
	f.reader.Batched[poolAddr] = batch

	ev := swapEvent(100, 95, nil, baseTime)
	ev.OutAsset = tokenC
	require.NoError(t, f.acct.HandleSwapped(ctx, ev))

	swap := &models.Swap{TxHash: txA.Hex(), LogIndex: 2}
	found, err := f.store.Load(ctx, swap)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.NormalizeAddress(tokenC.Hex()), swap.OutToken)
}

func TestSwapForeignTokenIsStructural(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setPoolState(1000, 1000, lp(1000))

	ev := swapEvent(100, 95, nil, baseTime)
	ev.OutAsset = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	err := f.acct.HandleSwapped(ctx, ev)
	require.Error(t, err)
	assert.True(t, errors.IsStructural(err))
}
