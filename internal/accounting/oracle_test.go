package accounting

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pool-ledger/internal/chain"
	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/types"
)

var oracleProxy = common.HexToAddress("0x00000000000000000000000000000000000000c1")

func oracleFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.dep.Oracles[models.NormalizeAddress(tokenA.Hex())] = &config.OracleConfig{
		Proxy: oracleProxy.Hex(),
	}
	delete(f.dep.StaticPrices, models.NormalizeAddress(tokenA.Hex()))
	f.reader.Answers[oracleProxy] = chain.OracleAnswer{Answer: big.NewInt(1_00000000), Decimals: 8}
	f.reader.Aggregators[oracleProxy] = oracleProxy
	return f
}

func TestAnswerUpdatedRevaluesHoldingPools(t *testing.T) {
	ctx := context.Background()
	f := oracleFixture(t)

	f.setPoolState(1000, 1000, lp(1000))
	dep := &events.Deposited{Meta: meta(txA, 1, baseTime), Depositor: walletAddr, PoolTokens: lp(1000)}
	require.NoError(t, f.acct.HandleDeposited(ctx, dep))
	require.Equal(t, "2000.00", f.loadPool(t).PoolValueUSD.StringFixed(2))

	// the feed doubles tokenA; the pool revalues from cached balances
	f.reader.Answers[oracleProxy] = chain.OracleAnswer{Answer: big.NewInt(2_00000000), Decimals: 8}
	upd := &events.AnswerUpdated{Meta: events.Meta{
		Contract: oracleProxy, BlockTime: baseTime + 60, TxHash: txA, LogIndex: 9,
	}, Current: big.NewInt(2_00000000), RoundID: big.NewInt(7), UpdatedAt: baseTime + 60}

	cmds, err := f.acct.HandleAnswerUpdated(ctx, upd)
	require.NoError(t, err)
	assert.Empty(t, cmds)

	pool := f.loadPool(t)
	assert.Equal(t, "3000.00", pool.PoolValueUSD.StringFixed(2))

	entry := &models.PoolEvent{TxHash: txA.Hex(), LogIndex: 9, Type: types.PoolEventOracleUpdate}
	found, err := f.store.Load(ctx, entry)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "3000.00", entry.PoolValueUSD.StringFixed(2))
}

func TestAnswerUpdatedRotationCommand(t *testing.T) {
	ctx := context.Background()
	f := oracleFixture(t)
	newAgg := common.HexToAddress("0x00000000000000000000000000000000000000d9")

	// seed the proxy pointer, then rotate the aggregator behind it
	_, _, err := f.resolver.CheckAggregator(ctx, oracleProxy, baseTime)
	require.NoError(t, err)
	f.reader.Aggregators[oracleProxy] = newAgg

	upd := &events.AnswerUpdated{Meta: events.Meta{
		Contract: oracleProxy, BlockTime: baseTime + types.OneDay, TxHash: txA, LogIndex: 9,
	}, Current: big.NewInt(1_00000000), RoundID: big.NewInt(8), UpdatedAt: baseTime + types.OneDay}

	cmds, err := f.acct.HandleAnswerUpdated(ctx, upd)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, WatchAggregator{Address: newAgg, Proxy: oracleProxy}, cmds[0])

	// events from the rotated aggregator now resolve to the same token
	f.setPoolState(1000, 1000, lp(1000))
	depEv := &events.Deposited{Meta: meta(txA, 1, baseTime + types.OneDay), Depositor: walletAddr, PoolTokens: lp(1000)}
	require.NoError(t, f.acct.HandleDeposited(ctx, depEv))

	upd2 := &events.AnswerUpdated{Meta: events.Meta{
		Contract: newAgg, BlockTime: baseTime + types.OneDay + 60, TxHash: txA, LogIndex: 10,
	}, Current: big.NewInt(1_00000000), RoundID: big.NewInt(9), UpdatedAt: baseTime + types.OneDay + 60}
	_, err = f.acct.HandleAnswerUpdated(ctx, upd2)
	require.NoError(t, err)
}

func TestFeedTokenSharedAggregatorPicksLowestProxy(t *testing.T) {
	ctx := context.Background()
	f := oracleFixture(t)
	secondProxy := common.HexToAddress("0x00000000000000000000000000000000000000c2")
	sharedAgg := common.HexToAddress("0x00000000000000000000000000000000000000d9")

	f.dep.Oracles[models.NormalizeAddress(tokenB.Hex())] = &config.OracleConfig{
		Proxy: secondProxy.Hex(),
	}
	for _, proxy := range []common.Address{oracleProxy, secondProxy} {
		require.NoError(t, f.store.Save(ctx, &models.PriceAggregatorProxy{
			Proxy:      models.NormalizeAddress(proxy.Hex()),
			Aggregator: models.NormalizeAddress(sharedAgg.Hex()),
		}))
	}

	// both proxies point at the same aggregator; the lowest proxy wins
	for i := 0; i < 20; i++ {
		token, proxy, ok := f.acct.feedToken(ctx, sharedAgg)
		require.True(t, ok)
		assert.Equal(t, models.NormalizeAddress(tokenA.Hex()), token)
		assert.Equal(t, oracleProxy, proxy)
	}
}

func TestAnswerUpdatedUnknownFeedIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	upd := &events.AnswerUpdated{Meta: events.Meta{
		Contract: common.HexToAddress("0x00000000000000000000000000000000000000ee"),
		BlockTime: baseTime, TxHash: txA, LogIndex: 9,
	}, Current: big.NewInt(1), RoundID: big.NewInt(1), UpdatedAt: baseTime}

	cmds, err := f.acct.HandleAnswerUpdated(ctx, upd)
	require.NoError(t, err)
	assert.Nil(t, cmds)
}

func TestVerifiedPoolCreatedWatchesPoolAndOracles(t *testing.T) {
	ctx := context.Background()
	f := oracleFixture(t)

	cmds, err := f.acct.HandleVerifiedPoolCreated(ctx, &events.VerifiedPoolCreated{
		Meta: meta(txA, 0, baseTime), Pool: poolAddr,
	})
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, WatchPool{Address: poolAddr, Variant: types.VariantVerifiedExchange}, cmds[0])
	assert.Equal(t, WatchAggregator{Address: oracleProxy, Proxy: oracleProxy}, cmds[1])

	pool := f.loadPool(t)
	assert.Equal(t, types.VariantVerifiedExchange, pool.Variant)

	proxy := &models.PriceAggregatorProxy{Proxy: models.NormalizeAddress(oracleProxy.Hex())}
	found, err := f.store.Load(ctx, proxy)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.NormalizeAddress(oracleProxy.Hex()), proxy.Aggregator)
}
