package main

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pool-ledger/internal/accounting"
	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/types"
)

func testDeployment() *config.Deployment {
	return &config.Deployment{
		Registry: "0xffffffffffffffffffffffffffffffffffffff01",
		Pools: map[string]*config.PoolConfig{
			"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa01": {
				Variant:    types.VariantVerifiedExchange,
				StartBlock: 1_000_000,
			},
			"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa02": {
				Variant:    types.VariantVerifiedExchange,
				StartBlock: 900_000,
			},
		},
		Oracles: map[string]*config.OracleConfig{
			"0xdddddddddddddddddddddddddddddddddddddd01": {
				Proxy: "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee01",
			},
		},
		Coves: []string{"0x9999999999999999999999999999999999999901"},
	}
}

func TestWatchSetSeedsFromManifest(t *testing.T) {
	w := newWatchSet(testDeployment())

	addrs := w.Addresses()
	assert.Len(t, addrs, 5)
	assert.Contains(t, addrs, common.HexToAddress("0xffffffffffffffffffffffffffffffffffffff01"))
	assert.Contains(t, addrs, common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa02"))
	assert.Contains(t, addrs, common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee01"))
	assert.Contains(t, addrs, common.HexToAddress("0x9999999999999999999999999999999999999901"))
}

func TestWatchSetGrowsFromCommands(t *testing.T) {
	w := newWatchSet(testDeployment())
	ctx := context.Background()

	pool := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa03")
	require.NoError(t, w.Apply(ctx, accounting.WatchPool{Address: pool, Variant: types.VariantVerifiedExchange}))

	agg := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb01")
	proxy := common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee02")
	require.NoError(t, w.Apply(ctx, accounting.WatchAggregator{Address: agg, Proxy: proxy}))

	cove := common.HexToAddress("0x9999999999999999999999999999999999999902")
	require.NoError(t, w.Apply(ctx, accounting.WatchCove{Address: cove}))

	addrs := w.Addresses()
	assert.Contains(t, addrs, pool)
	assert.Contains(t, addrs, agg)
	assert.Contains(t, addrs, proxy)
	assert.Contains(t, addrs, cove)
}

func TestWatchSetIgnoresDuplicates(t *testing.T) {
	w := newWatchSet(testDeployment())
	ctx := context.Background()

	before := len(w.Addresses())
	pool := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa01")
	require.NoError(t, w.Apply(ctx, accounting.WatchPool{Address: pool, Variant: types.VariantVerifiedExchange}))
	assert.Len(t, w.Addresses(), before)
}

func TestEarliestStartBlock(t *testing.T) {
	assert.Equal(t, uint64(900_000), earliestStartBlock(testDeployment()))
	assert.Equal(t, uint64(0), earliestStartBlock(&config.Deployment{}))
}
