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

var (
	routerAddr = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	splitAddr  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func transferEvent(from, to common.Address, value *big.Int) *events.Transfer {
	return &events.Transfer{Meta: meta(txA, 5, baseTime), From: from, To: to, Value: value}
}

func TestTransferReattributesPermitRouterDeposit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.dep.Pools[models.NormalizeAddress(poolAddr.Hex())] = &config.PoolConfig{
		PermitRouter: routerAddr.Hex(),
	}

	// the deposit lands attributed to the router
	f.setPoolState(1000, 1000, lp(1000))
	dep := &events.Deposited{Meta: meta(txA, 1, baseTime), Depositor: routerAddr, PoolTokens: lp(100)}
	require.NoError(t, f.acct.HandleDeposited(ctx, dep))

	// the share transfer out of the router in the same tx re-attributes it
	require.NoError(t, f.acct.HandleTransfer(ctx, transferEvent(routerAddr, walletAddr, lp(100))))

	record := &models.Deposit{TxHash: txA.Hex()}
	_, err := f.store.Load(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, models.NormalizeAddress(walletAddr.Hex()), record.Depositor)
}

func TestTransferDoesNotReattributeForeignDeposits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.dep.Pools[models.NormalizeAddress(poolAddr.Hex())] = &config.PoolConfig{
		PermitRouter: routerAddr.Hex(),
	}

	f.setPoolState(1000, 1000, lp(1000))
	dep := &events.Deposited{Meta: meta(txA, 1, baseTime), Depositor: walletAddr, PoolTokens: lp(100)}
	require.NoError(t, f.acct.HandleDeposited(ctx, dep))

	require.NoError(t, f.acct.HandleTransfer(ctx, transferEvent(routerAddr, walletAddr, lp(100))))

	record := &models.Deposit{TxHash: txA.Hex()}
	_, err := f.store.Load(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, models.NormalizeAddress(walletAddr.Hex()), record.Depositor,
		"a deposit not made through the router keeps its depositor")
}

func feeSplitFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.dep.Pools[models.NormalizeAddress(poolAddr.Hex())] = &config.PoolConfig{
		FeeSplits: []string{splitAddr.Hex()},
	}
	f.setPoolState(1000, 1000, lp(1000))
	f.reader.Balances[chain.HolderKey{Contract: poolAddr, Account: splitAddr}] = lp(100)

	// seed FeeSplitTracked through the vault registration recount
	_, err := f.acct.HandleFeeSplitCreated(context.Background(), &events.FeeSplitCreated{
		Meta: meta(txA, 0, baseTime), Pool: poolAddr, Vault: splitAddr,
	})
	require.NoError(t, err)
	return f
}

func TestTransferTracksFeeSplitShares(t *testing.T) {
	ctx := context.Background()
	f := feeSplitFixture(t)

	pool := f.loadPool(t)
	require.Equal(t, lp(100), pool.FeeSplitShares)
	require.True(t, pool.FeeSplitTracked)

	// inbound and outbound transfers move the running balance
	require.NoError(t, f.acct.HandleTransfer(ctx, transferEvent(walletAddr, splitAddr, lp(40))))
	require.NoError(t, f.acct.HandleTransfer(ctx, transferEvent(splitAddr, walletAddr, lp(15))))

	pool = f.loadPool(t)
	assert.Equal(t, lp(125), pool.FeeSplitShares)
}

func TestTransferNegativeBalanceTriggersRecount(t *testing.T) {
	ctx := context.Background()
	f := feeSplitFixture(t)

	// an outbound larger than the tracked balance signals a missed event;
	// the authoritative chain balance wins
	f.reader.Balances[chain.HolderKey{Contract: poolAddr, Account: splitAddr}] = lp(300)
	require.NoError(t, f.acct.HandleTransfer(ctx, transferEvent(splitAddr, walletAddr, lp(500))))

	pool := f.loadPool(t)
	assert.Equal(t, lp(300), pool.FeeSplitShares)
}

func TestFeesTakenRecordsAndRecounts(t *testing.T) {
	ctx := context.Background()
	f := feeSplitFixture(t)

	f.reader.Balances[chain.HolderKey{Contract: poolAddr, Account: splitAddr}] = lp(60)
	ev := &events.FeesTaken{Meta: events.Meta{
		Contract: splitAddr, BlockTime: baseTime, TxHash: txA, LogIndex: 7, Origin: walletAddr,
	}, Amount: lp(40)}
	require.NoError(t, f.acct.HandleFeesTaken(ctx, ev))

	take := &models.FeeTake{TxHash: txA.Hex(), LogIndex: 7}
	found, err := f.store.Load(ctx, take)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "40", take.Amount.String())
	assert.Equal(t, models.NormalizeAddress(poolAddr.Hex()), take.Pool)

	pool := f.loadPool(t)
	assert.Equal(t, lp(60), pool.FeeSplitShares)
}

func TestFeesTakenUnknownVaultIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ev := &events.FeesTaken{Meta: events.Meta{
		Contract: splitAddr, BlockTime: baseTime, TxHash: txA, LogIndex: 7,
	}, Amount: lp(40)}
	require.NoError(t, f.acct.HandleFeesTaken(ctx, ev))

	take := &models.FeeTake{TxHash: txA.Hex(), LogIndex: 7}
	found, err := f.store.Load(ctx, take)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestVaultRegistrationCommands(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setPoolState(1000, 1000, lp(1000))

	cmds, err := f.acct.HandleFarmCreated(ctx, &events.FarmCreated{
		Meta: meta(txA, 1, baseTime), Pool: poolAddr, Vault: splitAddr,
		RewardToken: tokenA, Name: "farm one",
	})
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, WatchVault{Address: splitAddr, Type: types.VaultFarm}, cmds[0])

	vault := &models.PoolVault{Address: models.NormalizeAddress(splitAddr.Hex())}
	found, err := f.store.Load(ctx, vault)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.VaultFarm, vault.Type)
	assert.Equal(t, "farm one", vault.Name)
}
