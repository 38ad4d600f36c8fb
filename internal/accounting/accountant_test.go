package accounting

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/chain"
	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/ledger"
	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/pricing"
	"github.com/pool-ledger/internal/registry"
	"github.com/pool-ledger/internal/store"
)

var (
	poolAddr   = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	tokenA     = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	tokenB     = common.HexToAddress("0x00000000000000000000000000000000000000e2")
	walletAddr = common.HexToAddress("0x0000000000000000000000000000000000000099")
	txA        = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000a1")
	baseTime   = int64(1_700_000_000)
)

type fixture struct {
	acct     *Accountant
	store    *store.Memory
	reader   *chain.StubReader
	dep      *config.Deployment
	ledger   *ledger.PoolLedger
	resolver *pricing.Resolver
}

// newFixture builds an accountant over a two-token pool: tokenA and tokenB,
// both six decimals with a static $1 price unless the test reprices them.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	reader := chain.NewStubReader()
	dep := &config.Deployment{
		ProtocolTag:  "CLPR",
		Native:       config.NativeAsset{Symbol: "ETH", Name: "Ether"},
		Pools:        map[string]*config.PoolConfig{},
		Oracles:      map[string]*config.OracleConfig{},
		StaticPrices: map[string]decimal.Decimal{},
		DailyPrices:  map[string]map[int64]decimal.Decimal{},
		ShortTail:    map[string]bool{},
		Revenue:      config.DefaultRevenueSchedule(),
	}
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	resolver := pricing.NewResolver(mem, reader, dep, logger)
	reg := registry.NewTokenRegistry(mem, reader, dep, logger)
	led := ledger.NewPoolLedger(mem, reader, resolver, reg, dep, logger)

	reader.PoolSets[poolAddr] = []common.Address{tokenA, tokenB}
	reader.SetToken(tokenA, "TKA", "Token A", 6)
	reader.SetToken(tokenB, "TKB", "Token B", 6)
	dep.StaticPrices[models.NormalizeAddress(tokenA.Hex())] = decimal.NewFromInt(1)
	dep.StaticPrices[models.NormalizeAddress(tokenB.Hex())] = decimal.NewFromInt(1)

	return &fixture{
		acct:     NewAccountant(mem, reader, resolver, reg, led, dep, logger),
		store:    mem,
		reader:   reader,
		dep:      dep,
		ledger:   led,
		resolver: resolver,
	}
}

// setPoolState points the batched balance read at the given six-decimal
// token balances and LP supply (whole shares, 18 decimals)
func (f *fixture) setPoolState(balanceA, balanceB int64, supply *big.Int) {
	f.reader.Batched[poolAddr] = chain.AllBalances{
		Tokens: []common.Address{tokenA, tokenB},
		Balances: []*big.Int{
			new(big.Int).Mul(big.NewInt(balanceA), big.NewInt(1e6)),
			new(big.Int).Mul(big.NewInt(balanceB), big.NewInt(1e6)),
		},
		TotalSupply: supply,
	}
}

// lp scales whole LP shares to their 18-decimal raw representation
func lp(shares int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(shares), big.NewInt(1e18))
}

func meta(tx common.Hash, logIndex uint, ts int64) events.Meta {
	return events.Meta{
		Contract:    poolAddr,
		BlockNumber: 100,
		BlockTime:   ts,
		TxHash:      tx,
		LogIndex:    logIndex,
		Origin:      walletAddr,
	}
}

func (f *fixture) loadPool(t *testing.T) *models.Pool {
	t.Helper()
	pool := &models.Pool{Address: models.NormalizeAddress(poolAddr.Hex())}
	found, err := f.store.Load(context.Background(), pool)
	if err != nil || !found {
		t.Fatalf("pool not in store (found=%v err=%v)", found, err)
	}
	return pool
}
