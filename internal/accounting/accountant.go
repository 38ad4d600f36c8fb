// Package accounting converts chain events into ledger mutations: USD
// attribution for deposits and withdrawals, fee and revenue computation for
// swaps, and the transfer-driven side accounting around them.
package accounting

import (
	"context"
	"math/big"

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
	"github.com/pool-ledger/internal/types"
)

// Accountant holds the collaborators every event handler needs
type Accountant struct {
	store    store.Store
	chain    chain.Reader
	resolver *pricing.Resolver
	registry *registry.TokenRegistry
	ledger   *ledger.PoolLedger
	dep      *config.Deployment
	logger   *logging.Logger
}

// NewAccountant creates an accountant
func NewAccountant(s store.Store, reader chain.Reader, resolver *pricing.Resolver, reg *registry.TokenRegistry, l *ledger.PoolLedger, dep *config.Deployment, logger *logging.Logger) *Accountant {
	return &Accountant{
		store:    s,
		chain:    reader,
		resolver: resolver,
		registry: reg,
		ledger:   l,
		dep:      dep,
		logger:   logger,
	}
}

var zero = decimal.Zero

// fraction returns num/den as a decimal, zero when den is zero
func fraction(num, den *big.Int) decimal.Decimal {
	if den == nil || den.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(num, 0).Div(decimal.NewFromBigInt(den, 0))
}

// touchOrigin records activity for the transaction originator and bumps the
// pool's unique-user counter on first sight. The pool is not saved here.
func (a *Accountant) touchOrigin(ctx context.Context, pool *models.Pool, origin common.Address, asOf int64, volumeUSD decimal.Decimal) error {
	isNew, err := ledger.TouchUser(ctx, a.store, origin.Hex(), asOf, volumeUSD)
	if err != nil {
		return err
	}
	if isNew {
		pool.UniqueUsers++
	}
	return nil
}

// emitPoolEvent appends an entry to the pool's time series
func (a *Accountant) emitPoolEvent(ctx context.Context, pool *models.Pool, kind types.PoolEventType, meta events.Meta, amountUSD, feeUSD, revenueUSD, volumeUSD decimal.Decimal) error {
	ev := &models.PoolEvent{
		Pool:             pool.Address,
		Type:             kind,
		TxHash:           meta.TxHash.Hex(),
		LogIndex:         meta.LogIndex,
		Timestamp:        meta.BlockTime,
		AmountUSD:        amountUSD,
		SwapFeeUSD:       feeUSD,
		SwapRevenueUSD:   revenueUSD,
		SwapVolumeUSD:    volumeUSD,
		PoolValueUSD:     pool.PoolValueUSD,
		PoolTokensSupply: pool.Supply(),
	}
	return a.store.Save(ctx, ev)
}

// recountFeeSplitShares re-derives the fee-split-held LP balance from
// authoritative balance reads, replacing the incremental running value
func (a *Accountant) recountFeeSplitShares(ctx context.Context, pool *models.Pool) error {
	cfg := a.dep.PoolFor(pool.Address)
	total := new(big.Int)
	if cfg != nil {
		lpToken := common.HexToAddress(pool.Address)
		for _, split := range cfg.FeeSplits {
			bal := a.chain.BalanceOf(ctx, lpToken, common.HexToAddress(split))
			if bal.Reverted {
				a.logger.WithFields(map[string]interface{}{
					"pool":  pool.Address,
					"split": split,
				}).Warn("fee-split balance read reverted, counting as zero")
				continue
			}
			total.Add(total, bal.Value)
		}
	}
	pool.FeeSplitShares = total
	pool.FeeSplitTracked = true
	return nil
}
