package accounting

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/amount"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/types"
)

// HandleDeposited accounts an LP-share mint. The deposit's USD value is the
// minted fraction of the freshly revalued pool: mintedShares divided by the
// post-mint total supply, times the new pool valuation.
func (a *Accountant) HandleDeposited(ctx context.Context, ev *events.Deposited) error {
	pool, err := a.ledger.LoadOrCreatePool(ctx, ev.Contract, ev.BlockTime)
	if err != nil {
		return err
	}
	if err := a.ledger.RevalueFromBalances(ctx, pool, ev.BlockTime); err != nil {
		return err
	}

	ownedFraction := fraction(ev.PoolTokens, pool.Supply())
	usd := pool.PoolValueUSD.Mul(ownedFraction)

	depositor := ev.Depositor
	if cfg := a.dep.PoolFor(pool.Address); cfg != nil && cfg.FarmingHelper != "" {
		// shares minted through the farming helper belong to it, the raw
		// sender is a pass-through
		depositor = common.HexToAddress(cfg.FarmingHelper)
	}

	record := &models.Deposit{
		TxHash:     ev.TxHash.Hex(),
		Timestamp:  ev.BlockTime,
		Pool:       pool.Address,
		Depositor:  models.NormalizeAddress(depositor.Hex()),
		PoolTokens: amount.ToDecimal(ev.PoolTokens, amount.PoolTokenDecimals),
		AmountUSD:  usd,
	}
	if err := a.store.Save(ctx, record); err != nil {
		return err
	}

	if err := a.distributeDepositedUSD(ctx, pool, usd); err != nil {
		return err
	}

	pool.TxCount++
	pool.DepositCount++
	pool.DepositedUSD = pool.DepositedUSD.Add(usd)
	if err := a.touchOrigin(ctx, pool, ev.Origin, ev.BlockTime, usd); err != nil {
		return err
	}
	if err := a.store.Save(ctx, pool); err != nil {
		return err
	}

	a.logger.WithFields(map[string]interface{}{
		"pool":      pool.Address,
		"tx":        record.TxHash,
		"amountUsd": usd.StringFixed(2),
	}).Debug("accounted deposit")

	return a.emitPoolEvent(ctx, pool, types.PoolEventDeposit, ev.Meta, usd, zero, zero, zero)
}

// HandleWithdrawn accounts a proportional LP-share burn
func (a *Accountant) HandleWithdrawn(ctx context.Context, ev *events.Withdrawn) error {
	return a.settleWithdrawal(ctx, ev.Meta, ev.Withdrawer, ev.PoolTokens)
}

// HandleAssetWithdrawn accounts a single-asset LP-share burn; the USD
// attribution is identical to the proportional form
func (a *Accountant) HandleAssetWithdrawn(ctx context.Context, ev *events.AssetWithdrawn) error {
	return a.settleWithdrawal(ctx, ev.Meta, ev.Withdrawer, ev.PoolTokens)
}

// settleWithdrawal attributes V × b/(S+b) where S is the post-burn supply
// and b the burnt shares; only the post-burn supply is observable, so the
// pre-burn supply is reconstructed.
func (a *Accountant) settleWithdrawal(ctx context.Context, meta events.Meta, withdrawer common.Address, burnt *big.Int) error {
	pool, err := a.ledger.LoadOrCreatePool(ctx, meta.Contract, meta.BlockTime)
	if err != nil {
		return err
	}
	if err := a.ledger.RevalueFromBalances(ctx, pool, meta.BlockTime); err != nil {
		return err
	}

	preBurnSupply := new(big.Int).Add(pool.Supply(), burnt)
	burntFraction := fraction(burnt, preBurnSupply)
	usd := pool.PoolValueUSD.Mul(burntFraction)

	record := &models.Withdrawal{
		TxHash:     meta.TxHash.Hex(),
		Timestamp:  meta.BlockTime,
		Pool:       pool.Address,
		Withdrawer: models.NormalizeAddress(withdrawer.Hex()),
		PoolTokens: amount.ToDecimal(burnt, amount.PoolTokenDecimals),
		AmountUSD:  usd,
	}
	if err := a.store.Save(ctx, record); err != nil {
		return err
	}

	pool.TxCount++
	pool.WithdrawalCount++
	pool.WithdrewUSD = pool.WithdrewUSD.Add(usd)
	if err := a.touchOrigin(ctx, pool, meta.Origin, meta.BlockTime, usd); err != nil {
		return err
	}
	if err := a.store.Save(ctx, pool); err != nil {
		return err
	}

	a.logger.WithFields(map[string]interface{}{
		"pool":      pool.Address,
		"tx":        record.TxHash,
		"amountUsd": usd.StringFixed(2),
	}).Debug("accounted withdrawal")

	return a.emitPoolEvent(ctx, pool, types.PoolEventWithdrawal, meta, usd, zero, zero, zero)
}

// distributeDepositedUSD spreads a deposit's USD value over the pool's
// constituent tokens in proportion to their share of the pool value
func (a *Accountant) distributeDepositedUSD(ctx context.Context, pool *models.Pool, usd decimal.Decimal) error {
	if pool.PoolValueUSD.IsZero() || usd.IsZero() {
		return nil
	}
	for _, addr := range pool.Tokens {
		pt := &models.PoolToken{Pool: pool.Address, Token: addr}
		if _, err := a.store.Load(ctx, pt); err != nil {
			return err
		}
		share := usd.Mul(pt.TVLUSD).Div(pool.PoolValueUSD)
		if share.IsZero() {
			continue
		}
		token, err := a.registry.LoadOrCreate(ctx, common.HexToAddress(addr), types.TailShort)
		if err != nil {
			return err
		}
		token.DepositedUSD = token.DepositedUSD.Add(share)
		if err := a.store.Save(ctx, token); err != nil {
			return err
		}
	}
	return nil
}
