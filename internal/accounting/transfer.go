package accounting

import (
	"context"
	"math/big"

	"github.com/pool-ledger/internal/amount"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/models"
)

// HandleTransfer intercepts LP-share transfers on a pool contract for two
// side effects: re-attributing a deposit routed through the pool's permit
// router, and keeping the fee-split-held share balance current.
func (a *Accountant) HandleTransfer(ctx context.Context, ev *events.Transfer) error {
	pool, err := a.ledger.LoadOrCreatePool(ctx, ev.Contract, ev.BlockTime)
	if err != nil {
		return err
	}
	dirty := false

	from := models.NormalizeAddress(ev.From.Hex())
	to := models.NormalizeAddress(ev.To.Hex())

	// shares leaving the permit router belong to the receiving wallet; the
	// deposit in this transaction was recorded against the router
	if pool.PermitRouter != "" && from == pool.PermitRouter {
		deposit := &models.Deposit{TxHash: ev.TxHash.Hex()}
		found, err := a.store.Load(ctx, deposit)
		if err != nil {
			return err
		}
		if found && deposit.Depositor == pool.PermitRouter {
			deposit.Depositor = to
			if err := a.store.Save(ctx, deposit); err != nil {
				return err
			}
			a.logger.WithFields(map[string]interface{}{
				"pool":      pool.Address,
				"tx":        deposit.TxHash,
				"depositor": to,
			}).Debug("re-attributed permit-router deposit")
		}
	}

	if cfg := a.dep.PoolFor(pool.Address); cfg != nil && len(cfg.FeeSplits) > 0 && pool.FeeSplitTracked {
		splits := make(map[string]bool, len(cfg.FeeSplits))
		for _, s := range cfg.FeeSplits {
			splits[models.NormalizeAddress(s)] = true
		}
		if pool.FeeSplitShares == nil {
			pool.FeeSplitShares = new(big.Int)
		}
		shares := pool.FeeSplitShares
		if splits[to] {
			shares.Add(shares, ev.Value)
			dirty = true
		}
		if splits[from] {
			shares.Sub(shares, ev.Value)
			dirty = true
		}
		if shares.Sign() < 0 {
			// a negative running balance means a missed or misordered
			// transfer; fall back to an authoritative recount
			a.logger.WithField("pool", pool.Address).Warn("fee-split share balance went negative, recounting")
			if err := a.recountFeeSplitShares(ctx, pool); err != nil {
				return err
			}
			dirty = true
		}
	}

	if dirty {
		return a.store.Save(ctx, pool)
	}
	return nil
}

// HandleFeesTaken records a fee distribution by a fee-split vault and
// recounts the fee-split share balance, since distributions move LP shares
// out of the vault set.
func (a *Accountant) HandleFeesTaken(ctx context.Context, ev *events.FeesTaken) error {
	vault := &models.PoolVault{Address: models.NormalizeAddress(ev.Contract.Hex())}
	found, err := a.store.Load(ctx, vault)
	if err != nil {
		return err
	}
	if !found {
		a.logger.WithField("vault", vault.Address).Warn("fees taken by an unregistered vault, skipping")
		return nil
	}

	record := &models.FeeTake{
		TxHash:    ev.TxHash.Hex(),
		LogIndex:  ev.LogIndex,
		Timestamp: ev.BlockTime,
		Vault:     vault.Address,
		Pool:      vault.Pool,
		Amount:    amount.ToDecimal(ev.Amount, amount.PoolTokenDecimals),
	}
	if err := a.store.Save(ctx, record); err != nil {
		return err
	}

	pool := &models.Pool{Address: vault.Pool}
	found, err = a.store.Load(ctx, pool)
	if err != nil || !found {
		return err
	}
	if err := a.recountFeeSplitShares(ctx, pool); err != nil {
		return err
	}
	return a.store.Save(ctx, pool)
}
