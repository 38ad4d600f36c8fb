package accounting

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/amount"
	"github.com/pool-ledger/internal/errors"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/ledger"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/types"
)

var two = decimal.NewFromInt(2)

// HandleSwapped accounts an asset exchange inside a pool. The fee is the
// positive USD gap between the in and out legs; stale prices can make the
// out leg transiently look richer, so the fee floors at zero. An unresolved
// price on either leg forces the fee to zero rather than over-reporting the
// whole leg as fee. Volume is the average of both legs.
func (a *Accountant) HandleSwapped(ctx context.Context, ev *events.Swapped) error {
	pool, err := a.ledger.LoadOrCreatePool(ctx, ev.Contract, ev.BlockTime)
	if err != nil {
		return err
	}

	if err := a.ledger.RevalueFromBalances(ctx, pool, ev.BlockTime); err != nil {
		return err
	}

	// revaluing first lets the batched read register tokens added to the
	// pool since the last event before the membership check
	inAddr := models.NormalizeAddress(ev.InAsset.Hex())
	outAddr := models.NormalizeAddress(ev.OutAsset.Hex())
	if !poolHolds(pool, inAddr) || !poolHolds(pool, outAddr) {
		return errors.NewStructuralError("swap references a token outside its pool", map[string]interface{}{
			"pool":     pool.Address,
			"inToken":  inAddr,
			"outToken": outAddr,
			"tx":       ev.TxHash.Hex(),
		})
	}

	inToken, err := a.registry.LoadOrCreate(ctx, ev.InAsset, types.TailShort)
	if err != nil {
		return err
	}
	outToken, err := a.registry.LoadOrCreate(ctx, ev.OutAsset, types.TailShort)
	if err != nil {
		return err
	}

	inPrice, inSource, err := a.resolver.Resolve(ctx, inToken, ev.BlockTime)
	if err != nil {
		return err
	}
	outPrice, outSource, err := a.resolver.Resolve(ctx, outToken, ev.BlockTime)
	if err != nil {
		return err
	}

	amountIn := amount.ToDecimal(ev.InAmount, inToken.Decimals)
	amountOut := amount.ToDecimal(ev.OutAmount, outToken.Decimals)
	amountInUSD := amountIn.Mul(inPrice)
	amountOutUSD := amountOut.Mul(outPrice)

	volumeUSD := amountInUSD.Add(amountOutUSD).Div(two)

	feeUSD := decimal.Zero
	if inSource != types.PriceSourceUnresolved && outSource != types.PriceSourceUnresolved {
		if gap := amountInUSD.Sub(amountOutUSD); gap.Sign() > 0 {
			feeUSD = gap
		}
	} else {
		a.logger.WithFields(map[string]interface{}{
			"pool": pool.Address,
			"tx":   ev.TxHash.Hex(),
		}).Warn("unresolved price on a swap leg, fee forced to zero")
	}

	revenueUSD, err := a.swapRevenue(ctx, pool, feeUSD, ev.BlockTime)
	if err != nil {
		return err
	}

	inToken.TxCount++
	inToken.Volume = inToken.Volume.Add(amountIn)
	inToken.VolumeUSD = inToken.VolumeUSD.Add(amountInUSD)
	if err := a.store.Save(ctx, inToken); err != nil {
		return err
	}
	outToken.TxCount++
	outToken.Volume = outToken.Volume.Add(amountOut)
	outToken.VolumeUSD = outToken.VolumeUSD.Add(amountOutUSD)
	if err := a.store.Save(ctx, outToken); err != nil {
		return err
	}

	source := a.dep.NormalizeSource(ev.AuxiliaryData)
	if err := ledger.BumpSource(ctx, a.store, pool.Address, source, volumeUSD); err != nil {
		return err
	}
	pair, err := ledger.BumpPair(ctx, a.store, pool.Address, inAddr, outAddr, volumeUSD)
	if err != nil {
		return err
	}

	record := &models.Swap{
		TxHash:       ev.TxHash.Hex(),
		LogIndex:     ev.LogIndex,
		Timestamp:    ev.BlockTime,
		Kind:         types.SwapPool,
		Pool:         pool.Address,
		InToken:      inAddr,
		OutToken:     outAddr,
		Origin:       models.NormalizeAddress(ev.Origin.Hex()),
		Sender:       models.NormalizeAddress(ev.Origin.Hex()),
		Recipient:    models.NormalizeAddress(ev.Recipient.Hex()),
		AmountIn:     amountIn,
		AmountOut:    amountOut,
		AmountInRaw:  ev.InAmount,
		AmountOutRaw: ev.OutAmount,
		PriceInUSD:   inPrice,
		PriceOutUSD:  outPrice,
		AmountInUSD:  amountInUSD,
		AmountOutUSD: amountOutUSD,
		VolumeUSD:    volumeUSD,
		FeeUSD:       feeUSD,
		RevenueUSD:   revenueUSD,
		Pair:         pair.EntityID(),
		Source:       source,
	}
	if err := a.store.Save(ctx, record); err != nil {
		return err
	}

	pool.TxCount++
	pool.VolumeUSD = pool.VolumeUSD.Add(volumeUSD)
	pool.FeeUSD = pool.FeeUSD.Add(feeUSD)
	pool.RevenueUSD = pool.RevenueUSD.Add(revenueUSD)
	if err := a.touchOrigin(ctx, pool, ev.Origin, ev.BlockTime, volumeUSD); err != nil {
		return err
	}
	if err := a.store.Save(ctx, pool); err != nil {
		return err
	}

	return a.emitPoolEvent(ctx, pool, types.PoolEventSwap, ev.Meta, volumeUSD, feeUSD, revenueUSD, volumeUSD)
}

// swapRevenue attributes the protocol's share of a swap fee: the fraction of
// LP supply held by the fee-split set, scaled by the governance split in
// force at the event time. Pools without fee splits earn no revenue. The
// running fee-split balance is seeded by an authoritative recount on first
// use.
func (a *Accountant) swapRevenue(ctx context.Context, pool *models.Pool, feeUSD decimal.Decimal, asOf int64) (decimal.Decimal, error) {
	cfg := a.dep.PoolFor(pool.Address)
	if cfg == nil || len(cfg.FeeSplits) == 0 || feeUSD.IsZero() {
		return decimal.Zero, nil
	}
	if !pool.FeeSplitTracked {
		if err := a.recountFeeSplitShares(ctx, pool); err != nil {
			return decimal.Zero, err
		}
	}
	splitFraction := fraction(pool.FeeSplitShares, pool.Supply())
	return feeUSD.Mul(splitFraction).Mul(a.dep.Revenue.FractionAt(asOf)), nil
}

func poolHolds(pool *models.Pool, token string) bool {
	for _, t := range pool.Tokens {
		if t == token {
			return true
		}
	}
	return false
}
