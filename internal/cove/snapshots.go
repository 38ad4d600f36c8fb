package cove

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/types"
)

// snapshotDelta is one event's contribution to the periodic buckets
type snapshotDelta struct {
	deposits    int64
	withdrawals int64
	volume      decimal.Decimal
	price       decimal.Decimal
}

// bumpSnapshots folds an event into the cove's and the parent's daily and
// hourly buckets. The bucket price is overwritten with the latest implied
// price so each bucket closes at its last observed value.
func (a *Accountant) bumpSnapshots(ctx context.Context, cove *models.Cove, parent *models.CoveParent, ts int64, delta snapshotDelta) error {
	periods := []struct {
		period types.SnapshotPeriod
		width  int64
	}{
		{types.PeriodDaily, types.OneDay},
		{types.PeriodHourly, types.OneHour},
	}

	for _, p := range periods {
		bucket := types.BucketStart(ts, p.width)

		snap := &models.CoveSnapshot{Cove: cove.EntityID(), Period: p.period, Bucket: bucket}
		if _, err := a.store.Load(ctx, snap); err != nil {
			return err
		}
		snap.TxCount++
		snap.DepositCount += delta.deposits
		snap.WithdrawalCount += delta.withdrawals
		snap.VolumeUSD = snap.VolumeUSD.Add(delta.volume)
		snap.Price = delta.price
		if err := a.store.Save(ctx, snap); err != nil {
			return err
		}

		psnap := &models.CoveParentSnapshot{Parent: parent.Address, Period: p.period, Bucket: bucket}
		if _, err := a.store.Load(ctx, psnap); err != nil {
			return err
		}
		psnap.TxCount++
		psnap.DepositCount += delta.deposits
		psnap.WithdrawalCount += delta.withdrawals
		psnap.VolumeUSD = psnap.VolumeUSD.Add(delta.volume)
		if err := a.store.Save(ctx, psnap); err != nil {
			return err
		}
	}
	return nil
}
