package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/store"
)

// LoadOrCreatePair resolves the canonical pair entity for two assets. Both
// orderings are tried before creating, so the first ordering ever seen
// becomes the canonical identity.
func LoadOrCreatePair(ctx context.Context, s store.Store, asset0, asset1 string) (*models.Pair, error) {
	pair := &models.Pair{Asset0: asset0, Asset1: asset1}
	found, err := s.Load(ctx, pair)
	if err != nil {
		return nil, err
	}
	if found {
		return pair, nil
	}

	flipped := &models.Pair{Asset0: asset1, Asset1: asset0}
	found, err = s.Load(ctx, flipped)
	if err != nil {
		return nil, err
	}
	if found {
		return flipped, nil
	}

	pair.TxCount = 0
	pair.VolumeUSD = decimal.Zero
	if err := s.Save(ctx, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

// BumpPair adds one swap's volume to the pair and its per-pool scope
func BumpPair(ctx context.Context, s store.Store, pool, asset0, asset1 string, volumeUSD decimal.Decimal) (*models.Pair, error) {
	pair, err := LoadOrCreatePair(ctx, s, asset0, asset1)
	if err != nil {
		return nil, err
	}
	pair.TxCount++
	pair.VolumeUSD = pair.VolumeUSD.Add(volumeUSD)
	if err := s.Save(ctx, pair); err != nil {
		return nil, err
	}

	pp := &models.PoolPair{Pool: pool, Pair: pair.EntityID()}
	if _, err := s.Load(ctx, pp); err != nil {
		return nil, err
	}
	pp.TxCount++
	pp.VolumeUSD = pp.VolumeUSD.Add(volumeUSD)
	if err := s.Save(ctx, pp); err != nil {
		return nil, err
	}
	return pair, nil
}

// BumpSource adds one swap's volume to a transaction source and its
// per-pool scope
func BumpSource(ctx context.Context, s store.Store, pool, name string, volumeUSD decimal.Decimal) error {
	src := &models.TransactionSource{Name: name}
	if _, err := s.Load(ctx, src); err != nil {
		return err
	}
	src.TxCount++
	src.VolumeUSD = src.VolumeUSD.Add(volumeUSD)
	if err := s.Save(ctx, src); err != nil {
		return err
	}

	ps := &models.PoolTransactionSource{Pool: pool, Source: name}
	if _, err := s.Load(ctx, ps); err != nil {
		return err
	}
	ps.TxCount++
	ps.VolumeUSD = ps.VolumeUSD.Add(volumeUSD)
	return s.Save(ctx, ps)
}

// BumpCoveSource adds one cove swap's volume to a transaction source and
// its per-cove scope
func BumpCoveSource(ctx context.Context, s store.Store, cove, name string, volumeUSD decimal.Decimal) error {
	src := &models.TransactionSource{Name: name}
	if _, err := s.Load(ctx, src); err != nil {
		return err
	}
	src.TxCount++
	src.VolumeUSD = src.VolumeUSD.Add(volumeUSD)
	if err := s.Save(ctx, src); err != nil {
		return err
	}

	cs := &models.CoveTransactionSource{Cove: cove, Source: name}
	if _, err := s.Load(ctx, cs); err != nil {
		return err
	}
	cs.TxCount++
	cs.VolumeUSD = cs.VolumeUSD.Add(volumeUSD)
	return s.Save(ctx, cs)
}

// TouchUser records activity for a wallet, creating it on first sight.
// It reports whether the wallet was new.
func TouchUser(ctx context.Context, s store.Store, wallet string, asOf int64, volumeUSD decimal.Decimal) (bool, error) {
	user := &models.User{Wallet: wallet}
	found, err := s.Load(ctx, user)
	if err != nil {
		return false, err
	}
	if !found {
		user.FirstSeenAt = asOf
		user.VolumeUSD = decimal.Zero
	}
	user.TxCount++
	user.VolumeUSD = user.VolumeUSD.Add(volumeUSD)
	if err := s.Save(ctx, user); err != nil {
		return false, err
	}
	return !found, nil
}
