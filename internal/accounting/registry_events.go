package accounting

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/types"
)

// HandleVerifiedPoolCreated registers a pool deployed through the verified
// exchange registry, seeds the oracle proxy entities for its tokens and
// asks the host to watch the new contracts.
func (a *Accountant) HandleVerifiedPoolCreated(ctx context.Context, ev *events.VerifiedPoolCreated) ([]Command, error) {
	pool, err := a.ledger.LoadOrCreatePool(ctx, ev.Pool, ev.BlockTime)
	if err != nil {
		return nil, err
	}
	if a.dep.PoolFor(pool.Address) == nil && pool.Variant != types.VariantVerifiedExchange {
		pool.Variant = types.VariantVerifiedExchange
		if err := a.store.Save(ctx, pool); err != nil {
			return nil, err
		}
	}

	cmds := []Command{WatchPool{Address: ev.Pool, Variant: pool.Variant}}
	for _, token := range pool.Tokens {
		oracle := a.dep.OracleFor(token)
		if oracle == nil {
			continue
		}
		proxy := common.HexToAddress(oracle.Proxy)
		if _, _, err := a.resolver.CheckAggregator(ctx, proxy, ev.BlockTime); err != nil {
			return nil, err
		}
		cmds = append(cmds, WatchAggregator{Address: proxy, Proxy: proxy})
	}
	return cmds, nil
}

// HandlePermitRouterCreated attaches a permit router to its pool so later
// share transfers out of the router re-attribute the deposit
func (a *Accountant) HandlePermitRouterCreated(ctx context.Context, ev *events.PermitRouterCreated) error {
	pool, err := a.ledger.LoadOrCreatePool(ctx, ev.Pool, ev.BlockTime)
	if err != nil {
		return err
	}
	pool.PermitRouter = models.NormalizeAddress(ev.Router.Hex())
	return a.store.Save(ctx, pool)
}

// HandleLpTransferCreated records an LP migration contract between two pools
func (a *Accountant) HandleLpTransferCreated(ctx context.Context, ev *events.LpTransferCreated) error {
	record := &models.PoolLpTransfer{
		Address:   models.NormalizeAddress(ev.LpTransfer.Hex()),
		OldPool:   models.NormalizeAddress(ev.OldPool.Hex()),
		NewPool:   models.NormalizeAddress(ev.NewPool.Hex()),
		CreatedAt: ev.BlockTime,
	}
	return a.store.Save(ctx, record)
}

// HandleFarmCreated registers a farming vault against its pool
func (a *Accountant) HandleFarmCreated(ctx context.Context, ev *events.FarmCreated) ([]Command, error) {
	if _, err := a.ledger.LoadOrCreatePool(ctx, ev.Pool, ev.BlockTime); err != nil {
		return nil, err
	}
	vault := &models.PoolVault{
		Address:     models.NormalizeAddress(ev.Vault.Hex()),
		Pool:        models.NormalizeAddress(ev.Pool.Hex()),
		Type:        types.VaultFarm,
		Name:        ev.Name,
		CreatedAt:   ev.BlockTime,
		RewardToken: models.NormalizeAddress(ev.RewardToken.Hex()),
	}
	if cfg := a.dep.PoolFor(vault.Pool); cfg != nil {
		vault.FarmingHelper = models.NormalizeAddress(cfg.FarmingHelper)
	}
	if err := a.store.Save(ctx, vault); err != nil {
		return nil, err
	}
	return []Command{WatchVault{Address: ev.Vault, Type: types.VaultFarm}}, nil
}

// HandleFeeSplitCreated registers a fee-split vault and seeds the pool's
// fee-split share balance with an authoritative recount
func (a *Accountant) HandleFeeSplitCreated(ctx context.Context, ev *events.FeeSplitCreated) ([]Command, error) {
	pool, err := a.ledger.LoadOrCreatePool(ctx, ev.Pool, ev.BlockTime)
	if err != nil {
		return nil, err
	}
	vault := &models.PoolVault{
		Address:   models.NormalizeAddress(ev.Vault.Hex()),
		Pool:      pool.Address,
		Type:      types.VaultFeeSplit,
		CreatedAt: ev.BlockTime,
	}
	if err := a.store.Save(ctx, vault); err != nil {
		return nil, err
	}
	if err := a.recountFeeSplitShares(ctx, pool); err != nil {
		return nil, err
	}
	if err := a.store.Save(ctx, pool); err != nil {
		return nil, err
	}
	return []Command{WatchVault{Address: ev.Vault, Type: types.VaultFeeSplit}}, nil
}

// HandleProtocolDepositCreated registers a protocol deposit vault
func (a *Accountant) HandleProtocolDepositCreated(ctx context.Context, ev *events.ProtocolDepositCreated) ([]Command, error) {
	if _, err := a.ledger.LoadOrCreatePool(ctx, ev.Pool, ev.BlockTime); err != nil {
		return nil, err
	}
	vault := &models.PoolVault{
		Address:   models.NormalizeAddress(ev.Vault.Hex()),
		Pool:      models.NormalizeAddress(ev.Pool.Hex()),
		Type:      types.VaultProtocolDeposit,
		Name:      ev.Name,
		CreatedAt: ev.BlockTime,
	}
	if err := a.store.Save(ctx, vault); err != nil {
		return nil, err
	}
	return []Command{WatchVault{Address: ev.Vault, Type: types.VaultProtocolDeposit}}, nil
}
