// Package ledger maintains pool entities, their constituent token balances
// and their USD valuation.
package ledger

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/amount"
	"github.com/pool-ledger/internal/chain"
	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/pricing"
	"github.com/pool-ledger/internal/registry"
	"github.com/pool-ledger/internal/store"
	"github.com/pool-ledger/internal/types"
)

// maxProbedTokens bounds the tokenAt probe when the pool does not expose a
// token count
const maxProbedTokens = 64

// PoolLedger creates pools, discovers their token sets and keeps the
// per-token balances and USD valuation current.
type PoolLedger struct {
	store    store.Store
	chain    chain.Reader
	resolver *pricing.Resolver
	registry *registry.TokenRegistry
	dep      *config.Deployment
	logger   *logging.Logger
}

// NewPoolLedger creates a pool ledger
func NewPoolLedger(s store.Store, reader chain.Reader, resolver *pricing.Resolver, reg *registry.TokenRegistry, dep *config.Deployment, logger *logging.Logger) *PoolLedger {
	return &PoolLedger{store: s, chain: reader, resolver: resolver, registry: reg, dep: dep, logger: logger}
}

// LoadOrCreatePool returns the pool entity for addr, discovering its token
// set on first sight. Tokens whose index read reverts are skipped.
func (l *PoolLedger) LoadOrCreatePool(ctx context.Context, addr common.Address, createdAt int64) (*models.Pool, error) {
	pool := &models.Pool{Address: models.NormalizeAddress(addr.Hex())}
	found, err := l.store.Load(ctx, pool)
	if err != nil {
		return nil, err
	}
	if found {
		return pool, nil
	}

	pool.Variant = types.VariantCommonExchangeV0
	if cfg := l.dep.PoolFor(pool.Address); cfg != nil {
		pool.Variant = cfg.Variant
		pool.PermitRouter = models.NormalizeAddress(cfg.PermitRouter)
	}
	pool.CreatedAt = createdAt
	pool.PoolTokensSupply = new(big.Int)
	if supply := l.chain.TotalSupply(ctx, addr); !supply.Reverted {
		pool.PoolTokensSupply = supply.Value
	}
	pool.FeeSplitShares = new(big.Int)
	pool.VolumeUSD = decimal.Zero
	pool.FeeUSD = decimal.Zero
	pool.RevenueUSD = decimal.Zero
	pool.DepositedUSD = decimal.Zero
	pool.WithdrewUSD = decimal.Zero
	pool.PoolValueUSD = decimal.Zero

	for _, token := range l.probeTokens(ctx, addr) {
		if err := l.ensureToken(ctx, pool, token); err != nil {
			return nil, err
		}
	}

	l.logger.WithFields(map[string]interface{}{
		"pool":    pool.Address,
		"variant": string(pool.Variant),
		"tokens":  len(pool.Tokens),
	}).Info("registered pool")

	if err := l.store.Save(ctx, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// probeTokens reads the pool's token set. Pools without a token count are
// probed index by index until the first revert.
func (l *PoolLedger) probeTokens(ctx context.Context, pool common.Address) []common.Address {
	var out []common.Address
	if count := l.chain.TokenCount(ctx, pool); !count.Reverted {
		n := int(count.Value.Int64())
		for i := 0; i < n; i++ {
			at := l.chain.TokenAt(ctx, pool, big.NewInt(int64(i)))
			if at.Reverted {
				continue
			}
			out = append(out, at.Value)
		}
		return out
	}
	for i := 0; i < maxProbedTokens; i++ {
		at := l.chain.TokenAt(ctx, pool, big.NewInt(int64(i)))
		if at.Reverted {
			break
		}
		out = append(out, at.Value)
	}
	return out
}

// ensureToken registers a constituent token against the pool: the token
// entity, the pool membership, the zero-balance PoolToken row and the
// reverse index used for oracle-driven revaluation.
func (l *PoolLedger) ensureToken(ctx context.Context, pool *models.Pool, token common.Address) error {
	if _, err := l.registry.LoadOrCreate(ctx, token, types.TailShort); err != nil {
		return err
	}
	if !pool.AddToken(token.Hex()) {
		return nil
	}

	pt := &models.PoolToken{Pool: pool.Address, Token: models.NormalizeAddress(token.Hex())}
	found, err := l.store.Load(ctx, pt)
	if err != nil {
		return err
	}
	if !found {
		pt.TVL = decimal.Zero
		pt.TVLUSD = decimal.Zero
		if err := l.store.Save(ctx, pt); err != nil {
			return err
		}
	}

	index := &models.TokenPools{Token: pt.Token}
	if _, err := l.store.Load(ctx, index); err != nil {
		return err
	}
	if index.Add(pool.Address) {
		return l.store.Save(ctx, index)
	}
	return nil
}

// RevalueFromBalances reprices the pool from fresh on-chain balances and
// the live token supply, then saves the pool. Variants with the batched
// accessor use it; a revert there, or a variant without it, falls back to
// per-token balance reads.
func (l *PoolLedger) RevalueFromBalances(ctx context.Context, pool *models.Pool, asOf int64) error {
	addr := common.HexToAddress(pool.Address)

	if pool.Variant.HasBatchedBalances() {
		if batch := l.chain.AllTokensBalance(ctx, addr); !batch.Reverted {
			for _, token := range batch.Value.Tokens {
				if err := l.ensureToken(ctx, pool, token); err != nil {
					return err
				}
			}
			balances := make(map[string]*big.Int, len(batch.Value.Tokens))
			for i, token := range batch.Value.Tokens {
				if i < len(batch.Value.Balances) {
					balances[models.NormalizeAddress(token.Hex())] = batch.Value.Balances[i]
				}
			}
			return l.applyBalances(ctx, pool, balances, batch.Value.TotalSupply, asOf)
		}
	}

	balances := make(map[string]*big.Int, len(pool.Tokens))
	for _, token := range pool.Tokens {
		bal := l.chain.BalanceOf(ctx, common.HexToAddress(token), addr)
		if bal.Reverted {
			balances[token] = new(big.Int)
			continue
		}
		balances[token] = bal.Value
	}

	supply := pool.Supply()
	if total := l.chain.TotalSupply(ctx, addr); !total.Reverted {
		supply = total.Value
	}
	return l.applyBalances(ctx, pool, balances, supply, asOf)
}

// RevalueFromCache reprices the pool from the stored per-token balances at
// current prices, without any balance reads. Oracle updates use this to
// propagate a price change across every pool holding the token.
func (l *PoolLedger) RevalueFromCache(ctx context.Context, pool *models.Pool, asOf int64) error {
	total := decimal.Zero
	for _, addr := range pool.Tokens {
		pt := &models.PoolToken{Pool: pool.Address, Token: addr}
		if _, err := l.store.Load(ctx, pt); err != nil {
			return err
		}
		token, err := l.registry.LoadOrCreate(ctx, common.HexToAddress(addr), types.TailShort)
		if err != nil {
			return err
		}
		price, _, err := l.resolver.Resolve(ctx, token, asOf)
		if err != nil {
			return err
		}
		usd := pt.TVL.Mul(price)
		token.TVLUSD = token.TVLUSD.Sub(pt.TVLUSD).Add(usd)
		if err := l.store.Save(ctx, token); err != nil {
			return err
		}
		pt.TVLUSD = usd
		if err := l.store.Save(ctx, pt); err != nil {
			return err
		}
		total = total.Add(usd)
	}
	pool.PoolValueUSD = total
	return l.store.Save(ctx, pool)
}

// applyBalances reprices every token present in the balance result; rows for
// tokens the result omits keep their last known values.
func (l *PoolLedger) applyBalances(ctx context.Context, pool *models.Pool, balances map[string]*big.Int, supply *big.Int, asOf int64) error {
	addrs := make([]string, 0, len(balances))
	for addr := range balances {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	total := decimal.Zero
	for _, addr := range addrs {
		pt := &models.PoolToken{Pool: pool.Address, Token: addr}
		if _, err := l.store.Load(ctx, pt); err != nil {
			return err
		}
		token, err := l.registry.LoadOrCreate(ctx, common.HexToAddress(addr), types.TailShort)
		if err != nil {
			return err
		}
		price, _, err := l.resolver.Resolve(ctx, token, asOf)
		if err != nil {
			return err
		}

		raw := balances[addr]
		if raw == nil {
			raw = new(big.Int)
		}
		tvl := amount.ToDecimal(raw, token.Decimals)
		usd := tvl.Mul(price)

		token.TVL = token.TVL.Sub(pt.TVL).Add(tvl)
		token.TVLUSD = token.TVLUSD.Sub(pt.TVLUSD).Add(usd)
		if err := l.store.Save(ctx, token); err != nil {
			return err
		}

		pt.TVL = tvl
		pt.TVLUSD = usd
		if err := l.store.Save(ctx, pt); err != nil {
			return err
		}
		total = total.Add(usd)
	}

	pool.PoolValueUSD = total
	if supply != nil {
		pool.PoolTokensSupply = supply
	}
	return l.store.Save(ctx, pool)
}

// PoolsHolding returns the addresses of every pool holding token
func (l *PoolLedger) PoolsHolding(ctx context.Context, token string) ([]string, error) {
	index := &models.TokenPools{Token: token}
	if _, err := l.store.Load(ctx, index); err != nil {
		return nil, err
	}
	return index.Pools, nil
}
