// Package pricing resolves token USD prices through the oracle and
// fallback chain.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/chain"
	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/store"
	"github.com/pool-ledger/internal/types"
)

// OracleFreshness is how long a cached oracle price keeps serving reads
// before the resolver goes back to the chain.
const OracleFreshness = types.OneDay

// Resolver turns a token into a USD price using, in priority order: a fresh
// cached oracle reading, a live oracle read, the dated fallback table, then
// the static fallback table. An exhausted chain yields zero with source
// UNRESOLVED; callers treat that as a zero contribution, never an error.
type Resolver struct {
	store  store.Store
	chain  chain.Reader
	dep    *config.Deployment
	logger *logging.Logger
}

// NewResolver creates a price resolver
func NewResolver(s store.Store, reader chain.Reader, dep *config.Deployment, logger *logging.Logger) *Resolver {
	return &Resolver{store: s, chain: reader, dep: dep, logger: logger}
}

// Resolve returns the USD price of token as of the given timestamp and
// writes any change back to the token entity.
func (r *Resolver) Resolve(ctx context.Context, token *models.Token, asOf int64) (decimal.Decimal, types.PriceSource, error) {
	if token.PriceSource == types.PriceSourceOracle && asOf-token.PriceUpdatedAt < OracleFreshness {
		return token.PriceUSD, types.PriceSourceOracle, nil
	}

	price, source := r.lookup(ctx, token, asOf)
	if source == token.PriceSource && price.Equal(token.PriceUSD) && source != types.PriceSourceOracle {
		return price, source, nil
	}

	token.PriceUSD = price
	token.PriceSource = source
	token.PriceUpdatedAt = asOf
	if err := r.store.Save(ctx, token); err != nil {
		return decimal.Zero, types.PriceSourceUnresolved, err
	}
	return price, source, nil
}

func (r *Resolver) lookup(ctx context.Context, token *models.Token, asOf int64) (decimal.Decimal, types.PriceSource) {
	if oracle := r.dep.OracleFor(token.Address); oracle != nil && oracle.ActiveFrom <= asOf {
		answer := r.chain.LatestAnswer(ctx, common.HexToAddress(oracle.Proxy))
		if !answer.Reverted && answer.Value.Answer.Sign() > 0 {
			price := decimal.NewFromBigInt(answer.Value.Answer, 0).Shift(-int32(answer.Value.Decimals))
			return price, types.PriceSourceOracle
		}
		r.logger.WithField("token", token.Address).Debug("oracle read failed, falling back")
	}

	if price, ok := r.dep.DailyPrice(token.Address, asOf); ok {
		return price, types.PriceSourceFallback
	}
	if price, ok := r.dep.StaticPrice(token.Address); ok {
		return price, types.PriceSourceFallback
	}
	return decimal.Zero, types.PriceSourceUnresolved
}

// CheckAggregator re-reads the aggregator behind an oracle proxy at most once
// per day and records a rotation when the address changed. It returns the
// new aggregator address and true when a rotation was observed.
func (r *Resolver) CheckAggregator(ctx context.Context, proxy common.Address, asOf int64) (common.Address, bool, error) {
	entity := &models.PriceAggregatorProxy{Proxy: models.NormalizeAddress(proxy.Hex())}
	found, err := r.store.Load(ctx, entity)
	if err != nil {
		return common.Address{}, false, err
	}
	if found && asOf-entity.LastCheckedAt < types.OneDay {
		return common.Address{}, false, nil
	}

	entity.LastCheckedAt = asOf
	current := r.chain.Aggregator(ctx, proxy)
	if current.Reverted {
		return common.Address{}, false, r.store.Save(ctx, entity)
	}

	aggregator := models.NormalizeAddress(current.Value.Hex())
	rotated := found && entity.Aggregator != "" && entity.Aggregator != aggregator
	if entity.Aggregator != aggregator {
		entity.Aggregator = aggregator
		entity.ConfirmedAt = asOf
	}
	if err := r.store.Save(ctx, entity); err != nil {
		return common.Address{}, false, err
	}
	if rotated {
		r.logger.WithFields(map[string]interface{}{
			"proxy":      entity.Proxy,
			"aggregator": aggregator,
		}).Info("oracle aggregator rotated")
	}
	return current.Value, rotated, nil
}
