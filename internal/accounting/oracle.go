package accounting

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/types"
)

// HandleAnswerUpdated reacts to a price feed publishing a new round: the
// token behind the feed is repriced and every pool holding it is revalued
// from its cached balances. A detected aggregator rotation is returned as a
// watch command for the host.
func (a *Accountant) HandleAnswerUpdated(ctx context.Context, ev *events.AnswerUpdated) ([]Command, error) {
	tokenAddr, proxy, ok := a.feedToken(ctx, ev.Contract)
	if !ok {
		a.logger.WithField("feed", ev.Contract.Hex()).Warn("answer from an unknown feed, skipping")
		return nil, nil
	}

	token, err := a.registry.LoadOrCreate(ctx, common.HexToAddress(tokenAddr), types.TailShort)
	if err != nil {
		return nil, err
	}

	// force the resolver past its freshness window so the new answer lands
	token.PriceUpdatedAt = 0
	if _, _, err := a.resolver.Resolve(ctx, token, ev.BlockTime); err != nil {
		return nil, err
	}

	pools, err := a.ledger.PoolsHolding(ctx, tokenAddr)
	if err != nil {
		return nil, err
	}
	for _, addr := range pools {
		pool := &models.Pool{Address: addr}
		found, err := a.store.Load(ctx, pool)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if err := a.ledger.RevalueFromCache(ctx, pool, ev.BlockTime); err != nil {
			return nil, err
		}
		if err := a.emitPoolEvent(ctx, pool, types.PoolEventOracleUpdate, ev.Meta, zero, zero, zero, zero); err != nil {
			return nil, err
		}
	}

	var cmds []Command
	if aggregator, rotated, err := a.resolver.CheckAggregator(ctx, proxy, ev.BlockTime); err != nil {
		return nil, err
	} else if rotated {
		cmds = append(cmds, WatchAggregator{Address: aggregator, Proxy: proxy})
	}
	return cmds, nil
}

// feedToken maps the emitting feed address to the token it prices. The feed
// may be the configured proxy itself or the aggregator currently recorded
// behind one of the configured proxies.
func (a *Accountant) feedToken(ctx context.Context, feed common.Address) (string, common.Address, bool) {
	addr := models.NormalizeAddress(feed.Hex())
	byOracle := a.dep.TokenByOracle()
	if token, ok := byOracle[addr]; ok {
		return token, feed, true
	}
	// sorted so two proxies recording the same aggregator always resolve
	// to the same token
	proxies := make([]string, 0, len(byOracle))
	for proxyAddr := range byOracle {
		proxies = append(proxies, proxyAddr)
	}
	sort.Strings(proxies)
	for _, proxyAddr := range proxies {
		entity := &models.PriceAggregatorProxy{Proxy: proxyAddr}
		found, err := a.store.Load(ctx, entity)
		if err != nil || !found {
			continue
		}
		if entity.Aggregator == addr {
			return byOracle[proxyAddr], common.HexToAddress(proxyAddr), true
		}
	}
	return "", common.Address{}, false
}
