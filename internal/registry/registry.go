// Package registry materializes token entities from on-chain metadata.
package registry

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

// Metadata defaults used when a token contract reverts the corresponding read
const (
	UnknownSymbol   = "unknown"
	UnknownName     = "unknown"
	DefaultDecimals = 18
)

// TokenRegistry creates token entities on first sight and hands back the
// stored record on every later one.
type TokenRegistry struct {
	store  store.Store
	chain  chain.Reader
	dep    *config.Deployment
	logger *logging.Logger
}

// NewTokenRegistry creates a token registry
func NewTokenRegistry(s store.Store, reader chain.Reader, dep *config.Deployment, logger *logging.Logger) *TokenRegistry {
	return &TokenRegistry{store: s, chain: reader, dep: dep, logger: logger}
}

// LoadOrCreate returns the token entity for addr, reading symbol, name and
// decimals from the contract the first time. Reverted metadata reads fall
// back to defaults rather than failing; the zero address is the chain's
// native asset and is never read.
func (r *TokenRegistry) LoadOrCreate(ctx context.Context, addr common.Address, tail types.TokenTail) (*models.Token, error) {
	token := &models.Token{Address: models.NormalizeAddress(addr.Hex())}
	found, err := r.store.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	if found {
		return token, nil
	}

	token.Decimals = DefaultDecimals
	token.Tail = tail
	if r.dep.IsShortTail(token.Address) {
		token.Tail = types.TailShort
	}
	token.PriceSource = types.PriceSourceUnresolved
	token.PriceUSD = decimal.Zero
	token.Volume = decimal.Zero
	token.VolumeUSD = decimal.Zero
	token.TVL = decimal.Zero
	token.TVLUSD = decimal.Zero
	token.DepositedUSD = decimal.Zero

	if addr == (common.Address{}) {
		token.Symbol = r.dep.Native.Symbol
		token.Name = r.dep.Native.Name
	} else {
		token.Symbol = UnknownSymbol
		token.Name = UnknownName
		if symbol := r.chain.TokenSymbol(ctx, addr); !symbol.Reverted {
			token.Symbol = symbol.Value
		}
		if name := r.chain.TokenName(ctx, addr); !name.Reverted {
			token.Name = name.Value
		}
		if decimals := r.chain.TokenDecimals(ctx, addr); !decimals.Reverted {
			token.Decimals = int32(decimals.Value)
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"token":  token.Address,
		"symbol": token.Symbol,
		"tail":   string(token.Tail),
	}).Info("registered token")

	if err := r.store.Save(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}
