// Package chain is the boundary to synchronous on-chain reads.
//
// Reads either succeed or revert; a revert is routine control flow for the
// accounting core (it selects a documented fallback path), so results are
// values carrying a Reverted flag rather than errors. Transport liveness is
// the host's problem and is collapsed into the revert case.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is the outcome of one contract read
type Call[T any] struct {
	Value    T
	Reverted bool
}

// Ok wraps a successful read
func Ok[T any](v T) Call[T] {
	return Call[T]{Value: v}
}

// Revert marks a failed read
func Revert[T any]() Call[T] {
	return Call[T]{Reverted: true}
}

// AllBalances is the result of the batched pool balance accessor
type AllBalances struct {
	Balances    []*big.Int
	Tokens      []common.Address
	TotalSupply *big.Int
}

// OracleAnswer is a price feed's latest answer with its precision
type OracleAnswer struct {
	Answer   *big.Int
	Decimals uint8
}

// Reader is the full read surface the accounting core consumes
type Reader interface {
	// TokenCount returns the number of constituent tokens of a pool
	TokenCount(ctx context.Context, pool common.Address) Call[*big.Int]
	// TokenAt returns the pool's constituent token at an index
	TokenAt(ctx context.Context, pool common.Address, index *big.Int) Call[common.Address]
	// BalanceOf returns holder's balance of an ERC20 token
	BalanceOf(ctx context.Context, token, holder common.Address) Call[*big.Int]
	// TotalSupply returns a token's total supply
	TotalSupply(ctx context.Context, token common.Address) Call[*big.Int]
	// AllTokensBalance returns balances, token addresses and LP supply in one read
	AllTokensBalance(ctx context.Context, pool common.Address) Call[AllBalances]

	// TokenSymbol returns an ERC20 symbol
	TokenSymbol(ctx context.Context, token common.Address) Call[string]
	// TokenName returns an ERC20 name
	TokenName(ctx context.Context, token common.Address) Call[string]
	// TokenDecimals returns an ERC20 decimals value
	TokenDecimals(ctx context.Context, token common.Address) Call[uint8]

	// LatestAnswer returns a price oracle's latest answer and precision
	LatestAnswer(ctx context.Context, oracle common.Address) Call[OracleAnswer]
	// Aggregator returns the aggregator implementation behind a proxy
	Aggregator(ctx context.Context, proxy common.Address) Call[common.Address]

	// CoveLastBalances returns the packed shares/asset balance word of a cove
	CoveLastBalances(ctx context.Context, cove, token common.Address) Call[*big.Int]
	// CoveDepositSupply returns a cove's internal deposit token supply
	CoveDepositSupply(ctx context.Context, cove, token common.Address) Call[*big.Int]
	// CovePool returns the parent pool of a cove contract
	CovePool(ctx context.Context, cove common.Address) Call[common.Address]
}
