package models

import (
	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/types"
)

// Token is an ERC20 asset observed by the ledger. Metadata is fetched once at
// creation; price fields are mutated only by the price resolver's write-back.
type Token struct {
	Address  string          `json:"address"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Decimals int32           `json:"decimals"`
	Tail     types.TokenTail `json:"tail"`

	TxCount      int64           `json:"txCount"`
	Volume       decimal.Decimal `json:"volume"`
	VolumeUSD    decimal.Decimal `json:"volumeUsd"`
	TVL          decimal.Decimal `json:"tvl"`
	TVLUSD       decimal.Decimal `json:"tvlUsd"`
	DepositedUSD decimal.Decimal `json:"depositedUsd"`

	PriceUSD       decimal.Decimal   `json:"priceUsd"`
	PriceSource    types.PriceSource `json:"priceSource"`
	PriceUpdatedAt int64             `json:"priceUpdatedAt"`
}

func (t *Token) EntityKind() string { return KindToken }
func (t *Token) EntityID() string   { return NormalizeAddress(t.Address) }

// TokenPools is the reverse index from a token to every pool holding it.
// Maintained on PoolToken creation so oracle updates can revalue pools.
type TokenPools struct {
	Token string   `json:"token"`
	Pools []string `json:"pools"`
}

func (t *TokenPools) EntityKind() string { return KindTokenPools }
func (t *TokenPools) EntityID() string   { return NormalizeAddress(t.Token) }

// Add appends a pool to the index if absent, preserving insertion order
func (t *TokenPools) Add(pool string) bool {
	pool = NormalizeAddress(pool)
	for _, p := range t.Pools {
		if p == pool {
			return false
		}
	}
	t.Pools = append(t.Pools, pool)
	return true
}

// User is a wallet first observed as a transaction originator
type User struct {
	Wallet      string          `json:"wallet"`
	FirstSeenAt int64           `json:"firstSeenAt"`
	TxCount     int64           `json:"txCount"`
	VolumeUSD   decimal.Decimal `json:"volumeUsd"`
}

func (u *User) EntityKind() string { return KindUser }
func (u *User) EntityID() string   { return NormalizeAddress(u.Wallet) }
