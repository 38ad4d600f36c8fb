package models

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/types"
)

// Pool is a multi-asset liquidity contract and its running aggregates.
// PoolValueUSD is always the sum of the pool's PoolToken TVLUSD values.
type Pool struct {
	Address   string            `json:"address"`
	Variant   types.PoolVariant `json:"variant"`
	CreatedAt int64             `json:"createdAt"`

	// Tokens is the discovered constituent set, in probe order
	Tokens []string `json:"tokens"`

	TxCount    int64           `json:"txCount"`
	VolumeUSD  decimal.Decimal `json:"volumeUsd"`
	FeeUSD     decimal.Decimal `json:"feeUsd"`
	RevenueUSD decimal.Decimal `json:"revenueUsd"`

	DepositCount int64           `json:"depositCount"`
	DepositedUSD decimal.Decimal `json:"depositedUsd"`

	WithdrawalCount int64           `json:"withdrawalCount"`
	WithdrewUSD     decimal.Decimal `json:"withdrewUsd"`

	PoolValueUSD     decimal.Decimal `json:"poolValueUsd"`
	PoolTokensSupply *big.Int        `json:"poolTokensSupply"`
	UniqueUsers      int64           `json:"uniqueUsers"`

	// PermitRouter is set by the pool registry when a router is deployed
	PermitRouter string `json:"permitRouter,omitempty"`

	// FeeSplitShares is the running count of LP shares held by the pool's
	// fee-split address set; FeeSplitTracked is false until the first
	// authoritative recount seeds it
	FeeSplitShares  *big.Int `json:"feeSplitShares,omitempty"`
	FeeSplitTracked bool     `json:"feeSplitTracked"`
}

func (p *Pool) EntityKind() string { return KindPool }
func (p *Pool) EntityID() string   { return NormalizeAddress(p.Address) }

// AddToken appends a constituent token if absent, preserving probe order
func (p *Pool) AddToken(token string) bool {
	token = NormalizeAddress(token)
	for _, t := range p.Tokens {
		if t == token {
			return false
		}
	}
	p.Tokens = append(p.Tokens, token)
	return true
}

// Supply returns the pool token supply, never nil
func (p *Pool) Supply() *big.Int {
	if p.PoolTokensSupply == nil {
		return new(big.Int)
	}
	return p.PoolTokensSupply
}

// PoolToken is the per-pool balance of one constituent token
type PoolToken struct {
	Pool   string          `json:"pool"`
	Token  string          `json:"token"`
	TVL    decimal.Decimal `json:"tvl"`
	TVLUSD decimal.Decimal `json:"tvlUsd"`
}

func (pt *PoolToken) EntityKind() string { return KindPoolToken }
func (pt *PoolToken) EntityID() string {
	return CompositeID(NormalizeAddress(pt.Pool), NormalizeAddress(pt.Token))
}

// PoolEvent is one entry in the per-pool time series, keyed by the event that
// produced it
type PoolEvent struct {
	Pool     string              `json:"pool"`
	Type     types.PoolEventType `json:"type"`
	TxHash   string              `json:"txHash"`
	LogIndex uint                `json:"logIndex"`

	Timestamp        int64           `json:"timestamp"`
	AmountUSD        decimal.Decimal `json:"amountUsd"`
	SwapFeeUSD       decimal.Decimal `json:"swapFeeUsd"`
	SwapRevenueUSD   decimal.Decimal `json:"swapRevenueUsd"`
	SwapVolumeUSD    decimal.Decimal `json:"swapVolumeUsd"`
	PoolValueUSD     decimal.Decimal `json:"poolValueUsd"`
	PoolTokensSupply *big.Int        `json:"poolTokensSupply"`
}

func (e *PoolEvent) EntityKind() string { return KindPoolEvent }
func (e *PoolEvent) EntityID() string {
	return CompositeID(e.TxHash, itoa(e.LogIndex), string(e.Type))
}

// PoolVault is a satellite vault registered against a pool
type PoolVault struct {
	Address   string          `json:"address"`
	Pool      string          `json:"pool"`
	Type      types.VaultType `json:"type"`
	Name      string          `json:"name,omitempty"`
	CreatedAt int64           `json:"createdAt"`

	// Farm vaults
	RewardToken   string `json:"rewardToken,omitempty"`
	FarmingHelper string `json:"farmingHelper,omitempty"`

	// Protocol deposit vaults
	TransferHelper string `json:"transferHelper,omitempty"`
}

func (v *PoolVault) EntityKind() string { return KindPoolVault }
func (v *PoolVault) EntityID() string   { return NormalizeAddress(v.Address) }

// PoolLpTransfer records an LP migration contract between two pools
type PoolLpTransfer struct {
	Address   string `json:"address"`
	OldPool   string `json:"oldPool"`
	NewPool   string `json:"newPool"`
	CreatedAt int64  `json:"createdAt"`
}

func (l *PoolLpTransfer) EntityKind() string { return KindPoolLpTransfer }
func (l *PoolLpTransfer) EntityID() string   { return NormalizeAddress(l.Address) }
