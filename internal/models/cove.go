package models

import (
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/types"
)

// Cove is a single-asset satellite position on a parent pool
type Cove struct {
	Parent      string `json:"parent"`
	Pool        string `json:"pool"`
	Asset       string `json:"asset"`
	AssetSymbol string `json:"assetSymbol"`
	AssetName   string `json:"assetName"`
	CreatedAt   int64  `json:"createdAt"`
	Creator     string `json:"creator"`
	TxHash      string `json:"txHash"`

	PoolTokenAmount     decimal.Decimal `json:"poolTokenAmount"`
	LongtailTokenAmount decimal.Decimal `json:"longtailTokenAmount"`
	TVLUSD              decimal.Decimal `json:"tvlUsd"`

	VolumeUSD       decimal.Decimal `json:"volumeUsd"`
	SwapCount       int64           `json:"swapCount"`
	DepositCount    int64           `json:"depositCount"`
	WithdrawalCount int64           `json:"withdrawalCount"`
}

func (c *Cove) EntityKind() string { return KindCove }
func (c *Cove) EntityID() string   { return CoveID(c.Parent, c.Asset) }

// CoveID builds a cove identity from its parent contract and asset
func CoveID(parent, asset string) string {
	return CompositeID(NormalizeAddress(parent), NormalizeAddress(asset))
}

// CoveParent aggregates every cove under one satellite contract
type CoveParent struct {
	Address   string `json:"address"`
	Pool      string `json:"pool"`
	CreatedAt int64  `json:"createdAt"`

	TxCount         int64           `json:"txCount"`
	DepositCount    int64           `json:"depositCount"`
	WithdrawalCount int64           `json:"withdrawalCount"`
	VolumeUSD       decimal.Decimal `json:"volumeUsd"`
}

func (p *CoveParent) EntityKind() string { return KindCoveParent }
func (p *CoveParent) EntityID() string   { return NormalizeAddress(p.Address) }

// CoveDeposit is an immutable record of a cove deposit
type CoveDeposit struct {
	TxHash    string          `json:"txHash"`
	Timestamp int64           `json:"timestamp"`
	Cove      string          `json:"cove"`
	Depositor string          `json:"depositor"`
	AmountUSD decimal.Decimal `json:"amountUsd"`
}

func (d *CoveDeposit) EntityKind() string { return KindCoveDeposit }
func (d *CoveDeposit) EntityID() string   { return d.TxHash }

// CoveWithdrawal is an immutable record of a cove withdrawal
type CoveWithdrawal struct {
	TxHash     string          `json:"txHash"`
	Timestamp  int64           `json:"timestamp"`
	Cove       string          `json:"cove"`
	Withdrawer string          `json:"withdrawer"`
	AmountUSD  decimal.Decimal `json:"amountUsd"`
}

func (w *CoveWithdrawal) EntityKind() string { return KindCoveWithdrawal }
func (w *CoveWithdrawal) EntityID() string   { return w.TxHash }

// UserCoveStake tracks a wallet's outstanding internal deposit-share balance
// in one cove; a zero balance marks the stake inactive
type UserCoveStake struct {
	Cove          string   `json:"cove"`
	Wallet        string   `json:"wallet"`
	DepositTokens *big.Int `json:"depositTokens"`
	Active        bool     `json:"active"`
}

func (s *UserCoveStake) EntityKind() string { return KindUserCoveStake }
func (s *UserCoveStake) EntityID() string {
	return CompositeID(s.Cove, NormalizeAddress(s.Wallet))
}

// Tokens returns the stake balance, never nil
func (s *UserCoveStake) Tokens() *big.Int {
	if s.DepositTokens == nil {
		return new(big.Int)
	}
	return s.DepositTokens
}

// CoveSnapshot is a periodic per-cove activity bucket
type CoveSnapshot struct {
	Cove   string               `json:"cove"`
	Period types.SnapshotPeriod `json:"period"`
	Bucket int64                `json:"bucket"`

	TxCount         int64           `json:"txCount"`
	DepositCount    int64           `json:"depositCount"`
	WithdrawalCount int64           `json:"withdrawalCount"`
	VolumeUSD       decimal.Decimal `json:"volumeUsd"`
	Price           decimal.Decimal `json:"price"`
}

func (s *CoveSnapshot) EntityKind() string { return KindCoveSnapshot }
func (s *CoveSnapshot) EntityID() string {
	return CompositeID(s.Cove, string(s.Period), strconv.FormatInt(s.Bucket, 10))
}

// CoveParentSnapshot is a periodic all-coves activity bucket
type CoveParentSnapshot struct {
	Parent string               `json:"parent"`
	Period types.SnapshotPeriod `json:"period"`
	Bucket int64                `json:"bucket"`

	TxCount         int64           `json:"txCount"`
	DepositCount    int64           `json:"depositCount"`
	WithdrawalCount int64           `json:"withdrawalCount"`
	VolumeUSD       decimal.Decimal `json:"volumeUsd"`
}

func (s *CoveParentSnapshot) EntityKind() string { return KindCoveParentSnapshot }
func (s *CoveParentSnapshot) EntityID() string {
	return CompositeID(NormalizeAddress(s.Parent), string(s.Period), strconv.FormatInt(s.Bucket, 10))
}
