package models

import "github.com/shopspring/decimal"

// Pair accumulates swap volume for an unordered token pair. The identity is
// canonical: loading tries both orderings before creating, so (A,B) and (B,A)
// resolve to one record.
type Pair struct {
	Asset0    string          `json:"asset0"`
	Asset1    string          `json:"asset1"`
	TxCount   int64           `json:"txCount"`
	VolumeUSD decimal.Decimal `json:"volumeUsd"`
}

func (p *Pair) EntityKind() string { return KindPair }
func (p *Pair) EntityID() string {
	return CompositeID(NormalizeAddress(p.Asset0), NormalizeAddress(p.Asset1))
}

// PairID builds the identifier for a given ordering of two assets
func PairID(asset0, asset1 string) string {
	return CompositeID(NormalizeAddress(asset0), NormalizeAddress(asset1))
}

// PoolPair scopes pair volume to one pool
type PoolPair struct {
	Pool      string          `json:"pool"`
	Pair      string          `json:"pair"`
	TxCount   int64           `json:"txCount"`
	VolumeUSD decimal.Decimal `json:"volumeUsd"`
}

func (p *PoolPair) EntityKind() string { return KindPoolPair }
func (p *PoolPair) EntityID() string {
	return CompositeID(NormalizeAddress(p.Pool), p.Pair)
}

// TransactionSource aggregates volume per originating integration
type TransactionSource struct {
	Name      string          `json:"name"`
	TxCount   int64           `json:"txCount"`
	VolumeUSD decimal.Decimal `json:"volumeUsd"`
}

func (s *TransactionSource) EntityKind() string { return KindTransactionSource }
func (s *TransactionSource) EntityID() string   { return s.Name }

// PoolTransactionSource scopes source volume to one pool
type PoolTransactionSource struct {
	Pool      string          `json:"pool"`
	Source    string          `json:"source"`
	TxCount   int64           `json:"txCount"`
	VolumeUSD decimal.Decimal `json:"volumeUsd"`
}

func (s *PoolTransactionSource) EntityKind() string { return KindPoolSource }
func (s *PoolTransactionSource) EntityID() string {
	return CompositeID(NormalizeAddress(s.Pool), s.Source)
}

// CoveTransactionSource scopes source volume to one cove
type CoveTransactionSource struct {
	Cove      string          `json:"cove"`
	Source    string          `json:"source"`
	TxCount   int64           `json:"txCount"`
	VolumeUSD decimal.Decimal `json:"volumeUsd"`
}

func (s *CoveTransactionSource) EntityKind() string { return KindCoveSource }
func (s *CoveTransactionSource) EntityID() string {
	return CompositeID(s.Cove, s.Source)
}
