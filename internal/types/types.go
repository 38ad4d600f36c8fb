// Package types provides common type definitions for the pool ledger system.
package types

// PriceSource identifies how a token's USD price was resolved
type PriceSource string

const (
	// PriceSourceOracle means the price came from a live or cached oracle reading
	PriceSourceOracle PriceSource = "ORACLE"
	// PriceSourceFallback means the price came from the historical or static fallback tables
	PriceSourceFallback PriceSource = "FALLBACK"
	// PriceSourceUnresolved means no price could be determined
	PriceSourceUnresolved PriceSource = "UNRESOLVED"
)

// PoolVariant tags the contract ABI family a pool was deployed from
type PoolVariant string

const (
	// VariantCommonExchangeV0 is the common exchange family with the batched balance call
	VariantCommonExchangeV0 PoolVariant = "CommonExchangeV0"
	// VariantDirectExchangeV0 is the oldest family; it lacks the batched balance call
	VariantDirectExchangeV0 PoolVariant = "DirectExchangeV0"
	// VariantVerifiedExchange is the registry-created verified exchange family
	VariantVerifiedExchange PoolVariant = "VerifiedExchange"
)

// HasBatchedBalances reports whether the variant exposes the single batched
// balances/tokens/totalSupply accessor
func (v PoolVariant) HasBatchedBalances() bool {
	return v != VariantDirectExchangeV0
}

// TokenTail classifies a token as a core pool asset or a long-tail cove asset
type TokenTail string

const (
	// TailShort marks assets held directly by pools
	TailShort TokenTail = "SHORTTAIL"
	// TailLong marks assets traded through coves
	TailLong TokenTail = "LONGTAIL"
)

// SwapKind distinguishes pool swaps from cove swaps
type SwapKind string

const (
	// SwapPool is a swap executed against a pool's own inventory
	SwapPool SwapKind = "POOL"
	// SwapCove is a swap routed through a cove
	SwapCove SwapKind = "COVE"
)

// VaultType identifies the role of a satellite vault contract
type VaultType string

const (
	// VaultFarm is a linear-vesting farming vault
	VaultFarm VaultType = "FARM"
	// VaultFeeSplit is a revenue fee-split vault
	VaultFeeSplit VaultType = "FEE_SPLIT"
	// VaultProtocolDeposit is a protocol-owned deposit vault
	VaultProtocolDeposit VaultType = "PROTOCOL_DEPOSIT"
)

// PoolEventType tags entries of the per-pool event time series
type PoolEventType string

const (
	// PoolEventDeposit records a liquidity deposit
	PoolEventDeposit PoolEventType = "DEPOSIT"
	// PoolEventWithdrawal records a liquidity withdrawal
	PoolEventWithdrawal PoolEventType = "WITHDRAWAL"
	// PoolEventSwap records a swap
	PoolEventSwap PoolEventType = "SWAP"
	// PoolEventOracleUpdate records a revaluation triggered by an oracle answer
	PoolEventOracleUpdate PoolEventType = "ORACLE_UPDATE"
)

// SnapshotPeriod is the bucket width of historical snapshots
type SnapshotPeriod string

const (
	// PeriodDaily buckets snapshots by UTC day
	PeriodDaily SnapshotPeriod = "DAILY"
	// PeriodHourly buckets snapshots by hour
	PeriodHourly SnapshotPeriod = "HOURLY"
)

// Bucket widths in seconds
const (
	OneHour int64 = 3600
	OneDay  int64 = 86400
)

// BucketStart returns the start of the bucket of the given width containing ts
func BucketStart(ts, width int64) int64 {
	return ts - ts%width
}
