// Package models defines the persisted entities of the accounting ledger.
//
// Every entity is create-if-absent and never deleted; identifiers are derived
// from content (addresses, transaction hashes, log indexes), never from
// processing order, so replaying an event stream writes the same rows.
package models

import "strings"

// Entity kinds as persisted in the entity store
const (
	KindToken              = "token"
	KindPool               = "pool"
	KindPoolToken          = "pool_token"
	KindTokenPools         = "token_pools"
	KindDeposit            = "deposit"
	KindWithdrawal         = "withdrawal"
	KindSwap               = "swap"
	KindPair               = "pair"
	KindPoolPair           = "pool_pair"
	KindTransactionSource  = "tx_source"
	KindPoolSource         = "pool_tx_source"
	KindCoveSource         = "cove_tx_source"
	KindUser               = "user"
	KindPoolEvent          = "pool_event"
	KindCove               = "cove"
	KindCoveParent         = "cove_parent"
	KindCoveDeposit        = "cove_deposit"
	KindCoveWithdrawal     = "cove_withdrawal"
	KindUserCoveStake      = "user_cove_stake"
	KindAggregatorProxy    = "price_aggregator_proxy"
	KindPoolVault          = "pool_vault"
	KindPoolLpTransfer     = "pool_lp_transfer"
	KindCoveSnapshot       = "cove_snapshot"
	KindCoveParentSnapshot = "cove_parent_snapshot"
	KindFeeTake            = "fee_take"
	KindSyncCursor         = "sync_cursor"
)

// Entity is anything the entity store can load and save
type Entity interface {
	// EntityKind returns the kind namespace of the entity
	EntityKind() string
	// EntityID returns the identity of the entity within its kind
	EntityID() string
}

// NormalizeAddress lowercases an address for use as an entity identifier
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// CompositeID joins identifier parts the way the ledger keys child entities
func CompositeID(parts ...string) string {
	return strings.Join(parts, ":")
}
