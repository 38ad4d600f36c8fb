// Package events defines the typed payloads the accountants consume and
// decodes raw chain logs into them.
package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Meta carries the envelope every event shares: the emitting contract, the
// block position, and the transaction originator used for user attribution.
type Meta struct {
	Contract    common.Address
	BlockNumber uint64
	BlockTime   int64
	TxHash      common.Hash
	LogIndex    uint
	Origin      common.Address
}

// Event is any decoded payload
type Event interface {
	EventMeta() Meta
}

// Deposited is an LP-share mint against a pool
type Deposited struct {
	Meta
	Depositor  common.Address
	PoolTokens *big.Int
}

// Withdrawn is a proportional LP-share burn against a pool
type Withdrawn struct {
	Meta
	Withdrawer common.Address
	PoolTokens *big.Int
}

// AssetWithdrawn is a single-asset LP-share burn against a pool
type AssetWithdrawn struct {
	Meta
	Withdrawer  common.Address
	Asset       common.Address
	PoolTokens  *big.Int
	AssetAmount *big.Int
}

// Swapped is an asset exchange inside a pool
type Swapped struct {
	Meta
	InAsset       common.Address
	OutAsset      common.Address
	Recipient     common.Address
	InAmount      *big.Int
	OutAmount     *big.Int
	AuxiliaryData []byte
}

// Transfer is an LP-share ERC20 transfer on the pool contract
type Transfer struct {
	Meta
	From  common.Address
	To    common.Address
	Value *big.Int
}

// AnswerUpdated is a price feed aggregator round publication
type AnswerUpdated struct {
	Meta
	Current   *big.Int
	RoundID   *big.Int
	UpdatedAt int64
}

// FeesTaken is a fee collection by a fee-split vault
type FeesTaken struct {
	Meta
	Amount *big.Int
}

// CoveDeposited is an LP-share stake into a cove
type CoveDeposited struct {
	Meta
	Asset     common.Address
	Depositor common.Address
	// PoolTokens is the cove's internal deposit-token amount minted for
	// this stake; PoolTokensAfterDeposit the internal supply after it
	PoolTokens             *big.Int
	PoolTokensAfterDeposit *big.Int
}

// CoveWithdrawn is an LP-share unstake out of a cove
type CoveWithdrawn struct {
	Meta
	Asset                     common.Address
	Withdrawer                common.Address
	PoolTokens                *big.Int
	PoolTokensAfterWithdrawal *big.Int
}

// CoveSwapped is a long-tail asset exchange routed through a cove
type CoveSwapped struct {
	Meta
	InAsset       common.Address
	OutAsset      common.Address
	Recipient     common.Address
	InAmount      *big.Int
	OutAmount     *big.Int
	AuxiliaryData []byte
}

// VerifiedPoolCreated is a registry deployment of a new verified pool
type VerifiedPoolCreated struct {
	Meta
	Pool common.Address
}

// PermitRouterCreated is a registry deployment of a permit router for a pool
type PermitRouterCreated struct {
	Meta
	Pool   common.Address
	Router common.Address
}

// LpTransferCreated is a registry deployment of an LP migration contract
type LpTransferCreated struct {
	Meta
	OldPool    common.Address
	NewPool    common.Address
	LpTransfer common.Address
}

// FarmCreated is a registry deployment of a farm vault for a pool
type FarmCreated struct {
	Meta
	Pool        common.Address
	Vault       common.Address
	RewardToken common.Address
	Name        string
}

// FeeSplitCreated is a registry deployment of a fee-split vault for a pool
type FeeSplitCreated struct {
	Meta
	Pool  common.Address
	Vault common.Address
}

// ProtocolDepositCreated is a registry deployment of a protocol deposit
// vault for a pool
type ProtocolDepositCreated struct {
	Meta
	Pool  common.Address
	Vault common.Address
	Name  string
}

func (m Meta) EventMeta() Meta { return m }
