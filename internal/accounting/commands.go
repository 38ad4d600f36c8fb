package accounting

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/pool-ledger/internal/types"
)

// Command is a subscription side-effect a handler asks the host to perform.
// Handlers return commands instead of reaching into the host so they stay
// testable without one.
type Command interface {
	isCommand()
}

// WatchPool asks the host to start delivering logs from a pool contract
type WatchPool struct {
	Address common.Address
	Variant types.PoolVariant
}

// WatchAggregator asks the host to start delivering AnswerUpdated logs from
// an oracle aggregator, typically after a proxy rotation
type WatchAggregator struct {
	Address common.Address
	Proxy   common.Address
}

// WatchVault asks the host to start delivering logs from a satellite vault
type WatchVault struct {
	Address common.Address
	Type    types.VaultType
}

// WatchCove asks the host to start delivering logs from a cove contract
type WatchCove struct {
	Address common.Address
}

func (WatchPool) isCommand()       {}
func (WatchAggregator) isCommand() {}
func (WatchVault) isCommand()      {}
func (WatchCove) isCommand()       {}
