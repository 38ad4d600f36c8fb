package main

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pool-ledger/internal/accounting"
	"github.com/pool-ledger/internal/config"
)

// watchSet is the mutable set of contracts whose logs the poller filters for.
// It grows as the accountants emit watch commands; addresses are never
// removed within a run.
type watchSet struct {
	mu    sync.RWMutex
	addrs map[common.Address]bool
}

func newWatchSet(dep *config.Deployment) *watchSet {
	w := &watchSet{addrs: make(map[common.Address]bool)}
	for _, addr := range initialAddresses(dep) {
		w.addrs[addr] = true
	}
	return w
}

// Apply implements processor.Subscriber.
func (w *watchSet) Apply(_ context.Context, cmd accounting.Command) error {
	var addrs []common.Address
	switch c := cmd.(type) {
	case accounting.WatchPool:
		addrs = append(addrs, c.Address)
	case accounting.WatchAggregator:
		addrs = append(addrs, c.Address, c.Proxy)
	case accounting.WatchVault:
		addrs = append(addrs, c.Address)
	case accounting.WatchCove:
		addrs = append(addrs, c.Address)
	}
	w.mu.Lock()
	for _, addr := range addrs {
		w.addrs[addr] = true
	}
	w.mu.Unlock()
	return nil
}

// Addresses returns a stable copy of the current watch list.
func (w *watchSet) Addresses() []common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]common.Address, 0, len(w.addrs))
	for addr := range w.addrs {
		out = append(out, addr)
	}
	return out
}
