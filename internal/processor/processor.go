// Package processor drives strictly ordered dispatch of decoded events into
// the accountants. Ordering is the caller's contract: events arrive sorted by
// block number then log index, and replaying the same sequence against the
// same pre-state produces byte-identical entities.
package processor

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pool-ledger/internal/accounting"
	"github.com/pool-ledger/internal/cove"
	"github.com/pool-ledger/internal/errors"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/logging"
)

// Subscriber receives the watch commands handlers emit, typically to widen
// the host's log filter. A nil subscriber drops commands.
type Subscriber interface {
	Apply(ctx context.Context, cmd accounting.Command) error
}

// Processor dispatches decoded events to the pool and cove accountants
type Processor struct {
	runID  string
	pools  *accounting.Accountant
	coves  *cove.Accountant
	sub    Subscriber
	logger *logging.Logger

	mu        sync.Mutex
	processed uint64
	skipped   uint64
	lastBlock uint64
	lastTime  int64
}

// Status is a point-in-time snapshot of a run for the status surface
type Status struct {
	RunID         string `json:"runId"`
	Processed     uint64 `json:"processed"`
	Skipped       uint64 `json:"skipped"`
	LastBlock     uint64 `json:"lastBlock"`
	LastBlockTime int64  `json:"lastBlockTime"`
}

// New creates a processor. The run ID is process metadata only; it never
// reaches the entities.
func New(pools *accounting.Accountant, coves *cove.Accountant, sub Subscriber, logger *logging.Logger) *Processor {
	return &Processor{
		runID:  uuid.NewString(),
		pools:  pools,
		coves:  coves,
		sub:    sub,
		logger: logger,
	}
}

// RunID returns the identifier of this processing run
func (p *Processor) RunID() string {
	return p.runID
}

// Status returns the run counters
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		RunID:         p.runID,
		Processed:     p.processed,
		Skipped:       p.skipped,
		LastBlock:     p.lastBlock,
		LastBlockTime: p.lastTime,
	}
}

// ProcessBatch dispatches events in slice order. The first handler error
// aborts the batch; everything already dispatched stays persisted, which is
// safe because a rerun converges on the same state.
func (p *Processor) ProcessBatch(ctx context.Context, evs []events.Event) error {
	for _, ev := range evs {
		if err := p.Process(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Process dispatches one event and applies any emitted commands
func (p *Processor) Process(ctx context.Context, ev events.Event) error {
	cmds, err := p.dispatch(ctx, ev)
	if err != nil {
		meta := ev.EventMeta()
		entry := p.logger.WithFields(map[string]interface{}{
			"block": meta.BlockNumber,
			"tx":    meta.TxHash.Hex(),
			"log":   meta.LogIndex,
		}).WithError(err)
		if errors.IsStructural(err) {
			entry.Error("Structural violation, aborting run")
		} else {
			entry.Error("Handler failed")
		}
		return err
	}

	for _, cmd := range cmds {
		if p.sub == nil {
			continue
		}
		if err := p.sub.Apply(ctx, cmd); err != nil {
			return err
		}
	}

	meta := ev.EventMeta()
	p.mu.Lock()
	p.processed++
	if meta.BlockNumber > p.lastBlock {
		p.lastBlock = meta.BlockNumber
		p.lastTime = meta.BlockTime
	}
	p.mu.Unlock()
	return nil
}

func (p *Processor) dispatch(ctx context.Context, ev events.Event) ([]accounting.Command, error) {
	switch e := ev.(type) {
	case *events.Deposited:
		return nil, p.pools.HandleDeposited(ctx, e)
	case *events.Withdrawn:
		return nil, p.pools.HandleWithdrawn(ctx, e)
	case *events.AssetWithdrawn:
		return nil, p.pools.HandleAssetWithdrawn(ctx, e)
	case *events.Swapped:
		return nil, p.pools.HandleSwapped(ctx, e)
	case *events.Transfer:
		return nil, p.pools.HandleTransfer(ctx, e)
	case *events.AnswerUpdated:
		return p.pools.HandleAnswerUpdated(ctx, e)
	case *events.FeesTaken:
		return nil, p.pools.HandleFeesTaken(ctx, e)
	case *events.VerifiedPoolCreated:
		return p.pools.HandleVerifiedPoolCreated(ctx, e)
	case *events.PermitRouterCreated:
		return nil, p.pools.HandlePermitRouterCreated(ctx, e)
	case *events.LpTransferCreated:
		return nil, p.pools.HandleLpTransferCreated(ctx, e)
	case *events.FarmCreated:
		return p.pools.HandleFarmCreated(ctx, e)
	case *events.FeeSplitCreated:
		return p.pools.HandleFeeSplitCreated(ctx, e)
	case *events.ProtocolDepositCreated:
		return p.pools.HandleProtocolDepositCreated(ctx, e)
	case *events.CoveDeposited:
		return nil, p.coves.HandleCoveDeposited(ctx, e)
	case *events.CoveWithdrawn:
		return nil, p.coves.HandleCoveWithdrawn(ctx, e)
	case *events.CoveSwapped:
		return nil, p.coves.HandleCoveSwapped(ctx, e)
	default:
		meta := ev.EventMeta()
		p.logger.WithFields(map[string]interface{}{
			"contract": meta.Contract.Hex(),
			"block":    meta.BlockNumber,
		}).Warn("Unhandled event type, skipping")
		p.mu.Lock()
		p.skipped++
		p.mu.Unlock()
		return nil, nil
	}
}
