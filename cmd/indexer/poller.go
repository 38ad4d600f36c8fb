package main

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/processor"
	"github.com/pool-ledger/internal/store"
)

const (
	// cursorName keys the persisted scan position.
	cursorName = "log_scan"

	// chunkBlocks bounds a single FilterLogs range; RPC providers cap the
	// span they will serve in one call.
	chunkBlocks = 2000
)

// poller drives the indexing loop: every PollInterval it scans confirmed
// blocks past the persisted cursor, filters logs from the watched contracts
// and feeds them, strictly ordered, into the processor.
type poller struct {
	client  *ethclient.Client
	decoder *events.Decoder
	proc    *processor.Processor
	store   store.Store
	watch   *watchSet
	logger  *logging.Logger
	cfg     config.ChainConfig
	genesis uint64

	// per-scan caches; block timestamps and transaction senders are shared
	// by every log in the same block or transaction
	blockTimes map[uint64]int64
	txOrigins  map[common.Hash]common.Address
}

func (p *poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := p.scan(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.WithError(err).Error("Scan failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// scan advances the cursor to the confirmed head, one chunk at a time. The
// cursor is persisted after every chunk so a restart resumes where the last
// completed chunk ended.
func (p *poller) scan(ctx context.Context) error {
	head, err := p.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("reading chain head: %w", err)
	}
	if head < p.cfg.Confirmations {
		return nil
	}
	target := head - p.cfg.Confirmations

	cursor := &models.SyncCursor{Name: cursorName}
	found, err := p.store.Load(ctx, cursor)
	if err != nil {
		return fmt.Errorf("loading sync cursor: %w", err)
	}
	from := p.genesis
	if found {
		from = cursor.Block + 1
	}

	for from <= target {
		to := from + chunkBlocks - 1
		if to > target {
			to = target
		}
		if err := p.scanRange(ctx, from, to); err != nil {
			return err
		}
		cursor.Block = to
		if err := p.store.Save(ctx, cursor); err != nil {
			return fmt.Errorf("saving sync cursor: %w", err)
		}
		from = to + 1
	}
	return nil
}

func (p *poller) scanRange(ctx context.Context, from, to uint64) error {
	logs, err := p.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: p.watch.Addresses(),
	})
	if err != nil {
		return fmt.Errorf("filtering logs %d-%d: %w", from, to, err)
	}
	if len(logs) == 0 {
		return nil
	}

	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	p.blockTimes = make(map[uint64]int64)
	p.txOrigins = make(map[common.Hash]common.Address)

	var batch []events.Event
	for _, l := range logs {
		ev, err := p.decode(ctx, l)
		if err != nil {
			return err
		}
		if ev == nil {
			continue
		}
		batch = append(batch, ev)
	}

	p.logger.WithFields(map[string]interface{}{
		"from":   from,
		"to":     to,
		"logs":   len(logs),
		"events": len(batch),
	}).Debug("Scanned block range")

	return p.proc.ProcessBatch(ctx, batch)
}

func (p *poller) decode(ctx context.Context, l ethtypes.Log) (events.Event, error) {
	blockTime, err := p.blockTime(ctx, l.BlockNumber)
	if err != nil {
		return nil, err
	}
	origin, err := p.txOrigin(ctx, l.TxHash)
	if err != nil {
		return nil, err
	}
	ev, err := p.decoder.Decode(l, blockTime, origin)
	if err != nil {
		return nil, fmt.Errorf("decoding log %s/%d: %w", l.TxHash.Hex(), l.Index, err)
	}
	return ev, nil
}

func (p *poller) blockTime(ctx context.Context, number uint64) (int64, error) {
	if ts, ok := p.blockTimes[number]; ok {
		return ts, nil
	}
	header, err := p.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("reading header %d: %w", number, err)
	}
	ts := int64(header.Time) // #nosec G115
	p.blockTimes[number] = ts
	return ts, nil
}

func (p *poller) txOrigin(ctx context.Context, txHash common.Hash) (common.Address, error) {
	if origin, ok := p.txOrigins[txHash]; ok {
		return origin, nil
	}
	tx, _, err := p.client.TransactionByHash(ctx, txHash)
	if err != nil {
		return common.Address{}, fmt.Errorf("reading transaction %s: %w", txHash.Hex(), err)
	}
	origin, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering sender of %s: %w", txHash.Hex(), err)
	}
	p.txOrigins[txHash] = origin
	return origin, nil
}
