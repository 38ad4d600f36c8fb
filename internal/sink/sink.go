// Package sink ships the ledger's immutable records to external history
// surfaces. Sinks are optional: the entity store stays the source of truth
// and a sink outage never fails accounting, it only leaves a gap that a
// replay refills.
package sink

import (
	"context"
	"encoding/json"

	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/store"
)

// Record is one immutable ledger record in wire form
type Record struct {
	Kind string          `json:"kind"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Recorder receives immutable records
type Recorder interface {
	Record(ctx context.Context, rec Record) error
	Close() error
}

// recordKinds is the set of append-only record entities worth shipping;
// mutable aggregates (pools, tokens, counters) are not history.
var recordKinds = map[string]bool{
	models.KindDeposit:        true,
	models.KindWithdrawal:     true,
	models.KindSwap:           true,
	models.KindPoolEvent:      true,
	models.KindCoveDeposit:    true,
	models.KindCoveWithdrawal: true,
	models.KindFeeTake:        true,
}

// Tee is a store decorator forwarding record-kind saves to recorders after
// the backing save succeeds
type Tee struct {
	backing   store.Store
	recorders []Recorder
	logger    *logging.Logger
}

// NewTee wraps a store with record forwarding
func NewTee(backing store.Store, logger *logging.Logger, recorders ...Recorder) *Tee {
	return &Tee{backing: backing, recorders: recorders, logger: logger}
}

func (t *Tee) Load(ctx context.Context, entity models.Entity) (bool, error) {
	return t.backing.Load(ctx, entity)
}

func (t *Tee) Save(ctx context.Context, entity models.Entity) error {
	if err := t.backing.Save(ctx, entity); err != nil {
		return err
	}
	if !recordKinds[entity.EntityKind()] || len(t.recorders) == 0 {
		return nil
	}

	data, err := json.Marshal(entity)
	if err != nil {
		t.logger.WithFields(map[string]interface{}{
			"kind": entity.EntityKind(),
			"id":   entity.EntityID(),
		}).WithError(err).Warn("Failed to marshal record for sinks")
		return nil
	}
	rec := Record{Kind: entity.EntityKind(), ID: entity.EntityID(), Data: data}
	for _, r := range t.recorders {
		if err := r.Record(ctx, rec); err != nil {
			t.logger.WithFields(map[string]interface{}{
				"kind": rec.Kind,
				"id":   rec.ID,
			}).WithError(err).Warn("Record sink write failed")
		}
	}
	return nil
}

// Close closes every recorder
func (t *Tee) Close() error {
	var firstErr error
	for _, r := range t.recorders {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
