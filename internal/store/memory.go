package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pool-ledger/internal/errors"
	"github.com/pool-ledger/internal/models"
)

// Memory is an in-process Store keyed by kind and entity ID. Entities are
// held as JSON so Load always hands back an independent copy.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func memKey(e models.Entity) string {
	return e.EntityKind() + "\x00" + e.EntityID()
}

// Load fills e from the store, returning false when the entity is absent
func (m *Memory) Load(ctx context.Context, e models.Entity) (bool, error) {
	m.mu.RLock()
	data, ok := m.records[memKey(e)]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, e); err != nil {
		return false, errors.NewDecodeError("failed to decode stored entity", err)
	}
	return true, nil
}

// Save upserts e
func (m *Memory) Save(ctx context.Context, e models.Entity) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.NewDecodeError("failed to encode entity", err)
	}
	m.mu.Lock()
	m.records[memKey(e)] = data
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entities
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Snapshot returns a deep copy of the current contents. Replay tests compare
// snapshots taken before and after reprocessing the same events.
func (m *Memory) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.records))
	for k, v := range m.records {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Restore replaces the contents with a previously taken snapshot
func (m *Memory) Restore(snapshot map[string][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string][]byte, len(snapshot))
	for k, v := range snapshot {
		cp := make([]byte, len(v))
		copy(cp, v)
		m.records[k] = cp
	}
}
