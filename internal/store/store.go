// Package store provides entity persistence backends.
package store

import (
	"context"

	"github.com/pool-ledger/internal/models"
)

// Store is the persistence surface the accountants write through.
// Load fills the passed entity in place from its kind and ID and reports
// whether it existed; Save upserts. Entities are never deleted.
type Store interface {
	Load(ctx context.Context, e models.Entity) (bool, error)
	Save(ctx context.Context, e models.Entity) error
}
