package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/errors"
	"github.com/pool-ledger/internal/models"
)

// Postgres persists entities as JSONB rows in the entities table,
// keyed by (kind, id).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store from config
func NewPostgres(cfg *config.PostgresConfig) (*Postgres, error) {
	connString := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable pool_max_conns=%d",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.MaxConnections,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections) // #nosec G115 - MaxConnections is validated in config
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing connection pool
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close closes the connection pool
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Ping checks if the database is reachable
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Load fills e from its row, returning false when no row exists
func (p *Postgres) Load(ctx context.Context, e models.Entity) (bool, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM entities WHERE kind = $1 AND id = $2`,
		e.EntityKind(), e.EntityID(),
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStoreError("failed to load entity", err)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return false, errors.NewDecodeError("failed to decode stored entity", err)
	}
	return true, nil
}

// Save upserts e into its row
func (p *Postgres) Save(ctx context.Context, e models.Entity) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.NewDecodeError("failed to encode entity", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO entities (kind, id, data, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (kind, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		e.EntityKind(), e.EntityID(), data,
	)
	if err != nil {
		return errors.NewStoreError("failed to save entity", err)
	}
	return nil
}
