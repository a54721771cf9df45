// Package postgres provides Postgres-backed persistence for canonical
// record sets.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadharvest/leadharvest/internal/harvest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// LeadStoreConfig controls the Postgres connection pool used for lead rows.
type LeadStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// LeadStore writes canonical records into Postgres.
type LeadStore struct {
	pool  execCloser
	table string
}

// NewLeadStore creates a Postgres-backed LeadStore using the provided config.
func NewLeadStore(ctx context.Context, cfg LeadStoreConfig) (*LeadStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "leads"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &LeadStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewLeadStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewLeadStoreWithPool(pool execCloser, table string) (*LeadStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "leads"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &LeadStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *LeadStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StoreLeads inserts one row per record, stamped with the harvest time.
func (s *LeadStore) StoreLeads(ctx context.Context, harvestedAt time.Time, records []harvest.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("lead store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	harvested_at,
	name,
	address,
	phone,
	website,
	email,
	rating,
	review_count,
	source
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)`, s.table)

	for _, rec := range records {
		if rec.Name == "" {
			return fmt.Errorf("record name is required")
		}
		args := []any{
			harvestedAt,
			rec.Name,
			rec.Address,
			rec.Phone,
			rec.Website,
			rec.Email,
			rec.Rating,
			rec.ReviewCount,
			string(rec.Source),
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert lead %q: %w", rec.Name, err)
		}
	}
	return nil
}
