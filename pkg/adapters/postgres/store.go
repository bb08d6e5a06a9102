// Package postgres stores audit bundles in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable holds the bundles unless WithTable is used.
const DefaultTable = "audit_bundles"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements ports.AuditStore on a PostgreSQL table. Bundles are
// stored as the exact encoded bytes.
type Store struct {
	db    querier
	table string
}

type Option func(*Store)

// WithTable sets the table name.
func WithTable(name string) Option {
	return func(s *Store) {
		s.table = pgx.Identifier{name}.Sanitize()
	}
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// New creates a store over a pool or transaction.
func New(db querier, opts ...Option) *Store {
	s := &Store{db: db, table: pgx.Identifier{DefaultTable}.Sanitize()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the bundle table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		id         TEXT PRIMARY KEY,
		bundle     BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

// Save inserts an encoded bundle. An existing ID is never overwritten.
func (s *Store) Save(ctx context.Context, id string, data []byte) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO `+s.table+` (id, bundle) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		id, data)
	if err != nil {
		return fmt.Errorf("save bundle %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, domain.ErrBundleExists)
	}
	return nil
}

// Load retrieves an encoded bundle.
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT bundle FROM `+s.table+` WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, domain.ErrBundleNotFound)
		}
		return nil, fmt.Errorf("load bundle %s: %w", id, err)
	}
	return data, nil
}

// List returns bundle IDs in insertion order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM `+s.table+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	return ids, nil
}
