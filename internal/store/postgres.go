package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend is the PostgreSQL counterpart of MySQLBackend.
type PostgresBackend struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresBackend returns a backend that reads and writes the row called name.
func NewPostgresBackend(pool *pgxpool.Pool, name string) *PostgresBackend {
	if name == "" {
		name = "default"
	}
	return &PostgresBackend{pool: pool, name: name}
}

// EnsureSchema creates the snapshots table if it does not exist.
func (p *PostgresBackend) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS snapshots (
		name       TEXT        PRIMARY KEY,
		body       JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

// Load reads the snapshot row.  A missing row is an empty snapshot.
func (p *PostgresBackend) Load(ctx context.Context) (*Snapshot, error) {
	var body []byte
	err := p.pool.QueryRow(ctx, `SELECT body FROM snapshots WHERE name = $1`, p.name).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decode(nil)
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return decode(body)
}

// Save upserts the snapshot row inside a transaction.
func (p *PostgresBackend) Save(ctx context.Context, s *Snapshot) (err error) {
	body, err := encode(s)
	if err != nil {
		return err
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	_, err = tx.Exec(ctx,
		`INSERT INTO snapshots (name, body, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		p.name, string(body),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
