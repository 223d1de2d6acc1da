package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MySQLBackend stores the snapshot as one JSON document in the snapshots
// table, keyed by name so several deployments can share a schema.
type MySQLBackend struct {
	db   *sql.DB
	name string
}

// NewMySQLBackend returns a backend that reads and writes the row called name.
func NewMySQLBackend(db *sql.DB, name string) *MySQLBackend {
	if name == "" {
		name = "default"
	}
	return &MySQLBackend{db: db, name: name}
}

// EnsureSchema creates the snapshots table if it does not exist.
func (m *MySQLBackend) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS snapshots (
		name       VARCHAR(64) NOT NULL PRIMARY KEY,
		body       LONGTEXT    NOT NULL,
		updated_at DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

// Load reads the snapshot row.  A missing row is an empty snapshot.
func (m *MySQLBackend) Load(ctx context.Context) (*Snapshot, error) {
	var body []byte
	err := m.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE name = ?`, m.name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decode(nil)
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return decode(body)
}

// Save upserts the snapshot row inside a transaction.
func (m *MySQLBackend) Save(ctx context.Context, s *Snapshot) error {
	body, err := encode(s)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `INSERT INTO snapshots (name, body) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE body = VALUES(body)`
	if _, err := tx.ExecContext(ctx, q, m.name, body); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
