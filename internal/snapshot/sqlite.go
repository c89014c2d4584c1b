package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const busyTimeoutMs = 5000

// SQLiteStore persists snapshots in an embedded SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	keep   int
	logger *zap.Logger
}

// OpenSQLiteStore opens or creates the database at path and ensures the
// snapshot table exists.
func OpenSQLiteStore(path string, keep int, logger *zap.Logger) (*SQLiteStore, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(absPath)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, keep: keep, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS ledger_snapshots (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	id       TEXT NOT NULL UNIQUE,
	taken_at INTEGER NOT NULL,
	tx_count INTEGER NOT NULL,
	log_root TEXT NOT NULL,
	state    BLOB NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, snap machine.Snapshot) (Meta, error) {
	data, err := encode(snap)
	if err != nil {
		return Meta{}, err
	}
	meta := newMeta(snap)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_snapshots (id, taken_at, tx_count, log_root, state) VALUES (?, ?, ?, ?, ?)`,
		meta.ID.String(), meta.TakenAt.UnixNano(), meta.TxCount, meta.LogRoot, data,
	); err != nil {
		return Meta{}, fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ledger_snapshots WHERE seq NOT IN (
			SELECT seq FROM ledger_snapshots ORDER BY seq DESC LIMIT ?
		)`, s.keep,
	); err != nil {
		return Meta{}, fmt.Errorf("prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Meta{}, fmt.Errorf("commit snapshot tx: %w", err)
	}

	s.logger.Debug("snapshot saved",
		zap.String("id", meta.ID.String()),
		zap.Int("tx_count", meta.TxCount),
	)
	return meta, nil
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context) (machine.Snapshot, Meta, error) {
	var (
		meta    Meta
		id      string
		takenAt int64
		data    []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, taken_at, tx_count, log_root, state
		 FROM ledger_snapshots ORDER BY seq DESC LIMIT 1`,
	).Scan(&id, &takenAt, &meta.TxCount, &meta.LogRoot, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return machine.Snapshot{}, Meta{}, ErrNoSnapshot
	}
	if err != nil {
		return machine.Snapshot{}, Meta{}, fmt.Errorf("load latest snapshot: %w", err)
	}

	if meta.ID, err = uuid.Parse(id); err != nil {
		return machine.Snapshot{}, Meta{}, fmt.Errorf("parse snapshot id: %w", err)
	}
	meta.TakenAt = time.Unix(0, takenAt).UTC()

	snap, err := decode(data)
	if err != nil {
		return machine.Snapshot{}, Meta{}, err
	}
	return snap, meta, nil
}

// Count returns the number of retained snapshots.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_snapshots").Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}
