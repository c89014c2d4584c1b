package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"go.uber.org/zap"
)

// advisoryLockKey serialises concurrent Save calls across ledgerd instances
// sharing one database.
const advisoryLockKey = int64(1_270_331_907)

// PostgresStore persists snapshots to the ledger_snapshots table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	keep   int
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given pool that
// retains up to keep snapshots.
func NewPostgresStore(pool *pgxpool.Pool, keep int, logger *zap.Logger) *PostgresStore {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &PostgresStore{pool: pool, keep: keep, logger: logger}
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Save implements Store. The insert and the pruning of old rows run in one
// transaction under an advisory lock.
func (s *PostgresStore) Save(ctx context.Context, snap machine.Snapshot) (Meta, error) {
	data, err := encode(snap)
	if err != nil {
		return Meta{}, err
	}
	meta := newMeta(snap)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Meta{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return Meta{}, fmt.Errorf("acquire advisory lock: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO ledger_snapshots (id, taken_at, tx_count, log_root, state)
		 VALUES ($1, $2, $3, $4, $5)`,
		meta.ID, meta.TakenAt, meta.TxCount, meta.LogRoot, data,
	); err != nil {
		return Meta{}, fmt.Errorf("insert snapshot: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM ledger_snapshots WHERE id NOT IN (
			SELECT id FROM ledger_snapshots ORDER BY seq DESC LIMIT $1
		)`, s.keep,
	)
	if err != nil {
		return Meta{}, fmt.Errorf("prune snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Meta{}, fmt.Errorf("commit snapshot tx: %w", err)
	}

	s.logger.Debug("snapshot saved",
		zap.String("id", meta.ID.String()),
		zap.Int("tx_count", meta.TxCount),
		zap.Int64("pruned", tag.RowsAffected()),
	)
	return meta, nil
}

// Latest implements Store.
func (s *PostgresStore) Latest(ctx context.Context) (machine.Snapshot, Meta, error) {
	var meta Meta
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, taken_at, tx_count, log_root, state
		 FROM ledger_snapshots ORDER BY seq DESC LIMIT 1`,
	).Scan(&meta.ID, &meta.TakenAt, &meta.TxCount, &meta.LogRoot, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return machine.Snapshot{}, Meta{}, ErrNoSnapshot
	}
	if err != nil {
		return machine.Snapshot{}, Meta{}, fmt.Errorf("load latest snapshot: %w", err)
	}

	snap, err := decode(data)
	if err != nil {
		return machine.Snapshot{}, Meta{}, err
	}
	return snap, meta, nil
}
