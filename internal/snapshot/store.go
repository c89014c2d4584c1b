// Package snapshot persists machine.Snapshot values so the host process can
// restore the full state machine after a restart.
//
// Three implementations of Store are provided:
//   - MemoryStore: in-process, for tests and development.
//   - PostgresStore: durable, backed by the ledger_snapshots table.
//   - SQLiteStore: durable, embedded single-file database.
//
// Every store keeps a bounded number of recent snapshots and returns the
// newest from Latest.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/ledgerd/internal/machine"
)

// DefaultKeep is the number of snapshots retained when none is configured.
const DefaultKeep = 10

// ErrNoSnapshot is returned by Latest when nothing was saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Store is the interface for snapshot persistence.
type Store interface {
	// Save stores snap and prunes snapshots beyond the retention limit.
	Save(ctx context.Context, snap machine.Snapshot) (Meta, error)

	// Latest returns the most recently saved snapshot.
	Latest(ctx context.Context) (machine.Snapshot, Meta, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}

// Meta describes a stored snapshot.
type Meta struct {
	ID      uuid.UUID `json:"id"`
	TakenAt time.Time `json:"taken_at"`
	TxCount int       `json:"tx_count"`
	LogRoot string    `json:"log_root"`
}

func newMeta(snap machine.Snapshot) Meta {
	return Meta{
		ID:      uuid.New(),
		TakenAt: snap.TakenAt.UTC(),
		TxCount: len(snap.Transactions),
		LogRoot: snapshotRoot(snap),
	}
}

func snapshotRoot(snap machine.Snapshot) string {
	if n := len(snap.Transactions); n > 0 {
		return snap.Transactions[n-1].Hash
	}
	return ""
}

func encode(snap machine.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (machine.Snapshot, error) {
	var snap machine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return machine.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}
