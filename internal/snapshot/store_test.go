package snapshot_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"github.com/jmerrifield20/ledgerd/internal/snapshot"
	"go.uber.org/zap"
)

var (
	ctx = context.Background()
	t0  = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
)

// buildSnapshot returns the snapshot of a machine that recorded n transfers.
func buildSnapshot(t *testing.T, n int) machine.Snapshot {
	t.Helper()
	m := machine.New(machine.DefaultConfig(), t0)
	c := machine.Call{Caller: "alice", Now: t0}
	if err := m.Mint(c, "alice", ledger.NewAmount(1000)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if _, err := m.Transfer(c, "bob", ledger.NewAmount(1), nil); err != nil {
			t.Fatal(err)
		}
	}
	return m.Snapshot(t0.Add(time.Duration(n) * time.Second))
}

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s snapshot.Store) {
	t.Helper()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, _, err := s.Latest(ctx); !errors.Is(err, snapshot.ErrNoSnapshot) {
		t.Fatalf("empty store: expected ErrNoSnapshot, got %v", err)
	}

	var last snapshot.Meta
	for i := 1; i <= 4; i++ {
		meta, err := s.Save(ctx, buildSnapshot(t, i))
		if err != nil {
			t.Fatalf("Save #%d: %v", i, err)
		}
		last = meta
	}

	snap, meta, err := s.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if meta.ID != last.ID || meta.TxCount != 4 || !meta.TakenAt.Equal(last.TakenAt) {
		t.Errorf("meta: got %+v, want %+v", meta, last)
	}
	if len(snap.Transactions) != 4 || meta.LogRoot != snap.Transactions[3].Hash {
		t.Errorf("latest snapshot has %d transactions", len(snap.Transactions))
	}

	restored, err := machine.Restore(machine.DefaultConfig(), snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := restored.BalanceOf("bob").String(); got != "4" {
		t.Errorf("bob: got %s, want 4", got)
	}
	if _, err := restored.VerifyLog(); err != nil {
		t.Errorf("restored log: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, snapshot.NewMemoryStore(2))
}

func TestMemoryStore_retention(t *testing.T) {
	s := snapshot.NewMemoryStore(2)
	for i := 0; i < 5; i++ {
		if _, err := s.Save(ctx, buildSnapshot(t, 0)); err != nil {
			t.Fatal(err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("retained %d snapshots, want 2", s.Len())
	}
}

func TestMemoryStore_latestIsACopy(t *testing.T) {
	s := snapshot.NewMemoryStore(0)
	if _, err := s.Save(ctx, buildSnapshot(t, 1)); err != nil {
		t.Fatal(err)
	}
	snap, _, _ := s.Latest(ctx)
	snap.Transactions[0].To = "mallory"

	again, _, _ := s.Latest(ctx)
	if again.Transactions[0].To != "bob" {
		t.Error("mutating a loaded snapshot changed the store")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledgerd.db")
	s, err := snapshot.OpenSQLiteStore(path, 3, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("retained %d snapshots, want 3", n)
	}
}

func TestSQLiteStore_reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledgerd.db")
	s, err := snapshot.OpenSQLiteStore(path, 0, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	saved, err := s.Save(ctx, buildSnapshot(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = snapshot.OpenSQLiteStore(path, 0, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	_, meta, err := s.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if meta.ID != saved.ID {
		t.Errorf("reopened store returned %s, want %s", meta.ID, saved.ID)
	}
}
