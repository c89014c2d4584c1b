package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/api"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"github.com/jmerrifield20/ledgerd/internal/registry"
	"github.com/jmerrifield20/ledgerd/internal/snapshot"
	"go.uber.org/zap"
)

// loadMachine restores the latest snapshot from store, or starts empty when
// the store has none.
func loadMachine(ctx context.Context, cfg machine.Config, store snapshot.Store, clock machine.Clock, logger *zap.Logger) (*machine.Machine, error) {
	snap, meta, err := store.Latest(ctx)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		logger.Info("no snapshot found, starting with empty state")
		return machine.New(cfg, clock.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	m, err := machine.Restore(cfg, snap)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot %s: %w", meta.ID, err)
	}
	logger.Info("state restored from snapshot",
		zap.String("id", meta.ID.String()),
		zap.Time("taken_at", meta.TakenAt),
		zap.Int("transactions", meta.TxCount),
		zap.String("log_root", meta.LogRoot),
	)
	return m, nil
}

// runEvery calls fn every interval until ctx is done. A non-positive
// interval disables the job.
func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// rotateEpoch closes the current challenge epoch and auction round.
func rotateEpoch(ctx context.Context, d *machine.Dispatcher, logger *zap.Logger) {
	var leader string
	var closing registry.BestOffer
	var next registry.Challenge
	err := d.Do(ctx, "", func(m *machine.Machine, c machine.Call) error {
		if acct, ok := m.OfferLeader(); ok {
			leader = acct.String()
		}
		closing = m.BestOffer()
		next = m.RotateEpoch(c.Now)
		return nil
	})
	if err != nil {
		logger.Warn("epoch rotation failed", zap.Error(err))
		return
	}
	api.RecordEpochRotation("timer")
	logger.Info("epoch rotated",
		zap.String("auction_leader", leader),
		zap.Uint64("winning_amount", closing.Amount),
		zap.Uint64("winning_cycles", closing.NumCycles),
		zap.Uint64("challenge_time", next.Time),
	)
}

// saveSnapshot captures the machine state on the dispatcher and writes it to
// store outside it.
func saveSnapshot(ctx context.Context, d *machine.Dispatcher, store snapshot.Store, logger *zap.Logger) {
	var snap machine.Snapshot
	if err := d.Do(ctx, "", func(m *machine.Machine, c machine.Call) error {
		snap = m.Snapshot(c.Now)
		return nil
	}); err != nil {
		logger.Warn("snapshot capture failed", zap.Error(err))
		api.RecordSnapshot(err)
		return
	}

	meta, err := store.Save(ctx, snap)
	api.RecordSnapshot(err)
	if err != nil {
		logger.Error("snapshot save failed", zap.Error(err))
		return
	}
	logger.Debug("snapshot saved",
		zap.String("id", meta.ID.String()),
		zap.Int("transactions", meta.TxCount),
	)
}
