package snapshot

import (
	"context"
	"sync"

	"github.com/jmerrifield20/ledgerd/internal/machine"
)

type memoryRecord struct {
	meta Meta
	data []byte
}

// MemoryStore is an in-process Store. Snapshots are kept encoded so callers
// never share memory with stored state.
type MemoryStore struct {
	mu      sync.RWMutex
	keep    int
	records []memoryRecord
}

// NewMemoryStore creates a MemoryStore that retains up to keep snapshots.
func NewMemoryStore(keep int) *MemoryStore {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &MemoryStore{keep: keep}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, snap machine.Snapshot) (Meta, error) {
	data, err := encode(snap)
	if err != nil {
		return Meta{}, err
	}
	meta := newMeta(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, memoryRecord{meta: meta, data: data})
	if n := len(s.records); n > s.keep {
		s.records = append([]memoryRecord(nil), s.records[n-s.keep:]...)
	}
	return meta, nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(_ context.Context) (machine.Snapshot, Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return machine.Snapshot{}, Meta{}, ErrNoSnapshot
	}
	rec := s.records[len(s.records)-1]
	snap, err := decode(rec.data)
	if err != nil {
		return machine.Snapshot{}, Meta{}, err
	}
	return snap, rec.meta, nil
}

// Ping implements Store. Memory is always reachable.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len returns the number of retained snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
