package machine

import (
	"fmt"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/registry"
)

// SnapshotVersion is the layout version written by Snapshot.
const SnapshotVersion = 1

// Snapshot is the complete exportable state of a Machine. Token metadata is
// configuration and is not part of it.
type Snapshot struct {
	Version      int                                `json:"version"`
	TakenAt      time.Time                          `json:"taken_at"`
	Balances     map[ledger.AccountID]ledger.Amount `json:"balances"`
	Transactions []ledger.Transaction               `json:"transactions"`
	Maintainers  []ledger.AccountID                 `json:"maintainers"`
	Proposals    []registry.Proposal                `json:"proposals"`
	Votes        []registry.Vote                    `json:"votes"`
	Module       []byte                             `json:"module,omitempty"`
	Solutions    registry.SolutionState             `json:"solutions"`
	Offers       registry.OfferState                `json:"offers"`
}

// Snapshot exports the full state as of now.
func (m *Machine) Snapshot(now time.Time) Snapshot {
	proposals, votes := m.proposals.Export()
	s := Snapshot{
		Version:      SnapshotVersion,
		TakenAt:      now.UTC(),
		Balances:     m.ledger.Balances(),
		Transactions: m.ledger.Log().All(),
		Maintainers:  m.Maintainers(),
		Proposals:    proposals,
		Votes:        votes,
		Solutions:    m.solutions.Export(),
		Offers:       m.offers.Export(),
	}
	if m.module != nil {
		s.Module = append([]byte(nil), m.module...)
	}
	return s
}

// Restore rebuilds a Machine from s. The transaction hash chain is verified
// and the balances must sum to a representable amount. Token metadata, the
// module size limit and the randomness source come from cfg.
func Restore(cfg Config, s Snapshot) (*Machine, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadSnapshot, s.Version)
	}

	log, err := ledger.RestoreLog(s.Transactions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	l, err := ledger.Restore(s.Balances, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	m := newMachine(cfg)
	m.ledger = l
	m.applySupplyCap()
	m.solutions = registry.RestoreSolutionRegistry(s.Solutions, m.random)
	m.offers = registry.RestoreOfferRegistry(s.Offers)
	m.proposals = registry.RestoreProposalRegistry(s.Proposals, s.Votes)
	for _, a := range s.Maintainers {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%w: maintainer: %w", ErrBadSnapshot, err)
		}
		m.maintainers[a] = struct{}{}
	}
	if len(s.Module) > 0 {
		m.module = append([]byte(nil), s.Module...)
	}
	return m, nil
}
