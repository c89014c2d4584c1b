package registry

import (
	"errors"
	"math"
	"sort"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
)

// ErrAlreadyVoted is returned when a caller votes twice on one proposal.
var ErrAlreadyVoted = errors.New("caller already voted on this proposal")

// Proposal is the running tally of a governance proposal.
type Proposal struct {
	ID           uint64 `json:"id"`
	VotesFor     uint64 `json:"votes_for"`
	VotesAgainst uint64 `json:"votes_against"`
}

// Vote records one caller's ballot.
type Vote struct {
	ProposalID uint64           `json:"proposal_id"`
	Voter      ledger.AccountID `json:"voter"`
}

type voteKey struct {
	proposal uint64
	voter    ledger.AccountID
}

// ProposalRegistry tallies votes. Proposals are created on first vote and
// never deleted; each caller votes at most once per proposal.
type ProposalRegistry struct {
	proposals map[uint64]*Proposal
	voted     map[voteKey]struct{}
}

// NewProposalRegistry returns an empty registry.
func NewProposalRegistry() *ProposalRegistry {
	return &ProposalRegistry{
		proposals: make(map[uint64]*Proposal),
		voted:     make(map[voteKey]struct{}),
	}
}

// RestoreProposalRegistry rebuilds a registry from exported tallies and votes.
func RestoreProposalRegistry(proposals []Proposal, votes []Vote) *ProposalRegistry {
	r := NewProposalRegistry()
	for _, p := range proposals {
		p := p
		r.proposals[p.ID] = &p
	}
	for _, v := range votes {
		r.voted[voteKey{proposal: v.ProposalID, voter: v.Voter}] = struct{}{}
	}
	return r
}

// Vote adds voter's ballot to proposal id, creating the proposal with zero
// tallies on first reference.
func (r *ProposalRegistry) Vote(voter ledger.AccountID, id uint64, inFavor bool) (Proposal, error) {
	if err := voter.Validate(); err != nil {
		return Proposal{}, err
	}
	key := voteKey{proposal: id, voter: voter}
	if _, dup := r.voted[key]; dup {
		return Proposal{}, ErrAlreadyVoted
	}

	p, ok := r.proposals[id]
	if !ok {
		p = &Proposal{ID: id}
	}
	counter := &p.VotesAgainst
	if inFavor {
		counter = &p.VotesFor
	}
	if *counter == math.MaxUint64 {
		return Proposal{}, ledger.ErrOverflow
	}

	*counter++
	r.proposals[id] = p
	r.voted[key] = struct{}{}
	return *p, nil
}

// Get returns the tally of proposal id.
func (r *ProposalRegistry) Get(id uint64) (Proposal, bool) {
	p, ok := r.proposals[id]
	if !ok {
		return Proposal{}, false
	}
	return *p, true
}

// HasVoted reports whether voter already voted on proposal id.
func (r *ProposalRegistry) HasVoted(voter ledger.AccountID, id uint64) bool {
	_, ok := r.voted[voteKey{proposal: id, voter: voter}]
	return ok
}

// List returns every proposal ordered by id.
func (r *ProposalRegistry) List() []Proposal {
	out := make([]Proposal, 0, len(r.proposals))
	for _, p := range r.proposals {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Export returns tallies and ballots in a deterministic order.
func (r *ProposalRegistry) Export() ([]Proposal, []Vote) {
	votes := make([]Vote, 0, len(r.voted))
	for k := range r.voted {
		votes = append(votes, Vote{ProposalID: k.proposal, Voter: k.voter})
	}
	sort.Slice(votes, func(i, j int) bool {
		if votes[i].ProposalID != votes[j].ProposalID {
			return votes[i].ProposalID < votes[j].ProposalID
		}
		return votes[i].Voter < votes[j].Voter
	})
	return r.List(), votes
}
