package machine

import (
	"time"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/registry"
)

// Challenge returns the current challenge epoch.
func (m *Machine) Challenge() registry.Challenge { return m.solutions.Challenge() }

// RotateChallenge starts a new epoch on behalf of the caller. Once a
// maintainer set exists only maintainers may rotate.
func (m *Machine) RotateChallenge(c Call) (registry.Challenge, error) {
	if err := m.requireMaintainer(c); err != nil {
		return registry.Challenge{}, err
	}
	return m.RotateEpoch(c.Now), nil
}

// RotateEpoch closes the current challenge epoch and auction round and opens
// new ones at now.
func (m *Machine) RotateEpoch(now time.Time) registry.Challenge {
	m.offers.Rotate(now)
	return m.solutions.Rotate(now)
}

// SubmitSolution validates s for the caller. Rejections are returned as
// *registry.SolutionRejected.
func (m *Machine) SubmitSolution(c Call, s registry.Solution) (registry.SolutionAccepted, error) {
	return m.solutions.Submit(c.Caller, c.Now, s)
}

// BestSolution returns the strongest solution of the current epoch.
func (m *Machine) BestSolution() registry.SolutionAccepted { return m.solutions.Best() }

// AvailableTokenSupply returns the supply of the current auction round.
func (m *Machine) AvailableTokenSupply() registry.TokenSupply { return m.offers.Supply() }

// SubmitOffer records o for the caller and returns the best offer after the
// submission. Rejections are returned as *registry.OfferRejected.
func (m *Machine) SubmitOffer(c Call, o registry.Offer) (registry.BestOffer, error) {
	if c.Anonymous() {
		return registry.BestOffer{}, ErrAnonymousCaller
	}
	if err := m.offers.Submit(c.Caller, o); err != nil {
		return registry.BestOffer{}, err
	}
	return m.offers.Best(), nil
}

// BestOffer returns the leading offer of the current round.
func (m *Machine) BestOffer() registry.BestOffer { return m.offers.Best() }

// OfferLeader returns the bidder of the leading offer, if any.
func (m *Machine) OfferLeader() (ledger.AccountID, bool) { return m.offers.Leader() }

// VoteForProposal records the caller's vote on proposal id.
func (m *Machine) VoteForProposal(c Call, id uint64, inFavor bool) (registry.Proposal, error) {
	if c.Anonymous() {
		return registry.Proposal{}, ErrAnonymousCaller
	}
	return m.proposals.Vote(c.Caller, id, inFavor)
}

// Proposal returns the tally of proposal id.
func (m *Machine) Proposal(id uint64) (registry.Proposal, bool) { return m.proposals.Get(id) }

// Proposals lists every proposal ordered by id.
func (m *Machine) Proposals() []registry.Proposal { return m.proposals.List() }

// HasVoted reports whether account voted on proposal id.
func (m *Machine) HasVoted(account ledger.AccountID, id uint64) bool {
	return m.proposals.HasVoted(account, id)
}
