package registry

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/jmerrifield20/ledgerd/internal/ledger"
)

// Offer is a sealed bid of NumAttachedCycles for Amount tokens.
type Offer struct {
	Amount            uint64 `json:"amount"`
	NumAttachedCycles uint64 `json:"num_attached_cycles"`
}

// BestOffer describes the leading offer of the current round. TotalAmount is
// the token supply auctioned in the round.
type BestOffer struct {
	Amount      uint64 `json:"amount"`
	NumCycles   uint64 `json:"num_cycles"`
	TotalAmount uint64 `json:"total_amount"`
}

// TokenSupply is the supply available in the current round.
type TokenSupply struct {
	Time        uint64 `json:"time"`
	TotalAmount uint64 `json:"total_amount"`
}

// AcceptedOffer is an offer together with its bidder.
type AcceptedOffer struct {
	Offer
	Bidder ledger.AccountID `json:"bidder"`
}

// OfferRejected carries the human-readable rejection reason.
type OfferRejected struct {
	Reason string
}

func (e *OfferRejected) Error() string { return "offer rejected: " + e.Reason }

// OfferState is the exportable state of an OfferRegistry.
type OfferState struct {
	RoundStart  uint64         `json:"round_start"`
	RoundSupply uint64         `json:"round_supply"`
	Best        *AcceptedOffer `json:"best,omitempty"`
}

// OfferRegistry keeps the highest-priced offer of the current auction round.
// Price is cycles per token; equal prices keep the earlier offer.
type OfferRegistry struct {
	roundStart  uint64
	roundSupply uint64
	best        *Best[AcceptedOffer]
}

// NewOfferRegistry opens the first round at now.
func NewOfferRegistry(roundSupply uint64, now time.Time) *OfferRegistry {
	return &OfferRegistry{
		roundStart:  unixNanos(now),
		roundSupply: roundSupply,
		best:        NewBest(pricedHigher),
	}
}

// RestoreOfferRegistry rebuilds a registry from exported state.
func RestoreOfferRegistry(st OfferState) *OfferRegistry {
	r := &OfferRegistry{
		roundStart:  st.RoundStart,
		roundSupply: st.RoundSupply,
		best:        NewBest(pricedHigher),
	}
	if st.Best != nil {
		r.best.Set(*st.Best)
	}
	return r
}

// pricedHigher reports cand.cycles/cand.amount > cur.cycles/cur.amount using
// cross multiplication.
func pricedHigher(cand, cur AcceptedOffer) bool {
	lhs := new(uint256.Int).Mul(uint256.NewInt(cand.NumAttachedCycles), uint256.NewInt(cur.Amount))
	rhs := new(uint256.Int).Mul(uint256.NewInt(cur.NumAttachedCycles), uint256.NewInt(cand.Amount))
	return lhs.Gt(rhs)
}

// Submit accepts o from bidder when it is well formed and beats the current
// best; otherwise it returns *OfferRejected and changes nothing.
func (r *OfferRegistry) Submit(bidder ledger.AccountID, o Offer) error {
	switch {
	case o.NumAttachedCycles == 0:
		return &OfferRejected{Reason: "offer must attach cycles"}
	case o.Amount == 0:
		return &OfferRejected{Reason: "offer amount must be positive"}
	case o.Amount > r.roundSupply:
		return &OfferRejected{Reason: "offer exceeds available token supply"}
	}
	if err := bidder.Validate(); err != nil {
		return &OfferRejected{Reason: err.Error()}
	}
	if !r.best.Consider(AcceptedOffer{Offer: o, Bidder: bidder}) {
		return &OfferRejected{Reason: "offer does not beat current best"}
	}
	return nil
}

// Best returns the leading offer, zero-valued when none was accepted.
func (r *OfferRegistry) Best() BestOffer {
	out := BestOffer{TotalAmount: r.roundSupply}
	if b, ok := r.best.Get(); ok {
		out.Amount = b.Amount
		out.NumCycles = b.NumAttachedCycles
	}
	return out
}

// Leader returns the bidder of the leading offer.
func (r *OfferRegistry) Leader() (ledger.AccountID, bool) {
	b, ok := r.best.Get()
	return b.Bidder, ok
}

// Supply returns the current round's supply and start time.
func (r *OfferRegistry) Supply() TokenSupply {
	return TokenSupply{Time: r.roundStart, TotalAmount: r.roundSupply}
}

// Rotate opens a new round at now and drops the current best.
func (r *OfferRegistry) Rotate(now time.Time) {
	r.roundStart = unixNanos(now)
	r.best.Reset()
}

// Export returns the registry state.
func (r *OfferRegistry) Export() OfferState {
	st := OfferState{RoundStart: r.roundStart, RoundSupply: r.roundSupply}
	if b, ok := r.best.Get(); ok {
		st.Best = &b
	}
	return st
}
