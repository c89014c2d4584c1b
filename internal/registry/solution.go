package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"golang.org/x/crypto/blake2b"
)

const (
	// ChallengeVersion is the version of the proof format.
	ChallengeVersion uint8 = 1

	// MaxSolutionBytes bounds the nonce payload of a solution.
	MaxSolutionBytes = 1024
)

// GenesisParentHash is the parent hash of the very first challenge epoch.
var GenesisParentHash = []byte{0, 1, 2, 3, 4, 5}

// Challenge describes the current challenge epoch. Time is the epoch start
// in Unix nanoseconds and doubles as the epoch identifier.
type Challenge struct {
	Version    uint8  `json:"version"`
	MinNumOnes uint8  `json:"min_num_ones"`
	Time       uint64 `json:"time"`
	Randomness uint32 `json:"randomness"`
	ParentHash []byte `json:"parent_hash"`
}

func (c Challenge) clone() Challenge {
	c.ParentHash = append([]byte(nil), c.ParentHash...)
	return c
}

// Solution is a candidate proof for a challenge epoch. Principal defaults to
// the submitting caller; Version is optional and checked when non-zero.
type Solution struct {
	Time      uint64            `json:"time"`
	Principal *ledger.AccountID `json:"principal,omitempty"`
	Bytes     []byte            `json:"bytes"`
	Version   uint8             `json:"version,omitempty"`
}

// SolutionAccepted reports the best solution of the epoch after a submission.
type SolutionAccepted struct {
	Time       uint64 `json:"time"`
	CurMinOnes uint8  `json:"cur_min_ones"`
}

// RejectionKind classifies a rejected solution.
type RejectionKind string

const (
	RejectInvalidSolution   RejectionKind = "InvalidSolution"
	RejectChallengeMismatch RejectionKind = "ChallengeMismatch"
	RejectOther             RejectionKind = "Other"
)

// SolutionRejected is returned by SubmitSolution for every rejection.
type SolutionRejected struct {
	Kind   RejectionKind
	Reason string
}

func (e *SolutionRejected) Error() string {
	if e.Reason == "" {
		return "solution rejected: " + string(e.Kind)
	}
	return fmt.Sprintf("solution rejected: %s: %s", e.Kind, e.Reason)
}

// BestSolution is the strongest accepted solution of an epoch.
type BestSolution struct {
	Time     uint64           `json:"time"`
	Strength uint8            `json:"strength"`
	Solver   ledger.AccountID `json:"solver"`
	Digest   []byte           `json:"digest"`
}

// SolutionState is the exportable state of a SolutionRegistry.
type SolutionState struct {
	Challenge  Challenge     `json:"challenge"`
	MinNumOnes uint8         `json:"min_num_ones"`
	Best       *BestSolution `json:"best,omitempty"`
}

// SolutionRegistry validates proofs against the current challenge and keeps
// the strongest one per epoch.
type SolutionRegistry struct {
	challenge  Challenge
	minNumOnes uint8
	random     func() uint32
	best       *Best[BestSolution]
}

// NewSolutionRegistry opens the first challenge epoch at now. random supplies
// per-epoch randomness.
func NewSolutionRegistry(minNumOnes uint8, now time.Time, random func() uint32) *SolutionRegistry {
	r := &SolutionRegistry{
		minNumOnes: minNumOnes,
		random:     random,
		best: NewBest(func(cand, cur BestSolution) bool {
			return cand.Strength > cur.Strength
		}),
	}
	r.challenge = Challenge{
		Version:    ChallengeVersion,
		MinNumOnes: minNumOnes,
		Time:       unixNanos(now),
		Randomness: random(),
		ParentHash: append([]byte(nil), GenesisParentHash...),
	}
	return r
}

// RestoreSolutionRegistry rebuilds a registry from exported state.
func RestoreSolutionRegistry(st SolutionState, random func() uint32) *SolutionRegistry {
	r := &SolutionRegistry{
		challenge:  st.Challenge.clone(),
		minNumOnes: st.MinNumOnes,
		random:     random,
		best: NewBest(func(cand, cur BestSolution) bool {
			return cand.Strength > cur.Strength
		}),
	}
	if st.Best != nil {
		b := *st.Best
		b.Digest = append([]byte(nil), b.Digest...)
		r.best.Set(b)
	}
	return r
}

// Challenge returns the parameters of the current epoch.
func (r *SolutionRegistry) Challenge() Challenge { return r.challenge.clone() }

// Submit validates s for caller against the current challenge.
//
// Structural problems are rejected as Other, a stale epoch or version as
// ChallengeMismatch, and a proof below the difficulty as InvalidSolution.
// A valid proof is accepted; it replaces the epoch's best only when strictly
// stronger. The returned value describes the best after the submission.
func (r *SolutionRegistry) Submit(caller ledger.AccountID, now time.Time, s Solution) (SolutionAccepted, error) {
	if len(s.Bytes) == 0 {
		return SolutionAccepted{}, &SolutionRejected{Kind: RejectOther, Reason: "solution bytes are empty"}
	}
	if len(s.Bytes) > MaxSolutionBytes {
		return SolutionAccepted{}, &SolutionRejected{
			Kind:   RejectOther,
			Reason: fmt.Sprintf("solution bytes exceed %d", MaxSolutionBytes),
		}
	}
	principal := caller
	if s.Principal != nil {
		principal = *s.Principal
	}
	if err := principal.Validate(); err != nil {
		return SolutionAccepted{}, &SolutionRejected{Kind: RejectOther, Reason: err.Error()}
	}

	if s.Version != 0 && s.Version != r.challenge.Version {
		return SolutionAccepted{}, &SolutionRejected{
			Kind:   RejectChallengeMismatch,
			Reason: fmt.Sprintf("version %d, current %d", s.Version, r.challenge.Version),
		}
	}
	if s.Time != r.challenge.Time {
		return SolutionAccepted{}, &SolutionRejected{
			Kind:   RejectChallengeMismatch,
			Reason: "solution references a stale challenge",
		}
	}

	digest := Digest(r.challenge, principal, s.Bytes)
	strength := Strength(digest)
	if strength < r.challenge.MinNumOnes {
		return SolutionAccepted{}, &SolutionRejected{
			Kind:   RejectInvalidSolution,
			Reason: fmt.Sprintf("proof has %d leading ones, need %d", strength, r.challenge.MinNumOnes),
		}
	}

	r.best.Consider(BestSolution{
		Time:     unixNanos(now),
		Strength: strength,
		Solver:   principal,
		Digest:   digest[:],
	})
	return r.Best(), nil
}

// Best returns the epoch's best solution, or the epoch start with zero
// strength before anything was accepted.
func (r *SolutionRegistry) Best() SolutionAccepted {
	if b, ok := r.best.Get(); ok {
		return SolutionAccepted{Time: b.Time, CurMinOnes: b.Strength}
	}
	return SolutionAccepted{Time: r.challenge.Time}
}

// Rotate closes the current epoch and opens a new one at now. The new parent
// hash is the digest of the closing epoch's best solution, or the previous
// parent hash when nothing was accepted.
func (r *SolutionRegistry) Rotate(now time.Time) Challenge {
	parent := r.challenge.ParentHash
	if b, ok := r.best.Get(); ok {
		parent = b.Digest
	}
	r.challenge = Challenge{
		Version:    ChallengeVersion,
		MinNumOnes: r.minNumOnes,
		Time:       unixNanos(now),
		Randomness: r.random(),
		ParentHash: append([]byte(nil), parent...),
	}
	r.best.Reset()
	return r.Challenge()
}

// Export returns the registry state.
func (r *SolutionRegistry) Export() SolutionState {
	st := SolutionState{Challenge: r.Challenge(), MinNumOnes: r.minNumOnes}
	if b, ok := r.best.Get(); ok {
		b.Digest = append([]byte(nil), b.Digest...)
		st.Best = &b
	}
	return st
}

// Digest computes the BLAKE2b-256 proof digest of a solution for c.
func Digest(c Challenge, principal ledger.AccountID, payload []byte) [32]byte {
	var buf bytes.Buffer
	buf.WriteByte(c.Version)
	writeLenPrefixed(&buf, c.ParentHash)
	_ = binary.Write(&buf, binary.BigEndian, c.Randomness)
	_ = binary.Write(&buf, binary.BigEndian, c.Time)
	writeLenPrefixed(&buf, []byte(principal))
	buf.Write(payload)
	return blake2b.Sum256(buf.Bytes())
}

// Strength counts the leading one bits of a digest, capped at 255.
func Strength(d [32]byte) uint8 {
	n := 0
	for _, b := range d {
		if b == 0xff {
			n += 8
			continue
		}
		n += bits.LeadingZeros8(^b)
		break
	}
	if n > 255 {
		n = 255
	}
	return uint8(n)
}

func writeLenPrefixed(buf *bytes.Buffer, b []byte) {
	_ = binary.Write(buf, binary.BigEndian, uint32(len(b)))
	buf.Write(b)
}

func unixNanos(t time.Time) uint64 {
	n := t.UnixNano()
	if n < 0 {
		return 0
	}
	return uint64(n)
}
