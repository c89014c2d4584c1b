package registry_test

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/registry"
)

var epoch0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const miner ledger.AccountID = "miner-1"

func fixedRandom(v uint32) func() uint32 {
	return func() uint32 { return v }
}

// findSolution searches nonces until the proof for c and principal has
// exactly the wanted strength.
func findSolution(t *testing.T, c registry.Challenge, principal ledger.AccountID, want uint8) []byte {
	t.Helper()
	nonce := make([]byte, 8)
	for i := uint64(0); i < 1<<22; i++ {
		binary.BigEndian.PutUint64(nonce, i)
		if registry.Strength(registry.Digest(c, principal, nonce)) == want {
			return append([]byte(nil), nonce...)
		}
	}
	t.Fatalf("no nonce with strength %d found", want)
	return nil
}

func rejectionKind(t *testing.T, err error) registry.RejectionKind {
	t.Helper()
	var rej *registry.SolutionRejected
	if !errors.As(err, &rej) {
		t.Fatalf("expected *SolutionRejected, got %v", err)
	}
	return rej.Kind
}

func TestNewSolutionRegistry_firstEpoch(t *testing.T) {
	r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(12345))
	c := r.Challenge()

	if c.Version != registry.ChallengeVersion || c.MinNumOnes != 5 || c.Randomness != 12345 {
		t.Errorf("unexpected challenge: %+v", c)
	}
	if c.Time != uint64(epoch0.UnixNano()) {
		t.Errorf("challenge time: got %d", c.Time)
	}
	if string(c.ParentHash) != string(registry.GenesisParentHash) {
		t.Errorf("parent hash: got %x", c.ParentHash)
	}

	best := r.Best()
	if best.CurMinOnes != 0 || best.Time != c.Time {
		t.Errorf("best before submissions: %+v", best)
	}
}

func TestSubmit_bestIsStrongestRegardlessOfOrder(t *testing.T) {
	orders := [][]uint8{{5, 7}, {7, 5}}
	for _, order := range orders {
		r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(1))
		c := r.Challenge()
		for i, strength := range order {
			nonce := findSolution(t, c, miner, strength)
			if _, err := r.Submit(miner, epoch0.Add(time.Duration(i+1)*time.Second), registry.Solution{
				Time:  c.Time,
				Bytes: nonce,
			}); err != nil {
				t.Fatalf("order %v: submit strength %d: %v", order, strength, err)
			}
		}
		if got := r.Best().CurMinOnes; got != 7 {
			t.Errorf("order %v: best strength %d, want 7", order, got)
		}
	}
}

func TestSubmit_weakerValidSolutionKeepsBest(t *testing.T) {
	r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(1))
	c := r.Challenge()

	strong := findSolution(t, c, miner, 7)
	first, err := r.Submit(miner, epoch0.Add(time.Second), registry.Solution{Time: c.Time, Bytes: strong})
	if err != nil {
		t.Fatal(err)
	}

	weak := findSolution(t, c, miner, 5)
	second, err := r.Submit(miner, epoch0.Add(2*time.Second), registry.Solution{Time: c.Time, Bytes: weak})
	if err != nil {
		t.Fatalf("weaker valid solution must be accepted: %v", err)
	}
	if second != first {
		t.Errorf("best changed: %+v -> %+v", first, second)
	}
}

func TestSubmit_belowDifficultyIsInvalid(t *testing.T) {
	r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(1))
	c := r.Challenge()

	nonce := findSolution(t, c, miner, 2)
	_, err := r.Submit(miner, epoch0, registry.Solution{Time: c.Time, Bytes: nonce})
	if kind := rejectionKind(t, err); kind != registry.RejectInvalidSolution {
		t.Errorf("kind: got %s", kind)
	}
	if r.Best().CurMinOnes != 0 {
		t.Error("rejected solution changed the best")
	}
}

func TestSubmit_staleChallenge(t *testing.T) {
	r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(1))
	old := r.Challenge()
	nonce := findSolution(t, old, miner, 6)

	r.Rotate(epoch0.Add(time.Minute))
	_, err := r.Submit(miner, epoch0.Add(time.Minute), registry.Solution{Time: old.Time, Bytes: nonce})
	if kind := rejectionKind(t, err); kind != registry.RejectChallengeMismatch {
		t.Errorf("kind: got %s", kind)
	}
}

func TestSubmit_versionMismatch(t *testing.T) {
	r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(1))
	c := r.Challenge()
	_, err := r.Submit(miner, epoch0, registry.Solution{Time: c.Time, Bytes: []byte{1}, Version: 9})
	if kind := rejectionKind(t, err); kind != registry.RejectChallengeMismatch {
		t.Errorf("kind: got %s", kind)
	}
}

func TestSubmit_structuralProblemsAreOther(t *testing.T) {
	r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(1))
	c := r.Challenge()

	cases := map[string]registry.Solution{
		"empty bytes": {Time: c.Time},
		"oversized":   {Time: c.Time, Bytes: make([]byte, registry.MaxSolutionBytes+1)},
	}
	for name, s := range cases {
		_, err := r.Submit(miner, epoch0, s)
		if kind := rejectionKind(t, err); kind != registry.RejectOther {
			t.Errorf("%s: kind %s, want Other", name, kind)
		}
	}

	_, err := r.Submit("", epoch0, registry.Solution{Time: c.Time, Bytes: []byte{1}})
	if kind := rejectionKind(t, err); kind != registry.RejectOther {
		t.Errorf("anonymous: kind %s, want Other", kind)
	}
}

func TestSubmit_principalIsBoundIntoProof(t *testing.T) {
	r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(1))
	c := r.Challenge()
	other := ledger.AccountID("miner-2")

	// A nonce found for miner-2 credits miner-2 even if miner-1 submits it.
	nonce := findSolution(t, c, other, 6)
	if _, err := r.Submit(miner, epoch0, registry.Solution{Time: c.Time, Bytes: nonce, Principal: &other}); err != nil {
		t.Fatal(err)
	}
	st := r.Export()
	if st.Best == nil || st.Best.Solver != other {
		t.Errorf("solver: got %+v", st.Best)
	}
}

func TestRotate_chainsParentHashAndResetsBest(t *testing.T) {
	r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(7))
	c := r.Challenge()
	nonce := findSolution(t, c, miner, 6)
	if _, err := r.Submit(miner, epoch0, registry.Solution{Time: c.Time, Bytes: nonce}); err != nil {
		t.Fatal(err)
	}
	digest := registry.Digest(c, miner, nonce)

	next := r.Rotate(epoch0.Add(10 * time.Minute))
	if string(next.ParentHash) != string(digest[:]) {
		t.Errorf("parent hash not chained to previous best")
	}
	if next.Time != uint64(epoch0.Add(10*time.Minute).UnixNano()) {
		t.Errorf("new epoch time: got %d", next.Time)
	}
	if r.Best().CurMinOnes != 0 {
		t.Error("best must reset on rotation")
	}

	// An empty epoch keeps the parent hash.
	after := r.Rotate(epoch0.Add(20 * time.Minute))
	if string(after.ParentHash) != string(next.ParentHash) {
		t.Error("empty epoch must carry the parent hash forward")
	}
}

func TestRestoreSolutionRegistry_roundTrip(t *testing.T) {
	r := registry.NewSolutionRegistry(5, epoch0, fixedRandom(3))
	c := r.Challenge()
	nonce := findSolution(t, c, miner, 6)
	if _, err := r.Submit(miner, epoch0, registry.Solution{Time: c.Time, Bytes: nonce}); err != nil {
		t.Fatal(err)
	}

	restored := registry.RestoreSolutionRegistry(r.Export(), fixedRandom(3))
	if restored.Best() != r.Best() {
		t.Errorf("best: got %+v, want %+v", restored.Best(), r.Best())
	}
	if restored.Challenge().Time != c.Time {
		t.Error("challenge not restored")
	}
}

func TestStrength(t *testing.T) {
	var d [32]byte
	if registry.Strength(d) != 0 {
		t.Error("all-zero digest has strength 0")
	}
	d[0], d[1] = 0xff, 0b1110_0000
	if got := registry.Strength(d); got != 11 {
		t.Errorf("got %d, want 11", got)
	}
	for i := range d {
		d[i] = 0xff
	}
	if got := registry.Strength(d); got != 255 {
		t.Errorf("all-ones digest: got %d, want 255", got)
	}
}
