package registry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/registry"
)

func submitOffer(t *testing.T, r *registry.OfferRegistry, amount, cycles uint64) error {
	t.Helper()
	return r.Submit("bidder", registry.Offer{Amount: amount, NumAttachedCycles: cycles})
}

func TestOffer_rejectsMalformed(t *testing.T) {
	r := registry.NewOfferRegistry(100, epoch0)

	tests := []struct {
		name           string
		amount, cycles uint64
	}{
		{"zero cycles", 10, 0},
		{"zero amount", 0, 10},
		{"above supply", 101, 1000},
	}
	for _, tc := range tests {
		err := submitOffer(t, r, tc.amount, tc.cycles)
		var rej *registry.OfferRejected
		if !errors.As(err, &rej) {
			t.Errorf("%s: expected *OfferRejected, got %v", tc.name, err)
		}
	}
	if got := r.Best(); got.Amount != 0 || got.NumCycles != 0 {
		t.Errorf("rejected offers changed the best: %+v", got)
	}
}

func TestOffer_higherPriceWins(t *testing.T) {
	r := registry.NewOfferRegistry(100, epoch0)

	if err := submitOffer(t, r, 10, 50); err != nil { // 5 cycles/token
		t.Fatal(err)
	}
	if err := submitOffer(t, r, 20, 80); err == nil { // 4 cycles/token
		t.Error("lower price must be rejected")
	}
	if err := submitOffer(t, r, 4, 20); err == nil { // 5 cycles/token, tie
		t.Error("equal price must be rejected")
	}
	if err := submitOffer(t, r, 50, 300); err != nil { // 6 cycles/token
		t.Fatalf("higher price rejected: %v", err)
	}

	best := r.Best()
	if best.Amount != 50 || best.NumCycles != 300 || best.TotalAmount != 100 {
		t.Errorf("unexpected best: %+v", best)
	}
	if leader, ok := r.Leader(); !ok || leader != "bidder" {
		t.Errorf("leader: %q %v", leader, ok)
	}
}

func TestOffer_largeValuesDoNotOverflow(t *testing.T) {
	r := registry.NewOfferRegistry(^uint64(0), epoch0)
	if err := submitOffer(t, r, ^uint64(0), ^uint64(0)); err != nil {
		t.Fatal(err)
	}
	if err := submitOffer(t, r, ^uint64(0)-1, ^uint64(0)); err != nil {
		t.Errorf("slightly higher price rejected: %v", err)
	}
}

func TestOffer_rotateResetsRound(t *testing.T) {
	r := registry.NewOfferRegistry(100, epoch0)
	if err := submitOffer(t, r, 10, 50); err != nil {
		t.Fatal(err)
	}

	next := epoch0.Add(time.Hour)
	r.Rotate(next)
	if got := r.Best(); got.Amount != 0 {
		t.Errorf("best not reset: %+v", got)
	}
	if got := r.Supply(); got.Time != uint64(next.UnixNano()) || got.TotalAmount != 100 {
		t.Errorf("supply: %+v", got)
	}
	if err := submitOffer(t, r, 1, 1); err != nil {
		t.Errorf("first offer of new round rejected: %v", err)
	}
}

func TestRestoreOfferRegistry_roundTrip(t *testing.T) {
	r := registry.NewOfferRegistry(100, epoch0)
	if err := submitOffer(t, r, 10, 50); err != nil {
		t.Fatal(err)
	}
	restored := registry.RestoreOfferRegistry(r.Export())
	if restored.Best() != r.Best() || restored.Supply() != r.Supply() {
		t.Errorf("restored %+v/%+v, want %+v/%+v", restored.Best(), restored.Supply(), r.Best(), r.Supply())
	}
}
