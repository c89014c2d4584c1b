package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

const (
	alice ledger.AccountID = "alice"
	bob   ledger.AccountID = "bob"
	carol ledger.AccountID = "carol"
)

func amt(n uint64) ledger.Amount { return ledger.NewAmount(n) }

func mustMint(t *testing.T, l *ledger.Ledger, to ledger.AccountID, n uint64) {
	t.Helper()
	if err := l.Mint(to, amt(n)); err != nil {
		t.Fatalf("Mint(%s, %d): %v", to, n, err)
	}
}

func TestTransfer_exampleScenario(t *testing.T) {
	l := ledger.New(nil)
	mustMint(t, l, alice, 100)

	tx, err := l.Transfer(t0, alice, bob, amt(30), nil)
	if err != nil {
		t.Fatal(err)
	}

	if got := l.BalanceOf(alice); got.Cmp(amt(70)) != 0 {
		t.Errorf("alice: got %s, want 70", got)
	}
	if got := l.BalanceOf(bob); got.Cmp(amt(30)) != 0 {
		t.Errorf("bob: got %s, want 30", got)
	}

	first, ok := l.Log().Get(0)
	if !ok {
		t.Fatal("expected transaction 0")
	}
	if first.From != alice || first.To != bob || first.Amount.Cmp(amt(30)) != 0 || !first.Fee.IsZero() {
		t.Errorf("unexpected transaction: %+v", first)
	}
	if first.Memo != nil {
		t.Errorf("expected no memo, got %x", first.Memo)
	}
	if first.Hash != tx.Hash {
		t.Errorf("returned tx hash %q differs from stored %q", tx.Hash, first.Hash)
	}
	if !first.Timestamp.Equal(t0) {
		t.Errorf("timestamp: got %v, want %v", first.Timestamp, t0)
	}
}

func TestTransfer_insufficientBalanceLeavesStateUnchanged(t *testing.T) {
	l := ledger.New(nil)
	mustMint(t, l, alice, 10)

	_, err := l.Transfer(t0, alice, bob, amt(11), nil)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := l.BalanceOf(alice); got.Cmp(amt(10)) != 0 {
		t.Errorf("alice: got %s, want 10", got)
	}
	if got := l.BalanceOf(bob); !got.IsZero() {
		t.Errorf("bob: got %s, want 0", got)
	}
	if n := l.Log().Len(); n != 0 {
		t.Errorf("expected empty log, got %d entries", n)
	}
}

func TestTransfer_absentSenderHasZero(t *testing.T) {
	l := ledger.New(nil)
	if _, err := l.Transfer(t0, carol, bob, amt(1), nil); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestTransfer_zeroAmountRejected(t *testing.T) {
	l := ledger.New(nil)
	mustMint(t, l, alice, 5)
	if _, err := l.Transfer(t0, alice, bob, amt(0), nil); !errors.Is(err, ledger.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if l.Log().Len() != 0 {
		t.Error("zero transfer must not be logged")
	}
}

func TestTransfer_selfTransferIsLoggedOnly(t *testing.T) {
	l := ledger.New(nil)
	mustMint(t, l, alice, 50)

	if _, err := l.Transfer(t0, alice, alice, amt(20), nil); err != nil {
		t.Fatal(err)
	}
	if got := l.BalanceOf(alice); got.Cmp(amt(50)) != 0 {
		t.Errorf("alice: got %s, want 50", got)
	}
	if l.Log().Len() != 1 {
		t.Errorf("expected 1 logged transaction, got %d", l.Log().Len())
	}
}

func TestTransfer_memo(t *testing.T) {
	l := ledger.New(nil)
	mustMint(t, l, alice, 5)

	memo := []byte("invoice-42")
	tx, err := l.Transfer(t0, alice, bob, amt(1), memo)
	if err != nil {
		t.Fatal(err)
	}
	memo[0] = 'X'
	if string(tx.Memo) != "invoice-42" {
		t.Errorf("memo aliased caller buffer: %q", tx.Memo)
	}

	long := make([]byte, ledger.MaxMemoLen+1)
	if _, err := l.Transfer(t0, alice, bob, amt(1), long); !errors.Is(err, ledger.ErrMemoTooLong) {
		t.Errorf("expected ErrMemoTooLong, got %v", err)
	}
}

func TestTransfer_invalidRecipient(t *testing.T) {
	l := ledger.New(nil)
	mustMint(t, l, alice, 5)
	if _, err := l.Transfer(t0, alice, "", amt(1), nil); !errors.Is(err, ledger.ErrInvalidAccount) {
		t.Errorf("expected ErrInvalidAccount, got %v", err)
	}
}

func TestMint_zeroAmountRejected(t *testing.T) {
	l := ledger.New(nil)
	if err := l.Mint(alice, amt(0)); !errors.Is(err, ledger.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if !l.Circulating().IsZero() || len(l.Accounts()) != 0 {
		t.Error("zero mint must not change state")
	}
}

func TestMint_overflowIsFatalForTheCall(t *testing.T) {
	l := ledger.New(nil)
	if err := l.Mint(alice, ledger.MaxAmount()); err != nil {
		t.Fatal(err)
	}
	err := l.Mint(bob, amt(1))
	if !errors.Is(err, ledger.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if !l.BalanceOf(bob).IsZero() {
		t.Error("bob must not be credited after overflow")
	}
	if l.Circulating().Cmp(ledger.MaxAmount()) != 0 {
		t.Error("circulating supply changed after failed mint")
	}
}

func TestMint_supplyCap(t *testing.T) {
	l := ledger.New(nil)
	l.SetSupplyCap(amt(100))

	mustMint(t, l, alice, 60)
	mustMint(t, l, bob, 40)
	if err := l.Mint(carol, amt(1)); !errors.Is(err, ledger.ErrSupplyCapExceeded) {
		t.Fatalf("expected ErrSupplyCapExceeded, got %v", err)
	}
}

func TestConservation_mintsAndTransfers(t *testing.T) {
	l := ledger.New(nil)
	accounts := []ledger.AccountID{alice, bob, carol, "dave"}

	var minted uint64
	for i, a := range accounts {
		n := uint64(100 * (i + 1))
		mustMint(t, l, a, n)
		minted += n
	}

	// Deterministic pseudo-random transfers, including failing ones.
	seed := uint64(7)
	for i := 0; i < 200; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		from := accounts[seed%4]
		to := accounts[(seed>>8)%4]
		n := (seed >> 16) % 150
		_, _ = l.Transfer(t0.Add(time.Duration(i)*time.Second), from, to, amt(n), nil)
	}

	var sum ledger.Amount
	for _, a := range accounts {
		var err error
		if sum, err = sum.Add(l.BalanceOf(a)); err != nil {
			t.Fatal(err)
		}
	}
	if sum.Cmp(amt(minted)) != 0 {
		t.Errorf("sum of balances %s != minted %d", sum, minted)
	}
	if l.Circulating().Cmp(amt(minted)) != 0 {
		t.Errorf("circulating %s != minted %d", l.Circulating(), minted)
	}
	if err := l.Log().Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestRoundTrip_mintThenForward(t *testing.T) {
	l := ledger.New(nil)
	mustMint(t, l, alice, 5)
	mustMint(t, l, bob, 40)

	if _, err := l.Transfer(t0, bob, carol, amt(40), nil); err != nil {
		t.Fatal(err)
	}
	if got := l.BalanceOf(alice); got.Cmp(amt(5)) != 0 {
		t.Errorf("alice: got %s, want 5", got)
	}
	if got := l.BalanceOf(carol); got.Cmp(amt(40)) != 0 {
		t.Errorf("carol: got %s, want 40", got)
	}
	if got := l.BalanceOf(bob); !got.IsZero() {
		t.Errorf("bob: got %s, want 0", got)
	}
}

func TestRestore_recomputesCirculating(t *testing.T) {
	l, err := ledger.Restore(map[ledger.AccountID]ledger.Amount{
		alice: amt(7),
		bob:   amt(0),
		carol: amt(3),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if l.Circulating().Cmp(amt(10)) != 0 {
		t.Errorf("circulating: got %s, want 10", l.Circulating())
	}
	if got := l.Accounts(); len(got) != 2 || got[0] != alice || got[1] != carol {
		t.Errorf("accounts: got %v", got)
	}
}
