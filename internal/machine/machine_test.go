package machine_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"github.com/jmerrifield20/ledgerd/internal/registry"
)

var t0 = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newMachine(t *testing.T) *machine.Machine {
	t.Helper()
	cfg := machine.DefaultConfig()
	cfg.Random = func() uint32 { return 42 }
	return machine.New(cfg, t0)
}

func call(caller ledger.AccountID) machine.Call {
	return machine.Call{Caller: caller, Now: t0.Add(time.Minute)}
}

func TestDefaultConfig_tokenMetadata(t *testing.T) {
	m := newMachine(t)
	tok := m.Token()
	if tok.Name != "Example Token" || tok.Symbol != "EXT" || tok.Decimals != 8 {
		t.Errorf("unexpected metadata: %+v", tok)
	}
	if !m.TotalSupply().IsZero() {
		t.Errorf("total supply: got %s", m.TotalSupply())
	}
}

func TestMachine_mintThenTransfer(t *testing.T) {
	m := newMachine(t)
	if err := m.Mint(call("minter"), "alice", ledger.NewAmount(100)); err != nil {
		t.Fatal(err)
	}
	tx, err := m.Transfer(call("alice"), "bob", ledger.NewAmount(30), nil)
	if err != nil {
		t.Fatal(err)
	}

	if got := m.BalanceOf("alice").String(); got != "70" {
		t.Errorf("alice: got %s", got)
	}
	if got := m.BalanceOf("bob").String(); got != "30" {
		t.Errorf("bob: got %s", got)
	}
	if tx.Index != 0 || tx.From != "alice" || tx.To != "bob" || !tx.Fee.IsZero() {
		t.Errorf("unexpected tx: %+v", tx)
	}
	if !tx.Timestamp.Equal(t0.Add(time.Minute)) {
		t.Errorf("timestamp: got %s", tx.Timestamp)
	}

	txs := m.Transactions(0, 10)
	if len(txs) != 1 || txs[0].Hash != tx.Hash {
		t.Errorf("log: %+v", txs)
	}
	if got, ok := m.Transaction(0); !ok || got.Hash != tx.Hash {
		t.Error("Transaction(0) mismatch")
	}
	if len(m.AccountTransactions("carol", 0, 10)) != 0 {
		t.Error("carol has no transactions")
	}
	st, err := m.VerifyLog()
	if err != nil || st.Length != 1 || st.Root != tx.Hash {
		t.Errorf("VerifyLog: %+v, %v", st, err)
	}
}

func TestMachine_transferRequiresCaller(t *testing.T) {
	m := newMachine(t)
	_, err := m.Transfer(machine.Call{Now: t0}, "bob", ledger.NewAmount(1), nil)
	if !errors.Is(err, machine.ErrAnonymousCaller) {
		t.Errorf("expected ErrAnonymousCaller, got %v", err)
	}
}

func TestMachine_insufficientBalanceIsWrapped(t *testing.T) {
	m := newMachine(t)
	_, err := m.Transfer(call("alice"), "bob", ledger.NewAmount(1), nil)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if txs := m.Transactions(0, 10); txs == nil || len(txs) != 0 {
		t.Errorf("failed transfer must not be logged: %v", txs)
	}
}

func TestMachine_supplyCap(t *testing.T) {
	cfg := machine.DefaultConfig()
	cfg.Token.TotalSupply = ledger.NewAmount(1000)
	cfg.Token.EnforceSupplyCap = true
	m := machine.New(cfg, t0)

	if err := m.Mint(call("minter"), "alice", ledger.NewAmount(1000)); err != nil {
		t.Fatal(err)
	}
	if err := m.Mint(call("minter"), "bob", ledger.NewAmount(1)); !errors.Is(err, ledger.ErrSupplyCapExceeded) {
		t.Errorf("expected ErrSupplyCapExceeded, got %v", err)
	}
}

func TestMachine_maintainerBootstrap(t *testing.T) {
	m := newMachine(t)

	// Anyone may install the first set.
	n, err := m.UpdateMaintainers(call("alice"), []ledger.AccountID{"alice", "bob", "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count: got %d, want 2", n)
	}

	if _, err := m.UpdateMaintainers(call("mallory"), []ledger.AccountID{"mallory"}); !errors.Is(err, machine.ErrNotMaintainer) {
		t.Errorf("expected ErrNotMaintainer, got %v", err)
	}
	if _, err := m.UpdateMaintainers(call("bob"), []ledger.AccountID{"carol"}); err != nil {
		t.Fatalf("maintainer update: %v", err)
	}
	got := m.Maintainers()
	if len(got) != 1 || got[0] != "carol" {
		t.Errorf("maintainers: %v", got)
	}
	if _, err := m.UpdateMaintainers(call("carol"), []ledger.AccountID{"bad account"}); err == nil {
		t.Error("invalid account must be refused")
	}
	if _, err := m.UpdateMaintainers(call("carol"), nil); !errors.Is(err, machine.ErrNoMaintainers) {
		t.Errorf("expected ErrNoMaintainers, got %v", err)
	}
	if !m.IsMaintainer("carol") {
		t.Error("failed update must keep the previous set")
	}
}

func TestMachine_rotateChallengeRequiresMaintainer(t *testing.T) {
	m := newMachine(t)
	first := m.Challenge()

	// No maintainers yet: open to anyone.
	c, err := m.RotateChallenge(call("alice"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Time == first.Time {
		t.Error("rotation must start a new epoch")
	}

	if _, err := m.UpdateMaintainers(call("alice"), []ledger.AccountID{"alice"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.RotateChallenge(call("bob")); !errors.Is(err, machine.ErrNotMaintainer) {
		t.Errorf("expected ErrNotMaintainer, got %v", err)
	}
	if _, err := m.RotateChallenge(machine.Call{Now: t0}); !errors.Is(err, machine.ErrAnonymousCaller) {
		t.Errorf("expected ErrAnonymousCaller, got %v", err)
	}
}

func TestMachine_rotateEpochResetsAuction(t *testing.T) {
	m := newMachine(t)
	if _, err := m.SubmitOffer(call("bidder"), registry.Offer{Amount: 10, NumAttachedCycles: 50}); err != nil {
		t.Fatal(err)
	}
	if leader, ok := m.OfferLeader(); !ok || leader != "bidder" {
		t.Errorf("leader: %q %v", leader, ok)
	}

	next := t0.Add(10 * time.Minute)
	c := m.RotateEpoch(next)
	if c.Time != uint64(next.UnixNano()) {
		t.Errorf("challenge time: %d", c.Time)
	}
	if m.BestOffer().Amount != 0 {
		t.Error("best offer must reset with the epoch")
	}
	if m.AvailableTokenSupply().Time != c.Time {
		t.Error("auction round must follow the challenge epoch")
	}
	if m.BestSolution().Time != c.Time {
		t.Error("best solution must reset to the new epoch")
	}
}

func TestMachine_submitSolutionUsesCaller(t *testing.T) {
	m := newMachine(t)
	_, err := m.SubmitSolution(call("miner"), registry.Solution{Time: m.Challenge().Time + 1, Bytes: []byte{1}})
	var rej *registry.SolutionRejected
	if !errors.As(err, &rej) || rej.Kind != registry.RejectChallengeMismatch {
		t.Errorf("expected ChallengeMismatch, got %v", err)
	}
}

func TestMachine_votes(t *testing.T) {
	m := newMachine(t)
	if _, err := m.VoteForProposal(call("alice"), 1, true); err != nil {
		t.Fatal(err)
	}
	if _, err := m.VoteForProposal(call("alice"), 1, true); !errors.Is(err, registry.ErrAlreadyVoted) {
		t.Errorf("expected ErrAlreadyVoted, got %v", err)
	}
	if _, err := m.VoteForProposal(machine.Call{Now: t0}, 1, true); !errors.Is(err, machine.ErrAnonymousCaller) {
		t.Errorf("expected ErrAnonymousCaller, got %v", err)
	}
	p, ok := m.Proposal(1)
	if !ok || p.VotesFor != 1 {
		t.Errorf("proposal: %+v %v", p, ok)
	}
	if !m.HasVoted("alice", 1) || len(m.Proposals()) != 1 {
		t.Error("vote bookkeeping mismatch")
	}
}

func TestMachine_uploadModule(t *testing.T) {
	cfg := machine.DefaultConfig()
	cfg.MaxModuleBytes = 8
	m := machine.New(cfg, t0)

	if _, ok := m.ModuleInfo(); ok {
		t.Error("no module before upload")
	}
	if _, err := m.UploadModule(nil); !errors.Is(err, machine.ErrEmptyModule) {
		t.Errorf("expected ErrEmptyModule, got %v", err)
	}
	if _, err := m.UploadModule([]byte("123456789")); !errors.Is(err, machine.ErrModuleTooLarge) {
		t.Errorf("expected ErrModuleTooLarge, got %v", err)
	}

	info, err := m.UploadModule([]byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	const sha256abc = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if info.Size != 3 || info.Checksum != sha256abc {
		t.Errorf("unexpected info: %+v", info)
	}
	if got, ok := m.ModuleInfo(); !ok || got != info {
		t.Errorf("ModuleInfo: %+v %v", got, ok)
	}
}

func TestSnapshot_roundTripThroughJSON(t *testing.T) {
	m := newMachine(t)
	_ = m.Mint(call("minter"), "alice", ledger.NewAmount(100))
	_, _ = m.Transfer(call("alice"), "bob", ledger.NewAmount(30), []byte("rent"))
	_, _ = m.Transfer(call("bob"), "carol", ledger.NewAmount(5), nil)
	_, _ = m.VoteForProposal(call("alice"), 7, false)
	_, _ = m.UpdateMaintainers(call("alice"), []ledger.AccountID{"alice"})
	_, _ = m.UploadModule([]byte{0, 97, 115, 109})
	_, _ = m.SubmitOffer(call("bob"), registry.Offer{Amount: 3, NumAttachedCycles: 9})

	raw, err := json.Marshal(m.Snapshot(t0.Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	var snap machine.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatal(err)
	}

	restored, err := machine.Restore(machine.DefaultConfig(), snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	for _, a := range []ledger.AccountID{"alice", "bob", "carol"} {
		if restored.BalanceOf(a) != m.BalanceOf(a) {
			t.Errorf("%s: got %s, want %s", a, restored.BalanceOf(a), m.BalanceOf(a))
		}
	}
	if restored.Circulating() != m.Circulating() {
		t.Error("circulating mismatch")
	}
	st, err := restored.VerifyLog()
	if err != nil || st.Length != 2 {
		t.Errorf("restored log: %+v %v", st, err)
	}
	if tx, _ := restored.Transaction(0); string(tx.Memo) != "rent" {
		t.Errorf("memo: %q", tx.Memo)
	}
	if !restored.HasVoted("alice", 7) || !restored.IsMaintainer("alice") {
		t.Error("governance state lost")
	}
	if info, ok := restored.ModuleInfo(); !ok || info.Size != 4 {
		t.Error("module lost")
	}
	if restored.BestOffer() != m.BestOffer() || restored.Challenge().Time != m.Challenge().Time {
		t.Error("registry state lost")
	}
}

func TestRestore_rejectsTamperedLog(t *testing.T) {
	m := newMachine(t)
	_ = m.Mint(call("minter"), "alice", ledger.NewAmount(100))
	_, _ = m.Transfer(call("alice"), "bob", ledger.NewAmount(30), nil)

	snap := m.Snapshot(t0)
	snap.Transactions[0].Amount = ledger.NewAmount(31)
	_, err := machine.Restore(machine.DefaultConfig(), snap)
	if !errors.Is(err, machine.ErrBadSnapshot) || !errors.Is(err, ledger.ErrChainBroken) {
		t.Errorf("expected ErrBadSnapshot wrapping ErrChainBroken, got %v", err)
	}

	snap = m.Snapshot(t0)
	snap.Version = 99
	if _, err := machine.Restore(machine.DefaultConfig(), snap); err == nil || !strings.Contains(err.Error(), "version 99") {
		t.Errorf("expected version error, got %v", err)
	}
}
