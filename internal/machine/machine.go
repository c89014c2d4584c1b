// Package machine is the state machine facade: it owns the balance ledger,
// the transaction log, the best-candidate registries, the maintainer set and
// the stored module, and exposes one method per externally visible call.
//
// A Machine is not safe for concurrent use. The Dispatcher owns it and runs
// calls one at a time on a single goroutine, so every call observes the state
// left by the previous one and none sees a half-applied mutation.
package machine

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/registry"
)

// TokenInfo is the static token metadata.
type TokenInfo struct {
	Name             string        `json:"name"`
	Symbol           string        `json:"symbol"`
	Decimals         uint8         `json:"decimals"`
	TotalSupply      ledger.Amount `json:"total_supply"`
	EnforceSupplyCap bool          `json:"enforce_supply_cap"`
}

// Config parameterises a new Machine.
type Config struct {
	Token          TokenInfo
	MinNumOnes     uint8
	RoundSupply    uint64
	MaxModuleBytes int

	// Random supplies per-epoch challenge randomness. Defaults to math/rand/v2.
	Random func() uint32
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Token: TokenInfo{
			Name:     "Example Token",
			Symbol:   "EXT",
			Decimals: 8,
		},
		MinNumOnes:     5,
		RoundSupply:    100,
		MaxModuleBytes: 8 << 20,
	}
}

// Machine holds all service state.
type Machine struct {
	token          TokenInfo
	maxModuleBytes int
	random         func() uint32

	ledger      *ledger.Ledger
	solutions   *registry.SolutionRegistry
	offers      *registry.OfferRegistry
	proposals   *registry.ProposalRegistry
	maintainers map[ledger.AccountID]struct{}
	module      []byte
}

// New creates an empty Machine whose first challenge epoch starts at now.
func New(cfg Config, now time.Time) *Machine {
	m := newMachine(cfg)
	m.ledger = ledger.New(nil)
	m.solutions = registry.NewSolutionRegistry(cfg.MinNumOnes, now, m.random)
	m.offers = registry.NewOfferRegistry(cfg.RoundSupply, now)
	m.proposals = registry.NewProposalRegistry()
	m.applySupplyCap()
	return m
}

func newMachine(cfg Config) *Machine {
	random := cfg.Random
	if random == nil {
		random = rand.Uint32
	}
	return &Machine{
		token:          cfg.Token,
		maxModuleBytes: cfg.MaxModuleBytes,
		random:         random,
		maintainers:    make(map[ledger.AccountID]struct{}),
	}
}

func (m *Machine) applySupplyCap() {
	if m.token.EnforceSupplyCap {
		m.ledger.SetSupplyCap(m.token.TotalSupply)
	}
}

// Token returns the token metadata.
func (m *Machine) Token() TokenInfo { return m.token }

// TotalSupply returns the configured total supply.
func (m *Machine) TotalSupply() ledger.Amount { return m.token.TotalSupply }

// BalanceOf returns the balance of account; unknown accounts hold zero.
func (m *Machine) BalanceOf(account ledger.AccountID) ledger.Amount {
	return m.ledger.BalanceOf(account)
}

// Circulating returns the sum of all balances.
func (m *Machine) Circulating() ledger.Amount { return m.ledger.Circulating() }

// Transfer moves amount from the caller to to and returns the recorded
// transaction.
func (m *Machine) Transfer(c Call, to ledger.AccountID, amount ledger.Amount, memo []byte) (ledger.Transaction, error) {
	if c.Anonymous() {
		return ledger.Transaction{}, ErrAnonymousCaller
	}
	tx, err := m.ledger.Transfer(c.Now, c.Caller, to, amount, memo)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("transfer: %w", err)
	}
	return tx, nil
}

// Mint credits amount to to.
func (m *Machine) Mint(_ Call, to ledger.AccountID, amount ledger.Amount) error {
	if err := m.ledger.Mint(to, amount); err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	return nil
}

// Transactions returns up to length transactions starting at index start.
func (m *Machine) Transactions(start, length int) []ledger.Transaction {
	return m.ledger.Log().Range(start, length)
}

// Transaction returns the transaction at index.
func (m *Machine) Transaction(index int) (ledger.Transaction, bool) {
	return m.ledger.Log().Get(index)
}

// AccountTransactions returns up to length transactions involving account,
// skipping the first start matches.
func (m *Machine) AccountTransactions(account ledger.AccountID, start, length int) []ledger.Transaction {
	return m.ledger.Log().AccountRange(account, start, length)
}

// AccountTransactionCount returns how many transactions involve account.
func (m *Machine) AccountTransactionCount(account ledger.AccountID) int {
	return m.ledger.Log().AccountLen(account)
}

// LogStatus summarises the transaction log.
type LogStatus struct {
	Length int    `json:"length"`
	Root   string `json:"root"`
}

// LogStatus returns the length and root hash of the transaction log.
func (m *Machine) LogStatus() LogStatus {
	log := m.ledger.Log()
	return LogStatus{Length: log.Len(), Root: log.Root()}
}

// VerifyLog walks the transaction hash chain.
func (m *Machine) VerifyLog() (LogStatus, error) {
	return m.LogStatus(), m.ledger.Log().Verify()
}
