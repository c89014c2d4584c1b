// Package ledger implements the token balance ledger and its append-only
// transaction log.
//
// Balances are 128-bit unsigned amounts keyed by opaque account identifiers;
// an absent account reads as zero. Value enters the ledger only through Mint
// and moves only through Transfer, which records a hash-chained Transaction
// in the Log. Every mutation validates and computes its results before
// writing anything, so a failed call leaves the ledger untouched.
//
// Neither Ledger nor Log is safe for concurrent use; the state machine owns
// both from a single goroutine.
package ledger

import (
	"fmt"
	"sort"
	"time"
)

// Ledger maps accounts to balances and records transfers in a Log.
type Ledger struct {
	balances    map[AccountID]Amount
	circulating Amount
	supplyCap   *Amount // nil = mint is uncapped
	log         *Log
}

// New creates an empty Ledger that records transfers in log.
func New(log *Log) *Ledger {
	if log == nil {
		log = NewLog()
	}
	return &Ledger{
		balances: make(map[AccountID]Amount),
		log:      log,
	}
}

// Restore rebuilds a Ledger from exported balances. Zero balances are
// dropped; the circulating total is recomputed and must fit in an Amount.
func Restore(balances map[AccountID]Amount, log *Log) (*Ledger, error) {
	l := New(log)
	for account, bal := range balances {
		if err := account.Validate(); err != nil {
			return nil, err
		}
		if bal.IsZero() {
			continue
		}
		total, err := l.circulating.Add(bal)
		if err != nil {
			return nil, fmt.Errorf("restore balance of %s: %w", account, err)
		}
		l.circulating = total
		l.balances[account] = bal
	}
	return l, nil
}

// SetSupplyCap makes Mint fail once circulating supply would exceed limit.
func (l *Ledger) SetSupplyCap(limit Amount) {
	l.supplyCap = &limit
}

// Log returns the transaction log written by this ledger.
func (l *Ledger) Log() *Log { return l.log }

// BalanceOf returns the balance of account; absent accounts hold zero.
func (l *Ledger) BalanceOf(account AccountID) Amount {
	return l.balances[account]
}

// Circulating returns the sum of all balances.
func (l *Ledger) Circulating() Amount { return l.circulating }

// Balances returns a copy of every non-zero balance.
func (l *Ledger) Balances() map[AccountID]Amount {
	out := make(map[AccountID]Amount, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// Accounts returns every account holding a non-zero balance, sorted.
func (l *Ledger) Accounts() []AccountID {
	out := make([]AccountID, 0, len(l.balances))
	for k := range l.balances {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Mint credits amount to account. A zero amount fails with ErrZeroAmount.
func (l *Ledger) Mint(to AccountID, amount Amount) error {
	if err := to.Validate(); err != nil {
		return err
	}
	if amount.IsZero() {
		return fmt.Errorf("mint to %s: %w", to, ErrZeroAmount)
	}

	total, err := l.circulating.Add(amount)
	if err != nil {
		return fmt.Errorf("mint %s to %s: %w", amount, to, err)
	}
	if l.supplyCap != nil && l.supplyCap.Less(total) {
		return fmt.Errorf("mint %s to %s: %w", amount, to, ErrSupplyCapExceeded)
	}
	bal, err := l.balances[to].Add(amount)
	if err != nil {
		return fmt.Errorf("mint %s to %s: %w", amount, to, err)
	}

	l.balances[to] = bal
	l.circulating = total
	return nil
}

// Transfer moves amount from one account to another and appends the
// resulting Transaction to the log. A self-transfer leaves balances as they
// were but is still recorded.
func (l *Ledger) Transfer(now time.Time, from, to AccountID, amount Amount, memo []byte) (Transaction, error) {
	if err := from.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("sender: %w", err)
	}
	if err := to.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("recipient: %w", err)
	}
	if amount.IsZero() {
		return Transaction{}, ErrZeroAmount
	}
	if len(memo) > MaxMemoLen {
		return Transaction{}, fmt.Errorf("%w: %d > %d bytes", ErrMemoTooLong, len(memo), MaxMemoLen)
	}

	fromBal := l.balances[from]
	if fromBal.Less(amount) {
		return Transaction{}, ErrInsufficientBalance
	}

	var newFrom, newTo Amount
	if from != to {
		var err error
		if newFrom, err = fromBal.Sub(amount); err != nil {
			return Transaction{}, err
		}
		if newTo, err = l.balances[to].Add(amount); err != nil {
			return Transaction{}, fmt.Errorf("credit %s: %w", to, err)
		}
	}

	var memoCopy []byte
	if len(memo) > 0 {
		memoCopy = append([]byte(nil), memo...)
	}
	tx := l.log.append(Transaction{
		Timestamp: now.UTC(),
		From:      from,
		To:        to,
		Amount:    amount,
		Memo:      memoCopy,
	})

	if from != to {
		l.setBalance(from, newFrom)
		l.setBalance(to, newTo)
	}
	return tx, nil
}

func (l *Ledger) setBalance(account AccountID, bal Amount) {
	if bal.IsZero() {
		delete(l.balances, account)
		return
	}
	l.balances[account] = bal
}
