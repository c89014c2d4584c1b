package ledger

import "fmt"

// Log is the append-only, hash-chained history of completed transfers.
//
// Only the Ledger appends to a Log. A Log is not safe for concurrent use; it
// is owned by the single goroutine that owns its Ledger.
type Log struct {
	txs []Transaction
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{}
}

// RestoreLog rebuilds a Log from previously exported records and verifies
// the hash chain before returning it.
func RestoreLog(txs []Transaction) (*Log, error) {
	l := &Log{txs: make([]Transaction, 0, len(txs))}
	for _, tx := range txs {
		l.txs = append(l.txs, tx.clone())
	}
	if err := l.Verify(); err != nil {
		return nil, err
	}
	return l, nil
}

// append chains tx to the tail and stores it. The caller's Index, PrevHash
// and Hash are overwritten.
func (l *Log) append(tx Transaction) Transaction {
	tx = tx.clone()
	tx.Index = len(l.txs)
	tx.PrevHash = l.Root()
	tx.Hash = hashTransaction(&tx)
	l.txs = append(l.txs, tx)
	return tx.clone()
}

// Get returns the transaction at the given zero-based position.
func (l *Log) Get(index int) (Transaction, bool) {
	if index < 0 || index >= len(l.txs) {
		return Transaction{}, false
	}
	return l.txs[index].clone(), true
}

// Range returns up to length transactions starting at start, in append
// order. Out-of-range windows yield a shorter or empty result.
func (l *Log) Range(start, length int) []Transaction {
	if start < 0 || length <= 0 || start >= len(l.txs) {
		return []Transaction{}
	}
	end := len(l.txs)
	if length < end-start {
		end = start + length
	}
	out := make([]Transaction, 0, end-start)
	for _, tx := range l.txs[start:end] {
		out = append(out, tx.clone())
	}
	return out
}

// AccountRange is Range applied to the subsequence of transactions that
// involve account as sender or recipient.
func (l *Log) AccountRange(account AccountID, start, length int) []Transaction {
	out := []Transaction{}
	if start < 0 || length <= 0 {
		return out
	}
	skipped := 0
	for _, tx := range l.txs {
		if !tx.Involves(account) {
			continue
		}
		if skipped < start {
			skipped++
			continue
		}
		out = append(out, tx.clone())
		if len(out) == length {
			break
		}
	}
	return out
}

// AccountLen returns the number of transactions involving account.
func (l *Log) AccountLen(account AccountID) int {
	n := 0
	for _, tx := range l.txs {
		if tx.Involves(account) {
			n++
		}
	}
	return n
}

// Len returns the number of stored transactions.
func (l *Log) Len() int { return len(l.txs) }

// Root returns the hash of the most recent transaction, or GenesisHash.
func (l *Log) Root() string {
	if len(l.txs) == 0 {
		return GenesisHash
	}
	return l.txs[len(l.txs)-1].Hash
}

// All returns a copy of every stored transaction.
func (l *Log) All() []Transaction {
	return l.Range(0, len(l.txs))
}

// Verify walks the log and checks index continuity and hash consistency.
func (l *Log) Verify() error {
	prev := GenesisHash
	for i := range l.txs {
		curr := &l.txs[i]
		if curr.Index != i {
			return fmt.Errorf("%w: index %d stored at position %d", ErrChainBroken, curr.Index, i)
		}
		if curr.PrevHash != prev {
			return fmt.Errorf("%w: at index %d", ErrChainBroken, i)
		}
		if curr.Hash != hashTransaction(curr) {
			return fmt.Errorf("%w: entry %d has invalid hash", ErrChainBroken, i)
		}
		prev = curr.Hash
	}
	return nil
}
