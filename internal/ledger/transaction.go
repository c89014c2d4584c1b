package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenesisHash is the PrevHash of the first transaction in the log.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// MaxMemoLen bounds the optional transfer memo in bytes.
const MaxMemoLen = 32

// Transaction is an immutable record of one completed transfer.
//
// Index, PrevHash and Hash are assigned by the Log on append. Hash covers
// every other field, so rewriting a stored record is detected by Verify.
type Transaction struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	From      AccountID `json:"from"`
	To        AccountID `json:"to"`
	Amount    Amount    `json:"amount"`
	Fee       Amount    `json:"fee"`
	Memo      []byte    `json:"memo,omitempty"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// Involves reports whether account is the sender or the recipient.
func (tx Transaction) Involves(account AccountID) bool {
	return tx.From == account || tx.To == account
}

// clone returns a copy that shares no memory with tx.
func (tx Transaction) clone() Transaction {
	if tx.Memo != nil {
		tx.Memo = append([]byte(nil), tx.Memo...)
	}
	return tx
}

// hashTransaction computes a deterministic SHA-256 over a transaction's fields.
func hashTransaction(tx *Transaction) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%x|%s",
		tx.Index, tx.Timestamp.UTC().Format(time.RFC3339Nano),
		tx.From, tx.To, tx.Amount, tx.Fee, tx.Memo, tx.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}
