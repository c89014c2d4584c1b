package ledger

import (
	"fmt"
	"unicode"
)

// MaxAccountIDLen bounds the length of an account identifier in bytes.
const MaxAccountIDLen = 128

// AccountID is an opaque, unforgeable caller identifier handed to the ledger
// by the transport layer. Only equality is meaningful.
type AccountID string

// ParseAccountID validates s and returns it as an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	id := AccountID(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate checks that the identifier is non-empty, bounded and free of
// whitespace or control characters.
func (id AccountID) Validate() error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAccount)
	}
	if len(id) > MaxAccountIDLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidAccount, MaxAccountIDLen)
	}
	for _, r := range string(id) {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return fmt.Errorf("%w: contains %q", ErrInvalidAccount, r)
		}
	}
	return nil
}

func (id AccountID) String() string { return string(id) }
