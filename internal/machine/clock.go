package machine

import (
	"time"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
)

// Clock supplies wall-clock time to the dispatcher.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Call carries the ambient context of one state machine call. Now is read
// once when the call starts and is the only time the call observes.
type Call struct {
	Caller ledger.AccountID
	Now    time.Time
}

// Anonymous reports whether the call has no caller identity.
func (c Call) Anonymous() bool { return c.Caller == "" }
