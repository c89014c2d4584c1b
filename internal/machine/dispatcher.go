package machine

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"go.uber.org/zap"
)

// DefaultQueueSize is the call queue capacity used when none is configured.
const DefaultQueueSize = 1024

type job struct {
	ctx    context.Context
	caller ledger.AccountID
	fn     func(*Machine, Call) error
	done   chan error
}

// Dispatcher serialises calls against a Machine. Exactly one goroutine, the
// one running Run, ever touches the Machine.
type Dispatcher struct {
	m      *Machine
	clock  Clock
	logger *zap.Logger

	jobs      chan job
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewDispatcher creates a Dispatcher for m. Start it with Run.
func NewDispatcher(m *Machine, clock Clock, queueSize int, logger *zap.Logger) *Dispatcher {
	if clock == nil {
		clock = SystemClock{}
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		m:       m,
		clock:   clock,
		logger:  logger,
		jobs:    make(chan job, queueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run executes queued calls until ctx is cancelled or Close is called. After
// Close, calls already queued are executed before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.stopped)
	defer d.closeOnce.Do(func() { close(d.quit) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.quit:
			for {
				select {
				case j := <-d.jobs:
					d.exec(j)
				default:
					return nil
				}
			}
		case j := <-d.jobs:
			d.exec(j)
		}
	}
}

// Close stops accepting calls. It does not wait for Run to return; use Done
// for that.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.quit) })
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} { return d.stopped }

// QueueLen returns the number of calls waiting to run.
func (d *Dispatcher) QueueLen() int { return len(d.jobs) }

// Do runs fn on the dispatcher goroutine on behalf of caller and returns its
// error. Do gives up waiting when ctx is done; a call that already started
// still runs to completion.
func (d *Dispatcher) Do(ctx context.Context, caller ledger.AccountID, fn func(*Machine, Call) error) error {
	select {
	case <-d.quit:
		return ErrDispatcherClosed
	default:
	}

	j := job{ctx: ctx, caller: caller, fn: fn, done: make(chan error, 1)}
	select {
	case d.jobs <- j:
	case <-d.quit:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		select {
		case err := <-j.done:
			return err
		default:
			return ErrDispatcherClosed
		}
	}
}

func (d *Dispatcher) exec(j job) {
	if err := j.ctx.Err(); err != nil {
		j.done <- err
		return
	}
	call := Call{Caller: j.caller, Now: d.clock.Now()}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("state machine call panicked",
				zap.String("caller", call.Caller.String()),
				zap.Any("panic", r),
			)
			j.done <- fmt.Errorf("call panicked: %v", r)
		}
	}()
	j.done <- j.fn(d.m, call)
}
