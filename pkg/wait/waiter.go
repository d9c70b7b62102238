package wait

import (
	"sync/atomic"
	"time"

	"captionbot/pkg/bus"
)

// Outcome is the terminal result of one wait.
type Outcome int32

const (
	// Delivered means the next inbound message from the owner arrived in time.
	Delivered Outcome = iota + 1
	// TimedOut means the deadline elapsed before any matching message arrived.
	TimedOut
	// Cancelled means the surrounding task was cancelled before resolution.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// Result carries the outcome of one wait and, when delivered, the message.
type Result struct {
	Outcome Outcome
	Message bus.InboundMessage
}

// stateEmpty is the only state a waiter can transition out of.
const stateEmpty int32 = 0

// waiter is a single-use pending wait keyed by its owner. Its state moves
// exactly once from empty to one of the terminal outcomes; the transition is
// claimed with a compare-and-swap so concurrent deliver/expire/cancel attempts
// cannot overwrite each other. Only the registry mutates a waiter.
type waiter struct {
	key      string
	created  time.Time
	deadline time.Time

	state atomic.Int32
	done  chan Result
}

func newWaiter(key string, timeout time.Duration) *waiter {
	now := time.Now()
	return &waiter{
		key:      key,
		created:  now,
		deadline: now.Add(timeout),
		done:     make(chan Result, 1),
	}
}

// claim attempts the empty to terminal transition. Exactly one caller wins.
func (w *waiter) claim(outcome Outcome) bool {
	return w.state.CompareAndSwap(stateEmpty, int32(outcome))
}

// finish publishes the result and wakes the suspended consumer. It must be
// called exactly once, by the claim winner, after the registry entry is gone.
func (w *waiter) finish(result Result) {
	w.done <- result
}
