package wait

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"captionbot/pkg/bus"
)

// ErrAlreadyWaiting reports that the owner key already has an unresolved wait.
var ErrAlreadyWaiting = errors.New("a wait is already pending for this sender")

// ErrTimedOut is returned by NextMessage when the wait deadline elapsed.
var ErrTimedOut = errors.New("timed out waiting for the next message")

// Registry correlates suspended handlers with the next inbound message from
// their sender. At most one wait may be pending per owner key; a second
// request for the same key fails with ErrAlreadyWaiting instead of queueing
// or replacing.
type Registry struct {
	log *slog.Logger

	mu      sync.Mutex
	waiters map[string]*waiter
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		log:     log.With("component", "wait.registry"),
		waiters: make(map[string]*waiter),
	}
}

// WaitFor registers a wait for the next inbound message from key and suspends
// the caller until the wait is delivered to, times out, or ctx is cancelled.
// Exactly one Result is returned per call.
//
// The registry lock guards only the map itself; the suspension is a channel
// receive outside the lock, so waits on different keys never block each other.
func (r *Registry) WaitFor(ctx context.Context, key string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		return Result{}, fmt.Errorf("wait timeout must be positive, got %s", timeout)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	if _, exists := r.waiters[key]; exists {
		r.mu.Unlock()
		return Result{}, ErrAlreadyWaiting
	}
	w := newWaiter(key, timeout)
	r.waiters[key] = w
	r.mu.Unlock()

	timer := time.AfterFunc(timeout, func() {
		if r.settle(key, w, Result{Outcome: TimedOut}) {
			r.log.Debug("Wait timed out", "key", key, "waited", time.Since(w.created), "deadline", w.deadline)
		}
	})
	defer timer.Stop()

	select {
	case result := <-w.done:
		return result, nil
	case <-ctx.Done():
		if r.settle(key, w, Result{Outcome: Cancelled}) {
			return Result{Outcome: Cancelled}, nil
		}
		// Lost the race: a delivery or the timer already claimed the
		// transition, so its result is authoritative.
		return <-w.done, nil
	}
}

// TryDeliver hands msg to the pending wait for key, if any. It never blocks
// and reports whether the message was consumed by a waiter; on false the
// caller routes the message normally. A waiter that timed out concurrently
// never consumes the message.
func (r *Registry) TryDeliver(key string, msg bus.InboundMessage) bool {
	r.mu.Lock()
	w, ok := r.waiters[key]
	r.mu.Unlock()
	if !ok {
		return false
	}

	return r.settle(key, w, Result{Outcome: Delivered, Message: msg})
}

// NextMessage is the handler-facing form of WaitFor: it unwraps a delivered
// message and turns the other outcomes into errors (ErrTimedOut, or the
// context's error on cancellation).
func (r *Registry) NextMessage(ctx context.Context, key string, timeout time.Duration) (bus.InboundMessage, error) {
	result, err := r.WaitFor(ctx, key, timeout)
	if err != nil {
		return bus.InboundMessage{}, err
	}

	switch result.Outcome {
	case Delivered:
		return result.Message, nil
	case TimedOut:
		return bus.InboundMessage{}, ErrTimedOut
	default:
		if err := context.Cause(ctx); err != nil {
			return bus.InboundMessage{}, err
		}
		return bus.InboundMessage{}, context.Canceled
	}
}

// Pending reports whether key currently has an unresolved wait.
func (r *Registry) Pending(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.waiters[key]
	return ok
}

// settle claims w's single terminal transition, removes the registry entry,
// and wakes the suspended consumer, in that order. By the time the consumer
// resumes, the key is free for a new wait. Losers of the claim race see false
// and must have no further effect.
func (r *Registry) settle(key string, w *waiter, result Result) bool {
	if !w.claim(result.Outcome) {
		return false
	}

	r.mu.Lock()
	if current, ok := r.waiters[key]; ok && current == w {
		delete(r.waiters, key)
	}
	r.mu.Unlock()

	w.finish(result)
	return true
}
