package bus

import (
	"context"
	"sync"
)

const defaultBufferSize = 100

// Inbox buffers normalized inbound messages between a message source and the
// dispatch loop. Both the long-polling pump and the webhook server publish
// into the same inbox, so dispatch order is independent of delivery mode.
type Inbox struct {
	messages chan InboundMessage

	done      chan struct{}
	closeOnce sync.Once
}

func NewInbox() *Inbox {
	return &Inbox{
		messages: make(chan InboundMessage, defaultBufferSize),
		done:     make(chan struct{}),
	}
}

func (in *Inbox) Publish(ctx context.Context, msg InboundMessage) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return false
	case <-in.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-in.done:
		return false
	case in.messages <- msg:
		return true
	}
}

func (in *Inbox) Consume(ctx context.Context) (InboundMessage, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case <-in.done:
		return InboundMessage{}, false
	case msg := <-in.messages:
		return msg, true
	}
}

func (in *Inbox) Close() {
	in.closeOnce.Do(func() {
		close(in.done)
	})
}
