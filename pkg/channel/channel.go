package channel

import (
	"context"

	"captionbot/pkg/bus"
)

// Handler consumes one normalized inbound message. The responder belongs to
// the adapter that produced the message and must be used for all replies.
type Handler func(ctx context.Context, msg bus.InboundMessage, rsp Responder)

// Responder sends outbound replies on behalf of handlers.
type Responder interface {
	SendText(ctx context.Context, chatID string, text string) error
	SendMedia(ctx context.Context, chatID string, media bus.MediaRef, caption string) error
}

// Adapter bridges one external transport (for example Telegram) into CaptionBot.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
