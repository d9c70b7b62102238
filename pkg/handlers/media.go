package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"captionbot/pkg/bus"
	"captionbot/pkg/channel"
	"captionbot/pkg/router"
	"captionbot/pkg/wait"
)

const defaultWaitTimeout = 25 * time.Second

const (
	timeoutReply        = "Time's up! Send your media again to start over."
	invalidInputReply   = "I needed plain text!\nSend your media again to start over."
	alreadyWaitingReply = "Finish the step you already started first."
)

// mediaAcks maps each media kind to its acknowledgment text. The re-send with
// caption itself is uniform: the original MediaRef goes back out through
// Responder.SendMedia, which dispatches on the kind.
var mediaAcks = map[bus.MediaKind]string{
	bus.MediaPhoto:    "Got your photo!\nNow send me the caption:",
	bus.MediaVideo:    "Got your video!\nNow send me the caption:",
	bus.MediaDocument: "Got your file!\nNow send me the caption:",
}

// MediaHandler runs the two-step caption conversation: acknowledge the media,
// suspend until the sender's next message, then re-send the media with that
// text as its caption.
type MediaHandler struct {
	registry *wait.Registry
	timeout  time.Duration
	log      *slog.Logger
}

func NewMediaHandler(registry *wait.Registry, timeout time.Duration, log *slog.Logger) *MediaHandler {
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &MediaHandler{
		registry: registry,
		timeout:  timeout,
		log:      log.With("component", "handlers.media"),
	}
}

func (h *MediaHandler) Route() router.Route {
	return router.Route{Name: "media", Match: matchMedia, Handle: h.handle}
}

func matchMedia(msg bus.InboundMessage) bool {
	return msg.Media != nil
}

func (h *MediaHandler) handle(ctx context.Context, msg bus.InboundMessage, rsp channel.Responder) error {
	media := *msg.Media
	ack, ok := mediaAcks[media.Kind]
	if !ok {
		return fmt.Errorf("unsupported media kind %q", media.Kind)
	}

	if err := rsp.SendText(ctx, msg.ChatID, ack); err != nil {
		return fmt.Errorf("acknowledge %s: %w", media.Kind, err)
	}

	reply, err := h.registry.NextMessage(ctx, msg.SenderID, h.timeout)
	switch {
	case errors.Is(err, wait.ErrTimedOut):
		h.log.Info("Caption wait timed out", "sender_id", msg.SenderID, "kind", media.Kind)
		return rsp.SendText(ctx, msg.ChatID, timeoutReply)
	case errors.Is(err, wait.ErrAlreadyWaiting):
		return rsp.SendText(ctx, msg.ChatID, alreadyWaitingReply)
	case err != nil:
		// Shutdown cancellation; there is no conversation left to finish.
		return err
	}

	caption := strings.TrimSpace(reply.Content)
	if caption == "" {
		return rsp.SendText(ctx, msg.ChatID, invalidInputReply)
	}

	if err := rsp.SendMedia(ctx, reply.ChatID, media, caption); err != nil {
		return fmt.Errorf("send %s with caption: %w", media.Kind, err)
	}

	return nil
}
