package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"captionbot/pkg/bus"
	"captionbot/pkg/channel"
	"captionbot/pkg/router"
)

const startCommand = "/start"

const startHint = "Send me a photo, a video, or a file, and I will ask you for its caption."

// StartHandler greets users and explains the caption flow.
type StartHandler struct {
	log *slog.Logger
}

func NewStartHandler(log *slog.Logger) *StartHandler {
	if log == nil {
		log = slog.Default()
	}

	return &StartHandler{log: log.With("component", "handlers.start")}
}

func (h *StartHandler) Route() router.Route {
	return router.Route{Name: "start", Match: matchStart, Handle: h.handle}
}

func (h *StartHandler) handle(ctx context.Context, msg bus.InboundMessage, rsp channel.Responder) error {
	if err := rsp.SendText(ctx, msg.ChatID, greeting(msg.Metadata["first_name"])); err != nil {
		return fmt.Errorf("send greeting: %w", err)
	}

	return rsp.SendText(ctx, msg.ChatID, startHint)
}

// matchStart accepts "/start" with an optional @botname suffix and arguments.
func matchStart(msg bus.InboundMessage) bool {
	return commandOf(msg.Content) == startCommand
}

// commandOf extracts the leading bot command from text, without any @mention.
func commandOf(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return ""
	}

	command, _, _ := strings.Cut(trimmed, " ")
	command, _, _ = strings.Cut(command, "@")
	return command
}

func greeting(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		return "👋 Hi!"
	}

	return "👋 Hi " + name + "!"
}
