package handlers

import (
	"log/slog"
	"time"

	"captionbot/pkg/router"
	"captionbot/pkg/wait"
)

// Register wires the conversation routes into the dispatcher. Order matters:
// the command route must sit before the media route so a media message never
// shadows a command retry.
func Register(d *router.Dispatcher, registry *wait.Registry, waitTimeout time.Duration, log *slog.Logger) {
	d.AddRoute(NewStartHandler(log).Route())
	d.AddRoute(NewMediaHandler(registry, waitTimeout, log).Route())
}
