package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"captionbot/pkg/bus"

	"github.com/mymmrac/telego"
)

const (
	webhookPath        = "/webhook"
	defaultWebhookHost = "0.0.0.0"
)

// runWebhook registers the webhook with Telegram and serves update posts
// until ctx is cancelled. Decoded updates are normalized and published into
// the shared inbox, so dispatch behaves identically to long polling.
func (a *Adapter) runWebhook(ctx context.Context, bot *telego.Bot, inbox *bus.Inbox, errCh chan<- error) {
	url := webhookEndpoint(a.webhook.URL)
	if err := bot.SetWebhook(ctx, &telego.SetWebhookParams{URL: url}); err != nil {
		errCh <- fmt.Errorf("set webhook: %w", err)
		return
	}
	a.log.Info("Webhook registered", "url", url)

	host := strings.TrimSpace(a.webhook.Host)
	if host == "" {
		host = defaultWebhookHost
	}
	addr := host + ":" + strconv.Itoa(a.webhook.ListenPort())

	server := &http.Server{
		Addr:              addr,
		Handler:           a.webhookMux(ctx, inbox),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		if err := bot.DeleteWebhook(shutdownCtx, &telego.DeleteWebhookParams{}); err != nil {
			a.log.Debug("Failed to delete webhook", "error", err)
		}
	}()

	a.log.Info("Webhook server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start webhook server: %w", err)
	}
}

// webhookMux builds the webhook HTTP surface: the update endpoint plus a
// liveness probe.
func (a *Adapter) webhookMux(ctx context.Context, inbox *bus.Inbox) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+webhookPath, func(w http.ResponseWriter, r *http.Request) {
		var update telego.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			a.log.Debug("Rejected malformed webhook update", "error", err)
			http.Error(w, "malformed update", http.StatusBadRequest)
			return
		}

		if msg, ok := a.normalize(update); ok {
			inbox.Publish(ctx, msg)
		}

		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}

// webhookEndpoint joins the public webhook base URL with the update path.
func webhookEndpoint(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + webhookPath
}
