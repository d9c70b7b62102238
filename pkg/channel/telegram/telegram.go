package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"captionbot/pkg/bus"
	"captionbot/pkg/channel"
	"captionbot/pkg/config"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"
const messagePreviewLimit = 240

// Adapter bridges Telegram updates into CaptionBot inbound messages and
// implements the Responder side for outbound replies. It supports long
// polling and webhook delivery; both feed the same inbox.
type Adapter struct {
	cfg       config.TelegramConfig
	webhook   config.WebhookConfig
	allowFrom map[string]struct{}
	log       *slog.Logger

	bot *telego.Bot
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, webhook config.WebhookConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		webhook:   webhook,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in message metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts update delivery and forwards normalized messages through handler.
// The handler is invoked on the consume loop goroutine and must not block;
// anything that suspends belongs on its own goroutine behind the dispatcher.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	bot, err := telego.NewBot(strings.TrimSpace(a.cfg.Token))
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}
	a.bot = bot

	inbox := bus.NewInbox()
	defer inbox.Close()

	errCh := make(chan error, 1)
	if strings.TrimSpace(a.webhook.URL) != "" {
		go a.runWebhook(ctx, bot, inbox, errCh)
		a.log.Info("Telegram channel started", "mode", "webhook")
	} else {
		updates, err := bot.UpdatesViaLongPolling(ctx, nil)
		if err != nil {
			return fmt.Errorf("start long polling: %w", err)
		}
		go a.pumpUpdates(ctx, updates, inbox, errCh)
		a.log.Info("Telegram channel started", "mode", "polling")
	}

	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		a.consumeLoop(ctx, inbox, handler)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	case <-consumeDone:
		if err := ctx.Err(); err != nil {
			return nil
		}
		return errors.New("telegram inbox closed")
	}
}

// pumpUpdates normalizes long-polling updates into the inbox.
func (a *Adapter) pumpUpdates(ctx context.Context, updates <-chan telego.Update, inbox *bus.Inbox, errCh chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() == nil {
					errCh <- errors.New("telegram updates channel closed")
				}
				return
			}

			msg, ok := a.normalize(update)
			if !ok {
				continue
			}
			inbox.Publish(ctx, msg)
		}
	}
}

// consumeLoop hands inbox messages to the dispatch handler one at a time.
func (a *Adapter) consumeLoop(ctx context.Context, inbox *bus.Inbox, handler channel.Handler) {
	for {
		msg, ok := inbox.Consume(ctx)
		if !ok {
			return
		}

		a.log.Info("Received message", "chat_id", msg.ChatID, "sender_id", msg.SenderID, "content", previewText(msg.Content))
		handler(ctx, msg, a)
	}
}

// normalize converts one Telegram update into an inbound message. It reports
// false for updates the bot ignores: no message, no sender, disallowed
// sender, or neither text nor supported media.
func (a *Adapter) normalize(update telego.Update) (bus.InboundMessage, bool) {
	message := update.Message
	if message == nil {
		return bus.InboundMessage{}, false
	}
	if message.From == nil {
		a.log.Debug("Ignoring message without sender")
		return bus.InboundMessage{}, false
	}

	senderID := strconv.FormatInt(message.From.ID, 10)
	if !a.senderAllowed(senderID) {
		a.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
		return bus.InboundMessage{}, false
	}

	content := strings.TrimSpace(message.Text)
	media := extractMedia(message)
	if content == "" && media == nil {
		return bus.InboundMessage{}, false
	}

	return bus.InboundMessage{
		Channel:  channelName,
		SenderID: senderID,
		ChatID:   strconv.FormatInt(message.Chat.ID, 10),
		Content:  content,
		Media:    media,
		Metadata: map[string]string{
			"update_id":  strconv.Itoa(update.UpdateID),
			"first_name": message.From.FirstName,
		},
	}, true
}

// extractMedia pulls the re-sendable media reference out of a message, if any.
// Documents named like images are treated as photos.
func extractMedia(message *telego.Message) *bus.MediaRef {
	switch {
	case len(message.Photo) > 0:
		// Telegram lists photo sizes smallest first; keep the largest.
		best := message.Photo[len(message.Photo)-1]
		return &bus.MediaRef{Kind: bus.MediaPhoto, FileID: best.FileID}
	case message.Video != nil:
		return &bus.MediaRef{Kind: bus.MediaVideo, FileID: message.Video.FileID}
	case message.Document != nil:
		kind := bus.MediaDocument
		if isImageName(message.Document.FileName) {
			kind = bus.MediaPhoto
		}
		return &bus.MediaRef{Kind: kind, FileID: message.Document.FileID, FileName: message.Document.FileName}
	default:
		return nil
	}
}

// SendText sends a plain text message to chatID.
func (a *Adapter) SendText(ctx context.Context, chatID string, text string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}

	if _, err := a.bot.SendMessage(ctx, tu.Message(tu.ID(id), text)); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

// SendMedia re-sends a stored media object to chatID with the given caption.
func (a *Adapter) SendMedia(ctx context.Context, chatID string, media bus.MediaRef, caption string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}

	file := tu.FileFromID(media.FileID)
	switch media.Kind {
	case bus.MediaPhoto:
		_, err = a.bot.SendPhoto(ctx, tu.Photo(tu.ID(id), file).WithCaption(caption))
	case bus.MediaVideo:
		_, err = a.bot.SendVideo(ctx, tu.Video(tu.ID(id), file).WithCaption(caption))
	case bus.MediaDocument:
		_, err = a.bot.SendDocument(ctx, tu.Document(tu.ID(id), file).WithCaption(caption))
	default:
		return fmt.Errorf("unsupported media kind %q", media.Kind)
	}
	if err != nil {
		return fmt.Errorf("send telegram %s: %w", media.Kind, err)
	}

	return nil
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// isImageName reports whether a document file name looks like a photo.
func isImageName(fileName string) bool {
	name := strings.ToLower(strings.TrimSpace(fileName))
	return strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg") || strings.HasSuffix(name, ".png")
}

// parseChatID converts the normalized chat identifier back to Telegram's form.
func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	return id, nil
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}
