package telegram

import (
	"log/slog"
	"strings"
	"testing"

	"captionbot/pkg/bus"
	"captionbot/pkg/config"

	"github.com/mymmrac/telego"
)

func testAdapter() *Adapter {
	return &Adapter{log: slog.Default()}
}

func textUpdate(senderID int64, chatID int64, text string) telego.Update {
	return telego.Update{
		UpdateID: 7,
		Message: &telego.Message{
			From: &telego.User{ID: senderID, FirstName: "Ada"},
			Chat: telego.Chat{ID: chatID},
			Text: text,
		},
	}
}

func TestNewAdapterRequiresToken(t *testing.T) {
	if _, err := NewAdapter(config.TelegramConfig{Token: "  "}, config.WebhookConfig{}, nil); err == nil {
		t.Fatal("expected error for blank token")
	}
}

func TestNormalizeTextMessage(t *testing.T) {
	adapter := testAdapter()

	msg, ok := adapter.normalize(textUpdate(1, 2, " hello "))
	if !ok {
		t.Fatal("expected text update to normalize")
	}
	if msg.SenderID != "1" {
		t.Fatalf("sender id = %q, want %q", msg.SenderID, "1")
	}
	if msg.ChatID != "2" {
		t.Fatalf("chat id = %q, want %q", msg.ChatID, "2")
	}
	if msg.Content != "hello" {
		t.Fatalf("content = %q, want %q", msg.Content, "hello")
	}
	if msg.Media != nil {
		t.Fatal("text update must have no media")
	}
	if msg.Metadata["first_name"] != "Ada" {
		t.Fatalf("first_name = %q, want %q", msg.Metadata["first_name"], "Ada")
	}
	if msg.Metadata["update_id"] != "7" {
		t.Fatalf("update_id = %q, want %q", msg.Metadata["update_id"], "7")
	}
}

func TestNormalizeSkipsEmptyUpdates(t *testing.T) {
	adapter := testAdapter()

	if _, ok := adapter.normalize(telego.Update{}); ok {
		t.Fatal("update without message must be skipped")
	}

	update := textUpdate(1, 2, "hello")
	update.Message.From = nil
	if _, ok := adapter.normalize(update); ok {
		t.Fatal("message without sender must be skipped")
	}

	if _, ok := adapter.normalize(textUpdate(1, 2, "   ")); ok {
		t.Fatal("message with neither text nor media must be skipped")
	}
}

func TestNormalizeRespectsAllowList(t *testing.T) {
	adapter := testAdapter()
	adapter.allowFrom = map[string]struct{}{"1": {}}

	if _, ok := adapter.normalize(textUpdate(1, 2, "hello")); !ok {
		t.Fatal("allowed sender must pass")
	}
	if _, ok := adapter.normalize(textUpdate(9, 2, "hello")); ok {
		t.Fatal("disallowed sender must be skipped")
	}
}

func TestExtractMediaPhotoKeepsLargestSize(t *testing.T) {
	message := &telego.Message{
		Photo: []telego.PhotoSize{{FileID: "small"}, {FileID: "medium"}, {FileID: "large"}},
	}

	media := extractMedia(message)
	if media == nil || media.Kind != bus.MediaPhoto {
		t.Fatalf("media = %+v, want a photo", media)
	}
	if media.FileID != "large" {
		t.Fatalf("file id = %q, want %q", media.FileID, "large")
	}
}

func TestExtractMediaVideo(t *testing.T) {
	message := &telego.Message{Video: &telego.Video{FileID: "vid"}}

	media := extractMedia(message)
	if media == nil || media.Kind != bus.MediaVideo || media.FileID != "vid" {
		t.Fatalf("media = %+v, want video vid", media)
	}
}

func TestExtractMediaDocument(t *testing.T) {
	message := &telego.Message{Document: &telego.Document{FileID: "doc", FileName: "notes.pdf"}}

	media := extractMedia(message)
	if media == nil || media.Kind != bus.MediaDocument || media.FileID != "doc" {
		t.Fatalf("media = %+v, want document doc", media)
	}
	if media.FileName != "notes.pdf" {
		t.Fatalf("file name = %q, want %q", media.FileName, "notes.pdf")
	}
}

func TestExtractMediaImageDocumentBecomesPhoto(t *testing.T) {
	for _, name := range []string{"pic.jpg", "pic.JPEG", "shot.PNG"} {
		message := &telego.Message{Document: &telego.Document{FileID: "doc", FileName: name}}

		media := extractMedia(message)
		if media == nil || media.Kind != bus.MediaPhoto {
			t.Fatalf("media for %q = %+v, want a photo", name, media)
		}
	}
}

func TestExtractMediaNone(t *testing.T) {
	if media := extractMedia(&telego.Message{Text: "just text"}); media != nil {
		t.Fatalf("media = %+v, want nil", media)
	}
}

func TestIsImageName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"a.jpg", true},
		{"a.jpeg", true},
		{"A.PNG", true},
		{" photo.png ", true},
		{"a.gif", false},
		{"a.pdf", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := isImageName(tc.name); got != tc.want {
			t.Fatalf("isImageName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAllowFromSet(t *testing.T) {
	allowed := allowFromSet([]string{" 123 ", "", "456", "123"})
	if len(allowed) != 2 {
		t.Fatalf("allowFromSet len = %d, want 2", len(allowed))
	}
	if _, ok := allowed["123"]; !ok {
		t.Fatal("allowFromSet missing 123")
	}
	if _, ok := allowed["456"]; !ok {
		t.Fatal("allowFromSet missing 456")
	}
}

func TestSenderAllowed(t *testing.T) {
	adapter := &Adapter{allowFrom: map[string]struct{}{"1": {}}}
	if !adapter.senderAllowed("1") {
		t.Fatal("expected sender 1 to be allowed")
	}
	if adapter.senderAllowed("2") {
		t.Fatal("expected sender 2 to be denied")
	}

	adapter.allowFrom = nil
	if !adapter.senderAllowed("any") {
		t.Fatal("expected sender to be allowed when allowlist empty")
	}
}

func TestParseChatID(t *testing.T) {
	if id, err := parseChatID(" 42 "); err != nil || id != 42 {
		t.Fatalf("parseChatID = %d, %v, want 42, nil", id, err)
	}
	if _, err := parseChatID("not-a-number"); err == nil {
		t.Fatal("expected error for invalid chat id")
	}
}

func TestPreviewText(t *testing.T) {
	short := " hello "
	if got := previewText(short); got != "hello" {
		t.Fatalf("previewText short = %q, want %q", got, "hello")
	}

	long := strings.Repeat("a", messagePreviewLimit+20)
	got := previewText(long)
	if len(got) != messagePreviewLimit+3 {
		t.Fatalf("previewText long len = %d, want %d", len(got), messagePreviewLimit+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("previewText long = %q, want ellipsis suffix", got)
	}
}
