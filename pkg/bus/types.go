package bus

// MediaKind identifies the kind of media attached to an inbound message.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// MediaRef points at a media object the transport already stores, addressable
// by its file ID. Re-sending a MediaRef never re-uploads the payload.
type MediaRef struct {
	Kind     MediaKind `json:"kind"`
	FileID   string    `json:"file_id"`
	FileName string    `json:"file_name,omitempty"`
}

type InboundMessage struct {
	Channel  string            `json:"channel"`
	SenderID string            `json:"sender_id"`
	ChatID   string            `json:"chat_id"`
	Content  string            `json:"content"`
	Media    *MediaRef         `json:"media,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
