package types

import (
	"time"
)

// MessageType discriminates the two message payload kinds.
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
)

// Room is the broadcast domain for one course section. Created lazily on
// first lookup, never deleted.
type Room struct {
	ID        int64  `json:"id"`
	SectionID int64  `json:"section_id"`
	Name      string `json:"name"`
}

// Message is a persisted chat message. SenderName and SenderAvatar are
// denormalized from the users table at read time; the store never writes them.
type Message struct {
	ID           int64       `json:"id"`
	RoomID       int64       `json:"room_id"`
	SenderID     int64       `json:"sender_id"`
	SenderName   string      `json:"sender_name"`
	SenderAvatar string      `json:"sender_avatar"`
	Body         string      `json:"message"`
	Type         MessageType `json:"message_type"`
	FileURL      *string     `json:"file_url,omitempty"`
	CreatedAt    time.Time   `json:"timestamp"`
}

// MessageContent is the validated payload of an outgoing send, translated
// once at the protocol boundary so internal logic never re-checks optional
// field presence. Either Text(body) or File(body, url).
type MessageContent struct {
	Type    MessageType
	Body    string
	FileURL *string
}

// TextContent builds a text message payload.
func TextContent(body string) MessageContent {
	return MessageContent{Type: MessageTypeText, Body: body}
}

// FileContent builds a file message payload. The body carries the caption or
// file name shown in the transcript.
func FileContent(body, url string) MessageContent {
	return MessageContent{Type: MessageTypeFile, Body: body, FileURL: &url}
}

// ParseContent translates the wire representation (optional message_type,
// optional file_url) into a MessageContent. An empty messageType defaults to
// text. File messages require a non-empty URL.
func ParseContent(body, messageType string, fileURL *string) (MessageContent, error) {
	if !IsValidBody(body) {
		return MessageContent{}, ErrInvalidBody
	}

	switch MessageType(messageType) {
	case MessageTypeText, "":
		return TextContent(body), nil
	case MessageTypeFile:
		if fileURL == nil || *fileURL == "" {
			return MessageContent{}, ErrMissingFileURL
		}
		return FileContent(body, *fileURL), nil
	default:
		return MessageContent{}, ErrInvalidMessageType
	}
}
