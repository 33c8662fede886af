package engine

import (
	"encoding/json"
	"time"
)

// Client-to-server event names.
const (
	EventAuthenticate  = "authenticate"
	EventJoinRoom      = "join-room"
	EventLeaveRoom     = "leave-room"
	EventChatMessage   = "chat-message"
	EventDeleteMessage = "delete-message"
	EventTypingStart   = "typing-start"
	EventTypingStop    = "typing-stop"
)

// Server-to-client event names. Chat messages reuse EventChatMessage with the
// enriched record as payload.
const (
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventMessageDeleted    = "message-deleted"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
	EventError             = "error"
)

// Envelope is the wire frame for incoming events. Data stays raw until the
// dispatch switch knows which payload to decode.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerEvent is the wire frame for outgoing events.
type ServerEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client payloads. Identity fields (user_id, sender_id, sender_name,
// user_name) are part of the wire format but ignored on receipt: the engine
// trusts only the identity attached at authenticate time.

type AuthenticatePayload struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token,omitempty"`
}

type JoinRoomPayload struct {
	RoomID    int64 `json:"room_id"`
	SectionID int64 `json:"section_id"`
	UserID    int64 `json:"user_id,omitempty"`
}

type LeaveRoomPayload struct {
	RoomID int64 `json:"room_id"`
}

type ChatMessagePayload struct {
	RoomID      int64   `json:"room_id"`
	Message     string  `json:"message"`
	SenderID    int64   `json:"sender_id,omitempty"`
	SenderName  string  `json:"sender_name,omitempty"`
	MessageType string  `json:"message_type,omitempty"`
	FileURL     *string `json:"file_url,omitempty"`
}

type DeleteMessagePayload struct {
	MessageID int64 `json:"message_id"`
	RoomID    int64 `json:"room_id"`
	UserID    int64 `json:"user_id,omitempty"`
}

type TypingPayload struct {
	RoomID   int64  `json:"room_id"`
	UserID   int64  `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// Server payloads.

type PresencePayload struct {
	RoomID      int64     `json:"room_id"`
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Timestamp   time.Time `json:"timestamp"`
}

type TypingEventPayload struct {
	RoomID   int64  `json:"room_id"`
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}

type MessageDeletedPayload struct {
	MessageID int64 `json:"message_id"`
	RoomID    int64 `json:"room_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
