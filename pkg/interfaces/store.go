package interfaces

import (
	"context"

	"studyhall/pkg/types"
)

// RoomStore owns the persisted section -> room mapping.
type RoomStore interface {
	// GetOrCreateRoom returns the room for a section, creating it with a
	// derived default name on first access. The returned row always comes
	// from a read after the insert, never from the insert result.
	GetOrCreateRoom(ctx context.Context, sectionID int64) (*types.Room, error)
}

// MessageStore owns the append-only message log. DeleteMessage performs no
// ownership check; callers must verify sender identity first, so this
// interface must never be exposed to untrusted input directly.
type MessageStore interface {
	AppendMessage(ctx context.Context, roomID, senderID int64, content types.MessageContent) (int64, error)
	EnrichMessage(ctx context.Context, messageID int64) (*types.Message, error)
	ListMessages(ctx context.Context, roomID int64, limit int) ([]*types.Message, error)
	DeleteMessage(ctx context.Context, messageID int64) error
}

// MembershipOracle answers whether a user may participate in a room. It is
// consulted on every join and never cached: enrollment can change between
// sessions and the check is cheap relative to a connection's lifetime.
type MembershipOracle interface {
	// IsMember reports whether userID is enrolled in sectionID and roomID
	// belongs to that section.
	IsMember(ctx context.Context, userID, sectionID, roomID int64) (bool, error)
}
