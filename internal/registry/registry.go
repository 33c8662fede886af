package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Sender is the write half of a live connection. The registry never reads
// from connections; it only hands senders to the broadcast layer.
type Sender interface {
	WriteJSON(v interface{}) error
}

// Member is a snapshot of one room member at lookup time.
type Member struct {
	ConnID      string
	UserID      int64
	DisplayName string
	Sender      Sender
}

// Identity is the authenticated user attached to a connection.
type Identity struct {
	UserID      int64
	DisplayName string
}

type connection struct {
	sender        Sender
	identity      Identity
	authenticated bool
	rooms         map[int64]struct{}
}

// Registry tracks live connections, their authenticated identity and their
// room memberships. It is the runtime source of truth for "who receives this
// broadcast", distinct from the durable enrollment relation.
//
// Every operation on an unknown connection id is a no-op: late events racing
// a disconnect are expected and must never be fatal.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
	rooms map[int64]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*connection),
		rooms: make(map[int64]map[string]struct{}),
	}
}

// Register admits a transport-level connection and returns its fresh id.
// The connection starts unauthenticated; no room operation succeeds until
// Authenticate attaches an identity.
func (r *Registry) Register(sender Sender) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[id] = &connection{
		sender: sender,
		rooms:  make(map[int64]struct{}),
	}
	return id
}

// Authenticate attaches an identity to a connection. Idempotent; a later call
// overwrites the identity (existing memberships are kept — enrollment is
// re-checked on the next join anyway).
func (r *Registry) Authenticate(connID string, userID int64, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	conn.identity = Identity{UserID: userID, DisplayName: displayName}
	conn.authenticated = true
}

// Identity returns the authenticated identity of a connection, if any.
func (r *Registry) Identity(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok || !conn.authenticated {
		return Identity{}, false
	}
	return conn.identity, true
}

// Sender returns the write half of a connection, if it is still registered.
func (r *Registry) Sender(connID string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return conn.sender, true
}

// Join records room membership. Joining an already-joined room is a no-op.
func (r *Registry) Join(connID string, roomID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return
	}

	conn.rooms[roomID] = struct{}{}
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][connID] = struct{}{}
}

// Leave releases room membership and reports whether the connection was a
// member. Leaving a non-joined room is a no-op.
func (r *Registry) Leave(connID string, roomID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, member := conn.rooms[roomID]; !member {
		return false
	}

	delete(conn.rooms, roomID)
	r.removeFromRoom(connID, roomID)
	return true
}

// IsMember reports whether a connection currently belongs to a room.
func (r *Registry) IsMember(connID string, roomID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, member := conn.rooms[roomID]
	return member
}

// MembersOf snapshots a room's current members. Callers must re-query at
// broadcast time rather than hold the result across blocking calls, so
// disconnected connections never receive late fan-out.
func (r *Registry) MembersOf(roomID int64) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	members := make([]Member, 0, len(ids))
	for connID := range ids {
		conn, ok := r.conns[connID]
		if !ok {
			continue
		}
		members = append(members, Member{
			ConnID:      connID,
			UserID:      conn.identity.UserID,
			DisplayName: conn.identity.DisplayName,
			Sender:      conn.sender,
		})
	}
	return members
}

// Unregister removes a connection, releasing every room membership it held.
// It returns the identity and the rooms the connection was in so the caller
// can emit presence events. Invoked exactly once per disconnect; a second
// call finds nothing and returns empty results.
func (r *Registry) Unregister(connID string) (Identity, []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return Identity{}, nil
	}

	rooms := make([]int64, 0, len(conn.rooms))
	for roomID := range conn.rooms {
		r.removeFromRoom(connID, roomID)
		rooms = append(rooms, roomID)
	}
	delete(r.conns, connID)

	return conn.identity, rooms
}

// Stats reports registry size for health reporting.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"total_connections": len(r.conns),
		"active_rooms":      len(r.rooms),
	}
}

// removeFromRoom deletes the membership entry and drops empty room sets so
// the map does not grow with dead rooms. Caller holds the write lock.
func (r *Registry) removeFromRoom(connID string, roomID int64) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}
