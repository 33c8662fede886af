package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"studyhall/internal/auth"
	"studyhall/internal/registry"
	"studyhall/pkg/interfaces"
	"studyhall/pkg/types"
)

// Channel buffers sized for section-scale bursts; the disconnect channel is
// smaller because disconnects are rare relative to messages.
const (
	eventBufferSize      = 1000
	disconnectBufferSize = 100
)

// TokenValidator checks identity tokens on authenticate events. A nil
// validator means the payload identity is trusted as-is (token issuance is
// handled by the surrounding platform; deployments without it run open).
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// Engine drives the room event state machine: join/leave/send/delete/typing,
// orchestrating the membership oracle, the message store and the connection
// registry into room fan-out.
//
// All events flow through a single run goroutine. That preserves the order a
// connection's events were received in, and makes broadcast order equal to
// store commit order for every observer: persistence completes before the
// next event is taken off the channel.
type Engine struct {
	events      chan *eventContext
	disconnects chan string
	shutdown    chan struct{}

	registry *registry.Registry
	messages interfaces.MessageStore
	oracle   interfaces.MembershipOracle
	tokens   TokenValidator
	limiter  *RateLimiter

	running bool
	mu      sync.RWMutex
}

type eventContext struct {
	connID   string
	envelope Envelope
}

// NewEngine creates an engine. tokens may be nil (no token verification).
func NewEngine(reg *registry.Registry, messages interfaces.MessageStore, oracle interfaces.MembershipOracle, tokens TokenValidator) *Engine {
	return &Engine{
		events:      make(chan *eventContext, eventBufferSize),
		disconnects: make(chan string, disconnectBufferSize),
		shutdown:    make(chan struct{}),
		registry:    reg,
		messages:    messages,
		oracle:      oracle,
		tokens:      tokens,
		limiter:     NewRateLimiter(),
	}
}

// Start begins event processing.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrEngineAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	log.Info().Msg("starting broadcast engine")
	go e.run(ctx)
	return nil
}

// Stop shuts down the run loop. Queued events are dropped.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return ErrEngineNotRunning
	}
	e.running = false

	select {
	case <-e.shutdown:
	default:
		close(e.shutdown)
	}
	return nil
}

// Connect registers a transport-level connection and returns its id. The
// connection starts unauthenticated.
func (e *Engine) Connect(sender registry.Sender) string {
	connID := e.registry.Register(sender)
	log.Debug().Str("conn", connID).Msg("connection registered")
	return connID
}

// Dispatch queues one event from a connection. Non-blocking: a full channel
// surfaces as an error to the transport rather than stalling its read loop.
func (e *Engine) Dispatch(connID string, envelope Envelope) error {
	e.mu.RLock()
	if !e.running {
		e.mu.RUnlock()
		return ErrEngineNotRunning
	}
	e.mu.RUnlock()

	select {
	case e.events <- &eventContext{connID: connID, envelope: envelope}:
		return nil
	default:
		return ErrEventChannelFull
	}
}

// Disconnect queues connection teardown. Blocks until accepted: unregister
// must run exactly once per connection even under load. If the engine is
// already stopped the registry is cleaned up inline, without farewells.
func (e *Engine) Disconnect(connID string) {
	select {
	case e.disconnects <- connID:
	case <-e.shutdown:
		e.registry.Unregister(connID)
	}
}

func (e *Engine) run(ctx context.Context) {
	defer log.Info().Msg("broadcast engine stopped")

	cleanup := time.NewTicker(5 * time.Minute)
	defer cleanup.Stop()

	for {
		select {
		case ec := <-e.events:
			e.handleEvent(ctx, ec)
		case connID := <-e.disconnects:
			e.handleDisconnect(connID)
		case <-cleanup.C:
			e.limiter.Cleanup()
		case <-e.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// handleEvent is the dispatch switch of the state machine. Decode failures
// and unknown events are terminal for the event only, reported to the sender.
func (e *Engine) handleEvent(ctx context.Context, ec *eventContext) {
	var err error

	switch ec.envelope.Event {
	case EventAuthenticate:
		err = e.handleAuthenticate(ec.connID, ec.envelope.Data)
	case EventJoinRoom:
		err = e.handleJoinRoom(ctx, ec.connID, ec.envelope.Data)
	case EventLeaveRoom:
		err = e.handleLeaveRoom(ec.connID, ec.envelope.Data)
	case EventChatMessage:
		err = e.handleChatMessage(ctx, ec.connID, ec.envelope.Data)
	case EventDeleteMessage:
		err = e.handleDeleteMessage(ctx, ec.connID, ec.envelope.Data)
	case EventTypingStart:
		err = e.handleTyping(ec.connID, ec.envelope.Data, EventUserTyping)
	case EventTypingStop:
		err = e.handleTyping(ec.connID, ec.envelope.Data, EventUserStoppedTyping)
	default:
		log.Warn().Str("conn", ec.connID).Str("event", ec.envelope.Event).Msg("unknown event")
		e.emitError(ec.connID, errTextUnknownEvent)
		return
	}

	if err != nil {
		log.Error().Err(err).Str("conn", ec.connID).Str("event", ec.envelope.Event).Msg("event failed")
	}
}

func (e *Engine) handleAuthenticate(connID string, data json.RawMessage) error {
	var p AuthenticatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		e.emitError(connID, errTextBadPayload)
		return nil
	}

	userID, displayName := p.UserID, p.DisplayName

	if e.tokens != nil {
		claims, err := e.tokens.ValidateToken(p.Token)
		if err != nil {
			e.emitError(connID, errTextAuthFailed)
			return nil
		}
		userID, displayName = claims.UserID, claims.DisplayName
	}

	if !types.IsValidID(userID) || !types.IsValidDisplayName(displayName) {
		e.emitError(connID, errTextAuthFailed)
		return nil
	}

	e.registry.Authenticate(connID, userID, displayName)
	log.Info().Str("conn", connID).Int64("user", userID).Msg("connection authenticated")
	return nil
}

func (e *Engine) handleJoinRoom(ctx context.Context, connID string, data json.RawMessage) error {
	identity, ok := e.registry.Identity(connID)
	if !ok {
		e.emitError(connID, errTextAuthRequired)
		return nil
	}

	var p JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || !types.IsValidID(p.RoomID) || !types.IsValidID(p.SectionID) {
		e.emitError(connID, errTextBadPayload)
		return nil
	}

	member, err := e.oracle.IsMember(ctx, identity.UserID, p.SectionID, p.RoomID)
	if err != nil || !member {
		// Denial and oracle failure are deliberately indistinguishable.
		e.emitError(connID, errTextUnauthorized)
		if err != nil {
			return err
		}
		log.Info().Str("conn", connID).Int64("user", identity.UserID).Int64("room", p.RoomID).Msg("join refused")
		return nil
	}

	e.registry.Join(connID, p.RoomID)
	log.Info().Str("conn", connID).Int64("user", identity.UserID).Int64("room", p.RoomID).Msg("joined room")

	e.broadcast(p.RoomID, connID, EventUserJoined, PresencePayload{
		RoomID:      p.RoomID,
		UserID:      identity.UserID,
		DisplayName: identity.DisplayName,
		Timestamp:   time.Now().UTC(),
	})
	return nil
}

func (e *Engine) handleLeaveRoom(connID string, data json.RawMessage) error {
	identity, ok := e.registry.Identity(connID)
	if !ok {
		e.emitError(connID, errTextAuthRequired)
		return nil
	}

	var p LeaveRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || !types.IsValidID(p.RoomID) {
		e.emitError(connID, errTextBadPayload)
		return nil
	}

	if !e.registry.Leave(connID, p.RoomID) {
		return nil
	}

	e.broadcast(p.RoomID, connID, EventUserLeft, PresencePayload{
		RoomID:      p.RoomID,
		UserID:      identity.UserID,
		DisplayName: identity.DisplayName,
		Timestamp:   time.Now().UTC(),
	})
	return nil
}

func (e *Engine) handleChatMessage(ctx context.Context, connID string, data json.RawMessage) error {
	identity, ok := e.registry.Identity(connID)
	if !ok {
		e.emitError(connID, errTextAuthRequired)
		return nil
	}

	var p ChatMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || !types.IsValidID(p.RoomID) {
		e.emitError(connID, errTextBadPayload)
		return nil
	}

	if !e.registry.IsMember(connID, p.RoomID) {
		e.emitError(connID, errTextNotMember)
		return nil
	}

	content, err := types.ParseContent(p.Message, p.MessageType, p.FileURL)
	if err != nil {
		e.emitError(connID, err.Error())
		return nil
	}

	if !e.limiter.Allow(connID) {
		e.emitError(connID, errTextRateLimited)
		return nil
	}

	messageID, err := e.messages.AppendMessage(ctx, p.RoomID, identity.UserID, content)
	if err != nil {
		e.emitError(connID, errTextSendFailed)
		return err
	}

	// Enrich failure after a successful append leaves a durable message that
	// was never broadcast; it surfaces on the next history list. No rollback.
	msg, err := e.messages.EnrichMessage(ctx, messageID)
	if err != nil {
		e.emitError(connID, errTextSendFailed)
		return err
	}

	// The whole room, sender included: every tab converges on the persisted
	// record with its server-assigned id and timestamp.
	e.broadcast(p.RoomID, "", EventChatMessage, msg)
	return nil
}

func (e *Engine) handleDeleteMessage(ctx context.Context, connID string, data json.RawMessage) error {
	identity, ok := e.registry.Identity(connID)
	if !ok {
		e.emitError(connID, errTextAuthRequired)
		return nil
	}

	var p DeleteMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || !types.IsValidID(p.MessageID) || !types.IsValidID(p.RoomID) {
		e.emitError(connID, errTextBadPayload)
		return nil
	}

	if !e.registry.IsMember(connID, p.RoomID) {
		e.emitError(connID, errTextNotMember)
		return nil
	}

	msg, err := e.messages.EnrichMessage(ctx, p.MessageID)
	if err != nil {
		if errors.Is(err, interfaces.ErrMessageNotFound) {
			e.emitError(connID, errTextNotFound)
			return nil
		}
		e.emitError(connID, errTextDeleteFailed)
		return err
	}

	if msg.SenderID != identity.UserID || msg.RoomID != p.RoomID {
		e.emitError(connID, errTextNotOwner)
		return nil
	}

	if err := e.messages.DeleteMessage(ctx, p.MessageID); err != nil {
		e.emitError(connID, errTextDeleteFailed)
		return err
	}

	e.broadcast(p.RoomID, "", EventMessageDeleted, MessageDeletedPayload{
		MessageID: p.MessageID,
		RoomID:    p.RoomID,
	})
	return nil
}

func (e *Engine) handleTyping(connID string, data json.RawMessage, event string) error {
	identity, ok := e.registry.Identity(connID)
	if !ok {
		e.emitError(connID, errTextAuthRequired)
		return nil
	}

	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil || !types.IsValidID(p.RoomID) {
		e.emitError(connID, errTextBadPayload)
		return nil
	}

	if !e.registry.IsMember(connID, p.RoomID) {
		e.emitError(connID, errTextNotMember)
		return nil
	}

	// Transient: never persisted.
	e.broadcast(p.RoomID, connID, event, TypingEventPayload{
		RoomID:   p.RoomID,
		UserID:   identity.UserID,
		UserName: identity.DisplayName,
	})
	return nil
}

func (e *Engine) handleDisconnect(connID string) {
	identity, rooms := e.registry.Unregister(connID)
	e.limiter.Forget(connID)

	for _, roomID := range rooms {
		e.broadcast(roomID, connID, EventUserLeft, PresencePayload{
			RoomID:      roomID,
			UserID:      identity.UserID,
			DisplayName: identity.DisplayName,
			Timestamp:   time.Now().UTC(),
		})
	}

	log.Info().Str("conn", connID).Int("rooms", len(rooms)).Msg("connection unregistered")
}

// broadcast fans an event out to a room's current members, excluding
// excludeConnID when non-empty. Membership is queried here, after any
// persistence call, so connections unregistered in the meantime are skipped.
// Write failures are dropped; the write pump's close handles dead peers.
func (e *Engine) broadcast(roomID int64, excludeConnID, event string, payload interface{}) {
	members := e.registry.MembersOf(roomID)
	if excludeConnID != "" {
		members = lo.Filter(members, func(m registry.Member, _ int) bool {
			return m.ConnID != excludeConnID
		})
	}

	out := ServerEvent{Event: event, Data: payload}
	for _, member := range members {
		if err := member.Sender.WriteJSON(out); err != nil {
			log.Debug().Err(err).Str("conn", member.ConnID).Int64("room", roomID).Msg("dropped broadcast")
		}
	}
}

// emitError reports a failure to the originating connection only. Errors are
// never broadcast and never close the connection.
func (e *Engine) emitError(connID, message string) {
	sender, ok := e.registry.Sender(connID)
	if !ok {
		return
	}
	if err := sender.WriteJSON(ServerEvent{Event: EventError, Data: ErrorPayload{Message: message}}); err != nil {
		log.Debug().Err(err).Str("conn", connID).Msg("failed to deliver error event")
	}
}
