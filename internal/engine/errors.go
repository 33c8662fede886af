package engine

import "errors"

var (
	ErrEngineAlreadyRunning = errors.New("engine is already running")
	ErrEngineNotRunning     = errors.New("engine is not running")
	ErrEventChannelFull     = errors.New("event channel is full")
)

// Client-facing error texts. Oracle denial and oracle failure share one
// message so enrollment structure never leaks to the client.
const (
	errTextAuthRequired = "authentication required"
	errTextAuthFailed   = "authentication failed"
	errTextUnauthorized = "unauthorized to join room"
	errTextNotMember    = "not a member of room"
	errTextSendFailed   = "failed to send message"
	errTextDeleteFailed = "failed to delete message"
	errTextNotFound     = "message not found"
	errTextNotOwner     = "cannot delete another user's message"
	errTextRateLimited  = "rate limit exceeded"
	errTextBadPayload   = "malformed event payload"
	errTextUnknownEvent = "unknown event"
)
