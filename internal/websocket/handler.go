package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"studyhall/internal/engine"
)

const (
	handshakeTimeout = 10 * time.Second
	pongWait         = 60 * time.Second
	pingInterval     = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: handshakeTimeout,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is delegated to the deployment's proxy layer.
		return true
	},
}

// Handler upgrades HTTP requests and pumps decoded event envelopes into the
// broadcast engine. Authentication happens in-band via the authenticate
// event; the upgrade itself is open.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a websocket handler backed by eng.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

// Handle is the gin endpoint for live connections.
func (h *Handler) Handle(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(ws)
	connID := h.engine.Connect(conn)
	log.Info().Str("conn", connID).Str("remote", c.Request.RemoteAddr).Msg("websocket connected")

	go h.readLoop(connID, conn, ws)
}

// readLoop reads envelopes until the peer goes away, then triggers the
// disconnect transition. One goroutine per connection; events for a given
// connection therefore reach the engine in receive order.
func (h *Handler) readLoop(connID string, conn *Connection, ws *websocket.Conn) {
	defer func() {
		h.engine.Disconnect(connID)
		_ = conn.Close()
		log.Info().Str("conn", connID).Msg("websocket disconnected")
	}()

	if err := ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn", connID).Msg("websocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var envelope engine.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Event == "" {
			_ = conn.WriteJSON(engine.ServerEvent{
				Event: engine.EventError,
				Data:  engine.ErrorPayload{Message: "malformed event envelope"},
			})
			continue
		}

		if err := h.engine.Dispatch(connID, envelope); err != nil {
			log.Warn().Err(err).Str("conn", connID).Str("event", envelope.Event).Msg("event dropped")
			_ = conn.WriteJSON(engine.ServerEvent{
				Event: engine.EventError,
				Data:  engine.ErrorPayload{Message: "server busy, event dropped"},
			})
		}
	}
}
