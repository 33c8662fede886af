package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"studyhall/internal/store"
	"studyhall/pkg/interfaces"
	"studyhall/pkg/types"
)

// RegistryStats is the slice of the connection registry the API needs for
// health reporting.
type RegistryStats interface {
	Stats() map[string]int
}

// HealthChecker validates the persistence layer is reachable.
type HealthChecker interface {
	HealthCheck() error
}

// Server is the stateless REST mirror of the live protocol: room lookup,
// history, and posting for clients without a socket. Posts persist and
// enrich but fan out to nobody — this path is a fallback, not a bridge.
type Server struct {
	rooms    interfaces.RoomStore
	messages interfaces.MessageStore
	health   HealthChecker
	registry RegistryStats
}

// NewServer creates the REST server.
func NewServer(rooms interfaces.RoomStore, messages interfaces.MessageStore, health HealthChecker, reg RegistryStats) *Server {
	return &Server{rooms: rooms, messages: messages, health: health, registry: reg}
}

// Register mounts the API routes on a gin router group.
func (s *Server) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/rooms/by-section/:sectionId", s.roomBySection)
	api.GET("/rooms/:roomId/messages", s.listMessages)
	api.POST("/rooms/:roomId/messages", s.postMessage)
	r.GET("/health", s.healthCheck)
}

type postMessageRequest struct {
	SenderID    int64   `json:"sender_id" binding:"required,gt=0"`
	Message     string  `json:"message" binding:"required"`
	MessageType string  `json:"message_type"`
	FileURL     *string `json:"file_url"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections"`
}

// roomBySection returns the section's room, creating it on first access.
func (s *Server) roomBySection(c *gin.Context) {
	sectionID, ok := pathID(c, "sectionId")
	if !ok {
		return
	}

	room, err := s.rooms.GetOrCreateRoom(c.Request.Context(), sectionID)
	if err != nil {
		log.Error().Err(err).Int64("section", sectionID).Msg("room lookup failed")
		sendError(c, http.StatusInternalServerError, "failed to load room")
		return
	}

	c.JSON(http.StatusOK, room)
}

// listMessages returns a room's history ascending by id, capped at the store
// limit. No pagination cursor: reading past the cap is not supported.
func (s *Server) listMessages(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}

	messages, err := s.messages.ListMessages(c.Request.Context(), roomID, store.DefaultHistoryLimit)
	if err != nil {
		log.Error().Err(err).Int64("room", roomID).Msg("message list failed")
		sendError(c, http.StatusInternalServerError, "failed to load messages")
		return
	}

	if messages == nil {
		messages = []*types.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// postMessage persists and enriches a message without live fan-out.
func (s *Server) postMessage(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "sender_id and message are required")
		return
	}

	content, err := types.ParseContent(req.Message, req.MessageType, req.FileURL)
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	messageID, err := s.messages.AppendMessage(ctx, roomID, req.SenderID, content)
	if err != nil {
		log.Error().Err(err).Int64("room", roomID).Msg("message append failed")
		sendError(c, http.StatusInternalServerError, "failed to store message")
		return
	}

	msg, err := s.messages.EnrichMessage(ctx, messageID)
	if err != nil {
		log.Error().Err(err).Int64("message", messageID).Msg("message enrich failed")
		sendError(c, http.StatusInternalServerError, "failed to store message")
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (s *Server) healthCheck(c *gin.Context) {
	status, dbStatus := "healthy", "healthy"
	if err := s.health.HealthCheck(); err != nil {
		status, dbStatus = "unhealthy", err.Error()
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, healthResponse{
		Status:      status,
		Timestamp:   time.Now().UTC(),
		Database:    dbStatus,
		Connections: s.registry.Stats(),
	})
}

// pathID parses a positive integer path parameter, answering 400 itself when
// the value is unusable.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || !types.IsValidID(id) {
		sendError(c, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func sendError(c *gin.Context, code int, message string) {
	c.JSON(code, errorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}
