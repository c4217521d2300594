package ws

import (
	"errors"
	"log/slog"
	"net/http"

	"settlers/internal/domain"
	"settlers/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler exposes a hub over HTTP.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler serves hub. An empty allowedOrigin accepts any origin.
func NewHandler(hub *Hub, allowedOrigin string, log *slog.Logger) *Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
	if log == nil {
		log = logger.Get()
	}
	return &Handler{hub: hub, upgrader: upgrader, log: log}
}

// Register mounts the room and websocket routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/ws", h.ServeWS)
	r.GET("/rooms", h.ListRooms)
	r.POST("/rooms", h.CreateRoom)
	r.POST("/rooms/:id/ticket", h.IssueTicket)
}

func (h *Handler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.hub.Rooms()})
}

func (h *Handler) CreateRoom(c *gin.Context) {
	room := h.hub.CreateRoom()
	h.log.Info("room created", "room_id", room.ID)
	c.JSON(http.StatusCreated, room.Info())
}

type ticketRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// IssueTicket hands a departed user the ticket they reconnect with.
func (h *Handler) IssueTicket(c *gin.Context) {
	room, ok := h.hub.Room(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := room.IssueTicket(req.UserID)
	switch {
	case errors.Is(err, ErrRoomClosed):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCannotRejoin):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.log.Error("issue ticket failed", "room_id", room.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue ticket"})
	default:
		c.JSON(http.StatusOK, gin.H{"room_id": room.ID, "ticket": token})
	}
}

// ServeWS upgrades the request and attaches the connection to a room.
// Query: room, user, optional name and ticket.
func (h *Handler) ServeWS(c *gin.Context) {
	userID := c.Query("user")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return
	}
	room, ok := h.hub.Room(c.Query("room"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	ticket := c.Query("ticket")
	if err := room.Admit(userID, ticket); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, ErrRoomClosed) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := NewClient(userID, c.Query("name"), ticket, conn, h.log)
	go client.Run(room)
}
