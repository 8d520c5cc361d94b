package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aulaboard/backend/internal/notify"
)

var notificationUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bearer token in the handshake is the access control; origin
	// checks belong to the deployment's proxy layer.
	CheckOrigin: func(*http.Request) bool { return true },
}

// socketEnvelope frames outbound messages on the notification socket.
type socketEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// inboundSocketMessage is the only client-to-server message: marking a
// notification read.
type inboundSocketMessage struct {
	Type           string `json:"type"`
	NotificationID uint   `json:"notification_id"`
}

// handleNotificationSocket authenticates the handshake via the token
// query parameter, joins the connection to the user's broadcast group and
// relays traffic until either side disconnects. A missing or invalid
// token terminates the connection before the upgrade.
func (h *httpHandler) handleNotificationSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("socket token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := notificationUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("socket upgrade failed", zap.Error(err))
		return
	}

	session := &socketSession{
		conn:          conn,
		userID:        userID,
		bus:           h.bus,
		notifications: h.notifications,
		logger:        h.logger,
	}
	session.run(c.Request.Context())
}

type socketSession struct {
	conn          *websocket.Conn
	userID        uint
	bus           notify.Bus
	notifications *notify.Service
	logger        *zap.Logger
}

// run pumps the user's broadcast group to the socket and applies inbound
// mark-read requests. Leaving the group happens through the context, so
// closing twice or after a never-completed join is safe.
func (s *socketSession) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.conn.Close()

	stream, unsubscribe := s.bus.Subscribe(ctx, notify.UserGroup(s.userID))
	defer unsubscribe()

	go s.writeLoop(ctx, cancel, stream)
	s.readLoop(ctx)
}

func (s *socketSession) writeLoop(ctx context.Context, cancel context.CancelFunc, stream <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-stream:
			if !ok {
				cancel()
				return
			}
			framed, err := json.Marshal(socketEnvelope{Type: "notification", Data: payload})
			if err != nil {
				s.logger.Warn("socket payload not serializable", zap.Error(err))
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, framed); err != nil {
				cancel()
				return
			}
		}
	}
}

func (s *socketSession) readLoop(ctx context.Context) {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var message inboundSocketMessage
		if err := json.Unmarshal(raw, &message); err != nil {
			continue
		}
		if message.Type != "mark_read" || message.NotificationID == 0 {
			continue
		}
		// Applies only when the notification belongs to this user;
		// anything else is silently ignored.
		if err := s.notifications.MarkRead(ctx, s.userID, message.NotificationID); err != nil &&
			!errors.Is(err, notify.ErrNotFound) {
			s.logger.Warn("mark read failed",
				zap.Uint("user_id", s.userID),
				zap.Uint("notification_id", message.NotificationID),
				zap.Error(err))
		}
	}
}
