package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/realtime"
)

const (
	liveUserKey   = "live_user_id"
	liveTopicsKey = "live_topics"
	writeWait     = 10 * time.Second
)

// LiveHandler upgrades connections to websocket sessions on the hub.
type LiveHandler struct {
	hub          *realtime.Hub
	auth         *auth.AuthMiddleware
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewLiveHandler constructs handler.
func NewLiveHandler(hub *realtime.Hub, authMiddleware *auth.AuthMiddleware, pingInterval time.Duration, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{hub: hub, auth: authMiddleware, pingInterval: pingInterval, logger: logger}
}

// Upgrade accepts websocket upgrades on /ws. Every session joins the broadcast
// topics; a valid ?token= also joins the caller's private topic.
func (h *LiveHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	topics := events.BroadcastTopics()
	var userID int64
	if token := c.Query("token"); token != "" {
		principal, err := h.auth.Authenticate(c.UserContext(), token)
		if err != nil {
			h.logger.Warn("live session token rejected, joining broadcast topics only", zap.String("ip", c.IP()), zap.Error(err))
		} else {
			userID = principal.Actor.UserID
			topics = append(topics, events.UserTopic(userID))
		}
	}
	c.Locals(liveUserKey, userID)
	c.Locals(liveTopicsKey, topics)
	return c.Next()
}

// Serve runs one websocket session until the peer goes away.
func (h *LiveHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(liveUserKey).(int64)
		topics, _ := conn.Locals(liveTopicsKey).([]string)

		session := h.hub.Register(userID, topics...)
		defer h.hub.Unregister(session)
		h.logger.Debug("live session opened", zap.String("session_id", session.ID), zap.Int64("user_id", userID))

		// Client frames are ignored; reading detects the close.
		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			defer h.hub.Unregister(session)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		// The conn is recycled once this func returns, so the reader must be gone first.
		defer func() {
			_ = conn.Close()
			<-readerDone
		}()

		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case payload := <-session.Messages():
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					h.logger.Debug("live session write failed", zap.String("session_id", session.ID), zap.Error(err))
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-session.Done():
				h.logger.Debug("live session closed", zap.String("session_id", session.ID))
				return
			}
		}
	})
}
