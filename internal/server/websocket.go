package server

import (
	"context"
	"encoding/json"

	"confide/internal/events"
	"confide/internal/middleware"
	"confide/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// wsOutboundBuffer bounds per-connection queued events; a slow client drops
// events rather than blocking the bus, and catches up via the REST surface.
const wsOutboundBuffer = 32

// wsEnvelope is the frame pushed to connected clients.
type wsEnvelope struct {
	Type   string           `json:"type"`
	Data   events.EventData `json:"data"`
	Unread int64            `json:"unread"`
}

func (s *Server) setupWebSocket(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", middleware.AuthRequired, websocket.New(s.handleWS))
}

// handleWS streams conversation events to the connected user. Bus handlers
// must not block, so events are queued onto a buffered channel and written
// from this goroutine.
func (s *Server) handleWS(conn *websocket.Conn) {
	userID, ok := conn.Locals("userID").(uint)
	if !ok {
		_ = conn.Close()
		return
	}

	observability.WebSocketConnections.Inc()
	defer observability.WebSocketConnections.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan events.Event, wsOutboundBuffer)
	unsubscribe := s.engine.Bus().Subscribe(events.TypeAny, func(e events.Event) {
		select {
		case out <- e:
		default:
			middleware.Logger.Warn("dropping event for slow websocket client", "user_id", userID, "type", e.Type)
		}
	})
	defer unsubscribe()

	// Reader only detects disconnect; clients drive the app over REST.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-out:
			// Deliver only events for conversations this user is in.
			if _, err := s.engine.Chats().GetConversation(ctx, userID, e.Data.ConversationID); err != nil {
				continue
			}
			unread, err := s.engine.Chats().GetUnreadMessageCount(ctx, userID)
			if err != nil {
				continue
			}
			payload, err := json.Marshal(wsEnvelope{Type: e.Type, Data: e.Data, Unread: unread})
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
