package handlers

import (
	"log/slog"

	"github.com/ahmetk3436/chatnest/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type StreamHandler struct {
	events *services.ConversationEvents
}

func NewStreamHandler(events *services.ConversationEvents) *StreamHandler {
	return &StreamHandler{events: events}
}

// UpgradeCheck is middleware that checks if the request is a websocket upgrade
func (h *StreamHandler) UpgradeCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// HandleConversations pushes turn events to a dashboard client as visitors
// chat with the owner's bots. Read loop exists only to detect disconnect.
func (h *StreamHandler) HandleConversations() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		sub := h.events.Subscribe()
		defer h.events.Unsubscribe(sub)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case evt, ok := <-sub:
				if !ok {
					return
				}
				if err := c.WriteJSON(evt); err != nil {
					slog.Debug("Conversation feed write failed", "error", err)
					return
				}
			case <-done:
				return
			}
		}
	})
}
