package services

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// TurnEvent is pushed to dashboard subscribers whenever a chat turn lands.
type TurnEvent struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	BotID          uuid.UUID `json:"bot_id"`
	Preview        string    `json:"preview"`
}

// ConversationEvents is a minimal in-process fanout for the dashboard live
// feed. Publish never blocks: slow subscribers drop events.
type ConversationEvents struct {
	mu   sync.RWMutex
	subs map[chan TurnEvent]struct{}
}

func NewConversationEvents() *ConversationEvents {
	return &ConversationEvents{
		subs: make(map[chan TurnEvent]struct{}),
	}
}

func (e *ConversationEvents) Subscribe() chan TurnEvent {
	ch := make(chan TurnEvent, 16)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	return ch
}

func (e *ConversationEvents) Unsubscribe(ch chan TurnEvent) {
	e.mu.Lock()
	delete(e.subs, ch)
	e.mu.Unlock()
	close(ch)
}

func (e *ConversationEvents) Publish(evt TurnEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for ch := range e.subs {
		select {
		case ch <- evt:
		default:
			slog.Debug("Dropping turn event for slow subscriber", "conversation_id", evt.ConversationID)
		}
	}
}
