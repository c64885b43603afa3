package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is one visitor session's thread against one bot. The
// (bot_id, session_token) pair is unique so concurrent first loads of the
// widget converge on a single row.
type Conversation struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BotID          uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_conversations_bot_session" json:"bot_id"`
	Bot            *Bot      `gorm:"foreignKey:BotID;constraint:OnDelete:CASCADE" json:"bot,omitempty"`
	SessionToken   string    `gorm:"not null;uniqueIndex:idx_conversations_bot_session" json:"session_token"`
	UserIdentifier string    `json:"user_identifier"`
	FirstMessage   string    `gorm:"type:text" json:"first_message"`
	MessageCount   int       `gorm:"not null;default:1" json:"message_count"`
	Summary        string    `gorm:"type:text" json:"summary"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is append-only; rows are written in user/assistant pairs per turn
// and only ever removed through the conversation cascade.
type Message struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Conversation   *Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Role           string        `gorm:"not null" json:"role"` // user or assistant
	Content        string        `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time     `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
