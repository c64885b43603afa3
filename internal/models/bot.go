package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Bot struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string    `gorm:"not null" json:"name"`
	BrandName   string    `gorm:"not null" json:"brand_name"`
	Description string    `gorm:"type:text" json:"description"`
	// SystemPrompt is the persona instruction sent as the system message on
	// every chat turn. Generated at creation time when not supplied.
	SystemPrompt string `gorm:"type:text" json:"system_prompt"`
	// PublicID is the routable identifier the embed widget uses. Unique,
	// immutable, never reveals the internal ID.
	PublicID     string         `gorm:"not null;uniqueIndex" json:"public_id"`
	WidgetConfig datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"widget_config"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Bot) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type FAQ struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BotID     uuid.UUID `gorm:"type:uuid;not null;index" json:"bot_id"`
	Bot       *Bot      `gorm:"foreignKey:BotID;constraint:OnDelete:CASCADE" json:"-"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *FAQ) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
