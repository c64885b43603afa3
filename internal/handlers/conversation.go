package handlers

import (
	"log/slog"
	"strconv"

	"github.com/ahmetk3436/chatnest/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationHandler struct {
	db *gorm.DB
}

func NewConversationHandler(db *gorm.DB) *ConversationHandler {
	return &ConversationHandler{db: db}
}

// Resolve maps (bot, session token) to exactly one conversation. Existing
// rows are returned unchanged; otherwise a fresh row is inserted with the
// message count seeded to 1. Concurrent duplicate calls converge on one row
// through the unique (bot_id, session_token) index: the insert is an
// ON CONFLICT DO NOTHING upsert followed by a refetch.
func (h *ConversationHandler) Resolve(c *fiber.Ctx) error {
	var req struct {
		BotID          string `json:"bot_id"`
		SessionToken   string `json:"session_token"`
		UserIdentifier string `json:"user_identifier"`
		FirstMessage   string `json:"first_message"`
	}
	if err := c.BodyParser(&req); err != nil || req.BotID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "bot_id is required",
		})
	}

	botID, err := uuid.Parse(req.BotID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid bot_id",
		})
	}

	var bot models.Bot
	if err := h.db.First(&bot, "id = ?", botID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Bot not found",
		})
	}

	// A visitor with no stored token gets one minted here; the embed page
	// persists whatever token comes back.
	sessionToken := req.SessionToken
	if sessionToken == "" {
		sessionToken, err = randomToken(sessionTokenLength)
		if err != nil {
			slog.Error("Failed to generate session token", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   true,
				"message": "Failed to create conversation",
			})
		}
	}

	var conv models.Conversation
	err = h.db.First(&conv, "bot_id = ? AND session_token = ?", botID, sessionToken).Error
	if err == nil {
		return c.JSON(conv)
	}

	conv = models.Conversation{
		BotID:          botID,
		SessionToken:   sessionToken,
		UserIdentifier: req.UserIdentifier,
		FirstMessage:   req.FirstMessage,
		MessageCount:   1,
	}
	result := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bot_id"}, {Name: "session_token"}},
		DoNothing: true,
	}).Create(&conv)
	if result.Error != nil {
		slog.Error("Failed to create conversation", "bot_id", botID, "error", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create conversation",
		})
	}

	if result.RowsAffected == 0 {
		// Lost the race; the winner's row is the conversation.
		if err := h.db.First(&conv, "bot_id = ? AND session_token = ?", botID, sessionToken).Error; err != nil {
			slog.Error("Failed to refetch conversation after conflict", "bot_id", botID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   true,
				"message": "Failed to create conversation",
			})
		}
		return c.JSON(conv)
	}

	return c.Status(fiber.StatusCreated).JSON(conv)
}

// List returns recent conversations across the owner's bots.
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := h.db.
		Joins("JOIN bots ON bots.id = conversations.bot_id").
		Where("bots.user_id = ? AND bots.deleted_at IS NULL", userID).
		Order("conversations.created_at DESC").
		Limit(limit).
		Preload("Bot")

	if botID := c.Query("bot_id"); botID != "" {
		id, err := uuid.Parse(botID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   true,
				"message": "Invalid bot_id",
			})
		}
		query = query.Where("conversations.bot_id = ?", id)
	}

	var convs []models.Conversation
	if err := query.Find(&convs).Error; err != nil {
		slog.Error("Failed to list conversations", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to list conversations",
		})
	}
	return c.JSON(fiber.Map{"conversations": convs})
}

// Get returns one conversation with its ordered message history.
func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	conv, errResp := h.ownedConversation(c)
	if conv == nil {
		return errResp
	}

	var messages []models.Message
	if err := h.db.Where("conversation_id = ?", conv.ID).
		Order("created_at ASC").Find(&messages).Error; err != nil {
		slog.Error("Failed to load messages", "conversation_id", conv.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to load conversation",
		})
	}

	return c.JSON(fiber.Map{
		"conversation": conv,
		"messages":     messages,
	})
}

// Delete removes a conversation and its messages.
func (h *ConversationHandler) Delete(c *fiber.Ctx) error {
	conv, errResp := h.ownedConversation(c)
	if conv == nil {
		return errResp
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(conv).Error
	})
	if err != nil {
		slog.Error("Failed to delete conversation", "conversation_id", conv.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to delete conversation",
		})
	}

	return c.JSON(fiber.Map{"message": "Conversation deleted successfully"})
}

// ownedConversation loads the :id conversation and checks the caller owns
// the bot it belongs to.
func (h *ConversationHandler) ownedConversation(c *fiber.Ctx) (*models.Conversation, error) {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid conversation ID",
		})
	}

	var conv models.Conversation
	if err := h.db.First(&conv, "id = ?", convID).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Conversation not found",
		})
	}

	var bot models.Bot
	if err := h.db.First(&bot, "id = ?", conv.BotID).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Conversation not found",
		})
	}
	if bot.UserID != userID {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   true,
			"message": "You do not own this conversation",
		})
	}

	return &conv, nil
}
