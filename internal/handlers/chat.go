package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetk3436/chatnest/internal/config"
	"github.com/ahmetk3436/chatnest/internal/models"
	"github.com/ahmetk3436/chatnest/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const summaryInstruction = "Summarize the following conversation in 20 words or less. Focus on the main topic or user intent."

type ChatHandler struct {
	cfg        *config.Config
	db         *gorm.DB
	completion services.CompletionClient
	events     *services.ConversationEvents
}

func NewChatHandler(cfg *config.Config, db *gorm.DB, completion services.CompletionClient, events *services.ConversationEvents) *ChatHandler {
	return &ChatHandler{cfg: cfg, db: db, completion: completion, events: events}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat produces one assistant reply for one user message and persists the
// turn. The completion provider is invoked exactly once, synchronously; a
// provider failure is a failed turn and the visitor resends. Bookkeeping
// failures after a successful completion are logged, never surfaced —
// chat continuity beats analytics fidelity.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req struct {
		Messages       []chatMessage `json:"messages"`
		PublicID       string        `json:"public_id"`
		ConversationID string        `json:"conversation_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.PublicID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "public_id is required",
		})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Messages are required",
		})
	}

	var bot models.Bot
	if err := h.db.First(&bot, "public_id = ?", req.PublicID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Bot not found",
		})
	}

	var faqs []models.FAQ
	if err := h.db.Where("bot_id = ?", bot.ID).Order("created_at DESC").Find(&faqs).Error; err != nil {
		slog.Error("Failed to load FAQs", "bot_id", bot.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to load bot knowledge",
		})
	}

	systemText := buildSystemInstruction(bot.SystemPrompt, faqs)
	transcript := sanitizeTranscript(req.Messages)

	ctx, cancel := context.WithTimeout(c.UserContext(), time.Duration(h.cfg.CompletionTimeout)*time.Second)
	defer cancel()

	reply, err := h.completion.Complete(ctx, systemText, transcript)
	if err != nil {
		slog.Error("Completion call failed", "bot_id", bot.ID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   true,
			"message": "AI service unavailable",
		})
	}

	if req.ConversationID != "" {
		convID, err := uuid.Parse(req.ConversationID)
		if err != nil {
			slog.Warn("Ignoring malformed conversation_id on chat turn", "conversation_id", req.ConversationID)
		} else {
			h.persistTurn(convID, bot.ID, transcript, reply)
		}
	}

	return c.JSON(fiber.Map{
		"role":    models.RoleAssistant,
		"content": reply,
	})
}

// persistTurn writes the user/assistant message pair, sets the first-message
// snapshot on the opening turn and bumps the counter by one (increment, not
// recount). All failures are logged only: the reply has already been earned.
func (h *ChatHandler) persistTurn(convID, botID uuid.UUID, transcript []services.ChatMessage, reply string) {
	userContent := transcript[len(transcript)-1].Content

	err := h.db.Transaction(func(tx *gorm.DB) error {
		pair := []models.Message{
			{ConversationID: convID, Role: models.RoleUser, Content: userContent},
			{ConversationID: convID, Role: models.RoleAssistant, Content: reply},
		}
		if err := tx.Create(&pair).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"message_count": gorm.Expr("message_count + ?", 1),
			"updated_at":    time.Now(),
		}
		// Transcript of exactly one entry means this is the opening turn.
		if len(transcript) == 1 {
			updates["first_message"] = userContent
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", convID).Updates(updates).Error
	})
	if err != nil {
		slog.Error("Failed to persist chat turn", "conversation_id", convID, "error", err)
		return
	}

	h.events.Publish(services.TurnEvent{
		Type:           "turn",
		ConversationID: convID,
		BotID:          botID,
		Preview:        truncate(userContent, 120),
	})
}

// Summarize compresses a conversation's transcript into a short label and
// overwrites the stored summary. Re-running always overwrites; a stale or
// missing summary is a display-only degradation.
func (h *ChatHandler) Summarize(c *fiber.Ctx) error {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.ConversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "conversation_id is required",
		})
	}

	convID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid conversation ID",
		})
	}

	var messages []models.Message
	if err := h.db.Where("conversation_id = ?", convID).
		Order("created_at ASC").Find(&messages).Error; err != nil || len(messages) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "No messages found",
		})
	}

	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}
	conversationText := strings.Join(lines, "\n")

	ctx, cancel := context.WithTimeout(c.UserContext(), time.Duration(h.cfg.CompletionTimeout)*time.Second)
	defer cancel()

	summary, err := h.completion.Complete(ctx, summaryInstruction, []services.ChatMessage{
		{Role: models.RoleUser, Content: conversationText},
	})
	if err != nil {
		slog.Error("Summary completion failed", "conversation_id", convID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   true,
			"message": "AI service unavailable",
		})
	}
	summary = strings.TrimSpace(summary)

	if summary != "" {
		if err := h.db.Model(&models.Conversation{}).Where("id = ?", convID).
			Update("summary", summary).Error; err != nil {
			// Display-only bookkeeping; the caller still gets the text.
			slog.Error("Failed to store summary", "conversation_id", convID, "error", err)
		}
	}

	return c.JSON(fiber.Map{"summary": summary})
}

// ─── Prompt assembly ────────────────────────────────────────────────────────

// buildSystemInstruction appends the FAQ knowledge block to the bot's stored
// persona instruction. FAQ order follows storage order (newest first); the
// block is omitted entirely when the bot has no FAQs.
func buildSystemInstruction(systemPrompt string, faqs []models.FAQ) string {
	if len(faqs) == 0 {
		return systemPrompt
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nFrequently Asked Questions:\n")
	for i, faq := range faqs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("Q: %s\nA: %s", faq.Question, faq.Answer))
	}
	return sb.String()
}

// sanitizeTranscript reduces each client-supplied entry to exactly
// role+content so nothing else reaches the completion provider.
func sanitizeTranscript(messages []chatMessage) []services.ChatMessage {
	out := make([]services.ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = services.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
