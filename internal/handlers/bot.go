package handlers

import (
	"fmt"
	"log/slog"

	"github.com/ahmetk3436/chatnest/internal/models"
	"github.com/ahmetk3436/chatnest/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const publicIDLength = 10

type BotHandler struct {
	db         *gorm.DB
	completion services.CompletionClient
}

func NewBotHandler(db *gorm.DB, completion services.CompletionClient) *BotHandler {
	return &BotHandler{db: db, completion: completion}
}

// CreateBot creates a tenant bot. When no system prompt is supplied one is
// generated from the brand name and description.
func (h *BotHandler) CreateBot(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var req struct {
		Name         string         `json:"name"`
		BrandName    string         `json:"brand_name"`
		Description  string         `json:"description"`
		SystemPrompt string         `json:"system_prompt"`
		WidgetConfig datatypes.JSON `json:"widget_config"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}
	if req.Name == "" || req.BrandName == "" || req.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Name, brand name and description are required",
		})
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		generated, err := h.generateSystemPrompt(c, req.BrandName, req.Description)
		if err != nil {
			slog.Error("Failed to generate system prompt", "brand", req.BrandName, "error", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   true,
				"message": "Failed to generate system prompt",
			})
		}
		systemPrompt = generated
	}

	publicID, err := randomToken(publicIDLength)
	if err != nil {
		slog.Error("Failed to generate public ID", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create bot",
		})
	}

	bot := models.Bot{
		UserID:       userID,
		Name:         req.Name,
		BrandName:    req.BrandName,
		Description:  req.Description,
		SystemPrompt: systemPrompt,
		PublicID:     publicID,
	}
	if len(req.WidgetConfig) > 0 {
		bot.WidgetConfig = req.WidgetConfig
	}

	if err := h.db.Create(&bot).Error; err != nil {
		slog.Error("Failed to create bot", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create bot",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"bot": bot})
}

func (h *BotHandler) ListBots(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var bots []models.Bot
	if err := h.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&bots).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to list bots",
		})
	}
	return c.JSON(fiber.Map{"bots": bots})
}

func (h *BotHandler) GetBot(c *fiber.Ctx) error {
	bot, errResp := h.ownedBot(c)
	if bot == nil {
		return errResp
	}
	return c.JSON(bot)
}

func (h *BotHandler) UpdateBot(c *fiber.Ctx) error {
	bot, errResp := h.ownedBot(c)
	if bot == nil {
		return errResp
	}

	var req struct {
		Name         *string         `json:"name"`
		BrandName    *string         `json:"brand_name"`
		Description  *string         `json:"description"`
		SystemPrompt *string         `json:"system_prompt"`
		WidgetConfig *datatypes.JSON `json:"widget_config"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	// PublicID is immutable after creation.
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.BrandName != nil {
		updates["brand_name"] = *req.BrandName
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.SystemPrompt != nil {
		updates["system_prompt"] = *req.SystemPrompt
	}
	if req.WidgetConfig != nil {
		updates["widget_config"] = *req.WidgetConfig
	}

	if len(updates) > 0 {
		if err := h.db.Model(bot).Updates(updates).Error; err != nil {
			slog.Error("Failed to update bot", "bot_id", bot.ID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   true,
				"message": "Failed to update bot",
			})
		}
	}

	return c.JSON(bot)
}

// DeleteBot removes a bot; conversations and messages cascade.
func (h *BotHandler) DeleteBot(c *fiber.Ctx) error {
	bot, errResp := h.ownedBot(c)
	if bot == nil {
		return errResp
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id IN (?)",
			tx.Model(&models.Conversation{}).Select("id").Where("bot_id = ?", bot.ID),
		).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bot_id = ?", bot.ID).Delete(&models.Conversation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bot_id = ?", bot.ID).Delete(&models.FAQ{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(bot).Error
	})
	if err != nil {
		slog.Error("Failed to delete bot", "bot_id", bot.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to delete bot",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Bot deleted successfully",
		"bot_name": bot.Name,
	})
}

// GetPublicBot is the unauthenticated embed bootstrap: brand bits only,
// addressed by public ID so the internal ID is never exposed.
func (h *BotHandler) GetPublicBot(c *fiber.Ctx) error {
	publicID := c.Params("publicId")

	var bot models.Bot
	if err := h.db.First(&bot, "public_id = ?", publicID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Bot not found",
		})
	}

	return c.JSON(fiber.Map{
		"id":            bot.ID, // conversation resolver needs the row key
		"brand_name":    bot.BrandName,
		"widget_config": bot.WidgetConfig,
	})
}

// ─── FAQ CRUD ───────────────────────────────────────────────────────────────

func (h *BotHandler) ListFAQs(c *fiber.Ctx) error {
	bot, errResp := h.ownedBot(c)
	if bot == nil {
		return errResp
	}

	var faqs []models.FAQ
	if err := h.db.Where("bot_id = ?", bot.ID).Order("created_at DESC").Find(&faqs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to list FAQs",
		})
	}
	return c.JSON(fiber.Map{"faqs": faqs})
}

func (h *BotHandler) CreateFAQ(c *fiber.Ctx) error {
	bot, errResp := h.ownedBot(c)
	if bot == nil {
		return errResp
	}

	var req struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := c.BodyParser(&req); err != nil || req.Question == "" || req.Answer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Question and answer are required",
		})
	}

	faq := models.FAQ{
		BotID:    bot.ID,
		Question: req.Question,
		Answer:   req.Answer,
	}
	if err := h.db.Create(&faq).Error; err != nil {
		slog.Error("Failed to create FAQ", "bot_id", bot.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create FAQ",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(faq)
}

func (h *BotHandler) UpdateFAQ(c *fiber.Ctx) error {
	bot, errResp := h.ownedBot(c)
	if bot == nil {
		return errResp
	}

	faqID, err := uuid.Parse(c.Params("faqId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid FAQ ID",
		})
	}

	var faq models.FAQ
	if err := h.db.First(&faq, "id = ? AND bot_id = ?", faqID, bot.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "FAQ not found",
		})
	}

	var req struct {
		Question *string `json:"question"`
		Answer   *string `json:"answer"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	if req.Question != nil {
		updates["question"] = *req.Question
	}
	if req.Answer != nil {
		updates["answer"] = *req.Answer
	}
	if len(updates) > 0 {
		if err := h.db.Model(&faq).Updates(updates).Error; err != nil {
			slog.Error("Failed to update FAQ", "faq_id", faq.ID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   true,
				"message": "Failed to update FAQ",
			})
		}
	}
	return c.JSON(faq)
}

func (h *BotHandler) DeleteFAQ(c *fiber.Ctx) error {
	bot, errResp := h.ownedBot(c)
	if bot == nil {
		return errResp
	}

	faqID, err := uuid.Parse(c.Params("faqId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid FAQ ID",
		})
	}

	result := h.db.Delete(&models.FAQ{}, "id = ? AND bot_id = ?", faqID, bot.ID)
	if result.Error != nil {
		slog.Error("Failed to delete FAQ", "faq_id", faqID, "error", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to delete FAQ",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "FAQ not found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GeneratePrompt builds a bot persona instruction from brand details. Also
// used internally when a bot is created without a system prompt.
func (h *BotHandler) GeneratePrompt(c *fiber.Ctx) error {
	var req struct {
		BrandName   string `json:"brand_name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil || req.BrandName == "" || req.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Brand name and description are required",
		})
	}

	systemPrompt, err := h.generateSystemPrompt(c, req.BrandName, req.Description)
	if err != nil {
		slog.Error("Failed to generate system prompt", "brand", req.BrandName, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to generate prompt",
		})
	}

	return c.JSON(fiber.Map{"system_prompt": systemPrompt})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// ownedBot loads the :id bot and enforces tenant ownership. On failure the
// returned bot is nil and the fiber error response has been built.
func (h *BotHandler) ownedBot(c *fiber.Ctx) (*models.Bot, error) {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	botID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid bot ID",
		})
	}

	var bot models.Bot
	if err := h.db.First(&bot, "id = ?", botID).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Bot not found",
		})
	}

	if bot.UserID != userID {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   true,
			"message": "You do not own this bot",
		})
	}

	return &bot, nil
}

func (h *BotHandler) generateSystemPrompt(c *fiber.Ctx, brandName, description string) (string, error) {
	prompt := fmt.Sprintf(`Create a system prompt for an AI customer support chatbot for a brand named "%s".

Brand Description: %s

The system prompt should define the bot's persona, tone, and specific instructions on how to handle queries related to this brand.
It should be concise but comprehensive.

Output ONLY the system prompt text, nothing else.`, brandName, description)

	return h.completion.Complete(c.Context(), "You are an expert AI prompt engineer.", []services.ChatMessage{
		{Role: "user", Content: prompt},
	})
}
