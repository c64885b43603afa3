package handlers

import (
	"log/slog"
	"time"

	"github.com/ahmetk3436/chatnest/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnalyticsHandler struct {
	db *gorm.DB
}

func NewAnalyticsHandler(db *gorm.DB) *AnalyticsHandler {
	return &AnalyticsHandler{db: db}
}

// Overview aggregates usage across the owner's bots: totals, per-bot
// breakdown, a 7-day conversation series and the most recent activity.
// Message totals are sums of conversation counters, so drift from partial
// turn failures shows up here as undercounting.
func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var bots []models.Bot
	if err := h.db.Where("user_id = ?", userID).Find(&bots).Error; err != nil {
		slog.Error("Failed to load bots for analytics", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to load analytics",
		})
	}

	if len(bots) == 0 {
		return c.JSON(fiber.Map{
			"total_bots":          0,
			"total_conversations": 0,
			"total_messages":      0,
			"bot_stats":           []fiber.Map{},
			"daily_stats":         []fiber.Map{},
			"recent_activity":     []models.Conversation{},
		})
	}

	botIDs := make([]uuid.UUID, len(bots))
	for i, b := range bots {
		botIDs[i] = b.ID
	}

	var totalConversations int64
	h.db.Model(&models.Conversation{}).Where("bot_id IN ?", botIDs).Count(&totalConversations)

	var totalMessages int64
	h.db.Model(&models.Conversation{}).Where("bot_id IN ?", botIDs).
		Select("COALESCE(SUM(message_count), 0)").Scan(&totalMessages)

	// ─── Per-bot stats ──────────────────────────────────────────────────
	type botAggregate struct {
		BotID             uuid.UUID
		ConversationCount int64
		MessageCount      int64
	}
	var aggregates []botAggregate
	h.db.Model(&models.Conversation{}).
		Select("bot_id, COUNT(*) AS conversation_count, COALESCE(SUM(message_count), 0) AS message_count").
		Where("bot_id IN ?", botIDs).
		Group("bot_id").
		Scan(&aggregates)

	byBot := make(map[uuid.UUID]botAggregate, len(aggregates))
	for _, a := range aggregates {
		byBot[a.BotID] = a
	}

	botStats := make([]fiber.Map, 0, len(bots))
	for _, b := range bots {
		agg, ok := byBot[b.ID]
		if !ok {
			continue
		}
		botStats = append(botStats, fiber.Map{
			"bot_id":             b.ID,
			"bot_name":           b.Name,
			"conversation_count": agg.ConversationCount,
			"message_count":      agg.MessageCount,
		})
	}

	// ─── Daily conversation counts (last 7 days) ────────────────────────
	sevenDaysAgo := time.Now().AddDate(0, 0, -7)
	var recent []models.Conversation
	h.db.Where("bot_id IN ? AND created_at >= ?", botIDs, sevenDaysAgo).
		Order("created_at DESC").
		Find(&recent)

	dailyStats := make([]fiber.Map, 7)
	for i := 0; i < 7; i++ {
		day := time.Now().AddDate(0, 0, -(6 - i))
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		dayEnd := dayStart.AddDate(0, 0, 1)

		count := 0
		for _, conv := range recent {
			if !conv.CreatedAt.Before(dayStart) && conv.CreatedAt.Before(dayEnd) {
				count++
			}
		}
		dailyStats[i] = fiber.Map{
			"label": dayStart.Format("Mon"),
			"value": count,
		}
	}

	recentActivity := recent
	if len(recentActivity) > 10 {
		recentActivity = recentActivity[:10]
	}

	return c.JSON(fiber.Map{
		"total_bots":          len(bots),
		"total_conversations": totalConversations,
		"total_messages":      totalMessages,
		"bot_stats":           botStats,
		"daily_stats":         dailyStats,
		"recent_activity":     recentActivity,
	})
}
