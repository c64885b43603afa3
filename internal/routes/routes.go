package routes

import (
	"github.com/ahmetk3436/chatnest/internal/config"
	"github.com/ahmetk3436/chatnest/internal/handlers"
	"github.com/ahmetk3436/chatnest/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	botHandler *handlers.BotHandler,
	conversationHandler *handlers.ConversationHandler,
	chatHandler *handlers.ChatHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	widgetHandler *handlers.WidgetHandler,
	streamHandler *handlers.StreamHandler,
	systemHandler *handlers.SystemHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)
	app.Get("/widget.js", widgetHandler.Script)

	// Embed surface: everything the anonymous visitor's iframe needs.
	app.Get("/api/bots/public/:publicId", botHandler.GetPublicBot)
	app.Post("/api/conversations", conversationHandler.Resolve)
	app.Post("/api/chat", chatHandler.Chat)
	app.Post("/api/chat/summarize", chatHandler.Summarize)

	// ─── Auth ────────────────────────────────────────────────────────────
	app.Post("/api/auth/send-otp", authHandler.SendOTP)
	app.Post("/api/auth/verify-otp", authHandler.VerifyOTP)
	app.Post("/api/auth/signup", authHandler.Signup)
	app.Post("/api/auth/login", authHandler.Login)

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.JWTProtected(cfg.JWTSecret))

	api.Get("/auth/me", authHandler.Me)

	// Bots
	api.Get("/bots", botHandler.ListBots)
	api.Post("/bots", botHandler.CreateBot)
	api.Get("/bots/:id", botHandler.GetBot)
	api.Put("/bots/:id", botHandler.UpdateBot)
	api.Delete("/bots/:id", botHandler.DeleteBot)

	// FAQs
	api.Get("/bots/:id/faqs", botHandler.ListFAQs)
	api.Post("/bots/:id/faqs", botHandler.CreateFAQ)
	api.Patch("/bots/:id/faqs/:faqId", botHandler.UpdateFAQ)
	api.Delete("/bots/:id/faqs/:faqId", botHandler.DeleteFAQ)

	// Prompt generation
	api.Post("/ai/generate-prompt", botHandler.GeneratePrompt)

	// Conversations (dashboard)
	api.Get("/conversations", conversationHandler.List)
	api.Get("/conversations/:id", conversationHandler.Get)
	api.Delete("/conversations/:id", conversationHandler.Delete)

	// Analytics
	api.Get("/analytics", analyticsHandler.Overview)

	// Live conversation feed (WebSocket)
	api.Use("/stream/conversations", streamHandler.UpgradeCheck())
	api.Get("/stream/conversations", streamHandler.HandleConversations())
}
