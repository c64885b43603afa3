package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ahmetk3436/chatnest/internal/config"
	"github.com/ahmetk3436/chatnest/internal/handlers"
	"github.com/ahmetk3436/chatnest/internal/middleware"
	"github.com/ahmetk3436/chatnest/internal/models"
	"github.com/ahmetk3436/chatnest/internal/routes"
	"github.com/ahmetk3436/chatnest/internal/services"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubCompletion is a deterministic stand-in for the hosted LLM. It records
// every call so tests can inspect exactly what would have hit the provider.
type stubCompletion struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []completionCall
}

type completionCall struct {
	System     string
	Transcript []services.ChatMessage
}

func (s *stubCompletion) Complete(_ context.Context, system string, transcript []services.ChatMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, completionCall{System: system, Transcript: transcript})
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubCompletion) lastCall(t *testing.T) completionCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		t.Fatal("expected at least one completion call")
	}
	return s.calls[len(s.calls)-1]
}

type stubMailer struct {
	mu    sync.Mutex
	sent  []string
	codes []string
}

func (s *stubMailer) SendOTP(to, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	s.codes = append(s.codes, code)
	return nil
}

type testEnv struct {
	app        *fiber.App
	db         *gorm.DB
	cfg        *config.Config
	completion *stubCompletion
	mailer     *stubMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	// Single writer keeps sqlite happy under concurrent handler tests.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{}, &models.OTPCode{}, &models.Bot{}, &models.FAQ{},
		&models.Conversation{}, &models.Message{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		AppURL:            "http://localhost:8080",
		JWTSecret:         "test-secret",
		CompletionTimeout: 5,
	}

	completion := &stubCompletion{reply: "stub reply"}
	mailer := &stubMailer{}
	events := services.NewConversationEvents()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
		},
	})

	routes.Setup(app, cfg,
		handlers.NewAuthHandler(cfg, db, mailer),
		handlers.NewBotHandler(db, completion),
		handlers.NewConversationHandler(db),
		handlers.NewChatHandler(cfg, db, completion, events),
		handlers.NewAnalyticsHandler(db),
		handlers.NewWidgetHandler(cfg),
		handlers.NewStreamHandler(events),
		handlers.NewSystemHandler(db),
	)

	return &testEnv{app: app, db: db, cfg: cfg, completion: completion, mailer: mailer}
}

func (e *testEnv) createUser(t *testing.T, email, username string) *models.User {
	t.Helper()
	user := models.User{Email: email, Username: username, BusinessName: "Test Business"}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func (e *testEnv) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	access, _, err := middleware.GenerateTokens(user.ID, user.Email, user.Username, e.cfg.JWTSecret)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return access
}

func (e *testEnv) createBot(t *testing.T, user *models.User, systemPrompt string) *models.Bot {
	t.Helper()
	bot := models.Bot{
		UserID:       user.ID,
		Name:         "Support Bot",
		BrandName:    "Acme",
		Description:  "Acme sells widgets",
		SystemPrompt: systemPrompt,
		PublicID:     mustToken(t, handlers.PublicIDLength),
	}
	if err := e.db.Create(&bot).Error; err != nil {
		t.Fatalf("failed to create bot: %v", err)
	}
	return &bot
}

func mustToken(t *testing.T, n int) string {
	t.Helper()
	tok, err := handlers.RandomToken(n)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return tok
}

// request performs an in-process HTTP round trip against the fiber app.
func (e *testEnv) request(t *testing.T, method, path, bearer string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}
