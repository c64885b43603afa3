package handlers_test

import (
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/ahmetk3436/chatnest/internal/handlers"
	"github.com/ahmetk3436/chatnest/internal/models"
)

func TestResolveCreatesThenReuses(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@acme.test", "acme")
	bot := env.createBot(t, user, "Persona.")

	resp := env.request(t, "POST", "/api/conversations", "", map[string]string{
		"bot_id":        bot.ID.String(),
		"session_token": "visitor-token",
		"first_message": "hello",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on first resolve, got %d", resp.StatusCode)
	}
	var first models.Conversation
	decodeBody(t, resp, &first)
	if first.MessageCount != 1 {
		t.Errorf("expected message count seeded to 1, got %d", first.MessageCount)
	}
	if first.FirstMessage != "hello" {
		t.Errorf("first message snapshot not stored, got %q", first.FirstMessage)
	}

	// Second resolve returns the same row unchanged.
	resp = env.request(t, "POST", "/api/conversations", "", map[string]string{
		"bot_id":        bot.ID.String(),
		"session_token": "visitor-token",
		"first_message": "different text",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on second resolve, got %d", resp.StatusCode)
	}
	var second models.Conversation
	decodeBody(t, resp, &second)
	if second.ID != first.ID {
		t.Errorf("resolve is not idempotent: %s != %s", second.ID, first.ID)
	}
	if second.FirstMessage != "hello" {
		t.Errorf("existing conversation must be returned unchanged, got %q", second.FirstMessage)
	}
}

func TestResolveMintsSessionToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@acme.test", "acme")
	bot := env.createBot(t, user, "Persona.")

	resp := env.request(t, "POST", "/api/conversations", "", map[string]string{
		"bot_id": bot.ID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var conv models.Conversation
	decodeBody(t, resp, &conv)

	if len(conv.SessionToken) != handlers.SessionTokenLength {
		t.Errorf("expected %d-char minted token, got %q", handlers.SessionTokenLength, conv.SessionToken)
	}
	for _, r := range conv.SessionToken {
		if !strings.ContainsRune(handlers.TokenAlphabet, r) {
			t.Errorf("token %q contains %q outside the 36-symbol alphabet", conv.SessionToken, r)
		}
	}
}

func TestResolveValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, "POST", "/api/conversations", "", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without bot_id, got %d", resp.StatusCode)
	}

	resp = env.request(t, "POST", "/api/conversations", "", map[string]string{
		"bot_id": "00000000-0000-0000-0000-000000000001",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown bot, got %d", resp.StatusCode)
	}
}

func TestResolveConcurrentDuplicates(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@acme.test", "acme")
	bot := env.createBot(t, user, "Persona.")

	const racers = 5
	var wg sync.WaitGroup
	statuses := make([]int, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := env.request(t, "POST", "/api/conversations", "", map[string]string{
				"bot_id":        bot.ID.String(),
				"session_token": "racing-token",
			})
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i, status := range statuses {
		if status != http.StatusCreated && status != http.StatusOK {
			t.Errorf("racer %d got unexpected status %d", i, status)
		}
	}

	// The unique (bot_id, session_token) index collapses the race to one row.
	var count int64
	env.db.Model(&models.Conversation{}).
		Where("bot_id = ? AND session_token = ?", bot.ID, "racing-token").
		Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 conversation row, got %d", count)
	}
}

func TestConversationOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@acme.test", "acme")
	intruder := env.createUser(t, "other@corp.test", "other")
	bot := env.createBot(t, owner, "Persona.")

	conv := models.Conversation{BotID: bot.ID, SessionToken: "sess-own", MessageCount: 1}
	env.db.Create(&conv)

	resp := env.request(t, "GET", "/api/conversations/"+conv.ID.String(), env.tokenFor(t, intruder), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign conversation, got %d", resp.StatusCode)
	}

	resp = env.request(t, "GET", "/api/conversations/"+conv.ID.String(), env.tokenFor(t, owner), nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for owner, got %d", resp.StatusCode)
	}

	// Owner's list only contains the owner's bot conversations.
	resp = env.request(t, "GET", "/api/conversations", env.tokenFor(t, intruder), nil)
	var listing struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	decodeBody(t, resp, &listing)
	if len(listing.Conversations) != 0 {
		t.Errorf("intruder must see no conversations, got %d", len(listing.Conversations))
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@acme.test", "acme")
	bot := env.createBot(t, owner, "Persona.")

	conv := models.Conversation{BotID: bot.ID, SessionToken: "sess-del", MessageCount: 1}
	env.db.Create(&conv)
	env.db.Create(&models.Message{ConversationID: conv.ID, Role: "user", Content: "hi"})

	resp := env.request(t, "DELETE", "/api/conversations/"+conv.ID.String(), env.tokenFor(t, owner), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var convCount, msgCount int64
	env.db.Model(&models.Conversation{}).Where("id = ?", conv.ID).Count(&convCount)
	env.db.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&msgCount)
	if convCount != 0 || msgCount != 0 {
		t.Errorf("expected cascade delete, have %d conversations and %d messages", convCount, msgCount)
	}
}
