package handlers_test

import (
	"net/http"
	"testing"

	"github.com/ahmetk3436/chatnest/internal/models"
)

func TestAnalyticsEmptyAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@acme.test", "acme")

	resp := env.request(t, "GET", "/api/analytics", env.tokenFor(t, user), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		TotalBots          int `json:"total_bots"`
		TotalConversations int `json:"total_conversations"`
		TotalMessages      int `json:"total_messages"`
	}
	decodeBody(t, resp, &body)
	if body.TotalBots != 0 || body.TotalConversations != 0 || body.TotalMessages != 0 {
		t.Errorf("expected zeroed overview, got %+v", body)
	}
}

func TestAnalyticsAggregates(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@acme.test", "acme")
	other := env.createUser(t, "other@corp.test", "other")

	botA := env.createBot(t, owner, "Persona A.")
	botB := env.createBot(t, owner, "Persona B.")
	foreign := env.createBot(t, other, "Foreign.")

	env.db.Create(&models.Conversation{BotID: botA.ID, SessionToken: "s1", MessageCount: 3})
	env.db.Create(&models.Conversation{BotID: botA.ID, SessionToken: "s2", MessageCount: 5})
	env.db.Create(&models.Conversation{BotID: botB.ID, SessionToken: "s3", MessageCount: 2})
	// Another tenant's traffic must not bleed into the overview.
	env.db.Create(&models.Conversation{BotID: foreign.ID, SessionToken: "s4", MessageCount: 99})

	resp := env.request(t, "GET", "/api/analytics", env.tokenFor(t, owner), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		TotalBots          int `json:"total_bots"`
		TotalConversations int `json:"total_conversations"`
		TotalMessages      int `json:"total_messages"`
		BotStats           []struct {
			BotID             string `json:"bot_id"`
			ConversationCount int    `json:"conversation_count"`
			MessageCount      int    `json:"message_count"`
		} `json:"bot_stats"`
		DailyStats []struct {
			Label string `json:"label"`
			Value int    `json:"value"`
		} `json:"daily_stats"`
		RecentActivity []models.Conversation `json:"recent_activity"`
	}
	decodeBody(t, resp, &body)

	if body.TotalBots != 2 {
		t.Errorf("expected 2 bots, got %d", body.TotalBots)
	}
	if body.TotalConversations != 3 {
		t.Errorf("expected 3 conversations, got %d", body.TotalConversations)
	}
	if body.TotalMessages != 10 {
		t.Errorf("expected message total 10, got %d", body.TotalMessages)
	}

	perBot := map[string]int{}
	for _, s := range body.BotStats {
		perBot[s.BotID] = s.MessageCount
	}
	if perBot[botA.ID.String()] != 8 || perBot[botB.ID.String()] != 2 {
		t.Errorf("unexpected per-bot sums %v", perBot)
	}

	if len(body.DailyStats) != 7 {
		t.Fatalf("expected a 7-day series, got %d entries", len(body.DailyStats))
	}
	today := 0
	for _, d := range body.DailyStats {
		today += d.Value
	}
	if today != 3 {
		t.Errorf("expected today's 3 conversations in the series, summed %d", today)
	}

	if len(body.RecentActivity) != 3 {
		t.Errorf("expected 3 recent conversations, got %d", len(body.RecentActivity))
	}
}
