package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ahmetk3436/chatnest/internal/config"
)

// ChatMessage is the only shape that ever reaches the completion provider:
// client-supplied entries are reduced to role+content before a call.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionClient is the single-call abstraction over the hosted LLM.
// One synchronous completion per invocation, no streaming, no retry.
type CompletionClient interface {
	Complete(ctx context.Context, system string, transcript []ChatMessage) (string, error)
}

// OpenRouterClient talks to an OpenAI-compatible chat completions endpoint.
type OpenRouterClient struct {
	cfg    *config.Config
	client *http.Client
}

func NewOpenRouterClient(cfg *config.Config) *OpenRouterClient {
	return &OpenRouterClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.CompletionTimeout) * time.Second,
		},
	}
}

func (o *OpenRouterClient) Complete(ctx context.Context, system string, transcript []ChatMessage) (string, error) {
	messages := make([]ChatMessage, 0, len(transcript)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: system})
	messages = append(messages, transcript...)

	payload := map[string]interface{}{
		"model":    o.cfg.CompletionModel,
		"messages": messages,
		"stream":   false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.cfg.CompletionAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.CompletionAPIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", o.cfg.AppURL)
	httpReq.Header.Set("X-Title", "AI Chatbot SaaS")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion provider returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion provider returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
