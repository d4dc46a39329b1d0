package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// OpenAI implements domain.Responder against any OpenAI-compatible chat
// completion API (OpenAI, Azure, Ollama, vLLM, ...).
type OpenAI struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type OpenAIConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Logger  *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OpenAI{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		model:   cfg.Model,
		client:  newHTTPClient(),
		logger:  cfg.Logger,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", o.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("responder not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("responder: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("responder returned %d", resp.StatusCode)
	}
	return nil
}

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponse struct {
	Choices []struct {
		Message      oaiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Reply sends the conversation to the model and parses an optional
// create-order/create-booking directive out of the answer.
func (o *OpenAI) Reply(ctx context.Context, req domain.ReplyRequest) (*domain.ReplyResult, error) {
	messages := make([]oaiMessage, 0, len(req.History)+2)
	messages = append(messages, oaiMessage{Role: "system", Content: buildSystemPrompt(req)})
	for _, turn := range req.History {
		messages = append(messages, oaiMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, oaiMessage{Role: "user", Content: req.Text})

	body, err := json.Marshal(oaiRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	resp, err := doWithRetry(ctx, o.client, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", o.apiBase+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if o.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
		}
		return httpReq, nil
	}, o.logger)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completion failed: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var parsed oaiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("chat completion error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	content := parsed.Choices[0].Message.Content
	text, order, booking := extractDirective(content)
	if text == "" {
		text = "Got it! Let me take care of that for you."
	}

	o.logger.Debug("generative reply received",
		"model", o.model,
		"reply_len", len(text),
		"has_directive", order != nil || booking != nil,
	)

	return &domain.ReplyResult{Text: text, CreateOrder: order, CreateBooking: booking}, nil
}

func buildSystemPrompt(req domain.ReplyRequest) string {
	var sb strings.Builder
	if req.Persona != "" {
		sb.WriteString(req.Persona)
	} else {
		sb.WriteString("You are a friendly storefront assistant. Answer briefly and helpfully.")
	}
	sb.WriteString("\n\nWhen the customer has provided every detail needed to place an order, append a JSON object on its own line: ")
	sb.WriteString(`{"action":"create_order","customer_name":"...","phone":"...","address":"...","payment_method":"...","items":[{"name":"...","quantity":1,"price":0}]}`)
	sb.WriteString("\nFor bookings use: ")
	sb.WriteString(`{"action":"create_booking","customer_name":"...","phone":"...","service_name":"...","date":"...","time":"..."}`)
	sb.WriteString("\nNever invent details the customer did not give you.")
	if req.Knowledge != "" {
		sb.WriteString("\n\nShop knowledge base:\n")
		sb.WriteString(req.Knowledge)
	}
	return sb.String()
}
