package channel

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// WebhookConfig configures the inbound webhook channel.
type WebhookConfig struct {
	Host          string
	Port          int
	Path          string // webhook URL path (default: /webhook/messages)
	Secret        string // HMAC secret for verifying webhook signatures
	DefaultShopID string
	Logger        *slog.Logger
}

// Webhook accepts HTTP POSTs from the hosting platform relaying page
// messages and comment events. Replies are not returned in the HTTP
// response; the platform polls or receives them through its own delivery
// path, so the outbound handler only logs.
type Webhook struct {
	host          string
	port          int
	path          string
	secret        string
	defaultShopID string
	bus           domain.MessageBus
	logger        *slog.Logger
	server        *http.Server
}

// WebhookPayload is the expected JSON body for webhook requests.
type WebhookPayload struct {
	ShopID         string `json:"shop_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`      // payload: free text or postback string
	DisplayText    string `json:"display_text"` // optional title of the tapped button
	Surface        string `json:"surface"`      // "chat" (default) or "comments"
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Path == "" {
		cfg.Path = "/webhook/messages"
	}
	if cfg.Port == 0 {
		cfg.Port = 8090
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Webhook{
		host:          cfg.Host,
		port:          cfg.Port,
		path:          cfg.Path,
		secret:        cfg.Secret,
		defaultShopID: cfg.DefaultShopID,
		logger:        cfg.Logger,
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Start begins the webhook HTTP server and blocks until ctx is cancelled.
func (w *Webhook) Start(ctx context.Context, bus domain.MessageBus) error {
	w.bus = bus

	mux := http.NewServeMux()
	mux.HandleFunc(w.path, w.handleWebhook)

	w.server = &http.Server{
		Addr:              net.JoinHostPort(w.host, fmt.Sprintf("%d", w.port)),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	bus.OnOutbound("webhook", func(msg domain.OutboundMessage) {
		w.logger.Debug("webhook outbound handed to platform delivery",
			"conversation_id", msg.ConversationID, "text_len", len(msg.Message.Text))
	})

	w.logger.Info("webhook server starting", "addr", w.server.Addr, "path", w.path)

	errCh := make(chan error, 1)
	go func() {
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return w.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

func (w *Webhook) handleWebhook(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB max
	if err != nil {
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if w.secret != "" {
		sig := r.Header.Get("X-Signature-256")
		if sig == "" {
			http.Error(rw, "Missing signature", http.StatusUnauthorized)
			return
		}
		if !verifyHMAC(body, w.secret, sig) {
			http.Error(rw, "Invalid signature", http.StatusForbidden)
			return
		}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(rw, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if payload.Content == "" {
		http.Error(rw, "content is required", http.StatusBadRequest)
		return
	}
	if payload.ConversationID == "" {
		http.Error(rw, "conversation_id is required", http.StatusBadRequest)
		return
	}
	if payload.ShopID == "" {
		payload.ShopID = w.defaultShopID
	}
	if payload.SenderID == "" {
		payload.SenderID = payload.ConversationID
	}

	channelName := "webhook"
	if payload.Surface == "comments" {
		channelName = "comments"
	}

	w.logger.Info("webhook received",
		"shop_id", payload.ShopID,
		"conversation_id", payload.ConversationID,
		"surface", payload.Surface,
		"content_len", len(payload.Content),
	)

	w.bus.Publish(domain.InboundTurn{
		Channel:        channelName,
		ShopID:         payload.ShopID,
		ConversationID: payload.ConversationID,
		SenderID:       payload.SenderID,
		Payload:        payload.Content,
		DisplayText:    payload.DisplayText,
		Timestamp:      time.Now(),
	})

	rw.WriteHeader(http.StatusAccepted)
	json.NewEncoder(rw).Encode(map[string]string{"status": "accepted"})
}

// verifyHMAC verifies the HMAC-SHA256 signature of the body.
func verifyHMAC(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
