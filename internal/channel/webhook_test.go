package channel

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// fakeBus records published turns for assertions.
type fakeBus struct {
	published []domain.InboundTurn
}

func (f *fakeBus) Publish(turn domain.InboundTurn) {
	f.published = append(f.published, turn)
}
func (f *fakeBus) Subscribe() <-chan domain.InboundTurn            { return nil }
func (f *fakeBus) SendOutbound(domain.OutboundMessage)             {}
func (f *fakeBus) OnOutbound(string, func(domain.OutboundMessage)) {}
func (f *fakeBus) Close()                                          {}

func TestVerifyHMAC_Valid(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"content":"hello"}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !verifyHMAC(body, secret, sig) {
		t.Error("valid HMAC should verify")
	}
}

func TestVerifyHMAC_Invalid(t *testing.T) {
	if verifyHMAC([]byte("body"), "secret", "sha256=invalid") {
		t.Error("invalid HMAC should not verify")
	}
}

func TestVerifyHMAC_Empty(t *testing.T) {
	if verifyHMAC([]byte("body"), "secret", "") {
		t.Error("empty signature should not verify")
	}
}

func TestWebhookPayload_Unmarshal(t *testing.T) {
	data := `{"shop_id":"shop1","conversation_id":"conv1","sender_id":"cust1","content":"hello","surface":"comments"}`
	var payload WebhookPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Content != "hello" {
		t.Errorf("expected hello, got %s", payload.Content)
	}
	if payload.Surface != "comments" {
		t.Errorf("expected comments, got %s", payload.Surface)
	}
}

func TestWebhookHandler_MethodNotAllowed(t *testing.T) {
	w := &Webhook{logger: testLogger()}
	req := httptest.NewRequest("GET", "/webhook/messages", nil)
	rr := httptest.NewRecorder()

	w.handleWebhook(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestWebhookHandler_EmptyContent(t *testing.T) {
	w := &Webhook{logger: testLogger()}
	body := `{"conversation_id":"conv1","content":""}`
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	w.handleWebhook(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestWebhookHandler_MissingConversation(t *testing.T) {
	w := &Webhook{logger: testLogger()}
	body := `{"content":"hello"}`
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	w.handleWebhook(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestWebhookHandler_InvalidJSON(t *testing.T) {
	w := &Webhook{logger: testLogger()}
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()

	w.handleWebhook(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	w := &Webhook{secret: "my-secret", logger: testLogger()}
	body := `{"conversation_id":"conv1","content":"hello"}`
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	w.handleWebhook(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestWebhookHandler_InvalidSignature(t *testing.T) {
	w := &Webhook{secret: "my-secret", logger: testLogger()}
	body := `{"conversation_id":"conv1","content":"hello"}`
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewBufferString(body))
	req.Header.Set("X-Signature-256", "sha256=invalid")
	rr := httptest.NewRecorder()

	w.handleWebhook(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestWebhookHandler_PublishesTurn(t *testing.T) {
	bus := &fakeBus{}
	w := &Webhook{defaultShopID: "default-shop", bus: bus, logger: testLogger()}
	body := `{"conversation_id":"conv1","sender_id":"cust1","content":"MANAGE_ORDER_FLOW","display_text":"Manage my order"}`
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	w.handleWebhook(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected 1 published turn, got %d", len(bus.published))
	}
	turn := bus.published[0]
	if turn.ShopID != "default-shop" {
		t.Errorf("shop_id = %q, want default-shop", turn.ShopID)
	}
	if turn.Payload != "MANAGE_ORDER_FLOW" || turn.DisplayText != "Manage my order" {
		t.Errorf("unexpected turn payload: %+v", turn)
	}
	if turn.Channel != "webhook" {
		t.Errorf("channel = %q, want webhook", turn.Channel)
	}
}

func TestWebhookHandler_CommentSurface(t *testing.T) {
	bus := &fakeBus{}
	w := &Webhook{bus: bus, logger: testLogger()}
	body := `{"shop_id":"s1","conversation_id":"post-9","content":"price?","surface":"comments"}`
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	w.handleWebhook(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if bus.published[0].Channel != "comments" {
		t.Errorf("channel = %q, want comments", bus.published[0].Channel)
	}
}
