package channel

import (
	"encoding/json"
	"testing"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

func TestWebOutbound_WireShape(t *testing.T) {
	out := webOutbound{
		ConversationID: "conv-1",
		Message: domain.Message{
			Sender: domain.SenderAssistant,
			Text:   "Here's what we have.",
			QuickReplies: []domain.QuickReply{
				{Title: "Order now", Payload: "https://forms.example/order", Kind: domain.QuickReplyOpenForm},
			},
		},
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["conversation_id"] != "conv-1" {
		t.Errorf("conversation_id = %v", decoded["conversation_id"])
	}
	msg, ok := decoded["message"].(map[string]any)
	if !ok {
		t.Fatal("message object missing")
	}
	replies, ok := msg["quick_replies"].([]any)
	if !ok || len(replies) != 1 {
		t.Fatalf("quick_replies = %v", msg["quick_replies"])
	}
	qr := replies[0].(map[string]any)
	if qr["kind"] != "open_form" {
		t.Errorf("kind = %v, want open_form", qr["kind"])
	}
}

func TestCLIResolveInput_QuickReplyNumber(t *testing.T) {
	c := NewCLI(CLIChannelConfig{ShopID: "s1", Logger: testLogger()})
	c.lastReplies = []domain.QuickReply{
		{Title: "Check status", Payload: "CHECK_ORDER_STATUS_FLOW"},
		{Title: "Cancel my order", Payload: "CANCEL_ORDER_FLOW"},
	}

	payload, display := c.resolveInput("2")
	if payload != "CANCEL_ORDER_FLOW" || display != "Cancel my order" {
		t.Fatalf("got %q / %q", payload, display)
	}

	payload, display = c.resolveInput("where is my parcel")
	if payload != "where is my parcel" || display != "" {
		t.Fatalf("free text got %q / %q", payload, display)
	}

	// Out-of-range numbers are free text, not a crash.
	payload, _ = c.resolveInput("9")
	if payload != "9" {
		t.Fatalf("out of range got %q", payload)
	}
}
