package provider

import (
	"strings"
	"testing"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

func replyRequestWith(persona, knowledge string) domain.ReplyRequest {
	return domain.ReplyRequest{Persona: persona, Knowledge: knowledge}
}

func TestExtractDirective_PlainText(t *testing.T) {
	text, order, booking := extractDirective("Sure, we ship nationwide!")
	if order != nil || booking != nil {
		t.Fatal("directive found in plain text")
	}
	if text != "Sure, we ship nationwide!" {
		t.Fatalf("text mutated: %q", text)
	}
}

func TestExtractDirective_CreateOrder(t *testing.T) {
	content := `Great, placing your order now!
{"action":"create_order","customer_name":"Mg Mg","phone":"0912","address":"12 Main St","payment_method":"KPay","items":[{"name":"Blue Lamp","quantity":2,"price":25}]}`

	text, order, booking := extractDirective(content)
	if order == nil {
		t.Fatal("no order directive extracted")
	}
	if booking != nil {
		t.Fatal("unexpected booking directive")
	}
	if order.CustomerName != "Mg Mg" || order.PaymentMethod != "KPay" {
		t.Fatalf("order fields: %+v", order)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("order items: %+v", order.Items)
	}
	if strings.Contains(text, "{") {
		t.Fatalf("JSON left in reply text: %q", text)
	}
	if !strings.Contains(text, "placing your order") {
		t.Fatalf("reply text lost: %q", text)
	}
}

func TestExtractDirective_CreateBookingFenced(t *testing.T) {
	content := "All set!\n```json\n{\"action\":\"create_booking\",\"customer_name\":\"Su Su\",\"phone\":\"0911\",\"service_name\":\"Haircut\",\"date\":\"2026-09-01\",\"time\":\"14:00\"}\n```"

	text, order, booking := extractDirective(content)
	if booking == nil {
		t.Fatal("no booking directive extracted")
	}
	if order != nil {
		t.Fatal("unexpected order directive")
	}
	if booking.ServiceName != "Haircut" || booking.Date != "2026-09-01" {
		t.Fatalf("booking fields: %+v", booking)
	}
	if !strings.Contains(text, "All set!") {
		t.Fatalf("reply text lost: %q", text)
	}
}

func TestExtractDirective_UnknownActionIgnored(t *testing.T) {
	content := `Done. {"action":"delete_everything"}`
	text, order, booking := extractDirective(content)
	if order != nil || booking != nil {
		t.Fatal("unknown action produced a directive")
	}
	if text != content {
		t.Fatalf("text mutated for unknown action: %q", text)
	}
}

func TestExtractDirective_MalformedJSONIgnored(t *testing.T) {
	content := `Here {"action":"create_order", broken`
	text, order, _ := extractDirective(content)
	if order != nil {
		t.Fatal("malformed JSON produced a directive")
	}
	if text != content {
		t.Fatalf("text mutated: %q", text)
	}
}

func TestFindJSONBounds(t *testing.T) {
	tests := []struct {
		in         string
		start, end int
	}{
		{`{"a":1}`, 0, 7},
		{`x {"a":{"b":2}} y`, 2, 15},
		{`no json here`, -1, -1},
		{`{"s":"brace } inside"}`, 0, 22},
		{`{"esc":"\""} z`, 0, 12},
		{`{ never closed`, -1, -1},
	}
	for _, tc := range tests {
		start, end := findJSONBounds(tc.in)
		if start != tc.start || end != tc.end {
			t.Errorf("findJSONBounds(%q) = (%d, %d), want (%d, %d)",
				tc.in, start, end, tc.start, tc.end)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	if got := stripCodeFence("plain"); got != "plain" {
		t.Fatalf("plain text changed: %q", got)
	}
	got := stripCodeFence("```json\n{\"a\":1}\n```")
	if strings.Contains(got, "```") {
		t.Fatalf("fence survived: %q", got)
	}
	if !strings.Contains(got, `{"a":1}`) {
		t.Fatalf("content lost: %q", got)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	p := buildSystemPrompt(replyRequestWith("Be cheerful.", "Shipping\nTwo days."))
	if !strings.HasPrefix(p, "Be cheerful.") {
		t.Fatalf("persona not leading the prompt: %q", p)
	}
	if !strings.Contains(p, "create_order") || !strings.Contains(p, "create_booking") {
		t.Fatal("directive instructions missing")
	}
	if !strings.Contains(p, "Shipping\nTwo days.") {
		t.Fatal("knowledge block missing")
	}

	empty := buildSystemPrompt(replyRequestWith("", ""))
	if !strings.Contains(empty, "friendly storefront assistant") {
		t.Fatal("default persona missing")
	}
	if strings.Contains(empty, "knowledge base") {
		t.Fatal("knowledge header present without knowledge")
	}
}
