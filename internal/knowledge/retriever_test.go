package knowledge

import (
	"strings"
	"testing"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

func sections(titles ...string) []domain.KnowledgeSection {
	out := make([]domain.KnowledgeSection, len(titles))
	for i, ti := range titles {
		out[i] = domain.KnowledgeSection{Title: ti, Content: "About " + ti + "."}
	}
	return out
}

func TestSelect_SmallBasePassesThrough(t *testing.T) {
	r := NewRetriever(RetrieverConfig{TopK: 4})
	secs := sections("Shipping", "Returns")
	got := r.Select("anything at all", secs)
	if len(got) != 2 {
		t.Fatalf("got %d sections, want all 2", len(got))
	}
}

func TestSelect_TrimsToRelevant(t *testing.T) {
	r := NewRetriever(RetrieverConfig{TopK: 2})
	secs := []domain.KnowledgeSection{
		{Title: "Shipping fees", Content: "Delivery costs 2000 MMK inside Yangon."},
		{Title: "Returns", Content: "Items can be returned within 7 days."},
		{Title: "Warranty", Content: "One year warranty on lamps."},
		{Title: "Payment", Content: "We accept KPay and Wave."},
	}

	got := r.Select("how much does shipping delivery cost?", secs)
	if len(got) != 1 {
		t.Fatalf("got %d sections, want 1: %+v", len(got), got)
	}
	if got[0].Title != "Shipping fees" {
		t.Fatalf("selected %q, want Shipping fees", got[0].Title)
	}
}

func TestSelect_KeepsShopOrder(t *testing.T) {
	r := NewRetriever(RetrieverConfig{TopK: 2})
	secs := []domain.KnowledgeSection{
		{Title: "Payment", Content: "KPay and Wave accepted for payment."},
		{Title: "Filler one", Content: "Nothing related."},
		{Title: "Shipping", Content: "Shipping and payment details combined."},
		{Title: "Filler two", Content: "Also unrelated."},
	}

	got := r.Select("payment shipping", secs)
	if len(got) != 2 {
		t.Fatalf("got %d sections, want 2", len(got))
	}
	if got[0].Title != "Payment" || got[1].Title != "Shipping" {
		t.Fatalf("order = %q, %q; want Payment then Shipping", got[0].Title, got[1].Title)
	}
}

func TestSelect_NoOverlapKeepsEverything(t *testing.T) {
	r := NewRetriever(RetrieverConfig{TopK: 2})
	secs := sections("Shipping", "Returns", "Warranty", "Payment")
	got := r.Select("xyzzy", secs)
	if len(got) != 4 {
		t.Fatalf("got %d sections, want all 4", len(got))
	}
}

func TestCompose_SkipsEmptyContent(t *testing.T) {
	r := NewRetriever(RetrieverConfig{})
	secs := []domain.KnowledgeSection{
		{Title: "Shipping", Content: "Two days."},
		{Title: "Empty", Content: ""},
	}
	out := r.Compose("shipping", secs)
	if !strings.Contains(out, "Shipping\nTwo days.") {
		t.Fatalf("composed prompt missing section: %q", out)
	}
	if strings.Contains(out, "Empty") {
		t.Fatalf("empty section leaked into prompt: %q", out)
	}
}

func TestTokenize_DropsShortTokens(t *testing.T) {
	toks := tokenize("Is it in MY order, ORD-1001?")
	if toks["it"] || toks["my"] {
		t.Fatalf("short tokens kept: %v", toks)
	}
	if !toks["order"] || !toks["ord"] || !toks["1001"] {
		t.Fatalf("expected tokens missing: %v", toks)
	}
}
