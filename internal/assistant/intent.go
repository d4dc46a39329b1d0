package assistant

import (
	"regexp"
	"strings"
)

// Intent is the coarse funnel stage derived from the latest customer text.
// It is recomputed every turn and never stored.
type Intent string

const (
	IntentAwareness     Intent = "AWARENESS"
	IntentConsideration Intent = "CONSIDERATION"
	IntentPurchase      Intent = "PURCHASE"
	IntentPostPurchase  Intent = "POST_PURCHASE"
	IntentFallback      Intent = "FALLBACK"
)

// orderIDPattern recognizes order-id-shaped tokens like "TCCS-1001":
// two to four uppercase letters, a hyphen, four or more digits.
var orderIDPattern = regexp.MustCompile(`\b[A-Z]{2,4}-[0-9]{4,}\b`)

var (
	awarenessKeywords = []string{
		"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
		"greetings", "get started", "start", "what do you sell", "who are you",
		"menu", "help",
	}
	purchaseKeywords = []string{
		"buy", "purchase", "order now", "place an order", "checkout",
		"add to cart", "how much", "price", "cost", "payment",
	}
	postPurchaseKeywords = []string{
		"my order", "order status", "track", "tracking", "delivery status",
		"where is my", "shipped", "refund", "return", "exchange", "cancel my",
	}
	considerationKeywords = []string{
		"tell me more", "more details", "do you have", "looking for",
		"recommend", "compare", "available", "in stock", "size", "color",
		"material", "warranty", "shipping",
	}
)

// ClassifyIntent maps raw customer text to an Intent. Matching is
// case-insensitive; empty or whitespace-only text counts as a conversation
// opener. Precedence when several sets match: awareness beats purchase
// beats post-purchase beats consideration, so greeting and explicit
// purchase language win over ambiguous signals like a catalog-name mention.
func ClassifyIntent(text string, catalogItemNames []string) Intent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return IntentAwareness
	}
	lower := strings.ToLower(trimmed)

	switch {
	case matchesAny(lower, awarenessKeywords):
		return IntentAwareness
	case matchesAny(lower, purchaseKeywords):
		return IntentPurchase
	case matchesAny(lower, postPurchaseKeywords) || orderIDPattern.MatchString(trimmed):
		return IntentPostPurchase
	case matchesAny(lower, considerationKeywords) || mentionsCatalogItem(lower, catalogItemNames):
		return IntentConsideration
	}
	return IntentFallback
}

// matchesAny checks keywords against lowered text. Keywords of three
// characters or fewer match whole words only, so "hi" doesn't fire on
// "shipping"; longer phrases match as substrings.
func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if len(kw) <= 3 {
			if containsWord(lower, kw) {
				return true
			}
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsWord(lower, word string) bool {
	for _, tok := range strings.Fields(lower) {
		if strings.Trim(tok, ".,!?;:'\"()") == word {
			return true
		}
	}
	return false
}

func mentionsCatalogItem(lower string, names []string) bool {
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name != "" && strings.Contains(lower, name) {
			return true
		}
	}
	return false
}
