// Package knowledge selects the shop knowledge sections most relevant to
// a customer message, so the responder prompt carries targeted context
// instead of the whole knowledge base.
package knowledge

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

const (
	defaultTopK = 4
	minTokenLen = 3
	titleWeight = 2
)

// Retriever ranks knowledge sections by lexical overlap with the query.
type Retriever struct {
	topK   int
	logger *slog.Logger
}

type RetrieverConfig struct {
	TopK   int // max sections composed into the prompt (default: 4)
	Logger *slog.Logger
}

func NewRetriever(cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Retriever{topK: cfg.TopK, logger: cfg.Logger}
}

// Select returns the sections worth handing to the responder, in shop
// order. Small knowledge bases pass through whole; larger ones are
// trimmed to the topK sections that share tokens with the query, and when
// nothing overlaps the whole base is kept rather than starving the prompt.
func (r *Retriever) Select(query string, sections []domain.KnowledgeSection) []domain.KnowledgeSection {
	if len(sections) <= r.topK {
		return sections
	}

	qtokens := tokenize(query)
	type scored struct {
		index int
		score int
	}
	var ranked []scored
	for i, sec := range sections {
		if s := overlapScore(qtokens, sec); s > 0 {
			ranked = append(ranked, scored{index: i, score: s})
		}
	}
	if len(ranked) == 0 {
		return sections
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})
	if len(ranked) > r.topK {
		ranked = ranked[:r.topK]
	}
	sort.Slice(ranked, func(a, b int) bool {
		return ranked[a].index < ranked[b].index
	})

	out := make([]domain.KnowledgeSection, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, sections[s.index])
	}
	r.logger.Debug("knowledge sections selected",
		"total", len(sections), "selected", len(out))
	return out
}

// Compose renders the selected sections as the prompt knowledge block.
func (r *Retriever) Compose(query string, sections []domain.KnowledgeSection) string {
	var parts []string
	for _, sec := range r.Select(query, sections) {
		if sec.Content == "" {
			continue
		}
		parts = append(parts, sec.Title+"\n"+sec.Content)
	}
	return strings.Join(parts, "\n\n")
}

func overlapScore(qtokens map[string]bool, sec domain.KnowledgeSection) int {
	score := 0
	for tok := range tokenize(sec.Title) {
		if qtokens[tok] {
			score += titleWeight
		}
	}
	for tok := range tokenize(sec.Content) {
		if qtokens[tok] {
			score++
		}
	}
	return score
}

func tokenize(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) >= minTokenLen {
			out[f] = true
		}
	}
	return out
}
