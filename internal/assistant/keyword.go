package assistant

import (
	"strings"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// MatchKeywordRule walks the shop's rules in their configured order and
// returns the first enabled rule applicable to ctx whose triggers match
// text. Ordering is the only tie-break: an earlier broad rule beats a
// later specific one. Returns nil when nothing matches.
func MatchKeywordRule(text string, rules []domain.KeywordRule, ctx domain.RuleContext) *domain.KeywordRule {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled || !rule.AppliesTo(ctx) {
			continue
		}
		if ruleMatches(normalized, rule) {
			return rule
		}
	}
	return nil
}

func ruleMatches(normalized string, rule *domain.KeywordRule) bool {
	for _, phrase := range strings.Split(rule.Triggers, ",") {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		switch rule.Match {
		case domain.RuleMatchExact:
			if normalized == phrase {
				return true
			}
		default: // contains is the default when unset
			if strings.Contains(normalized, phrase) {
				return true
			}
		}
	}
	return false
}
