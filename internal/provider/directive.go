package provider

import (
	"encoding/json"
	"strings"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// directiveEnvelope is the structured block the model is instructed to
// append when the customer has supplied everything needed to place an
// order or booking.
type directiveEnvelope struct {
	Action        string            `json:"action"`
	CustomerName  string            `json:"customer_name"`
	Phone         string            `json:"phone"`
	Address       string            `json:"address"`
	PaymentMethod string            `json:"payment_method"`
	Items         []domain.LineItem `json:"items"`
	ServiceName   string            `json:"service_name"`
	Date          string            `json:"date"`
	Time          string            `json:"time"`
}

// extractDirective scans model output for a create-order/create-booking
// JSON block. Models embed it anywhere in the reply (often code-fenced),
// so we locate the first balanced JSON object rather than requiring pure
// JSON. Returns the reply text with the block removed plus the parsed
// directive, or the original text when none is present.
func extractDirective(content string) (string, *domain.CreateOrderArgs, *domain.CreateBookingArgs) {
	stripped := stripCodeFence(content)

	start, end := findJSONBounds(stripped)
	if start < 0 {
		return content, nil, nil
	}

	var env directiveEnvelope
	if err := json.Unmarshal([]byte(stripped[start:end]), &env); err != nil {
		return content, nil, nil
	}

	text := strings.TrimSpace(stripped[:start] + stripped[end:])
	switch env.Action {
	case "create_order":
		return text, &domain.CreateOrderArgs{
			CustomerName:  env.CustomerName,
			Phone:         env.Phone,
			Address:       env.Address,
			PaymentMethod: env.PaymentMethod,
			Items:         env.Items,
		}, nil
	case "create_booking":
		return text, nil, &domain.CreateBookingArgs{
			CustomerName: env.CustomerName,
			Phone:        env.Phone,
			ServiceName:  env.ServiceName,
			Date:         env.Date,
			Time:         env.Time,
		}
	}
	return content, nil, nil
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.Contains(trimmed, "```") {
		return trimmed
	}
	return strings.ReplaceAll(strings.ReplaceAll(trimmed, "```json", ""), "```", "")
}

// findJSONBounds locates the first top-level JSON object in s. Returns the
// start index and end+1 index, or (-1, -1) if not found.
func findJSONBounds(s string) (int, int) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return -1, -1
	}

	depth := 0
	inStr := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inStr {
			if ch == '\\' {
				i++ // skip escaped character
				continue
			}
			if ch == '"' {
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return start, i + 1
			}
		}
	}
	return -1, -1
}
