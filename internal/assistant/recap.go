package assistant

import (
	"fmt"
	"strings"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// Field alias lists for recap token lookup. Shop owners name their form
// fields freely, so each logical field accepts several labels; the first
// alias present on the record wins.
var (
	aliasCustomerName = []string{"full name", "name", "customer name"}
	aliasPhone        = []string{"phone number", "phone", "mobile", "contact number"}
	aliasAddress      = []string{"shipping address", "address", "delivery address"}
	aliasServiceName  = []string{"service name", "service"}
	aliasDate         = []string{"date", "booking date", "appointment date"}
	aliasTime         = []string{"time", "booking time", "appointment time"}
)

const missingField = "N/A"

// FormatRecap renders a templated order/booking summary by straight token
// substitution. Unresolvable fields render the literal "N/A".
func FormatRecap(rec *domain.Record, template string) string {
	replacements := []string{
		"[CUSTOMER_NAME]", lookupField(rec, aliasCustomerName),
		"[PHONE_NUMBER]", lookupField(rec, aliasPhone),
		"[STATUS]", string(rec.Status),
	}

	if rec.ResolvedKind() == domain.KindBooking {
		replacements = append(replacements,
			"[BOOKING_ID]", rec.ID,
			"[SERVICE_NAME]", lookupField(rec, aliasServiceName),
			"[DATE]", lookupField(rec, aliasDate),
			"[TIME]", lookupField(rec, aliasTime),
		)
	} else {
		replacements = append(replacements,
			"[ORDER_ID]", rec.ID,
			"[SHIPPING_ADDRESS]", lookupField(rec, aliasAddress),
			"[PRODUCT_LIST]", productList(rec),
			"[TOTAL_AMOUNT]", totalAmount(rec),
		)
	}

	return strings.NewReplacer(replacements...).Replace(template)
}

// lookupField resolves a logical field against the record's owner-labeled
// fields, case-insensitively, first alias wins.
func lookupField(rec *domain.Record, aliases []string) string {
	for _, alias := range aliases {
		for key, val := range rec.Fields {
			if strings.EqualFold(strings.TrimSpace(key), alias) && val != "" {
				return val
			}
		}
	}
	return missingField
}

func productList(rec *domain.Record) string {
	if len(rec.Items) == 0 {
		return missingField
	}
	parts := make([]string, 0, len(rec.Items))
	for _, it := range rec.Items {
		q := it.Quantity
		if q <= 0 {
			q = 1
		}
		parts = append(parts, fmt.Sprintf("%d x %s", q, it.Name))
	}
	return strings.Join(parts, ", ")
}

func totalAmount(rec *domain.Record) string {
	if len(rec.Items) == 0 {
		return missingField
	}
	return fmt.Sprintf("%.2f", rec.Total())
}
