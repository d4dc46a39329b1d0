package assistant

import "github.com/bhonepyisone/cliick-assistant/internal/domain"

// ResolvePersistentMenu builds the shop's always-available button menu:
// manage entries for disabled flows are dropped, well-known payloads get
// their shop-configured label override, and the result is de-duplicated by
// title with the first occurrence winning. Dedup by title (not payload) is
// intentional and matches what the chat surface renders; two entries with
// the same title but different payloads collapse to one.
func ResolvePersistentMenu(shop *domain.ShopSnapshot) []domain.Button {
	seen := make(map[string]bool)
	var out []domain.Button

	for _, item := range shop.PersistentMenu {
		switch item.Payload {
		case PayloadManageOrderFlow, PayloadCheckOrderStatus:
			if !shop.OrderFlow.Enabled {
				continue
			}
		case PayloadManageBookingFlow, PayloadCheckBookingStatus:
			if !shop.BookingFlow.Enabled {
				continue
			}
		}

		if title := overrideTitle(shop, item.Payload); title != "" {
			item.Title = title
		}

		if seen[item.Title] {
			continue
		}
		seen[item.Title] = true
		out = append(out, item)
	}
	return out
}

func overrideTitle(shop *domain.ShopSnapshot, payload string) string {
	switch payload {
	case PayloadManageOrderFlow:
		return shop.Labels.ManageOrder
	case PayloadShowPaymentMethods:
		return shop.Labels.PaymentMethods
	case PayloadManageBookingFlow:
		return shop.Labels.ManageBooking
	case PayloadCreateBookingFlow:
		return shop.Labels.CreateBooking
	}
	return ""
}
