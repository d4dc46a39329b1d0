// Package shop loads per-shop configuration snapshots. A snapshot is the
// complete, read-only view of one shop's assistant setup: catalog,
// payment methods, knowledge base, keyword rules, persistent menu, and
// flow strings.
package shop

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// Source reads shop snapshots from <dir>/<shopID>.yaml.
type Source struct {
	dir    string
	logger *slog.Logger
}

func NewSource(dir string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{dir: dir, logger: logger}
}

// Load reads and validates one shop snapshot from disk.
func (s *Source) Load(ctx context.Context, shopID string) (*domain.ShopSnapshot, error) {
	if strings.ContainsAny(shopID, `/\`) {
		return nil, fmt.Errorf("invalid shop id %q", shopID)
	}
	path := filepath.Join(s.dir, shopID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read shop snapshot %s: %w", path, err)
	}

	var snap domain.ShopSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("cannot parse shop snapshot %s: %w", path, err)
	}
	if snap.ShopID == "" {
		snap.ShopID = shopID
	}
	applyDefaults(&snap)
	return &snap, nil
}

// applyDefaults fills the user-facing strings a shop owner left blank so
// no turn ever renders an empty template.
func applyDefaults(snap *domain.ShopSnapshot) {
	st := &snap.Settings
	def(&st.HandoverMessage, "Thanks! A member of our team will be with you shortly.")
	def(&st.ApologyMessage, "Sorry, something went wrong on our side. Please try again in a moment.")
	def(&st.NoPaymentMethodMessage, "We haven't set up payment methods yet. Please ask us directly.")
	def(&st.NoOrderFormMessage, "Ordering isn't set up yet. Please ask us directly and we'll help you out.")
	def(&st.ProductNotFoundMessage, "Sorry, we couldn't find that product.")
	def(&st.CategoriesPrompt, "Here's what we have. Pick a category to browse:")
	def(&st.AskAnotherReply, "Sure, what else would you like to know?")
	def(&st.OrderIDPrefix, "ORD")
	def(&st.BookingIDPrefix, "BKG")

	of := &snap.OrderFlow
	def(&of.OrderNowLabel, "Order now")
	def(&of.CheckStatusLabel, "Check status")
	def(&of.UpdateOrderLabel, "Update my order")
	def(&of.CancelOrderLabel, "Cancel my order")
	def(&of.CreatePrompt, "Great! Tap below to place your order.")
	def(&of.TriagePrompt, "What would you like to do with your order?")
	def(&of.AskOrderIDStatus, "Please enter your order ID or the phone number you ordered with.")
	def(&of.AskOrderIDUpdate, "Which order would you like to update? Enter the order ID or your phone number.")
	def(&of.AskOrderIDCancel, "Which order would you like to cancel? Enter the order ID or your phone number.")
	def(&of.UpdateChoicePrompt, "What would you like to update?")
	def(&of.AskAddressPrompt, "Please enter the new shipping address.")
	def(&of.AskPhonePrompt, "Please enter the new phone number.")
	def(&of.StatusRecapTemplate, "Order [ORDER_ID] for [CUSTOMER_NAME]\nItems: [PRODUCT_LIST]\nTotal: [TOTAL_AMOUNT]\nShipping to: [SHIPPING_ADDRESS]\nStatus: [STATUS]")
	def(&of.UpdateConfirmedTemplate, "Done! Order [ORDER_ID] has been updated.")
	def(&of.CancelConfirmTemplate, "Are you sure you want to cancel order [ORDER_ID]?")
	def(&of.CancelDoneTemplate, "Order [ORDER_ID] has been cancelled.")
	def(&of.CancelAbortedMessage, "No problem, your order is unchanged.")
	def(&of.CreatedTemplate, "Your order has been placed! Your order ID is [ORDER_ID].")
	def(&of.NotFoundMessage, "Sorry, we couldn't find an order matching that. Please check and try again.")

	bf := &snap.BookingFlow
	def(&bf.BookNowLabel, "Book now")
	def(&bf.CheckStatusLabel, "Check status")
	def(&bf.CreatePrompt, "Great! Tap below to book your appointment.")
	def(&bf.TriagePrompt, "What would you like to do with your booking?")
	def(&bf.AskBookingIDStatus, "Please enter your booking ID or the phone number you booked with.")
	def(&bf.StatusRecapTemplate, "Booking [BOOKING_ID] for [CUSTOMER_NAME]\nService: [SERVICE_NAME]\nWhen: [DATE] at [TIME]\nStatus: [STATUS]")
	def(&bf.CreatedTemplate, "You're booked! Your booking ID is [BOOKING_ID].")
	def(&bf.NotFoundMessage, "Sorry, we couldn't find a booking matching that. Please check and try again.")
}

func def(target *string, fallback string) {
	if *target == "" {
		*target = fallback
	}
}
