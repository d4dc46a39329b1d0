package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// commandResult holds the response for a handled deterministic command.
// handled=false means the payload is not a command and should flow on to
// keyword matching and the generative fallback.
type commandResult struct {
	handled bool
	silent  bool
	fixed   bool                // message supplies its own quick replies
	msg     *domain.Message
	next    *domain.FlowContext // non-nil: set this flow context after emitting
}

// dispatchCommand matches the payload against the exact- and prefix-payload
// command table. Commands synthesize their own message and may arm the next
// conversation state; several override ranking with a fixed quick-reply
// list (e.g. one reply per category).
func (o *Orchestrator) dispatchCommand(ctx context.Context, shop *domain.ShopSnapshot, convID, payload string) (commandResult, error) {
	switch payload {
	case PayloadHandoverToHuman:
		if err := o.store.SetConversationAIActive(ctx, convID, false); err != nil {
			return commandResult{}, err
		}
		o.logger.Info("conversation handed over to human", "conversation", convID)
		return fixedCommand(textMessage(shop.Settings.HandoverMessage)), nil

	case PayloadShowCategories, PayloadContinueShopping:
		return o.showCategories(shop), nil

	case PayloadShowPaymentMethods:
		return o.showPaymentMethods(shop), nil

	case PayloadCreateOrderFlow:
		if shop.OrderFlow.FormURL == "" {
			return fixedCommand(textMessage(shop.Settings.NoOrderFormMessage)), nil
		}
		msg := textMessage(shop.OrderFlow.CreatePrompt)
		msg.QuickReplies = []domain.QuickReply{{
			Title:   orLabel(shop.OrderFlow.OrderNowLabel, "Order now"),
			Payload: shop.OrderFlow.FormURL,
			Kind:    domain.QuickReplyOpenForm,
		}}
		return fixedCommand(msg), nil

	case PayloadCreateBookingFlow:
		if shop.BookingFlow.FormURL == "" {
			return fixedCommand(textMessage(shop.Settings.NoOrderFormMessage)), nil
		}
		msg := textMessage(shop.BookingFlow.CreatePrompt)
		msg.QuickReplies = []domain.QuickReply{{
			Title:   orLabel(shop.BookingFlow.BookNowLabel, "Book now"),
			Payload: shop.BookingFlow.FormURL,
			Kind:    domain.QuickReplyOpenForm,
		}}
		return fixedCommand(msg), nil

	case PayloadManageOrderFlow:
		if !shop.OrderFlow.Enabled {
			return commandResult{handled: false}, nil
		}
		// Triage is not a stateful step: the three choices are themselves
		// commands, so state stays idle.
		msg := textMessage(shop.OrderFlow.TriagePrompt)
		msg.QuickReplies = []domain.QuickReply{
			{Title: orLabel(shop.OrderFlow.CheckStatusLabel, "Check status"), Payload: PayloadCheckOrderStatus, Kind: domain.QuickReplyPostback},
			{Title: orLabel(shop.OrderFlow.UpdateOrderLabel, "Update my order"), Payload: PayloadUpdateOrderFlow, Kind: domain.QuickReplyPostback},
			{Title: orLabel(shop.OrderFlow.CancelOrderLabel, "Cancel my order"), Payload: PayloadCancelOrderFlow, Kind: domain.QuickReplyPostback},
		}
		return fixedCommand(msg), nil

	case PayloadManageBookingFlow:
		if !shop.BookingFlow.Enabled {
			return commandResult{handled: false}, nil
		}
		msg := textMessage(shop.BookingFlow.TriagePrompt)
		msg.QuickReplies = []domain.QuickReply{
			{Title: orLabel(shop.BookingFlow.CheckStatusLabel, "Check status"), Payload: PayloadCheckBookingStatus, Kind: domain.QuickReplyPostback},
			{Title: "Talk to a human", Payload: PayloadHandoverToHuman, Kind: domain.QuickReplyPostback},
		}
		return fixedCommand(msg), nil

	case PayloadCheckOrderStatus:
		return armState(textMessage(shop.OrderFlow.AskOrderIDStatus), domain.StateAwaitingOrderIDForStatus), nil

	case PayloadUpdateOrderFlow:
		return armState(textMessage(shop.OrderFlow.AskOrderIDUpdate), domain.StateAwaitingOrderIDForUpdate), nil

	case PayloadCancelOrderFlow:
		return armState(textMessage(shop.OrderFlow.AskOrderIDCancel), domain.StateAwaitingOrderIDForCancel), nil

	case PayloadCheckBookingStatus:
		// Bookings share the order-id status arm: the lookup accepts
		// booking ids and phone numbers alike.
		return armState(textMessage(shop.BookingFlow.AskBookingIDStatus), domain.StateAwaitingOrderIDForStatus), nil

	case PayloadAskAnotherQuestion:
		return commandResult{handled: true, msg: textMessage(shop.Settings.AskAnotherReply)}, nil

	case PayloadBrowseNewArrivals:
		return o.showNewArrivals(shop), nil
	}

	if id, ok := strings.CutPrefix(payload, PrefixProductInfo); ok {
		return o.showProductInfo(shop, id), nil
	}
	if id, ok := strings.CutPrefix(payload, PrefixPaymentInfo); ok {
		return o.showPaymentInfo(shop, id), nil
	}
	if idx, ok := strings.CutPrefix(payload, PrefixKnowledge); ok {
		return o.showKnowledgeSection(shop, idx), nil
	}
	if name, ok := cutPrefixFold(payload, PrefixShowCategory); ok {
		if cat := shop.Catalog.FindCategory(name); cat != nil {
			return carouselCommand(productCarousel(shop, cat.Products)), nil
		}
		// "show me something nice" is free text, not a category browse.
	}

	return commandResult{handled: false}, nil
}

func (o *Orchestrator) showCategories(shop *domain.ShopSnapshot) commandResult {
	categories := shop.Catalog.NonEmptyCategories()
	if len(categories) == 0 {
		return commandResult{handled: true, msg: textMessage(shop.Settings.ProductNotFoundMessage)}
	}
	msg := textMessage(shop.Settings.CategoriesPrompt)
	// One quick reply per category overrides ranking for this message.
	for _, cat := range categories {
		msg.QuickReplies = append(msg.QuickReplies, domain.QuickReply{
			Title:   truncateTitle(cat.Name),
			Payload: PrefixShowCategory + cat.Name,
			Kind:    domain.QuickReplyPostback,
		})
	}
	return fixedCommand(msg)
}

func (o *Orchestrator) showPaymentMethods(shop *domain.ShopSnapshot) commandResult {
	if len(shop.PaymentMethods) == 0 {
		return commandResult{handled: true, msg: textMessage(shop.Settings.NoPaymentMethodMessage)}
	}
	var sb strings.Builder
	sb.WriteString("We accept the following payment methods:\n")
	msg := &domain.Message{Sender: domain.SenderAssistant}
	for _, pm := range shop.PaymentMethods {
		fmt.Fprintf(&sb, "• %s\n", pm.Name)
		msg.QuickReplies = append(msg.QuickReplies, domain.QuickReply{
			Title:   truncateTitle(pm.Name),
			Payload: PrefixPaymentInfo + pm.ID,
			Kind:    domain.QuickReplyPostback,
		})
	}
	msg.Text = sb.String()
	return fixedCommand(msg)
}

func (o *Orchestrator) showPaymentInfo(shop *domain.ShopSnapshot, id string) commandResult {
	for _, pm := range shop.PaymentMethods {
		if pm.ID == id {
			text := pm.Name
			if pm.Details != "" {
				text = pm.Name + "\n" + pm.Details
			}
			return commandResult{handled: true, msg: textMessage(text)}
		}
	}
	return commandResult{handled: true, msg: textMessage(shop.Settings.NoPaymentMethodMessage)}
}

func (o *Orchestrator) showProductInfo(shop *domain.ShopSnapshot, id string) commandResult {
	p := shop.Catalog.FindProduct(id)
	if p == nil {
		return commandResult{handled: true, msg: textMessage(shop.Settings.ProductNotFoundMessage)}
	}
	return carouselCommand(productCarousel(shop, []domain.Product{*p}))
}

func (o *Orchestrator) showNewArrivals(shop *domain.ShopSnapshot) commandResult {
	const newArrivalsLimit = 10
	var latest []domain.Product
	for _, cat := range shop.Catalog.Categories {
		latest = append(latest, cat.Products...)
	}
	if len(latest) == 0 {
		return commandResult{handled: true, msg: textMessage(shop.Settings.ProductNotFoundMessage)}
	}
	if len(latest) > newArrivalsLimit {
		latest = latest[len(latest)-newArrivalsLimit:]
	}
	return carouselCommand(productCarousel(shop, latest))
}

func (o *Orchestrator) showKnowledgeSection(shop *domain.ShopSnapshot, idx string) commandResult {
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(shop.Knowledge) {
		return commandResult{handled: false}
	}
	return commandResult{handled: true, msg: textMessage(shop.Knowledge[i].Content)}
}

// productCarousel renders products as carousel cards. Carousel messages
// are a primary payload of their own and never carry a quick-reply list.
func productCarousel(shop *domain.ShopSnapshot, products []domain.Product) *domain.Message {
	msg := &domain.Message{Sender: domain.SenderAssistant}
	for _, p := range products {
		msg.Carousel = append(msg.Carousel, domain.CarouselCard{
			Title:    p.Name,
			Subtitle: fmt.Sprintf("%.2f", p.Price),
			ImageURL: p.ImageURL,
			Buttons: []domain.Button{
				{Title: "View details", Payload: PrefixProductInfo + p.ID},
				{Title: orLabel(shop.OrderFlow.OrderNowLabel, "Order now"), Payload: PayloadCreateOrderFlow},
			},
		})
	}
	return msg
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

func fixedCommand(msg *domain.Message) commandResult {
	return commandResult{handled: true, fixed: true, msg: msg}
}

func carouselCommand(msg *domain.Message) commandResult {
	return commandResult{handled: true, fixed: true, msg: msg}
}

func armState(msg *domain.Message, state domain.ConversationState) commandResult {
	return commandResult{
		handled: true,
		fixed:   true,
		msg:     msg,
		next:    &domain.FlowContext{State: state},
	}
}
