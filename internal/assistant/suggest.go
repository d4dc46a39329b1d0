package assistant

import (
	"strconv"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

const (
	maxQuickReplies = 5
	maxTitleRunes   = 20
	cutTitleRunes   = 17
)

// generatorID names a quick-reply candidate generator. Each intent keys a
// different priority ordering over these.
type generatorID int

const (
	genCategories generatorID = iota
	genOrderOrBook
	genManage
	genPayments
	genKnowledge
	genTalkToHuman
	genContinueShopping
	genAskAnother
	genNewArrivals
)

var intentPriorities = map[Intent][]generatorID{
	IntentAwareness:     {genCategories, genOrderOrBook, genKnowledge, genPayments, genTalkToHuman},
	IntentConsideration: {genCategories, genNewArrivals, genKnowledge, genPayments, genOrderOrBook},
	IntentPurchase:      {genOrderOrBook, genPayments, genCategories, genContinueShopping, genTalkToHuman},
	IntentPostPurchase:  {genManage, genTalkToHuman, genPayments, genAskAnother, genContinueShopping},
	IntentFallback:      {genTalkToHuman, genCategories, genOrderOrBook, genKnowledge, genAskAnother},
}

var defaultPriority = []generatorID{
	genCategories, genOrderOrBook, genManage, genPayments, genKnowledge,
	genTalkToHuman, genContinueShopping, genAskAnother, genNewArrivals,
}

// RankSuggestions builds the ranked quick-reply list for one outgoing
// message: at most five entries, payloads pairwise unique and disjoint
// from the persistent buttons shown on the same message. Candidates come
// from the intent's priority list first, then from the default list until
// the cap is reached. Titles longer than 20 characters are truncated to
// 17 plus an ellipsis at insertion time; dedup always compares the raw
// payload, never the truncated title.
func RankSuggestions(shop *domain.ShopSnapshot, intent Intent, persistent []domain.Button) []domain.QuickReply {
	taken := make(map[string]bool, len(persistent))
	for _, b := range persistent {
		taken[b.Payload] = true
	}

	out := make([]domain.QuickReply, 0, maxQuickReplies)
	add := func(qr domain.QuickReply) {
		if len(out) >= maxQuickReplies || taken[qr.Payload] {
			return
		}
		taken[qr.Payload] = true
		qr.Title = truncateTitle(qr.Title)
		if qr.Kind == "" {
			qr.Kind = domain.QuickReplyPostback
		}
		out = append(out, qr)
	}

	runList := func(ids []generatorID) {
		for _, id := range ids {
			if len(out) >= maxQuickReplies {
				return
			}
			for _, qr := range generate(id, shop) {
				add(qr)
			}
		}
	}

	priorities, ok := intentPriorities[intent]
	if !ok {
		priorities = intentPriorities[IntentFallback]
	}
	runList(priorities)
	if len(out) < maxQuickReplies {
		runList(defaultPriority)
	}
	return out
}

// generate returns zero or more candidates for one generator. All return a
// single action except the knowledge generator, which yields one per
// section flagged for quick-reply display.
func generate(id generatorID, shop *domain.ShopSnapshot) []domain.QuickReply {
	one := func(title, payload string) []domain.QuickReply {
		return []domain.QuickReply{{Title: title, Payload: payload}}
	}

	switch id {
	case genCategories:
		if shop.Settings.DisableCategoryBrowse || len(shop.Catalog.NonEmptyCategories()) == 0 {
			return nil
		}
		return one("Browse categories", PayloadShowCategories)

	case genOrderOrBook:
		// Order flow takes priority when both are enabled.
		if shop.OrderFlow.Enabled {
			return one(orLabel(shop.OrderFlow.OrderNowLabel, "Order now"), PayloadCreateOrderFlow)
		}
		if shop.BookingFlow.Enabled {
			return one(orLabel(shop.BookingFlow.BookNowLabel, "Book now"), PayloadCreateBookingFlow)
		}
		return nil

	case genManage:
		if shop.OrderFlow.Enabled {
			return one(orLabel(shop.Labels.ManageOrder, "Manage my order"), PayloadManageOrderFlow)
		}
		if shop.BookingFlow.Enabled {
			return one(orLabel(shop.Labels.ManageBooking, "Manage my booking"), PayloadManageBookingFlow)
		}
		return nil

	case genPayments:
		if len(shop.PaymentMethods) == 0 {
			return nil
		}
		return one(orLabel(shop.Labels.PaymentMethods, "Payment methods"), PayloadShowPaymentMethods)

	case genKnowledge:
		var out []domain.QuickReply
		for i, sec := range shop.Knowledge {
			if sec.ShowAsQuickReply {
				out = append(out, domain.QuickReply{
					Title:   sec.Title,
					Payload: PrefixKnowledge + strconv.Itoa(i),
				})
			}
		}
		return out

	case genTalkToHuman:
		if shop.Settings.SuppressTalkToHuman {
			return nil
		}
		return one("Talk to a human", PayloadHandoverToHuman)

	case genContinueShopping:
		return one("Continue shopping", PayloadContinueShopping)

	case genAskAnother:
		return one("Ask another question", PayloadAskAnotherQuestion)

	case genNewArrivals:
		if len(shop.Catalog.ItemNames()) == 0 {
			return nil
		}
		return one("Browse new arrivals", PayloadBrowseNewArrivals)
	}
	return nil
}

func orLabel(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

// truncateTitle caps a title at 20 visible characters: anything longer is
// cut to 17 runes plus an ellipsis.
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return string(runes[:cutTitleRunes]) + "..."
}
