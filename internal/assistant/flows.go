package assistant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// Canonical field labels written by the update arms. Reads go through the
// recap alias lists, so these satisfy the lookup on the way back out.
const (
	fieldShippingAddress = "Shipping Address"
	fieldPhoneNumber     = "Phone Number"
)

// StepResult is the outcome of advancing a non-idle conversation by one
// payload. Handled=false is a valid outcome: the step was not consumed and
// the orchestrator must fall through to ordinary command/keyword/AI
// handling for the same payload, with state already reset to idle.
type StepResult struct {
	Handled      bool
	Message      *domain.Message
	FixedReplies bool // the message supplies its own quick replies; skip ranking
	Next         domain.FlowContext
}

// StateMachine advances multi-turn order/booking management flows. It only
// ever runs when the conversation is not idle, and every completed, failed,
// or abandoned step lands back on idle.
type StateMachine struct {
	store  domain.CommerceStore
	logger *slog.Logger
}

func NewStateMachine(store domain.CommerceStore, logger *slog.Logger) *StateMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateMachine{store: store, logger: logger}
}

// Advance applies one payload to the current flow position. Errors are
// returned untouched so the orchestrator can fail closed without advancing
// state.
func (m *StateMachine) Advance(ctx context.Context, shop *domain.ShopSnapshot, fc domain.FlowContext, payload string) (StepResult, error) {
	idle := domain.FlowContext{State: domain.StateIdle}

	switch fc.State {
	case domain.StateAwaitingOrderIDForStatus:
		rec, err := m.store.LookupRecord(ctx, strings.TrimSpace(payload))
		if err != nil {
			return StepResult{}, err
		}
		if rec == nil {
			return handled(textMessage(notFoundMessage(shop)), idle), nil
		}
		return handled(textMessage(FormatRecap(rec, recapTemplate(shop, rec))), idle), nil

	case domain.StateAwaitingOrderIDForUpdate:
		rec, err := m.store.LookupRecord(ctx, strings.TrimSpace(payload))
		if err != nil {
			return StepResult{}, err
		}
		if rec == nil {
			return handled(textMessage(shop.OrderFlow.NotFoundMessage), idle), nil
		}
		msg := textMessage(shop.OrderFlow.UpdateChoicePrompt)
		msg.QuickReplies = []domain.QuickReply{
			{Title: "Update address", Payload: PayloadUpdateAddress, Kind: domain.QuickReplyPostback},
			{Title: "Update phone", Payload: PayloadUpdatePhone, Kind: domain.QuickReplyPostback},
		}
		return StepResult{
			Handled:      true,
			Message:      msg,
			FixedReplies: true,
			Next:         domain.FlowContext{State: domain.StateAwaitingUpdateChoice, RecordID: rec.ID},
		}, nil

	case domain.StateAwaitingUpdateChoice:
		switch payload {
		case PayloadUpdateAddress:
			return handledFixed(textMessage(shop.OrderFlow.AskAddressPrompt),
				domain.FlowContext{State: domain.StateAwaitingAddressUpdate, RecordID: fc.RecordID}), nil
		case PayloadUpdatePhone:
			return handledFixed(textMessage(shop.OrderFlow.AskPhonePrompt),
				domain.FlowContext{State: domain.StateAwaitingPhoneUpdate, RecordID: fc.RecordID}), nil
		}
		// Out-of-flow payload abandons the update; let the orchestrator
		// dispatch it normally.
		return StepResult{Next: idle}, nil

	case domain.StateAwaitingAddressUpdate:
		return m.applyFieldUpdate(ctx, shop, fc, fieldShippingAddress, payload)

	case domain.StateAwaitingPhoneUpdate:
		return m.applyFieldUpdate(ctx, shop, fc, fieldPhoneNumber, payload)

	case domain.StateAwaitingOrderIDForCancel:
		rec, err := m.store.LookupRecord(ctx, strings.TrimSpace(payload))
		if err != nil {
			return StepResult{}, err
		}
		if rec == nil {
			return handled(textMessage(shop.OrderFlow.NotFoundMessage), idle), nil
		}
		msg := textMessage(substituteID(shop.OrderFlow.CancelConfirmTemplate, rec.ID))
		msg.QuickReplies = []domain.QuickReply{
			{Title: "Yes, cancel it", Payload: PayloadConfirmCancel, Kind: domain.QuickReplyPostback},
			{Title: "No, keep it", Payload: PayloadAbortCancel, Kind: domain.QuickReplyPostback},
		}
		return StepResult{
			Handled:      true,
			Message:      msg,
			FixedReplies: true,
			Next:         domain.FlowContext{State: domain.StateAwaitingCancelConfirm, RecordID: rec.ID},
		}, nil

	case domain.StateAwaitingCancelConfirm:
		if payload == PayloadConfirmCancel || strings.EqualFold(strings.TrimSpace(payload), "yes") {
			if err := m.store.UpdateRecordStatus(ctx, fc.RecordID, domain.StatusCancelled); err != nil {
				return StepResult{}, err
			}
			m.logger.Info("record cancelled", "record", fc.RecordID)
			return handled(textMessage(substituteID(shop.OrderFlow.CancelDoneTemplate, fc.RecordID)), idle), nil
		}
		return handled(textMessage(shop.OrderFlow.CancelAbortedMessage), idle), nil
	}

	// States not wired up yet fall through to idle without output. Callers
	// must treat "not handled" as a normal outcome, not an error.
	return StepResult{Next: idle}, nil
}

func (m *StateMachine) applyFieldUpdate(ctx context.Context, shop *domain.ShopSnapshot, fc domain.FlowContext, field, value string) (StepResult, error) {
	value = strings.TrimSpace(value)
	if err := m.store.UpdateRecordField(ctx, fc.RecordID, field, value); err != nil {
		return StepResult{}, err
	}
	m.logger.Info("record field updated", "record", fc.RecordID, "field", field)
	msg := textMessage(substituteID(shop.OrderFlow.UpdateConfirmedTemplate, fc.RecordID))
	return handled(msg, domain.FlowContext{State: domain.StateIdle}), nil
}

// recapTemplate picks the status template matching the record's kind.
func recapTemplate(shop *domain.ShopSnapshot, rec *domain.Record) string {
	if rec.ResolvedKind() == domain.KindBooking {
		return shop.BookingFlow.StatusRecapTemplate
	}
	return shop.OrderFlow.StatusRecapTemplate
}

func notFoundMessage(shop *domain.ShopSnapshot) string {
	if shop.OrderFlow.NotFoundMessage != "" {
		return shop.OrderFlow.NotFoundMessage
	}
	return shop.BookingFlow.NotFoundMessage
}

func substituteID(template, id string) string {
	r := strings.NewReplacer("[ORDER_ID]", id, "[BOOKING_ID]", id)
	return r.Replace(template)
}

func textMessage(text string) *domain.Message {
	return &domain.Message{Sender: domain.SenderAssistant, Text: text}
}

func handled(msg *domain.Message, next domain.FlowContext) StepResult {
	return StepResult{Handled: true, Message: msg, Next: next}
}

func handledFixed(msg *domain.Message, next domain.FlowContext) StepResult {
	return StepResult{Handled: true, Message: msg, FixedReplies: true, Next: next}
}
