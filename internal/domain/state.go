package domain

import "context"

// ConversationState tracks where a conversation sits inside a multi-turn
// management flow. Idle means no flow is in progress.
type ConversationState string

const (
	StateIdle                     ConversationState = "idle"
	StateAwaitingOrderIDForStatus ConversationState = "awaiting_order_id_for_status"
	StateAwaitingOrderIDForUpdate ConversationState = "awaiting_order_id_for_update"
	StateAwaitingOrderIDForCancel ConversationState = "awaiting_order_id_for_cancellation"
	StateAwaitingUpdateChoice     ConversationState = "awaiting_update_choice"
	StateAwaitingAddressUpdate    ConversationState = "awaiting_address_update"
	StateAwaitingPhoneUpdate      ConversationState = "awaiting_phone_update"
	StateAwaitingCancelConfirm    ConversationState = "awaiting_cancellation_confirmation"
)

// FlowContext is the per-conversation flow position. RecordID carries the
// record under management between steps (set once an order id has been
// resolved, cleared when the flow completes or is abandoned).
type FlowContext struct {
	State    ConversationState `json:"state"`
	RecordID string            `json:"record_id,omitempty"`
}

// Idle reports whether no flow is in progress.
func (f FlowContext) Idle() bool {
	return f.State == "" || f.State == StateIdle
}

// StateStore holds flow contexts keyed by conversation ID. A missing entry
// reads as idle. Only the TurnOrchestrator writes; turns for the same
// conversation are serialized by the engine, so no optimistic locking is
// needed here.
type StateStore interface {
	Get(ctx context.Context, conversationID string) (FlowContext, error)
	Set(ctx context.Context, conversationID string, fc FlowContext) error
	Clear(ctx context.Context, conversationID string) error
	Close() error
}
