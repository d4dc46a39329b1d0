package domain

import (
	"context"
	"strings"
	"time"
)

// RecordKind discriminates order records from booking records.
type RecordKind string

const (
	KindOrder   RecordKind = "order"
	KindBooking RecordKind = "booking"
)

type RecordStatus string

const (
	StatusPending   RecordStatus = "Pending"
	StatusConfirmed RecordStatus = "Confirmed"
	StatusCompleted RecordStatus = "Completed"
	StatusCancelled RecordStatus = "Cancelled"
	StatusReturn    RecordStatus = "Return"
)

type LineItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Record is one order or booking submission. Fields are keyed by the
// form-field label the shop owner configured, which is why lookups go
// through alias lists rather than fixed keys.
type Record struct {
	ID        string            `json:"id"`
	Kind      RecordKind        `json:"kind,omitempty"`
	FormName  string            `json:"form_name"`
	Status    RecordStatus      `json:"status"`
	Items     []LineItem        `json:"items,omitempty"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
}

// ResolvedKind returns the explicit Kind when set. Records created before
// the discriminator existed fall back to the historical heuristic: a form
// name containing "booking" means a booking. Shops relying on that
// behavior keep it; new records always carry Kind.
func (r *Record) ResolvedKind() RecordKind {
	if r.Kind != "" {
		return r.Kind
	}
	if strings.Contains(strings.ToLower(r.FormName), "booking") {
		return KindBooking
	}
	return KindOrder
}

// Total sums quantity*price over the line items.
func (r *Record) Total() float64 {
	var total float64
	for _, it := range r.Items {
		q := it.Quantity
		if q <= 0 {
			q = 1
		}
		total += float64(q) * it.Price
	}
	return total
}

// CreateOrderArgs is the structured create-order directive surfaced by the
// generative collaborator.
type CreateOrderArgs struct {
	CustomerName  string     `json:"customer_name"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address"`
	Items         []LineItem `json:"items"`
	PaymentMethod string     `json:"payment_method"`
}

type CreateBookingArgs struct {
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	ServiceName  string `json:"service_name"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// CommerceStore persists orders, bookings, conversation transcripts, and
// the per-conversation AI-active flag. Lookup misses return (nil, nil).
// Record IDs are minted as "<idPrefix>-<sequence>" so they look like the
// order numbers shops print on receipts (and match the post-purchase
// intent pattern).
type CommerceStore interface {
	CreateOrder(ctx context.Context, idPrefix string, args CreateOrderArgs) (string, error)
	CreateBooking(ctx context.Context, idPrefix string, args CreateBookingArgs) (string, error)
	LookupRecord(ctx context.Context, idOrPhone string) (*Record, error)
	UpdateRecordField(ctx context.Context, recordID, field, value string) error
	UpdateRecordStatus(ctx context.Context, recordID string, status RecordStatus) error

	SetConversationAIActive(ctx context.Context, conversationID string, active bool) error
	ConversationAIActive(ctx context.Context, conversationID string) (bool, error)

	AppendTranscript(ctx context.Context, conversationID string, msg Message) error
	Transcript(ctx context.Context, conversationID string, limit int) ([]Message, error)

	Close() error
}

// ShopSource supplies the read-only shop snapshot for a turn.
type ShopSource interface {
	Snapshot(ctx context.Context, shopID string) (*ShopSnapshot, error)
}
