package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// memStore is an in-memory CommerceStore for tests.
type memStore struct {
	mu          sync.Mutex
	records     map[string]*domain.Record
	inactive    map[string]bool
	transcripts map[string][]domain.Message
	seq         int

	lookupErr error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{
		records:     make(map[string]*domain.Record),
		inactive:    make(map[string]bool),
		transcripts: make(map[string][]domain.Message),
		seq:         1000,
	}
}

func (s *memStore) put(rec *domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

func (s *memStore) CreateOrder(_ context.Context, idPrefix string, args domain.CreateOrderArgs) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("%s-%d", idPrefix, s.seq)
	s.records[id] = &domain.Record{
		ID: id, Kind: domain.KindOrder, Status: domain.StatusPending,
		Items: args.Items,
		Fields: map[string]string{
			"Full Name": args.CustomerName, "Phone Number": args.Phone,
			"Shipping Address": args.Address,
		},
	}
	return id, nil
}

func (s *memStore) CreateBooking(_ context.Context, idPrefix string, args domain.CreateBookingArgs) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("%s-%d", idPrefix, s.seq)
	s.records[id] = &domain.Record{
		ID: id, Kind: domain.KindBooking, Status: domain.StatusPending,
		Fields: map[string]string{
			"Full Name": args.CustomerName, "Phone Number": args.Phone,
			"Service Name": args.ServiceName, "Date": args.Date, "Time": args.Time,
		},
	}
	return id, nil
}

func (s *memStore) LookupRecord(_ context.Context, idOrPhone string) (*domain.Record, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[idOrPhone]; ok {
		return rec, nil
	}
	for _, rec := range s.records {
		if rec.Fields["Phone Number"] == idOrPhone {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateRecordField(_ context.Context, recordID, field, value string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordID]
	if !ok {
		return fmt.Errorf("record %s not found", recordID)
	}
	if rec.Fields == nil {
		rec.Fields = make(map[string]string)
	}
	rec.Fields[field] = value
	return nil
}

func (s *memStore) UpdateRecordStatus(_ context.Context, recordID string, status domain.RecordStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordID]
	if !ok {
		return fmt.Errorf("record %s not found", recordID)
	}
	rec.Status = status
	return nil
}

func (s *memStore) SetConversationAIActive(_ context.Context, conversationID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inactive[conversationID] = !active
	return nil
}

func (s *memStore) ConversationAIActive(_ context.Context, conversationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inactive[conversationID], nil
}

func (s *memStore) AppendTranscript(_ context.Context, conversationID string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[conversationID] = append(s.transcripts[conversationID], msg)
	return nil
}

func (s *memStore) Transcript(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.transcripts[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *memStore) Close() error { return nil }

// memStates is an in-memory StateStore for tests.
type memStates struct {
	mu  sync.Mutex
	m   map[string]domain.FlowContext
	err error
}

func newMemStates() *memStates { return &memStates{m: make(map[string]domain.FlowContext)} }

func (s *memStates) Get(_ context.Context, id string) (domain.FlowContext, error) {
	if s.err != nil {
		return domain.FlowContext{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[id], nil
}

func (s *memStates) Set(_ context.Context, id string, fc domain.FlowContext) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if fc.Idle() && fc.RecordID == "" {
		delete(s.m, id)
		return nil
	}
	s.m[id] = fc
	return nil
}

func (s *memStates) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *memStates) Close() error { return nil }

// fixedShops serves one snapshot for every shop ID.
type fixedShops struct {
	snap *domain.ShopSnapshot
	err  error
}

func (f *fixedShops) Snapshot(context.Context, string) (*domain.ShopSnapshot, error) {
	return f.snap, f.err
}

// scriptedResponder returns a fixed reply, recording the last request.
type scriptedResponder struct {
	result  *domain.ReplyResult
	err     error
	lastReq domain.ReplyRequest
	calls   int
}

func (r *scriptedResponder) Reply(_ context.Context, req domain.ReplyRequest) (*domain.ReplyResult, error) {
	r.lastReq = req
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &domain.ReplyResult{Text: "scripted reply"}, nil
}

func (r *scriptedResponder) Name() string                 { return "scripted" }
func (r *scriptedResponder) Healthy(context.Context) error { return nil }

// captureBus records outbound messages.
type captureBus struct {
	mu   sync.Mutex
	sent []domain.OutboundMessage
}

func (b *captureBus) Publish(domain.InboundTurn)                    {}
func (b *captureBus) Subscribe() <-chan domain.InboundTurn          { return nil }
func (b *captureBus) OnOutbound(string, func(domain.OutboundMessage)) {}
func (b *captureBus) Close()                                        {}

func (b *captureBus) SendOutbound(msg domain.OutboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
}

func (b *captureBus) last(t *testing.T) domain.OutboundMessage {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		t.Fatal("no outbound messages")
	}
	return b.sent[len(b.sent)-1]
}

func (b *captureBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

// testShop builds a fully configured order-flow shop.
func testShop() *domain.ShopSnapshot {
	return &domain.ShopSnapshot{
		ShopID: "shop1",
		Catalog: domain.Catalog{Categories: []domain.Category{
			{Name: "Lamps", Products: []domain.Product{
				{ID: "p1", Name: "Blue Lamp", Price: 25, ImageURL: "https://img/p1.jpg"},
				{ID: "p2", Name: "Desk Lamp", Price: 40},
			}},
		}},
		PaymentMethods: []domain.PaymentMethod{{ID: "pm1", Name: "KPay", Details: "09-111"}},
		PersistentMenu: []domain.Button{
			{Title: "Browse", Payload: PayloadShowCategories},
			{Title: "Manage my order", Payload: PayloadManageOrderFlow},
		},
		OrderFlow: domain.OrderFlowConfig{
			Enabled:                 true,
			FormName:                "Order Form",
			FormURL:                 "https://forms.example/order",
			TriagePrompt:            "What would you like to do?",
			AskOrderIDStatus:        "Enter your order ID.",
			AskOrderIDUpdate:        "Which order to update?",
			AskOrderIDCancel:        "Which order to cancel?",
			UpdateChoicePrompt:      "What would you like to update?",
			AskAddressPrompt:        "New address?",
			AskPhonePrompt:          "New phone?",
			StatusRecapTemplate:     "Order [ORDER_ID]: [STATUS]",
			UpdateConfirmedTemplate: "Updated [ORDER_ID].",
			CancelConfirmTemplate:   "Cancel [ORDER_ID]?",
			CancelDoneTemplate:      "[ORDER_ID] cancelled.",
			CancelAbortedMessage:    "Kept as is.",
			CreatedTemplate:         "Order placed: [ORDER_ID]",
			NotFoundMessage:         "No such order.",
		},
		Settings: domain.AssistantSettings{
			HandoverMessage: "A human will take over.",
			ApologyMessage:  "Sorry, please retry.",
			OrderIDPrefix:   "TC",
		},
	}
}

func newTestOrchestrator(shop *domain.ShopSnapshot, store *memStore, states *memStates, responder domain.Responder, bus *captureBus) *Orchestrator {
	return New(Config{
		Shops:     &fixedShops{snap: shop},
		Store:     store,
		States:    states,
		Responder: responder,
		Bus:       bus,
		Logger:    testLogger(),
	})
}

func turnFor(payload string) domain.InboundTurn {
	return domain.InboundTurn{
		Channel:        "web",
		ShopID:         "shop1",
		ConversationID: "conv1",
		SenderID:       "cust1",
		Payload:        payload,
	}
}

func assertTextContains(t *testing.T, msg domain.Message, want string) {
	t.Helper()
	if !strings.Contains(msg.Text, want) {
		t.Fatalf("message text %q does not contain %q", msg.Text, want)
	}
}
