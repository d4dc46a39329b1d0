package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
	"github.com/bhonepyisone/cliick-assistant/internal/knowledge"
	"github.com/bhonepyisone/cliick-assistant/internal/metrics"
)

const (
	defaultHistoryLimit = 20
	genericApology      = "Sorry, something went wrong on our side. Please try again in a moment."
)

var (
	keywordHits = metrics.Default.Counter(
		"assistant_keyword_rule_hits_total", "Turns answered by a keyword rule", "")
	responderErrors = metrics.Default.Counter(
		"assistant_responder_errors_total", "Generative replies that failed", "")
)

// Orchestrator is the turn entry point. For each inbound customer payload
// it sequences flow continuation, deterministic command dispatch, keyword
// automation, then the generative fallback, and emits exactly one
// assistant message per turn (zero only for AI-inactive conversations).
type Orchestrator struct {
	shops     domain.ShopSource
	store     domain.CommerceStore
	states    domain.StateStore
	responder domain.Responder
	machine   *StateMachine
	bus       domain.MessageBus
	sched     *Scheduler
	knows     *knowledge.Retriever
	history   int
	logger    *slog.Logger
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Shops     domain.ShopSource
	Store     domain.CommerceStore
	States    domain.StateStore
	Responder domain.Responder
	Bus       domain.MessageBus
	Scheduler *Scheduler
	// HistoryLimit caps the transcript messages handed to the responder.
	HistoryLimit int
	Logger       *slog.Logger
}

func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewScheduler(cfg.Logger)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Orchestrator{
		shops:     cfg.Shops,
		store:     cfg.Store,
		states:    cfg.States,
		responder: cfg.Responder,
		machine:   NewStateMachine(cfg.Store, cfg.Logger),
		bus:       cfg.Bus,
		sched:     cfg.Scheduler,
		knows:     knowledge.NewRetriever(knowledge.RetrieverConfig{Logger: cfg.Logger}),
		history:   cfg.HistoryLimit,
		logger:    cfg.Logger,
	}
}

// HandleTurn processes one customer turn end to end. The engine guarantees
// no two turns for the same conversation run concurrently; everything
// here assumes that.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn domain.InboundTurn) error {
	convID := turn.ConversationID

	shop, err := o.shops.Snapshot(ctx, turn.ShopID)
	if err != nil {
		o.logger.Error("shop snapshot unavailable", "shop", turn.ShopID, "error", err)
		o.send(ctx, turn, 0, domain.Message{Sender: domain.SenderAssistant, Text: genericApology})
		return err
	}

	history, err := o.store.Transcript(ctx, convID, o.history)
	if err != nil {
		o.logger.Warn("failed to load transcript, continuing without it", "conversation", convID, "error", err)
		history = nil
	}

	userMsg := domain.Message{Sender: domain.SenderCustomer, Text: turn.Text(), CreatedAt: time.Now()}
	if err := o.store.AppendTranscript(ctx, convID, userMsg); err != nil {
		o.logger.Warn("failed to persist customer message", "conversation", convID, "error", err)
	}

	fc, err := o.states.Get(ctx, convID)
	if err != nil {
		o.logger.Error("state store read failed", "conversation", convID, "error", err)
		o.apologize(ctx, shop, turn)
		return err
	}

	// 1. Continue an in-flight flow.
	if !fc.Idle() {
		res, err := o.machine.Advance(ctx, shop, fc, turn.Payload)
		if err != nil {
			// Fail closed: apologize, leave the state untouched so the
			// customer can retry the step.
			o.logger.Error("flow step failed", "conversation", convID, "state", fc.State, "error", err)
			o.apologize(ctx, shop, turn)
			return err
		}
		if err := o.states.Set(ctx, convID, res.Next); err != nil {
			o.logger.Error("state store write failed", "conversation", convID, "error", err)
			o.apologize(ctx, shop, turn)
			return err
		}
		if res.Handled {
			o.emit(ctx, shop, turn, res.Message, res.FixedReplies)
			return nil
		}
		// Not handled: the payload abandoned the flow; dispatch it normally.
	}

	// 2. Deterministic command table.
	cmd, err := o.dispatchCommand(ctx, shop, convID, turn.Payload)
	if err != nil {
		o.logger.Error("command dispatch failed", "conversation", convID, "payload", turn.Payload, "error", err)
		o.apologize(ctx, shop, turn)
		return err
	}
	if cmd.handled {
		if cmd.next != nil {
			if err := o.states.Set(ctx, convID, *cmd.next); err != nil {
				o.logger.Error("state store write failed", "conversation", convID, "error", err)
				o.apologize(ctx, shop, turn)
				return err
			}
		}
		o.emit(ctx, shop, turn, cmd.msg, cmd.fixed)
		return nil
	}

	// 3. Handed-over conversations get no automated replies at all.
	active, err := o.store.ConversationAIActive(ctx, convID)
	if err != nil {
		o.logger.Error("ai-active lookup failed", "conversation", convID, "error", err)
		o.apologize(ctx, shop, turn)
		return err
	}
	if !active {
		o.logger.Debug("conversation is human-handled, staying silent", "conversation", convID)
		return nil
	}

	// 4. Keyword automation.
	ruleCtx := domain.RuleContextChat
	if turn.Channel == "comments" {
		ruleCtx = domain.RuleContextComments
	}
	if rule := MatchKeywordRule(turn.Text(), shop.KeywordRules, ruleCtx); rule != nil {
		keywordHits.Inc()
		o.logger.Info("keyword rule matched", "conversation", convID, "rule", rule.Name)
		msg := &domain.Message{
			Sender:     domain.SenderAssistant,
			Text:       rule.Reply.Text,
			Attachment: rule.Reply.Attachment,
			Buttons:    rule.Reply.Buttons,
		}
		o.emit(ctx, shop, turn, msg, false)
		return nil
	}

	// 5. Generative fallback.
	return o.generativeReply(ctx, shop, turn, history)
}

func (o *Orchestrator) generativeReply(ctx context.Context, shop *domain.ShopSnapshot, turn domain.InboundTurn, history []domain.Message) error {
	req := domain.ReplyRequest{
		History:   toChatTurns(history),
		Text:      turn.Text(),
		Persona:   shop.Settings.Persona,
		Knowledge: o.knows.Compose(turn.Text(), shop.Knowledge),
	}

	res, err := o.responder.Reply(ctx, req)
	if err != nil {
		responderErrors.Inc()
		o.logger.Error("generative reply failed", "conversation", turn.ConversationID, "error", err)
		o.apologize(ctx, shop, turn)
		return err
	}

	text := res.Text
	switch {
	case res.CreateOrder != nil:
		id, err := o.store.CreateOrder(ctx, orLabel(shop.Settings.OrderIDPrefix, "ORD"), *res.CreateOrder)
		if err != nil {
			o.logger.Error("order creation failed", "conversation", turn.ConversationID, "error", err)
			o.apologize(ctx, shop, turn)
			return err
		}
		o.logger.Info("order created from directive", "conversation", turn.ConversationID, "order", id)
		text = substituteID(shop.OrderFlow.CreatedTemplate, id) + "\n\n" + text

	case res.CreateBooking != nil:
		id, err := o.store.CreateBooking(ctx, orLabel(shop.Settings.BookingIDPrefix, "BKG"), *res.CreateBooking)
		if err != nil {
			o.logger.Error("booking creation failed", "conversation", turn.ConversationID, "error", err)
			o.apologize(ctx, shop, turn)
			return err
		}
		o.logger.Info("booking created from directive", "conversation", turn.ConversationID, "booking", id)
		text = substituteID(shop.BookingFlow.CreatedTemplate, id) + "\n\n" + text
	}

	o.emit(ctx, shop, turn, textMessage(text), false)
	return nil
}

// emit attaches the persistent menu, runs the ranker unless the producing
// path supplied its own fixed quick replies (or the message is a carousel,
// which never carries quick replies), persists the assistant message, and
// schedules delivery after the shop's response delay.
func (o *Orchestrator) emit(ctx context.Context, shop *domain.ShopSnapshot, turn domain.InboundTurn, msg *domain.Message, fixed bool) {
	if msg == nil {
		return
	}
	// Rule-attached buttons stay; the persistent menu rides along after them.
	msg.Buttons = append(msg.Buttons, ResolvePersistentMenu(shop)...)
	msg.Sender = domain.SenderAssistant
	msg.CreatedAt = time.Now()

	if !fixed && !msg.IsCarousel() && len(msg.QuickReplies) == 0 {
		intent := ClassifyIntent(turn.Text(), shop.Catalog.ItemNames())
		msg.QuickReplies = RankSuggestions(shop, intent, msg.Buttons)
	}

	if err := o.store.AppendTranscript(ctx, turn.ConversationID, *msg); err != nil {
		o.logger.Warn("failed to persist assistant message", "conversation", turn.ConversationID, "error", err)
	}

	delay := time.Duration(shop.Settings.ResponseDelaySeconds) * time.Second
	o.send(ctx, turn, delay, *msg)
}

func (o *Orchestrator) send(ctx context.Context, turn domain.InboundTurn, delay time.Duration, msg domain.Message) {
	err := o.sched.Deliver(ctx, delay, func() {
		o.bus.SendOutbound(domain.OutboundMessage{
			Channel:        turn.Channel,
			ConversationID: turn.ConversationID,
			Message:        msg,
		})
	})
	if err != nil {
		o.logger.Warn("delivery dropped", "conversation", turn.ConversationID, "error", err)
	}
}

// apologize emits the shop's apology string (or a generic one) without
// touching conversation state, so the customer can simply retry.
func (o *Orchestrator) apologize(ctx context.Context, shop *domain.ShopSnapshot, turn domain.InboundTurn) {
	text := shop.Settings.ApologyMessage
	if text == "" {
		text = genericApology
	}
	msg := domain.Message{Sender: domain.SenderAssistant, Text: text, CreatedAt: time.Now()}
	if err := o.store.AppendTranscript(ctx, turn.ConversationID, msg); err != nil {
		o.logger.Warn("failed to persist apology", "conversation", turn.ConversationID, "error", err)
	}
	o.send(ctx, turn, 0, msg)
}

func toChatTurns(history []domain.Message) []domain.ChatTurn {
	turns := make([]domain.ChatTurn, 0, len(history))
	for _, m := range history {
		role := "assistant"
		if m.Sender == domain.SenderCustomer {
			role = "user"
		}
		if m.Text == "" {
			continue
		}
		turns = append(turns, domain.ChatTurn{Role: role, Content: m.Text})
	}
	return turns
}

