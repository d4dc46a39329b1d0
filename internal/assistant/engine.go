package assistant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
	"github.com/bhonepyisone/cliick-assistant/internal/metrics"
)

const defaultConcurrency = 8

var (
	turnsTotal = metrics.Default.Counter(
		"assistant_turns_total", "Inbound turns processed", "")
	turnFailures = metrics.Default.Counter(
		"assistant_turn_failures_total", "Turns that ended in an error", "")
	turnDuration = metrics.Default.Histogram(
		"assistant_turn_duration_seconds", "Turn handling latency",
		"", []float64{0.05, 0.25, 1, 5, 30})
)

// Engine consumes inbound turns from the bus and drives the orchestrator.
// Turns for different conversations run in parallel under a bounded worker
// pool; turns for the same conversation are strictly serialized, and the
// conversation lock is held until the (possibly delayed) reply has been
// delivered, so a second turn can never interleave its output ahead of an
// in-flight delayed reply.
type Engine struct {
	orch        *Orchestrator
	bus         domain.MessageBus
	logger      *slog.Logger
	concurrency int

	convLocks sync.Map // conversationID -> *sync.Mutex
}

type EngineConfig struct {
	Orchestrator *Orchestrator
	Bus          domain.MessageBus
	Logger       *slog.Logger
	Concurrency  int // max parallel turns across conversations
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		orch:        cfg.Orchestrator,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run consumes inbound turns until the context is cancelled or the bus
// closes.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("turn engine started", "concurrency", e.concurrency)

	sem := make(chan struct{}, e.concurrency)
	inbound := e.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("turn engine stopping")
			return
		case turn, ok := <-inbound:
			if !ok {
				e.logger.Info("inbound channel closed, turn engine stopping")
				return
			}
			sem <- struct{}{}
			go func(t domain.InboundTurn) {
				defer func() { <-sem }()
				e.processTurn(ctx, t)
			}(turn)
		}
	}
}

// ProcessDirect runs one turn synchronously, for the CLI channel and tests.
func (e *Engine) ProcessDirect(ctx context.Context, turn domain.InboundTurn) error {
	lock := e.lockFor(turn.ConversationID)
	lock.Lock()
	defer lock.Unlock()
	return e.orch.HandleTurn(ctx, turn)
}

func (e *Engine) processTurn(ctx context.Context, turn domain.InboundTurn) {
	e.logger.Info("processing turn",
		"channel", turn.Channel,
		"conversation", turn.ConversationID,
		"payload_len", len(turn.Payload),
	)

	lock := e.lockFor(turn.ConversationID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	err := e.orch.HandleTurn(ctx, turn)
	turnsTotal.Inc()
	turnDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		turnFailures.Inc()
		e.logger.Error("turn failed", "conversation", turn.ConversationID, "error", err)
	}
}

func (e *Engine) lockFor(conversationID string) *sync.Mutex {
	v, _ := e.convLocks.LoadOrStore(conversationID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
