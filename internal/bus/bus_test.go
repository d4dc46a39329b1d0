package bus

import (
	"log/slog"
	"os"
	"testing"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundTurn{ConversationID: "c1", Payload: "hello"})

	select {
	case turn := <-b.Subscribe():
		if turn.ConversationID != "c1" || turn.Payload != "hello" {
			t.Fatalf("unexpected turn: %+v", turn)
		}
	default:
		t.Fatal("no turn on the bus")
	}
}

func TestPublishAfterCloseDoesNotPanic(t *testing.T) {
	b := New(10, testLogger())
	b.Close()
	b.Close() // idempotent

	b.Publish(domain.InboundTurn{ConversationID: "c1"})
}

func TestSendOutboundRoutesByChannel(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	var got []string
	b.OnOutbound("web", func(msg domain.OutboundMessage) {
		got = append(got, msg.ConversationID)
	})

	b.SendOutbound(domain.OutboundMessage{Channel: "web", ConversationID: "c1"})
	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", ConversationID: "c2"})

	if len(got) != 1 || got[0] != "c1" {
		t.Fatalf("web handler got %v, want [c1]", got)
	}
}

func TestSubscribeClosesOnBusClose(t *testing.T) {
	b := New(10, testLogger())
	inbound := b.Subscribe()
	b.Close()

	if _, ok := <-inbound; ok {
		t.Fatal("inbound channel still open after Close")
	}
}

func TestDefaultBufferSize(t *testing.T) {
	b := New(0, nil)
	defer b.Close()
	if cap(b.inbound) != 100 {
		t.Fatalf("buffer = %d, want 100", cap(b.inbound))
	}
}
