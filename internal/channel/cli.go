package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// CLI is a terminal REPL for trying a shop's assistant locally. Quick
// replies print as a numbered list; entering a number sends that reply's
// payload as a postback.
type CLI struct {
	shopID string
	bus    domain.MessageBus
	logger *slog.Logger
	in     io.Reader
	out    io.Writer

	lastReplies []domain.QuickReply
}

type CLIChannelConfig struct {
	ShopID string
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

func NewCLI(cfg CLIChannelConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CLI{
		shopID: cfg.ShopID,
		logger: cfg.Logger,
		in:     cfg.In,
		out:    cfg.Out,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the interactive REPL and blocks until context is cancelled.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus

	bus.OnOutbound("cli", func(out domain.OutboundMessage) {
		c.render(out.Message)
		_, _ = fmt.Fprint(c.out, "You> ")
	})

	_, _ = fmt.Fprintln(c.out, "Assistant chat. Type a message, a quick-reply number, or /quit to exit.")
	_, _ = fmt.Fprint(c.out, "You> ")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			_, _ = fmt.Fprint(c.out, "You> ")
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil
		}

		payload, display := c.resolveInput(line)
		c.bus.Publish(domain.InboundTurn{
			Channel:        "cli",
			ShopID:         c.shopID,
			ConversationID: "direct",
			SenderID:       "user",
			Payload:        payload,
			DisplayText:    display,
			Timestamp:      time.Now(),
		})
	}
}

// resolveInput maps a bare number to the matching quick reply from the
// last assistant message; anything else is sent as free text.
func (c *CLI) resolveInput(line string) (payload, display string) {
	var n int
	if _, err := fmt.Sscanf(line, "%d", &n); err == nil && n >= 1 && n <= len(c.lastReplies) {
		qr := c.lastReplies[n-1]
		return qr.Payload, qr.Title
	}
	return line, ""
}

func (c *CLI) render(msg domain.Message) {
	_, _ = fmt.Fprintln(c.out, "\n--- Assistant ---")
	if msg.Text != "" {
		_, _ = fmt.Fprintln(c.out, msg.Text)
	}
	if msg.Attachment != nil {
		_, _ = fmt.Fprintf(c.out, "[%s] %s\n", msg.Attachment.Kind, msg.Attachment.URL)
	}
	for _, card := range msg.Carousel {
		_, _ = fmt.Fprintf(c.out, "* %s", card.Title)
		if card.Subtitle != "" {
			_, _ = fmt.Fprintf(c.out, " - %s", card.Subtitle)
		}
		_, _ = fmt.Fprintln(c.out)
		for _, b := range card.Buttons {
			_, _ = fmt.Fprintf(c.out, "    [%s]\n", b.Title)
		}
	}

	c.lastReplies = nil
	for i, qr := range msg.QuickReplies {
		if qr.Kind == domain.QuickReplyOpenForm {
			_, _ = fmt.Fprintf(c.out, "  %d) %s -> %s\n", i+1, qr.Title, qr.Payload)
		} else {
			_, _ = fmt.Fprintf(c.out, "  %d) %s\n", i+1, qr.Title)
		}
		c.lastReplies = append(c.lastReplies, qr)
	}
	if len(msg.Buttons) > 0 {
		var titles []string
		for _, b := range msg.Buttons {
			titles = append(titles, b.Title)
		}
		_, _ = fmt.Fprintf(c.out, "  menu: %s\n", strings.Join(titles, " | "))
	}
	_, _ = fmt.Fprintln(c.out, "-----------------")
}
