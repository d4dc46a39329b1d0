package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
)

// Telegram bridges a shop's Telegram bot to the engine. Quick replies and
// persistent-menu buttons become inline keyboards; taps come back as
// callback queries and are republished as postback turns.
type Telegram struct {
	token  string
	shopID string

	bot    *tgbotapi.BotAPI
	bus    domain.MessageBus
	logger *slog.Logger
}

type TelegramChannelConfig struct {
	Token  string
	ShopID string
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramChannelConfig) *Telegram {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Telegram{
		token:  cfg.Token,
		shopID: cfg.ShopID,
		logger: cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	bus.OnOutbound("telegram", t.deliver)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		t.handleCallback(update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	t.logger.Info("telegram message received",
		"chat_id", chatID,
		"text_len", len(text),
	)

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	t.bus.Publish(domain.InboundTurn{
		Channel:        "telegram",
		ShopID:         t.shopID,
		ConversationID: strconv.FormatInt(chatID, 10),
		SenderID:       strconv.FormatInt(update.Message.From.ID, 10),
		Payload:        text,
		Timestamp:      time.Unix(int64(update.Message.Date), 0),
	})
}

// handleCallback republishes an inline-keyboard tap as a postback turn.
// The button title travels as DisplayText so the transcript reads naturally.
func (t *Telegram) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	ack := tgbotapi.NewCallback(cq.ID, "")
	_, _ = t.bot.Request(ack)

	display := ""
	if cq.Message.ReplyMarkup != nil {
		for _, row := range cq.Message.ReplyMarkup.InlineKeyboard {
			for _, btn := range row {
				if btn.CallbackData != nil && *btn.CallbackData == cq.Data {
					display = btn.Text
				}
			}
		}
	}

	t.bus.Publish(domain.InboundTurn{
		Channel:        "telegram",
		ShopID:         t.shopID,
		ConversationID: strconv.FormatInt(chatID, 10),
		SenderID:       strconv.FormatInt(cq.From.ID, 10),
		Payload:        cq.Data,
		DisplayText:    display,
		Timestamp:      time.Now(),
	})
}

func (t *Telegram) deliver(out domain.OutboundMessage) {
	chatID, err := strconv.ParseInt(out.ConversationID, 10, 64)
	if err != nil {
		t.logger.Error("invalid chat ID for telegram outbound", "conversation_id", out.ConversationID, "err", err)
		return
	}

	msg := out.Message
	if msg.IsCarousel() {
		t.sendCarousel(chatID, msg.Carousel)
		return
	}

	if msg.Attachment != nil && msg.Attachment.Kind == "image" && msg.Attachment.URL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(msg.Attachment.URL))
		photo.Caption = msg.Text
		if kb := keyboardFor(msg); kb != nil {
			photo.ReplyMarkup = *kb
		}
		if _, err := t.bot.Send(photo); err == nil {
			return
		}
		// Photo delivery failed, fall back to plain text below.
	}

	t.sendText(chatID, msg.Text, keyboardFor(msg))
}

// keyboardFor flattens quick replies and menu buttons into inline rows.
// Quick replies get a row of up to two per line, menu buttons one per line.
func keyboardFor(msg domain.Message) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var row []tgbotapi.InlineKeyboardButton
	for _, qr := range msg.QuickReplies {
		var btn tgbotapi.InlineKeyboardButton
		if qr.Kind == domain.QuickReplyOpenForm {
			btn = tgbotapi.NewInlineKeyboardButtonURL(qr.Title, qr.Payload)
		} else {
			btn = tgbotapi.NewInlineKeyboardButtonData(qr.Title, qr.Payload)
		}
		row = append(row, btn)
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	for _, b := range msg.Buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(b.Title, b.Payload),
		))
	}

	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// sendCarousel renders each card as its own photo-or-text message since
// Telegram has no native carousel.
func (t *Telegram) sendCarousel(chatID int64, cards []domain.CarouselCard) {
	for _, card := range cards {
		caption := card.Title
		if card.Subtitle != "" {
			caption += "\n" + card.Subtitle
		}

		var rows [][]tgbotapi.InlineKeyboardButton
		for _, b := range card.Buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(b.Title, b.Payload),
			))
		}

		if card.ImageURL != "" {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(card.ImageURL))
			photo.Caption = caption
			if len(rows) > 0 {
				photo.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
			}
			if _, err := t.bot.Send(photo); err == nil {
				continue
			}
		}

		text := tgbotapi.NewMessage(chatID, caption)
		if len(rows) > 0 {
			text.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		}
		if _, err := t.bot.Send(text); err != nil {
			t.logger.Error("telegram carousel card send failed", "err", err)
		}
	}
}

// sendText chunks long messages; the keyboard rides on the last chunk.
func (t *Telegram) sendText(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if text == "" && kb == nil {
		return
	}
	if text == "" {
		text = "…"
	}
	for len(text) > 0 {
		chunk := text
		if len(chunk) > telegramMaxMsgLen {
			cutAt := strings.LastIndex(chunk[:telegramMaxMsgLen], "\n")
			if cutAt < telegramMaxMsgLen/2 {
				cutAt = telegramMaxMsgLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		var markup *tgbotapi.InlineKeyboardMarkup
		if text == "" {
			markup = kb
		}
		t.sendChunk(chatID, chunk, markup)
	}
}

// sendChunk sends one message with retry and rate limit handling.
func (t *Telegram) sendChunk(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if kb != nil {
			msg.ReplyMarkup = *kb
		}

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", telegramMaxSendRetries+1)
	}
}
