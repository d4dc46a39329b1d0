package domain

import "time"

// Sender identifies who authored a transcript message.
type Sender string

const (
	SenderCustomer  Sender = "customer"
	SenderAssistant Sender = "assistant"
)

// QuickReplyKind distinguishes tap-to-send buttons from form launchers.
type QuickReplyKind string

const (
	QuickReplyPostback QuickReplyKind = "postback"
	QuickReplyOpenForm QuickReplyKind = "open_form"
)

// QuickReply is a suggested next-message button rendered alongside an
// assistant message. Payload is the opaque trigger string sent back when
// the customer taps it.
type QuickReply struct {
	Title   string         `json:"title"`
	Payload string         `json:"payload"`
	Kind    QuickReplyKind `json:"kind"`
}

// Button is an action button, either attached to a message/card or part of
// the persistent menu.
type Button struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type Attachment struct {
	Kind string `json:"kind"` // image | file | video
	URL  string `json:"url"`
}

// CarouselCard is one card in a horizontally scrollable carousel.
type CarouselCard struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Message is one entry in a conversation transcript. At most one of
// {Carousel, Text+Attachment} is the primary payload; carousel messages
// carry no quick-reply list of their own.
type Message struct {
	Sender       Sender         `json:"sender"`
	Text         string         `json:"text,omitempty"`
	Attachment   *Attachment    `json:"attachment,omitempty"`
	QuickReplies []QuickReply   `json:"quick_replies,omitempty"`
	Carousel     []CarouselCard `json:"carousel,omitempty"`
	Buttons      []Button       `json:"buttons,omitempty"` // persistent menu shown with this message
	CreatedAt    time.Time      `json:"created_at,omitempty"`
}

// IsCarousel reports whether the carousel is the primary payload.
func (m *Message) IsCarousel() bool { return len(m.Carousel) > 0 }

// InboundTurn is one customer request: free text or a structured postback
// payload, optionally with a human-readable display text (the button title
// the customer tapped).
type InboundTurn struct {
	Channel        string
	ShopID         string
	ConversationID string
	SenderID       string
	Payload        string
	DisplayText    string
	Timestamp      time.Time
}

// Text returns what should appear in the transcript for this turn.
func (t *InboundTurn) Text() string {
	if t.DisplayText != "" {
		return t.DisplayText
	}
	return t.Payload
}

// OutboundMessage is one assistant message addressed to a channel.
type OutboundMessage struct {
	Channel        string
	ConversationID string
	Message        Message
}
