package domain

import "context"

// ChatTurn is one entry of the conversation history handed to the
// generative collaborator.
type ChatTurn struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}

// ReplyRequest carries everything the generative fallback needs for one turn.
type ReplyRequest struct {
	History   []ChatTurn
	Text      string
	Persona   string
	Knowledge string // knowledge sections composed for the prompt
}

// ReplyResult is the collaborator's answer: natural-language text plus at
// most one structured creation directive.
type ReplyResult struct {
	Text          string
	CreateOrder   *CreateOrderArgs
	CreateBooking *CreateBookingArgs
}

// Responder is the generative-AI fallback collaborator.
type Responder interface {
	Reply(ctx context.Context, req ReplyRequest) (*ReplyResult, error)
	Name() string
	Healthy(ctx context.Context) error
}
