package ports

import (
	"context"
)

// --- Bot Message Structures ---

// SendMessageParams holds all possible options for sending a message.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string // e.g., "MarkdownV2" or "HTML"
}

// --- Bot Client Port (Outbound) ---

// BotClientPort defines the interface for *sending* messages.
type BotClientPort interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
}
