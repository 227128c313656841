package channel

import (
	"context"
	"time"
)

// ChatKind classifies the conversation a message arrived in.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
	ChatUnknown    ChatKind = "unknown"
)

// Identity is the bot's own identity on a channel.
type Identity struct {
	ID       string
	Username string
}

// ReplyRef points at the message an inbound message replied to.
type ReplyRef struct {
	MessageID string
	AuthorID  string
}

// InboundMessage is a message received from a channel.
type InboundMessage struct {
	ChannelName string
	ChatID      string
	ChatKind    ChatKind
	MessageID   string
	SenderID    string
	SenderName  string
	Text        string
	ReplyTo     *ReplyRef
	Timestamp   time.Time
}

// OutboundMessage is a message to send through a channel.
type OutboundMessage struct {
	ChatID  string
	Text    string
	ReplyTo string // optional message ID to reply to
}

// Channel is the interface for messaging integrations.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg OutboundMessage) error
	// Admins returns the user IDs administering the given chat.
	Admins(ctx context.Context, chatID string) ([]string, error)
	// Identity returns the bot's own identity on this channel.
	Identity() Identity
	OnMessage(handler func(InboundMessage))
	IsRunning() bool
}
