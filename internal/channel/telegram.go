package channel

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"
)

// TelegramChannel integrates with the Telegram Bot API.
type TelegramChannel struct {
	mu      sync.Mutex
	token   string
	bot     *tele.Bot
	handler func(InboundMessage)
	running bool
}

// TelegramConfig holds Telegram-specific configuration.
type TelegramConfig struct {
	Token string
}

// NewTelegramChannel creates a new Telegram channel.
func NewTelegramChannel(cfg TelegramConfig) *TelegramChannel {
	return &TelegramChannel{token: cfg.Token}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	pref := tele.Settings{
		Token:  t.token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}

	bot.Handle(tele.OnText, func(c tele.Context) error {
		t.mu.Lock()
		handler := t.handler
		t.mu.Unlock()
		if handler == nil {
			return nil
		}
		handler(t.convert(c))
		return nil
	})

	t.bot = bot
	t.running = true

	go bot.Start()

	// Stop long polling when the context is cancelled.
	go func() {
		<-ctx.Done()
		bot.Stop()
	}()

	return nil
}

func (t *TelegramChannel) convert(c tele.Context) InboundMessage {
	msg := InboundMessage{
		ChannelName: "telegram",
		ChatID:      strconv.FormatInt(c.Chat().ID, 10),
		ChatKind:    chatKind(c.Chat().Type),
		MessageID:   strconv.Itoa(c.Message().ID),
		SenderID:    strconv.FormatInt(c.Sender().ID, 10),
		SenderName:  c.Sender().FirstName,
		Text:        c.Text(),
		Timestamp:   time.Now(),
	}
	if reply := c.Message().ReplyTo; reply != nil && reply.Sender != nil {
		msg.ReplyTo = &ReplyRef{
			MessageID: strconv.Itoa(reply.ID),
			AuthorID:  strconv.FormatInt(reply.Sender.ID, 10),
		}
	}
	return msg
}

func chatKind(t tele.ChatType) ChatKind {
	switch t {
	case tele.ChatPrivate:
		return ChatPrivate
	case tele.ChatGroup:
		return ChatGroup
	case tele.ChatSuperGroup:
		return ChatSupergroup
	case tele.ChatChannel, tele.ChatChannelPrivate:
		return ChatChannel
	default:
		return ChatUnknown
	}
}

func (t *TelegramChannel) Stop(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		t.bot.Stop()
	}
	t.running = false
	return nil
}

func (t *TelegramChannel) Send(_ context.Context, msg OutboundMessage) error {
	t.mu.Lock()
	bot := t.bot
	t.mu.Unlock()

	if bot == nil {
		return fmt.Errorf("telegram bot not started")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}
	recipient := &tele.Chat{ID: chatID}

	var opts *tele.SendOptions
	if msg.ReplyTo != "" {
		if replyID, err := strconv.Atoi(msg.ReplyTo); err == nil {
			opts = &tele.SendOptions{
				ReplyTo: &tele.Message{ID: replyID, Chat: recipient},
			}
		}
	}

	// Split long messages (Telegram limit is 4096).
	text := msg.Text
	for len(text) > 0 {
		chunk := text
		if len(chunk) > 4000 {
			chunk = text[:4000]
			text = text[4000:]
		} else {
			text = ""
		}
		if _, err := bot.Send(recipient, chunk, opts); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		// Only the first chunk references the original message.
		opts = nil
	}

	return nil
}

// Typing shows the "typing..." chat action while a reply is generated.
func (t *TelegramChannel) Typing(_ context.Context, chatID string) error {
	t.mu.Lock()
	bot := t.bot
	t.mu.Unlock()

	if bot == nil {
		return fmt.Errorf("telegram bot not started")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}
	return bot.Notify(&tele.Chat{ID: id}, tele.Typing)
}

func (t *TelegramChannel) Admins(_ context.Context, chatID string) ([]string, error) {
	t.mu.Lock()
	bot := t.bot
	t.mu.Unlock()

	if bot == nil {
		return nil, fmt.Errorf("telegram bot not started")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	members, err := bot.AdminsOf(&tele.Chat{ID: id})
	if err != nil {
		return nil, fmt.Errorf("telegram admins: %w", err)
	}
	admins := make([]string, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			admins = append(admins, strconv.FormatInt(m.User.ID, 10))
		}
	}
	return admins, nil
}

func (t *TelegramChannel) Identity() Identity {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot == nil || t.bot.Me == nil {
		return Identity{}
	}
	return Identity{
		ID:       strconv.FormatInt(t.bot.Me.ID, 10),
		Username: t.bot.Me.Username,
	}
}

func (t *TelegramChannel) OnMessage(handler func(InboundMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *TelegramChannel) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
