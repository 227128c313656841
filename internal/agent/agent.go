// Package agent runs the message pipeline: inbound messages from every
// channel pass through rate limiting, command routing and trigger
// evaluation before reaching the model, and the reply travels back through
// the channel they arrived on.
package agent

import (
	"context"
	"log"
	"strings"

	"telefy/internal/channel"
	"telefy/internal/command"
	"telefy/internal/eventbus"
	"telefy/internal/ratelimit"
	"telefy/internal/session"
	"telefy/internal/trigger"
)

const (
	rateLimitText  = "Rate limit exceeded. Please wait before sending more messages."
	emptyReplyText = "Sorry, I couldn't process that."
	errorText      = "Sorry, I encountered an error processing your message."
)

// typingNotifier is implemented by channels that can show a typing
// indicator while the model works.
type typingNotifier interface {
	Typing(ctx context.Context, chatID string) error
}

// Agent dispatches inbound messages to the model and routes replies back.
type Agent struct {
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	commands *command.Handler
	bus      *eventbus.Bus
	chanMgr  *channel.Manager
}

// New creates a new Agent.
func New(
	sessions *session.Manager,
	limiter *ratelimit.Limiter,
	commands *command.Handler,
	bus *eventbus.Bus,
	chanMgr *channel.Manager,
) *Agent {
	return &Agent{
		sessions: sessions,
		limiter:  limiter,
		commands: commands,
		bus:      bus,
		chanMgr:  chanMgr,
	}
}

// Start begins listening for inbound messages from all channels.
func (a *Agent) Start(ctx context.Context) {
	for name, running := range a.chanMgr.List() {
		if !running {
			continue
		}
		ch, ok := a.chanMgr.Get(name)
		if !ok {
			continue
		}
		ch.OnMessage(func(msg channel.InboundMessage) {
			a.Handle(ctx, ch, msg)
		})
	}

	log.Println("[agent] started and listening for messages")
}

// Handle runs one inbound message through the pipeline.
func (a *Agent) Handle(ctx context.Context, ch channel.Channel, msg channel.InboundMessage) {
	if msg.ChatID == "" || msg.SenderID == "" {
		return
	}
	if msg.SenderID == ch.Identity().ID {
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	// Observability publishes are async so a slow subscriber can never
	// stall message handling.
	a.bus.PublishAsync(eventbus.TopicInboundMessage, msg)
	log.Printf("[agent] message from %s in chat %s: %s", msg.SenderName, msg.ChatID, truncate(msg.Text, 100))

	sess := a.sessions.Begin(ctx, msg.ChatID)

	if !a.limiter.Allow(msg.ChatID) {
		log.Printf("[agent] rate limited chat %s", msg.ChatID)
		a.bus.PublishAsync(eventbus.TopicRateLimited, msg.ChatID)
		a.reply(ctx, ch, msg, rateLimitText)
		return
	}

	if sess.Gateway == nil || strings.TrimSpace(sess.Record.Personality) == "" {
		log.Printf("[agent] chat %s has no usable session, dropping message", msg.ChatID)
		return
	}

	if trigger.IsCommand(msg.Text) {
		if out, handled := a.commands.Handle(ctx, ch, msg); handled && out != "" {
			a.reply(ctx, ch, msg, out)
		}
		return
	}

	if !trigger.ShouldRespond(msg.ChatKind, msg.Text, ch.Identity(), msg.ReplyTo) {
		return
	}

	if n, ok := ch.(typingNotifier); ok {
		if err := n.Typing(ctx, msg.ChatID); err != nil {
			log.Printf("[agent] typing indicator for %s: %v", msg.ChatID, err)
		}
	}

	out, err := sess.Gateway.Generate(ctx, sess.SystemPrompt(), sess.History, msg.Text)
	if err != nil {
		log.Printf("[agent] generate for chat %s: %v", msg.ChatID, err)
		a.bus.PublishAsync(eventbus.TopicError, err)
		a.reply(ctx, ch, msg, errorText)
		return
	}
	// An empty model output still counts as a turn: the substituted
	// apology becomes the assistant's side of the exchange.
	if strings.TrimSpace(out) == "" {
		out = emptyReplyText
	}

	a.reply(ctx, ch, msg, out)

	sess.Append(msg.Text, out)
	if err := a.sessions.Finish(ctx, sess); err != nil {
		log.Printf("[agent] finish session %s: %v", sess.Key, err)
	}
}

func (a *Agent) reply(ctx context.Context, ch channel.Channel, msg channel.InboundMessage, text string) {
	out := channel.OutboundMessage{
		ChatID:  msg.ChatID,
		Text:    text,
		ReplyTo: msg.MessageID,
	}
	a.bus.PublishAsync(eventbus.TopicOutboundMessage, out)

	if err := ch.Send(ctx, out); err != nil {
		log.Printf("[agent] send to chat %s: %v", msg.ChatID, err)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
