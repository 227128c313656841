// Package command routes slash commands: prompt management, broadcast and
// the small informational commands. Commands bypass the model entirely.
package command

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"telefy/internal/channel"
	"telefy/internal/config"
	"telefy/internal/eventbus"
	"telefy/internal/session"
)

// broadcastDelay spaces out broadcast sends so the transport's flood
// limits are never hit.
const broadcastDelay = 100 * time.Millisecond

const (
	startText = "Hi! I'm Telefy. Talk to me in a private chat, or mention me in a group. " +
		"Use /help to see what I can do."
	helpText = "Commands:\n" +
		"/prompt <instructions> - set a custom prompt for this chat\n" +
		"/get_prompt - show the current custom prompt\n" +
		"/start - introduction\n" +
		"/help - this message"
	promptUsageText   = "Usage: /prompt <instructions>"
	promptSavedText   = "Custom prompt updated for this chat."
	promptDeniedText  = "You are not allowed to change the prompt in this chat."
	noPromptText      = "No custom prompt is set for this chat."
	ownerOnlyText     = "This command is available to the bot owner only."
	unknownText       = "Unknown command. Use /help to see what I can do."
	broadcastUsage    = "Usage: /broadcast <message>"
	broadcastDoneText = "Broadcast complete: %d sent, %d failed."
)

// Handler dispatches slash commands against a channel.
type Handler struct {
	sessions *session.Manager
	policy   string
	ownerID  string
	bus      *eventbus.Bus
	delay    time.Duration
}

// NewHandler builds a command handler. bus may be nil.
func NewHandler(sessions *session.Manager, admin config.AdminConfig, bus *eventbus.Bus) *Handler {
	return &Handler{
		sessions: sessions,
		policy:   admin.Policy,
		ownerID:  admin.OwnerID,
		bus:      bus,
		delay:    broadcastDelay,
	}
}

// Handle executes the command in msg if it is one. It returns the reply
// text and whether the message was consumed as a command.
func (h *Handler) Handle(ctx context.Context, ch channel.Channel, msg channel.InboundMessage) (string, bool) {
	name, args := split(msg.Text, ch.Identity().Username)
	if name == "" {
		return "", false
	}

	switch name {
	case "start":
		return startText, true
	case "help":
		return helpText, true
	case "prompt":
		return h.setPrompt(ctx, ch, msg, args), true
	case "get_prompt":
		return h.getPrompt(ctx, msg), true
	case "broadcast":
		return h.broadcast(ctx, ch, msg, args), true
	default:
		return unknownText, true
	}
}

func (h *Handler) setPrompt(ctx context.Context, ch channel.Channel, msg channel.InboundMessage, args string) string {
	if !h.canManagePrompt(ctx, ch, msg) {
		return promptDeniedText
	}
	if args == "" {
		return promptUsageText
	}
	if err := h.sessions.SetCustomPrompt(ctx, msg.ChatID, args); err != nil {
		log.Printf("[command] set prompt for %s: %v", msg.ChatID, err)
		return "Sorry, I couldn't save the prompt. Please try again."
	}
	return promptSavedText
}

func (h *Handler) getPrompt(ctx context.Context, msg channel.InboundMessage) string {
	prompt, err := h.sessions.CustomPrompt(ctx, msg.ChatID)
	if err != nil {
		log.Printf("[command] get prompt for %s: %v", msg.ChatID, err)
		return "Sorry, I couldn't read the prompt. Please try again."
	}
	if prompt == "" {
		return noPromptText
	}
	return "Current custom prompt:\n" + prompt
}

// broadcast sends the text to every known conversation, sequentially. Each
// send failure is tallied and skipped; one dead chat never stops the rest.
func (h *Handler) broadcast(ctx context.Context, ch channel.Channel, msg channel.InboundMessage, args string) string {
	if !h.isOwner(msg.SenderID) {
		return ownerOnlyText
	}
	if args == "" {
		return broadcastUsage
	}

	ids, err := h.sessions.ListConversations(ctx)
	if err != nil {
		log.Printf("[command] list conversations: %v", err)
		return "Sorry, I couldn't load the conversation list."
	}

	sent, failed := 0, 0
	for _, id := range ids {
		if id == session.GlobalKey {
			continue
		}
		if err := ch.Send(ctx, channel.OutboundMessage{ChatID: id, Text: args}); err != nil {
			log.Printf("[command] broadcast to %s: %v", id, err)
			failed++
		} else {
			sent++
		}
		select {
		case <-ctx.Done():
			return fmt.Sprintf(broadcastDoneText, sent, failed)
		case <-time.After(h.delay):
		}
	}

	if h.bus != nil {
		h.bus.Publish(eventbus.TopicBroadcast, fmt.Sprintf("sent=%d failed=%d", sent, failed))
	}
	return fmt.Sprintf(broadcastDoneText, sent, failed)
}

// canManagePrompt applies the configured admin policy. Private chats are
// always manageable by their own user under the chat-admins policy.
func (h *Handler) canManagePrompt(ctx context.Context, ch channel.Channel, msg channel.InboundMessage) bool {
	switch h.policy {
	case config.PolicyOwner:
		return h.isOwner(msg.SenderID)
	default:
		if msg.ChatKind == channel.ChatPrivate {
			return true
		}
		admins, err := ch.Admins(ctx, msg.ChatID)
		if err != nil {
			log.Printf("[command] admin lookup for %s: %v", msg.ChatID, err)
			return false
		}
		for _, id := range admins {
			if id == msg.SenderID {
				return true
			}
		}
		return false
	}
}

func (h *Handler) isOwner(senderID string) bool {
	return h.ownerID != "" && senderID == h.ownerID
}

// split parses "/name@bot args" into the command name and its argument
// string. It returns an empty name for non-command text.
func split(text, botUsername string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	rest := strings.TrimPrefix(text, "/")
	name := rest
	args := ""
	if i := strings.IndexAny(rest, " \n"); i >= 0 {
		name = rest[:i]
		args = strings.TrimSpace(rest[i+1:])
	}
	// Telegram appends @botname to commands in groups.
	if i := strings.Index(name, "@"); i >= 0 {
		target := name[i+1:]
		name = name[:i]
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			return "", ""
		}
	}
	return strings.ToLower(name), args
}
