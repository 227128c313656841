// Package trigger decides whether the agent should engage the model for a
// given inbound message. The decision is a pure function of the message and
// the bot's own identity.
package trigger

import (
	"strings"

	"telefy/internal/channel"
)

// CommandPrefix marks messages handled by the command router instead of the
// conversation pipeline.
const CommandPrefix = "/"

// IsCommand reports whether the text is a bot command.
func IsCommand(text string) bool {
	return strings.HasPrefix(text, CommandPrefix)
}

// ShouldRespond reports whether the agent should engage for this message.
//
// Private chats always trigger. Group and supergroup chats trigger only on
// an explicit @mention of the bot or a reply to one of the bot's own
// messages. Channels and anything else never trigger. Command messages
// never trigger; they are routed separately.
func ShouldRespond(kind channel.ChatKind, text string, bot channel.Identity, replyTo *channel.ReplyRef) bool {
	if IsCommand(text) {
		return false
	}

	switch kind {
	case channel.ChatPrivate:
		return true
	case channel.ChatGroup, channel.ChatSupergroup:
		if bot.Username != "" && strings.Contains(text, "@"+bot.Username) {
			return true
		}
		if replyTo != nil && bot.ID != "" && replyTo.AuthorID == bot.ID {
			return true
		}
		return false
	default:
		return false
	}
}
