// Package session binds an inbound conversation to its persisted memory
// record and a model gateway. A Session is created per message, carries the
// process-resident transcript for its conversation, and is handed back to
// the Manager when the exchange completes so the transcript and summary
// stay current.
package session

import (
	"strings"

	"telefy/internal/gateway"
	"telefy/internal/llm"
	"telefy/internal/memory"
)

// Session is the per-message view of a conversation. History is a snapshot
// of the recent transcript taken at Begin time; Append records the exchange
// produced while handling this message.
type Session struct {
	Key     string
	Record  *memory.Record
	Gateway *gateway.Gateway

	// History holds the recent transcript, oldest first.
	History []llm.Message

	userText      string
	assistantText string
	appended      bool
}

// SystemPrompt composes the instructions sent with every model call:
// the conversation's personality, any custom prompt set by an admin, and
// the rolling summary of earlier exchanges.
func (s *Session) SystemPrompt() string {
	prompt := s.Record.Personality
	if p := strings.TrimSpace(s.Record.CustomPrompt); p != "" {
		prompt += "\n" + p
	}
	if sum := strings.TrimSpace(s.Record.Summary); sum != "" {
		prompt += "\n\nContext from earlier in this conversation:\n" + sum
	}
	return prompt
}

// Append records the completed exchange. It must be called at most once;
// a session with no appended exchange is a no-op at Finish time.
func (s *Session) Append(user, assistant string) {
	s.userText = user
	s.assistantText = assistant
	s.appended = true
}
