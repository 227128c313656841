package config

import "time"

// DefaultPersonality is the base behavioral prompt used when a conversation
// record has none of its own.
const DefaultPersonality = "You are Telefy, a friendly AI assistant participating in a Telegram chat. " +
	"Answer directly and keep replies conversational, at most 70 words."

// DefaultModel is the model used when a conversation record names none.
const DefaultModel = "x-ai/grok-3-mini-beta"

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			Personality:    DefaultPersonality,
			MaxTokens:      1024,
			Temperature:    0.7,
			MaxToolCalls:   5,
			HistoryLimit:   20,
			SummarizeEvery: 10,
			SearchResults:  3,
		},
		LLM: LLMConfig{
			Provider: "openrouter",
			Model:    DefaultModel,
			BaseURL:  "https://openrouter.ai/api/v1",
		},
		Memory: MemoryConfig{
			Scope: ScopeChat,
		},
		Admin: AdminConfig{
			Policy: PolicyChatAdmins,
		},
		Social: SocialConfig{
			PostInterval: 30 * time.Minute,
			PollInterval: 2 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Max:    3,
			Window: 10 * time.Second,
		},
	}
}
