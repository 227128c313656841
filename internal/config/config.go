package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Fallback  *LLMConfig      `mapstructure:"fallback_llm"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Social    SocialConfig    `mapstructure:"social"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Console   bool            `mapstructure:"console"`
}

type AgentConfig struct {
	Personality    string  `mapstructure:"personality"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxToolCalls   int     `mapstructure:"max_tool_calls"`
	HistoryLimit   int     `mapstructure:"history_limit"`
	SummarizeEvery int     `mapstructure:"summarize_every"`
	SearchResults  int     `mapstructure:"search_results"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type MemoryConfig struct {
	Path string `mapstructure:"path"`
	// Scope selects the record keying strategy: "chat" keeps one record per
	// conversation, "global" shares a single record across all of them.
	Scope string `mapstructure:"scope"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// AdminConfig selects who may run /prompt and /broadcast.
type AdminConfig struct {
	// Policy is "chat-admins" (live admin lookup from the chat transport)
	// or "owner" (single configured owner identity).
	Policy  string `mapstructure:"policy"`
	OwnerID string `mapstructure:"owner_id"`
}

type SocialConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BearerToken  string        `mapstructure:"bearer_token"`
	UserID       string        `mapstructure:"user_id"`
	PostInterval time.Duration `mapstructure:"post_interval"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type RateLimitConfig struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

// Memory scope values.
const (
	ScopeChat   = "chat"
	ScopeGlobal = "global"
)

// Admin policy values.
const (
	PolicyChatAdmins = "chat-admins"
	PolicyOwner      = "owner"
)

// Validate checks the credentials and mode switches the process cannot run
// without. Failures here abort startup; nothing degrades silently.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required (or set TELEFY_LLM_API_KEY)")
	}
	if c.Telegram.Token == "" && !c.Console {
		return errors.New("telegram.token is required (or set TELEFY_TELEGRAM_TOKEN)")
	}
	switch c.Memory.Scope {
	case ScopeChat, ScopeGlobal:
	default:
		return fmt.Errorf("memory.scope must be %q or %q, got %q", ScopeChat, ScopeGlobal, c.Memory.Scope)
	}
	switch c.Admin.Policy {
	case PolicyChatAdmins:
	case PolicyOwner:
		if c.Admin.OwnerID == "" {
			return errors.New(`admin.owner_id is required when admin.policy is "owner"`)
		}
	default:
		return fmt.Errorf("admin.policy must be %q or %q, got %q", PolicyChatAdmins, PolicyOwner, c.Admin.Policy)
	}
	if c.Social.Enabled && c.Social.BearerToken == "" {
		return errors.New("social.bearer_token is required when social.enabled is true")
	}
	return nil
}
