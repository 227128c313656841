package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDir  = ".telefy"
	configFile = "config.json"
)

// Loader reads configuration from an optional JSON file merged with
// TELEFY_* environment variables. Environment wins over file, file wins
// over defaults.
type Loader struct {
	v        *viper.Viper
	filePath string
}

// NewLoader creates a loader for the given config file path. An empty path
// selects ~/.telefy/config.json.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, configDir, configFile)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("TELEFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &Loader{v: v, filePath: path}, nil
}

// Load reads the config. A missing file is not an error; defaults and
// environment variables still apply.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config %s: %w", l.filePath, err)
			}
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// FilePath returns the config file path this loader reads.
func (l *Loader) FilePath() string {
	return l.filePath
}

// setDefaults registers every known key so environment overrides resolve
// even without a config file.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("agent.personality", d.Agent.Personality)
	v.SetDefault("agent.max_tokens", d.Agent.MaxTokens)
	v.SetDefault("agent.temperature", d.Agent.Temperature)
	v.SetDefault("agent.max_tool_calls", d.Agent.MaxToolCalls)
	v.SetDefault("agent.history_limit", d.Agent.HistoryLimit)
	v.SetDefault("agent.summarize_every", d.Agent.SummarizeEvery)
	v.SetDefault("agent.search_results", d.Agent.SearchResults)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", d.LLM.BaseURL)

	v.SetDefault("memory.path", "")
	v.SetDefault("memory.scope", d.Memory.Scope)

	v.SetDefault("telegram.token", "")

	v.SetDefault("admin.policy", d.Admin.Policy)
	v.SetDefault("admin.owner_id", "")

	v.SetDefault("social.enabled", false)
	v.SetDefault("social.bearer_token", "")
	v.SetDefault("social.user_id", "")
	v.SetDefault("social.post_interval", d.Social.PostInterval)
	v.SetDefault("social.poll_interval", d.Social.PollInterval)

	v.SetDefault("rate_limit.max", d.RateLimit.Max)
	v.SetDefault("rate_limit.window", d.RateLimit.Window)

	v.SetDefault("console", false)
}
