// Package app wires configuration, storage, the model stack, channels and
// the social poster into a running service.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"telefy/internal/agent"
	"telefy/internal/channel"
	"telefy/internal/command"
	"telefy/internal/config"
	"telefy/internal/eventbus"
	"telefy/internal/gateway"
	"telefy/internal/llm"
	"telefy/internal/memory"
	"telefy/internal/ratelimit"
	"telefy/internal/session"
	"telefy/internal/social"
	"telefy/internal/tool"
)

// App holds the assembled service.
type App struct {
	cfg     *config.Config
	bus     *eventbus.Bus
	store   memory.Store
	chanMgr *channel.Manager
	agent   *agent.Agent
	poster  *social.Poster
}

// New assembles the service from a validated config.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg:     cfg,
		bus:     eventbus.New(),
		chanMgr: channel.NewManager(),
	}

	dbPath := cfg.Memory.Path
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".telefy", "memory.db")
	}
	store, err := memory.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	a.store = store

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create provider: %w", err)
	}
	if cfg.Fallback != nil && cfg.Fallback.APIKey != "" {
		fallback, err := llm.NewProvider(*cfg.Fallback)
		if err != nil {
			log.Printf("[app] fallback provider unavailable: %v", err)
		} else {
			provider = llm.NewFallbackProvider(provider, fallback)
		}
	}

	registry := tool.NewRegistry()
	registry.Register(tool.NewWebSearchTool(cfg.Agent.SearchResults))
	for _, t := range registry.List() {
		log.Printf("[app] tool registered: %s", t.Name())
	}

	gateways := gateway.NewFactory(provider, registry, gateway.Options{
		MaxTokens:    cfg.Agent.MaxTokens,
		Temperature:  cfg.Agent.Temperature,
		MaxToolCalls: cfg.Agent.MaxToolCalls,
	})

	sessions := session.NewManager(store, gateways, provider, cfg)
	sessions.SetBus(a.bus)

	limiter := ratelimit.New(cfg.RateLimit.Max, cfg.RateLimit.Window)
	commands := command.NewHandler(sessions, cfg.Admin, a.bus)

	a.agent = agent.New(sessions, limiter, commands, a.bus, a.chanMgr)

	if cfg.Console {
		a.chanMgr.Register(channel.NewConsoleChannel())
	} else {
		a.chanMgr.Register(channel.NewTelegramChannel(channel.TelegramConfig{
			Token: cfg.Telegram.Token,
		}))
	}

	if cfg.Social.Enabled {
		transport := social.NewXClient(cfg.Social)
		a.poster = social.NewPoster(transport, store, gateways, a.bus, cfg)
	}

	a.bus.Subscribe(eventbus.TopicError, func(e eventbus.Event) {
		log.Printf("[app] error event: %v", e.Payload)
	})
	a.bus.Subscribe(eventbus.TopicStatusChange, func(e eventbus.Event) {
		log.Printf("[app] status: %v", e.Payload)
	})
	a.bus.Subscribe(eventbus.TopicSummarySaved, func(e eventbus.Event) {
		log.Printf("[app] summary saved for %v", e.Payload)
	})

	return a, nil
}

// Run starts every component and blocks until ctx is cancelled, then shuts
// down in reverse order.
func (a *App) Run(ctx context.Context) error {
	if err := a.chanMgr.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}

	a.agent.Start(ctx)

	if a.poster != nil {
		if err := a.poster.Start(ctx); err != nil {
			return fmt.Errorf("start poster: %w", err)
		}
	}

	a.bus.Publish(eventbus.TopicStatusChange, "running")
	<-ctx.Done()

	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	log.Println("[app] shutting down")

	// The run context is already cancelled; give the teardown its own.
	ctx := context.Background()

	if a.poster != nil {
		<-a.poster.Stop().Done()
	}
	a.chanMgr.StopAll(ctx)
	if err := a.store.Close(); err != nil {
		log.Printf("[app] close store: %v", err)
	}
}
