package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"telefy/internal/config"
	"telefy/internal/eventbus"
	"telefy/internal/gateway"
	"telefy/internal/llm"
	"telefy/internal/memory"
)

// GlobalKey is the record id used when the agent runs with a single shared
// memory across all chats.
const GlobalKey = "global_agent"

// SummarizeFunc folds a batch of transcript lines into an updated summary,
// using the conversation's own model.
type SummarizeFunc func(ctx context.Context, model, existing string, lines []string) (string, error)

// Manager owns the per-conversation state that lives for the life of the
// process: message counters, recent transcripts, and the lines pending
// summarization. Persistent state goes through the memory store.
type Manager struct {
	store    memory.Store
	gateways *gateway.Factory

	scope          string
	personality    string
	model          string
	summarizeEvery int
	historyCap     int

	summarize SummarizeFunc
	bus       *eventbus.Bus

	mu          sync.Mutex
	counters    map[string]int
	transcripts map[string][]llm.Message
	pending     map[string][]string
}

// NewManager builds a Manager backed by store for persistence and provider
// for summarization calls.
func NewManager(store memory.Store, gateways *gateway.Factory, provider llm.Provider, cfg *config.Config) *Manager {
	m := &Manager{
		store:          store,
		gateways:       gateways,
		scope:          cfg.Memory.Scope,
		personality:    cfg.Agent.Personality,
		model:          cfg.LLM.Model,
		summarizeEvery: cfg.Agent.SummarizeEvery,
		historyCap:     cfg.Agent.HistoryLimit,
		counters:       make(map[string]int),
		transcripts:    make(map[string][]llm.Message),
		pending:        make(map[string][]string),
	}
	if m.personality == "" {
		m.personality = config.DefaultPersonality
	}
	if m.model == "" {
		m.model = config.DefaultModel
	}
	if m.summarizeEvery <= 0 {
		m.summarizeEvery = 10
	}
	if m.historyCap <= 0 {
		m.historyCap = 20
	}
	m.summarize = providerSummarizer(provider)
	return m
}

// SetBus attaches an event bus so summary saves are observable. Optional.
func (m *Manager) SetBus(bus *eventbus.Bus) { m.bus = bus }

// Key maps a chat id to its memory record id according to the configured
// scope.
func (m *Manager) Key(chatID string) string {
	if m.scope == config.ScopeGlobal {
		return GlobalKey
	}
	return chatID
}

// Begin opens a session for the chat. It never fails: a missing record is
// created with defaults, and a store error degrades to an in-memory record
// so the conversation can still proceed.
func (m *Manager) Begin(ctx context.Context, chatID string) *Session {
	key := m.Key(chatID)

	rec, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, memory.ErrNotFound):
		rec = &memory.Record{ID: key, Personality: m.personality, Model: m.model}
		if err := m.store.Upsert(ctx, rec); err != nil {
			log.Printf("[session] create record %s: %v", key, err)
		}
	case err != nil:
		log.Printf("[session] load record %s: %v", key, err)
		rec = &memory.Record{ID: key, Personality: m.personality, Model: m.model}
	}
	if rec.Personality == "" {
		rec.Personality = m.personality
	}
	if rec.Model == "" {
		rec.Model = m.model
	}

	m.mu.Lock()
	history := make([]llm.Message, len(m.transcripts[key]))
	copy(history, m.transcripts[key])
	m.mu.Unlock()

	return &Session{
		Key:     key,
		Record:  rec,
		Gateway: m.gateways.Bind(rec.Model),
		History: history,
	}
}

// Finish folds the session's exchange into the transcript and, every
// summarizeEvery messages, rolls the pending lines into the persisted
// summary. The counter resets only when the updated record is saved, so a
// failed save retries on the next message.
func (m *Manager) Finish(ctx context.Context, sess *Session) error {
	if sess == nil || !sess.appended {
		return nil
	}
	key := sess.Key

	m.mu.Lock()
	t := append(m.transcripts[key],
		llm.Message{Role: "user", Content: sess.userText},
		llm.Message{Role: "assistant", Content: sess.assistantText},
	)
	if len(t) > m.historyCap {
		t = t[len(t)-m.historyCap:]
	}
	m.transcripts[key] = t

	m.pending[key] = append(m.pending[key],
		"user: "+sess.userText,
		"assistant: "+sess.assistantText,
	)
	m.counters[key]++
	due := m.counters[key] >= m.summarizeEvery
	lines := make([]string, len(m.pending[key]))
	copy(lines, m.pending[key])
	consumed := len(lines)
	m.mu.Unlock()

	if !due {
		return nil
	}

	summary, err := m.summarize(ctx, sess.Record.Model, sess.Record.Summary, lines)
	if err != nil {
		log.Printf("[session] summarize %s: %v", key, err)
		return err
	}

	rec := *sess.Record
	rec.Summary = summary
	if err := m.store.Upsert(ctx, &rec); err != nil {
		log.Printf("[session] save record %s: %v", key, err)
		return err
	}

	m.mu.Lock()
	m.counters[key] = 0
	if len(m.pending[key]) >= consumed {
		m.pending[key] = m.pending[key][consumed:]
	}
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(eventbus.TopicSummarySaved, key)
	}
	return nil
}

// SetCustomPrompt updates the conversation's custom prompt, preserving the
// rest of the record.
func (m *Manager) SetCustomPrompt(ctx context.Context, chatID, prompt string) error {
	key := m.Key(chatID)
	rec, err := m.store.Get(ctx, key)
	if errors.Is(err, memory.ErrNotFound) {
		rec = &memory.Record{ID: key, Personality: m.personality, Model: m.model}
	} else if err != nil {
		return err
	}
	rec.CustomPrompt = prompt
	return m.store.Upsert(ctx, rec)
}

// CustomPrompt returns the conversation's custom prompt, empty if none is
// set.
func (m *Manager) CustomPrompt(ctx context.Context, chatID string) (string, error) {
	rec, err := m.store.Get(ctx, m.Key(chatID))
	if errors.Is(err, memory.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.CustomPrompt, nil
}

// ListConversations returns the ids of every persisted conversation.
func (m *Manager) ListConversations(ctx context.Context) ([]string, error) {
	return m.store.ListIDs(ctx)
}

func providerSummarizer(provider llm.Provider) SummarizeFunc {
	return func(ctx context.Context, model, existing string, lines []string) (string, error) {
		var b strings.Builder
		b.WriteString("Summarize this conversation concisely, preserving key facts, decisions, and context:\n\n")
		if existing != "" {
			b.WriteString("Previous summary:\n")
			b.WriteString(existing)
			b.WriteString("\n\nNew messages:\n")
		}
		for _, l := range lines {
			b.WriteString(l)
			b.WriteString("\n")
		}

		resp, err := provider.Chat(ctx, &llm.ChatRequest{
			Model: model,
			Messages: []llm.Message{
				{Role: "user", Content: b.String()},
			},
			MaxTokens:    1024,
			Temperature:  0.3,
			SystemPrompt: "You are a conversation summarizer. Create a brief, factual summary.",
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}
}
