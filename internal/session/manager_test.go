package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telefy/internal/config"
	"telefy/internal/gateway"
	"telefy/internal/llm"
	"telefy/internal/memory"
)

type stubStore struct {
	mu         sync.Mutex
	records    map[string]*memory.Record
	failGet    bool
	failUpsert bool
	upserts    int
}

func newStubStore() *stubStore {
	return &stubStore{records: make(map[string]*memory.Record)}
}

func (s *stubStore) Get(_ context.Context, id string) (*memory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, errors.New("store down")
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *stubStore) Upsert(_ context.Context, rec *memory.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.failUpsert {
		return errors.New("disk full")
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *stubStore) ListIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *stubStore) Close() error { return nil }

type staticProvider struct{ reply string }

func (p *staticProvider) Chat(context.Context, *llm.ChatRequest) (*llm.Response, error) {
	return &llm.Response{Content: p.reply}, nil
}
func (p *staticProvider) Name() string         { return "static" }
func (p *staticProvider) DefaultModel() string { return "static-1" }

func newTestManager(store memory.Store, summarizeEvery int) *Manager {
	provider := &staticProvider{reply: "summary text"}
	factory := gateway.NewFactory(provider, nil, gateway.Options{})
	cfg := &config.Config{}
	cfg.Memory.Scope = config.ScopeChat
	cfg.Agent.SummarizeEvery = summarizeEvery
	cfg.Agent.HistoryLimit = 6
	return NewManager(store, factory, provider, cfg)
}

func TestBeginCreatesDefaultRecord(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, 10)

	sess := m.Begin(context.Background(), "42")
	require.NotNil(t, sess)
	assert.Equal(t, "42", sess.Key)
	assert.Equal(t, config.DefaultPersonality, sess.Record.Personality)
	assert.Equal(t, config.DefaultModel, sess.Record.Model)
	assert.Empty(t, sess.History)

	saved, err := store.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPersonality, saved.Personality)
}

func TestBeginSurvivesStoreFailure(t *testing.T) {
	store := newStubStore()
	store.failGet = true
	m := newTestManager(store, 10)

	sess := m.Begin(context.Background(), "42")
	require.NotNil(t, sess)
	assert.Equal(t, config.DefaultModel, sess.Record.Model)
	require.NotNil(t, sess.Gateway)
}

func TestFinishWithoutAppendIsNoop(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, 10)

	sess := m.Begin(context.Background(), "42")
	before := store.upserts
	require.NoError(t, m.Finish(context.Background(), sess))
	assert.Equal(t, before, store.upserts)
	assert.Empty(t, m.transcripts["42"])
}

func TestTranscriptCarriesAcrossSessions(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, 10)
	ctx := context.Background()

	sess := m.Begin(ctx, "42")
	sess.Append("hi", "hello there")
	require.NoError(t, m.Finish(ctx, sess))

	next := m.Begin(ctx, "42")
	require.Len(t, next.History, 2)
	assert.Equal(t, llm.Message{Role: "user", Content: "hi"}, next.History[0])
	assert.Equal(t, llm.Message{Role: "assistant", Content: "hello there"}, next.History[1])
}

func TestTranscriptCapped(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, 100)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		sess := m.Begin(ctx, "42")
		sess.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		require.NoError(t, m.Finish(ctx, sess))
	}

	next := m.Begin(ctx, "42")
	require.Len(t, next.History, 6)
	assert.Equal(t, "q7", next.History[0].Content)
	assert.Equal(t, "a9", next.History[5].Content)
}

func TestSummarizeAtThreshold(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, 2)
	ctx := context.Background()

	var gotExisting string
	var gotLines []string
	calls := 0
	m.summarize = func(_ context.Context, _, existing string, lines []string) (string, error) {
		calls++
		gotExisting = existing
		gotLines = lines
		return "rolled-up summary", nil
	}

	sess := m.Begin(ctx, "42")
	sess.Append("q1", "a1")
	require.NoError(t, m.Finish(ctx, sess))
	assert.Equal(t, 0, calls)

	sess = m.Begin(ctx, "42")
	sess.Append("q2", "a2")
	require.NoError(t, m.Finish(ctx, sess))
	require.Equal(t, 1, calls)
	assert.Empty(t, gotExisting)
	assert.Equal(t, []string{"user: q1", "assistant: a1", "user: q2", "assistant: a2"}, gotLines)

	saved, err := store.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "rolled-up summary", saved.Summary)

	// One message later the counter has restarted, no second summary yet.
	sess = m.Begin(ctx, "42")
	assert.Contains(t, sess.SystemPrompt(), "rolled-up summary")
	sess.Append("q3", "a3")
	require.NoError(t, m.Finish(ctx, sess))
	assert.Equal(t, 1, calls)
}

func TestSummarizeUsesRecordModel(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, 1)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &memory.Record{
		ID: "42", Personality: "p", Model: "per-chat-model",
	}))

	var gotModel string
	m.summarize = func(_ context.Context, model, _ string, _ []string) (string, error) {
		gotModel = model
		return "s", nil
	}

	sess := m.Begin(ctx, "42")
	sess.Append("q", "a")
	require.NoError(t, m.Finish(ctx, sess))
	assert.Equal(t, "per-chat-model", gotModel)
}

func TestCounterKeptOnFailedSave(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, 2)
	ctx := context.Background()

	sess := m.Begin(ctx, "42")
	store.failUpsert = true

	m.summarize = func(context.Context, string, string, []string) (string, error) {
		return "s", nil
	}

	sess.Append("q1", "a1")
	require.NoError(t, m.Finish(ctx, sess))

	sess = m.Begin(ctx, "42")
	sess.Append("q2", "a2")
	require.Error(t, m.Finish(ctx, sess))
	assert.Equal(t, 2, m.counters["42"])

	// Next message retries and succeeds.
	store.failUpsert = false
	sess = m.Begin(ctx, "42")
	sess.Append("q3", "a3")
	require.NoError(t, m.Finish(ctx, sess))
	assert.Equal(t, 0, m.counters["42"])
	assert.Empty(t, m.pending["42"])
}

func TestGlobalScopeSharesOneRecord(t *testing.T) {
	store := newStubStore()
	provider := &staticProvider{reply: "ok"}
	factory := gateway.NewFactory(provider, nil, gateway.Options{})
	cfg := &config.Config{}
	cfg.Memory.Scope = config.ScopeGlobal
	m := NewManager(store, factory, provider, cfg)

	assert.Equal(t, "global_agent", m.Key("42"))
	assert.Equal(t, "global_agent", m.Key("99"))

	sess := m.Begin(context.Background(), "42")
	assert.Equal(t, "global_agent", sess.Key)
}

func TestSetCustomPromptPreservesRecord(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, 10)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &memory.Record{
		ID: "42", Summary: "old facts", Personality: "p", Model: "m",
	}))

	require.NoError(t, m.SetCustomPrompt(ctx, "42", "speak like a pirate"))

	rec, err := store.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "speak like a pirate", rec.CustomPrompt)
	assert.Equal(t, "old facts", rec.Summary)
	assert.Equal(t, "p", rec.Personality)

	got, err := m.CustomPrompt(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "speak like a pirate", got)
}

func TestSystemPromptComposition(t *testing.T) {
	s := &Session{Record: &memory.Record{
		Personality:  "Be helpful.",
		CustomPrompt: "Answer in French.",
		Summary:      "User's name is Ana.",
	}}
	p := s.SystemPrompt()
	assert.Contains(t, p, "Be helpful.")
	assert.Contains(t, p, "Answer in French.")
	assert.Contains(t, p, "User's name is Ana.")

	bare := &Session{Record: &memory.Record{Personality: "Be helpful."}}
	assert.Equal(t, "Be helpful.", bare.SystemPrompt())
}
