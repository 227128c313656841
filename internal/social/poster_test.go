package social

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telefy/internal/config"
	"telefy/internal/gateway"
	"telefy/internal/llm"
	"telefy/internal/memory"
	"telefy/internal/session"
)

type fakeTransport struct {
	mu       sync.Mutex
	posts    []string
	replies  map[string]string
	failPost bool
	mentions chan Mention
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		replies:  make(map[string]string),
		mentions: make(chan Mention),
	}
}

func (t *fakeTransport) Post(_ context.Context, text string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failPost {
		return "", errors.New("rate limited")
	}
	t.posts = append(t.posts, text)
	return "post-1", nil
}

func (t *fakeTransport) Reply(_ context.Context, text, postID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[postID] = text
	return nil
}

func (t *fakeTransport) Mentions(context.Context) <-chan Mention {
	return t.mentions
}

type fixedStore struct {
	mu      sync.Mutex
	records map[string]*memory.Record
}

func newFixedStore() *fixedStore {
	return &fixedStore{records: make(map[string]*memory.Record)}
}

func (s *fixedStore) Get(_ context.Context, id string) (*memory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fixedStore) Upsert(_ context.Context, rec *memory.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *fixedStore) ListIDs(context.Context) ([]string, error) { return nil, nil }
func (s *fixedStore) Close() error                              { return nil }

type fixedProvider struct{ reply string }

func (p fixedProvider) Chat(context.Context, *llm.ChatRequest) (*llm.Response, error) {
	return &llm.Response{Content: p.reply}, nil
}
func (p fixedProvider) Name() string         { return "fixed" }
func (p fixedProvider) DefaultModel() string { return "fixed-1" }

func newTestPoster(transport Transport, store memory.Store, reply string) *Poster {
	provider := fixedProvider{reply: reply}
	factory := gateway.NewFactory(provider, nil, gateway.Options{})
	cfg := &config.Config{}
	return NewPoster(transport, store, factory, nil, cfg)
}

func TestPostOnce(t *testing.T) {
	transport := newFakeTransport()
	store := newFixedStore()
	p := newTestPoster(transport, store, "thinking about goroutines today")

	p.PostOnce(context.Background())

	require.Len(t, transport.posts, 1)
	assert.Equal(t, "thinking about goroutines today", transport.posts[0])

	rec, err := store.Get(context.Background(), session.GlobalKey)
	require.NoError(t, err)
	assert.Contains(t, rec.Summary, "thinking about goroutines today")
}

func TestPostOnceAccumulatesSummary(t *testing.T) {
	transport := newFakeTransport()
	store := newFixedStore()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, &memory.Record{
		ID: session.GlobalKey, Summary: "earlier context", Personality: "p", Model: "m",
	}))

	p := newTestPoster(transport, store, "fresh post")
	p.PostOnce(ctx)

	rec, err := store.Get(ctx, session.GlobalKey)
	require.NoError(t, err)
	assert.Contains(t, rec.Summary, "earlier context")
	assert.Contains(t, rec.Summary, "fresh post")
}

func TestPostFailureLeavesRecordUntouched(t *testing.T) {
	transport := newFakeTransport()
	transport.failPost = true
	store := newFixedStore()

	p := newTestPoster(transport, store, "never published")
	p.PostOnce(context.Background())

	_, err := store.Get(context.Background(), session.GlobalKey)
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestEmptyPostSkipped(t *testing.T) {
	transport := newFakeTransport()
	store := newFixedStore()

	p := newTestPoster(transport, store, "   ")
	p.PostOnce(context.Background())

	assert.Empty(t, transport.posts)
}

func TestMentionAnswered(t *testing.T) {
	transport := newFakeTransport()
	store := newFixedStore()
	p := newTestPoster(transport, store, "thanks for the tag!")

	p.replyOnce(context.Background(), Mention{ID: "m-7", AuthorID: "55", Text: "@telefy hi"})

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, "thanks for the tag!", transport.replies["m-7"])
}
