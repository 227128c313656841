package social

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"telefy/internal/config"
	"telefy/internal/eventbus"
	"telefy/internal/gateway"
	"telefy/internal/memory"
	"telefy/internal/session"
)

const postPrompt = "Write a single short social media post in your own voice. " +
	"Draw on what you have been discussing and learning lately. " +
	"No hashtags unless they genuinely fit. Output the post text only."

// Poster periodically publishes an agent-authored post and answers
// mentions. It shares the agent's memory record, so posts reflect and feed
// back into the conversation summary.
type Poster struct {
	transport Transport
	store     memory.Store
	gateways  *gateway.Factory
	bus       *eventbus.Bus
	cron      *cron.Cron

	interval    time.Duration
	personality string
	model       string
}

// NewPoster builds a poster. bus may be nil.
func NewPoster(transport Transport, store memory.Store, gateways *gateway.Factory, bus *eventbus.Bus, cfg *config.Config) *Poster {
	interval := cfg.Social.PostInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	personality := cfg.Agent.Personality
	if personality == "" {
		personality = config.DefaultPersonality
	}
	model := cfg.LLM.Model
	if model == "" {
		model = config.DefaultModel
	}
	return &Poster{
		transport:   transport,
		store:       store,
		gateways:    gateways,
		bus:         bus,
		cron:        cron.New(),
		interval:    interval,
		personality: personality,
		model:       model,
	}
}

// Start schedules periodic posting and begins answering mentions.
func (p *Poster) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, func() { p.PostOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule poster: %w", err)
	}
	p.cron.Start()

	go p.replyLoop(ctx)

	log.Printf("[social] poster started, interval %s", p.interval)
	return nil
}

// Stop halts the schedule. In-flight jobs finish before the returned
// context is done.
func (p *Poster) Stop() context.Context {
	return p.cron.Stop()
}

// PostOnce composes and publishes one post, then folds it into the shared
// memory record. Failures are logged and swallowed.
func (p *Poster) PostOnce(ctx context.Context) {
	rec := p.loadRecord(ctx)

	gw := p.gateways.Bind(rec.Model)
	text, err := gw.Generate(ctx, p.systemPrompt(rec), nil, postPrompt)
	if err != nil {
		log.Printf("[social] compose post: %v", err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		log.Println("[social] model produced an empty post, skipping")
		return
	}

	id, err := p.transport.Post(ctx, text)
	if err != nil {
		log.Printf("[social] publish post: %v", err)
		return
	}
	log.Printf("[social] published post %s: %s", id, truncate(text, 80))
	if p.bus != nil {
		p.bus.Publish(eventbus.TopicSocialPost, text)
	}

	rec.Summary = appendNote(rec.Summary, "Posted publicly: "+text)
	if err := p.store.Upsert(ctx, rec); err != nil {
		log.Printf("[social] save record after post: %v", err)
	}
}

func (p *Poster) replyLoop(ctx context.Context) {
	for m := range p.transport.Mentions(ctx) {
		p.replyOnce(ctx, m)
	}
}

func (p *Poster) replyOnce(ctx context.Context, m Mention) {
	rec := p.loadRecord(ctx)

	gw := p.gateways.Bind(rec.Model)
	input := "Someone mentioned you in this post, write a short reply:\n" + m.Text
	text, err := gw.Generate(ctx, p.systemPrompt(rec), nil, input)
	if err != nil {
		log.Printf("[social] compose reply to %s: %v", m.ID, err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if err := p.transport.Reply(ctx, text, m.ID); err != nil {
		log.Printf("[social] publish reply to %s: %v", m.ID, err)
		return
	}
	log.Printf("[social] replied to mention %s", m.ID)
}

// loadRecord fetches the shared agent record, falling back to defaults so
// posting works before any conversation has happened.
func (p *Poster) loadRecord(ctx context.Context) *memory.Record {
	rec, err := p.store.Get(ctx, session.GlobalKey)
	if err != nil {
		if !errors.Is(err, memory.ErrNotFound) {
			log.Printf("[social] load record: %v", err)
		}
		return &memory.Record{ID: session.GlobalKey, Personality: p.personality, Model: p.model}
	}
	if rec.Personality == "" {
		rec.Personality = p.personality
	}
	if rec.Model == "" {
		rec.Model = p.model
	}
	return rec
}

func (p *Poster) systemPrompt(rec *memory.Record) string {
	parts := []string{rec.Personality}
	if s := strings.TrimSpace(rec.Summary); s != "" {
		parts = append(parts, "Recent context:\n"+s)
	}
	return strings.Join(parts, "\n\n")
}

func appendNote(summary, note string) string {
	if summary == "" {
		return note
	}
	return summary + "\n" + note
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
