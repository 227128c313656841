package gateway

import (
	"context"
	"fmt"
	"log"

	"telefy/internal/llm"
	"telefy/internal/tool"
)

// toolFailureNote is fed back to the model when a tool call fails, so a
// broken search never aborts the turn.
const toolFailureNote = "Search tool failed. Proceeding with internal knowledge."

// Options bound every request the gateway makes.
type Options struct {
	MaxTokens    int
	Temperature  float64
	MaxToolCalls int
}

// Gateway binds a provider, a model and the tool registry into a single
// request/response surface: callers send a prompt and receive finished text,
// regardless of how many internal tool round-trips the model performed.
type Gateway struct {
	provider llm.Provider
	model    string
	tools    *tool.Registry
	opts     Options
}

// New creates a gateway bound to the given model name.
func New(provider llm.Provider, model string, tools *tool.Registry, opts Options) *Gateway {
	if model == "" {
		model = provider.DefaultModel()
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = 5
	}
	return &Gateway{
		provider: provider,
		model:    model,
		tools:    tools,
		opts:     opts,
	}
}

// Model returns the model name this gateway is bound to.
func (g *Gateway) Model() string { return g.model }

// Generate runs the request loop: send prompt, execute any tool calls the
// model issues, feed results back, repeat until the model produces plain
// text or the tool-call budget runs out.
func (g *Gateway) Generate(ctx context.Context, systemPrompt string, history []llm.Message, input string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: input})

	var defs []llm.ToolDefinition
	if g.tools != nil {
		defs = g.tools.Definitions()
	}

	toolCallCount := 0
	for {
		req := &llm.ChatRequest{
			Model:        g.model,
			Messages:     messages,
			Tools:        defs,
			MaxTokens:    g.opts.MaxTokens,
			Temperature:  g.opts.Temperature,
			SystemPrompt: systemPrompt,
		}

		resp, err := g.provider.Chat(ctx, req)
		if err != nil {
			return "", fmt.Errorf("model invocation: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		toolCallCount += len(resp.ToolCalls)
		if toolCallCount > g.opts.MaxToolCalls {
			log.Printf("[gateway] tool-call budget exhausted (%d), returning partial output", g.opts.MaxToolCalls)
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    g.runTool(ctx, tc),
				ToolCallID: tc.ID,
			})
		}
	}
}

func (g *Gateway) runTool(ctx context.Context, tc llm.ToolCall) string {
	t, err := g.tools.Get(tc.Name)
	if err != nil {
		log.Printf("[gateway] unknown tool %q requested", tc.Name)
		return toolFailureNote
	}
	res, err := t.Execute(ctx, tc.Arguments)
	if err != nil {
		log.Printf("[gateway] tool %s failed: %v", tc.Name, err)
		return toolFailureNote
	}
	if res.IsError {
		log.Printf("[gateway] tool %s returned error: %s", tc.Name, res.Error)
		return toolFailureNote
	}
	return res.Output
}

// Factory builds gateways bound to arbitrary model names, sharing one
// provider and tool registry. The session manager uses it to honor each
// conversation record's model field.
type Factory struct {
	provider llm.Provider
	tools    *tool.Registry
	opts     Options
}

// NewFactory creates a gateway factory.
func NewFactory(provider llm.Provider, tools *tool.Registry, opts Options) *Factory {
	return &Factory{provider: provider, tools: tools, opts: opts}
}

// Bind returns a gateway bound to the given model.
func (f *Factory) Bind(model string) *Gateway {
	return New(f.provider, model, f.tools, f.opts)
}
