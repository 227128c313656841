package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// WebSearchTool provides web search using the DuckDuckGo HTML endpoint.
// Results are capped so a single tool call cannot flood the prompt.
type WebSearchTool struct {
	maxResults int
	client     *http.Client
}

// NewWebSearchTool creates a web search tool returning at most maxResults hits.
func NewWebSearchTool(maxResults int) *WebSearchTool {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &WebSearchTool{
		maxResults: maxResults,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }
func (t *WebSearchTool) Description() string {
	return "Search the web for current information. Returns result titles, URLs and snippets."
}

func (t *WebSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The search query"
			}
		},
		"required": ["query"]
	}`)
}

func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return &Result{Error: "invalid arguments: " + err.Error(), IsError: true}, nil
	}
	if params.Query == "" {
		return &Result{Error: "query is required", IsError: true}, nil
	}

	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(params.Query))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return &Result{Error: "failed to create request: " + err.Error(), IsError: true}, nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Telefy/1.0)")

	resp, err := t.client.Do(req)
	if err != nil {
		return &Result{Error: "search request failed: " + err.Error(), IsError: true}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 200_000))
	if err != nil {
		return &Result{Error: "failed to read response: " + err.Error(), IsError: true}, nil
	}

	results := parseResults(string(body), t.maxResults)
	if len(results) == 0 {
		return &Result{Output: "No results found."}, nil
	}
	return &Result{Output: strings.Join(results, "\n\n")}, nil
}

var (
	anchorRe  = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	snippetRe = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

// parseResults extracts up to max title/URL/snippet triples from the
// DuckDuckGo HTML result page.
func parseResults(page string, max int) []string {
	anchors := anchorRe.FindAllStringSubmatch(page, max)
	snippets := snippetRe.FindAllStringSubmatch(page, max)

	var out []string
	for i, a := range anchors {
		title := cleanFragment(a[2])
		link := cleanLink(a[1])
		entry := fmt.Sprintf("%d. %s\n%s", i+1, title, link)
		if i < len(snippets) {
			if snip := cleanFragment(snippets[i][1]); snip != "" {
				entry += "\n" + snip
			}
		}
		out = append(out, entry)
	}
	return out
}

func cleanFragment(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(s, "")))
}

// cleanLink unwraps DuckDuckGo's redirect URLs (//duckduckgo.com/l/?uddg=...).
func cleanLink(href string) string {
	u, err := url.Parse(html.UnescapeString(href))
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return u.String()
}
