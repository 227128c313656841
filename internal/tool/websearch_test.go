package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `
<div class="result">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fone">First <b>Result</b></a>
  <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fone">Snippet about the &amp; first result.</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://example.com/two">Second Result</a>
  <a class="result__snippet" href="https://example.com/two">Second snippet.</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://example.com/three">Third Result</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://example.com/four">Fourth Result</a>
</div>
`

func TestParseResultsCapped(t *testing.T) {
	results := parseResults(samplePage, 3)
	require.Len(t, results, 3)
	assert.Contains(t, results[0], "First Result")
	assert.Contains(t, results[0], "https://example.com/one")
	assert.Contains(t, results[0], "Snippet about the & first result.")
	// The cap keeps the first three anchors; snippets run out before then.
	assert.Contains(t, results[2], "Third Result")
	assert.Contains(t, results[2], "https://example.com/three")
	for _, r := range results {
		assert.NotContains(t, r, "Fourth Result")
	}
}

func TestParseResultsEmptyPage(t *testing.T) {
	assert.Empty(t, parseResults("<html><body>no results</body></html>", 3))
}

func TestCleanLinkUnwrapsRedirect(t *testing.T) {
	got := cleanLink("//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage")
	assert.Equal(t, "https://example.com/page", got)

	// Plain links pass through untouched.
	assert.Equal(t, "https://example.com/x", cleanLink("https://example.com/x"))
}

func TestRegistryDefinitions(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewWebSearchTool(3))

	defs := reg.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "web_search", defs[0].Name)

	got, err := reg.Get("web_search")
	require.NoError(t, err)
	assert.Equal(t, "web_search", got.Name())

	_, err = reg.Get("missing")
	assert.Error(t, err)
}
