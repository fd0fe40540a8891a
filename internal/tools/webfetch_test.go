package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Field Notes</title></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article>
<h1>Field Notes</h1>
<p>The river rose steadily through the night and by morning the lower meadow was under a foot of water. Volunteers moved the equipment to higher ground before the bridge closed.</p>
<p>Measurements taken at the gauge station show the crest arrived two hours earlier than the forecast predicted, which matches the pattern recorded during the spring melt last year.</p>
<p>Crews expect the water to recede over the next three days, and the trail will reopen once the boardwalk has been inspected for damage.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestWebFetchExtractsReadableText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	res := NewWebFetchTool(WebFetchOptions{}).Execute(context.Background(), map[string]any{"url": server.URL + "/notes"})

	require.False(t, res.Failed, res.Output)
	require.Contains(t, res.Output, "URL: "+server.URL+"/notes")
	require.Contains(t, res.Output, "Status: 200")
	require.Contains(t, res.Output, "Extractor: readability")
	require.Contains(t, res.Output, "gauge station")
	require.NotContains(t, res.Output, "<p>")
}

func TestWebFetchReturnsRawText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("plain body\n"))
	}))
	defer server.Close()

	res := NewWebFetchTool(WebFetchOptions{}).Execute(context.Background(), map[string]any{"url": server.URL})

	require.Contains(t, res.Output, "Extractor: raw")
	require.True(t, strings.HasSuffix(res.Output, "plain body"))
}

func TestWebFetchTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer server.Close()

	res := NewWebFetchTool(WebFetchOptions{}).Execute(context.Background(), map[string]any{"url": server.URL, "max_chars": 100})

	require.True(t, res.Truncated)
	require.Contains(t, res.Output, "(truncated, 400 more chars)")
}

func TestWebFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	res := NewWebFetchTool(WebFetchOptions{}).Execute(context.Background(), map[string]any{"url": server.URL})

	require.Equal(t, "Error: fetch returned HTTP 404", res.Output)
	require.True(t, res.Failed)
}

func TestWebFetchRejectsBadURLs(t *testing.T) {
	tool := NewWebFetchTool(WebFetchOptions{})

	for _, raw := range []string{"", "ftp://example.com/file", "file:///etc/passwd", "http://"} {
		res := tool.Execute(context.Background(), map[string]any{"url": raw})
		require.True(t, strings.HasPrefix(res.Output, "Error: URL validation failed"), raw)
		require.True(t, res.Failed, raw)
	}
}
