package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	ProviderBrave  = "brave"
	ProviderTavily = "tavily"

	// MaxSearchResults is the ceiling both providers document for one request.
	MaxSearchResults     = 10
	DefaultSearchResults = 5
	DefaultHTTPTimeout   = 10 * time.Second
)

// WebSearchOptions configures a WebSearchTool.
type WebSearchOptions struct {
	APIKey            string
	Provider          string
	MaxResults        int
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// SearchResult is the provider-neutral shape of one hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearchTool queries Brave or Tavily and renders the hits as text.
type WebSearchTool struct {
	apiKey     string
	provider   string
	maxResults int
	client     *retryablehttp.Client
	limiter    *rate.Limiter
	endpoints  map[string]string
	schema     Schema
	logger     *zap.Logger
}

// NewWebSearchTool constructs a web search tool. Unknown providers fall back
// to Brave.
func NewWebSearchTool(opts WebSearchOptions) *WebSearchTool {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultSearchResults
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &WebSearchTool{
		apiKey:     strings.TrimSpace(opts.APIKey),
		provider:   NormalizeProvider(opts.Provider),
		maxResults: clampInt(maxResults, 1, MaxSearchResults),
		client:     newSingleShotClient(opts.Timeout),
		limiter:    limiter,
		endpoints: map[string]string{
			ProviderBrave:  braveEndpoint,
			ProviderTavily: tavilyEndpoint,
		},
		schema: Schema{
			Properties: map[string]Property{
				"query": {Type: "string", Description: "Search query"},
				"count": {
					Type:        "integer",
					Description: "Results (1-10)",
					Minimum:     Bound(1),
					Maximum:     Bound(MaxSearchResults),
				},
			},
			Required: []string{"query"},
		},
		logger: logger,
	}
}

// newSingleShotClient builds a retryablehttp client that makes exactly one
// attempt and hands every response back untouched.
func newSingleShotClient(timeout time.Duration) *retryablehttp.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.HTTPClient.Timeout = timeout
	client.CheckRetry = func(ctx context.Context, _ *http.Response, _ error) (bool, error) {
		return false, ctx.Err()
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// NormalizeProvider lower-cases a provider name and maps anything unknown to
// ProviderBrave.
func NormalizeProvider(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := searchProviders[name]; ok {
		return name
	}
	return ProviderBrave
}

func (w *WebSearchTool) Name() string { return "web_search" }

func (w *WebSearchTool) Description() string {
	return "Search the web. Returns titles, URLs, and snippets."
}

func (w *WebSearchTool) Parameters() Schema { return w.schema }

func (w *WebSearchTool) ValidateParams(args map[string]any) []string { return w.schema.Validate(args) }

// Provider returns the normalized provider name.
func (w *WebSearchTool) Provider() string { return w.provider }

// MaxResults returns the default result count.
func (w *WebSearchTool) MaxResults() int { return w.maxResults }

// APIKey resolves the credential: the configured key, else the provider's
// environment variable. It is looked up on every call so a rotated variable
// takes effect immediately.
func (w *WebSearchTool) APIKey() string {
	if w.apiKey != "" {
		return w.apiKey
	}
	return strings.TrimSpace(os.Getenv(searchProviders[w.provider].envVar))
}

func (w *WebSearchTool) Execute(ctx context.Context, args map[string]any) (res Result) {
	start := time.Now()
	defer recoverResult(w.Name(), start, &res)

	query, _ := stringArg(args, "query")
	if strings.TrimSpace(query) == "" {
		return newResult(w.Name(), start, "Error: query is required", false, true)
	}
	provider := searchProviders[w.provider]
	apiKey := w.APIKey()
	if apiKey == "" {
		msg := fmt.Sprintf("Error: %s Search API key not configured; set tools.web.search.apiKey in the config file or export %s", provider.label, provider.envVar)
		return newResult(w.Name(), start, msg, false, true)
	}

	count := w.maxResults
	if n, ok := intArg(args, "count"); ok {
		count = n
	}
	count = clampInt(count, 1, MaxSearchResults)

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return newResult(w.Name(), start, "Error: "+err.Error(), false, true)
		}
	}

	items, err := w.search(ctx, provider, apiKey, query, count)
	if err != nil {
		w.logger.Warn("web search failed", zap.String("provider", w.provider), zap.Error(err))
		return newResult(w.Name(), start, "Error: "+err.Error(), false, true)
	}
	if len(items) > count {
		items = items[:count]
	}
	return newResult(w.Name(), start, formatSearchResults(query, items), false, false)
}

func (w *WebSearchTool) search(ctx context.Context, provider searchProvider, apiKey, query string, count int) ([]SearchResult, error) {
	request, err := provider.request(ctx, w.endpoints[provider.name], apiKey, query, count)
	if err != nil {
		return nil, err
	}
	resp, err := w.client.Do(request)
	if err != nil {
		return nil, describeTransportError(provider.label+" search", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpStatusError(provider.label, resp)
	}
	items, err := provider.parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", provider.label, err)
	}
	return items, nil
}

func describeTransportError(label string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return fmt.Errorf("%s request timeout: %w", label, err)
	}
	return fmt.Errorf("%s request failed: %w", label, err)
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

func formatSearchResults(query string, items []SearchResult) string {
	if len(items) == 0 {
		return "No results for: " + query
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Results for: %s\n", query)
	for i, item := range items {
		fmt.Fprintf(&b, "\n%d. %s\n   %s", i+1, item.Title, item.URL)
		if snippet := strings.TrimSpace(item.Snippet); snippet != "" {
			fmt.Fprintf(&b, "\n   %s", snippet)
		}
	}
	return b.String()
}
