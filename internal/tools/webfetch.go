package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ag-tools/internal/util"

	readability "github.com/go-shiori/go-readability"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	DefaultFetchMaxChars = 50000
	maxFetchBodyBytes    = 5 << 20
	fetchUserAgent       = "Mozilla/5.0 (compatible; ag-tools/1.0)"
)

// WebFetchOptions configures a WebFetchTool.
type WebFetchOptions struct {
	MaxChars int
	Timeout  time.Duration
	Logger   *zap.Logger
}

// WebFetchTool downloads a page and returns its readable text.
type WebFetchTool struct {
	maxChars int
	client   *retryablehttp.Client
	schema   Schema
	logger   *zap.Logger
}

// NewWebFetchTool constructs a fetch tool.
func NewWebFetchTool(opts WebFetchOptions) *WebFetchTool {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultFetchMaxChars
	}
	return &WebFetchTool{
		maxChars: maxChars,
		client:   newSingleShotClient(opts.Timeout),
		schema: Schema{
			Properties: map[string]Property{
				"url":       {Type: "string", Description: "URL to fetch", MinLength: Length(1)},
				"max_chars": {Type: "integer", Description: "Maximum characters to return", Minimum: Bound(100)},
			},
			Required: []string{"url"},
		},
		logger: logger,
	}
}

func (f *WebFetchTool) Name() string { return "web_fetch" }

func (f *WebFetchTool) Description() string {
	return "Fetch a URL and extract its readable text content."
}

func (f *WebFetchTool) Parameters() Schema { return f.schema }

func (f *WebFetchTool) ValidateParams(args map[string]any) []string { return f.schema.Validate(args) }

func (f *WebFetchTool) Execute(ctx context.Context, args map[string]any) (res Result) {
	start := time.Now()
	defer recoverResult(f.Name(), start, &res)

	rawURL, _ := stringArg(args, "url")
	target, err := validateFetchURL(rawURL)
	if err != nil {
		return newResult(f.Name(), start, "Error: URL validation failed: "+err.Error(), false, true)
	}
	maxChars := f.maxChars
	if n, ok := intArg(args, "max_chars"); ok && n >= 100 {
		maxChars = n
	}

	page, err := f.fetch(ctx, target)
	if err != nil {
		f.logger.Warn("web fetch failed", zap.String("url", target.Redacted()), zap.Error(err))
		return newResult(f.Name(), start, "Error: "+err.Error(), false, true)
	}
	text, truncated := page.render(maxChars)
	return newResult(f.Name(), start, text, truncated, false)
}

type fetchedPage struct {
	finalURL  string
	status    int
	extractor string
	title     string
	text      string
}

func (p fetchedPage) render(maxChars int) (string, bool) {
	body := strings.TrimSpace(p.text)
	if p.title != "" {
		body = "# " + p.title + "\n\n" + body
	}
	if body == "" {
		body = "(empty page)"
	}
	body, truncated := util.TruncateChars(body, maxChars)
	header := fmt.Sprintf("URL: %s\nStatus: %d\nExtractor: %s\n\n", p.finalURL, p.status, p.extractor)
	return header + body, truncated
}

func (f *WebFetchTool) fetch(ctx context.Context, target *url.URL) (fetchedPage, error) {
	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fetchedPage{}, err
	}
	request.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(request)
	if err != nil {
		return fetchedPage{}, describeTransportError("fetch", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fetchedPage{}, fmt.Errorf("fetch returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodyBytes))
	if err != nil {
		return fetchedPage{}, fmt.Errorf("read body: %w", err)
	}
	page := fetchedPage{finalURL: resp.Request.URL.String(), status: resp.StatusCode, extractor: "raw", text: string(body)}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "text/html") || looksLikeHTML(body) {
		article, err := readability.FromReader(bytes.NewReader(body), resp.Request.URL)
		if err != nil {
			return fetchedPage{}, fmt.Errorf("readability extract: %w", err)
		}
		page.extractor = "readability"
		page.title = strings.TrimSpace(article.Title)
		page.text = article.TextContent
	}
	return page, nil
}

func validateFetchURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("only http/https allowed, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("missing domain")
	}
	return parsed, nil
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 256)]))
	return bytes.HasPrefix(head, []byte("<!doctype")) || bytes.HasPrefix(head, []byte("<html"))
}
