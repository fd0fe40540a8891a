package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ag-tools/internal/util"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const (
	braveEndpoint  = "https://api.search.brave.com/res/v1/web/search"
	tavilyEndpoint = "https://api.tavily.com/search"
)

// searchProvider adapts one search API to the shared request/parse shape.
type searchProvider struct {
	name    string
	label   string
	envVar  string
	request func(ctx context.Context, endpoint, apiKey, query string, count int) (*retryablehttp.Request, error)
	parse   func(body io.Reader) ([]SearchResult, error)
}

var searchProviders = map[string]searchProvider{
	ProviderBrave: {
		name:    ProviderBrave,
		label:   "Brave",
		envVar:  "BRAVE_API_KEY",
		request: braveRequest,
		parse:   parseBrave,
	},
	ProviderTavily: {
		name:    ProviderTavily,
		label:   "Tavily",
		envVar:  "TAVILY_API_KEY",
		request: tavilyRequest,
		parse:   parseTavily,
	},
}

func braveRequest(ctx context.Context, endpoint, apiKey, query string, count int) (*retryablehttp.Request, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("X-Subscription-Token", apiKey)
	return request, nil
}

func parseBrave(body io.Reader) ([]SearchResult, error) {
	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(raw.Web.Results))
	for _, item := range raw.Web.Results {
		results = append(results, SearchResult{Title: item.Title, URL: item.URL, Snippet: item.Description})
	}
	return results, nil
}

type tavilyPayload struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func tavilyRequest(ctx context.Context, endpoint, apiKey, query string, count int) (*retryablehttp.Request, error) {
	body, err := json.Marshal(tavilyPayload{APIKey: apiKey, Query: query, MaxResults: count})
	if err != nil {
		return nil, err
	}
	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	return request, nil
}

func parseTavily(body io.Reader) ([]SearchResult, error) {
	var raw struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(raw.Results))
	for _, item := range raw.Results {
		results = append(results, SearchResult{Title: item.Title, URL: item.URL, Snippet: item.Content})
	}
	return results, nil
}

func httpStatusError(label string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(util.RedactSecrets(string(snippet)))
	if detail == "" {
		return fmt.Errorf("%s search returned HTTP %d", label, resp.StatusCode)
	}
	return fmt.Errorf("%s search returned HTTP %d: %s", label, resp.StatusCode, detail)
}
