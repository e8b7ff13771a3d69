package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scoutgraph/scout/config"
	"github.com/scoutgraph/scout/errors"
	"github.com/scoutgraph/scout/internal/httpclient"
)

// TavilyClient searches the web through the Tavily API
type TavilyClient struct {
	apiKey      string
	baseURL     string
	maxResults  int
	searchDepth string
	httpClient  *httpclient.SaferClient
	limiter     *rate.Limiter
	logger      *zap.SugaredLogger
}

// NewTavilyClient creates a Tavily search client
func NewTavilyClient(cfg config.TavilyConfig, limiter *rate.Limiter, logger *zap.SugaredLogger) *TavilyClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	depth := cfg.SearchDepth
	if depth == "" {
		depth = "advanced"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TavilyClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		maxResults:  maxResults,
		searchDepth: depth,
		httpClient:  httpclient.New(requestTimeout),
		limiter:     limiter,
		logger:      logger,
	}
}

type tavilySearchRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	IncludeRawContent bool   `json:"include_raw_content"`
	MaxResults        int    `json:"max_results"`
}

type tavilySearchResponse struct {
	Results []struct {
		Title      string `json:"title"`
		URL        string `json:"url"`
		Content    string `json:"content"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// Search queries Tavily for a search phrase. When every attempt fails
// the error is logged and an empty result list is returned; downstream
// treats that identically to a query with no matches.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrNotConfigured, "tavily API key")
	}

	var results []SearchResult
	err := withRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		results, err = c.search(ctx, query)
		return err
	})
	if err != nil {
		c.logger.Warnw("Search failed after retries", "query", query, "error", err)
		return []SearchResult{}, nil
	}
	return results, nil
}

func (c *TavilyClient) search(ctx context.Context, query string) ([]SearchResult, error) {
	body, err := json.Marshal(tavilySearchRequest{
		Query:             query,
		SearchDepth:       c.searchDepth,
		IncludeRawContent: true,
		MaxResults:        c.maxResults,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create search request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read search response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("search failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed tavilySearchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal search response")
	}

	out := make([]SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, SearchResult{
			URL:        r.URL,
			Title:      r.Title,
			Summary:    r.Content,
			RawContent: r.RawContent,
		})
	}

	c.logger.Debugw("Search completed", "query", query, "results", len(out))
	return out, nil
}

// SetHTTPClient overrides the HTTP client. Only for tests.
func (c *TavilyClient) SetHTTPClient(client *http.Client) {
	c.httpClient = httpclient.WrapClient(client)
}
