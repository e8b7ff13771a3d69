package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scoutgraph/scout/config"
)

func TestHasRawContent(t *testing.T) {
	assert.True(t, SearchResult{RawContent: "text"}.HasRawContent())
	assert.False(t, SearchResult{RawContent: ""}.HasRawContent())
	assert.False(t, SearchResult{RawContent: "  \n\t "}.HasRawContent())
}

func TestNewLimiterUnbounded(t *testing.T) {
	limiter := NewLimiter(0)
	require.NoError(t, limiter.Wait(context.Background()))
}

func TestTavilySearch(t *testing.T) {
	var gotReq tavilySearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "Bearer tv-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "A", "url": "https://a.example", "content": "summary a", "raw_content": "full a"},
				{"title": "B", "url": "https://b.example", "content": "summary b", "raw_content": ""},
			},
		})
	}))
	t.Cleanup(srv.Close)

	client := NewTavilyClient(config.TavilyConfig{
		APIKey: "tv-key", BaseURL: srv.URL,
	}, NewLimiter(0), zap.NewNop().Sugar())
	client.SetHTTPClient(srv.Client())

	results, err := client.Search(context.Background(), "test query")
	require.NoError(t, err)

	assert.Equal(t, "test query", gotReq.Query)
	assert.Equal(t, "advanced", gotReq.SearchDepth)
	assert.True(t, gotReq.IncludeRawContent)
	assert.Equal(t, 3, gotReq.MaxResults)

	require.Len(t, results, 2)
	assert.Equal(t, "https://a.example", results[0].URL)
	assert.Equal(t, "summary a", results[0].Summary)
	assert.True(t, results[0].HasRawContent())
	assert.False(t, results[1].HasRawContent())
}

func TestTavilySearchExhaustedRetriesReturnsEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := NewTavilyClient(config.TavilyConfig{
		APIKey: "tv-key", BaseURL: srv.URL,
	}, NewLimiter(0), zap.NewNop().Sugar())
	client.SetHTTPClient(srv.Client())

	results, err := client.Search(context.Background(), "query")
	require.NoError(t, err, "exhausted retries must not surface an error")
	assert.Empty(t, results)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTavilySearchNotConfigured(t *testing.T) {
	client := NewTavilyClient(config.TavilyConfig{}, NewLimiter(0), zap.NewNop().Sugar())
	_, err := client.Search(context.Background(), "query")
	require.Error(t, err)
}

func TestFirecrawlScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/scrape", r.URL.Path)
		require.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		var req firecrawlScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"markdown"}, req.Formats)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"markdown": "# Page\n\nbody text",
				"metadata": map[string]any{"title": "Page"},
			},
		})
	}))
	t.Cleanup(srv.Close)

	client := NewFirecrawlClient(config.FirecrawlConfig{
		APIKey: "fc-key", BaseURL: srv.URL,
	}, NewLimiter(0), zap.NewNop().Sugar())
	client.SetHTTPClient(srv.Client())

	page, err := client.Scrape(context.Background(), "https://a.example")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "Page", page.Title)
	assert.Contains(t, page.Markdown, "body text")
}

func TestFirecrawlScrapeExhaustedRetriesReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewFirecrawlClient(config.FirecrawlConfig{
		APIKey: "fc-key", BaseURL: srv.URL,
	}, NewLimiter(0), zap.NewNop().Sugar())
	client.SetHTTPClient(srv.Client())

	page, err := client.Scrape(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestPerplexityAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer px-key", r.Header.Get("Authorization"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sonar-pro", req["model"])
		json.NewEncoder(w).Encode(map[string]any{
			"citations": []string{"https://a.example", "https://b.example"},
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  cited answer  "}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	client := NewPerplexityClient(config.PerplexityConfig{
		APIKey: "px-key", BaseURL: srv.URL,
	}, NewLimiter(0), zap.NewNop().Sugar())
	client.SetHTTPClient(srv.Client())

	answer, err := client.Answer(context.Background(), "what is tea")
	require.NoError(t, err)
	assert.Equal(t, "cited answer", answer.Content)
	assert.Len(t, answer.Citations, 2)
}

func TestPerplexityAnswerFailureSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	client := NewPerplexityClient(config.PerplexityConfig{
		APIKey: "px-key", BaseURL: srv.URL,
	}, NewLimiter(0), zap.NewNop().Sugar())
	client.SetHTTPClient(srv.Client())

	_, err := client.Answer(context.Background(), "query")
	require.Error(t, err)
}

func TestWithRetryStopsOnSuccess(t *testing.T) {
	var calls int
	err := withRetry(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	err := withRetry(ctx, func() error {
		calls++
		return assertError("boom")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancelled context stops before the backoff sleep")
}

type assertError string

func (e assertError) Error() string { return string(e) }
