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

// FirecrawlClient scrapes page content through the Firecrawl API
type FirecrawlClient struct {
	apiKey     string
	baseURL    string
	httpClient *httpclient.SaferClient
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
}

// NewFirecrawlClient creates a Firecrawl scrape client
func NewFirecrawlClient(cfg config.FirecrawlConfig, limiter *rate.Limiter, logger *zap.SugaredLogger) *FirecrawlClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &FirecrawlClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpclient.New(requestTimeout),
		limiter:    limiter,
		logger:     logger,
	}
}

type firecrawlScrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type firecrawlScrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
	} `json:"data"`
}

// Scrape fetches one URL as markdown. When every attempt fails the
// error is logged and a nil page is returned; callers keep whatever
// summary text the search step already produced.
func (c *FirecrawlClient) Scrape(ctx context.Context, url string) (*ScrapedPage, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrNotConfigured, "firecrawl API key")
	}

	var page *ScrapedPage
	err := withRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		page, err = c.scrape(ctx, url)
		return err
	})
	if err != nil {
		c.logger.Warnw("Scrape failed after retries", "url", url, "error", err)
		return nil, nil
	}
	return page, nil
}

func (c *FirecrawlClient) scrape(ctx context.Context, url string) (*ScrapedPage, error) {
	body, err := json.Marshal(firecrawlScrapeRequest{
		URL:     url,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal scrape request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/scrape", bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scrape request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "scrape request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scrape response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("scrape failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed firecrawlScrapeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal scrape response")
	}
	if !parsed.Success {
		return nil, errors.Newf("scrape reported failure for %s", url)
	}

	c.logger.Debugw("Scrape completed", "url", url, "content_length", len(parsed.Data.Markdown))
	return &ScrapedPage{
		Title:    parsed.Data.Metadata.Title,
		Markdown: parsed.Data.Markdown,
	}, nil
}

// SetHTTPClient overrides the HTTP client. Only for tests.
func (c *FirecrawlClient) SetHTTPClient(client *http.Client) {
	c.httpClient = httpclient.WrapClient(client)
}
