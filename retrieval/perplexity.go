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

// PerplexityClient fetches cited direct answers through the Perplexity
// API. It serves as the fallback when a search yields no usable results.
type PerplexityClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *httpclient.SaferClient
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
}

// NewPerplexityClient creates a Perplexity answer client
func NewPerplexityClient(cfg config.PerplexityConfig, limiter *rate.Limiter, logger *zap.SugaredLogger) *PerplexityClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.perplexity.ai"
	}
	model := cfg.Model
	if model == "" {
		model = "sonar-pro"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &PerplexityClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: httpclient.New(requestTimeout),
		limiter:    limiter,
		logger:     logger,
	}
}

// IsConfigured returns true if the client has an API key
func (c *PerplexityClient) IsConfigured() bool {
	return c.apiKey != ""
}

type perplexityRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type perplexityResponse struct {
	Citations []string `json:"citations"`
	Choices   []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Answer asks Perplexity for a cited answer to the query. Unlike search
// and scrape, exhausted retries surface as an error; the caller decides
// how to degrade.
func (c *PerplexityClient) Answer(ctx context.Context, query string) (*Answer, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrNotConfigured, "perplexity API key")
	}

	var answer *Answer
	err := withRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		answer, err = c.answer(ctx, query)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "perplexity answer failed")
	}
	return answer, nil
}

func (c *PerplexityClient) answer(ctx context.Context, query string) (*Answer, error) {
	wireReq := perplexityRequest{Model: c.model}
	wireReq.Messages = append(wireReq.Messages, struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: "user", Content: query})

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal answer request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create answer request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "answer request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read answer response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("answer failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed perplexityResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal answer response")
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("no answer choices returned")
	}

	c.logger.Debugw("Answer completed", "query", query, "citations", len(parsed.Citations))
	return &Answer{
		Content:   strings.TrimSpace(parsed.Choices[0].Message.Content),
		Citations: parsed.Citations,
	}, nil
}

// SetHTTPClient overrides the HTTP client. Only for tests.
func (c *PerplexityClient) SetHTTPClient(client *http.Client) {
	c.httpClient = httpclient.WrapClient(client)
}
