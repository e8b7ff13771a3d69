// Package llm provides the chat-completions client used for every
// summarization and generation call in the research pipeline.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/scoutgraph/scout/config"
	"github.com/scoutgraph/scout/errors"
	"github.com/scoutgraph/scout/internal/httpclient"
)

const (
	// DefaultModel is the fallback model when none is configured
	DefaultModel = "gpt-4o"

	// maxRetries bounds the retry loop around transient network failures
	maxRetries = 3
)

// Client is an OpenAI-compatible chat completions client
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	temp       float64
	maxTokens  int
	httpClient *httpclient.SaferClient
	logger     *zap.SugaredLogger
}

// NewClient creates a chat completions client from configuration.
func NewClient(cfg config.LLMConfig, logger *zap.SugaredLogger) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	temp := 0.0
	if cfg.Temperature != nil {
		temp = *cfg.Temperature
	}
	maxTokens := 0
	if cfg.MaxTokens != nil {
		maxTokens = *cfg.MaxTokens
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		temp:       temp,
		maxTokens:  maxTokens,
		httpClient: httpclient.New(120 * time.Second),
		logger:     logger,
	}
}

// Message represents a message in a chat completion
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a high-level completion request
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Messages     []Message // Used instead of SystemPrompt/UserPrompt when set (chat endpoint)
	Temperature  *float64  // Override default temperature
	MaxTokens    *int      // Override default max tokens
	Model        *string   // Override default model
}

// ChatResponse is the completion result
type ChatResponse struct {
	Content string
	Usage   Usage
}

// ChatCompletionRequest is the wire request for /chat/completions
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse is the wire response from /chat/completions
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CreateChatCompletion sends a single chat completion request
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	return &chatResp, nil
}

// Chat sends a completion request with retry on transient network failures.
// The retry bound and linear backoff match the retrieval adapters so a
// flaky provider degrades uniformly across the pipeline.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrNotConfigured, "LLM API key")
	}

	temperature := c.temp
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	maxTokens := c.maxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	model := c.model
	if req.Model != nil {
		model = *req.Model
	}

	messages := req.Messages
	if len(messages) == 0 {
		messages = []Message{{Role: "user", Content: req.UserPrompt}}
	}
	if req.SystemPrompt != "" {
		messages = append([]Message{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	c.logger.Debugw("LLM chat request",
		"model", model,
		"temperature", temperature,
		"max_tokens", maxTokens,
		"messages", len(messages),
	)

	wireReq := ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	var resp *ChatCompletionResponse
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * time.Second
			c.logger.Debugw("Retrying LLM request", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err = c.CreateChatCompletion(ctx, wireReq)
		if err == nil {
			if attempt > 0 {
				c.logger.Infow("LLM request succeeded after retries", "attempts", attempt+1, "model", model)
			}
			break
		}

		c.logger.Warnw("LLM API error",
			"attempt", attempt+1, "max_retries", maxRetries,
			"error", err, "model", model)

		if isRetryableError(err) {
			continue
		}

		return nil, errors.Wrap(err, "LLM API error")
	}

	if err != nil {
		return nil, errors.Wrapf(err, "LLM API error after %d retries", maxRetries)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response choices from LLM")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	c.logger.Debugw("LLM response",
		"content_length", len(content),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return &ChatResponse{Content: content, Usage: resp.Usage}, nil
}

// IsConfigured returns true if the client has an API key
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// SetHTTPClient overrides the HTTP client. Only for tests targeting
// httptest servers; production code keeps the SSRF-safer default.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = httpclient.WrapClient(client)
}

// SetBaseURL overrides the endpoint root. Only for tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// isRetryableError checks if an error is worth retrying (network-related)
func isRetryableError(err error) bool {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}

	if opErr, ok := err.(*net.OpError); ok {
		if errno, ok := opErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT:
				return true
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection reset by peer",
		"connection refused",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"i/o timeout",
	}
	for _, netErr := range networkErrors {
		if strings.Contains(errStr, netErr) {
			return true
		}
	}

	return false
}
