// Package retrieval wraps the external search, scrape and answer
// providers behind small interfaces with uniform retry behavior.
package retrieval

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// SearchResult is one document returned by a search provider
type SearchResult struct {
	URL        string
	Title      string
	Summary    string
	RawContent string
}

// HasRawContent reports whether the result carries usable deep content.
// Whitespace-only content counts as absent.
func (r SearchResult) HasRawContent() bool {
	return strings.TrimSpace(r.RawContent) != ""
}

// ScrapedPage is the content of one scraped URL
type ScrapedPage struct {
	Title    string
	Markdown string
}

// Answer is a direct model-generated answer with its citation URLs
type Answer struct {
	Content   string
	Citations []string
}

// Searcher runs a web search. Exhausted retries surface as an empty
// result list, not an error; callers treat "no results" as a valid
// terminal state.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Scraper fetches the full content of one URL. Exhausted retries
// surface as a nil page; callers fall back to the search summary.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*ScrapedPage, error)
}

// Answerer produces a cited direct answer for a query
type Answerer interface {
	Answer(ctx context.Context, query string) (*Answer, error)
}

const (
	maxAttempts = 3
	// Outbound calls share generous per-request timeouts; providers that
	// hang are cut off by the HTTP client, not by context deadlines here.
	requestTimeout = 90 * time.Second
)

// withRetry runs fn up to maxAttempts times with linear backoff
// (attempt * 1s). The last error is returned when all attempts fail.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

// NewLimiter builds a shared outbound rate limiter from a
// requests-per-minute budget. Zero or negative disables limiting.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
}
