// Package research orchestrates retrieval and summarization into the
// operations behind the research endpoints and the idea pipeline.
package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scoutgraph/scout/errors"
	"github.com/scoutgraph/scout/graph"
	"github.com/scoutgraph/scout/llm"
	"github.com/scoutgraph/scout/retrieval"
)

// User-visible terminal strings for absorbed failures. These render
// inside the affected node instead of an error state.
const (
	ContentNotFound    = "Information Not Found"
	ContentFetchFailed = "Failed to fetch data."
)

// Summarizer is the completion surface the researcher needs
type Summarizer interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Researcher runs the research operations. The answerer is optional;
// when nil or unconfigured, zero-result searches terminate with
// ContentNotFound instead of falling back to a direct answer.
type Researcher struct {
	llm      Summarizer
	searcher retrieval.Searcher
	scraper  retrieval.Scraper
	answerer retrieval.Answerer
	logger   *zap.SugaredLogger
}

// New creates a Researcher
func New(summarizer Summarizer, searcher retrieval.Searcher, scraper retrieval.Scraper, answerer retrieval.Answerer, logger *zap.SugaredLogger) *Researcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Researcher{
		llm:      summarizer,
		searcher: searcher,
		scraper:  scraper,
		answerer: answerer,
		logger:   logger,
	}
}

// Area is one thematic research cluster from query decomposition
type Area struct {
	Name              string   `json:"name"`
	Purpose           string   `json:"purpose"`
	GoogleSearchIdeas []string `json:"google_search_ideas"`
}

// Decompose breaks a query into research areas with distinct search
// queries per area
func (r *Researcher) Decompose(ctx context.Context, query string) ([]Area, error) {
	resp, err := r.llm.Chat(ctx, llm.ChatRequest{UserPrompt: decomposePrompt(query)})
	if err != nil {
		return nil, errors.Wrap(err, "decompose query")
	}

	var out struct {
		Areas []Area `json:"areas"`
	}
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return nil, errors.Wrap(err, "decompose query")
	}
	if len(out.Areas) == 0 {
		return nil, errors.Wrap(errors.ErrBadModelOutput, "no areas generated")
	}
	return out.Areas, nil
}

// FollowUps generates five follow-up search queries for a researched
// topic
func (r *Researcher) FollowUps(ctx context.Context, topic, content string) ([]string, error) {
	resp, err := r.llm.Chat(ctx, llm.ChatRequest{UserPrompt: followUpPrompt(topic, content)})
	if err != nil {
		return nil, errors.Wrap(err, "generate follow-ups")
	}

	var out struct {
		GoogleSearch []string `json:"google_search"`
	}
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return nil, errors.Wrap(err, "generate follow-ups")
	}
	return out.GoogleSearch, nil
}

// DetailQueries generates three deep-dive search queries for a
// highlighted span of node content
func (r *Researcher) DetailQueries(ctx context.Context, nodeContent, highlightedText string) ([]string, error) {
	resp, err := r.llm.Chat(ctx, llm.ChatRequest{UserPrompt: detailQueriesPrompt(nodeContent, highlightedText)})
	if err != nil {
		return nil, errors.Wrap(err, "generate detail queries")
	}

	var out struct {
		SearchQueries []string `json:"searchQueries"`
	}
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return nil, errors.Wrap(err, "generate detail queries")
	}
	return out.SearchQueries, nil
}

// SpreadsheetColumns designs a column layout for a stated purpose.
// Columns missing an id get one assigned.
func (r *Researcher) SpreadsheetColumns(ctx context.Context, purpose string) ([]graph.SpreadsheetColumn, error) {
	resp, err := r.llm.Chat(ctx, llm.ChatRequest{UserPrompt: spreadsheetColumnsPrompt(purpose)})
	if err != nil {
		return nil, errors.Wrap(err, "generate spreadsheet columns")
	}

	var out struct {
		Columns []graph.SpreadsheetColumn `json:"columns"`
	}
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return nil, errors.Wrap(err, "generate spreadsheet columns")
	}
	for i := range out.Columns {
		if out.Columns[i].ID == "" {
			out.Columns[i].ID = uuid.New().String()
		}
	}
	return out.Columns, nil
}

// Chat forwards a conversation with the fixed system instruction
// prepended
func (r *Researcher) Chat(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	if len(messages) == 0 {
		return llm.Message{}, errors.NewInvalidRequestError("messages must not be empty")
	}

	resp, err := r.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: chatSystemMessage,
		Messages:     messages,
	})
	if err != nil {
		return llm.Message{}, errors.Wrap(err, "chat")
	}
	return llm.Message{Role: "assistant", Content: resp.Content}, nil
}

// IdeaResult is the outcome of researching one idea node
type IdeaResult struct {
	NodeID       string                  `json:"nodeId"`
	BulletPoints string                  `json:"bulletPoints"`
	Sources      map[string]graph.Source `json:"sources"`
}

// ResearchIdea runs the full pipeline for one idea: search, backfill
// missing content by scraping, summarize each source concurrently, then
// synthesize one answer. Retrieval failures terminate in ContentNotFound
// rather than an error; only summarization failures of the final pass
// surface as errors, which the scheduler absorbs into ContentFetchFailed.
func (r *Researcher) ResearchIdea(ctx context.Context, task graph.IdeaTask) (*IdeaResult, error) {
	results, err := r.searcher.Search(ctx, task.SearchQuery)
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}

	if len(results) == 0 {
		return r.answerFallback(ctx, task)
	}

	sources := make(map[string]graph.Source, len(results))
	texts := make([]string, len(results))
	for i, res := range results {
		text := strings.TrimSpace(res.RawContent)
		if text == "" {
			if page, err := r.scraper.Scrape(ctx, res.URL); err == nil && page != nil {
				text = strings.TrimSpace(page.Markdown)
			}
		}
		if text == "" {
			// Deep content unavailable; the search summary still counts.
			text = strings.TrimSpace(res.Summary)
		}
		texts[i] = text
		sources[res.URL] = graph.Source{
			Title:      res.Title,
			Summary:    res.Summary,
			RawContent: text,
		}
	}

	bullets := make([]string, len(results))
	g, gctx := errgroup.WithContext(ctx)
	for i, res := range results {
		if texts[i] == "" {
			// Nothing to summarize; the source stays in the map with
			// empty content.
			continue
		}
		g.Go(func() error {
			resp, err := r.llm.Chat(gctx, llm.ChatRequest{
				UserPrompt: extractPrompt(task.SearchQuery, res.Title, res.URL, texts[i]),
			})
			if err != nil {
				r.logger.Warnw("Per-source summarization failed", "url", res.URL, "error", err)
				bullets[i] = fmt.Sprintf("- failed to fetch information for source [%s](%s)", res.Title, res.URL)
				return nil
			}
			if strings.TrimSpace(resp.Content) == ContentNotFound {
				// Excluded from synthesis; the citation survives in the
				// sources map.
				return nil
			}
			bullets[i] = resp.Content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "summarize sources")
	}

	var usable []string
	for _, b := range bullets {
		if strings.TrimSpace(b) != "" {
			usable = append(usable, b)
		}
	}
	if len(usable) == 0 {
		return &IdeaResult{NodeID: task.NodeID, BulletPoints: ContentNotFound, Sources: sources}, nil
	}

	resp, err := r.llm.Chat(ctx, llm.ChatRequest{
		UserPrompt: synthesizePrompt(task.SearchQuery, strings.Join(usable, "\n\n---\n\n")),
	})
	if err != nil {
		return nil, errors.Wrap(err, "synthesize answer")
	}

	return &IdeaResult{
		NodeID:       task.NodeID,
		BulletPoints: resp.Content,
		Sources:      sources,
	}, nil
}

// answerFallback asks the direct-answer provider when search came back
// empty. Citations become sources with empty records.
func (r *Researcher) answerFallback(ctx context.Context, task graph.IdeaTask) (*IdeaResult, error) {
	notFound := &IdeaResult{
		NodeID:       task.NodeID,
		BulletPoints: ContentNotFound,
		Sources:      map[string]graph.Source{},
	}
	if r.answerer == nil {
		return notFound, nil
	}

	answer, err := r.answerer.Answer(ctx, task.SearchQuery)
	if err != nil || answer == nil || strings.TrimSpace(answer.Content) == "" {
		if err != nil {
			r.logger.Warnw("Answer fallback failed", "query", task.SearchQuery, "error", err)
		}
		return notFound, nil
	}

	sources := make(map[string]graph.Source, len(answer.Citations))
	for _, url := range answer.Citations {
		sources[url] = graph.Source{}
	}
	return &IdeaResult{
		NodeID:       task.NodeID,
		BulletPoints: answer.Content,
		Sources:      sources,
	}, nil
}

// DetailResult is the outcome of a single-pass detail query
type DetailResult struct {
	Content string                  `json:"content"`
	Sources map[string]graph.Source `json:"sources"`
}

// ResearchDetails is the single-pass variant used for follow-up and
// detail nodes: all valid sources go into one summarization call.
func (r *Researcher) ResearchDetails(ctx context.Context, query string) (*DetailResult, error) {
	results, err := r.searcher.Search(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}

	sources := make(map[string]graph.Source)
	var formatted []string
	for _, res := range results {
		if !res.HasRawContent() {
			continue
		}
		sources[res.URL] = graph.Source{
			Title:      res.Title,
			Summary:    res.Summary,
			RawContent: res.RawContent,
		}
		formatted = append(formatted, fmt.Sprintf(
			"Title: %s\nURL: %s\nSummary: %s\nRaw Content: %s\n",
			res.Title, res.URL, res.Summary, res.RawContent,
		))
	}

	if len(formatted) == 0 {
		return &DetailResult{Content: ContentNotFound, Sources: sources}, nil
	}

	resp, err := r.llm.Chat(ctx, llm.ChatRequest{
		UserPrompt: detailsPrompt(query, strings.Join(formatted, "\n---\n")),
	})
	if err != nil {
		return nil, errors.Wrap(err, "summarize details")
	}

	return &DetailResult{Content: resp.Content, Sources: sources}, nil
}
