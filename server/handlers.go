package server

import (
	"net/http"
	"strings"

	"github.com/scoutgraph/scout/errors"
	"github.com/scoutgraph/scout/graph"
	"github.com/scoutgraph/scout/llm"
)

// writeResearchError maps research-layer failures onto HTTP statuses.
// Malformed model output stays a generic 500; the raw model text never
// reaches the client.
func writeResearchError(w http.ResponseWriter, err error, generic string) {
	switch {
	case errors.IsInvalidRequestError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.IsNotFoundError(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, generic)
	}
}

// handleDecompose breaks a query into research areas
func (s *ScoutServer) handleDecompose(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	areas, err := s.researcher.Decompose(r.Context(), req.Query)
	if err != nil {
		s.logger.Errorw("Decompose failed", "query", req.Query, "error", err)
		writeResearchError(w, err, "Failed to generate graph data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

// handleFollowUps generates five follow-up search queries
func (s *ScoutServer) handleFollowUps(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Topic   string `json:"topic"`
		Content string `json:"content"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	queries, err := s.researcher.FollowUps(r.Context(), req.Topic, req.Content)
	if err != nil {
		s.logger.Errorw("Follow-up generation failed", "topic", req.Topic, "error", err)
		writeResearchError(w, err, "Failed to generate follow-up queries")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"google_search": queries})
}

// handleDetailQueries generates three deep-dive queries for a
// highlighted span
func (s *ScoutServer) handleDetailQueries(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		NodeContent     string `json:"nodeContent"`
		HighlightedText string `json:"highlightedText"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	queries, err := s.researcher.DetailQueries(r.Context(), req.NodeContent, req.HighlightedText)
	if err != nil {
		s.logger.Errorw("Detail query generation failed", "error", err)
		writeResearchError(w, err, "Failed to generate search queries.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"searchQueries": queries})
}

// handleResearchIdea runs the full pipeline for one idea node
func (s *ScoutServer) handleResearchIdea(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		IdeaNode struct {
			NodeID      string `json:"nodeId"`
			SearchQuery string `json:"searchQuery"`
		} `json:"ideaNode"`
		RootNodeID string `json:"rootNodeId"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.IdeaNode.NodeID == "" || strings.TrimSpace(req.IdeaNode.SearchQuery) == "" {
		writeError(w, http.StatusBadRequest, "ideaNode.nodeId and ideaNode.searchQuery are required")
		return
	}

	result, err := s.researcher.ResearchIdea(r.Context(), graph.IdeaTask{
		NodeID:      req.IdeaNode.NodeID,
		SearchQuery: req.IdeaNode.SearchQuery,
		RootNodeID:  req.RootNodeID,
	})
	if err != nil {
		s.logger.Errorw("Research idea failed", "node_id", req.IdeaNode.NodeID, "error", err)
		writeResearchError(w, err, "Failed to fetch data.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"response": result})
}

// handleResearchDetails runs the single-pass detail variant
func (s *ScoutServer) handleResearchDetails(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	result, err := s.researcher.ResearchDetails(r.Context(), req.Query)
	if err != nil {
		s.logger.Errorw("Research details failed", "query", req.Query, "error", err)
		writeResearchError(w, err, "Failed to fetch data.")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleChat forwards a conversation to the model
func (s *ScoutServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Messages []llm.Message `json:"messages"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	msg, err := s.researcher.Chat(r.Context(), req.Messages)
	if err != nil {
		s.logger.Errorw("Chat failed", "error", err)
		writeResearchError(w, err, "Failed to generate response")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

// handleSpreadsheetColumns designs a column layout
func (s *ScoutServer) handleSpreadsheetColumns(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Purpose string `json:"purpose"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Purpose) == "" {
		writeError(w, http.StatusBadRequest, "purpose must not be empty")
		return
	}

	columns, err := s.researcher.SpreadsheetColumns(r.Context(), req.Purpose)
	if err != nil {
		s.logger.Errorw("Spreadsheet column generation failed", "error", err)
		writeResearchError(w, err, "Failed to generate column definitions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"columns": columns})
}
