package server

import (
	"net/http"
	"strings"

	"github.com/scoutgraph/scout/errors"
	"github.com/scoutgraph/scout/graph"
	"github.com/scoutgraph/scout/persist"
)

// graphSnapshot is the wire shape of the current session state
type graphSnapshot struct {
	Nodes          []graph.Node     `json:"nodes"`
	Edges          []graph.Edge     `json:"edges"`
	IdeaNodesArray []graph.IdeaTask `json:"ideaNodesArray"`
	Dirty          bool             `json:"dirty"`
}

func (s *ScoutServer) snapshot() graphSnapshot {
	nodes, edges, tasks := s.store.Snapshot()
	return graphSnapshot{Nodes: nodes, Edges: edges, IdeaNodesArray: tasks, Dirty: s.store.Dirty()}
}

// handleGraph returns the current graph state
func (s *ScoutServer) handleGraph(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "GET") {
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

// handleGraphExpand decomposes a query, builds its research tree in the
// store, and kicks the scheduler to start researching the new ideas.
func (s *ScoutServer) handleGraphExpand(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Query    string         `json:"query"`
		Position graph.Position `json:"position"`
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
		s.logger.Errorw("Decompose failed during expand", "query", req.Query, "error", err)
		writeResearchError(w, err, "Failed to generate graph data")
		return
	}

	specs := make([]graph.AreaSpec, len(areas))
	for i, a := range areas {
		specs[i] = graph.AreaSpec{
			Name:          a.Name,
			Purpose:       a.Purpose,
			SearchQueries: a.GoogleSearchIdeas,
		}
	}

	exp := graph.Expand(req.Query, specs, req.Position)
	exp.Apply(s.store)
	s.sched.Kick()

	s.logger.Infow("Graph expanded",
		"query", req.Query,
		"areas", len(areas),
		"ideas", len(exp.Tasks),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"rootNodeId": exp.RootID,
		"nodes":      exp.Nodes,
		"edges":      exp.Edges,
	})
}

// handleNodeIdea appends a single idea node under an existing parent,
// queues it for research, and kicks the scheduler. This is how
// follow-up and detail queries become nodes on the canvas.
func (s *ScoutServer) handleNodeIdea(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		ParentNodeID string         `json:"parentNodeId"`
		RootNodeID   string         `json:"rootNodeId"`
		Query        string         `json:"query"`
		Position     graph.Position `json:"position"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.ParentNodeID == "" {
		writeError(w, http.StatusBadRequest, "parentNodeId must not be empty")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	if _, ok := s.store.Node(req.ParentNodeID); !ok {
		writeError(w, http.StatusNotFound, "node "+req.ParentNodeID+" not found")
		return
	}
	rootID := req.RootNodeID
	if rootID == "" {
		rootID = req.ParentNodeID
	}

	node, edge, task := graph.NewIdeaNode(req.ParentNodeID, rootID, req.Query, req.Position)
	s.store.AddNodes(node)
	s.store.AddEdges(edge)
	s.store.AddIdeaTasks(task)
	s.sched.Kick()

	s.logger.Infow("Idea node added", "parent", req.ParentNodeID, "query", req.Query)

	writeJSON(w, http.StatusOK, map[string]any{
		"node": node,
		"edge": edge,
	})
}

// handlePosition moves one node
func (s *ScoutServer) handlePosition(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		NodeID   string         `json:"nodeId"`
		Position graph.Position `json:"position"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	if err := s.store.UpdateNodePosition(req.NodeID, req.Position); err != nil {
		if errors.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update position")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRemove deletes a node and its subtree
func (s *ScoutServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}

	var req struct {
		NodeID string `json:"nodeId"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.NodeID == "" {
		writeError(w, http.StatusBadRequest, "nodeId must not be empty")
		return
	}

	s.store.RemoveSubtree(req.NodeID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGraphSave persists the current session for a user
func (s *ScoutServer) handleGraphSave(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}
	if s.docs == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	doc := persist.NewDocument(s.store)
	if err := s.docs.Save(r.Context(), req.UserID, doc); err != nil {
		if errors.IsInvalidRequestError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Errorw("Document save failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save document")
		return
	}

	s.store.MarkClean()
	writeJSON(w, http.StatusOK, map[string]any{"lastUpdated": doc.LastUpdated})
}

// handleGraphLoad loads a user's persisted document, reconciles it
// against an optional client-cached copy by timestamp, and applies the
// winner to the store.
func (s *ScoutServer) handleGraphLoad(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}
	if s.docs == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	var req struct {
		UserID string            `json:"userId"`
		Local  *persist.Document `json:"local"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	remote, err := s.docs.Load(r.Context(), req.UserID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			if req.Local != nil {
				// Nothing persisted yet; the client cache stands alone.
				req.Local.Apply(s.store)
				writeJSON(w, http.StatusOK, req.Local)
				return
			}
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.IsInvalidRequestError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Errorw("Document load failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}

	winner := remote
	if req.Local != nil {
		winner = persist.Reconcile(*req.Local, remote)
	}
	winner.Apply(s.store)
	if req.Local == nil || remote.LastUpdated > req.Local.LastUpdated {
		// The store now mirrors what is persisted. A winning local
		// copy has never been saved, so it leaves the store dirty.
		s.store.MarkClean()
	}

	writeJSON(w, http.StatusOK, winner)
}
