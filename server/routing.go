package server

import "net/http"

// routes builds the HTTP mux. Every handler goes through the CORS
// middleware so browser clients on configured origins can call the API.
func (s *ScoutServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/research/decompose", s.corsMiddleware(s.handleDecompose))           // Query -> research areas (POST)
	mux.HandleFunc("/research/followups", s.corsMiddleware(s.handleFollowUps))           // Topic content -> 5 follow-up queries (POST)
	mux.HandleFunc("/research/detail-queries", s.corsMiddleware(s.handleDetailQueries))  // Highlighted text -> 3 detail queries (POST)
	mux.HandleFunc("/research/idea", s.corsMiddleware(s.handleResearchIdea))             // Full pipeline for one idea node (POST)
	mux.HandleFunc("/research/details", s.corsMiddleware(s.handleResearchDetails))       // Single-pass detail research (POST)
	mux.HandleFunc("/chat", s.corsMiddleware(s.handleChat))                              // Conversation with fixed system message (POST)
	mux.HandleFunc("/spreadsheet-columns", s.corsMiddleware(s.handleSpreadsheetColumns)) // Purpose -> column layout (POST)

	mux.HandleFunc("/graph", s.corsMiddleware(s.handleGraph))                  // Current graph snapshot (GET)
	mux.HandleFunc("/graph/expand", s.corsMiddleware(s.handleGraphExpand))     // Decompose and build the research tree (POST)
	mux.HandleFunc("/graph/node/idea", s.corsMiddleware(s.handleNodeIdea))     // Append a follow-up idea node (POST)
	mux.HandleFunc("/graph/node/position", s.corsMiddleware(s.handlePosition)) // Move a node (POST)
	mux.HandleFunc("/graph/node/remove", s.corsMiddleware(s.handleRemove))     // Delete a node and its subtree (POST)
	mux.HandleFunc("/graph/save", s.corsMiddleware(s.handleGraphSave))         // Persist the session document (POST)
	mux.HandleFunc("/graph/load", s.corsMiddleware(s.handleGraphLoad))         // Load and reconcile by timestamp (POST)

	mux.HandleFunc("/ws", s.corsMiddleware(s.handleWebSocket)) // Graph update stream
	mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))

	return mux
}

// corsMiddleware adds CORS headers using the configured allowed origins
func (s *ScoutServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// originAllowed checks an Origin header against server.allowed_origins.
// An empty allowlist permits any origin.
func (s *ScoutServer) originAllowed(origin string) bool {
	allowed := s.cfg.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
