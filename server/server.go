// Package server exposes the research pipeline and graph state over
// HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scoutgraph/scout/config"
	"github.com/scoutgraph/scout/graph"
	"github.com/scoutgraph/scout/llm"
	"github.com/scoutgraph/scout/persist"
	"github.com/scoutgraph/scout/research"
	"github.com/scoutgraph/scout/scheduler"
)

// ResearchService is the surface of the research package the handlers
// depend on
type ResearchService interface {
	Decompose(ctx context.Context, query string) ([]research.Area, error)
	FollowUps(ctx context.Context, topic, content string) ([]string, error)
	DetailQueries(ctx context.Context, nodeContent, highlightedText string) ([]string, error)
	SpreadsheetColumns(ctx context.Context, purpose string) ([]graph.SpreadsheetColumn, error)
	Chat(ctx context.Context, messages []llm.Message) (llm.Message, error)
	ResearchIdea(ctx context.Context, task graph.IdeaTask) (*research.IdeaResult, error)
	ResearchDetails(ctx context.Context, query string) (*research.DetailResult, error)
}

// ScoutServer serves the research endpoints and streams graph updates
// to connected clients
type ScoutServer struct {
	cfg        *config.Config
	store      *graph.Store
	researcher ResearchService
	sched      *scheduler.Scheduler
	docs       *persist.Store
	logger     *zap.SugaredLogger

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	clientsMu sync.Mutex
	clients   map[*wsClient]bool
}

// New creates a ScoutServer. The document store may be nil when
// persistence is disabled.
func New(cfg *config.Config, store *graph.Store, researcher ResearchService, sched *scheduler.Scheduler, docs *persist.Store, logger *zap.SugaredLogger) *ScoutServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ScoutServer{
		cfg:        cfg,
		store:      store,
		researcher: researcher,
		sched:      sched,
		docs:       docs,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		clients:    make(map[*wsClient]bool),
	}
}

// Start serves HTTP on the configured port and blocks until the server
// stops
func (s *ScoutServer) Start() error {
	port := s.cfg.Server.Port
	if port == 0 {
		port = config.DefaultServerPort
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infow("Scout server listening", "port", port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and background goroutines
func (s *ScoutServer) Shutdown(ctx context.Context) error {
	s.cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Closing the connections unwinds each client's read pump, which
	// removes it from the map and releases its send channel.
	s.clientsMu.Lock()
	for client := range s.clients {
		client.conn.Close()
	}
	s.clientsMu.Unlock()

	s.wg.Wait()
	return err
}

// handleHealth reports liveness
func (s *ScoutServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
