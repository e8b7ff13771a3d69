// Package scheduler drains the idea backlog, driving each waiting node
// through researching to done exactly once.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/scoutgraph/scout/graph"
	"github.com/scoutgraph/scout/research"
)

// Runner executes the research pipeline for one task
type Runner interface {
	ResearchIdea(ctx context.Context, task graph.IdeaTask) (*research.IdeaResult, error)
}

// Scheduler owns the single drain loop. Kicks are coalesced through a
// capacity-one channel and the inFlight flag keeps a second drain pass
// from starting while one is active; a task arriving mid-drain is
// picked up by the next pass, not immediately.
type Scheduler struct {
	store  *graph.Store
	runner Runner
	logger *zap.SugaredLogger

	kick     chan struct{}
	inFlight atomic.Bool

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

// New creates a Scheduler
func New(store *graph.Store, runner Runner, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		store:   store,
		runner:  runner,
		logger:  logger,
		kick:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the drain loop. It runs until Stop is called or the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopped:
				return
			case <-s.kick:
				s.drain(ctx)
			}
		}
	}()
}

// Stop shuts down the drain loop and waits for an active pass to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
	<-s.done
}

// Kick requests a drain pass. Non-blocking; kicks arriving while one is
// already pending coalesce into a single pass.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// drain processes every backlog task whose node is still waiting.
// Status is re-checked at drain time so a task picked up by an earlier
// pass is never processed twice.
func (s *Scheduler) drain(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer s.inFlight.Store(false)

	var selected []graph.IdeaTask
	for _, task := range s.store.IdeaTasks() {
		if s.store.NodeStatusOf(task.NodeID) == graph.StatusWaiting {
			selected = append(selected, task)
		}
	}
	if len(selected) == 0 {
		return
	}

	s.logger.Infow("Draining idea backlog", "tasks", len(selected))

	var wg sync.WaitGroup
	for _, task := range selected {
		status := graph.StatusResearching
		display := fmt.Sprintf("Researching on %s...", task.SearchQuery)
		if err := s.store.MergeNodeData(task.NodeID, graph.NodeUpdate{
			Status:       &status,
			DisplayLabel: &display,
		}); err != nil {
			s.logger.Warnw("Failed to mark node researching", "node_id", task.NodeID, "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.process(ctx, task)
		}()
	}
	wg.Wait()
}

// process runs one task to completion. Whatever happens, the node ends
// up done; failures degrade to visible placeholder content.
func (s *Scheduler) process(ctx context.Context, task graph.IdeaTask) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("Research task panicked", "node_id", task.NodeID, "panic", r)
			s.finish(task, research.ContentFetchFailed, nil)
		}
	}()

	result, err := s.runner.ResearchIdea(ctx, task)
	if err != nil {
		s.logger.Warnw("Research task failed", "node_id", task.NodeID, "query", task.SearchQuery, "error", err)
		s.finish(task, research.ContentFetchFailed, nil)
		return
	}

	s.finish(task, result.BulletPoints, result.Sources)
}

// finish writes the terminal state in one store update so status,
// content, sources and label change together.
func (s *Scheduler) finish(task graph.IdeaTask, content string, sources map[string]graph.Source) {
	if sources == nil {
		sources = map[string]graph.Source{}
	}
	status := graph.StatusDone
	display := task.SearchQuery
	if err := s.store.MergeNodeData(task.NodeID, graph.NodeUpdate{
		Status:       &status,
		DisplayLabel: &display,
		Content:      &content,
		Sources:      sources,
	}); err != nil {
		s.logger.Errorw("Failed to finish node", "node_id", task.NodeID, "error", err)
	}
}
