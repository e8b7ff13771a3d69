package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scoutgraph/scout/errors"
	"github.com/scoutgraph/scout/graph"
	"github.com/scoutgraph/scout/research"
)

// fakeRunner returns canned results per node and counts invocations
type fakeRunner struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string]*research.IdeaResult
	errs    map[string]error
	block   chan struct{} // when set, ResearchIdea waits on it
	observe func(task graph.IdeaTask)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		calls:   make(map[string]int),
		results: make(map[string]*research.IdeaResult),
		errs:    make(map[string]error),
	}
}

func (f *fakeRunner) ResearchIdea(_ context.Context, task graph.IdeaTask) (*research.IdeaResult, error) {
	f.mu.Lock()
	f.calls[task.NodeID]++
	f.mu.Unlock()

	if f.observe != nil {
		f.observe(task)
	}
	if f.block != nil {
		<-f.block
	}
	if err := f.errs[task.NodeID]; err != nil {
		return nil, err
	}
	if res := f.results[task.NodeID]; res != nil {
		return res, nil
	}
	return &research.IdeaResult{
		NodeID:       task.NodeID,
		BulletPoints: "researched " + task.SearchQuery,
		Sources:      map[string]graph.Source{},
	}, nil
}

func (f *fakeRunner) callCount(nodeID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[nodeID]
}

func (f *fakeRunner) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func addIdea(store *graph.Store, nodeID, query string) {
	store.AddNodes(graph.Node{
		ID:          nodeID,
		Kind:        graph.KindIdea,
		Label:       query,
		Status:      graph.StatusWaiting,
		SearchQuery: query,
	})
	store.AddIdeaTasks(graph.IdeaTask{NodeID: nodeID, SearchQuery: query, RootNodeID: "root"})
}

func waitForStatus(t *testing.T, store *graph.Store, nodeID string, want graph.NodeStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if store.NodeStatusOf(nodeID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("node %s never reached status %s (now %s)", nodeID, want, store.NodeStatusOf(nodeID))
}

func TestAllTasksReachDone(t *testing.T) {
	store := graph.NewStore()
	runner := newFakeRunner()
	addIdea(store, "a", "query a")
	addIdea(store, "b", "query b")
	runner.errs["b"] = errors.New("provider down")

	sched := New(store, runner, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	sched.Kick()
	waitForStatus(t, store, "a", graph.StatusDone)
	waitForStatus(t, store, "b", graph.StatusDone)

	nodeA, _ := store.Node("a")
	assert.Equal(t, "researched query a", nodeA.Content)
	assert.Equal(t, "query a", nodeA.DisplayLabel)

	// The failing task still terminates, with placeholder content.
	nodeB, _ := store.Node("b")
	assert.Equal(t, research.ContentFetchFailed, nodeB.Content)
}

func TestInterimResearchingStatus(t *testing.T) {
	store := graph.NewStore()
	runner := newFakeRunner()
	addIdea(store, "a", "query a")

	var observed graph.NodeStatus
	var observedLabel string
	runner.observe = func(task graph.IdeaTask) {
		n, _ := store.Node(task.NodeID)
		observed = n.Status
		observedLabel = n.DisplayLabel
	}

	sched := New(store, runner, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	sched.Kick()
	waitForStatus(t, store, "a", graph.StatusDone)

	assert.Equal(t, graph.StatusResearching, observed)
	assert.Equal(t, "Researching on query a...", observedLabel)
}

func TestDrainIdempotentWhenNothingWaiting(t *testing.T) {
	store := graph.NewStore()
	runner := newFakeRunner()
	addIdea(store, "a", "query a")

	sched := New(store, runner, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	sched.Kick()
	waitForStatus(t, store, "a", graph.StatusDone)
	require.Equal(t, 1, runner.callCount("a"))

	// Everything is done; more kicks must not re-run or write anything.
	ch, cancelSub := store.Subscribe()
	defer cancelSub()

	sched.Kick()
	sched.Kick()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, runner.callCount("a"))
	select {
	case <-ch:
		t.Fatal("drain with nothing waiting must not write to the store")
	default:
	}
}

func TestOverlappingDrainsProcessEachNodeOnce(t *testing.T) {
	store := graph.NewStore()
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	addIdea(store, "a", "query a")
	addIdea(store, "b", "query b")

	sched := New(store, runner, zap.NewNop().Sugar())
	ctx := context.Background()

	// Invoke the drain pass directly from two goroutines; the guard lets
	// only one through and the other no-ops.
	var wg sync.WaitGroup
	var started atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Add(1)
			sched.drain(ctx)
		}()
	}

	// Let both goroutines reach the guard, then release the runner.
	for started.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(runner.block)
	wg.Wait()

	assert.Equal(t, 1, runner.callCount("a"))
	assert.Equal(t, 1, runner.callCount("b"))
	assert.Equal(t, 2, runner.totalCalls())
}

func TestSameQueryTwiceRunsIndependently(t *testing.T) {
	store := graph.NewStore()
	runner := newFakeRunner()
	addIdea(store, "first", "same query")
	addIdea(store, "second", "same query")

	sched := New(store, runner, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	sched.Kick()
	waitForStatus(t, store, "first", graph.StatusDone)
	waitForStatus(t, store, "second", graph.StatusDone)

	assert.Equal(t, 1, runner.callCount("first"))
	assert.Equal(t, 1, runner.callCount("second"))
}

func TestTaskArrivingMidDrainHandledByNextPass(t *testing.T) {
	store := graph.NewStore()
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	addIdea(store, "a", "query a")

	sched := New(store, runner, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	sched.Kick()
	deadline := time.Now().Add(5 * time.Second)
	for runner.callCount("a") == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 1, runner.callCount("a"), "first task should be in flight")

	// A new idea plus a kick while the drain is active.
	addIdea(store, "b", "query b")
	sched.Kick()
	close(runner.block)

	waitForStatus(t, store, "a", graph.StatusDone)
	waitForStatus(t, store, "b", graph.StatusDone)
	assert.Equal(t, 1, runner.callCount("b"))
}

func TestPanickingRunnerStillFinishesNode(t *testing.T) {
	store := graph.NewStore()
	addIdea(store, "a", "query a")

	sched := New(store, panicRunner{}, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	sched.Kick()
	waitForStatus(t, store, "a", graph.StatusDone)

	node, _ := store.Node("a")
	assert.Equal(t, research.ContentFetchFailed, node.Content)
}

type panicRunner struct{}

func (panicRunner) ResearchIdea(context.Context, graph.IdeaTask) (*research.IdeaResult, error) {
	panic("boom")
}
