package graph

import (
	"sync"

	"github.com/scoutgraph/scout/errors"
)

// Store is the single shared mutable model of a research session. All
// mutations replace the affected slice rather than editing it in place,
// so snapshots handed to observers stay stable after later writes.
//
// Stores are plain values created per session and injected into the
// scheduler and server; nothing here is package-global.
type Store struct {
	mu    sync.RWMutex
	nodes []Node
	edges []Edge
	tasks []IdeaTask
	dirty bool
	subs  map[chan struct{}]struct{}
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{subs: make(map[chan struct{}]struct{})}
}

// Snapshot returns copies of the current nodes, edges and idea backlog
func (s *Store) Snapshot() ([]Node, []Edge, []IdeaTask) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneNodes(s.nodes), append([]Edge(nil), s.edges...), append([]IdeaTask(nil), s.tasks...)
}

// Node returns a copy of the node with the given id
func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return Node{}, false
}

// IdeaTasks returns the current backlog
func (s *Store) IdeaTasks() []IdeaTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]IdeaTask(nil), s.tasks...)
}

// SetNodes replaces all nodes
func (s *Store) SetNodes(nodes []Node) {
	s.mu.Lock()
	s.nodes = cloneNodes(nodes)
	s.touchLocked()
	s.mu.Unlock()
}

// SetEdges replaces all edges
func (s *Store) SetEdges(edges []Edge) {
	s.mu.Lock()
	s.edges = append([]Edge(nil), edges...)
	s.touchLocked()
	s.mu.Unlock()
}

// SetIdeaTasks replaces the idea backlog
func (s *Store) SetIdeaTasks(tasks []IdeaTask) {
	s.mu.Lock()
	s.tasks = append([]IdeaTask(nil), tasks...)
	s.touchLocked()
	s.mu.Unlock()
}

// AddNodes appends nodes
func (s *Store) AddNodes(nodes ...Node) {
	s.mu.Lock()
	next := cloneNodes(s.nodes)
	for _, n := range nodes {
		next = append(next, n.Clone())
	}
	s.nodes = next
	s.touchLocked()
	s.mu.Unlock()
}

// AddEdges appends edges
func (s *Store) AddEdges(edges ...Edge) {
	s.mu.Lock()
	s.edges = append(append([]Edge(nil), s.edges...), edges...)
	s.touchLocked()
	s.mu.Unlock()
}

// AddIdeaTasks appends to the idea backlog
func (s *Store) AddIdeaTasks(tasks ...IdeaTask) {
	s.mu.Lock()
	s.tasks = append(append([]IdeaTask(nil), s.tasks...), tasks...)
	s.touchLocked()
	s.mu.Unlock()
}

// NodeUpdate is a partial update applied by MergeNodeData. Nil fields
// are left untouched on the node.
type NodeUpdate struct {
	Label          *string
	DisplayLabel   *string
	Content        *string
	Status         *NodeStatus
	Sources        map[string]Source
	Columns        []SpreadsheetColumn
	Rows           []map[string]string
	AppendMessages []ChatMessage
	Contexts       []string
}

// MergeNodeData applies a partial update to one node as a single atomic
// write. Status, content and sources written together are observed
// together by every subsequent snapshot.
func (s *Store) MergeNodeData(id string, upd NodeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, n := range s.nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.NewNotFoundError("node %s", id)
	}

	next := cloneNodes(s.nodes)
	n := &next[idx]
	if upd.Label != nil {
		n.Label = *upd.Label
	}
	if upd.DisplayLabel != nil {
		n.DisplayLabel = *upd.DisplayLabel
	}
	if upd.Content != nil {
		n.Content = *upd.Content
	}
	if upd.Status != nil {
		n.Status = *upd.Status
	}
	if upd.Sources != nil {
		n.Sources = make(map[string]Source, len(upd.Sources))
		for k, v := range upd.Sources {
			n.Sources[k] = v
		}
	}
	if upd.Columns != nil {
		n.Columns = append([]SpreadsheetColumn(nil), upd.Columns...)
	}
	if upd.Rows != nil {
		n.Rows = upd.Rows
	}
	if len(upd.AppendMessages) > 0 {
		n.Messages = append(n.Messages, upd.AppendMessages...)
	}
	if upd.Contexts != nil {
		n.Contexts = append([]string(nil), upd.Contexts...)
	}

	s.nodes = next
	s.touchLocked()
	return nil
}

// UpdateNodePosition moves one node on the canvas
func (s *Store) UpdateNodePosition(id string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.nodes {
		if n.ID == id {
			next := cloneNodes(s.nodes)
			next[i].Position = pos
			s.nodes = next
			s.touchLocked()
			return nil
		}
	}
	return errors.NewNotFoundError("node %s", id)
}

// NodeStatusOf returns the status of a node, or empty when the node
// does not exist
func (s *Store) NodeStatusOf(id string) NodeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.ID == id {
			return n.Status
		}
	}
	return ""
}

// RemoveSubtree deletes a node, all its descendants, the edges touching
// them, and any backlog tasks bound to removed nodes.
func (s *Store) RemoveSubtree(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := map[string]bool{id: true}
	// Edges are parent->child, so repeated sweeps close over descendants.
	for {
		grew := false
		for _, e := range s.edges {
			if removed[e.Source] && !removed[e.Target] {
				removed[e.Target] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	nodes := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if !removed[n.ID] {
			nodes = append(nodes, n.Clone())
		}
	}
	edges := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if !removed[e.Source] && !removed[e.Target] {
			edges = append(edges, e)
		}
	}
	tasks := make([]IdeaTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !removed[t.NodeID] {
			tasks = append(tasks, t)
		}
	}

	s.nodes, s.edges, s.tasks = nodes, edges, tasks
	s.touchLocked()
}

// Subscribe registers a change signal channel. The channel has capacity
// one and signals are coalesced; the caller reads a fresh Snapshot when
// woken. The returned func unregisters the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}

// Dirty reports whether the store has been mutated since the last
// MarkClean. Snapshots expose it so clients can warn before unload.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// MarkClean records that the current state has been persisted.
// Subscribers are signalled so they observe the cleared flag.
func (s *Store) MarkClean() {
	s.mu.Lock()
	s.dirty = false
	s.notifyLocked()
	s.mu.Unlock()
}

// touchLocked marks the store dirty and wakes subscribers. Every
// mutation goes through here.
func (s *Store) touchLocked() {
	s.dirty = true
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}
