package graph

import (
	"github.com/google/uuid"
)

// AreaSpec is one thematic cluster from query decomposition, carrying
// the search queries that become idea nodes under it.
type AreaSpec struct {
	Name          string
	Purpose       string
	SearchQueries []string
}

// Layout spacing for the generated tree. Areas fan out horizontally
// under the root; ideas fan out under their area.
const (
	areaSpacingX = 360
	ideaSpacingX = 260
	levelGapY    = 220
)

// Expansion is the node/edge/backlog delta produced by expanding a
// query into a research tree.
type Expansion struct {
	RootID string
	Nodes  []Node
	Edges  []Edge
	Tasks  []IdeaTask
}

// Expand builds a root -> area -> idea tree for a query. Every idea
// node starts in StatusWaiting and gets a matching backlog task; the
// caller applies the expansion to a store and kicks the scheduler.
func Expand(query string, areas []AreaSpec, origin Position) Expansion {
	rootID := uuid.New().String()
	exp := Expansion{
		RootID: rootID,
		Nodes: []Node{{
			ID:       rootID,
			Kind:     KindRoot,
			Label:    query,
			Position: origin,
		}},
	}

	areaWidth := float64(len(areas)-1) * areaSpacingX
	for i, area := range areas {
		areaID := uuid.New().String()
		areaX := origin.X + float64(i)*areaSpacingX - areaWidth/2
		exp.Nodes = append(exp.Nodes, Node{
			ID:       areaID,
			Kind:     KindArea,
			Label:    area.Name,
			Purpose:  area.Purpose,
			Position: Position{X: areaX, Y: origin.Y + levelGapY},
		})
		exp.Edges = append(exp.Edges, Edge{
			ID:     uuid.New().String(),
			Source: rootID,
			Target: areaID,
		})

		ideaWidth := float64(len(area.SearchQueries)-1) * ideaSpacingX
		for j, q := range area.SearchQueries {
			ideaID := uuid.New().String()
			exp.Nodes = append(exp.Nodes, Node{
				ID:          ideaID,
				Kind:        KindIdea,
				Label:       q,
				Status:      StatusWaiting,
				SearchQuery: q,
				Position: Position{
					X: areaX + float64(j)*ideaSpacingX - ideaWidth/2,
					Y: origin.Y + 2*levelGapY,
				},
			})
			exp.Edges = append(exp.Edges, Edge{
				ID:     uuid.New().String(),
				Source: areaID,
				Target: ideaID,
			})
			exp.Tasks = append(exp.Tasks, IdeaTask{
				NodeID:      ideaID,
				SearchQuery: q,
				RootNodeID:  rootID,
			})
		}
	}

	return exp
}

// NewIdeaNode creates a single waiting idea node attached to a parent,
// used for follow-up and detail queries.
func NewIdeaNode(parentID, rootID, query string, pos Position) (Node, Edge, IdeaTask) {
	id := uuid.New().String()
	node := Node{
		ID:          id,
		Kind:        KindIdea,
		Label:       query,
		Status:      StatusWaiting,
		SearchQuery: query,
		Position:    pos,
	}
	edge := Edge{ID: uuid.New().String(), Source: parentID, Target: id}
	task := IdeaTask{NodeID: id, SearchQuery: query, RootNodeID: rootID}
	return node, edge, task
}

// Apply merges an expansion into the store
func (e Expansion) Apply(s *Store) {
	s.AddNodes(e.Nodes...)
	s.AddEdges(e.Edges...)
	s.AddIdeaTasks(e.Tasks...)
}
