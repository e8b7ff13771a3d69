// Package graph holds the shared node/edge/backlog state for a research
// session and the mutation API everything else writes through.
package graph

// NodeKind discriminates the card types rendered on the canvas
type NodeKind string

const (
	KindRoot        NodeKind = "root"
	KindArea        NodeKind = "area"
	KindIdea        NodeKind = "idea"
	KindSpreadsheet NodeKind = "spreadsheet"
	KindChatbot     NodeKind = "chatbot"
	KindContext     NodeKind = "context"
)

// NodeStatus tracks the research lifecycle of an idea node.
// Only idea nodes carry a status; for every other kind it stays empty.
type NodeStatus string

const (
	StatusWaiting     NodeStatus = "waiting"
	StatusResearching NodeStatus = "researching"
	StatusDone        NodeStatus = "done"
)

// Position is a canvas coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Source is one retrieved document backing a node's content, keyed by URL
// in Node.Sources
type Source struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	RawContent string `json:"rawContent"`
}

// ChatMessage is one turn of a chatbot node's conversation
type ChatMessage struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Contexts  []string `json:"contexts,omitempty"`
	IsContext bool     `json:"isContext,omitempty"`
}

// SpreadsheetColumn describes one generated column of a spreadsheet node
type SpreadsheetColumn struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
}

// Node is one card on the canvas
type Node struct {
	ID           string              `json:"id"`
	Kind         NodeKind            `json:"kind"`
	Label        string              `json:"label"`
	DisplayLabel string              `json:"displayLabel,omitempty"`
	Content      string              `json:"content,omitempty"`
	Status       NodeStatus          `json:"status,omitempty"`
	Sources      map[string]Source   `json:"sources,omitempty"`
	Position     Position            `json:"position"`
	SearchQuery  string              `json:"searchQuery,omitempty"`
	Purpose      string              `json:"purpose,omitempty"`
	Columns      []SpreadsheetColumn `json:"columns,omitempty"`
	Rows         []map[string]string `json:"rows,omitempty"`
	Messages     []ChatMessage       `json:"messages,omitempty"`
	Contexts     []string            `json:"contexts,omitempty"`
}

// Edge is a directed parent-to-child link. Nodes and edges together form
// a forest, one tree per top-level search.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// IdeaTask is one pending unit of research: a search query bound to an
// idea node. Immutable once created; the scheduler consumes tasks by
// mutating the node's status, never by deleting the task.
type IdeaTask struct {
	NodeID      string `json:"nodeId"`
	SearchQuery string `json:"searchQuery"`
	RootNodeID  string `json:"rootNodeId"`
}

// Clone returns a deep copy of the node. Sources and slices are copied
// so mutations on the clone never alias store-held state.
func (n Node) Clone() Node {
	out := n
	if n.Sources != nil {
		out.Sources = make(map[string]Source, len(n.Sources))
		for k, v := range n.Sources {
			out.Sources[k] = v
		}
	}
	if n.Columns != nil {
		out.Columns = append([]SpreadsheetColumn(nil), n.Columns...)
	}
	if n.Rows != nil {
		out.Rows = make([]map[string]string, len(n.Rows))
		for i, row := range n.Rows {
			cp := make(map[string]string, len(row))
			for k, v := range row {
				cp[k] = v
			}
			out.Rows[i] = cp
		}
	}
	if n.Messages != nil {
		out.Messages = append([]ChatMessage(nil), n.Messages...)
	}
	if n.Contexts != nil {
		out.Contexts = append([]string(nil), n.Contexts...)
	}
	return out
}
