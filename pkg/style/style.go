package style

import (
	"github.com/matzehuels/papergraph/pkg/graph"
)

// Stroke colours, as CSS custom properties resolved by the consumer's theme.
const (
	StrokeDefault = "var(--border)"
	StrokeAccent  = "var(--accent)"
)

// HighlightMinWidth is the minimum stroke width of an edge incident to the
// selection.
const HighlightMinWidth = 2.5

// Node is a laid-out node with selection flags.
type Node struct {
	graph.Node
	IsSelected bool `json:"is_selected"`
	IsFaded    bool `json:"is_faded"`
	ShowLabel  bool `json:"show_label"`
}

// Edge is an edge with its derived stroke.
type Edge struct {
	graph.Edge
	Stroke      string  `json:"stroke"`
	Width       float64 `json:"width"` // Derived; graph.Edge.StrokeWidth keeps the base
	Highlighted bool    `json:"highlighted"`
}

// Snapshot is a fully styled view of a graph for one selection.
type Snapshot struct {
	Selected string `json:"selected,omitempty"`
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`
}

// Apply styles g for the given selection. An empty id, or an id that is not
// a node of g, yields the neutral view.
func Apply(g graph.Graph, selected string) Snapshot {
	if selected != "" {
		if _, ok := g.Node(selected); !ok {
			selected = ""
		}
	}

	near := Neighbors(g, selected)

	s := Snapshot{
		Selected: selected,
		Nodes:    make([]Node, len(g.Nodes)),
		Edges:    make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		s.Nodes[i] = Node{Node: n}
		if selected == "" {
			continue
		}
		s.Nodes[i].IsSelected = n.ID == selected
		s.Nodes[i].ShowLabel = n.ID == selected
		s.Nodes[i].IsFaded = !near[n.ID]
	}
	for i, e := range g.Edges {
		s.Edges[i] = Edge{Edge: e, Stroke: StrokeDefault, Width: e.StrokeWidth}
		if selected != "" && (e.Source == selected || e.Target == selected) {
			s.Edges[i].Highlighted = true
			s.Edges[i].Stroke = StrokeAccent
			s.Edges[i].Width = max(e.StrokeWidth+1, HighlightMinWidth)
		}
	}
	return s
}

// Select restyles the snapshot for a new selection. It always starts from
// the base values carried in the snapshot, so selecting the same id twice
// gives the same result.
func (s Snapshot) Select(id string) Snapshot {
	return Apply(s.Graph(), id)
}

// Graph returns the unstyled graph the snapshot was built from.
func (s Snapshot) Graph() graph.Graph {
	g := graph.Graph{
		Nodes: make([]graph.Node, len(s.Nodes)),
		Edges: make([]graph.Edge, len(s.Edges)),
	}
	for i, n := range s.Nodes {
		g.Nodes[i] = n.Node
	}
	for i, e := range s.Edges {
		g.Edges[i] = e.Edge
	}
	return g
}

// Node returns the styled node with the given id.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Faded counts faded nodes.
func (s Snapshot) Faded() int {
	n := 0
	for _, node := range s.Nodes {
		if node.IsFaded {
			n++
		}
	}
	return n
}

// Neighbors returns the selected id plus every node sharing an edge with it,
// regardless of direction. It returns an empty set when selected is empty.
func Neighbors(g graph.Graph, selected string) map[string]bool {
	near := make(map[string]bool)
	if selected == "" {
		return near
	}
	near[selected] = true
	for _, e := range g.Edges {
		switch selected {
		case e.Source:
			near[e.Target] = true
		case e.Target:
			near[e.Source] = true
		}
	}
	return near
}
