package graph

import (
	"math"
	"strings"
)

// Size bounds for nodes, in layout units.
const (
	MinSize = 10
	MaxSize = 28
)

// Default stroke scales applied to edge weights.
const (
	DefaultExplicitEdgeScale = 4
	DefaultSynthEdgeScale    = 2
)

// Edge types.
const (
	EdgeTypeRelated = "related"
)

// Position is a 2-D point in layout space.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Node is a paper in the layout graph.
type Node struct {
	ID             string   `json:"id" bson:"id"`
	Title          string   `json:"title" bson:"title"`
	Authors        []string `json:"authors,omitempty" bson:"authors,omitempty"`
	Size           float64  `json:"size" bson:"size"`
	IsSearchResult bool     `json:"is_search_result" bson:"is_search_result"`
	Stub           bool     `json:"stub,omitempty" bson:"stub,omitempty"` // Referenced but not returned by the search
	Position       Position `json:"position" bson:"position"`
}

// Radius returns half the node size.
func (n Node) Radius() float64 { return n.Size / 2 }

// Edge connects two nodes. ID is always "source-target".
type Edge struct {
	ID          string  `json:"id" bson:"id"`
	Source      string  `json:"source" bson:"source"`
	Target      string  `json:"target" bson:"target"`
	Type        string  `json:"type,omitempty" bson:"type,omitempty"`
	Weight      float64 `json:"weight" bson:"weight"`
	StrokeWidth float64 `json:"stroke_width" bson:"stroke_width"`
}

// Graph is a resolved paper graph. Nodes are unique by id, edges are unique
// by id, and every edge endpoint is a node.
type Graph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Empty reports whether the graph has no nodes.
func (g Graph) Empty() bool { return len(g.Nodes) == 0 }

// Index maps node ids to their position in g.Nodes.
func (g Graph) Index() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		idx[n.ID] = i
	}
	return idx
}

// Node looks up a node by id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Clone returns a deep copy, so passes can return new values without
// sharing slices with their input.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	for i := range out.Nodes {
		if a := out.Nodes[i].Authors; a != nil {
			out.Nodes[i].Authors = append([]string(nil), a...)
		}
	}
	return out
}

// EdgeID returns the canonical id for an edge. Direction matters:
// EdgeID("a", "b") != EdgeID("b", "a").
func EdgeID(source, target string) string {
	var b strings.Builder
	b.Grow(len(source) + len(target) + 1)
	b.WriteString(source)
	b.WriteByte('-')
	b.WriteString(target)
	return b.String()
}

// Size maps a relevance score or centrality to a node size:
// clamp(10 + 16·sqrt(max(0, v)), 10, 28). Non-finite input yields MinSize.
func Size(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return MinSize
	}
	return min(max(MinSize+16*math.Sqrt(v), MinSize), MaxSize)
}

// StrokeWidth returns max(1, weight·scale). Non-finite weights count as 0.
func StrokeWidth(weight, scale float64) float64 {
	w := weight * scale
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 1
	}
	return max(1, w)
}
