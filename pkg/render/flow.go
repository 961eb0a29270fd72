package render

import (
	"encoding/json"

	"github.com/matzehuels/papergraph/pkg/graph"
	"github.com/matzehuels/papergraph/pkg/style"
)

// FlowNodeType is the custom node type the web widget registers.
const FlowNodeType = "paper"

// FlowNode is one node in the widget's format.
type FlowNode struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position graph.Position `json:"position"`
	Data     FlowNodeData   `json:"data"`
}

// FlowNodeData is what the widget's node component renders.
type FlowNodeData struct {
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Size           float64  `json:"size"`
	IsSearchResult bool     `json:"isSearchResult"`
	IsSelected     bool     `json:"isSelected"`
	IsFaded        bool     `json:"isFaded"`
	ShowLabel      bool     `json:"showLabel"`
}

// FlowEdge is one edge in the widget's format.
type FlowEdge struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Target string    `json:"target"`
	Style  FlowStyle `json:"style"`
}

// FlowStyle is an edge's inline style.
type FlowStyle struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// Flow is the full widget payload.
type Flow struct {
	Selected string     `json:"selected,omitempty"`
	Nodes    []FlowNode `json:"nodes"`
	Edges    []FlowEdge `json:"edges"`
}

// ToFlow converts a snapshot to the widget's shape.
func ToFlow(snap style.Snapshot) Flow {
	f := Flow{
		Selected: snap.Selected,
		Nodes:    make([]FlowNode, len(snap.Nodes)),
		Edges:    make([]FlowEdge, len(snap.Edges)),
	}
	for i, n := range snap.Nodes {
		authors := n.Authors
		if authors == nil {
			authors = []string{}
		}
		f.Nodes[i] = FlowNode{
			ID:       n.ID,
			Type:     FlowNodeType,
			Position: n.Position,
			Data: FlowNodeData{
				Title:          n.Title,
				Authors:        authors,
				Size:           n.Size,
				IsSearchResult: n.IsSearchResult,
				IsSelected:     n.IsSelected,
				IsFaded:        n.IsFaded,
				ShowLabel:      n.ShowLabel,
			},
		}
	}
	for i, e := range snap.Edges {
		f.Edges[i] = FlowEdge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
			Style:  FlowStyle{Stroke: e.Stroke, StrokeWidth: e.Width},
		}
	}
	return f
}

// MarshalFlow encodes a snapshot as widget JSON.
func MarshalFlow(snap style.Snapshot) ([]byte, error) {
	return json.Marshal(ToFlow(snap))
}
