package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/papergraph/pkg/style"
)

// pointsPerInch converts layout units (treated as points) to Graphviz inches.
const pointsPerInch = 72.0

// Palette maps the consumer's CSS variables to concrete colours, since
// Graphviz cannot resolve them.
type Palette struct {
	Border       string
	Accent       string
	SearchResult string
	Related      string
	Stub         string
	Selected     string
	Text         string
}

// DefaultPalette matches the web frontend's light theme.
var DefaultPalette = Palette{
	Border:       "#d1d5db",
	Accent:       "#6366f1",
	SearchResult: "#3b82f6",
	Related:      "#93c5fd",
	Stub:         "#e5e7eb",
	Selected:     "#f59e0b",
	Text:         "#111827",
}

// fadedAlpha is appended to faded colours (#rrggbb → #rrggbbaa).
const fadedAlpha = "40"

// DOTOptions configures DOT output.
type DOTOptions struct {
	// Palette overrides DefaultPalette when non-zero.
	Palette Palette

	// Labels shows every title, not only the selected node's.
	Labels bool
}

// ToDOT converts a styled snapshot to Graphviz DOT. Every node carries a
// pinned pos ("x,y!") in inches with the y axis flipped, so neato keeps the
// force layout instead of computing its own.
func ToDOT(snap style.Snapshot, opts DOTOptions) string {
	p := opts.Palette
	if p == (Palette{}) {
		p = DefaultPalette
	}

	var buf bytes.Buffer
	buf.WriteString("digraph papers {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, fixedsize=true, fontsize=10, fontcolor=%q, color=%q];\n", p.Text, p.Border)
	buf.WriteString("  edge [arrowsize=0.5];\n")
	buf.WriteString("\n")

	for _, n := range snap.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, p, opts.Labels), ", "))
	}

	buf.WriteString("\n")
	for _, e := range snap.Edges {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(edgeAttrs(e, p), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n style.Node, p Palette, labels bool) []string {
	fill := p.Related
	switch {
	case n.IsSelected:
		fill = p.Selected
	case n.IsSearchResult:
		fill = p.SearchResult
	case n.Stub:
		fill = p.Stub
	}
	if n.IsFaded {
		fill = fade(fill)
	}

	label := ""
	if n.ShowLabel || labels {
		label = n.Title
	}

	d := n.Size / pointsPerInch
	return []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("tooltip=%q", n.Title),
		fmt.Sprintf("pos=\"%.3f,%.3f!\"", n.Position.X/pointsPerInch, -n.Position.Y/pointsPerInch),
		fmt.Sprintf("width=%.3f", d),
		fmt.Sprintf("height=%.3f", d),
		fmt.Sprintf("fillcolor=%q", fill),
	}
}

func edgeAttrs(e style.Edge, p Palette) []string {
	color := p.Border
	if e.Stroke == style.StrokeAccent {
		color = p.Accent
	}
	attrs := []string{
		fmt.Sprintf("color=%q", color),
		fmt.Sprintf("penwidth=%.2f", e.Width),
	}
	if e.Type != "" {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", e.Type))
	}
	return attrs
}

func fade(color string) string {
	if len(color) == 7 && color[0] == '#' {
		return color + fadedAlpha
	}
	return color
}
