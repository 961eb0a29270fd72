package graph

import (
	"cmp"
	"slices"

	"github.com/matzehuels/papergraph/pkg/paper"
)

// Mode identifies which branch of [Resolve] produced a graph.
type Mode string

const (
	ModeExplicit    Mode = "explicit"
	ModeSynthesized Mode = "synthesized"
)

// Options controls graph resolution.
type Options struct {
	// ExplicitEdgeScale multiplies explicit edge weights into stroke widths.
	// Explicit graphs carry authoritative weights in [0, 1], so the wider
	// scale keeps their differences visible.
	ExplicitEdgeScale float64

	// SynthEdgeScale multiplies synthesized edge weights (always 1).
	SynthEdgeScale float64
}

// DefaultOptions returns the default resolution options.
func DefaultOptions() Options {
	return Options{
		ExplicitEdgeScale: DefaultExplicitEdgeScale,
		SynthEdgeScale:    DefaultSynthEdgeScale,
	}
}

// SetDefaults fills zero-valued fields.
func (o *Options) SetDefaults() {
	if o.ExplicitEdgeScale <= 0 {
		o.ExplicitEdgeScale = DefaultExplicitEdgeScale
	}
	if o.SynthEdgeScale <= 0 {
		o.SynthEdgeScale = DefaultSynthEdgeScale
	}
}

// Report summarizes what resolution did to its input.
type Report struct {
	Mode             Mode `json:"mode"`
	Nodes            int  `json:"nodes"`
	Edges            int  `json:"edges"`
	Stubs            int  `json:"stubs"`
	DroppedSelfLoops int  `json:"dropped_self_loops"`
	DroppedDangling  int  `json:"dropped_dangling"`
	DuplicateEdges   int  `json:"duplicate_edges"`
	SkippedResults   int  `json:"skipped_results"`
	SkippedNodes     int  `json:"skipped_nodes"`
}

// Clean reports whether resolution dropped or repaired nothing.
func (r Report) Clean() bool {
	return r.DroppedSelfLoops == 0 && r.DroppedDangling == 0 &&
		r.DuplicateEdges == 0 && r.SkippedResults == 0 && r.SkippedNodes == 0
}

// Resolve builds a layout graph from search results and an optional explicit
// graph. The explicit graph is used when it has at least one edge; otherwise
// the graph is synthesized from the results and their related ids.
//
// Resolve never fails. Results and explicit nodes without ids or with a
// repeated id are skipped, missing or invalid scores count as 0, and edges
// with unknown endpoints are dropped.
func Resolve(results []paper.SearchResult, explicit *paper.GraphData, opts Options) (Graph, Report) {
	opts.SetDefaults()

	var (
		g Graph
		r Report
	)
	if explicit != nil && len(explicit.Edges) > 0 {
		g, r = resolveExplicit(results, explicit, opts)
	} else {
		g, r = synthesize(results, opts)
	}

	sortGraph(&g)
	r.Nodes = len(g.Nodes)
	r.Edges = len(g.Edges)
	return g, r
}

func resolveExplicit(results []paper.SearchResult, data *paper.GraphData, opts Options) (Graph, Report) {
	r := Report{Mode: ModeExplicit}

	hits := make(map[string]bool, len(results))
	for _, res := range results {
		if res.ID != "" {
			hits[res.ID] = true
		}
	}

	g := Graph{Nodes: make([]Node, 0, len(data.Nodes))}
	known := make(map[string]bool, len(data.Nodes))
	for _, gn := range data.Nodes {
		if gn.ID == "" || known[gn.ID] {
			r.SkippedNodes++
			continue
		}
		known[gn.ID] = true
		title := gn.Title
		if title == "" {
			title = gn.ID
		}
		g.Nodes = append(g.Nodes, Node{
			ID:             gn.ID,
			Title:          title,
			Authors:        gn.Authors,
			Size:           Size(paper.NonNegative(gn.Centrality)),
			IsSearchResult: hits[gn.ID],
		})
	}

	seen := make(map[string]bool, len(data.Edges))
	for _, ge := range data.Edges {
		switch {
		case ge.Source == ge.Target:
			r.DroppedSelfLoops++
			continue
		case !known[ge.Source] || !known[ge.Target]:
			r.DroppedDangling++
			continue
		}
		id := EdgeID(ge.Source, ge.Target)
		if seen[id] {
			r.DuplicateEdges++
			continue
		}
		seen[id] = true
		w := paper.Finite(ge.Weight)
		g.Edges = append(g.Edges, Edge{
			ID:          id,
			Source:      ge.Source,
			Target:      ge.Target,
			Type:        ge.Type,
			Weight:      w,
			StrokeWidth: StrokeWidth(w, opts.ExplicitEdgeScale),
		})
	}
	return g, r
}

func synthesize(results []paper.SearchResult, opts Options) (Graph, Report) {
	r := Report{Mode: ModeSynthesized}

	// Index hits first so a related id that is also a hit never becomes a stub,
	// regardless of result order.
	isHit := make(map[string]bool, len(results))
	for _, res := range results {
		if res.ID != "" {
			isHit[res.ID] = true
		}
	}

	var g Graph
	placed := make(map[string]bool, len(results))
	for _, res := range results {
		if res.ID == "" || placed[res.ID] {
			r.SkippedResults++
			continue
		}
		placed[res.ID] = true
		g.Nodes = append(g.Nodes, Node{
			ID:             res.ID,
			Title:          res.DisplayTitle(),
			Authors:        res.Authors,
			Size:           Size(res.ScoreValue()),
			IsSearchResult: true,
		})
	}

	seen := make(map[string]bool)
	emitted := make(map[string]bool, len(results))
	for _, res := range results {
		if res.ID == "" || emitted[res.ID] {
			continue
		}
		emitted[res.ID] = true
		for _, rel := range res.RelatedIDs {
			if rel == "" {
				r.DroppedDangling++
				continue
			}
			if rel == res.ID {
				r.DroppedSelfLoops++
				continue
			}
			if !isHit[rel] && !placed[rel] {
				placed[rel] = true
				r.Stubs++
				g.Nodes = append(g.Nodes, Node{
					ID:    rel,
					Title: rel,
					Size:  MinSize,
					Stub:  true,
				})
			}
			id := EdgeID(res.ID, rel)
			if seen[id] {
				r.DuplicateEdges++
				continue
			}
			seen[id] = true
			g.Edges = append(g.Edges, Edge{
				ID:          id,
				Source:      res.ID,
				Target:      rel,
				Type:        EdgeTypeRelated,
				Weight:      1,
				StrokeWidth: StrokeWidth(1, opts.SynthEdgeScale),
			})
		}
	}
	return g, r
}

func sortGraph(g *Graph) {
	slices.SortFunc(g.Nodes, func(a, b Node) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(g.Edges, func(a, b Edge) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Target, b.Target); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
