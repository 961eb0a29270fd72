package graph

import (
	"math"
	"reflect"
	"testing"

	"github.com/matzehuels/papergraph/pkg/paper"
)

func score(v float64) *float64 { return &v }

func TestResolveSynthesized(t *testing.T) {
	results := []paper.SearchResult{
		{ID: "r1", Title: "T1", Score: score(1), RelatedIDs: []string{"x"}},
		{ID: "r2", Title: "T2", RelatedIDs: []string{"x", "r1"}},
	}

	g, rep := Resolve(results, nil, DefaultOptions())

	if rep.Mode != ModeSynthesized {
		t.Errorf("Mode = %v, want %v", rep.Mode, ModeSynthesized)
	}

	wantNodes := []string{"r1", "r2", "x"}
	if got := nodeIDs(g); !reflect.DeepEqual(got, wantNodes) {
		t.Errorf("nodes = %v, want %v", got, wantNodes)
	}

	wantEdges := []string{"r1-x", "r2-r1", "r2-x"}
	if got := edgeIDs(g); !reflect.DeepEqual(got, wantEdges) {
		t.Errorf("edges = %v, want %v", got, wantEdges)
	}

	x, _ := g.Node("x")
	if !x.Stub || x.IsSearchResult || x.Size != MinSize || x.Title != "x" {
		t.Errorf("stub x = %+v", x)
	}
	r1, _ := g.Node("r1")
	if !r1.IsSearchResult || r1.Size != 26 {
		t.Errorf("r1 = %+v, want search result of size 26", r1)
	}
	r2, _ := g.Node("r2")
	if r2.Size != MinSize {
		t.Errorf("r2 size = %v, want %v (missing score)", r2.Size, MinSize)
	}
	for _, e := range g.Edges {
		if e.Weight != 1 || e.StrokeWidth != 2 {
			t.Errorf("edge %s weight=%v width=%v, want 1 and 2", e.ID, e.Weight, e.StrokeWidth)
		}
	}
	if rep.Stubs != 1 {
		t.Errorf("Stubs = %d, want 1", rep.Stubs)
	}
}

func TestResolveSynthesizedRepairs(t *testing.T) {
	tests := []struct {
		name      string
		results   []paper.SearchResult
		wantNodes []string
		wantEdges []string
		check     func(t *testing.T, r Report)
	}{
		{
			name:      "self reference dropped",
			results:   []paper.SearchResult{{ID: "a", RelatedIDs: []string{"a", "b"}}},
			wantNodes: []string{"a", "b"},
			wantEdges: []string{"a-b"},
			check: func(t *testing.T, r Report) {
				if r.DroppedSelfLoops != 1 {
					t.Errorf("DroppedSelfLoops = %d, want 1", r.DroppedSelfLoops)
				}
			},
		},
		{
			name:      "duplicate pair collapsed",
			results:   []paper.SearchResult{{ID: "a", RelatedIDs: []string{"b", "b"}}},
			wantNodes: []string{"a", "b"},
			wantEdges: []string{"a-b"},
			check: func(t *testing.T, r Report) {
				if r.DuplicateEdges != 1 {
					t.Errorf("DuplicateEdges = %d, want 1", r.DuplicateEdges)
				}
			},
		},
		{
			name:      "stub shared by two results",
			results:   []paper.SearchResult{{ID: "a", RelatedIDs: []string{"s"}}, {ID: "b", RelatedIDs: []string{"s"}}},
			wantNodes: []string{"a", "b", "s"},
			wantEdges: []string{"a-s", "b-s"},
			check: func(t *testing.T, r Report) {
				if r.Stubs != 1 {
					t.Errorf("Stubs = %d, want 1", r.Stubs)
				}
			},
		},
		{
			name:      "later result is not a stub",
			results:   []paper.SearchResult{{ID: "a", RelatedIDs: []string{"b"}}, {ID: "b"}},
			wantNodes: []string{"a", "b"},
			wantEdges: []string{"a-b"},
			check: func(t *testing.T, r Report) {
				if r.Stubs != 0 {
					t.Errorf("Stubs = %d, want 0", r.Stubs)
				}
			},
		},
		{
			name:      "missing id skipped",
			results:   []paper.SearchResult{{Title: "no id"}, {ID: "a"}},
			wantNodes: []string{"a"},
			wantEdges: nil,
			check: func(t *testing.T, r Report) {
				if r.SkippedResults != 1 {
					t.Errorf("SkippedResults = %d, want 1", r.SkippedResults)
				}
			},
		},
		{
			name:      "duplicate result skipped",
			results:   []paper.SearchResult{{ID: "a", Title: "first"}, {ID: "a", Title: "second"}},
			wantNodes: []string{"a"},
		},
		{
			name:    "empty",
			results: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, rep := Resolve(tt.results, nil, DefaultOptions())
			if got := nodeIDs(g); !reflect.DeepEqual(got, tt.wantNodes) {
				t.Errorf("nodes = %v, want %v", got, tt.wantNodes)
			}
			if got := edgeIDs(g); !reflect.DeepEqual(got, tt.wantEdges) {
				t.Errorf("edges = %v, want %v", got, tt.wantEdges)
			}
			if tt.check != nil {
				tt.check(t, rep)
			}
			assertWellFormed(t, g)
		})
	}
}

func TestResolveExplicit(t *testing.T) {
	results := []paper.SearchResult{{ID: "a"}}
	explicit := &paper.GraphData{
		Nodes: []paper.GraphNode{
			{ID: "a", Title: "A", Centrality: 0.25},
			{ID: "b", Centrality: -1},
			{ID: "c", Title: "C", Centrality: math.NaN()},
		},
		Edges: []paper.GraphEdge{
			{Source: "a", Target: "b", Weight: 0.5, Type: "citation"},
			{Source: "a", Target: "b", Weight: 0.9, Type: "citation"},
			{Source: "b", Target: "b", Weight: 1},
			{Source: "c", Target: "zzz", Weight: 1},
			{Source: "c", Target: "a", Weight: math.Inf(1)},
		},
	}

	g, rep := Resolve(results, explicit, DefaultOptions())

	if rep.Mode != ModeExplicit {
		t.Fatalf("Mode = %v, want %v", rep.Mode, ModeExplicit)
	}
	if got := edgeIDs(g); !reflect.DeepEqual(got, []string{"a-b", "c-a"}) {
		t.Errorf("edges = %v", got)
	}
	if rep.DroppedSelfLoops != 1 || rep.DroppedDangling != 1 || rep.DuplicateEdges != 1 {
		t.Errorf("report = %+v", rep)
	}

	a, _ := g.Node("a")
	if !a.IsSearchResult || a.Size != 18 {
		t.Errorf("a = %+v", a)
	}
	b, _ := g.Node("b")
	if b.IsSearchResult || b.Size != MinSize || b.Title != "b" {
		t.Errorf("b = %+v", b)
	}

	ab := g.Edges[0]
	if ab.Weight != 0.5 || ab.StrokeWidth != 2 || ab.Type != "citation" {
		t.Errorf("first occurrence should win: %+v", ab)
	}
	ca := g.Edges[1]
	if ca.Weight != 0 || ca.StrokeWidth != 1 {
		t.Errorf("non-finite weight should count as 0: %+v", ca)
	}
	assertWellFormed(t, g)
}

func TestResolveExplicitSkippedNodes(t *testing.T) {
	results := []paper.SearchResult{{ID: "a"}, {ID: "b"}}
	explicit := &paper.GraphData{
		Nodes: []paper.GraphNode{
			{ID: "a", Title: "first"},
			{ID: "a", Title: "second"},
			{Title: "no id"},
			{ID: "b"},
		},
		Edges: []paper.GraphEdge{{Source: "a", Target: "b", Weight: 1}},
	}

	g, rep := Resolve(results, explicit, DefaultOptions())
	if rep.SkippedNodes != 2 {
		t.Errorf("SkippedNodes = %d, want 2", rep.SkippedNodes)
	}
	if rep.SkippedResults != 0 {
		t.Errorf("SkippedResults = %d, want 0", rep.SkippedResults)
	}
	if rep.Clean() {
		t.Error("report with skipped nodes should not be clean")
	}
	if a, _ := g.Node("a"); a.Title != "first" {
		t.Errorf("first node should win, got %q", a.Title)
	}
}

func TestResolveExplicitWithoutEdgesFallsBack(t *testing.T) {
	results := []paper.SearchResult{{ID: "a", RelatedIDs: []string{"b"}}}
	explicit := &paper.GraphData{Nodes: []paper.GraphNode{{ID: "q"}}}

	g, rep := Resolve(results, explicit, DefaultOptions())
	if rep.Mode != ModeSynthesized {
		t.Errorf("Mode = %v, want %v", rep.Mode, ModeSynthesized)
	}
	if _, ok := g.Node("q"); ok {
		t.Error("explicit node should be ignored when the explicit graph has no edges")
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	a := []paper.SearchResult{
		{ID: "p", Score: score(0.3), RelatedIDs: []string{"q", "z"}},
		{ID: "q", Score: score(0.8), RelatedIDs: []string{"y"}},
	}
	b := []paper.SearchResult{a[1], a[0]}

	ga, _ := Resolve(a, nil, DefaultOptions())
	gb, _ := Resolve(b, nil, DefaultOptions())
	if !reflect.DeepEqual(ga, gb) {
		t.Errorf("result order changed the graph:\n%v\n%v", ga, gb)
	}
}

func TestResolveCustomScale(t *testing.T) {
	g, _ := Resolve([]paper.SearchResult{{ID: "a", RelatedIDs: []string{"b"}}}, nil, Options{SynthEdgeScale: 3})
	if g.Edges[0].StrokeWidth != 3 {
		t.Errorf("StrokeWidth = %v, want 3", g.Edges[0].StrokeWidth)
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	results := []paper.SearchResult{{ID: "b", Authors: []string{"x"}}, {ID: "a"}}
	Resolve(results, nil, DefaultOptions())
	if results[0].ID != "b" {
		t.Error("Resolve reordered its input")
	}
}

func assertWellFormed(t *testing.T, g Graph) {
	t.Helper()
	nodes := make(map[string]bool)
	for _, n := range g.Nodes {
		if nodes[n.ID] {
			t.Errorf("duplicate node %q", n.ID)
		}
		nodes[n.ID] = true
		if n.Size < MinSize || n.Size > MaxSize {
			t.Errorf("node %q size %v out of range", n.ID, n.Size)
		}
	}
	edges := make(map[string]bool)
	for _, e := range g.Edges {
		if edges[e.ID] {
			t.Errorf("duplicate edge %q", e.ID)
		}
		edges[e.ID] = true
		if e.Source == e.Target {
			t.Errorf("self loop %q", e.ID)
		}
		if !nodes[e.Source] || !nodes[e.Target] {
			t.Errorf("dangling edge %q", e.ID)
		}
		if e.ID != EdgeID(e.Source, e.Target) {
			t.Errorf("edge id %q != %q", e.ID, EdgeID(e.Source, e.Target))
		}
		if e.StrokeWidth < 1 {
			t.Errorf("edge %q stroke width %v < 1", e.ID, e.StrokeWidth)
		}
	}
}

func nodeIDs(g Graph) []string {
	var ids []string
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func edgeIDs(g Graph) []string {
	var ids []string
	for _, e := range g.Edges {
		ids = append(ids, e.ID)
	}
	return ids
}
