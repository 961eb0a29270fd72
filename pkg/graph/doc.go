// Package graph resolves search results into a layout graph.
//
// The search backend returns ranked hits and, optionally, an explicit
// citation or co-authorship graph. [Resolve] turns either shape into a
// [Graph] whose nodes are unique by id and whose edges only reference nodes
// that exist. The result feeds the force layout in pkg/layout/force and the
// selection styling in pkg/style.
//
// # Resolution Modes
//
// When the explicit graph carries at least one edge, its nodes and edges are
// used directly ([ModeExplicit]). Node size comes from centrality, and a node
// is a search result when its id appears among the hits.
//
// Otherwise the graph is synthesized from the hits ([ModeSynthesized]). Each
// hit becomes a node sized by its score. Each related id that is not itself
// a hit becomes a stub node, and each (hit, related id) pair becomes an edge.
//
// # Sizes and Strokes
//
//	graph.Size(0)    // 10
//	graph.Size(1)    // 26
//	graph.Size(4)    // 28 (clamped)
//
//	graph.StrokeWidth(0.3, 4) // 1.2
//	graph.StrokeWidth(0.1, 4) // 1 (floor)
//
// # Ordering
//
// Output nodes are sorted by id and edges by (source, target), so reordering
// the hits never changes the resolved graph or its layout cache key.
//
// Resolution never fails. Malformed input is repaired and counted in the
// returned [Report].
package graph
