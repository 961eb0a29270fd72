// Package pkg provides the core libraries for papergraph, a citation-graph
// engine for paper search results.
//
// # Overview
//
// papergraph turns a ranked list of papers, optionally with an explicit
// citation or co-authorship graph, into a laid-out graph styled for the
// current selection. The libraries are organized by stage:
//
//  1. [paper] - Wire types for the search backend
//  2. [graph] - Node/edge model and resolution of search results into a graph
//  3. [layout/force] - Deterministic force-directed layout
//  4. [style] - Selection styling (highlighted edges, faded nodes, labels)
//  5. [render] - DOT, SVG, and flow JSON output
//
// Around them sit [pipeline] (orchestration with caching), [search] (the
// request lifecycle shared by the HTTP server and the terminal UI), [api]
// (the search backend client), [cache], [errors], and [observability].
//
// # Architecture
//
//	Search API response
//	         ↓
//	    [graph] Resolve (explicit graph or synthesized from related ids)
//	         ↓
//	    [layout/force] Layout
//	         ↓
//	    [style] Apply (selection)
//	         ↓
//	    [render] SVG / DOT / JSON
//
// # Quick Start
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Input{Results: resp.Results, Graph: resp.Graph},
//	    pipeline.Options{Formats: []string{render.FormatSVG}})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("graph.svg", res.Artifacts[render.FormatSVG], 0o644)
package pkg
