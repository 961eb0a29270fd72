// Package pipeline runs the resolve → layout → style → render cycle for
// papergraph.
//
// The CLI, the HTTP server and the interactive session all go through a
// [Runner], so caching, logging and hooks behave the same everywhere.
//
// # Stages
//
//  1. Resolve: build a canonical graph from search hits and an optional
//     explicit graph ([graph.Resolve])
//  2. Layout: run the force simulation ([force.Layout]), cached by graph
//     hash and layout options
//  3. Style: derive the selection view ([style.Apply]); never cached, it is
//     cheap and runs on every selection change
//  4. Render: produce svg/dot/json artifacts, cached by snapshot hash
//
// Layout only needs to rerun when the results or the explicit graph change.
// A selection change needs only Style and Render.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Input{Results: resp.Results, Graph: resp.Graph}, pipeline.Options{
//	    Selected: resp.Results[0].ID,
//	    Formats:  []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"time"

	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/graph"
	"github.com/matzehuels/papergraph/pkg/layout/force"
	"github.com/matzehuels/papergraph/pkg/paper"
	"github.com/matzehuels/papergraph/pkg/render"
	"github.com/matzehuels/papergraph/pkg/style"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultAsyncThreshold is the node count above which interactive
	// callers should lay out in the background.
	DefaultAsyncThreshold = 300

	// DefaultSeed is the layout seed used when none is configured.
	DefaultSeed = uint64(42)
)

// =============================================================================
// Options
// =============================================================================

// Input is what the collaborator returned for one search.
type Input struct {
	Results []paper.SearchResult
	Graph   *paper.GraphData
}

// Options configures a pipeline run.
type Options struct {
	Graph  graph.Options
	Layout force.Options

	// Selected is the node to style around. Empty means the neutral view.
	Selected string

	// Formats lists the artifacts to render. Empty skips rendering.
	Formats []string

	// AsyncThreshold is consulted by [Options.Async].
	AsyncThreshold int

	// Refresh bypasses cached layouts and artifacts (results are still
	// written back).
	Refresh bool
}

// SetDefaults fills zero-valued fields.
func (o *Options) SetDefaults() {
	o.Graph.SetDefaults()
	if o.Layout.Seed == 0 && o.Layout.Rand == nil {
		o.Layout.Seed = DefaultSeed
	}
	o.Layout.SetDefaults()
	if o.AsyncThreshold <= 0 {
		o.AsyncThreshold = DefaultAsyncThreshold
	}
}

// Validate checks layout options and formats.
func (o Options) Validate() error {
	if err := o.Layout.Validate(); err != nil {
		return err
	}
	return ValidateFormats(o.Formats)
}

// ValidateAndSetDefaults applies defaults and then validates. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	return o.Validate()
}

// Async reports whether a graph with n nodes should be laid out in the
// background.
func (o Options) Async(n int) bool {
	threshold := o.AsyncThreshold
	if threshold <= 0 {
		threshold = DefaultAsyncThreshold
	}
	return n > threshold
}

// ValidateFormats checks every format. An empty list is valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := render.ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Result holds the output of [Runner.Execute].
type Result struct {
	Graph     graph.Graph       // Laid-out graph
	Report    graph.Report      // What resolution repaired
	Snapshot  style.Snapshot    // Styled for Options.Selected
	Artifacts map[string][]byte // Keyed by format
	GraphHash string            // Hash of the resolved graph, before layout
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds timings and sizes.
type Stats struct {
	ResolveTime time.Duration
	LayoutTime  time.Duration
	StyleTime   time.Duration
	RenderTime  time.Duration
	NodeCount   int
	EdgeCount   int
	Layout      force.Stats // Zero on a cache hit
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool
}

func invalidOptions(err error) error {
	return pgerrors.Wrap(pgerrors.ErrCodeInvalidOptions, err, "invalid options")
}
