package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/papergraph/pkg/cache"
	"github.com/matzehuels/papergraph/pkg/graph"
	"github.com/matzehuels/papergraph/pkg/layout/force"
	"github.com/matzehuels/papergraph/pkg/observability"
	"github.com/matzehuels/papergraph/pkg/render"
	"github.com/matzehuels/papergraph/pkg/style"
)

// Runner executes pipeline stages with caching.
//
// The Runner holds no pipeline results, so multiple goroutines can share
// one with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer becomes a DefaultKeyer, a nil
// cache a NullCache, and a nil logger discards output.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs resolve → layout → style → render.
func (r *Runner) Execute(ctx context.Context, in Input, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, invalidOptions(err)
	}

	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Resolve
	resolveStart := time.Now()
	g, report := r.Resolve(ctx, in, opts)
	result.Report = report
	result.Stats.ResolveTime = time.Since(resolveStart)
	result.Stats.NodeCount = len(g.Nodes)
	result.Stats.EdgeCount = len(g.Edges)
	if h, err := cache.HashJSON(g); err == nil {
		result.GraphHash = h
	}

	// Stage 2: Layout
	layoutStart := time.Now()
	laid, stats, layoutHit, err := r.LayoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Graph = laid
	result.Stats.Layout = stats
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	// Stage 3: Style
	styleStart := time.Now()
	result.Snapshot = r.Style(ctx, laid, opts.Selected)
	result.Stats.StyleTime = time.Since(styleStart)

	// Stage 4: Render
	if len(opts.Formats) > 0 {
		renderStart := time.Now()
		artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, result.Snapshot, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(renderStart)
		result.CacheInfo.RenderHit = renderHit

		r.Logger.Info("rendered outputs",
			"formats", opts.Formats,
			"cached", renderHit,
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// =============================================================================
// Resolve
// =============================================================================

// Resolve builds the canonical graph. It never fails; repairs are logged.
func (r *Runner) Resolve(ctx context.Context, in Input, opts Options) (graph.Graph, graph.Report) {
	opts.Graph.SetDefaults()

	start := time.Now()
	g, report := graph.Resolve(in.Results, in.Graph, opts.Graph)
	dur := time.Since(start)

	observability.Pipeline().OnResolveComplete(ctx, string(report.Mode), report.Nodes, report.Edges, dur)

	r.Logger.Info("resolved graph",
		"mode", report.Mode,
		"nodes", report.Nodes,
		"edges", report.Edges,
		"stubs", report.Stubs)
	if !report.Clean() {
		r.Logger.Warn("repaired malformed input",
			"self_loops", report.DroppedSelfLoops,
			"dangling", report.DroppedDangling,
			"duplicates", report.DuplicateEdges,
			"skipped_results", report.SkippedResults,
			"skipped_nodes", report.SkippedNodes)
	}
	return g, report
}

// =============================================================================
// Layout
// =============================================================================

// cachedLayout is the cache payload for a laid-out graph.
type cachedLayout struct {
	Graph graph.Graph `json:"graph"`
	Stats force.Stats `json:"stats"`
}

// LayoutWithCacheInfo lays out g, using the cache when possible, and reports
// whether the result came from cache. Layouts with an injected random
// source are never cached since the key cannot describe it.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, g graph.Graph, opts Options) (graph.Graph, force.Stats, bool, error) {
	opts.SetDefaults()
	if err := opts.Layout.Validate(); err != nil {
		return graph.Graph{}, force.Stats{}, false, err
	}

	cacheable := opts.Layout.Rand == nil
	var cacheKey string
	if cacheable {
		graphHash, err := cache.HashJSON(g)
		if err != nil {
			return graph.Graph{}, force.Stats{}, false, fmt.Errorf("hash graph: %w", err)
		}
		cacheKey = r.Keyer.LayoutKey(graphHash, cache.LayoutKeyOpts{Params: opts.Layout.Key()})
	}

	if cacheable && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached cachedLayout
			if err := json.Unmarshal(data, &cached); err == nil && len(cached.Graph.Nodes) == len(g.Nodes) {
				observability.Cache().OnCacheHit(ctx, "layout")
				r.Logger.Debug("layout cache hit", "nodes", len(g.Nodes))
				return cached.Graph, cached.Stats, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	out, stats, err := r.layout(ctx, g, opts.Layout)
	if err != nil {
		return graph.Graph{}, force.Stats{}, false, err
	}

	if cacheable {
		if data, err := json.Marshal(cachedLayout{Graph: out, Stats: stats}); err == nil {
			if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err == nil {
				observability.Cache().OnCacheSet(ctx, "layout", len(data))
			}
		}
	}
	return out, stats, false, nil
}

// Layout is LayoutWithCacheInfo without the cache and stats details.
func (r *Runner) Layout(ctx context.Context, g graph.Graph, opts Options) (graph.Graph, error) {
	out, _, _, err := r.LayoutWithCacheInfo(ctx, g, opts)
	return out, err
}

func (r *Runner) layout(ctx context.Context, g graph.Graph, opts force.Options) (graph.Graph, force.Stats, error) {
	start := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, len(g.Nodes))

	sim, err := force.NewSimulation(g, opts)
	if err == nil {
		err = sim.Run(ctx)
	}
	dur := time.Since(start)
	observability.Pipeline().OnLayoutComplete(ctx, len(g.Nodes), dur, err)
	if err != nil {
		return graph.Graph{}, force.Stats{}, err
	}

	stats := sim.Stats()
	r.Logger.Info("computed layout",
		"nodes", len(g.Nodes),
		"ticks", stats.Ticks,
		"settle_sweeps", stats.SettleSweeps,
		"duration", dur)
	if stats.Overlaps > 0 {
		r.Logger.Debug("overlaps remain after settling", "pairs", stats.Overlaps)
	}
	if stats.OrphanEdges > 0 {
		r.Logger.Debug("edges excluded from link force", "orphans", stats.OrphanEdges)
	}
	return sim.Apply(g), stats, nil
}

// LayoutResult is delivered by [Runner.LayoutAsync].
type LayoutResult struct {
	Graph    graph.Graph
	Stats    force.Stats
	CacheHit bool
	Err      error
}

// LayoutAsync lays out g on a new goroutine. The returned channel receives
// exactly one result and is then closed. Cancel ctx to abandon the layout.
func (r *Runner) LayoutAsync(ctx context.Context, g graph.Graph, opts Options) <-chan LayoutResult {
	ch := make(chan LayoutResult, 1)
	go func() {
		defer close(ch)
		out, stats, hit, err := r.LayoutWithCacheInfo(ctx, g, opts)
		ch <- LayoutResult{Graph: out, Stats: stats, CacheHit: hit, Err: err}
	}()
	return ch
}

// =============================================================================
// Style
// =============================================================================

// Style derives the selection view of a laid-out graph.
func (r *Runner) Style(ctx context.Context, g graph.Graph, selected string) style.Snapshot {
	start := time.Now()
	snap := style.Apply(g, selected)
	faded := snap.Faded()
	observability.Pipeline().OnStyleComplete(ctx, snap.Selected, faded, time.Since(start))

	if selected != "" && snap.Selected == "" {
		r.Logger.Debug("selection not in graph, using neutral view", "selected", selected)
	}
	return snap
}

// =============================================================================
// Render
// =============================================================================

// RenderWithCacheInfo renders every format in opts.Formats. The hit flag is
// true only when all formats came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, snap style.Snapshot, opts Options) (map[string][]byte, bool, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}

	snapHash, err := cache.HashJSON(snap)
	if err != nil {
		return nil, false, fmt.Errorf("hash snapshot: %w", err)
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(snapHash, cache.ArtifactKeyOpts{Format: format})
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	rendered, err := render.RenderAll(ctx, snap, opts.Formats)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(snapHash, cache.ArtifactKeyOpts{Format: format})
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return rendered, false, nil
}

// Render is RenderWithCacheInfo without the hit flag.
func (r *Runner) Render(ctx context.Context, snap style.Snapshot, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, snap, opts)
	return artifacts, err
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
