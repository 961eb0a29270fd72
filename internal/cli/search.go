package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/paper"
	"github.com/matzehuels/papergraph/pkg/pipeline"
	"github.com/matzehuels/papergraph/pkg/render"
)

// searchOpts holds the command-line flags for the search command.
type searchOpts struct {
	topK     int
	selected string
	formats  string
	output   string
	seed     uint64
	noCache  bool
	refresh  bool
	fetch    bool
}

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var opts searchOpts

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search papers and lay out their citation graph",
		Long: `Search the paper backend, resolve the hits into a citation graph and lay it out.

The first result is selected unless --select names another paper. With
--output the styled graph is written in every --format requested. When the
response carries no graph, --fetch-graph asks the backend's graph endpoint
before falling back to a graph synthesized from related ids.`,
		Example: `  papergraph search "low rank adaptation"
  papergraph search "diffusion models" --format svg,json -o diffusion`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "number of results (default from config)")
	cmd.Flags().StringVar(&opts.selected, "select", "", "paper id to select instead of the first result")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s) when writing: svg (default), dot, json")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "base path for rendered output")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "layout seed (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute cached layouts and artifacts")
	cmd.Flags().BoolVar(&opts.fetch, "fetch-graph", false, "fetch the backend graph when the response has none")
	registerFormatCompletion(cmd)

	return cmd
}

func (c *CLI) runSearch(ctx context.Context, query string, opts searchOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	client, err := c.newClient(cfg, runner.Cache)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Searching %q...", query))
	spinner.Start()
	resp, err := client.Search(ctx, query, opts.topK)
	if err != nil {
		spinner.StopWithError("Search failed")
		return err
	}

	if len(resp.Results) == 0 {
		spinner.Stop()
		printWarning("No results for %q", query)
		return nil
	}

	graphData := resp.Graph
	if opts.fetch && graphData == nil {
		spinner.SetMessage("Fetching citation graph...")
		if graphData, err = fetchGraph(ctx, client); err != nil {
			spinner.StopWithError("Graph fetch failed")
			return err
		}
	}

	popts := cfg.PipelineOptions()
	popts.Selected = resp.Results[0].ID
	if opts.selected != "" {
		popts.Selected = opts.selected
	}
	if opts.seed != 0 {
		popts.Layout.Seed = opts.seed
	}
	popts.Refresh = opts.refresh
	if opts.output != "" {
		popts.Formats = parseFormats(opts.formats)
	}

	spinner.SetMessage("Laying out %d results...", len(resp.Results))
	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, pipeline.Input{Results: resp.Results, Graph: graphData}, popts)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Laid out %d papers", result.Stats.NodeCount))

	fmt.Println(resultsTable(resp.Results, result.Snapshot.Selected))
	if result.Graph.Empty() {
		printWarning(emptyGraphHint)
		return nil
	}
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.LayoutHit)
	printReport(result.Report)
	if opts.selected != "" && result.Snapshot.Selected == "" {
		printWarning("%s is not in the graph, showing the neutral view", opts.selected)
	}

	if opts.output == "" {
		printNextStep("Render it", fmt.Sprintf("papergraph search %q -o graph", query))
		return nil
	}
	return writeArtifacts(opts.output, result.Artifacts)
}

// graphFetcher is the part of the API client that serves the full graph.
type graphFetcher interface {
	Graph(ctx context.Context) (*paper.GraphData, error)
}

// fetchGraph asks the backend for its citation graph. A backend without one
// yields nil so the pipeline synthesizes the graph from related ids.
func fetchGraph(ctx context.Context, g graphFetcher) (*paper.GraphData, error) {
	data, err := g.Graph(ctx)
	if pgerrors.Is(err, pgerrors.ErrCodeGraphNotFound) {
		printWarning("Backend has no citation graph, using related papers")
		return nil, nil
	}
	return data, err
}

// writeArtifacts writes each artifact to base.format.
func writeArtifacts(base string, artifacts map[string][]byte) error {
	base = basePath(base)
	for format, data := range artifacts {
		path := base + "." + format
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

// basePath strips a known format extension from an output path.
func basePath(output string) string {
	ext := filepath.Ext(output)
	if render.ValidateFormat(strings.TrimPrefix(ext, ".")) == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
