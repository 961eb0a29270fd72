package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/paper"
	"github.com/matzehuels/papergraph/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output base path; derived from the input when empty
	formats  string // comma-separated output formats
	selected string // paper id to style around; "first" selects the first result
	seed     uint64
	noCache  bool
}

// renderCommand creates the render command. It lays out a saved search
// response without contacting the API.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{selected: "first"}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a saved search response to SVG, DOT or JSON",
		Long: `Render a search response saved as JSON ({"results": [...], "graph": {...}} or a
bare array of results). Use "-" or omit the file to read standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return c.runRender(cmd.Context(), input, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: input name, or \"graph\" for stdin)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), dot, json (comma-separated)")
	cmd.Flags().StringVar(&opts.selected, "select", opts.selected, "paper id to select; \"first\" for the first result, \"\" for none")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "layout seed (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	registerFormatCompletion(cmd)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	resp, err := readResponse(input)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %d results from %s", len(resp.Results), describeInput(input))

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := cfg.PipelineOptions()
	popts.Formats = parseFormats(opts.formats)
	popts.Selected = opts.selected
	if opts.selected == "first" {
		popts.Selected = ""
		if len(resp.Results) > 0 {
			popts.Selected = resp.Results[0].ID
		}
	}
	if opts.seed != 0 {
		popts.Layout.Seed = opts.seed
	}

	result, err := runner.Execute(ctx, pipeline.Input{Results: resp.Results, Graph: resp.Graph}, popts)
	if err != nil {
		return err
	}
	if result.Graph.Empty() {
		printWarning(emptyGraphHint)
		return nil
	}
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)

	output := opts.output
	if output == "" {
		output = "graph"
		if input != "-" {
			output = strings.TrimSuffix(input, filepath.Ext(input))
		}
	}
	return writeArtifacts(output, result.Artifacts)
}

// readResponse decodes a search response from a file, or stdin for "-".
func readResponse(input string) (*paper.SearchResponse, error) {
	var r io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, pgerrors.Wrap(pgerrors.ErrCodeFileNotFound, err, "%s", input)
			}
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var resp paper.SearchResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidFormat, err, "decode %s", input)
	}
	return &resp, nil
}

func describeInput(input string) string {
	if input == "-" {
		return "stdin"
	}
	return fmt.Sprintf("%q", input)
}
