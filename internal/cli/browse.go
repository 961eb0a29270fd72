package cli

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/papergraph/pkg/search"
)

// browseCommand creates the interactive browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "browse [query]",
		Short: "Search and explore the paper graph interactively",
		Long: `Browse opens an interactive view. Type a query, then move through the
results to select papers and see how they connect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd.Context(), strings.Join(args, " "), noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runBrowse(ctx context.Context, query string, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	client, err := c.newClient(cfg, runner.Cache)
	if err != nil {
		return err
	}

	session := search.NewSession(client, runner, search.Options{
		Pipeline: cfg.PipelineOptions(),
		TopK:     cfg.API.TopK,
		Logger:   c.Logger,
	})
	defer session.Close()

	p := tea.NewProgram(NewBrowseModel(ctx, session, query), tea.WithContext(ctx), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	fm, ok := finalModel.(BrowseModel)
	if !ok || fm.Selected() == "" {
		printDetail("No selection made")
		return nil
	}
	printInfo("Selected %s", StyleHighlight.Render(fm.Selected()))
	printNextStep("Check its status", appName+" status "+fm.Selected())
	return nil
}
