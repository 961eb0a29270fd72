package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/papergraph/internal/server"
	"github.com/matzehuels/papergraph/pkg/search"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph to a web frontend over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
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

	srv := server.New(server.Config{
		Session:        session,
		Runner:         runner,
		Status:         client,
		Logger:         c.Logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	printInfo("Serving on %s", StyleHighlight.Render(addr))
	printKeyValue("search api", cfg.API.BaseURL)
	if noCache {
		printKeyValue("cache", "disabled")
	} else {
		printKeyValue("cache", cfg.Cache.Backend)
	}
	return srv.ListenAndServe(ctx, addr)
}
