package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/paper"
)

// statusCommand creates the status command.
func (c *CLI) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status <paper-id>...",
		Short:   "Show ingestion status for papers",
		Example: `  papergraph status 1706.03762 2106.09685`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context(), args)
		},
	}
}

func (c *CLI) runStatus(ctx context.Context, ids []string) error {
	if err := pgerrors.ValidatePaperIDs(ids); err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	client, err := c.newClient(cfg, nil)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Checking %d papers...", len(ids)))
	spinner.Start()
	statuses, err := client.StatusBatched(ctx, ids)
	if err != nil {
		spinner.StopWithError("Status lookup failed")
		return err
	}
	spinner.Stop()
	fmt.Println(statusTable(statuses))
	return nil
}

func statusColor(s paper.Status) lipgloss.Color {
	switch s {
	case paper.StatusEmbedded:
		return colorGreen
	case paper.StatusSeen:
		return colorCyan
	case paper.StatusQueued:
		return colorYellow
	case paper.StatusError:
		return colorRed
	default:
		return colorGray
	}
}

func statusTable(statuses []paper.PaperStatus) string {
	rows := make([][]string, len(statuses))
	for i, s := range statuses {
		inGraph := "—"
		if s.InGraph {
			inGraph = iconSuccess
		}
		rows[i] = []string{s.ID, string(s.Status), inGraph}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Paper", "Status", "In graph").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 1 && row >= 0 && row < len(statuses) {
				return base.Foreground(statusColor(statuses[row].Status))
			}
			return base.Foreground(colorWhite)
		}).
		Render()
}
