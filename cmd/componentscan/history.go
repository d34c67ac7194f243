package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/componentscan/internal/config"
	"github.com/nao1215/componentscan/internal/crawler"
	"github.com/nao1215/componentscan/internal/database"
	"github.com/nao1215/componentscan/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [component-path]",
		Short: "List stored crawl results",
		Long: `History shows the crawl results stored in the local database.

Without arguments it lists every component that has been crawled. With a
component path it lists the stored runs of that component, newest first.
Use --show to print a stored graph again.

Examples:
  # List crawled components
  componentscan history

  # List runs of a component
  componentscan history acme/components/hero

  # Print a stored run as Markdown
  componentscan history --show 6f1c... -f markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Project file path (default: .componentscan in current or home directory, then the XDG config directory)")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().StringP("show", "s", "",
		"Print the stored graph of a run ID")
	cmd.Flags().StringP("format", "f", report.FormatText,
		"Format for --show: json, react, markdown or text")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if err := loadProjectFile(cmd, cfg); err != nil {
		return err
	}
	if err := applyDBDir(cmd, cfg); err != nil {
		return err
	}

	showID, err := cmd.Flags().GetString("show")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No crawl history found.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'componentscan crawl <component-path>' to analyze a component.")
		return nil
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case showID != "":
		return showRun(ctx, db, out, showID, format)
	case len(args) == 1:
		searchRoot := ""
		if cfg.Project != nil {
			searchRoot = cfg.Project.SearchRoot
		}
		path := crawler.New(nil, crawler.WithSearchRoot(searchRoot)).ResolvePath(args[0])
		return listRuns(ctx, db, out, path)
	default:
		return listComponents(ctx, db, out)
	}
}

// listComponents prints every component with stored runs.
func listComponents(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	components, err := db.ListComponents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list components: %w", err)
	}

	if len(components) == 0 {
		fmt.Fprintln(out, "No crawled components found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Crawled components (%d):\n\n", len(components))
	for _, c := range components {
		fmt.Fprintf(out, "  • %s\n", c)
	}
	fmt.Fprintln(out, "\nUse 'componentscan history <component-path>' to see its runs.")
	return nil
}

// listRuns prints the stored runs of one component.
func listRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, component string) error {
	runs, err := db.ListRuns(ctx, component)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No crawl history found for %s\n", component)
		return nil
	}

	fmt.Fprintf(out, "Crawl history for %s (%d runs):\n\n", component, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %5s  %5s  %6s  %s\n",
		"Run ID", "Date", "Comp", "Libs", "Models", "Size")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, r := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %5d  %5d  %6d  %s\n",
			r.RunID,
			r.AnalyzedAt.Format("2006-01-02 15:04:05"),
			r.Components,
			r.Clientlibs,
			r.SlingModels,
			formatSize(r.CompressedSize),
		)
	}

	fmt.Fprintln(out, "\nUse 'componentscan history --show <run-id>' to print a stored graph.")
	return nil
}

// showRun prints one stored graph.
func showRun(ctx context.Context, db *database.CrawlDB, out io.Writer, runID, format string) error {
	g, err := db.GetGraphByRunID(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if g == nil {
		return fmt.Errorf("%w: run %s", ErrNoHistory, runID)
	}

	w, err := report.NewWriter(format, out)
	if err != nil {
		return err
	}
	_, err = w.Write(g)
	return err
}

// formatSize formats a byte count.
func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
