package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/componentscan/internal/compare"
	"github.com/nao1215/componentscan/internal/config"
	"github.com/nao1215/componentscan/internal/crawler"
	"github.com/nao1215/componentscan/internal/database"
	"github.com/nao1215/componentscan/internal/model"
	"github.com/nao1215/componentscan/internal/pipeline"
	"github.com/nao1215/componentscan/internal/report"
	"github.com/spf13/cobra"
)

// ErrNoHistory is returned when --from-history finds no stored run.
var ErrNoHistory = errors.New("no stored crawl found")

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <component-a> <component-b>",
		Short: "Compare the dependency graphs of two components",
		Long: `Compare crawls two components and reports how they differ:
- component properties present in one or both with different values
- dialog fields only in A, only in B, or changed
- clientlib categories and Sling Models
- clientlib files whose content digest differs

With --from-history the latest stored crawl of each component is used
instead of contacting the repository.

Examples:
  # Compare a component with its v2
  componentscan compare acme/components/teaser acme/components/teaser/v2

  # Compare the last stored crawls as Markdown
  componentscan compare --from-history -f markdown \
    acme/components/teaser acme/components/teaser/v2`,
		Args: cobra.ExactArgs(2),
		RunE: runCompareCmd,
	}

	addCrawlFlags(cmd)

	cmd.Flags().Bool("from-history", false,
		"Use the latest stored crawl of each component")
	cmd.Flags().StringP("format", "f", report.FormatText,
		"Output format: text, json or markdown")
	cmd.Flags().StringP("output", "o", stdoutPath,
		"Output file path; '-' writes to stdout")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Format, err = cmd.Flags().GetString("format"); err != nil {
		return err
	}
	if cfg.Format == report.FormatReact {
		return fmt.Errorf("%w: react", report.ErrComparisonUnsupported)
	}
	if cfg.Output, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	fromHistory, err := cmd.Flags().GetBool("from-history")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCrawler(cfg, logger)
	if err != nil {
		return err
	}

	var graphs []*model.DependencyGraph
	if fromHistory {
		graphs, err = loadLatest(ctx, cfg, c, args)
	} else {
		graphs, err = crawlBoth(ctx, cfg, c, args, logger)
	}
	if err != nil {
		return err
	}

	result := compare.Compare(graphs[0], graphs[1])
	return writeComparison(cmd, cfg, result)
}

// crawlBoth crawls the two components concurrently, each as its own run,
// and stores both in the history database.
func crawlBoth(ctx context.Context, cfg *config.Config, c *crawler.Crawler, ids []string, logger *slog.Logger) ([]*model.DependencyGraph, error) {
	bp := pipeline.NewBatchProcessor(c.WithOptions(crawlOptions(cfg)),
		pipeline.WithConcurrency(len(ids)),
		pipeline.WithBatchLogger(logger),
	)
	results, err := bp.ProcessBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	graphs := make([]*model.DependencyGraph, len(results))
	for i, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("crawl of %s failed: %w", r.Identifier, r.Err)
		}
		graphs[i] = r.Graph
	}
	for _, g := range graphs {
		saveGraph(context.WithoutCancel(ctx), cfg, g, logger)
	}
	return graphs, nil
}

// loadLatest reads the most recent stored graph of each component.
func loadLatest(ctx context.Context, cfg *config.Config, c *crawler.Crawler, ids []string) ([]*model.DependencyGraph, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	graphs := make([]*model.DependencyGraph, 0, len(ids))
	for _, id := range ids {
		path := c.ResolvePath(id)
		g, err := db.GetLatestGraph(ctx, path)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoHistory, path)
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// writeComparison renders the result. When writing to a file, a text
// summary is printed alongside.
func writeComparison(cmd *cobra.Command, cfg *config.Config, result *model.Comparison) error {
	out := cmd.OutOrStdout()

	if cfg.Output == stdoutPath {
		w, err := report.NewWriter(cfg.Format, out)
		if err != nil {
			return err
		}
		_, err = w.WriteComparison(result)
		return err
	}

	f, err := report.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	fw, err := report.NewWriter(cfg.Format, f)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}

	w := report.NewMultiWriter(fw, report.NewTextWriter(out))
	if _, err := w.WriteComparison(result); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to write comparison: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to write comparison: %w", err)
	}
	fmt.Fprintf(out, "Comparison written to %s\n", f.Name())
	return nil
}
