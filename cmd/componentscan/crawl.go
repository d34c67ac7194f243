package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/componentscan/internal/config"
	"github.com/nao1215/componentscan/internal/model"
	"github.com/nao1215/componentscan/internal/report"
	"github.com/spf13/cobra"
)

// stdoutPath selects standard output instead of a report file.
const stdoutPath = "-"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <component-path>",
		Short: "Build the dependency graph of an AEM component",
		Long: `Crawl reads a component from the repository and writes its dependency graph.

The component path is either absolute (/apps/acme/components/hero) or a
resource type relative to the search root (acme/components/hero).

For every component the crawl collects:
- component metadata and the HTL/JSP template
- client library categories and the files they contain
- Sling Models referenced via data-sly-use
- child components included via data-sly-resource
- the sling:resourceSuperType chain
- dialog and other cq configurations

Examples:
  # Analyze one component and write component-dependencies.json
  componentscan crawl /apps/acme/components/hero

  # Follow child components three levels deep
  componentscan crawl -r -d 3 acme/components/page

  # Write a React migration plan
  componentscan crawl -f react -o hero-react.json acme/components/hero

  # Write a zstd-compressed report
  componentscan crawl -o hero.json.zst acme/components/hero

  # Print a Markdown report to stdout
  componentscan crawl -f markdown -o - acme/components/hero`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// addReportFlags adds the flags that select where and how a graph is written.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		"Report file path; '-' writes to stdout, a .zst suffix compresses")
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Report format: json, react, markdown or text")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not print the summary when writing to a file")
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Output, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if cfg.Format, err = cmd.Flags().GetString("format"); err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
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

	start := time.Now()
	g, err := c.Crawl(ctx, cfg.Targets[0], crawlOptions(cfg))
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	logger.Info("crawl completed", "elapsed", time.Since(start).Round(time.Millisecond))

	if err := writeReport(cmd, cfg, g, quiet); err != nil {
		return err
	}

	saveGraph(context.WithoutCancel(ctx), cfg, g, logger)
	return nil
}

// writeReport renders g in the configured format. A report file that
// could not be written completely is removed.
func writeReport(cmd *cobra.Command, cfg *config.Config, g *model.DependencyGraph, quiet bool) error {
	out := cmd.OutOrStdout()

	if cfg.Output == stdoutPath {
		w, err := report.NewWriter(cfg.Format, out)
		if err != nil {
			return err
		}
		_, err = w.Write(g)
		return err
	}

	f, err := report.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if err := renderTo(f, cfg.Format, g); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to write report: %w", err)
	}

	if !quiet {
		if _, err := report.NewTextWriter(out).Write(g); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Report written to %s\n", f.Name())
	return nil
}

// renderTo writes g to w in format.
func renderTo(w io.Writer, format string, g *model.DependencyGraph) error {
	rw, err := report.NewWriter(format, w)
	if err != nil {
		return err
	}
	n, err := rw.Write(g)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("report is empty")
	}
	return nil
}
