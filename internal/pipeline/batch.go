package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/componentscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// Crawler analyzes one root component and returns its dependency graph.
type Crawler interface {
	Crawl(ctx context.Context, identifier string) (*model.DependencyGraph, error)
}

// BatchResult is the outcome of crawling one root.
type BatchResult struct {
	Identifier string
	Graph      *model.DependencyGraph
	Err        error
}

// BatchProcessor crawls several root components concurrently.
// Each root is an independent run; nothing is shared between them.
type BatchProcessor struct {
	crawler     Crawler
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(c Crawler, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		crawler:     c,
		concurrency: 4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every identifier and returns one result per
// identifier in input order. A failed crawl is recorded in its result and
// does not stop the others; the returned error is only set on cancellation.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, identifiers []string) ([]*BatchResult, error) {
	bp.logger.Info("starting batch crawl",
		"total_components", len(identifiers),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	results := make([]*BatchResult, len(identifiers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, id := range identifiers {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = &BatchResult{Identifier: id, Err: ctx.Err()}
				return ctx.Err()
			default:
			}

			graph, err := bp.crawler.Crawl(ctx, id)
			results[i] = &BatchResult{Identifier: id, Graph: graph, Err: err}
			if err != nil {
				bp.logger.Warn("crawl failed", "component", id, "error", err)
				return nil
			}

			bp.logger.Info("crawl completed", "component", id)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch crawl complete",
		"total_components", len(identifiers),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
