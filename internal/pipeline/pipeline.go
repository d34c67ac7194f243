package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/componentscan/internal/extractor"
	"github.com/nao1215/componentscan/internal/model"
)

// Analysis is the working state of one component while its steps run.
type Analysis struct {
	// Identifier is the repository path of the component.
	Identifier string

	// Depth is the distance from the crawl root (root is 0).
	Depth int

	// Graph is the result being built. Graph.Root is the component node.
	Graph *model.DependencyGraph

	// Extraction holds the references found in the template. It is empty,
	// never nil, once the extract step has run.
	Extraction *extractor.Result

	// PerformedSteps lists the steps that completed, in order.
	PerformedSteps []string

	// Errors collects step failures when the pipeline continues on error.
	Errors []error
}

// NewAnalysis creates the state for analyzing identifier.
func NewAnalysis(runID, identifier string, depth int) *Analysis {
	return &Analysis{
		Identifier:     identifier,
		Depth:          depth,
		Graph:          model.NewDependencyGraph(runID, model.NewComponentNode(identifier)),
		Extraction:     &extractor.Result{},
		PerformedSteps: make([]string, 0),
	}
}

// Node returns the component being analyzed.
func (a *Analysis) Node() *model.ComponentNode {
	return a.Graph.Root
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the analysis
// state accumulated by previous steps.
type Step interface {
	// Do executes the step. Missing artifacts are recorded in the analysis
	// and nil is returned; an error means the analysis cannot continue.
	Do(ctx context.Context, a *Analysis) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// A Pipeline holds no per-component state and may run many analyses concurrently.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps against a in order. Cancellation is checked
// before each step. With continueOnError, step failures are collected in
// a.Errors and nil is returned.
func (p *Pipeline) Execute(ctx context.Context, a *Analysis) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("analysis cancelled",
				"step", step.Name(),
				"component", a.Identifier,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"component", a.Identifier,
		)

		if err := step.Do(ctx, a); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"component", a.Identifier,
				"error", err,
			)
			if !p.continueOnError {
				return err
			}
			a.Errors = append(a.Errors, err)
			continue
		}

		a.PerformedSteps = append(a.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
