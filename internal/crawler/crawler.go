package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nao1215/componentscan/internal/asset"
	"github.com/nao1215/componentscan/internal/clientlib"
	"github.com/nao1215/componentscan/internal/inheritance"
	"github.com/nao1215/componentscan/internal/metrics"
	"github.com/nao1215/componentscan/internal/model"
	"github.com/nao1215/componentscan/internal/pipeline"
	"github.com/nao1215/componentscan/internal/repository"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyIdentifier is returned when no component identifier is given.
	ErrEmptyIdentifier = errors.New("component identifier is empty")

	// ErrIdentityUnavailable is returned when neither metadata nor a
	// template can be obtained for the root component.
	ErrIdentityUnavailable = errors.New("component identity could not be determined")

	// ErrInvalidDepth is returned for a negative MaxDepth.
	ErrInvalidDepth = errors.New("max depth must not be negative")
)

// DefaultMaxDepth is the recursion ceiling used when none is configured.
const DefaultMaxDepth = 3

// DefaultSearchRoot prefixes resource types that are not absolute paths.
const DefaultSearchRoot = "/apps"

// DefaultExcludedNamespaces are child resource types that are never expanded.
var DefaultExcludedNamespaces = []string{"foundation/", "/libs/foundation/"}

// Reasons recorded on child descriptors that were not expanded.
const (
	SkipExcludedNamespace = "excluded namespace"
	SkipDepthLimit        = "depth limit"
	SkipNoResourceType    = "no resource type"
)

// Options controls one crawl run.
type Options struct {
	// Recursive expands child components.
	Recursive bool

	// MaxDepth is the deepest level analyzed below the root (root is 0).
	MaxDepth int

	// IncludeDependencies runs clientlib, model and inheritance resolution.
	IncludeDependencies bool

	// FetchAssets downloads referenced images for size, digest and EXIF.
	FetchAssets bool

	// Concurrency is the number of siblings expanded in parallel at each
	// level. Values below 2 expand sequentially.
	Concurrency int
}

// DefaultOptions returns the options used when the caller sets none.
func DefaultOptions() Options {
	return Options{
		MaxDepth:            DefaultMaxDepth,
		IncludeDependencies: true,
		Concurrency:         1,
	}
}

// Crawler builds dependency graphs of components in one repository.
// A Crawler holds no per-run state; every Crawl starts with an empty
// visited set, an empty response memo and fresh metrics.
type Crawler struct {
	client             *repository.Client
	logger             *slog.Logger
	searchRoot         string
	excluded           []string
	terminal           []string
	clientlibLocations []string
	modelLocations     []string
	templateCandidates []string
	keepFileContent    bool
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithSearchRoot sets the path prepended to relative resource types.
func WithSearchRoot(root string) Option {
	return func(c *Crawler) {
		if root != "" {
			c.searchRoot = strings.TrimRight(root, "/")
		}
	}
}

// WithExcludedNamespaces sets the child resource type prefixes never expanded.
func WithExcludedNamespaces(prefixes []string) Option {
	return func(c *Crawler) {
		if len(prefixes) > 0 {
			c.excluded = prefixes
		}
	}
}

// WithTerminalNamespaces sets the super type prefixes that end an inheritance walk.
func WithTerminalNamespaces(prefixes []string) Option {
	return func(c *Crawler) {
		if len(prefixes) > 0 {
			c.terminal = prefixes
		}
	}
}

// WithClientlibLocations sets the clientlib path templates.
func WithClientlibLocations(templates []string) Option {
	return func(c *Crawler) {
		c.clientlibLocations = templates
	}
}

// WithModelSourceLocations sets the model source path templates.
func WithModelSourceLocations(templates []string) Option {
	return func(c *Crawler) {
		c.modelLocations = templates
	}
}

// WithTemplateCandidates sets the template path candidates.
func WithTemplateCandidates(templates []string) Option {
	return func(c *Crawler) {
		c.templateCandidates = templates
	}
}

// WithFileContent keeps clientlib file content in the graph.
func WithFileContent(keep bool) Option {
	return func(c *Crawler) {
		c.keepFileContent = keep
	}
}

// New creates a crawler reading from client.
func New(client *repository.Client, opts ...Option) *Crawler {
	c := &Crawler{
		client:     client,
		logger:     slog.Default(),
		searchRoot: DefaultSearchRoot,
		excluded:   DefaultExcludedNamespaces,
		terminal:   inheritance.DefaultTerminalPrefixes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolvePath turns a resource type into a repository path.
func (c *Crawler) ResolvePath(resourceType string) string {
	if resourceType == "" || strings.HasPrefix(resourceType, "/") {
		return resourceType
	}
	return c.searchRoot + "/" + resourceType
}

// Crawl analyzes identifier and, when opts.Recursive is set, its children.
// Only a failure to identify the root component is returned as an error;
// every other missing artifact is recorded as absent in the graph.
func (c *Crawler) Crawl(ctx context.Context, identifier string, opts Options) (*model.DependencyGraph, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrEmptyIdentifier
	}
	if opts.MaxDepth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, opts.MaxDepth)
	}

	r := c.newRun(opts)
	root := c.ResolvePath(identifier)
	r.claim(root)

	c.logger.Info("crawling component",
		"component", root,
		"run_id", r.id,
		"recursive", opts.Recursive,
		"max_depth", opts.MaxDepth,
	)

	a, err := r.analyze(ctx, root, 0)
	if err != nil {
		return nil, err
	}
	if node := a.Node(); !node.MetadataFound && node.Template == nil {
		return nil, fmt.Errorf("%w: %s", ErrIdentityUnavailable, root)
	}

	if err := r.expand(ctx, a); err != nil {
		return nil, err
	}

	stats, err := r.metrics.Snapshot()
	if err != nil {
		c.logger.Warn("fetch statistics unavailable", "error", err)
	} else {
		a.Graph.Stats = stats
	}

	c.logger.Info("crawl finished",
		"component", root,
		"components", a.Graph.ComponentCount(),
		"clientlibs", len(a.Graph.Clientlibs),
		"models", len(a.Graph.SlingModels),
	)
	return a.Graph, nil
}

// WithOptions binds opts to c for callers that crawl many roots alike.
func (c *Crawler) WithOptions(opts Options) *Bound {
	return &Bound{crawler: c, opts: opts}
}

// Bound is a Crawler with fixed options.
type Bound struct {
	crawler *Crawler
	opts    Options
}

// Crawl runs the bound crawler.
func (b *Bound) Crawl(ctx context.Context, identifier string) (*model.DependencyGraph, error) {
	return b.crawler.Crawl(ctx, identifier, b.opts)
}

// run is the traversal context of one Crawl.
type run struct {
	id       string
	opts     Options
	crawler  *Crawler
	metrics  *metrics.Registry
	pipeline *pipeline.Pipeline

	mu      sync.Mutex
	visited map[string]bool
}

func (c *Crawler) newRun(opts Options) *run {
	reg := metrics.NewRegistry()
	client := c.client.Session(reg)

	p := pipeline.New(pipeline.WithLogger(c.logger))
	p.AddSteps(
		pipeline.NewMetadataStep(client, c.logger),
		pipeline.NewTemplateStep(client, c.templateCandidates, c.logger),
		pipeline.NewExtractStep(),
		pipeline.NewConfigurationStep(client, c.logger),
	)
	if opts.IncludeDependencies {
		resolver := clientlib.NewResolver(client,
			clientlib.WithLocator(clientlib.NewLocator(c.clientlibLocations)),
			clientlib.WithFileContent(c.keepFileContent),
			clientlib.WithLogger(c.logger),
		)
		walker := inheritance.NewWalker(client,
			inheritance.WithTerminalPrefixes(c.terminal),
			inheritance.WithPathResolver(c.ResolvePath),
			inheritance.WithLogger(c.logger),
		)
		p.AddSteps(
			pipeline.NewBundleStep(resolver),
			pipeline.NewModelStep(client, c.modelLocations, c.logger),
			pipeline.NewInheritanceStep(walker),
		)
	}
	var inspector *asset.Inspector
	if opts.FetchAssets {
		inspector = asset.NewInspector(client, asset.WithLogger(c.logger))
	}
	p.AddStep(pipeline.NewAssetStep(inspector))

	return &run{
		id:       uuid.NewString(),
		opts:     opts,
		crawler:  c,
		metrics:  reg,
		pipeline: p,
		visited:  make(map[string]bool),
	}
}

// claim marks identifier as visited. It reports false when another
// reference claimed it first.
func (r *run) claim(identifier string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.visited[identifier] {
		return false
	}
	r.visited[identifier] = true
	return true
}

func (r *run) analyze(ctx context.Context, identifier string, depth int) (*pipeline.Analysis, error) {
	a := pipeline.NewAnalysis(r.id, identifier, depth)
	if err := r.pipeline.Execute(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", identifier, err)
	}
	r.metrics.RecordComponent()
	return a, nil
}

// pending is a child descriptor claimed for analysis at the next level.
type pending struct {
	parent *pipeline.Analysis
	desc   *model.ChildComponentDescriptor
	target string
	result *pipeline.Analysis
}

// expand analyzes the descendants of root one level at a time, so a
// component is always claimed through its shallowest reference. Child
// dependencies are then merged upward, deepest level first.
func (r *run) expand(ctx context.Context, root *pipeline.Analysis) error {
	if !r.opts.Recursive {
		return nil
	}

	levels := make([][]*pending, 0)
	frontier := []*pipeline.Analysis{root}
	for len(frontier) > 0 {
		work := r.claimChildren(frontier)
		if len(work) == 0 {
			break
		}
		if err := r.analyzeLevel(ctx, work); err != nil {
			return err
		}
		levels = append(levels, work)

		frontier = make([]*pipeline.Analysis, 0, len(work))
		for _, p := range work {
			frontier = append(frontier, p.result)
		}
	}

	for i := len(levels) - 1; i >= 0; i-- {
		for _, p := range levels[i] {
			p.desc.ResolvedDependencies = p.result.Graph
			mergeInto(p.parent.Graph, p.result.Graph)
		}
	}
	return nil
}

// claimChildren marks the children of every analysis in frontier, in
// order, and returns the ones to analyze.
func (r *run) claimChildren(frontier []*pipeline.Analysis) []*pending {
	work := make([]*pending, 0)
	for _, a := range frontier {
		for _, child := range a.Node().ChildComponents {
			switch {
			case child.ResourceType == "":
				child.Skipped = SkipNoResourceType
			case r.crawler.isExcluded(child.ResourceType):
				child.Skipped = SkipExcludedNamespace
			case a.Depth >= r.opts.MaxDepth:
				child.Skipped = SkipDepthLimit
			default:
				target := r.crawler.ResolvePath(child.ResourceType)
				if !r.claim(target) {
					child.Ref = target
					continue
				}
				work = append(work, &pending{parent: a, desc: child, target: target})
			}
		}
	}
	return work
}

// analyzeLevel runs the pipeline for every pending child, in parallel when
// the run allows it.
func (r *run) analyzeLevel(ctx context.Context, work []*pending) error {
	analyzeChild := func(ctx context.Context, p *pending) error {
		ca, err := r.analyze(ctx, p.target, p.parent.Depth+1)
		if err != nil {
			return err
		}
		p.result = ca
		return nil
	}

	if r.opts.Concurrency > 1 && len(work) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Concurrency)
		for _, p := range work {
			g.Go(func() error {
				return analyzeChild(gctx, p)
			})
		}
		return g.Wait()
	}

	for _, p := range work {
		if err := analyzeChild(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) isExcluded(resourceType string) bool {
	for _, prefix := range c.excluded {
		if strings.HasPrefix(resourceType, prefix) {
			return true
		}
	}
	return false
}

// mergeInto adds the clientlibs and models of child to parent. A category
// present in both keeps one entry with the union of kinds.
func mergeInto(parent, child *model.DependencyGraph) {
	if child == nil {
		return
	}
	for category, dep := range child.Clientlibs {
		if existing, ok := parent.Clientlibs[category]; ok {
			parent.Clientlibs[category] = existing.Clone(model.UnionKinds(existing.Kinds, dep.Kinds))
			continue
		}
		parent.Clientlibs[category] = dep
	}

	parent.SetSlingModels(append(append([]string{}, parent.SlingModels...), child.SlingModels...))

	known := make(map[string]bool, len(parent.ModelSources))
	for _, src := range parent.ModelSources {
		known[src.Class] = true
	}
	for _, src := range child.ModelSources {
		if !known[src.Class] {
			known[src.Class] = true
			parent.ModelSources = append(parent.ModelSources, src)
		}
	}
}
