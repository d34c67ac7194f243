// Package clientlib resolves client library categories to their storage
// location and member files, following declared dependencies.
package clientlib

import (
	"bufio"
	"context"
	"encoding/hex"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/nao1215/componentscan/internal/extractor"
	"github.com/nao1215/componentscan/internal/model"
	"golang.org/x/crypto/sha3"
)

// Library node properties.
const (
	propCategories   = "categories"
	propDependencies = "dependencies"
	propEmbed        = "embed"
)

// Fetcher is the subset of the repository client the resolver needs.
type Fetcher interface {
	GetJSON(ctx context.Context, path string) (map[string]any, error)
	GetText(ctx context.Context, path string) (string, error)
}

// Resolver resolves categories against a repository.
//
// A Resolver remembers every category it has looked up, so one Resolver
// shared by all components of a crawl run locates each category at most
// once. It is safe for concurrent use.
type Resolver struct {
	fetcher     Fetcher
	locator     *Locator
	logger      *slog.Logger
	withContent bool

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	once sync.Once
	dep  *model.BundleDependency
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLocator sets the candidate path templates.
func WithLocator(l *Locator) Option {
	return func(r *Resolver) {
		r.locator = l
	}
}

// WithLogger sets the logger for warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithFileContent controls whether file contents are kept in the result.
// Sizes and digests are always recorded.
func WithFileContent(keep bool) Option {
	return func(r *Resolver) {
		r.withContent = keep
	}
}

// NewResolver creates a resolver reading from f.
func NewResolver(f Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:     f,
		locator:     NewLocator(nil),
		logger:      slog.Default(),
		withContent: true,
		entries:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve expands seeds breadth-first over declared dependencies and
// embeds. The result has exactly one entry per category reached. Seed
// categories carry the kinds they were included with; categories reached
// only through another library carry both kinds.
func (r *Resolver) Resolve(ctx context.Context, seeds []extractor.BundleRef) map[string]*model.BundleDependency {
	kinds := make(map[string][]model.BundleKind, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, s := range seeds {
		kinds[s.Category] = model.UnionKinds(kinds[s.Category], s.Kinds)
		queue = append(queue, s.Category)
	}

	processed := make(map[string]bool)
	result := make(map[string]*model.BundleDependency)

	for len(queue) > 0 {
		category := queue[0]
		queue = queue[1:]
		if category == "" || processed[category] {
			continue
		}
		processed[category] = true

		dep := r.lookup(ctx, category)

		k, seeded := kinds[category]
		if !seeded || len(k) == 0 {
			k = model.AllBundleKinds()
		}
		result[category] = dep.Clone(k)

		queue = append(queue, dep.Dependencies...)
		queue = append(queue, dep.Embeds...)
	}
	return result
}

// lookup returns the shared resolution of category, resolving it on first use.
func (r *Resolver) lookup(ctx context.Context, category string) *model.BundleDependency {
	r.mu.Lock()
	e, ok := r.entries[category]
	if !ok {
		e = &entry{}
		r.entries[category] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.dep = r.resolve(ctx, category)
	})
	return e.dep
}

func (r *Resolver) resolve(ctx context.Context, category string) *model.BundleDependency {
	dep := model.NewUnresolvedBundle(category, nil)

	for _, candidate := range r.locator.Candidates(category) {
		props, err := r.fetcher.GetJSON(ctx, candidate+".json")
		if err != nil {
			r.logger.Debug("clientlib candidate not found", "category", category, "path", candidate, "error", err)
			continue
		}
		if declared := model.StringList(props[propCategories]); len(declared) > 0 && !contains(declared, category) {
			r.logger.Debug("clientlib candidate declares other categories", "category", category, "path", candidate)
			continue
		}

		p := candidate
		dep.Path = &p
		dep.Resolved = true
		if deps := model.StringList(props[propDependencies]); deps != nil {
			dep.Dependencies = deps
		}
		dep.Embeds = model.StringList(props[propEmbed])

		for _, kind := range model.AllBundleKinds() {
			if files := r.collectFiles(ctx, candidate, kind); len(files) > 0 {
				dep.Files[kind.String()] = files
			}
		}
		return dep
	}

	r.logger.Warn("clientlib could not be resolved", "category", category)
	return dep
}

// collectFiles lists the member files of one kind. A <kind>.txt manifest
// takes precedence and keeps its concatenation order; otherwise the <kind>
// folder is listed by name.
func (r *Resolver) collectFiles(ctx context.Context, libPath string, kind model.BundleKind) []model.BundleFile {
	paths := r.manifestFiles(ctx, libPath, kind)
	if paths == nil {
		paths = r.folderFiles(ctx, libPath, kind)
	}

	files := make([]model.BundleFile, 0, len(paths))
	for _, p := range paths {
		content, err := r.fetcher.GetText(ctx, p)
		if err != nil {
			r.logger.Debug("clientlib file not readable", "path", p, "error", err)
			continue
		}
		sum := sha3.Sum256([]byte(content))
		f := model.BundleFile{
			Name:   path.Base(p),
			Path:   p,
			Size:   len(content),
			Digest: hex.EncodeToString(sum[:]),
		}
		if r.withContent {
			f.Content = content
		}
		files = append(files, f)
	}
	return files
}

// manifestFiles parses css.txt / js.txt. It returns nil when there is no manifest.
func (r *Resolver) manifestFiles(ctx context.Context, libPath string, kind model.BundleKind) []string {
	text, err := r.fetcher.GetText(ctx, libPath+"/"+kind.String()+".txt")
	if err != nil {
		return nil
	}
	return ParseManifest(libPath, text)
}

// ParseManifest returns the file paths listed in a clientlib manifest,
// honoring #base= directives.
func ParseManifest(libPath, text string) []string {
	base := libPath
	paths := make([]string, 0)
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#base="):
			base = path.Join(libPath, strings.TrimSpace(strings.TrimPrefix(line, "#base=")))
		case strings.HasPrefix(line, "#"), strings.HasPrefix(line, "//"):
			continue
		default:
			paths = append(paths, path.Join(base, line))
		}
	}
	return paths
}

// folderFiles lists the child nodes of <libPath>/<kind>.
func (r *Resolver) folderFiles(ctx context.Context, libPath string, kind model.BundleKind) []string {
	dir := libPath + "/" + kind.String()
	listing, err := r.fetcher.GetJSON(ctx, dir+".1.json")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(listing))
	for name, v := range listing {
		if isSystemProperty(name) {
			continue
		}
		if _, isNode := v.(map[string]any); !isNode {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, dir+"/"+name)
	}
	return paths
}

func isSystemProperty(name string) bool {
	for _, prefix := range []string{"jcr:", "sling:", "rep:", "cq:"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
