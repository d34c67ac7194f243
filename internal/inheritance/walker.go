// Package inheritance follows sling:resourceSuperType chains.
package inheritance

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nao1215/componentscan/internal/model"
)

// DefaultTerminalPrefixes stop a walk when the super type falls under them.
var DefaultTerminalPrefixes = []string{"foundation/", "/libs/foundation/"}

// DefaultMaxLength bounds a chain even when the data has no cycle.
const DefaultMaxLength = 64

// Fetcher is the subset of the repository client the walker needs.
type Fetcher interface {
	GetJSON(ctx context.Context, path string) (map[string]any, error)
}

// Walker walks super type chains.
type Walker struct {
	fetcher  Fetcher
	resolve  func(string) string
	terminal []string
	maxLen   int
	logger   *slog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithTerminalPrefixes sets the namespaces at which a walk stops.
func WithTerminalPrefixes(prefixes []string) Option {
	return func(w *Walker) {
		w.terminal = prefixes
	}
}

// WithPathResolver sets how a resource type is mapped to a repository path.
func WithPathResolver(fn func(string) string) Option {
	return func(w *Walker) {
		w.resolve = fn
	}
}

// WithMaxLength sets the chain length limit.
func WithMaxLength(n int) Option {
	return func(w *Walker) {
		if n > 0 {
			w.maxLen = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a walker reading from f.
func NewWalker(f Fetcher, opts ...Option) *Walker {
	w := &Walker{
		fetcher:  f,
		resolve:  func(s string) string { return s },
		terminal: DefaultTerminalPrefixes,
		maxLen:   DefaultMaxLength,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk returns the chain starting at start. The walk stops when a component
// has no super type, the super type is terminal, a fetch fails, or an
// identifier repeats. Fetch failures end the chain without an error.
func (w *Walker) Walk(ctx context.Context, start string) []model.InheritanceLink {
	chain := make([]model.InheritanceLink, 0)
	visited := make(map[string]bool)

	current := w.resolve(start)
	for current != "" && len(chain) < w.maxLen {
		if visited[current] {
			w.logger.Warn("inheritance cycle detected", "component", start, "repeated", current)
			break
		}
		visited[current] = true

		props, err := w.fetcher.GetJSON(ctx, current+".json")
		if err != nil {
			w.logger.Debug("inheritance walk stopped", "component", current, "error", err)
			break
		}

		superType := model.StringProperty(props, model.PropResourceSuperType)
		chain = append(chain, model.InheritanceLink{
			Identifier: current,
			Title:      model.StringProperty(props, model.PropTitle),
			SuperType:  superType,
		})

		if superType == "" || w.isTerminal(superType) {
			break
		}
		current = w.resolve(superType)
	}
	return chain
}

func (w *Walker) isTerminal(resourceType string) bool {
	for _, prefix := range w.terminal {
		if strings.HasPrefix(resourceType, prefix) {
			return true
		}
	}
	return false
}
