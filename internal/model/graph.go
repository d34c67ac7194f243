package model

import (
	"sort"
	"time"
)

// InheritanceLink is one step of a sling:resourceSuperType chain.
type InheritanceLink struct {
	// Identifier is the component this link describes.
	Identifier string `json:"path"`

	// Title is the component's jcr:title.
	Title string `json:"title,omitempty"`

	// SuperType is the declared super type, empty at the end of a chain.
	SuperType string `json:"resourceSuperType,omitempty"`
}

// ModelSource is the result of locating the source file of a model class.
type ModelSource struct {
	// Class is the fully qualified class name.
	Class string `json:"class"`

	// Path is the repository path of the source, nil when not found.
	Path *string `json:"path"`

	// Size is the source length in bytes.
	Size int `json:"size,omitempty"`
}

// SimpleName returns the class name without its package.
func (m ModelSource) SimpleName() string {
	return SimpleClassName(m.Class)
}

// SimpleClassName strips the package from a fully qualified class name.
func SimpleClassName(class string) string {
	for i := len(class) - 1; i >= 0; i-- {
		if class[i] == '.' {
			return class[i+1:]
		}
	}
	return class
}

// DependencyGraph is the result of crawling one component.
type DependencyGraph struct {
	// RunID identifies the crawl run. Nested graphs share the root's RunID.
	RunID string `json:"runId"`

	// Root is the analyzed component.
	Root *ComponentNode `json:"root"`

	// Clientlibs maps a category name to its resolved library.
	Clientlibs map[string]*BundleDependency `json:"clientlibs"`

	// SlingModels is the sorted, distinct set of model classes referenced by the root.
	SlingModels []string `json:"slingModels"`

	// ModelSources holds one entry per model class, in SlingModels order.
	ModelSources []ModelSource `json:"modelSources,omitempty"`

	// Inheritance is the super type chain starting at the root.
	Inheritance []InheritanceLink `json:"inheritance"`

	// Assets are the image references found in the template.
	Assets []*AssetRef `json:"assets,omitempty"`

	// Stats summarizes remote fetches. Set on the top-level graph only.
	Stats *FetchStats `json:"stats,omitempty"`

	AnalyzedAt time.Time `json:"analyzedAt"`
}

// NewDependencyGraph creates an empty graph around root.
func NewDependencyGraph(runID string, root *ComponentNode) *DependencyGraph {
	return &DependencyGraph{
		RunID:       runID,
		Root:        root,
		Clientlibs:  make(map[string]*BundleDependency),
		SlingModels: make([]string, 0),
		Inheritance: make([]InheritanceLink, 0),
		AnalyzedAt:  time.Now().UTC(),
	}
}

// SetSlingModels stores the distinct, sorted set of models.
func (g *DependencyGraph) SetSlingModels(models []string) {
	seen := make(map[string]bool, len(models))
	result := make([]string, 0, len(models))
	for _, m := range models {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	sort.Strings(result)
	g.SlingModels = result
}

// Categories returns the clientlib category names in sorted order.
func (g *DependencyGraph) Categories() []string {
	names := make([]string, 0, len(g.Clientlibs))
	for name := range g.Clientlibs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Children returns the nested graphs expanded from the root's child references.
func (g *DependencyGraph) Children() []*DependencyGraph {
	if g.Root == nil {
		return nil
	}
	result := make([]*DependencyGraph, 0)
	for _, child := range g.Root.ChildComponents {
		if child.ResolvedDependencies != nil {
			result = append(result, child.ResolvedDependencies)
		}
	}
	return result
}

// Walk visits g and every nested graph depth-first, stopping early when fn returns false.
func (g *DependencyGraph) Walk(fn func(depth int, graph *DependencyGraph) bool) {
	g.walk(0, fn)
}

func (g *DependencyGraph) walk(depth int, fn func(int, *DependencyGraph) bool) bool {
	if !fn(depth, g) {
		return false
	}
	for _, child := range g.Children() {
		if !child.walk(depth+1, fn) {
			return false
		}
	}
	return true
}

// ComponentCount returns the number of analyzed components in the graph tree.
func (g *DependencyGraph) ComponentCount() int {
	count := 0
	g.Walk(func(int, *DependencyGraph) bool {
		count++
		return true
	})
	return count
}

// MaxDepth returns the deepest nesting level reached (root is 0).
func (g *DependencyGraph) MaxDepth() int {
	deepest := 0
	g.Walk(func(depth int, _ *DependencyGraph) bool {
		if depth > deepest {
			deepest = depth
		}
		return true
	})
	return deepest
}
