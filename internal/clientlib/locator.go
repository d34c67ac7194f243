package clientlib

import (
	"strings"
)

// Placeholders understood in location templates.
const (
	PlaceholderCategory     = "{category}"
	PlaceholderCategoryPath = "{categoryPath}"
	PlaceholderCategoryLeaf = "{categoryLeaf}"
)

// DefaultLocations are the candidate storage paths tried for a category.
var DefaultLocations = []string{
	"/apps/myapp/clientlibs/{categoryPath}",
	"/apps/myapp/clientlibs/components/{categoryLeaf}",
	"/etc/clientlibs/{categoryPath}",
}

// Locator turns a category name into candidate repository paths.
type Locator struct {
	templates []string
}

// NewLocator creates a locator from location templates. An empty list
// selects DefaultLocations.
func NewLocator(templates []string) *Locator {
	if len(templates) == 0 {
		templates = DefaultLocations
	}
	return &Locator{templates: templates}
}

// Candidates returns the distinct paths to try for category, in template order.
func (l *Locator) Candidates(category string) []string {
	leaf := category
	if i := strings.LastIndex(category, "."); i >= 0 {
		leaf = category[i+1:]
	}
	replacer := strings.NewReplacer(
		PlaceholderCategoryPath, strings.ReplaceAll(category, ".", "/"),
		PlaceholderCategoryLeaf, leaf,
		PlaceholderCategory, category,
	)

	seen := make(map[string]bool, len(l.templates))
	paths := make([]string, 0, len(l.templates))
	for _, tmpl := range l.templates {
		p := replacer.Replace(tmpl)
		if seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}
