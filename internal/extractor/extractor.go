// Package extractor finds references embedded in HTL component templates.
//
// Extraction is pattern based and best effort: constructs the patterns do
// not recognize are skipped, never reported as errors. Extract is pure and
// safe to call on arbitrary input.
package extractor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nao1215/componentscan/internal/model"
)

// BundleRef is a clientlib category included by a template.
type BundleRef struct {
	Category string
	Kinds    []model.BundleKind
}

// ChildRef is a data-sly-resource inclusion.
type ChildRef struct {
	Path         string
	ResourceType string
}

// Result holds everything found in one template.
type Result struct {
	// BundleRefs has one entry per category, in first-seen order, with the
	// union of all kinds the category was included with.
	BundleRefs []BundleRef

	// ModelRefs are the distinct use-object identifiers in first-seen order.
	ModelRefs []string

	// ChildRefs preserves template order and duplicates.
	ChildRefs []ChildRef

	// TemplateCalls has one entry per data-sly-call occurrence.
	TemplateCalls []model.TemplateCall

	// Assets are the distinct image references in first-seen order.
	Assets []string
}

// Categories returns the bundle category names.
func (r *Result) Categories() []string {
	names := make([]string, 0, len(r.BundleRefs))
	for _, b := range r.BundleRefs {
		names = append(names, b.Category)
	}
	return names
}

var (
	clientlibPattern = regexp.MustCompile(
		`clientlib\.(css|js|all)\s*@\s*categories\s*=\s*(\[[^\]]*\]|'[^']*'|"[^"]*")`)

	usePattern = regexp.MustCompile(`data-sly-use\.\w+\s*=\s*['"]([^'"]+)['"]`)

	// data-sly-resource="${'path' @ resourceType='type'}"
	resourceExprPattern = regexp.MustCompile(
		`data-sly-resource\s*=\s*["']\$\{\s*['"]([^'"]+)['"]\s*@[^}]*?resourceType\s*=\s*['"]([^'"]+)['"]`)

	// data-sly-resource="path" ... resourceType="type"
	resourceAttrPattern = regexp.MustCompile(
		`data-sly-resource\s*=\s*['"]([^'"$]+)['"][^>]*?\sresourceType\s*=\s*['"]([^'"]+)['"]`)

	callPattern = regexp.MustCompile(`data-sly-call\s*=\s*['"]?\$\{\s*(\w+)\.(\w+)\s*@`)
)

// Extract scans markup for clientlib, use-object, resource and call directives
// and image references.
func Extract(markup string) *Result {
	return &Result{
		BundleRefs:    extractBundles(markup),
		ModelRefs:     extractModels(markup),
		ChildRefs:     extractChildren(markup),
		TemplateCalls: extractCalls(markup),
		Assets:        extractAssets(markup),
	}
}

func extractBundles(markup string) []BundleRef {
	order := make([]string, 0)
	kinds := make(map[string][]model.BundleKind)

	for _, m := range clientlibPattern.FindAllStringSubmatch(markup, -1) {
		k, err := model.ParseBundleKinds(m[1])
		if err != nil {
			continue
		}
		for _, category := range splitCategories(m[2]) {
			if _, seen := kinds[category]; !seen {
				order = append(order, category)
			}
			kinds[category] = model.UnionKinds(kinds[category], k)
		}
	}

	refs := make([]BundleRef, 0, len(order))
	for _, category := range order {
		refs = append(refs, BundleRef{Category: category, Kinds: kinds[category]})
	}
	return refs
}

// splitCategories accepts 'a,b', "a, b" and ['a','b'].
func splitCategories(value string) []string {
	value = strings.Trim(value, "[]'\"")
	result := make([]string, 0)
	for _, token := range strings.Split(value, ",") {
		token = strings.Trim(strings.TrimSpace(token), "'\"")
		if token = strings.TrimSpace(token); token != "" {
			result = append(result, token)
		}
	}
	return result
}

func extractModels(markup string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)
	for _, m := range usePattern.FindAllStringSubmatch(markup, -1) {
		id := strings.TrimSpace(m[1])
		// Template libraries are call targets, not models.
		if id == "" || strings.HasSuffix(id, ".html") || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

func extractChildren(markup string) []ChildRef {
	type located struct {
		pos int
		ref ChildRef
	}
	found := make([]located, 0)
	for _, pattern := range []*regexp.Regexp{resourceExprPattern, resourceAttrPattern} {
		for _, idx := range pattern.FindAllStringSubmatchIndex(markup, -1) {
			found = append(found, located{
				pos: idx[0],
				ref: ChildRef{
					Path:         markup[idx[2]:idx[3]],
					ResourceType: markup[idx[4]:idx[5]],
				},
			})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	refs := make([]ChildRef, 0, len(found))
	for _, f := range found {
		refs = append(refs, f.ref)
	}
	return refs
}

func extractCalls(markup string) []model.TemplateCall {
	calls := make([]model.TemplateCall, 0)
	for _, m := range callPattern.FindAllStringSubmatch(markup, -1) {
		calls = append(calls, model.TemplateCall{Object: m[1], Method: m[2]})
	}
	return calls
}
