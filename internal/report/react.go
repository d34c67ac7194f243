package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/componentscan/internal/model"
)

// ReactStructure is the suggested file layout of the migrated component.
type ReactStructure struct {
	ComponentPath string `json:"componentPath"`
	StylesPath    string `json:"stylesPath"`

	// ModelPath is nil when the component uses no Sling Model.
	ModelPath  *string `json:"modelPath"`
	AssetsPath string  `json:"assetsPath"`
}

// ReactDependencies lists what the migrated component has to carry over.
type ReactDependencies struct {
	CSSFiles        []string `json:"cssFiles"`
	JSFiles         []string `json:"jsFiles"`
	Models          []string `json:"models"`
	ChildComponents []string `json:"childComponents"`
}

// ReactProp is a component prop derived from a dialog field.
type ReactProp struct {
	Name         string         `json:"name"`
	Type         model.PropType `json:"type"`
	Required     bool           `json:"required"`
	Label        string         `json:"label,omitempty"`
	DefaultValue any            `json:"defaultValue,omitempty"`
}

// ReactReport maps a dependency graph onto a React project layout.
type ReactReport struct {
	Component      string            `json:"component"`
	ComponentName  string            `json:"componentName"`
	ReactStructure ReactStructure    `json:"reactStructure"`
	Dependencies   ReactDependencies `json:"dependencies"`
	Props          []ReactProp       `json:"props"`
	MigrationSteps []string          `json:"migrationSteps"`
}

// BuildReactReport derives the migration report for the root of g.
func BuildReactReport(g *model.DependencyGraph) *ReactReport {
	resourceType := ""
	if g.Root != nil {
		resourceType = g.Root.ResourceType
	}
	dir := ComponentDir(resourceType)

	r := &ReactReport{
		Component:     resourceType,
		ComponentName: ComponentName(resourceType),
		ReactStructure: ReactStructure{
			ComponentPath: dir,
			StylesPath:    dir + "/Component.module.css",
			AssetsPath:    dir + "/assets",
		},
		Dependencies: ReactDependencies{
			CSSFiles:        bundleFiles(g, model.KindCSS),
			JSFiles:         bundleFiles(g, model.KindJS),
			Models:          append(make([]string, 0, len(g.SlingModels)), g.SlingModels...),
			ChildComponents: make([]string, 0),
		},
		Props: make([]ReactProp, 0),
	}

	if len(g.SlingModels) > 0 {
		p := "src/models/" + model.SimpleClassName(g.SlingModels[0]) + ".js"
		r.ReactStructure.ModelPath = &p
	}

	hasDialog := false
	if g.Root != nil {
		for _, child := range g.Root.ChildComponents {
			r.Dependencies.ChildComponents = append(r.Dependencies.ChildComponents, child.ResourceType)
		}
		if g.Root.Dialog != nil && g.Root.Dialog.Type != model.DialogNone {
			hasDialog = true
			for _, f := range g.Root.Dialog.Fields {
				r.Props = append(r.Props, ReactProp{
					Name:         f.Name,
					Type:         f.PropType,
					Required:     f.Required,
					Label:        f.Label,
					DefaultValue: f.DefaultValue,
				})
			}
		}
	}

	r.MigrationSteps = migrationSteps(len(g.SlingModels) > 0, hasDialog)
	return r
}

// ComponentDir returns the React directory for a resource type: the type
// without its first segment, under src/components.
func ComponentDir(resourceType string) string {
	parts := strings.Split(strings.Trim(resourceType, "/"), "/")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return "src/components/" + strings.Join(parts, "/")
}

// ComponentName returns the PascalCase name of the last resource type segment,
// e.g. "acme/components/hero-banner" becomes "HeroBanner".
func ComponentName(resourceType string) string {
	last := resourceType
	if i := strings.LastIndex(strings.TrimRight(resourceType, "/"), "/"); i >= 0 {
		last = strings.TrimRight(resourceType, "/")[i+1:]
	}

	words := strings.FieldsFunc(last, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	caser := cases.Title(language.English, cases.NoLower)

	var b strings.Builder
	for _, w := range words {
		b.WriteString(caser.String(w))
	}
	if b.Len() == 0 {
		return "Component"
	}
	return b.String()
}

// bundleFiles collects member file names of every clientlib included with kind.
func bundleFiles(g *model.DependencyGraph, kind model.BundleKind) []string {
	files := make([]string, 0)
	for _, category := range g.Categories() {
		lib := g.Clientlibs[category]
		if !model.HasKind(lib.Kinds, kind) {
			continue
		}
		files = append(files, lib.FileNames(kind)...)
	}
	return files
}

func migrationSteps(hasModels, hasDialog bool) []string {
	steps := []string{
		"Create the React component directory structure",
		"Migrate the stylesheets (CSS)",
	}
	if hasModels {
		steps = append(steps, "Create the data model (migrated from the Sling Model)")
	}
	steps = append(steps,
		"Implement the React component logic",
		"Integrate the child components",
	)
	if hasDialog {
		steps = append(steps, "Migrate the dialog configuration to component props")
	}
	steps = append(steps, "Test and verify")

	for i := range steps {
		steps[i] = fmt.Sprintf("%d. %s", i+1, steps[i])
	}
	return steps
}

// ReactWriter outputs the React migration report as JSON.
type ReactWriter struct {
	baseWriter
}

// NewReactWriter creates a ReactWriter that outputs to the given writer.
func NewReactWriter(output io.Writer) *ReactWriter {
	return &ReactWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the migration report derived from g.
func (w *ReactWriter) Write(g *model.DependencyGraph) (int, error) {
	data, err := json.MarshalIndent(BuildReactReport(g), "", "  ")
	if err != nil {
		return 0, err
	}
	return w.output.Write(append(data, '\n'))
}

// WriteComparison always fails: a migration report describes one component.
func (w *ReactWriter) WriteComparison(*model.Comparison) (int, error) {
	return 0, ErrComparisonUnsupported
}
