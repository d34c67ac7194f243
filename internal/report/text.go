package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/componentscan/internal/model"
)

const ruleWidth = 70

// TextWriter outputs human-readable plain text for terminal display.
type TextWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists clientlib member files.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a summary of the graph followed by the component tree.
func (w *TextWriter) Write(g *model.DependencyGraph) (int, error) {
	var sb strings.Builder

	root := g.Root
	if root == nil {
		root = model.NewComponentNode("")
	}

	writeBanner(&sb, "COMPONENT DEPENDENCIES")

	sb.WriteString(fmt.Sprintf("Component:      %s\n", root.Identifier))
	sb.WriteString(fmt.Sprintf("Resource Type:  %s\n", root.ResourceType))
	if root.Title != "" {
		sb.WriteString(fmt.Sprintf("Title:          %s\n", root.Title))
	}
	if root.ResourceSuperType != "" {
		sb.WriteString(fmt.Sprintf("Super Type:     %s\n", root.ResourceSuperType))
	}
	if root.Template != nil {
		sb.WriteString(fmt.Sprintf("Template:       %s (%s, %d bytes)\n", root.Template.Path, root.Template.Kind, root.Template.Size))
	} else {
		sb.WriteString("Template:       not found\n")
	}
	sb.WriteString(fmt.Sprintf("Analyzed At:    %s\n", g.AnalyzedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Components:     %d\n", g.ComponentCount()))
	sb.WriteString("\n")

	if len(g.Clientlibs) > 0 || w.showEmpty {
		writeSection(&sb, "CLIENT LIBRARIES")
		if len(g.Clientlibs) == 0 {
			sb.WriteString("  none\n")
		}
		for _, category := range g.Categories() {
			lib := g.Clientlibs[category]
			marker := "+"
			if !lib.Resolved {
				marker = "?"
			}
			sb.WriteString(fmt.Sprintf("  [%s] %s (%s)\n", marker, category, kindsString(lib.Kinds)))
			if w.verbose {
				for _, kind := range model.AllBundleKinds() {
					for _, name := range lib.FileNames(kind) {
						sb.WriteString(fmt.Sprintf("        %s/%s\n", kind, name))
					}
				}
			}
		}
		sb.WriteString("\n")
	}

	if len(g.SlingModels) > 0 || w.showEmpty {
		writeSection(&sb, "SLING MODELS")
		if len(g.SlingModels) == 0 {
			sb.WriteString("  none\n")
		}
		for _, class := range g.SlingModels {
			sb.WriteString(fmt.Sprintf("  - %s\n", class))
		}
		sb.WriteString("\n")
	}

	if len(root.ChildComponents) > 0 || w.showEmpty {
		writeSection(&sb, "COMPONENT TREE")
		sb.WriteString(componentTree(g))
		sb.WriteString("\n")
	}

	if g.Stats != nil {
		sb.WriteString(strings.Repeat("=", ruleWidth))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Requests: %d  Cache hits: %d\n", g.Stats.Total, g.Stats.CacheHits))
	}

	return w.output.Write([]byte(sb.String()))
}

// WriteComparison outputs the comparison in human-readable format.
func (w *TextWriter) WriteComparison(c *model.Comparison) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "COMPONENT COMPARISON")
	sb.WriteString(fmt.Sprintf("A: %s\n", c.A))
	sb.WriteString(fmt.Sprintf("B: %s\n", c.B))
	sb.WriteString("\n")

	if c.Identical() {
		sb.WriteString("No differences found.\n")
		return w.output.Write([]byte(sb.String()))
	}

	if !c.SameSuperType {
		sb.WriteString("Super types differ.\n\n")
	}

	if len(c.Properties) > 0 {
		writeSection(&sb, "PROPERTIES")
		for _, p := range c.Properties {
			sb.WriteString(fmt.Sprintf("  %s: %s -> %s\n", p.Key, valueString(p.A), valueString(p.B)))
		}
		sb.WriteString("\n")
	}

	writeSection(&sb, "DIALOG FIELDS")
	writeList(&sb, "only in A", c.Dialog.OnlyInA)
	writeList(&sb, "only in B", c.Dialog.OnlyInB)
	writeList(&sb, "changed", c.Dialog.Changed)
	sb.WriteString("\n")

	writeSection(&sb, "DEPENDENCIES")
	writeList(&sb, "clientlibs only in A", c.Clientlibs.OnlyInA)
	writeList(&sb, "clientlibs only in B", c.Clientlibs.OnlyInB)
	writeList(&sb, "models only in A", c.Models.OnlyInA)
	writeList(&sb, "models only in B", c.Models.OnlyInB)
	writeList(&sb, "changed files", c.ChangedFiles)

	return w.output.Write([]byte(sb.String()))
}

// componentTree renders g and its expanded children as an indented tree.
func componentTree(g *model.DependencyGraph) string {
	var sb strings.Builder
	if g.Root == nil {
		return ""
	}
	sb.WriteString(g.Root.Identifier + "\n")
	writeTree(&sb, g, "")
	return sb.String()
}

func writeTree(sb *strings.Builder, g *model.DependencyGraph, prefix string) {
	children := g.Root.ChildComponents
	for i, child := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}

		label := child.ResourceType
		if child.ResolvedDependencies == nil {
			label += " (" + childStatus(child) + ")"
		}
		sb.WriteString(prefix + branch + label + "\n")

		if child.ResolvedDependencies != nil && child.ResolvedDependencies.Root != nil {
			writeTree(sb, child.ResolvedDependencies, prefix+next)
		}
	}
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", (ruleWidth-len(title))/2) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("  %s: %s\n", label, strings.Join(items, ", ")))
}
