package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/componentscan/internal/model"
)

// MarkdownWriter outputs graphs and comparisons as Markdown documents
// for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the dependency graph in Markdown format.
func (w *MarkdownWriter) Write(g *model.DependencyGraph) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, g)
	w.writeClientlibs(md, g)
	w.writeModels(md, g)
	w.writeChildren(md, g)
	w.writeInheritance(md, g)
	w.writeDialog(md, g)
	w.writeStats(md, g)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, g *model.DependencyGraph) {
	root := g.Root
	if root == nil {
		root = model.NewComponentNode("")
	}

	md.H1("Component Dependencies: " + root.Identifier)
	md.PlainText("")

	template := "-"
	if root.Template != nil {
		template = "`" + root.Template.Path + "` (" + string(root.Template.Kind) + ")"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Resource Type", "`" + root.ResourceType + "`"},
			{"Title", orDash(root.Title)},
			{"Component Group", orDash(root.ComponentGroup)},
			{"Super Type", orDash(root.ResourceSuperType)},
			{"Template", template},
			{"Container", strconv.FormatBool(root.IsContainer)},
			{"Components Analyzed", strconv.Itoa(g.ComponentCount())},
			{"Analyzed At", g.AnalyzedAt.Format("2006-01-02 15:04:05 MST")},
			{"Run ID", "`" + g.RunID + "`"},
		},
	})
	md.PlainText("")

	if !root.MetadataFound {
		md.Warningf("Metadata of %s could not be fetched; results are based on the template only.", root.Identifier)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeClientlibs(md *markdown.Markdown, g *model.DependencyGraph) {
	md.H2("Client Libraries")
	md.PlainText("")

	if len(g.Clientlibs) == 0 {
		md.PlainText("No client libraries referenced.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(g.Clientlibs))
	unresolved := 0
	for _, category := range g.Categories() {
		lib := g.Clientlibs[category]
		location := "unresolved"
		if lib.Path != nil {
			location = "`" + *lib.Path + "`"
		} else {
			unresolved++
		}
		rows = append(rows, []string{
			"`" + category + "`",
			kindsString(lib.Kinds),
			location,
			truncateString(strings.Join(lib.FileNames(model.KindCSS), ", "), 50),
			truncateString(strings.Join(lib.FileNames(model.KindJS), ", "), 50),
			orDash(strings.Join(lib.Dependencies, ", ")),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Kinds", "Location", "CSS", "JS", "Dependencies"},
		Rows:   rows,
	})
	md.PlainText("")

	if unresolved > 0 {
		md.Importantf("%d client library categor(ies) could not be located in the repository.", unresolved)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeModels(md *markdown.Markdown, g *model.DependencyGraph) {
	md.H2("Sling Models")
	md.PlainText("")

	if len(g.SlingModels) == 0 {
		md.PlainText("No Sling Models referenced.")
		md.PlainText("")
		return
	}

	sources := make(map[string]model.ModelSource, len(g.ModelSources))
	for _, s := range g.ModelSources {
		sources[s.Class] = s
	}

	rows := make([][]string, 0, len(g.SlingModels))
	for _, class := range g.SlingModels {
		source := "-"
		if s, ok := sources[class]; ok && s.Path != nil {
			source = "`" + *s.Path + "`"
		}
		rows = append(rows, []string{"`" + class + "`", source})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Class", "Source"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeChildren(md *markdown.Markdown, g *model.DependencyGraph) {
	md.H2("Child Components")
	md.PlainText("")

	if g.Root == nil || len(g.Root.ChildComponents) == 0 {
		md.PlainText("No child components referenced.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(g.Root.ChildComponents))
	for _, child := range g.Root.ChildComponents {
		rows = append(rows, []string{"`" + child.Path + "`", "`" + child.ResourceType + "`", childStatus(child)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Path", "Resource Type", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if g.MaxDepth() > 0 {
		md.H3("Component Tree")
		md.PlainText("")
		md.PlainText("```text\n" + componentTree(g) + "```")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeInheritance(md *markdown.Markdown, g *model.DependencyGraph) {
	if len(g.Inheritance) == 0 {
		return
	}

	md.H2("Inheritance")
	md.PlainText("")

	chain := make([]string, 0, len(g.Inheritance))
	for _, link := range g.Inheritance {
		chain = append(chain, "`"+link.Identifier+"`")
	}
	md.OrderedList(chain...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeDialog(md *markdown.Markdown, g *model.DependencyGraph) {
	if g.Root == nil || g.Root.Dialog == nil || len(g.Root.Dialog.Fields) == 0 {
		return
	}

	md.H2("Dialog Fields")
	md.PlainText("")

	rows := make([][]string, 0, len(g.Root.Dialog.Fields))
	for _, f := range g.Root.Dialog.Fields {
		rows = append(rows, []string{
			"`" + f.Name + "`",
			orDash(f.Label),
			truncateString(f.ResourceType, 60),
			string(f.PropType),
			strconv.FormatBool(f.Required),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Name", "Label", "Field Type", "Prop Type", "Required"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeStats writes the fetch outcome table and a mermaid pie chart of it.
func (w *MarkdownWriter) writeStats(md *markdown.Markdown, g *model.DependencyGraph) {
	if g.Stats == nil || g.Stats.Total == 0 {
		return
	}

	md.H2("Repository Requests")
	md.PlainText("")

	keys := make([]string, 0, len(g.Stats.Requests))
	for k := range g.Stats.Requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Request Outcomes"),
		piechart.WithShowData(true),
	)

	rows := make([][]string, 0, len(keys)+2)
	for _, k := range keys {
		n := g.Stats.Requests[k]
		rows = append(rows, []string{k, strconv.Itoa(n)})
		if n > 0 {
			chart.LabelAndIntValue(k, uint64(n))
		}
	}
	rows = append(rows,
		[]string{"cache hits", strconv.Itoa(g.Stats.CacheHits)},
		[]string{"**Total**", "**" + strconv.Itoa(g.Stats.Total) + "**"},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Request", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// WriteComparison outputs the comparison in Markdown format.
func (w *MarkdownWriter) WriteComparison(c *model.Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Component Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Component"},
		Rows: [][]string{
			{"A", "`" + c.A + "`"},
			{"B", "`" + c.B + "`"},
			{"Same Super Type", strconv.FormatBool(c.SameSuperType)},
		},
	})
	md.PlainText("")

	if c.Identical() {
		md.Tip("No differences found.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	if len(c.Properties) > 0 {
		md.H2("Properties")
		md.PlainText("")
		rows := make([][]string, 0, len(c.Properties))
		for _, p := range c.Properties {
			rows = append(rows, []string{
				"`" + p.Key + "`",
				truncateString(valueString(p.A), 50),
				truncateString(valueString(p.B), 50),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Property", "A", "B"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	md.H2("Dialog Fields")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Only in A", "Only in B", "Changed"},
		Rows: [][]string{{
			orDash(strings.Join(c.Dialog.OnlyInA, ", ")),
			orDash(strings.Join(c.Dialog.OnlyInB, ", ")),
			orDash(strings.Join(c.Dialog.Changed, ", ")),
		}},
	})
	md.PlainText("")

	md.H2("Dependencies")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Set", "Common", "Only in A", "Only in B"},
		Rows: [][]string{
			setRow("Client Libraries", c.Clientlibs),
			setRow("Sling Models", c.Models),
		},
	})
	md.PlainText("")

	if len(c.ChangedFiles) > 0 {
		md.H2("Changed Files")
		md.PlainText("")
		md.BulletList(c.ChangedFiles...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [componentscan](https://github.com/nao1215/componentscan)*")
}

func setRow(name string, d model.SetDiff) []string {
	return []string{
		name,
		strconv.Itoa(len(d.Common)),
		orDash(strings.Join(d.OnlyInA, ", ")),
		orDash(strings.Join(d.OnlyInB, ", ")),
	}
}

func kindsString(kinds []model.BundleKind) string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

func childStatus(child *model.ChildComponentDescriptor) string {
	switch {
	case child.ResolvedDependencies != nil:
		return "expanded"
	case child.Ref != "":
		return "see " + child.Ref
	case child.Skipped != "":
		return "skipped: " + child.Skipped
	default:
		return "not expanded"
	}
}

func valueString(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
