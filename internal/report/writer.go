package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/componentscan/internal/model"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatReact    = "react"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

var (
	// ErrUnknownFormat is returned for a format name NewWriter does not know.
	ErrUnknownFormat = errors.New("unknown report format")

	// ErrComparisonUnsupported is returned by writers that only render graphs.
	ErrComparisonUnsupported = errors.New("format cannot render a comparison")
)

// Formats lists the accepted format names.
func Formats() []string {
	return []string{FormatJSON, FormatReact, FormatMarkdown, FormatText}
}

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a dependency graph.
	// Returns the number of bytes written and any error encountered.
	Write(g *model.DependencyGraph) (int, error)

	// WriteComparison outputs the differences between two components.
	WriteComparison(c *model.Comparison) (int, error)
}

// NewWriter returns the writer for format.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatReact:
		return NewReactWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatText:
		return NewTextWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers, such as a report file and a
// terminal summary.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the graph to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(g *model.DependencyGraph) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(g)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteComparison outputs the comparison to all configured Writers.
func (m *MultiWriter) WriteComparison(c *model.Comparison) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteComparison(c)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
