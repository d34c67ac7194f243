// Package report renders crawl results.
//
// Writers for each output format:
//   - JSONWriter: the dependency graph or comparison as JSON
//   - ReactWriter: a React migration plan derived from the graph
//   - MarkdownWriter: tables for documentation and sharing
//   - TextWriter: a terminal summary with the component tree
//
// Writers implement the Writer interface and can be combined with
// MultiWriter, e.g. a report file plus a terminal summary. Create opens an
// output file and compresses it with zstd when the name ends in ".zst".
package report
