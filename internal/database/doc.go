// Package database stores crawl history in SQLite.
//
// Every successful crawl can be saved as one row of the crawl_runs table:
// summary columns for listing plus the full dependency graph as
// snappy-compressed JSON. The history is only an output; a crawl never reads
// it to skip repository fetches. The compare command loads stored graphs
// with --from-history.
//
// The driver is modernc.org/sqlite, which needs no cgo.
package database
