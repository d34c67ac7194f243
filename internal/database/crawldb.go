package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/componentscan/internal/model"
)

// FileName is the name of the history database inside the data directory.
const FileName = "componentscan.db"

// CrawlDB stores crawl runs for the history and compare commands.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// RunMeta describes how a stored graph was produced.
type RunMeta struct {
	Host      string
	Recursive bool
	MaxDepth  int
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run; graph holds the snappy-compressed graph JSON
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		host TEXT NOT NULL,
		component TEXT NOT NULL,
		recursive INTEGER NOT NULL DEFAULT 0,
		max_depth INTEGER NOT NULL DEFAULT 0,
		components INTEGER NOT NULL DEFAULT 0,
		clientlibs INTEGER NOT NULL DEFAULT 0,
		sling_models INTEGER NOT NULL DEFAULT 0,
		analyzed_at TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		graph BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_component ON crawl_runs(component);
	CREATE INDEX IF NOT EXISTS idx_runs_analyzed ON crawl_runs(analyzed_at);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveGraph stores a crawl result.
func (cdb *CrawlDB) SaveGraph(ctx context.Context, g *model.DependencyGraph, meta RunMeta) error {
	if g == nil || g.Root == nil {
		return errors.New("graph has no root component")
	}

	graphJSON, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to serialize graph: %w", err)
	}
	compressed := snappy.Encode(nil, graphJSON)

	query := `
	INSERT INTO crawl_runs (run_id, host, component, recursive, max_depth,
		components, clientlibs, sling_models, analyzed_at, graph)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = cdb.db.ExecContext(ctx, query,
		g.RunID,
		meta.Host,
		g.Root.Identifier,
		meta.Recursive,
		meta.MaxDepth,
		g.ComponentCount(),
		len(g.Clientlibs),
		len(g.SlingModels),
		g.AnalyzedAt.UTC().Format(time.RFC3339Nano),
		compressed,
	)
	if err != nil {
		return fmt.Errorf("failed to save crawl run: %w", err)
	}

	return nil
}

// ListComponents returns every component with at least one stored run.
func (cdb *CrawlDB) ListComponents(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT component FROM crawl_runs
	ORDER BY component
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	defer rows.Close()

	var components []string
	for rows.Next() {
		var component string
		if err := rows.Scan(&component); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		components = append(components, component)
	}

	return components, rows.Err()
}

// ListRuns returns the stored runs of a component, newest first, without
// loading the graphs.
func (cdb *CrawlDB) ListRuns(ctx context.Context, component string) ([]model.RunSummary, error) {
	query := `
	SELECT run_id, component, recursive, max_depth, components, clientlibs,
		sling_models, analyzed_at, length(graph)
	FROM crawl_runs
	WHERE component = ?
	ORDER BY analyzed_at DESC, id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, component)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []model.RunSummary
	for rows.Next() {
		var s model.RunSummary
		var analyzedAt string

		if err := rows.Scan(&s.RunID, &s.Identifier, &s.Recursive, &s.MaxDepth,
			&s.Components, &s.Clientlibs, &s.SlingModels, &analyzedAt, &s.CompressedSize); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.AnalyzedAt = parseTimestamp(analyzedAt)
		results = append(results, s)
	}

	return results, rows.Err()
}

// GetLatestGraph returns the most recent graph of a component, or nil if
// none is stored.
func (cdb *CrawlDB) GetLatestGraph(ctx context.Context, component string) (*model.DependencyGraph, error) {
	query := `
	SELECT graph FROM crawl_runs
	WHERE component = ?
	ORDER BY analyzed_at DESC, id DESC
	LIMIT 1
	`
	return cdb.loadGraph(ctx, query, component)
}

// GetGraphByRunID returns the graph of one run, or nil if it is not stored.
func (cdb *CrawlDB) GetGraphByRunID(ctx context.Context, runID string) (*model.DependencyGraph, error) {
	query := `
	SELECT graph FROM crawl_runs
	WHERE run_id = ?
	`
	return cdb.loadGraph(ctx, query, runID)
}

func (cdb *CrawlDB) loadGraph(ctx context.Context, query string, arg any) (*model.DependencyGraph, error) {
	var compressed []byte
	err := cdb.db.QueryRowContext(ctx, query, arg).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl run: %w", err)
	}

	graphJSON, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress graph: %w", err)
	}

	var g model.DependencyGraph
	if err := json.Unmarshal(graphJSON, &g); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}

	return &g, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses s with the first matching format. It returns the
// zero time if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
