package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/componentscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testGraph(runID, component string, at time.Time) *model.DependencyGraph {
	root := model.NewComponentNode(component)
	root.ApplyMetadata(map[string]any{"jcr:title": "Hero"})
	g := model.NewDependencyGraph(runID, root)
	g.Clientlibs["site.base"] = model.NewUnresolvedBundle("site.base", model.AllBundleKinds())
	g.SetSlingModels([]string{"com.acme.models.Hero"})
	g.AnalyzedAt = at
	return g
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("got %q, expected %q", db.Path(), filepath.Join(dbDir, FileName))
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestSaveAndLoadGraph tests the round trip of a stored crawl run.
func TestSaveAndLoadGraph(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	g := testGraph("run-1", "/apps/acme/components/hero", at)
	if err := db.SaveGraph(ctx, g, RunMeta{Host: "http://localhost:4502", Recursive: true, MaxDepth: 2}); err != nil {
		t.Fatalf("SaveGraph() error = %v", err)
	}

	loaded, err := db.GetGraphByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetGraphByRunID() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("expected stored graph")
	}
	if loaded.Root.Identifier != g.Root.Identifier || loaded.Root.Title != "Hero" {
		t.Errorf("unexpected root %+v", loaded.Root)
	}
	if _, ok := loaded.Clientlibs["site.base"]; !ok {
		t.Errorf("unexpected clientlibs %v", loaded.Clientlibs)
	}
	if !loaded.AnalyzedAt.Equal(at) {
		t.Errorf("got %v, expected %v", loaded.AnalyzedAt, at)
	}

	missing, err := db.GetGraphByRunID(ctx, "unknown")
	if err != nil || missing != nil {
		t.Errorf("expected nil graph and no error, got %v, %v", missing, err)
	}
}

// TestSaveGraphDuplicateRun tests that a run ID is stored once.
func TestSaveGraphDuplicateRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	g := testGraph("run-1", "/apps/acme/components/hero", time.Now().UTC())
	if err := db.SaveGraph(context.Background(), g, RunMeta{}); err != nil {
		t.Fatalf("SaveGraph() error = %v", err)
	}
	if err := db.SaveGraph(context.Background(), g, RunMeta{}); err == nil {
		t.Error("expected error for duplicate run ID")
	}
	if err := db.SaveGraph(context.Background(), &model.DependencyGraph{}, RunMeta{}); err == nil {
		t.Error("expected error for graph without root")
	}
}

// TestListRuns tests run listing and latest lookup.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new"} {
		g := testGraph(id, "/apps/acme/components/hero", base.Add(time.Duration(i)*time.Hour))
		if err := db.SaveGraph(ctx, g, RunMeta{Host: "h", MaxDepth: 3}); err != nil {
			t.Fatalf("SaveGraph() error = %v", err)
		}
	}
	if err := db.SaveGraph(ctx, testGraph("other", "/apps/acme/components/teaser", base), RunMeta{Host: "h"}); err != nil {
		t.Fatalf("SaveGraph() error = %v", err)
	}

	runs, err := db.ListRuns(ctx, "/apps/acme/components/hero")
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "new" || runs[1].RunID != "old" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].Components != 1 || runs[0].Clientlibs != 1 || runs[0].SlingModels != 1 || runs[0].MaxDepth != 3 {
		t.Errorf("unexpected summary %+v", runs[0])
	}
	if runs[0].CompressedSize == 0 || !runs[0].AnalyzedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("unexpected summary %+v", runs[0])
	}

	latest, err := db.GetLatestGraph(ctx, "/apps/acme/components/hero")
	if err != nil || latest == nil || latest.RunID != "new" {
		t.Errorf("unexpected latest graph %v, %v", latest, err)
	}
	none, err := db.GetLatestGraph(ctx, "/apps/unknown")
	if err != nil || none != nil {
		t.Errorf("expected nil graph and no error, got %v, %v", none, err)
	}

	components, err := db.ListComponents(ctx)
	if err != nil {
		t.Fatalf("ListComponents() error = %v", err)
	}
	if len(components) != 2 || components[0] != "/apps/acme/components/hero" {
		t.Errorf("unexpected components %v", components)
	}
}

// TestParseTimestamp tests timestamp parsing fallbacks.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		zero bool
	}{
		{"2025-01-01T00:00:00.123Z", false},
		{"2025-01-01 00:00:00", false},
		{"not a time", true},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.in); got.IsZero() != tt.zero {
			t.Errorf("parseTimestamp(%q) = %v", tt.in, got)
		}
	}
}
