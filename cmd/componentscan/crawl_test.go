package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/nao1215/componentscan/internal/config"
	"github.com/nao1215/componentscan/internal/crawler"
	"github.com/nao1215/componentscan/internal/report"
	"github.com/nao1215/componentscan/internal/repository/repositorytest"
)

// The tests in this file change the process environment and working
// directory inputs of the CLI, so they do not run in parallel.

// newRepository starts a fake repository holding two components and points
// the credential variables at it.
func newRepository(t *testing.T) *repositorytest.Server {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvHost, "")
	t.Setenv(config.EnvUser, repositorytest.User)
	t.Setenv(config.EnvPassword, repositorytest.Password)

	srv := repositorytest.NewServer(t)
	srv.JSON(t, "/apps/acme/components/hero.json", map[string]any{
		"jcr:primaryType": "cq:Component",
		"jcr:title":       "Hero",
		"componentGroup":  "Acme",
	})
	srv.Text("/apps/acme/components/hero/hero.html",
		`<div data-sly-use.hero="com.acme.models.Hero">
<div data-sly-resource="${'text' @ resourceType='acme/components/text'}"></div>
</div>`)
	srv.JSON(t, "/apps/acme/components/text.json", map[string]any{
		"jcr:primaryType": "cq:Component",
		"jcr:title":       "Text",
	})
	srv.Text("/apps/acme/components/text/text.html", `<p>${properties.text}</p>`)
	srv.JSON(t, "/apps/acme/components/teaser.json", map[string]any{
		"jcr:primaryType": "cq:Component",
		"jcr:title":       "Teaser",
		"componentGroup":  "Acme",
	})
	srv.Text("/apps/acme/components/teaser/teaser.html", `<div data-sly-use.teaser="com.acme.models.Teaser"></div>`)
	return srv
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// TestCrawlCmd tests crawling against a fake repository.
func TestCrawlCmd(t *testing.T) {
	t.Run("writes a JSON report and stores the run", func(t *testing.T) {
		srv := newRepository(t)
		dir := t.TempDir()
		dbDir := filepath.Join(dir, "db")
		output := filepath.Join(dir, "out", "hero.json")

		stdout, err := execute(t, "crawl", "--host", srv.URL, "--db-dir", dbDir,
			"-r", "-o", output, "acme/components/hero")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Report written to "+output) {
			t.Errorf("unexpected output %q", stdout)
		}
		if !strings.Contains(stdout, "COMPONENT DEPENDENCIES") {
			t.Errorf("expected a text summary, got %q", stdout)
		}

		data, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var got struct {
			Root struct {
				Identifier      string `json:"path"`
				ChildComponents []struct {
					Resolved json.RawMessage `json:"resolveddependencies"`
				} `json:"childComponents"`
			} `json:"root"`
			SlingModels []string `json:"slingModels"`
		}
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("report is not JSON: %v", err)
		}
		if got.Root.Identifier != "/apps/acme/components/hero" {
			t.Errorf("got %q, expected %q", got.Root.Identifier, "/apps/acme/components/hero")
		}
		if len(got.SlingModels) != 1 || got.SlingModels[0] != "com.acme.models.Hero" {
			t.Errorf("got %v, expected [com.acme.models.Hero]", got.SlingModels)
		}
		if len(got.Root.ChildComponents) != 1 || len(got.Root.ChildComponents[0].Resolved) == 0 {
			t.Errorf("expected the text child to be expanded, got %+v", got.Root.ChildComponents)
		}

		history, err := execute(t, "history", "--db-dir", dbDir, "acme/components/hero")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(history, "(1 runs)") {
			t.Errorf("expected one stored run, got %q", history)
		}
	})

	t.Run("writes a react report to stdout", func(t *testing.T) {
		srv := newRepository(t)

		stdout, err := execute(t, "crawl", "--host", srv.URL, "--no-save",
			"-f", "react", "-o", "-", "acme/components/hero")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got report.ReactReport
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("output is not a react report: %v\n%s", err, stdout)
		}
		if got.ComponentName != "Hero" {
			t.Errorf("got %q, expected %q", got.ComponentName, "Hero")
		}
		if got.ReactStructure.ComponentPath != "src/components/acme/components/hero" {
			t.Errorf("unexpected component path %q", got.ReactStructure.ComponentPath)
		}
	})

	t.Run("compresses .zst reports", func(t *testing.T) {
		srv := newRepository(t)
		output := filepath.Join(t.TempDir(), "hero.md.zst")

		if _, err := execute(t, "crawl", "--host", srv.URL, "--no-save", "-q",
			"-f", "markdown", "-o", output, "acme/components/hero"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		compressed, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			t.Fatalf("failed to create decoder: %v", err)
		}
		defer dec.Close()
		data, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			t.Fatalf("failed to decompress: %v", err)
		}
		if !strings.Contains(string(data), "# Component Dependencies") {
			t.Errorf("unexpected markdown %q", data)
		}
	})

	t.Run("missing component fails without a report", func(t *testing.T) {
		srv := newRepository(t)
		output := filepath.Join(t.TempDir(), "missing.json")

		_, err := execute(t, "crawl", "--host", srv.URL, "--no-save",
			"-o", output, "acme/components/missing")
		if !errors.Is(err, crawler.ErrIdentityUnavailable) {
			t.Errorf("got %v, expected %v", err, crawler.ErrIdentityUnavailable)
		}
		if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
			t.Error("expected no report file")
		}
	})

	t.Run("host from the environment", func(t *testing.T) {
		srv := newRepository(t)
		t.Setenv(config.EnvHost, srv.URL)

		stdout, err := execute(t, "crawl", "--no-save", "-f", "text", "-o", "-", "acme/components/teaser")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Teaser") {
			t.Errorf("unexpected output %q", stdout)
		}
	})

	t.Run("requires a component path", func(t *testing.T) {
		if _, err := execute(t, "crawl"); err == nil {
			t.Error("expected an error without arguments")
		}
	})

	t.Run("root command crawls a positional path", func(t *testing.T) {
		srv := newRepository(t)

		stdout, err := execute(t, "--host", srv.URL, "--no-save", "-f", "react", "-o", "-", "acme/components/hero")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got report.ReactReport
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("output is not a react report: %v\n%s", err, stdout)
		}
		if got.ComponentName != "Hero" {
			t.Errorf("got %q, expected %q", got.ComponentName, "Hero")
		}
	})

	t.Run("root command rejects extra paths", func(t *testing.T) {
		if _, err := execute(t, "acme/components/hero", "acme/components/teaser"); err == nil {
			t.Error("expected an error for two positional paths")
		}
	})

	t.Run("rejects an unknown format", func(t *testing.T) {
		srv := newRepository(t)

		_, err := execute(t, "crawl", "--host", srv.URL, "--no-save", "-f", "yaml", "acme/components/hero")
		if !errors.Is(err, config.ErrInvalidFormat) {
			t.Errorf("got %v, expected %v", err, config.ErrInvalidFormat)
		}
		if srv.TotalHits() != 0 {
			t.Errorf("got %d requests, expected none", srv.TotalHits())
		}
	})

	t.Run("rejects a missing explicit project file", func(t *testing.T) {
		_, err := execute(t, "crawl", "-c", filepath.Join(t.TempDir(), "missing.yaml"), "acme/components/hero")
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("got %v, expected %v", err, config.ErrConfigNotFound)
		}
	})
}

// TestCompareCmd tests comparing two components.
func TestCompareCmd(t *testing.T) {
	t.Run("reports differences", func(t *testing.T) {
		srv := newRepository(t)
		dbDir := t.TempDir()

		stdout, err := execute(t, "compare", "--host", srv.URL, "--db-dir", dbDir,
			"acme/components/hero", "acme/components/teaser")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"COMPONENT COMPARISON",
			"jcr:title: Hero -> Teaser",
			"models only in A: com.acme.models.Hero",
			"models only in B: com.acme.models.Teaser",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected output to contain %q, got %q", want, stdout)
			}
		}

		// Both crawls were stored, so history can be compared offline.
		offline, err := execute(t, "compare", "--from-history", "--db-dir", dbDir,
			"acme/components/hero", "acme/components/teaser")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if offline != stdout {
			t.Errorf("got %q, expected %q", offline, stdout)
		}
	})

	t.Run("identical components", func(t *testing.T) {
		srv := newRepository(t)

		stdout, err := execute(t, "compare", "--host", srv.URL, "--no-save",
			"acme/components/hero", "/apps/acme/components/hero")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No differences found.") {
			t.Errorf("unexpected output %q", stdout)
		}
	})

	t.Run("rejects react format", func(t *testing.T) {
		_, err := execute(t, "compare", "-f", "react", "a", "b")
		if !errors.Is(err, report.ErrComparisonUnsupported) {
			t.Errorf("got %v, expected %v", err, report.ErrComparisonUnsupported)
		}
	})

	t.Run("empty history", func(t *testing.T) {
		newRepository(t)

		_, err := execute(t, "compare", "--from-history", "--db-dir", t.TempDir(),
			"acme/components/hero", "acme/components/teaser")
		if err == nil {
			t.Error("expected an error without stored runs")
		}
	})

	t.Run("requires two components", func(t *testing.T) {
		if _, err := execute(t, "compare", "acme/components/hero"); err == nil {
			t.Error("expected an error with one argument")
		}
	})
}

// TestHistoryCmd tests listing and showing stored runs.
func TestHistoryCmd(t *testing.T) {
	t.Run("without a database", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		stdout, err := execute(t, "history", "--db-dir", t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No crawl history found.") {
			t.Errorf("unexpected output %q", stdout)
		}
	})

	t.Run("lists components and shows a run", func(t *testing.T) {
		srv := newRepository(t)
		dbDir := t.TempDir()

		if _, err := execute(t, "crawl", "--host", srv.URL, "--db-dir", dbDir, "-q",
			"-o", filepath.Join(t.TempDir(), "hero.json"), "acme/components/hero"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		list, err := execute(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(list, "/apps/acme/components/hero") {
			t.Errorf("unexpected output %q", list)
		}

		runs, err := execute(t, "history", "--db-dir", dbDir, "/apps/acme/components/hero")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		runID := ""
		for _, line := range strings.Split(runs, "\n") {
			fields := strings.Fields(line)
			if len(fields) > 0 && len(fields[0]) == 36 && strings.Count(fields[0], "-") == 4 {
				runID = fields[0]
				break
			}
		}
		if runID == "" {
			t.Fatalf("no run ID in %q", runs)
		}

		shown, err := execute(t, "history", "--db-dir", dbDir, "--show", runID, "-f", "json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(shown, `"runId": "`+runID+`"`) {
			t.Errorf("expected the stored graph, got %q", shown)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		srv := newRepository(t)
		dbDir := t.TempDir()

		if _, err := execute(t, "crawl", "--host", srv.URL, "--db-dir", dbDir, "-q",
			"-o", filepath.Join(t.TempDir(), "hero.json"), "acme/components/hero"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := execute(t, "history", "--db-dir", dbDir, "--show", "no-such-run")
		if !errors.Is(err, ErrNoHistory) {
			t.Errorf("got %v, expected %v", err, ErrNoHistory)
		}
	})
}
