package crawler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/componentscan/internal/crawler"
	"github.com/nao1215/componentscan/internal/model"
	"github.com/nao1215/componentscan/internal/repository/repositorytest"
)

// component registers metadata and an HTL template for a component path.
// Each child resource type is rendered with one data-sly-resource directive.
func component(t *testing.T, srv *repositorytest.Server, p string, children ...string) {
	t.Helper()

	srv.JSON(t, p+".json", map[string]any{
		"jcr:primaryType": "cq:Component",
		"jcr:title":       path.Base(p),
	})
	var b strings.Builder
	for i, rt := range children {
		fmt.Fprintf(&b, "<div data-sly-resource=\"${'item%d' @ resourceType='%s'}\"></div>\n", i, rt)
	}
	srv.Text(p+"/"+path.Base(p)+".html", b.String())
}

func newCrawler(t *testing.T, srv *repositorytest.Server, opts ...crawler.Option) *crawler.Crawler {
	t.Helper()
	opts = append([]crawler.Option{
		crawler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return crawler.New(srv.Client(t), opts...)
}

func recursive(depth int) crawler.Options {
	opts := crawler.DefaultOptions()
	opts.Recursive = true
	opts.MaxDepth = depth
	return opts
}

// TestCrawlScenario tests a non-recursive crawl of a root with one clientlib,
// one model and one child.
func TestCrawlScenario(t *testing.T) {
	t.Parallel()

	const root = "/apps/acme/components/page"
	srv := repositorytest.NewServer(t)
	srv.JSON(t, root+".json", map[string]any{"jcr:title": "Page"})
	srv.Text(root+"/page.html", `<sly data-sly-call="${clientlib.css @ categories='site.base'}"></sly>
<div data-sly-use.hero="com.acme.models.Hero"></div>
<div data-sly-resource="${'child1' @ resourceType='acme/components/text'}"></div>`)
	srv.JSON(t, "/apps/myapp/clientlibs/site/base.json", map[string]any{
		"categories": []any{"site.base"},
	})
	component(t, srv, "/apps/acme/components/text")

	graph, err := newCrawler(t, srv).Crawl(context.Background(), root, crawler.DefaultOptions())
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if len(graph.Clientlibs) != 1 || graph.Clientlibs["site.base"] == nil {
		t.Errorf("unexpected clientlibs %v", graph.Clientlibs)
	}
	if got := graph.Clientlibs["site.base"].Kinds; !reflect.DeepEqual(got, []model.BundleKind{model.KindCSS}) {
		t.Errorf("got %v, expected [css]", got)
	}
	if !reflect.DeepEqual(graph.SlingModels, []string{"com.acme.models.Hero"}) {
		t.Errorf("unexpected models %v", graph.SlingModels)
	}

	children := graph.Root.ChildComponents
	if len(children) != 1 || children[0].Path != "child1" || children[0].ResourceType != "acme/components/text" {
		t.Fatalf("unexpected children %+v", children)
	}
	if children[0].ResolvedDependencies != nil {
		t.Error("child should not be expanded without recursion")
	}
	data, err := json.Marshal(children[0])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "resolveddependencies") {
		t.Errorf("descriptor should omit resolveddependencies: %s", data)
	}

	if srv.Hits("/apps/acme/components/text.json") != 0 {
		t.Error("child must not be fetched without recursion")
	}
	if graph.RunID == "" || graph.Stats == nil || graph.Stats.Components != 1 {
		t.Errorf("unexpected run data %q %+v", graph.RunID, graph.Stats)
	}
}

// TestCrawlDepthBound tests that no component deeper than MaxDepth is analyzed.
func TestCrawlDepthBound(t *testing.T) {
	t.Parallel()

	chain := func(t *testing.T) *repositorytest.Server {
		srv := repositorytest.NewServer(t)
		component(t, srv, "/apps/acme/components/root", "acme/components/a")
		component(t, srv, "/apps/acme/components/a", "acme/components/b")
		component(t, srv, "/apps/acme/components/b", "acme/components/c")
		component(t, srv, "/apps/acme/components/c")
		return srv
	}

	tests := []struct {
		name     string
		depth    int
		analyzed []string
		skipped  []string
	}{
		{"depth zero", 0, []string{"root"}, []string{"a", "b", "c"}},
		{"depth one", 1, []string{"root", "a"}, []string{"b", "c"}},
		{"depth three", 3, []string{"root", "a", "b", "c"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := chain(t)
			graph, err := newCrawler(t, srv).Crawl(context.Background(), "/apps/acme/components/root", recursive(tt.depth))
			if err != nil {
				t.Fatalf("Crawl() error = %v", err)
			}

			if graph.ComponentCount() != len(tt.analyzed) {
				t.Errorf("got %d components, expected %d", graph.ComponentCount(), len(tt.analyzed))
			}
			if graph.MaxDepth() > tt.depth {
				t.Errorf("graph depth %d exceeds %d", graph.MaxDepth(), tt.depth)
			}
			for _, name := range tt.analyzed {
				p := "/apps/acme/components/" + name + "/" + name + ".html"
				if srv.Hits(p) != 1 {
					t.Errorf("%s fetched %d times, expected 1", p, srv.Hits(p))
				}
			}
			for _, name := range tt.skipped {
				p := "/apps/acme/components/" + name + "/" + name + ".html"
				if srv.Hits(p) != 0 {
					t.Errorf("%s should not be fetched", p)
				}
			}
		})
	}

	t.Run("marks the descriptor at the limit", func(t *testing.T) {
		t.Parallel()

		graph, err := newCrawler(t, chain(t)).Crawl(context.Background(), "/apps/acme/components/root", recursive(0))
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}
		if got := graph.Root.ChildComponents[0].Skipped; got != crawler.SkipDepthLimit {
			t.Errorf("got %q, expected %q", got, crawler.SkipDepthLimit)
		}
	})
}

// TestCrawlVisitsOnce tests that a component shared by two parents is analyzed once.
func TestCrawlVisitsOnce(t *testing.T) {
	t.Parallel()

	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			t.Parallel()

			srv := repositorytest.NewServer(t)
			component(t, srv, "/apps/acme/components/root", "acme/components/x", "acme/components/y", "acme/components/x")
			component(t, srv, "/apps/acme/components/x", "acme/components/shared")
			component(t, srv, "/apps/acme/components/y", "acme/components/shared")
			component(t, srv, "/apps/acme/components/shared")

			opts := recursive(3)
			opts.Concurrency = concurrency
			graph, err := newCrawler(t, srv).Crawl(context.Background(), "/apps/acme/components/root", opts)
			if err != nil {
				t.Fatalf("Crawl() error = %v", err)
			}

			if got := srv.Hits("/apps/acme/components/shared/shared.html"); got != 1 {
				t.Errorf("shared template fetched %d times, expected 1", got)
			}
			if got := graph.ComponentCount(); got != 4 {
				t.Errorf("got %d components, expected 4", got)
			}
			if graph.Stats.Components != 4 {
				t.Errorf("got %d analyzed, expected 4", graph.Stats.Components)
			}

			children := graph.Root.ChildComponents
			if len(children) != 3 {
				t.Fatalf("sibling duplicates must be preserved, got %d", len(children))
			}
			if children[0].ResolvedDependencies == nil || children[2].Ref != "/apps/acme/components/x" {
				t.Errorf("unexpected descriptors %+v %+v", children[0], children[2])
			}

			refs, expanded := 0, 0
			graph.Walk(func(_ int, g *model.DependencyGraph) bool {
				for _, c := range g.Root.ChildComponents {
					if c.ResourceType != "acme/components/shared" {
						continue
					}
					if c.Ref != "" {
						refs++
					}
					if c.ResolvedDependencies != nil {
						expanded++
					}
				}
				return true
			})
			if refs != 1 || expanded != 1 {
				t.Errorf("got %d refs and %d expansions, expected 1 and 1", refs, expanded)
			}
		})
	}
}

// TestCrawlClaimsShallowestReference tests that a component reachable at
// two depths is expanded from the shallower parent, so its own children
// stay within reach of the depth bound.
func TestCrawlClaimsShallowestReference(t *testing.T) {
	t.Parallel()

	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			t.Parallel()

			srv := repositorytest.NewServer(t)
			component(t, srv, "/apps/acme/components/root", "acme/components/b", "acme/components/a")
			component(t, srv, "/apps/acme/components/b", "acme/components/c")
			component(t, srv, "/apps/acme/components/c", "acme/components/x")
			component(t, srv, "/apps/acme/components/a", "acme/components/x")
			component(t, srv, "/apps/acme/components/x", "acme/components/y")
			component(t, srv, "/apps/acme/components/y")

			opts := recursive(3)
			opts.Concurrency = concurrency
			graph, err := newCrawler(t, srv).Crawl(context.Background(), "/apps/acme/components/root", opts)
			if err != nil {
				t.Fatalf("Crawl() error = %v", err)
			}

			if got := srv.Hits("/apps/acme/components/y/y.html"); got != 1 {
				t.Errorf("y template fetched %d times, expected 1", got)
			}
			if got := graph.ComponentCount(); got != 6 {
				t.Errorf("got %d components, expected 6", got)
			}

			b, a := graph.Root.ChildComponents[0], graph.Root.ChildComponents[1]
			if a.ResolvedDependencies == nil || b.ResolvedDependencies == nil {
				t.Fatalf("expected a and b to be expanded")
			}
			viaA := a.ResolvedDependencies.Root.ChildComponents[0]
			if viaA.ResolvedDependencies == nil {
				t.Fatalf("expected x to be expanded through a, got %+v", viaA)
			}
			if y := viaA.ResolvedDependencies.Root.ChildComponents[0]; y.ResolvedDependencies == nil {
				t.Errorf("expected y to be expanded under x, got %+v", y)
			}
			c := b.ResolvedDependencies.Root.ChildComponents[0].ResolvedDependencies
			if c == nil {
				t.Fatal("expected c to be expanded")
			}
			if got := c.Root.ChildComponents[0].Ref; got != "/apps/acme/components/x" {
				t.Errorf("got %q, expected a reference to x", got)
			}
		})
	}
}

// TestCrawlCycle tests termination over cyclic child references.
func TestCrawlCycle(t *testing.T) {
	t.Parallel()

	srv := repositorytest.NewServer(t)
	component(t, srv, "/apps/acme/components/a", "acme/components/b")
	component(t, srv, "/apps/acme/components/b", "acme/components/a")

	graph, err := newCrawler(t, srv).Crawl(context.Background(), "acme/components/a", recursive(10))
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	b := graph.Root.ChildComponents[0].ResolvedDependencies
	if b == nil {
		t.Fatal("expected b to be expanded")
	}
	if got := b.Root.ChildComponents[0].Ref; got != "/apps/acme/components/a" {
		t.Errorf("got %q, expected a reference to the root", got)
	}
}

// TestCrawlExcludedNamespace tests that foundation children are never expanded.
func TestCrawlExcludedNamespace(t *testing.T) {
	t.Parallel()

	srv := repositorytest.NewServer(t)
	component(t, srv, "/apps/acme/components/root", "foundation/components/parsys", "/libs/foundation/components/image")

	graph, err := newCrawler(t, srv).Crawl(context.Background(), "/apps/acme/components/root", recursive(3))
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	for _, c := range graph.Root.ChildComponents {
		if c.Skipped != crawler.SkipExcludedNamespace || c.ResolvedDependencies != nil {
			t.Errorf("unexpected descriptor %+v", c)
		}
	}
	if srv.TotalHits() == 0 || srv.Hits("/apps/foundation/components/parsys.json") != 0 {
		t.Error("excluded namespace must not be fetched")
	}
}

// TestCrawlMergesChildDependencies tests that the root graph carries the closure.
func TestCrawlMergesChildDependencies(t *testing.T) {
	t.Parallel()

	srv := repositorytest.NewServer(t)
	srv.JSON(t, "/apps/acme/components/root.json", map[string]any{"jcr:title": "Root"})
	srv.Text("/apps/acme/components/root/root.html", `<sly data-sly-call="${clientlib.css @ categories='site.base'}"></sly>
<div data-sly-resource="${'c' @ resourceType='acme/components/child'}"></div>`)
	srv.JSON(t, "/apps/acme/components/child.json", map[string]any{"jcr:title": "Child"})
	srv.Text("/apps/acme/components/child/child.html", `<sly data-sly-call="${clientlib.js @ categories='site.base'}"></sly>
<sly data-sly-use.m="com.acme.models.Child"></sly>`)

	graph, err := newCrawler(t, srv).Crawl(context.Background(), "/apps/acme/components/root", recursive(2))
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	base := graph.Clientlibs["site.base"]
	if base == nil || !reflect.DeepEqual(base.Kinds, []model.BundleKind{model.KindCSS, model.KindJS}) {
		t.Errorf("unexpected merged clientlib %+v", base)
	}
	if !reflect.DeepEqual(graph.SlingModels, []string{"com.acme.models.Child"}) {
		t.Errorf("unexpected merged models %v", graph.SlingModels)
	}
	child := graph.Root.ChildComponents[0].ResolvedDependencies
	if child == nil || child.RunID != graph.RunID {
		t.Errorf("child graph should belong to the same run: %+v", child)
	}
}

// TestCrawlWithoutDependencies tests that resolution is skipped.
func TestCrawlWithoutDependencies(t *testing.T) {
	t.Parallel()

	srv := repositorytest.NewServer(t)
	srv.JSON(t, "/apps/acme/components/root.json", map[string]any{
		"jcr:title":               "Root",
		"sling:resourceSuperType": "acme/components/base",
	})
	srv.Text("/apps/acme/components/root/root.html", `<sly data-sly-call="${clientlib.all @ categories='site.base'}"></sly>`)

	opts := crawler.DefaultOptions()
	opts.IncludeDependencies = false
	graph, err := newCrawler(t, srv).Crawl(context.Background(), "/apps/acme/components/root", opts)
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if len(graph.Clientlibs) != 0 || len(graph.SlingModels) != 0 || len(graph.Inheritance) != 0 {
		t.Errorf("dependencies should not be resolved: %+v", graph)
	}
	if srv.Hits("/apps/myapp/clientlibs/site/base.json") != 0 {
		t.Error("clientlib should not be looked up")
	}
}

// TestCrawlErrors tests the failures returned to the caller.
func TestCrawlErrors(t *testing.T) {
	t.Parallel()

	srv := repositorytest.NewServer(t)
	c := newCrawler(t, srv)

	t.Run("empty identifier", func(t *testing.T) {
		t.Parallel()
		_, err := c.Crawl(context.Background(), "  ", crawler.DefaultOptions())
		if !errors.Is(err, crawler.ErrEmptyIdentifier) {
			t.Errorf("got %v, expected %v", err, crawler.ErrEmptyIdentifier)
		}
	})

	t.Run("negative depth", func(t *testing.T) {
		t.Parallel()
		_, err := c.Crawl(context.Background(), "/apps/x", crawler.Options{MaxDepth: -1})
		if !errors.Is(err, crawler.ErrInvalidDepth) {
			t.Errorf("got %v, expected %v", err, crawler.ErrInvalidDepth)
		}
	})

	t.Run("unknown component", func(t *testing.T) {
		t.Parallel()
		graph, err := c.Crawl(context.Background(), "/apps/acme/components/missing", crawler.DefaultOptions())
		if !errors.Is(err, crawler.ErrIdentityUnavailable) || graph != nil {
			t.Errorf("got %v, expected %v", err, crawler.ErrIdentityUnavailable)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Crawl(ctx, "/apps/x", crawler.DefaultOptions())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, expected %v", err, context.Canceled)
		}
	})
}

// TestCrawlTemplateOnly tests that a root without metadata but with a template succeeds.
func TestCrawlTemplateOnly(t *testing.T) {
	t.Parallel()

	srv := repositorytest.NewServer(t)
	srv.Text("/apps/acme/components/bare/bare.html", "<div></div>")

	graph, err := newCrawler(t, srv).Crawl(context.Background(), "/apps/acme/components/bare", crawler.DefaultOptions())
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if graph.Root.MetadataFound || graph.Root.Template == nil {
		t.Errorf("unexpected root %+v", graph.Root)
	}
}

// TestBoundCrawler tests option binding.
func TestBoundCrawler(t *testing.T) {
	t.Parallel()

	srv := repositorytest.NewServer(t)
	component(t, srv, "/apps/acme/components/root", "acme/components/a")
	component(t, srv, "/apps/acme/components/a")

	graph, err := newCrawler(t, srv).WithOptions(recursive(1)).Crawl(context.Background(), "/apps/acme/components/root")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if graph.ComponentCount() != 2 {
		t.Errorf("got %d components, expected 2", graph.ComponentCount())
	}
}
