package extractor

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/nao1215/componentscan/internal/model"
)

const heroTemplate = `<sly data-sly-use.clientlib="/libs/granite/sightly/templates/clientlib.html"/>
<sly data-sly-call="${clientlib.css @ categories='site.base'}"/>
<div data-sly-use.hero="com.acme.models.Hero" class="hero">
  <img src="/content/dam/acme/hero.jpg" alt="${hero.alt}">
  <img data-src="/content/dam/acme/lazy.WEBP">
  <img src="${hero.image}">
  <div data-sly-resource="${'child1' @ resourceType='acme/components/text'}"></div>
</div>`

// TestExtractHeroTemplate tests a typical component template.
func TestExtractHeroTemplate(t *testing.T) {
	t.Parallel()

	r := Extract(heroTemplate)

	t.Run("bundles", func(t *testing.T) {
		t.Parallel()
		want := []BundleRef{{Category: "site.base", Kinds: []model.BundleKind{model.KindCSS}}}
		if !reflect.DeepEqual(r.BundleRefs, want) {
			t.Errorf("got %+v, expected %+v", r.BundleRefs, want)
		}
	})

	t.Run("models skip template libraries", func(t *testing.T) {
		t.Parallel()
		want := []string{"com.acme.models.Hero"}
		if !reflect.DeepEqual(r.ModelRefs, want) {
			t.Errorf("got %v, expected %v", r.ModelRefs, want)
		}
	})

	t.Run("children", func(t *testing.T) {
		t.Parallel()
		want := []ChildRef{{Path: "child1", ResourceType: "acme/components/text"}}
		if !reflect.DeepEqual(r.ChildRefs, want) {
			t.Errorf("got %+v, expected %+v", r.ChildRefs, want)
		}
	})

	t.Run("calls", func(t *testing.T) {
		t.Parallel()
		want := []model.TemplateCall{{Object: "clientlib", Method: "css"}}
		if !reflect.DeepEqual(r.TemplateCalls, want) {
			t.Errorf("got %+v, expected %+v", r.TemplateCalls, want)
		}
	})

	t.Run("assets", func(t *testing.T) {
		t.Parallel()
		want := []string{"/content/dam/acme/hero.jpg", "/content/dam/acme/lazy.WEBP"}
		if !reflect.DeepEqual(r.Assets, want) {
			t.Errorf("got %v, expected %v", r.Assets, want)
		}
	})
}

// TestExtractBundles tests category parsing and kind merging.
func TestExtractBundles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		markup string
		want   []BundleRef
	}{
		{
			name:   "all expands to both kinds",
			markup: `${clientlib.all @ categories="a,b"}`,
			want: []BundleRef{
				{Category: "a", Kinds: []model.BundleKind{model.KindCSS, model.KindJS}},
				{Category: "b", Kinds: []model.BundleKind{model.KindCSS, model.KindJS}},
			},
		},
		{
			name:   "css and js of same category merge",
			markup: `${clientlib.js @ categories='site.base'} ${clientlib.css @ categories='site.base, site.theme'}`,
			want: []BundleRef{
				{Category: "site.base", Kinds: []model.BundleKind{model.KindCSS, model.KindJS}},
				{Category: "site.theme", Kinds: []model.BundleKind{model.KindCSS}},
			},
		},
		{
			name:   "array form",
			markup: `${clientlib.js @ categories=['one', 'two']}`,
			want: []BundleRef{
				{Category: "one", Kinds: []model.BundleKind{model.KindJS}},
				{Category: "two", Kinds: []model.BundleKind{model.KindJS}},
			},
		},
		{
			name:   "whitespace around operators",
			markup: `${ clientlib.css   @   categories = 'spaced' }`,
			want:   []BundleRef{{Category: "spaced", Kinds: []model.BundleKind{model.KindCSS}}},
		},
		{
			name:   "no directive",
			markup: `<div>plain</div>`,
			want:   []BundleRef{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Extract(tt.markup).BundleRefs
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, expected %+v", got, tt.want)
			}
		})
	}
}

// TestExtractChildren tests resource inclusion forms and ordering.
func TestExtractChildren(t *testing.T) {
	t.Parallel()

	markup := `
<div data-sly-resource="header" data-resourceType="x" resourceType="acme/components/header"></div>
<div data-sly-resource="${'text' @ resourceType='acme/components/text'}"></div>
<div data-sly-resource='${"text" @ decorationTagName="div", resourceType="acme/components/text"}'></div>
<div data-sly-resource="${item.path}"></div>`

	got := Extract(markup).ChildRefs
	want := []ChildRef{
		{Path: "header", ResourceType: "acme/components/header"},
		{Path: "text", ResourceType: "acme/components/text"},
		{Path: "text", ResourceType: "acme/components/text"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, expected %+v", got, want)
	}
}

// TestExtractCallsKeepDuplicates tests that each call occurrence is reported.
func TestExtractCallsKeepDuplicates(t *testing.T) {
	t.Parallel()

	markup := `<sly data-sly-call="${lib.render @ a=1}"/><sly data-sly-call="${lib.render @ a=2}"/>
<sly data-sly-call="${ other.item @ }"/>`
	got := Extract(markup).TemplateCalls
	want := []model.TemplateCall{
		{Object: "lib", Method: "render"},
		{Object: "lib", Method: "render"},
		{Object: "other", Method: "item"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, expected %+v", got, want)
	}
}

// TestExtractMalformed tests that broken markup yields empty results.
func TestExtractMalformed(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"<div",
		"${clientlib.css @ categories='unterminated",
		`data-sly-resource="${'x' @ resourceType=`,
		"\x00\xff<<<>>>",
	}
	for _, in := range inputs {
		r := Extract(in)
		if len(r.BundleRefs) != 0 || len(r.ChildRefs) != 0 || len(r.ModelRefs) != 0 {
			t.Errorf("Extract(%q) = %+v, expected empty", in, r)
		}
	}
}

// TestExtractProperties checks extraction invariants on generated input.
func TestExtractProperties(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("all expands every category to css and js", prop.ForAll(
		func(a, b string) bool {
			r := Extract(fmt.Sprintf(`${clientlib.all @ categories="%s,%s"}`, a, b))
			want := map[string]bool{a: true, b: true}
			if len(r.BundleRefs) != len(want) {
				return false
			}
			for _, ref := range r.BundleRefs {
				if !want[ref.Category] {
					return false
				}
				if !reflect.DeepEqual(ref.Kinds, []model.BundleKind{model.KindCSS, model.KindJS}) {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("one call pair per occurrence", prop.ForAll(
		func(obj, method string, n int) bool {
			markup := strings.Repeat(fmt.Sprintf(`<sly data-sly-call="${%s.%s @ x=1}"/>`, obj, method), n)
			calls := Extract(markup).TemplateCalls
			if len(calls) != n {
				return false
			}
			for _, c := range calls {
				if c.Object != obj || c.Method != method {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.IntRange(1, 5),
	))

	properties.Property("arbitrary input never panics", prop.ForAll(
		func(s string) bool {
			r := Extract(s)
			return r != nil
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
