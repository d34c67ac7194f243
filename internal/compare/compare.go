// Package compare reports the differences between two component graphs.
package compare

import (
	"reflect"
	"sort"
	"time"

	"github.com/nao1215/componentscan/internal/model"
)

// volatileProperties change on every save and are not compared.
var volatileProperties = map[string]bool{
	"jcr:created":              true,
	"jcr:createdBy":            true,
	"jcr:lastModified":         true,
	"jcr:lastModifiedBy":       true,
	"cq:lastModified":          true,
	"cq:lastModifiedBy":        true,
	"cq:lastReplicated":        true,
	"cq:lastReplicatedBy":      true,
	"cq:lastReplicationAction": true,
	"jcr:uuid":                 true,
}

// Compare returns the differences between a and b. Nested child graphs are
// not compared; the clientlib and model sets of a and b already include
// what their children contributed.
func Compare(a, b *model.DependencyGraph) *model.Comparison {
	return &model.Comparison{
		A:             a.Root.Identifier,
		B:             b.Root.Identifier,
		Properties:    properties(a.Root.Properties, b.Root.Properties),
		Dialog:        dialogFields(a.Root.Dialog, b.Root.Dialog),
		Clientlibs:    sets(a.Categories(), b.Categories()),
		Models:        sets(a.SlingModels, b.SlingModels),
		ChangedFiles:  changedFiles(a.Clientlibs, b.Clientlibs),
		SameSuperType: a.Root.ResourceSuperType == b.Root.ResourceSuperType,
		ComparedAt:    time.Now().UTC(),
	}
}

func properties(a, b map[string]any) []model.PropertyDiff {
	keys := make(map[string]bool)
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		if !volatileProperties[k] {
			sorted = append(sorted, k)
		}
	}
	sort.Strings(sorted)

	diffs := make([]model.PropertyDiff, 0)
	for _, k := range sorted {
		va, vb := a[k], b[k]
		if !reflect.DeepEqual(va, vb) {
			diffs = append(diffs, model.PropertyDiff{Key: k, A: va, B: vb})
		}
	}
	return diffs
}

func dialogFields(a, b *model.DialogInfo) model.FieldDiff {
	fa, fb := fieldsByName(a), fieldsByName(b)
	diff := model.FieldDiff{
		OnlyInA: make([]string, 0),
		OnlyInB: make([]string, 0),
		Changed: make([]string, 0),
	}
	for name, x := range fa {
		y, ok := fb[name]
		switch {
		case !ok:
			diff.OnlyInA = append(diff.OnlyInA, name)
		case x.ResourceType != y.ResourceType || x.Label != y.Label || x.Required != y.Required:
			diff.Changed = append(diff.Changed, name)
		}
	}
	for name := range fb {
		if _, ok := fa[name]; !ok {
			diff.OnlyInB = append(diff.OnlyInB, name)
		}
	}
	sort.Strings(diff.OnlyInA)
	sort.Strings(diff.OnlyInB)
	sort.Strings(diff.Changed)
	return diff
}

func fieldsByName(d *model.DialogInfo) map[string]model.DialogField {
	m := make(map[string]model.DialogField)
	if d == nil {
		return m
	}
	for _, f := range d.Fields {
		m[f.Name] = f
	}
	return m
}

func sets(a, b []string) model.SetDiff {
	inA := make(map[string]bool, len(a))
	for _, v := range a {
		inA[v] = true
	}
	inB := make(map[string]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}

	diff := model.SetDiff{
		Common:  make([]string, 0),
		OnlyInA: make([]string, 0),
		OnlyInB: make([]string, 0),
	}
	for v := range inA {
		if inB[v] {
			diff.Common = append(diff.Common, v)
		} else {
			diff.OnlyInA = append(diff.OnlyInA, v)
		}
	}
	for v := range inB {
		if !inA[v] {
			diff.OnlyInB = append(diff.OnlyInB, v)
		}
	}
	sort.Strings(diff.Common)
	sort.Strings(diff.OnlyInA)
	sort.Strings(diff.OnlyInB)
	return diff
}

// changedFiles lists "<category>/<kind>/<name>" for files both graphs
// resolved whose digests differ.
func changedFiles(a, b map[string]*model.BundleDependency) []string {
	changed := make([]string, 0)
	for category, da := range a {
		db, ok := b[category]
		if !ok {
			continue
		}
		for kind, files := range da.Files {
			digests := make(map[string]string, len(db.Files[kind]))
			for _, f := range db.Files[kind] {
				digests[f.Name] = f.Digest
			}
			for _, f := range files {
				if d, ok := digests[f.Name]; ok && d != f.Digest {
					changed = append(changed, category+"/"+kind+"/"+f.Name)
				}
			}
		}
	}
	sort.Strings(changed)
	return changed
}
