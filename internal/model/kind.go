package model

import (
	"fmt"
	"sort"
)

// BundleKind is the kind of client library output a template includes.
type BundleKind int

const (
	// KindCSS is a stylesheet include (clientlib.css).
	KindCSS BundleKind = iota

	// KindJS is a script include (clientlib.js).
	KindJS
)

// String returns the short name used in templates and JSON output.
func (k BundleKind) String() string {
	switch k {
	case KindCSS:
		return "css"
	case KindJS:
		return "js"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k BundleKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *BundleKind) UnmarshalText(text []byte) error {
	kinds, err := ParseBundleKinds(string(text))
	if err != nil {
		return err
	}
	if len(kinds) != 1 {
		return fmt.Errorf("ambiguous bundle kind %q", string(text))
	}
	*k = kinds[0]
	return nil
}

// AllBundleKinds returns every kind in a stable order.
func AllBundleKinds() []BundleKind {
	return []BundleKind{KindCSS, KindJS}
}

// ParseBundleKinds converts a template include selector into kinds.
// "all" expands to both css and js.
func ParseBundleKinds(s string) ([]BundleKind, error) {
	switch s {
	case "css":
		return []BundleKind{KindCSS}, nil
	case "js":
		return []BundleKind{KindJS}, nil
	case "all":
		return AllBundleKinds(), nil
	default:
		return nil, fmt.Errorf("unknown bundle kind %q", s)
	}
}

// UnionKinds merges kind lists, dropping duplicates and sorting the result.
func UnionKinds(lists ...[]BundleKind) []BundleKind {
	seen := make(map[BundleKind]bool)
	result := make([]BundleKind, 0, 2)
	for _, list := range lists {
		for _, k := range list {
			if !seen[k] {
				seen[k] = true
				result = append(result, k)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// HasKind reports whether kinds contains k.
func HasKind(kinds []BundleKind, k BundleKind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}
