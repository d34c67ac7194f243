package model

import (
	"fmt"
	"regexp"
	"strings"
)

// StringProperty returns props[key] as a string, or "" when absent or not a scalar.
func StringProperty(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case bool, float64, int, int64:
		return fmt.Sprint(val)
	default:
		return ""
	}
}

// BoolProperty interprets props[key] as a boolean. Both JSON booleans and
// the strings "true"/"false" are accepted.
func BoolProperty(props map[string]any, key string) bool {
	switch val := props[key].(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	default:
		return false
	}
}

var bracketList = regexp.MustCompile(`^\[(.*?)\]$`)

// StringList normalizes a multi-value property. Arrays are returned as
// strings, "[a, b]" strings are split, and other strings become a single
// element list. nil and empty values yield nil.
func StringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				result = append(result, s)
			}
		}
		return result
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return nil
		}
		if m := bracketList.FindStringSubmatch(trimmed); m != nil {
			result := make([]string, 0)
			for _, part := range strings.Split(m[1], ",") {
				if p := strings.TrimSpace(part); p != "" {
					result = append(result, p)
				}
			}
			return result
		}
		return []string{trimmed}
	default:
		return nil
	}
}
