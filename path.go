package configurator

import "github.com/reoring/configurator/internal/pathutil"

// SplitLastPathSegment splits "root.a.b" into ("root.a", "b").
func SplitLastPathSegment(path string) (parent, last string) {
	return pathutil.SplitLast(path)
}

// NormalizeKeys converts a decoded document into nested map[string]any,
// stringifying non-string keys. It returns nil when v is not a mapping.
func NormalizeKeys(v any) map[string]any {
	return pathutil.NormalizeKeys(v)
}
