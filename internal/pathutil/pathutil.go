// Package pathutil holds the dotted-path and key helpers shared by the root
// package and the loader.
package pathutil

import (
	"fmt"
	"reflect"
	"strings"
)

// RootName is the name of the top-level section; paths may start with it.
const RootName = "root"

// SplitLast splits "a.b.c" into ("a.b", "c"). A path without separator
// returns ("", path).
func SplitLast(path string) (parent, last string) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// Segments splits a dotted path, dropping empty parts and a leading root
// segment.
func Segments(path string) []string {
	parts := strings.Split(path, ".")
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || (i == 0 && p == RootName) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Qualify prefixes path with the root segment unless it already has one.
func Qualify(path string) string {
	if path == RootName || strings.HasPrefix(path, RootName+".") {
		return path
	}
	if path == "" {
		return RootName
	}
	return RootName + "." + path
}

// NormalizeKeys converts decoded documents (YAML may produce map[any]any)
// and typed Go maps into map[string]any recursively. Non-string keys are
// stringified.
func NormalizeKeys(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = NormalizeValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = NormalizeValue(vv)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = NormalizeValue(iter.Value().Interface())
	}
	return out
}

// NormalizeValue applies NormalizeKeys to every mapping nested in v.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any, map[any]any:
		return NormalizeKeys(t)
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = NormalizeValue(t[i])
		}
		return arr
	}
	if v != nil && reflect.TypeOf(v).Kind() == reflect.Map {
		return NormalizeKeys(v)
	}
	return v
}
