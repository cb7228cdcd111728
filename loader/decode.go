package loader

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DuplicateKeyError reports a mapping key that appears twice. Line and
// column are only known for YAML input.
type DuplicateKeyError struct {
	Key       string
	Path      string
	Line      int
	Col       int
	FirstLine int
	FirstCol  int
}

func (e *DuplicateKeyError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("duplicate key %q in %s", e.Key, e.Path)
	}
	return fmt.Sprintf("duplicate key %q in %s at %d:%d (first at %d:%d)", e.Key, e.Path, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

// decodeYAML reads the first document. Integers decode to int64.
func decodeYAML(src []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(src)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return yamlValue(&doc, "")
}

func yamlValue(n *yaml.Node, path string) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0], path)
	case yaml.AliasNode:
		return yamlValue(n.Alias, path)
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		first := make(map[string]*yaml.Node, len(n.Content)/2)
		var merged []map[string]any
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.ShortTag() == "!!merge" {
				mm, err := yamlMerge(v, path)
				if err != nil {
					return nil, err
				}
				merged = append(merged, mm...)
				continue
			}
			if prev, dup := first[k.Value]; dup {
				return nil, &DuplicateKeyError{
					Key: k.Value, Path: where(path),
					Line: k.Line, Col: k.Column,
					FirstLine: prev.Line, FirstCol: prev.Column,
				}
			}
			first[k.Value] = k
			val, err := yamlValue(v, join(path, k.Value))
			if err != nil {
				return nil, err
			}
			m[k.Value] = val
		}
		// explicit keys win, then earlier merge sources
		for _, mm := range merged {
			for k, v := range mm {
				if _, ok := m[k]; !ok {
					m[k] = v
				}
			}
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for i, c := range n.Content {
			v, err := yamlValue(c, join(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return yamlScalar(n), nil
	default:
		return nil, nil
	}
}

// yamlMerge resolves the value of a "<<" key: a mapping or a sequence of
// mappings.
func yamlMerge(n *yaml.Node, path string) ([]map[string]any, error) {
	if n.Kind == yaml.SequenceNode {
		var out []map[string]any
		for _, c := range n.Content {
			mm, err := yamlMerge(c, path)
			if err != nil {
				return nil, err
			}
			out = append(out, mm...)
		}
		return out, nil
	}
	v, err := yamlValue(n, path)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("merge value in %s is not a mapping", where(path))
	}
	return []map[string]any{m}, nil
}

func yamlScalar(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		if i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64); err == nil {
			return i
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	}
	return n.Value
}

// decodeJSON rejects duplicate object keys, then decodes with go-json.
func decodeJSON(src []byte) (any, error) {
	if len(bytes.TrimSpace(src)) == 0 {
		return nil, nil
	}
	if err := checkJSONDuplicates(src); err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(src, &v); err != nil {
		return nil, err
	}
	return v, nil
}

type jsonFrame struct {
	object bool
	path   string
	keys   map[string]struct{}
	key    string
	// wantKey is true when the next string token in an object is a key.
	wantKey bool
	index   int
}

// checkJSONDuplicates walks the token stream. Syntax errors are left for the
// decoder to report.
func checkJSONDuplicates(src []byte) error {
	dec := stdjson.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	var stack []jsonFrame

	// childPath is the path of the value about to start in the top frame.
	childPath := func() string {
		if len(stack) == 0 {
			return ""
		}
		top := &stack[len(stack)-1]
		if top.object {
			return join(top.path, top.key)
		}
		return join(top.path, strconv.Itoa(top.index))
	}
	// valueDone marks the end of a value inside the top frame.
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.object {
			top.wantKey = true
		} else {
			top.index++
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		switch v := tok.(type) {
		case stdjson.Delim:
			switch v {
			case '{':
				stack = append(stack, jsonFrame{object: true, path: childPath(), keys: map[string]struct{}{}, wantKey: true})
			case '[':
				stack = append(stack, jsonFrame{path: childPath()})
			case '}', ']':
				stack = stack[:len(stack)-1]
				valueDone()
			}
		case string:
			if len(stack) > 0 && stack[len(stack)-1].object && stack[len(stack)-1].wantKey {
				top := &stack[len(stack)-1]
				if _, dup := top.keys[v]; dup {
					return &DuplicateKeyError{Key: v, Path: where(top.path)}
				}
				top.keys[v] = struct{}{}
				top.key = v
				top.wantKey = false
				continue
			}
			valueDone()
		default:
			valueDone()
		}
	}
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func where(path string) string {
	if path == "" {
		return "document root"
	}
	return path
}
