package configurator

import (
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/configurator/cast"
)

// ToMap renders the section as a nested map of resolved values. Deprecated
// and renamed entries are left out; aliases are kept. Reading values this way
// does not log delegation warnings.
func (s *Section) ToMap() (map[string]any, error) {
	out := make(map[string]any, len(s.order))
	for _, name := range s.order {
		n := s.children[name]
		if n.IsDeprecated() || n.IsRenamed() {
			continue
		}
		v, err := renderNode(n)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func renderNode(n Node) (any, error) {
	switch t := n.(type) {
	case *Section:
		return t.ToMap()
	case *Delegated:
		return renderNode(t.target)
	default:
		return n.Value()
	}
}

// ToYAML renders ToMap as YAML.
func (s *Section) ToYAML() ([]byte, error) {
	m, err := s.ToMap()
	if err != nil {
		return nil, err
	}
	b, err := yaml.Marshal(plain(m))
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}

// ToJSON renders ToMap as indented JSON.
func (s *Section) ToJSON() ([]byte, error) {
	m, err := s.ToMap()
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(plain(m), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// plain replaces canonical values that have no natural document form.
func plain(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = plain(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plain(t[i])
		}
		return out
	case *url.URL:
		return t.String()
	case cast.Symbol:
		return string(t)
	case cast.Path:
		return string(t)
	}
	return v
}
