// Package schemafile declares configuration schemas in YAML.
//
//	options:
//	  name: {type: string, default: app}
//	  port: {type: integer, default: 8080, validate_tag: "min=1,max=65535"}
//	  level: {type: symbol, default: info, expect: [debug, info, warn]}
//	  token: string
//	sections:
//	  database:
//	    options:
//	      host: {type: string, required: true}
//	renames:
//	  - {from: db, to: database}
//	deprecations:
//	  - {path: token, end_of_life: 2027-01-01}
package schemafile

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document holds the declarations of one section.
type Document struct {
	Options      Ordered[OptionSpec] `yaml:"options"`
	Sections     Ordered[Document]   `yaml:"sections"`
	Renames      []Move              `yaml:"renames"`
	Aliases      []Move              `yaml:"aliases"`
	Deprecations []Deprecation       `yaml:"deprecations"`

	// Section-level settings; ignored on the top-level document.
	Deprecated  Lifecycle `yaml:"deprecated"`
	RenamedFrom string    `yaml:"renamed_from"`
}

// OptionSpec declares one option. A bare scalar is shorthand for its type.
type OptionSpec struct {
	Type            string    `yaml:"type"`
	Cast            string    `yaml:"cast"`
	Default         any       `yaml:"default"`
	Required        *bool     `yaml:"required"`
	Optional        *bool     `yaml:"optional"`
	Validate        Check     `yaml:"validate"`
	ValidateMessage string    `yaml:"validate_message"`
	ValidateTag     string    `yaml:"validate_tag"`
	Expect          any       `yaml:"expect"`
	ExpectMessage   string    `yaml:"expect_message"`
	Deprecated      Lifecycle `yaml:"deprecated"`
	RenamedFrom     string    `yaml:"renamed_from"`
}

func (o *OptionSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		if n.ShortTag() != "!!null" {
			o.Type = n.Value
		}
		return nil
	}
	type plain OptionSpec
	return n.Decode((*plain)(o))
}

// Move is a rename or alias declaration.
type Move struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Deprecation marks an existing path deprecated.
type Deprecation struct {
	Path      string    `yaml:"path"`
	EndOfLife Lifecycle `yaml:"end_of_life"`
}

// Lifecycle is either a boolean or an end-of-life date.
type Lifecycle struct {
	Deprecated bool
	EndOfLife  time.Time
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02 15:04:05"}

func (l *Lifecycle) UnmarshalYAML(n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		return n.Decode(&l.Deprecated)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, n.Value); err == nil {
			l.Deprecated, l.EndOfLife = true, t
			return nil
		}
	}
	return fmt.Errorf("line %d: invalid end of life %q, expected true, false or a date", n.Line, n.Value)
}

// Check is the "validate" setting: false disables validation, a string is a
// regular expression the value must match.
type Check struct {
	Disabled bool
	Pattern  string
}

func (c *Check) UnmarshalYAML(n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var on bool
		if err := n.Decode(&on); err != nil {
			return err
		}
		c.Disabled = !on
		return nil
	case "!!str":
		c.Pattern = n.Value
		return nil
	}
	return fmt.Errorf("line %d: validate must be false or a pattern", n.Line)
}

// Named pairs a mapping key with its decoded value.
type Named[T any] struct {
	Name  string
	Value T
}

// Ordered decodes a mapping while keeping its key order.
type Ordered[T any] []Named[T]

func (o *Ordered[T]) UnmarshalYAML(n *yaml.Node) error {
	if n.ShortTag() == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if seen[k.Value] {
			return fmt.Errorf("line %d: %q declared twice", k.Line, k.Value)
		}
		seen[k.Value] = true
		var v T
		if err := n.Content[i+1].Decode(&v); err != nil {
			return err
		}
		*o = append(*o, Named[T]{Name: k.Value, Value: v})
	}
	return nil
}

// Parse decodes a schema document. Unknown top-level fields are errors.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &doc, nil
}

// ParseFile reads and decodes the schema at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) { return Parse(strings.NewReader(s)) }
