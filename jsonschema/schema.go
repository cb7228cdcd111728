// Package jsonschema exports configuration trees as JSON Schema, for editors
// and external validators.
package jsonschema

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/reoring/configurator"
	"github.com/reoring/configurator/cast"
)

// Draft is the dialect emitted in $schema.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is the subset of JSON Schema needed to describe a section tree.
type Schema struct {
	Dialect     string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Core
	Type       string `json:"type,omitempty"`
	Format     string `json:"format,omitempty"`
	Default    any    `json:"default,omitempty"`
	Deprecated bool   `json:"deprecated,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`

	// Array
	Items *Schema `json:"items,omitempty"`
}

// FromSection describes s and everything below it. Properties that must be
// supplied by configuration data (required, no default) are listed in
// Required.
func FromSection(s *configurator.Section) *Schema {
	out, _ := section(s)
	out.Dialect = Draft
	out.Title = s.PathName()
	return out
}

// Marshal renders the schema of s as indented JSON.
func Marshal(s *configurator.Section) ([]byte, error) {
	return json.MarshalIndent(FromSection(s), "", "  ")
}

func section(s *configurator.Section) (*Schema, bool) {
	out := &Schema{
		Type:                 "object",
		Properties:           map[string]*Schema{},
		AdditionalProperties: false,
	}
	needed := false
	for _, n := range s.Children() {
		ps, req := node(n)
		out.Properties[n.Name()] = ps
		if req {
			out.Required = append(out.Required, n.Name())
			needed = true
		}
	}
	return out, needed
}

// node returns the schema of n and whether data must supply it.
func node(n configurator.Node) (*Schema, bool) {
	switch t := n.(type) {
	case *configurator.Section:
		return section(t)
	case *configurator.Option:
		return option(t)
	case *configurator.Delegated:
		ps, req := node(t.Target())
		cp := *ps
		switch t.Kind() {
		case configurator.Renamed:
			cp.Deprecated = true
			cp.Description = fmt.Sprintf("renamed to %s", t.Target().PathName())
			req = false
		case configurator.Deprecated:
			cp.Deprecated = true
			if eol := t.EndOfLife(); !eol.IsZero() {
				cp.Description = "removed on " + eol.Format("2006-01-02")
			}
			req = false
		case configurator.Aliased:
			cp.Description = fmt.Sprintf("alias of %s", t.Target().PathName())
			req = false
		}
		return &cp, req
	}
	return &Schema{}, false
}

func option(o *configurator.Option) (*Schema, bool) {
	out := typeSchema(o.Type())
	def, hasDefault := o.Default()
	if hasDefault {
		out.Default = defaultValue(def)
	}
	return out, o.IsRequired() && !hasDefault
}

func typeSchema(t cast.Type) *Schema {
	switch t.Kind() {
	case cast.KindString, cast.KindSymbol, cast.KindPath:
		return &Schema{Type: "string"}
	case cast.KindInteger:
		return &Schema{Type: "integer"}
	case cast.KindFloat:
		return &Schema{Type: "number"}
	case cast.KindBoolean:
		return &Schema{Type: "boolean"}
	case cast.KindURI:
		return &Schema{Type: "string", Format: "uri"}
	case cast.KindHash:
		return &Schema{Type: "object"}
	case cast.KindArray:
		return &Schema{Type: "array"}
	case cast.KindCollection:
		out := &Schema{Type: "array"}
		if elem, ok := t.Elem(); ok {
			out.Items = typeSchema(elem)
		}
		return out
	case cast.KindNamed:
		if t.Name() == "uuid" {
			return &Schema{Type: "string", Format: "uuid"}
		}
	}
	return &Schema{}
}

// defaultValue drops lazy defaults and renders stringers such as *url.URL.
func defaultValue(v any) any {
	if v == nil || reflect.TypeOf(v).Kind() == reflect.Func {
		return nil
	}
	if s, ok := v.(fmt.Stringer); ok && reflect.TypeOf(v).Kind() != reflect.String {
		return s.String()
	}
	return v
}
