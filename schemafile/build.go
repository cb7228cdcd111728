package schemafile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/reoring/configurator"
	"github.com/reoring/configurator/cast"
	"github.com/reoring/configurator/internal/pathutil"
)

// UUIDType is the custom type registered for schema files.
const UUIDType = "uuid"

// RegisterTypes adds the schema-file custom types to reg. Types that are
// already registered are kept.
func RegisterTypes(reg *cast.Registry) error {
	err := reg.AddType(UUIDType, cast.TypeDef{
		Cast: func(v any) (any, error) {
			switch t := v.(type) {
			case uuid.UUID:
				return t, nil
			case string:
				return uuid.Parse(t)
			}
			return nil, fmt.Errorf("can't convert %T into uuid", v)
		},
		Validate: func(v any) bool {
			switch t := v.(type) {
			case uuid.UUID:
				return true
			case string:
				return uuid.Validate(t) == nil
			}
			return false
		},
		Sample: uuid.UUID{},
	})
	if err != nil && !errors.Is(err, cast.ErrTypeExists) {
		return err
	}
	return nil
}

// Define returns a schema definition usable with configurator.New.
func Define(doc *Document) configurator.DefineFunc {
	return func(root *configurator.Section) error { return Build(root, doc) }
}

// Build declares doc on root.
func Build(root *configurator.Section, doc *Document) error {
	if err := RegisterTypes(root.CastRegistry()); err != nil {
		return err
	}
	return apply(root, doc)
}

// BuildFile declares the schema file at path on root.
func BuildFile(root *configurator.Section, path string) error {
	doc, err := ParseFile(path)
	if err != nil {
		return err
	}
	return Build(root, doc)
}

func apply(s *configurator.Section, doc *Document) error {
	for _, o := range doc.Options {
		typ, opts, err := o.Value.options(s.CastRegistry())
		if err != nil {
			return fmt.Errorf("%s: %w", scoped(s, o.Name), err)
		}
		if _, err := s.Option(o.Name, typ, opts...); err != nil {
			return err
		}
	}

	for _, sec := range doc.Sections {
		sub := sec.Value
		var opts []configurator.OptionOption
		if sub.Deprecated.Deprecated {
			opts = append(opts, configurator.WithDeprecated(sub.Deprecated.EndOfLife))
		}
		if sub.RenamedFrom != "" {
			opts = append(opts, configurator.WithRenamedFrom(sub.RenamedFrom))
		}
		build := func(child *configurator.Section) error { return apply(child, &sub) }
		if _, err := s.Section(sec.Name, build, opts...); err != nil {
			return err
		}
	}

	for _, m := range doc.Renames {
		if err := s.Rename(scoped(s, m.From), scoped(s, m.To)); err != nil {
			return err
		}
	}
	for _, m := range doc.Aliases {
		if err := s.Alias(scoped(s, m.From), scoped(s, m.To)); err != nil {
			return err
		}
	}
	for _, d := range doc.Deprecations {
		if err := s.Deprecate(d.EndOfLife.EndOfLife, scoped(s, d.Path)); err != nil {
			return err
		}
	}
	return nil
}

// scoped resolves p against s unless it already starts at the root.
func scoped(s *configurator.Section, p string) string {
	if p == pathutil.RootName || strings.HasPrefix(p, pathutil.RootName+".") {
		return p
	}
	return s.PathName() + "." + p
}

func (spec OptionSpec) options(reg *cast.Registry) (cast.Type, []configurator.OptionOption, error) {
	var (
		typ  cast.Type
		opts []configurator.OptionOption
		err  error
	)
	if spec.Type != "" {
		if typ, err = cast.ParseType(spec.Type); err != nil {
			return typ, nil, err
		}
	}
	if spec.Cast != "" {
		ct, err := cast.ParseType(spec.Cast)
		if err != nil {
			return typ, nil, err
		}
		opts = append(opts, configurator.WithCast(ct))
	}
	if spec.Default != nil {
		opts = append(opts, configurator.WithDefault(spec.Default))
	}
	if spec.Required != nil {
		opts = append(opts, configurator.WithRequired(*spec.Required))
	}
	if spec.Optional != nil {
		opts = append(opts, configurator.WithOptional(*spec.Optional))
	}

	switch {
	case spec.Validate.Disabled:
		opts = append(opts, configurator.WithoutValidation())
	case spec.Validate.Pattern != "":
		re, err := regexp.Compile(spec.Validate.Pattern)
		if err != nil {
			return typ, nil, fmt.Errorf("%w: validate pattern: %w", configurator.ErrOptionInvalidArgument, err)
		}
		opts = append(opts, configurator.WithValidate(func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		}))
	}
	if spec.ValidateMessage != "" {
		opts = append(opts, configurator.WithValidateMessage(spec.ValidateMessage))
	}
	if spec.ValidateTag != "" {
		opts = append(opts, configurator.WithValidateTag(spec.ValidateTag))
	}
	if spec.Expect != nil {
		opts = append(opts, configurator.WithExpect(expected(reg, typ, spec.Expect)))
	}
	if spec.ExpectMessage != "" {
		opts = append(opts, configurator.WithExpectMessage(spec.ExpectMessage))
	}
	if spec.Deprecated.Deprecated {
		opts = append(opts, configurator.WithDeprecated(spec.Deprecated.EndOfLife))
	}
	if spec.RenamedFrom != "" {
		opts = append(opts, configurator.WithRenamedFrom(spec.RenamedFrom))
	}
	return typ, opts, nil
}

// expected converts expectation literals to the option type, so that
// `expect: [debug, info]` matches a symbol option.
func expected(reg *cast.Registry, typ cast.Type, x any) any {
	if typ.IsZero() {
		return x
	}
	c, err := reg.Acquire(typ)
	if err != nil {
		return x
	}
	convert := func(v any) any {
		if cv, err := c.Convert(v); err == nil {
			return cv
		}
		return v
	}
	list, ok := x.([]any)
	if !ok {
		return convert(x)
	}
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = convert(v)
	}
	return out
}
