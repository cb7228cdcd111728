package configurator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/reoring/configurator/cast"
)

// OptionOption customizes an option (and, for WithDeprecated and
// WithRenamedFrom, a section) at registration time.
type OptionOption func(*definition)

type definition struct {
	def        any
	hasDefault bool

	required *bool
	optional *bool

	validate      func(any) bool
	validateMsg   string
	noValidation  bool
	expect        any
	hasExpect     bool
	expectMsg     string
	typeValidator func(any) bool
	typeMsg       string
	tag           string
	castType      cast.Type

	deprecated  bool
	endOfLife   time.Time
	renamedFrom string

	// leafOnly names the options that make no sense on a section.
	leafOnly []string
}

func (d *definition) leaf(name string) { d.leafOnly = append(d.leafOnly, name) }

func newDefinition(opts []OptionOption) *definition {
	d := &definition{}
	for _, o := range opts {
		if o != nil {
			o(d)
		}
	}
	return d
}

// WithDefault sets the default value. A zero-argument func (func() T or
// func() (T, error)) or a Lazy is evaluated on every read. A nil default is
// the same as no default.
func WithDefault(v any) OptionOption {
	return func(d *definition) {
		d.def, d.hasDefault = v, v != nil
		d.leaf("default")
	}
}

// WithRequired marks the option required (or not). Options without a default
// are required unless told otherwise.
func WithRequired(b bool) OptionOption {
	return func(d *definition) { d.required = &b; d.leaf("required") }
}

// WithOptional is the inverse of WithRequired.
func WithOptional(b bool) OptionOption {
	return func(d *definition) { d.optional = &b; d.leaf("optional") }
}

// WithValidate adds a custom predicate rule.
func WithValidate(fn func(v any) bool) OptionOption {
	return func(d *definition) { d.validate = fn; d.leaf("validate") }
}

// WithValidateMessage is appended to WithValidate failures.
func WithValidateMessage(msg string) OptionOption {
	return func(d *definition) { d.validateMsg = msg; d.leaf("validate_message") }
}

// WithoutValidation disables every rule, including the type check.
func WithoutValidation() OptionOption {
	return func(d *definition) { d.noValidation = true; d.leaf("validate") }
}

// WithExpect restricts values: a slice or array is a list of allowed values,
// a func(any) bool is a predicate, anything else must match exactly.
func WithExpect(x any) OptionOption {
	return func(d *definition) { d.expect, d.hasExpect = x, true; d.leaf("expect") }
}

// WithExpectMessage is appended to WithExpect failures.
func WithExpectMessage(msg string) OptionOption {
	return func(d *definition) { d.expectMsg = msg; d.leaf("expect_message") }
}

// WithTypeValidator replaces the structural type check.
func WithTypeValidator(fn func(v any) bool, msg string) OptionOption {
	return func(d *definition) { d.typeValidator, d.typeMsg = fn, msg; d.leaf("type_validator") }
}

// WithCast selects the caster independently of the option's type.
func WithCast(t cast.Type) OptionOption {
	return func(d *definition) { d.castType = t; d.leaf("cast") }
}

// WithValidateTag adds a go-playground/validator rule such as "min=1,max=65535".
func WithValidateTag(tag string) OptionOption {
	return func(d *definition) { d.tag = tag; d.leaf("validate_tag") }
}

// WithDeprecated registers the node behind a Deprecated wrapper. A zero eol
// means no end-of-life date.
func WithDeprecated(eol time.Time) OptionOption {
	return func(d *definition) { d.deprecated, d.endOfLife = true, eol }
}

// WithRenamedFrom additionally registers a Renamed wrapper at old. A bare
// name is resolved against the registering section; a dotted path is taken
// from the root.
func WithRenamedFrom(old string) OptionOption {
	return func(d *definition) { d.renamedFrom = old }
}

// Option is a leaf node holding a typed, possibly overridden, possibly lazy
// value.
type Option struct {
	name   string
	parent *Section

	typ    cast.Type
	caster cast.Caster
	rules  []rule

	def        any
	hasDefault bool
	raw        any
	hasRaw     bool
	required   bool

	guarding atomic.Bool
}

func newOption(name string, parent *Section, t cast.Type, d *definition) (o *Option, err error) {
	path := joinPath(parent, name)
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: failed to add option %s: %w", ErrOptionInvalid, path, err)
		}
	}()
	o = &Option{name: name, parent: parent, def: d.def, hasDefault: d.hasDefault}

	if err := checkName(name); err != nil {
		return nil, err
	}
	reg := parent.registry()

	o.typ = t
	if t.IsZero() {
		o.typ = o.inferType(reg, o.def)
	}
	token := o.typ
	if !d.castType.IsZero() {
		token = d.castType
	}
	if o.caster, err = reg.Acquire(token); err != nil {
		return nil, err
	}
	if o.required, err = o.resolveRequired(d); err != nil {
		return nil, err
	}
	if o.rules, err = o.buildRules(reg, d); err != nil {
		return nil, err
	}
	return o, nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" || strings.Contains(name, ".") {
		return fmt.Errorf("%w: invalid name %q", ErrOptionInvalidArgument, name)
	}
	return nil
}

func (o *Option) resolveRequired(d *definition) (bool, error) {
	switch {
	case d.required != nil && d.optional != nil:
		if *d.required == *d.optional {
			return false, fmt.Errorf("%w: can't be both required and optional at the same time", ErrOptionInvalidArgument)
		}
		return *d.required, nil
	case d.required != nil:
		return *d.required, nil
	case d.optional != nil:
		return !*d.optional, nil
	default:
		return !o.hasDefault, nil
	}
}

func (o *Option) Name() string       { return o.name }
func (o *Option) PathName() string   { return joinPath(o.parent, o.name) }
func (o *Option) Parent() *Section   { return o.parent }
func (o *Option) IsRequired() bool   { return o.required }
func (o *Option) IsOptional() bool   { return !o.required }
func (o *Option) IsDeprecated() bool { return false }
func (o *Option) IsRenamed() bool    { return false }

// Type is the declared or inferred type token.
func (o *Option) Type() cast.Type { return o.typ }

// Caster converts values read from the option.
func (o *Option) Caster() cast.Caster { return o.caster }

// Default returns the default as declared (uncast, unevaluated).
func (o *Option) Default() (any, bool) { return o.def, o.hasDefault }

// Raw returns the override as assigned.
func (o *Option) Raw() (any, bool) { return o.raw, o.hasRaw }

// Value resolves the option: the override if present, else the default,
// evaluated when lazy and converted by the caster. An option with neither
// resolves to nil.
func (o *Option) Value() (any, error) { return o.ValueContext(context.Background()) }

// ValueContext is Value with the resolving chain carried by ctx.
func (o *Option) ValueContext(ctx context.Context) (any, error) {
	if !o.hasRaw && !o.hasDefault {
		return nil, nil
	}
	v := o.def
	if o.hasRaw {
		v = o.raw
	}

	lf, ok, err := asLazy(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.PathName(), err)
	}
	if ok {
		v, err = o.withLoopGuard(ctx, lf.zeroArg, lf.call)
		if err != nil {
			var le *LoopError
			if errors.As(err, &le) {
				return nil, le
			}
			return nil, fmt.Errorf("%w: %s: error executing callable default: %w", ErrInvalidCallableDefault, o.PathName(), err)
		}
	}
	if v == nil {
		return nil, nil
	}

	out, err := o.caster.Convert(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.PathName(), err)
	}
	return out, nil
}

// MustValue is Value that panics on error. Inside a lazy default it lets a
// loop error escape a func() T.
func (o *Option) MustValue() any {
	v, err := o.Value()
	if err != nil {
		panic(err)
	}
	return v
}

// Set validates v and, only when it passes, replaces the override. A rejected
// value leaves the option unchanged and the *ValidationError is returned.
// Set(nil) clears the override.
func (o *Option) Set(v any) error {
	if v == nil {
		o.raw, o.hasRaw = nil, false
		return nil
	}
	if err := o.Validate(v); err != nil {
		return err
	}
	o.raw, o.hasRaw = v, true
	return nil
}

// Valid reports whether the current value passes validation. An unresolved
// (nil) value is valid only for optional options.
func (o *Option) Valid() bool {
	v, err := o.Value()
	if err != nil {
		return false
	}
	if v == nil {
		return !o.required
	}
	return o.Validate(v) == nil
}

// IsEmpty reports whether the value is nil or has zero length.
func (o *Option) IsEmpty() bool {
	v, err := o.Value()
	if err != nil || v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// Includes reports whether the value contains x: a substring, a slice element
// or a map key.
func (o *Option) Includes(x any) bool {
	v, err := o.Value()
	if err != nil || v == nil {
		return false
	}
	if s, ok := stringish(v); ok {
		sub, ok := stringish(x)
		return ok && strings.Contains(s, sub)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if reflect.DeepEqual(rv.Index(i).Interface(), x) {
				return true
			}
		}
	case reflect.Map:
		xv := reflect.ValueOf(x)
		if xv.IsValid() && xv.Type().AssignableTo(rv.Type().Key()) {
			return rv.MapIndex(xv).IsValid()
		}
	}
	return false
}

func (o *Option) String() string {
	return fmt.Sprintf("%s (%s, required=%t)", o.PathName(), o.typ, o.required)
}

func stringish(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case cast.Symbol:
		return string(s), true
	case cast.Path:
		return string(s), true
	}
	return "", false
}
