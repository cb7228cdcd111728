package configurator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reoring/configurator/cast"
	"github.com/reoring/configurator/internal/pathutil"
)

// RootName is the name of the top-level section.
const RootName = pathutil.RootName

// Section is a composite node grouping named options, sections and
// delegated stand-ins. Tree mutation is not synchronized.
type Section struct {
	name     string
	parent   *Section
	children map[string]Node
	order    []string

	// set on the root only
	logger zerolog.Logger
	casts  *cast.Registry
}

// RootOption configures a root section.
type RootOption func(*Section)

// WithLogger routes warnings to l. The default writes warn and above to stderr.
func WithLogger(l zerolog.Logger) RootOption {
	return func(s *Section) { s.logger = l }
}

// WithCastRegistry resolves casters from r instead of cast.Default().
func WithCastRegistry(r *cast.Registry) RootOption {
	return func(s *Section) {
		if r != nil {
			s.casts = r
		}
	}
}

// NewRoot returns an empty root section.
func NewRoot(opts ...RootOption) *Section {
	s := &Section{
		name:     RootName,
		children: map[string]Node{},
		logger:   zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
		casts:    cast.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newSection(name string, parent *Section) *Section {
	return &Section{name: name, parent: parent, children: map[string]Node{}}
}

func (s *Section) Name() string       { return s.name }
func (s *Section) PathName() string   { return joinPath(s.parent, s.name) }
func (s *Section) Parent() *Section   { return s.parent }
func (s *Section) IsDeprecated() bool { return false }
func (s *Section) IsRenamed() bool    { return false }

// Root walks up to the top-level section.
func (s *Section) Root() *Section {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// IsRequired reports whether any direct child is required.
func (s *Section) IsRequired() bool {
	for _, n := range s.Children() {
		if n.IsRequired() {
			return true
		}
	}
	return false
}

func (s *Section) log() *zerolog.Logger { return &s.Root().logger }

func (s *Section) registry() *cast.Registry { return s.Root().casts }

// Logger returns the logger warnings are written to.
func (s *Section) Logger() zerolog.Logger { return *s.log() }

// CastRegistry returns the registry casters are resolved from.
func (s *Section) CastRegistry() *cast.Registry { return s.registry() }

// Value renders the section as a nested map.
func (s *Section) Value() (any, error) { return s.ToMap() }

func (s *Section) ValueContext(context.Context) (any, error) { return s.ToMap() }

// Set loads a mapping into the section. Rejected entries are returned as
// Issues; accepted entries are kept.
func (s *Section) Set(v any) error {
	if iss := s.Load(v); len(iss) > 0 {
		return iss
	}
	return nil
}

// Option registers a typed option. A zero type is inferred from the default.
func (s *Section) Option(name string, t cast.Type, opts ...OptionOption) (*Option, error) {
	d := newDefinition(opts)
	if s.Has(name) {
		return nil, s.existsErr(name)
	}
	o, err := newOption(name, s, t, d)
	if err != nil {
		return nil, err
	}
	var n Node = o
	if d.deprecated {
		n = newDelegated(Deprecated, name, s, o, d.endOfLife)
	}
	if err := s.addChild(name, n); err != nil {
		return nil, err
	}
	if err := s.renameFrom(d.renamedFrom, o); err != nil {
		s.removeChild(name)
		return nil, err
	}
	return o, nil
}

// Options registers untyped options without defaults, which are required.
func (s *Section) Options(names ...string) error {
	for _, name := range names {
		if _, err := s.Option(name, cast.Type{}); err != nil {
			return err
		}
	}
	return nil
}

// Section registers a nested section and runs build on it. Only
// WithDeprecated and WithRenamedFrom apply to sections.
func (s *Section) Section(name string, build func(*Section) error, opts ...OptionOption) (*Section, error) {
	d := newDefinition(opts)
	if len(d.leafOnly) > 0 {
		return nil, fmt.Errorf("%w: %s.%s: %v do not apply to sections", ErrOptionInvalidArgument, s.PathName(), name, d.leafOnly)
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	if s.Has(name) {
		return nil, s.existsErr(name)
	}

	child := newSection(name, s)
	var n Node = child
	if d.deprecated {
		n = newDelegated(Deprecated, name, s, child, d.endOfLife)
	}
	if err := s.addChild(name, n); err != nil {
		return nil, err
	}
	if build != nil {
		if err := build(child); err != nil {
			s.removeChild(name)
			return nil, err
		}
	}
	if err := s.renameFrom(d.renamedFrom, child); err != nil {
		s.removeChild(name)
		return nil, err
	}
	return child, nil
}

func (s *Section) renameFrom(old string, target Node) error {
	if old == "" {
		return nil
	}
	if !strings.Contains(old, ".") {
		old = s.PathName() + "." + old
	}
	return s.Rename(old, target.PathName())
}

// Get returns the direct child called name.
func (s *Section) Get(name string) (Node, bool) {
	n, ok := s.children[name]
	return n, ok
}

// Has reports whether a direct child called name exists.
func (s *Section) Has(name string) bool {
	_, ok := s.children[name]
	return ok
}

// SetChild assigns v to the direct child called name.
func (s *Section) SetChild(name string, v any) error {
	n, ok := s.children[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrOptionNotExist, s.PathName(), name)
	}
	return n.Set(v)
}

// Children returns the direct children in registration order.
func (s *Section) Children() []Node {
	out := make([]Node, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.children[name])
	}
	return out
}

// Load assigns each entry of data to the child of the same name. Loading is
// best effort: unknown keys, rejected values and non-mapping data are logged
// and returned as Issues while every other entry is still applied.
func (s *Section) Load(data any) Issues {
	m := pathutil.NormalizeKeys(data)
	if m == nil {
		if data == nil {
			return nil
		}
		it := issueAt(s.PathName(), CodeInvalidType, nil, map[string]any{"expected": "mapping"})
		s.log().Warn().Str("path", s.PathName()).Str("data", fmt.Sprintf("%v", data)).
			Msg("invalid load data for section - skipping")
		return Issues{it}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out Issues
	for _, key := range keys {
		val := m[key]
		child, ok := s.children[key]
		if !ok {
			path := s.PathName() + "." + key
			out = AppendIssues(out, issueAt(path, CodeUnknownKey, nil, map[string]any{"key": key}))
			s.log().Warn().Str("path", s.PathName()).Str("key", key).
				Msgf("unable to load data for unknown key %q", key)
			continue
		}
		err := child.Set(val)
		if err == nil {
			continue
		}
		if iss, ok := AsIssues(err); ok {
			out = AppendIssues(out, iss...)
			continue
		}
		code := CodeInvalidValue
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Rule == RuleType {
			code = CodeInvalidType
		}
		out = AppendIssues(out, issueAt(child.PathName(), code, err, nil))
		s.log().Warn().Err(err).Str("path", child.PathName()).Msg("rejected value - skipping")
	}
	return out
}

// RequirementsFulfilled reports whether every required option below s
// resolves to a non-nil value.
func (s *Section) RequirementsFulfilled() bool { return len(s.MissingRequirements()) == 0 }

// MissingRequirements lists required options below s that resolve to nil or
// fail to resolve. Renamed and aliased entries are skipped, as are deprecated
// options; a deprecated section is still checked through its target.
func (s *Section) MissingRequirements() Issues {
	var out Issues
	for _, n := range s.Children() {
		switch t := n.(type) {
		case *Section:
			out = AppendIssues(out, t.MissingRequirements()...)
		case *Delegated:
			if t.kind != Deprecated {
				continue
			}
			if sec, ok := t.section(); ok {
				out = AppendIssues(out, sec.MissingRequirements()...)
			}
		case *Option:
			if !t.required {
				continue
			}
			v, err := t.Value()
			switch {
			case err != nil:
				out = AppendIssues(out, issueAt(t.PathName(), CodeResolution, err, nil))
				s.log().Warn().Err(err).Str("path", t.PathName()).Msg("option required but value could not be resolved")
			case v == nil:
				out = AppendIssues(out, issueAt(t.PathName(), CodeRequired, nil, nil))
				s.log().Warn().Str("path", t.PathName()).Msg("option required but nil value")
			}
		}
	}
	return out
}

// GetPath resolves a dotted path from the root. A leading "root" segment is
// optional. Delegated sections are traversed without warnings.
func (s *Section) GetPath(path string) (Node, error) {
	var cur Node = s.Root()
	walked := RootName
	for _, seg := range pathutil.Segments(path) {
		walked += "." + seg
		sec, ok := asSection(cur)
		if !ok {
			return nil, fmt.Errorf("%w: %s: doesn't exist in the current configuration", ErrInvalidPath, walked)
		}
		next, ok := sec.children[seg]
		if !ok {
			return nil, fmt.Errorf("%w: %s: doesn't exist in the current configuration", ErrInvalidPath, walked)
		}
		cur = next
	}
	return cur, nil
}

func asSection(n Node) (*Section, bool) {
	switch t := n.(type) {
	case *Section:
		return t, true
	case *Delegated:
		return t.section()
	}
	return nil, false
}

// Rename registers a Renamed wrapper at oldPath forwarding to the existing
// node at targetPath.
func (s *Section) Rename(oldPath, targetPath string) error {
	oldPath, targetPath = pathutil.Qualify(oldPath), pathutil.Qualify(targetPath)
	root := s.Root()

	target, err := root.GetPath(targetPath)
	if err != nil {
		return fmt.Errorf("%w: %w: target path %s must exist for rename: %w", ErrRenameFailed, ErrOptionNotExist, targetPath, err)
	}
	parentPath, name := pathutil.SplitLast(oldPath)
	pn, err := root.GetPath(parentPath)
	if err != nil {
		return fmt.Errorf("%w: unable to rename %s -> %s: %w", ErrRenameFailed, oldPath, targetPath, err)
	}
	owner, ok := asSection(pn)
	if !ok || checkName(name) != nil {
		return fmt.Errorf("%w: unable to rename %s -> %s", ErrRenameFailed, oldPath, targetPath)
	}
	if err := owner.addChild(name, newDelegated(Renamed, name, owner, target, time.Time{})); err != nil {
		return fmt.Errorf("%w: unable to rename %s -> %s: %w", ErrRenameFailed, oldPath, targetPath, err)
	}
	return nil
}

// Alias registers a silent Aliased wrapper at newPath forwarding to origPath.
func (s *Section) Alias(origPath, newPath string) error {
	origPath, newPath = pathutil.Qualify(origPath), pathutil.Qualify(newPath)
	root := s.Root()

	orig, err := root.GetPath(origPath)
	if err != nil {
		return fmt.Errorf("%w: unable to alias %s to %s - option does not appear to be defined: %w", ErrDeprecateFailed, newPath, origPath, err)
	}
	parentPath, name := pathutil.SplitLast(newPath)
	pn, err := root.GetPath(parentPath)
	if err != nil {
		return err
	}
	owner, ok := asSection(pn)
	if !ok {
		return fmt.Errorf("%w: %s is not a section", ErrInvalidPath, parentPath)
	}
	if err := checkName(name); err != nil {
		return err
	}
	return owner.addChild(name, newDelegated(Aliased, name, owner, orig, time.Time{}))
}

// Deprecate replaces each node at paths with a Deprecated wrapper. A zero eol
// means no end-of-life date. Already deprecated nodes are left as they are.
func (s *Section) Deprecate(eol time.Time, paths ...string) error {
	root := s.Root()
	for _, p := range paths {
		p = pathutil.Qualify(p)
		n, err := root.GetPath(p)
		if err != nil {
			return fmt.Errorf("%w: unable to deprecate %s - option does not appear to be defined: %w", ErrDeprecateFailed, p, err)
		}
		if n.IsDeprecated() {
			continue
		}
		owner := n.Parent()
		if owner == nil {
			return fmt.Errorf("%w: the root section cannot be deprecated", ErrDeprecateFailed)
		}
		w := newDelegated(Deprecated, n.Name(), owner, n, eol)
		if err := owner.replaceChild(n.Name(), w); err != nil {
			return fmt.Errorf("%w: %w", ErrDeprecateFailed, err)
		}
	}
	return nil
}

func (s *Section) existsErr(name string) error {
	return fmt.Errorf("%w: option %s.%s already exists", ErrOptionExists, s.PathName(), name)
}

func (s *Section) addChild(name string, n Node) error {
	if _, ok := s.children[name]; ok {
		return s.existsErr(name)
	}
	s.children[name] = n
	s.order = append(s.order, name)
	return nil
}

func (s *Section) replaceChild(name string, n Node) error {
	if _, ok := s.children[name]; !ok {
		return fmt.Errorf("%w: %s.%s doesn't exist", ErrOptionNotExist, s.PathName(), name)
	}
	s.children[name] = n
	return nil
}

func (s *Section) removeChild(name string) {
	delete(s.children, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
}
