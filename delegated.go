package configurator

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
)

// DelegationKind tags a Delegated stand-in.
type DelegationKind int

const (
	// Aliased forwards silently.
	Aliased DelegationKind = iota
	// Renamed forwards and warns that the old path should be updated.
	Renamed
	// Deprecated forwards and warns that the path is going away.
	Deprecated
)

func (k DelegationKind) String() string {
	switch k {
	case Renamed:
		return "renamed"
	case Deprecated:
		return "deprecated"
	default:
		return "aliased"
	}
}

// Delegated stands in for a node at another position in the tree. It is
// owned by parent; target stays owned by its original section. Every value
// access through a Renamed or Deprecated wrapper logs one warning.
type Delegated struct {
	name      string
	parent    *Section
	kind      DelegationKind
	target    Node
	endOfLife time.Time
}

func newDelegated(kind DelegationKind, name string, parent *Section, target Node, eol time.Time) *Delegated {
	return &Delegated{name: name, parent: parent, kind: kind, target: target, endOfLife: eol}
}

// Kind reports the wrapper flavor.
func (d *Delegated) Kind() DelegationKind { return d.kind }

// Target is the node accesses are forwarded to.
func (d *Delegated) Target() Node { return d.target }

// EndOfLife is the deprecation date; zero when open-ended.
func (d *Delegated) EndOfLife() time.Time { return d.endOfLife }

func (d *Delegated) Name() string { return d.name }

// PathName is the wrapper's own position, i.e. the path callers used.
func (d *Delegated) PathName() string   { return joinPath(d.parent, d.name) }
func (d *Delegated) Parent() *Section   { return d.parent }
func (d *Delegated) IsRequired() bool   { return d.target.IsRequired() }
func (d *Delegated) IsDeprecated() bool { return d.kind == Deprecated }
func (d *Delegated) IsRenamed() bool    { return d.kind == Renamed }

func (d *Delegated) Value() (any, error) {
	d.warn()
	return d.target.Value()
}

func (d *Delegated) ValueContext(ctx context.Context) (any, error) {
	d.warn()
	return d.target.ValueContext(ctx)
}

func (d *Delegated) Set(v any) error {
	d.warn()
	return d.target.Set(v)
}

// section unwraps nested wrappers down to a section target.
func (d *Delegated) section() (*Section, bool) {
	switch t := d.target.(type) {
	case *Section:
		return t, true
	case *Delegated:
		return t.section()
	}
	return nil, false
}

func (d *Delegated) warn() {
	if d.parent == nil {
		return
	}
	log := d.parent.log()
	switch d.kind {
	case Renamed:
		log.Warn().
			Str("path", d.PathName()).
			Str("target", d.target.PathName()).
			Msgf("configuration option %s was renamed to %s - please update your configuration", d.PathName(), d.target.PathName())
	case Deprecated:
		ev := log.Warn().Str("path", d.PathName())
		if d.endOfLife.IsZero() {
			ev.Msgf("configuration option %s is deprecated and will be removed soon", d.PathName())
			return
		}
		ev.Time("end_of_life", d.endOfLife).
			Msgf("configuration option %s is deprecated and will no longer be available on or after %s (%s)",
				d.PathName(), d.endOfLife.Format(time.DateOnly), humanize.Time(d.endOfLife))
	}
}
