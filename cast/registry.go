package cast

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry resolves type tokens to memoized caster instances. Lookups that
// hit the cache never take a lock; a miss takes the registry mutex and checks
// again before constructing, so each key is built at most once.
type Registry struct {
	casts sync.Map // Type.Key() -> Caster
	mu    sync.Mutex

	typesMu sync.RWMutex
	types   map[string]TypeDef

	hits   prometheus.Counter
	misses prometheus.Counter
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMetrics registers cache hit/miss counters with reg.
func WithMetrics(reg prometheus.Registerer) RegistryOption {
	return func(r *Registry) {
		r.hits = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "configurator",
			Subsystem: "cast",
			Name:      "cache_hits_total",
			Help:      "Caster lookups served from the registry cache.",
		})
		r.misses = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "configurator",
			Subsystem: "cast",
			Name:      "cache_misses_total",
			Help:      "Caster lookups that constructed a new caster.",
		})
		reg.MustRegister(r.hits, r.misses)
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{types: map[string]TypeDef{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the registry shared by sections that were not given one.
func Default() *Registry { return defaultRegistry }

// AddType registers a named custom type. Builtin names and names already
// registered are rejected.
func (r *Registry) AddType(name string, def TypeDef) error {
	t := Named(name)
	if t.kind != KindNamed {
		return fmt.Errorf("%w: can't redefine builtin type %q", ErrTypeExists, name)
	}
	r.typesMu.Lock()
	defer r.typesMu.Unlock()
	if _, ok := r.types[t.name]; ok {
		return fmt.Errorf("%w: type %q already exists", ErrTypeExists, name)
	}
	r.types[t.name] = def
	return nil
}

// LookupType returns the definition of a named custom type.
func (r *Registry) LookupType(name string) (TypeDef, bool) {
	r.typesMu.RLock()
	defer r.typesMu.RUnlock()
	def, ok := r.types[Named(name).name]
	return def, ok
}

// Types lists builtin and custom type names.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(kindNames))
	for k := KindAny; k <= KindScalar; k++ {
		out = append(out, kindNames[k])
	}
	r.typesMu.RLock()
	defer r.typesMu.RUnlock()
	for name := range r.types {
		out = append(out, name)
	}
	return out
}

// MatchType returns the custom type whose sample has the same dynamic Go type
// as v.
func (r *Registry) MatchType(v any) (Type, bool) {
	if v == nil {
		return Type{}, false
	}
	rt := reflect.TypeOf(v)
	r.typesMu.RLock()
	defer r.typesMu.RUnlock()
	for name, def := range r.types {
		if st := def.sampleType(); st != nil && st == rt {
			return Type{kind: KindNamed, name: name}, true
		}
	}
	return Type{}, false
}

// Acquire returns the caster for t, constructing and caching it on first use.
func (r *Registry) Acquire(t Type) (Caster, error) {
	key := t.Key()
	if c, ok := r.casts.Load(key); ok {
		r.observe(r.hits)
		return c.(Caster), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquireLocked(t)
}

func (r *Registry) acquireLocked(t Type) (Caster, error) {
	key := t.Key()
	if c, ok := r.casts.Load(key); ok {
		r.observe(r.hits)
		return c.(Caster), nil
	}
	c, err := r.build(t)
	if err != nil {
		return nil, err
	}
	r.observe(r.misses)
	r.casts.Store(key, c)
	return c, nil
}

func (r *Registry) build(t Type) (Caster, error) {
	switch t.kind {
	case KindUnknown:
		return nil, fmt.Errorf("%w: unspecified type", ErrInvalidCastType)
	case KindCollection:
		elem, ok := t.Elem()
		if !ok {
			return nil, fmt.Errorf("%w: collection without element type", ErrInvalidCastType)
		}
		inner, err := r.acquireLocked(elem)
		if err != nil {
			return nil, err
		}
		if _, nested := inner.(*collection); nested {
			return nil, fmt.Errorf("%w: collection element type cannot be another collection", ErrInvalidCastType)
		}
		return &collection{typ: t, inner: inner}, nil
	case KindCallable:
		if t.fn == nil || t.fn.fn == nil {
			return nil, fmt.Errorf("%w: callable type without function", ErrInvalidCastType)
		}
		return &caster{typ: t, fn: t.fn.fn}, nil
	case KindNamed:
		def, ok := r.LookupType(t.name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCastType, t.name)
		}
		fn := def.Cast
		if fn == nil {
			fn = func(v any) (any, error) { return v, nil }
		}
		return &caster{typ: t, fn: fn}, nil
	default:
		return newBuiltin(t)
	}
}

func (r *Registry) observe(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// Acquire resolves t against the default registry.
func Acquire(t Type) (Caster, error) { return defaultRegistry.Acquire(t) }
