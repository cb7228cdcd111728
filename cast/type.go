package cast

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind enumerates the shapes a Type token can take.
type Kind int

const (
	KindUnknown Kind = iota // zero Type; the option infers its type from the default
	KindAny
	KindString
	KindInteger
	KindFloat
	KindSymbol
	KindBoolean
	KindPath
	KindURI
	KindHash
	KindArray
	KindScalar
	KindCollection
	KindCallable
	KindNamed
)

var kindNames = map[Kind]string{
	KindAny:     "any",
	KindString:  "string",
	KindInteger: "integer",
	KindFloat:   "float",
	KindSymbol:  "symbol",
	KindBoolean: "boolean",
	KindPath:    "path",
	KindURI:     "uri",
	KindHash:    "hash",
	KindArray:   "array",
	KindScalar:  "scalar",
}

// Func converts an arbitrary input into a custom canonical value.
type Func func(v any) (any, error)

// callable holds a user function so that its identity can be used as a cache key.
type callable struct{ fn Func }

// Type is the symbolic descriptor of an option's semantic type. The zero value
// means "not specified".
type Type struct {
	kind Kind
	elem *Type
	name string
	fn   *callable
}

// Builtin tokens.
var (
	AnyType     = Type{kind: KindAny}
	StringType  = Type{kind: KindString}
	IntegerType = Type{kind: KindInteger}
	FloatType   = Type{kind: KindFloat}
	SymbolType  = Type{kind: KindSymbol}
	BooleanType = Type{kind: KindBoolean}
	PathType    = Type{kind: KindPath}
	URIType     = Type{kind: KindURI}
	HashType    = Type{kind: KindHash}
	ArrayType   = Type{kind: KindArray}
	ScalarType  = Type{kind: KindScalar}
)

// CollectionOf returns a collection token whose elements are cast as elem.
func CollectionOf(elem Type) Type {
	e := elem
	return Type{kind: KindCollection, elem: &e}
}

// Callable returns a token whose caster invokes fn. Two tokens built from two
// Callable calls are distinct even when fn is the same function.
func Callable(fn Func) Type {
	return Type{kind: KindCallable, fn: &callable{fn: fn}}
}

// Named returns the token for name. Builtin names map onto the builtin tokens;
// anything else refers to a custom type registered with Registry.AddType.
func Named(name string) Type {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, kn := range kindNames {
		if kn == n {
			return Type{kind: k}
		}
	}
	return Type{kind: KindNamed, name: n}
}

// ParseType parses the textual form of a token: a builtin or custom name,
// "collection:<elem>", "[]<elem>" or "[<elem>]".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Type{}, fmt.Errorf("%w: empty type", ErrInvalidCastType)
	}
	var elem string
	switch {
	case strings.HasPrefix(s, "collection:"):
		elem = strings.TrimPrefix(s, "collection:")
	case strings.HasPrefix(s, "[]"):
		elem = strings.TrimPrefix(s, "[]")
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		elem = s[1 : len(s)-1]
	default:
		return Named(s), nil
	}
	et, err := ParseType(elem)
	if err != nil {
		return Type{}, err
	}
	return CollectionOf(et), nil
}

// Kind reports the token's shape.
func (t Type) Kind() Kind { return t.kind }

// IsZero reports whether the token was left unspecified.
func (t Type) IsZero() bool { return t.kind == KindUnknown }

// Elem returns the element token of a collection.
func (t Type) Elem() (Type, bool) {
	if t.kind != KindCollection || t.elem == nil {
		return Type{}, false
	}
	return *t.elem, true
}

// Name returns the canonical name for builtin and named tokens.
func (t Type) Name() string {
	if t.kind == KindNamed {
		return t.name
	}
	return kindNames[t.kind]
}

// Key is the normalized memoization key for the token.
func (t Type) Key() string {
	switch t.kind {
	case KindCollection:
		if t.elem == nil {
			return "collection:"
		}
		return "collection:" + t.elem.Key()
	case KindCallable:
		return fmt.Sprintf("callable:%p", t.fn)
	case KindUnknown:
		return ""
	default:
		return t.Name()
	}
}

// Equal compares tokens structurally.
func (t Type) Equal(o Type) bool { return t.kind == o.kind && t.Key() == o.Key() }

func (t Type) String() string {
	switch t.kind {
	case KindCallable:
		return "callable"
	case KindUnknown:
		return "unspecified"
	default:
		return t.Key()
	}
}

// TypeDef describes a named custom type.
type TypeDef struct {
	// Cast converts input into the canonical value. Identity when nil.
	Cast Func
	// Validate is the structural check used by option validation. Always true when nil.
	Validate func(v any) bool
	// Sample is a value of the Go type this custom type represents. Options
	// whose default has the same dynamic type infer this custom type.
	Sample any
}

func (d TypeDef) sampleType() reflect.Type {
	if d.Sample == nil {
		return nil
	}
	return reflect.TypeOf(d.Sample)
}
