package cast

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Symbol is the canonical value of the symbol type.
type Symbol string

// Path is the canonical value of the path type.
type Path string

func (p Path) String() string { return string(p) }

// Caster converts arbitrary input into the canonical representation of a type.
type Caster interface {
	Convert(v any) (any, error)
}

// caster adapts a conversion func to Caster, wrapping failures in *Error.
type caster struct {
	typ Type
	fn  func(v any) (any, error)
}

func (c *caster) Convert(v any) (any, error) {
	out, err := c.fn(v)
	if err != nil {
		return nil, &Error{Type: c.typ, Value: v, Err: err}
	}
	return out, nil
}

// collection casts every element with the inner caster.
type collection struct {
	typ   Type
	inner Caster
}

func (c *collection) Convert(v any) (any, error) {
	items := toSlice(v)
	out := make([]any, len(items))
	for i, item := range items {
		cv, err := c.inner.Convert(item)
		if err != nil {
			return nil, &Error{Type: c.typ, Value: v, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		out[i] = cv
	}
	return out, nil
}

func newBuiltin(t Type) (Caster, error) {
	var fn func(any) (any, error)
	switch t.kind {
	case KindAny, KindScalar:
		fn = func(v any) (any, error) { return v, nil }
	case KindString:
		fn = toString
	case KindInteger:
		fn = toInteger
	case KindFloat:
		fn = toFloat
	case KindSymbol:
		fn = toSymbol
	case KindBoolean:
		fn = func(v any) (any, error) { return ToBool(v), nil }
	case KindPath:
		fn = toPath
	case KindURI:
		fn = toURI
	case KindHash:
		fn = toHash
	case KindArray:
		fn = func(v any) (any, error) { return toSlice(v), nil }
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidCastType, t)
	}
	return &caster{typ: t, fn: fn}, nil
}

func toString(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case Symbol:
		return string(x), nil
	case []byte:
		return string(x), nil
	case *url.URL:
		return x.String(), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func toInteger(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return x, nil
	case int8:
		return int(x), nil
	case int16:
		return int(x), nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint:
		return uintToInt(uint64(x))
	case uint8:
		return int(x), nil
	case uint16:
		return int(x), nil
	case uint32:
		return uintToInt(uint64(x))
	case uint64:
		return uintToInt(x)
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return floatToInt(f)
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 0); err == nil {
			return int(n), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", x)
		}
		return floatToInt(f)
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func uintToInt(u uint64) (any, error) {
	if u > math.MaxInt {
		return nil, errors.New("integer overflow")
	}
	return int(u), nil
}

func floatToInt(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("cannot convert %v to integer", f)
	}
	t := math.Trunc(f)
	// float64(MaxInt64) rounds up to 2^63, which int cannot hold.
	if t >= 1<<63 || t < -(1<<63) {
		return nil, errors.New("integer overflow")
	}
	return int(t), nil
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return 0.0, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("not a float: %q", x)
		}
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

func toSymbol(v any) (any, error) {
	if s, ok := v.(Symbol); ok {
		return s, nil
	}
	s, err := toString(v)
	if err != nil {
		return nil, err
	}
	return Symbol(s.(string)), nil
}

var (
	falseWords = map[string]bool{"off": true, "false": true, "no": true, "disable": true, "disabled": true}
	trueWords  = map[string]bool{"on": true, "true": true, "yes": true, "enable": true, "enabled": true}
)

// IsBoolWord reports whether s is one of the words the boolean caster maps
// onto true or false.
func IsBoolWord(s string) bool {
	w := strings.ToLower(strings.TrimSpace(s))
	return falseWords[w] || trueWords[w]
}

// ToBool applies the boolean casting rules: well-known words are matched
// case-insensitively, everything else is converted by truthiness.
func ToBool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string, Symbol:
		w := strings.ToLower(strings.TrimSpace(fmt.Sprint(x)))
		if falseWords[w] {
			return false
		}
		if trueWords[w] {
			return true
		}
		return w != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func toPath(v any) (any, error) {
	switch x := v.(type) {
	case Path:
		return x, nil
	case string:
		return Path(x), nil
	case Symbol:
		return Path(x), nil
	case fmt.Stringer:
		return Path(x.String()), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toURI(v any) (any, error) {
	switch x := v.(type) {
	case *url.URL:
		return x, nil
	case url.URL:
		return &x, nil
	case string:
		return url.Parse(x)
	case Symbol:
		return url.Parse(string(x))
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toHash(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return x, nil
	case []any:
		if len(x)%2 != 0 {
			return nil, errors.New("input array value has odd number of elements - unable to convert to hash")
		}
		out := make(map[string]any, len(x)/2)
		for i := 0; i < len(x); i += 2 {
			out[fmt.Sprint(x[i])] = x[i+1]
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return out, nil
	}
	return map[string]any{fmt.Sprint(v): v}, nil
}

// toSlice mirrors splat semantics: nil is empty, slices and arrays are copied
// element-wise, anything else becomes a one-element slice.
func toSlice(v any) []any {
	switch x := v.(type) {
	case nil:
		return []any{}
	case []any:
		return x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return []any{v}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}
