package cast

import (
	"math"
	"net/url"
	"reflect"
)

// Check reports whether v already has the shape of t, without converting it.
// Collections check every element against the element type; a lone value is
// checked as a one-element collection.
func (r *Registry) Check(t Type, v any) bool {
	switch t.kind {
	case KindAny, KindCallable, KindUnknown:
		return true
	case KindCollection:
		elem, ok := t.Elem()
		if !ok {
			return false
		}
		for _, item := range toSlice(v) {
			if !r.Check(elem, item) {
				return false
			}
		}
		return true
	case KindArray:
		k := kindOf(v)
		return k == reflect.Slice || k == reflect.Array
	case KindHash:
		return kindOf(v) == reflect.Map
	case KindScalar:
		return isInteger(v) || isFloat(v) || isSymbol(v) || isString(v) || isBool(v)
	case KindBoolean:
		return isBool(v)
	case KindInteger:
		return isInteger(v)
	case KindFloat:
		return isFloat(v)
	case KindString:
		return isString(v)
	case KindSymbol:
		return isSymbol(v)
	case KindPath:
		_, ok := v.(Path)
		return ok
	case KindURI:
		switch x := v.(type) {
		case *url.URL:
			return x != nil
		case string:
			_, err := url.Parse(x)
			return err == nil
		}
		return false
	case KindNamed:
		def, ok := r.LookupType(t.name)
		if !ok || def.Validate == nil {
			return true
		}
		return def.Validate(v)
	}
	return false
}

func kindOf(v any) reflect.Kind {
	if v == nil {
		return reflect.Invalid
	}
	return reflect.TypeOf(v).Kind()
}

func isBool(v any) bool     { _, ok := v.(bool); return ok }
func isString(v any) bool   { _, ok := v.(string); return ok }
func isSymbol(v any) bool   { _, ok := v.(Symbol); return ok }
func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// isInteger accepts integer kinds and whole floats, since JSON and YAML
// decoders may hand integers over as float64.
func isInteger(v any) bool {
	k := kindOf(v)
	if isIntKind(k) {
		return true
	}
	if k == reflect.Float32 || k == reflect.Float64 {
		f := reflect.ValueOf(v).Float()
		return !math.IsInf(f, 0) && f == math.Trunc(f)
	}
	return false
}

func isFloat(v any) bool {
	k := kindOf(v)
	return k == reflect.Float32 || k == reflect.Float64 || isIntKind(k)
}
