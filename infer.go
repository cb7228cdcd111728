package configurator

import (
	"context"
	"net/url"
	"reflect"

	"github.com/reoring/configurator/cast"
)

// inferType derives a type token from a default value. Lazy defaults are
// evaluated under the loop guard; anything unrecognized, or a lazy default
// that fails, is typed any.
func (o *Option) inferType(reg *cast.Registry, v any) cast.Type {
	if v == nil {
		return cast.AnyType
	}
	if t, ok := reg.MatchType(v); ok {
		return t
	}

	switch x := v.(type) {
	case cast.Symbol:
		return cast.SymbolType
	case cast.Path:
		return cast.PathType
	case *url.URL:
		return cast.URIType
	case bool:
		return cast.BooleanType
	case string:
		if cast.IsBoolWord(x) {
			return cast.BooleanType
		}
		return cast.StringType
	}

	if lf, ok, err := asLazy(v); ok {
		if err != nil {
			return cast.AnyType
		}
		r, err := o.withLoopGuard(context.Background(), lf.zeroArg, lf.call)
		if err != nil {
			return cast.AnyType
		}
		if _, again, _ := asLazy(r); again {
			return cast.AnyType
		}
		return o.inferType(reg, r)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cast.IntegerType
	case reflect.Float32, reflect.Float64:
		return cast.FloatType
	case reflect.String:
		return cast.StringType
	case reflect.Map:
		return cast.HashType
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return cast.ArrayType
		}
		elem := o.inferType(reg, rv.Index(0).Interface())
		if elem.Kind() == cast.KindCollection || elem.Kind() == cast.KindArray {
			return cast.ArrayType
		}
		return cast.CollectionOf(elem)
	}
	return cast.AnyType
}
