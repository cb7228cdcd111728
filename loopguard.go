package configurator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Lazy is a context-aware lazy default. Reads of other options from inside
// the function should pass ctx along so loops are detected through the
// resolving chain.
type Lazy func(ctx context.Context) (any, error)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// lazyFunc is a normalized lazy default. zeroArg marks plain func() forms,
// which cannot carry the resolving chain.
type lazyFunc struct {
	call    func(ctx context.Context) (any, error)
	zeroArg bool
}

// asLazy reports whether v is a callable default. A callable of any other
// shape is an ErrInvalidCallableDefault.
func asLazy(v any) (lazyFunc, bool, error) {
	switch f := v.(type) {
	case nil:
		return lazyFunc{}, false, nil
	case Lazy:
		return lazyFunc{call: f}, true, nil
	case func(context.Context) (any, error):
		return lazyFunc{call: f}, true, nil
	case func() any:
		return lazyFunc{call: func(context.Context) (any, error) { return f(), nil }, zeroArg: true}, true, nil
	case func() (any, error):
		return lazyFunc{call: func(context.Context) (any, error) { return f() }, zeroArg: true}, true, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func {
		return lazyFunc{}, false, nil
	}
	rt := rv.Type()
	if rt.NumIn() != 0 {
		return lazyFunc{}, true, fmt.Errorf("%w: callable defaults must not accept any arguments", ErrInvalidCallableDefault)
	}
	switch {
	case rt.NumOut() == 1 && rt.Out(0) != errorType:
	case rt.NumOut() == 2 && rt.Out(1) == errorType:
	default:
		return lazyFunc{}, true, fmt.Errorf("%w: callable defaults must return a value or (value, error)", ErrInvalidCallableDefault)
	}
	call := func(context.Context) (any, error) {
		out := rv.Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return lazyFunc{call: call, zeroArg: true}, true, nil
}

type resolvingKey struct{}

// resolving is the chain of options currently being resolved, innermost last.
type resolving struct {
	opt  *Option
	prev *resolving
}

func (r *resolving) contains(o *Option) bool {
	for ; r != nil; r = r.prev {
		if r.opt == o {
			return true
		}
	}
	return false
}

func resolvingFrom(ctx context.Context) *resolving {
	r, _ := ctx.Value(resolvingKey{}).(*resolving)
	return r
}

// withLoopGuard runs fn with o marked as resolving. Re-entry through the
// context chain or, for zero-argument callables, through the option's own
// flag yields a *LoopError; every level the error unwinds through appends its
// path to the stack.
func (o *Option) withLoopGuard(ctx context.Context, zeroArg bool, fn func(ctx context.Context) (any, error)) (v any, err error) {
	chain := resolvingFrom(ctx)
	if chain.contains(o) {
		return nil, &LoopError{Stack: []string{o.PathName()}}
	}
	if zeroArg {
		if !o.guarding.CompareAndSwap(false, true) {
			return nil, &LoopError{Stack: []string{o.PathName()}}
		}
		defer o.guarding.Store(false)
	}

	defer func() {
		if p := recover(); p != nil {
			if perr, ok := p.(error); ok {
				err = perr
			} else {
				err = fmt.Errorf("panic: %v", p)
			}
			v = nil
		}
		var le *LoopError
		if errors.As(err, &le) {
			le.Stack = append(le.Stack, o.PathName())
			v, err = nil, le
		}
	}()

	return fn(context.WithValue(ctx, resolvingKey{}, &resolving{opt: o, prev: chain}))
}
