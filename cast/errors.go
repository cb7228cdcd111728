package cast

import (
	"errors"
	"fmt"
)

var (
	// ErrCast matches every conversion failure produced by a Caster.
	ErrCast = errors.New("cast failed")
	// ErrInvalidCastType reports a token the registry cannot build a caster for.
	ErrInvalidCastType = errors.New("invalid cast type")
	// ErrTypeExists reports a custom type registered twice or shadowing a builtin.
	ErrTypeExists = errors.New("type already exists")
)

// Error wraps a conversion failure together with the token and input that
// produced it. The original failure stays reachable through Unwrap.
type Error struct {
	Type  Type
	Value any
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cast: cannot convert %#v to %s: %v", e.Value, e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCast) hold for every *Error.
func (e *Error) Is(target error) bool { return target == ErrCast }
