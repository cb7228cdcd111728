package configurator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/configurator/cast"
	"github.com/reoring/configurator/i18n"
)

// Issue codes reported by Section.Load and requirement checks.
const (
	CodeRequired     = "required"
	CodeUnknownKey   = "unknown_key"
	CodeInvalidType  = "invalid_type"
	CodeInvalidValue = "invalid_value"
	CodeResolution   = "resolution_error"
)

// Definition-time errors.
var (
	ErrOptionExists          = errors.New("configurator: option already exists")
	ErrOptionInvalid         = errors.New("configurator: invalid option definition")
	ErrOptionInvalidArgument = errors.New("configurator: invalid option argument")
	ErrOptionNotExist        = errors.New("configurator: option does not exist")
	ErrRenameFailed          = errors.New("configurator: rename failed")
	ErrDeprecateFailed       = errors.New("configurator: deprecate failed")
	ErrInvalidPath           = errors.New("configurator: invalid option path")
)

// Resolution-time errors.
var (
	ErrValidation             = errors.New("configurator: validation failed")
	ErrInvalidCallableDefault = errors.New("configurator: invalid callable default")
	ErrOptionLoop             = errors.New("configurator: option loop detected")
	ErrConfigurationInvalid   = errors.New("configurator: configuration invalid")
)

// Re-exported from the cast package so callers need a single import for errors.Is.
var (
	ErrCast            = cast.ErrCast
	ErrInvalidCastType = cast.ErrInvalidCastType
	ErrTypeExists      = cast.ErrTypeExists
)

// Validation rule names carried by ValidationError.Rule.
const (
	RuleType     = "type"
	RuleValidate = "validate"
	RuleExpect   = "expect"
	RuleTag      = "tag"
)

// ValidationError reports a value rejected by one of an option's rules.
type ValidationError struct {
	Path    string
	Value   any
	Rule    string
	Message string
	Err     error // optional underlying failure (tag validation)
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// LoopError is returned when a lazy default reads, directly or indirectly, the
// option it is defining. Stack starts with the option that was re-entered and
// gains one entry per unwound resolution level.
type LoopError struct {
	Stack []string
}

func (e *LoopError) Error() string {
	if len(e.Stack) == 0 {
		return ErrOptionLoop.Error()
	}
	return fmt.Sprintf("configurator: loop detected in %s, request stack: %s", e.Stack[0], strings.Join(e.Stack, " -> "))
}

func (e *LoopError) Is(target error) bool { return target == ErrOptionLoop }

// Issue is a single non-fatal finding from Load or a requirement check.
type Issue struct {
	Path    string // dotted path, e.g. root.database.host
	Code    string
	Message string
	Hint    string
	Cause   error
	// Params carries structured parameters (e.g. {"key": "hots"}) for i18n
	// and log fields.
	Params map[string]any
}

// Issues is a collection of findings that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", iss[i].Code, iss[i].Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes so errors.Is sees through an Issues value.
func (iss Issues) Unwrap() []error {
	var errs []error
	for _, it := range iss {
		if it.Cause != nil {
			errs = append(errs, it.Cause)
		}
	}
	return errs
}

// Paths lists the issue paths in order.
func (iss Issues) Paths() []string {
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.Path
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// issueAt builds an Issue whose message comes from the active i18n translator.
func issueAt(path, code string, cause error, params map[string]any) Issue {
	data := make(map[string]string, len(params))
	for k, v := range params {
		data[k] = fmt.Sprint(v)
	}
	msg := i18n.T(code, data)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return Issue{Path: path, Code: code, Message: msg, Cause: cause, Params: params}
}
