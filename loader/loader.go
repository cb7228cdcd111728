// Package loader reads per-environment configuration files.
//
// A file is rendered as a text/template first, then decoded as YAML or JSON.
// Its top-level keys are environment names:
//
//	production:
//	  database:
//	    host: {{ env "DB_HOST" | default "localhost" }}
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/reoring/configurator/internal/pathutil"
)

var (
	// ErrEnvironmentNotFound is returned when the file has no entry for the
	// requested environment.
	ErrEnvironmentNotFound = errors.New("loader: environment not found")
	// ErrInvalidDocument is returned when the file, or an environment entry,
	// is not a mapping.
	ErrInvalidDocument = errors.New("loader: document is not a mapping")
)

// Format selects the decoder.
type Format string

const (
	FormatAuto Format = ""
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Option configures a Loader.
type Option func(*Loader)

// WithData exposes data to the template as its dot value.
func WithData(data any) Option { return func(l *Loader) { l.data = data } }

// WithFormat forces a decoder instead of choosing one by file extension.
func WithFormat(f Format) Option { return func(l *Loader) { l.format = f } }

// WithFuncs adds template functions next to env and default.
func WithFuncs(fm template.FuncMap) Option {
	return func(l *Loader) {
		for k, v := range fm {
			l.funcs[k] = v
		}
	}
}

// WithLogger sets the logger used for debug events.
func WithLogger(lg zerolog.Logger) Option { return func(l *Loader) { l.logger = lg } }

// Loader parses a configuration file once and serves environments from the
// cached document until Reload.
type Loader struct {
	path   string
	format Format
	data   any
	funcs  template.FuncMap
	logger zerolog.Logger

	mu  sync.Mutex
	doc map[string]any
}

// New resolves path to its real location. The file must exist.
func New(path string, opts ...Option) (*Loader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	l := &Loader{path: real, funcs: defaultFuncs(), logger: zerolog.Nop()}
	for _, o := range opts {
		o(l)
	}
	if l.format == FormatAuto {
		l.format = formatFor(real)
	}
	return l, nil
}

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Path returns the resolved file path.
func (l *Loader) Path() string { return l.path }

// Load returns the mapping for env, parsing the file on first use.
func (l *Loader) Load(env string) (map[string]any, error) {
	return l.environment(env, false)
}

// Reload discards the cached document and parses the file again.
func (l *Loader) Reload(env string) (map[string]any, error) {
	return l.environment(env, true)
}

// Environments lists the top-level keys of the document.
func (l *Loader) Environments() ([]string, error) {
	doc, err := l.document(false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(doc))
	for k := range doc {
		out = append(out, k)
	}
	return out, nil
}

func (l *Loader) environment(env string, reload bool) (map[string]any, error) {
	doc, err := l.document(reload)
	if err != nil {
		return nil, err
	}
	raw, ok := doc[env]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrEnvironmentNotFound, env, l.path)
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	m := pathutil.NormalizeKeys(raw)
	if m == nil {
		return nil, fmt.Errorf("%w: environment %q in %s", ErrInvalidDocument, env, l.path)
	}
	return m, nil
}

func (l *Loader) document(reload bool) (map[string]any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if reload {
		l.doc = nil
	}
	if l.doc != nil {
		return l.doc, nil
	}

	src, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	rendered, err := l.render(src)
	if err != nil {
		return nil, err
	}

	var v any
	switch l.format {
	case FormatJSON:
		v, err = decodeJSON(rendered)
	default:
		v, err = decodeYAML(rendered)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.path, err)
	}
	if v == nil {
		v = map[string]any{}
	}
	doc := pathutil.NormalizeKeys(v)
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, l.path)
	}

	l.logger.Debug().
		Str("path", l.path).
		Str("format", string(l.format)).
		Int("environments", len(doc)).
		Msg("parsed configuration file")
	l.doc = doc
	return doc, nil
}
