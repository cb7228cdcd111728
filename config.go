package configurator

import (
	"errors"
	"fmt"
	"sync"
)

// Source supplies per-environment configuration data. Reload must bypass any
// cached parse.
type Source interface {
	Load(env string) (map[string]any, error)
	Reload(env string) (map[string]any, error)
}

// DefineFunc declares the schema on a fresh root section.
type DefineFunc func(root *Section) error

// Config owns a schema tree and the data loaded into it. Loads and reloads
// build a fresh tree and swap it in, so reads through Config are safe for
// concurrent use; the tree returned by Root is not.
type Config struct {
	mu       sync.RWMutex
	root     *Section
	define   DefineFunc
	opts     []RootOption
	src      Source
	env      string
	issues   Issues
	onChange []func(*Config)
}

// New builds the schema by running define on a new root section.
func New(define DefineFunc, opts ...RootOption) (*Config, error) {
	c := &Config{define: define, opts: opts}
	root, err := c.build(define)
	if err != nil {
		return nil, err
	}
	c.root = root
	return c, nil
}

func (c *Config) build(define DefineFunc) (*Section, error) {
	root := NewRoot(c.opts...)
	if define != nil {
		if err := define(root); err != nil {
			return nil, fmt.Errorf("define schema: %w", err)
		}
	}
	return root, nil
}

// Root returns the current schema tree.
func (c *Config) Root() *Section {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root
}

// Issues returns the non-fatal findings of the last load.
func (c *Config) Issues() Issues {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.issues
}

// Load reads env from src into a freshly defined tree. Rejected entries are
// kept as Issues; missing requirements fail with ErrConfigurationInvalid and
// leave the current tree in place. Values assigned through Set before the
// load are discarded.
func (c *Config) Load(src Source, env string) error {
	if src == nil {
		return errors.New("configurator: nil source")
	}
	data, err := src.Load(env)
	if err != nil {
		return fmt.Errorf("load %s: %w", env, err)
	}

	c.mu.RLock()
	define := c.define
	c.mu.RUnlock()
	root, err := c.build(define)
	if err != nil {
		return err
	}
	iss, err := apply(root, data)

	c.mu.Lock()
	c.src, c.env, c.issues = src, env, iss
	if err == nil {
		c.root = root
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

// Reload re-reads the source into a freshly defined tree and swaps it in.
// The current tree is kept when reading or validation fails.
func (c *Config) Reload() error {
	c.mu.RLock()
	src, env, define := c.src, c.env, c.define
	c.mu.RUnlock()
	if src == nil {
		return errors.New("configurator: reload before load")
	}

	log := c.Root().Logger()
	log.Debug().Str("env", env).Msg("reloading configuration")

	data, err := src.Reload(env)
	if err != nil {
		log.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload %s: %w", env, err)
	}
	if err := c.swap(define, data); err != nil {
		log.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload %s: %w", env, err)
	}
	return nil
}

// Redefine replaces the schema. When data was loaded before, it is loaded
// into the new tree, which must satisfy its requirements to be swapped in.
func (c *Config) Redefine(define DefineFunc) error {
	c.mu.RLock()
	src, env := c.src, c.env
	c.mu.RUnlock()

	var data map[string]any
	if src != nil {
		var err error
		if data, err = src.Load(env); err != nil {
			return fmt.Errorf("load %s: %w", env, err)
		}
	}
	if err := c.swap(define, data); err != nil {
		return err
	}
	c.mu.Lock()
	c.define = define
	c.mu.Unlock()
	return nil
}

func (c *Config) swap(define DefineFunc, data map[string]any) error {
	root, err := c.build(define)
	if err != nil {
		return err
	}
	var iss Issues
	if data != nil {
		if iss, err = apply(root, data); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.root, c.issues = root, iss
	c.mu.Unlock()
	c.notify()
	return nil
}

func apply(root *Section, data map[string]any) (Issues, error) {
	iss := root.Load(data)
	if missing := root.MissingRequirements(); len(missing) > 0 {
		return iss, fmt.Errorf("%w: missing one or more required options: %w", ErrConfigurationInvalid, missing)
	}
	return iss, nil
}

// OnChange registers fn to run after every successful load, reload or
// redefinition.
func (c *Config) OnChange(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

func (c *Config) notify() {
	c.mu.RLock()
	fns := append([]func(*Config){}, c.onChange...)
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Get resolves a dotted path in the current tree.
func (c *Config) Get(path string) (Node, error) { return c.Root().GetPath(path) }

// Value resolves a dotted path and reads its value.
func (c *Config) Value(path string) (any, error) {
	n, err := c.Get(path)
	if err != nil {
		return nil, err
	}
	return n.Value()
}

// Set assigns v to the node at path.
func (c *Config) Set(path string, v any) error {
	n, err := c.Get(path)
	if err != nil {
		return err
	}
	return n.Set(v)
}

func (c *Config) ToMap() (map[string]any, error) { return c.Root().ToMap() }
func (c *Config) ToYAML() ([]byte, error)        { return c.Root().ToYAML() }
func (c *Config) ToJSON() ([]byte, error)        { return c.Root().ToJSON() }
