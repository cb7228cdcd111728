// Package configurator provides a declarative schema and runtime for
// application configuration:
//
// - A tree of named sections and typed options rooted at "root"
// - Type coercion through the pluggable casters of the cast package
// - Validation rules, required/optional semantics and lazy defaults with loop detection
// - Schema evolution: renamed, aliased and deprecated paths keep working with a warning
// - A non-fatal error model via Issues (dotted path, code, message)
//
// Design policy:
// - Keep the public API in the root package; casters live in cast/, file loading in loader/.
// - The YAML schema format lives in schemafile/, JSON Schema export in jsonschema/,
//   the CLI under cmd/configurator.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	cfg, err := configurator.New(func(root *configurator.Section) error {
//		_, err := root.Section("database", func(db *configurator.Section) error {
//			_, err := db.Option("host", cast.StringType, configurator.WithRequired(true))
//			return err
//		})
//		return err
//	})
//	src, err := loader.New("config/app.yaml")
//	err = cfg.Load(src, "production")
//	host, err := cfg.Value("database.host")
package configurator
