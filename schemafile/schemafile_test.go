package schemafile_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/configurator"
	"github.com/reoring/configurator/cast"
	"github.com/reoring/configurator/loader"
	"github.com/reoring/configurator/schemafile"
)

func buildRoot(t *testing.T) (*configurator.Section, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	root := configurator.NewRoot(
		configurator.WithLogger(zerolog.New(&buf)),
		configurator.WithCastRegistry(cast.NewRegistry()),
	)
	require.NoError(t, schemafile.BuildFile(root, "testdata/schema.yaml"))
	return root, &buf
}

func value(t *testing.T, root *configurator.Section, path string) any {
	t.Helper()
	n, err := root.GetPath(path)
	require.NoError(t, err)
	v, err := n.Value()
	require.NoError(t, err)
	return v
}

func TestBuildFile_Options(t *testing.T) {
	root, _ := buildRoot(t)

	assert.Equal(t, "app", value(t, root, "name"))
	assert.Equal(t, 8080, value(t, root, "port"))
	assert.Equal(t, cast.Symbol("info"), value(t, root, "level"))
	assert.Equal(t, 5432, value(t, root, "database.port"))
	assert.Equal(t, "classic", value(t, root, "legacy.mode"))

	tags, ok := root.Get("tags")
	require.True(t, ok)
	assert.True(t, tags.IsRequired())
	assert.True(t, tags.(*configurator.Option).Type().Equal(cast.CollectionOf(cast.StringType)))

	raw := mustOption(t, root, "raw")
	assert.Equal(t, cast.IntegerType, raw.Type())
	assert.NoError(t, raw.Set("anything"), "validation disabled")

	missing := root.MissingRequirements().Paths()
	assert.ElementsMatch(t, []string{"root.tags", "root.database.host"}, missing)
}

func TestBuildFile_Rules(t *testing.T) {
	root, _ := buildRoot(t)

	err := root.SetChild("level", "trace")
	assert.ErrorIs(t, err, configurator.ErrValidation)
	assert.Contains(t, err.Error(), "pick a known level")
	assert.NoError(t, root.SetChild("level", "debug"))

	err = root.SetChild("slug", "ABC")
	assert.ErrorIs(t, err, configurator.ErrValidation)
	assert.Contains(t, err.Error(), "lowercase only")

	assert.ErrorIs(t, root.SetChild("port", 70000), configurator.ErrValidation)

	id := mustOption(t, root, "instance_id")
	assert.ErrorIs(t, id.Set("not-a-uuid"), configurator.ErrValidation)
	require.NoError(t, id.Set("6f1c2a8e-3b4d-4e5f-9a0b-1c2d3e4f5a6b"))
	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse("6f1c2a8e-3b4d-4e5f-9a0b-1c2d3e4f5a6b"), v)
}

func TestBuildFile_Evolution(t *testing.T) {
	root, buf := buildRoot(t)

	n, ok := root.Get("db_host")
	require.True(t, ok)
	assert.True(t, n.IsRenamed())

	alias, err := root.GetPath("database.db_port")
	require.NoError(t, err)
	v, err := alias.Value()
	require.NoError(t, err)
	assert.Equal(t, 5432, v)

	token, ok := root.Get("token")
	require.True(t, ok)
	require.True(t, token.IsDeprecated())
	d := token.(*configurator.Delegated)
	assert.Equal(t, time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC), d.EndOfLife())

	legacy, ok := root.Get("legacy")
	require.True(t, ok)
	assert.True(t, legacy.IsDeprecated())

	buf.Reset()
	require.NoError(t, n.Set("db.local"))
	assert.Equal(t, "db.local", value(t, root, "database.host"))
	assert.Contains(t, buf.String(), "renamed to root.database.host")
}

func TestDefine_WithLoader(t *testing.T) {
	doc, err := schemafile.ParseFile("testdata/schema.yaml")
	require.NoError(t, err)
	cfg, err := configurator.New(schemafile.Define(doc),
		configurator.WithLogger(zerolog.Nop()),
		configurator.WithCastRegistry(cast.NewRegistry()),
	)
	require.NoError(t, err)

	src, err := loader.New("testdata/config.yaml")
	require.NoError(t, err)
	require.NoError(t, cfg.Load(src, "production"))
	assert.Empty(t, cfg.Issues())

	port, err := cfg.Value("port")
	require.NoError(t, err)
	assert.Equal(t, 9090, port)

	id, err := cfg.Value("instance_id")
	require.NoError(t, err)
	assert.IsType(t, uuid.UUID{}, id)

	tags, err := cfg.Value("tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, tags)
}

func TestDefine_NumericExpectFromLoader(t *testing.T) {
	doc, err := schemafile.ParseString(`
options:
  port: {type: integer, default: 443, expect: [80, 443]}
  ratio: {type: float, default: 0.5, expect: [0.5, 1]}
`)
	require.NoError(t, err)

	files := map[string]string{
		"config.yaml": "production:\n  port: 80\n  ratio: 1\n",
		"config.json": `{"production": {"port": 80, "ratio": 1}}`,
	}
	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

			var buf bytes.Buffer
			cfg, err := configurator.New(schemafile.Define(doc),
				configurator.WithLogger(zerolog.New(&buf)),
				configurator.WithCastRegistry(cast.NewRegistry()),
			)
			require.NoError(t, err)
			src, err := loader.New(path)
			require.NoError(t, err)
			require.NoError(t, cfg.Load(src, "production"))

			assert.Empty(t, cfg.Issues())
			assert.NotContains(t, buf.String(), "not in list")
			port, err := cfg.Value("port")
			require.NoError(t, err)
			assert.Equal(t, 80, port)
			ratio, err := cfg.Value("ratio")
			require.NoError(t, err)
			assert.Equal(t, 1.0, ratio)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"unknown field", "optoins: {}\n"},
		{"duplicate option", "options:\n  a: string\n  a: integer\n"},
		{"bad end of life", "options:\n  a: {deprecated: someday}\n"},
		{"options not a mapping", "options: [a, b]\n"},
		{"bad validate", "options:\n  a: {validate: [1]}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schemafile.ParseString(tt.schema)
			assert.Error(t, err)
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		want   error
	}{
		{"bad type", "options:\n  a: {type: \"collection:\"}\n", cast.ErrInvalidCastType},
		{"bad pattern", "options:\n  a: {type: string, default: x, validate: \"(\"}\n", configurator.ErrOptionInvalidArgument},
		{"required and optional", "options:\n  a: {default: 1, required: true, optional: true}\n", configurator.ErrOptionInvalidArgument},
		{"rename to nowhere", "renames:\n  - {from: a, to: b}\n", configurator.ErrRenameFailed},
		{"deprecate nowhere", "deprecations:\n  - {path: a}\n", configurator.ErrDeprecateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := schemafile.ParseString(tt.schema)
			require.NoError(t, err)
			root := configurator.NewRoot(configurator.WithLogger(zerolog.Nop()), configurator.WithCastRegistry(cast.NewRegistry()))
			assert.ErrorIs(t, schemafile.Build(root, doc), tt.want)
		})
	}
}

func TestRegisterTypes_Idempotent(t *testing.T) {
	reg := cast.NewRegistry()
	require.NoError(t, schemafile.RegisterTypes(reg))
	require.NoError(t, schemafile.RegisterTypes(reg))
	_, ok := reg.LookupType(schemafile.UUIDType)
	assert.True(t, ok)
}

func mustOption(t *testing.T, root *configurator.Section, name string) *configurator.Option {
	t.Helper()
	n, ok := root.Get(name)
	require.True(t, ok)
	o, ok := n.(*configurator.Option)
	require.True(t, ok)
	return o
}
