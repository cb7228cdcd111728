package jsonschema_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/configurator"
	"github.com/reoring/configurator/cast"
	"github.com/reoring/configurator/jsonschema"
)

func testRoot(t *testing.T) *configurator.Section {
	t.Helper()
	root := configurator.NewRoot(configurator.WithLogger(zerolog.Nop()), configurator.WithCastRegistry(cast.NewRegistry()))
	u, err := url.Parse("https://example.com")
	require.NoError(t, err)

	_, err = root.Option("name", cast.StringType, configurator.WithDefault("app"))
	require.NoError(t, err)
	_, err = root.Option("endpoint", cast.URIType, configurator.WithDefault(u))
	require.NoError(t, err)
	_, err = root.Option("hosts", cast.CollectionOf(cast.StringType))
	require.NoError(t, err)
	_, err = root.Option("seed", cast.IntegerType, configurator.WithDefault(func() any { return 4 }))
	require.NoError(t, err)
	_, err = root.Option("old", cast.FloatType, configurator.WithDeprecated(time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = root.Section("database", func(db *configurator.Section) error {
		if _, err := db.Option("host", cast.StringType); err != nil {
			return err
		}
		_, err := db.Option("tls", cast.BooleanType, configurator.WithOptional(true))
		return err
	})
	require.NoError(t, err)
	require.NoError(t, root.Rename("db", "database"))
	require.NoError(t, root.Alias("name", "app_name"))
	return root
}

func TestFromSection(t *testing.T) {
	s := jsonschema.FromSection(testRoot(t))

	assert.Equal(t, jsonschema.Draft, s.Dialect)
	assert.Equal(t, "root", s.Title)
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, false, s.AdditionalProperties)
	assert.ElementsMatch(t, []string{"hosts", "database"}, s.Required)

	assert.Equal(t, &jsonschema.Schema{Type: "string", Default: "app"}, s.Properties["name"])
	assert.Equal(t, &jsonschema.Schema{Type: "string", Format: "uri", Default: "https://example.com"}, s.Properties["endpoint"])
	assert.Equal(t, &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}, s.Properties["hosts"])
	assert.Equal(t, &jsonschema.Schema{Type: "integer"}, s.Properties["seed"], "lazy defaults are not exported")

	old := s.Properties["old"]
	assert.True(t, old.Deprecated)
	assert.Equal(t, "removed on 2030-05-01", old.Description)

	db := s.Properties["database"]
	assert.Equal(t, []string{"host"}, db.Required)
	assert.Equal(t, "boolean", db.Properties["tls"].Type)

	renamed := s.Properties["db"]
	assert.True(t, renamed.Deprecated)
	assert.Equal(t, "renamed to root.database", renamed.Description)
	assert.Empty(t, renamed.Title)

	assert.Equal(t, "alias of root.name", s.Properties["app_name"].Description)
}

func TestMarshal(t *testing.T) {
	b, err := jsonschema.Marshal(testRoot(t))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, jsonschema.Draft, doc["$schema"])
	props := doc["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "default": "app"}, props["name"])
	assert.NotContains(t, props["hosts"].(map[string]any), "default")
}
