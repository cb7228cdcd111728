package configurator_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/configurator"
	"github.com/reoring/configurator/cast"
)

func databaseSchema(t *testing.T, root *configurator.Section) *configurator.Section {
	t.Helper()
	db, err := root.Section("database", func(s *configurator.Section) error {
		if _, err := s.Option("host", cast.StringType, configurator.WithRequired(true)); err != nil {
			return err
		}
		_, err := s.Option("port", cast.IntegerType, configurator.WithDefault(5432))
		return err
	})
	require.NoError(t, err)
	return db
}

func TestSection_DuplicateNames(t *testing.T) {
	root, _ := newRoot(t)
	mustOption(t, root, "name", cast.StringType, configurator.WithDefault("x"))

	_, err := root.Option("name", cast.StringType)
	assert.ErrorIs(t, err, configurator.ErrOptionExists)

	_, err = root.Section("name", nil)
	assert.ErrorIs(t, err, configurator.ErrOptionExists)

	_, err = root.Section("sub", func(s *configurator.Section) error {
		if _, err := s.Option("a", cast.IntegerType, configurator.WithDefault(1)); err != nil {
			return err
		}
		_, err := s.Option("a", cast.IntegerType, configurator.WithDefault(2))
		return err
	})
	assert.ErrorIs(t, err, configurator.ErrOptionExists)
	assert.False(t, root.Has("sub"), "a section whose build fails is not registered")
}

func TestSection_RequirementsPropagateToAncestors(t *testing.T) {
	root, buf := newRoot(t)
	db := databaseSchema(t, root)

	assert.False(t, db.RequirementsFulfilled())
	assert.False(t, root.RequirementsFulfilled())
	assert.True(t, root.IsRequired())
	assert.Equal(t, []string{"root.database.host"}, root.MissingRequirements().Paths())
	assert.Positive(t, buf.warnings())

	missing := root.MissingRequirements()
	require.Len(t, missing, 1)
	assert.Equal(t, configurator.CodeRequired, missing[0].Code)

	iss := root.Load(map[string]any{"database": map[string]any{"host": "db.local"}})
	assert.Empty(t, iss)
	assert.True(t, root.RequirementsFulfilled())
	assert.True(t, db.RequirementsFulfilled())
}

func TestSection_RequirementsThroughNesting(t *testing.T) {
	root, _ := newRoot(t)
	var c *configurator.Section
	_, err := root.Section("a", func(a *configurator.Section) error {
		_, err := a.Section("b", func(b *configurator.Section) error {
			var err error
			c, err = b.Section("c", func(c *configurator.Section) error {
				return c.Options("token")
			})
			return err
		})
		return err
	})
	require.NoError(t, err)

	a := mustPath(t, root, "a").(*configurator.Section)
	assert.False(t, c.RequirementsFulfilled())
	assert.False(t, a.RequirementsFulfilled())
	assert.False(t, root.RequirementsFulfilled())

	require.NoError(t, c.SetChild("token", "s3cr3t"))
	assert.True(t, root.RequirementsFulfilled())
}

func TestSection_Load(t *testing.T) {
	root, buf := newRoot(t)
	databaseSchema(t, root)
	mustOption(t, root, "debug", cast.BooleanType, configurator.WithDefault(false))

	iss := root.Load(map[any]any{
		"debug": "yes",
		"hots":  "typo",
		"database": map[any]any{
			"host": "db.local",
			"port": "not-a-port",
		},
	})

	require.Len(t, iss, 2)
	byPath := map[string]configurator.Issue{}
	for _, it := range iss {
		byPath[it.Path] = it
	}
	assert.Equal(t, configurator.CodeUnknownKey, byPath["root.hots"].Code)
	assert.Equal(t, configurator.CodeInvalidType, byPath["root.database.port"].Code)
	assert.ErrorIs(t, iss, configurator.ErrValidation)
	assert.Equal(t, 2, buf.warnings())

	assert.Equal(t, true, mustValue(t, mustPath(t, root, "debug")))
	assert.Equal(t, "db.local", mustValue(t, mustPath(t, root, "database.host")))
	assert.Equal(t, 5432, mustValue(t, mustPath(t, root, "database.port")), "rejected values leave the option unchanged")
}

func TestSection_LoadNonMapping(t *testing.T) {
	root, buf := newRoot(t)
	databaseSchema(t, root)

	iss := root.Load(map[string]any{"database": "oops"})
	require.Len(t, iss, 1)
	assert.Equal(t, "root.database", iss[0].Path)
	assert.Equal(t, configurator.CodeInvalidType, iss[0].Code)
	assert.Equal(t, 1, buf.warnings())

	assert.Empty(t, root.Load(nil))
	assert.Len(t, root.Load([]any{1}), 1)
}

func TestSection_LoadTypedMaps(t *testing.T) {
	root, buf := newRoot(t)
	databaseSchema(t, root)

	assert.Empty(t, root.Load(map[string]map[string]string{
		"database": {"host": "db.local", "port": "6543"},
	}))
	assert.Equal(t, "db.local", mustValue(t, mustPath(t, root, "database.host")))
	assert.Equal(t, 6543, mustValue(t, mustPath(t, root, "database.port")))

	db := mustPath(t, root, "database").(*configurator.Section)
	assert.Empty(t, db.Load(map[string]int{"port": 7000}))
	assert.Equal(t, 7000, mustValue(t, mustPath(t, root, "database.port")))
	assert.Zero(t, buf.warnings())
}

func TestSection_GetPath(t *testing.T) {
	root, _ := newRoot(t)
	databaseSchema(t, root)

	host := mustPath(t, root, "root.database.host")
	assert.Same(t, host, mustPath(t, root, "database.host"))
	assert.Equal(t, "root.database.host", host.PathName())
	assert.Same(t, root, mustPath(t, root, "root"))

	db := mustPath(t, root, "database").(*configurator.Section)
	assert.Same(t, host, mustPath(t, db, "database.host"), "paths resolve from the root")

	_, err := root.GetPath("database.nope.deeper")
	assert.ErrorIs(t, err, configurator.ErrInvalidPath)
	assert.Contains(t, err.Error(), "root.database.nope:")

	_, err = root.GetPath("database.host.child")
	assert.ErrorIs(t, err, configurator.ErrInvalidPath)
}

func TestSection_Accessors(t *testing.T) {
	root, _ := newRoot(t)
	db := databaseSchema(t, root)

	n, ok := db.Get("host")
	require.True(t, ok)
	assert.Equal(t, "host", n.Name())
	assert.Same(t, db, n.Parent())
	_, ok = db.Get("missing")
	assert.False(t, ok)

	assert.NoError(t, db.SetChild("host", "h"))
	assert.ErrorIs(t, db.SetChild("missing", 1), configurator.ErrOptionNotExist)

	var names []string
	for _, c := range db.Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"host", "port"}, names)
	assert.Same(t, root, db.Root())

	_, err := root.Section("bad", nil, configurator.WithDefault(1))
	assert.ErrorIs(t, err, configurator.ErrOptionInvalidArgument)
}

func TestSection_Rename(t *testing.T) {
	root, buf := newRoot(t)
	_, err := root.Section("a", func(a *configurator.Section) error {
		_, err := a.Option("c", cast.IntegerType, configurator.WithDefault(3))
		return err
	})
	require.NoError(t, err)

	require.NoError(t, root.Rename("a.b", "a.c"))
	old := mustPath(t, root, "a.b")
	assert.Equal(t, "root.a.b", old.PathName())
	assert.True(t, old.IsRenamed())

	for i := 0; i < 3; i++ {
		buf.Reset()
		assert.Equal(t, mustValue(t, mustPath(t, root, "a.c")), mustValue(t, old))
		assert.Equal(t, 1, buf.warnings(), "one warning per access")
	}
	assert.Contains(t, buf.take(), "root.a.b was renamed to root.a.c")

	require.NoError(t, old.Set(9))
	assert.Equal(t, 9, mustValue(t, mustPath(t, root, "a.c")))

	err = root.Rename("a.x", "a.nope")
	assert.ErrorIs(t, err, configurator.ErrRenameFailed)
	assert.ErrorIs(t, err, configurator.ErrOptionNotExist)

	err = root.Rename("a.c", "a.b")
	assert.ErrorIs(t, err, configurator.ErrRenameFailed)
	assert.ErrorIs(t, err, configurator.ErrOptionExists)

	assert.ErrorIs(t, root.Rename("nope.x", "a.c"), configurator.ErrRenameFailed)
	assert.True(t, root.RequirementsFulfilled())
}

func TestSection_RenamedFromAtRegistration(t *testing.T) {
	root, buf := newRoot(t)
	mustOption(t, root, "timeout", cast.IntegerType, configurator.WithDefault(30), configurator.WithRenamedFrom("wait"))

	wait := mustPath(t, root, "wait")
	assert.True(t, wait.IsRenamed())
	assert.Equal(t, 30, mustValue(t, wait))
	assert.Equal(t, 1, buf.warnings())

	iss := root.Load(map[string]any{"wait": 60})
	assert.Empty(t, iss)
	assert.Equal(t, 60, mustValue(t, mustPath(t, root, "timeout")))
}

func TestSection_FailedRenamedFromRegistersNothing(t *testing.T) {
	root, _ := newRoot(t)
	mustOption(t, root, "wait", cast.IntegerType, configurator.WithDefault(5))

	_, err := root.Option("timeout", cast.IntegerType, configurator.WithDefault(30), configurator.WithRenamedFrom("wait"))
	assert.ErrorIs(t, err, configurator.ErrRenameFailed)
	assert.False(t, root.Has("timeout"))

	_, err = root.Section("pool", func(p *configurator.Section) error {
		_, err := p.Option("size", cast.IntegerType, configurator.WithDefault(1))
		return err
	}, configurator.WithRenamedFrom("wait"))
	assert.ErrorIs(t, err, configurator.ErrRenameFailed)
	assert.False(t, root.Has("pool"))
	assert.Equal(t, []string{"wait"}, childNames(root))

	_, err = root.Option("timeout", cast.IntegerType, configurator.WithDefault(30))
	assert.NoError(t, err, "the name is free again")
}

func TestSection_Alias(t *testing.T) {
	root, buf := newRoot(t)
	databaseSchema(t, root)

	require.NoError(t, root.Alias("database.host", "db_host"))
	alias := mustPath(t, root, "db_host")
	assert.False(t, alias.IsRenamed())
	assert.False(t, alias.IsDeprecated())

	require.NoError(t, alias.Set("via-alias"))
	assert.Equal(t, "via-alias", mustValue(t, mustPath(t, root, "database.host")))
	assert.Equal(t, "via-alias", mustValue(t, alias))
	assert.Zero(t, buf.warnings(), "aliases are silent")

	assert.ErrorIs(t, root.Alias("database.nope", "x"), configurator.ErrDeprecateFailed)
	assert.ErrorIs(t, root.Alias("database.port", "db_host"), configurator.ErrOptionExists)
}

func TestSection_Deprecate(t *testing.T) {
	root, buf := newRoot(t)
	old := mustOption(t, root, "old_opt", cast.StringType, configurator.WithDefault("legacy"))
	require.NoError(t, old.Set("custom"))

	require.NoError(t, root.Deprecate(time.Time{}, "root.old_opt"))
	n := mustPath(t, root, "old_opt")
	assert.True(t, n.IsDeprecated())
	assert.Equal(t, "root.old_opt", n.PathName())

	assert.Equal(t, "custom", mustValue(t, n))
	assert.Equal(t, 1, buf.warnings())
	assert.Contains(t, buf.take(), "root.old_opt is deprecated and will be removed soon")

	require.NoError(t, root.Deprecate(time.Time{}, "old_opt"), "deprecating twice is a no-op")
	mustValue(t, mustPath(t, root, "old_opt"))
	assert.Equal(t, 1, buf.warnings())

	assert.ErrorIs(t, root.Deprecate(time.Time{}, "nope"), configurator.ErrDeprecateFailed)
	assert.ErrorIs(t, root.Deprecate(time.Time{}, "root"), configurator.ErrDeprecateFailed)
}

func TestSection_DeprecateWithEndOfLife(t *testing.T) {
	root, buf := newRoot(t)
	eol := time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC)
	mustOption(t, root, "legacy", cast.IntegerType, configurator.WithDefault(1), configurator.WithDeprecated(eol))

	n := mustPath(t, root, "legacy")
	d, ok := n.(*configurator.Delegated)
	require.True(t, ok)
	assert.Equal(t, configurator.Deprecated, d.Kind())
	assert.Equal(t, eol, d.EndOfLife())

	assert.Equal(t, 1, mustValue(t, n))
	out := buf.take()
	assert.Contains(t, out, "no longer be available on or after 2031-01-02")
	assert.Contains(t, out, "from now")
}

func TestSection_DeprecatedRequirements(t *testing.T) {
	root, _ := newRoot(t)
	mustOption(t, root, "retired", cast.StringType, configurator.WithDeprecated(time.Time{}))
	assert.True(t, root.RequirementsFulfilled(), "deprecated options are exempt")

	_, err := root.Section("old", func(s *configurator.Section) error {
		return s.Options("still_needed")
	}, configurator.WithDeprecated(time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"root.old.still_needed"}, root.MissingRequirements().Paths(),
		"deprecated sections are checked through their target")

	require.NoError(t, root.Rename("renamed_retired", "retired"))
	assert.Len(t, root.MissingRequirements(), 1, "renamed entries are not counted twice")
}

func TestSection_ResolutionFailureCountsAsMissing(t *testing.T) {
	root, _ := newRoot(t)
	mustOption(t, root, "broken", cast.IntegerType, configurator.WithRequired(true),
		configurator.WithDefault(func() (int, error) { return 0, errors.New("down") }))

	missing := root.MissingRequirements()
	require.Len(t, missing, 1)
	assert.Equal(t, configurator.CodeResolution, missing[0].Code)
	assert.ErrorIs(t, missing, configurator.ErrInvalidCallableDefault)
}
