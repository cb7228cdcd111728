package configurator_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/reoring/configurator"
	"github.com/reoring/configurator/cast"
)

// logBuffer captures the JSON lines a root section logs.
type logBuffer struct{ bytes.Buffer }

func (b *logBuffer) warnings() int { return strings.Count(b.String(), `"level":"warn"`) }

func (b *logBuffer) take() string {
	s := b.String()
	b.Reset()
	return s
}

func newRoot(t *testing.T) (*configurator.Section, *logBuffer) {
	t.Helper()
	buf := &logBuffer{}
	return configurator.NewRoot(configurator.WithLogger(zerolog.New(buf))), buf
}

func mustOption(t *testing.T, s *configurator.Section, name string, typ cast.Type, opts ...configurator.OptionOption) *configurator.Option {
	t.Helper()
	o, err := s.Option(name, typ, opts...)
	require.NoError(t, err)
	return o
}

func mustValue(t *testing.T, n configurator.Node) any {
	t.Helper()
	v, err := n.Value()
	require.NoError(t, err)
	return v
}

func mustPath(t *testing.T, s *configurator.Section, path string) configurator.Node {
	t.Helper()
	n, err := s.GetPath(path)
	require.NoError(t, err)
	return n
}

func childNames(s *configurator.Section) []string {
	var out []string
	for _, n := range s.Children() {
		out = append(out, n.Name())
	}
	return out
}
