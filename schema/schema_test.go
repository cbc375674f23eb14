package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/schema"
)

func mustAtom(t *testing.T, key string, v any) attribute.Attribute {
	t.Helper()
	a, err := attribute.NewAtom(key, v)
	require.NoError(t, err)
	return a
}

func TestDiscoverRequiresMinFrequency(t *testing.T) {
	s := schema.New(3, 100)
	_, ok := s.Discover([]attribute.Attribute{mustAtom(t, "rpm", int64(1)), mustAtom(t, "rpm", int64(2))}, nil)
	assert.False(t, ok)
}

func TestDiscoverAndCompressionRatio(t *testing.T) {
	s := schema.New(2, 100)
	name := "rpm_schema"
	sc, ok := s.Discover([]attribute.Attribute{
		mustAtom(t, "rpm", int64(1)),
		mustAtom(t, "rpm", int64(2)),
	}, &name)
	require.True(t, ok)
	assert.Equal(t, "rpm_schema", sc.Name)
	assert.Greater(t, sc.CompressionRatio, 0.0)
}

func TestUpdateAppendsMatchingInstances(t *testing.T) {
	s := schema.New(2, 100)
	name := "rpm_schema"
	_, ok := s.Discover([]attribute.Attribute{
		mustAtom(t, "rpm", int64(1)),
		mustAtom(t, "rpm", int64(2)),
	}, &name)
	require.True(t, ok)

	updated := s.Update([]attribute.Attribute{mustAtom(t, "rpm", int64(3))})
	assert.Equal(t, []string{"rpm_schema"}, updated)

	matches := s.FindMatching(mustAtom(t, "rpm", int64(99)))
	require.Len(t, matches, 1)
	assert.Equal(t, 3, matches[0].Schema.Frequency)
}

func TestEvolveRecordsPriorTemplateOnChange(t *testing.T) {
	s := schema.New(2, 100)
	name := "engine_schema"
	inst1, _ := attribute.NewNested("engine", []attribute.Attribute{mustAtom(t, "rpm", int64(1))})
	inst2, _ := attribute.NewNested("engine", []attribute.Attribute{mustAtom(t, "rpm", int64(2))})
	_, ok := s.Discover([]attribute.Attribute{inst1, inst2}, &name)
	require.True(t, ok)

	// inst3 lacks rpm, so the regeneralized template drops it and changes.
	inst3, _ := attribute.NewNested("engine", []attribute.Attribute{mustAtom(t, "temp", int64(90))})
	ok = s.Evolve(name, []attribute.Attribute{inst3})
	require.True(t, ok)

	evolved, found := s.Get(name)
	require.True(t, found)
	assert.Equal(t, []string{"engine:[rpm:?var_rpm]"}, evolved.Evolution())
	assert.Equal(t, "engine:[]", attribute.Compact(evolved.Template.Template))

	matches := s.FindMatching(mustAtom(t, "rpm", int64(1))) // won't match engine key, just ensures no panic
	assert.Empty(t, matches)
}

func TestCompressFallsBackToRaw(t *testing.T) {
	s := schema.New(2, 100)
	out := s.Compress([]attribute.Attribute{mustAtom(t, "temp", int64(50))})
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "raw(")
}

func TestPruneRemovesIneffectiveSchemas(t *testing.T) {
	s := schema.New(2, 100)
	name := "rpm_schema"
	s.Discover([]attribute.Attribute{
		mustAtom(t, "rpm", int64(1)),
		mustAtom(t, "rpm", int64(2)),
	}, &name)

	removed := s.Prune(0.0, 0) // ratio always > 0.0 for non-empty instances
	assert.Equal(t, 1, removed)
}
