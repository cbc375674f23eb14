package workingmemory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/workingmemory"
)

func mustVar(t *testing.T, key, name string) attribute.Attribute {
	t.Helper()
	a, err := attribute.NewVariable(key, name)
	require.NoError(t, err)
	return a
}

func TestCreateEntryAndGetBindings(t *testing.T) {
	m := workingmemory.New(10, 300)
	query := attribute.Query{Pattern: attribute.Pattern{Template: mustVar(t, "rpm", "x")}}
	id := m.CreateQueryContext(query, 5, nil)

	m.CreateEntry(id, attribute.Pattern{Template: mustVar(t, "rpm", "x")}, nil)
	ok := m.UpdateBindings(id, map[string]attribute.Value{"x": attribute.NewIntAtom(4200)})
	require.True(t, ok)

	bindings := m.GetBindings(id)
	assert.Contains(t, bindings, "x")
}

func TestGlobalBindingFallback(t *testing.T) {
	m := workingmemory.New(10, 300)
	m.SetGlobalBinding("y", attribute.NewIntAtom(1))

	v, ok := m.ResolveVariable("nonexistent-query", "y")
	require.True(t, ok)
	atom, ok := v.(attribute.Atom)
	require.True(t, ok)
	assert.Equal(t, int64(1), atom.I)
}

func TestLocalBindingShadowsGlobal(t *testing.T) {
	m := workingmemory.New(10, 300)
	m.SetGlobalBinding("x", attribute.NewIntAtom(1))

	id := m.CreateQueryContext(attribute.Query{}, 5, nil)
	m.CreateEntry(id, attribute.Pattern{}, map[string]attribute.Value{"x": attribute.NewIntAtom(2)})

	v, ok := m.ResolveVariable(id, "x")
	require.True(t, ok)
	atom, _ := v.(attribute.Atom)
	assert.Equal(t, int64(2), atom.I)
}

func TestSubstituteVariables(t *testing.T) {
	m := workingmemory.New(10, 300)
	id := m.CreateQueryContext(attribute.Query{}, 5, nil)
	m.CreateEntry(id, attribute.Pattern{}, map[string]attribute.Value{"x": attribute.NewIntAtom(4200)})

	nested, _ := attribute.NewNested("engine", []attribute.Attribute{mustVar(t, "rpm", "x")})
	substituted := m.SubstituteVariables(id, nested)

	children, ok := substituted.AsNested()
	require.True(t, ok)
	atom, ok := children[0].AsAtom()
	require.True(t, ok)
	assert.Equal(t, int64(4200), atom.I)
}

func TestFindUnboundVariables(t *testing.T) {
	m := workingmemory.New(10, 300)
	id := m.CreateQueryContext(attribute.Query{}, 5, nil)
	m.CreateEntry(id, attribute.Pattern{}, map[string]attribute.Value{"x": attribute.NewIntAtom(1)})

	nested, _ := attribute.NewNested("engine", []attribute.Attribute{mustVar(t, "rpm", "x"), mustVar(t, "temp", "y")})
	pattern := attribute.Pattern{Template: nested}

	unbound := m.FindUnboundVariables(id, pattern)
	assert.Equal(t, []string{"y"}, unbound)
}

func TestCleanupExpiredRemovesTimedOutContext(t *testing.T) {
	m := workingmemory.New(10, 300)
	timeout := -1.0 // already expired
	id := m.CreateQueryContext(attribute.Query{}, 5, &timeout)

	removed := m.CleanupExpired()
	assert.GreaterOrEqual(t, removed, 1)

	_, ok := m.GetQueryContext(id)
	assert.False(t, ok)
}
