package algebra_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dad-io/thinkingmesh/algebra"
	"github.com/dad-io/thinkingmesh/attribute"
)

func mustAtom(t *testing.T, key string, v any) attribute.Attribute {
	t.Helper()
	a, err := attribute.NewAtom(key, v)
	require.NoError(t, err)
	return a
}

func mustNested(t *testing.T, key string, children ...attribute.Attribute) attribute.Attribute {
	t.Helper()
	a, err := attribute.NewNested(key, children)
	require.NoError(t, err)
	return a
}

func mustVar(t *testing.T, key, name string) attribute.Attribute {
	t.Helper()
	a, err := attribute.NewVariable(key, name)
	require.NoError(t, err)
	return a
}

func TestUnionKeyMismatch(t *testing.T) {
	a := mustAtom(t, "rpm", int64(1))
	b := mustAtom(t, "temp", int64(2))
	_, err := algebra.Union(a, b)
	assert.Error(t, err)
}

func TestUnionAtomOverwrite(t *testing.T) {
	a := mustAtom(t, "rpm", int64(1))
	b := mustAtom(t, "rpm", int64(2))
	u, err := algebra.Union(a, b)
	require.NoError(t, err)
	assert.True(t, attribute.Equal(u, b))
}

func TestUnionAtomNestedNestedWins(t *testing.T) {
	a := mustAtom(t, "engine", int64(1))
	b := mustNested(t, "engine", mustAtom(t, "rpm", int64(1)))
	u, err := algebra.Union(a, b)
	require.NoError(t, err)
	assert.True(t, u.IsNested())
}

func TestUnionNestedMergeOrder(t *testing.T) {
	left := mustNested(t, "engine", mustAtom(t, "rpm", int64(1)), mustAtom(t, "temp", int64(90)))
	right := mustNested(t, "engine", mustAtom(t, "rpm", int64(2)), mustAtom(t, "oil", int64(5)))

	u, err := algebra.Union(left, right)
	require.NoError(t, err)
	nested, ok := u.AsNested()
	require.True(t, ok)
	require.Len(t, nested, 3)
	assert.Equal(t, "rpm", nested[0].Key)
	assert.Equal(t, "temp", nested[1].Key)
	assert.Equal(t, "oil", nested[2].Key)

	rpmValue, ok := nested[0].AsAtom()
	require.True(t, ok)
	assert.Equal(t, int64(2), rpmValue.I)
}

func TestUnionVariableYieldsOtherSide(t *testing.T) {
	v := mustVar(t, "rpm", "x")
	a := mustAtom(t, "rpm", int64(5))
	u, err := algebra.Union(v, a)
	require.NoError(t, err)
	assert.True(t, attribute.Equal(u, a))
}

func TestSubsumesAtomic(t *testing.T) {
	a := mustAtom(t, "rpm", int64(5))
	b := mustAtom(t, "rpm", int64(5))
	c := mustAtom(t, "rpm", int64(6))
	assert.True(t, algebra.Subsumes(a, b))
	assert.False(t, algebra.Subsumes(a, c))
}

func TestSubsumesVariableMatchesAnything(t *testing.T) {
	v := mustVar(t, "rpm", "x")
	a := mustAtom(t, "rpm", int64(999))
	assert.True(t, algebra.Subsumes(v, a))
}

func TestSubsumesNestedRequiresAllKeys(t *testing.T) {
	container := mustNested(t, "engine", mustAtom(t, "rpm", int64(5)))
	contained := mustNested(t, "engine", mustAtom(t, "rpm", int64(5)), mustAtom(t, "temp", int64(90)))
	assert.True(t, algebra.Subsumes(container, contained))

	missing := mustNested(t, "engine", mustAtom(t, "temp", int64(90)))
	assert.False(t, algebra.Subsumes(container, missing))
}

func TestSubsumesNestedVsAtomFails(t *testing.T) {
	container := mustNested(t, "engine", mustAtom(t, "rpm", int64(5)))
	contained := mustAtom(t, "engine", int64(5))
	assert.False(t, algebra.Subsumes(container, contained))
}

func TestUnifyBindsAndChecksConsistency(t *testing.T) {
	pattern := mustVar(t, "rpm", "x")
	data := mustAtom(t, "rpm", int64(4200))
	ok, bindings, unified := algebra.Unify(pattern, data, nil)
	require.True(t, ok)
	assert.True(t, attribute.Equal(unified, data))

	atom, ok := bindings["x"].(attribute.Atom)
	require.True(t, ok)
	assert.Equal(t, int64(4200), atom.I)

	// second occurrence must agree
	data2 := mustAtom(t, "rpm", int64(4200))
	ok, _, _ = algebra.Unify(pattern, data2, bindings)
	assert.True(t, ok)

	data3 := mustAtom(t, "rpm", int64(1))
	ok, _, _ = algebra.Unify(pattern, data3, bindings)
	assert.False(t, ok)
}

func TestUnifyNestedPreservesDataOnlyChildren(t *testing.T) {
	pattern := mustNested(t, "engine", mustVar(t, "rpm", "x"))
	data := mustNested(t, "engine", mustAtom(t, "rpm", int64(4200)), mustAtom(t, "temp", int64(90)))

	ok, bindings, unified := algebra.Unify(pattern, data, nil)
	require.True(t, ok)
	nested, _ := unified.AsNested()
	require.Len(t, nested, 2)
	assert.Equal(t, "rpm", nested[0].Key)
	assert.Equal(t, "temp", nested[1].Key)
	assert.Contains(t, bindings, "x")
}

func TestUnifyKeyMismatchFails(t *testing.T) {
	pattern := mustAtom(t, "rpm", int64(1))
	data := mustAtom(t, "temp", int64(1))
	ok, _, _ := algebra.Unify(pattern, data, nil)
	assert.False(t, ok)
}

func TestProjectResolvesNestedPath(t *testing.T) {
	rpm := mustAtom(t, "rpm", int64(4200))
	engine := mustNested(t, "engine", rpm)
	car := mustNested(t, "car", engine)

	v, ok := algebra.Project(car, attribute.ParsePath("car.engine.rpm"))
	require.True(t, ok)
	assert.True(t, cmp.Equal(v, attribute.NewIntAtom(4200)))
}

func TestProjectRequiresRootKeyMatch(t *testing.T) {
	rpm := mustAtom(t, "rpm", int64(4200))
	_, ok := algebra.Project(rpm, attribute.ParsePath("other"))
	assert.False(t, ok)
}

func TestProjectMissingSegmentNotFound(t *testing.T) {
	engine := mustNested(t, "engine", mustAtom(t, "rpm", int64(1)))
	_, ok := algebra.Project(engine, attribute.ParsePath("engine.oil"))
	assert.False(t, ok)
}

func TestGeneralizeEmptyReturnsNil(t *testing.T) {
	p, err := algebra.Generalize(nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGeneralizeSingleAtomic(t *testing.T) {
	rpm := mustAtom(t, "rpm", int64(4200))
	p, err := algebra.Generalize([]attribute.Attribute{rpm})
	require.NoError(t, err)
	v, ok := p.Template.AsVariable()
	require.True(t, ok)
	assert.Equal(t, "var_rpm", v.Name)
}

func TestGeneralizeMultiNestedKeepsSharedKeys(t *testing.T) {
	instA := mustNested(t, "engine", mustAtom(t, "rpm", int64(4200)), mustAtom(t, "temp", int64(90)))
	instB := mustNested(t, "engine", mustAtom(t, "rpm", int64(3000)))

	p, err := algebra.Generalize([]attribute.Attribute{instA, instB})
	require.NoError(t, err)
	nested, ok := p.Template.AsNested()
	require.True(t, ok)
	require.Len(t, nested, 1)
	assert.Equal(t, "rpm", nested[0].Key)
	assert.True(t, nested[0].IsVariable())

	// Every original instance must still unify against the generalized template.
	okA, _, _ := algebra.Unify(p.Template, instA, nil)
	okB, _, _ := algebra.Unify(p.Template, instB, nil)
	assert.True(t, okA)
	assert.True(t, okB)
}

func TestMatchPatternConservativeOnUnbound(t *testing.T) {
	pattern := attribute.Pattern{
		Template:    mustVar(t, "rpm", "x"),
		Constraints: []string{"?y > 1000"},
	}
	data := mustAtom(t, "rpm", int64(4200))
	ok, _, _, err := algebra.MatchPattern(pattern, data)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchPatternFailsOnBoundConstraint(t *testing.T) {
	pattern := attribute.Pattern{
		Template:    mustVar(t, "rpm", "x"),
		Constraints: []string{"?x > 5000"},
	}
	data := mustAtom(t, "rpm", int64(4200))
	ok, _, _, err := algebra.MatchPattern(pattern, data)
	require.NoError(t, err)
	assert.False(t, ok)
}
