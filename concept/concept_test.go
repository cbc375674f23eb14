package concept_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/concept"
)

func mustAtom(t *testing.T, key string, v any) attribute.Attribute {
	t.Helper()
	a, err := attribute.NewAtom(key, v)
	require.NoError(t, err)
	return a
}

func TestCreateRequiresAtLeastTwoInstances(t *testing.T) {
	s := concept.New()
	_, ok := s.Create("solo", []attribute.Attribute{mustAtom(t, "rpm", int64(1))}, 0)
	assert.False(t, ok)
}

func TestCreateAndConfidence(t *testing.T) {
	s := concept.New()
	instances := []attribute.Attribute{
		mustAtom(t, "rpm", int64(1)),
		mustAtom(t, "rpm", int64(2)),
		mustAtom(t, "rpm", int64(3)),
	}
	c, ok := s.Create("rpm_concept", instances, 0.0)
	require.True(t, ok)
	assert.InDelta(t, 0.6, c.Confidence, 1e-9)
}

func TestCreateRejectsBelowMinConfidence(t *testing.T) {
	s := concept.New()
	instances := []attribute.Attribute{
		mustAtom(t, "rpm", int64(1)),
		mustAtom(t, "rpm", int64(2)),
	}
	_, ok := s.Create("rpm_concept", instances, 0.9)
	assert.False(t, ok)
}

func TestReinforceConceptsUpdatesConfidence(t *testing.T) {
	s := concept.New()
	instances := []attribute.Attribute{
		mustAtom(t, "rpm", int64(1)),
		mustAtom(t, "rpm", int64(2)),
	}
	c, ok := s.Create("rpm_concept", instances, 0.0)
	require.True(t, ok)
	startConfidence := c.Confidence
	assert.InDelta(t, 0.4, startConfidence, 1e-9) // creation: 2 instances / 5

	reinforced := s.ReinforceConcepts(mustAtom(t, "rpm", int64(3)))
	assert.Equal(t, []string{"rpm_concept"}, reinforced)

	updated, ok := s.Get("rpm_concept")
	require.True(t, ok)
	// reinforcement rescales to instances/10: 3 instances -> 0.3
	assert.InDelta(t, 0.3, updated.Confidence, 1e-9)
}

func TestSuggestSkipsAlreadyCovered(t *testing.T) {
	s := concept.New()
	_, ok := s.Create("rpm_concept", []attribute.Attribute{
		mustAtom(t, "rpm", int64(1)),
		mustAtom(t, "rpm", int64(2)),
	}, 0.0)
	require.True(t, ok)

	recent := []attribute.Attribute{
		mustAtom(t, "rpm", int64(1)),
		mustAtom(t, "rpm", int64(2)),
		mustAtom(t, "rpm", int64(3)),
	}
	suggestions := s.Suggest(recent, 3)
	assert.Empty(t, suggestions)
}

func TestSuggestProposesUncoveredKey(t *testing.T) {
	s := concept.New()
	recent := []attribute.Attribute{
		mustAtom(t, "temp", int64(1)),
		mustAtom(t, "temp", int64(2)),
		mustAtom(t, "temp", int64(3)),
	}
	suggestions := s.Suggest(recent, 3)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "temp", suggestions[0].Key)
}

func TestCreateHierarchicalPoolsInstances(t *testing.T) {
	s := concept.New()
	s.Create("child_a", []attribute.Attribute{mustAtom(t, "rpm", int64(1)), mustAtom(t, "rpm", int64(2))}, 0.0)
	s.Create("child_b", []attribute.Attribute{mustAtom(t, "rpm", int64(3)), mustAtom(t, "rpm", int64(4))}, 0.0)

	parent, ok := s.CreateHierarchical("parent", []string{"child_a", "child_b"}, 0.0)
	require.True(t, ok)
	assert.Len(t, parent.Instances, 4)
}

func TestPruneRemovesWeakConcepts(t *testing.T) {
	s := concept.New()
	s.Create("weak", []attribute.Attribute{mustAtom(t, "rpm", int64(1)), mustAtom(t, "rpm", int64(2))}, 0.0)

	removed := s.Prune(0.3, time.Hour)
	assert.Equal(t, 0, removed) // confidence 0.4, not < 0.1, and not older than an hour

	removedAggressive := s.Prune(0.9, -time.Second)
	assert.Equal(t, 1, removedAggressive)
}
