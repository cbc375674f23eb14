package episodic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/episodic"
)

func mustAtom(t *testing.T, key string, v any, ts float64) attribute.Attribute {
	t.Helper()
	a, err := attribute.NewAtom(key, v, attribute.WithTimestamp(ts))
	require.NoError(t, err)
	return a
}

func TestStoreAndRecent(t *testing.T) {
	s := episodic.New(10)
	for i := 0; i < 5; i++ {
		s.Store(mustAtom(t, "rpm", int64(i), float64(i)), nil)
	}
	recent := s.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, float64(2), recent[0].Timestamp)
	assert.Equal(t, float64(4), recent[2].Timestamp)
}

func TestFIFOEviction(t *testing.T) {
	s := episodic.New(3)
	for i := 0; i < 5; i++ {
		s.Store(mustAtom(t, "rpm", int64(i), float64(i)), nil)
	}
	stats := s.Stats()
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, uint64(2), stats.Evictions)

	all := s.Recent(10)
	require.Len(t, all, 3)
	assert.Equal(t, float64(2), all[0].Timestamp)
}

func TestByKeyAndTimeRange(t *testing.T) {
	s := episodic.New(10)
	s.Store(mustAtom(t, "rpm", int64(1), 1), nil)
	s.Store(mustAtom(t, "temp", int64(1), 2), nil)
	s.Store(mustAtom(t, "rpm", int64(2), 3), nil)

	rpmEntries := s.ByKey("rpm", 0)
	require.Len(t, rpmEntries, 2)

	inRange := s.ByTimeRange(2, 3)
	require.Len(t, inRange, 2)
}

func TestSearchPatternNewestFirst(t *testing.T) {
	s := episodic.New(10)
	s.Store(mustAtom(t, "rpm", int64(1), 1), nil)
	s.Store(mustAtom(t, "rpm", int64(2), 2), nil)

	pattern := attribute.Pattern{Template: mustVarAttr(t, "rpm", "x")}
	entries, bindings, err := s.SearchPattern(pattern, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, bindings, 1)
	assert.Equal(t, float64(2), entries[0].Timestamp)
}

func mustVarAttr(t *testing.T, key, name string) attribute.Attribute {
	t.Helper()
	a, err := attribute.NewVariable(key, name)
	require.NoError(t, err)
	return a
}

func TestCompressSimilarRemovesExactDuplicates(t *testing.T) {
	s := episodic.New(10)
	s.Store(mustAtom(t, "rpm", int64(5), 1), nil)
	s.Store(mustAtom(t, "rpm", int64(5), 2), nil)
	s.Store(mustAtom(t, "rpm", int64(6), 3), nil)

	removed := s.CompressSimilar(1.0)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, s.Stats().TotalEntries)
}

func TestTemporalPatternsSharedKey(t *testing.T) {
	s := episodic.New(10)
	for i := 0; i < 4; i++ {
		s.Store(mustAtom(t, "rpm", int64(i), float64(i)), nil)
	}
	pats := s.TemporalPatterns(3)
	require.NotEmpty(t, pats)
	assert.Equal(t, "rpm", pats[0].SharedKey)
}
