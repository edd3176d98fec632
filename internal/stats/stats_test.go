package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/classify"
	"github.com/repolens/repolens/internal/record"
	"github.com/repolens/repolens/internal/score"
	"github.com/repolens/repolens/internal/stats"
	"github.com/repolens/repolens/internal/store"
)

func promote(t *testing.T, s *store.Store, idx int, m record.Metrics) {
	t.Helper()

	m.State = record.TierT2

	_, err := s.Promote(idx, record.TierT2, func(*record.Metrics) *record.Metrics {
		return &m
	})
	require.NoError(t, err)
}

func TestCollect(t *testing.T) {
	t.Parallel()

	s, err := store.New(store.Options{})
	require.NoError(t, err)

	s.Append(record.Record{SizeBytes: 100}, "pass\n")
	s.Append(record.Record{SizeBytes: 200}, "pass\n")
	s.Append(record.Record{SizeBytes: 300}, "pass\n")

	promote(t, s, 0, record.Metrics{LOC: 10, CodeType: classify.TypeTesting, Points: 50})
	promote(t, s, 1, record.Metrics{LOC: 20, CodeType: classify.TypeTesting, Points: 10, Degraded: true})
	// Index 2 stays at T1.

	sum := stats.Collect(s)

	assert.Equal(t, 3, sum.Records)
	assert.Equal(t, int64(600), sum.TotalBytes)
	assert.Equal(t, 2, sum.Promoted)
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, 1, sum.Degraded)
	assert.Equal(t, 30, sum.TotalLOC)
	assert.Equal(t, map[classify.CodeType]int{classify.TypeTesting: 2}, sum.TypeCounts)
	assert.Equal(t, map[score.Grade]int{score.GradeHigh: 1, score.GradeBasic: 1}, sum.GradeCounts)
}

func TestCollectIndices_Subset(t *testing.T) {
	t.Parallel()

	s, err := store.New(store.Options{})
	require.NoError(t, err)

	s.Append(record.Record{SizeBytes: 1}, "")
	s.Append(record.Record{SizeBytes: 2}, "")
	s.Append(record.Record{SizeBytes: 4}, "")

	sum := stats.CollectIndices(s, []int{0, 2})
	assert.Equal(t, 2, sum.Records)
	assert.Equal(t, int64(5), sum.TotalBytes)
	assert.Equal(t, 2, sum.Pending)

	// Unknown indices are ignored, not fatal.
	sum = stats.CollectIndices(s, []int{0, 99})
	assert.Equal(t, 1, sum.Records)
}

func TestCollect_EmptyStore(t *testing.T) {
	t.Parallel()

	s, err := store.New(store.Options{})
	require.NoError(t, err)

	sum := stats.Collect(s)
	assert.Zero(t, sum.Records)
	assert.Empty(t, sum.TypeCounts)
	assert.Empty(t, sum.GradeCounts)
}
