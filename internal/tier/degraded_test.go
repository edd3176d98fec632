package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/classify"
	"github.com/repolens/repolens/internal/record"
)

func TestDegradedFrom_BreakdownSumMatchesPoints(t *testing.T) {
	t.Parallel()

	cur := &record.Metrics{
		State:    record.TierT2,
		LOC:      40,
		CodeType: classify.TypeWebAPI,
		Points:   55,
	}

	m := degradedFrom(cur)

	require.Equal(t, record.TierT3, m.State)
	assert.True(t, m.Degraded)

	// Structural fields survive; the score agrees with the zeroed breakdown.
	assert.Equal(t, 40, m.LOC)
	assert.Equal(t, classify.TypeWebAPI, m.CodeType)

	sum := 0
	for _, item := range m.Breakdown {
		sum += item.Awarded
	}

	assert.Equal(t, m.Points, sum)
	assert.Zero(t, m.Points)
}

func TestDegradedFrom_NilSnapshot(t *testing.T) {
	t.Parallel()

	m := degradedFrom(nil)

	assert.Equal(t, record.TierT3, m.State)
	assert.Equal(t, classify.TypeUnclassified, m.CodeType)
	assert.Zero(t, m.Points)
	assert.Len(t, m.Breakdown, 12)
}

func TestDegradedMetrics_T2HasNoBreakdown(t *testing.T) {
	t.Parallel()

	m := degradedMetrics(record.TierT2)

	assert.Equal(t, record.TierT2, m.State)
	assert.True(t, m.Degraded)
	assert.Empty(t, m.Breakdown)
}
