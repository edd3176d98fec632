package score_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/score"
)

// wellWrittenSource satisfies every metric: docstrings, type hints, a sane
// comment ratio, specific exception handling, shallow nesting.
const wellWrittenSource = `"""Utility helpers."""

# Small arithmetic helpers.

def add(x: int, y: int) -> int:
    """Add two numbers."""
    try:
        return x + y
    except TypeError:
        return 0
`

// sloppySource trips most penalties: wildcard import, bare except, eval,
// no documentation.
const sloppySource = `from os import *
try:
    eval("1+1")
except:
    pass
`

func TestScore_BoundAndBreakdownSum(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"x = 1",
		wellWrittenSource,
		sloppySource,
		strings.Repeat("a", 10000),
		"def f():\n\tpass\n",
	}

	for _, content := range inputs {
		res := score.Score(content)

		assert.GreaterOrEqual(t, res.Total, 0)
		assert.LessOrEqual(t, res.Total, score.MaxPoints)

		sum := 0
		for _, item := range res.Items {
			assert.GreaterOrEqual(t, item.Awarded, 0)
			assert.LessOrEqual(t, item.Awarded, item.Possible)
			sum += item.Awarded
		}

		assert.Equal(t, res.Total, sum)
	}
}

func TestScore_BreakdownOrderIsStable(t *testing.T) {
	t.Parallel()

	first := score.Score(wellWrittenSource)
	second := score.Score(wellWrittenSource)

	require.Equal(t, first, second)
	require.Len(t, first.Items, 12)
	assert.Equal(t, "Docstrings present", first.Items[0].Metric)
	assert.Equal(t, "Low magic-number density", first.Items[11].Metric)
}

func TestScore_HighTierScenario(t *testing.T) {
	t.Parallel()

	res := score.Score(wellWrittenSource)

	assert.GreaterOrEqual(t, res.Percent(), 70)
	assert.Equal(t, score.GradeHigh, res.Grade())
}

func TestScore_SloppySourceScoresLow(t *testing.T) {
	t.Parallel()

	res := score.Score(sloppySource)

	for _, item := range res.Items {
		switch item.Metric {
		case "No wildcard imports", "No bare exception handlers", "No dynamic code execution", "Docstrings present":
			assert.Zero(t, item.Awarded, item.Metric)
		}
	}
}

func TestScore_EmptyContentScoresZero(t *testing.T) {
	t.Parallel()

	res := score.Score("")

	assert.Zero(t, res.Total)
	assert.Len(t, res.Items, 12)
	assert.Equal(t, score.GradeBasic, res.Grade())
}

func TestGradeFor_Thresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		points int
		want   score.Grade
	}{
		{62, score.GradeHigh},
		{44, score.GradeHigh},     // 70%.
		{43, score.GradeModerate}, // 69%.
		{25, score.GradeModerate}, // 40%.
		{24, score.GradeBasic},    // 38%.
		{0, score.GradeBasic},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, score.GradeFor(tc.points), "points=%d", tc.points)
	}
}
