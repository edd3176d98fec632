// Package stats aggregates per-record metrics into dataset-level counts.
// Rendering is the consumer's concern; this package only computes.
package stats

import (
	"github.com/repolens/repolens/internal/classify"
	"github.com/repolens/repolens/internal/record"
	"github.com/repolens/repolens/internal/score"
	"github.com/repolens/repolens/internal/store"
)

// Summary holds aggregate counts over a set of records.
type Summary struct {
	Records    int
	TotalBytes int64

	// Promoted counts records at T2 or beyond; Pending the rest.
	Promoted int
	Pending  int
	Degraded int

	TotalLOC int

	TypeCounts  map[classify.CodeType]int
	GradeCounts map[score.Grade]int
}

// Collect aggregates over the whole store.
func Collect(st *store.Store) Summary {
	indices := make([]int, st.Len())
	for i := range indices {
		indices[i] = i
	}

	return CollectIndices(st, indices)
}

// CollectIndices aggregates over a subset, e.g. the current filter result.
// Records still below T2 contribute to size totals and the pending count
// only; their type and grade are unknown until promotion.
func CollectIndices(st *store.Store, indices []int) Summary {
	sum := Summary{
		TypeCounts:  make(map[classify.CodeType]int),
		GradeCounts: make(map[score.Grade]int),
	}

	for _, idx := range indices {
		rec, err := st.Record(idx)
		if err != nil {
			continue
		}

		sum.Records++
		sum.TotalBytes += rec.SizeBytes

		m := st.Metrics(idx)
		if m == nil || m.State < record.TierT2 {
			sum.Pending++
			continue
		}

		sum.Promoted++
		sum.TotalLOC += m.LOC
		sum.TypeCounts[m.CodeType]++
		sum.GradeCounts[m.Grade()]++

		if m.Degraded {
			sum.Degraded++
		}
	}

	return sum
}
