// Package record defines the typed core of one ingested source-code unit
// and the tier-state machine its metrics move through. The metric-relevant
// fields are strongly typed; unrecognized JSON metadata rides along in an
// opaque Meta bag consumed only by presentation and export.
package record

import (
	"github.com/repolens/repolens/internal/classify"
	"github.com/repolens/repolens/internal/score"
)

// TierState is the analysis completeness level of a record.
// Transitions are strictly forward: TierT1 -> TierT2 -> TierT3.
type TierState int32

const (
	// TierT1 means only ingestion-time fields (path, size, content handle) are valid.
	TierT1 TierState = iota + 1
	// TierT2 adds line count, code type, and the quality score summary.
	TierT2
	// TierT3 adds the itemized quality breakdown. Terminal.
	TierT3
)

// String returns the tier label used in logs and snapshots.
func (t TierState) String() string {
	switch t {
	case TierT1:
		return "T1"
	case TierT2:
		return "T2"
	case TierT3:
		return "T3"
	default:
		return "unknown"
	}
}

// Record holds the immutable ingestion-time (T1) fields of one unit.
// Index is the only handle handed out across component boundaries.
type Record struct {
	// Index is the stable 0-based position in the store, never reused.
	Index int

	// Path is the origin identifier: archive key or relative filesystem path.
	Path string

	// RepoName is the passthrough repository name, or the scanned root's
	// base name in directory mode.
	RepoName string

	// SizeBytes is the raw content size, known at ingestion.
	SizeBytes int64

	// License is passthrough license metadata ("N/A" in directory mode).
	License string

	// Extension is the lowercased file extension including the dot.
	Extension string

	// Meta carries unrecognized passthrough JSON fields. Never read by
	// classification or scoring.
	Meta map[string]any
}

// Metrics is the copy-on-write tier payload published atomically per record.
// A published Metrics value is never mutated; promotion replaces the whole
// snapshot so concurrent readers observe either the old or the new tier,
// never a mix.
type Metrics struct {
	// State is the tier this snapshot corresponds to (TierT2 or TierT3).
	State TierState

	// LOC is the line count. Valid from TierT2.
	LOC int

	// CodeType is the classifier's category. Valid from TierT2.
	CodeType classify.CodeType

	// Points is the quality score total out of score.MaxPoints. Valid from TierT2.
	Points int

	// Breakdown is the itemized quality result. Non-nil only at TierT3.
	Breakdown []score.Item

	// Degraded marks a record whose metric computation failed and was
	// recorded at its lowest/default values instead of aborting promotion.
	Degraded bool
}

// Percent returns the quality score as an integer percentage of the maximum.
func (m *Metrics) Percent() int {
	return score.Percent(m.Points)
}

// Grade returns the quality tier for the snapshot's score.
func (m *Metrics) Grade() score.Grade {
	return score.GradeFor(m.Points)
}
