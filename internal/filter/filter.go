// Package filter evaluates predicate sets against the record store,
// producing ordered index lists for pagination. A FilterState is an
// immutable snapshot; applying one rebuilds the matching list wholesale in
// a single linear pass and never mutates records.
package filter

import (
	"slices"
	"strings"
	"sync"

	"github.com/repolens/repolens/internal/classify"
	"github.com/repolens/repolens/internal/record"
	"github.com/repolens/repolens/internal/store"
)

// TextMode selects which field the text query matches against.
type TextMode int

const (
	// ModePath matches the query against the record path.
	ModePath TextMode = iota
	// ModeContent matches the query against the record content.
	ModeContent
	// ModeRepoName matches the query against the passthrough repo name.
	ModeRepoName
)

// State is the active predicate set. The zero value matches everything.
type State struct {
	// Query is the text predicate; empty disables it.
	Query         string
	Mode          TextMode
	CaseSensitive bool

	// Types is the code-type set predicate; empty disables it.
	Types []classify.CodeType

	// Size is the inclusive size range predicate.
	SizeEnabled bool
	MinSize     int64
	MaxSize     int64

	// Quality is the minimum score-percentage predicate.
	QualityEnabled bool
	MinQualityPct  int
}

// Active reports whether any predicate is set.
func (s State) Active() bool {
	return s.Query != "" || len(s.Types) > 0 || s.SizeEnabled || s.QualityEnabled
}

// needsTier2 reports whether the state depends on background-computed fields.
func (s State) needsTier2() bool {
	return len(s.Types) > 0 || s.QualityEnabled
}

// Result is one evaluation outcome. Empty() is distinct from "no filter
// applied": an unfiltered engine returns every index with Filtered false.
type Result struct {
	// Indices are the matching record indices in ingestion order.
	Indices []int

	// Filtered reports whether a predicate set was active.
	Filtered bool
}

// Empty reports the recoverable no-matches condition: an active filter with
// nothing left. The recommended remedy is clearing the filter.
func (r Result) Empty() bool {
	return r.Filtered && len(r.Indices) == 0
}

// Engine evaluates FilterStates over one store. It retains the last applied
// state so background tier promotion can be folded in by Reapply without
// the caller re-specifying the filter.
type Engine struct {
	store *store.Store

	mu  sync.Mutex
	cur *State
}

// NewEngine creates a filter engine over the store.
func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Apply evaluates the state and retains it for later Reapply calls.
func (e *Engine) Apply(st State) Result {
	e.mu.Lock()
	e.cur = &st
	e.mu.Unlock()

	return e.evaluate(st)
}

// Reapply re-evaluates the retained state. As records finish T2 in the
// background, the matching set for type and quality predicates can grow;
// this folds that progress in. With no retained state it returns the
// unfiltered index list.
func (e *Engine) Reapply() Result {
	e.mu.Lock()
	cur := e.cur
	e.mu.Unlock()

	if cur == nil {
		return e.Clear()
	}

	return e.evaluate(*cur)
}

// Clear drops the retained state and returns every index.
func (e *Engine) Clear() Result {
	e.mu.Lock()
	e.cur = nil
	e.mu.Unlock()

	all := make([]int, e.store.Len())
	for i := range all {
		all[i] = i
	}

	return Result{Indices: all}
}

// Current returns the retained state, if any.
func (e *Engine) Current() (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return State{}, false
	}

	return *e.cur, true
}

// evaluate runs one linear pass over the store, preserving ingestion order.
func (e *Engine) evaluate(st State) Result {
	if !st.Active() {
		res := e.allIndices()
		return res
	}

	needsT2 := st.needsTier2()
	indices := make([]int, 0, e.store.Len())

	for idx := 0; idx < e.store.Len(); idx++ {
		if e.matches(st, idx, needsT2) {
			indices = append(indices, idx)
		}
	}

	return Result{Indices: indices, Filtered: true}
}

func (e *Engine) allIndices() Result {
	all := make([]int, e.store.Len())
	for i := range all {
		all[i] = i
	}

	return Result{Indices: all}
}

// matches ANDs every active predicate for one record. A record still below
// T2 is treated as not-yet-matching for type and quality predicates; it
// joins the result once promotion completes and the state is reapplied.
func (e *Engine) matches(st State, idx int, needsT2 bool) bool {
	rec, err := e.store.Record(idx)
	if err != nil {
		return false
	}

	if st.SizeEnabled && (rec.SizeBytes < st.MinSize || rec.SizeBytes > st.MaxSize) {
		return false
	}

	if st.Query != "" && !e.matchText(st, rec) {
		return false
	}

	if !needsT2 {
		return true
	}

	m := e.store.Metrics(idx)
	if m == nil || m.State < record.TierT2 {
		return false
	}

	if len(st.Types) > 0 && !slices.Contains(st.Types, m.CodeType) {
		return false
	}

	if st.QualityEnabled && m.Percent() < st.MinQualityPct {
		return false
	}

	return true
}

func (e *Engine) matchText(st State, rec record.Record) bool {
	var field string

	switch st.Mode {
	case ModeContent:
		content, err := e.store.Content(rec.Index)
		if err != nil {
			return false
		}

		field = content
	case ModeRepoName:
		field = rec.RepoName
	default:
		field = rec.Path
	}

	if st.CaseSensitive {
		return strings.Contains(field, st.Query)
	}

	return strings.Contains(strings.ToLower(field), strings.ToLower(st.Query))
}
