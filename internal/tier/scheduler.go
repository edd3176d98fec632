// Package tier orchestrates record promotion through the analysis tiers.
// A single background worker promotes every record to T2 in index order;
// the itemized T3 breakdown is computed synchronously on first demand.
// Promotion is memoized: a tier already reached is never recomputed.
package tier

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/repolens/repolens/internal/classify"
	"github.com/repolens/repolens/internal/observability"
	"github.com/repolens/repolens/internal/record"
	"github.com/repolens/repolens/internal/score"
	"github.com/repolens/repolens/internal/store"
)

// defaultNotifyEvery is how many T2 promotions pass between progress
// notifications to the consumer.
const defaultNotifyEvery = 100

// Options configures a Scheduler. The zero value is usable.
type Options struct {
	// NotifyEvery is the promotion count between progress notifications.
	NotifyEvery int

	// Logger receives worker lifecycle logs. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics receives promotion counters. Nil disables them.
	Metrics *observability.Metrics
}

// Scheduler owns the background T2 worker for one store. It must be
// discarded together with the store; Close stops the worker before any
// replacement store is installed, so no stale result is ever published.
type Scheduler struct {
	store   *store.Store
	log     *slog.Logger
	obs     *observability.Metrics
	every   int
	notify  chan int
	done    chan struct{}
	cancel  context.CancelFunc
	startMu sync.Mutex
	started bool
}

// New creates a scheduler over the fully ingested store.
func New(st *store.Store, opts Options) *Scheduler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	every := opts.NotifyEvery
	if every <= 0 {
		every = defaultNotifyEvery
	}

	return &Scheduler{
		store:  st,
		log:    log,
		obs:    opts.Metrics,
		every:  every,
		notify: make(chan int, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the background T2 worker. It is idempotent.
func (s *Scheduler) Start(ctx context.Context) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.started {
		return
	}

	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

// run promotes every record to T2 in index order until done or cancelled.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	total := s.store.Len()
	promoted := 0

	for idx := 0; idx < total; idx++ {
		select {
		case <-ctx.Done():
			s.log.Debug("tier: background promotion cancelled", "at", idx, "total", total)
			return
		default:
		}

		s.EnsureT2(ctx, idx)

		promoted++
		if promoted%s.every == 0 {
			s.publishProgress(promoted)
		}
	}

	s.publishProgress(promoted)
	s.log.Debug("tier: background promotion complete", "records", total)
}

// Done is closed when every record has reached T2 (or the worker stopped).
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Promotions delivers coalesced counts of records promoted so far. A slow
// consumer only ever sees the most recent count.
func (s *Scheduler) Promotions() <-chan int {
	return s.notify
}

// publishProgress replaces any pending notification with the latest count.
func (s *Scheduler) publishProgress(n int) {
	for {
		select {
		case s.notify <- n:
			return
		default:
			select {
			case <-s.notify:
			default:
			}
		}
	}
}

// Close stops the background worker and waits for it to exit. Safe to call
// multiple times; a never-started scheduler closes immediately.
func (s *Scheduler) Close() {
	s.startMu.Lock()

	if !s.started {
		s.started = true
		close(s.done)
		s.startMu.Unlock()

		return
	}

	cancel := s.cancel
	s.startMu.Unlock()

	if cancel != nil {
		cancel()
	}

	<-s.done
}

// EnsureT2 returns the record's T2 snapshot, computing it synchronously if
// the background worker has not reached it yet.
func (s *Scheduler) EnsureT2(ctx context.Context, idx int) *record.Metrics {
	m, err := s.store.Promote(idx, record.TierT2, func(*record.Metrics) *record.Metrics {
		return s.computeT2(ctx, idx)
	})
	if err != nil {
		s.log.Warn("tier: T2 promotion failed", "index", idx, "error", err)
		return nil
	}

	return m
}

// Breakdown returns the itemized quality breakdown for one record,
// promoting it through any skipped tier first. The computation runs on the
// calling goroutine: it is always a single-record, bounded request.
func (s *Scheduler) Breakdown(ctx context.Context, idx int) (*record.Metrics, error) {
	if s.EnsureT2(ctx, idx) == nil {
		// Keep the tier order observable even when T2 degraded hard.
		s.store.Promote(idx, record.TierT2, func(*record.Metrics) *record.Metrics { //nolint:errcheck
			return degradedMetrics(record.TierT2)
		})
	}

	m, err := s.store.Promote(idx, record.TierT3, func(cur *record.Metrics) *record.Metrics {
		return s.computeT3(ctx, idx, cur)
	})
	if err != nil {
		return nil, err
	}

	if s.obs != nil {
		s.obs.T3Computations.Add(ctx, 1)
	}

	return m, nil
}

// computeT2 derives line count, code type, and the quality score summary.
// Any failure degrades the record instead of halting promotion.
func (s *Scheduler) computeT2(ctx context.Context, idx int) (m *record.Metrics) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("tier: T2 computation degraded", "index", idx, "panic", r)
			m = degradedMetrics(record.TierT2)
			s.countDegraded(ctx)
		}
	}()

	content, err := s.store.Content(idx)
	if err != nil {
		s.log.Warn("tier: content unavailable, degrading record", "index", idx, "error", err)
		s.countDegraded(ctx)

		return degradedMetrics(record.TierT2)
	}

	rec, err := s.store.Record(idx)
	if err != nil {
		return degradedMetrics(record.TierT2)
	}

	m = &record.Metrics{
		State:    record.TierT2,
		LOC:      countLines(content),
		CodeType: classify.Classify(rec.Path, content),
		Points:   score.Score(content).Total,
	}

	if s.obs != nil {
		s.obs.T2Promotions.Add(ctx, 1)
	}

	return m
}

// computeT3 attaches the itemized breakdown. Scoring is a pure function of
// the content, so the recomputed total always matches the T2 summary.
func (s *Scheduler) computeT3(ctx context.Context, idx int, cur *record.Metrics) (m *record.Metrics) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("tier: T3 computation degraded", "index", idx, "panic", r)
			m = degradedFrom(cur)
			s.countDegraded(ctx)
		}
	}()

	if cur == nil {
		return degradedMetrics(record.TierT3)
	}

	if cur.Degraded {
		return degradedFrom(cur)
	}

	content, err := s.store.Content(idx)
	if err != nil {
		s.countDegraded(ctx)
		return degradedFrom(cur)
	}

	res := score.Score(content)

	return &record.Metrics{
		State:     record.TierT3,
		LOC:       cur.LOC,
		CodeType:  cur.CodeType,
		Points:    res.Total,
		Breakdown: res.Items,
	}
}

// degradedMetrics is the lowest/default snapshot for a record whose
// computation failed: score 0, type Unclassified.
func degradedMetrics(state record.TierState) *record.Metrics {
	m := &record.Metrics{
		State:    state,
		CodeType: classify.TypeUnclassified,
		Degraded: true,
	}

	if state >= record.TierT3 {
		m.Breakdown = score.Score("").Items
	}

	return m
}

// degradedFrom carries a T2 snapshot forward to a degraded T3. Structural
// fields survive; the score is zeroed to stay consistent with the all-zero
// breakdown the degraded snapshot exposes.
func degradedFrom(cur *record.Metrics) *record.Metrics {
	m := degradedMetrics(record.TierT3)

	if cur != nil {
		m.LOC = cur.LOC
		m.CodeType = cur.CodeType
	}

	return m
}

func (s *Scheduler) countDegraded(ctx context.Context) {
	if s.obs != nil {
		s.obs.Degraded.Add(ctx, 1)
	}
}

// countLines matches the original line-count rule: newline count plus one
// for non-empty content.
func countLines(content string) int {
	if content == "" {
		return 0
	}

	return strings.Count(content, "\n") + 1
}
