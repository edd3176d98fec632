// Package engine composes the source reader, record store, tier scheduler,
// and filter engine into the analysis core's external surface. Consumers
// hold record indices only; every accessor resolves through the store.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/exporter"
	"github.com/repolens/repolens/internal/filter"
	"github.com/repolens/repolens/internal/ingest"
	"github.com/repolens/repolens/internal/observability"
	"github.com/repolens/repolens/internal/record"
	"github.com/repolens/repolens/internal/stats"
	"github.com/repolens/repolens/internal/store"
	"github.com/repolens/repolens/internal/tier"
)

// ErrClosed is returned by accessors after Close.
var ErrClosed = errors.New("engine closed")

// Options configures an engine instance.
type Options struct {
	// Config supplies tuning; nil means defaults.
	Config *config.Config

	// Logger receives engine logs. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics receives counters. Nil means instruments on the global
	// (no-op by default) provider.
	Metrics *observability.Metrics

	// Progress receives best-effort ingestion progress events.
	Progress chan<- ingest.Progress
}

// Engine owns one dataset: the store populated by a single ingestion, its
// background scheduler, and the filter state. Opening a new source means
// creating a new Engine; Close cancels background work first so no stale
// result lands in a replaced store.
type Engine struct {
	log     *slog.Logger
	store   *store.Store
	sched   *tier.Scheduler
	filters *filter.Engine

	ingested ingest.Result
	closed   atomic.Bool
}

// Open ingests the source, then starts background T2 promotion.
func Open(ctx context.Context, src ingest.Source, opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load("")
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	obs := opts.Metrics
	if obs == nil {
		obs = observability.Default()
	}

	st, err := store.New(store.Options{
		CompressionThreshold: cfg.Store.CompressionThreshold,
		ContentCacheSize:     cfg.Store.ContentCacheSize,
	})
	if err != nil {
		return nil, err
	}

	res, err := ingest.Ingest(ctx, src, ingest.Options{
		MaxArchiveSize: cfg.Ingest.MaxArchiveSize,
		MaxFileSize:    cfg.Ingest.MaxFileSize,
		ExcludeDirs:    cfg.Ingest.ExcludeDirs,
		Extensions:     cfg.Ingest.Extensions,
		Progress:       opts.Progress,
		Logger:         log,
	}, func(raw ingest.Raw) error {
		st.Append(record.Record{
			Path:      raw.Path,
			RepoName:  raw.RepoName,
			SizeBytes: raw.SizeBytes,
			License:   raw.License,
			Extension: raw.Extension,
			Meta:      raw.Meta,
		}, raw.Content)

		return nil
	})
	if err != nil {
		return nil, err
	}

	obs.RecordsIngested.Add(ctx, int64(res.Records))
	obs.ParseWarnings.Add(ctx, int64(res.Skipped))

	log.Info("engine: dataset loaded",
		"source", src.Path, "format", src.Format, "records", res.Records, "skipped", res.Skipped)

	e := &Engine{
		log:      log,
		store:    st,
		filters:  filter.NewEngine(st),
		ingested: res,
	}

	e.sched = tier.New(st, tier.Options{
		NotifyEvery: cfg.Pipeline.NotifyEvery,
		Logger:      log,
		Metrics:     obs,
	})
	e.sched.Start(ctx)

	return e, nil
}

// Len returns the record count.
func (e *Engine) Len() int { return e.store.Len() }

// IngestResult reports the completed ingestion summary, including skipped
// malformed entries.
func (e *Engine) IngestResult() ingest.Result { return e.ingested }

// T1 returns the ingestion-time snapshot; always immediately available.
func (e *Engine) T1(idx int) (record.Record, error) {
	return e.store.Record(idx)
}

// T2 returns the background-computed snapshot for bulk list display, or
// pending=false while the record has not been promoted. It never blocks.
func (e *Engine) T2(idx int) (*record.Metrics, bool) {
	m := e.store.Metrics(idx)
	if m == nil || m.State < record.TierT2 {
		return nil, false
	}

	return m, true
}

// T3 returns the itemized quality breakdown, computing any missing tiers
// synchronously on the calling goroutine.
func (e *Engine) T3(ctx context.Context, idx int) (*record.Metrics, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	return e.sched.Breakdown(ctx, idx)
}

// Content resolves a record's text without re-ingesting the dataset.
func (e *Engine) Content(idx int) (string, error) {
	return e.store.Content(idx)
}

// SuggestedFilename derives a sanitized export filename from the record path.
func (e *Engine) SuggestedFilename(idx int) (string, error) {
	rec, err := e.store.Record(idx)
	if err != nil {
		return "", err
	}

	return exporter.SafeFilename(rec.Path, idx), nil
}

// Apply evaluates a filter state and retains it for Reapply.
func (e *Engine) Apply(st filter.State) filter.Result {
	return e.filters.Apply(st)
}

// Reapply re-evaluates the retained filter, folding in background promotion.
func (e *Engine) Reapply() filter.Result {
	return e.filters.Reapply()
}

// ClearFilter drops the retained filter and returns all indices.
func (e *Engine) ClearFilter() filter.Result {
	return e.filters.Clear()
}

// Promotions delivers coalesced background-promotion progress counts, to be
// paired with Reapply by list consumers.
func (e *Engine) Promotions() <-chan int {
	return e.sched.Promotions()
}

// Indexed is closed once every record has reached T2.
func (e *Engine) Indexed() <-chan struct{} {
	return e.sched.Done()
}

// WaitIndexed blocks until background promotion finishes or ctx ends.
func (e *Engine) WaitIndexed(ctx context.Context) error {
	select {
	case <-e.sched.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats aggregates over the whole dataset.
func (e *Engine) Stats() stats.Summary {
	return stats.Collect(e.store)
}

// StatsFor aggregates over a filter result.
func (e *Engine) StatsFor(indices []int) stats.Summary {
	return stats.CollectIndices(e.store, indices)
}

// Export writes the given records into dir with collision-free names.
func (e *Engine) Export(indices []int, dir string) (exporter.Summary, error) {
	return exporter.WriteAll(e.store, indices, dir)
}

// Close stops background promotion and releases the dataset. The store is
// not reusable afterwards. Safe for concurrent use.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}

	e.sched.Close()
	e.log.Debug("engine: closed")
}
