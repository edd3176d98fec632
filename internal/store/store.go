// Package store holds all ingested records in a single owned arena addressed
// by stable integer index. Per-record tier metrics are published through an
// atomic copy-on-write snapshot, so readers never block on the background
// promoter except for the instant of publication. Large content is kept
// LZ4-compressed with an LRU of decompressed text in front of it.
package store

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pierrec/lz4/v4"

	"github.com/repolens/repolens/internal/record"
)

// Defaults for the content memory policy.
const (
	// DefaultCompressionThreshold is the content size above which a record's
	// text is stored LZ4-compressed.
	DefaultCompressionThreshold = 64 * 1024

	// DefaultContentCacheSize is the number of decompressed texts kept hot.
	DefaultContentCacheSize = 256
)

// ErrIndexOutOfRange is returned for an index the store never issued.
var ErrIndexOutOfRange = errors.New("record index out of range")

// ErrTierRegression is returned when a promotion would move a record's tier
// backward. The state machine forbids it.
var ErrTierRegression = errors.New("tier state regression")

// Options configures the arena's content memory policy.
type Options struct {
	// CompressionThreshold is the minimum content size, in bytes, for LZ4
	// storage. Zero means DefaultCompressionThreshold; negative disables
	// compression entirely.
	CompressionThreshold int

	// ContentCacheSize is the LRU capacity for decompressed content.
	// Zero means DefaultContentCacheSize.
	ContentCacheSize int
}

// contentSlot holds a record's text either raw or LZ4-compressed.
type contentSlot struct {
	raw        string
	compressed []byte
	origLen    int
}

// slot is one arena entry. The mutex is the per-record transition guard;
// metrics is the atomically published tier snapshot.
type slot struct {
	rec     record.Record
	content contentSlot
	mu      sync.Mutex
	metrics atomic.Pointer[record.Metrics]
}

// Store is the append-only record arena. Append is single-goroutine during
// ingestion; all other methods are safe for concurrent use once ingestion
// has finished.
type Store struct {
	opts  Options
	slots []*slot
	cache *lru.Cache[int, string]
}

// New creates an empty store with the given memory policy.
func New(opts Options) (*Store, error) {
	if opts.CompressionThreshold == 0 {
		opts.CompressionThreshold = DefaultCompressionThreshold
	}

	if opts.ContentCacheSize <= 0 {
		opts.ContentCacheSize = DefaultContentCacheSize
	}

	cache, err := lru.New[int, string](opts.ContentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("content cache: %w", err)
	}

	return &Store{opts: opts, cache: cache}, nil
}

// Append adds a record and its content, assigning and returning the next
// stable index.
func (s *Store) Append(rec record.Record, content string) int {
	idx := len(s.slots)
	rec.Index = idx

	s.slots = append(s.slots, &slot{
		rec:     rec,
		content: s.packContent(content),
	})

	return idx
}

// Len returns the number of ingested records.
func (s *Store) Len() int {
	return len(s.slots)
}

// Record returns the immutable T1 fields for an index.
func (s *Store) Record(idx int) (record.Record, error) {
	sl, err := s.slot(idx)
	if err != nil {
		return record.Record{}, err
	}

	return sl.rec, nil
}

// Content resolves a record's text without re-ingesting the dataset.
func (s *Store) Content(idx int) (string, error) {
	sl, err := s.slot(idx)
	if err != nil {
		return "", err
	}

	if sl.content.compressed == nil {
		return sl.content.raw, nil
	}

	if text, ok := s.cache.Get(idx); ok {
		return text, nil
	}

	text, err := unpackContent(sl.content)
	if err != nil {
		return "", fmt.Errorf("record %d: %w", idx, err)
	}

	s.cache.Add(idx, text)

	return text, nil
}

// Metrics returns the current tier snapshot, or nil while the record is
// still T1-only. The returned value is immutable.
func (s *Store) Metrics(idx int) *record.Metrics {
	sl, err := s.slot(idx)
	if err != nil {
		return nil
	}

	return sl.metrics.Load()
}

// TierState reports the record's current tier.
func (s *Store) TierState(idx int) record.TierState {
	m := s.Metrics(idx)
	if m == nil {
		return record.TierT1
	}

	return m.State
}

// Promote advances a record to the wanted tier under the per-record guard.
// If the record is already at or past the tier, the cached snapshot is
// returned without calling compute. Otherwise compute receives the current
// snapshot (nil at T1) and must return the replacement, which is published
// atomically. The guard makes concurrent on-demand and background promotion
// of the same record mutually exclusive, so compute runs at most once per
// tier.
func (s *Store) Promote(idx int, want record.TierState, compute func(cur *record.Metrics) *record.Metrics) (*record.Metrics, error) {
	sl, err := s.slot(idx)
	if err != nil {
		return nil, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	cur := sl.metrics.Load()
	if cur != nil && cur.State >= want {
		return cur, nil
	}

	next := compute(cur)
	if next == nil || next.State < want || (cur != nil && next.State < cur.State) {
		return nil, fmt.Errorf("record %d: %w", idx, ErrTierRegression)
	}

	sl.metrics.Store(next)

	return next, nil
}

func (s *Store) slot(idx int) (*slot, error) {
	if idx < 0 || idx >= len(s.slots) {
		return nil, fmt.Errorf("index %d: %w", idx, ErrIndexOutOfRange)
	}

	return s.slots[idx], nil
}

// packContent stores small content raw and larger content LZ4-compressed,
// falling back to raw whenever compression does not shrink it.
func (s *Store) packContent(content string) contentSlot {
	if s.opts.CompressionThreshold < 0 || len(content) < s.opts.CompressionThreshold {
		return contentSlot{raw: content}
	}

	buf := make([]byte, lz4.CompressBlockBound(len(content)))

	written, err := lz4.CompressBlock([]byte(content), buf, nil)
	if err != nil || written == 0 || written >= len(content) {
		return contentSlot{raw: content}
	}

	return contentSlot{compressed: buf[:written:written], origLen: len(content)}
}

func unpackContent(c contentSlot) (string, error) {
	out := make([]byte, c.origLen)

	n, err := lz4.UncompressBlock(c.compressed, out)
	if err != nil {
		return "", fmt.Errorf("decompress content: %w", err)
	}

	return string(out[:n]), nil
}
