package store_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/record"
	"github.com/repolens/repolens/internal/store"
)

func newStore(t *testing.T, opts store.Options) *store.Store {
	t.Helper()

	s, err := store.New(opts)
	require.NoError(t, err)

	return s
}

func TestStore_AppendAssignsStableIndices(t *testing.T) {
	t.Parallel()

	s := newStore(t, store.Options{})

	for i := 0; i < 5; i++ {
		idx := s.Append(record.Record{Path: "f.py"}, "pass")
		assert.Equal(t, i, idx)
	}

	assert.Equal(t, 5, s.Len())

	rec, err := s.Record(3)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Index)
}

func TestStore_IndexOutOfRange(t *testing.T) {
	t.Parallel()

	s := newStore(t, store.Options{})
	s.Append(record.Record{}, "")

	_, err := s.Record(1)
	assert.ErrorIs(t, err, store.ErrIndexOutOfRange)

	_, err = s.Content(-1)
	assert.ErrorIs(t, err, store.ErrIndexOutOfRange)

	assert.Nil(t, s.Metrics(7))
	assert.Equal(t, record.TierT1, s.TierState(7))
}

func TestStore_ContentRoundTripsThroughCompression(t *testing.T) {
	t.Parallel()

	// A tiny threshold forces the LZ4 path for compressible content.
	s := newStore(t, store.Options{CompressionThreshold: 16})

	big := strings.Repeat("def handler():\n    pass\n", 200)
	small := "x = 1"

	bigIdx := s.Append(record.Record{Path: "big.py"}, big)
	smallIdx := s.Append(record.Record{Path: "small.py"}, small)

	got, err := s.Content(bigIdx)
	require.NoError(t, err)
	assert.Equal(t, big, got)

	// Second read exercises the decompressed-content cache.
	got, err = s.Content(bigIdx)
	require.NoError(t, err)
	assert.Equal(t, big, got)

	got, err = s.Content(smallIdx)
	require.NoError(t, err)
	assert.Equal(t, small, got)
}

func TestStore_CompressionDisabled(t *testing.T) {
	t.Parallel()

	s := newStore(t, store.Options{CompressionThreshold: -1})

	content := strings.Repeat("a\n", 100000)
	idx := s.Append(record.Record{}, content)

	got, err := s.Content(idx)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestStore_PromoteMemoizes(t *testing.T) {
	t.Parallel()

	s := newStore(t, store.Options{})
	idx := s.Append(record.Record{}, "pass")

	calls := 0
	compute := func(cur *record.Metrics) *record.Metrics {
		calls++
		assert.Nil(t, cur)

		return &record.Metrics{State: record.TierT2, LOC: 1}
	}

	m, err := s.Promote(idx, record.TierT2, compute)
	require.NoError(t, err)
	assert.Equal(t, record.TierT2, m.State)

	again, err := s.Promote(idx, record.TierT2, compute)
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, 1, calls)

	assert.Equal(t, record.TierT2, s.TierState(idx))
}

func TestStore_PromoteRejectsRegression(t *testing.T) {
	t.Parallel()

	s := newStore(t, store.Options{})
	idx := s.Append(record.Record{}, "pass")

	_, err := s.Promote(idx, record.TierT3, func(cur *record.Metrics) *record.Metrics {
		return &record.Metrics{State: record.TierT3}
	})
	require.NoError(t, err)

	// A T3 record never re-runs lower-tier computation.
	m, err := s.Promote(idx, record.TierT2, func(cur *record.Metrics) *record.Metrics {
		t.Fatal("compute must not run for a satisfied tier")

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, record.TierT3, m.State)

	// A compute that returns too low a tier is refused.
	idx2 := s.Append(record.Record{}, "pass")

	_, err = s.Promote(idx2, record.TierT3, func(cur *record.Metrics) *record.Metrics {
		return &record.Metrics{State: record.TierT2}
	})
	assert.ErrorIs(t, err, store.ErrTierRegression)
}

func TestStore_PromoteConcurrentSingleWriter(t *testing.T) {
	t.Parallel()

	s := newStore(t, store.Options{})
	idx := s.Append(record.Record{}, "pass")

	var (
		mu    sync.Mutex
		calls int
		wg    sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := s.Promote(idx, record.TierT2, func(cur *record.Metrics) *record.Metrics {
				mu.Lock()
				calls++
				mu.Unlock()

				return &record.Metrics{State: record.TierT2}
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, calls)
}
