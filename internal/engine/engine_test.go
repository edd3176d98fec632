package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/classify"
	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/engine"
	"github.com/repolens/repolens/internal/filter"
	"github.com/repolens/repolens/internal/ingest"
)

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{NotifyEvery: config.DefaultNotifyEvery},
		Store: config.StoreConfig{
			CompressionThreshold: config.DefaultCompressionThreshold,
			ContentCacheSize:     config.DefaultContentCacheSize,
		},
		Ingest: config.IngestConfig{
			MaxFileSize:    config.DefaultMaxFileSize,
			MaxArchiveSize: config.DefaultMaxArchiveSize,
		},
		View: config.ViewConfig{PageSize: config.DefaultPageSize},
	}
}

func writeDataset(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "records.jsonl")
	data := `{"repo_name":"acme/calc","path":"tests/test_add.py","content":"import pytest\n\ndef test_add():\n    assert 1 + 1 == 2\n","license":"MIT"}
{"repo_name":"acme/web","path":"srv/app.py","content":"\"\"\"App entry.\"\"\"\n\nfrom flask import Flask\n\napp = Flask(__name__)\n","license":"MIT"}
broken line
{"repo_name":"acme/web","path":"srv/empty.py","content":""}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	return path
}

func openEngine(t *testing.T) *engine.Engine {
	t.Helper()

	eng, err := engine.Open(context.Background(), ingest.Source{Path: writeDataset(t)}, engine.Options{
		Config: testConfig(),
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	return eng
}

func TestEngine_EndToEnd(t *testing.T) {
	t.Parallel()

	eng := openEngine(t)
	ctx := context.Background()

	assert.Equal(t, 3, eng.Len())
	assert.Equal(t, 1, eng.IngestResult().Skipped)

	// T1 is available immediately.
	rec, err := eng.T1(0)
	require.NoError(t, err)
	assert.Equal(t, "tests/test_add.py", rec.Path)
	assert.Equal(t, "acme/calc", rec.RepoName)
	assert.Equal(t, ".py", rec.Extension)

	require.NoError(t, eng.WaitIndexed(ctx))

	// Every record reached T2 in the background.
	for idx := 0; idx < eng.Len(); idx++ {
		m, ok := eng.T2(idx)
		require.True(t, ok, "index %d", idx)
		assert.False(t, m.Degraded)
	}

	m, ok := eng.T2(0)
	require.True(t, ok)
	assert.Equal(t, classify.TypeTesting, m.CodeType)
	assert.Equal(t, 5, m.LOC)

	// T3 attaches the breakdown; the total matches the T2 summary.
	t3, err := eng.T3(ctx, 1)
	require.NoError(t, err)
	require.Len(t, t3.Breakdown, 12)

	t2, _ := eng.T2(1)
	assert.Equal(t, t2.Points, t3.Points)

	content, err := eng.Content(1)
	require.NoError(t, err)
	assert.Contains(t, content, "Flask")
}

func TestEngine_FilterAndStats(t *testing.T) {
	t.Parallel()

	eng := openEngine(t)
	require.NoError(t, eng.WaitIndexed(context.Background()))

	res := eng.Apply(filter.State{Query: "srv/"})
	assert.Equal(t, []int{1, 2}, res.Indices)

	sum := eng.StatsFor(res.Indices)
	assert.Equal(t, 2, sum.Records)
	assert.Equal(t, 2, sum.Promoted)

	res = eng.ClearFilter()
	assert.Len(t, res.Indices, 3)

	whole := eng.Stats()
	assert.Equal(t, 3, whole.Records)
	assert.Zero(t, whole.Pending)
}

func TestEngine_Export(t *testing.T) {
	t.Parallel()

	eng := openEngine(t)

	name, err := eng.SuggestedFilename(1)
	require.NoError(t, err)
	assert.Equal(t, "app.py", name)

	dir := filepath.Join(t.TempDir(), "out")

	sum, err := eng.Export([]int{0, 1}, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Written)
	assert.Zero(t, sum.Failed)

	data, err := os.ReadFile(filepath.Join(dir, "app.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Flask")
}

func TestEngine_OpenFailsOnMissingSource(t *testing.T) {
	t.Parallel()

	_, err := engine.Open(context.Background(), ingest.Source{Path: filepath.Join(t.TempDir(), "missing.json")}, engine.Options{
		Config: testConfig(),
	})
	assert.ErrorIs(t, err, ingest.ErrOpenSource)
}

func TestEngine_T3AfterClose(t *testing.T) {
	t.Parallel()

	eng := openEngine(t)
	eng.Close()
	eng.Close()

	_, err := eng.T3(context.Background(), 0)
	assert.ErrorIs(t, err, engine.ErrClosed)
}

func TestEngine_ConcurrentCloseAndRead(t *testing.T) {
	t.Parallel()

	eng := openEngine(t)

	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()

			// Either a snapshot or ErrClosed; never a torn state.
			if _, err := eng.T3(context.Background(), 0); err != nil {
				assert.ErrorIs(t, err, engine.ErrClosed)
			}
		}()

		go func() {
			defer wg.Done()
			eng.Close()
		}()
	}

	wg.Wait()
}
