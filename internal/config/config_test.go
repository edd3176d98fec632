package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repolens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_DefaultsFillUnsetKeys(t *testing.T) {
	path := writeConfig(t, "view:\n  page_size: 10\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.View.PageSize)
	assert.Equal(t, config.DefaultNotifyEvery, cfg.Pipeline.NotifyEvery)
	assert.Equal(t, config.DefaultCompressionThreshold, cfg.Store.CompressionThreshold)
	assert.Equal(t, config.DefaultContentCacheSize, cfg.Store.ContentCacheSize)
	assert.Equal(t, int64(config.DefaultMaxFileSize), cfg.Ingest.MaxFileSize)
	assert.Equal(t, int64(config.DefaultMaxArchiveSize), cfg.Ingest.MaxArchiveSize)
	assert.Equal(t, []string{"__pycache__", "venv", "env", ".git", "node_modules"}, cfg.Ingest.ExcludeDirs)
	assert.Equal(t, []string{".py"}, cfg.Ingest.Extensions)
}

func TestLoad_FileOverridesEverySection(t *testing.T) {
	path := writeConfig(t, `pipeline:
  notify_every: 25
store:
  compression_threshold: -1
  content_cache_size: 8
ingest:
  max_file_size: 1048576
  max_archive_size: 10485760
  extensions: [".py", ".txt"]
view:
  page_size: 100
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Pipeline.NotifyEvery)
	assert.Equal(t, -1, cfg.Store.CompressionThreshold)
	assert.Equal(t, 8, cfg.Store.ContentCacheSize)
	assert.Equal(t, int64(1048576), cfg.Ingest.MaxFileSize)
	assert.Equal(t, []string{".py", ".txt"}, cfg.Ingest.Extensions)
	assert.Equal(t, 100, cfg.View.PageSize)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "view:\n  page_size: 0\n")

	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrNonPositivePageSize)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("REPOLENS_VIEW_PAGE_SIZE", "7")

	path := writeConfig(t, "view:\n  page_size: 10\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.View.PageSize)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := config.Config{
		Store:  config.StoreConfig{ContentCacheSize: 1},
		Ingest: config.IngestConfig{MaxFileSize: 1, MaxArchiveSize: 1},
		View:   config.ViewConfig{PageSize: 1},
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Store.ContentCacheSize = 0
	assert.ErrorIs(t, bad.Validate(), config.ErrNonPositiveCache)

	bad = valid
	bad.Ingest.MaxArchiveSize = -1
	assert.ErrorIs(t, bad.Validate(), config.ErrNonPositiveLimit)
}
