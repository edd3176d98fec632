// Package config loads engine settings from file, environment, and
// defaults.
package config

import (
	"errors"
	"fmt"
)

// Defaults for the analysis engine.
const (
	DefaultNotifyEvery          = 100
	DefaultCompressionThreshold = 64 * 1024
	DefaultContentCacheSize     = 256
	DefaultMaxFileSize          = 10 << 20
	DefaultMaxArchiveSize       = 2 << 30
	DefaultPageSize             = 50
)

// Config is the full engine configuration.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Store    StoreConfig    `mapstructure:"store"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	View     ViewConfig     `mapstructure:"view"`
}

// PipelineConfig tunes the tier scheduler.
type PipelineConfig struct {
	// NotifyEvery is the promotion count between progress notifications.
	NotifyEvery int `mapstructure:"notify_every"`
}

// StoreConfig tunes the record arena's content memory policy.
type StoreConfig struct {
	// CompressionThreshold is the content size above which LZ4 kicks in.
	// Negative disables compression.
	CompressionThreshold int `mapstructure:"compression_threshold"`

	// ContentCacheSize is the decompressed-content LRU capacity.
	ContentCacheSize int `mapstructure:"content_cache_size"`
}

// IngestConfig tunes source reading.
type IngestConfig struct {
	// MaxFileSize caps one file in directory mode, in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size"`

	// MaxArchiveSize caps a JSON/NDJSON archive, in bytes.
	MaxArchiveSize int64 `mapstructure:"max_archive_size"`

	// ExcludeDirs are directory names pruned during scans.
	ExcludeDirs []string `mapstructure:"exclude_dirs"`

	// Extensions are the eligible file extensions in directory mode.
	Extensions []string `mapstructure:"extensions"`
}

// ViewConfig tunes list consumers.
type ViewConfig struct {
	// PageSize is the record count per listing page.
	PageSize int `mapstructure:"page_size"`
}

// Validation errors.
var (
	ErrNonPositivePageSize = errors.New("view.page_size must be positive")
	ErrNonPositiveCache    = errors.New("store.content_cache_size must be positive")
	ErrNonPositiveLimit    = errors.New("ingest size limits must be positive")
)

// Validate checks invariants the loader's defaults already satisfy, so only
// explicit misconfiguration fails.
func (c *Config) Validate() error {
	if c.View.PageSize <= 0 {
		return ErrNonPositivePageSize
	}

	if c.Store.ContentCacheSize <= 0 {
		return ErrNonPositiveCache
	}

	if c.Ingest.MaxFileSize <= 0 || c.Ingest.MaxArchiveSize <= 0 {
		return fmt.Errorf("%w: max_file_size=%d max_archive_size=%d",
			ErrNonPositiveLimit, c.Ingest.MaxFileSize, c.Ingest.MaxArchiveSize)
	}

	return nil
}
