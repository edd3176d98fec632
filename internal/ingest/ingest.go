// Package ingest streams raw records out of a JSON-array archive, an NDJSON
// file, or a directory tree, without holding the whole input in memory.
// Malformed entries are skipped with per-line warnings; only an unopenable
// or unrecognizable source is fatal.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Format declares how a source is parsed.
type Format int

const (
	// FormatAuto sniffs the format from the path and the first bytes.
	FormatAuto Format = iota
	// FormatJSONArray parses a top-level JSON array element by element.
	FormatJSONArray
	// FormatNDJSON parses one JSON object per non-blank line.
	FormatNDJSON
	// FormatDir recursively scans a directory tree of source files.
	FormatDir
)

// String returns the format label used in logs.
func (f Format) String() string {
	switch f {
	case FormatJSONArray:
		return "json-array"
	case FormatNDJSON:
		return "ndjson"
	case FormatDir:
		return "directory"
	default:
		return "auto"
	}
}

// Source describes what to ingest.
type Source struct {
	Path   string
	Format Format
}

// Raw is one streamed record before it enters the store.
type Raw struct {
	Path      string
	RepoName  string
	License   string
	Extension string
	SizeBytes int64
	Content   string

	// Meta carries passthrough JSON fields not mapped to typed ones.
	// Nil in directory mode.
	Meta map[string]any
}

// TotalUnknown is the Progress.Total value when the total is not known.
const TotalUnknown = -1

// Progress is one best-effort progress event: bytes consumed for archive
// sources, records loaded for directory scans.
type Progress struct {
	Done  int64
	Total int64
}

// Warning records one skipped malformed entry.
type Warning struct {
	// Line is the 1-based line (NDJSON) or element (JSON array) number.
	Line int
	Path string
	Err  error
}

// Result summarizes a completed ingestion.
type Result struct {
	Records  int
	Skipped  int
	Warnings []Warning
}

// ErrIngest is the umbrella sentinel for fatal ingest errors; every fatal
// error below matches it through errors.Is.
var ErrIngest = errors.New("ingest")

// Fatal ingest errors.
var (
	// ErrOpenSource means the source could not be opened at all.
	ErrOpenSource = fmt.Errorf("%w: cannot open source", ErrIngest)
	// ErrUnrecognizedFormat means the first bytes match no supported format.
	ErrUnrecognizedFormat = fmt.Errorf("%w: unrecognized source format", ErrIngest)
	// ErrSourceTooLarge means the archive exceeds the configured size cap.
	ErrSourceTooLarge = fmt.Errorf("%w: source exceeds maximum archive size", ErrIngest)
)

// Size caps carried from the original viewer's limits.
const (
	// DefaultMaxArchiveSize caps a JSON/NDJSON archive at open time.
	DefaultMaxArchiveSize = 2 << 30
	// DefaultMaxFileSize caps one file in directory mode; larger files are
	// skipped, not fatal.
	DefaultMaxFileSize = 10 << 20
)

// progressEvery is how many records pass between progress events.
const progressEvery = 500

// Options tunes ingestion. The zero value is usable.
type Options struct {
	// MaxArchiveSize caps JSON/NDJSON input size. Zero means the default.
	MaxArchiveSize int64

	// MaxFileSize caps per-file size in directory mode. Zero means the default.
	MaxFileSize int64

	// ExcludeDirs are directory names skipped during scans, in addition to
	// hidden directories and enry vendor paths. Nil means the defaults.
	ExcludeDirs []string

	// Extensions are the eligible file extensions in directory mode
	// (lowercase, with dot). Empty means language detection decides.
	Extensions []string

	// Progress receives best-effort events. Sends never block: an event is
	// dropped when the observer is behind.
	Progress chan<- Progress

	// Logger receives per-entry warnings. Nil means slog.Default().
	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.Default()
}

func (o *Options) maxArchiveSize() int64 {
	if o.MaxArchiveSize > 0 {
		return o.MaxArchiveSize
	}

	return DefaultMaxArchiveSize
}

func (o *Options) maxFileSize() int64 {
	if o.MaxFileSize > 0 {
		return o.MaxFileSize
	}

	return DefaultMaxFileSize
}

// notify sends a progress event without blocking.
func (o *Options) notify(done, total int64) {
	if o.Progress == nil {
		return
	}

	select {
	case o.Progress <- Progress{Done: done, Total: total}:
	default:
	}
}

// Sink receives each streamed record. Returning an error aborts ingestion.
type Sink func(Raw) error

// Ingest streams the source into sink. The context cancels a long scan.
func Ingest(ctx context.Context, src Source, opts Options, sink Sink) (Result, error) {
	format, err := resolveFormat(src)
	if err != nil {
		return Result{}, err
	}

	switch format {
	case FormatDir:
		return ingestDir(ctx, src.Path, &opts, sink)
	case FormatJSONArray:
		return ingestArchive(ctx, src.Path, true, &opts, sink)
	case FormatNDJSON:
		return ingestArchive(ctx, src.Path, false, &opts, sink)
	default:
		return Result{}, ErrUnrecognizedFormat
	}
}
