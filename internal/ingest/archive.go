package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sniffLen is how many leading bytes are inspected to pick a JSON format.
const sniffLen = 512

// lineBufSize is the NDJSON reader's initial buffer; a line larger than
// this grows the buffer to the record size rather than failing.
const lineBufSize = 64 * 1024

// resolveFormat maps a source descriptor to a concrete format, sniffing
// .json files to distinguish a top-level array from NDJSON.
func resolveFormat(src Source) (Format, error) {
	if src.Format != FormatAuto {
		return src.Format, nil
	}

	info, err := os.Stat(src.Path)
	if err != nil {
		return FormatAuto, fmt.Errorf("%w: %s: %w", ErrOpenSource, src.Path, err)
	}

	if info.IsDir() {
		return FormatDir, nil
	}

	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".jsonl", ".ndjson":
		return FormatNDJSON, nil
	case ".json":
		return sniffJSON(src.Path)
	default:
		return FormatAuto, fmt.Errorf("%w: %s", ErrUnrecognizedFormat, src.Path)
	}
}

// sniffJSON reads the head of the file: a leading '[' selects array mode,
// a leading '{' selects NDJSON, anything else is unrecognizable.
func sniffJSON(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatAuto, fmt.Errorf("%w: %s: %w", ErrOpenSource, path, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(f, head)

	for _, b := range head[:n] {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return FormatJSONArray, nil
		case '{':
			return FormatNDJSON, nil
		default:
			return FormatAuto, fmt.Errorf("%w: %s", ErrUnrecognizedFormat, path)
		}
	}

	return FormatAuto, fmt.Errorf("%w: %s", ErrUnrecognizedFormat, path)
}

// countingReader tracks consumed bytes for progress reporting.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}

// ingestArchive streams a JSON-array or NDJSON file. Memory stays bounded
// by the largest single record, not the file size.
func ingestArchive(ctx context.Context, path string, asArray bool, opts *Options, sink Sink) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrOpenSource, path, err)
	}

	if info.Size() > opts.maxArchiveSize() {
		return Result{}, fmt.Errorf("%w: %s (%d bytes)", ErrSourceTooLarge, path, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrOpenSource, path, err)
	}
	defer f.Close()

	cr := &countingReader{r: f}

	if asArray {
		return streamArray(ctx, cr, info.Size(), opts, sink)
	}

	return streamLines(ctx, cr, info.Size(), opts, sink)
}

// streamArray decodes a top-level JSON array element by element through the
// decoder's token interface; no point holds the whole array as one tree.
func streamArray(ctx context.Context, cr *countingReader, total int64, opts *Options, sink Sink) (Result, error) {
	dec := json.NewDecoder(cr)

	open, err := dec.Token()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}

	if d, ok := open.(json.Delim); !ok || d != '[' {
		return Result{}, fmt.Errorf("%w: top-level value is not an array", ErrUnrecognizedFormat)
	}

	var res Result

	for elem := 1; dec.More(); elem++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var obj map[string]any

		if err := dec.Decode(&obj); err != nil {
			// The decoder cannot resync inside a malformed array.
			return res, fmt.Errorf("%w: element %d: %w", ErrUnrecognizedFormat, elem, err)
		}

		raw, ok := mapRecord(obj)
		if !ok {
			res.warn(opts, Warning{Line: elem, Err: errNotAnObject})
			continue
		}

		if err := sink(raw); err != nil {
			return res, err
		}

		res.Records++

		if res.Records%progressEvery == 0 {
			opts.notify(cr.n, total)
		}
	}

	opts.notify(cr.n, total)

	return res, nil
}

// streamLines parses NDJSON: each non-blank line is one independent record;
// a malformed line is skipped with a warning. Lines are read through a
// growing reader, so memory stays bounded by the largest single record and
// no line length is fatal.
func streamLines(ctx context.Context, cr *countingReader, total int64, opts *Options, sink Sink) (Result, error) {
	br := bufio.NewReaderSize(cr, lineBufSize)

	var res Result

	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		text, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return res, fmt.Errorf("%w: line %d: %w", ErrOpenSource, line, readErr)
		}

		trimmed := strings.TrimSpace(text)
		if trimmed != "" {
			if err := streamLine(opts, &res, trimmed, line, sink); err != nil {
				return res, err
			}

			if line%progressEvery == 0 {
				opts.notify(cr.n, total)
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	opts.notify(cr.n, total)

	return res, nil
}

// streamLine handles one non-blank NDJSON line. Malformed input is a
// warning; only a sink failure is returned, aborting ingestion.
func streamLine(opts *Options, res *Result, text string, line int, sink Sink) error {
	var obj map[string]any

	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		res.warn(opts, Warning{Line: line, Err: err})
		return nil
	}

	raw, ok := mapRecord(obj)
	if !ok {
		res.warn(opts, Warning{Line: line, Err: errNotAnObject})
		return nil
	}

	if err := sink(raw); err != nil {
		return err
	}

	res.Records++

	return nil
}

var errNotAnObject = fmt.Errorf("entry is not a JSON object")

// warn records a skipped entry and logs it.
func (r *Result) warn(opts *Options, w Warning) {
	r.Skipped++
	r.Warnings = append(r.Warnings, w)
	opts.logger().Warn("ingest: skipping malformed entry", "line", w.Line, "error", w.Err)
}

// Typed fields recognized in archive records; everything else goes into the
// passthrough Meta bag.
const (
	fieldRepoName = "repo_name"
	fieldPath     = "path"
	fieldSize     = "size"
	fieldContent  = "content"
	fieldLicense  = "license"
)

// mapRecord converts one decoded JSON object into a Raw record. Returns
// false when the value is unusable as a record.
func mapRecord(obj map[string]any) (Raw, bool) {
	if obj == nil {
		return Raw{}, false
	}

	raw := Raw{
		RepoName: stringField(obj, fieldRepoName),
		Path:     stringField(obj, fieldPath),
		License:  stringField(obj, fieldLicense),
		Content:  stringField(obj, fieldContent),
	}

	raw.SizeBytes = intField(obj, fieldSize)
	if raw.SizeBytes == 0 {
		raw.SizeBytes = int64(len(raw.Content))
	}

	raw.Extension = strings.ToLower(filepath.Ext(raw.Path))

	meta := make(map[string]any, len(obj))

	for k, v := range obj {
		switch k {
		case fieldRepoName, fieldPath, fieldSize, fieldContent, fieldLicense:
			continue
		default:
			meta[k] = v
		}
	}

	if len(meta) > 0 {
		raw.Meta = meta
	}

	return raw, true
}

func stringField(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}

	return ""
}

func intField(obj map[string]any, key string) int64 {
	switch v := obj[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n
		}
	}

	return 0
}
