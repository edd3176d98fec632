// Package exporter writes record content to disk under sanitized,
// collision-free filenames derived from record paths.
package exporter

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/repolens/repolens/internal/store"
)

// Filename limits.
const (
	// maxFilenameLength is the conventional filesystem filename limit.
	maxFilenameLength = 255

	// randomNameLength is the stem length of generated fallback names.
	randomNameLength = 12

	// maxExtLength guards against absurd extensions on fallback names.
	maxExtLength = 10
)

// defaultExtension is appended when a record path yields none.
const defaultExtension = ".py"

// exportFileMode is the permission mode for exported files.
const exportFileMode = 0o644

// invalidChars are characters replaced in filenames for portability.
const invalidChars = `<>:"/\|?*`

const randomNameChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// Sanitize replaces invalid filename characters with underscores, strips
// control characters, and trims leading/trailing dots and spaces.
func Sanitize(name string) string {
	var b strings.Builder

	for _, r := range name {
		switch {
		case r < ' ':
			continue
		case strings.ContainsRune(invalidChars, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	return strings.Trim(b.String(), ". ")
}

// randomName generates a fallback filename with the given extension.
func randomName(ext string) string {
	var b strings.Builder

	for i := 0; i < randomNameLength; i++ {
		b.WriteByte(randomNameChars[rand.Intn(len(randomNameChars))])
	}

	return b.String() + ext
}

// SafeFilename derives a usable filename from a record's origin path. An
// empty or overlong result falls back to a generated name.
func SafeFilename(path string, index int) string {
	name := filepath.Base(filepath.ToSlash(path))
	if name == "." || name == "/" {
		name = ""
	}

	if name == "" {
		return fmt.Sprintf("code_%d%s", index, defaultExtension)
	}

	name = Sanitize(name)
	if name == "" {
		return fmt.Sprintf("code_%d%s", index, defaultExtension)
	}

	if filepath.Ext(name) == "" {
		name += defaultExtension
	}

	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		if ext == "" || len(ext) > maxExtLength {
			ext = defaultExtension
		}

		return randomName(ext)
	}

	return name
}

// Namer hands out collision-free filenames within one export batch.
// Uniqueness is case-insensitive, so exports are safe on case-preserving
// filesystems.
type Namer struct {
	used map[string]struct{}
}

// NewNamer creates an empty collision tracker.
func NewNamer() *Namer {
	return &Namer{used: make(map[string]struct{})}
}

// Unique returns a batch-unique filename for the record path, numbering
// duplicates and falling back to random names when numbering overflows the
// length limit.
func (n *Namer) Unique(path string, index int) string {
	name := SafeFilename(path, index)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	final := name

	for counter := 1; ; counter++ {
		if _, taken := n.used[strings.ToLower(final)]; !taken {
			break
		}

		final = fmt.Sprintf("%s_%d%s", stem, counter, ext)
		if len(final) > maxFilenameLength {
			final = randomName(ext)
		}
	}

	n.used[strings.ToLower(final)] = struct{}{}

	return final
}

// Summary reports a completed export batch.
type Summary struct {
	Written int
	Failed  int
}

// WriteRecord exports one record's content into dir and returns the path
// written. Content resolution never re-ingests the dataset.
func WriteRecord(st *store.Store, idx int, dir string, namer *Namer) (string, error) {
	rec, err := st.Record(idx)
	if err != nil {
		return "", err
	}

	content, err := st.Content(idx)
	if err != nil {
		return "", err
	}

	target := filepath.Join(dir, namer.Unique(rec.Path, idx))

	if err := os.WriteFile(target, []byte(content), exportFileMode); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}

	return target, nil
}

// WriteAll exports every index in the batch, continuing past individual
// failures.
func WriteAll(st *store.Store, indices []int, dir string) (Summary, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create export dir: %w", err)
	}

	namer := NewNamer()

	var sum Summary

	for _, idx := range indices {
		if _, err := WriteRecord(st, idx, dir, namer); err != nil {
			sum.Failed++
			continue
		}

		sum.Written++
	}

	return sum, nil
}
