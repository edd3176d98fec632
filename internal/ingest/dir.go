package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/src-d/enry/v2"
)

// DefaultExcludeDirs are conventional noise directories skipped during
// scans: build caches, version-control metadata, virtual environments.
var DefaultExcludeDirs = []string{"__pycache__", "venv", "env", ".git", "node_modules"}

// DefaultExtensions are the file extensions scanned by default.
var DefaultExtensions = []string{".py"}

// dirProgressEvery is how many loaded files pass between progress events.
const dirProgressEvery = 50

// licenseUnknown is the license placeholder for scanned files.
const licenseUnknown = "N/A"

// ingestDir enumerates eligible files under root, then loads each one as a
// record with the relative path as its identifier.
func ingestDir(ctx context.Context, root string, opts *Options, sink Sink) (Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrOpenSource, root, err)
	}

	if !info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is not a directory", ErrOpenSource, root)
	}

	paths, err := enumerate(ctx, root, opts)
	if err != nil {
		return Result{}, err
	}

	repoName := filepath.Base(root)
	total := int64(len(paths))

	var res Result

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		raw, ok := loadFile(root, path, repoName, opts, &res)
		if !ok {
			continue
		}

		if err := sink(raw); err != nil {
			return res, err
		}

		res.Records++

		if (i+1)%dirProgressEvery == 0 {
			opts.notify(int64(i+1), total)
		}
	}

	opts.notify(total, total)

	return res, nil
}

// enumerate walks the tree collecting candidate file paths, pruning noise
// directories, hidden directories, and enry vendor paths.
func enumerate(ctx context.Context, root string, opts *Options) ([]string, error) {
	exclude := opts.ExcludeDirs
	if exclude == nil {
		exclude = DefaultExcludeDirs
	}

	var paths []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree: skip it, the scan continues.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}

			name := d.Name()
			if strings.HasPrefix(name, ".") || slices.Contains(exclude, name) || enry.IsVendor(rel+"/") {
				return filepath.SkipDir
			}

			return nil
		}

		if eligibleExt(d.Name(), opts.Extensions) {
			paths = append(paths, path)
		}

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return paths, nil
}

// eligibleExt filters candidates by extension. An empty extension list
// defers the decision to content-based language detection in loadFile.
func eligibleExt(name string, extensions []string) bool {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	if len(extensions) == 1 && extensions[0] == "*" {
		return true
	}

	return slices.Contains(extensions, strings.ToLower(filepath.Ext(name)))
}

// loadFile reads one candidate into a Raw record. Oversized, unreadable,
// and binary files are skipped with a warning.
func loadFile(root, path, repoName string, opts *Options, res *Result) (Raw, bool) {
	info, err := os.Stat(path)
	if err != nil {
		res.warn(opts, Warning{Path: path, Err: err})
		return Raw{}, false
	}

	if info.Size() > opts.maxFileSize() {
		res.Skipped++
		opts.logger().Debug("ingest: skipping oversized file", "path", path, "size", info.Size())

		return Raw{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		res.warn(opts, Warning{Path: path, Err: err})
		return Raw{}, false
	}

	if enry.IsBinary(data) {
		res.Skipped++
		opts.logger().Debug("ingest: skipping binary file", "path", path)

		return Raw{}, false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	return Raw{
		Path:      filepath.ToSlash(rel),
		RepoName:  repoName,
		License:   licenseUnknown,
		Extension: strings.ToLower(filepath.Ext(path)),
		SizeBytes: info.Size(),
		Content:   string(data),
	}, true
}
