package exporter_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/exporter"
	"github.com/repolens/repolens/internal/record"
	"github.com/repolens/repolens/internal/store"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"main.py", "main.py"},
		{`a<b>c:d".py`, "a_b_c_d_.py"},
		{"..hidden.py.", "hidden.py"},
		{" padded.py ", "padded.py"},
		{"ctrl\x01char.py", "ctrlchar.py"},
		{"...", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, exporter.Sanitize(tc.in), "input %q", tc.in)
	}
}

func TestSafeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "main.py", exporter.SafeFilename("src/app/main.py", 0))
	assert.Equal(t, "code_3.py", exporter.SafeFilename("", 3))
	assert.Equal(t, "code_7.py", exporter.SafeFilename("...", 7))
	assert.Equal(t, "script.py", exporter.SafeFilename("tools/script", 0))

	// An overlong name falls back to a generated one keeping the extension.
	long := strings.Repeat("x", 300) + ".py"
	got := exporter.SafeFilename(long, 0)
	assert.LessOrEqual(t, len(got), 255)
	assert.Equal(t, ".py", filepath.Ext(got))
}

func TestNamer_NumbersCollisions(t *testing.T) {
	t.Parallel()

	namer := exporter.NewNamer()

	assert.Equal(t, "util.py", namer.Unique("a/util.py", 0))
	assert.Equal(t, "util_1.py", namer.Unique("b/util.py", 1))
	assert.Equal(t, "util_2.py", namer.Unique("c/util.py", 2))

	// Collisions are case-insensitive.
	got := namer.Unique("d/UTIL.py", 3)
	assert.NotEqual(t, "UTIL.py", got)
	assert.Equal(t, "UTIL_3.py", got)
}

func TestWriteAll(t *testing.T) {
	t.Parallel()

	s, err := store.New(store.Options{})
	require.NoError(t, err)

	s.Append(record.Record{Path: "a/main.py"}, "print('a')\n")
	s.Append(record.Record{Path: "b/main.py"}, "print('b')\n")
	s.Append(record.Record{Path: "c/other.py"}, "print('c')\n")

	dir := filepath.Join(t.TempDir(), "export")

	sum, err := exporter.WriteAll(s, []int{0, 1, 2}, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Written)
	assert.Zero(t, sum.Failed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	assert.ElementsMatch(t, []string{"main.py", "main_1.py", "other.py"}, names)

	data, err := os.ReadFile(filepath.Join(dir, "main_1.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('b')\n", string(data))
}

func TestWriteRecord_InvalidIndex(t *testing.T) {
	t.Parallel()

	s, err := store.New(store.Options{})
	require.NoError(t, err)

	_, err = exporter.WriteRecord(s, 0, t.TempDir(), exporter.NewNamer())
	assert.ErrorIs(t, err, store.ErrIndexOutOfRange)
}
