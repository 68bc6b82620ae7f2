package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runStamp = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func TestResolvePathNoLocation(t *testing.T) {
	got, err := ResolvePath("", "GPReport", "srv-01", "html", runStamp)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "GPReport_srv-01_20260314-150926.html"), got)
}

func TestResolvePathExistingDirectory(t *testing.T) {
	dir := t.TempDir()

	got, err := ResolvePath(dir, "GPReport", "srv-01", "html", runStamp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "GPReport_srv-01_20260314-150926.html"), got)
}

func TestResolvePathDirectoryToCreate(t *testing.T) {
	tests := []struct {
		name     string
		location func(base string) string
	}{
		{
			name:     "trailing separator",
			location: func(base string) string { return filepath.Join(base, "reports") + string(os.PathSeparator) },
		},
		{
			name:     "no file extension",
			location: func(base string) string { return filepath.Join(base, "reports") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := tt.location(t.TempDir())

			got, err := ResolvePath(loc, "GPReport", "srv-01", "html", runStamp)
			require.NoError(t, err)

			info, err := os.Stat(filepath.Clean(loc))
			require.NoError(t, err, "directory must be created")
			assert.True(t, info.IsDir())
			assert.Equal(t, "GPReport_srv-01_20260314-150926.html", filepath.Base(got))
		})
	}
}

func TestResolvePathVerbatimFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "out", "mine.html")

	got, err := ResolvePath(target, "GPReport", "srv-01", "html", runStamp)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	info, err := os.Stat(filepath.Dir(target))
	require.NoError(t, err, "parent directory must be created")
	assert.True(t, info.IsDir())
}

func TestResolvePathPairwiseDistinct(t *testing.T) {
	dir := t.TempDir()

	// Hosts sharing a name prefix must still resolve to distinct paths.
	hosts := []string{"srv", "srv-1", "srv-01", "srv-012", "srv-0123"}
	seen := make(map[string]bool, len(hosts))

	for _, host := range hosts {
		p, err := ResolvePath(dir, "GPReport", host, "html", runStamp)
		require.NoError(t, err)
		assert.False(t, seen[p], "path %q resolved twice", p)
		seen[p] = true
	}
}

func TestResolvePathRerunDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()

	first, err := ResolvePath(dir, "GPReport", "srv-01", "html", runStamp)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(first, []byte("first run"), 0o644))

	second, err := ResolvePath(dir, "GPReport", "srv-02", "html", runStamp.Add(2*time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	b, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "first run", string(b))
}
