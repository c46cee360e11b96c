package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitBatch(t *testing.T, w *Watcher) []string {
	t.Helper()
	select {
	case batch := <-w.Changes():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
		return nil
	}
}

func TestWatcherDebouncesChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Assets"), 0o755))

	w, err := New(root, WithDebounceDelay(50*time.Millisecond))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	a := filepath.Join(root, "Assets", "a.mat")
	b := filepath.Join(root, "Assets", "b.mat")
	require.NoError(t, os.WriteFile(a, []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("2"), 0o644))

	batch := waitBatch(t, w)
	assert.Contains(t, batch, a)
	assert.Contains(t, batch, b)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()

	w, err := New(root, WithDebounceDelay(50*time.Millisecond))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	dir := filepath.Join(root, "Prefabs")
	require.NoError(t, os.Mkdir(dir, 0o755))
	waitBatch(t, w)

	f := filepath.Join(dir, "Player.prefab")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	assert.Contains(t, waitBatch(t, w), f)
}

func TestWatcherSkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Library"), 0o755))

	skip := func(name string) bool { return name == "Library" }
	w, err := New(root, WithDebounceDelay(50*time.Millisecond), WithSkipDir(skip))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "Library", "cache"), []byte("x"), 0o644))
	kept := filepath.Join(root, "kept.txt")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

	assert.Equal(t, []string{kept}, waitBatch(t, w))
}

func TestWatcherIgnoresPaths(t *testing.T) {
	root := t.TempDir()
	report := filepath.Join(root, "report.txt")

	w, err := New(root, WithDebounceDelay(50*time.Millisecond), WithIgnorePaths(report, filepath.Join(root, "index.db")))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(report, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.db"), []byte("x"), 0o644))
	kept := filepath.Join(root, "kept.txt")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

	assert.Equal(t, []string{kept}, waitBatch(t, w))
}

func TestSkipped(t *testing.T) {
	w := &Watcher{root: "/p", skipDir: func(name string) bool { return name == "Temp" }}
	assert.True(t, w.skipped("/p/Temp/x"))
	assert.True(t, w.skipped("/p/a/Temp/x"))
	assert.False(t, w.skipped("/p/Assets/x"))
}

func TestStopTwice(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	w.Start()
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
