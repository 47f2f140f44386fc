package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 20 * time.Millisecond

func newWatcher(t *testing.T, opts Options) (string, *Watcher) {
	t.Helper()
	dir := t.TempDir()
	c, err := New(dir, opts)
	require.NoError(t, err)
	w := NewWatcher(c, testDebounce)
	t.Cleanup(func() { _ = w.Close() })
	return dir, w
}

func waitChange(t *testing.T, changes <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-changes:
		require.True(t, ok, "channel closed before a change was reported")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change notification")
	}
}

func assertQuiet(t *testing.T, changes <-chan struct{}) {
	t.Helper()
	select {
	case <-changes:
		t.Fatal("unexpected change notification")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestNewWatcher_DefaultDebounce(t *testing.T) {
	c, err := New(t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, NewWatcher(c, 0).debounce)
}

func TestWatcher_ReportsCreateWriteRemove(t *testing.T) {
	dir, w := newWatcher(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "guide.md")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	waitChange(t, changes)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	waitChange(t, changes)

	require.NoError(t, os.Remove(path))
	waitChange(t, changes)
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, Options{})
	require.NoError(t, err)
	w := NewWatcher(c, 200*time.Millisecond)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	for i := range 5 {
		writeFile(t, dir, fmt.Sprintf("f%d.txt", i), "x")
	}
	waitChange(t, changes)
	assertQuiet(t, changes)
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	dir, w := newWatcher(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	writeFile(t, dir, ".draft.txt", "x")
	assertQuiet(t, changes)
}

func TestWatcher_RecursiveWatchesNewDirectories(t *testing.T) {
	dir, w := newWatcher(t, Options{Recursive: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "team"), 0o755))
	waitChange(t, changes)

	writeFile(t, dir, "team/onboarding.md", "hello")
	waitChange(t, changes)
}

func TestWatcher_ClosesChannelOnCancel(t *testing.T) {
	_, w := newWatcher(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := w.Watch(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-changes:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel did not close after context cancellation")
	}
}

func TestWatcher_Lifecycle(t *testing.T) {
	t.Run("watch after close fails", func(t *testing.T) {
		_, w := newWatcher(t, Options{})
		require.NoError(t, w.Close())

		changes, err := w.Watch(context.Background())
		assert.ErrorIs(t, err, ErrWatcherClosed)
		assert.Nil(t, changes)
	})

	t.Run("second watch fails", func(t *testing.T) {
		_, w := newWatcher(t, Options{})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_, err := w.Watch(ctx)
		require.NoError(t, err)
		_, err = w.Watch(ctx)
		assert.Error(t, err)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		_, w := newWatcher(t, Options{})
		assert.NoError(t, w.Close())
		assert.NoError(t, w.Close())
	})
}

func TestWatcher_Relevant(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "corpus")
	flat := &Watcher{root: root}
	deep := &Watcher{root: root, recursive: true}

	tests := []struct {
		name string
		w    *Watcher
		path string
		op   fsnotify.Op
		want bool
	}{
		{"create", flat, "a.txt", fsnotify.Create, true},
		{"write", flat, "a.txt", fsnotify.Write, true},
		{"remove", flat, "a.txt", fsnotify.Remove, true},
		{"rename", flat, "a.txt", fsnotify.Rename, true},
		{"chmod only", flat, "a.txt", fsnotify.Chmod, false},
		{"write and chmod", flat, "a.txt", fsnotify.Write | fsnotify.Chmod, true},
		{"hidden file", flat, ".a.txt", fsnotify.Write, false},
		{"inside hidden dir", deep, ".git/config", fsnotify.Write, false},
		{"nested when flat", flat, "sub/a.txt", fsnotify.Write, false},
		{"nested when recursive", deep, "sub/a.txt", fsnotify.Write, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := fsnotify.Event{Name: filepath.Join(root, filepath.FromSlash(tt.path)), Op: tt.op}
			assert.Equal(t, tt.want, tt.w.relevant(event))
		})
	}
}
