package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
	notify  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 16)}
}

func (r *recorder) onChange(_ context.Context, paths []string) {
	r.mu.Lock()
	r.batches = append(r.batches, paths)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(5 * time.Second):
		t.Fatalf("no change delivered")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[len(r.batches)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func startWatcher(t *testing.T, root string, rec *recorder) *Watcher {
	t.Helper()
	w, err := New(root, rec.onChange, WithDebounce(150*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcherBatchesTokenFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ingredients"), 0o755))
	rec := newRecorder()
	w := startWatcher(t, root, rec)

	var want []string
	for _, name := range []string{"a.json", "b.json", "c.json"} {
		path := filepath.Join(root, "ingredients", name)
		write(t, path, `{}`)
		want = append(want, path)
	}
	got := rec.wait(t)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 2, w.Stats().Dirs)

	w.Stop()
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	root := t.TempDir()
	rec := newRecorder()
	w := startWatcher(t, root, rec)

	write(t, filepath.Join(root, "notes.txt"), "hello")
	write(t, filepath.Join(root, ".draft.json"), "{}")
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	write(t, filepath.Join(root, "real.json"), "{}")
	assert.Equal(t, []string{filepath.Join(root, "real.json")}, rec.wait(t))

	w.Stop()
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	root := t.TempDir()
	rec := newRecorder()
	w := startWatcher(t, root, rec)

	path := filepath.Join(root, "flavors", "dark", "color.json")
	write(t, path, `{}`)
	assert.Contains(t, rec.wait(t), path)

	// The new directories are watched from now on.
	second := filepath.Join(root, "flavors", "dark", "space.json")
	write(t, second, `{}`)
	assert.Equal(t, []string{second}, rec.wait(t))
	assert.Equal(t, 3, w.Stats().Dirs)

	w.Stop()
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	root := t.TempDir()
	w, err := New(root, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("event loop did not exit")
	}
	w.Stop()
	w.Stop()
}
