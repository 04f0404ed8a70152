package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: a\n"), 0o644))

	var calls atomic.Int32
	w, err := New(path, 50*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("- id: b\n"), 0o644))
	}
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: a\n"), 0o644))

	var calls atomic.Int32
	w, err := New(path, 20*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestNewFailsForMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "catalog.yaml"), 0, func() error { return nil })
	assert.Error(t, err)
}
