package credentials

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".credentials.json")

	var calls atomic.Int32
	w, err := NewWatcher([]string{path}, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	// Several writes in quick succession are coalesced.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("onChange was not called")
	}

	time.Sleep(3 * debounceInterval)
	if got := calls.Load(); got != 1 {
		t.Errorf("onChange called %d times, want 1", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".credentials.json")

	var calls atomic.Int32
	w, err := NewWatcher([]string{path}, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * debounceInterval)
	if calls.Load() != 0 {
		t.Error("onChange should not fire for unrelated files")
	}
}

func waitForCall(t *testing.T, calls *atomic.Int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("onChange was not called")
	}
}

func TestWatcher_MissingDirectoryWatchesAncestor(t *testing.T) {
	root := t.TempDir()
	credDir := filepath.Join(root, "a", "b")

	var calls atomic.Int32
	w, err := NewWatcher([]string{filepath.Join(credDir, ".credentials.json")}, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if got := w.Watched(); len(got) != 1 || got[0] != root {
		t.Fatalf("Watched() = %v, want [%s]", got, root)
	}
	if calls.Load() != 0 {
		t.Error("starting the watcher should not report a change")
	}
}

func TestWatcher_PicksUpDirectoryCreatedLater(t *testing.T) {
	root := t.TempDir()
	credDir := filepath.Join(root, "a", "b")
	path := filepath.Join(credDir, ".credentials.json")

	var calls atomic.Int32
	w, err := NewWatcher([]string{path}, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := os.MkdirAll(credDir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	waitForCall(t, &calls)

	// Later writes are seen through the directory's own watch.
	time.Sleep(3 * debounceInterval)
	before := calls.Load()
	if err := os.WriteFile(path, []byte(`{"x":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == before && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if calls.Load() == before {
		t.Error("a rewrite after the directory appeared was not seen")
	}
}

func TestWatcher_ExistingFileAtStartIsQuiet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".credentials.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w, err := NewWatcher([]string{path}, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	time.Sleep(3 * debounceInterval)
	if calls.Load() != 0 {
		t.Error("an untouched file should not report a change")
	}
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, err := NewWatcher([]string{filepath.Join(t.TempDir(), "nope", ".credentials.json")}, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
