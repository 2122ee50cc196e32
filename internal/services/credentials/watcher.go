package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	"github.com/j-veylop/claude-meter-tui/internal/logger"
)

const debounceInterval = 100 * time.Millisecond

// Watcher calls onChange when any credential file is created or rewritten.
// Bursts of filesystem events are coalesced into one call.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
	files    map[string]struct{}
	// pending holds credential directories that do not exist yet and
	// ancestors the watches standing in for them. Only the loop goroutine
	// touches either after NewWatcher returns.
	pending       map[string]struct{}
	ancestors     map[string]struct{}
	stopChan      chan struct{}
	mu            sync.Mutex
	debounceTimer *time.Timer
	closeOnce     sync.Once
}

// NewWatcher watches the directories holding paths. A directory that does
// not exist yet is stood in for by its nearest existing ancestor until it is
// created.
func NewWatcher(paths []string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:   fw,
		onChange:  onChange,
		files:     make(map[string]struct{}, len(paths)),
		pending:   make(map[string]struct{}),
		ancestors: make(map[string]struct{}),
		stopChan:  make(chan struct{}),
	}

	for _, p := range paths {
		p = filepath.Clean(p)
		w.files[p] = struct{}{}
		w.pending[filepath.Dir(p)] = struct{}{}
	}
	w.resolvePending(false)

	go w.watchLoop()
	return w, nil
}

// Watched returns the directories currently watched.
func (w *Watcher) Watched() []string {
	return w.watcher.WatchList()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			name := filepath.Clean(event.Name)
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.isCredentialDir(name) {
				w.pending[name] = struct{}{}
				w.resolvePending(true)
				continue
			}
			if event.Op&fsnotify.Create != 0 && w.leadsToPending(name) {
				w.resolvePending(true)
			}

			if _, tracked := w.files[name]; !tracked {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.debounce()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("credential watcher error", "error", err)

		case <-w.stopChan:
			return
		}
	}
}

// resolvePending watches every pending directory that now exists and
// moves the stand-in watch of the others as deep as possible. With notify,
// a tracked file already present in a newly watched directory counts as a
// change, since it may have been written before the watch was in place.
func (w *Watcher) resolvePending(notify bool) {
	needed := make(map[string]struct{})
	for dir := range w.pending {
		if !isDir(dir) {
			if anc := nearestExisting(dir); anc != "" {
				needed[anc] = struct{}{}
			}
			continue
		}
		// Watch the directory to catch atomic replace as well as in-place writes
		if err := w.watcher.Add(dir); err != nil {
			logger.Warn("failed to watch credential directory", "dir", dir, "error", err)
			continue
		}
		delete(w.pending, dir)
		if notify && w.hasTrackedFileIn(dir) {
			w.debounce()
		}
	}

	for anc := range w.ancestors {
		if _, ok := needed[anc]; ok {
			continue
		}
		delete(w.ancestors, anc)
		if !w.isCredentialDir(anc) {
			_ = w.watcher.Remove(anc)
		}
	}
	added := false
	for anc := range needed {
		if _, ok := w.ancestors[anc]; ok {
			continue
		}
		if err := w.watcher.Add(anc); err != nil {
			logger.Warn("failed to watch credential directory ancestor", "dir", anc, "error", err)
			continue
		}
		w.ancestors[anc] = struct{}{}
		added = true
	}

	// A directory created before its new stand-in watch was in place sends
	// no event, so look once more.
	if added && lo.SomeBy(lo.Keys(w.pending), isDir) {
		w.resolvePending(notify)
	}
}

// leadsToPending reports whether path is a pending directory or one of
// its ancestors.
func (w *Watcher) leadsToPending(path string) bool {
	for dir := range w.pending {
		if dir == path || strings.HasPrefix(dir, path+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) isCredentialDir(dir string) bool {
	for f := range w.files {
		if filepath.Dir(f) == dir {
			return true
		}
	}
	return false
}

func (w *Watcher) hasTrackedFileIn(dir string) bool {
	for f := range w.files {
		if filepath.Dir(f) != dir {
			continue
		}
		if _, err := os.Stat(f); err == nil {
			return true
		}
	}
	return false
}

// nearestExisting returns the closest existing ancestor directory of dir,
// or "" when none exists.
func nearestExisting(dir string) string {
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		if isDir(parent) {
			return parent
		}
		dir = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(debounceInterval, func() {
		logger.Debug("credential file changed")
		if w.onChange != nil {
			w.onChange()
		}
	})
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopChan)

		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()

		err = w.watcher.Close()
	})
	return err
}
