package app

import (
	"os"
	"sync"
	"time"
)

// FileWatcher polls a file and calls back whenever its modification time
// moves forward. The desktop viewer uses it to replay a keypoints file that
// an external landmark model rewrites.
type FileWatcher struct {
	path          string
	checkInterval time.Duration

	mu       sync.Mutex
	baseline time.Time
	onChange func()
	stopCh   chan struct{}
}

// NewFileWatcher creates a watcher for path. A missing file has a zero
// baseline, so its creation counts as a change.
func NewFileWatcher(path string, checkInterval time.Duration) *FileWatcher {
	w := &FileWatcher{path: path, checkInterval: checkInterval}
	if info, err := os.Stat(path); err == nil {
		w.baseline = info.ModTime()
	}
	return w
}

// OnChange sets the callback. It runs on the watcher goroutine.
func (w *FileWatcher) OnChange(callback func()) {
	w.mu.Lock()
	w.onChange = callback
	w.mu.Unlock()
}

// Start begins watching in a background goroutine.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	w.stopCh = make(chan struct{})
	stop := w.stopCh
	w.mu.Unlock()
	go w.watchLoop(stop)
}

// Stop stops the watcher goroutine. It is safe to call more than once.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

// Path returns the watched path.
func (w *FileWatcher) Path() string {
	return w.path
}

func (w *FileWatcher) watchLoop(stop chan struct{}) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if cb := w.checkForUpdate(); cb != nil {
				cb()
			}
		}
	}
}

// checkForUpdate advances the baseline and returns the callback to run
// when the file is newer than the last seen version.
func (w *FileWatcher) checkForUpdate() func() {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !info.ModTime().After(w.baseline) {
		return nil
	}
	w.baseline = info.ModTime()
	return w.onChange
}
