package configdb

import (
	"os"
	"sync"
	"time"
)

// FileWatcher polls file modification times and triggers a callback on change.
// A file that appears after the first scan, or disappears, counts as a change.
type FileWatcher struct {
	Paths    []string
	Interval time.Duration

	onChange func(string) // called with path that changed
	stopCh   chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	seen   map[string]time.Time
	primed bool
}

// NewFileWatcher creates a watcher for given paths and interval.
func NewFileWatcher(paths []string, interval time.Duration, onChange func(string)) *FileWatcher {
	return &FileWatcher{
		Paths:    paths,
		Interval: interval,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		seen:     make(map[string]time.Time),
	}
}

// Start begins polling in a goroutine.
func (w *FileWatcher) Start() {
	ticker := time.NewTicker(w.Interval)
	go func() {
		defer ticker.Stop()
		w.Poll()
		for {
			select {
			case <-ticker.C:
				w.Poll()
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the watcher. Safe to call more than once.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Poll scans once and reports changed paths. The first call only records state.
func (w *FileWatcher) Poll() []string {
	w.mu.Lock()
	var changed []string
	for _, p := range w.Paths {
		var mt time.Time
		if fi, err := os.Stat(p); err == nil {
			mt = fi.ModTime()
		}
		last, ok := w.seen[p]
		w.seen[p] = mt
		if !w.primed || (ok && mt.Equal(last)) {
			continue
		}
		changed = append(changed, p)
	}
	w.primed = true
	w.mu.Unlock()

	if w.onChange != nil {
		for _, p := range changed {
			w.onChange(p)
		}
	}
	return changed
}
