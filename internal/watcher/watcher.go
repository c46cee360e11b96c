// Package watcher reports debounced change batches under a directory tree.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher watches a tree and emits the set of changed paths once changes
// have been quiet for the debounce delay
type Watcher struct {
	root      string
	fsWatcher *fsnotify.Watcher

	// Debouncing
	debounceDelay time.Duration
	pending       map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	skipDir func(name string) bool
	ignored map[string]struct{}
	onError func(error)

	changes chan []string
	done    chan struct{}
	once    sync.Once
}

// Option configures the watcher
type Option func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithSkipDir sets the predicate for directories that are not watched
func WithSkipDir(fn func(name string) bool) Option {
	return func(w *Watcher) {
		w.skipDir = fn
	}
}

// WithIgnorePaths drops events on the given files, such as outputs the
// caller writes inside the watched tree
func WithIgnorePaths(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			if abs, err := filepath.Abs(p); err == nil {
				w.ignored[abs] = struct{}{}
			}
		}
	}
}

// WithOnError sets the callback for watch errors
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a Watcher over every directory under root
func New(root string, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:          root,
		fsWatcher:     fsWatcher,
		debounceDelay: 500 * time.Millisecond,
		pending:       make(map[string]struct{}),
		ignored:       make(map[string]struct{}),
		skipDir:       func(name string) bool { return strings.HasPrefix(name, ".") },
		onError:       func(err error) { logrus.Warnf("Watch error: %v", err) },
		changes:       make(chan []string, 1),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirs(root); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds the directories under dir
func (w *Watcher) addDirs(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Changes delivers one sorted batch of changed paths per quiet period.
// Batches arriving while the previous one is unread are merged.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.pendingMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.pendingMu.Unlock()
		err = w.fsWatcher.Close()
	})
	return err
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// handleEvent records a change and restarts the debounce timer
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if w.skipped(event.Name) || w.isIgnored(event.Name) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirs(event.Name); err != nil {
				w.onError(err)
			}
		}
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[event.Name] = struct{}{}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.flush)
}

// skipped reports whether path lies in a directory that is not watched
func (w *Watcher) skipped(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != "." && part != "" && w.skipDir(part) {
			return true
		}
	}
	return false
}

func (w *Watcher) isIgnored(path string) bool {
	if len(w.ignored) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	_, ok := w.ignored[abs]
	return ok
}

// flush hands the pending batch to the consumer
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make(map[string]struct{}, len(w.pending))
	for f := range w.pending {
		batch[f] = struct{}{}
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	for {
		select {
		case <-w.done:
			return
		case w.changes <- sorted(batch):
			return
		case prev := <-w.changes:
			// Consumer is behind; fold the unread batch into this one
			for _, f := range prev {
				batch[f] = struct{}{}
			}
		}
	}
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
