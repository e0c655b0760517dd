package freshness

import (
	"path"
	"sort"
	"sync"
	"time"

	"github.com/shihwesley/chronicler/ignore"
	"github.com/shihwesley/chronicler/merkle"
	"github.com/shihwesley/chronicler/watcher"
)

// BatchFunc receives each debounced batch of source changes.
type BatchFunc func(batch []watcher.DebouncedEvent)

// Watcher tracks which source files changed since the last Clear. Doc
// directories and ignored directories are never reported.
type Watcher struct {
	root     string
	matcher  *ignore.Matcher
	fs       *watcher.Watcher
	opts     Options
	callback BatchFunc

	mu    sync.Mutex
	stale map[string]struct{}

	startOnce sync.Once
	done      chan struct{}
}

// NewWatcher registers a recursive watch on projectPath. callback may be
// nil; it runs on the watcher's goroutine after the batch is recorded.
func NewWatcher(projectPath string, opts Options, debounce time.Duration, callback BatchFunc) (*Watcher, error) {
	opts = opts.withDefaults()
	root, err := merkle.ResolveRoot(projectPath)
	if err != nil {
		return nil, err
	}
	matcher := opts.BuildOptions(root).Matcher(root)
	fsWatcher, err := watcher.NewWatcher(root, matcher, debounce, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     root,
		matcher:  matcher,
		fs:       fsWatcher,
		opts:     opts,
		callback: callback,
		stale:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Root is the resolved project directory being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Start begins watching. Calling it more than once has no effect.
func (w *Watcher) Start() {
	w.startOnce.Do(func() {
		go w.fs.Start()
		go w.consume()
		w.opts.Logger.Info("watching for changes", "root", w.root)
	})
}

// Stop ends the watch and waits for the pending callback, if any.
func (w *Watcher) Stop() error {
	// A watcher that never started has no consumer to close done.
	w.startOnce.Do(func() { close(w.done) })
	err := w.fs.Close()
	<-w.done
	w.opts.Logger.Info("stopped watching", "root", w.root)
	return err
}

func (w *Watcher) consume() {
	defer close(w.done)
	for batch := range w.fs.Events() {
		for _, event := range batch {
			if ignore.IsRuleFile(path.Base(event.RelativePath)) {
				w.matcher.Reload()
				w.opts.Logger.Info("reloaded ignore rules", "trigger", event.RelativePath)
			}
		}
		w.mu.Lock()
		for _, event := range batch {
			w.stale[event.RelativePath] = struct{}{}
		}
		w.mu.Unlock()
		w.opts.Logger.Debug("sources changed", "count", len(batch))
		if w.callback != nil {
			w.callback(batch)
		}
	}
}

// StalePaths returns the sorted root-relative paths changed since the last
// Clear.
func (w *Watcher) StalePaths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.stale))
	for p := range w.stale {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clear forgets every recorded change.
func (w *Watcher) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.stale)
}
