// Package watcher reports debounced file changes under a directory tree.
package watcher

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// IgnoreChecker decides which absolute paths are neither watched nor
// reported.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
}

// Watcher watches a directory tree recursively. Directories created after
// the watcher starts are added as they appear.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	ignore    IgnoreChecker
	rootDir   string
	logger    *slog.Logger
	done      chan struct{}
}

// NewWatcher registers every non-ignored directory under rootDir. A
// non-positive debounce uses DefaultDebounce.
func NewWatcher(rootDir string, ignore IgnoreChecker, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(debounce),
		ignore:    ignore,
		rootDir:   rootDir,
		logger:    logger,
		done:      make(chan struct{}),
	}
	if err := w.addTree(rootDir, false); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and its non-ignored subdirectories. With report set,
// files already inside are emitted as created: they may have been written
// before the watch on dir was in place.
func (w *Watcher) addTree(dir string, report bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if report {
				w.emit(path, OpCreate)
			}
			return nil
		}
		if path != w.rootDir && w.ignore.ShouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Events returns the channel that receives debounced batches. It is closed
// once the watcher stops.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Start runs the event loop until Close. Call it in a goroutine.
func (w *Watcher) Start() {
	defer close(w.done)
	defer w.debouncer.Close()
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) && isDir(path) {
		if w.ignore.ShouldIgnoreDir(path) {
			return
		}
		if err := w.addTree(path, true); err != nil {
			w.logger.Warn("failed to watch new directory", "path", path, "error", err)
		}
		return
	}

	op, ok := translateOp(event.Op)
	if !ok {
		return
	}
	w.emit(path, op)
}

func (w *Watcher) emit(path string, op EventOp) {
	if w.ignore.ShouldIgnore(path) {
		return
	}
	relPath, err := filepath.Rel(w.rootDir, path)
	if err != nil {
		relPath = path
	}
	w.debouncer.Add(DebouncedEvent{Path: path, RelativePath: filepath.ToSlash(relPath), Op: op})
}

// translateOp maps an fsnotify op to the reported one. Chmod-only events
// are dropped.
func translateOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpWrite, true
	case op.Has(fsnotify.Remove):
		return OpRemove, true
	case op.Has(fsnotify.Rename):
		return OpRename, true
	}
	return 0, false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Close stops the watcher. Events is closed once the event loop exits.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

// Done is closed when Start returns.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
