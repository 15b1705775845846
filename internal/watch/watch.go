// Package watch reports changes to a fixed set of files.
//
// Directories are watched rather than the files themselves so that editors
// which replace a file on save are still seen. Bursts of events are
// coalesced: the callback runs once the files have been quiet for the
// debounce interval.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when New is given a non-positive interval.
const DefaultDebounce = 200 * time.Millisecond

// Func handles a batch of changed files, sorted. Its error is logged and
// does not stop the watcher.
type Func func(ctx context.Context, changed []string) error

// Watcher monitors files for changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	log      *slog.Logger
}

// New creates a watcher for paths. log may be nil.
func New(paths []string, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("watch: no files")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]struct{}, len(paths)),
		debounce: debounce,
		log:      log,
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
		log.Debug("watching directory", "dir", dir)
	}
	return w, nil
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run delivers changes to fn until ctx is cancelled or the watcher is
// closed. fn never runs concurrently with itself.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(event.Name)
			if _, ok := w.files[name]; !ok {
				continue
			}
			pending[name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("filesystem watcher error", "error", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			clear(pending)
			slices.Sort(changed)
			if err := fn(ctx, changed); err != nil {
				w.log.Error("change handler failed", "files", changed, "error", err)
			}
		}
	}
}
