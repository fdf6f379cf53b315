// Package watch re-runs an import whenever the post corpus changes on disk.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"postimport/internal/logging"
)

const DefaultDebounce = 200 * time.Millisecond

type Watcher struct {
	dir      string
	run      func(ctx context.Context) error
	debounce time.Duration
	log      logging.Logger
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(w *Watcher) { w.log = logging.OrNoOp(l) }
}

// New watches dir and every directory below it. run is invoked once per
// burst of changes.
func New(dir string, run func(ctx context.Context) error, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		run:      run,
		debounce: DefaultDebounce,
		log:      logging.NoOp(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addTree(fw, w.dir); err != nil {
		return err
	}
	w.log.Info("Watching for changes", "dir", w.dir)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	trigger := func() {
		if !debounce.Stop() {
			select {
			case <-debounce.C:
			default:
			}
		}
		debounce.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(fw, ev.Name); err != nil {
						w.log.Warn("watch directory failed", "dir", ev.Name, "error", err)
					}
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				trigger()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		case <-debounce.C:
			w.log.Info("Change detected, re-importing")
			if err := w.run(ctx); err != nil && ctx.Err() == nil {
				w.log.Error("re-import failed", "error", err)
			}
		}
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
