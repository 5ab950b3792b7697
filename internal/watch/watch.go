// Package watch triggers sort runs when media lands in the input directory.
package watch

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "mediasort/internal/log"
)

// DefaultDelay is how long the directory must stay quiet before a run.
const DefaultDelay = 2 * time.Second

// Watcher watches a directory tree and calls onChange once a burst of
// create/write/rename events has settled. fsnotify is not recursive, so
// new subdirectories are added as they appear.
type Watcher struct {
	watcher  *fsnotify.Watcher
	delay    time.Duration
	onChange func()

	mu    sync.Mutex
	dirs  map[string]struct{}
	timer *time.Timer

	done      chan struct{}
	closeOnce sync.Once
}

// New starts watching root and every non-hidden directory below it.
func New(root string, delay time.Duration, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	w := &Watcher{
		watcher:  fw,
		delay:    delay,
		onChange: onChange,
		dirs:     make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}

	go w.watch()
	return w, nil
}

// Dirs returns the number of watched directories.
func (w *Watcher) Dirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

func (w *Watcher) addTree(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish while a sort run prunes them.
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.addDir(path)
	})
}

func (w *Watcher) addDir(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[path]; ok {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		return err
	}
	w.dirs[path] = struct{}{}
	return nil
}

func (w *Watcher) watch() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			appLog.Error("watch: fsnotify error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if hidden(filepath.Base(ev.Name)) {
		return
	}

	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.mu.Lock()
		delete(w.dirs, ev.Name)
		w.mu.Unlock()
	}

	// Removals alone never need a run; pruning would retrigger otherwise.
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if err := w.addTree(ev.Name); err != nil {
			appLog.Debug("watch: could not add path", "path", ev.Name, "err", err)
		}
	}
	appLog.Debug("watch: change detected", "path", ev.Name, "op", ev.Op.String())
	w.schedule()
}

// schedule restarts the quiet-period timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		select {
		case <-w.done:
			return
		default:
		}
		if w.onChange != nil {
			w.onChange()
		}
	})
}

// Close stops watching. Pending callbacks are dropped.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
