package editor

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a workspace tree for editor activity. Change events wake
// the driver's poll early; the status-file poll stays authoritative, so a
// lost event costs latency, never correctness.
type Watcher struct {
	fsw     *fsnotify.Watcher
	root    string
	Changes <-chan string
	done    chan struct{}
}

// NewWatcher watches the workspace directory and its subdirectories.
// Directories created while watching are added as they appear. Activity
// under the queue directory is ignored so the system's own writes don't
// count as editor progress.
func NewWatcher(workspace string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	changes := make(chan string, 64)
	w := &Watcher{
		fsw:     fsw,
		root:    workspace,
		Changes: changes,
		done:    make(chan struct{}),
	}

	if err := w.addTree(workspace); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop(changes)
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree is skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		switch part {
		case ".forgeflow", ".git", "node_modules":
			return true
		}
	}
	return false
}

func (w *Watcher) loop(changes chan<- string) {
	defer close(changes)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				// New directories join the watch set.
				w.addTree(ev.Name)
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Rename) {
				select {
				case changes <- ev.Name:
				default: // a full buffer still wakes the poll
				}
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close stops watching. The Changes channel is closed once the internal
// loop drains.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
