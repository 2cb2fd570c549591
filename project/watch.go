package project

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"
)

// Watcher reports changes to source files below a directory. Bursts of
// events are collapsed into one callback.
type Watcher struct {
	root      string
	extension string
	debounce  time.Duration
	watcher   *fsnotify.Watcher
	log       commonlog.Logger
}

// NewWatcher starts watching every directory below root. Call Run to
// receive changes and Close when done.
func NewWatcher(root, ext string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		root:      root,
		extension: ext,
		debounce:  100 * time.Millisecond,
		watcher:   fw,
		log:       commonlog.GetLogger("rapidc.watch"),
	}
	if err := w.watchDir(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	return w, nil
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run calls onChange with the sorted paths of changed source files until
// ctx is done or the watcher is closed. onChange runs on the caller's
// goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if err := w.watchNew(event.Name); err != nil {
					w.log.Warningf("watch %s: %s", event.Name, err)
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, w.extension) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)
			w.log.Debugf("change detected: %s", strings.Join(paths, ", "))
			onChange(paths)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Errorf("watcher error: %s", err)
		}
	}
}

// watchNew adds a directory created after the watch started.
func (w *Watcher) watchNew(path string) error {
	if ok, err := isDir(path); err != nil || !ok {
		return nil
	}
	return w.watchDir(path)
}

func (w *Watcher) watchDir(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
