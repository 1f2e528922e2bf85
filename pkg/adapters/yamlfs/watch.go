package yamlfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow collapses editor save bursts (write + chmod + rename)
// into one notification.
const debounceWindow = 250 * time.Millisecond

// Watch emits the path of each YAML file that changes under the root
// until ctx is cancelled. New subdirectories are picked up as they
// appear. The channel is closed on cancellation.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addTree(w, s.root); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan string, 16)
	go s.pump(ctx, w, out)
	return out, nil
}

func (s *Source) pump(ctx context.Context, w *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer w.Close()

	pending := map[string]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						s.logger.Warn("watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !isYAML(ev.Name) || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			for path := range pending {
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}
			}
			clear(pending)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watch", "error", err)
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
