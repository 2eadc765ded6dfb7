package driver

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"cdef/internal/trace"
)

// DefaultDebounce is how long Wait keeps collecting changes after the first one.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports changes to a set of tracked files. Directories are watched
// instead of the files themselves so editors that save by rename are seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	dirs     map[string]struct{}
	files    map[string]struct{}
}

// NewWatcher creates a watcher; debounce <= 0 means DefaultDebounce.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fs:       fw,
		debounce: debounce,
		dirs:     make(map[string]struct{}),
		files:    make(map[string]struct{}),
	}, nil
}

// Track replaces the tracked file set with paths. Directories that are no
// longer needed keep being watched; their events are ignored.
func (w *Watcher) Track(paths ...string) error {
	files := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = struct{}{}
	}
	w.files = files
	return nil
}

// Wait blocks until a tracked file changes, then keeps collecting changes
// until the debounce window passes quietly. It returns the changed paths
// sorted, or ctx.Err() when ctx is done first.
func (w *Watcher) Wait(ctx context.Context) ([]string, error) {
	changed := make(map[string]struct{})
	var quiet <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil, errors.New("driver: watcher closed")
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Clean(ev.Name)
			if _, tracked := w.files[name]; !tracked {
				continue
			}
			trace.Point(trace.FromContext(ctx), trace.ScopeDriver, "change", name+" "+ev.Op.String(), trace.SpanID(ctx))
			changed[name] = struct{}{}
			quiet = time.After(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil, errors.New("driver: watcher closed")
			}
			trace.Error(trace.FromContext(ctx), trace.ScopeDriver, "watch", err, trace.SpanID(ctx))
		case <-quiet:
			out := make([]string, 0, len(changed))
			for p := range changed {
				out = append(out, p)
			}
			slices.Sort(out)
			return out, nil
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
