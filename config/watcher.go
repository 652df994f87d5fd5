package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/event"
	"github.com/lixenwraith/helios/parameter"
)

// Watcher emits a reload event for each registered file once a burst of
// writes settles. Parent directories are watched rather than the files
// themselves so editors that replace-on-save stay visible.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events *event.Queue
	files  map[string]struct{} // cleaned absolute paths

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

// NewWatcher registers paths for reload watching. Empty paths are
// skipped; at least one real path is required.
func NewWatcher(events *event.Queue, paths ...string) (*Watcher, error) {
	w := &Watcher{
		events:   events,
		files:    make(map[string]struct{}, len(paths)),
		stopChan: make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("config: watch %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	if len(w.files) == 0 {
		return nil, fmt.Errorf("config: nothing to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("config: watch %s: %w", dir, err)
		}
	}
	w.fsw = fsw
	return w, nil
}

// Start launches the watch loop.
func (w *Watcher) Start() {
	if w.running.CompareAndSwap(false, true) {
		w.wg.Add(1)
		core.Go(w.loop)
	}
}

// Stop halts the loop. No reload event is emitted after Stop returns.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.running.CompareAndSwap(true, false) {
			close(w.stopChan)
			w.fsw.Close()
			w.wg.Wait()
		}
	})
}

func (w *Watcher) IsRunning() bool {
	return w.running.Load()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	pending := make(map[string]struct{})
	var settle *time.Timer
	var settleC <-chan time.Time
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-w.stopChan:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			pending[filepath.Clean(ev.Name)] = struct{}{}
			if settle == nil {
				settle = time.NewTimer(parameter.WatchDebounce)
				settleC = settle.C
			} else {
				if !settle.Stop() {
					select {
					case <-settle.C:
					default:
					}
				}
				settle.Reset(parameter.WatchDebounce)
			}

		case <-settleC:
			for path := range pending {
				delete(pending, path)
				w.events.Emit(event.TypeConfigReloaded, &event.ConfigPayload{Path: path})
			}
			settle = nil
			settleC = nil

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// relevant keeps write and create on registered files. Create covers
// editors that write a temp file and rename it over the target.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
		return false
	}
	_, ok := w.files[filepath.Clean(ev.Name)]
	return ok
}
