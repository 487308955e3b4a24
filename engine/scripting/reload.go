package scripting

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/ossa/engine/core"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher recompiles scripts when their files change on disk. Each change
// swaps in the freshly compiled program and then fires ScriptsReloadStart so
// instance holders re-point their references at it.
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	closeCh  chan struct{}
	once     sync.Once
}

// Watch starts watching the registry's scripts directory.
func (r *Registry) Watch(dir string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatch.Add(dir); err != nil {
		_ = fsWatch.Close()
		return nil, err
	}

	w := &Watcher{
		registry: r,
		watcher:  fsWatch,
		closeCh:  make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isScriptFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < reloadDebounce {
				continue
			}
			last[event.Name] = now
			w.reload(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("script watcher error: %v", err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) reload(path string) {
	core.LogInfo("reloading script '%s'", path)

	if err := w.registry.loadScript(path); err != nil {
		core.LogError("failed to reload script '%s': %v", path, err)
		return
	}

	// Holders re-point instances now that the new program is installed.
	ScriptsReloadStart.Emit(w.registry)
}
