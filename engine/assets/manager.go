package assets

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/ossa/engine/containers"
	"github.com/spaghettifunk/ossa/engine/core"
)

const reloadDebounce = 100 * time.Millisecond
const maxPendingReloads = 64

// Loader loads, reloads and unloads one asset type, selected by extension.
type Loader interface {
	Extensions() []string
	Load(path string) (interface{}, error)
	Reload(asset interface{}, path string) error
	Unload(asset interface{}) error
}

type assetEntry struct {
	asset      interface{}
	loader     Loader
	lastLoaded time.Time
}

// Manager owns loaded assets and watches their files on disk. A write to a
// loaded asset's file triggers the loader's Reload on the watch goroutine;
// loaders fire their asset's reload notifications from there, so cache
// invalidation happens before the new data is visible.
type Manager struct {
	mutex   sync.RWMutex
	assets  map[string]*assetEntry
	loaders map[string]Loader

	fsnotify *fsnotify.Watcher
	pending  *containers.RingQueue[string]
	done     chan struct{}
	isClosed bool
}

func NewManager() (*Manager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Manager{
		assets:   make(map[string]*assetEntry),
		loaders:  make(map[string]Loader),
		fsnotify: fsWatch,
		pending:  containers.NewRingQueue[string](maxPendingReloads),
		done:     make(chan struct{}),
	}, nil
}

// Initialize starts the watch loop and begins watching the assets directory.
func (m *Manager) Initialize(assetsDir string) error {
	m.mutex.Lock()
	closed := m.isClosed
	m.mutex.Unlock()
	if closed {
		return errors.New("asset manager already closed")
	}
	go m.start()
	return m.fsnotify.Add(assetsDir)
}

// RegisterLoader registers a loader for every extension it declares.
func (m *Manager) RegisterLoader(loader Loader) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, ext := range loader.Extensions() {
		ext = strings.ToLower(ext)
		if _, exists := m.loaders[ext]; exists {
			core.LogError("loader for extension '%s' already registered", ext)
			continue
		}
		m.loaders[ext] = loader
	}
}

// Load loads the asset at path with the loader registered for its extension
// and tracks it for hot reload. Loading an already-loaded path returns the
// tracked asset.
func (m *Manager) Load(path string) (interface{}, error) {
	m.mutex.RLock()
	if entry, ok := m.assets[path]; ok {
		m.mutex.RUnlock()
		return entry.asset, nil
	}
	loader, ok := m.loaders[strings.ToLower(filepath.Ext(path))]
	m.mutex.RUnlock()
	if !ok {
		return nil, errors.New("no loader registered for " + filepath.Ext(path))
	}

	asset, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	m.assets[path] = &assetEntry{asset: asset, loader: loader, lastLoaded: time.Now()}
	m.mutex.Unlock()
	return asset, nil
}

// Unload releases the asset at path.
func (m *Manager) Unload(path string) error {
	m.mutex.Lock()
	entry, ok := m.assets[path]
	delete(m.assets, path)
	m.mutex.Unlock()
	if !ok {
		return nil
	}
	return entry.loader.Unload(entry.asset)
}

// Close stops the watch loop and unloads everything.
func (m *Manager) Close() error {
	m.mutex.Lock()
	if m.isClosed {
		m.mutex.Unlock()
		return nil
	}
	m.isClosed = true
	m.mutex.Unlock()

	close(m.done)
	err := m.fsnotify.Close()

	m.mutex.Lock()
	entries := make([]*assetEntry, 0, len(m.assets))
	for _, e := range m.assets {
		entries = append(entries, e)
	}
	m.assets = make(map[string]*assetEntry)
	m.mutex.Unlock()

	for _, e := range entries {
		if uerr := e.loader.Unload(e.asset); uerr != nil {
			core.LogError("unload failed: %v", uerr)
		}
	}
	return err
}

func (m *Manager) start() {
	for {
		select {
		case event, ok := <-m.fsnotify.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			m.enqueueReload(event.Name)
			m.drainReloads()
		case err, ok := <-m.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher error: %v", err)
		case <-m.done:
			return
		}
	}
}

func (m *Manager) enqueueReload(path string) {
	m.mutex.RLock()
	entry, tracked := m.assets[path]
	m.mutex.RUnlock()
	if !tracked {
		return
	}
	if time.Since(entry.lastLoaded) < reloadDebounce {
		return
	}
	if err := m.pending.Enqueue(path); err != nil {
		core.LogWarn("reload queue full, dropping reload of '%s'", path)
	}
}

func (m *Manager) drainReloads() {
	for !m.pending.IsEmpty() {
		path, err := m.pending.Dequeue()
		if err != nil {
			return
		}
		m.reload(path)
	}
}

func (m *Manager) reload(path string) {
	m.mutex.RLock()
	entry, ok := m.assets[path]
	m.mutex.RUnlock()
	if !ok {
		return
	}

	core.LogInfo("reloading asset '%s'", path)
	if err := entry.loader.Reload(entry.asset, path); err != nil {
		core.LogError("failed to reload asset '%s': %v", path, err)
		return
	}

	m.mutex.Lock()
	entry.lastLoaded = time.Now()
	m.mutex.Unlock()
}
