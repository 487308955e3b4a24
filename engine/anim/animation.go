package anim

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/ossa/engine/core"
	"github.com/spaghettifunk/ossa/engine/scripting"
	"github.com/spaghettifunk/ossa/engine/skeleton"
)

// NodeToChannel maps a target skeleton's node index to the matching channel
// index in AnimationData.Channels, -1 for unmatched nodes.
type NodeToChannel []int32

// Animation is a keyframed animation asset for a skinned skeleton. One mutex
// (Locker) guards all of its curve, event and mapping state; the mapping
// cache is keyed by skeleton object identity and invalidated through the
// model's unload/reload signals.
type Animation struct {
	ID   uuid.UUID
	Name string

	// Locker guards Data, Events and the mapping cache. Exported so
	// playback code can batch queries under one acquisition.
	Locker sync.Mutex

	Data   AnimationData
	Events []EventTrack

	registry *scripting.Registry

	mappingCache                 map[*skeleton.SkinnedModel]NodeToChannel
	registeredForScriptingReload bool

	loaded         bool
	lastLoadFailed bool
	loadDone       chan struct{}
}

// New creates an empty, unloaded animation. The registry resolves event
// types at load time; it may be nil for animations without event tracks.
func New(name string, registry *scripting.Registry) *Animation {
	return &Animation{
		ID:           uuid.New(),
		Name:         name,
		registry:     registry,
		mappingCache: make(map[*skeleton.SkinnedModel]NodeToChannel),
	}
}

// IsLoaded reports whether the last load attempt succeeded and the data is
// usable.
func (a *Animation) IsLoaded() bool {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	return a.loaded
}

// LastLoadFailed reports whether the most recent load attempt failed.
func (a *Animation) LastLoadFailed() bool {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	return a.lastLoadFailed
}

// WaitForLoaded blocks until any in-flight load settles. Returns
// ErrLoadFailed when the load attempt did not succeed.
func (a *Animation) WaitForLoaded() error {
	a.Locker.Lock()
	done := a.loadDone
	a.Locker.Unlock()
	if done != nil {
		<-done
	}

	a.Locker.Lock()
	defer a.Locker.Unlock()
	if !a.loaded {
		return fmt.Errorf("%w: animation '%s'", core.ErrLoadFailed, a.Name)
	}
	return nil
}

// GetInfo returns a summary of the animation's contents. Memory accounting
// is an estimate based on element sizes, matching what the channels and
// cache actually retain.
func (a *Animation) GetInfo() InfoData {
	const (
		vec3KeySize = 4 + 12
		quatKeySize = 4 + 16
		channelSize = 64
	)

	a.Locker.Lock()
	defer a.Locker.Unlock()

	var info InfoData
	if a.loaded {
		info.Length = a.Data.GetLength()
		info.FramesCount = int32(a.Data.Duration)
		info.ChannelsCount = int32(len(a.Data.Channels))
		info.KeyframesCount = int32(a.Data.GetKeyframesCount())
		info.MemoryUsage = len(a.Data.Channels) * channelSize
		for i := range a.Data.Channels {
			c := &a.Data.Channels[i]
			info.MemoryUsage += len(c.NodeName) * 2
			info.MemoryUsage += c.Position.Count() * vec3KeySize
			info.MemoryUsage += c.Rotation.Count() * quatKeySize
			info.MemoryUsage += c.Scale.Count() * vec3KeySize
		}
	}
	for _, mapping := range a.mappingCache {
		info.MemoryUsage += len(mapping) * 4
	}
	return info
}

// GetMapping returns the node-index to channel-index mapping for the given
// skinned model, building and caching it on first query. Precondition: both
// the animation and the model are loaded; violating it is a programmer
// error and returns ErrPreconditionViolation.
func (a *Animation) GetMapping(model *skeleton.SkinnedModel) (NodeToChannel, error) {
	if model == nil || !model.IsLoaded() || !a.IsLoaded() {
		core.LogError("GetMapping called before both animation '%s' and skeleton are loaded", a.Name)
		return nil, core.ErrPreconditionViolation
	}

	a.Locker.Lock()
	defer a.Locker.Unlock()

	// Try quick lookup.
	if mapping, ok := a.mappingCache[model]; ok {
		return mapping, nil
	}

	clock := core.NewClock()
	clock.Start()

	model.OnUnloaded.Bind(a, a.onSkinnedModelUnloaded)
	model.OnReloading.Bind(a, a.onSkinnedModelUnloaded)

	// Initialize the mapping: every node starts unmatched, then each channel
	// claims the first node whose name matches. First occurrence in skeleton
	// node order wins for duplicate names.
	nodes := model.Skeleton().Nodes
	mapping := make(NodeToChannel, len(nodes))
	for i := range mapping {
		mapping[i] = -1
	}
	for channelIndex := range a.Data.Channels {
		nodeName := a.Data.Channels[channelIndex].NodeName
		for nodeIndex := range nodes {
			if nodes[nodeIndex].Name == nodeName {
				mapping[nodeIndex] = int32(channelIndex)
				break
			}
		}
	}
	a.mappingCache[model] = mapping

	clock.Update()
	core.LogDebug("built mapping for animation '%s' onto model '%s' (%d nodes, %d channels) in %.3fms",
		a.Name, model.Name, len(nodes), len(a.Data.Channels), clock.ElapsedMS())

	return mapping, nil
}

// ClearCache drops every cached mapping and unbinds the model subscriptions
// that back them. Safe to call repeatedly.
func (a *Animation) ClearCache() {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	a.clearCacheLocked()
}

func (a *Animation) clearCacheLocked() {
	for model := range a.mappingCache {
		model.OnUnloaded.Unbind(a)
		model.OnReloading.Unbind(a)
	}
	a.mappingCache = make(map[*skeleton.SkinnedModel]NodeToChannel)
}

// onSkinnedModelUnloaded drops the cache entry for a model that is unloading
// or about to reload. By the time this returns no stale mapping or
// subscription remains, which the signal's synchronous Emit guarantees to
// the model's unload path.
func (a *Animation) onSkinnedModelUnloaded(sender interface{}) {
	model, ok := sender.(*skeleton.SkinnedModel)
	if !ok {
		return
	}

	a.Locker.Lock()
	defer a.Locker.Unlock()

	if _, ok := a.mappingCache[model]; !ok {
		return
	}
	model.OnUnloaded.Unbind(a)
	model.OnReloading.Unbind(a)
	delete(a.mappingCache, model)
}

// onScriptsReloadStart re-points every owned event instance at the freshly
// compiled scripts so no keyframe keeps a reference into the old programs.
func (a *Animation) onScriptsReloadStart(interface{}) {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	if a.registry == nil {
		return
	}
	for i := range a.Events {
		for j := range a.Events[i].Keyframes {
			if inst := a.Events[i].Keyframes[j].Instance; inst != nil {
				a.registry.Rebind(inst)
			}
		}
	}
}

// registerForScriptingReload binds the scripts-reload handler once,
// regardless of how many event instances exist. Caller holds Locker.
func (a *Animation) registerForScriptingReload() {
	if !a.registeredForScriptingReload {
		a.registeredForScriptingReload = true
		scripting.ScriptsReloadStart.Bind(a, a.onScriptsReloadStart)
	}
}

// Load parses a runtime-format payload into the animation. A failed load
// leaves the asset unloaded and unusable; a concurrent WaitForLoaded settles
// when the attempt finishes either way.
func (a *Animation) Load(payload []byte) error {
	a.beginLoad()
	a.Locker.Lock()
	err := a.loadData(payload)
	a.Locker.Unlock()
	a.endLoad(err)
	if err != nil {
		core.LogWarn("failed to load animation '%s': %v", a.Name, err)
	}
	return err
}

func (a *Animation) beginLoad() {
	a.Locker.Lock()
	a.loaded = false
	a.loadDone = make(chan struct{})
	a.Locker.Unlock()
}

func (a *Animation) endLoad(err error) {
	a.Locker.Lock()
	a.loaded = err == nil
	a.lastLoadFailed = err != nil
	close(a.loadDone)
	a.loadDone = nil
	a.Locker.Unlock()
}

// Unload releases everything the animation owns: cached mappings with their
// subscriptions, channel data and event instances. The scripts-reload
// registration is released exactly once.
func (a *Animation) Unload() {
	a.Locker.Lock()
	defer a.Locker.Unlock()

	if a.registeredForScriptingReload {
		a.registeredForScriptingReload = false
		scripting.ScriptsReloadStart.Unbind(a)
	}
	a.clearCacheLocked()
	a.Data.Dispose()
	disposeEventInstances(a.Events)
	a.Events = nil
	a.loaded = false
}

// OnScriptingDispose releases every owned event instance. The scripting
// layer tears down before content, so instances must not outlive it; tracks
// keep their metadata and a later Unload is still safe.
func (a *Animation) OnScriptingDispose() {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	disposeEventInstances(a.Events)
}

// Save serializes the animation to a runtime-format payload. It waits for an
// in-flight load to settle first; saving an asset whose last load failed is
// allowed with a warning so a prior successful state can be re-exported.
func (a *Animation) Save() ([]byte, error) {
	if a.LastLoadFailed() {
		core.LogWarn("saving animation '%s' that failed to load", a.Name)
	} else if err := a.WaitForLoaded(); err != nil {
		core.LogError("animation '%s' loading failed, cannot save it", a.Name)
		return nil, err
	}

	a.Locker.Lock()
	defer a.Locker.Unlock()
	return a.saveData(), nil
}
