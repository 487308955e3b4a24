package skeleton

import (
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/ossa/engine/core"
)

// SkeletonNode is a single bone in a skeleton hierarchy.
type SkeletonNode struct {
	Name        string
	ParentIndex int32
}

// Skeleton is the node hierarchy of a skinned model. Node order is
// authoritative: consumers that resolve nodes by name take the first
// occurrence in this order.
type Skeleton struct {
	Nodes []SkeletonNode
}

// SkinnedModel is a loadable skeleton asset. Consumers that cache data keyed
// by a model (such as animation mapping caches) bind to OnUnloaded and
// OnReloading and must drop their entries synchronously when either fires.
// The model never keeps references to its subscribers alive.
type SkinnedModel struct {
	ID   uuid.UUID
	Name string

	// OnUnloaded fires when the model's skeleton data is released.
	OnUnloaded core.Signal
	// OnReloading fires just before the skeleton data is replaced. Node
	// order may differ after the reload completes.
	OnReloading core.Signal

	mu       sync.Mutex
	loaded   bool
	skeleton Skeleton
}

func NewSkinnedModel(name string) *SkinnedModel {
	return &SkinnedModel{
		ID:   uuid.New(),
		Name: name,
	}
}

// Load installs the skeleton and marks the model loaded.
func (sm *SkinnedModel) Load(skeleton Skeleton) {
	sm.mu.Lock()
	sm.skeleton = skeleton
	sm.loaded = true
	sm.mu.Unlock()
}

// IsLoaded reports whether the model currently holds skeleton data.
func (sm *SkinnedModel) IsLoaded() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.loaded
}

// Skeleton returns the current skeleton. The returned value shares the node
// slice; callers must not mutate it.
func (sm *SkinnedModel) Skeleton() Skeleton {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.skeleton
}

// Unload releases the skeleton data. Subscribers are notified before the
// data is dropped; by the time Unload returns every handler has run.
func (sm *SkinnedModel) Unload() {
	sm.mu.Lock()
	if !sm.loaded {
		sm.mu.Unlock()
		return
	}
	sm.loaded = false
	sm.mu.Unlock()

	sm.OnUnloaded.Emit(sm)

	sm.mu.Lock()
	sm.skeleton = Skeleton{}
	sm.mu.Unlock()
}

// Reload replaces the skeleton data in place. OnReloading fires before the
// swap so stale caches are gone by the time the new node order is visible.
func (sm *SkinnedModel) Reload(skeleton Skeleton) {
	sm.OnReloading.Emit(sm)

	sm.mu.Lock()
	sm.skeleton = skeleton
	sm.loaded = true
	sm.mu.Unlock()
}
