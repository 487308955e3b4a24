package anim

import (
	"encoding/json"
	"testing"

	"github.com/spaghettifunk/ossa/engine/math"
	"github.com/spaghettifunk/ossa/engine/scripting"
)

func newVec3(x, y, z float32) math.Vec3 {
	return math.NewVec3(x, y, z)
}

func newQuatIdentity() math.Quaternion {
	return math.NewQuatIdentity()
}

func quat(x, y, z, w float32) math.Quaternion {
	return math.Quaternion{X: x, Y: y, Z: z, W: w}
}

func mustFindType(t *testing.T, registry *scripting.Registry, name string) scripting.TypeHandle {
	t.Helper()
	handle, ok := registry.FindType(name)
	if !ok {
		t.Fatalf("type %q not registered", name)
	}
	return handle
}

// soundEvent is a native event type used by the codec and lifecycle tests.
// Dispose bookkeeping is observable so tests can assert single release.
type soundEvent struct {
	Clip   string  `json:"clip"`
	Volume float64 `json:"volume"`

	disposed  bool
	disposals *int
}

func (e *soundEvent) TypeName() string { return "SoundEvent" }

func (e *soundEvent) CaptureState() ([]byte, error) {
	return json.Marshal(e)
}

func (e *soundEvent) ApplyState(data []byte) error {
	return json.Unmarshal(data, e)
}

func (e *soundEvent) Dispose() {
	if e.disposed {
		if e.disposals != nil {
			*e.disposals++
		}
		return
	}
	e.disposed = true
	if e.disposals != nil {
		*e.disposals++
	}
}

func newEventRegistry(disposals *int) *scripting.Registry {
	registry := scripting.NewRegistry()
	registry.RegisterNative("SoundEvent", func() scripting.Object {
		return &soundEvent{Volume: 1.0, disposals: disposals}
	})
	return registry
}
