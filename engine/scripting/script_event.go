package scripting

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/d5/tengo/v2"
)

// ScriptEvent is an event instance backed by a compiled tengo program. The
// program is shared per type; each instance owns a clone so per-instance
// globals never leak between keyframes. Params is the instance's serializable
// state; compiled bytecode is transient and rebuilt on reload, never stored.
type ScriptEvent struct {
	typeName string

	mu       sync.Mutex
	compiled *tengo.Compiled
	params   map[string]interface{}
	disposed bool
}

func newScriptEvent(typeName string, program *scriptProgram) *ScriptEvent {
	params := make(map[string]interface{}, len(program.defaults))
	for k, v := range program.defaults {
		params[k] = v
	}
	return &ScriptEvent{
		typeName: typeName,
		compiled: program.compiled.Clone(),
		params:   params,
	}
}

func (e *ScriptEvent) TypeName() string {
	return e.typeName
}

// Params returns a copy of the instance's parameter state.
func (e *ScriptEvent) Params() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]interface{}, len(e.params))
	for k, v := range e.params {
		out[k] = v
	}
	return out
}

// SetParam sets a single parameter value.
func (e *ScriptEvent) SetParam(key string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.params == nil {
		e.params = make(map[string]interface{})
	}
	e.params[key] = value
}

// CaptureState serializes the parameter state to JSON.
func (e *ScriptEvent) CaptureState() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil, fmt.Errorf("script event '%s' already disposed", e.typeName)
	}
	return json.Marshal(e.params)
}

// ApplyState replaces the parameter state from a JSON payload.
func (e *ScriptEvent) ApplyState(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return fmt.Errorf("script event '%s' already disposed", e.typeName)
	}
	if len(data) == 0 {
		return nil
	}
	params := make(map[string]interface{})
	if err := json.Unmarshal(data, &params); err != nil {
		return err
	}
	e.params = params
	return nil
}

// Invoke runs the script's on_anim_event hook with the current parameters.
func (e *ScriptEvent) Invoke(time, duration float32) error {
	e.mu.Lock()
	compiled := e.compiled
	params := e.params
	e.mu.Unlock()
	if compiled == nil {
		return fmt.Errorf("script event '%s' has no program", e.typeName)
	}
	if err := compiled.Set("__phase", "fire"); err != nil {
		return err
	}
	if err := compiled.Set("__params", params); err != nil {
		return err
	}
	if err := compiled.Set("__time", float64(time)); err != nil {
		return err
	}
	if err := compiled.Set("__duration", float64(duration)); err != nil {
		return err
	}
	return compiled.Run()
}

// Dispose releases the compiled program. Safe to call more than once; every
// other method fails cleanly afterwards instead of touching freed state.
func (e *ScriptEvent) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = nil
	e.params = nil
	e.disposed = true
}

func (e *ScriptEvent) rebind(program *scriptProgram) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.compiled = program.compiled.Clone()
}
