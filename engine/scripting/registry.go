package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/spaghettifunk/ossa/engine/core"
)

// ScriptsReloadStart fires when a recompiled script has been installed in the
// registry. Holders of script-constructed instances bind to it once and
// re-point their instances from the handler; an instance left unrebound keeps
// running the bytecode it was constructed with.
var ScriptsReloadStart core.Signal

// Object is a registry-constructed scripting instance. State capture and
// apply round-trip through a self-describing JSON payload; Dispose releases
// the instance and is safe to call more than once.
type Object interface {
	TypeName() string
	CaptureState() ([]byte, error)
	ApplyState(data []byte) error
	Dispose()
}

// TypeHandle identifies a resolved type inside a Registry.
type TypeHandle struct {
	name  string
	entry *typeEntry
}

func (h TypeHandle) Name() string {
	return h.name
}

type typeEntry struct {
	name            string
	constructNative func() Object
	program         *scriptProgram
}

type scriptProgram struct {
	path     string
	compiled *tengo.Compiled
	defaults map[string]interface{}
}

// Registry resolves type names to constructible event types. Types come from
// two sources: Go constructors registered by the host, and tengo scripts
// loaded from a scripts directory. Script types are hot-reloadable.
type Registry struct {
	mu         sync.RWMutex
	types      map[string]*typeEntry
	scriptsDir string
}

func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*typeEntry),
	}
}

// RegisterNative registers a Go-implemented event type. Returns false when
// the name is already taken.
func (r *Registry) RegisterNative(name string, construct func() Object) bool {
	if name == "" || construct == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		core.LogError("scripting type '%s' already registered", name)
		return false
	}
	r.types[name] = &typeEntry{name: name, constructNative: construct}
	return true
}

// FindType resolves a type name. The returned handle stays valid across
// script reloads; Construct always uses the current program.
func (r *Registry) FindType(name string) (TypeHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.types[name]
	if !ok {
		return TypeHandle{}, false
	}
	return TypeHandle{name: name, entry: entry}, true
}

// Construct instantiates the type behind the handle.
func (r *Registry) Construct(h TypeHandle) (Object, error) {
	if h.entry == nil {
		return nil, fmt.Errorf("%w: empty type handle", core.ErrTypeResolution)
	}
	if h.entry.constructNative != nil {
		obj := h.entry.constructNative()
		if obj == nil {
			return nil, fmt.Errorf("%w: constructor for '%s' returned nil", core.ErrTypeResolution, h.name)
		}
		return obj, nil
	}

	r.mu.RLock()
	program := h.entry.program
	r.mu.RUnlock()
	if program == nil {
		return nil, fmt.Errorf("%w: no program for '%s'", core.ErrTypeResolution, h.name)
	}
	return newScriptEvent(h.name, program), nil
}

// Rebind re-points a script-constructed instance at the current compiled
// program for its type, preserving the instance's parameter state. Native
// instances are left alone.
func (r *Registry) Rebind(obj Object) {
	se, ok := obj.(*ScriptEvent)
	if !ok {
		return
	}
	r.mu.RLock()
	entry := r.types[se.TypeName()]
	r.mu.RUnlock()
	if entry == nil || entry.program == nil {
		core.LogWarn("no current program for script type '%s', instance keeps stale bytecode", se.TypeName())
		return
	}
	se.rebind(entry.program)
}

// LoadScripts compiles every .tengo file in dir and registers one script
// type per file, named after the file base. Recompilation of an existing
// script type replaces its program; already-constructed instances keep the
// old program until they are rebound.
func (r *Registry) LoadScripts(dir string) error {
	r.mu.Lock()
	r.scriptsDir = dir
	r.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read scripts directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isScriptFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := r.loadScript(path); err != nil {
			core.LogError("failed to load script '%s': %v", path, err)
		}
	}
	return nil
}

func (r *Registry) loadScript(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	program, err := compileEventScript(path, source)
	if err != nil {
		return err
	}

	name := scriptTypeName(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, exists := r.types[name]
	if exists {
		if entry.constructNative != nil {
			return fmt.Errorf("script type '%s' collides with a native type", name)
		}
		entry.program = program
		return nil
	}
	r.types[name] = &typeEntry{name: name, program: program}
	return nil
}

func scriptTypeName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func isScriptFile(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".tengo"
}

// Script lifecycle phases are dispatched through a trailer appended to every
// event script, the compiled program is then run with the phase globals set.
const eventDispatchScript = `
if __phase == "fire" {
	on_anim_event(__params, __time, __duration)
}
`

func compileEventScript(path string, source []byte) (*scriptProgram, error) {
	src := string(source) + "\n" + eventDispatchScript
	script := tengo.NewScript([]byte(src))
	_ = script.Add("__phase", "")
	_ = script.Add("__params", map[string]interface{}{})
	_ = script.Add("__time", 0.0)
	_ = script.Add("__duration", 0.0)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, err
	}

	program := &scriptProgram{path: path, compiled: compiled}

	// Resolve optional parameter defaults from the script global `defaults`.
	probe := compiled.Clone()
	if err := probe.Run(); err != nil {
		return nil, err
	}
	if probe.IsDefined("defaults") {
		if m, ok := probe.Get("defaults").Value().(map[string]interface{}); ok {
			program.defaults = m
		}
	}
	return program, nil
}
