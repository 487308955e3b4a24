package skeleton

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/ossa/engine/core"
)

// RigLoader loads yaml rig definitions into SkinnedModel assets. Reload
// replaces the skeleton in place so bound mapping caches invalidate through
// OnReloading before the new node order becomes visible.
type RigLoader struct{}

func (l *RigLoader) Extensions() []string {
	return []string{".rig", ".yaml", ".yml"}
}

func (l *RigLoader) Load(path string) (interface{}, error) {
	rig, err := l.parse(path)
	if err != nil {
		return nil, err
	}
	name := rig.Name
	if name == "" {
		name = filepath.Base(path)
	}
	model := NewSkinnedModel(name)
	model.Load(rig.Skeleton())
	return model, nil
}

func (l *RigLoader) Reload(asset interface{}, path string) error {
	model, ok := asset.(*SkinnedModel)
	if !ok {
		return fmt.Errorf("asset at '%s' is not a skinned model", path)
	}
	rig, err := l.parse(path)
	if err != nil {
		return err
	}
	model.Reload(rig.Skeleton())
	core.LogDebug("skinned model '%s' reloaded with %d nodes", model.Name, len(rig.Nodes))
	return nil
}

func (l *RigLoader) Unload(asset interface{}) error {
	model, ok := asset.(*SkinnedModel)
	if !ok {
		return fmt.Errorf("asset is not a skinned model")
	}
	model.Unload()
	return nil
}

func (l *RigLoader) parse(path string) (*RigDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRig(data)
}
