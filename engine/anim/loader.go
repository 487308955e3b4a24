package anim

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/ossa/engine/assets"
	"github.com/spaghettifunk/ossa/engine/core"
	"github.com/spaghettifunk/ossa/engine/scripting"
)

// AssetTypeName tags animation asset containers.
const AssetTypeName = "Ossa.Animation"

// AnimationExtension is the on-disk extension for animation assets.
const AnimationExtension = ".oanim"

// The animation payload lives in chunk 0; other chunks are reserved.
const dataChunkIndex = 0

// Loader loads animation assets from chunked containers. Registered with the
// asset manager so animation files participate in hot reload.
type Loader struct {
	Registry *scripting.Registry
}

func (l *Loader) Extensions() []string {
	return []string{AnimationExtension}
}

func (l *Loader) Load(path string) (interface{}, error) {
	name := strings.TrimSuffix(filepath.Base(path), AnimationExtension)
	animation := New(name, l.Registry)
	if err := l.loadInto(animation, path); err != nil {
		return nil, err
	}
	return animation, nil
}

// Reload re-reads the asset into the existing animation object. Cached
// mappings and event instances of the previous load are released first by
// the load path itself.
func (l *Loader) Reload(asset interface{}, path string) error {
	animation, ok := asset.(*Animation)
	if !ok {
		return fmt.Errorf("asset at '%s' is not an animation", path)
	}
	animation.ClearCache()
	return l.loadInto(animation, path)
}

func (l *Loader) Unload(asset interface{}) error {
	animation, ok := asset.(*Animation)
	if !ok {
		return fmt.Errorf("asset is not an animation")
	}
	animation.Unload()
	return nil
}

func (l *Loader) loadInto(animation *Animation, path string) error {
	file, err := assets.ReadAssetFile(path)
	if err != nil {
		return err
	}
	if file.TypeName != AssetTypeName {
		return fmt.Errorf("asset at '%s' has type '%s', want '%s'", path, file.TypeName, AssetTypeName)
	}
	payload := file.Chunk(dataChunkIndex)
	if payload == nil {
		return fmt.Errorf("%w: asset at '%s' has no animation chunk", core.ErrMissingData, path)
	}
	return animation.Load(payload)
}

// SaveToFile serializes the animation into a chunked container at path.
func SaveToFile(animation *Animation, path string) error {
	payload, err := animation.Save()
	if err != nil {
		return err
	}
	file := assets.NewAssetFile(AssetTypeName)
	if err := file.SetChunk(dataChunkIndex, payload); err != nil {
		return err
	}
	if err := file.Write(path); err != nil {
		core.LogError("cannot save animation '%s' to '%s': %v", animation.Name, path, err)
		return err
	}
	return nil
}
