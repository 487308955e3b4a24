package anim

import (
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/ossa/engine/assets"
)

func TestLoader_SaveAndLoadFile(t *testing.T) {
	a := buildRichAnimation(t)
	path := filepath.Join(t.TempDir(), "walk.oanim")
	if err := SaveToFile(a, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loader := &Loader{Registry: newEventRegistry(nil)}
	asset, err := loader.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	b := asset.(*Animation)
	if b.Name != "walk" {
		t.Errorf("name = %q, want walk", b.Name)
	}
	if len(b.Data.Channels) != 2 || len(b.Events) != 1 {
		t.Errorf("loaded %d channels, %d event tracks", len(b.Data.Channels), len(b.Events))
	}

	if err := loader.Unload(b); err != nil {
		t.Fatal(err)
	}
	if b.IsLoaded() {
		t.Error("animation still loaded after unload")
	}
}

func TestLoader_RejectsWrongContainerType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.oanim")
	file := assets.NewAssetFile("Ossa.Texture")
	if err := file.SetChunk(0, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := file.Write(path); err != nil {
		t.Fatal(err)
	}

	loader := &Loader{}
	if _, err := loader.Load(path); err == nil {
		t.Error("wrong container type accepted")
	}
}

func TestLoader_RejectsMissingChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.oanim")
	file := assets.NewAssetFile(AssetTypeName)
	if err := file.Write(path); err != nil {
		t.Fatal(err)
	}

	loader := &Loader{}
	if _, err := loader.Load(path); err == nil {
		t.Error("container without an animation chunk accepted")
	}
}

func TestLoader_ReloadRefreshesAnimation(t *testing.T) {
	a := buildRichAnimation(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "walk.oanim")
	if err := SaveToFile(a, path); err != nil {
		t.Fatal(err)
	}

	loader := &Loader{Registry: newEventRegistry(nil)}
	asset, err := loader.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	b := asset.(*Animation)

	// Rewrite the file with fewer channels, then reload in place.
	a.Data.Channels = a.Data.Channels[:1]
	if err := SaveToFile(a, path); err != nil {
		t.Fatal(err)
	}
	if err := loader.Reload(b, path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(b.Data.Channels) != 1 {
		t.Errorf("channels after reload = %d, want 1", len(b.Data.Channels))
	}
}
