package anim

import (
	"testing"

	"github.com/spaghettifunk/ossa/engine/scripting"
)

func newAnimationWithEvents(t *testing.T, disposals *int) *Animation {
	t.Helper()
	a := New("with_events", newEventRegistry(disposals))
	rich := buildRichAnimation(t)
	payload, err := rich.Save()
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Load(payload); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestUnload_DisposesEventInstancesOnce(t *testing.T) {
	disposals := 0
	a := newAnimationWithEvents(t, &disposals)
	if len(a.Events) != 1 || len(a.Events[0].Keyframes) != 2 {
		t.Fatalf("unexpected event layout: %+v", a.Events)
	}

	a.Unload()
	if disposals != 2 {
		t.Errorf("disposals after unload = %d, want 2", disposals)
	}
	if a.Events != nil {
		t.Error("event tracks survived unload")
	}

	// A second unload has nothing left to release.
	a.Unload()
	if disposals != 2 {
		t.Errorf("disposals after double unload = %d, want 2", disposals)
	}
}

func TestOnScriptingDispose_ThenUnloadReleasesOnce(t *testing.T) {
	disposals := 0
	a := newAnimationWithEvents(t, &disposals)

	a.OnScriptingDispose()
	if disposals != 2 {
		t.Fatalf("disposals after scripting teardown = %d, want 2", disposals)
	}
	// Track metadata survives for a later proper unload.
	if len(a.Events) != 1 {
		t.Fatalf("event tracks gone after scripting teardown")
	}
	if a.Events[0].Keyframes[0].Instance != nil {
		t.Error("instance pointer survived scripting teardown")
	}

	a.Unload()
	if disposals != 2 {
		t.Errorf("disposals after unload = %d, want 2 (no double release)", disposals)
	}
}

func TestScriptingReloadRegistration_SingleBinding(t *testing.T) {
	disposals := 0
	base := scripting.ScriptsReloadStart.Count()
	a := newAnimationWithEvents(t, &disposals)

	// Two constructed instances, one registration.
	if got := scripting.ScriptsReloadStart.Count(); got != base+1 {
		t.Errorf("reload bindings after load = %d, want %d", got, base+1)
	}

	// Reloading the same payload must not stack a second binding.
	payload, err := a.Save()
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Load(payload); err != nil {
		t.Fatal(err)
	}
	if got := scripting.ScriptsReloadStart.Count(); got != base+1 {
		t.Errorf("reload bindings after re-load = %d, want %d", got, base+1)
	}

	a.Unload()
	if got := scripting.ScriptsReloadStart.Count(); got != base {
		t.Errorf("reload bindings after unload = %d, want %d", got, base)
	}
}

func TestLoad_ReplacingDataDisposesOldInstances(t *testing.T) {
	disposals := 0
	a := newAnimationWithEvents(t, &disposals)

	payload, err := a.Save()
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Load(payload); err != nil {
		t.Fatal(err)
	}
	// The first load's two instances were released when the second load
	// replaced them.
	if disposals != 2 {
		t.Errorf("disposals after re-load = %d, want 2", disposals)
	}

	a.Unload()
	if disposals != 4 {
		t.Errorf("disposals after unload = %d, want 4", disposals)
	}
}
