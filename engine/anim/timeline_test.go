package anim

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/ossa/engine/core"
	"github.com/spaghettifunk/ossa/engine/streams"
)

func writeTestTrackHeader(s *streams.MemoryWriteStream, trackType byte, parentIndex, childrenCount int32, name string) {
	s.WriteUint8(trackType)
	s.WriteUint8(0)
	s.WriteInt32(parentIndex)
	s.WriteInt32(childrenCount)
	s.WriteString(name, 13)
	for i := 0; i < 4; i++ {
		s.WriteUint8(255)
	}
}

func TestTimeline_ExportImportRoundTrip(t *testing.T) {
	a := buildRichAnimation(t)
	payload, err := a.ExportTimeline()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	b := newLoadedAnimation(t)
	b.registry = newEventRegistry(nil)
	if err := b.ImportTimeline(payload); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if b.Data.Duration != 120 || b.Data.FramesPerSecond != 30 {
		t.Errorf("metadata = (%f, %f), want (120, 30)", b.Data.Duration, b.Data.FramesPerSecond)
	}
	if len(b.Data.Channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(b.Data.Channels))
	}
	arm := &b.Data.Channels[0]
	if arm.NodeName != "arm_l" {
		t.Errorf("channel 0 name = %q, want arm_l", arm.NodeName)
	}
	// Times travel as seconds in the timeline; with fps 30 and frame times
	// that divide evenly the round trip is exact.
	keys := arm.Position.Keyframes()
	if len(keys) != 2 || keys[0].Time != 0 || keys[1].Time != 60 {
		t.Errorf("arm position keys = %+v", keys)
	}
	if keys[1].Value != newVec3(0.5, 1.25, -0.5) {
		t.Errorf("arm position key 1 value = %+v", keys[1].Value)
	}
	rot := arm.Rotation.Keyframes()
	if len(rot) != 2 || rot[1].Time != 120 || rot[1].Value != quat(0.707, 0, 0, 0.707) {
		t.Errorf("arm rotation keys = %+v", rot)
	}
	if arm.Scale.Count() != 1 {
		t.Errorf("arm scale keys = %d, want 1", arm.Scale.Count())
	}
	if b.Data.Channels[1].NodeName != "hand_l" {
		t.Errorf("channel 1 name = %q, want hand_l", b.Data.Channels[1].NodeName)
	}

	if len(b.Events) != 1 {
		t.Fatalf("event tracks = %d, want 1", len(b.Events))
	}
	track := b.Events[0]
	if track.Name != "Footsteps" || len(track.Keyframes) != 2 {
		t.Fatalf("track = %q with %d keyframes", track.Name, len(track.Keyframes))
	}
	// Event times stay in frame units through the timeline format.
	k := track.Keyframes[0]
	if k.Time != 15 || k.Duration != 0.2 || k.TypeName != "SoundEvent" {
		t.Errorf("event keyframe 0 = %+v", k)
	}
	if k.Instance == nil {
		t.Fatal("event keyframe 0 has no instance")
	}
	sound := k.Instance.(*soundEvent)
	if sound.Clip != "footstep" || sound.Volume != 0.75 {
		t.Errorf("event state = (%q, %f), want (footstep, 0.75)", sound.Clip, sound.Volume)
	}
}

func TestTimeline_RoundTripWithinFloatTolerance(t *testing.T) {
	// 7/24 and 35/24 are inexact in float32, so the seconds conversion on
	// export and the frames conversion on import must stay within tolerance
	// instead of relying on an even division.
	a := New("limp", nil)
	a.Data.Duration = 48
	a.Data.FramesPerSecond = 24
	channel := NodeAnimationData{NodeName: "hip"}
	frameTimes := []float32{7, 35}
	for _, ft := range frameTimes {
		if err := channel.Position.Add(ft, newVec3(ft, 0, 0)); err != nil {
			t.Fatal(err)
		}
	}
	a.Data.Channels = []NodeAnimationData{channel}
	a.loaded = true

	payload, err := a.ExportTimeline()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	b := newLoadedAnimation(t)
	if err := b.ImportTimeline(payload); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	keys := b.Data.Channels[0].Position.Keyframes()
	if len(keys) != len(frameTimes) {
		t.Fatalf("keyframes = %d, want %d", len(keys), len(frameTimes))
	}
	const eps = 1e-3
	for i, want := range frameTimes {
		diff := keys[i].Time - want
		if diff < 0 {
			diff = -diff
		}
		if diff > eps {
			t.Errorf("keyframe %d time = %f, want %f within %g", i, keys[i].Time, want, eps)
		}
	}
}

func TestImportTimeline_DataTrackWithoutChannelParent(t *testing.T) {
	s := streams.NewMemoryWriteStream(256)
	s.WriteInt32(4)      // version
	s.WriteFloat(30)     // fps
	s.WriteInt32(60)     // duration
	s.WriteInt32(1)      // tracks
	writeTestTrackHeader(s, 18, 0, 0, "Track_0_Position")
	s.WriteUint8(0) // position kind
	s.WriteInt32(0)

	a := newLoadedAnimation(t)
	err := a.ImportTimeline(s.Bytes())
	if !errors.Is(err, core.ErrBrokenLinkage) {
		t.Fatalf("err = %v, want ErrBrokenLinkage", err)
	}
}

func TestImportTimeline_UnsupportedVersion(t *testing.T) {
	for _, version := range []int32{0, 2, 5} {
		s := streams.NewMemoryWriteStream(64)
		s.WriteInt32(version)
		s.WriteFloat(30)
		s.WriteInt32(60)
		s.WriteInt32(0)

		a := newLoadedAnimation(t)
		err := a.ImportTimeline(s.Bytes())
		if !errors.Is(err, core.ErrUnsupportedVersion) {
			t.Errorf("version %d: err = %v, want ErrUnsupportedVersion", version, err)
		}
	}
}

func TestImportTimeline_Version3StillReadable(t *testing.T) {
	s := streams.NewMemoryWriteStream(128)
	s.WriteInt32(3)
	s.WriteFloat(24)
	s.WriteInt32(48)
	s.WriteInt32(1)
	writeTestTrackHeader(s, 17, -1, 0, "spine")

	a := newLoadedAnimation(t)
	if err := a.ImportTimeline(s.Bytes()); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if a.Data.FramesPerSecond != 24 || a.Data.Duration != 48 {
		t.Errorf("metadata = (%f, %f), want (24, 48)", a.Data.FramesPerSecond, a.Data.Duration)
	}
	if len(a.Data.Channels) != 1 || a.Data.Channels[0].NodeName != "spine" {
		t.Errorf("channels = %+v", a.Data.Channels)
	}
}

func TestImportTimeline_UnknownTrackType(t *testing.T) {
	s := streams.NewMemoryWriteStream(128)
	s.WriteInt32(4)
	s.WriteFloat(30)
	s.WriteInt32(60)
	s.WriteInt32(1)
	writeTestTrackHeader(s, 42, -1, 0, "mystery")

	a := newLoadedAnimation(t)
	err := a.ImportTimeline(s.Bytes())
	if !errors.Is(err, core.ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestImportTimeline_ZeroDurationRejected(t *testing.T) {
	s := streams.NewMemoryWriteStream(64)
	s.WriteInt32(4)
	s.WriteFloat(30)
	s.WriteInt32(0) // duration
	s.WriteInt32(0)

	a := newLoadedAnimation(t)
	err := a.ImportTimeline(s.Bytes())
	if !errors.Is(err, core.ErrInvalidMetadata) {
		t.Fatalf("err = %v, want ErrInvalidMetadata", err)
	}
}

func TestImportTimeline_FailurePreservesExistingData(t *testing.T) {
	disposals := 0
	a := New("keeper", newEventRegistry(&disposals))
	rich := buildRichAnimation(t)
	payload, err := rich.Save()
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Load(payload); err != nil {
		t.Fatal(err)
	}

	s := streams.NewMemoryWriteStream(64)
	s.WriteInt32(4)
	s.WriteFloat(30)
	s.WriteInt32(60)
	s.WriteInt32(3) // claims tracks the payload does not contain

	if err := a.ImportTimeline(s.Bytes()); err == nil {
		t.Fatal("expected import failure")
	}
	if len(a.Data.Channels) != 2 || len(a.Events) != 1 {
		t.Errorf("failed import mutated data: %d channels, %d event tracks", len(a.Data.Channels), len(a.Events))
	}
	if a.Events[0].Keyframes[0].Instance == nil {
		t.Error("failed import disposed a retained event instance")
	}
	if disposals != 0 {
		t.Errorf("disposals = %d, want 0", disposals)
	}
	if !a.IsLoaded() {
		t.Error("failed import unloaded the animation")
	}
}

func TestImportTimeline_InvalidatesMappingCache(t *testing.T) {
	a := newLoadedAnimation(t, "arm")
	model := newTestModel(t, "root", "arm")
	before, err := a.GetMapping(model)
	if err != nil {
		t.Fatal(err)
	}
	if before[1] != 0 {
		t.Fatalf("mapping[1] = %d, want 0", before[1])
	}

	// Channel order in the new timeline puts "arm" second.
	s := streams.NewMemoryWriteStream(256)
	s.WriteInt32(4)
	s.WriteFloat(30)
	s.WriteInt32(60)
	s.WriteInt32(2)
	writeTestTrackHeader(s, 17, -1, 0, "root")
	writeTestTrackHeader(s, 17, -1, 0, "arm")
	if err := a.ImportTimeline(s.Bytes()); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	after, err := a.GetMapping(model)
	if err != nil {
		t.Fatal(err)
	}
	if after[0] != 0 || after[1] != 1 {
		t.Errorf("mapping after import = %v, want [0 1]", after)
	}
}

func TestExportTimeline_RequiresLoadedAnimation(t *testing.T) {
	a := New("unloaded", nil)
	if _, err := a.ExportTimeline(); !errors.Is(err, core.ErrPreconditionViolation) {
		t.Fatalf("err = %v, want ErrPreconditionViolation", err)
	}
}
