package anim

import (
	"github.com/spaghettifunk/ossa/engine/scripting"
)

// EventKeyframe is a timestamped event on a track. Time is in frame units,
// Duration in seconds. Instance is owned exclusively by the keyframe: it is
// constructed from TypeName through the scripting registry at load time and
// released exactly once when the owning animation unloads or the scripting
// layer tears down. Instance is nil when the type failed to resolve.
type EventKeyframe struct {
	Time     float32
	Duration float32
	TypeName string
	Instance scripting.Object
}

// EventTrack is a named, time-ordered list of event keyframes.
type EventTrack struct {
	Name      string
	Keyframes []EventKeyframe
}

// disposeEventInstances releases every owned instance in the given tracks.
// Instances are nil-ed out so a second pass is a no-op.
func disposeEventInstances(tracks []EventTrack) {
	for i := range tracks {
		for j := range tracks[i].Keyframes {
			if inst := tracks[i].Keyframes[j].Instance; inst != nil {
				inst.Dispose()
				tracks[i].Keyframes[j].Instance = nil
			}
		}
	}
}
