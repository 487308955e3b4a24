package anim

import (
	"github.com/spaghettifunk/ossa/engine/math"
)

// NodeAnimationData is a single animation channel: the position, rotation and
// scale curves for one skeleton node, addressed by name so the channel stays
// portable across skeleton instances with matching bone names.
type NodeAnimationData struct {
	NodeName string
	Position Curve[math.Vec3]
	Rotation Curve[math.Quaternion]
	Scale    Curve[math.Vec3]
}

// KeyframesCount returns the total keyframes across the three curves.
func (n *NodeAnimationData) KeyframesCount() int {
	return n.Position.Count() + n.Rotation.Count() + n.Scale.Count()
}

// EvaluatePosition samples the position curve at the given frame time.
func (n *NodeAnimationData) EvaluatePosition(time float32) (math.Vec3, bool) {
	return n.Position.Evaluate(time, math.Vec3Lerp)
}

// EvaluateRotation samples the rotation curve at the given frame time.
func (n *NodeAnimationData) EvaluateRotation(time float32) (math.Quaternion, bool) {
	return n.Rotation.Evaluate(time, math.QuaternionNlerp)
}

// EvaluateScale samples the scale curve at the given frame time.
func (n *NodeAnimationData) EvaluateScale(time float32) (math.Vec3, bool) {
	return n.Scale.Evaluate(time, math.Vec3Lerp)
}

// AnimationData aggregates the channels of one animation plus its timing
// metadata. Duration is in frames; curves are stored and evaluated in frame
// units, the editor timeline format converts to seconds at the boundary.
type AnimationData struct {
	Duration         float64
	FramesPerSecond  float64
	EnableRootMotion bool
	RootNodeName     string
	Channels         []NodeAnimationData
}

// GetLength returns the animation length in seconds.
func (d *AnimationData) GetLength() float32 {
	if d.FramesPerSecond == 0 {
		return 0
	}
	return float32(d.Duration / d.FramesPerSecond)
}

// GetKeyframesCount returns the total keyframes across all channels.
func (d *AnimationData) GetKeyframesCount() int {
	count := 0
	for i := range d.Channels {
		count += d.Channels[i].KeyframesCount()
	}
	return count
}

// Dispose releases the channel data.
func (d *AnimationData) Dispose() {
	d.Duration = 0
	d.FramesPerSecond = 0
	d.EnableRootMotion = false
	d.RootNodeName = ""
	d.Channels = nil
}

// InfoData is a summary of an animation's contents and rough memory cost.
type InfoData struct {
	Length         float32
	FramesCount    int32
	ChannelsCount  int32
	KeyframesCount int32
	MemoryUsage    int
}
