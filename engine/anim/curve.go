package anim

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/ossa/engine/math"
	"github.com/spaghettifunk/ossa/engine/streams"
)

// Serialization layout version for a single curve blob.
const curveSerializationVersion int32 = 1

// Keyframe is a timestamped sample on a curve. Time is in frame units.
type Keyframe[T any] struct {
	Time  float32
	Value T
}

// Curve is an ordered keyframe sequence with linear interpolation between
// neighbors. Times are non-decreasing; Add and SetKeyframes enforce it.
type Curve[T any] struct {
	keyframes []Keyframe[T]
}

// Keyframes returns the backing keyframe slice. Callers must keep times
// non-decreasing if they mutate it.
func (c *Curve[T]) Keyframes() []Keyframe[T] {
	return c.keyframes
}

// SetKeyframes replaces the whole keyframe sequence.
func (c *Curve[T]) SetKeyframes(keys []Keyframe[T]) error {
	for i := 1; i < len(keys); i++ {
		if keys[i].Time < keys[i-1].Time {
			return fmt.Errorf("keyframe %d time %f precedes keyframe %d time %f", i, keys[i].Time, i-1, keys[i-1].Time)
		}
	}
	c.keyframes = keys
	return nil
}

// Add appends a keyframe. The time must not precede the last keyframe's.
func (c *Curve[T]) Add(time float32, value T) error {
	if n := len(c.keyframes); n > 0 && time < c.keyframes[n-1].Time {
		return fmt.Errorf("keyframe time %f precedes last time %f", time, c.keyframes[n-1].Time)
	}
	c.keyframes = append(c.keyframes, Keyframe[T]{Time: time, Value: value})
	return nil
}

func (c *Curve[T]) Count() int {
	return len(c.keyframes)
}

func (c *Curve[T]) IsEmpty() bool {
	return len(c.keyframes) == 0
}

func (c *Curve[T]) Clear() {
	c.keyframes = nil
}

// Evaluate samples the curve at the given time (frame units) using the
// provided interpolator. Times outside the keyframe range clamp to the first
// or last value. The second return is false for an empty curve.
func (c *Curve[T]) Evaluate(time float32, lerp func(a, b T, t float32) T) (T, bool) {
	var zero T
	n := len(c.keyframes)
	if n == 0 {
		return zero, false
	}
	if time <= c.keyframes[0].Time {
		return c.keyframes[0].Value, true
	}
	if time >= c.keyframes[n-1].Time {
		return c.keyframes[n-1].Value, true
	}

	// First keyframe strictly after `time`.
	upper := sort.Search(n, func(i int) bool {
		return c.keyframes[i].Time > time
	})
	a := c.keyframes[upper-1]
	b := c.keyframes[upper]
	span := b.Time - a.Time
	if span <= 0 {
		return a.Value, true
	}
	t := math.Clamp((time-a.Time)/span, 0, 1)
	return lerp(a.Value, b.Value, t), true
}

func serializeCurve[T any](s *streams.MemoryWriteStream, c *Curve[T], writeValue func(*streams.MemoryWriteStream, T)) {
	s.WriteInt32(curveSerializationVersion)
	s.WriteInt32(int32(len(c.keyframes)))
	for i := range c.keyframes {
		s.WriteFloat(c.keyframes[i].Time)
		writeValue(s, c.keyframes[i].Value)
	}
}

func deserializeCurve[T any](s *streams.MemoryReadStream, c *Curve[T], readValue func(*streams.MemoryReadStream) (T, error)) error {
	version, err := s.ReadInt32()
	if err != nil {
		return err
	}
	if version != curveSerializationVersion {
		return fmt.Errorf("unknown curve serialization version %d", version)
	}
	count, err := s.ReadInt32()
	if err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("malformed curve keyframe count %d", count)
	}
	keys := make([]Keyframe[T], count)
	for i := range keys {
		if keys[i].Time, err = s.ReadFloat(); err != nil {
			return err
		}
		if keys[i].Value, err = readValue(s); err != nil {
			return err
		}
	}
	c.keyframes = keys
	return nil
}
