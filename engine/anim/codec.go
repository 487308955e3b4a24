package anim

import (
	"fmt"

	"github.com/spaghettifunk/ossa/engine/core"
	"github.com/spaghettifunk/ossa/engine/math"
	"github.com/spaghettifunk/ossa/engine/scripting"
	"github.com/spaghettifunk/ossa/engine/streams"
)

// Runtime asset format versions. Version 100 introduced the tagged header,
// 101 added event tracks. Payloads whose first int32 matches neither are the
// legacy bare-double layout and never carry events.
const (
	formatVersion100     int32 = 100
	formatVersion101     int32 = 101
	currentFormatVersion       = formatVersion101
)

// String salts of the runtime format.
const (
	rootNodeNameSalt  uint16 = 13
	trackNameSalt     uint16 = 172
	eventTypeNameSalt byte   = 17
)

func writeVec3(s *streams.MemoryWriteStream, v math.Vec3) {
	s.WriteFloat(v.X)
	s.WriteFloat(v.Y)
	s.WriteFloat(v.Z)
}

func readVec3(s *streams.MemoryReadStream) (math.Vec3, error) {
	var v math.Vec3
	var err error
	if v.X, err = s.ReadFloat(); err != nil {
		return v, err
	}
	if v.Y, err = s.ReadFloat(); err != nil {
		return v, err
	}
	v.Z, err = s.ReadFloat()
	return v, err
}

func writeQuaternion(s *streams.MemoryWriteStream, q math.Quaternion) {
	s.WriteFloat(q.X)
	s.WriteFloat(q.Y)
	s.WriteFloat(q.Z)
	s.WriteFloat(q.W)
}

func readQuaternion(s *streams.MemoryReadStream) (math.Quaternion, error) {
	var q math.Quaternion
	var err error
	if q.X, err = s.ReadFloat(); err != nil {
		return q, err
	}
	if q.Y, err = s.ReadFloat(); err != nil {
		return q, err
	}
	if q.Z, err = s.ReadFloat(); err != nil {
		return q, err
	}
	q.W, err = s.ReadFloat()
	return q, err
}

// loadData parses a runtime-format payload into the animation's data model.
// Caller holds Locker. On error the previous data is already gone; the asset
// stays unloaded rather than half-filled.
func (a *Animation) loadData(payload []byte) error {
	if len(payload) == 0 {
		return core.ErrMissingData
	}
	s := streams.NewMemoryReadStream(payload)

	a.Data.Dispose()
	disposeEventInstances(a.Events)
	a.Events = nil

	// Sniff the header: a recognized version constant in the first 4 bytes
	// selects the tagged layout, anything else falls back to the legacy
	// bare-double header. The metadata tolerance check below is what rejects
	// actual garbage.
	headerVersion, err := s.PeekInt32()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	switch headerVersion {
	case formatVersion100, formatVersion101:
		if _, err = s.ReadInt32(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		if a.Data.Duration, err = s.ReadDouble(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		if a.Data.FramesPerSecond, err = s.ReadDouble(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		if a.Data.EnableRootMotion, err = s.ReadBool(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		if a.Data.RootNodeName, err = s.ReadString(rootNodeNameSalt); err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
	default:
		headerVersion = 0
		if a.Data.Duration, err = s.ReadDouble(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		if a.Data.FramesPerSecond, err = s.ReadDouble(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
	}
	if a.Data.Duration < math.K_ZERO_TOLERANCE || a.Data.FramesPerSecond < math.K_ZERO_TOLERANCE {
		return fmt.Errorf("%w: duration=%f fps=%f", core.ErrInvalidMetadata, a.Data.Duration, a.Data.FramesPerSecond)
	}

	// Animation channels.
	channelsCount, err := s.ReadInt32()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	if channelsCount < 0 {
		return fmt.Errorf("%w: malformed channel count %d", core.ErrCorruptHeader, channelsCount)
	}
	a.Data.Channels = make([]NodeAnimationData, channelsCount)
	for i := range a.Data.Channels {
		channel := &a.Data.Channels[i]
		if channel.NodeName, err = s.ReadString(trackNameSalt); err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		if err = deserializeCurve(s, &channel.Position, readVec3); err != nil {
			return fmt.Errorf("%w: channel '%s' position curve: %v", core.ErrCorruptHeader, channel.NodeName, err)
		}
		if err = deserializeCurve(s, &channel.Rotation, readQuaternion); err != nil {
			return fmt.Errorf("%w: channel '%s' rotation curve: %v", core.ErrCorruptHeader, channel.NodeName, err)
		}
		if err = deserializeCurve(s, &channel.Scale, readVec3); err != nil {
			return fmt.Errorf("%w: channel '%s' scale curve: %v", core.ErrCorruptHeader, channel.NodeName, err)
		}
	}

	// Animation events, present since version 101.
	if headerVersion >= formatVersion101 {
		if err = a.loadEventTracks(s); err != nil {
			return err
		}
	}

	if s.Remaining() != 0 {
		core.LogWarn("animation '%s' payload has %d trailing bytes", a.Name, s.Remaining())
	}
	return nil
}

func (a *Animation) loadEventTracks(s *streams.MemoryReadStream) error {
	tracksCount, err := s.ReadInt32()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	if tracksCount < 0 {
		return fmt.Errorf("%w: malformed event track count %d", core.ErrCorruptHeader, tracksCount)
	}
	a.Events = make([]EventTrack, tracksCount)
	for i := range a.Events {
		track := &a.Events[i]
		if track.Name, err = s.ReadString(trackNameSalt); err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		keyframesCount, err := s.ReadInt32()
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		if keyframesCount < 0 {
			return fmt.Errorf("%w: malformed event keyframe count %d", core.ErrCorruptHeader, keyframesCount)
		}
		track.Keyframes = make([]EventKeyframe, keyframesCount)
		for j := range track.Keyframes {
			k := &track.Keyframes[j]
			if k.Time, err = s.ReadFloat(); err != nil {
				return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
			}
			if k.Duration, err = s.ReadFloat(); err != nil {
				return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
			}
			if k.TypeName, err = s.ReadStringAnsi(eventTypeNameSalt); err != nil {
				return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
			}
			state, err := s.ReadBytes()
			if err != nil {
				return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
			}
			k.Instance = a.constructEventInstance(k.TypeName, state)
			if k.Instance != nil {
				a.registerForScriptingReload()
			}
		}
	}
	return nil
}

// constructEventInstance resolves and instantiates an event type. Failure is
// per-entry: the keyframe keeps a nil instance, the load carries on. Caller
// holds Locker.
func (a *Animation) constructEventInstance(typeName string, state []byte) scripting.Object {
	if a.registry == nil {
		core.LogError("no scripting registry, cannot spawn event of type '%s'", typeName)
		return nil
	}
	handle, ok := a.registry.FindType(typeName)
	if !ok {
		core.LogError("failed to spawn event of type '%s': %v", typeName, core.ErrTypeResolution)
		return nil
	}
	instance, err := a.registry.Construct(handle)
	if err != nil {
		core.LogError("failed to spawn event of type '%s': %v", typeName, err)
		return nil
	}
	if len(state) > 0 {
		if err := instance.ApplyState(state); err != nil {
			core.LogWarn("failed to apply state to event of type '%s': %v", typeName, err)
		}
	}
	return instance
}

// saveData serializes the data model in the current runtime format. Caller
// holds Locker.
func (a *Animation) saveData() []byte {
	s := streams.NewMemoryWriteStream(4096)

	// Info.
	s.WriteInt32(currentFormatVersion)
	s.WriteDouble(a.Data.Duration)
	s.WriteDouble(a.Data.FramesPerSecond)
	s.WriteBool(a.Data.EnableRootMotion)
	s.WriteString(a.Data.RootNodeName, rootNodeNameSalt)

	// Animation channels.
	s.WriteInt32(int32(len(a.Data.Channels)))
	for i := range a.Data.Channels {
		channel := &a.Data.Channels[i]
		s.WriteString(channel.NodeName, trackNameSalt)
		serializeCurve(s, &channel.Position, writeVec3)
		serializeCurve(s, &channel.Rotation, writeQuaternion)
		serializeCurve(s, &channel.Scale, writeVec3)
	}

	// Animation events.
	s.WriteInt32(int32(len(a.Events)))
	for i := range a.Events {
		track := &a.Events[i]
		s.WriteString(track.Name, trackNameSalt)
		s.WriteInt32(int32(len(track.Keyframes)))
		for j := range track.Keyframes {
			k := &track.Keyframes[j]
			s.WriteFloat(k.Time)
			s.WriteFloat(k.Duration)
			s.WriteStringAnsi(k.TypeName, eventTypeNameSalt)
			s.WriteBytes(a.captureEventState(k))
		}
	}
	return s.Bytes()
}

func (a *Animation) captureEventState(k *EventKeyframe) []byte {
	if k.Instance == nil {
		return nil
	}
	state, err := k.Instance.CaptureState()
	if err != nil {
		core.LogWarn("failed to capture state of event type '%s': %v", k.TypeName, err)
		return nil
	}
	return state
}
