package anim

import (
	"fmt"

	"github.com/spaghettifunk/ossa/engine/core"
	"github.com/spaghettifunk/ossa/engine/math"
	"github.com/spaghettifunk/ossa/engine/streams"
)

// Editor timeline exchange format: a flat list of typed tracks linked to
// their parents by integer index rather than nesting. Distinct from the
// runtime asset format; keyframe times travel in seconds here and are
// converted to/from frame units at this boundary.
const (
	timelineVersion    int32 = 4
	timelineVersionMin int32 = 3 // deprecated, still readable

	trackTypeChannel     byte = 17
	trackTypeChannelData byte = 18
	trackTypeEvent       byte = 19

	curveKindPosition byte = 0
	curveKindRotation byte = 1
	curveKindScale    byte = 2

	timelineNameSalt      uint16 = 13
	timelineEventTypeSalt byte   = 13
)

// Track colors carry no runtime meaning; export writes opaque white.
var colorWhite = [4]byte{255, 255, 255, 255}

// ExportTimeline serializes the animation into the editor timeline format.
// The animation must be loaded.
func (a *Animation) ExportTimeline() ([]byte, error) {
	if !a.IsLoaded() {
		return nil, fmt.Errorf("%w: exporting timeline of unloaded animation '%s'", core.ErrPreconditionViolation, a.Name)
	}

	a.Locker.Lock()
	defer a.Locker.Unlock()

	s := streams.NewMemoryWriteStream(4096)

	// Version.
	s.WriteInt32(timelineVersion)

	// Meta.
	fps := float32(a.Data.FramesPerSecond)
	fpsInv := 1.0 / fps
	s.WriteFloat(fps)
	s.WriteInt32(int32(a.Data.Duration))
	tracksCount := len(a.Data.Channels) + len(a.Events)
	for i := range a.Data.Channels {
		tracksCount += a.Data.Channels[i].curveTracksCount()
	}
	s.WriteInt32(int32(tracksCount))

	// Tracks.
	trackIndex := int32(0)
	for i := range a.Data.Channels {
		channel := &a.Data.Channels[i]

		// Animation channel track.
		writeTrackHeader(s, trackTypeChannel, -1, int32(channel.curveTracksCount()), channel.NodeName)
		parentIndex := trackIndex
		trackIndex++

		if !channel.Position.IsEmpty() {
			writeTrackHeader(s, trackTypeChannelData, parentIndex, 0, fmt.Sprintf("Track_%d_Position", i))
			s.WriteUint8(curveKindPosition)
			s.WriteInt32(int32(channel.Position.Count()))
			for _, k := range channel.Position.Keyframes() {
				s.WriteFloat(k.Time * fpsInv)
				writeVec3(s, k.Value)
			}
			trackIndex++
		}
		if !channel.Rotation.IsEmpty() {
			writeTrackHeader(s, trackTypeChannelData, parentIndex, 0, fmt.Sprintf("Track_%d_Rotation", i))
			s.WriteUint8(curveKindRotation)
			s.WriteInt32(int32(channel.Rotation.Count()))
			for _, k := range channel.Rotation.Keyframes() {
				s.WriteFloat(k.Time * fpsInv)
				writeQuaternion(s, k.Value)
			}
			trackIndex++
		}
		if !channel.Scale.IsEmpty() {
			writeTrackHeader(s, trackTypeChannelData, parentIndex, 0, fmt.Sprintf("Track_%d_Scale", i))
			s.WriteUint8(curveKindScale)
			s.WriteInt32(int32(channel.Scale.Count()))
			for _, k := range channel.Scale.Keyframes() {
				s.WriteFloat(k.Time * fpsInv)
				writeVec3(s, k.Value)
			}
			trackIndex++
		}
	}
	for i := range a.Events {
		track := &a.Events[i]
		writeTrackHeader(s, trackTypeEvent, -1, 0, track.Name)
		s.WriteInt32(int32(len(track.Keyframes)))
		for j := range track.Keyframes {
			k := &track.Keyframes[j]
			s.WriteFloat(k.Time)
			s.WriteFloat(k.Duration)
			s.WriteStringAnsi(k.TypeName, timelineEventTypeSalt)
			s.WriteBytes(a.captureEventState(k))
		}
		trackIndex++
	}

	return s.Bytes(), nil
}

func (n *NodeAnimationData) curveTracksCount() int {
	count := 0
	if !n.Position.IsEmpty() {
		count++
	}
	if !n.Rotation.IsEmpty() {
		count++
	}
	if !n.Scale.IsEmpty() {
		count++
	}
	return count
}

func writeTrackHeader(s *streams.MemoryWriteStream, trackType byte, parentIndex, childrenCount int32, name string) {
	s.WriteUint8(trackType)
	s.WriteUint8(0) // track flags
	s.WriteInt32(parentIndex)
	s.WriteInt32(childrenCount)
	s.WriteString(name, timelineNameSalt)
	for _, c := range colorWhite {
		s.WriteUint8(c)
	}
}

type trackHeader struct {
	trackType     byte
	flags         byte
	parentIndex   int32
	childrenCount int32
	name          string
}

func readTrackHeader(s *streams.MemoryReadStream) (trackHeader, error) {
	var h trackHeader
	var err error
	if h.trackType, err = s.ReadUint8(); err != nil {
		return h, err
	}
	if h.flags, err = s.ReadUint8(); err != nil {
		return h, err
	}
	if h.parentIndex, err = s.ReadInt32(); err != nil {
		return h, err
	}
	if h.childrenCount, err = s.ReadInt32(); err != nil {
		return h, err
	}
	if h.name, err = s.ReadString(timelineNameSalt); err != nil {
		return h, err
	}
	for i := 0; i < 4; i++ { // track color, unused at runtime
		if _, err = s.ReadUint8(); err != nil {
			return h, err
		}
	}
	return h, nil
}

// ImportTimeline replaces the animation's channels and events from an editor
// timeline payload. It waits for an in-flight load to settle, parses the
// whole payload into a staging copy, and commits atomically: a failed import
// leaves the previous data untouched. A successful import invalidates every
// cached mapping since channel indices may have shifted.
func (a *Animation) ImportTimeline(payload []byte) error {
	if a.LastLoadFailed() {
		core.LogWarn("importing timeline into animation '%s' that failed to load", a.Name)
	} else if err := a.WaitForLoaded(); err != nil {
		core.LogError("animation '%s' loading failed, cannot import timeline", a.Name)
		return err
	}

	a.Locker.Lock()
	defer a.Locker.Unlock()

	s := streams.NewMemoryReadStream(payload)

	// Version.
	version, err := s.ReadInt32()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	if version < timelineVersionMin || version > timelineVersion {
		return fmt.Errorf("%w: unknown timeline version %d", core.ErrUnsupportedVersion, version)
	}

	// Meta.
	fps, err := s.ReadFloat()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	duration, err := s.ReadInt32()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	if float64(duration) < math.K_ZERO_TOLERANCE || float64(fps) < math.K_ZERO_TOLERANCE {
		return fmt.Errorf("%w: duration=%d fps=%f", core.ErrInvalidMetadata, duration, fps)
	}
	tracksCount, err := s.ReadInt32()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	if tracksCount < 0 {
		return fmt.Errorf("%w: malformed track count %d", core.ErrCorruptHeader, tracksCount)
	}

	// Tracks, staged and committed only on full success.
	var channels []NodeAnimationData
	var events []EventTrack
	channelTrackToChannel := make(map[int32]int32)
	for trackIndex := int32(0); trackIndex < tracksCount; trackIndex++ {
		header, err := readTrackHeader(s)
		if err != nil {
			disposeEventInstances(events)
			return fmt.Errorf("%w: track %d: %v", core.ErrCorruptHeader, trackIndex, err)
		}
		switch header.trackType {
		case trackTypeChannel:
			channelTrackToChannel[trackIndex] = int32(len(channels))
			channels = append(channels, NodeAnimationData{NodeName: header.name})

		case trackTypeChannelData:
			if err := readChannelDataTrack(s, header, channels, channelTrackToChannel, fps); err != nil {
				disposeEventInstances(events)
				return err
			}

		case trackTypeEvent:
			track, err := a.readEventTrack(s, header.name)
			if err != nil {
				disposeEventInstances(append(events, track))
				return err
			}
			events = append(events, track)

		default:
			disposeEventInstances(events)
			return fmt.Errorf("%w: unsupported track type %d", core.ErrUnsupportedVersion, header.trackType)
		}
	}

	if s.Remaining() != 0 {
		core.LogWarn("timeline payload for animation '%s' has %d trailing bytes", a.Name, s.Remaining())
	}

	// Commit. Old event instances are released, mappings recomputed on the
	// next query.
	disposeEventInstances(a.Events)
	a.Data.FramesPerSecond = float64(fps)
	a.Data.Duration = float64(duration)
	a.Data.Channels = channels
	a.Events = events
	a.clearCacheLocked()
	a.loaded = true
	a.lastLoadFailed = false
	return nil
}

func readChannelDataTrack(s *streams.MemoryReadStream, header trackHeader, channels []NodeAnimationData, channelTrackToChannel map[int32]int32, fps float32) error {
	kind, err := s.ReadUint8()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	keyframesCount, err := s.ReadInt32()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	if keyframesCount < 0 {
		return fmt.Errorf("%w: malformed keyframe count %d", core.ErrCorruptHeader, keyframesCount)
	}
	channelIndex, ok := channelTrackToChannel[header.parentIndex]
	if !ok {
		return fmt.Errorf("%w: data track '%s' parent index %d does not resolve to a channel track", core.ErrBrokenLinkage, header.name, header.parentIndex)
	}
	channel := &channels[channelIndex]

	switch kind {
	case curveKindPosition:
		keys := make([]Keyframe[math.Vec3], keyframesCount)
		for i := range keys {
			if keys[i], err = readTimelineKeyframe(s, fps, readVec3); err != nil {
				return err
			}
		}
		channel.Position.keyframes = keys
	case curveKindRotation:
		keys := make([]Keyframe[math.Quaternion], keyframesCount)
		for i := range keys {
			if keys[i], err = readTimelineKeyframe(s, fps, readQuaternion); err != nil {
				return err
			}
		}
		channel.Rotation.keyframes = keys
	case curveKindScale:
		keys := make([]Keyframe[math.Vec3], keyframesCount)
		for i := range keys {
			if keys[i], err = readTimelineKeyframe(s, fps, readVec3); err != nil {
				return err
			}
		}
		channel.Scale.keyframes = keys
	default:
		return fmt.Errorf("%w: unknown curve kind %d", core.ErrCorruptHeader, kind)
	}
	return nil
}

// readTimelineKeyframe reads one keyframe whose time is stored in seconds
// and converts it to frame units.
func readTimelineKeyframe[T any](s *streams.MemoryReadStream, fps float32, readValue func(*streams.MemoryReadStream) (T, error)) (Keyframe[T], error) {
	var k Keyframe[T]
	seconds, err := s.ReadFloat()
	if err != nil {
		return k, fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	k.Time = seconds * fps
	if k.Value, err = readValue(s); err != nil {
		return k, fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	return k, nil
}

func (a *Animation) readEventTrack(s *streams.MemoryReadStream, name string) (EventTrack, error) {
	track := EventTrack{Name: name}
	count, err := s.ReadInt32()
	if err != nil {
		return track, fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
	}
	if count < 0 {
		return track, fmt.Errorf("%w: malformed event count %d", core.ErrCorruptHeader, count)
	}
	track.Keyframes = make([]EventKeyframe, count)
	for i := range track.Keyframes {
		k := &track.Keyframes[i]
		if k.Time, err = s.ReadFloat(); err != nil {
			return track, fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		if k.Duration, err = s.ReadFloat(); err != nil {
			return track, fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		if k.TypeName, err = s.ReadStringAnsi(timelineEventTypeSalt); err != nil {
			return track, fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		state, err := s.ReadBytes()
		if err != nil {
			return track, fmt.Errorf("%w: %v", core.ErrCorruptHeader, err)
		}
		k.Instance = a.constructEventInstance(k.TypeName, state)
		if k.Instance != nil {
			a.registerForScriptingReload()
		}
	}
	return track, nil
}
