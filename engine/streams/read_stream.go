package streams

import (
	"encoding/binary"
	"fmt"
	m "math"
	"unicode/utf16"
)

// Sane upper bound for any length prefix read from an asset payload. Guards
// against allocating gigabytes from a corrupted length field.
const maxLengthPrefix = 1 << 27

// MemoryReadStream reads little-endian values from an in-memory payload,
// mirroring MemoryWriteStream.
type MemoryReadStream struct {
	data []byte
	pos  int
}

func NewMemoryReadStream(data []byte) *MemoryReadStream {
	return &MemoryReadStream{data: data}
}

// Position returns the current read offset.
func (s *MemoryReadStream) Position() int {
	return s.pos
}

// Length returns the total payload size.
func (s *MemoryReadStream) Length() int {
	return len(s.data)
}

// Remaining returns the number of unread bytes.
func (s *MemoryReadStream) Remaining() int {
	return len(s.data) - s.pos
}

func (s *MemoryReadStream) require(n int) error {
	if s.pos+n > len(s.data) {
		return fmt.Errorf("read of %d bytes at offset %d exceeds payload length %d", n, s.pos, len(s.data))
	}
	return nil
}

func (s *MemoryReadStream) ReadUint8() (byte, error) {
	if err := s.require(1); err != nil {
		return 0, err
	}
	v := s.data[s.pos]
	s.pos++
	return v, nil
}

func (s *MemoryReadStream) ReadBool() (bool, error) {
	v, err := s.ReadUint8()
	return v != 0, err
}

func (s *MemoryReadStream) ReadUint16() (uint16, error) {
	if err := s.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

func (s *MemoryReadStream) ReadInt32() (int32, error) {
	if err := s.require(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(s.data[s.pos:]))
	s.pos += 4
	return v, nil
}

func (s *MemoryReadStream) ReadUint32() (uint32, error) {
	if err := s.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

func (s *MemoryReadStream) ReadFloat() (float32, error) {
	if err := s.require(4); err != nil {
		return 0, err
	}
	v := m.Float32frombits(binary.LittleEndian.Uint32(s.data[s.pos:]))
	s.pos += 4
	return v, nil
}

func (s *MemoryReadStream) ReadDouble() (float64, error) {
	if err := s.require(8); err != nil {
		return 0, err
	}
	v := m.Float64frombits(binary.LittleEndian.Uint64(s.data[s.pos:]))
	s.pos += 8
	return v, nil
}

// PeekInt32 reads the next int32 without advancing the stream. Used by the
// animation codec to sniff the header version before committing to a layout.
func (s *MemoryReadStream) PeekInt32() (int32, error) {
	if err := s.require(4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(s.data[s.pos:])), nil
}

// ReadString reads a length-prefixed UTF-16 string written with the same salt.
func (s *MemoryReadStream) ReadString(salt uint16) (string, error) {
	length, err := s.ReadInt32()
	if err != nil {
		return "", err
	}
	if length < 0 || length > maxLengthPrefix {
		return "", fmt.Errorf("malformed string length %d", length)
	}
	if err := s.require(int(length) * 2); err != nil {
		return "", err
	}
	units := make([]uint16, length)
	for i := range units {
		u, _ := s.ReadUint16()
		units[i] = u ^ salt
	}
	return string(utf16.Decode(units)), nil
}

// ReadStringAnsi reads a length-prefixed single-byte string written with the
// same salt.
func (s *MemoryReadStream) ReadStringAnsi(salt byte) (string, error) {
	length, err := s.ReadInt32()
	if err != nil {
		return "", err
	}
	if length < 0 || length > maxLengthPrefix {
		return "", fmt.Errorf("malformed string length %d", length)
	}
	if err := s.require(int(length)); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = s.data[s.pos+i] ^ salt
	}
	s.pos += int(length)
	return string(buf), nil
}

// ReadBytes reads a length-prefixed raw blob. The returned slice is a copy.
func (s *MemoryReadStream) ReadBytes() ([]byte, error) {
	length, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	if length < 0 || length > maxLengthPrefix {
		return nil, fmt.Errorf("malformed blob length %d", length)
	}
	if err := s.require(int(length)); err != nil {
		return nil, err
	}
	blob := make([]byte, length)
	copy(blob, s.data[s.pos:])
	s.pos += int(length)
	return blob, nil
}
