package streams

import (
	"encoding/binary"
	m "math"
	"unicode/utf16"
)

// MemoryWriteStream is an append-only little-endian byte stream used to build
// binary asset payloads in memory before handing them to the asset container.
type MemoryWriteStream struct {
	data []byte
}

func NewMemoryWriteStream(capacity int) *MemoryWriteStream {
	return &MemoryWriteStream{
		data: make([]byte, 0, capacity),
	}
}

// Bytes returns the written payload. The slice aliases the stream's buffer.
func (s *MemoryWriteStream) Bytes() []byte {
	return s.data
}

// Position returns the number of bytes written so far.
func (s *MemoryWriteStream) Position() int {
	return len(s.data)
}

func (s *MemoryWriteStream) WriteUint8(v byte) {
	s.data = append(s.data, v)
}

func (s *MemoryWriteStream) WriteBool(v bool) {
	if v {
		s.data = append(s.data, 1)
	} else {
		s.data = append(s.data, 0)
	}
}

func (s *MemoryWriteStream) WriteUint16(v uint16) {
	s.data = binary.LittleEndian.AppendUint16(s.data, v)
}

func (s *MemoryWriteStream) WriteInt32(v int32) {
	s.data = binary.LittleEndian.AppendUint32(s.data, uint32(v))
}

func (s *MemoryWriteStream) WriteUint32(v uint32) {
	s.data = binary.LittleEndian.AppendUint32(s.data, v)
}

func (s *MemoryWriteStream) WriteFloat(v float32) {
	s.data = binary.LittleEndian.AppendUint32(s.data, m.Float32bits(v))
}

func (s *MemoryWriteStream) WriteDouble(v float64) {
	s.data = binary.LittleEndian.AppendUint64(s.data, m.Float64bits(v))
}

// WriteString writes a length-prefixed UTF-16 string with every code unit
// XOR-ed against the given salt. The salt obfuscates names in shipped assets;
// reading with a mismatched salt produces garbage, not a crash.
func (s *MemoryWriteStream) WriteString(text string, salt uint16) {
	units := utf16.Encode([]rune(text))
	s.WriteInt32(int32(len(units)))
	for _, u := range units {
		s.WriteUint16(u ^ salt)
	}
}

// WriteStringAnsi writes a length-prefixed single-byte string with every byte
// XOR-ed against the given salt.
func (s *MemoryWriteStream) WriteStringAnsi(text string, salt byte) {
	s.WriteInt32(int32(len(text)))
	for i := 0; i < len(text); i++ {
		s.WriteUint8(text[i] ^ salt)
	}
}

// WriteBytes writes a length-prefixed raw blob.
func (s *MemoryWriteStream) WriteBytes(blob []byte) {
	s.WriteInt32(int32(len(blob)))
	s.data = append(s.data, blob...)
}
