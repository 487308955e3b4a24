package assets

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/ossa/engine/streams"
)

/** @brief A magic number indicating the file as an ossa binary asset file. */
const FileMagic uint32 = 0xda55ad01

/** @brief The container layout version, independent of any payload format. */
const ContainerVersion byte = 1

// MaxChunks bounds the per-asset chunk table.
const MaxChunks = 16

// AssetFile is a chunked binary container. Chunk allocation and file layout
// live here; what a chunk's payload means is entirely up to the asset type
// that owns it.
type AssetFile struct {
	TypeName string
	chunks   [MaxChunks][]byte
}

func NewAssetFile(typeName string) *AssetFile {
	return &AssetFile{TypeName: typeName}
}

// Chunk returns the payload at the given index, or nil when absent.
func (f *AssetFile) Chunk(index int) []byte {
	if index < 0 || index >= MaxChunks {
		return nil
	}
	return f.chunks[index]
}

// SetChunk stores a payload at the given index.
func (f *AssetFile) SetChunk(index int, data []byte) error {
	if index < 0 || index >= MaxChunks {
		return fmt.Errorf("chunk index %d out of range", index)
	}
	f.chunks[index] = data
	return nil
}

// Write serializes the container to path.
func (f *AssetFile) Write(path string) error {
	s := streams.NewMemoryWriteStream(4096)
	s.WriteUint32(FileMagic)
	s.WriteUint8(ContainerVersion)
	s.WriteStringAnsi(f.TypeName, 0)

	count := 0
	for i := 0; i < MaxChunks; i++ {
		if f.chunks[i] != nil {
			count = i + 1
		}
	}
	s.WriteUint8(byte(count))
	for i := 0; i < count; i++ {
		s.WriteBytes(f.chunks[i])
	}
	return os.WriteFile(path, s.Bytes(), 0o644)
}

// ReadAssetFile loads a chunked container from path.
func ReadAssetFile(path string) (*AssetFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseAssetFile(data)
}

// ParseAssetFile decodes a chunked container from memory.
func ParseAssetFile(data []byte) (*AssetFile, error) {
	s := streams.NewMemoryReadStream(data)
	magic, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("truncated asset file: %w", err)
	}
	if magic != FileMagic {
		return nil, fmt.Errorf("bad asset file magic 0x%08x", magic)
	}
	version, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != ContainerVersion {
		return nil, fmt.Errorf("unsupported asset container version %d", version)
	}
	typeName, err := s.ReadStringAnsi(0)
	if err != nil {
		return nil, err
	}
	count, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	if int(count) > MaxChunks {
		return nil, fmt.Errorf("asset file declares %d chunks, limit is %d", count, MaxChunks)
	}

	f := NewAssetFile(typeName)
	for i := 0; i < int(count); i++ {
		chunk, err := s.ReadBytes()
		if err != nil {
			return nil, fmt.Errorf("truncated chunk %d: %w", i, err)
		}
		f.chunks[i] = chunk
	}
	return f, nil
}
