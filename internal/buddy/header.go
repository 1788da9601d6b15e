package buddy

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

const (
	fileMagic   int32        = 1
	headerMagic types.FourCC = "Bud1"

	// headerSize is the size of the header following the file magic
	headerSize = 32
	// prefixSize covers the file magic and the header
	prefixSize = 4 + headerSize
)

// header locates the bookkeeping block
type header struct {
	rootOffset  uint32
	rootSize    uint32
	rootOffset2 uint32
	reserved    [16]byte
}

func readHeader(data []byte) (header, error) {
	var h header
	r := types.NewBinaryReader(data, binary.BigEndian)
	magic, err := r.ReadInt32()
	if err != nil {
		return h, fmt.Errorf("failed to read file magic: %w", err)
	}
	if magic != fileMagic {
		return h, fmt.Errorf("%w: file magic %d, expected %d", types.ErrFormat, magic, fileMagic)
	}
	code, err := r.ReadFourCC()
	if err != nil {
		return h, fmt.Errorf("failed to read header magic: %w", err)
	}
	if code != headerMagic {
		return h, fmt.Errorf("%w: header magic %s, expected %s", types.ErrFormat, code, headerMagic)
	}
	if h.rootOffset, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.rootSize, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.rootOffset2, err = r.ReadUint32(); err != nil {
		return h, err
	}
	reserved, err := r.ReadBytes(16)
	if err != nil {
		return h, err
	}
	copy(h.reserved[:], reserved)

	if h.rootOffset != h.rootOffset2 {
		return h, fmt.Errorf("%w: root block offsets disagree (%d != %d)", types.ErrFormat, h.rootOffset, h.rootOffset2)
	}
	return h, nil
}

// bytes encodes the header without the file magic
func (h header) bytes() []byte {
	buf := make([]byte, headerSize)
	w := types.NewBinaryWriter(buf, binary.BigEndian)
	_ = w.WriteFourCC(headerMagic)
	_ = w.WriteUint32(h.rootOffset)
	_ = w.WriteUint32(h.rootSize)
	_ = w.WriteUint32(h.rootOffset2)
	_ = w.WriteBytes(h.reserved[:])
	return buf
}
