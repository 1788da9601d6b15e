package codecs

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

const iconLocationSize = 16

// iconLocationCodec stores an icon centre as x, y and eight bytes that
// Finder always writes as FF FF FF FF FF FF 00 00
type iconLocationCodec struct{}

func (iconLocationCodec) Decode(blob types.Blob) (any, error) {
	if len(blob) < 8 {
		return nil, fmt.Errorf("%w: icon location of %d bytes", types.ErrFormat, len(blob))
	}
	r := types.NewBinaryReader(blob, binary.BigEndian)
	x, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	y, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	return types.IntPoint{X: x, Y: y}, nil
}

func (iconLocationCodec) Encode(value any) (types.Blob, error) {
	var p types.IntPoint
	switch v := value.(type) {
	case types.IntPoint:
		p = v
	case *types.IntPoint:
		p = *v
	default:
		return nil, unexpectedValue("types.IntPoint", value)
	}

	w := types.NewBinaryWriter(make([]byte, iconLocationSize), binary.BigEndian)
	for _, v := range []uint32{uint32(p.X), uint32(p.Y), 0xFFFFFFFF, 0xFFFF0000} {
		if err := w.WriteUint32(v); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}
