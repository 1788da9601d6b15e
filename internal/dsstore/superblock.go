package dsstore

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

const (
	// superBlockKey is the TOC entry naming the super-block
	superBlockKey = "DSDB"
	// superBlockSize is the encoded size of the super-block
	superBlockSize = 20
	// DefaultPageSize bounds the encoded size of a node
	DefaultPageSize = 4096
)

// SuperBlock describes the tree
type SuperBlock struct {
	RootBlock   int `json:"root_block" yaml:"root_block"`
	LevelCount  int `json:"level_count" yaml:"level_count"`
	RecordCount int `json:"record_count" yaml:"record_count"`
	NodeCount   int `json:"node_count" yaml:"node_count"`
	PageSize    int `json:"page_size" yaml:"page_size"`
}

func decodeSuperBlock(data []byte) (SuperBlock, error) {
	var sb SuperBlock
	r := types.NewBinaryReader(data, binary.BigEndian)
	fields := []*int{&sb.RootBlock, &sb.LevelCount, &sb.RecordCount, &sb.NodeCount, &sb.PageSize}
	for _, f := range fields {
		v, err := r.ReadUint32()
		if err != nil {
			return sb, fmt.Errorf("failed to read super-block: %w", err)
		}
		*f = int(v)
	}
	if sb.PageSize < 8 {
		return sb, fmt.Errorf("%w: super-block page size %d", types.ErrFormat, sb.PageSize)
	}
	return sb, nil
}

func (sb SuperBlock) encode() []byte {
	buf := make([]byte, superBlockSize)
	w := types.NewBinaryWriter(buf, binary.BigEndian)
	for _, v := range []int{sb.RootBlock, sb.LevelCount, sb.RecordCount, sb.NodeCount, sb.PageSize} {
		_ = w.WriteUint32(uint32(v))
	}
	return buf
}
