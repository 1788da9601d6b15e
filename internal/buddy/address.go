package buddy

import (
	"fmt"
	"math/bits"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

const (
	sizeBits   = 0x1f
	offsetBits = ^uint32(sizeBits)

	// MinSizeLog2 is the smallest block size class (32 bytes)
	MinSizeLog2 = 5
	// FreeListCount is the number of free lists, one per power of two
	FreeListCount = 32
)

// BlockAddress packs a 32-byte aligned offset and a log2 size class into one word
type BlockAddress uint32

// NewBlockAddress builds an address from its parts
func NewBlockAddress(offset uint32, sizeLog2 int) (BlockAddress, error) {
	if offset&^offsetBits != 0 {
		return 0, fmt.Errorf("%w: block offset %d is not 32-byte aligned", types.ErrFormat, offset)
	}
	if sizeLog2 < MinSizeLog2 || sizeLog2 > sizeBits {
		return 0, fmt.Errorf("%w: block size log2 %d outside %d..%d", types.ErrFormat, sizeLog2, MinSizeLog2, sizeBits)
	}
	return BlockAddress(offset | uint32(sizeLog2)), nil
}

// Offset returns the block offset; the block starts at file position Offset()+4
func (a BlockAddress) Offset() uint32 { return uint32(a) & offsetBits }

// SizeLog2 returns the size class
func (a BlockAddress) SizeLog2() int { return int(uint32(a) & sizeBits) }

// Size returns the block size in bytes
func (a BlockAddress) Size() int { return 1 << a.SizeLog2() }

func (a BlockAddress) String() string {
	return fmt.Sprintf("0x%x/%d", a.Offset(), a.Size())
}

// SizeClass returns the smallest size class holding n bytes, ceil(log2(max(n, 32)))
func SizeClass(n int) int {
	if n <= 1<<MinSizeLog2 {
		return MinSizeLog2
	}
	return bits.Len32(uint32(n - 1))
}
