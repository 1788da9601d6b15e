package buddy

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/deploymenttheory/go-macfiles/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestBuddyFile opens a fresh read-write buddy file in a temp directory
func createTestBuddyFile(t *testing.T) (*File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.buddy")
	b, err := Open(path, ReadWrite)
	require.NoError(t, err)
	return b, path
}

// assertAllocatorInvariants checks alignment, ordering, buddy exclusivity and that
// free plus allocated space accounts for the whole 2 GiB address space.
func assertAllocatorInvariants(t *testing.T, b *File) {
	t.Helper()
	total := uint64(32) // header region at offset 0

	for width, list := range b.FreeLists() {
		for i, offset := range list {
			assert.Zero(t, offset%32, "free offset %d in list %d not 32-byte aligned", offset, width)
			assert.Zero(t, offset%(1<<width), "free offset %d in list %d not aligned to its size", offset, width)
			if i > 0 {
				assert.Less(t, list[i-1], offset, "free list %d not sorted", width)
			}
			buddy := offset ^ (1 << width)
			for _, other := range list {
				assert.NotEqual(t, buddy, other, "free list %d holds buddies %d and %d", width, offset, other)
			}
			total += 1 << width
		}
	}
	for _, addr := range b.BlockAddresses() {
		if addr != 0 {
			assert.Zero(t, addr.Offset()%32)
			total += uint64(addr.Size())
		}
	}
	assert.Equal(t, uint64(1)<<31, total, "free and allocated space must cover the address space")
}

func TestSizeClass(t *testing.T) {
	testCases := []struct {
		bytes    int
		expected int
	}{
		{0, 5}, {1, 5}, {32, 5}, {33, 6}, {64, 6}, {65, 7}, {243, 8}, {1264, 11}, {4096, 12}, {4097, 13},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, SizeClass(tc.bytes), "SizeClass(%d)", tc.bytes)
	}
}

func TestBlockAddress(t *testing.T) {
	addr, err := NewBlockAddress(2048, 11)
	require.NoError(t, err)
	assert.Equal(t, BlockAddress(0x80b), addr)
	assert.Equal(t, uint32(2048), addr.Offset())
	assert.Equal(t, 11, addr.SizeLog2())
	assert.Equal(t, 2048, addr.Size())

	_, err = NewBlockAddress(2049, 11)
	assert.ErrorIs(t, err, types.ErrFormat)
	_, err = NewBlockAddress(2048, 4)
	assert.ErrorIs(t, err, types.ErrFormat)
}

func TestInitialEmptyFileLayout(t *testing.T) {
	b, path := createTestBuddyFile(t)
	require.NoError(t, b.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 2048+4+1264)

	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(data[0:4]))
	assert.Equal(t, []byte("Bud1"), data[4:8])
	assert.Equal(t, uint32(2048), binary.BigEndian.Uint32(data[8:12]))
	assert.Equal(t, uint32(1264), binary.BigEndian.Uint32(data[12:16]))
	assert.Equal(t, uint32(2048), binary.BigEndian.Uint32(data[16:20]))
	assert.Equal(t, initialReserved[:], data[20:36])

	b, err = Open(path, ReadOnly)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, []BlockAddress{BlockAddress(2048 | 11)}, b.BlockAddresses())
	lists := b.FreeLists()
	for n := 0; n < FreeListCount; n++ {
		switch {
		case n >= 5 && n <= 10, n >= 12 && n <= 30:
			assert.Equal(t, []uint32{1 << n}, lists[n], "free list %d", n)
		default:
			assert.Empty(t, lists[n], "free list %d", n)
		}
	}
	assertAllocatorInvariants(t, b)
}

func TestAllocateSplitsLargerBlocks(t *testing.T) {
	b, _ := createTestBuddyFile(t)
	defer b.Close()

	block, err := b.Allocate(2048)
	require.NoError(t, err)
	assert.Equal(t, 1, block)

	addr := b.BlockAddresses()[block]
	assert.Equal(t, uint32(4096), addr.Offset())
	assert.Equal(t, 11, addr.SizeLog2())
	assert.Equal(t, []uint32{6144}, b.FreeLists()[11])
	assert.Empty(t, b.FreeLists()[12])
	assertAllocatorInvariants(t, b)
}

func TestReleaseCoalescesBuddies(t *testing.T) {
	b, _ := createTestBuddyFile(t)
	defer b.Close()

	first, err := b.Allocate(2048)
	require.NoError(t, err)
	second, err := b.Allocate(2048)
	require.NoError(t, err)
	assert.Empty(t, b.FreeLists()[11])

	require.NoError(t, b.Release(first))
	assert.Equal(t, []uint32{4096}, b.FreeLists()[11])
	require.NoError(t, b.Release(second))
	assert.Empty(t, b.FreeLists()[11])
	assert.Equal(t, []uint32{4096}, b.FreeLists()[12])

	// Trailing unassigned slots are trimmed
	assert.Len(t, b.BlockAddresses(), 1)
	assertAllocatorInvariants(t, b)
}

func TestAllocateReusesFirstFreeSlot(t *testing.T) {
	b, _ := createTestBuddyFile(t)
	defer b.Close()

	blocks := make([]int, 3)
	for i := range blocks {
		var err error
		blocks[i], err = b.Allocate(100)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3}, blocks)

	require.NoError(t, b.Release(2))
	block, err := b.Allocate(40)
	require.NoError(t, err)
	assert.Equal(t, 2, block)
}

func TestRandomAllocationsKeepInvariants(t *testing.T) {
	b, path := createTestBuddyFile(t)
	rng := rand.New(rand.NewSource(42))

	var live []int
	for i := 0; i < 500; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			j := rng.Intn(len(live))
			require.NoError(t, b.Release(live[j]))
			live = append(live[:j], live[j+1:]...)
			continue
		}
		block, err := b.Allocate(1 + rng.Intn(20000))
		require.NoError(t, err)
		live = append(live, block)
	}
	assertAllocatorInvariants(t, b)
	require.NoError(t, b.Flush())
	assertAllocatorInvariants(t, b)
	require.NoError(t, b.Close())

	reopened, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer reopened.Close()
	assertAllocatorInvariants(t, reopened)
}

func TestBlockDataPersists(t *testing.T) {
	b, path := createTestBuddyFile(t)

	block, err := b.AllocateEntry("DSDB", 20)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte{0xAB}, 20)
	require.NoError(t, b.WriteBlock(block, payload))

	big, err := b.AllocateAndWrite(bytes.Repeat([]byte{0x5A}, 5000))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b, err = Open(path, ReadOnly)
	require.NoError(t, err)
	defer b.Close()

	assert.True(t, b.HasEntry("DSDB"))
	entry, err := b.Entry("DSDB")
	require.NoError(t, err)
	assert.Equal(t, block, entry)

	data, err := b.ReadBlock(block)
	require.NoError(t, err)
	assert.Len(t, data, 32)
	assert.Equal(t, payload, data[:20])

	data, err = b.ReadBlock(big)
	require.NoError(t, err)
	assert.Len(t, data, 8192)
	assert.Equal(t, bytes.Repeat([]byte{0x5A}, 5000), data[:5000])
	assertAllocatorInvariants(t, b)
}

func TestFlushRelocatesBookkeepingBlock(t *testing.T) {
	b, path := createTestBuddyFile(t)
	_, err := b.Allocate(100)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rootOffset := binary.BigEndian.Uint32(data[8:12])
	assert.NotEqual(t, uint32(2048), rootOffset)
	assert.Equal(t, rootOffset, binary.BigEndian.Uint32(data[16:20]))

	b, err = Open(path, ReadOnly)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, rootOffset, b.BlockAddresses()[0].Offset())
	assert.Contains(t, b.FreeLists()[11], uint32(2048))
}

func TestBuddyFileErrors(t *testing.T) {
	b, path := createTestBuddyFile(t)

	_, err := b.ReadBlock(7)
	assert.ErrorIs(t, err, types.ErrBlockNotFound)
	assert.Contains(t, err.Error(), "block 7 is outside the range of block numbers")

	_, err = b.ReadBlock(-1)
	assert.ErrorIs(t, err, types.ErrBlockNotFound)

	first, err := b.Allocate(32)
	require.NoError(t, err)
	_, err = b.Allocate(32)
	require.NoError(t, err)
	require.NoError(t, b.Release(first))
	_, err = b.ReadBlock(first)
	assert.ErrorIs(t, err, types.ErrBlockNotFound)
	assert.Contains(t, err.Error(), "is not allocated")

	_, err = b.Entry("nope")
	assert.ErrorIs(t, err, types.ErrKeyNotFound)

	_, err = b.AllocateEntry("DSDB", 20)
	require.NoError(t, err)
	_, err = b.AllocateEntry("DSDB", 20)
	assert.ErrorIs(t, err, types.ErrDuplicateKey)

	block, err := b.Allocate(32)
	require.NoError(t, err)
	err = b.WriteBlock(block, make([]byte, 33))
	assert.ErrorIs(t, err, types.ErrOutOfRange)
	require.NoError(t, b.Close())

	ro, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer ro.Close()
	_, err = ro.Allocate(32)
	assert.ErrorIs(t, err, types.ErrUnsupported)
}

func TestOpenRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err := Open(empty, ReadOnly)
	assert.ErrorIs(t, err, types.ErrFormat)

	_, err = Open(filepath.Join(dir, "missing"), ReadOnly)
	assert.Error(t, err)

	mismatched := make([]byte, 64)
	binary.BigEndian.PutUint32(mismatched[0:], 1)
	copy(mismatched[4:], "Bud1")
	binary.BigEndian.PutUint32(mismatched[8:], 2048)
	binary.BigEndian.PutUint32(mismatched[16:], 4096)
	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, mismatched, 0o644))
	_, err = Open(bad, ReadOnly)
	assert.ErrorIs(t, err, types.ErrFormat)
}
