package buddy

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sort"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// addressPadding is the number of address slots the table is padded to
const addressPadding = 256

// rootBlockData is the allocator state stored in the bookkeeping block.
// A zero address marks an unassigned block number.
type rootBlockData struct {
	addresses []BlockAddress
	toc       map[string]uint32
	freeLists [FreeListCount][]uint32
}

func paddedAddressCount(n int) int {
	if extra := n % addressPadding; extra != 0 {
		return n + addressPadding - extra
	}
	return n
}

// tocNames returns the TOC names in sorted order so the encoding is deterministic
func (r *rootBlockData) tocNames() []string {
	names := make([]string, 0, len(r.toc))
	for name := range r.toc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *rootBlockData) calculateSize() int {
	size := 4 + 4
	size += paddedAddressCount(len(r.addresses)) * 4

	size += 4
	for name := range r.toc {
		size += 1 + len(name) + 4
	}

	for _, list := range r.freeLists {
		size += 4 + len(list)*4
	}
	return size
}

func (r *rootBlockData) encode() ([]byte, error) {
	buf := make([]byte, r.calculateSize())
	w := types.NewBinaryWriter(buf, binary.BigEndian)

	if err := w.WriteUint32(uint32(len(r.addresses))); err != nil {
		return nil, err
	}
	if err := w.WriteZeros(4); err != nil {
		return nil, err
	}
	for _, addr := range r.addresses {
		if err := w.WriteUint32(uint32(addr)); err != nil {
			return nil, err
		}
	}
	if err := w.WriteZeros((paddedAddressCount(len(r.addresses)) - len(r.addresses)) * 4); err != nil {
		return nil, err
	}

	if err := w.WriteUint32(uint32(len(r.toc))); err != nil {
		return nil, err
	}
	for _, name := range r.tocNames() {
		if err := w.WriteUint8(uint8(len(name))); err != nil {
			return nil, err
		}
		if err := w.WriteString(name); err != nil {
			return nil, err
		}
		if err := w.WriteUint32(r.toc[name]); err != nil {
			return nil, err
		}
	}

	for _, list := range r.freeLists {
		if err := w.WriteUint32(uint32(len(list))); err != nil {
			return nil, err
		}
		for _, offset := range list {
			if err := w.WriteUint32(offset); err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

func decodeRootBlockData(data []byte) (*rootBlockData, error) {
	r := types.NewBinaryReader(data, binary.BigEndian)
	root := &rootBlockData{toc: make(map[string]uint32)}

	count, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read block count: %w", err)
	}
	if err := r.Skip(4); err != nil {
		return nil, err
	}
	if int(count) > r.Remaining()/4 {
		return nil, fmt.Errorf("%w: block count %d exceeds bookkeeping block", types.ErrFormat, count)
	}
	root.addresses = make([]BlockAddress, count)
	for i := range root.addresses {
		v, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("failed to read block address %d: %w", i, err)
		}
		root.addresses[i] = BlockAddress(v)
	}
	if err := r.Skip((paddedAddressCount(int(count)) - int(count)) * 4); err != nil {
		return nil, fmt.Errorf("failed to skip address padding: %w", err)
	}

	tocCount, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read TOC count: %w", err)
	}
	for i := uint32(0); i < tocCount; i++ {
		n, err := r.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("failed to read TOC entry %d: %w", i, err)
		}
		name, err := r.ReadString(int(n))
		if err != nil {
			return nil, fmt.Errorf("failed to read TOC entry %d: %w", i, err)
		}
		block, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("failed to read TOC entry %d: %w", i, err)
		}
		root.toc[name] = block
	}

	for i := range root.freeLists {
		n, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("failed to read free list %d: %w", i, err)
		}
		if int(n) > r.Remaining()/4 {
			return nil, fmt.Errorf("%w: free list %d count %d exceeds bookkeeping block", types.ErrFormat, i, n)
		}
		list := make([]uint32, n)
		for j := range list {
			if list[j], err = r.ReadUint32(); err != nil {
				return nil, fmt.Errorf("failed to read free list %d: %w", i, err)
			}
		}
		// Lookups binary search, so keep every list ordered even if the file was not
		slices.Sort(list)
		root.freeLists[i] = list
	}
	return root, nil
}
