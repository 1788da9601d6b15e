package buddy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/deploymenttheory/go-macfiles/internal/logger"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// FileMode selects how a buddy file is opened
type FileMode int

const (
	// ReadOnly opens an existing file without modifying it
	ReadOnly FileMode = iota
	// ReadWrite opens or creates a file for modification
	ReadWrite
)

func (m FileMode) String() string {
	if m == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// initialRootOffset is where a freshly created file keeps its bookkeeping block
const initialRootOffset = 2048

// initialReserved is the unexplained 16 byte tail of the header as Finder writes it
var initialReserved = [16]byte{
	0, 0, 0x10, 0x0c,
	0, 0, 0, 0x87,
	0, 0, 0x20, 0x0b,
	0, 0, 0, 0,
}

// File is a buddy-allocated file: a set of numbered power-of-two blocks, a
// table of contents naming some of them, and per-size free lists.
type File struct {
	f      *os.File
	mode   FileMode
	header header
	root   *rootBlockData
	dirty  bool
}

// Open opens a buddy file. In ReadWrite mode a missing or empty file is
// initialised with an empty allocator.
func Open(path string, mode FileMode) (*File, error) {
	flags := os.O_RDONLY
	if mode == ReadWrite {
		flags = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open buddy file: %w", err)
	}

	b, err := load(f, mode)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return b, nil
}

func load(f *os.File, mode FileMode) (*File, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat buddy file: %w", err)
	}
	if info.Size() == 0 && mode == ReadWrite {
		if err := writeInitialEmptyFile(f); err != nil {
			return nil, fmt.Errorf("failed to initialise buddy file: %w", err)
		}
	}

	b := &File{f: f, mode: mode}

	prefix, err := b.readAt(0, prefixSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read buddy header: %w", err)
	}
	if b.header, err = readHeader(prefix); err != nil {
		return nil, fmt.Errorf("failed to parse buddy header: %w", err)
	}

	data, err := b.readAt(int64(b.header.rootOffset)+4, int(b.header.rootSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read bookkeeping block: %w", err)
	}
	if b.root, err = decodeRootBlockData(data); err != nil {
		return nil, fmt.Errorf("failed to parse bookkeeping block: %w", err)
	}

	logger.LogDebug("opened buddy file", map[string]interface{}{
		"path":   f.Name(),
		"mode":   mode.String(),
		"blocks": len(b.root.addresses),
	})
	return b, nil
}

func writeInitialEmptyFile(f *os.File) error {
	prefix := make([]byte, initialRootOffset)
	binary.BigEndian.PutUint32(prefix, uint32(fileMagic))

	root := &rootBlockData{
		addresses: []BlockAddress{BlockAddress(initialRootOffset | 11)},
		toc:       make(map[string]uint32),
	}
	for n := MinSizeLog2; n <= 10; n++ {
		root.freeLists[n] = []uint32{1 << n}
	}
	for n := 12; n <= 30; n++ {
		root.freeLists[n] = []uint32{1 << n}
	}
	data, err := root.encode()
	if err != nil {
		return err
	}

	h := header{
		rootOffset:  initialRootOffset,
		rootSize:    uint32(len(data)),
		rootOffset2: initialRootOffset,
		reserved:    initialReserved,
	}
	copy(prefix[4:], h.bytes())

	if _, err := f.WriteAt(prefix, 0); err != nil {
		return err
	}
	if _, err := f.WriteAt(data, initialRootOffset+4); err != nil {
		return err
	}
	return f.Sync()
}

// readAt reads n bytes at pos. Bytes past the end of the file read as zero,
// since blocks at the tail are not always materialised.
func (b *File) readAt(pos int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := b.f.ReadAt(buf, pos); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf, nil
}

func (b *File) checkWritable() error {
	if b.mode != ReadWrite {
		return fmt.Errorf("%w: buddy file is open %s", types.ErrUnsupported, b.mode)
	}
	return nil
}

// HasEntry reports whether the TOC names an entry
func (b *File) HasEntry(name string) bool {
	_, ok := b.root.toc[name]
	return ok
}

// Entry returns the block number the TOC maps name to
func (b *File) Entry(name string) (int, error) {
	block, ok := b.root.toc[name]
	if !ok {
		return 0, fmt.Errorf("%w: TOC entry %q", types.ErrKeyNotFound, name)
	}
	return int(block), nil
}

// Entries returns a copy of the TOC
func (b *File) Entries() map[string]int {
	entries := make(map[string]int, len(b.root.toc))
	for name, block := range b.root.toc {
		entries[name] = int(block)
	}
	return entries
}

// AllocateEntry allocates a block of at least size bytes and records it in the TOC
func (b *File) AllocateEntry(name string, size int) (int, error) {
	if b.HasEntry(name) {
		return 0, fmt.Errorf("%w: TOC entry %q", types.ErrDuplicateKey, name)
	}
	if len(name) > 255 {
		return 0, fmt.Errorf("%w: TOC name longer than 255 bytes", types.ErrFormat)
	}
	block, err := b.Allocate(size)
	if err != nil {
		return 0, err
	}
	b.root.toc[name] = uint32(block)
	return block, nil
}

// Allocate reserves a block of at least size bytes and returns its block number
func (b *File) Allocate(size int) (int, error) {
	if err := b.checkWritable(); err != nil {
		return 0, err
	}
	addr, err := b.allocInner(SizeClass(size))
	if err != nil {
		return 0, err
	}

	block := slices.Index(b.root.addresses, 0)
	if block < 0 {
		block = len(b.root.addresses)
		b.root.addresses = append(b.root.addresses, 0)
	}
	b.root.addresses[block] = addr
	b.dirty = true

	logger.LogDebug("allocated block", map[string]interface{}{"block": block, "address": addr.String()})
	return block, nil
}

// AllocateAndWrite allocates a block sized for data and writes data into it
func (b *File) AllocateAndWrite(data []byte) (int, error) {
	block, err := b.Allocate(len(data))
	if err != nil {
		return 0, err
	}
	if err := b.WriteBlock(block, data); err != nil {
		return 0, err
	}
	return block, nil
}

func (b *File) allocInner(requested int) (BlockAddress, error) {
	size := requested
	for size < FreeListCount && len(b.root.freeLists[size]) == 0 {
		size++
	}
	if size >= FreeListCount {
		return 0, fmt.Errorf("%w: no free block of %d bytes", types.ErrOutOfSpace, 1<<requested)
	}

	offset := b.root.freeLists[size][0]
	b.root.freeLists[size] = slices.Delete(b.root.freeLists[size], 0, 1)

	// Split down to the requested size, keeping the lower half each time
	for size > requested {
		size--
		b.insertFree(size, offset^(1<<size))
	}
	b.dirty = true
	return NewBlockAddress(offset, requested)
}

// Release returns a block to the free lists, merging it with free buddies
func (b *File) Release(block int) error {
	if err := b.checkWritable(); err != nil {
		return err
	}
	addr, err := b.address(block)
	if err != nil {
		return err
	}
	b.releaseInner(addr)

	b.root.addresses[block] = 0
	for n := len(b.root.addresses); n > 0 && b.root.addresses[n-1] == 0; n-- {
		b.root.addresses = b.root.addresses[:n-1]
	}
	b.dirty = true

	logger.LogDebug("released block", map[string]interface{}{"block": block, "address": addr.String()})
	return nil
}

func (b *File) releaseInner(addr BlockAddress) {
	offset := addr.Offset()
	width := addr.SizeLog2()

	for width < FreeListCount-1 {
		buddy := offset ^ (1 << width)
		i, found := slices.BinarySearch(b.root.freeLists[width], buddy)
		if !found {
			break
		}
		b.root.freeLists[width] = slices.Delete(b.root.freeLists[width], i, i+1)
		offset &= buddy
		width++
	}
	b.insertFree(width, offset)
	b.dirty = true
}

func (b *File) insertFree(width int, offset uint32) {
	i, _ := slices.BinarySearch(b.root.freeLists[width], offset)
	b.root.freeLists[width] = slices.Insert(b.root.freeLists[width], i, offset)
}

func (b *File) address(block int) (BlockAddress, error) {
	if block < 0 || block >= len(b.root.addresses) {
		return 0, fmt.Errorf("%w: block %d is outside the range of block numbers", types.ErrBlockNotFound, block)
	}
	addr := b.root.addresses[block]
	if addr == 0 {
		return 0, fmt.Errorf("%w: block %d is not allocated", types.ErrBlockNotFound, block)
	}
	return addr, nil
}

// BlockSize returns the capacity of an allocated block
func (b *File) BlockSize(block int) (int, error) {
	addr, err := b.address(block)
	if err != nil {
		return 0, err
	}
	return addr.Size(), nil
}

// ReadBlock returns the full contents of a block
func (b *File) ReadBlock(block int) ([]byte, error) {
	addr, err := b.address(block)
	if err != nil {
		return nil, err
	}
	data, err := b.readAt(int64(addr.Offset())+4, addr.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read block %d: %w", block, err)
	}
	return data, nil
}

// WriteBlock writes data at the start of a block
func (b *File) WriteBlock(block int, data []byte) error {
	if err := b.checkWritable(); err != nil {
		return err
	}
	addr, err := b.address(block)
	if err != nil {
		return err
	}
	if len(data) > addr.Size() {
		return fmt.Errorf("%w: %d bytes do not fit block %d of %d bytes", types.ErrOutOfRange, len(data), block, addr.Size())
	}
	if _, err := b.f.WriteAt(data, int64(addr.Offset())+4); err != nil {
		return fmt.Errorf("failed to write block %d: %w", block, err)
	}
	return nil
}

// rootAddress returns the address of the current bookkeeping block
func (b *File) rootAddress() BlockAddress {
	if len(b.root.addresses) > 0 && b.root.addresses[0].Offset() == b.header.rootOffset && b.root.addresses[0] != 0 {
		return b.root.addresses[0]
	}
	return BlockAddress(b.header.rootOffset | uint32(SizeClass(int(b.header.rootSize))))
}

// writeRootBlock relocates the bookkeeping block so the copy the header
// points at is never overwritten in place.
func (b *File) writeRootBlock() error {
	old := b.rootAddress()
	addr, err := b.allocInner(SizeClass(b.root.calculateSize()))
	if err != nil {
		return fmt.Errorf("failed to allocate bookkeeping block: %w", err)
	}
	b.releaseInner(old)

	// Allocation and release change the free lists, so the size can grow past the class
	for SizeClass(b.root.calculateSize()) > addr.SizeLog2() {
		bigger, err := b.allocInner(addr.SizeLog2() + 1)
		if err != nil {
			return fmt.Errorf("failed to allocate bookkeeping block: %w", err)
		}
		b.releaseInner(addr)
		addr = bigger
	}

	if len(b.root.addresses) == 0 {
		b.root.addresses = append(b.root.addresses, 0)
	}
	b.root.addresses[0] = addr

	data, err := b.root.encode()
	if err != nil {
		return fmt.Errorf("failed to encode bookkeeping block: %w", err)
	}
	if _, err := b.f.WriteAt(data, int64(addr.Offset())+4); err != nil {
		return fmt.Errorf("failed to write bookkeeping block: %w", err)
	}

	b.header = header{
		rootOffset:  addr.Offset(),
		rootSize:    uint32(len(data)),
		rootOffset2: addr.Offset(),
		reserved:    b.header.reserved,
	}
	if _, err := b.f.WriteAt(b.header.bytes(), 4); err != nil {
		return fmt.Errorf("failed to write buddy header: %w", err)
	}

	logger.LogDebug("flushed bookkeeping block", map[string]interface{}{"address": addr.String(), "size": len(data)})
	return nil
}

// Flush writes the allocator state if it changed and syncs the file
func (b *File) Flush() error {
	if b.mode != ReadWrite {
		return nil
	}
	if b.dirty {
		if err := b.writeRootBlock(); err != nil {
			return err
		}
		b.dirty = false
	}
	if err := b.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync buddy file: %w", err)
	}
	return nil
}

// Close flushes and closes the file. The handle is released even if the flush fails.
func (b *File) Close() error {
	flushErr := b.Flush()
	closeErr := b.f.Close()
	return errors.Join(flushErr, closeErr)
}

// BlockAddresses returns a copy of the block address table
func (b *File) BlockAddresses() []BlockAddress {
	return slices.Clone(b.root.addresses)
}

// FreeLists returns a copy of the free lists, indexed by size class
func (b *File) FreeLists() [][]uint32 {
	lists := make([][]uint32, FreeListCount)
	for i, list := range b.root.freeLists {
		lists[i] = slices.Clone(list)
	}
	return lists
}
