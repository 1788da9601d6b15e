package types

import "errors"

var (
	// ErrFormat indicates bytes that violate an on-disk layout.
	ErrFormat = errors.New("macfiles: format violation")
	// ErrBlockNotFound indicates a block number with no allocated block behind it.
	ErrBlockNotFound = errors.New("macfiles: block not found")
	// ErrOutOfRange indicates a read or write past the end of a byte window.
	ErrOutOfRange = errors.New("macfiles: out of range")
	// ErrUnsupported indicates a value type or query this library cannot handle.
	ErrUnsupported = errors.New("macfiles: unsupported")
	// ErrKeyNotFound indicates a named entry was missing.
	ErrKeyNotFound = errors.New("macfiles: key not found")
	// ErrDuplicateKey indicates a named entry already exists.
	ErrDuplicateKey = errors.New("macfiles: duplicate key")
	// ErrOutOfSpace indicates the allocator has no free block large enough.
	ErrOutOfSpace = errors.New("macfiles: out of space")
)
