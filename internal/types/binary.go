// File: internal/types/binary.go
package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// BinaryReader reads fixed-width values from a byte window
type BinaryReader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

// NewBinaryReader creates a new binary reader with specified byte order
func NewBinaryReader(data []byte, order binary.ByteOrder) *BinaryReader {
	return &BinaryReader{data: data, order: order}
}

// Position returns the current read offset
func (br *BinaryReader) Position() int { return br.pos }

// Len returns the size of the window
func (br *BinaryReader) Len() int { return len(br.data) }

// Remaining returns the number of unread bytes
func (br *BinaryReader) Remaining() int { return len(br.data) - br.pos }

// Seek moves the cursor to an absolute offset
func (br *BinaryReader) Seek(pos int) error {
	if pos < 0 || pos > len(br.data) {
		return fmt.Errorf("%w: seek to %d in %d byte window", ErrOutOfRange, pos, len(br.data))
	}
	br.pos = pos
	return nil
}

// Skip advances the cursor by n bytes
func (br *BinaryReader) Skip(n int) error {
	return br.Seek(br.pos + n)
}

func (br *BinaryReader) take(n int) ([]byte, error) {
	if n < 0 || br.pos+n > len(br.data) {
		return nil, fmt.Errorf("%w: read of %d bytes at %d in %d byte window", ErrOutOfRange, n, br.pos, len(br.data))
	}
	b := br.data[br.pos : br.pos+n]
	br.pos += n
	return b, nil
}

// ReadUint8 reads a uint8
func (br *BinaryReader) ReadUint8() (uint8, error) {
	b, err := br.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadInt8 reads an int8
func (br *BinaryReader) ReadInt8() (int8, error) {
	v, err := br.ReadUint8()
	return int8(v), err
}

// ReadUint16 reads a uint16
func (br *BinaryReader) ReadUint16() (uint16, error) {
	b, err := br.take(2)
	if err != nil {
		return 0, err
	}
	return br.order.Uint16(b), nil
}

// ReadInt16 reads an int16
func (br *BinaryReader) ReadInt16() (int16, error) {
	v, err := br.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads a uint32
func (br *BinaryReader) ReadUint32() (uint32, error) {
	b, err := br.take(4)
	if err != nil {
		return 0, err
	}
	return br.order.Uint32(b), nil
}

// ReadInt32 reads an int32
func (br *BinaryReader) ReadInt32() (int32, error) {
	v, err := br.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a uint64
func (br *BinaryReader) ReadUint64() (uint64, error) {
	b, err := br.take(8)
	if err != nil {
		return 0, err
	}
	return br.order.Uint64(b), nil
}

// ReadInt64 reads an int64
func (br *BinaryReader) ReadInt64() (int64, error) {
	v, err := br.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads an IEEE 754 single
func (br *BinaryReader) ReadFloat32() (float32, error) {
	v, err := br.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE 754 double
func (br *BinaryReader) ReadFloat64() (float64, error) {
	v, err := br.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadFloat64BE reads a big-endian double regardless of the reader's order
func (br *BinaryReader) ReadFloat64BE() (float64, error) {
	b, err := br.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadBytes reads a copy of the next length bytes
func (br *BinaryReader) ReadBytes(length int) ([]byte, error) {
	b, err := br.take(length)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

// ReadFourCC reads a four character code
func (br *BinaryReader) ReadFourCC() (FourCC, error) {
	b, err := br.take(4)
	if err != nil {
		return "", err
	}
	return FourCC(b), nil
}

// ReadString reads a string of the given byte length
func (br *BinaryReader) ReadString(length int) (string, error) {
	b, err := br.take(length)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadPascalString reads a length-prefixed string stored in a field of fieldLen bytes
// (length byte included). The whole field is consumed.
func (br *BinaryReader) ReadPascalString(fieldLen int) (string, error) {
	b, err := br.take(fieldLen)
	if err != nil {
		return "", err
	}
	n := int(b[0])
	if n > fieldLen-1 {
		return "", fmt.Errorf("%w: pascal string length %d exceeds field of %d bytes", ErrFormat, n, fieldLen)
	}
	return string(b[1 : 1+n]), nil
}

// ReadUTF16BE reads units UTF-16 big-endian code units
func (br *BinaryReader) ReadUTF16BE(units int) (string, error) {
	b, err := br.take(units * 2)
	if err != nil {
		return "", err
	}
	return DecodeUTF16BE(b)
}

// Align skips bytes to align the cursor to the specified byte boundary
func (br *BinaryReader) Align(boundary int) error {
	if rem := br.pos % boundary; rem != 0 {
		return br.Skip(boundary - rem)
	}
	return nil
}

// BinaryWriter writes fixed-width values into a byte window. A writer created
// with NewBufferWriter grows on demand; one created with NewBinaryWriter is
// bounded by the slice it was given.
type BinaryWriter struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
	fixed bool
}

// NewBinaryWriter creates a new writer over a fixed window
func NewBinaryWriter(buf []byte, order binary.ByteOrder) *BinaryWriter {
	return &BinaryWriter{buf: buf, order: order, fixed: true}
}

// NewBufferWriter creates a new writer that grows as bytes are written
func NewBufferWriter(order binary.ByteOrder) *BinaryWriter {
	return &BinaryWriter{order: order}
}

// Bytes returns the written window
func (bw *BinaryWriter) Bytes() []byte { return bw.buf }

// Position returns the current write offset
func (bw *BinaryWriter) Position() int { return bw.pos }

// Seek moves the cursor to an absolute offset inside the written window
func (bw *BinaryWriter) Seek(pos int) error {
	if pos < 0 || pos > len(bw.buf) {
		return fmt.Errorf("%w: seek to %d in %d byte window", ErrOutOfRange, pos, len(bw.buf))
	}
	bw.pos = pos
	return nil
}

func (bw *BinaryWriter) reserve(n int) ([]byte, error) {
	end := bw.pos + n
	if end > len(bw.buf) {
		if bw.fixed {
			return nil, fmt.Errorf("%w: write of %d bytes at %d in %d byte window", ErrOutOfRange, n, bw.pos, len(bw.buf))
		}
		bw.buf = append(bw.buf, make([]byte, end-len(bw.buf))...)
	}
	b := bw.buf[bw.pos:end]
	bw.pos = end
	return b, nil
}

// WriteUint8 writes a uint8
func (bw *BinaryWriter) WriteUint8(val uint8) error {
	b, err := bw.reserve(1)
	if err != nil {
		return err
	}
	b[0] = val
	return nil
}

// WriteInt8 writes an int8
func (bw *BinaryWriter) WriteInt8(val int8) error { return bw.WriteUint8(uint8(val)) }

// WriteUint16 writes a uint16
func (bw *BinaryWriter) WriteUint16(val uint16) error {
	b, err := bw.reserve(2)
	if err != nil {
		return err
	}
	bw.order.PutUint16(b, val)
	return nil
}

// WriteInt16 writes an int16
func (bw *BinaryWriter) WriteInt16(val int16) error { return bw.WriteUint16(uint16(val)) }

// WriteUint32 writes a uint32
func (bw *BinaryWriter) WriteUint32(val uint32) error {
	b, err := bw.reserve(4)
	if err != nil {
		return err
	}
	bw.order.PutUint32(b, val)
	return nil
}

// WriteInt32 writes an int32
func (bw *BinaryWriter) WriteInt32(val int32) error { return bw.WriteUint32(uint32(val)) }

// WriteUint64 writes a uint64
func (bw *BinaryWriter) WriteUint64(val uint64) error {
	b, err := bw.reserve(8)
	if err != nil {
		return err
	}
	bw.order.PutUint64(b, val)
	return nil
}

// WriteInt64 writes an int64
func (bw *BinaryWriter) WriteInt64(val int64) error { return bw.WriteUint64(uint64(val)) }

// WriteFloat32 writes an IEEE 754 single
func (bw *BinaryWriter) WriteFloat32(val float32) error {
	return bw.WriteUint32(math.Float32bits(val))
}

// WriteFloat64 writes an IEEE 754 double
func (bw *BinaryWriter) WriteFloat64(val float64) error {
	return bw.WriteUint64(math.Float64bits(val))
}

// WriteFloat64BE writes a big-endian double regardless of the writer's order
func (bw *BinaryWriter) WriteFloat64BE(val float64) error {
	b, err := bw.reserve(8)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b, math.Float64bits(val))
	return nil
}

// WriteBytes writes a slice of bytes
func (bw *BinaryWriter) WriteBytes(data []byte) error {
	b, err := bw.reserve(len(data))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// WriteZeros writes n zero bytes
func (bw *BinaryWriter) WriteZeros(n int) error {
	b, err := bw.reserve(n)
	if err != nil {
		return err
	}
	clear(b)
	return nil
}

// WriteFourCC writes a four character code
func (bw *BinaryWriter) WriteFourCC(code FourCC) error {
	if !code.Valid() {
		return fmt.Errorf("%w: four character code %q is not 4 bytes", ErrFormat, string(code))
	}
	return bw.WriteBytes([]byte(code))
}

// WriteString writes a string without null termination
func (bw *BinaryWriter) WriteString(s string) error {
	return bw.WriteBytes([]byte(s))
}

// WritePascalString writes a length-prefixed string null-padded to fieldLen bytes
func (bw *BinaryWriter) WritePascalString(s string, fieldLen int) error {
	if len(s) > fieldLen-1 {
		return fmt.Errorf("%w: string of %d bytes does not fit a %d byte pascal field", ErrFormat, len(s), fieldLen)
	}
	if err := bw.WriteUint8(uint8(len(s))); err != nil {
		return err
	}
	if err := bw.WriteString(s); err != nil {
		return err
	}
	return bw.WriteZeros(fieldLen - 1 - len(s))
}

// WriteUTF16BE writes s as UTF-16 big-endian code units
func (bw *BinaryWriter) WriteUTF16BE(s string) error {
	b, err := EncodeUTF16BE(s)
	if err != nil {
		return err
	}
	return bw.WriteBytes(b)
}

// Align pads with zeros to the specified byte boundary
func (bw *BinaryWriter) Align(boundary int) error {
	if rem := bw.pos % boundary; rem != 0 {
		return bw.WriteZeros(boundary - rem)
	}
	return nil
}

// EncodeUTF16BE converts s to UTF-16 big-endian bytes
func EncodeUTF16BE(s string) ([]byte, error) {
	b, err := utf16BE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode UTF-16: %w", err)
	}
	return b, nil
}

// DecodeUTF16BE converts UTF-16 big-endian bytes to a string
func DecodeUTF16BE(b []byte) (string, error) {
	s, err := utf16BE.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed to decode UTF-16: %w", err)
	}
	return string(s), nil
}

// UTF16Units returns the UTF-16 code units of s
func UTF16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// UTF16Len returns the number of UTF-16 code units needed to encode s
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
