package types

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryWriterReaderRoundTrip(t *testing.T) {
	w := NewBufferWriter(binary.BigEndian)
	require.NoError(t, w.WriteUint8(0xAB))
	require.NoError(t, w.WriteInt16(-2))
	require.NoError(t, w.WriteInt32(-100000))
	require.NoError(t, w.WriteInt64(1<<40))
	require.NoError(t, w.WriteFloat64(1.5))
	require.NoError(t, w.WriteFourCC("Iloc"))
	require.NoError(t, w.WritePascalString("Macintosh HD", 28))
	require.NoError(t, w.WriteUTF16BE("héllo"))

	assert.Equal(t, 1+2+4+8+8+4+28+10, len(w.Bytes()))

	r := NewBinaryReader(w.Bytes(), binary.BigEndian)
	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)
	i16, err := r.ReadInt16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)
	i32, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-100000), i32)
	i64, err := r.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), i64)
	f64, err := r.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, 1.5, f64)
	code, err := r.ReadFourCC()
	require.NoError(t, err)
	assert.Equal(t, PropIconLocation, code)
	name, err := r.ReadPascalString(28)
	require.NoError(t, err)
	assert.Equal(t, "Macintosh HD", name)
	s, err := r.ReadUTF16BE(5)
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)
	assert.Equal(t, 0, r.Remaining())
}

func TestBinaryReaderOutOfRange(t *testing.T) {
	testCases := []struct {
		name string
		read func(r *BinaryReader) error
	}{
		{"uint32 past end", func(r *BinaryReader) error { _, err := r.ReadUint32(); return err }},
		{"bytes past end", func(r *BinaryReader) error { _, err := r.ReadBytes(3); return err }},
		{"seek past end", func(r *BinaryReader) error { return r.Seek(3) }},
		{"negative length", func(r *BinaryReader) error { _, err := r.ReadBytes(-1); return err }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewBinaryReader([]byte{1, 2}, binary.LittleEndian)
			err := tc.read(r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOutOfRange))
		})
	}
}

func TestBinaryWriterFixedWindow(t *testing.T) {
	buf := make([]byte, 6)
	w := NewBinaryWriter(buf, binary.LittleEndian)
	require.NoError(t, w.WriteUint32(0x01020304))
	err := w.WriteUint32(5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, []byte{4, 3, 2, 1, 0, 0}, buf)
}

func TestBinaryWriterSeekAndAlign(t *testing.T) {
	w := NewBufferWriter(binary.BigEndian)
	require.NoError(t, w.WriteUint16(0))
	require.NoError(t, w.WriteUint8(7))
	require.NoError(t, w.Align(4))
	assert.Equal(t, 4, w.Position())
	require.NoError(t, w.Seek(0))
	require.NoError(t, w.WriteUint16(0x1234))
	assert.Equal(t, []byte{0x12, 0x34, 7, 0}, w.Bytes())
}

func TestPascalStringTooLong(t *testing.T) {
	w := NewBufferWriter(binary.BigEndian)
	err := w.WritePascalString("0123456789", 5)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestWriteFourCCInvalid(t *testing.T) {
	w := NewBufferWriter(binary.BigEndian)
	assert.ErrorIs(t, w.WriteFourCC("abc"), ErrFormat)
}

func TestUTF16Len(t *testing.T) {
	assert.Equal(t, 5, UTF16Len("hello"))
	assert.Equal(t, 2, UTF16Len("\U0001F600"))
	assert.Equal(t, len(UTF16Units("a\U0001F600b")), UTF16Len("a\U0001F600b"))
}
