package bookmark

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

const (
	minHeaderSize     = 16
	writtenHeaderSize = 48
	writtenReserved   = 0x10040000
	tocHeaderSize     = 20
	tocEntrySize      = 12
	valueHeaderSize   = 8

	tocMagic      uint32 = 0xFFFFFFFE
	stringKeyFlag uint32 = 0x80000000

	// Bound on array, dictionary and URL nesting while decoding
	maxValueDepth = 64
)

const (
	magicBook types.FourCC = "book"
	magicAlis types.FourCC = "alis"
)

// Value type codes. The low byte is a subtype.
const (
	typeMask    = 0xFFFFFF00
	subtypeMask = 0x000000FF

	typeString  = 0x0100
	typeData    = 0x0200
	typeNumber  = 0x0300
	typeDate    = 0x0400
	typeBoolean = 0x0500
	typeArray   = 0x0600
	typeDict    = 0x0700
	typeUUID    = 0x0800
	typeURL     = 0x0900
	typeNull    = 0x0A00

	subtypeOne = 0x0001

	subtypeFalse = 0x0000
	subtypeTrue  = 0x0001

	subtypeURLAbsolute = 0x0001
	subtypeURLRelative = 0x0002

	// Number subtypes follow CFNumberType
	subtypeSInt8   = 1
	subtypeSInt16  = 2
	subtypeSInt32  = 3
	subtypeSInt64  = 4
	subtypeFloat32 = 5
	subtypeFloat64 = 6
)

// Bookmark is a CFURL bookmark: tables of contents keyed by TOC id, each
// mapping keys to values.
//
// Values are string, types.Blob, int8, int16, int32, int64, float32,
// float64, time.Time, bool, uuid.UUID, URL, []any, Dict, Unrecognised or nil.
type Bookmark struct {
	TOCs map[uint32]map[TocKey]any
}

// Entry is one key/value pair of a bookmark, tagged with its TOC id
type Entry struct {
	TOC   uint32
	Key   TocKey
	Value any
}

// Get returns the value stored for key in the first TOC that has it
func (b *Bookmark) Get(key TocKey) (any, error) {
	for _, id := range b.tocIDs() {
		if v, ok := b.TOCs[id][key]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: bookmark has no %s entry", types.ErrKeyNotFound, KeyName(key))
}

// Entries lists every entry ordered by TOC id then key
func (b *Bookmark) Entries() []Entry {
	var entries []Entry
	for _, id := range b.tocIDs() {
		toc := b.TOCs[id]
		for _, key := range sortedKeys(toc) {
			entries = append(entries, Entry{TOC: id, Key: key, Value: toc[key]})
		}
	}
	return entries
}

func (b *Bookmark) tocIDs() []uint32 {
	ids := make([]uint32, 0, len(b.TOCs))
	for id := range b.TOCs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// sortedKeys orders integer keys numerically ahead of string keys
func sortedKeys(toc map[TocKey]any) []TocKey {
	keys := make([]TocKey, 0, len(toc))
	for k := range toc {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b TocKey) int {
		ai, aInt := a.(IntKey)
		bi, bInt := b.(IntKey)
		switch {
		case aInt && bInt:
			return cmp.Compare(ai, bi)
		case aInt:
			return -1
		case bInt:
			return 1
		}
		return cmp.Compare(a.String(), b.String())
	})
	return keys
}

type tocEntry struct {
	key         uint32
	valueOffset uint32
}

// Encode serialises the bookmark. TOCs are written in ascending id order
// and each TOC's entries are sorted by encoded key, since readers binary
// search them.
func (b *Bookmark) Encode() (types.Blob, error) {
	body := types.NewBufferWriter(binary.LittleEndian)
	// Offsets are relative to the end of the header; the first four bytes
	// there hold the offset of the first TOC.
	offset := 4

	emit := func(item any) (int, error) {
		enc, err := encodeItem(item, offset)
		if err != nil {
			return 0, err
		}
		if err := body.WriteBytes(enc); err != nil {
			return 0, err
		}
		start := offset
		offset += len(enc)
		return start, nil
	}

	ids := b.tocIDs()
	tables := make([][]tocEntry, len(ids))
	for i, id := range ids {
		toc := b.TOCs[id]
		entries := make([]tocEntry, 0, len(toc))
		for _, key := range sortedKeys(toc) {
			switch k := key.(type) {
			case IntKey:
				if uint32(k)&stringKeyFlag != 0 {
					return nil, fmt.Errorf("%w: integer key %s collides with the string key flag", types.ErrFormat, k)
				}
				start, err := emit(toc[key])
				if err != nil {
					return nil, fmt.Errorf("failed to encode value for key %s: %w", KeyName(k), err)
				}
				entries = append(entries, tocEntry{key: uint32(k), valueOffset: uint32(start)})
			case StringKey:
				keyStart, err := emit(string(k))
				if err != nil {
					return nil, fmt.Errorf("failed to encode key %q: %w", string(k), err)
				}
				valueStart, err := emit(toc[key])
				if err != nil {
					return nil, fmt.Errorf("failed to encode value for key %q: %w", string(k), err)
				}
				entries = append(entries, tocEntry{key: uint32(keyStart) | stringKeyFlag, valueOffset: uint32(valueStart)})
			default:
				return nil, fmt.Errorf("%w: TOC key of type %T", types.ErrUnsupported, key)
			}
		}
		slices.SortFunc(entries, func(a, b tocEntry) int { return cmp.Compare(a.key, b.key) })
		tables[i] = entries
	}

	firstTOC := 0
	if len(ids) > 0 {
		firstTOC = offset
	}
	for i, id := range ids {
		entries := tables[i]
		dataSize := tocEntrySize * len(entries)
		next := 0
		if i < len(ids)-1 {
			next = offset + tocHeaderSize + dataSize
		}
		for _, v := range []uint32{uint32(int32(dataSize - 8)), tocMagic, id, uint32(next), uint32(len(entries))} {
			if err := body.WriteUint32(v); err != nil {
				return nil, err
			}
		}
		for _, e := range entries {
			for _, v := range []uint32{e.key, e.valueOffset, 0} {
				if err := body.WriteUint32(v); err != nil {
					return nil, err
				}
			}
		}
		offset += tocHeaderSize + dataSize
	}

	w := types.NewBufferWriter(binary.LittleEndian)
	if err := w.WriteFourCC(magicBook); err != nil {
		return nil, err
	}
	for _, v := range []uint32{uint32(offset + writtenHeaderSize), writtenReserved, writtenHeaderSize} {
		if err := w.WriteUint32(v); err != nil {
			return nil, err
		}
	}
	if err := w.WriteZeros(writtenHeaderSize - minHeaderSize); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(firstTOC)); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(body.Bytes()); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writeValueHeader(w *types.BinaryWriter, length int, typeCode uint32) error {
	if err := w.WriteUint32(uint32(length)); err != nil {
		return err
	}
	return w.WriteUint32(typeCode)
}

// encodeItem encodes one value as it will sit at offset, padded to 4 bytes.
// Container values embed their elements directly after their own offset table.
func encodeItem(item any, offset int) ([]byte, error) {
	w := types.NewBufferWriter(binary.LittleEndian)
	var err error

	switch v := item.(type) {
	case nil:
		err = writeValueHeader(w, 0, typeNull|subtypeOne)
	case bool:
		sub := uint32(subtypeFalse)
		if v {
			sub = subtypeTrue
		}
		err = writeValueHeader(w, 0, typeBoolean|sub)
	case string:
		if err = writeValueHeader(w, len(v), typeString|subtypeOne); err == nil {
			err = w.WriteString(v)
		}
	case types.Blob:
		if err = writeValueHeader(w, len(v), typeData|subtypeOne); err == nil {
			err = w.WriteBytes(v)
		}
	case []byte:
		return encodeItem(types.Blob(v), offset)
	case int8:
		if err = writeValueHeader(w, 1, typeNumber|subtypeSInt8); err == nil {
			err = w.WriteInt8(v)
		}
	case int16:
		if err = writeValueHeader(w, 2, typeNumber|subtypeSInt16); err == nil {
			err = w.WriteInt16(v)
		}
	case int32:
		if err = writeValueHeader(w, 4, typeNumber|subtypeSInt32); err == nil {
			err = w.WriteInt32(v)
		}
	case int64:
		if err = writeValueHeader(w, 8, typeNumber|subtypeSInt64); err == nil {
			err = w.WriteInt64(v)
		}
	case int:
		return encodeItem(int64(v), offset)
	case float32:
		if err = writeValueHeader(w, 4, typeNumber|subtypeFloat32); err == nil {
			err = w.WriteFloat32(v)
		}
	case float64:
		if err = writeValueHeader(w, 8, typeNumber|subtypeFloat64); err == nil {
			err = w.WriteFloat64(v)
		}
	case time.Time:
		// dates are big-endian doubles
		if err = writeValueHeader(w, 8, typeDate); err == nil {
			err = w.WriteFloat64BE(types.CFTimeToSeconds(v))
		}
	case uuid.UUID:
		if err = writeValueHeader(w, len(v), typeUUID|subtypeOne); err == nil {
			err = w.WriteBytes(v[:])
		}
	case AbsoluteURL:
		if err = writeValueHeader(w, len(v), typeURL|subtypeURLAbsolute); err == nil {
			err = w.WriteString(string(v))
		}
	case RelativeURL:
		if v.Base == nil {
			return nil, fmt.Errorf("%w: relative URL %q has no base", types.ErrFormat, v.Relative)
		}
		baseOffset := offset + 16
		base, err := encodeItem(v.Base, baseOffset)
		if err != nil {
			return nil, err
		}
		relOffset := baseOffset + len(base)
		rel, err := encodeItem(v.Relative, relOffset)
		if err != nil {
			return nil, err
		}
		if err := writeValueHeader(w, 8, typeURL|subtypeURLRelative); err != nil {
			return nil, err
		}
		if err := w.WriteUint32(uint32(baseOffset)); err != nil {
			return nil, err
		}
		if err := w.WriteUint32(uint32(relOffset)); err != nil {
			return nil, err
		}
		if err := w.WriteBytes(base); err != nil {
			return nil, err
		}
		if err := w.WriteBytes(rel); err != nil {
			return nil, err
		}
	case []any:
		err = encodeContainer(w, typeArray, offset, v)
	case Dict:
		flat := make([]any, 0, 2*len(v))
		for _, e := range v {
			flat = append(flat, e.Key, e.Value)
		}
		err = encodeContainer(w, typeDict, offset, flat)
	case Unrecognised:
		if err = writeValueHeader(w, len(v.Data), v.TypeCode); err == nil {
			err = w.WriteBytes(v.Data)
		}
	default:
		return nil, fmt.Errorf("%w: cannot encode %T in a bookmark", types.ErrUnsupported, item)
	}
	if err != nil {
		return nil, err
	}
	if err := w.Align(4); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// encodeContainer writes an offset table for elements followed by the elements.
// Dictionaries pass keys and values interleaved.
func encodeContainer(w *types.BinaryWriter, typeCode uint32, offset int, elements []any) error {
	elementOffset := offset + valueHeaderSize + 4*len(elements)
	offsets := make([]uint32, 0, len(elements))
	encoded := make([][]byte, 0, len(elements))
	for _, e := range elements {
		enc, err := encodeItem(e, elementOffset)
		if err != nil {
			return err
		}
		offsets = append(offsets, uint32(elementOffset))
		encoded = append(encoded, enc)
		elementOffset += len(enc)
	}
	if err := writeValueHeader(w, 4*len(elements), typeCode|subtypeOne); err != nil {
		return err
	}
	for _, o := range offsets {
		if err := w.WriteUint32(o); err != nil {
			return err
		}
	}
	for _, enc := range encoded {
		if err := w.WriteBytes(enc); err != nil {
			return err
		}
	}
	return nil
}

type header struct {
	magic      types.FourCC
	size       uint32
	reserved   uint32
	headerSize uint32
}

func readHeader(r *types.BinaryReader) (header, error) {
	var h header
	var err error
	if h.magic, err = r.ReadFourCC(); err != nil {
		return h, err
	}
	if h.size, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.reserved, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.headerSize, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.magic != magicBook && h.magic != magicAlis {
		return h, fmt.Errorf("%w: not a bookmark (bad magic %s)", types.ErrFormat, h.magic)
	}
	if h.headerSize < minHeaderSize {
		return h, fmt.Errorf("%w: bookmark header size %d is too short", types.ErrFormat, h.headerSize)
	}
	return h, nil
}

type decoder struct {
	data []byte
	base int
}

// Decode parses a bookmark
func Decode(data []byte) (*Bookmark, error) {
	if len(data) < minHeaderSize {
		return nil, fmt.Errorf("%w: bookmark of %d bytes is shorter than its header", types.ErrFormat, len(data))
	}
	r := types.NewBinaryReader(data, binary.LittleEndian)
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	size := int(h.size)
	base := int(h.headerSize)
	if size > len(data) {
		return nil, fmt.Errorf("%w: bookmark declares %d bytes but has %d", types.ErrFormat, size, len(data))
	}
	if base+4 > size {
		return nil, fmt.Errorf("%w: bookmark header size %d exceeds total size %d", types.ErrFormat, base, size)
	}

	data = data[:size]
	r = types.NewBinaryReader(data, binary.LittleEndian)
	d := &decoder{data: data, base: base}

	if err := r.Seek(base); err != nil {
		return nil, err
	}
	tocOffset, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	tocs := make(map[uint32]map[TocKey]any)
	visited := make(map[uint32]bool)
	for tocOffset != 0 {
		if visited[tocOffset] {
			return nil, fmt.Errorf("%w: TOC chain revisits offset %d", types.ErrFormat, tocOffset)
		}
		visited[tocOffset] = true

		tocBase := base + int(tocOffset)
		if int(tocOffset) > size-base || size-tocBase < tocHeaderSize {
			return nil, fmt.Errorf("%w: TOC offset %d out of range", types.ErrFormat, tocOffset)
		}
		if err := r.Seek(tocBase); err != nil {
			return nil, err
		}
		var fields [5]uint32
		for i := range fields {
			if fields[i], err = r.ReadUint32(); err != nil {
				return nil, err
			}
		}
		sizeField, magic, tocID, next, count := fields[0], fields[1], fields[2], fields[3], fields[4]
		if magic != tocMagic {
			break
		}

		tocSize := int(int32(sizeField)) + 8
		if size-tocBase < tocSize {
			return nil, fmt.Errorf("%w: TOC %d truncated", types.ErrFormat, tocID)
		}
		if int64(tocSize) < int64(tocEntrySize)*int64(count) {
			return nil, fmt.Errorf("%w: TOC %d entries overrun its size", types.ErrFormat, tocID)
		}

		toc := make(map[TocKey]any, count)
		for n := 0; n < int(count); n++ {
			if err := r.Seek(tocBase + tocHeaderSize + tocEntrySize*n); err != nil {
				return nil, fmt.Errorf("failed to read TOC %d entry %d: %w", tocID, n, err)
			}
			encodedKey, err := r.ReadUint32()
			if err != nil {
				return nil, fmt.Errorf("failed to read TOC %d entry %d: %w", tocID, n, err)
			}
			valueOffset, err := r.ReadUint32()
			if err != nil {
				return nil, fmt.Errorf("failed to read TOC %d entry %d: %w", tocID, n, err)
			}

			var key TocKey = IntKey(encodedKey)
			if encodedKey&stringKeyFlag != 0 {
				k, err := d.value(encodedKey&^stringKeyFlag, 0)
				if err != nil {
					return nil, fmt.Errorf("failed to read TOC %d key: %w", tocID, err)
				}
				s, ok := k.(string)
				if !ok {
					return nil, fmt.Errorf("%w: TOC %d key is a %T, not a string", types.ErrFormat, tocID, k)
				}
				key = StringKey(s)
			}
			value, err := d.value(valueOffset, 0)
			if err != nil {
				return nil, fmt.Errorf("failed to read TOC %d value for %s: %w", tocID, KeyName(key), err)
			}
			toc[key] = value
		}
		tocs[tocID] = toc
		tocOffset = next
	}

	return &Bookmark{TOCs: tocs}, nil
}

func (d *decoder) value(offset uint32, depth int) (any, error) {
	if depth > maxValueDepth {
		return nil, fmt.Errorf("%w: bookmark values nested deeper than %d", types.ErrFormat, maxValueDepth)
	}
	pos := d.base + int(offset)
	if pos < d.base || pos > len(d.data)-valueHeaderSize {
		return nil, fmt.Errorf("%w: value offset %d out of range", types.ErrFormat, offset)
	}
	r := types.NewBinaryReader(d.data, binary.LittleEndian)
	if err := r.Seek(pos); err != nil {
		return nil, err
	}
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	typeCode, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int64(length) > int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: value at offset %d overruns the bookmark", types.ErrFormat, offset)
	}
	payload, err := r.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}
	p := types.NewBinaryReader(payload, binary.LittleEndian)

	sub := typeCode & subtypeMask
	switch typeCode & typeMask {
	case typeString:
		return string(payload), nil
	case typeData:
		return types.Blob(payload), nil
	case typeNumber:
		switch sub {
		case subtypeSInt8:
			return p.ReadInt8()
		case subtypeSInt16:
			return p.ReadInt16()
		case subtypeSInt32:
			return p.ReadInt32()
		case subtypeSInt64:
			return p.ReadInt64()
		case subtypeFloat32:
			return p.ReadFloat32()
		case subtypeFloat64:
			return p.ReadFloat64()
		}
	case typeDate:
		secs, err := p.ReadFloat64BE()
		if err != nil {
			return nil, err
		}
		return types.CFTimeFromSeconds(secs), nil
	case typeBoolean:
		switch sub {
		case subtypeTrue:
			return true, nil
		case subtypeFalse:
			return false, nil
		}
	case typeUUID:
		id, err := uuid.FromBytes(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: UUID of %d bytes", types.ErrFormat, len(payload))
		}
		return id, nil
	case typeURL:
		switch sub {
		case subtypeURLAbsolute:
			return AbsoluteURL(payload), nil
		case subtypeURLRelative:
			baseOffset, err := p.ReadUint32()
			if err != nil {
				return nil, err
			}
			relOffset, err := p.ReadUint32()
			if err != nil {
				return nil, err
			}
			base, err := d.value(baseOffset, depth+1)
			if err != nil {
				return nil, err
			}
			baseURL, ok := base.(URL)
			if !ok {
				return nil, fmt.Errorf("%w: relative URL base is a %T", types.ErrFormat, base)
			}
			rel, err := d.value(relOffset, depth+1)
			if err != nil {
				return nil, err
			}
			relStr, ok := rel.(string)
			if !ok {
				return nil, fmt.Errorf("%w: relative URL path is a %T", types.ErrFormat, rel)
			}
			return RelativeURL{Base: baseURL, Relative: relStr}, nil
		}
	case typeArray:
		n := int(length) / 4
		items := make([]any, 0, n)
		for i := 0; i < n; i++ {
			elementOffset, err := p.ReadUint32()
			if err != nil {
				return nil, err
			}
			item, err := d.value(elementOffset, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case typeDict:
		n := int(length) / 8
		dict := make(Dict, 0, n)
		for i := 0; i < n; i++ {
			keyOffset, err := p.ReadUint32()
			if err != nil {
				return nil, err
			}
			valueOffset, err := p.ReadUint32()
			if err != nil {
				return nil, err
			}
			key, err := d.value(keyOffset, depth+1)
			if err != nil {
				return nil, err
			}
			value, err := d.value(valueOffset, depth+1)
			if err != nil {
				return nil, err
			}
			dict = append(dict, DictEntry{Key: key, Value: value})
		}
		return dict, nil
	case typeNull:
		return nil, nil
	}

	return Unrecognised{TypeCode: typeCode, Data: types.Blob(payload)}, nil
}
