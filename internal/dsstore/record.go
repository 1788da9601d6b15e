package dsstore

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/deploymenttheory/go-macfiles/internal/codecs"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// RecordKey identifies a record: a filename and a property
type RecordKey struct {
	Filename   string
	PropertyID types.FourCC
}

// Record is one entry of the store. Value holds the payload as stored:
// int32, int16, bool, types.FourCC, types.Blob, string, int64 or time.Time.
type Record struct {
	Filename   string
	PropertyID types.FourCC
	TypeID     types.FourCC
	Value      any
}

// NewRecord builds a record, picking the value type from the Go type of value.
// Structured values are encoded to a blob by the codec registered for propertyID.
func NewRecord(filename string, propertyID types.FourCC, value any) (*Record, error) {
	if !propertyID.Valid() {
		return nil, fmt.Errorf("%w: property %q is not a four character code", types.ErrFormat, string(propertyID))
	}
	if typeID, v, ok := typeForValue(value); ok {
		return &Record{Filename: filename, PropertyID: propertyID, TypeID: typeID, Value: v}, nil
	}

	codec, ok := codecs.Find(propertyID)
	if !ok {
		return nil, fmt.Errorf("%w: no codec for %T values of property %s", types.ErrUnsupported, value, propertyID)
	}
	blob, err := codec.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s value: %w", propertyID, err)
	}
	return &Record{Filename: filename, PropertyID: propertyID, TypeID: TypeBlob, Value: blob}, nil
}

// Key returns the ordering key of the record
func (r *Record) Key() RecordKey {
	return RecordKey{Filename: r.Filename, PropertyID: r.PropertyID}
}

// CompareKey orders the record against key: filenames case-insensitively, then property codes
func (r *Record) CompareKey(key RecordKey) int {
	return CompareKeys(r.Key(), key)
}

// CompareKeys orders two record keys
func CompareKeys(a, b RecordKey) int {
	if c := compareFilenames(a.Filename, b.Filename); c != 0 {
		return c
	}
	return strings.Compare(string(a.PropertyID), string(b.PropertyID))
}

// compareFilenames compares UTF-16 code units ignoring case, then by length
func compareFilenames(a, b string) int {
	ua, ub := types.UTF16Units(a), types.UTF16Units(b)
	for i := 0; i < min(len(ua), len(ub)); i++ {
		c1, c2 := ua[i], ub[i]
		if c1 == c2 {
			continue
		}
		c1, c2 = toUpperUnit(c1), toUpperUnit(c2)
		if c1 != c2 {
			c1, c2 = toLowerUnit(c1), toLowerUnit(c2)
			if c1 != c2 {
				return int(c1) - int(c2)
			}
		}
	}
	return len(ua) - len(ub)
}

func toUpperUnit(c uint16) uint16 {
	if utf16.IsSurrogate(rune(c)) {
		return c
	}
	if u := unicode.ToUpper(rune(c)); u <= 0xFFFF {
		return uint16(u)
	}
	return c
}

func toLowerUnit(c uint16) uint16 {
	if utf16.IsSurrogate(rune(c)) {
		return c
	}
	if l := unicode.ToLower(rune(c)); l <= 0xFFFF {
		return uint16(l)
	}
	return c
}

// DecodeValue returns the value, decoding blobs for properties with a registered codec
func (r *Record) DecodeValue() (any, error) {
	blob, ok := r.Value.(types.Blob)
	if !ok {
		return r.Value, nil
	}
	codec, ok := codecs.Find(r.PropertyID)
	if !ok {
		return blob, nil
	}
	v, err := codec.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s value of %q: %w", r.PropertyID, r.Filename, err)
	}
	return v, nil
}

// CalculateSize returns the exact encoded size of the record
func (r *Record) CalculateSize() int {
	return 12 + 2*types.UTF16Len(r.Filename) + valueSize(r.TypeID, r.Value)
}

func (r *Record) encode(w *types.BinaryWriter) error {
	if err := w.WriteUint32(uint32(types.UTF16Len(r.Filename))); err != nil {
		return err
	}
	if err := w.WriteUTF16BE(r.Filename); err != nil {
		return err
	}
	if err := w.WriteFourCC(r.PropertyID); err != nil {
		return err
	}
	if err := w.WriteFourCC(r.TypeID); err != nil {
		return err
	}
	if err := writeValue(w, r.TypeID, r.Value); err != nil {
		return fmt.Errorf("failed to write value of %q %s: %w", r.Filename, r.PropertyID, err)
	}
	return nil
}

func decodeRecord(r *types.BinaryReader) (*Record, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read filename length: %w", err)
	}
	if int64(n)*2 > int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: filename of %d units overruns node", types.ErrFormat, n)
	}
	rec := &Record{}
	if rec.Filename, err = r.ReadUTF16BE(int(n)); err != nil {
		return nil, fmt.Errorf("failed to read filename: %w", err)
	}
	if rec.PropertyID, err = r.ReadFourCC(); err != nil {
		return nil, fmt.Errorf("failed to read property code: %w", err)
	}
	if rec.TypeID, err = r.ReadFourCC(); err != nil {
		return nil, fmt.Errorf("failed to read type code: %w", err)
	}
	if rec.Value, err = readValue(r, rec.TypeID); err != nil {
		return nil, fmt.Errorf("failed to read value of %q %s: %w", rec.Filename, rec.PropertyID, err)
	}
	return rec, nil
}

// Encode serialises the record on its own
func (r *Record) Encode() ([]byte, error) {
	w := types.NewBinaryWriter(make([]byte, r.CalculateSize()), binary.BigEndian)
	if err := r.encode(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeRecord parses a single serialised record
func DecodeRecord(data []byte) (*Record, error) {
	return decodeRecord(types.NewBinaryReader(data, binary.BigEndian))
}
