package dsstore

import (
	"fmt"
	"time"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// Value type codes as stored in a record
const (
	TypeLong          types.FourCC = "long" // int32
	TypeShort         types.FourCC = "shor" // int16, stored in four bytes
	TypeBool          types.FourCC = "bool" // one byte
	TypeType          types.FourCC = "type" // four character code
	TypeBlob          types.FourCC = "blob" // length-prefixed bytes
	TypeUnicodeString types.FourCC = "ustr" // length-prefixed UTF-16BE
	TypeComp          types.FourCC = "comp" // int64
	TypeDateUTC       types.FourCC = "dutc" // 1/65536 seconds since 1904
)

// typeForValue maps a Go value onto a built-in value type. []byte is
// normalised to types.Blob. ok is false for values that need a codec.
func typeForValue(value any) (typeID types.FourCC, normalised any, ok bool) {
	switch v := value.(type) {
	case int32:
		return TypeLong, v, true
	case int16:
		return TypeShort, v, true
	case bool:
		return TypeBool, v, true
	case types.FourCC:
		return TypeType, v, true
	case types.Blob:
		return TypeBlob, v, true
	case []byte:
		return TypeBlob, types.Blob(v), true
	case string:
		return TypeUnicodeString, v, true
	case int64:
		return TypeComp, v, true
	case time.Time:
		return TypeDateUTC, v, true
	}
	return "", nil, false
}

// checkRecord returns a copy of rec whose value is normalised, or an error
// when the value cannot be stored under rec.TypeID
func checkRecord(rec *Record) (*Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", types.ErrFormat)
	}
	if !rec.PropertyID.Valid() {
		return nil, fmt.Errorf("%w: property %q is not a four character code", types.ErrFormat, string(rec.PropertyID))
	}
	typeID, v, ok := typeForValue(rec.Value)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a stored value type", types.ErrFormat, rec.Value)
	}
	if typeID != rec.TypeID {
		return nil, mismatch(rec.TypeID, rec.Value)
	}
	checked := *rec
	checked.Value = v
	return &checked, nil
}

func mismatch(typeID types.FourCC, value any) error {
	return fmt.Errorf("%w: %T value does not match type %q", types.ErrFormat, value, string(typeID))
}

// valueSize returns the encoded payload size, or 0 when value does not fit typeID
func valueSize(typeID types.FourCC, value any) int {
	switch typeID {
	case TypeLong, TypeShort, TypeType:
		return 4
	case TypeBool:
		return 1
	case TypeBlob:
		if blob, ok := value.(types.Blob); ok {
			return 4 + len(blob)
		}
	case TypeUnicodeString:
		if s, ok := value.(string); ok {
			return 4 + 2*types.UTF16Len(s)
		}
	case TypeComp, TypeDateUTC:
		return 8
	}
	return 0
}

func writeValue(w *types.BinaryWriter, typeID types.FourCC, value any) error {
	switch typeID {
	case TypeLong:
		if v, ok := value.(int32); ok {
			return w.WriteInt32(v)
		}
	case TypeShort:
		if v, ok := value.(int16); ok {
			return w.WriteInt32(int32(v))
		}
	case TypeBool:
		if v, ok := value.(bool); ok {
			if v {
				return w.WriteUint8(1)
			}
			return w.WriteUint8(0)
		}
	case TypeType:
		if v, ok := value.(types.FourCC); ok {
			return w.WriteFourCC(v)
		}
	case TypeBlob:
		if blob, ok := value.(types.Blob); ok {
			if err := w.WriteUint32(uint32(len(blob))); err != nil {
				return err
			}
			return w.WriteBytes(blob)
		}
	case TypeUnicodeString:
		if s, ok := value.(string); ok {
			if err := w.WriteUint32(uint32(types.UTF16Len(s))); err != nil {
				return err
			}
			return w.WriteUTF16BE(s)
		}
	case TypeComp:
		if v, ok := value.(int64); ok {
			return w.WriteInt64(v)
		}
	case TypeDateUTC:
		if v, ok := value.(time.Time); ok {
			return w.WriteInt64(types.MacTimeToHiRes(v))
		}
	default:
		return fmt.Errorf("%w: unknown value type %s", types.ErrFormat, typeID)
	}
	return mismatch(typeID, value)
}

func readValue(r *types.BinaryReader, typeID types.FourCC) (any, error) {
	switch typeID {
	case TypeLong:
		return r.ReadInt32()
	case TypeShort:
		v, err := r.ReadInt32()
		return int16(v), err
	case TypeBool:
		v, err := r.ReadUint8()
		return v != 0, err
	case TypeType:
		return r.ReadFourCC()
	case TypeBlob:
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if int64(n) > int64(r.Remaining()) {
			return nil, fmt.Errorf("%w: blob of %d bytes overruns node", types.ErrFormat, n)
		}
		b, err := r.ReadBytes(int(n))
		return types.Blob(b), err
	case TypeUnicodeString:
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if int64(n)*2 > int64(r.Remaining()) {
			return nil, fmt.Errorf("%w: string of %d units overruns node", types.ErrFormat, n)
		}
		return r.ReadUTF16BE(int(n))
	case TypeComp:
		return r.ReadInt64()
	case TypeDateUTC:
		v, err := r.ReadInt64()
		if err != nil {
			return nil, err
		}
		return types.MacTimeFromHiRes(v), nil
	}
	return nil, fmt.Errorf("%w: unknown value type %s", types.ErrFormat, typeID)
}
