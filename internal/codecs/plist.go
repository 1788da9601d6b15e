package codecs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"slices"

	"howett.net/plist"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// plistDict is a property list dictionary that remembers its key order.
// A dictionary decoded from a blob keeps that blob until it is changed and
// encodes back to it byte for byte; otherwise the encoder writes the keys
// sorted. Numbers may come back from the decoder as any Go numeric kind.
type plistDict struct {
	keys   []string
	values map[string]any
	raw    types.Blob
}

func newPlistDict() *plistDict {
	return &plistDict{values: map[string]any{}}
}

func decodePlistDict(blob types.Blob) (*plistDict, error) {
	var values map[string]any
	if err := plist.NewDecoder(bytes.NewReader(blob)).Decode(&values); err != nil {
		return nil, fmt.Errorf("%w: property list: %v", types.ErrFormat, err)
	}
	if values == nil {
		values = map[string]any{}
	}

	keys, err := binaryPlistKeys(blob)
	if err != nil || !sameKeys(keys, values) {
		keys = make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		slices.Sort(keys)
	}
	return &plistDict{keys: keys, values: values, raw: slices.Clone(blob)}, nil
}

func sameKeys(keys []string, values map[string]any) bool {
	if len(keys) != len(values) {
		return false
	}
	for _, k := range keys {
		if _, ok := values[k]; !ok {
			return false
		}
	}
	return true
}

func (d *plistDict) encode() (types.Blob, error) {
	if d.raw != nil {
		return slices.Clone(d.raw), nil
	}
	var buf bytes.Buffer
	if err := plist.NewEncoderForFormat(&buf, plist.BinaryFormat).Encode(d.values); err != nil {
		return nil, fmt.Errorf("failed to encode property list: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *plistDict) set(key string, v any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
	d.raw = nil
}

func (d *plistDict) remove(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
	d.raw = nil
}

func (d *plistDict) clone() *plistDict {
	return &plistDict{keys: slices.Clone(d.keys), values: maps.Clone(d.values), raw: slices.Clone(d.raw)}
}

func (d *plistDict) boolValue(key string) (bool, bool) {
	switch v := d.values[key].(type) {
	case bool:
		return v, true
	case nil:
		return false, false
	}
	if n, ok := d.intValue(key); ok {
		return n != 0, true
	}
	return false, false
}

func (d *plistDict) intValue(key string) (int64, bool) {
	switch v := d.values[key].(type) {
	case int64:
		return v, true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	}
	return 0, false
}

func (d *plistDict) floatValue(key string) (float64, bool) {
	switch v := d.values[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	if n, ok := d.intValue(key); ok {
		return float64(n), true
	}
	return 0, false
}

func (d *plistDict) stringValue(key string) (string, bool) {
	v, ok := d.values[key].(string)
	return v, ok
}

func (d *plistDict) dataValue(key string) ([]byte, bool) {
	v, ok := d.values[key].([]byte)
	return v, ok
}

// binaryPlistKeys lists the keys of the top-level dictionary of a binary
// property list in the order they are stored.
func binaryPlistKeys(blob types.Blob) ([]string, error) {
	const trailerSize = 32
	if len(blob) < 8+trailerSize || !bytes.HasPrefix(blob, []byte("bplist")) {
		return nil, fmt.Errorf("%w: not a binary property list", types.ErrFormat)
	}
	r := types.NewBinaryReader(blob, binary.BigEndian)
	if err := r.Seek(len(blob) - trailerSize + 6); err != nil {
		return nil, err
	}
	offsetSize, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	refSize, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	objects, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	top, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	table, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	if offsetSize == 0 || offsetSize > 8 || refSize == 0 || refSize > 8 || table >= uint64(len(blob)) {
		return nil, fmt.Errorf("%w: bad binary property list trailer", types.ErrFormat)
	}

	seekObject := func(ref uint64) error {
		if ref >= objects || ref > (uint64(len(blob))-table)/uint64(offsetSize) {
			return fmt.Errorf("%w: object %d out of range", types.ErrFormat, ref)
		}
		if err := r.Seek(int(table + ref*uint64(offsetSize))); err != nil {
			return err
		}
		off, err := readSizedUint(r, int(offsetSize))
		if err != nil {
			return err
		}
		if off >= table {
			return fmt.Errorf("%w: object %d at offset %d", types.ErrFormat, ref, off)
		}
		return r.Seek(int(off))
	}

	if err := seekObject(top); err != nil {
		return nil, err
	}
	marker, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if marker>>4 != 0xD {
		return nil, fmt.Errorf("%w: top object is not a dictionary", types.ErrFormat)
	}
	count, err := readObjectCount(r, marker)
	if err != nil {
		return nil, err
	}
	if count > uint64(r.Remaining())/uint64(refSize) {
		return nil, fmt.Errorf("%w: dictionary of %d entries overruns data", types.ErrFormat, count)
	}
	refs := make([]uint64, count)
	for i := range refs {
		if refs[i], err = readSizedUint(r, int(refSize)); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, count)
	for _, ref := range refs {
		if err := seekObject(ref); err != nil {
			return nil, err
		}
		marker, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		n, err := readObjectCount(r, marker)
		if err != nil {
			return nil, err
		}
		if n > uint64(r.Remaining()) {
			return nil, fmt.Errorf("%w: key of %d characters overruns data", types.ErrFormat, n)
		}
		var key string
		switch marker >> 4 {
		case 0x5:
			key, err = r.ReadString(int(n))
		case 0x6:
			key, err = r.ReadUTF16BE(int(n))
		default:
			return nil, fmt.Errorf("%w: dictionary key is not a string", types.ErrFormat)
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// readObjectCount reads the length nibble of marker, or the integer object
// that follows it when the nibble is 0xF
func readObjectCount(r *types.BinaryReader, marker uint8) (uint64, error) {
	if marker&0x0F != 0x0F {
		return uint64(marker & 0x0F), nil
	}
	m, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	if m>>4 != 0x1 || m&0x0F > 3 {
		return 0, fmt.Errorf("%w: bad object length marker 0x%02x", types.ErrFormat, m)
	}
	return readSizedUint(r, 1<<(m&0x0F))
}

func readSizedUint(r *types.BinaryReader, n int) (uint64, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}
