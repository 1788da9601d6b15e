package bookmark

import (
	"fmt"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// TocKey is a key of a table of contents: an IntKey or a StringKey
type TocKey interface {
	tocKey()
	String() string
}

// IntKey is a numeric TOC key, such as the standard keys in keys.go
type IntKey uint32

func (IntKey) tocKey() {}

func (k IntKey) String() string { return fmt.Sprintf("0x%04x", uint32(k)) }

// StringKey is a TOC key stored as a string value
type StringKey string

func (StringKey) tocKey() {}

func (k StringKey) String() string { return string(k) }

// URL is a bookmark URL value: AbsoluteURL or RelativeURL
type URL interface {
	url()
	String() string
}

// AbsoluteURL is a complete URL string
type AbsoluteURL string

func (AbsoluteURL) url() {}

func (u AbsoluteURL) String() string { return string(u) }

// RelativeURL is a path relative to a base URL
type RelativeURL struct {
	Base     URL
	Relative string
}

func (RelativeURL) url() {}

func (u RelativeURL) String() string {
	if u.Base == nil {
		return u.Relative
	}
	return u.Base.String() + u.Relative
}

// DictEntry is one key/value pair of a Dict
type DictEntry struct {
	Key   any
	Value any
}

// Dict is a dictionary value. Pairs keep their stored order.
type Dict []DictEntry

// Lookup returns the value stored for key
func (d Dict) Lookup(key any) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Unrecognised holds a value whose type code is not understood
type Unrecognised struct {
	TypeCode uint32
	Data     types.Blob
}
