// Package codecs converts structured .DS_Store property values to and from
// the blobs stored in records.
package codecs

import (
	"fmt"
	"slices"

	"github.com/deploymenttheory/go-macfiles/internal/alias"
	"github.com/deploymenttheory/go-macfiles/internal/bookmark"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// Codec converts one property's structured value to and from a blob
type Codec interface {
	Decode(blob types.Blob) (any, error)
	Encode(value any) (types.Blob, error)
}

var registry = map[types.FourCC]Codec{
	types.PropBackgroundBookmark:   bookmarkCodec{},
	types.PropBackgroundAlias:      aliasCodec{},
	types.PropWindowSizeAndLayout:  browserWindowSettingsCodec{},
	types.PropIconLocation:         iconLocationCodec{},
	types.PropIconViewOptionsPList: iconViewOptionsCodec{},
}

// Find returns the codec registered for a property
func Find(propertyID types.FourCC) (Codec, bool) {
	c, ok := registry[propertyID]
	return c, ok
}

// Properties lists the properties that have a codec
func Properties() []types.FourCC {
	props := make([]types.FourCC, 0, len(registry))
	for p := range registry {
		props = append(props, p)
	}
	slices.Sort(props)
	return props
}

func unexpectedValue(want string, value any) error {
	return fmt.Errorf("%w: expected %s, got %T", types.ErrUnsupported, want, value)
}

type bookmarkCodec struct{}

func (bookmarkCodec) Decode(blob types.Blob) (any, error) {
	bm, err := bookmark.Decode(blob)
	if err != nil {
		return nil, err
	}
	return bm, nil
}

func (bookmarkCodec) Encode(value any) (types.Blob, error) {
	bm, ok := value.(*bookmark.Bookmark)
	if !ok {
		return nil, unexpectedValue("*bookmark.Bookmark", value)
	}
	return bm.Encode()
}

type aliasCodec struct{}

func (aliasCodec) Decode(blob types.Blob) (any, error) {
	a, err := alias.Decode(blob)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (aliasCodec) Encode(value any) (types.Blob, error) {
	a, ok := value.(*alias.Alias)
	if !ok {
		return nil, unexpectedValue("*alias.Alias", value)
	}
	return a.Encode()
}
