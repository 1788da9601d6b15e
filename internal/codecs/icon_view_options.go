package codecs

import (
	"fmt"
	"maps"
	"slices"

	"github.com/deploymenttheory/go-macfiles/internal/alias"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// Keys of the icvp property list
const (
	keyViewOptionsVersion   = "viewOptionsVersion"
	keyBackgroundType       = "backgroundType"
	keyBackgroundImageAlias = "backgroundImageAlias"
	keyBackgroundColorRed   = "backgroundColorRed"
	keyBackgroundColorGreen = "backgroundColorGreen"
	keyBackgroundColorBlue  = "backgroundColorBlue"
	keyGridOffsetX          = "gridOffsetX"
	keyGridOffsetY          = "gridOffsetY"
	keyGridSpacing          = "gridSpacing"
	keyArrangeBy            = "arrangeBy"
	keyShowIconPreview      = "showIconPreview"
	keyShowItemInfo         = "showItemInfo"
	keyLabelOnBottom        = "labelOnBottom"
	keyTextSize             = "textSize"
	keyIconSize             = "iconSize"
	keyScrollPositionX      = "scrollPositionX"
	keyScrollPositionY      = "scrollPositionY"
)

// Background types stored under backgroundType
const (
	BackgroundDefault int64 = 0
	BackgroundColor   int64 = 1
	BackgroundImage   int64 = 2
)

// IconViewOptions is the decoded icvp property
type IconViewOptions struct {
	dict *plistDict
}

// DecodeIconViewOptions parses an icvp blob
func DecodeIconViewOptions(blob types.Blob) (*IconViewOptions, error) {
	dict, err := decodePlistDict(blob)
	if err != nil {
		return nil, err
	}
	return &IconViewOptions{dict: dict}, nil
}

// Encode writes the options as a binary property list
func (o *IconViewOptions) Encode() (types.Blob, error) {
	return o.dict.encode()
}

// Dict returns a copy of the underlying dictionary
func (o *IconViewOptions) Dict() map[string]any {
	return maps.Clone(o.dict.values)
}

// Keys returns the dictionary keys in stored order
func (o *IconViewOptions) Keys() []string {
	return slices.Clone(o.dict.keys)
}

// ViewOptionsVersion is the format version of the dictionary, 1 for current Finder
func (o *IconViewOptions) ViewOptionsVersion() (int64, bool) {
	return o.dict.intValue(keyViewOptionsVersion)
}

// BackgroundType is one of BackgroundDefault, BackgroundColor or BackgroundImage
func (o *IconViewOptions) BackgroundType() (int64, bool) {
	return o.dict.intValue(keyBackgroundType)
}

// BackgroundImageAlias decodes the alias of the background image, or
// returns nil when none is set
func (o *IconViewOptions) BackgroundImageAlias() (*alias.Alias, error) {
	data, ok := o.dict.dataValue(keyBackgroundImageAlias)
	if !ok {
		return nil, nil
	}
	a, err := alias.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode background image alias: %w", err)
	}
	return a, nil
}

// BackgroundColor is reported only when all three components are present
func (o *IconViewOptions) BackgroundColor() (types.DoubleRgbColor, bool) {
	r, okR := o.dict.floatValue(keyBackgroundColorRed)
	g, okG := o.dict.floatValue(keyBackgroundColorGreen)
	b, okB := o.dict.floatValue(keyBackgroundColorBlue)
	if !okR || !okG || !okB {
		return types.DoubleRgbColor{}, false
	}
	return types.DoubleRgbColor{Red: r, Green: g, Blue: b}, true
}

// GridOffset is the offset of the icon grid from the window origin
func (o *IconViewOptions) GridOffset() (types.IntPoint, bool) {
	x, okX := o.dict.intValue(keyGridOffsetX)
	y, okY := o.dict.intValue(keyGridOffsetY)
	if !okX || !okY {
		return types.IntPoint{}, false
	}
	return types.IntPoint{X: int32(x), Y: int32(y)}, true
}

// GridSpacing is the distance between grid lines in points
func (o *IconViewOptions) GridSpacing() (float64, bool) {
	return o.dict.floatValue(keyGridSpacing)
}

// ArrangeBy is the sort order of the icons
func (o *IconViewOptions) ArrangeBy() (string, bool) {
	return o.dict.stringValue(keyArrangeBy)
}

// ShowIconPreview reports whether icons show a preview of file contents
func (o *IconViewOptions) ShowIconPreview() (bool, bool) {
	return o.dict.boolValue(keyShowIconPreview)
}

// ShowItemInfo reports whether item details are shown under the label
func (o *IconViewOptions) ShowItemInfo() (bool, bool) {
	return o.dict.boolValue(keyShowItemInfo)
}

// LabelOnBottom reports whether labels sit below icons rather than beside them
func (o *IconViewOptions) LabelOnBottom() (bool, bool) {
	return o.dict.boolValue(keyLabelOnBottom)
}

// TextSize is the label font size in points
func (o *IconViewOptions) TextSize() (float64, bool) {
	return o.dict.floatValue(keyTextSize)
}

// IconSize is the icon edge length in points
func (o *IconViewOptions) IconSize() (float64, bool) {
	return o.dict.floatValue(keyIconSize)
}

// ScrollPosition is the scroll offset of the window contents
func (o *IconViewOptions) ScrollPosition() (types.DoublePoint, bool) {
	x, okX := o.dict.floatValue(keyScrollPositionX)
	y, okY := o.dict.floatValue(keyScrollPositionY)
	if !okX || !okY {
		return types.DoublePoint{}, false
	}
	return types.DoublePoint{X: x, Y: y}, true
}

// IconViewOptionsBuilder assembles IconViewOptions, starting from
// viewOptionsVersion 1 and nothing else.
type IconViewOptionsBuilder struct {
	dict *plistDict
	err  error
}

// NewIconViewOptionsBuilder starts a builder holding only viewOptionsVersion 1
func NewIconViewOptionsBuilder() *IconViewOptionsBuilder {
	dict := newPlistDict()
	dict.set(keyViewOptionsVersion, int64(1))
	return &IconViewOptionsBuilder{dict: dict}
}

// SetViewOptionsVersion sets viewOptionsVersion
func (b *IconViewOptionsBuilder) SetViewOptionsVersion(v int64) *IconViewOptionsBuilder {
	b.dict.set(keyViewOptionsVersion, v)
	return b
}

// SetBackgroundType sets backgroundType
func (b *IconViewOptionsBuilder) SetBackgroundType(v int64) *IconViewOptionsBuilder {
	b.dict.set(keyBackgroundType, v)
	return b
}

// SetBackgroundImageAlias stores the encoded alias of the background image
func (b *IconViewOptionsBuilder) SetBackgroundImageAlias(a *alias.Alias) *IconViewOptionsBuilder {
	if a == nil {
		b.dict.remove(keyBackgroundImageAlias)
		return b
	}
	data, err := a.Encode()
	if err != nil {
		b.err = fmt.Errorf("failed to encode background image alias: %w", err)
		return b
	}
	b.dict.set(keyBackgroundImageAlias, []byte(data))
	return b
}

// SetBackgroundColor sets the three background colour components
func (b *IconViewOptionsBuilder) SetBackgroundColor(c types.DoubleRgbColor) *IconViewOptionsBuilder {
	b.dict.set(keyBackgroundColorRed, c.Red)
	b.dict.set(keyBackgroundColorGreen, c.Green)
	b.dict.set(keyBackgroundColorBlue, c.Blue)
	return b
}

// SetGridOffset sets gridOffsetX and gridOffsetY
func (b *IconViewOptionsBuilder) SetGridOffset(p types.IntPoint) *IconViewOptionsBuilder {
	b.dict.set(keyGridOffsetX, int64(p.X))
	b.dict.set(keyGridOffsetY, int64(p.Y))
	return b
}

// SetGridSpacing sets gridSpacing
func (b *IconViewOptionsBuilder) SetGridSpacing(v float64) *IconViewOptionsBuilder {
	b.dict.set(keyGridSpacing, v)
	return b
}

// SetArrangeBy sets the sort order, e.g. "none", "name" or "dateModified"
func (b *IconViewOptionsBuilder) SetArrangeBy(v string) *IconViewOptionsBuilder {
	b.dict.set(keyArrangeBy, v)
	return b
}

// SetShowIconPreview sets showIconPreview
func (b *IconViewOptionsBuilder) SetShowIconPreview(v bool) *IconViewOptionsBuilder {
	b.dict.set(keyShowIconPreview, v)
	return b
}

// SetShowItemInfo sets showItemInfo
func (b *IconViewOptionsBuilder) SetShowItemInfo(v bool) *IconViewOptionsBuilder {
	b.dict.set(keyShowItemInfo, v)
	return b
}

// SetLabelOnBottom sets labelOnBottom
func (b *IconViewOptionsBuilder) SetLabelOnBottom(v bool) *IconViewOptionsBuilder {
	b.dict.set(keyLabelOnBottom, v)
	return b
}

// SetTextSize sets textSize
func (b *IconViewOptionsBuilder) SetTextSize(v float64) *IconViewOptionsBuilder {
	b.dict.set(keyTextSize, v)
	return b
}

// SetIconSize sets iconSize
func (b *IconViewOptionsBuilder) SetIconSize(v float64) *IconViewOptionsBuilder {
	b.dict.set(keyIconSize, v)
	return b
}

// SetScrollPosition sets scrollPositionX and scrollPositionY
func (b *IconViewOptionsBuilder) SetScrollPosition(p types.DoublePoint) *IconViewOptionsBuilder {
	b.dict.set(keyScrollPositionX, p.X)
	b.dict.set(keyScrollPositionY, p.Y)
	return b
}

// Build returns the options, or the first error a setter ran into
func (b *IconViewOptionsBuilder) Build() (*IconViewOptions, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &IconViewOptions{dict: b.dict.clone()}, nil
}

type iconViewOptionsCodec struct{}

func (iconViewOptionsCodec) Decode(blob types.Blob) (any, error) {
	o, err := DecodeIconViewOptions(blob)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (iconViewOptionsCodec) Encode(value any) (types.Blob, error) {
	o, ok := value.(*IconViewOptions)
	if !ok {
		return nil, unexpectedValue("*codecs.IconViewOptions", value)
	}
	return o.Encode()
}
