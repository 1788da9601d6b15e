package services

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deploymenttheory/go-macfiles/internal/alias"
	"github.com/deploymenttheory/go-macfiles/internal/bookmark"
	"github.com/deploymenttheory/go-macfiles/internal/codecs"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// ErrInvalidValue is returned for value arguments that cannot be parsed
var ErrInvalidValue = errors.New("invalid value")

// maxBlobDisplay is the number of blob bytes shown before truncating
const maxBlobDisplay = 32

// ParseValue converts a "kind:text" argument into a record value.
//
// Kinds are long, shor, bool, type, ustr, comp, blob (hex), dutc (RFC 3339)
// and Iloc (x,y).
func ParseValue(arg string) (any, error) {
	kind, text, ok := strings.Cut(arg, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no kind prefix", ErrInvalidValue, arg)
	}

	var (
		value any
		err   error
	)
	switch kind {
	case "long":
		var n int64
		n, err = strconv.ParseInt(text, 10, 32)
		value = int32(n)
	case "shor":
		var n int64
		n, err = strconv.ParseInt(text, 10, 16)
		value = int16(n)
	case "bool":
		value, err = strconv.ParseBool(text)
	case "type":
		value, err = types.ParseFourCC(text)
	case "ustr":
		value = text
	case "comp":
		value, err = strconv.ParseInt(text, 10, 64)
	case "blob":
		var b []byte
		b, err = hex.DecodeString(text)
		value = types.Blob(b)
	case "dutc":
		value, err = time.Parse(time.RFC3339, text)
	case "Iloc":
		value, err = parsePoint(text)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidValue, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s value %q: %v", ErrInvalidValue, kind, text, err)
	}
	return value, nil
}

func parsePoint(text string) (types.IntPoint, error) {
	xs, ys, ok := strings.Cut(text, ",")
	if !ok {
		return types.IntPoint{}, errors.New("expected x,y")
	}
	x, err := strconv.ParseInt(strings.TrimSpace(xs), 10, 32)
	if err != nil {
		return types.IntPoint{}, err
	}
	y, err := strconv.ParseInt(strings.TrimSpace(ys), 10, 32)
	if err != nil {
		return types.IntPoint{}, err
	}
	return types.IntPoint{X: int32(x), Y: int32(y)}, nil
}

// FormatValue renders a decoded value on one line
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case bool:
		return strconv.FormatBool(v)
	case string:
		return strconv.Quote(v)
	case types.FourCC:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case types.Blob:
		if len(v) > maxBlobDisplay {
			return fmt.Sprintf("%s... (%d bytes)", hex.EncodeToString(v[:maxBlobDisplay]), len(v))
		}
		return hex.EncodeToString(v)
	case types.IntPoint:
		return fmt.Sprintf("(%d, %d)", v.X, v.Y)
	case *codecs.BrowserWindowSettings:
		bounds, _ := v.WindowBounds()
		sidebar, _ := v.ShowSidebar()
		return fmt.Sprintf("bounds %s, sidebar %t", bounds, sidebar)
	case *codecs.IconViewOptions:
		iconSize, _ := v.IconSize()
		arrangeBy, _ := v.ArrangeBy()
		bgType, _ := v.BackgroundType()
		return fmt.Sprintf("icon size %g, arrange by %s, background type %d", iconSize, arrangeBy, bgType)
	case *alias.Alias:
		return fmt.Sprintf("alias to %s on %s", v.Target.Name, v.Volume.Name)
	case *bookmark.Bookmark:
		return "bookmark to " + bookmarkPath(v)
	}
	return fmt.Sprintf("%v", value)
}

// presentValue converts a decoded value into something the JSON and YAML encoders render well
func presentValue(value any) any {
	switch v := value.(type) {
	case types.Blob:
		return hex.EncodeToString(v)
	case *codecs.BrowserWindowSettings:
		return v.Dict()
	case *codecs.IconViewOptions:
		return v.Dict()
	case *bookmark.Bookmark:
		entries := make(map[string]any)
		for _, e := range v.Entries() {
			entries[bookmark.KeyName(e.Key)] = e.Value
		}
		return entries
	}
	return value
}

func bookmarkPath(b *bookmark.Bookmark) string {
	v, err := b.Get(bookmark.KeyPath)
	if err != nil {
		return "?"
	}
	parts, _ := v.([]any)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, fmt.Sprint(p))
	}
	return "/" + strings.Join(names, "/")
}
