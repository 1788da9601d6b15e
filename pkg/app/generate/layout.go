package generate

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default window geometry and icon view settings
const (
	DefaultWindowX      = 400
	DefaultWindowY      = 100
	DefaultWindowWidth  = 400
	DefaultWindowHeight = 300
	DefaultIconSize     = 72
	DefaultTextSize     = 11
)

// DefaultLayout returns an empty layout with default geometry
func DefaultLayout() *Layout {
	return &Layout{
		Window: Window{
			X:      DefaultWindowX,
			Y:      DefaultWindowY,
			Width:  DefaultWindowWidth,
			Height: DefaultWindowHeight,
		},
		IconSize: DefaultIconSize,
		TextSize: DefaultTextSize,
	}
}

// LoadLayout reads a layout file in any format viper understands.
// Missing settings take the defaults of DefaultLayout.
func LoadLayout(path string) (*Layout, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := DefaultLayout()
	v.SetDefault("window.x", defaults.Window.X)
	v.SetDefault("window.y", defaults.Window.Y)
	v.SetDefault("window.width", defaults.Window.Width)
	v.SetDefault("window.height", defaults.Window.Height)
	v.SetDefault("icon_size", defaults.IconSize)
	v.SetDefault("text_size", defaults.TextSize)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read layout %s: %w", path, err)
	}

	var layout Layout
	if err := v.Unmarshal(&layout); err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", path, err)
	}
	return &layout, nil
}
