package generate

import (
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// Layout describes a Finder icon view window, typically of a disk image
type Layout struct {
	Window     Window     `mapstructure:"window" yaml:"window"`
	Background Background `mapstructure:"background" yaml:"background"`
	IconSize   float64    `mapstructure:"icon_size" yaml:"icon_size"`
	TextSize   float64    `mapstructure:"text_size" yaml:"text_size"`
	Items      []Item     `mapstructure:"items" yaml:"items"`
}

// Window is the position and size of the Finder window
type Window struct {
	X      int `mapstructure:"x" yaml:"x"`
	Y      int `mapstructure:"y" yaml:"y"`
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// Background selects a background image or a plain colour
type Background struct {
	// Image is the path of the image file, on the volume the store belongs to
	Image string `mapstructure:"image" yaml:"image,omitempty"`
	// Bookmark also records the image as a bookmark, as newer Finders do
	Bookmark bool                  `mapstructure:"bookmark" yaml:"bookmark"`
	Color    *types.DoubleRgbColor `mapstructure:"color" yaml:"color,omitempty"`
}

// Item places one icon. X and Y are the icon centre.
type Item struct {
	Name string `mapstructure:"name" yaml:"name"`
	X    int32  `mapstructure:"x" yaml:"x"`
	Y    int32  `mapstructure:"y" yaml:"y"`
}

// Request represents a store generation request
type Request struct {
	// LayoutPath is read when Layout is nil
	LayoutPath string
	Layout     *Layout

	OutputPath string
	// Overwrite replaces an existing output file
	Overwrite bool
	// WorkingDir resolves a relative background image path
	WorkingDir string
}

// Response describes the generated store
type Response struct {
	OutputPath string `json:"output_path" yaml:"output_path"`
	Records    int    `json:"records" yaml:"records"`
	Items      int    `json:"items" yaml:"items"`
	Background string `json:"background" yaml:"background"`
}
