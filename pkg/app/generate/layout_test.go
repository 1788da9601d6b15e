package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-macfiles/internal/types"
	"github.com/deploymenttheory/go-macfiles/pkg/app"
)

const testLayout = `
window:
  width: 640
  height: 480
background:
  image: .background/bg.png
  bookmark: true
  color:
    red: 0.5
    green: 0.5
    blue: 1
icon_size: 96
items:
  - name: App.app
    x: 140
    y: 120
  - name: Applications
    x: 500
    y: 120
`

func TestLoadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testLayout), 0o644))

	layout, err := LoadLayout(path)
	require.NoError(t, err)

	assert.Equal(t, Window{X: 400, Y: 100, Width: 640, Height: 480}, layout.Window)
	assert.Equal(t, float64(96), layout.IconSize)
	assert.Equal(t, float64(DefaultTextSize), layout.TextSize)
	assert.Equal(t, ".background/bg.png", layout.Background.Image)
	assert.True(t, layout.Background.Bookmark)
	require.NotNil(t, layout.Background.Color)
	assert.Equal(t, types.DoubleRgbColor{Red: 0.5, Green: 0.5, Blue: 1}, *layout.Background.Color)
	assert.Equal(t, []Item{{Name: "App.app", X: 140, Y: 120}, {Name: "Applications", X: 500, Y: 120}}, layout.Items)
	assert.NoError(t, layout.Validate())
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Layout)
	}{
		{"zero width", func(l *Layout) { l.Window.Width = 0 }},
		{"negative height", func(l *Layout) { l.Window.Height = -1 }},
		{"tiny icons", func(l *Layout) { l.IconSize = 8 }},
		{"huge text", func(l *Layout) { l.TextSize = 30 }},
		{"bad colour", func(l *Layout) { l.Background.Color = &types.DoubleRgbColor{Red: 2} }},
		{"empty item name", func(l *Layout) { l.Items = []Item{{Name: ""}} }},
		{"item with slash", func(l *Layout) { l.Items = []Item{{Name: "a/b"}} }},
		{"duplicate item", func(l *Layout) { l.Items = []Item{{Name: "App"}, {Name: "app"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := DefaultLayout()
			tt.mutate(layout)
			err := layout.Validate()
			require.Error(t, err)
			assert.Equal(t, app.ErrCodeInvalidInput, err.(*app.CommonError).Code)
		})
	}
	assert.NoError(t, DefaultLayout().Validate())
}
