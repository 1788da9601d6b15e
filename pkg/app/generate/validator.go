package generate

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-macfiles/pkg/app"
)

// Validate validates a generation request
func (r *Request) Validate() error {
	if strings.TrimSpace(r.OutputPath) == "" {
		return app.NewError(app.ErrCodeInvalidInput, "output path is required", nil)
	}
	if r.Layout == nil && strings.TrimSpace(r.LayoutPath) == "" {
		return app.NewError(app.ErrCodeInvalidInput, "a layout is required", nil)
	}
	if r.Layout != nil {
		return r.Layout.Validate()
	}
	return nil
}

// Validate checks the window geometry and item names
func (l *Layout) Validate() error {
	if l.Window.Width <= 0 || l.Window.Height <= 0 {
		return app.NewError(app.ErrCodeInvalidInput,
			fmt.Sprintf("window size %dx%d must be positive", l.Window.Width, l.Window.Height), nil)
	}
	if l.IconSize < 16 || l.IconSize > 512 {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("icon size %g must be between 16 and 512", l.IconSize), nil)
	}
	if l.TextSize < 10 || l.TextSize > 16 {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("text size %g must be between 10 and 16", l.TextSize), nil)
	}
	if c := l.Background.Color; c != nil {
		for _, component := range []float64{c.Red, c.Green, c.Blue} {
			if component < 0 || component > 1 {
				return app.NewError(app.ErrCodeInvalidInput, "background colour components must be between 0 and 1", nil)
			}
		}
	}

	seen := make(map[string]bool)
	for i, item := range l.Items {
		if item.Name == "" || strings.Contains(item.Name, "/") {
			return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("item %d has an invalid name %q", i, item.Name), nil)
		}
		// Finder matches names case-insensitively
		key := strings.ToLower(item.Name)
		if seen[key] {
			return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("item %q is listed twice", item.Name), nil)
		}
		seen[key] = true
	}
	return nil
}
