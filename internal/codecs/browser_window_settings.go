package codecs

import (
	"fmt"
	"maps"
	"slices"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// Keys of the bwsp property list
const (
	keyContainerShowSidebar  = "ContainerShowSidebar"
	keyPreviewPaneVisibility = "PreviewPaneVisibility"
	keyShowPathbar           = "ShowPathbar"
	keyShowSidebar           = "ShowSidebar"
	keyShowStatusBar         = "ShowStatusBar"
	keyShowTabView           = "ShowTabView"
	keyShowToolbar           = "ShowToolbar"
	keySidebarWidth          = "SidebarWidth"
	keyWindowBounds          = "WindowBounds"
)

// BrowserWindowSettings is the decoded bwsp property: Finder window bounds
// and which parts of the window chrome are visible.
type BrowserWindowSettings struct {
	dict *plistDict
}

// DecodeBrowserWindowSettings parses a bwsp blob
func DecodeBrowserWindowSettings(blob types.Blob) (*BrowserWindowSettings, error) {
	dict, err := decodePlistDict(blob)
	if err != nil {
		return nil, err
	}
	return &BrowserWindowSettings{dict: dict}, nil
}

// Encode writes the settings as a binary property list
func (s *BrowserWindowSettings) Encode() (types.Blob, error) {
	return s.dict.encode()
}

// Dict returns a copy of the underlying dictionary
func (s *BrowserWindowSettings) Dict() map[string]any {
	return maps.Clone(s.dict.values)
}

// Keys returns the dictionary keys in stored order
func (s *BrowserWindowSettings) Keys() []string {
	return slices.Clone(s.dict.keys)
}

// ContainerShowSidebar reports whether the sidebar is shown for this folder
func (s *BrowserWindowSettings) ContainerShowSidebar() (bool, bool) {
	return s.dict.boolValue(keyContainerShowSidebar)
}

// PreviewPaneVisibility reports whether the preview pane is open
func (s *BrowserWindowSettings) PreviewPaneVisibility() (bool, bool) {
	return s.dict.boolValue(keyPreviewPaneVisibility)
}

// ShowPathbar reports whether the path bar is visible
func (s *BrowserWindowSettings) ShowPathbar() (bool, bool) {
	return s.dict.boolValue(keyShowPathbar)
}

// ShowSidebar reports whether the window sidebar is visible
func (s *BrowserWindowSettings) ShowSidebar() (bool, bool) {
	return s.dict.boolValue(keyShowSidebar)
}

// ShowStatusBar reports whether the status bar is visible
func (s *BrowserWindowSettings) ShowStatusBar() (bool, bool) {
	return s.dict.boolValue(keyShowStatusBar)
}

// ShowTabView reports whether the tab bar is visible
func (s *BrowserWindowSettings) ShowTabView() (bool, bool) {
	return s.dict.boolValue(keyShowTabView)
}

// ShowToolbar reports whether the toolbar is visible
func (s *BrowserWindowSettings) ShowToolbar() (bool, bool) {
	return s.dict.boolValue(keyShowToolbar)
}

// SidebarWidth is the sidebar width in points
func (s *BrowserWindowSettings) SidebarWidth() (int64, bool) {
	return s.dict.intValue(keySidebarWidth)
}

// WindowBounds returns the bounds string, formatted as "{{x, y}, {w, h}}"
func (s *BrowserWindowSettings) WindowBounds() (string, bool) {
	return s.dict.stringValue(keyWindowBounds)
}

// FormatWindowBounds renders a window rectangle the way Finder stores it
func FormatWindowBounds(x, y, width, height int) string {
	return fmt.Sprintf("{{%d, %d}, {%d, %d}}", x, y, width, height)
}

// BrowserWindowSettingsBuilder assembles BrowserWindowSettings. Every flag
// starts out false and the sidebar width at zero.
type BrowserWindowSettingsBuilder struct {
	dict *plistDict
}

// NewBrowserWindowSettingsBuilder starts a builder with every flag off
func NewBrowserWindowSettingsBuilder() *BrowserWindowSettingsBuilder {
	dict := newPlistDict()
	for _, key := range []string{
		keyContainerShowSidebar,
		keyPreviewPaneVisibility,
		keyShowPathbar,
		keyShowSidebar,
		keyShowStatusBar,
		keyShowTabView,
		keyShowToolbar,
	} {
		dict.set(key, false)
	}
	dict.set(keySidebarWidth, int64(0))
	return &BrowserWindowSettingsBuilder{dict: dict}
}

// SetContainerShowSidebar sets ContainerShowSidebar
func (b *BrowserWindowSettingsBuilder) SetContainerShowSidebar(v bool) *BrowserWindowSettingsBuilder {
	b.dict.set(keyContainerShowSidebar, v)
	return b
}

// SetPreviewPaneVisibility sets PreviewPaneVisibility
func (b *BrowserWindowSettingsBuilder) SetPreviewPaneVisibility(v bool) *BrowserWindowSettingsBuilder {
	b.dict.set(keyPreviewPaneVisibility, v)
	return b
}

// SetShowPathbar sets ShowPathbar
func (b *BrowserWindowSettingsBuilder) SetShowPathbar(v bool) *BrowserWindowSettingsBuilder {
	b.dict.set(keyShowPathbar, v)
	return b
}

// SetShowSidebar sets ShowSidebar
func (b *BrowserWindowSettingsBuilder) SetShowSidebar(v bool) *BrowserWindowSettingsBuilder {
	b.dict.set(keyShowSidebar, v)
	return b
}

// SetShowStatusBar sets ShowStatusBar
func (b *BrowserWindowSettingsBuilder) SetShowStatusBar(v bool) *BrowserWindowSettingsBuilder {
	b.dict.set(keyShowStatusBar, v)
	return b
}

// SetShowTabView sets ShowTabView
func (b *BrowserWindowSettingsBuilder) SetShowTabView(v bool) *BrowserWindowSettingsBuilder {
	b.dict.set(keyShowTabView, v)
	return b
}

// SetShowToolbar sets ShowToolbar
func (b *BrowserWindowSettingsBuilder) SetShowToolbar(v bool) *BrowserWindowSettingsBuilder {
	b.dict.set(keyShowToolbar, v)
	return b
}

// SetSidebarWidth sets SidebarWidth
func (b *BrowserWindowSettingsBuilder) SetSidebarWidth(v int64) *BrowserWindowSettingsBuilder {
	b.dict.set(keySidebarWidth, v)
	return b
}

// SetWindowBounds sets WindowBounds, usually made with FormatWindowBounds
func (b *BrowserWindowSettingsBuilder) SetWindowBounds(bounds string) *BrowserWindowSettingsBuilder {
	b.dict.set(keyWindowBounds, bounds)
	return b
}

// Build returns the settings; later builder calls do not affect it
func (b *BrowserWindowSettingsBuilder) Build() *BrowserWindowSettings {
	return &BrowserWindowSettings{dict: b.dict.clone()}
}

type browserWindowSettingsCodec struct{}

func (browserWindowSettingsCodec) Decode(blob types.Blob) (any, error) {
	s, err := DecodeBrowserWindowSettings(blob)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (browserWindowSettingsCodec) Encode(value any) (types.Blob, error) {
	s, ok := value.(*BrowserWindowSettings)
	if !ok {
		return nil, unexpectedValue("*codecs.BrowserWindowSettings", value)
	}
	return s.Encode()
}
