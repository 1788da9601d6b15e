package generate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/deploymenttheory/go-macfiles/internal/codecs"
	"github.com/deploymenttheory/go-macfiles/internal/dsstore"
	"github.com/deploymenttheory/go-macfiles/internal/types"
	"github.com/deploymenttheory/go-macfiles/pkg/app"
)

// folderEntry is the filename under which a store keeps settings of its own folder
const folderEntry = "."

// Handle processes a generation request
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	layout := req.Layout
	if layout == nil {
		ctx.Log(fmt.Sprintf("Loading layout: %s", req.LayoutPath))
		loaded, err := LoadLayout(req.LayoutPath)
		if err != nil {
			return nil, app.NewError(app.ErrCodeInvalidInput, "invalid layout file", err)
		}
		if err := loaded.Validate(); err != nil {
			return nil, err
		}
		layout = loaded
	}

	if err := prepareOutput(req.OutputPath, req.Overwrite); err != nil {
		return nil, err
	}

	ctx.Progress("Building records...", 20)
	records, err := buildRecords(ctx, layout, req.WorkingDir)
	if err != nil {
		return nil, err
	}

	svc, err := ctx.Services.StoreService()
	if err != nil {
		return nil, app.Classify("store service unavailable", err)
	}
	ctx.Progress("Writing store...", 60)
	if err := svc.PutRecords(ctx.Context, req.OutputPath, records); err != nil {
		return nil, app.Classify("failed to write store", err)
	}

	background := "colour"
	if layout.Background.Image != "" {
		background = layout.Background.Image
	}
	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Wrote %d records to %s", len(records), req.OutputPath))
	return &Response{
		OutputPath: req.OutputPath,
		Records:    len(records),
		Items:      len(layout.Items),
		Background: background,
	}, nil
}

func prepareOutput(path string, overwrite bool) error {
	_, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return app.Classify("cannot inspect output path", err)
	case !overwrite:
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("%s already exists", path), nil)
	}
	if err := os.Remove(path); err != nil {
		return app.Classify("cannot replace output file", err)
	}
	return nil
}

// buildRecords turns a layout into the records Finder expects for an icon view window
func buildRecords(ctx *app.Context, layout *Layout, cwd string) ([]*dsstore.Record, error) {
	type entry struct {
		filename string
		property types.FourCC
		value    any
	}

	color := types.White
	if layout.Background.Color != nil {
		color = *layout.Background.Color
	}
	options := codecs.NewIconViewOptionsBuilder().
		SetArrangeBy("none").
		SetBackgroundColor(color).
		SetBackgroundType(1).
		SetGridOffset(types.IntPoint{}).
		SetGridSpacing(100).
		SetIconSize(layout.IconSize).
		SetLabelOnBottom(true).
		SetScrollPosition(types.DoublePoint{}).
		SetShowIconPreview(false).
		SetShowItemInfo(false).
		SetTextSize(layout.TextSize)

	entries := []entry{
		{folderEntry, types.PropDirectoryVersion, int32(1)},
		{folderEntry, types.PropViewStyle, types.ViewStyleIcon},
	}

	if image := layout.Background.Image; image != "" {
		meta, err := ctx.Services.MetadataService()
		if err != nil {
			return nil, app.NewError(app.ErrCodeNotSupported, "background images need filesystem metadata", err)
		}
		if !filepath.IsAbs(image) && cwd != "" {
			image = filepath.Join(cwd, image)
		}
		a, err := meta.AliasFor(ctx.Context, image)
		if err != nil {
			return nil, app.Classify("cannot describe background image", err)
		}
		options.SetBackgroundType(2).SetBackgroundImageAlias(a)

		if layout.Background.Bookmark {
			bm, err := meta.BookmarkFor(ctx.Context, image, cwd)
			if err != nil {
				return nil, app.Classify("cannot describe background image", err)
			}
			entries = append(entries, entry{folderEntry, types.PropBackgroundBookmark, bm})
		}
	}

	iconView, err := options.Build()
	if err != nil {
		return nil, app.Classify("cannot build icon view options", err)
	}
	window := layout.Window
	settings := codecs.NewBrowserWindowSettingsBuilder().
		SetWindowBounds(codecs.FormatWindowBounds(window.X, window.Y, window.Width, window.Height)).
		Build()
	entries = append(entries,
		entry{folderEntry, types.PropIconViewOptionsPList, iconView},
		entry{folderEntry, types.PropWindowSizeAndLayout, settings},
	)

	for _, item := range layout.Items {
		entries = append(entries, entry{item.Name, types.PropIconLocation, types.IntPoint{X: item.X, Y: item.Y}})
	}

	records := make([]*dsstore.Record, 0, len(entries))
	for _, e := range entries {
		rec, err := dsstore.NewRecord(e.filename, e.property, e.value)
		if err != nil {
			return nil, app.Classify(fmt.Sprintf("cannot encode %s of %q", e.property, e.filename), err)
		}
		records = append(records, rec)
	}
	return records, nil
}
