package metadata

import (
	"encoding/binary"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-macfiles/internal/bookmark"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// CFURL resource and volume property flags
const (
	resourceIsRegularFile  = 0x1
	resourceIsDirectory    = 0x2
	resourceIsSymbolicLink = 0x4

	volumeSupportsPersistentIDs = 0x100000000
)

// BookmarkForFile builds a bookmark to path. A relative path is resolved
// against cwd and the bookmark records how many components cwd contributed.
func BookmarkForFile(src Source, path, cwd string) (*bookmark.Bookmark, error) {
	abs := path
	relativeCount := 0
	if !filepath.IsAbs(path) {
		abs = filepath.Join(cwd, path)
		relativeCount = len(components(filepath.Clean(cwd)))
	}
	abs = filepath.Clean(abs)

	vol, err := src.Volume(abs)
	if err != nil {
		return nil, err
	}
	file, err := src.File(abs)
	if err != nil {
		return nil, err
	}
	rel, err := relativeToVolume(vol, abs)
	if err != nil {
		return nil, err
	}

	names := components(rel)
	namePath := make([]any, 0, len(names))
	cnidPath := make([]any, 0, len(names))
	for i, name := range names {
		attrs, err := src.File(filepath.Join(append([]string{vol.MountPath}, names[:i+1]...)...))
		if err != nil {
			return nil, err
		}
		namePath = append(namePath, name)
		cnidPath = append(cnidPath, int64(attrs.FileID))
	}

	flags := uint64(resourceIsRegularFile)
	switch file.Type {
	case ObjectDirectory:
		flags = resourceIsDirectory
	case ObjectSymlink:
		flags = resourceIsSymbolicLink
	}

	b := bookmark.NewBuilder().
		Put(bookmark.KeyPath, namePath).
		Put(bookmark.KeyCNIDPath, cnidPath).
		Put(bookmark.KeyFileCreationDate, file.CreationDate).
		Put(bookmark.KeyFileProperties, propertyBlob(flags, 0x0F)).
		Put(bookmark.KeyContainingFolder, int64(len(namePath)-2)).
		Put(bookmark.KeyVolumePath, vol.MountPath).
		Put(bookmark.KeyVolumeIsRoot, vol.MountPath == "/").
		Put(bookmark.KeyVolumeURL, bookmark.AbsoluteURL("file://"+vol.MountPath)).
		Put(bookmark.KeyVolumeName, vol.Name).
		Put(bookmark.KeyVolumeSize, vol.Size).
		Put(bookmark.KeyVolumeCreationDate, vol.CreationDate).
		Put(bookmark.KeyVolumeUUID, vol.UUID).
		Put(bookmark.KeyVolumeProperties, propertyBlob(0x81|volumeSupportsPersistentIDs, 0x13EF|volumeSupportsPersistentIDs)).
		Put(bookmark.KeyCreationOptions, int64(512)).
		Put(bookmark.KeyWasFileReference, true).
		Put(bookmark.KeyUserName, "unknown").
		Put(bookmark.KeyUID, int64(99))
	if relativeCount > 0 {
		b.Put(bookmark.KeyURLLengths, []any{int64(relativeCount), int64(len(namePath) - relativeCount)})
	}
	return b.Build(), nil
}

// propertyBlob packs resource flags, the flags that were asked for and eight zero bytes
func propertyBlob(flags, asked uint64) types.Blob {
	blob := make(types.Blob, 24)
	binary.LittleEndian.PutUint64(blob[0:], flags)
	binary.LittleEndian.PutUint64(blob[8:], asked)
	return blob
}

func components(p string) []string {
	var out []string
	for _, c := range strings.Split(filepath.ToSlash(p), "/") {
		if c != "" && c != "." {
			out = append(out, c)
		}
	}
	return out
}
