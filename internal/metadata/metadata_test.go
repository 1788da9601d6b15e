package metadata

import (
	"encoding/binary"
	"io/fs"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-macfiles/internal/alias"
	"github.com/deploymenttheory/go-macfiles/internal/bookmark"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

var (
	volumeCreated = time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC)
	fileCreated   = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	volumeUUID    = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
)

// createTestSource describes a disk image mounted at /Volumes/Installer
// holding .background/background.png, plus the root volume
func createTestSource() *StaticSource {
	return NewStaticSource().
		AddVolume(VolumeAttributes{MountPath: "/", Name: "Macintosh HD", CreationDate: volumeCreated, Size: 1 << 40}).
		AddVolume(VolumeAttributes{
			MountPath:    "/Volumes/Installer",
			Name:         "Installer",
			CreationDate: volumeCreated,
			Size:         64 << 20,
			UUID:         volumeUUID,
		}).
		AddFile("/Volumes/Installer/.background", FileAttributes{Type: ObjectDirectory, FileID: 20, ParentID: 2, CreationDate: fileCreated}).
		AddFile("/Volumes/Installer/.background/background.png", FileAttributes{
			Type:         ObjectRegular,
			FileID:       21,
			ParentID:     20,
			CreationDate: fileCreated,
			Creator:      "8BIM",
			TypeCode:     "PNGf",
		}).
		AddFile("/Users", FileAttributes{Type: ObjectDirectory, FileID: 100, ParentID: 2}).
		AddFile("/Users/me", FileAttributes{Type: ObjectDirectory, FileID: 1 << 33, ParentID: 100})
}

func TestStaticSourceVolume(t *testing.T) {
	src := createTestSource()

	testCases := []struct {
		path  string
		mount string
	}{
		{"/Volumes/Installer/.background/background.png", "/Volumes/Installer"},
		{"/Volumes/Installer", "/Volumes/Installer"},
		{"/Volumes/InstallerX/file", "/"},
		{"/Users/me", "/"},
	}
	for _, tc := range testCases {
		v, err := src.Volume(tc.path)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.mount, v.MountPath, tc.path)
	}

	_, err := NewStaticSource().Volume("/x")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = src.File("/Volumes/Installer/missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestAliasForFile(t *testing.T) {
	a, err := AliasForFile(createTestSource(), "/Volumes/Installer/.background/background.png")
	require.NoError(t, err)

	assert.Equal(t, int16(2), a.Version)
	assert.Equal(t, "Installer", a.Volume.Name)
	assert.Equal(t, volumeCreated, a.Volume.CreationDate)
	assert.Equal(t, alias.FileSystemHFSPlus, a.Volume.FSType)
	assert.Equal(t, alias.VolumeFixedDisk, a.Volume.DiskType)
	assert.Equal(t, "/Volumes/Installer", a.Volume.POSIXPath)

	assert.Equal(t, "background.png", a.Target.Name)
	assert.Equal(t, alias.KindFile, a.Target.Kind)
	assert.Equal(t, uint32(21), a.Target.CNID)
	assert.Equal(t, uint32(20), a.Target.FolderCNID)
	assert.Equal(t, fileCreated, a.Target.CreationDate)
	assert.Equal(t, types.FourCC("8BIM"), a.Target.CreatorCode)
	assert.Equal(t, types.FourCC("PNGf"), a.Target.TypeCode)
	assert.Equal(t, ".background", a.Target.FolderName)
	assert.Equal(t, []uint32{21, 20}, a.Target.CNIDPath)
	assert.Equal(t, "Installer:.background:\x00background.png", a.Target.CarbonPath)
	assert.Equal(t, "/.background/background.png", a.Target.POSIXPath)

	// The alias survives a trip through its binary form
	data, err := a.Encode()
	require.NoError(t, err)
	decoded, err := alias.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, a.Target.CNIDPath, decoded.Target.CNIDPath)
	assert.Equal(t, a.Target.CarbonPath, decoded.Target.CarbonPath)
}

func TestAliasForFolderOnRootVolume(t *testing.T) {
	a, err := AliasForFile(createTestSource(), "/Users/me")
	require.NoError(t, err)

	assert.Equal(t, alias.KindFolder, a.Target.Kind)
	assert.Equal(t, "Macintosh HD", a.Volume.Name)
	// IDs beyond 32 bits are clamped
	assert.Equal(t, uint32(0xFFFFFFFF), a.Target.CNID)
	assert.Equal(t, []uint32{0xFFFFFFFF, 100}, a.Target.CNIDPath)
	assert.Equal(t, "Users/me", a.Target.POSIXPath)
	assert.Equal(t, "Macintosh HD:Users:\x00me", a.Target.CarbonPath)
	assert.Empty(t, a.Target.CreatorCode)
}

func TestAliasForMissingFile(t *testing.T) {
	_, err := AliasForFile(createTestSource(), "/Volumes/Installer/nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestBookmarkForFile(t *testing.T) {
	bm, err := BookmarkForFile(createTestSource(), "/Volumes/Installer/.background/background.png", "/")
	require.NoError(t, err)

	expected := map[bookmark.TocKey]any{
		bookmark.KeyPath:               []any{".background", "background.png"},
		bookmark.KeyCNIDPath:           []any{int64(20), int64(21)},
		bookmark.KeyFileCreationDate:   fileCreated,
		bookmark.KeyContainingFolder:   int64(0),
		bookmark.KeyVolumePath:         "/Volumes/Installer",
		bookmark.KeyVolumeIsRoot:       false,
		bookmark.KeyVolumeURL:          bookmark.AbsoluteURL("file:///Volumes/Installer"),
		bookmark.KeyVolumeName:         "Installer",
		bookmark.KeyVolumeSize:         int64(64 << 20),
		bookmark.KeyVolumeCreationDate: volumeCreated,
		bookmark.KeyVolumeUUID:         volumeUUID,
		bookmark.KeyCreationOptions:    int64(512),
		bookmark.KeyWasFileReference:   true,
		bookmark.KeyUserName:           "unknown",
		bookmark.KeyUID:                int64(99),
	}
	for key, want := range expected {
		got, err := bm.Get(key)
		require.NoError(t, err, bookmark.KeyName(key))
		assert.Equal(t, want, got, bookmark.KeyName(key))
	}

	props, err := bm.Get(bookmark.KeyFileProperties)
	require.NoError(t, err)
	blob := props.(types.Blob)
	require.Len(t, blob, 24)
	assert.Equal(t, uint64(resourceIsRegularFile), binary.LittleEndian.Uint64(blob[0:]))
	assert.Equal(t, uint64(0x0F), binary.LittleEndian.Uint64(blob[8:]))

	_, err = bm.Get(bookmark.KeyURLLengths)
	assert.ErrorIs(t, err, types.ErrKeyNotFound)

	data, err := bm.Encode()
	require.NoError(t, err)
	decoded, err := bookmark.Decode(data)
	require.NoError(t, err)
	path, err := decoded.Get(bookmark.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, []any{".background", "background.png"}, path)
}

func TestBookmarkForRelativePath(t *testing.T) {
	bm, err := BookmarkForFile(createTestSource(), ".background/background.png", "/Volumes/Installer")
	require.NoError(t, err)

	lengths, err := bm.Get(bookmark.KeyURLLengths)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(0)}, lengths)

	isRoot, err := bm.Get(bookmark.KeyVolumeIsRoot)
	require.NoError(t, err)
	assert.Equal(t, false, isRoot)
}

func TestBookmarkForDirectory(t *testing.T) {
	bm, err := BookmarkForFile(createTestSource(), "/Users/me", "/")
	require.NoError(t, err)

	props, err := bm.Get(bookmark.KeyFileProperties)
	require.NoError(t, err)
	assert.Equal(t, uint64(resourceIsDirectory), binary.LittleEndian.Uint64(props.(types.Blob)))

	isRoot, err := bm.Get(bookmark.KeyVolumeIsRoot)
	require.NoError(t, err)
	assert.Equal(t, true, isRoot)
}
