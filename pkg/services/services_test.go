package services

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-macfiles/internal/alias"
	"github.com/deploymenttheory/go-macfiles/internal/bookmark"
	"github.com/deploymenttheory/go-macfiles/internal/metadata"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

func createTestService(t *testing.T) (StoreService, string) {
	t.Helper()
	svc := NewStoreService(512)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, filepath.Join(t.TempDir(), ".DS_Store")
}

func createTestSource() *metadata.StaticSource {
	created := time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC)
	return metadata.NewStaticSource().
		AddVolume(metadata.VolumeAttributes{MountPath: "/Volumes/Disk", Name: "Disk", CreationDate: created, Size: 1 << 30}).
		AddFile("/Volumes/Disk/bg.png", metadata.FileAttributes{Type: metadata.ObjectRegular, FileID: 30, ParentID: 2, CreationDate: created})
}

func TestServiceFactory(t *testing.T) {
	factory := NewServiceFactory(FactoryConfig{PageSize: 1024})
	require.NoError(t, factory.Initialize())
	assert.True(t, factory.IsInitialized())

	storeSvc, err := factory.StoreService()
	require.NoError(t, err)
	assert.NotNil(t, storeSvc)

	_, err = factory.MetadataService()
	assert.ErrorIs(t, err, ErrNoMetadataSource)

	require.NoError(t, factory.Shutdown())
	assert.False(t, factory.IsInitialized())

	factory = NewServiceFactory(FactoryConfig{Source: createTestSource()})
	metaSvc, err := factory.MetadataService()
	require.NoError(t, err)
	assert.NotNil(t, metaSvc)
	assert.True(t, factory.IsInitialized())
	require.NoError(t, factory.Shutdown())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		arg  string
		want any
	}{
		{"long:5", int32(5)},
		{"long:-7", int32(-7)},
		{"shor:3", int16(3)},
		{"bool:true", true},
		{"type:icnv", types.FourCC("icnv")},
		{"ustr:hello: world", "hello: world"},
		{"ustr:", ""},
		{"comp:9000000000", int64(9000000000)},
		{"blob:00ff", types.Blob{0x00, 0xff}},
		{"Iloc:10, 20", types.IntPoint{X: 10, Y: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseValue(tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := ParseValue("dutc:2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Equal(got.(time.Time)))
}

func TestParseValueErrors(t *testing.T) {
	for _, arg := range []string{
		"5",
		"long:x",
		"long:9999999999",
		"shor:40000",
		"bool:maybe",
		"type:ab",
		"blob:zz",
		"dutc:yesterday",
		"Iloc:1",
		"Iloc:a,1",
		"what:1",
	} {
		_, err := ParseValue(arg)
		assert.ErrorIs(t, err, ErrInvalidValue, arg)
	}
}

func TestFormatValue(t *testing.T) {
	long := make(types.Blob, 40)
	tests := []struct {
		value any
		want  string
	}{
		{nil, "-"},
		{int32(1), "1"},
		{true, "true"},
		{"name", `"name"`},
		{types.FourCC("icnv"), "icnv"},
		{types.Blob{0xde, 0xad}, "dead"},
		{long, "0000000000000000000000000000000000000000000000000000000000000000... (40 bytes)"},
		{types.IntPoint{X: 1, Y: -2}, "(1, -2)"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.value))
	}

	bm := bookmark.NewBuilder().Put(bookmark.KeyPath, []any{"Users", "me"}).Build()
	assert.Equal(t, "bookmark to /Users/me", FormatValue(bm))
}

func TestStoreServiceRoundTrip(t *testing.T) {
	svc, path := createTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetValue(ctx, path, "a.txt", types.PropIconLocation, "Iloc:10,20"))
	require.NoError(t, svc.SetValue(ctx, path, ".", types.PropViewStyle, "type:icnv"))
	require.NoError(t, svc.SetValue(ctx, path, ".", types.PropDirectoryVersion, "long:1"))

	records, err := svc.ListRecords(ctx, path, "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ".", records[0].Filename)
	assert.Equal(t, types.PropDirectoryVersion, records[0].Property)
	assert.Equal(t, types.PropViewStyle, records[1].Property)
	assert.Equal(t, "a.txt", records[2].Filename)

	rec, err := svc.GetValue(ctx, path, "A.TXT", types.PropIconLocation)
	require.NoError(t, err)
	assert.Equal(t, types.IntPoint{X: 10, Y: 20}, rec.Value)
	assert.Equal(t, "(10, 20)", rec.Display)
	assert.Equal(t, "Icon location", rec.Description)
	assert.Equal(t, types.FourCC("blob"), rec.Type)

	filtered, err := svc.ListRecords(ctx, path, "A.txt")
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	info, err := svc.OpenStore(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, 3, info.SuperBlock.RecordCount)
	assert.Equal(t, "read-write", info.Mode)
	assert.Contains(t, info.Entries, "DSDB")
	assert.Positive(t, info.Blocks)

	require.NoError(t, svc.DeleteValue(ctx, path, "a.txt", types.PropIconLocation))
	require.NoError(t, svc.DeleteValue(ctx, path, "a.txt", types.PropIconLocation))
	_, err = svc.GetValue(ctx, path, "a.txt", types.PropIconLocation)
	assert.ErrorIs(t, err, types.ErrKeyNotFound)

	// A fresh service sees the flushed state
	require.NoError(t, svc.Close())
	reader := NewStoreService(0)
	defer reader.Close()
	records, err = reader.ListRecords(ctx, path, "")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStoreServiceUpgradesReadOnlyHandle(t *testing.T) {
	svc, path := createTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetValue(ctx, path, ".", types.PropDirectoryVersion, "long:1"))
	require.NoError(t, svc.Close())

	info, err := svc.OpenStore(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, "read-only", info.Mode)

	require.NoError(t, svc.SetValue(ctx, path, ".", types.PropComments, "ustr:hello"))
	rec, err := svc.GetValue(ctx, path, ".", types.PropComments)
	require.NoError(t, err)
	assert.Equal(t, "hello", rec.Value)
}

func TestStoreServiceErrors(t *testing.T) {
	svc, path := createTestService(t)
	ctx := context.Background()

	_, err := svc.ListRecords(ctx, path, "")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	err = svc.SetValue(ctx, path, ".", types.PropDirectoryVersion, "long")
	assert.ErrorIs(t, err, ErrInvalidValue)

	err = svc.SetValue(ctx, path, ".", types.PropWindowSizeAndLayout, "Iloc:1,2")
	assert.ErrorIs(t, err, types.ErrUnsupported)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.GetValue(cancelled, path, ".", types.PropDirectoryVersion)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetadataService(t *testing.T) {
	svc := NewMetadataService(createTestSource())
	ctx := context.Background()
	dir := t.TempDir()

	a, err := svc.AliasFor(ctx, "/Volumes/Disk/bg.png")
	require.NoError(t, err)
	assert.Equal(t, "bg.png", a.Target.Name)
	assert.Equal(t, "alias to bg.png on Disk", FormatValue(a))

	data, err := a.Encode()
	require.NoError(t, err)
	aliasFile := filepath.Join(dir, "bg.alias")
	require.NoError(t, os.WriteFile(aliasFile, data, 0o644))

	decoded, err := svc.ReadAlias(ctx, aliasFile)
	require.NoError(t, err)
	assert.Equal(t, a.Target.CarbonPath, decoded.Target.CarbonPath)
	assert.Equal(t, alias.KindFile, decoded.Target.Kind)

	bm, err := svc.BookmarkFor(ctx, "/Volumes/Disk/bg.png", "/")
	require.NoError(t, err)
	data, err = bm.Encode()
	require.NoError(t, err)
	bookmarkFile := filepath.Join(dir, "bg.bookmark")
	require.NoError(t, os.WriteFile(bookmarkFile, data, 0o644))

	decodedBookmark, err := svc.ReadBookmark(ctx, bookmarkFile)
	require.NoError(t, err)
	assert.Equal(t, "bookmark to /bg.png", FormatValue(decodedBookmark))

	_, err = svc.AliasFor(ctx, "/Volumes/Disk/missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = svc.ReadBookmark(ctx, aliasFile)
	assert.ErrorIs(t, err, types.ErrFormat)
}
