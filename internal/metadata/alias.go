package metadata

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-macfiles/internal/alias"
)

// AliasForFile builds a version 2 alias to path. The volume is always
// described as a fixed HFS+ disk.
func AliasForFile(src Source, path string) (*alias.Alias, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
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

	// The CNID path runs from the target up to the top-level folder
	var cnidPath []uint32
	var carbon []string
	for p := rel; p != "."; p = filepath.Dir(p) {
		attrs, err := src.File(filepath.Join(vol.MountPath, p))
		if err != nil {
			return nil, err
		}
		cnidPath = append(cnidPath, asCNID(attrs.FileID))
		carbon = append([]string{strings.ReplaceAll(filepath.Base(p), ":", "/")}, carbon...)
	}

	posixPath := "/" + rel
	if vol.MountPath == "/" {
		posixPath = rel
	}

	kind := alias.KindFile
	if file.Type == ObjectDirectory {
		kind = alias.KindFolder
	}

	b := alias.NewBuilder(kind, filepath.Base(abs)).
		SetVolume(vol.Name, vol.CreationDate, alias.FileSystemHFSPlus, alias.VolumeFixedDisk).
		SetVolumePOSIXPath(vol.MountPath).
		SetCNIDs(asCNID(file.ParentID), asCNID(file.FileID)).
		SetCreationDate(file.CreationDate).
		SetFolderName(filepath.Base(filepath.Dir(abs))).
		SetCNIDPath(cnidPath).
		SetCarbonPath(vol.Name + ":" + strings.Join(carbon, ":\x00")).
		SetPOSIXPath(posixPath)
	if kind == alias.KindFile {
		b.SetCreatorAndType(file.Creator, file.TypeCode)
	}
	return b.Build()
}

func relativeToVolume(vol VolumeAttributes, abs string) (string, error) {
	rel, err := filepath.Rel(vol.MountPath, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is not on volume %s", abs, vol.MountPath)
	}
	return filepath.ToSlash(rel), nil
}

// asCNID maps IDs that do not fit the alias format's 32 bits to 0xFFFFFFFF
func asCNID(id uint64) uint32 {
	if id > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(id)
}
