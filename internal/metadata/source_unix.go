//go:build darwin || linux

package metadata

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
	"golang.org/x/text/unicode/norm"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

const finderInfoAttr = "com.apple.FinderInfo"

// OSSource reads metadata from the running system. Volume names other than
// the root's are taken from the mount point's base name, and volumes are
// given a UUID derived from their mount path unless the root UUID is set.
type OSSource struct {
	RootVolumeName string
	RootVolumeUUID uuid.UUID
}

func NewOSSource(rootVolumeName string, rootVolumeUUID uuid.UUID) *OSSource {
	return &OSSource{RootVolumeName: rootVolumeName, RootVolumeUUID: rootVolumeUUID}
}

func (s *OSSource) File(path string) (FileAttributes, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return FileAttributes{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	attrs := FileAttributes{
		FileID:       st.Ino,
		CreationDate: birthTime(path, &st),
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		attrs.Type = ObjectDirectory
	case unix.S_IFLNK:
		attrs.Type = ObjectSymlink
	}

	var parent unix.Stat_t
	if err := unix.Stat(filepath.Dir(path), &parent); err != nil {
		return FileAttributes{}, fmt.Errorf("failed to stat parent of %s: %w", path, err)
	}
	attrs.ParentID = parent.Ino

	if attrs.Type == ObjectRegular {
		attrs.TypeCode, attrs.Creator = finderInfoCodes(path)
	}
	return attrs, nil
}

func (s *OSSource) Volume(path string) (VolumeAttributes, error) {
	mount, err := mountPoint(path)
	if err != nil {
		return VolumeAttributes{}, err
	}
	// HFS+ hands back decomposed names
	mount = norm.NFC.String(mount)

	var st unix.Stat_t
	if err := unix.Stat(mount, &st); err != nil {
		return VolumeAttributes{}, fmt.Errorf("failed to stat volume %s: %w", mount, err)
	}
	size, err := volumeSize(mount)
	if err != nil {
		return VolumeAttributes{}, err
	}

	v := VolumeAttributes{
		MountPath:    mount,
		Name:         filepath.Base(mount),
		CreationDate: birthTime(mount, &st),
		Size:         size,
		UUID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+mount)),
	}
	if mount == "/" {
		v.Name = s.RootVolumeName
		if s.RootVolumeUUID != uuid.Nil {
			v.UUID = s.RootVolumeUUID
		}
	}
	return v, nil
}

// finderInfoCodes returns the type and creator codes from the Finder info
// attribute. Either is empty when unset or unavailable.
func finderInfoCodes(path string) (fileType, creator types.FourCC) {
	buf := make([]byte, 32)
	n, err := unix.Getxattr(path, finderInfoAttr, buf)
	if err != nil || n < 8 {
		return "", ""
	}
	return fourCCOrZero(buf[0:4]), fourCCOrZero(buf[4:8])
}

func fourCCOrZero(b []byte) types.FourCC {
	for _, c := range b {
		if c != 0 {
			return types.FourCC(b)
		}
	}
	return ""
}
