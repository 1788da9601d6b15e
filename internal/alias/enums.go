package alias

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// Kind is the kind of filesystem entry an alias points at
type Kind int16

const (
	KindFile   Kind = 0
	KindFolder Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	}
	return fmt.Sprintf("Kind(%d)", int16(k))
}

func parseKind(v int16) (Kind, error) {
	k := Kind(v)
	if k != KindFile && k != KindFolder {
		return 0, fmt.Errorf("%w: unrecognised alias kind %d", types.ErrFormat, v)
	}
	return k, nil
}

// VolumeType is the kind of disk holding the target
type VolumeType int16

const (
	VolumeFixedDisk     VolumeType = 0
	VolumeNetworkDisk   VolumeType = 1
	VolumeFloppy400KB   VolumeType = 2
	VolumeFloppy800KB   VolumeType = 3
	VolumeFloppy1440KB  VolumeType = 4
	VolumeEjectableDisk VolumeType = 5
	lastKnownVolumeType            = VolumeEjectableDisk
)

var volumeTypeNames = [...]string{"fixed", "network", "floppy-400k", "floppy-800k", "floppy-1.44m", "ejectable"}

func (v VolumeType) String() string {
	if v >= 0 && v <= lastKnownVolumeType {
		return volumeTypeNames[v]
	}
	return fmt.Sprintf("VolumeType(%d)", int16(v))
}

func parseVolumeType(v int16) (VolumeType, error) {
	t := VolumeType(v)
	if t < 0 || t > lastKnownVolumeType {
		return 0, fmt.Errorf("%w: unrecognised volume type %d", types.ErrFormat, v)
	}
	return t, nil
}

// FileSystemType is the identifier of the target volume's filesystem.
// Version 2 records hold two characters and version 3 records four, so
// four character identifiers are truncated in version 2 records and two
// character ones are padded with NULs in version 3 records.
type FileSystemType string

const (
	FileSystemUnknown FileSystemType = ""
	FileSystemHFSX    FileSystemType = "HX"
	FileSystemHFSPlus FileSystemType = "H+"
	FileSystemFTP     FileSystemType = "KG"
	FileSystemUDF     FileSystemType = "BDcu"
	FileSystemFAT32   FileSystemType = "BDIS"
	FileSystemExFAT   FileSystemType = "BDxF"
	FileSystemNTFS    FileSystemType = "NTcu"
)

var fileSystemNames = map[FileSystemType]string{
	FileSystemHFSX:    "HFSX",
	FileSystemHFSPlus: "HFS+",
	FileSystemFTP:     "FTP",
	FileSystemUDF:     "UDF (CD/DVD)",
	FileSystemFAT32:   "FAT32",
	FileSystemExFAT:   "exFAT",
	FileSystemNTFS:    "NTFS",
}

// parseFileSystemType strips the NUL padding of a stored identifier
func parseFileSystemType(identifier string) FileSystemType {
	return FileSystemType(strings.TrimRight(identifier, "\x00"))
}

// DisplayName returns the human name of the filesystem, or "unknown"
func (f FileSystemType) DisplayName() string {
	if name, ok := fileSystemNames[f]; ok {
		return name
	}
	return "unknown"
}
