package alias

import (
	"fmt"
	"slices"
	"time"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// Builder assembles an Alias. The zero configuration is a version 2 alias
// to a file on a fixed HFS+ disk with both level counts at -1.
type Builder struct {
	a Alias
}

// NewBuilder starts an alias to the entry called name
func NewBuilder(kind Kind, name string) *Builder {
	return &Builder{a: Alias{
		Version: 2,
		Volume: VolumeInfo{
			FSType:   FileSystemHFSPlus,
			DiskType: VolumeFixedDisk,
		},
		Target: TargetInfo{
			Name:       name,
			Kind:       kind,
			LevelsFrom: -1,
			LevelsTo:   -1,
		},
	}}
}

func (b *Builder) SetAppInfo(appInfo types.FourCC) *Builder {
	b.a.AppInfo = appInfo
	return b
}

func (b *Builder) SetVersion(version int16) *Builder {
	b.a.Version = version
	return b
}

// SetVolume sets the identity of the target's volume
func (b *Builder) SetVolume(name string, created time.Time, fsType FileSystemType, diskType VolumeType) *Builder {
	b.a.Volume.Name = name
	b.a.Volume.CreationDate = created
	b.a.Volume.FSType = fsType
	b.a.Volume.DiskType = diskType
	return b
}

func (b *Builder) SetVolumeAttributes(flags uint32) *Builder {
	b.a.Volume.AttributeFlags = flags
	return b
}

func (b *Builder) SetVolumeFSID(fsID string) *Builder {
	b.a.Volume.FSID = fsID
	return b
}

// SetVolumePOSIXPath sets the mount point of the target's volume
func (b *Builder) SetVolumePOSIXPath(path string) *Builder {
	b.a.Volume.POSIXPath = path
	return b
}

func (b *Builder) SetAppleShare(zone, server, user string) *Builder {
	b.a.Volume.AppleShare = &AppleShareInfo{Zone: zone, Server: server, User: user}
	return b
}

func (b *Builder) SetDriverName(name string) *Builder {
	b.a.Volume.DriverName = name
	return b
}

func (b *Builder) SetNetworkMountInfo(info types.Blob) *Builder {
	b.a.Volume.NetworkMountInfo = info
	return b
}

func (b *Builder) SetDialupInfo(info types.Blob) *Builder {
	b.a.Volume.DialupInfo = info
	return b
}

// SetDiskImageAlias records the alias of the disk image the volume was mounted from
func (b *Builder) SetDiskImageAlias(image *Alias) *Builder {
	b.a.Volume.DiskImageAlias = image
	return b
}

// SetCNIDs sets the catalog node IDs of the target and its parent folder
func (b *Builder) SetCNIDs(folderCNID, cnid uint32) *Builder {
	b.a.Target.FolderCNID = folderCNID
	b.a.Target.CNID = cnid
	return b
}

func (b *Builder) SetCreationDate(created time.Time) *Builder {
	b.a.Target.CreationDate = created
	return b
}

// SetCreatorAndType sets the Finder creator and type codes
func (b *Builder) SetCreatorAndType(creator, fileType types.FourCC) *Builder {
	b.a.Target.CreatorCode = creator
	b.a.Target.TypeCode = fileType
	return b
}

func (b *Builder) SetLevels(from, to int16) *Builder {
	b.a.Target.LevelsFrom = from
	b.a.Target.LevelsTo = to
	return b
}

func (b *Builder) SetFolderName(name string) *Builder {
	b.a.Target.FolderName = name
	return b
}

func (b *Builder) SetCNIDPath(path []uint32) *Builder {
	b.a.Target.CNIDPath = slices.Clone(path)
	return b
}

func (b *Builder) SetCarbonPath(path string) *Builder {
	b.a.Target.CarbonPath = path
	return b
}

func (b *Builder) SetPOSIXPath(path string) *Builder {
	b.a.Target.POSIXPath = path
	return b
}

func (b *Builder) SetUserHomePrefixLen(n int16) *Builder {
	b.a.Target.UserHomePrefixLen = &n
	return b
}

// AddUnrecognised appends an extension tag written back verbatim
func (b *Builder) AddUnrecognised(tag int16, data types.Blob) *Builder {
	b.a.Unrecognised = append(b.a.Unrecognised, UnrecognisedTag{Tag: tag, Data: data})
	return b
}

// Build validates the configuration and returns a copy of the alias
func (b *Builder) Build() (*Alias, error) {
	if _, err := recordSize(b.a.Version); err != nil {
		return nil, err
	}
	if _, err := parseKind(int16(b.a.Target.Kind)); err != nil {
		return nil, err
	}
	if _, err := parseVolumeType(int16(b.a.Volume.DiskType)); err != nil {
		return nil, err
	}
	for _, code := range []types.FourCC{b.a.AppInfo, b.a.Target.CreatorCode, b.a.Target.TypeCode} {
		if code != "" && !code.Valid() {
			return nil, fmt.Errorf("%w: %q is not a four character code", types.ErrFormat, string(code))
		}
	}
	if b.a.Target.Name == "" {
		return nil, fmt.Errorf("%w: alias target has no name", types.ErrFormat)
	}

	a := b.a
	a.Target.CNIDPath = slices.Clone(b.a.Target.CNIDPath)
	a.Unrecognised = slices.Clone(b.a.Unrecognised)
	if b.a.Volume.AppleShare != nil {
		as := *b.a.Volume.AppleShare
		a.Volume.AppleShare = &as
	}
	if b.a.Target.UserHomePrefixLen != nil {
		n := *b.a.Target.UserHomePrefixLen
		a.Target.UserHomePrefixLen = &n
	}
	return &a, nil
}
