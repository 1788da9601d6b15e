// Package metadata gathers the filesystem facts that alias and bookmark
// records are built from.
package metadata

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// ObjectType is the kind of filesystem object a path names
type ObjectType int

const (
	ObjectRegular ObjectType = iota
	ObjectDirectory
	ObjectSymlink
)

func (t ObjectType) String() string {
	switch t {
	case ObjectDirectory:
		return "directory"
	case ObjectSymlink:
		return "symlink"
	}
	return "regular"
}

// VolumeAttributes describes the volume a path lives on
type VolumeAttributes struct {
	MountPath    string    `json:"mount_path" yaml:"mount_path"`
	Name         string    `json:"name" yaml:"name"`
	CreationDate time.Time `json:"creation_date" yaml:"creation_date"`
	Size         int64     `json:"size" yaml:"size"`
	UUID         uuid.UUID `json:"uuid" yaml:"uuid"`
}

// FileAttributes describes a single file or directory
type FileAttributes struct {
	Type         ObjectType   `json:"type" yaml:"type"`
	CreationDate time.Time    `json:"creation_date" yaml:"creation_date"`
	FileID       uint64       `json:"file_id" yaml:"file_id"`
	ParentID     uint64       `json:"parent_id" yaml:"parent_id"`
	Creator      types.FourCC `json:"creator,omitempty" yaml:"creator,omitempty"`
	TypeCode     types.FourCC `json:"type_code,omitempty" yaml:"type_code,omitempty"`
}

// Source answers metadata queries for absolute paths
type Source interface {
	// Volume describes the volume containing path
	Volume(path string) (VolumeAttributes, error)
	// File describes the object at path without following a final symlink
	File(path string) (FileAttributes, error)
}

// StaticSource serves metadata from memory
type StaticSource struct {
	volumes []VolumeAttributes
	files   map[string]FileAttributes
}

func NewStaticSource() *StaticSource {
	return &StaticSource{files: make(map[string]FileAttributes)}
}

// AddVolume registers a volume mounted at v.MountPath
func (s *StaticSource) AddVolume(v VolumeAttributes) *StaticSource {
	v.MountPath = filepath.Clean(v.MountPath)
	s.volumes = append(s.volumes, v)
	return s
}

// AddFile registers the attributes of path
func (s *StaticSource) AddFile(path string, attrs FileAttributes) *StaticSource {
	s.files[filepath.Clean(path)] = attrs
	return s
}

// Volume returns the registered volume with the longest mount path containing path
func (s *StaticSource) Volume(path string) (VolumeAttributes, error) {
	path = filepath.Clean(path)
	best := -1
	for i, v := range s.volumes {
		if !within(v.MountPath, path) {
			continue
		}
		if best < 0 || len(v.MountPath) > len(s.volumes[best].MountPath) {
			best = i
		}
	}
	if best < 0 {
		return VolumeAttributes{}, fmt.Errorf("no volume contains %s: %w", path, fs.ErrNotExist)
	}
	return s.volumes[best], nil
}

func (s *StaticSource) File(path string) (FileAttributes, error) {
	attrs, ok := s.files[filepath.Clean(path)]
	if !ok {
		return FileAttributes{}, fmt.Errorf("no metadata for %s: %w", path, fs.ErrNotExist)
	}
	return attrs, nil
}

func within(mount, path string) bool {
	if mount == "/" || mount == path {
		return true
	}
	return strings.HasPrefix(path, mount+"/")
}
