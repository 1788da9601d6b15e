//go:build !darwin && !linux

package metadata

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// OSSource is unavailable on this platform; every query fails with ErrUnsupported
type OSSource struct {
	RootVolumeName string
	RootVolumeUUID uuid.UUID
}

func NewOSSource(rootVolumeName string, rootVolumeUUID uuid.UUID) *OSSource {
	return &OSSource{RootVolumeName: rootVolumeName, RootVolumeUUID: rootVolumeUUID}
}

func (s *OSSource) File(path string) (FileAttributes, error) {
	return FileAttributes{}, fmt.Errorf("%w: file metadata on %s", types.ErrUnsupported, runtime.GOOS)
}

func (s *OSSource) Volume(path string) (VolumeAttributes, error) {
	return VolumeAttributes{}, fmt.Errorf("%w: volume metadata on %s", types.ErrUnsupported, runtime.GOOS)
}
