package metadata

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

func mountPoint(path string) (string, error) {
	var sfs unix.Statfs_t
	if err := unix.Statfs(path, &sfs); err != nil {
		return "", fmt.Errorf("failed to statfs %s: %w", path, err)
	}
	return unix.ByteSliceToString(sfs.Mntonname[:]), nil
}

func volumeSize(mount string) (int64, error) {
	var sfs unix.Statfs_t
	if err := unix.Statfs(mount, &sfs); err != nil {
		return 0, fmt.Errorf("failed to statfs %s: %w", mount, err)
	}
	return int64(sfs.Blocks) * int64(sfs.Bsize), nil
}

func birthTime(_ string, st *unix.Stat_t) time.Time {
	return time.Unix(st.Btim.Unix()).UTC()
}
