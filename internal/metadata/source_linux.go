package metadata

import (
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// mountPoint climbs from path until the device number changes
func mountPoint(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	dev := st.Dev
	dir := path
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		dir = filepath.Dir(path)
	}
	for dir != "/" {
		parent := filepath.Dir(dir)
		var pst unix.Stat_t
		if err := unix.Stat(parent, &pst); err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", parent, err)
		}
		if pst.Dev != dev {
			break
		}
		dir = parent
	}
	return dir, nil
}

func volumeSize(mount string) (int64, error) {
	var sfs unix.Statfs_t
	if err := unix.Statfs(mount, &sfs); err != nil {
		return 0, fmt.Errorf("failed to statfs %s: %w", mount, err)
	}
	return int64(sfs.Blocks) * int64(sfs.Bsize), nil
}

// birthTime falls back to the modification time on filesystems without statx birth times
func birthTime(path string, st *unix.Stat_t) time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx)
	if err == nil && stx.Mask&unix.STATX_BTIME != 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)).UTC()
	}
	return time.Unix(st.Mtim.Unix()).UTC()
}
