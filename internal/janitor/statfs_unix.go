//go:build !windows

package janitor

import "golang.org/x/sys/unix"

// statfs queries free and total bytes for the filesystem containing
// path via the unix.Statfs syscall wrapper.
func statfs(path string) (free, total uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	blockSize := uint64(st.Bsize)
	return st.Bavail * blockSize, st.Blocks * blockSize, nil
}
