//go:build !windows

package validation

import (
	"syscall"
)

// freeDiskSpace returns the bytes available to unprivileged users on the
// filesystem containing path.
func freeDiskSpace(path string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	// Bavail rather than Bfree: space usable without root privileges.
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
