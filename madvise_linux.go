//go:build linux

package phmap

import "golang.org/x/sys/unix"

// madviseRandom hints to the kernel that the mapped table will be accessed
// at random offsets, disabling read-ahead. Best-effort: errors are silently
// ignored.
func madviseRandom(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
}
