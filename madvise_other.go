//go:build !linux

package phmap

// madviseRandom is a no-op on non-Linux platforms.
func madviseRandom(data []byte) {
	// No-op
}
