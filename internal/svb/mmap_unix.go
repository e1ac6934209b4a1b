//go:build unix

package svb

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapData establishes a read-only mapping over the whole file. The channel
// sample views slice directly into this mapping. Some filesystems refuse
// mmap; those fall back to reading the file into memory.
func mapData(f *os.File, size int64) ([]byte, func() error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return readContiguous(f, size)
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
