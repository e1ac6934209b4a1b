//go:build !unix

package svb

import "os"

// mapData reads the whole file into memory on platforms without a POSIX mmap.
func mapData(f *os.File, size int64) ([]byte, func() error, error) {
	return readContiguous(f, size)
}
