//go:build !unix

package mmfile

import (
	"io"
	"os"
)

// mapFile reads the whole file where mmap is not wired up.
func mapFile(fd *os.File, size int) (*File, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(fd, data); err != nil {
		return nil, err
	}
	return &File{data: data}, nil
}
