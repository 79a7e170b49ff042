//go:build unix

package mmfile

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(fd *os.File, size int) (*File, error) {
	data, err := unix.Mmap(int(fd.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	// Decoding walks the note and symbol sections front to back.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &File{data: data, release: munmap}, nil
}

func munmap(data []byte) error {
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		return nil
	}
	return err
}
