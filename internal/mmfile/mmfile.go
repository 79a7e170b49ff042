// Package mmfile maps code object files into memory for read-only decoding.
package mmfile

import (
	"fmt"
	"os"
	"sync"
)

// File is a read-only view of a file's contents. Bytes stays valid until
// Close; Close is idempotent.
type File struct {
	data    []byte
	release func([]byte) error
	once    sync.Once
	err     error
}

// Bytes returns the file contents.
func (f *File) Bytes() []byte {
	if f == nil {
		return nil
	}
	return f.data
}

// Len is the size of the mapping.
func (f *File) Len() int { return len(f.Bytes()) }

// Close releases the mapping. The slice returned by Bytes must not be used
// afterwards.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		if f.release != nil && len(f.data) > 0 {
			f.err = f.release(f.data)
		}
		f.data = nil
	})
	return f.err
}

// Open maps the file at path. Files larger than maxSize are rejected before
// mapping; maxSize <= 0 disables the check.
func Open(path string, maxSize int64) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close() // the mapping outlives the descriptor

	info, err := fd.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("mmfile: %s is not a regular file", path)
	}
	if maxSize > 0 && size > maxSize {
		return nil, fmt.Errorf("mmfile: %s is %d bytes, limit %d", path, size, maxSize)
	}
	if size == 0 {
		return &File{data: []byte{}}, nil
	}
	if size > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("mmfile: file too large to map (%d bytes)", size)
	}
	return mapFile(fd, int(size))
}
