// Package buf contains bounds-checked helpers for decoding binary records.
package buf

import "encoding/binary"

// U32 reads a uint32 in the given byte order. Returns 0 when b is too short.
func U32(order binary.ByteOrder, b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return order.Uint32(b)
}

// CString returns b up to the first NUL byte.
func CString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
