package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// AlignUp rounds n up to a multiple of align, which must be a power of two.
// ok is false when n is negative or the result would overflow int.
func AlignUp(n, align int) (int, bool) {
	if n < 0 || align <= 0 || align&(align-1) != 0 {
		return 0, false
	}
	sum, ok := AddOverflowSafe(n, align-1)
	if !ok {
		return 0, false
	}
	return sum &^ (align - 1), true
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}

// CheckPaddedBounds validates that fields of the given sizes, each padded to
// align bytes, fit in a buffer of bufLen bytes starting at offset. It returns
// the offset just past the last padded field.
//
//	end, err := buf.CheckPaddedBounds(len(data), off, 4, nameSize, descSize)
//	if err != nil {
//	    return fmt.Errorf("note: %w", err)
//	}
func CheckPaddedBounds(bufLen, offset, align int, sizes ...int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative offset: %d", offset)
	}
	end := offset
	for i, size := range sizes {
		padded, ok := AlignUp(size, align)
		if !ok {
			return 0, fmt.Errorf("field %d: bad size %d", i, size)
		}
		next, ok := AddOverflowSafe(end, padded)
		if !ok {
			return 0, fmt.Errorf("overflow: offset=%d + size=%d", end, padded)
		}
		end = next
	}
	if end > bufLen {
		return 0, fmt.Errorf("bounds: end=%d > len=%d", end, bufLen)
	}
	return end, nil
}
