package mdtree

import (
	"strconv"
	"strings"

	"github.com/joshuapare/codeobjkit/pkg/types"
)

// ParseUint converts metadata text to an unsigned integer of the given bit
// size. The entire text must be consumed:
//
//	"42"     -> 42
//	"0x2c0a" -> 0x2c0a (0x/0X selects hex)
//	"true"   -> 1, "false" -> 0 (providers render booleans as text)
//	"4x2"    -> error
//
// Leading and trailing blanks are ignored.
func ParseUint(text string, bitSize int) (uint64, error) {
	s := strings.TrimSpace(text)
	switch s {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	base := 10
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s, base = s[2:], 16
	}
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, types.Errorf(types.ErrParse, "%q is not an unsigned integer", text)
	}
	v, err := strconv.ParseUint(s, base, bitSize)
	if err != nil {
		return 0, types.Errorf(types.ErrParse, "%q is not an unsigned %d-bit integer", text, bitSize)
	}
	return v, nil
}
