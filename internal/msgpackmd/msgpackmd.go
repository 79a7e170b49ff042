// Package msgpackmd reads MessagePack encoded code object metadata (the
// payload of the NT_AMDGPU_METADATA note) into an in-memory tree.
//
// Scalars are rendered the way the code object manager reports them:
// integers as decimal text, booleans as "1"/"0", binary blobs as raw text.
package msgpackmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/joshuapare/codeobjkit/internal/mdtree"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// MaxDepth bounds container nesting.
const MaxDepth = 64

// IsMap reports whether data starts with a MessagePack map header.
func IsMap(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	c := data[0]
	return msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32
}

// Parse decodes one MessagePack value from data. maxEntries bounds every map
// and array; zero selects types.DefaultMaxEntries.
func Parse(data []byte, maxEntries int) (*mdtree.Mem, error) {
	if maxEntries <= 0 {
		maxEntries = types.DefaultMaxEntries
	}
	p := &parser{dec: msgpack.NewDecoder(bytes.NewReader(data)), maxEntries: maxEntries}
	return p.value(0)
}

type parser struct {
	dec        *msgpack.Decoder
	maxEntries int
}

func (p *parser) value(depth int) (*mdtree.Mem, error) {
	if depth > MaxDepth {
		return nil, types.Errorf(types.ErrTooLarge, "nesting deeper than %d", MaxDepth)
	}
	c, err := p.dec.PeekCode()
	if err != nil {
		return nil, p.wrap(err)
	}

	switch {
	case c == msgpcode.Nil:
		if err := p.dec.DecodeNil(); err != nil {
			return nil, p.wrap(err)
		}
		return mdtree.Null(), nil

	case c == msgpcode.False || c == msgpcode.True:
		b, err := p.dec.DecodeBool()
		if err != nil {
			return nil, p.wrap(err)
		}
		if b {
			return mdtree.Str("1"), nil
		}
		return mdtree.Str("0"), nil

	case msgpcode.IsString(c):
		s, err := p.dec.DecodeString()
		if err != nil {
			return nil, p.wrap(err)
		}
		return mdtree.Str(s), nil

	case msgpcode.IsBin(c):
		b, err := p.dec.DecodeBytes()
		if err != nil {
			return nil, p.wrap(err)
		}
		return mdtree.Str(string(b)), nil

	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		return p.array(depth)

	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		return p.mapping(depth)

	case msgpcode.IsExt(c) || msgpcode.IsFixedExt(c):
		return nil, types.Errorf(types.ErrUnsupported, "msgpack extension type 0x%02x", c)

	default:
		s, err := p.scalar()
		if err != nil {
			return nil, err
		}
		return mdtree.Str(s), nil
	}
}

// scalar renders a number as text.
func (p *parser) scalar() (string, error) {
	v, err := p.dec.DecodeInterfaceLoose()
	if err != nil {
		return "", p.wrap(err)
	}
	switch v := v.(type) {
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case string:
		return v, nil
	default:
		return "", types.Errorf(types.ErrUnsupported, "msgpack scalar of type %T", v)
	}
}

func (p *parser) array(depth int) (*mdtree.Mem, error) {
	n, err := p.dec.DecodeArrayLen()
	if err != nil {
		return nil, p.wrap(err)
	}
	if n > p.maxEntries {
		return nil, types.Errorf(types.ErrTooLarge, "array of %d entries, limit %d", n, p.maxEntries)
	}
	list := mdtree.List()
	for i := 0; i < n; i++ {
		item, err := p.value(depth + 1)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		list.Append(item)
	}
	return list, nil
}

func (p *parser) mapping(depth int) (*mdtree.Mem, error) {
	n, err := p.dec.DecodeMapLen()
	if err != nil {
		return nil, p.wrap(err)
	}
	if n > p.maxEntries {
		return nil, types.Errorf(types.ErrTooLarge, "map of %d entries, limit %d", n, p.maxEntries)
	}
	m := mdtree.Map()
	for i := 0; i < n; i++ {
		key, err := p.key()
		if err != nil {
			return nil, err
		}
		val, err := p.value(depth + 1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		m.Set(key, val)
	}
	return m, nil
}

// key decodes a map key. Keys are strings in practice; numbers are accepted
// and rendered as text.
func (p *parser) key() (string, error) {
	c, err := p.dec.PeekCode()
	if err != nil {
		return "", p.wrap(err)
	}
	if msgpcode.IsString(c) {
		s, err := p.dec.DecodeString()
		if err != nil {
			return "", p.wrap(err)
		}
		return s, nil
	}
	if msgpcode.IsFixedNum(c) || (c >= msgpcode.Uint8 && c <= msgpcode.Int64) {
		return p.scalar()
	}
	return "", types.Errorf(types.ErrWrongKind, "map key with msgpack code 0x%02x", c)
}

func (p *parser) wrap(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return types.Errorf(types.ErrParse, "truncated msgpack: %w", err)
	}
	return types.Errorf(types.ErrParse, "msgpack: %w", err)
}

// Artifact is a bare MessagePack metadata blob. It has no symbol table.
type Artifact struct {
	root *mdtree.Mem
}

// Open parses data into an Artifact.
func Open(data []byte, opts types.OpenOptions) (*Artifact, error) {
	opts = opts.WithDefaults()
	root, err := Parse(data, opts.MaxEntries)
	if err != nil {
		return nil, err
	}
	return &Artifact{root: root}, nil
}

// Metadata implements comgr.Artifact.
func (a *Artifact) Metadata() (comgr.MetadataNode, error) {
	return a.root, nil
}

// Symbols implements comgr.Artifact. The sequence is always empty.
func (a *Artifact) Symbols() iter.Seq2[comgr.Symbol, error] {
	return func(func(comgr.Symbol, error) bool) {}
}
