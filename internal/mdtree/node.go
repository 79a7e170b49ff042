// Package mdtree is a fail-safe accessor over a provider's metadata tree.
//
// A Node is a non-owning view. Every accessor checks validity first: an
// invalid node (missing key, out-of-range index, wrong container kind)
// answers with the neutral value of the result type and records nothing.
// Provider failures and conversions that cannot succeed (wrong leaf kind,
// unparsable number, oversized string) are recorded in the session's
// last-error slot and, for leaf conversions, also returned.
package mdtree

import (
	"math/bits"

	"github.com/joshuapare/codeobjkit/internal/lasterr"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Session is the state shared by all nodes obtained from one root.
type Session struct {
	Errs *lasterr.Slot
	Opts types.OpenOptions
}

// Node is a view of one metadata node. The zero Node is invalid.
type Node struct {
	raw  comgr.MetadataNode
	sess *Session
}

// NewRoot wraps a provider node. A nil raw node yields an invalid Node.
func NewRoot(raw comgr.MetadataNode, sess *Session) Node {
	if sess == nil {
		sess = &Session{}
	}
	sess.Opts = sess.Opts.WithDefaults()
	return Node{raw: raw, sess: sess}
}

func (n Node) child(raw comgr.MetadataNode) Node {
	return Node{raw: raw, sess: n.sess}
}

// Record stores err in the session's last-error slot and returns it. A nil
// err is passed through.
func (n Node) Record(err error) error {
	if n.sess != nil {
		n.sess.Errs.Record(err)
	}
	return err
}

func (n Node) providerErr(op string, err error) error {
	return n.Record(types.Provider(op, err))
}

// IsValid reports whether the node refers to a provider node.
func (n Node) IsValid() bool {
	return n.raw != nil
}

// Kind returns the node kind; KindNone for invalid nodes.
func (n Node) Kind() comgr.Kind {
	if !n.IsValid() {
		return comgr.KindNone
	}
	k, err := n.raw.Kind()
	if err != nil {
		n.providerErr("get metadata kind", err)
		return comgr.KindNone
	}
	return k
}

// Len returns the number of children of a list or map, otherwise 0.
func (n Node) Len() int {
	switch n.Kind() {
	case comgr.KindList, comgr.KindMap:
	default:
		return 0
	}
	size, err := n.raw.Len()
	if err != nil {
		n.providerErr("get metadata size", err)
		return 0
	}
	return size
}

// Index returns the i-th child of a list. Out of range or non-list nodes
// give an invalid Node.
func (n Node) Index(i int) Node {
	if n.Kind() != comgr.KindList || i < 0 || i >= n.Len() {
		return Node{sess: n.sess}
	}
	c, err := n.raw.Index(i)
	if err != nil {
		n.providerErr("index list metadata", err)
		return Node{sess: n.sess}
	}
	return n.child(c)
}

// Get returns the value stored under key in a map. A missing key or a
// non-map node give an invalid Node.
func (n Node) Get(key string) Node {
	if n.Kind() != comgr.KindMap {
		return Node{sess: n.sess}
	}
	c, ok, err := n.raw.Lookup(key)
	if err != nil {
		n.providerErr("metadata lookup "+key, err)
		return Node{sess: n.sess}
	}
	if !ok {
		return Node{sess: n.sess}
	}
	return n.child(c)
}

// Has reports whether a map node contains key.
func (n Node) Has(key string) bool {
	return n.Get(key).IsValid()
}

// Keys lists the keys of a map node in provider order. Each call returns a
// fresh slice.
func (n Node) Keys() []string {
	if n.Kind() != comgr.KindMap {
		return nil
	}
	keys, err := n.raw.Keys()
	if err != nil {
		n.providerErr("iterate map metadata", err)
		return nil
	}
	return keys
}

// Text returns the value of a string leaf. Invalid and null nodes give ""
// without error.
func (n Node) Text() (string, error) {
	switch n.Kind() {
	case comgr.KindNone:
		return "", nil
	case comgr.KindString:
	default:
		return "", n.Record(types.Errorf(types.ErrWrongKind, "expected string leaf, got %s", n.Kind()))
	}
	s, err := n.raw.Text()
	if err != nil {
		return "", n.providerErr("get metadata string", err)
	}
	if limit := n.maxStringLen(); len(s) > limit {
		return "", n.Record(types.Errorf(types.ErrStringTooLong, "%d bytes, limit %d", len(s), limit))
	}
	return s, nil
}

func (n Node) maxStringLen() int {
	if n.sess == nil || n.sess.Opts.MaxStringLen <= 0 {
		return types.DefaultMaxStringLen
	}
	return n.sess.Opts.MaxStringLen
}

// Uint converts a string leaf to an unsigned integer of type T. The whole
// text must parse (see ParseUint); on failure the error is recorded and the
// zero value returned.
func Uint[T ~uint8 | ~uint16 | ~uint32 | ~uint64](n Node) (T, error) {
	s, err := n.Text()
	if err != nil || !n.IsValid() || n.Kind() == comgr.KindNone {
		return 0, err
	}
	v, err := ParseUint(s, bits.Len64(uint64(^T(0))))
	if err != nil {
		return 0, n.Record(err)
	}
	return T(v), nil
}

// Uint32 is Uint[uint32].
func (n Node) Uint32() (uint32, error) { return Uint[uint32](n) }

// Uint64 is Uint[uint64].
func (n Node) Uint64() (uint64, error) { return Uint[uint64](n) }
