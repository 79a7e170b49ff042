package mdtree

import (
	"fmt"
	"strconv"

	"github.com/joshuapare/codeobjkit/pkg/comgr"
)

// Mem is an in-memory metadata tree that implements comgr.MetadataNode.
// Providers that decode a whole blob up front (MessagePack) build one, and
// tests use it to construct synthetic trees. Map keys keep insertion order.
type Mem struct {
	kind  comgr.Kind
	text  string
	items []*Mem
	keys  []string
	index map[string]int
}

// Null returns a null leaf.
func Null() *Mem { return &Mem{kind: comgr.KindNone} }

// Str returns a string leaf.
func Str(s string) *Mem { return &Mem{kind: comgr.KindString, text: s} }

// Num returns a string leaf holding the decimal form of v, the way the code
// object manager reports integers.
func Num(v uint64) *Mem { return Str(strconv.FormatUint(v, 10)) }

// List returns a list of the given items.
func List(items ...*Mem) *Mem {
	return &Mem{kind: comgr.KindList, items: items}
}

// Map returns an empty map.
func Map() *Mem {
	return &Mem{kind: comgr.KindMap, index: map[string]int{}}
}

// Set stores v under key, replacing an existing entry in place, and returns
// the receiver for chaining. It panics when m is not a map.
func (m *Mem) Set(key string, v *Mem) *Mem {
	if m.kind != comgr.KindMap {
		panic("mdtree: Set on non-map node")
	}
	if i, ok := m.index[key]; ok {
		m.items[i] = v
		return m
	}
	m.index[key] = len(m.items)
	m.keys = append(m.keys, key)
	m.items = append(m.items, v)
	return m
}

// Delete removes key from a map. Missing keys are ignored.
func (m *Mem) Delete(key string) *Mem {
	i, ok := m.index[key]
	if !ok {
		return m
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.items = append(m.items[:i], m.items[i+1:]...)
	delete(m.index, key)
	for k, j := range m.index {
		if j > i {
			m.index[k] = j - 1
		}
	}
	return m
}

// Append adds items to a list and returns the receiver.
func (m *Mem) Append(items ...*Mem) *Mem {
	if m.kind != comgr.KindList {
		panic("mdtree: Append on non-list node")
	}
	m.items = append(m.items, items...)
	return m
}

// Kind implements comgr.MetadataNode.
func (m *Mem) Kind() (comgr.Kind, error) { return m.kind, nil }

// Len implements comgr.MetadataNode.
func (m *Mem) Len() (int, error) {
	switch m.kind {
	case comgr.KindList, comgr.KindMap:
		return len(m.items), nil
	default:
		return 0, fmt.Errorf("len of %s node", m.kind)
	}
}

// Index implements comgr.MetadataNode.
func (m *Mem) Index(i int) (comgr.MetadataNode, error) {
	if m.kind != comgr.KindList {
		return nil, fmt.Errorf("index into %s node", m.kind)
	}
	if i < 0 || i >= len(m.items) {
		return nil, fmt.Errorf("index %d out of range [0,%d)", i, len(m.items))
	}
	return m.items[i], nil
}

// Lookup implements comgr.MetadataNode.
func (m *Mem) Lookup(key string) (comgr.MetadataNode, bool, error) {
	if m.kind != comgr.KindMap {
		return nil, false, fmt.Errorf("lookup in %s node", m.kind)
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false, nil
	}
	return m.items[i], true, nil
}

// Keys implements comgr.MetadataNode.
func (m *Mem) Keys() ([]string, error) {
	if m.kind != comgr.KindMap {
		return nil, fmt.Errorf("keys of %s node", m.kind)
	}
	return append([]string(nil), m.keys...), nil
}

// Text implements comgr.MetadataNode.
func (m *Mem) Text() (string, error) {
	if m.kind != comgr.KindString {
		return "", fmt.Errorf("text of %s node", m.kind)
	}
	return m.text, nil
}
