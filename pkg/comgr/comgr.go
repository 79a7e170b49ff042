// Package comgr describes the boundary between the decoders and whatever
// provides code object services: the metadata tree, the symbol table and the
// transform actions (disassemble, compile, link, codegen).
//
// The interfaces are small so that a cgo binding to the vendor library, the
// pure-Go ELF/MessagePack/YAML providers in this module, or a test fake can
// all sit behind them.
package comgr

import (
	"context"
	"iter"

	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Kind is the kind of a metadata node.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindList
	KindMap
)

// String implements the Stringer interface for Kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "none"
	}
}

// MetadataNode is a provider-side handle to a node of the metadata tree.
// Implementations report failures through the returned error; they must not
// panic on kind mismatches.
type MetadataNode interface {
	// Kind reports the node kind. Integers are reported as KindString.
	Kind() (Kind, error)
	// Len is the number of children of a list or entries of a map.
	Len() (int, error)
	// Index returns the i-th child of a list.
	Index(i int) (MetadataNode, error)
	// Lookup returns the value stored under key in a map. A missing key is
	// reported as ok == false with a nil error.
	Lookup(key string) (node MetadataNode, ok bool, err error)
	// Keys lists map keys in provider iteration order.
	Keys() ([]string, error)
	// Text returns the textual value of a string leaf.
	Text() (string, error)
}

// Symbol is one entry of a code object's symbol table as the provider sees
// it. Type is the discriminant; Name, Size and Value are the payload.
type Symbol struct {
	Type  types.SymbolType
	Name  string
	Size  uint64
	Value uint64
}

// Artifact is an opened code object.
type Artifact interface {
	// Metadata returns the root of the metadata tree.
	Metadata() (MetadataNode, error)
	// Symbols iterates the symbol table. Each call restarts the iteration.
	Symbols() iter.Seq2[Symbol, error]
}

// Opener turns a buffer of the given kind into an Artifact.
type Opener func(data []byte, kind types.DataKind) (Artifact, error)

// Actor performs one transform action over a data set.
type Actor interface {
	Do(ctx context.Context, action Action, info ActionInfo, in DataSet) (DataSet, error)
}

// ActorFunc adapts a function to the Actor interface.
type ActorFunc func(ctx context.Context, action Action, info ActionInfo, in DataSet) (DataSet, error)

// Do calls f.
func (f ActorFunc) Do(ctx context.Context, action Action, info ActionInfo, in DataSet) (DataSet, error) {
	return f(ctx, action, info, in)
}
