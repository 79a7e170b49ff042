// Package yamlmd exposes YAML metadata text (code object v2 notes, or PAL
// metadata dumped by tools) as a comgr metadata tree backed by yaml.Node.
package yamlmd

import (
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Node wraps a yaml.Node. Aliases are followed and documents unwrap to their
// content, so callers only ever see scalars, sequences and mappings.
type Node struct {
	n *yaml.Node
}

// Parse parses a single YAML document. An empty document is a null node.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.Errorf(types.ErrParse, "yaml: %w", err)
	}
	return &Node{n: &doc}, nil
}

// resolve follows documents and aliases.
func (y *Node) resolve() *yaml.Node {
	n := y.n
	for i := 0; n != nil && i < 32; i++ {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		case 0:
			return nil
		default:
			return n
		}
	}
	return nil
}

// Kind implements comgr.MetadataNode.
func (y *Node) Kind() (comgr.Kind, error) {
	n := y.resolve()
	if n == nil {
		return comgr.KindNone, nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return comgr.KindNone, nil
		}
		return comgr.KindString, nil
	case yaml.SequenceNode:
		return comgr.KindList, nil
	case yaml.MappingNode:
		return comgr.KindMap, nil
	default:
		return comgr.KindNone, fmt.Errorf("unexpected yaml node kind %d", n.Kind)
	}
}

// Len implements comgr.MetadataNode.
func (y *Node) Len() (int, error) {
	n := y.resolve()
	switch {
	case n == nil:
	case n.Kind == yaml.SequenceNode:
		return len(n.Content), nil
	case n.Kind == yaml.MappingNode:
		return len(n.Content) / 2, nil
	}
	return 0, fmt.Errorf("line %d: len of non-container yaml node", y.line())
}

// Index implements comgr.MetadataNode.
func (y *Node) Index(i int) (comgr.MetadataNode, error) {
	n := y.resolve()
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: index into non-sequence yaml node", y.line())
	}
	if i < 0 || i >= len(n.Content) {
		return nil, fmt.Errorf("line %d: index %d out of range [0,%d)", n.Line, i, len(n.Content))
	}
	return &Node{n: n.Content[i]}, nil
}

// Lookup implements comgr.MetadataNode. With duplicate keys the last one
// wins, as in yaml.Unmarshal into a map.
func (y *Node) Lookup(key string) (comgr.MetadataNode, bool, error) {
	n := y.resolve()
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false, fmt.Errorf("line %d: lookup in non-mapping yaml node", y.line())
	}
	for i := len(n.Content) - 2; i >= 0; i -= 2 {
		if n.Content[i].Value == key {
			return &Node{n: n.Content[i+1]}, true, nil
		}
	}
	return nil, false, nil
}

// Keys implements comgr.MetadataNode.
func (y *Node) Keys() ([]string, error) {
	n := y.resolve()
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: keys of non-mapping yaml node", y.line())
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys, nil
}

// Text implements comgr.MetadataNode.
func (y *Node) Text() (string, error) {
	n := y.resolve()
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: text of non-scalar yaml node", y.line())
	}
	return n.Value, nil
}

// line reports the source line of the node, or 0 for an empty document.
func (y *Node) line() int {
	if n := y.resolve(); n != nil {
		return n.Line
	}
	return 0
}

// Artifact is YAML metadata text. It has no symbol table.
type Artifact struct {
	root *Node
}

// Open parses data into an Artifact.
func Open(data []byte) (*Artifact, error) {
	root, err := Parse(data)
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
