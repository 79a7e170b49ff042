package mdtree

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joshuapare/codeobjkit/pkg/comgr"
)

// Dump writes an indented, YAML-like rendering of the subtree rooted at n.
func (n Node) Dump(w io.Writer) error {
	return n.dump(w, 0)
}

func (n Node) dump(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	switch n.Kind() {
	case comgr.KindMap:
		for _, key := range n.Keys() {
			child := n.Get(key)
			if isContainer(child) && child.Len() > 0 {
				if _, err := fmt.Fprintf(w, "%s%s:\n", indent, key); err != nil {
					return err
				}
				if err := child.dump(w, depth+1); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "%s%s: %s\n", indent, key, leafString(child)); err != nil {
				return err
			}
		}
	case comgr.KindList:
		for i := 0; i < n.Len(); i++ {
			child := n.Index(i)
			if isContainer(child) && child.Len() > 0 {
				if _, err := fmt.Fprintf(w, "%s-\n", indent); err != nil {
					return err
				}
				if err := child.dump(w, depth+1); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "%s- %s\n", indent, leafString(child)); err != nil {
				return err
			}
		}
	default:
		_, err := fmt.Fprintf(w, "%s%s\n", indent, leafString(n))
		return err
	}
	return nil
}

func isContainer(n Node) bool {
	k := n.Kind()
	return k == comgr.KindMap || k == comgr.KindList
}

func leafString(n Node) string {
	switch n.Kind() {
	case comgr.KindString:
		s, err := n.raw.Text()
		if err != nil {
			return "<error>"
		}
		return strconv.Quote(s)
	case comgr.KindMap:
		return "{}"
	case comgr.KindList:
		return "[]"
	default:
		return "null"
	}
}
