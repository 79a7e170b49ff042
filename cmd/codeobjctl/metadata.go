package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/codeobjkit/pkg/codeobj"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
)

func init() {
	rootCmd.AddCommand(newMetadataCmd())
}

func newMetadataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata <code-object>",
		Short: "Dump the raw metadata tree",
		Long: `The metadata command prints the metadata tree of a code object as the
provider reports it, before any schema is applied.

Example:
  codeobjctl metadata shader.elf
  codeobjctl metadata shader.elf --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadata(args)
		},
	}
	return cmd
}

func runMetadata(args []string) error {
	co, err := openCodeObj(args[0])
	if err != nil {
		return err
	}
	defer co.Close()

	root, err := co.Metadata()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(treeValue(root))
	}
	if quiet {
		return nil
	}
	return root.Dump(os.Stdout)
}

// treeValue converts a node into values encoding/json understands. Map key
// order is not preserved.
func treeValue(n codeobj.Node) any {
	switch n.Kind() {
	case comgr.KindMap:
		m := make(map[string]any)
		for _, k := range n.Keys() {
			m[k] = treeValue(n.Get(k))
		}
		return m
	case comgr.KindList:
		l := make([]any, n.Len())
		for i := range l {
			l[i] = treeValue(n.Index(i))
		}
		return l
	case comgr.KindString:
		s, err := n.Text()
		if err != nil {
			return nil
		}
		return s
	default:
		return nil
	}
}
