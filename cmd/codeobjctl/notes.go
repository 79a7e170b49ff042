package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/codeobjkit/internal/elfobj"
	"github.com/joshuapare/codeobjkit/internal/mmfile"
)

type noteInfo struct {
	Owner string `json:"owner"`
	Type  uint32 `json:"type"`
	Size  int    `json:"size"`
}

func init() {
	rootCmd.AddCommand(newNotesCmd())
}

func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes <code-object>",
		Short: "List the ELF notes of a code object",
		Long: `The notes command lists every note of an ELF code object with its owner,
type and payload size. The AMDGPU note of type 32 carries the metadata.

Example:
  codeobjctl notes shader.elf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotes(args)
		},
	}
	return cmd
}

func runNotes(args []string) error {
	f, err := mmfile.Open(args[0], 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if !elfobj.IsELF(f.Bytes()) {
		return fmt.Errorf("%s is not an ELF file", args[0])
	}
	a, err := elfobj.Open(f.Bytes(), cfg.OpenOptions())
	if err != nil {
		return err
	}
	notes, err := a.Notes()
	if err != nil {
		return err
	}

	out := make([]noteInfo, len(notes))
	for i, n := range notes {
		out[i] = noteInfo{Owner: n.Owner, Type: n.Type, Size: len(n.Desc)}
	}
	if jsonOut {
		return printJSON(out)
	}
	if len(out) == 0 {
		fmt.Fprintln(os.Stderr, "no notes")
		return nil
	}
	for _, n := range out {
		printInfo("%-8s type=%-3d %s\n", n.Owner, n.Type, formatSize(n.Size))
	}
	return nil
}
