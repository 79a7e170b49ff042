package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/codeobjkit/internal/symtab"
	"github.com/joshuapare/codeobjkit/pkg/codeobj"
)

func init() {
	rootCmd.AddCommand(newSymbolsCmd())
}

func newSymbolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols <code-object>",
		Short: "List function symbols",
		Long: `The symbols command lists the function symbols of a code object with
their value and size.

Example:
  codeobjctl symbols shader.elf
  codeobjctl symbols shader.elf --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbols(args)
		},
	}
	return cmd
}

func runSymbols(args []string) error {
	co, err := openCodeObj(args[0])
	if err != nil {
		return err
	}
	defer co.Close()

	info, err := co.ExtractSymbolData()
	if err != nil {
		return err
	}
	defer codeobj.ClearSymbolData(info)

	if jsonOut {
		return printJSON(info)
	}

	printVerbose("%d function symbol(s)\n", info.NumSymbols())
	for _, s := range info.Symbols {
		printInfo("%s\n", symtab.Describe(s))
	}
	return nil
}
