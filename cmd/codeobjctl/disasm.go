package main

import (
	"github.com/spf13/cobra"
)

var (
	disasmISA    string
	disasmOutput string
)

func init() {
	rootCmd.AddCommand(newDisasmCmd())
}

func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <code-object>",
		Short: "Disassemble a code object",
		Long: `The disasm command runs the configured disassembler on a relocatable
code object and writes the assembly text.

The tool is taken from bridge.tools.disassemble-relocatable-to-source in the
configuration file.

Example:
  codeobjctl disasm shader.elf
  codeobjctl disasm shader.elf --isa amdgcn-amd-amdhsa--gfx1030 -o shader.s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisasm(cmd, args)
		},
	}
	cmd.Flags().StringVar(&disasmISA, "isa", "", "Target ISA name (default from config)")
	cmd.Flags().StringVarP(&disasmOutput, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func runDisasm(cmd *cobra.Command, args []string) error {
	isa := disasmISA
	if isa == "" {
		isa = cfg.Bridge.ISA
	}

	co, err := openCodeObj(args[0])
	if err != nil {
		return err
	}
	defer co.Close()

	text, err := co.ExtractAssemblyData(cmd.Context(), isa)
	if err != nil {
		return err
	}
	return writeOutput(disasmOutput, text)
}
