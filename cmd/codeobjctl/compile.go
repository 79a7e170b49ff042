package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/codeobjkit/pkg/codeobj"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

var (
	compileISA    string
	compileLang   string
	compileOutput string
)

func init() {
	rootCmd.AddCommand(newCompileCmd())
}

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <source>",
		Short: "Compile source into an executable code object",
		Long: `The compile command runs the configured tool chain over a source file:
precompiled headers, bitcode, device libraries, link, codegen and the final
executable link. Each step's tool comes from bridge.tools in the
configuration file.

Example:
  codeobjctl compile kernel.cl -o kernel.co
  codeobjctl compile kernel.cl --lang opencl-2.0 --isa amdgcn-amd-amdhsa--gfx900 -o kernel.co`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args)
		},
	}
	cmd.Flags().StringVar(&compileISA, "isa", "", "Target ISA name (default from config)")
	cmd.Flags().StringVar(&compileLang, "lang", "", "Source language (default from config)")
	cmd.Flags().StringVarP(&compileOutput, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	isa := compileISA
	if isa == "" {
		isa = cfg.Bridge.ISA
	}
	lang := cfg.Language()
	if compileLang != "" {
		l, err := types.ParseLanguage(compileLang)
		if err != nil {
			return err
		}
		lang = l
	}

	co, err := openCodeObj(args[0], codeobj.WithDataKind(types.DataKindSource))
	if err != nil {
		return err
	}
	defer co.Close()

	exe, err := co.ConvertSourceToCodeObject(cmd.Context(), lang, isa)
	if err != nil {
		return err
	}
	printVerbose("Compiled %s for %s (%s)\n", args[0], isa, lang)
	return writeOutput(compileOutput, exe)
}
