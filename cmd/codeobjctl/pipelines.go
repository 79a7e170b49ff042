package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/codeobjkit/internal/pal"
	"github.com/joshuapare/codeobjkit/pkg/codeobj"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

var pipelinesIndex int

func init() {
	rootCmd.AddCommand(newPipelinesCmd())
}

func newPipelinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipelines <code-object>",
		Short: "Decode the PAL pipeline metadata",
		Long: `The pipelines command decodes the PAL pipeline metadata of a code object
and prints each pipeline with its shaders, hardware stages and registers.

A pipeline that fails to decode is reported and the remaining pipelines are
still printed; the command then exits with an error.

Example:
  codeobjctl pipelines shader.elf
  codeobjctl pipelines shader.elf --pipeline 0 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelines(args)
		},
	}
	cmd.Flags().IntVarP(&pipelinesIndex, "pipeline", "p", -1, "Only show the pipeline at this index")
	return cmd
}

func runPipelines(args []string) error {
	co, err := openCodeObj(args[0])
	if err != nil {
		return err
	}
	defer co.Close()

	data, decodeErr := co.ExtractPalPipelineData()
	defer codeobj.ClearPalPipelineData(data)

	pipelines := data.Pipelines
	if pipelinesIndex >= 0 {
		if pipelinesIndex >= len(pipelines) {
			return fmt.Errorf("pipeline %d out of range (%d decoded)", pipelinesIndex, len(pipelines))
		}
		pipelines = pipelines[pipelinesIndex : pipelinesIndex+1]
	}

	if jsonOut {
		out := *data
		out.Pipelines = pipelines
		if err := printJSON(out); err != nil {
			return err
		}
		return decodeErr
	}

	printInfo("PAL metadata version %d.%d, %d pipeline(s)\n", data.Version.Major, data.Version.Minor, data.NumPipelines())
	for i, p := range pipelines {
		printPipeline(i, p)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode incomplete: %w", decodeErr)
	}
	return nil
}

func printPipeline(i int, p types.Pipeline) {
	name := p.Name
	if name == "" {
		name = "(unnamed)"
	}
	printInfo("\nPipeline %d: %s\n", i, name)
	printInfo("  Type:             %d\n", p.Type)
	printInfo("  Hash:             0x%016x\n", p.Hash)
	printInfo("  User data limit:  %d\n", p.UserDataLimit)
	printInfo("  Spill threshold:  0x%x\n", p.SpillThreshold)
	if p.WavefrontSize != 0 {
		printInfo("  Wavefront size:   %d\n", p.WavefrontSize)
	}
	if p.ScratchMemorySize != 0 {
		printInfo("  Scratch memory:   %s\n", formatSize(int(p.ScratchMemorySize)))
	}
	if p.EsGsLocalDataShareSize != 0 {
		printInfo("  ES/GS LDS:        %s\n", formatSize(int(p.EsGsLocalDataShareSize)))
	}

	if len(p.Shaders) > 0 {
		printInfo("  Shaders:\n")
		for _, s := range p.Shaders {
			printInfo("    %-8s mapping=0x%04x hash=%x\n", s.Type, s.HardwareMapping, s.Hash)
			if tag, ok := pal.ShaderTag(s.Type); ok {
				printVerbose("      key: %s/%s\n", pal.TagShaders, tag)
			}
		}
	}
	if len(p.Stages) > 0 {
		printInfo("  Hardware stages:\n")
		for _, st := range p.Stages {
			printInfo("    %-5s %s vgprs=%d/%d sgprs=%d/%d",
				st.Type, st.EntryPointSymbolName,
				st.NumUsedVgprs, st.NumAvailableVgprs, st.NumUsedSgprs, st.NumAvailableSgprs)
			if st.LocalDataShareSize != 0 {
				printInfo(" lds=%s", formatSize(int(st.LocalDataShareSize)))
			}
			if st.ScratchMemorySize != 0 {
				printInfo(" scratch=%s", formatSize(int(st.ScratchMemorySize)))
			}
			printInfo("\n")
			if tag, ok := pal.StageTag(st.Type); ok {
				printVerbose("      key: %s/%s\n", pal.TagHardwareStages, tag)
			}
		}
	}
	if len(p.Registers) > 0 {
		printInfo("  Registers (%d):\n", len(p.Registers))
		for _, r := range p.Registers {
			printInfo("    0x%04x = 0x%08x\n", r.Address, r.Data)
		}
	}
}
