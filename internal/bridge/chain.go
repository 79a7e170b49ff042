// Package bridge runs fixed chains of transform actions over a comgr.Actor
// and hands back the final output as a caller-owned byte slice.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/joshuapare/codeobjkit/internal/logger"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// noCodeObjectV3 selects code object v2 output.
const noCodeObjectV3 = "-mno-code-object-v3"

// Stage is one step of a chain.
type Stage struct {
	Action  comgr.Action
	Options string
	Output  types.DataKind
	// Single requires exactly one object of Output kind after the stage.
	Single bool
}

// DisassembleStages turns a relocatable into assembly source.
var DisassembleStages = []Stage{
	{Action: comgr.ActionDisassembleRelocatableToSource, Output: types.DataKindSource, Single: true},
}

// CompileStages turns source into an executable code object.
var CompileStages = []Stage{
	{Action: comgr.ActionAddPrecompiledHeaders, Options: noCodeObjectV3, Output: types.DataKindPrecompiledHeader, Single: true},
	{Action: comgr.ActionCompileSourceToBC, Options: noCodeObjectV3, Output: types.DataKindBC, Single: true},
	// Device libraries add bitcode objects; the link below merges them.
	{Action: comgr.ActionAddDeviceLibraries, Output: types.DataKindBC},
	{Action: comgr.ActionLinkBCToBC, Options: noCodeObjectV3, Output: types.DataKindBC, Single: true},
	{Action: comgr.ActionCodegenBCToRelocatable, Options: noCodeObjectV3, Output: types.DataKindRelocatable, Single: true},
	{Action: comgr.ActionLinkRelocatableToExecutable, Output: types.DataKindExecutable, Single: true},
}

// Runner executes chains on an Actor.
type Runner struct {
	Actor comgr.Actor
	Log   *slog.Logger // nil uses logger.L
}

func (r *Runner) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logger.L
}

// Run feeds in through stages in order. Each stage consumes the previous
// stage's output. The chain stops at the first failure: an actor error, a
// cancelled context, or a Single stage that did not produce exactly one
// object of its kind. The first object of the last stage's kind is returned
// as a fresh slice.
func (r *Runner) Run(ctx context.Context, info comgr.ActionInfo, in comgr.DataSet, stages []Stage) ([]byte, error) {
	if r.Actor == nil {
		return nil, types.Errorf(types.ErrUnsupported, "no actor configured")
	}
	if len(stages) == 0 {
		return nil, types.Errorf(types.ErrProtocol, "empty chain")
	}

	set := in
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("before %s: %w", st.Action, err)
		}

		info.Options = st.Options
		r.log().Debug("running action", "stage", i, "action", st.Action.String(), "inputs", len(set))

		out, err := r.Actor.Do(ctx, st.Action, info, set)
		if err != nil {
			return nil, types.Provider(st.Action.String(), err)
		}
		if st.Single {
			if n := out.Count(st.Output); n != 1 {
				return nil, types.Errorf(types.ErrProtocol, "%s produced %d %s objects, want 1", st.Action, n, st.Output)
			}
		}
		set = out
	}

	last := stages[len(stages)-1]
	d, ok := set.Get(last.Output, 0)
	if !ok {
		return nil, types.Errorf(types.ErrProtocol, "%s produced no %s object", last.Action, last.Output)
	}
	return bytes.Clone(d.Bytes), nil
}

// Disassemble returns the assembly text of the relocatable in in.
func (r *Runner) Disassemble(ctx context.Context, in comgr.DataSet, isa string) ([]byte, error) {
	return r.Run(ctx, comgr.ActionInfo{ISAName: isa}, in, DisassembleStages)
}

// Compile builds an executable code object from the source in in.
func (r *Runner) Compile(ctx context.Context, in comgr.DataSet, lang types.Language, isa string) ([]byte, error) {
	return r.Run(ctx, comgr.ActionInfo{ISAName: isa, Language: lang}, in, CompileStages)
}

// Disassemble is shorthand for (&Runner{Actor: actor}).Disassemble.
func Disassemble(ctx context.Context, actor comgr.Actor, in comgr.DataSet, isa string) ([]byte, error) {
	return (&Runner{Actor: actor}).Disassemble(ctx, in, isa)
}

// Compile is shorthand for (&Runner{Actor: actor}).Compile.
func Compile(ctx context.Context, actor comgr.Actor, in comgr.DataSet, lang types.Language, isa string) ([]byte, error) {
	return (&Runner{Actor: actor}).Compile(ctx, in, lang, isa)
}
