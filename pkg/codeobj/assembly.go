package codeobj

import (
	"context"

	"github.com/joshuapare/codeobjkit/internal/bridge"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

func (c *CodeObj) input() comgr.DataSet {
	return comgr.DataSet{{Kind: c.kind, Name: c.name, Bytes: c.data}}
}

func (c *CodeObj) run(ctx context.Context, info comgr.ActionInfo, stages []bridge.Stage) ([]byte, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	info.WorkingDirectory = c.workDir
	r := &bridge.Runner{Actor: c.actor, Log: c.log}
	out, err := r.Run(ctx, info, c.input(), stages)
	if err != nil {
		c.log.Warn("action chain failed", "isa", info.ISAName, "err", err)
		return nil, c.record(err)
	}
	return out, nil
}

// ExtractAssemblyData disassembles the code object for isa and returns the
// assembly text.
func (c *CodeObj) ExtractAssemblyData(ctx context.Context, isa string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run(ctx, comgr.ActionInfo{ISAName: isa}, bridge.DisassembleStages)
}

// ExtractAssemblySize returns the length of the assembly text for isa.
func (c *CodeObj) ExtractAssemblySize(ctx context.Context, isa string) (int, error) {
	text, err := c.ExtractAssemblyData(ctx, isa)
	if err != nil {
		return 0, err
	}
	return len(text), nil
}

// ExtractAssemblyRaw disassembles into dst, which must be exactly as long as
// ExtractAssemblySize reports. It returns the number of bytes written.
func (c *CodeObj) ExtractAssemblyRaw(ctx context.Context, isa string, dst []byte) (int, error) {
	text, err := c.ExtractAssemblyData(ctx, isa)
	if err != nil {
		return 0, err
	}
	if len(dst) != len(text) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return 0, c.record(types.Errorf(types.ErrBufferSize, "have %d bytes, assembly is %d", len(dst), len(text)))
	}
	return copy(dst, text), nil
}

// ConvertSourceToCodeObject compiles the input, which must be source of
// language lang, into an executable code object for isa.
func (c *CodeObj) ConvertSourceToCodeObject(ctx context.Context, lang types.Language, isa string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run(ctx, comgr.ActionInfo{ISAName: isa, Language: lang}, bridge.CompileStages)
}
