package codeobj

import (
	"github.com/joshuapare/codeobjkit/internal/pal"
	"github.com/joshuapare/codeobjkit/internal/symtab"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// ExtractPalPipelineData decodes the PAL pipeline metadata. The result is
// never nil; after a failure it holds the pipelines decoded so far.
func (c *CodeObj) ExtractPalPipelineData() (*types.PalPipelineData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	root, err := c.metadata()
	if err != nil {
		return &types.PalPipelineData{}, err
	}
	dec := &pal.Decoder{Opts: c.opts, Log: c.log}
	data, err := dec.Decode(root)
	if err != nil {
		c.log.Warn("pal metadata decode failed", "pipelines", data.NumPipelines(), "err", err)
		return data, c.record(err)
	}
	return data, nil
}

// ClearPalPipelineData releases d. It is safe on nil and on cleared data.
func ClearPalPipelineData(d *types.PalPipelineData) {
	d.Clear()
}

// ExtractSymbolData collects the function symbols of the code object. An
// object without function symbols yields an empty table and no error.
func (c *CodeObj) ExtractSymbolData() (*types.CodeObjSymbolInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpen(); err != nil {
		return &types.CodeObjSymbolInfo{}, err
	}
	a, err := c.open()
	if err != nil {
		return &types.CodeObjSymbolInfo{}, c.record(err)
	}
	info, err := symtab.Extract(a.Symbols(), c.opts.MaxEntries)
	if err != nil {
		c.log.Warn("symbol extraction failed", "err", err)
		return info, c.record(err)
	}
	c.log.Debug("extracted symbols", "functions", info.NumSymbols())
	return info, nil
}

// ClearSymbolData releases s. It is safe on nil and on cleared data.
func ClearSymbolData(s *types.CodeObjSymbolInfo) {
	s.Clear()
}
