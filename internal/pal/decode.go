// Package pal decodes PAL pipeline metadata into types.PalPipelineData.
//
// The decoder walks an mdtree.Node against a fixed schema. Required fields
// that are missing fail the enclosing structure; optional fields are probed
// with Has and default to zero. Every failure is returned and also recorded
// in the session's last-error slot through the node it was found on.
package pal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/codeobjkit/internal/logger"
	"github.com/joshuapare/codeobjkit/internal/mdtree"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Decoder holds the policy for one decode.
type Decoder struct {
	Opts types.OpenOptions
	Log  *slog.Logger // nil uses logger.L
}

// Decode decodes root with default logging. See Decoder.Decode.
func Decode(root mdtree.Node, opts types.OpenOptions) (*types.PalPipelineData, error) {
	d := &Decoder{Opts: opts}
	return d.Decode(root)
}

// Decode decodes the PAL metadata under root. The result is never nil: on
// failure it holds whatever was decoded and can be cleared as usual.
//
// A missing or short version, or a missing pipeline list, fails the whole
// decode. Failures inside a pipeline are collected and the next pipeline is
// attempted, except for an unknown shader or stage tag, which stops the
// decode and truncates the result after the offending pipeline.
func (d *Decoder) Decode(root mdtree.Node) (*types.PalPipelineData, error) {
	d.Opts = d.Opts.WithDefaults()
	if d.Log == nil {
		d.Log = logger.L
	}

	data := &types.PalPipelineData{}
	if root.Kind() != comgr.KindMap {
		return data, root.Record(types.Errorf(types.ErrWrongKind, "metadata root is %s, want map", root.Kind()))
	}

	version := root.Get(TagVersion)
	if version.Kind() != comgr.KindList || version.Len() < 2 {
		return data, root.Record(types.Errorf(types.ErrMissingField, "%s: need [major, minor]", TagVersion))
	}
	major, err := version.Index(0).Uint32()
	if err != nil {
		return data, fmt.Errorf("%s major: %w", TagVersion, err)
	}
	minor, err := version.Index(1).Uint32()
	if err != nil {
		return data, fmt.Errorf("%s minor: %w", TagVersion, err)
	}
	data.Version = types.PipelineVersion{Major: major, Minor: minor}

	pipelines, err := d.container(root, TagPipelines, comgr.KindList)
	if err != nil {
		return data, err
	}

	n := pipelines.Len()
	data.Pipelines = make([]types.Pipeline, n)

	var errs []error
	for i := range n {
		err := d.decodePipeline(pipelines.Index(i), &data.Pipelines[i])
		if err == nil {
			continue
		}
		d.Log.Debug("pipeline decode failed", "index", i, "err", err)
		errs = append(errs, fmt.Errorf("pipeline %d: %w", i, err))
		if errors.Is(err, types.ErrUnknownTag) {
			data.Pipelines = data.Pipelines[:i+1]
			d.Log.Warn("unknown metadata tag, stopping decode", "pipeline", i, "decoded", i+1, "total", n)
			break
		}
	}

	d.Log.Debug("decoded pal metadata",
		"version", fmt.Sprintf("%d.%d", major, minor),
		"pipelines", len(data.Pipelines),
		"failed", len(errs))
	return data, errors.Join(errs...)
}

// container returns the required child key of parent and checks its kind and
// size against the allocation guard.
func (d *Decoder) container(parent mdtree.Node, key string, want comgr.Kind) (mdtree.Node, error) {
	c := parent.Get(key)
	if !c.IsValid() {
		return c, parent.Record(types.Errorf(types.ErrMissingField, "%s", key))
	}
	if got := c.Kind(); got != want {
		return c, parent.Record(types.Errorf(types.ErrWrongKind, "%s is %s, want %s", key, got, want))
	}
	if size := c.Len(); size > d.Opts.MaxEntries {
		return c, parent.Record(types.Errorf(types.ErrTooLarge, "%s has %d entries, limit %d", key, size, d.Opts.MaxEntries))
	}
	return c, nil
}

// required returns the value of a required scalar key.
func required(parent mdtree.Node, key string) (mdtree.Node, error) {
	c := parent.Get(key)
	if !c.IsValid() {
		return c, parent.Record(types.Errorf(types.ErrMissingField, "%s", key))
	}
	return c, nil
}

func requiredUint32(parent mdtree.Node, key string) (uint32, error) {
	c, err := required(parent, key)
	if err != nil {
		return 0, err
	}
	v, err := c.Uint32()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// optionalUint32 decodes the fields that are present and reports the first
// conversion failure. Absent fields stay zero.
func optionalUint32[T any](parent mdtree.Node, dst *T, fields []u32Field[T]) error {
	var errs []error
	for _, f := range fields {
		if !parent.Has(f.tag) {
			continue
		}
		v, err := parent.Get(f.tag).Uint32()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.tag, err))
			continue
		}
		*f.field(dst) = v
	}
	return errors.Join(errs...)
}

func (d *Decoder) decodePipeline(ppln mdtree.Node, p *types.Pipeline) error {
	if ppln.Kind() != comgr.KindMap {
		return ppln.Record(types.Errorf(types.ErrWrongKind, "pipeline entry is %s, want map", ppln.Kind()))
	}

	// Optional field failures are collected; the required fields and the
	// sections are still decoded.
	var errs []error
	if ppln.Has(TagName) {
		if name, err := ppln.Get(TagName).Text(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", TagName, err))
		} else {
			p.Name = name
		}
	}
	if ppln.Has(TagType) {
		if t, err := pipelineType(ppln.Get(TagType)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", TagType, err))
		} else {
			p.Type = t
		}
	}
	if err := optionalUint32(ppln, p, pipelineOptional); err != nil {
		errs = append(errs, err)
	}

	if err := decodeRequired(ppln, p); err != nil {
		return errors.Join(append(errs, err)...)
	}

	// The three sections are independent; a failure in one does not skip
	// the others. A vocabulary error is still reported to the caller, which
	// stops the whole decode.
	if err := d.decodeShaders(ppln, p); err != nil {
		errs = append(errs, err)
	}
	if err := d.decodeStages(ppln, p); err != nil {
		errs = append(errs, err)
	}
	if err := d.decodeRegisters(ppln, p); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// decodeRequired reads the scalar fields every pipeline must carry.
func decodeRequired(ppln mdtree.Node, p *types.Pipeline) error {
	hash, err := required(ppln, TagHash)
	if err != nil {
		return err
	}
	// Newer compilers store a 128-bit pair; the first word is the 64-bit hash.
	if hash.Kind() == comgr.KindList {
		if hash.Len() == 0 {
			return ppln.Record(types.Errorf(types.ErrMissingField, "%s: empty list", TagHash))
		}
		hash = hash.Index(0)
	}
	if p.Hash, err = hash.Uint64(); err != nil {
		return fmt.Errorf("%s: %w", TagHash, err)
	}
	if p.UserDataLimit, err = requiredUint32(ppln, TagUserDataLimit); err != nil {
		return err
	}
	if p.SpillThreshold, err = requiredUint32(ppln, TagSpillThreshold); err != nil {
		return err
	}
	return nil
}

// pipelineType accepts numeric text or a pipeline type name.
func pipelineType(n mdtree.Node) (uint32, error) {
	s, err := n.Text()
	if err != nil {
		return 0, err
	}
	if v, ok := pipelineTypes[s]; ok {
		return v, nil
	}
	v, err := mdtree.ParseUint(s, 32)
	if err != nil {
		return 0, n.Record(types.Errorf(types.ErrParse, "unknown pipeline type %q", s))
	}
	return uint32(v), nil
}

// decodeShaders fills p.Shaders in key order. An entry that fails a required
// field is left out and reported.
func (d *Decoder) decodeShaders(ppln mdtree.Node, p *types.Pipeline) error {
	shaders, err := d.container(ppln, TagShaders, comgr.KindMap)
	if err != nil {
		return err
	}

	keys := shaders.Keys()
	p.Shaders = make([]types.ShaderInfo, 0, len(keys))

	var errs []error
	for _, key := range keys {
		st, ok := shaderTags[key]
		if !ok {
			return errors.Join(append(errs, shaders.Record(types.Errorf(types.ErrUnknownTag, "shader %q", key)))...)
		}

		info := types.ShaderInfo{Type: st}
		entry := shaders.Get(key)
		if entry.Kind() != comgr.KindMap {
			errs = append(errs, entry.Record(types.Errorf(types.ErrWrongKind, "shader %s is %s, want map", key, entry.Kind())))
			continue
		}
		if info.HardwareMapping, err = requiredUint32(entry, TagHardwareMapping); err != nil {
			errs = append(errs, fmt.Errorf("shader %s: %w", key, err))
			continue
		}
		if entry.Has(TagAPIShaderHash) {
			if info.Hash, err = shaderHash(entry.Get(TagAPIShaderHash)); err != nil {
				errs = append(errs, fmt.Errorf("shader %s: %w", key, err))
			}
		}
		p.Shaders = append(p.Shaders, info)
	}
	return errors.Join(errs...)
}

// shaderHash packs the [lo, hi] word pair of an API shader hash.
func shaderHash(n mdtree.Node) ([16]byte, error) {
	var h [16]byte
	if n.Kind() != comgr.KindList || n.Len() != 2 {
		return h, n.Record(types.Errorf(types.ErrWrongKind, "%s: want list of 2 words", TagAPIShaderHash))
	}
	for i := range 2 {
		w, err := n.Index(i).Uint64()
		if err != nil {
			return [16]byte{}, fmt.Errorf("%s[%d]: %w", TagAPIShaderHash, i, err)
		}
		binary.LittleEndian.PutUint64(h[i*8:], w)
	}
	return h, nil
}

// decodeStages is decodeShaders for the hardware stages.
func (d *Decoder) decodeStages(ppln mdtree.Node, p *types.Pipeline) error {
	stages, err := d.container(ppln, TagHardwareStages, comgr.KindMap)
	if err != nil {
		return err
	}

	keys := stages.Keys()
	p.Stages = make([]types.HWStageInfo, 0, len(keys))

	var errs []error
	for _, key := range keys {
		st, ok := stageTags[key]
		if !ok {
			return errors.Join(append(errs, stages.Record(types.Errorf(types.ErrUnknownTag, "hardware stage %q", key)))...)
		}

		info := types.HWStageInfo{Type: st}
		entry := stages.Get(key)
		if entry.Kind() != comgr.KindMap {
			errs = append(errs, entry.Record(types.Errorf(types.ErrWrongKind, "hardware stage %s is %s, want map", key, entry.Kind())))
			continue
		}
		ep, err := required(entry, TagEntryPoint)
		if err != nil {
			errs = append(errs, fmt.Errorf("hardware stage %s: %w", key, err))
			continue
		}
		if info.EntryPointSymbolName, err = ep.Text(); err != nil {
			errs = append(errs, fmt.Errorf("hardware stage %s: %s: %w", key, TagEntryPoint, err))
			continue
		}
		if err := optionalUint32(entry, &info, stageOptional); err != nil {
			errs = append(errs, fmt.Errorf("hardware stage %s: %w", key, err))
		}
		p.Stages = append(p.Stages, info)
	}
	return errors.Join(errs...)
}

func (d *Decoder) decodeRegisters(ppln mdtree.Node, p *types.Pipeline) error {
	regs, err := d.container(ppln, TagRegisters, comgr.KindMap)
	if err != nil {
		return err
	}

	keys := regs.Keys()
	if d.Opts.LegacyRegisterSlot {
		return decodeRegistersLegacy(regs, keys, p)
	}

	p.Registers = make([]types.RegisterData, 0, len(keys))
	var errs []error
	for _, key := range keys {
		rd, err := register(regs, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Registers = append(p.Registers, rd)
	}
	return errors.Join(errs...)
}

// decodeRegistersLegacy reproduces the historical decoder, which sized the
// table to the map but wrote every entry into index 0. Known defect; kept
// only for output parity with old tooling.
func decodeRegistersLegacy(regs mdtree.Node, keys []string, p *types.Pipeline) error {
	if len(keys) == 0 {
		return nil
	}
	p.Registers = make([]types.RegisterData, len(keys))
	var errs []error
	for _, key := range keys {
		rd, err := register(regs, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Registers[0] = rd
	}
	return errors.Join(errs...)
}

func register(regs mdtree.Node, key string) (types.RegisterData, error) {
	addr, err := mdtree.ParseUint(key, 32)
	if err != nil {
		return types.RegisterData{}, regs.Record(fmt.Errorf("register address: %w", err))
	}
	data, err := regs.Get(key).Uint32()
	if err != nil {
		return types.RegisterData{}, fmt.Errorf("register %s: %w", key, err)
	}
	return types.RegisterData{Address: uint32(addr), Data: data}, nil
}
