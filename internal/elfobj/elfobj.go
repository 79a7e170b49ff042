// Package elfobj opens AMDGPU ELF code objects. Metadata comes from the
// vendor note (MessagePack for code object v3 and later, YAML for v2); the
// symbol table comes from .symtab.
package elfobj

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/joshuapare/codeobjkit/internal/buf"
	"github.com/joshuapare/codeobjkit/internal/msgpackmd"
	"github.com/joshuapare/codeobjkit/internal/yamlmd"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Vendor note owners and types.
const (
	OwnerAMDGPU = "AMDGPU"
	OwnerAMD    = "AMD"

	NoteAMDGPUMetadata = 32 // NT_AMDGPU_METADATA, MessagePack
	NoteAMDHSAMetadata = 10 // NT_AMD_HSA_METADATA, YAML

	noteAlign  = 4
	noteHeader = 12
)

// IsELF reports whether data starts with the ELF magic.
func IsELF(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == elf.ELFMAG
}

// Note is one entry of a note section or segment.
type Note struct {
	Owner string
	Type  uint32
	Desc  []byte
}

// ParseNotes splits the contents of a note section into entries.
func ParseNotes(data []byte, order binary.ByteOrder) ([]Note, error) {
	var notes []Note
	for off := 0; off < len(data); {
		if !buf.Has(data, off, noteHeader) {
			return nil, types.Errorf(types.ErrParse, "note at %#x: truncated header", off)
		}
		nameSize := int(buf.U32(order, data[off:]))
		descSize := int(buf.U32(order, data[off+4:]))
		typ := buf.U32(order, data[off+8:])

		start := off + noteHeader
		end, err := buf.CheckPaddedBounds(len(data), start, noteAlign, nameSize, descSize)
		if err != nil {
			return nil, types.Errorf(types.ErrParse, "note at %#x: %w", off, err)
		}
		descOff, _ := buf.AlignUp(nameSize, noteAlign)
		descOff += start

		notes = append(notes, Note{
			Owner: buf.CString(data[start : start+nameSize]),
			Type:  typ,
			Desc:  data[descOff : descOff+descSize],
		})
		off = end
	}
	return notes, nil
}

// Artifact is an opened ELF code object.
type Artifact struct {
	f    *elf.File
	opts types.OpenOptions
}

// Open parses the ELF headers of data. The buffer must stay alive and
// unmodified while the Artifact is in use.
func Open(data []byte, opts types.OpenOptions) (*Artifact, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, types.Errorf(types.ErrParse, "elf: %w", err)
	}
	return &Artifact{f: f, opts: opts.WithDefaults()}, nil
}

// File exposes the parsed headers.
func (a *Artifact) File() *elf.File { return a.f }

// Notes returns every note of the object. Note sections are preferred; an
// object without section headers falls back to PT_NOTE segments.
func (a *Artifact) Notes() ([]Note, error) {
	var notes []Note
	found := false
	for _, s := range a.f.Sections {
		if s.Type != elf.SHT_NOTE {
			continue
		}
		found = true
		data, err := s.Data()
		if err != nil {
			return nil, types.Errorf(types.ErrParse, "section %s: %w", s.Name, err)
		}
		n, err := ParseNotes(data, a.f.ByteOrder)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", s.Name, err)
		}
		notes = append(notes, n...)
	}
	if found {
		return notes, nil
	}

	for i, p := range a.f.Progs {
		if p.Type != elf.PT_NOTE {
			continue
		}
		data, err := io.ReadAll(p.Open())
		if err != nil {
			return nil, types.Errorf(types.ErrParse, "segment %d: %w", i, err)
		}
		n, err := ParseNotes(data, a.f.ByteOrder)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		notes = append(notes, n...)
	}
	return notes, nil
}

// Metadata implements comgr.Artifact. The MessagePack note wins when both
// formats are present.
func (a *Artifact) Metadata() (comgr.MetadataNode, error) {
	notes, err := a.Notes()
	if err != nil {
		return nil, err
	}
	var legacy *Note
	for i := range notes {
		n := &notes[i]
		switch {
		case n.Owner == OwnerAMDGPU && n.Type == NoteAMDGPUMetadata:
			root, err := msgpackmd.Parse(n.Desc, a.opts.MaxEntries)
			if err != nil {
				return nil, err
			}
			return root, nil
		case n.Owner == OwnerAMD && n.Type == NoteAMDHSAMetadata && legacy == nil:
			legacy = n
		}
	}
	if legacy != nil {
		root, err := yamlmd.Parse(legacy.Desc)
		if err != nil {
			return nil, err
		}
		return root, nil
	}
	return nil, types.Errorf(types.ErrUnsupported, "no AMDGPU metadata note")
}

// Symbols implements comgr.Artifact. Every call re-reads .symtab, so the
// sequence can be iterated more than once.
func (a *Artifact) Symbols() iter.Seq2[comgr.Symbol, error] {
	return func(yield func(comgr.Symbol, error) bool) {
		syms, err := a.f.Symbols()
		if errors.Is(err, elf.ErrNoSymbols) {
			return
		}
		if err != nil {
			yield(comgr.Symbol{}, types.Errorf(types.ErrParse, "symtab: %w", err))
			return
		}
		for _, s := range syms {
			sym := comgr.Symbol{
				Type:  types.SymbolType(elf.ST_TYPE(s.Info)),
				Name:  s.Name,
				Size:  s.Size,
				Value: s.Value,
			}
			if !yield(sym, nil) {
				return
			}
		}
	}
}
