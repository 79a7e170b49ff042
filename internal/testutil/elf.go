package testutil

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
)

// ELFSymbol is a symbol written by BuildELF.
type ELFSymbol struct {
	Name  string
	Type  elf.SymType
	Value uint64
	Size  uint64
}

// ELFSpec describes a minimal little-endian ELF64 AMDGPU relocatable.
type ELFSpec struct {
	Notes    []byte // raw contents of the .note section, see Note
	Symbols  []ELFSymbol
	NoSymtab bool // omit .symtab and .strtab entirely
}

// Note encodes one note entry with 4-byte padding.
func Note(owner string, typ uint32, desc []byte) []byte {
	var b bytes.Buffer
	name := append([]byte(owner), 0)
	_ = binary.Write(&b, binary.LittleEndian, [3]uint32{uint32(len(name)), uint32(len(desc)), typ})
	b.Write(pad(name, 4))
	b.Write(pad(desc, 4))
	return b.Bytes()
}

func pad(b []byte, align int) []byte {
	for len(b)%align != 0 {
		b = append(b, 0)
	}
	return b
}

const (
	elf64HdrSize  = 64
	elf64PhdrSize = 56
	elf64ShdrSize = 64
	osabiAMDHSA   = 64
)

type strtab struct{ b []byte }

func (s *strtab) add(name string) uint32 {
	if len(s.b) == 0 {
		s.b = []byte{0}
	}
	off := uint32(len(s.b))
	s.b = append(append(s.b, name...), 0)
	return off
}

// BuildELF assembles an ELF image from spec.
//
// Layout: header, section contents (8-byte aligned), section header table.
// Section 1 is always .note.
func BuildELF(t testing.TB, spec ELFSpec) []byte {
	t.Helper()

	type section struct {
		hdr  elf.Section64
		data []byte
	}
	var shstr strtab
	shstr.add("")
	sections := []section{{}}

	sections = append(sections, section{
		hdr:  elf.Section64{Name: shstr.add(".note"), Type: uint32(elf.SHT_NOTE), Addralign: 4},
		data: spec.Notes,
	})

	if !spec.NoSymtab {
		var names strtab
		names.add("")
		var syms bytes.Buffer
		_ = binary.Write(&syms, binary.LittleEndian, elf.Sym64{})
		for _, s := range spec.Symbols {
			_ = binary.Write(&syms, binary.LittleEndian, elf.Sym64{
				Name:  names.add(s.Name),
				Info:  elf.ST_INFO(elf.STB_GLOBAL, s.Type),
				Shndx: 1,
				Value: s.Value,
				Size:  s.Size,
			})
		}
		symtabIdx := len(sections)
		sections = append(sections,
			section{
				hdr: elf.Section64{
					Name:      shstr.add(".symtab"),
					Type:      uint32(elf.SHT_SYMTAB),
					Link:      uint32(symtabIdx + 1),
					Info:      1,
					Addralign: 8,
					Entsize:   elf.Sym64Size,
				},
				data: syms.Bytes(),
			},
			section{
				hdr:  elf.Section64{Name: shstr.add(".strtab"), Type: uint32(elf.SHT_STRTAB), Addralign: 1},
				data: names.b,
			},
		)
	}

	shstrIdx := len(sections)
	sections = append(sections, section{
		hdr: elf.Section64{Name: shstr.add(".shstrtab"), Type: uint32(elf.SHT_STRTAB), Addralign: 1},
	})
	sections[shstrIdx].data = shstr.b

	var body bytes.Buffer
	off := uint64(elf64HdrSize)
	for i := 1; i < len(sections); i++ {
		data := pad(append([]byte(nil), sections[i].data...), 8)
		sections[i].hdr.Off = off
		sections[i].hdr.Size = uint64(len(sections[i].data))
		body.Write(data)
		off += uint64(len(data))
	}

	hdr := elf.Header64{
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_AMDGPU),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     off,
		Ehsize:    elf64HdrSize,
		Phentsize: elf64PhdrSize,
		Shentsize: elf64ShdrSize,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(shstrIdx),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr.Ident[elf.EI_OSABI] = osabiAMDHSA

	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}
	out.Write(body.Bytes())
	for _, s := range sections {
		if err := binary.Write(&out, binary.LittleEndian, s.hdr); err != nil {
			t.Fatalf("write section header: %v", err)
		}
	}
	return out.Bytes()
}
