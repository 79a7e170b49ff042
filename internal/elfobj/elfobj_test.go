package elfobj

import (
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/codeobjkit/internal/mdtree"
	"github.com/joshuapare/codeobjkit/internal/pal"
	"github.com/joshuapare/codeobjkit/internal/symtab"
	"github.com/joshuapare/codeobjkit/internal/testutil"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

func open(t *testing.T, spec testutil.ELFSpec) *Artifact {
	t.Helper()
	a, err := Open(testutil.BuildELF(t, spec), types.OpenOptions{})
	require.NoError(t, err)
	return a
}

func TestIsELF(t *testing.T) {
	assert.True(t, IsELF(testutil.ComputeELF(t)))
	assert.False(t, IsELF([]byte("\x7fEL")))
	assert.False(t, IsELF([]byte{0x82, 0xa1}))
}

func TestParseNotes(t *testing.T) {
	data := append(testutil.Note("AMD", NoteAMDHSAMetadata, []byte("abcde")),
		testutil.Note("AMDGPU", NoteAMDGPUMetadata, nil)...)

	notes, err := ParseNotes(data, binary.LittleEndian)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, Note{Owner: "AMD", Type: 10, Desc: []byte("abcde")}, notes[0])
	assert.Equal(t, "AMDGPU", notes[1].Owner)
	assert.Equal(t, uint32(32), notes[1].Type)
	assert.Empty(t, notes[1].Desc)
}

func TestParseNotes_Malformed(t *testing.T) {
	good := testutil.Note("AMDGPU", NoteAMDGPUMetadata, []byte{1, 2, 3, 4})

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated header", good[:8]},
		{"truncated desc", good[:len(good)-2]},
		{"desc size past end", func() []byte {
			b := append([]byte(nil), good...)
			binary.LittleEndian.PutUint32(b[4:], 0x7fffffff)
			return b
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNotes(tt.data, binary.LittleEndian)
			require.ErrorIs(t, err, types.ErrParse)
		})
	}
}

func TestOpen_NotELF(t *testing.T) {
	_, err := Open([]byte("not an elf file"), types.OpenOptions{})
	require.ErrorIs(t, err, types.ErrParse)
}

func TestMetadata_MessagePackNote(t *testing.T) {
	a, err := Open(testutil.ComputeELF(t), types.OpenOptions{})
	require.NoError(t, err)
	assert.Equal(t, elf.EM_AMDGPU, a.File().Machine)

	md, err := a.Metadata()
	require.NoError(t, err)

	data, err := pal.Decode(mdtree.NewRoot(md, nil), types.OpenOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.PipelineVersion{Major: 2, Minor: 6}, data.Version)
	require.Equal(t, 1, data.NumPipelines())
	p := data.Pipelines[0]
	assert.Equal(t, "cs-pipeline", p.Name)
	assert.Equal(t, uint64(0xfeedface), p.Hash)
	require.Len(t, p.Stages, 1)
	assert.Equal(t, "_amdgpu_cs_main", p.Stages[0].EntryPointSymbolName)
	assert.Equal(t, []types.RegisterData{{Address: 0x2e12, Data: 0xac0041}}, p.Registers)
}

func TestMetadata_LegacyYAMLNote(t *testing.T) {
	a := open(t, testutil.ELFSpec{
		Notes: testutil.Note(OwnerAMD, NoteAMDHSAMetadata, []byte("amdhsa.version: [ 1, 0 ]\n")),
	})

	md, err := a.Metadata()
	require.NoError(t, err)
	root := mdtree.NewRoot(md, nil)
	minor, err := root.Get("amdhsa.version").Index(1).Uint32()
	require.NoError(t, err)
	assert.Zero(t, minor)
	assert.Equal(t, 2, root.Get("amdhsa.version").Len())
}

func TestMetadata_MessagePackWinsOverYAML(t *testing.T) {
	notes := append(testutil.Note(OwnerAMD, NoteAMDHSAMetadata, []byte("legacy: 1\n")),
		testutil.Note(OwnerAMDGPU, NoteAMDGPUMetadata, testutil.PalMetadata(t))...)
	a := open(t, testutil.ELFSpec{Notes: notes})

	md, err := a.Metadata()
	require.NoError(t, err)
	root := mdtree.NewRoot(md, nil)
	assert.True(t, root.Has("amdpal.pipelines"))
	assert.False(t, root.Has("legacy"))
}

func TestMetadata_Missing(t *testing.T) {
	tests := map[string][]byte{
		"no notes":    nil,
		"wrong owner": testutil.Note("GNU", NoteAMDGPUMetadata, []byte{0x80}),
		"wrong type":  testutil.Note(OwnerAMDGPU, 1, []byte{0x80}),
	}
	for name, notes := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := open(t, testutil.ELFSpec{Notes: notes}).Metadata()
			require.ErrorIs(t, err, types.ErrUnsupported)
		})
	}
}

func TestMetadata_BadPayload(t *testing.T) {
	a := open(t, testutil.ELFSpec{
		Notes: testutil.Note(OwnerAMDGPU, NoteAMDGPUMetadata, []byte{0xde}),
	})
	_, err := a.Metadata()
	require.ErrorIs(t, err, types.ErrParse)
}

func TestSymbols(t *testing.T) {
	a, err := Open(testutil.ComputeELF(t), types.OpenOptions{})
	require.NoError(t, err)

	var got []comgr.Symbol
	for sym, err := range a.Symbols() {
		require.NoError(t, err)
		got = append(got, sym)
	}
	assert.Equal(t, []comgr.Symbol{
		{Type: types.SymbolFunc, Name: "_amdgpu_cs_main", Size: 0x180, Value: 0x0},
		{Type: types.SymbolObject, Name: "_amdgpu_cs_shdr_intrl_data", Size: 0x40, Value: 0x200},
		{Type: types.SymbolFunc, Name: "_amdgpu_cs_helper", Size: 0x60, Value: 0x180},
	}, got)

	info, err := symtab.Extract(a.Symbols(), 0)
	require.NoError(t, err)
	require.Equal(t, 2, info.NumSymbols())
	assert.Equal(t, "_amdgpu_cs_helper", info.Symbols[1].Name)
}

func TestSymbols_NoSymtab(t *testing.T) {
	a := open(t, testutil.ELFSpec{NoSymtab: true})
	n := 0
	for _, err := range a.Symbols() {
		require.NoError(t, err)
		n++
	}
	assert.Zero(t, n)
}
