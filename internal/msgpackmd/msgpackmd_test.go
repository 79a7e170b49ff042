package msgpackmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/joshuapare/codeobjkit/internal/lasterr"
	"github.com/joshuapare/codeobjkit/internal/mdtree"
	"github.com/joshuapare/codeobjkit/internal/pal"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// mp writes MessagePack in a fixed order so map key order is predictable.
type mp struct {
	t   *testing.T
	buf bytes.Buffer
	enc *msgpack.Encoder
}

func (m *mp) must(err error) *mp {
	require.NoError(m.t, err)
	return m
}

func newMP(t *testing.T) *mp {
	m := &mp{t: t}
	m.enc = msgpack.NewEncoder(&m.buf)
	return m
}

func (m *mp) mapLen(n int) *mp    { return m.must(m.enc.EncodeMapLen(n)) }
func (m *mp) arrLen(n int) *mp    { return m.must(m.enc.EncodeArrayLen(n)) }
func (m *mp) s(v string) *mp      { return m.must(m.enc.EncodeString(v)) }
func (m *mp) u(v uint64) *mp      { return m.must(m.enc.EncodeUint(v)) }
func (m *mp) i(v int64) *mp       { return m.must(m.enc.EncodeInt(v)) }
func (m *mp) b(v bool) *mp        { return m.must(m.enc.EncodeBool(v)) }
func (m *mp) f(v float64) *mp     { return m.must(m.enc.EncodeFloat64(v)) }
func (m *mp) bin(v []byte) *mp    { return m.must(m.enc.EncodeBytes(v)) }
func (m *mp) null() *mp           { return m.must(m.enc.EncodeNil()) }
func (m *mp) bytes() []byte       { return m.buf.Bytes() }
func (m *mp) kv(k string) *mp     { return m.s(k) }
func (m *mp) kvs(k, v string) *mp { return m.s(k).s(v) }

func text(t *testing.T, n comgr.MetadataNode) string {
	t.Helper()
	s, err := n.Text()
	require.NoError(t, err)
	return s
}

func TestParse_Scalars(t *testing.T) {
	data := newMP(t).mapLen(8).
		kv("uint").u(300).
		kv("neg").i(-5).
		kv("true").b(true).
		kv("false").b(false).
		kv("float").f(1.5).
		kv("bin").bin([]byte("raw")).
		kv("nil").null().
		kv("str").s("_amdgpu_cs_main").
		bytes()

	root, err := Parse(data, 0)
	require.NoError(t, err)

	keys, err := root.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"uint", "neg", "true", "false", "float", "bin", "nil", "str"}, keys)

	want := map[string]string{
		"uint":  "300",
		"neg":   "-5",
		"true":  "1",
		"false": "0",
		"float": "1.5",
		"bin":   "raw",
		"str":   "_amdgpu_cs_main",
	}
	for k, v := range want {
		n, ok, err := root.Lookup(k)
		require.NoError(t, err)
		require.True(t, ok, k)
		assert.Equal(t, v, text(t, n), k)
	}

	n, _, _ := root.Lookup("nil")
	kind, _ := n.Kind()
	assert.Equal(t, comgr.KindNone, kind)
}

func TestParse_NestedAndIntegerKeys(t *testing.T) {
	data := newMP(t).mapLen(2).
		kv("list").arrLen(3).u(1).arrLen(0).mapLen(0).
		kv("regs").mapLen(1).u(0x2c0a).u(7).
		bytes()

	root, err := Parse(data, 0)
	require.NoError(t, err)

	list, ok, err := root.Lookup("list")
	require.NoError(t, err)
	require.True(t, ok)
	size, err := list.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	regs, _, _ := root.Lookup("regs")
	keys, err := regs.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"11274"}, keys)
}

func TestParse_Errors(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		data := newMP(t).mapLen(2).kvs("a", "b").bytes()
		_, err := Parse(data, 0)
		require.ErrorIs(t, err, types.ErrParse)
	})
	t.Run("too many entries", func(t *testing.T) {
		data := newMP(t).arrLen(3).u(1).u(2).u(3).bytes()
		_, err := Parse(data, 2)
		require.ErrorIs(t, err, types.ErrTooLarge)
		assert.Equal(t, types.StatusOutOfResources, types.StatusOf(err))
	})
	t.Run("too deep", func(t *testing.T) {
		m := newMP(t)
		for range MaxDepth + 2 {
			m.arrLen(1)
		}
		m.null()
		_, err := Parse(m.bytes(), 0)
		require.ErrorIs(t, err, types.ErrTooLarge)
	})
	t.Run("list key", func(t *testing.T) {
		data := newMP(t).mapLen(1).arrLen(0).u(1).bytes()
		_, err := Parse(data, 0)
		require.ErrorIs(t, err, types.ErrWrongKind)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := Parse(nil, 0)
		require.ErrorIs(t, err, types.ErrParse)
	})
}

func TestIsMap(t *testing.T) {
	assert.True(t, IsMap(newMP(t).mapLen(1).bytes()))
	assert.True(t, IsMap(newMP(t).mapLen(100).bytes()))
	assert.True(t, IsMap(newMP(t).mapLen(70000).bytes()))
	assert.False(t, IsMap(newMP(t).arrLen(1).bytes()))
	assert.False(t, IsMap([]byte("---\namdpal.version: [2, 1]\n")))
	assert.False(t, IsMap(nil))
}

// palBlob encodes a one-pipeline PAL document the way the compiler emits it:
// integers and booleans as native MessagePack values.
func palBlob(t *testing.T) []byte {
	return newMP(t).mapLen(2).
		kv(pal.TagVersion).arrLen(2).u(2).u(6).
		kv(pal.TagPipelines).arrLen(1).mapLen(8).
		kvs(pal.TagName, "cs-pipeline").
		kv(pal.TagHash).arrLen(2).u(0xfeedface).u(0).
		kv(pal.TagUserDataLimit).u(16).
		kv(pal.TagSpillThreshold).u(0xffff).
		kv(pal.TagUsesViewportArrayIndex).b(false).
		kv(pal.TagShaders).mapLen(1).
		kv(".compute").mapLen(2).
		kv(pal.TagAPIShaderHash).arrLen(2).u(1).u(2).
		kv(pal.TagHardwareMapping).u(0x40).
		kv(pal.TagHardwareStages).mapLen(1).
		kv(".cs").mapLen(4).
		kvs(pal.TagEntryPoint, "_amdgpu_cs_main").
		kv(pal.TagVgprCount).u(32).
		kv(pal.TagSgprCount).u(24).
		kv(pal.TagUsesUavs).b(true).
		kv(pal.TagRegisters).mapLen(2).
		kv("0x2e12").u(0xac0041).
		kv("0x2e13").u(0x98).
		bytes()
}

func TestOpen_DecodesPalMetadata(t *testing.T) {
	a, err := Open(palBlob(t), types.OpenOptions{})
	require.NoError(t, err)

	md, err := a.Metadata()
	require.NoError(t, err)

	slot := &lasterr.Slot{}
	data, err := pal.Decode(mdtree.NewRoot(md, &mdtree.Session{Errs: slot}), types.OpenOptions{})
	require.NoError(t, err)
	assert.False(t, slot.Failed())

	assert.Equal(t, types.PipelineVersion{Major: 2, Minor: 6}, data.Version)
	require.Equal(t, 1, data.NumPipelines())
	p := data.Pipelines[0]
	assert.Equal(t, "cs-pipeline", p.Name)
	assert.Equal(t, uint64(0xfeedface), p.Hash)
	assert.Equal(t, uint32(0xffff), p.SpillThreshold)
	require.Len(t, p.Shaders, 1)
	assert.Equal(t, types.ComputeShader, p.Shaders[0].Type)
	assert.Equal(t, uint32(0x40), p.Shaders[0].HardwareMapping)
	assert.Equal(t, byte(1), p.Shaders[0].Hash[0])
	assert.Equal(t, byte(2), p.Shaders[0].Hash[8])
	require.Len(t, p.Stages, 1)
	assert.Equal(t, types.HWStageInfo{
		Type:                 types.StageCS,
		EntryPointSymbolName: "_amdgpu_cs_main",
		NumUsedVgprs:         32,
		NumUsedSgprs:         24,
		UsesUavs:             1,
	}, p.Stages[0])
	assert.Equal(t, []types.RegisterData{
		{Address: 0x2e12, Data: 0xac0041},
		{Address: 0x2e13, Data: 0x98},
	}, p.Registers)

	n := 0
	for range a.Symbols() {
		n++
	}
	assert.Zero(t, n)
}
