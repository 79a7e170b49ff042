package codeobj

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/codeobjkit/internal/mdtree"
	"github.com/joshuapare/codeobjkit/internal/testutil"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// ----------------------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------------------

// fakeArtifact serves a fixed tree and symbol list.
type fakeArtifact struct {
	root    comgr.MetadataNode
	mdErr   error
	symbols []comgr.Symbol
}

func (f *fakeArtifact) Metadata() (comgr.MetadataNode, error) { return f.root, f.mdErr }

func (f *fakeArtifact) Symbols() iter.Seq2[comgr.Symbol, error] {
	return func(yield func(comgr.Symbol, error) bool) {
		for _, s := range f.symbols {
			if !yield(s, nil) {
				return
			}
		}
	}
}

func openerFor(a comgr.Artifact) comgr.Opener {
	return func([]byte, types.DataKind) (comgr.Artifact, error) { return a, nil }
}

// chainActor answers every action with one object of the action's output
// kind whose bytes name the action.
type chainActor struct {
	mu    sync.Mutex
	calls []comgr.ActionInfo
}

func (a *chainActor) Do(_ context.Context, action comgr.Action, info comgr.ActionInfo, in comgr.DataSet) (comgr.DataSet, error) {
	a.mu.Lock()
	a.calls = append(a.calls, info)
	a.mu.Unlock()
	if len(in) == 0 {
		return nil, errors.New("no input")
	}
	return comgr.DataSet{{Kind: action.OutputKind(), Name: "out", Bytes: []byte(action.String())}}, nil
}

// ----------------------------------------------------------------------------
// Open
// ----------------------------------------------------------------------------

func TestOpenBuffer_Empty(t *testing.T) {
	_, err := OpenBuffer(nil)
	require.ErrorIs(t, err, types.ErrEmptyBuffer)
	assert.Equal(t, types.StatusInvalidArgument, types.StatusOf(err))
}

func TestOpenBuffer_CopiesInput(t *testing.T) {
	elf := testutil.ComputeELF(t)
	co, err := OpenBuffer(elf)
	require.NoError(t, err)
	defer co.Close()

	for i := range elf {
		elf[i] = 0
	}
	data, err := co.ExtractPalPipelineData()
	require.NoError(t, err)
	assert.Equal(t, 1, data.NumPipelines())
	assert.Equal(t, types.DataKindRelocatable, co.Kind())
	assert.Equal(t, "buffer", co.Name())
	assert.NotEmpty(t, co.ID())
}

func TestOpenFile(t *testing.T) {
	path := testutil.WriteTemp(t, "compute.o", testutil.ComputeELF(t))
	co, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, "compute.o", co.Name())

	info, err := co.ExtractSymbolData()
	require.NoError(t, err)
	require.Equal(t, 2, info.NumSymbols())
	assert.Equal(t, types.CodeObjSymbol{Type: types.SymbolFunc, Name: "_amdgpu_cs_main", Size: 0x180}, info.Symbols[0])
	assert.Equal(t, "_amdgpu_cs_helper", info.Symbols[1].Name)

	require.NoError(t, co.Close())
	require.NoError(t, co.Close())
}

func TestOpenFile_Errors(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.o"))
	require.ErrorIs(t, err, types.ErrProvider)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = OpenFile(testutil.WriteTemp(t, "empty.o", nil))
	require.ErrorIs(t, err, types.ErrEmptyBuffer)

	_, err = OpenFile(testutil.WriteTemp(t, "big.o", make([]byte, 32)), WithMaxFileSize(16))
	require.Error(t, err)
}

func TestSniff(t *testing.T) {
	assert.Equal(t, types.FormatELF, Sniff(testutil.ComputeELF(t)))
	assert.Equal(t, types.FormatMsgPack, Sniff(testutil.PalMetadata(t)))
	assert.Equal(t, types.FormatYAML, Sniff([]byte("amdpal.version: [2, 1]\n")))
}

func TestOpenBuffer_Formats(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		opts types.OpenOptions
	}{
		{name: "msgpack sniffed", data: testutil.PalMetadata(t)},
		{name: "msgpack forced", data: testutil.PalMetadata(t), opts: types.OpenOptions{Format: types.FormatMsgPack}},
		{name: "yaml", data: []byte(`
amdpal.version: [2, 6]
amdpal.pipelines:
  - .pipeline_compiler_hash: 0xfeedface
    .user_data_limit: 16
    .spill_threshold: 0xffff
    .shaders: {}
    .hardware_stages: {}
    .registers: {}
`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co, err := OpenBuffer(tt.data, WithOptions(tt.opts))
			require.NoError(t, err)
			defer co.Close()

			data, err := co.ExtractPalPipelineData()
			require.NoError(t, err)
			assert.Equal(t, types.PipelineVersion{Major: 2, Minor: 6}, data.Version)
			require.Equal(t, 1, data.NumPipelines())
			assert.Equal(t, uint64(0xfeedface), data.Pipelines[0].Hash)

			info, err := co.ExtractSymbolData()
			require.NoError(t, err)
			assert.Zero(t, info.NumSymbols())
		})
	}
}

func TestOpenBuffer_ForcedFormatMismatch(t *testing.T) {
	co, err := OpenBuffer([]byte("amdpal.version: [2, 6]\n"), WithOptions(types.OpenOptions{Format: types.FormatELF}))
	require.NoError(t, err)
	defer co.Close()

	_, err = co.Metadata()
	require.ErrorIs(t, err, types.ErrParse)

	// The opener result is cached, so the second call fails the same way.
	_, err = co.ExtractSymbolData()
	require.ErrorIs(t, err, types.ErrParse)
}

// ----------------------------------------------------------------------------
// Metadata and extraction
// ----------------------------------------------------------------------------

func TestMetadata_RootMustBeMap(t *testing.T) {
	co, err := OpenBuffer([]byte("x"), WithOpener(openerFor(&fakeArtifact{root: mdtree.List()})))
	require.NoError(t, err)

	root, err := co.Metadata()
	require.ErrorIs(t, err, types.ErrWrongKind)
	assert.False(t, root.IsValid())

	status, msg := co.GetLastError()
	assert.Equal(t, types.StatusError, status)
	assert.Contains(t, msg, "want map")
}

func TestMetadata_ProviderFailure(t *testing.T) {
	boom := &types.Error{Kind: types.ErrKindProvider, Status: types.StatusOutOfResources, Msg: "boom"}
	co, err := OpenBuffer([]byte("x"), WithOpener(openerFor(&fakeArtifact{mdErr: boom})))
	require.NoError(t, err)

	data, err := co.ExtractPalPipelineData()
	require.ErrorIs(t, err, types.ErrProvider)
	require.NotNil(t, data)
	assert.Zero(t, data.NumPipelines())

	status, _ := co.GetLastError()
	assert.Equal(t, types.StatusOutOfResources, status)
}

func TestExtractPalPipelineData_PartialFailure(t *testing.T) {
	good := mdtree.Map().
		Set(".pipeline_compiler_hash", mdtree.Str("1")).
		Set(".user_data_limit", mdtree.Str("2")).
		Set(".spill_threshold", mdtree.Str("3")).
		Set(".shaders", mdtree.Map()).
		Set(".hardware_stages", mdtree.Map()).
		Set(".registers", mdtree.Map())
	bad := mdtree.Map().
		Set(".user_data_limit", mdtree.Str("2")).
		Set(".spill_threshold", mdtree.Str("3"))
	root := mdtree.Map().
		Set("amdpal.version", mdtree.List(mdtree.Str("2"), mdtree.Str("1"))).
		Set("amdpal.pipelines", mdtree.List(bad, good))

	co, err := OpenBuffer([]byte("x"), WithOpener(openerFor(&fakeArtifact{root: root})))
	require.NoError(t, err)

	data, err := co.ExtractPalPipelineData()
	require.ErrorIs(t, err, types.ErrMissingField)
	assert.Equal(t, types.PipelineVersion{Major: 2, Minor: 1}, data.Version)
	require.Equal(t, 2, data.NumPipelines())
	assert.Equal(t, uint64(1), data.Pipelines[1].Hash)

	status, msg := co.GetLastError()
	assert.Equal(t, types.StatusError, status)
	assert.Contains(t, msg, "pipeline 0")

	status, _ = co.GetLastError()
	assert.Equal(t, types.StatusSuccess, status)

	ClearPalPipelineData(data)
	ClearPalPipelineData(data)
	assert.Zero(t, data.NumPipelines())
	ClearPalPipelineData(nil)
}

func TestExtractSymbolData_NoFunctions(t *testing.T) {
	syms := []comgr.Symbol{{Type: types.SymbolObject, Name: "data"}}
	co, err := OpenBuffer([]byte("x"), WithOpener(openerFor(&fakeArtifact{symbols: syms})))
	require.NoError(t, err)

	info, err := co.ExtractSymbolData()
	require.NoError(t, err)
	assert.Zero(t, info.NumSymbols())
	status, _ := co.GetLastError()
	assert.Equal(t, types.StatusSuccess, status)

	ClearSymbolData(info)
	ClearSymbolData(nil)
}

func TestExtractSymbolData_TooMany(t *testing.T) {
	syms := make([]comgr.Symbol, 5)
	for i := range syms {
		syms[i] = comgr.Symbol{Type: types.SymbolFunc, Name: "f"}
	}
	co, err := OpenBuffer([]byte("x"),
		WithOpener(openerFor(&fakeArtifact{symbols: syms})),
		WithOptions(types.OpenOptions{MaxEntries: 4}))
	require.NoError(t, err)

	_, err = co.ExtractSymbolData()
	require.ErrorIs(t, err, types.ErrTooLarge)
	status, _ := co.GetLastError()
	assert.Equal(t, types.StatusOutOfResources, status)
}

func TestClosed(t *testing.T) {
	co, err := OpenBuffer(testutil.ComputeELF(t))
	require.NoError(t, err)
	require.NoError(t, co.Close())

	_, err = co.Metadata()
	require.ErrorIs(t, err, types.ErrClosed)
	_, err = co.ExtractPalPipelineData()
	require.ErrorIs(t, err, types.ErrClosed)
	_, err = co.ExtractSymbolData()
	require.ErrorIs(t, err, types.ErrClosed)
	_, err = co.ExtractAssemblyData(context.Background(), "gfx900")
	require.ErrorIs(t, err, types.ErrClosed)

	status, msg := co.GetLastError()
	assert.Equal(t, types.StatusError, status)
	assert.Contains(t, msg, "closed")
}

// ----------------------------------------------------------------------------
// Assembly and compilation
// ----------------------------------------------------------------------------

func TestExtractAssembly(t *testing.T) {
	actor := &chainActor{}
	co, err := OpenBuffer(testutil.ComputeELF(t), WithActor(actor), WithWorkDir("/scratch"))
	require.NoError(t, err)
	defer co.Close()

	ctx := context.Background()
	text, err := co.ExtractAssemblyData(ctx, "amdgcn-amd-amdhsa--gfx900")
	require.NoError(t, err)
	assert.Equal(t, "disassemble-relocatable-to-source", string(text))

	size, err := co.ExtractAssemblySize(ctx, "amdgcn-amd-amdhsa--gfx900")
	require.NoError(t, err)
	assert.Equal(t, len(text), size)

	dst := make([]byte, size)
	n, err := co.ExtractAssemblyRaw(ctx, "amdgcn-amd-amdhsa--gfx900", dst)
	require.NoError(t, err)
	assert.Equal(t, size, n)
	assert.Equal(t, text, dst)

	_, err = co.ExtractAssemblyRaw(ctx, "amdgcn-amd-amdhsa--gfx900", make([]byte, size+1))
	require.ErrorIs(t, err, types.ErrBufferSize)
	status, _ := co.GetLastError()
	assert.Equal(t, types.StatusInvalidArgument, status)

	require.NotEmpty(t, actor.calls)
	for _, info := range actor.calls {
		assert.Equal(t, "amdgcn-amd-amdhsa--gfx900", info.ISAName)
		assert.Equal(t, "/scratch", info.WorkingDirectory)
	}
}

func TestExtractAssembly_NoActor(t *testing.T) {
	co, err := OpenBuffer(testutil.ComputeELF(t))
	require.NoError(t, err)
	defer co.Close()

	_, err = co.ExtractAssemblyData(context.Background(), "gfx900")
	require.ErrorIs(t, err, types.ErrUnsupported)
	_, err = co.ExtractAssemblySize(context.Background(), "gfx900")
	require.ErrorIs(t, err, types.ErrUnsupported)
}

func TestConvertSourceToCodeObject(t *testing.T) {
	actor := &chainActor{}
	co, err := OpenBuffer([]byte("kernel void k() {}"),
		WithDataKind(types.DataKindSource),
		WithName("k.cl"),
		WithActor(actor))
	require.NoError(t, err)
	defer co.Close()

	exe, err := co.ConvertSourceToCodeObject(context.Background(), types.LanguageOpenCL20, "gfx900")
	require.NoError(t, err)
	assert.Equal(t, "link-relocatable-to-executable", string(exe))

	require.Len(t, actor.calls, 6)
	assert.Equal(t, types.LanguageOpenCL20, actor.calls[0].Language)
	assert.Equal(t, "-mno-code-object-v3", actor.calls[0].Options)
	assert.Empty(t, actor.calls[5].Options)
}

func TestConvertSourceToCodeObject_Cancelled(t *testing.T) {
	co, err := OpenBuffer([]byte("src"), WithDataKind(types.DataKindSource), WithActor(&chainActor{}))
	require.NoError(t, err)
	defer co.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = co.ConvertSourceToCodeObject(ctx, types.LanguageOpenCL12, "gfx900")
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentObjects(t *testing.T) {
	elf := testutil.ComputeELF(t)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			co, err := OpenBuffer(elf)
			if err != nil {
				errs <- err
				return
			}
			defer co.Close()
			if _, err := co.ExtractPalPipelineData(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
