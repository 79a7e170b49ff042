package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	action  comgr.Action
	options string
	isa     string
	lang    types.Language
	inputs  int
}

// recorder answers every action with one object of the action's output
// kind, except where overridden, and logs each call.
type recorder struct {
	calls    []call
	override map[comgr.Action]comgr.DataSet
	fail     map[comgr.Action]error
}

func (r *recorder) Do(_ context.Context, action comgr.Action, info comgr.ActionInfo, in comgr.DataSet) (comgr.DataSet, error) {
	r.calls = append(r.calls, call{action, info.Options, info.ISAName, info.Language, len(in)})
	if err := r.fail[action]; err != nil {
		return nil, err
	}
	if out, ok := r.override[action]; ok {
		return out, nil
	}
	return comgr.DataSet{{Kind: action.OutputKind(), Name: action.String(), Bytes: []byte(action.String())}}, nil
}

func (r *recorder) actions() []comgr.Action {
	out := make([]comgr.Action, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.action
	}
	return out
}

var relocatable = comgr.DataSet{{Kind: types.DataKindRelocatable, Name: "data", Bytes: []byte{0x7f, 'E', 'L', 'F'}}}

func TestDisassemble(t *testing.T) {
	rec := &recorder{}
	out, err := Disassemble(t.Context(), rec, relocatable, "amdgcn-amd-amdhsa--gfx900")
	require.NoError(t, err)
	assert.Equal(t, "disassemble-relocatable-to-source", string(out))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, call{
		action: comgr.ActionDisassembleRelocatableToSource,
		isa:    "amdgcn-amd-amdhsa--gfx900",
		inputs: 1,
	}, rec.calls[0])
}

func TestCompile_StageOrderAndOptions(t *testing.T) {
	rec := &recorder{}
	src := comgr.DataSet{{Kind: types.DataKindSource, Name: "k.cl", Bytes: []byte("kernel void k() {}")}}

	out, err := Compile(t.Context(), rec, src, types.LanguageOpenCL12, "gfx906")
	require.NoError(t, err)
	assert.Equal(t, "link-relocatable-to-executable", string(out))

	assert.Equal(t, []comgr.Action{
		comgr.ActionAddPrecompiledHeaders,
		comgr.ActionCompileSourceToBC,
		comgr.ActionAddDeviceLibraries,
		comgr.ActionLinkBCToBC,
		comgr.ActionCodegenBCToRelocatable,
		comgr.ActionLinkRelocatableToExecutable,
	}, rec.actions())

	wantOptions := []string{noCodeObjectV3, noCodeObjectV3, "", noCodeObjectV3, noCodeObjectV3, ""}
	for i, c := range rec.calls {
		assert.Equal(t, wantOptions[i], c.options, "stage %d (%s)", i, c.action)
		assert.Equal(t, "gfx906", c.isa)
		assert.Equal(t, types.LanguageOpenCL12, c.lang)
	}
}

func TestCompile_HaltsOnWrongOutputCount(t *testing.T) {
	twoBC := comgr.DataSet{
		{Kind: types.DataKindBC, Name: "a.bc"},
		{Kind: types.DataKindBC, Name: "b.bc"},
	}
	tests := []struct {
		name      string
		override  map[comgr.Action]comgr.DataSet
		wantErr   error
		wantCalls int
	}{
		{
			name:      "no precompiled header",
			override:  map[comgr.Action]comgr.DataSet{comgr.ActionAddPrecompiledHeaders: nil},
			wantErr:   types.ErrProtocol,
			wantCalls: 1,
		},
		{
			name:      "two bitcode objects from compile",
			override:  map[comgr.Action]comgr.DataSet{comgr.ActionCompileSourceToBC: twoBC},
			wantErr:   types.ErrProtocol,
			wantCalls: 2,
		},
		{
			// Device libraries are not count-checked.
			name:      "device libraries add bitcode",
			override:  map[comgr.Action]comgr.DataSet{comgr.ActionAddDeviceLibraries: twoBC},
			wantCalls: 6,
		},
		{
			name:      "link leaves two bitcode objects",
			override:  map[comgr.Action]comgr.DataSet{comgr.ActionLinkBCToBC: twoBC},
			wantErr:   types.ErrProtocol,
			wantCalls: 4,
		},
		{
			name: "executable of the wrong kind",
			override: map[comgr.Action]comgr.DataSet{
				comgr.ActionLinkRelocatableToExecutable: {{Kind: types.DataKindRelocatable}},
			},
			wantErr:   types.ErrProtocol,
			wantCalls: 6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{override: tt.override}
			out, err := Compile(t.Context(), rec, comgr.DataSet{{Kind: types.DataKindSource}}, types.LanguageHIP, "gfx90a")
			assert.Len(t, rec.calls, tt.wantCalls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRun_ActorError(t *testing.T) {
	cause := errors.New("device library not found")
	rec := &recorder{fail: map[comgr.Action]error{comgr.ActionAddDeviceLibraries: cause}}

	_, err := Compile(t.Context(), rec, comgr.DataSet{{Kind: types.DataKindSource}}, types.LanguageOpenCL20, "gfx900")
	require.ErrorIs(t, err, types.ErrProvider)
	require.ErrorIs(t, err, cause)
	assert.ErrorContains(t, err, "add-device-libraries")
	assert.Len(t, rec.calls, 3)
}

func TestRun_ContextCancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	calls := 0
	actor := comgr.ActorFunc(func(_ context.Context, action comgr.Action, _ comgr.ActionInfo, _ comgr.DataSet) (comgr.DataSet, error) {
		calls++
		cancel()
		return comgr.DataSet{{Kind: action.OutputKind()}}, nil
	})

	_, err := Compile(ctx, actor, comgr.DataSet{{Kind: types.DataKindSource}}, types.LanguageHC, "gfx900")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRun_OutputIsCallerOwned(t *testing.T) {
	backing := []byte("s_endpgm")
	actor := comgr.ActorFunc(func(context.Context, comgr.Action, comgr.ActionInfo, comgr.DataSet) (comgr.DataSet, error) {
		return comgr.DataSet{{Kind: types.DataKindSource, Bytes: backing}}, nil
	})

	out, err := Disassemble(t.Context(), actor, relocatable, "")
	require.NoError(t, err)
	out[0] = 'X'
	assert.Equal(t, "s_endpgm", string(backing))
}

func TestRun_Misconfigured(t *testing.T) {
	_, err := (&Runner{}).Disassemble(t.Context(), relocatable, "")
	require.ErrorIs(t, err, types.ErrUnsupported)

	_, err = (&Runner{Actor: &recorder{}}).Run(t.Context(), comgr.ActionInfo{}, relocatable, nil)
	require.ErrorIs(t, err, types.ErrProtocol)
}
