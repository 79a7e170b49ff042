package types

import "fmt"

// -----------------------------------------------------------------------------
// PAL pipeline metadata model
// -----------------------------------------------------------------------------

// PipelineVersion is the PAL metadata version ("amdpal.version").
type PipelineVersion struct {
	Major uint32
	Minor uint32
}

// ShaderType enumerates API-level shader stages.
type ShaderType uint32

const (
	VertexShader ShaderType = iota
	HullShader
	DomainShader
	GeometryShader
	PixelShader
	ComputeShader
)

// String implements the Stringer interface for ShaderType.
func (t ShaderType) String() string {
	switch t {
	case VertexShader:
		return "vertex"
	case HullShader:
		return "hull"
	case DomainShader:
		return "domain"
	case GeometryShader:
		return "geometry"
	case PixelShader:
		return "pixel"
	case ComputeShader:
		return "compute"
	default:
		return fmt.Sprintf("shader(%d)", uint32(t))
	}
}

// HWStageType enumerates hardware pipeline stages. SS and PrimS are the NGG
// stages; they have no metadata tag and are never produced by the decoder.
type HWStageType uint32

const (
	StageES HWStageType = iota
	StageGS
	StageVS
	StageHS
	StageLS
	StageSS
	StagePrimS
	StagePS
	StageCS
)

// String implements the Stringer interface for HWStageType.
func (t HWStageType) String() string {
	switch t {
	case StageES:
		return "ES"
	case StageGS:
		return "GS"
	case StageVS:
		return "VS"
	case StageHS:
		return "HS"
	case StageLS:
		return "LS"
	case StageSS:
		return "SS"
	case StagePrimS:
		return "PrimS"
	case StagePS:
		return "PS"
	case StageCS:
		return "CS"
	default:
		return fmt.Sprintf("stage(%d)", uint32(t))
	}
}

// ShaderInfo describes one API shader and the hardware stages it maps to.
type ShaderInfo struct {
	Type            ShaderType `json:"type"`
	Hash            [16]byte   `json:"hash"`             // 128-bit API shader hash, zero when absent
	HardwareMapping uint32     `json:"hardware_mapping"` // bitmask of hardware stages
}

// HWStageInfo describes resource usage of one hardware stage.
//
// Every counter is an explicit override: zero means the metadata did not set
// it and the device default applies. MaxPrimsPerPsWave and NumInterpolants
// are only meaningful for StagePS.
type HWStageInfo struct {
	Type                      HWStageType `json:"type"`
	EntryPointSymbolName      string      `json:"entry_point"`
	ScratchMemorySize         uint32      `json:"scratch_memory_size"`
	LocalDataShareSize        uint32      `json:"lds_size"`
	PerformanceDataBufferSize uint32      `json:"perf_data_buffer_size"`
	NumUsedVgprs              uint32      `json:"vgpr_count"`
	NumUsedSgprs              uint32      `json:"sgpr_count"`
	NumAvailableVgprs         uint32      `json:"vgpr_limit"`
	NumAvailableSgprs         uint32      `json:"sgpr_limit"`
	WavesPerGroup             uint32      `json:"waves_per_group"`
	UsesUavs                  uint32      `json:"uses_uavs"`
	UsesRovs                  uint32      `json:"uses_rovs"`
	WritesUavs                uint32      `json:"writes_uavs"`
	WritesDepth               uint32      `json:"writes_depth"`
	MaxPrimsPerPsWave         uint32      `json:"max_prims_per_ps_wave"`
	NumInterpolants           uint32      `json:"num_interpolants"`
}

// RegisterData is a single register write.
type RegisterData struct {
	Address uint32 `json:"address"`
	Data    uint32 `json:"data"`
}

// Pipeline is one entry of "amdpal.pipelines".
type Pipeline struct {
	Name string `json:"name,omitempty"` // empty when the metadata has no .name
	Type uint32 `json:"type"`
	Hash uint64 `json:"hash"`

	UserDataLimit          uint32 `json:"user_data_limit"`
	SpillThreshold         uint32 `json:"spill_threshold"`
	UsesViewportArrayIndex uint32 `json:"uses_viewport_array_index"`
	EsGsLocalDataShareSize uint32 `json:"es_gs_lds_size"`
	ScratchMemorySize      uint32 `json:"scratch_memory_size"`
	WavefrontSize          uint32 `json:"wavefront_size"`
	API                    uint32 `json:"api"`
	APICreateInfo          uint32 `json:"api_create_info"`

	Shaders   []ShaderInfo   `json:"shaders"`
	Stages    []HWStageInfo  `json:"hardware_stages"`
	Registers []RegisterData `json:"registers"`
}

// PalPipelineData is the decoded PAL metadata of a code object. A value
// returned from a failed decode is still well formed and may be cleared.
type PalPipelineData struct {
	Version   PipelineVersion `json:"version"`
	Pipelines []Pipeline      `json:"pipelines"`
}

// NumPipelines returns the number of decoded pipeline entries.
func (d *PalPipelineData) NumPipelines() int {
	if d == nil {
		return 0
	}
	return len(d.Pipelines)
}

// Clear releases everything the structure owns and resets it to the zero
// value. Clearing an already cleared (or nil) structure is a no-op.
func (d *PalPipelineData) Clear() {
	if d == nil {
		return
	}
	*d = PalPipelineData{}
}
