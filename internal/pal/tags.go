package pal

import "github.com/joshuapare/codeobjkit/pkg/types"

// PAL metadata keys.
const (
	TagVersion   = "amdpal.version"
	TagPipelines = "amdpal.pipelines"

	TagName                   = ".name"
	TagType                   = ".type"
	TagHash                   = ".pipeline_compiler_hash"
	TagUserDataLimit          = ".user_data_limit"
	TagSpillThreshold         = ".spill_threshold"
	TagUsesViewportArrayIndex = ".uses_viewport_array_index"
	TagEsGsLdsSize            = ".es_gs_lds_size"
	TagScratchMemorySize      = ".scratch_memory_size"
	TagWavefrontSize          = ".wavefront_size"
	TagAPI                    = ".api"
	TagAPICreateInfo          = ".api_create_info"

	TagShaders         = ".shaders"
	TagAPIShaderHash   = ".api_shader_hash"
	TagHardwareMapping = ".hardware_mapping"

	TagHardwareStages    = ".hardware_stages"
	TagEntryPoint        = ".entry_point"
	TagLdsSize           = ".lds_size"
	TagPerfDataBufSize   = "PerformanceDataBufferSize"
	TagVgprCount         = ".vgpr_count"
	TagSgprCount         = ".sgpr_count"
	TagVgprLimit         = ".vgpr_limit"
	TagSgprLimit         = ".sgpr_limit"
	TagWavesPerGroup     = ".waves_per_group"
	TagUsesUavs          = ".uses_uavs"
	TagUsesRovs          = ".uses_rovs"
	TagWritesUavs        = ".writes_uavs"
	TagWritesDepth       = ".writes_depth"
	TagMaxPrimsPerPsWave = ".max_prims_per_ps_wave"
	TagNumInterpolants   = ".num_interpolants"

	TagRegisters = ".registers"
)

// shaderTags is the closed vocabulary of ".shaders" keys.
var shaderTags = map[string]types.ShaderType{
	".vertex":   types.VertexShader,
	".hull":     types.HullShader,
	".domain":   types.DomainShader,
	".geometry": types.GeometryShader,
	".pixel":    types.PixelShader,
	".compute":  types.ComputeShader,
}

// stageTags is the closed vocabulary of ".hardware_stages" keys. SS and
// PrimS have no tag.
var stageTags = map[string]types.HWStageType{
	".ls": types.StageLS,
	".hs": types.StageHS,
	".es": types.StageES,
	".gs": types.StageGS,
	".vs": types.StageVS,
	".ps": types.StagePS,
	".cs": types.StageCS,
}

// ShaderTag returns the metadata key for a shader type.
func ShaderTag(t types.ShaderType) (string, bool) {
	for tag, st := range shaderTags {
		if st == t {
			return tag, true
		}
	}
	return "", false
}

// StageTag returns the metadata key for a hardware stage.
func StageTag(t types.HWStageType) (string, bool) {
	for tag, st := range stageTags {
		if st == t {
			return tag, true
		}
	}
	return "", false
}

// pipelineTypes maps the PAL pipeline type names newer compilers emit for
// ".type" to their numeric value.
var pipelineTypes = map[string]uint32{
	"VsPs":     0,
	"Gs":       1,
	"Cs":       2,
	"Ngg":      3,
	"Tess":     4,
	"GsTess":   5,
	"NggTess":  6,
	"Mesh":     7,
	"TaskMesh": 8,
}

type u32Field[T any] struct {
	tag   string
	field func(*T) *uint32
}

// pipelineOptional lists the pipeline scalars that default to zero.
var pipelineOptional = []u32Field[types.Pipeline]{
	{TagUsesViewportArrayIndex, func(p *types.Pipeline) *uint32 { return &p.UsesViewportArrayIndex }},
	{TagEsGsLdsSize, func(p *types.Pipeline) *uint32 { return &p.EsGsLocalDataShareSize }},
	{TagScratchMemorySize, func(p *types.Pipeline) *uint32 { return &p.ScratchMemorySize }},
	{TagWavefrontSize, func(p *types.Pipeline) *uint32 { return &p.WavefrontSize }},
	{TagAPI, func(p *types.Pipeline) *uint32 { return &p.API }},
	{TagAPICreateInfo, func(p *types.Pipeline) *uint32 { return &p.APICreateInfo }},
}

// stageOptional lists the hardware stage counters. Presence means the value
// was explicitly set; absence leaves zero and the device default applies.
var stageOptional = []u32Field[types.HWStageInfo]{
	{TagScratchMemorySize, func(s *types.HWStageInfo) *uint32 { return &s.ScratchMemorySize }},
	{TagLdsSize, func(s *types.HWStageInfo) *uint32 { return &s.LocalDataShareSize }},
	{TagPerfDataBufSize, func(s *types.HWStageInfo) *uint32 { return &s.PerformanceDataBufferSize }},
	{TagVgprCount, func(s *types.HWStageInfo) *uint32 { return &s.NumUsedVgprs }},
	{TagSgprCount, func(s *types.HWStageInfo) *uint32 { return &s.NumUsedSgprs }},
	{TagVgprLimit, func(s *types.HWStageInfo) *uint32 { return &s.NumAvailableVgprs }},
	{TagSgprLimit, func(s *types.HWStageInfo) *uint32 { return &s.NumAvailableSgprs }},
	{TagWavesPerGroup, func(s *types.HWStageInfo) *uint32 { return &s.WavesPerGroup }},
	{TagUsesUavs, func(s *types.HWStageInfo) *uint32 { return &s.UsesUavs }},
	{TagUsesRovs, func(s *types.HWStageInfo) *uint32 { return &s.UsesRovs }},
	{TagWritesUavs, func(s *types.HWStageInfo) *uint32 { return &s.WritesUavs }},
	{TagWritesDepth, func(s *types.HWStageInfo) *uint32 { return &s.WritesDepth }},
	{TagMaxPrimsPerPsWave, func(s *types.HWStageInfo) *uint32 { return &s.MaxPrimsPerPsWave }},
	{TagNumInterpolants, func(s *types.HWStageInfo) *uint32 { return &s.NumInterpolants }},
}
