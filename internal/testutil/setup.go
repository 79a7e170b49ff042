// Package testutil builds code object fixtures for tests: minimal ELF images,
// PAL metadata blobs and temporary files.
package testutil

import (
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

// Fixture symbols of ComputeELF.
var ComputeSymbols = []ELFSymbol{
	{Name: "_amdgpu_cs_main", Type: elf.STT_FUNC, Value: 0x0, Size: 0x180},
	{Name: "_amdgpu_cs_shdr_intrl_data", Type: elf.STT_OBJECT, Value: 0x200, Size: 0x40},
	{Name: "_amdgpu_cs_helper", Type: elf.STT_FUNC, Value: 0x180, Size: 0x60},
}

type palStage struct {
	EntryPoint string `msgpack:".entry_point"`
	VgprCount  uint32 `msgpack:".vgpr_count"`
	SgprCount  uint32 `msgpack:".sgpr_count"`
}

type palShader struct {
	HardwareMapping uint32 `msgpack:".hardware_mapping"`
}

type palPipeline struct {
	Name           string               `msgpack:".name"`
	Hash           []uint64             `msgpack:".pipeline_compiler_hash"`
	UserDataLimit  uint32               `msgpack:".user_data_limit"`
	SpillThreshold uint32               `msgpack:".spill_threshold"`
	Shaders        map[string]palShader `msgpack:".shaders"`
	Stages         map[string]palStage  `msgpack:".hardware_stages"`
	Registers      map[string]uint32    `msgpack:".registers"`
}

type palDocument struct {
	Version   []uint32      `msgpack:"amdpal.version"`
	Pipelines []palPipeline `msgpack:"amdpal.pipelines"`
}

// PalMetadata encodes a one-pipeline compute PAL document with native
// MessagePack integers, the way the compiler emits it.
func PalMetadata(t testing.TB) []byte {
	t.Helper()
	data, err := msgpack.Marshal(palDocument{
		Version: []uint32{2, 6},
		Pipelines: []palPipeline{{
			Name:           "cs-pipeline",
			Hash:           []uint64{0xfeedface, 0},
			UserDataLimit:  16,
			SpillThreshold: 0xffff,
			Shaders:        map[string]palShader{".compute": {HardwareMapping: 0x40}},
			Stages: map[string]palStage{".cs": {
				EntryPoint: "_amdgpu_cs_main",
				VgprCount:  32,
				SgprCount:  24,
			}},
			Registers: map[string]uint32{"0x2e12": 0xac0041},
		}},
	})
	if err != nil {
		t.Fatalf("encode PAL metadata: %v", err)
	}
	return data
}

// ComputeELF is an AMDGPU relocatable carrying PalMetadata in its
// NT_AMDGPU_METADATA note and ComputeSymbols in .symtab.
func ComputeELF(t testing.TB) []byte {
	t.Helper()
	return BuildELF(t, ELFSpec{
		Notes:   Note("AMDGPU", 32, PalMetadata(t)),
		Symbols: ComputeSymbols,
	})
}

// WriteTemp writes data to a file named name inside t.TempDir and returns its
// path.
func WriteTemp(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
