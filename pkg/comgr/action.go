package comgr

import (
	"fmt"
	"strings"

	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Action identifies a transform. The numbers align with the code object
// manager's action enumeration.
type Action uint32

const (
	ActionSourceToPreprocessor           Action = 0
	ActionAddPrecompiledHeaders          Action = 1
	ActionCompileSourceToBC              Action = 2
	ActionAddDeviceLibraries             Action = 3
	ActionLinkBCToBC                     Action = 4
	ActionOptimizeBCToBC                 Action = 5
	ActionCodegenBCToRelocatable         Action = 6
	ActionCodegenBCToAssembly            Action = 7
	ActionLinkRelocatableToRelocatable   Action = 8
	ActionLinkRelocatableToExecutable    Action = 9
	ActionAssembleSourceToRelocatable    Action = 10
	ActionDisassembleRelocatableToSource Action = 11
	ActionDisassembleExecutableToSource  Action = 12
	ActionDisassembleBytesToSource       Action = 13
)

type actionDesc struct {
	name   string
	output types.DataKind
	adds   bool // output is the input set plus the new objects
}

var actions = map[Action]actionDesc{
	ActionSourceToPreprocessor:           {"source-to-preprocessor", types.DataKindSource, false},
	ActionAddPrecompiledHeaders:          {"add-precompiled-headers", types.DataKindPrecompiledHeader, true},
	ActionCompileSourceToBC:              {"compile-source-to-bc", types.DataKindBC, false},
	ActionAddDeviceLibraries:             {"add-device-libraries", types.DataKindBC, true},
	ActionLinkBCToBC:                     {"link-bc-to-bc", types.DataKindBC, false},
	ActionOptimizeBCToBC:                 {"optimize-bc-to-bc", types.DataKindBC, false},
	ActionCodegenBCToRelocatable:         {"codegen-bc-to-relocatable", types.DataKindRelocatable, false},
	ActionCodegenBCToAssembly:            {"codegen-bc-to-assembly", types.DataKindSource, false},
	ActionLinkRelocatableToRelocatable:   {"link-relocatable-to-relocatable", types.DataKindRelocatable, false},
	ActionLinkRelocatableToExecutable:    {"link-relocatable-to-executable", types.DataKindExecutable, false},
	ActionAssembleSourceToRelocatable:    {"assemble-source-to-relocatable", types.DataKindRelocatable, false},
	ActionDisassembleRelocatableToSource: {"disassemble-relocatable-to-source", types.DataKindSource, false},
	ActionDisassembleExecutableToSource:  {"disassemble-executable-to-source", types.DataKindSource, false},
	ActionDisassembleBytesToSource:       {"disassemble-bytes-to-source", types.DataKindSource, false},
}

// String implements the Stringer interface for Action.
func (a Action) String() string {
	if d, ok := actions[a]; ok {
		return d.name
	}
	return fmt.Sprintf("action(%d)", uint32(a))
}

// OutputKind is the data kind the action produces.
func (a Action) OutputKind() types.DataKind {
	return actions[a].output
}

// Adds reports whether the action passes its input objects through and
// appends its results, rather than replacing the input set.
func (a Action) Adds() bool {
	return actions[a].adds
}

// ParseAction maps a name produced by Action.String back to its value.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, d := range actions {
		if d.name == s {
			return a, nil
		}
	}
	return 0, types.Errorf(types.ErrUnsupported, "unknown action %q", s)
}

// ActionInfo carries the per-action parameters.
type ActionInfo struct {
	ISAName          string
	Language         types.Language
	Options          string
	WorkingDirectory string
}

// Data is one data object.
type Data struct {
	Kind  types.DataKind
	Name  string
	Bytes []byte
}

// DataSet is an ordered collection of data objects.
type DataSet []Data

// Count returns the number of objects of the given kind.
func (s DataSet) Count(kind types.DataKind) int {
	n := 0
	for _, d := range s {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Get returns the i-th object of the given kind.
func (s DataSet) Get(kind types.DataKind, i int) (Data, bool) {
	for _, d := range s {
		if d.Kind != kind {
			continue
		}
		if i == 0 {
			return d, true
		}
		i--
	}
	return Data{}, false
}
