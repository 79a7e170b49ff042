package types

import "fmt"

// SymbolType classifies a code object symbol. The numbering follows the ELF
// STT_* values the code object manager reports.
type SymbolType uint32

const (
	SymbolNoType SymbolType = iota
	SymbolObject
	SymbolFunc
	SymbolSection
	SymbolFile
	SymbolCommon
)

// String implements the Stringer interface for SymbolType.
func (t SymbolType) String() string {
	switch t {
	case SymbolNoType:
		return "NOTYPE"
	case SymbolObject:
		return "OBJECT"
	case SymbolFunc:
		return "FUNC"
	case SymbolSection:
		return "SECTION"
	case SymbolFile:
		return "FILE"
	case SymbolCommon:
		return "COMMON"
	default:
		return fmt.Sprintf("SYMBOL_TYPE_%d", uint32(t))
	}
}

// CodeObjSymbol is one extracted function symbol.
type CodeObjSymbol struct {
	Type  SymbolType `json:"type"`
	Name  string     `json:"name"`
	Size  uint64     `json:"size"`
	Value uint64     `json:"value"`
}

// CodeObjSymbolInfo is the symbol table of a code object. Only function
// symbols are materialized.
type CodeObjSymbolInfo struct {
	Symbols []CodeObjSymbol `json:"symbols"`
}

// NumSymbols returns the number of extracted symbols.
func (s *CodeObjSymbolInfo) NumSymbols() int {
	if s == nil {
		return 0
	}
	return len(s.Symbols)
}

// Clear releases the symbol table. Safe to call repeatedly or on nil.
func (s *CodeObjSymbolInfo) Clear() {
	if s == nil {
		return
	}
	*s = CodeObjSymbolInfo{}
}
