// Package symtab builds the function symbol table of a code object from the
// provider's symbol sequence.
package symtab

import (
	"fmt"
	"iter"

	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// CountFunctions returns the number of function symbols in symbols. It stops
// at the first provider error.
func CountFunctions(symbols iter.Seq2[comgr.Symbol, error]) (int, error) {
	n := 0
	for sym, err := range symbols {
		if err != nil {
			return n, types.Provider("iterate symbols", err)
		}
		if sym.Type == types.SymbolFunc {
			n++
		}
	}
	return n, nil
}

// Extract materializes the function symbols of symbols in iteration order.
//
// The sequence is walked twice: once to size the table and once to fill it.
// Both passes must agree. More functions on the second pass than the first
// yields an empty table; fewer keeps what was filled. Either way
// types.ErrSymbolCountMismatch is returned. A table with no function symbols
// is not an error.
//
// maxEntries bounds the table size; zero selects types.DefaultMaxEntries.
func Extract(symbols iter.Seq2[comgr.Symbol, error], maxEntries int) (*types.CodeObjSymbolInfo, error) {
	info := &types.CodeObjSymbolInfo{}
	if maxEntries <= 0 {
		maxEntries = types.DefaultMaxEntries
	}

	count, err := CountFunctions(symbols)
	if err != nil {
		return info, err
	}
	if count == 0 {
		return info, nil
	}
	if count > maxEntries {
		return info, types.Errorf(types.ErrTooLarge, "%d function symbols, limit %d", count, maxEntries)
	}

	out := make([]types.CodeObjSymbol, 0, count)
	for sym, err := range symbols {
		if err != nil {
			return info, types.Provider("iterate symbols", err)
		}
		if sym.Type != types.SymbolFunc {
			continue
		}
		if len(out) == count {
			return info, types.Errorf(types.ErrSymbolCountMismatch, "more than %d function symbols on second pass", count)
		}
		out = append(out, types.CodeObjSymbol{
			Type:  sym.Type,
			Name:  sym.Name,
			Size:  sym.Size,
			Value: sym.Value,
		})
	}

	info.Symbols = out
	if len(out) != count {
		return info, types.Errorf(types.ErrSymbolCountMismatch, "first pass counted %d function symbols, second pass saw %d", count, len(out))
	}
	return info, nil
}

// Describe renders a symbol for diagnostics.
func Describe(s types.CodeObjSymbol) string {
	return fmt.Sprintf("%-8s 0x%08x %8d %s", s.Type, s.Value, s.Size, s.Name)
}
