// Package types defines the data model shared by the code object decoders:
// the PAL pipeline description, the function symbol table, typed errors and
// the options that control a decode session.
//
// Design goals:
//   - Owned data is plain Go slices and strings; Clear resets a structure to
//     its zero value, so teardown is structural and idempotent.
//   - Never panic on malformed metadata; a failed decode still yields a
//     well-formed, clearable result.
//   - Typed errors with stable categories (schema/vocabulary/provider/...)
//     plus a Status code compatible with the code object manager.
//
// This package has no dependencies beyond the standard library.
package types
