// Package bwf implements the BudeBWF binary container codec: a versioned,
// little-endian file format for a module's strings, functions,
// user-defined types, and external function/library declarations.
//
// Grounded on original_source/src/bwf.h (the format's own prose
// description and field tables), bwf.c (entry-size arithmetic), reader.c
// (parse_header/parse_data_info/parse_function/parse_type/
// parse_ext_function/parse_ext_library/parse_data), and writer.c
// (display_bytecode; write_bytecode itself is an unimplemented stub in
// the original, so the writer here is grounded on the reader's own field
// order plus the struct-based binary.Read/binary.Write idiom the teacher
// uses for its own binary container format in pe_reader.go/pe.go).
package bwf

import "fmt"

// Magic is the literal ASCII header string preceding the version number.
const Magic = "BudeBWF"

// CurrentVersion is the version this package's Writer always emits.
const CurrentVersion = 5

// MinVersion is the oldest format version Reader accepts.
const MinVersion = 1

// builtinTypeCount is the number of built-in types module.New registers
// before any file-defined type is read, generalizing the original's
// BUILTIN_TYPE_COUNT (reader.c's parse_data iterates user-defined types
// starting at that offset, and read_bytecode sizes the type table as
// di.ud_type_count + BUILTIN_TYPE_COUNT). This port has exactly one
// built-in, the String comp type module.New always registers first, so
// ud_type_count on the wire excludes it and Types.Count() after a read
// equals ud_type_count + builtinTypeCount.
const builtinTypeCount = 1

// fieldCount returns the number of data-info fields a file of the given
// version carries, mirroring get_field_count. bwf.c's original only
// tabulates versions up to 4 (its header comment and static_assert both
// still assume BWF_version_number <= 4, even though bwf.h itself already
// documents version 5's two extra fields and reader.c already parses
// them) -- this is a stale/incomplete original, not a deliberate 4-field
// ceiling; version 5 is extended here to carry the two additional fields
// bwf.h's own field table and reader.c's parse_data_info already expect.
func fieldCount(version int) int {
	switch {
	case version <= 3:
		return 2
	case version == 4:
		return 3
	default:
		return 5
	}
}

// functionEntrySize returns the byte count to record in a function's
// entry-size field for the current (version 5) format, mirroring
// get_function_entry_size's version-4 case (version 5 adds no further
// per-function fields over version 4).
func functionEntrySize(codeSize, localCount int) int {
	return 4 + codeSize + 3*4 + localCount*4
}

// typeEntrySize returns the byte count to record in a user-defined type's
// entry-size field, mirroring get_type_entry_size's version-4 case
// (unchanged in version 5).
func typeEntrySize(fieldCount int) int {
	return 3*4 + fieldCount*4
}

// extFunctionEntrySize returns the byte count to record in an external
// function's entry-size field: param/ret counts and lists, the name
// index, and the calling convention. New in version 5; get_ext_function_
// entry_size has no original counterpart (the kept bwf.c predates
// external functions), so this is derived directly from bwf.h's
// EXTERNAL-FUNCTION-TABLE field table.
func extFunctionEntrySize(paramCount, retCount int) int {
	return 4 + 4 + paramCount*4 + retCount*4 + 4 + 4
}

// extLibraryEntrySize returns the byte count to record in an external
// library's entry-size field: the external-index list and the filename
// index. New in version 5, derived from bwf.h's EXTERNAL-LIBRARY-TABLE
// field table.
func extLibraryEntrySize(externalCount int) int {
	return 4 + externalCount*4 + 4
}

// malformedf builds a plain error for a malformed-container condition.
// The type checker's diagnostics flow through diag.Collector, but the
// codec's failures are unconditionally fatal (spec §7: "non-recoverable
// for this file"), so a returned error -- not an accumulated Diagnostic --
// is the natural fit; callers that want to log one through diag.Logger can
// wrap it themselves.
func malformedf(format string, args ...any) error {
	return fmt.Errorf("bwf: malformed container: "+format, args...)
}
