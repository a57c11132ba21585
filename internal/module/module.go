// Package module implements the compilation unit that owns every table a
// checked program needs to resolve by index: functions, interned strings,
// user-defined types, and the external functions/libraries a program links
// against.
//
// Grounded on the original_source/src/module.c's init_module/free_module and
// write_string/read_string/find_string, generalized per spec §3's complete
// Module entity (which names an external-function table and an
// external-library table that the kept module.h omits from its struct
// definition but module.c still initializes and frees — module.c's calls to
// init_external_table/init_ext_lib_table are the tie-breaker followed here).
package module

import (
	"fmt"

	"github.com/ninesquared81/bude/internal/ir"
	"github.com/ninesquared81/bude/internal/region"
	"github.com/ninesquared81/bude/internal/types"
)

// ModuleRegionSize is the segment size for a Module's backing region,
// matching the order of magnitude original_source/src/module.c's
// MODULE_REGION_SIZE reserves for function/string/type storage.
const ModuleRegionSize = 8192

// StringTable interns string_view-equivalent slices. Go strings are
// themselves immutable views over an underlying byte array, so unlike the
// original's region-backed struct string_view array, WriteString just
// appends the Go string directly; FindString still does the same linear
// bytewise-equality scan as find_string in module.c.
type StringTable struct {
	views []string
}

// WriteString interns s, returning its index. Grounded on write_string,
// minus the region-copy step: Go strings don't need defensive copying.
func (t *StringTable) WriteString(s string) int {
	t.views = append(t.views, s)
	return len(t.views) - 1
}

// ReadString returns the string at index, mirroring read_string's bounds
// check (an assert in the original; an error here).
func (t *StringTable) ReadString(index int) (string, error) {
	if index < 0 || index >= len(t.views) {
		return "", fmt.Errorf("module: string index %d out of range [0, %d)", index, len(t.views))
	}
	return t.views[index], nil
}

// FindString returns the index of the first interned string equal to s, or
// -1 if none matches. Grounded on find_string's linear sv_eq scan.
func (t *StringTable) FindString(s string) int {
	for i, v := range t.views {
		if v == s {
			return i
		}
	}
	return -1
}

// Count returns the number of interned strings.
func (t *StringTable) Count() int {
	return len(t.views)
}

// All returns every interned string, in table order.
func (t *StringTable) All() []string {
	return t.views
}

// Signature is a function's parameter and return type list. Grounded on
// struct signature in function.h.
type Signature struct {
	Params []types.Index
	Rets   []types.Index
}

// ParamCount returns the number of parameters.
func (s Signature) ParamCount() int { return len(s.Params) }

// RetCount returns the number of return values.
func (s Signature) RetCount() int { return len(s.Rets) }

// Function is one compiled function: its signature, its pre-lowering
// word-level code, and (after checking) its lowered code. CheckedCode and
// LoweredCode play the role of the original's w_code: the checker
// consumes one and produces the other, and both are useful for
// disassembly/debugging.
type Function struct {
	Name        string
	Sig         Signature
	CheckedCode *ir.Block
	LoweredCode *ir.Block

	// tCode stands in for the original struct function's t_code field --
	// a token-level IR block from a front end this port has no parser for.
	// It is never populated and never read by anything in this module;
	// kept only so Function's shape still has a member for every field
	// struct function declares.
	tCode *ir.Block
}

// FunctionTable holds every function defined in a module. Grounded on
// struct function_table in function.h; Go's append() supersedes the
// original's manual 1.5x growth in add_function.
type FunctionTable struct {
	Functions []Function
}

// Add appends fn and returns its index, mirroring add_function.
func (t *FunctionTable) Add(fn Function) int {
	t.Functions = append(t.Functions, fn)
	return len(t.Functions) - 1
}

// Get returns the function at index.
func (t *FunctionTable) Get(index int) (*Function, error) {
	if index < 0 || index >= len(t.Functions) {
		return nil, fmt.Errorf("module: function index %d out of range [0, %d)", index, len(t.Functions))
	}
	return &t.Functions[index], nil
}

// CallingConvention selects how an external function's arguments and return
// value are passed. Grounded on enum calling_convention in ext_function.h.
type CallingConvention int

const (
	CCBude CallingConvention = iota
	CCNative
	CCMSx64
	CCSysVAMD64
)

func (cc CallingConvention) String() string {
	switch cc {
	case CCBude:
		return "bude"
	case CCNative:
		return "native"
	case CCMSx64:
		return "ms-x64"
	case CCSysVAMD64:
		return "sysv-amd64"
	}
	return "unknown"
}

// ExternalFunction is a function imported from a native library. Grounded
// on struct ext_function in ext_function.h.
type ExternalFunction struct {
	Sig      Signature
	Name     string
	CallConv CallingConvention
}

// ExternalLibrary is a native library a module links against, and the
// indices (into the module's ExternalTable) of the external functions it
// provides. Grounded on struct ext_library.
type ExternalLibrary struct {
	Filename string
	Indices  []int
}

// ExternalTable holds every external function a module declares, across all
// of its external libraries. Grounded on struct external_table.
type ExternalTable struct {
	Externals []ExternalFunction
}

// ExtLibTable holds every external library a module links against.
// Grounded on struct ext_lib_table.
type ExtLibTable struct {
	Libraries []ExternalLibrary
}

// AddExternal records ext as belonging to lib, appending to both the
// module-wide external table and lib's own index list, and returns ext's
// index in the external table. Grounded on add_external's two-table
// append.
func (m *Module) AddExternal(libIndex int, ext ExternalFunction) (int, error) {
	if libIndex < 0 || libIndex >= len(m.ExtLibraries.Libraries) {
		return 0, fmt.Errorf("module: library index %d out of range [0, %d)", libIndex, len(m.ExtLibraries.Libraries))
	}
	extIndex := len(m.Externals.Externals)
	m.Externals.Externals = append(m.Externals.Externals, ext)
	lib := &m.ExtLibraries.Libraries[libIndex]
	lib.Indices = append(lib.Indices, extIndex)
	return extIndex, nil
}

// GetExternal returns the external function at index. Grounded on
// get_external's bounds assert.
func (m *Module) GetExternal(index int) (*ExternalFunction, error) {
	if index < 0 || index >= len(m.Externals.Externals) {
		return nil, fmt.Errorf("module: external index %d out of range [0, %d)", index, len(m.Externals.Externals))
	}
	return &m.Externals.Externals[index], nil
}

// AddLibrary registers a new, initially empty external library and returns
// its index.
func (m *Module) AddLibrary(filename string) int {
	m.ExtLibraries.Libraries = append(m.ExtLibraries.Libraries, ExternalLibrary{Filename: filename})
	return len(m.ExtLibraries.Libraries) - 1
}

// Builtin field offsets into the built-in String comp type, mirroring the
// "start"/"length" comp-field symbols original_source/src/builtins.c
// installs for TYPE_STRING. builtins.c's init_builtins is a parser-level
// symbol table for a front end this module doesn't implement (spec's scope
// stops at the word-level IR), but the underlying fact it encodes --
// strings are a 2-word comp of (Ptr start, Word length) -- is a module-level
// type, so it's registered directly as a built-in Comp type below instead.
const (
	BuiltinStringStartField  = 0
	BuiltinStringLengthField = 1
)

// Module is a single compilation unit: its functions, interned strings,
// type table, region, external functions/libraries, and source filename.
// Grounded on struct module in module.h/module.c, with the Externals and
// ExtLibraries fields spec §3 requires but module.h's struct definition
// omits (module.c's init_module/free_module initialize and free them
// regardless).
type Module struct {
	Filename        string
	Region          *region.Region
	Functions       FunctionTable
	Strings         StringTable
	Types           *types.Table
	Externals       ExternalTable
	ExtLibraries    ExtLibTable
	MaxForLoopLevel int

	// StringType is the index of the built-in String comp type, a 2-word
	// composite of (Ptr start, Word length), registered at construction.
	StringType types.Index
}

// New creates a Module for filename, with a fresh region, empty tables, and
// the built-in String type registered. Grounded on init_module.
func New(filename string) *Module {
	m := &Module{
		Filename: filename,
		Region:   region.New(ModuleRegionSize),
		Types:    types.NewTable(),
	}
	m.StringType = m.Types.New(types.Info{
		Kind: types.KindComp,
		Comp: types.CompInfo{
			Fields:     []types.Index{types.Ptr, types.Word},
			FieldCount: 2,
			WordCount:  2,
		},
	})
	return m
}

// FieldAccessor names one field of a built-in composite type by its offset
// in word units. Grounded on struct symbol's SYM_COMP_FIELD variant in
// builtins.c, which pairs a field name with a (comp type, field offset)
// pair for the symbol table to resolve a dotted field access against.
type FieldAccessor struct {
	Comp        types.Index
	FieldOffset int
}

// Builtins returns the fixed field accessors for m's built-in composite
// types, keyed by field name, as a convenience for a future symbol-table
// consumer above this module's scope (no resolver for dotted field access
// exists at the word-IR level this package and internal/typecheck operate
// at). Grounded verbatim on builtins.c's single built-in symbol table:
// TYPE_STRING's "start" (offset 0) and "length" (offset 1) fields.
func (m *Module) Builtins() map[string]FieldAccessor {
	return map[string]FieldAccessor{
		"start":  {Comp: m.StringType, FieldOffset: 0},
		"length": {Comp: m.StringType, FieldOffset: 1},
	}
}

// Clone copies m's tables into fresh slices and clones its region, so
// that adding entries to the copy leaves m unchanged. Values held inside
// table entries (a function's *ir.Block, slices inside external or type
// records) are shared with m, not copied. Grounded on
// original_source/src/region.c's copy_region, the same operation
// internal/region.Region.Clone adapts.
func (m *Module) Clone() *Module {
	clone := &Module{
		Filename:        m.Filename,
		Region:          m.Region.Clone(),
		MaxForLoopLevel: m.MaxForLoopLevel,
		StringType:      m.StringType,
	}

	clone.Functions.Functions = append([]Function(nil), m.Functions.Functions...)
	clone.Strings.views = append([]string(nil), m.Strings.views...)
	clone.Externals.Externals = append([]ExternalFunction(nil), m.Externals.Externals...)

	clone.ExtLibraries.Libraries = make([]ExternalLibrary, len(m.ExtLibraries.Libraries))
	for i, lib := range m.ExtLibraries.Libraries {
		clone.ExtLibraries.Libraries[i] = ExternalLibrary{
			Filename: lib.Filename,
			Indices:  append([]int(nil), lib.Indices...),
		}
	}

	clonedTypes := types.NewTable()
	for _, info := range m.Types.All() {
		clonedTypes.New(info)
	}
	clone.Types = clonedTypes

	return clone
}
