// Package types implements the shared type-index space used by the IR,
// the type checker, the binary container codec, and the assembly emitter:
// a small integer naming either a built-in simple type or a user-defined
// aggregate (PACK/COMP), plus a table that resolves user-defined indices
// to their metadata.
//
// Grounded on original_source/src/type.h and type.c.
package types

import "fmt"

// Index denotes a type: either a built-in simple type (below SIMPLE_TYPE_COUNT)
// or a user-defined type (SIMPLE_TYPE_COUNT and above).
type Index int

// Built-in simple types, in the same order as the original enum so that the
// numeric values this package exposes match the ones the container format
// and the original sources assign them.
const (
	Error Index = iota
	Word
	Byte
	Ptr
	Int
	U8
	U16
	U32
	S8
	S16
	S32

	// SimpleTypeCount is the number of built-in simple types; indices below
	// it are simple types, indices at or above it are user-defined.
	SimpleTypeCount
)

// IsSimple reports whether idx denotes a built-in simple type.
func IsSimple(idx Index) bool {
	return idx >= Error && idx < SimpleTypeCount
}

// Name returns a human-readable name for idx, used in diagnostics and in
// the disassembler. User-defined type names are not tracked by this
// package (the source language's symbol table owns those); a generic
// placeholder is returned instead.
func Name(idx Index) string {
	switch idx {
	case Error:
		return "<error>"
	case Word:
		return "word"
	case Byte:
		return "byte"
	case Ptr:
		return "ptr"
	case Int:
		return "int"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case S8:
		return "s8"
	case S16:
		return "s16"
	case S32:
		return "s32"
	}
	return fmt.Sprintf("<user-type %d>", int(idx))
}

// Width returns the storage width, in bytes, of a simple arithmetic type
// within a 64-bit stack slot. It is also used by the type checker to
// decide which sign/zero-extension opcode re-narrows a computed result.
func Width(idx Index) int {
	switch idx {
	case Byte, U8, S8:
		return 1
	case U16, S16:
		return 2
	case U32, S32:
		return 4
	case Word, Ptr, Int:
		return 8
	}
	return 0
}

// Size returns the storage size, in bytes, of idx. For simple types this
// is Width; for PACK/COMP it is derived from the aggregate's word count.
func Size(idx Index, table *Table) int {
	if IsSimple(idx) {
		return Width(idx)
	}
	info, ok := table.Lookup(idx)
	if !ok {
		return 0
	}
	switch info.Kind {
	case KindPack:
		return 8 * info.Pack.FieldCount
	case KindComp:
		return 8 * info.Comp.WordCount
	}
	return 0
}

// IsIntegral reports whether idx is one of the fixed-width integer types
// (signed or unsigned) that arithmetic and division operate on. PTR and
// ERROR are excluded.
func IsIntegral(idx Index) bool {
	switch idx {
	case Word, Byte, Int, U8, U16, U32, S8, S16, S32:
		return true
	}
	return false
}

// IsSigned reports whether idx is one of the signed integer types.
func IsSigned(idx Index) bool {
	switch idx {
	case Int, S8, S16, S32:
		return true
	}
	return false
}

// IsUnsigned reports whether idx is one of the unsigned integer types.
func IsUnsigned(idx Index) bool {
	switch idx {
	case Word, Byte, U8, U16, U32:
		return true
	}
	return false
}

// Kind distinguishes the variants of a user-defined TypeInfo.
type Kind int

const (
	KindUninit Kind = iota
	KindSimple
	KindPack
	KindComp
)

func (k Kind) String() string {
	switch k {
	case KindUninit:
		return "uninit"
	case KindSimple:
		return "simple"
	case KindPack:
		return "pack"
	case KindComp:
		return "comp"
	}
	return "<invalid kind>"
}

// MaxPackFields is the maximum number of fields a PACK type may hold
// inline.
const MaxPackFields = 8

// PackInfo is the payload of a KindPack TypeInfo: a small aggregate whose
// field types are stored inline, no region allocation required.
type PackInfo struct {
	Fields     [MaxPackFields]Index
	FieldCount int
}

// CompInfo is the payload of a KindComp TypeInfo: an aggregate with an
// arbitrary field count, whose field-type indices are stored in a slice
// the caller owns (backed by a region.Region in practice).
type CompInfo struct {
	Fields     []Index
	FieldCount int
	WordCount  int
}

// Info is the metadata record for one type. Kind selects which payload is
// meaningful; Pack and Comp are zero-valued when not selected.
type Info struct {
	Kind Kind
	Pack PackInfo
	Comp CompInfo
}

var basicInfo = Info{Kind: KindSimple}

// Table holds the user-defined types of a module. Simple built-in types
// never occupy a slot; Lookup answers them from a single shared basicInfo
// value instead, mirroring lookup_type's "basic" struct trick so the table
// only ever grows with genuinely user-defined types.
type Table struct {
	infos []Info
}

// NewTable returns an empty type table.
func NewTable() *Table {
	return &Table{}
}

// New registers a user-defined type and returns its Index.
func (t *Table) New(info Info) Index {
	t.infos = append(t.infos, info)
	return Index(len(t.infos)-1) + SimpleTypeCount
}

// Lookup resolves idx to its Info. Simple built-in types resolve to a
// shared KindSimple value; out-of-range indices report ok=false.
func (t *Table) Lookup(idx Index) (*Info, bool) {
	if IsSimple(idx) {
		return &basicInfo, true
	}
	i := int(idx - SimpleTypeCount)
	if i < 0 || i >= len(t.infos) {
		return nil, false
	}
	return &t.infos[i], true
}

// Count returns the number of user-defined types registered.
func (t *Table) Count() int {
	return len(t.infos)
}

// All returns the user-defined types in registration order; the entry at
// position i has Index SimpleTypeCount+i.
func (t *Table) All() []Info {
	return t.infos
}
