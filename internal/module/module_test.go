package module

import (
	"testing"

	"github.com/ninesquared81/bude/internal/types"
)

func TestNewRegistersStringType(t *testing.T) {
	m := New("test.bude")
	info, ok := m.Types.Lookup(m.StringType)
	if !ok {
		t.Fatalf("StringType %d not found in type table", m.StringType)
	}
	if info.Kind != types.KindComp {
		t.Fatalf("StringType kind = %v, want KindComp", info.Kind)
	}
	if info.Comp.WordCount != 2 || info.Comp.FieldCount != 2 {
		t.Fatalf("StringType comp = %+v, want 2 fields/2 words", info.Comp)
	}
	if info.Comp.Fields[BuiltinStringStartField] != types.Ptr {
		t.Fatalf("start field = %v, want Ptr", info.Comp.Fields[BuiltinStringStartField])
	}
	if info.Comp.Fields[BuiltinStringLengthField] != types.Word {
		t.Fatalf("length field = %v, want Word", info.Comp.Fields[BuiltinStringLengthField])
	}
}

func TestStringTableWriteReadFind(t *testing.T) {
	var strs StringTable
	i0 := strs.WriteString("hello")
	i1 := strs.WriteString("world")

	if i0 != 0 || i1 != 1 {
		t.Fatalf("indices = %d, %d, want 0, 1", i0, i1)
	}

	got, err := strs.ReadString(1)
	if err != nil || got != "world" {
		t.Fatalf("ReadString(1) = %q, %v, want %q, nil", got, err, "world")
	}

	if idx := strs.FindString("hello"); idx != 0 {
		t.Fatalf("FindString(hello) = %d, want 0", idx)
	}
	if idx := strs.FindString("missing"); idx != -1 {
		t.Fatalf("FindString(missing) = %d, want -1", idx)
	}

	if _, err := strs.ReadString(5); err == nil {
		t.Fatalf("ReadString(5) should error on out-of-range index")
	}
}

func TestFunctionTableAddGet(t *testing.T) {
	var funcs FunctionTable
	idx := funcs.Add(Function{Name: "main"})
	if idx != 0 {
		t.Fatalf("Add returned index %d, want 0", idx)
	}
	fn, err := funcs.Get(0)
	if err != nil || fn.Name != "main" {
		t.Fatalf("Get(0) = %+v, %v", fn, err)
	}
	if _, err := funcs.Get(1); err == nil {
		t.Fatalf("Get(1) should error: only one function added")
	}
}

func TestAddExternalLinksLibraryAndTable(t *testing.T) {
	m := New("test.bude")
	libIndex := m.AddLibrary("kernel32.dll")

	extIndex, err := m.AddExternal(libIndex, ExternalFunction{
		Name:     "ExitProcess",
		CallConv: CCMSx64,
		Sig:      Signature{Params: []types.Index{types.Word}},
	})
	if err != nil {
		t.Fatalf("AddExternal: %v", err)
	}
	if extIndex != 0 {
		t.Fatalf("extIndex = %d, want 0", extIndex)
	}

	lib := m.ExtLibraries.Libraries[libIndex]
	if len(lib.Indices) != 1 || lib.Indices[0] != extIndex {
		t.Fatalf("library indices = %v, want [%d]", lib.Indices, extIndex)
	}

	got, err := m.GetExternal(extIndex)
	if err != nil || got.Name != "ExitProcess" || got.CallConv != CCMSx64 {
		t.Fatalf("GetExternal(%d) = %+v, %v", extIndex, got, err)
	}

	if _, err := m.AddExternal(99, ExternalFunction{}); err == nil {
		t.Fatalf("AddExternal should error on out-of-range library index")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := New("test.bude")
	m.Strings.WriteString("original")
	m.Functions.Add(Function{Name: "f"})

	clone := m.Clone()
	clone.Strings.WriteString("only-in-clone")
	clone.Functions.Add(Function{Name: "g"})

	if m.Strings.Count() != 1 {
		t.Fatalf("mutating clone affected original: Strings.Count() = %d, want 1", m.Strings.Count())
	}
	if len(m.Functions.Functions) != 1 {
		t.Fatalf("mutating clone affected original: %d functions, want 1", len(m.Functions.Functions))
	}
	if clone.StringType != m.StringType {
		t.Fatalf("clone.StringType = %d, want %d", clone.StringType, m.StringType)
	}
}

func TestBuiltinsNamesStringFields(t *testing.T) {
	m := New("test.bude")
	builtins := m.Builtins()

	start, ok := builtins["start"]
	if !ok || start.Comp != m.StringType || start.FieldOffset != 0 {
		t.Fatalf(`Builtins()["start"] = %+v, ok=%v, want {Comp: %d, FieldOffset: 0}`, start, ok, m.StringType)
	}
	length, ok := builtins["length"]
	if !ok || length.Comp != m.StringType || length.FieldOffset != 1 {
		t.Fatalf(`Builtins()["length"] = %+v, ok=%v, want {Comp: %d, FieldOffset: 1}`, length, ok, m.StringType)
	}
}
