package bwf

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/ninesquared81/bude/internal/ir"
	"github.com/ninesquared81/bude/internal/module"
	"github.com/ninesquared81/bude/internal/types"
)

func sampleModule() *module.Module {
	m := module.New("sample.bwf")
	m.Strings.WriteString("hello")
	m.Strings.WriteString("msvcrt.dll")
	m.Strings.WriteString("printf")

	b := ir.NewBlock()
	b.WriteImmediateU8(ir.PUSH8, 1)
	b.WriteImmediateU8(ir.PUSH8, 2)
	b.WriteSimple(ir.NOP)
	b.WriteSimple(ir.NOP)
	b.WriteSimple(ir.ADD)
	b.WriteSimple(ir.NOP)
	b.MaxForLoopLevel = 2
	b.LocalsSize = 1
	b.Locals = []types.Index{types.Word}
	m.Functions.Add(module.Function{LoweredCode: b})

	libIndex := m.AddLibrary("msvcrt.dll")
	if _, err := m.AddExternal(libIndex, module.ExternalFunction{
		Sig:      module.Signature{Params: []types.Index{types.Ptr}, Rets: []types.Index{types.Int}},
		Name:     "printf",
		CallConv: module.CCNative,
	}); err != nil {
		panic(err)
	}

	return m
}

// TestRoundTrip exercises property 1 (container round-trip): writing then
// reading a module at the current version must reproduce every persisted
// field (jump tables and source locations are explicitly excluded from
// the guarantee, since both are recomputed rather than persisted).
func TestRoundTrip(t *testing.T) {
	m := sampleModule()

	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	got, err := Read(bytes.NewReader(buf.Bytes()), "sample.bwf", 0, nil)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	if got.Strings.Count() != m.Strings.Count() {
		t.Fatalf("string count = %d, want %d", got.Strings.Count(), m.Strings.Count())
	}
	for i, want := range m.Strings.All() {
		if gotStr, _ := got.Strings.ReadString(i); gotStr != want {
			t.Fatalf("string %d = %q, want %q", i, gotStr, want)
		}
	}

	if len(got.Functions.Functions) != 1 {
		t.Fatalf("function count = %d, want 1", len(got.Functions.Functions))
	}
	wantCode := m.Functions.Functions[0].LoweredCode.Code
	gotCode := got.Functions.Functions[0].LoweredCode.Code
	if !bytes.Equal(gotCode, wantCode) {
		t.Fatalf("function code = %v, want %v", gotCode, wantCode)
	}
	gotBlock := got.Functions.Functions[0].LoweredCode
	if gotBlock.MaxForLoopLevel != 2 || gotBlock.LocalsSize != 1 || len(gotBlock.Locals) != 1 || gotBlock.Locals[0] != types.Word {
		t.Fatalf("function metadata mismatch: %+v", gotBlock)
	}

	if len(got.Externals.Externals) != 1 {
		t.Fatalf("external count = %d, want 1", len(got.Externals.Externals))
	}
	ext := got.Externals.Externals[0]
	if ext.Name != "printf" || ext.CallConv != module.CCNative {
		t.Fatalf("external mismatch: %+v", ext)
	}
	if len(got.ExtLibraries.Libraries) != 1 || got.ExtLibraries.Libraries[0].Filename != "msvcrt.dll" {
		t.Fatalf("external library mismatch: %+v", got.ExtLibraries.Libraries)
	}
	if got.Types.Count() != 1 {
		t.Fatalf("type count = %d, want 1 (just the built-in String type, no user types added)", got.Types.Count())
	}
}

// TestRoundTripWithUserDefinedType exercises the user-defined-type table,
// not covered by sampleModule, and in particular that the built-in String
// type module.New registers isn't double-counted against the file's own
// ud_type_count (see builtinTypeCount).
func TestRoundTripWithUserDefinedType(t *testing.T) {
	m := module.New("types.bwf")
	packIdx := m.Types.New(types.Info{
		Kind: types.KindPack,
		Pack: types.PackInfo{Fields: [types.MaxPackFields]types.Index{types.Word, types.Byte}, FieldCount: 2},
	})
	compIdx := m.Types.New(types.Info{
		Kind: types.KindComp,
		Comp: types.CompInfo{Fields: []types.Index{types.Ptr, types.Int, packIdx}, FieldCount: 3, WordCount: 4},
	})

	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	got, err := Read(bytes.NewReader(buf.Bytes()), "types.bwf", 0, nil)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if got.Types.Count() != m.Types.Count() {
		t.Fatalf("type count = %d, want %d", got.Types.Count(), m.Types.Count())
	}

	gotPack, ok := got.Types.Lookup(packIdx)
	if !ok || gotPack.Kind != types.KindPack || gotPack.Pack.FieldCount != 2 ||
		gotPack.Pack.Fields[0] != types.Word || gotPack.Pack.Fields[1] != types.Byte {
		t.Fatalf("pack type mismatch: %+v, ok=%v", gotPack, ok)
	}

	gotComp, ok := got.Types.Lookup(compIdx)
	if !ok || gotComp.Kind != types.KindComp || gotComp.Comp.WordCount != 4 ||
		len(gotComp.Comp.Fields) != 3 || gotComp.Comp.Fields[2] != packIdx {
		t.Fatalf("comp type mismatch: %+v, ok=%v", gotComp, ok)
	}
}

// TestJumpTableRecomputedAfterRead exercises property 3: after
// read_bytecode, is_jump_dest(o) must hold iff some instruction encodes a
// jump to o, since the jump table is never persisted (spec §4.4, "Jump
// recomputation").
func TestJumpTableRecomputedAfterRead(t *testing.T) {
	m := module.New("jumps.bwf")
	b := ir.NewBlock()
	b.WriteImmediateS16(ir.JUMP, 4) // dest = 0 + 4 + 1 = 5, past the two NOPs below
	b.WriteSimple(ir.NOP)
	b.WriteSimple(ir.NOP)
	dest := len(b.Code)
	b.Jumps.Add(dest)
	b.WriteSimple(ir.POP)
	m.Functions.Add(module.Function{LoweredCode: b})

	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	got, err := Read(bytes.NewReader(buf.Bytes()), "jumps.bwf", 0, nil)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	gotBlock := got.Functions.Functions[0].LoweredCode
	if !gotBlock.IsJumpDest(dest) {
		t.Fatalf("recomputed jump table missing destination %d", dest)
	}
	if gotBlock.IsJumpDest(0) {
		t.Fatalf("recomputed jump table has a spurious destination at 0")
	}
}

func int32Bytes(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

// TestVersionForwardCompatibility exercises property 2: a v1 file (no
// data-info-field-count, no v4/v5 fields at all) read by the current
// reader must yield a module whose v1-known fields match, with every
// newer field zero-defaulted rather than misread.
func TestVersionForwardCompatibility(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("BudeBWFv1\n")
	buf.Write(int32Bytes(1)) // string_count
	buf.Write(int32Bytes(0)) // function_count
	buf.Write(int32Bytes(2)) // string 0 size
	buf.WriteString("hi")

	got, err := Read(bytes.NewReader(buf.Bytes()), "v1.bwf", 0, nil)
	if err != nil {
		t.Fatalf("Read() failed on v1 file: %v", err)
	}
	if got.Strings.Count() != 1 {
		t.Fatalf("string count = %d, want 1", got.Strings.Count())
	}
	if s, _ := got.Strings.ReadString(0); s != "hi" {
		t.Fatalf("string 0 = %q, want %q", s, "hi")
	}
	if len(got.Functions.Functions) != 0 {
		t.Fatalf("function count = %d, want 0", len(got.Functions.Functions))
	}
	if len(got.Externals.Externals) != 0 || len(got.ExtLibraries.Libraries) != 0 {
		t.Fatalf("v1 file produced non-zero external tables")
	}
	if got.Types.Count() != 1 {
		t.Fatalf("type count = %d, want 1 (built-in String type only)", got.Types.Count())
	}
}

// TestEntrySizeTooSmallIsMalformed exercises property 9: an entry_size
// smaller than the bytes actually needed for known fields must be
// reported as a malformed container, not silently under-read.
func TestEntrySizeTooSmallIsMalformed(t *testing.T) {
	m := sampleModule()
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	raw := buf.Bytes()

	// Locate the function table's entry-size field by re-deriving the
	// exact byte offset the writer placed it at: header line, then the
	// data-info section (field-count + 5 int32 fields), then the string
	// table's three entries, landing right before the lone function's
	// entry-size field.
	offset := len("BudeBWFv5\n")
	offset += 4 * (1 + 5) // data-info-field-count + 5 fields
	for _, s := range m.Strings.All() {
		offset += 4 + len(s)
	}

	// Corrupt the entry-size to be far smaller than the function's actual
	// code+metadata size.
	binary.LittleEndian.PutUint32(raw[offset:offset+4], 1)

	_, err := Read(bytes.NewReader(raw), "corrupt.bwf", 0, nil)
	if err == nil {
		t.Fatalf("Read() should fail on an undersized entry-size")
	}
	if !strings.Contains(err.Error(), "malformed container") {
		t.Fatalf("error = %v, want a malformed-container error", err)
	}
}

// TestUnsupportedVersionIsRejected covers the UNSUPPORTED_VERSION failure
// mode: a file declaring a version newer than the reader supports must be
// rejected outright.
func TestUnsupportedVersionIsRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("BudeBWFv99\n")
	_, err := Read(bytes.NewReader(buf.Bytes()), "future.bwf", 0, nil)
	if err == nil {
		t.Fatalf("Read() should reject a file from a newer, unsupported version")
	}
}

// TestBadMagicIsRejected covers the BAD_MAGIC failure mode.
func TestBadMagicIsRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NotBudeBWFv5\n")
	_, err := Read(bytes.NewReader(buf.Bytes()), "bad.bwf", 0, nil)
	if err == nil {
		t.Fatalf("Read() should reject a file with a bad magic number")
	}
}

func TestDumpProducesLabelledOutput(t *testing.T) {
	m := sampleModule()
	var buf bytes.Buffer
	if err := Dump(&buf, m); err != nil {
		t.Fatalf("Dump() failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "str_0:") || !strings.Contains(out, "func_0:") {
		t.Fatalf("Dump() output missing expected labels:\n%s", out)
	}
}
