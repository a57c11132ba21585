package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ninesquared81/bude/internal/asmgen"
	"github.com/ninesquared81/bude/internal/bwf"
	"github.com/ninesquared81/bude/internal/config"
	"github.com/ninesquared81/bude/internal/diag"
	"github.com/ninesquared81/bude/internal/ir"
	"github.com/ninesquared81/bude/internal/module"
)

// TestPipelineRoundTrip is the smoke test SPEC_FULL.md's Non-goals section
// calls for in place of a lexer/parser: with no front end to produce a
// BudeBWF container, this hand-assembles a minimal one (PUSH_INT8 1;
// PUSH_INT8 2; ADD with its reserved NOP conversion slots; PRINT_INT;
// PUSH_INT8 0; EXIT), then drives it through the same
// write -> read -> check -> emit pipeline cmdCheck/cmdEmit wire, using an
// in-memory buffer in place of a file.
func TestPipelineRoundTrip(t *testing.T) {
	m := module.New("smoke.bwf")
	b := ir.NewBlock()
	b.WriteImmediateS8(ir.PUSHINT8, 1)
	b.WriteImmediateS8(ir.PUSHINT8, 2)
	b.WriteSimple(ir.NOP) // lhs conversion slot
	b.WriteSimple(ir.NOP) // rhs conversion slot
	b.WriteSimple(ir.ADD)
	b.WriteSimple(ir.NOP) // result conversion slot
	b.WriteSimple(ir.PRINTINT)
	b.WriteImmediateS8(ir.PUSHINT8, 0)
	b.WriteSimple(ir.EXIT)
	m.Functions.Add(module.Function{CheckedCode: b})

	var container bytes.Buffer
	if err := bwf.Write(&container, m); err != nil {
		t.Fatalf("bwf.Write: %v", err)
	}

	cfg := config.FromEnvironment()
	logger := diag.NewLogger(&strings.Builder{})

	read, err := bwf.Read(bytes.NewReader(container.Bytes()), "smoke.bwf", cfg.MaxReaderVersion, logger)
	if err != nil {
		t.Fatalf("bwf.Read: %v", err)
	}

	diags := checkModule(read, cfg)
	if diags.HadError() {
		t.Fatalf("checkModule reported errors:\n%s", diags.Render())
	}

	var asm bytes.Buffer
	if err := asmgen.Generate(&asm, read); err != nil {
		t.Fatalf("asmgen.Generate: %v", err)
	}
	if !strings.Contains(asm.String(), "call\t[printf]") {
		t.Fatalf("emitted assembly missing printf call:\n%s", asm.String())
	}
}
