// Package asmgen translates a checked, lowered IR block into FASM-dialect
// assembly targeting a Windows PE64 console executable.
//
// Grounded on original_source/src/generator.c (generate_header/generate_code/
// generate_constants/generate_imports/generate_bss/generate) and asm.c/asm.h
// (the asm_write/asm_section_/asm_label/asm_write_instN family, adapted as
// Builder's methods). generator.c predates the external-function/library
// tables BudeBWF version 5 added, so the import-table extension for
// module-declared externals below has no original counterpart; it is this
// port's own wiring of those tables through to the one stage of the pipeline
// that would actually use them.
package asmgen

import (
	"fmt"
	"io"

	"github.com/ninesquared81/bude/internal/ir"
	"github.com/ninesquared81/bude/internal/module"
)

// Generate emits m's first function as a complete FASM source file to w.
// Spec §4.5 scopes the emitter to a single IR block; a module assembles
// around exactly one entry point ("start"), so the first function in
// m.Functions stands in for the original's sole top-level block.
func Generate(w io.Writer, m *module.Module) error {
	if len(m.Functions.Functions) == 0 {
		return fmt.Errorf("asmgen: module %q has no functions to emit", m.Filename)
	}
	fn := &m.Functions.Functions[0]
	block := fn.LoweredCode
	if block == nil {
		block = fn.CheckedCode
	}
	if block == nil {
		return fmt.Errorf("asmgen: function %q has no code to emit", fn.Name)
	}

	var b Builder
	generateHeader(&b)
	if err := generateCode(&b, m, block); err != nil {
		return err
	}
	generateConstants(&b, m)
	generateImports(&b, m)
	generateBSS(&b)

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("asmgen: write assembly: %w", err)
	}
	return nil
}

func generateHeader(b *Builder) {
	b.Write("format PE64 console\n")
	b.Write("include 'win64ax.inc'\n")
	b.Write("\n")
}

// generateCode emits the .code section, walking block's instruction stream
// exactly once and translating each opcode to its fixed assembly template,
// mirroring generate_code.
func generateCode(b *Builder, m *module.Module, block *ir.Block) error {
	b.Section(".code", "code", "readable", "executable")
	b.Write("\n")
	b.Label("start")
	b.Write("\n")
	b.Write("  ;;\tInitialisation.\n")
	b.Inst2c("lea", "rsi", "[aux]", "Loop stack pointer.")
	b.Inst2cf("lea", "rbx", "[aux + %d*8]",
		"Auxiliary stack pointer (space reserved for loop stack).", block.MaxForLoopLevel)
	b.Inst2c("xor", "rdi", "rdi", "Loop counter.")

	code := block.Code
	for ip := 0; ip < len(code); {
		op := ir.Opcode(code[ip])
		if block.IsJumpDest(ip) {
			b.Label("addr_%d", ip)
		}
		if op == ir.NOP {
			ip++
			continue
		}
		b.Write("  ;;\t=== %s ===\n", op.String())
		if err := generateInstruction(b, m, block, op, ip); err != nil {
			return err
		}
		ip += ir.InstructionWidth(op)
	}

	b.Write("  ;;\t=== END ===\n")
	b.Inst2c("xor", "rcx", "rcx", "Successful exit.")
	b.Inst2("and", "spl", "0F0h")
	b.Inst2("sub", "rsp", "32")
	b.Inst1("call", "[ExitProcess]")
	b.Write("\n")
	return nil
}

// jumpTarget recovers the absolute destination ip of a two-byte relative
// jump operand at ip, matching ir.Block.RecomputeJumps' decoding
// (dest = ip + rel + 1) so labels and jumps agree on the same offset.
func jumpTarget(block *ir.Block, ip int) int {
	rel := block.ReadS16(ip + 1)
	return ip + int(rel) + 1
}

func generateInstruction(b *Builder, m *module.Module, block *ir.Block, op ir.Opcode, ip int) error {
	switch op {
	case ir.NOP:
		// Unreachable: callers skip NOP before dispatching here.
	case ir.PUSH8:
		b.Inst2f("mov", "rax", "%d", block.ReadU8(ip+1))
		b.Inst1("push", "rax")
	case ir.PUSH16:
		b.Inst2f("mov", "rax", "%d", block.ReadU16(ip+1))
		b.Inst1("push", "rax")
	case ir.PUSH32:
		b.Inst2f("mov", "rax", "%d", block.ReadU32(ip+1))
		b.Inst1("push", "rax")
	case ir.PUSH64:
		b.Inst2f("mov", "rax", "%d", block.ReadU64(ip+1))
		b.Inst1("push", "rax")
	case ir.PUSHINT8:
		b.Inst2f("mov", "rax", "%d", block.ReadS8(ip+1))
		b.Inst1("push", "rax")
	case ir.PUSHINT16:
		b.Inst2f("mov", "rax", "%d", block.ReadS16(ip+1))
		b.Inst1("push", "rax")
	case ir.PUSHINT32:
		b.Inst2f("mov", "rax", "%d", block.ReadS32(ip+1))
		b.Inst1("push", "rax")
	case ir.PUSHINT64:
		b.Inst2f("mov", "rax", "%d", block.ReadS64(ip+1))
		b.Inst1("push", "rax")
	case ir.PUSHCHAR8:
		b.Inst2f("mov", "rax", "%d", block.ReadU8(ip+1))
		b.Inst1("push", "rax")
	case ir.LOADSTRING8:
		return generateLoadString(b, m, int(block.ReadU8(ip+1)))
	case ir.LOADSTRING16:
		return generateLoadString(b, m, int(block.ReadU16(ip+1)))
	case ir.LOADSTRING32:
		return generateLoadString(b, m, int(block.ReadU32(ip+1)))
	case ir.POP:
		b.Inst1("pop", "rax")
	case ir.DUPE:
		b.Inst1("push", "qword [rsp]")
	case ir.SWAP:
		b.Inst2("mov", "rax", "[rsp]")
		b.Inst2("mov", "rdx", "[rsp+8]")
		b.Inst2("mov", "[rsp+8]", "rax")
		b.Inst2("mov", "[rsp]", "rdx")
	case ir.ADD:
		generateBinOp(b, "add")
	case ir.SUB:
		generateBinOp(b, "sub")
	case ir.MULT:
		b.Inst1("pop", "rax")
		b.Inst2c("imul", "rax", "[rsp]", "Multiplication is commutative.")
		b.Inst2("mov", "[rsp]", "rax")
	case ir.DIVMOD:
		b.Inst1c("pop", "rcx", "Divisor.")
		b.Inst1c("pop", "rax", "Dividend.")
		b.Inst2c("xor", "rdx", "rdx", "Zero out extra bytes in dividend.")
		b.Inst1("div", "rcx")
		b.Inst1c("push", "rax", "Quotient.")
		b.Inst1c("push", "rdx", "Remainder.")
	case ir.IDIVMOD:
		b.Inst1c("pop", "rcx", "Divisor.")
		b.Inst1c("pop", "rax", "Dividend.")
		b.Inst2("xor", "rdx", "rdx")
		b.Inst1("idiv", "rcx")
		b.Inst1c("push", "rax", "Quotient.")
		b.Inst1c("push", "rdx", "Remainder.")
	case ir.EDIVMOD:
		b.Inst1c("pop", "rcx", "Divisor.")
		b.Inst1c("pop", "rax", "Dividend.")
		b.Inst2c("mov", "r8", "rcx", "Save divisor.")
		b.Inst1("neg", "r8")
		b.Inst2("sar", "r8", "63")
		b.Inst2c("or", "r8", "1", "r8 = -sign(rcx).")
		b.Inst2("mov", "r9", "rcx")
		b.Inst1("neg", "r9")
		b.Inst2c("cmovl", "r9", "rcx", "r9 = abs(rcx).")
		b.Inst0c("cqo", "Sign-extend dividend into rdx.")
		b.Inst1("idiv", "rcx")
		b.Inst2c("add", "r8", "rax", "q - sign(b)")
		b.Inst2c("add", "r9", "rdx", "r + abs(b)")
		b.Inst2c("test", "rdx", "rdx", "Ensure r >= 0 and adjust q accordingly.")
		b.Inst2("cmovl", "rax", "r8")
		b.Inst2("cmovl", "rdx", "r9")
		b.Inst1c("push", "rax", "Quotient.")
		b.Inst1c("push", "rdx", "Remainder.")
	case ir.AND:
		b.Inst1c("pop", "rdx", "'Then' value.")
		b.Inst2c("mov", "rax", "[rsp]", "'Else' value.")
		b.Inst2("test", "rax", "rax")
		b.Inst2("cmovnz", "rax", "rdx")
		b.Inst2("mov", "[rsp]", "rax")
	case ir.OR:
		b.Inst1c("pop", "rdx", "'Else' value.")
		b.Inst2c("mov", "rax", "[rsp]", "'Then' value.")
		b.Inst2("test", "rax", "rax")
		b.Inst2("cmovz", "rax", "rdx")
		b.Inst2("mov", "[rsp]", "rax")
	case ir.NOT:
		b.Inst1("pop", "rax")
		b.Inst2c("xor", "edx", "edx", "Zero out rdx.")
		b.Inst2("test", "rax", "rax")
		b.Inst1("setz", "dl")
		b.Inst1("push", "rdx")
	case ir.DEREF:
		b.Inst1("pop", "rax")
		b.Inst2("movzx", "rdx", "byte [rax]")
		b.Inst1("push", "rdx")
	case ir.SX8:
		b.Inst2("movsx", "rax", "byte [rsp]")
		b.Inst2("mov", "[rsp]", "rax")
	case ir.SX8L:
		b.Inst2("movsx", "rax", "byte [rsp+8]")
		b.Inst2("mov", "[rsp+8]", "rax")
	case ir.SX16:
		b.Inst2("movsx", "rax", "word [rsp]")
		b.Inst2("mov", "[rsp]", "rax")
	case ir.SX16L:
		b.Inst2("movsx", "rax", "word [rsp+8]")
		b.Inst2("mov", "[rsp+8]", "rax")
	case ir.SX32:
		b.Inst2("movsx", "rax", "dword [rsp]")
		b.Inst2("mov", "[rsp]", "rax")
	case ir.SX32L:
		b.Inst2("movsx", "rax", "dword [rsp+8]")
		b.Inst2("mov", "[rsp+8]", "rax")
	case ir.ZX8:
		b.Inst2("movzx", "rax", "byte [rsp]")
		b.Inst2("mov", "[rsp]", "rax")
	case ir.ZX8L:
		b.Inst2("movzx", "rax", "byte [rsp+8]")
		b.Inst2("mov", "[rsp+8]", "rax")
	case ir.ZX16:
		b.Inst2("movzx", "rax", "word [rsp]")
		b.Inst2("mov", "[rsp]", "rax")
	case ir.ZX16L:
		b.Inst2("movzx", "rax", "word [rsp+8]")
		b.Inst2("mov", "[rsp+8]", "rax")
	case ir.ZX32:
		b.Inst2("movzx", "rax", "dword [rsp]")
		b.Inst2("mov", "[rsp]", "rax")
	case ir.ZX32L:
		// generator.c's W_OP_ZX32L case reads the 32-bit slot with a plain
		// "mov" rather than "movzx" here (the upper 32 bits of rax are left
		// to the assembler/CPU's implicit zero-extension on a 32-bit
		// register write); kept verbatim rather than "corrected" to movzx.
		b.Inst2("mov", "rax", "dword [rsp+8]")
		b.Inst2("mov", "[rsp+8]", "rax")
	case ir.PRINT:
		generatePrintCall(b, "fmt_u64")
	case ir.PRINTINT:
		generatePrintCall(b, "fmt_s64")
	case ir.PRINTCHAR:
		generatePrintCall(b, "fmt_char")
	case ir.JUMP:
		b.Inst1f("jmp", "addr_%d", jumpTarget(block, ip))
	case ir.JUMPCOND:
		b.Inst1c("pop", "rax", "Condition.")
		b.Inst2("test", "rax", "rax")
		b.Inst1f("jnz", "addr_%d", jumpTarget(block, ip))
	case ir.JUMPNCOND:
		b.Inst1c("pop", "rax", "Condition.")
		b.Inst2("test", "rax", "rax")
		b.Inst1f("jz", "addr_%d", jumpTarget(block, ip))
	case ir.FORDECSTART:
		dest := jumpTarget(block, ip)
		b.Inst1c("pop", "rdi", "Load loop counter.")
		b.Inst2("test", "rdi", "rdi")
		b.Inst1f("jz", "addr_%d", dest)
		b.Inst2c("mov", "[rsi]", "rdi", "Push old loop counter onto loop stack.")
		b.Inst2("add", "rsi", "8")
	case ir.FORDEC:
		dest := jumpTarget(block, ip)
		b.Inst1("dec", "rdi")
		b.Inst2("test", "rdi", "rdi")
		b.Inst1f("jnz", "addr_%d", dest)
		b.Inst2c("sub", "rsi", "8", "Pop old loop counter into rdi.")
		b.Inst2("mov", "rdi", "[rsi]")
	case ir.FORINCSTART:
		dest := jumpTarget(block, ip)
		b.Inst1c("pop", "rax", "Load loop target.")
		b.Inst2("test", "rax", "rax")
		b.Inst1f("jz", "addr_%d", dest)
		b.Inst2c("mov", "[rbx]", "rax", "Push loop target to aux.")
		b.Inst2("add", "rbx", "8")
		b.Inst2c("mov", "[rsi]", "rdi", "Push old loop counter onto loop stack.")
		b.Inst2("add", "rsi", "8")
		b.Inst2c("xor", "rdi", "rdi", "Zero out loop counter.")
	case ir.FORINC:
		dest := jumpTarget(block, ip)
		b.Inst1("inc", "rdi")
		b.Inst2("cmp", "rdi", "[rbx-8]")
		b.Inst1f("jl", "addr_%d", dest)
		b.Inst2c("sub", "rbx", "8", "Pop target.")
		b.Inst2c("sub", "rsi", "8", "Pop old loop counter into rdi.")
		b.Inst2("mov", "rdi", "[rsi]")
	case ir.GETLOOPVAR:
		offset := block.ReadU16(ip + 1)
		if offset == 0 {
			b.Inst1("push", "rdi")
		} else {
			b.Inst2cf("mov", "rax", "[rsi - %d*8]", "Offset of loop variable.", offset)
			b.Inst1("push", "rax")
		}
	case ir.EXIT:
		b.Inst1c("pop", "rcx", "Exit code.")
		b.Inst1("call", "[ExitProcess]")
	default:
		return fmt.Errorf("asmgen: no translation for opcode %s at offset %d", op, ip)
	}
	return nil
}

func generateBinOp(b *Builder, op string) {
	b.Inst1c("pop", "rdx", "RHS.")
	b.Inst2c(op, "[rsp]", "rdx", "LHS left on stack.")
}

func generatePrintCall(b *Builder, fmtLabel string) {
	b.Inst1c("pop", "rdx", "Value to be printed.")
	b.Inst2cf("lea", "rcx", "[%s]", "Format string.", fmtLabel)
	b.Inst2c("mov", "rbp", "rsp", "Save rsp for later (rbp is non-volatile in MS x64)")
	b.Inst2c("and", "spl", "0F0h", "Align stack.")
	b.Inst2c("sub", "rsp", "32", "Shadow space.")
	b.Inst1("call", "[printf]")
	b.Inst2c("mov", "rsp", "rbp", "Restore cached version of rsp.")
}

func generateLoadString(b *Builder, m *module.Module, index int) error {
	s, err := m.Strings.ReadString(index)
	if err != nil {
		return fmt.Errorf("asmgen: %w", err)
	}
	b.Inst2f("lea", "rax", "[str%d]", index)
	b.Inst1("push", "rax")
	b.Inst1f("push", "%d", len(s))
	return nil
}
