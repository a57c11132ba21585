package ir

import (
	"fmt"
	"io"
)

// Disassemble prints one line per instruction in b: offset, mnemonic,
// decoded operand, and "; -> addr_N" for jump destinations. A supplemental
// feature dropped from the distillation (disassembler.h's
// disassemble_block) kept here because it's cheap; its only caller in this
// module is TestDisassemble.
func Disassemble(w io.Writer, b *Block) error {
	offset := 0
	for offset < len(b.Code) {
		op := Opcode(b.Code[offset])
		width := InstructionWidth(op)
		if offset+width > len(b.Code) {
			return fmt.Errorf("ir: truncated instruction at offset %d", offset)
		}
		marker := " "
		if b.IsJumpDest(offset) {
			marker = ">"
		}
		fmt.Fprintf(w, "%s addr_%-6d %s", marker, offset, op)
		if operand := OperandWidth(op); operand > 0 {
			fmt.Fprintf(w, " %s", decodeOperand(b, op, offset))
		}
		if IsJump(op) {
			rel := b.ReadS16(offset + 1)
			fmt.Fprintf(w, "  ; -> addr_%d", offset+int(rel)+1)
		}
		fmt.Fprintln(w)
		offset += width
	}
	return nil
}

func decodeOperand(b *Block, op Opcode, offset int) string {
	signed := isSignedPush(op) || IsJump(op)
	switch OperandWidth(op) {
	case 1:
		if signed {
			return fmt.Sprintf("%d", b.ReadS8(offset+1))
		}
		return fmt.Sprintf("%d", b.ReadU8(offset+1))
	case 2:
		if signed {
			return fmt.Sprintf("%d", b.ReadS16(offset+1))
		}
		return fmt.Sprintf("%d", b.ReadU16(offset+1))
	case 4:
		if signed {
			return fmt.Sprintf("%d", b.ReadS32(offset+1))
		}
		return fmt.Sprintf("%d", b.ReadU32(offset+1))
	case 8:
		if signed {
			return fmt.Sprintf("%d", b.ReadS64(offset+1))
		}
		return fmt.Sprintf("%d", b.ReadU64(offset+1))
	}
	return ""
}

func isSignedPush(op Opcode) bool {
	switch op {
	case PUSHINT8, PUSHINT16, PUSHINT32, PUSHINT64:
		return true
	}
	return false
}
