package typecheck

import "github.com/ninesquared81/bude/internal/ir"

// Peephole runs the optional pre-check optimisation pass over block,
// erasing push-then-immediately-discard pairs to NOPs and folding a
// NOT that only feeds a conditional jump into the jump's negated form.
// Grounded on original_source/src/optimiser.c's optimise(), generalised
// from its PUSH8/16/32 and LOAD8/16/32 cases (the original's narrower
// opcode set, pre-dating the 64-bit and PUSH_CHAR8 variants this IR adds)
// to every single-value push opcode.
func Peephole(block *ir.Block) {
	code := block.Code
	for ip := 0; ip < len(code); ip++ {
		op := ir.Opcode(code[ip])
		switch {
		case isSinglePush(op):
			width := ir.InstructionWidth(op)
			if nextIs(block, ip, width, ir.POP) {
				eraseToNOPs(block, ip, width+1) // +1 for the POP byte itself.
				ip += width                     // Loop's ip++ lands past the erased POP.
			}

		case op == ir.NOT:
			switch {
			case nextIs(block, ip, 1, ir.NOT):
				eraseToNOPs(block, ip, 2)
				ip++
			case nextIs(block, ip, 1, ir.JUMPNCOND):
				block.OverwriteOpcode(ip, ir.NOP)
				block.OverwriteOpcode(ip+1, ir.JUMPCOND)
				ip++
			case nextIs(block, ip, 1, ir.JUMPCOND):
				block.OverwriteOpcode(ip, ir.NOP)
				block.OverwriteOpcode(ip+1, ir.JUMPNCOND)
				ip++
			}
		}
	}
}

// isSinglePush reports whether op pushes exactly one value, the family
// optimise()'s OP_PUSH8/16/32 and OP_LOAD8/16/32 cases cover.
func isSinglePush(op ir.Opcode) bool {
	switch op {
	case ir.PUSH8, ir.PUSH16, ir.PUSH32, ir.PUSH64,
		ir.PUSHINT8, ir.PUSHINT16, ir.PUSHINT32, ir.PUSHINT64,
		ir.PUSHCHAR8:
		return true
	}
	return false
}

// nextIs reports whether the instruction width bytes after ip holds op,
// and that position is not itself a jump destination. Grounded on
// check_next.
func nextIs(block *ir.Block, ip, width int, op ir.Opcode) bool {
	next := ip + width
	if next >= len(block.Code) {
		return false
	}
	if block.IsJumpDest(next) {
		return false
	}
	return ir.Opcode(block.Code[next]) == op
}

// eraseToNOPs overwrites count bytes starting at ip with NOP.
func eraseToNOPs(block *ir.Block, ip, count int) {
	for i := 0; i < count; i++ {
		block.OverwriteOpcode(ip+i, ir.NOP)
	}
}
