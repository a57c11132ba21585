package typecheck

import (
	"github.com/ninesquared81/bude/internal/diag"
	"github.com/ninesquared81/bude/internal/ir"
	"github.com/ninesquared81/bude/internal/types"
)

// Checker type-checks and lowers one ir.Block. Grounded on struct
// type_checker and type_check().
type Checker struct {
	block *ir.Block
	stk   stack
	cps   *checkpoints
	diags *diag.Collector
	ip    int
}

// New returns a Checker for block, reporting diagnostics to diags.
func New(block *ir.Block, diags *diag.Collector) *Checker {
	return &Checker{
		block: block,
		cps:   newCheckpoints(block.Jumps.Dests()),
		diags: diags,
	}
}

func (c *Checker) errorf(format string, args ...any) {
	c.diags.Reportf(diag.TypeError, diag.AtOffset(c.ip), format, args...)
}

func (c *Checker) push(t types.Index) {
	if !c.stk.push(t) {
		c.diags.Reportf(diag.StackError, diag.AtOffset(c.ip), "insufficient stack space")
	}
}

func (c *Checker) pop() types.Index {
	t, ok := c.stk.pop()
	if !ok {
		c.diags.Reportf(diag.StackError, diag.AtOffset(c.ip), "insufficient stack space")
		return types.Error
	}
	return t
}

func (c *Checker) peek() types.Index {
	t, ok := c.stk.peek()
	if !ok {
		c.diags.Reportf(diag.StackError, diag.AtOffset(c.ip), "insufficient stack space")
		return types.Error
	}
	return t
}

func (c *Checker) overwrite(offset int, op ir.Opcode) {
	// The checker only ever overwrites conversion/opcode slots it has
	// already read past, so a failure here means the block itself is
	// malformed (truncated immediately before an arithmetic/print
	// instruction that needs its reserved slots).
	if err := c.block.OverwriteOpcode(offset, op); err != nil {
		c.diags.Reportf(diag.MalformedContainer, diag.AtOffset(c.ip), "%s", err)
	}
}

// Check walks the block's instruction stream once, type-checking and
// lowering every instruction. It reports ok=true iff no diagnostic was
// recorded. Grounded on type_check().
func (c *Checker) Check() bool {
	code := c.block.Code
	for c.ip = 0; c.ip < len(code); c.ip++ {
		if c.block.IsJumpDest(c.ip) {
			if !c.cps.saveStateAt(c.ip, c.stk.snapshot()) {
				if !c.cps.checkStateAt(c.ip, c.stk.snapshot()) {
					c.diags.Reportf(diag.StackMergeError, diag.AtOffset(c.ip),
						"inconsistent stack after jump instruction")
				}
			}
		}
		if c.diags.ShouldStop() {
			return !c.diags.HadError()
		}
		c.step(ir.Opcode(code[c.ip]))
	}
	return !c.diags.HadError()
}

func (c *Checker) step(op ir.Opcode) {
	switch op {
	case ir.NOP:
		// Do nothing.

	case ir.PUSH8, ir.PUSH16, ir.PUSH32, ir.PUSH64:
		c.ip += ir.OperandWidth(op)
		c.push(types.Word)

	case ir.PUSHINT8, ir.PUSHINT16, ir.PUSHINT32, ir.PUSHINT64:
		c.ip += ir.OperandWidth(op)
		c.push(types.Int)

	case ir.PUSHCHAR8:
		c.ip += ir.OperandWidth(op)
		c.push(types.Byte)

	case ir.LOADSTRING8, ir.LOADSTRING16, ir.LOADSTRING32:
		c.ip += ir.OperandWidth(op)
		c.push(types.Ptr)
		c.push(types.Word)

	case ir.POP:
		c.pop()

	case ir.DUPE:
		t := c.pop()
		c.push(t)
		c.push(t)

	case ir.SWAP:
		rhs := c.pop()
		lhs := c.pop()
		c.push(rhs)
		c.push(lhs)

	case ir.ADD:
		c.checkAdd()

	case ir.SUB:
		c.checkSub()

	case ir.MULT:
		c.checkArithmetic(op, "*")

	case ir.DIVMOD:
		c.checkDivmod()

	case ir.IDIVMOD, ir.EDIVMOD:
		c.checkDivmodLowered()

	case ir.AND:
		c.checkBoolean("and")

	case ir.OR:
		c.checkBoolean("or")

	case ir.NOT:
		c.peek()

	case ir.DEREF:
		if t := c.pop(); t != types.Ptr {
			c.errorf("expected pointer, got %s", types.Name(t))
		}
		c.push(types.Byte)

	case ir.SX8, ir.SX8L, ir.SX16, ir.SX16L, ir.SX32, ir.SX32L,
		ir.ZX8, ir.ZX8L, ir.ZX16, ir.ZX16L, ir.ZX32, ir.ZX32L:
		// No type checking; these are checker-inserted conversions.

	case ir.PRINT:
		c.checkPrint()

	case ir.PRINTCHAR:
		if t := c.pop(); t != types.Byte {
			c.errorf("expected byte for print-char, got %s", types.Name(t))
		}

	case ir.PRINTINT:
		c.checkPrintInt()

	case ir.JUMP:
		c.checkJumpInstruction()
		c.checkUnreachable()

	case ir.JUMPCOND, ir.JUMPNCOND:
		c.pop()
		c.checkJumpInstruction()

	case ir.FORINCSTART, ir.FORDECSTART:
		c.pop()
		c.checkJumpInstruction()

	case ir.FORINC, ir.FORDEC:
		c.checkJumpInstruction()

	case ir.GETLOOPVAR:
		c.ip += ir.OperandWidth(op)
		c.push(types.Int)

	case ir.EXIT:
		if t := c.pop(); !types.IsIntegral(t) {
			c.errorf("expected integral type for exit, got %s", types.Name(t))
		}
		c.checkUnreachable()
	}
}

// checkArithmetic handles the plain ADD/SUB/MULT arithmetic-dispatch path
// (no pointer special-case): pop two operands, look up the conversion,
// patch the three reserved conversion slots, push the result. Grounded on
// the OP_MULT case (the simplest of the three in type_checker.c).
func (c *Checker) checkArithmetic(op ir.Opcode, symbol string) {
	rhs := c.pop()
	lhs := c.pop()
	conv := arithmeticConversion(lhs, rhs)
	if conv.Result == types.Error {
		c.errorf("invalid types for `%s`: %s, %s", symbol, types.Name(lhs), types.Name(rhs))
		conv.Result = types.Word
	}
	c.overwrite(c.ip-2, conv.LHS)
	c.overwrite(c.ip-1, conv.RHS)
	c.overwrite(c.ip+1, conv.ResultConv)
	c.ip++ // Skip result conversion slot.
	c.push(conv.Result)
}

// checkAdd handles ADD, including the pointer-addition special case.
// Grounded on the OP_ADD case and check_pointer_addition.
func (c *Checker) checkAdd() {
	rhs := c.pop()
	lhs := c.pop()

	if result, ok := c.checkPointerAddition(lhs, rhs); ok {
		c.ip++ // Skip result conversion slot (untouched, stays NOP).
		c.push(result)
		return
	}

	conv := arithmeticConversion(lhs, rhs)
	if conv.Result == types.Error {
		c.errorf("invalid types for `+`: %s, %s", types.Name(lhs), types.Name(rhs))
		conv.Result = types.Word
	}
	c.overwrite(c.ip-2, conv.LHS)
	c.overwrite(c.ip-1, conv.RHS)
	c.overwrite(c.ip+1, conv.ResultConv)
	c.ip++
	c.push(conv.Result)
}

// checkPointerAddition reports (result, true) if exactly one of lhs/rhs is
// PTR, overwriting the non-pointer operand's conversion slot (always ip-1,
// matching the original, which writes there regardless of which side holds
// the pointer -- harmless since promote is always NOP). Two pointers is an
// error; reports (_, false) when neither operand is a pointer.
func (c *Checker) checkPointerAddition(lhs, rhs types.Index) (types.Index, bool) {
	switch {
	case lhs == types.Ptr && rhs == types.Ptr:
		c.errorf("cannot add two pointers")
		c.overwrite(c.ip-1, promote(rhs))
		return types.Ptr, true
	case lhs == types.Ptr:
		c.overwrite(c.ip-1, promote(rhs))
		return types.Ptr, true
	case rhs == types.Ptr:
		c.overwrite(c.ip-1, promote(lhs))
		return types.Ptr, true
	default:
		return types.Error, false
	}
}

// checkSub handles SUB: the arithmetic-dispatch path when both operands
// are integral, otherwise the pointer-subtraction special cases. Grounded
// on the OP_SUB case; unlike the original, the integral operand's
// conversion is written into its own conversion slot (ip-2 for lhs, ip-1
// for rhs) rather than overwriting the SUB opcode itself at ip -- the
// original's ip write is harmless only because promote() is always NOP in
// practice, but this avoids depending on that coincidence.
func (c *Checker) checkSub() {
	rhs := c.pop()
	lhs := c.pop()

	conv := arithmeticConversion(lhs, rhs)
	var result types.Index
	switch {
	case conv.Result != types.Error:
		c.overwrite(c.ip-2, conv.LHS)
		c.overwrite(c.ip-1, conv.RHS)
		c.overwrite(c.ip+1, conv.ResultConv)
		result = conv.Result
	case lhs == types.Ptr && rhs == types.Ptr:
		result = types.Int
	case lhs == types.Ptr && types.IsIntegral(rhs):
		c.overwrite(c.ip-1, promote(rhs))
		result = types.Ptr
	default:
		c.errorf("invalid types for `-`: %s, %s", types.Name(lhs), types.Name(rhs))
		result = types.Word
	}
	c.ip++
	c.push(result)
}

// checkDivmod handles the as-written DIVMOD, lowering it to IDIVMOD or
// EDIVMOD when the result type is signed. Grounded on the OP_DIVMOD case.
//
// Direction resolved from the C source and testable property 7 together
// (DIVMOD with INT, INT lowers to EDIVMOD): is_signed(lhs_type) selects
// EDIVMOD (the LHS arrived already signed), otherwise IDIVMOD (the LHS was
// unsigned and only became signed via the dispatch table's result type).
func (c *Checker) checkDivmod() {
	rhs := c.pop()
	lhs := c.pop()
	conv := arithmeticConversion(lhs, rhs)
	if conv.Result == types.Error {
		c.errorf("invalid types for `divmod`: %s, %s", types.Name(lhs), types.Name(rhs))
		conv.Result = types.Word
	}
	if types.IsSigned(conv.Result) {
		lowered := ir.IDIVMOD
		if types.IsSigned(lhs) {
			lowered = ir.EDIVMOD
		}
		c.overwrite(c.ip, lowered)
	}
	c.overwrite(c.ip-2, conv.LHS)
	c.overwrite(c.ip-1, conv.RHS)
	c.overwrite(c.ip+1, conv.ResultConv)
	c.ip++
	c.push(conv.Result) // Quotient.
	c.push(conv.Result) // Remainder.
}

// checkDivmodLowered handles IDIVMOD/EDIVMOD appearing directly in the
// stream (i.e. re-checking an already-lowered block). It re-applies the
// conversion slots without re-selecting signed/unsigned, which is what
// makes repeated checking idempotent. Grounded on the shared OP_IDIVMOD /
// OP_EDIVMOD case.
func (c *Checker) checkDivmodLowered() {
	rhs := c.pop()
	lhs := c.pop()
	conv := arithmeticConversion(lhs, rhs)
	if conv.Result == types.Error {
		c.errorf("invalid types for `idivmod`: %s, %s", types.Name(lhs), types.Name(rhs))
		conv.Result = types.Word
	}
	c.overwrite(c.ip-2, conv.LHS)
	c.overwrite(c.ip-1, conv.RHS)
	c.overwrite(c.ip+1, conv.ResultConv)
	c.ip++
	c.push(conv.Result)
	c.push(conv.Result)
}

// checkBoolean handles AND/OR: both operands must share a type; no
// coercion is performed. Grounded on the OP_AND/OP_OR cases.
func (c *Checker) checkBoolean(name string) {
	rhs := c.pop()
	lhs := c.pop()
	if lhs != rhs {
		c.errorf("mismatched types for `%s`: %s, %s", name, types.Name(lhs), types.Name(rhs))
		lhs = types.Word
	}
	c.push(lhs)
}

// checkPrint handles PRINT: a signed operand is rewritten into a
// promotion (always NOP, see promote) plus PRINT_INT. Grounded on the
// OP_PRINT case.
func (c *Checker) checkPrint() {
	t := c.pop()
	if types.IsSigned(t) {
		c.overwrite(c.ip-1, promote(t))
		c.overwrite(c.ip, ir.PRINTINT)
	}
}

// checkPrintInt handles PRINT_INT: any non-error integral operand is
// force sign-extended to its own width before printing. Grounded on the
// OP_PRINT_INT case.
func (c *Checker) checkPrintInt() {
	t := c.pop()
	if !types.IsIntegral(t) {
		c.errorf("invalid type for print-int: %s", types.Name(t))
		return
	}
	c.overwrite(c.ip-1, signExtendForPrint(t))
}

// checkJumpInstruction reads the 2-byte relative offset following the
// current jump opcode, registers the destination checkpoint, and advances
// past the operand. Grounded on check_jump_instruction/save_jump.
func (c *Checker) checkJumpInstruction() {
	offset := int(c.block.ReadS16(c.ip + 1))
	dest := c.ip + offset + 1
	if !c.cps.saveJump(c.ip, dest, c.stk.snapshot()) {
		c.errorf("inconsistent stack after jump instruction")
	}
	c.ip += 2
}

// checkUnreachable skips NOPs that aren't jump destinations, reports any
// non-NOP/non-destination bytes found before the next jump destination or
// block end as unreachable, and recovers typing state from the jump source
// of the next reachable destination. Grounded on check_unreachable.
func (c *Checker) checkUnreachable() {
	code := c.block.Code
	for c.ip+1 < len(code) && code[c.ip+1] == byte(ir.NOP) && !c.block.IsJumpDest(c.ip+1) {
		c.ip++
	}
	if c.ip+1 >= len(code) {
		return
	}
	if !c.block.IsJumpDest(c.ip + 1) {
		start := c.ip + 1
		end := start
		for end+1 < len(code) && !c.block.IsJumpDest(end+1) {
			end++
		}
		if end+1 < len(code) {
			c.diags.Reportf(diag.UnreachableCode, diag.AtOffset(start),
				"code from index %d to %d is unreachable", start, end)
		} else {
			c.diags.Reportf(diag.UnreachableCode, diag.AtOffset(start),
				"code from index %d to end is unreachable", start)
			return
		}
		c.ip = end
	}
	dest := c.ip + 1
	if c.cps.findJumpSrc(dest) == -1 {
		c.errorf("could not find source of jump")
		return
	}
	// Resume typing from the state saved at dest itself. (The original's
	// load_state(checker, src) passes the jump's source offset here,
	// which only happens to work when src is coincidentally also a
	// saved destination; this loads by dest directly, matching "resume
	// typing from the saved state of the next reachable jump
	// destination".)
	c.cps.loadState(dest, &c.stk)
}
