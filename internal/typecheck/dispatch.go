package typecheck

import (
	"github.com/ninesquared81/bude/internal/ir"
	"github.com/ninesquared81/bude/internal/types"
)

// conversion is one entry of the arithmetic dispatch table: the result type
// of combining two integral operands, plus the three conversion opcodes the
// checker writes into the instruction's reserved NOP slots (two before the
// arithmetic opcode, one after). Grounded on struct arithm_conv.
type conversion struct {
	Result     types.Index
	LHS        ir.Opcode
	RHS        ir.Opcode
	ResultConv ir.Opcode
}

// maskOpFor returns the opcode that re-narrows an 8-byte arithmetic result
// down to t's width, selecting sign- or zero-extension by t's own
// signedness. Types already occupying the full 8-byte stack slot (WORD,
// INT) need no mask, mirroring WORD,WORD and INT,INT's OP_NOP result_conv;
// the original's only narrow case, BYTE,BYTE -> OP_ZX8, generalizes directly
// to every narrower type this package adds (U8/U16/U32/S8/S16/S32).
func maskOpFor(t types.Index) ir.Opcode {
	switch types.Width(t) {
	case 1:
		if types.IsSigned(t) {
			return ir.SX8
		}
		return ir.ZX8
	case 2:
		if types.IsSigned(t) {
			return ir.SX16
		}
		return ir.ZX16
	case 4:
		if types.IsSigned(t) {
			return ir.SX32
		}
		return ir.ZX32
	default:
		return ir.NOP
	}
}

// arithmeticConversion is the generalised arithmetic_conversions table,
// widened from the original's 3x3 (WORD, BYTE, INT) grid to the full
// 9-member integral type set. Every concrete entry in the original table
// has lhs_conv = rhs_conv = OP_NOP, so this never produces anything else for
// those two slots; the original's only non-NOP result_conv (BYTE,BYTE ->
// OP_ZX8) generalizes to maskOpFor, applied whenever the result type is
// narrower than the native 8-byte stack slot.
//
// Result-type selection: the wider operand wins; a tie is broken in favour
// of the unsigned member, matching the original's WORD beating INT at equal
// (8-byte) width. A same-signedness, same-width tie among the newly added
// U8/U16/U32/S8/S16/S32 family (e.g. BYTE vs U8, both unsigned, width 1) has
// no precedent in the original 3-type table; this picks lhs, arbitrarily
// but deterministically.
func arithmeticConversion(lhs, rhs types.Index) conversion {
	if !types.IsIntegral(lhs) || !types.IsIntegral(rhs) {
		return conversion{Result: types.Error, LHS: ir.NOP, RHS: ir.NOP, ResultConv: ir.NOP}
	}

	wl, wr := types.Width(lhs), types.Width(rhs)
	var result types.Index
	switch {
	case wl > wr:
		result = lhs
	case wr > wl:
		result = rhs
	case types.IsUnsigned(lhs):
		result = lhs
	case types.IsUnsigned(rhs):
		result = rhs
	default:
		result = lhs
	}

	return conversion{
		Result:     result,
		LHS:        ir.NOP,
		RHS:        ir.NOP,
		ResultConv: maskOpFor(result),
	}
}

// promote is the conversion applied when an integral operand of a pointer
// addition/subtraction is widened to behave as a signed INT. In the
// original it is arithmetic_conversions[TYPE_INT][type].rhs_conv, which is
// OP_NOP for every one of the three concrete types it's ever called with
// (WORD, BYTE, INT) -- because every integral value already sits in its
// full 8-byte stack slot correctly zero- or sign-extended the moment it's
// pushed or re-masked by maskOpFor, reinterpreting it as INT needs no bit
// manipulation at all. That invariant holds uniformly across the widened
// 9-type system too, so promote stays a vacuous, always-NOP conversion
// here rather than gaining a new width-based extension step.
func promote(t types.Index) ir.Opcode {
	return ir.NOP
}

// signExtendForPrint returns the forced sign-extension opcode PRINT_INT
// lowering inserts for a non-INT integral operand, so that a value whose
// width is narrower than 8 bytes prints using its own width's two's
// complement interpretation rather than its possibly zero-extended stack
// representation. Grounded on sign_extend, which only had a BYTE -> OP_SX8
// case in the original's narrower type set; this generalizes it by width to
// the newly added U16/U32/S16/S32 types (S8 behaves identically to BYTE).
func signExtendForPrint(t types.Index) ir.Opcode {
	switch types.Width(t) {
	case 1:
		return ir.SX8
	case 2:
		return ir.SX16
	case 4:
		return ir.SX32
	default:
		return ir.NOP
	}
}
