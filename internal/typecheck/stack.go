// Package typecheck implements the type-checking and lowering pass that
// walks one ir.Block, assigns a type.Index to every value the stack holds,
// and rewrites arithmetic/print/pointer instructions in place to the
// concrete opcode variant their operand types demand.
//
// Grounded on original_source/src/type_checker.c in its entirety: the
// arithmetic_conversions dispatch table, ts_push/ts_pop/ts_peek, the
// checkpoint machinery (find_state/save_state_at/load_state/check_state_at/
// find_jump_src/save_jump), check_unreachable, and the per-opcode switch in
// type_check().
package typecheck

import "github.com/ninesquared81/bude/internal/types"

// stackSize bounds the type stack, mirroring TYPE_STACK_SIZE; generous
// enough for any realistic block, matching the original's fixed-size array
// approach rather than an unbounded Go slice that would mask a runaway
// block as silently using unbounded memory.
const stackSize = 1 << 16

// stack is the type checker's operand-type stack. Push/Pop/Peek report
// failure instead of panicking on overflow/underflow, mirroring
// ts_push/ts_pop/ts_peek's had_error-setting, TYPE_ERROR-returning
// behaviour.
type stack struct {
	items []types.Index
}

func (s *stack) push(t types.Index) bool {
	if len(s.items) >= stackSize {
		return false
	}
	s.items = append(s.items, t)
	return true
}

func (s *stack) pop() (types.Index, bool) {
	if len(s.items) == 0 {
		return types.Error, false
	}
	t := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return t, true
}

func (s *stack) peek() (types.Index, bool) {
	if len(s.items) == 0 {
		return types.Error, false
	}
	return s.items[len(s.items)-1], true
}

// snapshot returns a copy of the stack's current contents, for the
// checkpoint map to save and later compare against.
func (s *stack) snapshot() []types.Index {
	return append([]types.Index(nil), s.items...)
}

// restore replaces the stack's contents with snap.
func (s *stack) restore(snap []types.Index) {
	s.items = append([]types.Index(nil), snap...)
}

func equalStacks(a, b []types.Index) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
