package typecheck

import (
	"sort"

	"github.com/ninesquared81/bude/internal/types"
)

// checkpoints is the type checker's per-jump-destination state table:
// three parallel arrays indexed by binary-search position, holding each
// destination's offset, its saved stack snapshot (nil until first
// reached), and the source offset of the jump that first saved it.
// Grounded on struct type_checker_states and find_state/save_state_at/
// load_state/check_state_at/find_jump_src/save_jump.
type checkpoints struct {
	offsets  []int
	snapshot [][]types.Index
	jumpSrc  []int
}

// newCheckpoints pre-populates the table from the block's sorted jump
// destinations, mirroring init_type_checker_states.
func newCheckpoints(dests []int) *checkpoints {
	c := &checkpoints{
		offsets:  append([]int(nil), dests...),
		snapshot: make([][]types.Index, len(dests)),
		jumpSrc:  make([]int, len(dests)),
	}
	return c
}

// find returns the index of offset in the table, mirroring find_state's
// binary search (which returns an insertion position for an offset not
// present; callers here only ever look up known jump destinations, so a
// miss reports ok=false instead).
func (c *checkpoints) find(offset int) (int, bool) {
	i := sort.SearchInts(c.offsets, offset)
	if i < len(c.offsets) && c.offsets[i] == offset {
		return i, true
	}
	return i, false
}

// saveStateAt records stk as the snapshot at offset, if none is recorded
// yet. Reports whether it actually saved (false if a state was already
// present). Grounded on save_state_at.
func (c *checkpoints) saveStateAt(offset int, stk []types.Index) bool {
	i, ok := c.find(offset)
	if !ok {
		return false
	}
	if c.snapshot[i] != nil {
		return false
	}
	c.snapshot[i] = append([]types.Index{}, stk...)
	return true
}

// loadState copies the snapshot saved at offset into dst's backing stack,
// reporting false if no snapshot was saved there. Grounded on load_state.
func (c *checkpoints) loadState(offset int, dst *stack) bool {
	i, ok := c.find(offset)
	if !ok || c.snapshot[i] == nil {
		return false
	}
	dst.restore(c.snapshot[i])
	return true
}

// checkStateAt reports whether stk matches the snapshot saved at offset.
// Grounded on check_state_at.
func (c *checkpoints) checkStateAt(offset int, stk []types.Index) bool {
	i, ok := c.find(offset)
	if !ok || c.snapshot[i] == nil {
		return false
	}
	return equalStacks(c.snapshot[i], stk)
}

// findJumpSrc returns the source offset of the jump that first saved the
// state at offset, or -1 if none was saved. Grounded on find_jump_src.
func (c *checkpoints) findJumpSrc(offset int) int {
	i, ok := c.find(offset)
	if !ok || c.snapshot[i] == nil {
		return -1
	}
	return c.jumpSrc[i]
}

// saveJump records src as the source of the jump targeting dest and saves
// stk as dest's state if none was saved yet; otherwise verifies stk
// matches the existing snapshot. Grounded on save_jump.
func (c *checkpoints) saveJump(src, dest int, stk []types.Index) bool {
	i, ok := c.find(dest)
	if !ok {
		return false
	}
	c.jumpSrc[i] = src
	if !c.saveStateAt(dest, stk) {
		return c.checkStateAt(dest, stk)
	}
	return true
}
