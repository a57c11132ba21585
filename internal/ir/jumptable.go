package ir

import "sort"

// JumpTable is a sorted, unique set of code offsets that are jump
// destinations. Insertion keeps the slice sorted with a shift, which is
// acceptable because jumps are registered in source order during parsing
// (DESIGN NOTES, jump-destination table).
type JumpTable struct {
	dests []int
}

// Add registers offset as a jump destination, if it isn't already one.
func (jt *JumpTable) Add(offset int) {
	i := sort.SearchInts(jt.dests, offset)
	if i < len(jt.dests) && jt.dests[i] == offset {
		return
	}
	jt.dests = append(jt.dests, 0)
	copy(jt.dests[i+1:], jt.dests[i:])
	jt.dests[i] = offset
}

// IsDest reports whether offset is a registered jump destination, in
// O(log n).
func (jt *JumpTable) IsDest(offset int) bool {
	i := sort.SearchInts(jt.dests, offset)
	return i < len(jt.dests) && jt.dests[i] == offset
}

// Dests returns the destinations in ascending order. The caller must not
// mutate the returned slice.
func (jt *JumpTable) Dests() []int {
	return jt.dests
}

// Count returns the number of distinct jump destinations.
func (jt *JumpTable) Count() int {
	return len(jt.dests)
}

// Reset discards all registered destinations, used when recomputing the
// table from a decoded instruction stream (BudeBWF readers don't persist
// it).
func (jt *JumpTable) Reset() {
	jt.dests = jt.dests[:0]
}
