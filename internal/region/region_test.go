package region

import "testing"

func TestAllocZeroed(t *testing.T) {
	r := New(64)
	buf, err := r.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, b)
		}
	}
	buf[0] = 0xff
	buf2, err := r.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if &buf[0] == &buf2[0] {
		t.Fatalf("second allocation aliases the first")
	}
}

func TestAllocChains(t *testing.T) {
	r := New(16)
	if _, err := r.Alloc(12); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	// Doesn't fit in the remaining 4 bytes of the first segment (aligned
	// or not), so a new segment must be chained.
	if _, err := r.Alloc(8); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if r.next == nil {
		t.Fatalf("expected a chained segment")
	}
}

func TestAllocTooLarge(t *testing.T) {
	r := New(16)
	if _, err := r.Alloc(17); err == nil {
		t.Fatalf("expected an error for an allocation larger than the segment size")
	}
}

func TestCalloc(t *testing.T) {
	r := New(64)
	buf, err := r.Calloc(4, 8)
	if err != nil {
		t.Fatalf("Calloc: %v", err)
	}
	if len(buf) != 32 {
		t.Fatalf("got %d bytes, want 32", len(buf))
	}
}

func TestCallocOverflow(t *testing.T) {
	r := New(64)
	if _, err := r.Calloc(1<<62, 1<<62); err == nil {
		t.Fatalf("expected an overflow error")
	}
}

func TestSnapshotRestore(t *testing.T) {
	r := New(64)
	snap := r.Snapshot()
	buf, err := r.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	for i := range buf {
		buf[i] = 0xaa
	}
	if err := r.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.used != 0 {
		t.Fatalf("used = %d, want 0", r.used)
	}
	for i, b := range r.bytes[:16] {
		if b != 0 {
			t.Fatalf("byte %d not zeroed after restore: %d", i, b)
		}
	}
}

func TestRestoreWrongRegion(t *testing.T) {
	r1 := New(16)
	r2 := New(16)
	snap := r1.Snapshot()
	if err := r2.Restore(snap); err == nil {
		t.Fatalf("expected an error restoring a snapshot onto a different region")
	}
}

func TestClone(t *testing.T) {
	r := New(8)
	if _, err := r.Alloc(8); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, err := r.Alloc(8); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if r.next == nil {
		t.Fatalf("expected a chained segment before cloning")
	}
	clone := r.Clone()
	if clone == r {
		t.Fatalf("Clone returned the same region")
	}
	if clone.next == nil || clone.next == r.next {
		t.Fatalf("Clone did not deep-copy the chain")
	}
	if clone.used != r.used || clone.next.used != r.next.used {
		t.Fatalf("Clone did not preserve usage counters")
	}
}

func TestClear(t *testing.T) {
	r := New(16)
	buf, err := r.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	buf[0] = 1
	r.Clear()
	if r.used != 0 {
		t.Fatalf("used = %d, want 0", r.used)
	}
	if r.bytes[0] != 0 {
		t.Fatalf("Clear did not zero the backing array")
	}
}
