package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestCollectorCaps(t *testing.T) {
	c := NewCollector(2)
	for i := 0; i < 5; i++ {
		c.Reportf(TypeError, AtOffset(i), "bad thing %d", i)
	}
	if len(c.Diagnostics()) != 2 {
		t.Fatalf("Diagnostics() has %d entries, want 2", len(c.Diagnostics()))
	}
	if !c.HadError() {
		t.Fatalf("HadError() = false, want true")
	}
	if !c.ShouldStop() {
		t.Fatalf("ShouldStop() = false, want true")
	}
}

func TestCollectorFatalBypassesCap(t *testing.T) {
	c := NewCollector(1)
	c.Reportf(TypeError, AtOffset(0), "first")
	c.Reportf(AllocationFailure, AtOffset(1), "out of memory")
	if len(c.Diagnostics()) != 2 {
		t.Fatalf("fatal diagnostic should bypass the cap, got %d entries", len(c.Diagnostics()))
	}
	if !c.HadFatalError() {
		t.Fatalf("HadFatalError() = false, want true")
	}
}

func TestCollectorRender(t *testing.T) {
	c := NewCollector(10)
	c.Reportf(StackMergeError, AtOffset(12), "stack depth mismatch")
	out := c.Render()
	if !strings.Contains(out, "stack merge error") || !strings.Contains(out, "offset 12") {
		t.Fatalf("Render() = %q", out)
	}
}

func TestCollectorClear(t *testing.T) {
	c := NewCollector(10)
	c.Reportf(TypeError, AtOffset(0), "x")
	c.Clear()
	if c.HadError() || len(c.Diagnostics()) != 0 {
		t.Fatalf("Clear() did not reset the collector")
	}
}

func TestLoggerGating(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Debugf("hidden")
	if buf.Len() != 0 {
		t.Fatalf("Debugf without Verbose should print nothing, got %q", buf.String())
	}
	l.Verbose = true
	l.Debugf("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("Debugf with Verbose should print, got %q", buf.String())
	}
	buf.Reset()
	l.Quiet = true
	l.Infof("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("Infof with Quiet should print nothing, got %q", buf.String())
	}
}
