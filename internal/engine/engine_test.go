package engine

import "testing"

func TestParsePlatformRoundTrip(t *testing.T) {
	p, err := ParsePlatform("x86_64/windows")
	if err != nil {
		t.Fatalf("ParsePlatform: %v", err)
	}
	if p != SupportedPlatform {
		t.Fatalf("ParsePlatform(%q) = %v, want %v", "x86_64/windows", p, SupportedPlatform)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() on the supported platform: %v", err)
	}
}

func TestValidateRejectsUnsupportedPlatform(t *testing.T) {
	p := Platform{Arch: ArchARM64, OS: OSLinux}
	if err := p.Validate(); err == nil {
		t.Fatalf("Validate() should reject %v", p)
	}
}

func TestSuggestCommand(t *testing.T) {
	candidates := []string{"check", "dump", "emit"}
	if got := SuggestCommand("chek", candidates); got != "check" {
		t.Fatalf("SuggestCommand(%q) = %q, want %q", "chek", got, "check")
	}
	if got := SuggestCommand("xyzzyxyzzy", candidates); got != "" {
		t.Fatalf("SuggestCommand(%q) = %q, want \"\"", "xyzzyxyzzy", got)
	}
}
