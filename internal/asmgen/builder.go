package asmgen

import (
	"fmt"
	"strings"
)

// Builder accumulates FASM-dialect assembly source text, mirroring
// original_source/src/asm.c's asm_write/asm_section_/asm_label and asm.h's
// asm_write_instN macro family. The original buffers into a fixed
// ASM_CODE_SIZE byte array and bails out via exit(1) on overflow; a Go
// strings.Builder grows on demand, so that failure mode doesn't apply here.
type Builder struct {
	sb strings.Builder
}

// Write appends formatted text verbatim, mirroring asm_write/asm_vwrite.
func (b *Builder) Write(format string, args ...any) {
	if len(args) == 0 {
		b.sb.WriteString(format)
		return
	}
	fmt.Fprintf(&b.sb, format, args...)
}

// Section emits a `section 'name' perm perm ...` line, mirroring
// asm_section_ (the variadic NULL-terminated permission list becomes a
// plain Go slice).
func (b *Builder) Section(name string, perms ...string) {
	b.Write("section '%s'", name)
	for _, perm := range perms {
		b.Write(" %s", perm)
	}
	b.Write("\n")
}

// Label emits an indented `name:` line, mirroring asm_label.
func (b *Builder) Label(format string, args ...any) {
	b.sb.WriteString("  ")
	b.Write(format, args...)
	b.sb.WriteString(":\n")
}

// Inst0 emits a bare mnemonic, mirroring asm_write_inst0.
func (b *Builder) Inst0(inst string) {
	b.Write("\t%s\n", inst)
}

// Inst0c is Inst0 with a trailing comment, mirroring asm_write_inst0c.
func (b *Builder) Inst0c(inst, comment string) {
	b.Write("\t%s\t\t; %s\n", inst, comment)
}

// Inst1 emits a one-operand instruction, mirroring asm_write_inst1.
func (b *Builder) Inst1(inst, arg1 string) {
	b.Write("\t%s\t%s\n", inst, arg1)
}

// Inst1c is Inst1 with a trailing comment, mirroring asm_write_inst1c.
func (b *Builder) Inst1c(inst, arg1, comment string) {
	b.Write("\t%s\t%s\t\t; %s\n", inst, arg1, comment)
}

// Inst1f formats arg1 before emitting, mirroring asm_write_inst1f.
func (b *Builder) Inst1f(inst, argFormat string, args ...any) {
	b.Inst1(inst, fmt.Sprintf(argFormat, args...))
}

// Inst2 emits a two-operand instruction, mirroring asm_write_inst2.
func (b *Builder) Inst2(inst, arg1, arg2 string) {
	b.Write("\t%s\t%s, %s\n", inst, arg1, arg2)
}

// Inst2c is Inst2 with a trailing comment, mirroring asm_write_inst2c.
func (b *Builder) Inst2c(inst, arg1, arg2, comment string) {
	b.Write("\t%s\t%s, %s\t; %s\n", inst, arg1, arg2, comment)
}

// Inst2f formats arg2 before emitting, mirroring asm_write_inst2f.
func (b *Builder) Inst2f(inst, arg1, arg2Format string, args ...any) {
	b.Inst2(inst, arg1, fmt.Sprintf(arg2Format, args...))
}

// Inst2cf is Inst2f with a trailing comment, mirroring asm_write_inst2cf.
func (b *Builder) Inst2cf(inst, arg1, arg2Format, comment string, args ...any) {
	b.Inst2c(inst, arg1, fmt.Sprintf(arg2Format, args...), comment)
}

// Inst3 emits a three-operand instruction, mirroring asm_write_inst3.
func (b *Builder) Inst3(inst, arg1, arg2, arg3 string) {
	b.Write("\t%s\t%s, %s, %s\n", inst, arg1, arg2, arg3)
}

// Inst3c is Inst3 with a trailing comment, mirroring asm_write_inst3c.
func (b *Builder) Inst3c(inst, arg1, arg2, arg3, comment string) {
	b.Write("\t%s\t%s, %s, %s\t; %s\n", inst, arg1, arg2, arg3, comment)
}

// String returns the accumulated assembly source.
func (b *Builder) String() string {
	return b.sb.String()
}
