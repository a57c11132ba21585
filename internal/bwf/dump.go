package bwf

import (
	"fmt"
	"io"
	"strings"

	"github.com/ninesquared81/bude/internal/module"
)

// bytecodeColumnCount is the number of hex bytes per dumped line,
// matching display_bytecode's BYTECODE_COLUMN_COUNT.
const bytecodeColumnCount = 16

// Dump writes a human-readable listing of m's strings and function code
// to w: every interned string escaped and labelled str_N, followed by
// every function's code as a 16-column hex dump labelled func_N.
// Grounded on writer.c's display_bytecode.
func Dump(w io.Writer, m *module.Module) error {
	for i, s := range m.Strings.All() {
		if _, err := fmt.Fprintf(w, "str_%d:\n\t%q\n", i, s); err != nil {
			return err
		}
	}
	for i := range m.Functions.Functions {
		fn := &m.Functions.Functions[i]
		code := functionCode(fn)
		if _, err := fmt.Fprintf(w, "func_%d:\n\t", i); err != nil {
			return err
		}
		if err := dumpCode(w, code); err != nil {
			return err
		}
	}
	return nil
}

func dumpCode(w io.Writer, code []byte) error {
	lineCount := len(code) / bytecodeColumnCount
	leftover := len(code) % bytecodeColumnCount

	for line := 0; line < lineCount; line++ {
		var sb strings.Builder
		for col := 0; col < bytecodeColumnCount; col++ {
			fmt.Fprintf(&sb, "%.2x ", code[line*bytecodeColumnCount+col])
		}
		sb.WriteString("\n\t")
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	if leftover > 0 {
		var sb strings.Builder
		for col := 0; col < leftover; col++ {
			fmt.Fprintf(&sb, "%.2x ", code[lineCount*bytecodeColumnCount+col])
		}
		sb.WriteString("\n")
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
