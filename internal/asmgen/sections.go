package asmgen

import (
	"fmt"
	"strings"

	"github.com/ninesquared81/bude/internal/module"
)

// generateConstants emits the .rdata section: the three fixed printf
// format strings, then one db row per interned module string, labelled
// strN, mirroring generate_constants.
func generateConstants(b *Builder, m *module.Module) {
	b.Section(".rdata", "data", "readable")
	b.Write("\n")
	b.Label("fmt_s64")
	b.Inst3c("db", "'%I64d'", "10", "0", "NOTE: I64 is a Non-ISO Microsoft extension.")
	b.Write("\n")
	b.Label("fmt_u64")
	b.Inst3("db", "'%I64u'", "10", "0")
	b.Write("\n")
	b.Label("fmt_char")
	b.Inst2("db", "'%c'", "0")
	b.Write("\n")
	for i, s := range m.Strings.All() {
		b.Label("str%d", i)
		b.Write("\tdb\t%s\n\n", fasmDBArgs(s))
	}
}

// fasmDBArgs renders s as a comma-separated FASM `db` argument list: runs
// of printable ASCII become single-quoted string literals (embedded quotes
// doubled, FASM's own escape), and any other byte becomes a standalone
// numeric literal. asm_write_string, which generator.c calls for this same
// purpose, has no body anywhere in original_source (asm.h only declares
// it) -- this encoding is designed fresh against FASM's own db syntax, not
// recovered from missing original code.
func fasmDBArgs(s string) string {
	var parts []string
	var run strings.Builder

	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, "'"+run.String()+"'")
			run.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			run.WriteString("''")
		case c >= 0x20 && c < 0x7f:
			run.WriteByte(c)
		default:
			flush()
			parts = append(parts, fmt.Sprintf("%d", c))
		}
	}
	flush()

	if len(parts) == 0 {
		return "''"
	}
	return strings.Join(parts, ",")
}

// generateImports emits the .idata section: the two libraries and two
// imports (printf, ExitProcess) every program links against regardless of
// its own externals (PRINT*/EXIT translate directly to calls against them),
// followed by one library/import block per module-declared external
// library and function. generator.c only emits the first part: the
// external-function/library tables are a version-5 BudeBWF addition with
// no generator-side consumer in the kept original, so this second part is
// this port's own extension wiring those tables through to assembly.
func generateImports(b *Builder, m *module.Module) {
	b.Section(".idata", "import", "data", "readable")
	b.Write("\n")

	aliasFor := map[string]string{
		"kernel32.dll": "kernel",
		"msvcrt.dll":   "msvcrt",
	}
	libLines := []string{"kernel, 'kernel32.dll'", "msvcrt, 'msvcrt.dll'"}
	nextAlias := 0
	for _, lib := range m.ExtLibraries.Libraries {
		if _, ok := aliasFor[lib.Filename]; ok {
			continue
		}
		alias := fmt.Sprintf("extlib%d", nextAlias)
		nextAlias++
		aliasFor[lib.Filename] = alias
		libLines = append(libLines, fmt.Sprintf("%s, '%s'", alias, lib.Filename))
	}
	b.Write("  library\\\n")
	for i, line := range libLines {
		if i == len(libLines)-1 {
			b.Write("\t%s\n", line)
		} else {
			b.Write("\t%s,\\\n", line)
		}
	}
	b.Write("\n")

	b.Write("  import msvcrt,\\\n")
	b.Write("\tprintf, 'printf'\n")
	b.Write("\n")
	b.Write("  import kernel,\\\n")
	b.Write("\tExitProcess, 'ExitProcess'\n")
	b.Write("\n")

	for _, lib := range m.ExtLibraries.Libraries {
		if len(lib.Indices) == 0 {
			continue
		}
		b.Write("  import %s,\\\n", aliasFor[lib.Filename])
		for i, extIndex := range lib.Indices {
			ext := m.Externals.Externals[extIndex]
			if i == len(lib.Indices)-1 {
				b.Write("\t%s, '%s'\n", ext.Name, ext.Name)
			} else {
				b.Write("\t%s, '%s',\\\n", ext.Name, ext.Name)
			}
		}
		b.Write("\n")
	}
}

// generateBSS emits the .bss section: the 1 MiB loop/auxiliary stack
// reservation, mirroring generate_bss.
func generateBSS(b *Builder) {
	b.Section(".bss", "data", "readable", "writeable")
	b.Label("aux")
	b.Inst1("rq", "128*1024")
}
