//go:build windows

package asmgen

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// VerifyImports is a best-effort sanity check on the .idata import list
// generateImports just produced: it asks the host loader to resolve each
// named DLL, the same resolution the emitted executable will perform at
// process start. Only meaningful when running natively on the target OS
// the emitted PE64 binary is for, alongside the assembly output itself --
// there is no original counterpart, since generator.c never validates its
// own import table.
func VerifyImports(libraryNames []string) error {
	for _, name := range libraryNames {
		h, err := windows.LoadLibrary(name)
		if err != nil {
			return fmt.Errorf("asmgen: import library %q not found: %w", name, err)
		}
		windows.FreeLibrary(h)
	}
	return nil
}
