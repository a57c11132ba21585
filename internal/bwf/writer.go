package bwf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ninesquared81/bude/internal/module"
	"github.com/ninesquared81/bude/internal/types"
)

// Write serializes m to w at CurrentVersion, mirroring reader.c's field
// order field-for-field (write_bytecode itself is a no-op stub in the
// original; grounded instead on the reader it must be symmetric with,
// plus the teacher's binary.Write idiom).
func Write(w io.Writer, m *module.Module) error {
	if _, err := fmt.Fprintf(w, "%sv%d\n", Magic, CurrentVersion); err != nil {
		return fmt.Errorf("bwf: write header: %w", err)
	}

	if err := writeDataInfo(w, m); err != nil {
		return err
	}
	if err := writeStrings(w, m); err != nil {
		return err
	}
	if err := writeFunctions(w, m); err != nil {
		return err
	}
	if err := writeTypes(w, m); err != nil {
		return err
	}
	if err := writeExternals(w, m); err != nil {
		return err
	}
	if err := writeExtLibraries(w, m); err != nil {
		return err
	}
	return nil
}

func writeInt32(w io.Writer, v int) error {
	return binary.Write(w, binary.LittleEndian, int32(v))
}

func writeDataInfo(w io.Writer, m *module.Module) error {
	fields := []int{
		m.Strings.Count(),
		len(m.Functions.Functions),
		m.Types.Count() - builtinTypeCount,
		len(m.Externals.Externals),
		len(m.ExtLibraries.Libraries),
	}
	if err := writeInt32(w, fieldCount(CurrentVersion)); err != nil {
		return fmt.Errorf("bwf: write data-info-field-count: %w", err)
	}
	for _, f := range fields {
		if err := writeInt32(w, f); err != nil {
			return fmt.Errorf("bwf: write data-info field: %w", err)
		}
	}
	return nil
}

func writeStrings(w io.Writer, m *module.Module) error {
	for _, s := range m.Strings.All() {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
			return fmt.Errorf("bwf: write string size: %w", err)
		}
		if _, err := io.WriteString(w, s); err != nil {
			return fmt.Errorf("bwf: write string bytes: %w", err)
		}
	}
	return nil
}

func functionCode(fn *module.Function) []byte {
	if fn.LoweredCode != nil {
		return fn.LoweredCode.Code
	}
	if fn.CheckedCode != nil {
		return fn.CheckedCode.Code
	}
	return nil
}

func functionBlock(fn *module.Function) (maxForLoopLevel, localsSize int, locals []types.Index) {
	block := fn.LoweredCode
	if block == nil {
		block = fn.CheckedCode
	}
	if block == nil {
		return 0, 0, nil
	}
	return block.MaxForLoopLevel, block.LocalsSize, block.Locals
}

func writeFunctions(w io.Writer, m *module.Module) error {
	for i := range m.Functions.Functions {
		fn := &m.Functions.Functions[i]
		code := functionCode(fn)
		maxForLoopLevel, localsSize, locals := functionBlock(fn)

		if err := writeInt32(w, functionEntrySize(len(code), len(locals))); err != nil {
			return fmt.Errorf("bwf: write function entry-size: %w", err)
		}
		if err := writeInt32(w, len(code)); err != nil {
			return fmt.Errorf("bwf: write function code-size: %w", err)
		}
		if _, err := w.Write(code); err != nil {
			return fmt.Errorf("bwf: write function code: %w", err)
		}
		if err := writeInt32(w, maxForLoopLevel); err != nil {
			return fmt.Errorf("bwf: write max-for-loop-level: %w", err)
		}
		if err := writeInt32(w, localsSize); err != nil {
			return fmt.Errorf("bwf: write locals-size: %w", err)
		}
		if err := writeInt32(w, len(locals)); err != nil {
			return fmt.Errorf("bwf: write local-count: %w", err)
		}
		for _, t := range locals {
			if err := writeInt32(w, int(t)); err != nil {
				return fmt.Errorf("bwf: write local type-index: %w", err)
			}
		}
	}
	return nil
}

func writeTypes(w io.Writer, m *module.Module) error {
	for _, info := range m.Types.All()[builtinTypeCount:] {
		var fields []types.Index
		var wordCount int
		switch info.Kind {
		case types.KindPack:
			fields = info.Pack.Fields[:info.Pack.FieldCount]
			wordCount = info.Pack.FieldCount
		case types.KindComp:
			fields = info.Comp.Fields
			wordCount = info.Comp.WordCount
		}

		if err := writeInt32(w, typeEntrySize(len(fields))); err != nil {
			return fmt.Errorf("bwf: write type entry-size: %w", err)
		}
		if err := writeInt32(w, int(info.Kind)); err != nil {
			return fmt.Errorf("bwf: write type kind: %w", err)
		}
		if err := writeInt32(w, len(fields)); err != nil {
			return fmt.Errorf("bwf: write type field-count: %w", err)
		}
		if err := writeInt32(w, wordCount); err != nil {
			return fmt.Errorf("bwf: write type word-count: %w", err)
		}
		for _, f := range fields {
			if err := writeInt32(w, int(f)); err != nil {
				return fmt.Errorf("bwf: write type field: %w", err)
			}
		}
	}
	return nil
}

func writeExternals(w io.Writer, m *module.Module) error {
	for _, ext := range m.Externals.Externals {
		nameIndex := m.Strings.FindString(ext.Name)
		if nameIndex < 0 {
			return fmt.Errorf("bwf: external function %q not interned in string table", ext.Name)
		}
		if err := writeInt32(w, extFunctionEntrySize(len(ext.Sig.Params), len(ext.Sig.Rets))); err != nil {
			return fmt.Errorf("bwf: write external-function entry-size: %w", err)
		}
		if err := writeInt32(w, len(ext.Sig.Params)); err != nil {
			return fmt.Errorf("bwf: write param-count: %w", err)
		}
		if err := writeInt32(w, len(ext.Sig.Rets)); err != nil {
			return fmt.Errorf("bwf: write ret-count: %w", err)
		}
		for _, p := range ext.Sig.Params {
			if err := writeInt32(w, int(p)); err != nil {
				return fmt.Errorf("bwf: write param type: %w", err)
			}
		}
		for _, r := range ext.Sig.Rets {
			if err := writeInt32(w, int(r)); err != nil {
				return fmt.Errorf("bwf: write ret type: %w", err)
			}
		}
		if err := writeInt32(w, nameIndex); err != nil {
			return fmt.Errorf("bwf: write name-index: %w", err)
		}
		if err := writeInt32(w, int(ext.CallConv)); err != nil {
			return fmt.Errorf("bwf: write calling-convention: %w", err)
		}
	}
	return nil
}

func writeExtLibraries(w io.Writer, m *module.Module) error {
	for _, lib := range m.ExtLibraries.Libraries {
		filenameIndex := m.Strings.FindString(lib.Filename)
		if filenameIndex < 0 {
			return fmt.Errorf("bwf: external library %q not interned in string table", lib.Filename)
		}
		if err := writeInt32(w, extLibraryEntrySize(len(lib.Indices))); err != nil {
			return fmt.Errorf("bwf: write external-library entry-size: %w", err)
		}
		if err := writeInt32(w, len(lib.Indices)); err != nil {
			return fmt.Errorf("bwf: write external-count: %w", err)
		}
		for _, idx := range lib.Indices {
			if err := writeInt32(w, idx); err != nil {
				return fmt.Errorf("bwf: write external-index: %w", err)
			}
		}
		if err := writeInt32(w, filenameIndex); err != nil {
			return fmt.Errorf("bwf: write filename-index: %w", err)
		}
	}
	return nil
}
