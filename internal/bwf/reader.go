package bwf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ninesquared81/bude/internal/diag"
	"github.com/ninesquared81/bude/internal/ir"
	"github.com/ninesquared81/bude/internal/module"
	"github.com/ninesquared81/bude/internal/types"
)

// dataInfo holds the data-info section's fields, zero-defaulted for
// fields a file's version predates. Grounded on struct data_info.
type dataInfo struct {
	StringCount      int
	FunctionCount    int
	UDTypeCount      int
	ExtFunctionCount int
	ExtLibraryCount  int
}

// Read parses a BudeBWF container from r into a fresh Module named
// filename. r must support Seek: the format's entry-size/field-count
// skip-ahead fields require it, mirroring reader.c's fseek-based
// skip-the-rest-of-the-record idiom. logger receives the same
// "extra fields not read" style warnings parse_data_info prints to
// stderr; pass nil to silence them. maxVersion caps the version this read
// will accept (the original's hardcoded reader_version_number); pass 0 to
// use CurrentVersion, the package default. config.Config.MaxReaderVersion
// is the intended source of a caller-supplied value.
func Read(r io.ReadSeeker, filename string, maxVersion int, logger *diag.Logger) (*module.Module, error) {
	if maxVersion <= 0 {
		maxVersion = CurrentVersion
	}
	version, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if version > maxVersion {
		return nil, fmt.Errorf("bwf: unsupported version: file is version %d, reader supports up to %d", version, maxVersion)
	}
	if version < MinVersion {
		return nil, malformedf("version %d below minimum supported version %d", version, MinVersion)
	}

	di, err := readDataInfo(r, version, logger)
	if err != nil {
		return nil, err
	}

	m := module.New(filename)

	if err := readStrings(r, m, di.StringCount); err != nil {
		return nil, err
	}
	if err := readFunctions(r, version, m, di.FunctionCount); err != nil {
		return nil, err
	}
	if version < 4 {
		return m, nil
	}
	if err := readTypes(r, m, di.UDTypeCount); err != nil {
		return nil, err
	}
	if version < 5 {
		return m, nil
	}
	if err := readExternals(r, m, di.ExtFunctionCount); err != nil {
		return nil, err
	}
	if err := readExtLibraries(r, m, di.ExtLibraryCount); err != nil {
		return nil, err
	}
	return m, nil
}

// readHeader parses the magic number and version line, mirroring
// parse_header. It reads one byte at a time rather than through a
// buffered reader, since a bufio.Reader would pre-fetch past the header
// line and desynchronize every later Seek-relative read in this package
// from r's actual logical position.
func readHeader(r io.Reader) (int, error) {
	var line []byte
	buf := make([]byte, 1)
	for len(line) < 1024 {
		n, err := r.Read(buf)
		if n == 1 {
			line = append(line, buf[0])
			if buf[0] == '\n' {
				break
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("bwf: read header: %w", err)
		}
	}
	var version int
	if _, err := fmt.Sscanf(string(line), Magic+"v%d", &version); err != nil {
		return 0, malformedf("invalid header %q", line)
	}
	if version <= 0 {
		return 0, malformedf("invalid version number in header %q", line)
	}
	return version, nil
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func seekPos(r io.Seeker) (int64, error) {
	return r.Seek(0, io.SeekCurrent)
}

// readDataInfo parses the data-info section, skipping any fields beyond
// those this reader knows about via data_info_field_count, mirroring
// parse_data_info.
func readDataInfo(r io.ReadSeeker, version int, logger *diag.Logger) (dataInfo, error) {
	var di dataInfo
	fieldCount := int32(2)
	start, err := seekPos(r)
	if err != nil {
		return di, fmt.Errorf("bwf: seek: %w", err)
	}

	if version >= 2 {
		fieldCount, err = readInt32(r)
		if err != nil {
			return di, malformedf("truncated data-info-field-count: %w", err)
		}
		if fieldCount < 2 {
			return di, malformedf("bad data-info-field-count: %d", fieldCount)
		}
	}

	readField := func(dst *int) error {
		v, err := readInt32(r)
		if err != nil {
			return malformedf("truncated data-info field: %w", err)
		}
		if v < 0 {
			return malformedf("negative data-info field: %d", v)
		}
		*dst = int(v)
		return nil
	}

	if err := readField(&di.StringCount); err != nil {
		return di, err
	}
	if err := readField(&di.FunctionCount); err != nil {
		return di, err
	}
	if version >= 4 {
		if err := readField(&di.UDTypeCount); err != nil {
			return di, err
		}
	}
	if version >= 5 {
		if err := readField(&di.ExtFunctionCount); err != nil {
			return di, err
		}
		if err := readField(&di.ExtLibraryCount); err != nil {
			return di, err
		}
	}

	pos, err := seekPos(r)
	if err != nil {
		return di, fmt.Errorf("bwf: seek: %w", err)
	}
	// The (field_count+1)*4 end-of-section calculation accounts for the
	// data-info-field-count field itself (the "+1"), which only exists on
	// disk from version 2 onwards; a true version-1 file has exactly the
	// two fields read above and no count field, so no skip-ahead applies.
	var bytesLeft int64
	if version >= 2 {
		bytesLeft = start + int64(fieldCount+1)*4 - pos
	}
	if bytesLeft < 0 {
		return di, malformedf("data-info-field-count %d too small for version %d fields", fieldCount, version)
	}
	if bytesLeft > 0 {
		if logger != nil {
			logger.Infof("bwf: warning: extra data-info fields not read")
		}
		if _, err := r.Seek(bytesLeft, io.SeekCurrent); err != nil {
			return di, fmt.Errorf("bwf: seek past extra data-info fields: %w", err)
		}
	}
	return di, nil
}

func readStrings(r io.Reader, m *module.Module, count int) error {
	for i := 0; i < count; i++ {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return malformedf("truncated string size: %w", err)
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return malformedf("truncated string bytes: %w", err)
		}
		m.Strings.WriteString(string(buf))
	}
	return nil
}

// readFunctions parses the function table, mirroring parse_function.
func readFunctions(r io.ReadSeeker, version int, m *module.Module, count int) error {
	for i := 0; i < count; i++ {
		start, err := seekPos(r)
		if err != nil {
			return fmt.Errorf("bwf: seek: %w", err)
		}

		entrySize := int32(0)
		if version >= 3 {
			entrySize, err = readInt32(r)
			if err != nil {
				return malformedf("truncated function entry-size: %w", err)
			}
		}

		size, err := readInt32(r)
		if err != nil {
			return malformedf("truncated function code-size: %w", err)
		}
		if entrySize == 0 {
			entrySize = size
		}
		if size < 0 {
			return malformedf("negative function code-size: %d", size)
		}

		code := make([]byte, size)
		if _, err := io.ReadFull(r, code); err != nil {
			return malformedf("truncated function code: %w", err)
		}

		var maxForLoopLevel, localsSize int32
		var locals []types.Index
		if version >= 4 {
			if maxForLoopLevel, err = readInt32(r); err != nil {
				return malformedf("truncated max-for-loop-level: %w", err)
			}
			if localsSize, err = readInt32(r); err != nil {
				return malformedf("truncated locals-size: %w", err)
			}
			localCount, err := readInt32(r)
			if err != nil {
				return malformedf("truncated local-count: %w", err)
			}
			if localCount < 0 {
				return malformedf("negative local-count: %d", localCount)
			}
			locals = make([]types.Index, localCount)
			for j := range locals {
				t, err := readInt32(r)
				if err != nil {
					return malformedf("truncated local type-index: %w", err)
				}
				locals[j] = types.Index(t)
			}
		}

		pos, err := seekPos(r)
		if err != nil {
			return fmt.Errorf("bwf: seek: %w", err)
		}
		bytesLeft := start + int64(entrySize) + 4 - pos
		if bytesLeft < 0 {
			return malformedf("function entry-size %d too small for its fields", entrySize)
		}
		if bytesLeft > 0 {
			if _, err := r.Seek(bytesLeft, io.SeekCurrent); err != nil {
				return fmt.Errorf("bwf: seek past extra function fields: %w", err)
			}
		}

		block := &ir.Block{
			Code:            code,
			Locations:       make([]ir.Location, len(code)),
			MaxForLoopLevel: int(maxForLoopLevel),
			LocalsSize:      int(localsSize),
			Locals:          locals,
		}
		if err := block.RecomputeJumps(); err != nil {
			return malformedf("function %d: %v", i, err)
		}

		m.Functions.Add(module.Function{LoweredCode: block})
	}
	return nil
}

// readTypes parses the user-defined type table, mirroring parse_type.
// The built-in String comp type module.New already registered occupies
// the first user-type slot; the file's ud_type_count entries are appended
// after it, so Types.Count() after reading equals ud_type_count +
// builtinTypeCount (see that constant).
func readTypes(r io.ReadSeeker, m *module.Module, count int) error {
	for i := 0; i < count; i++ {
		start, err := seekPos(r)
		if err != nil {
			return fmt.Errorf("bwf: seek: %w", err)
		}

		entrySize, err := readInt32(r)
		if err != nil {
			return malformedf("truncated type entry-size: %w", err)
		}
		kind, err := readInt32(r)
		if err != nil {
			return malformedf("truncated type kind: %w", err)
		}
		fieldCount, err := readInt32(r)
		if err != nil {
			return malformedf("truncated type field-count: %w", err)
		}
		wordCount, err := readInt32(r)
		if err != nil {
			return malformedf("truncated type word-count: %w", err)
		}
		if fieldCount < 0 || wordCount < 0 {
			return malformedf("negative type field-count/word-count: %d/%d", fieldCount, wordCount)
		}

		info := types.Info{Kind: types.Kind(kind)}
		switch info.Kind {
		case types.KindPack:
			if fieldCount > types.MaxPackFields {
				return malformedf("pack type field-count %d exceeds max %d", fieldCount, types.MaxPackFields)
			}
			info.Pack.FieldCount = int(fieldCount)
		case types.KindComp:
			info.Comp.FieldCount = int(fieldCount)
			info.Comp.WordCount = int(wordCount)
			info.Comp.Fields = make([]types.Index, fieldCount)
		}

		for j := int32(0); j < fieldCount; j++ {
			t, err := readInt32(r)
			if err != nil {
				return malformedf("truncated type field: %w", err)
			}
			switch info.Kind {
			case types.KindPack:
				info.Pack.Fields[j] = types.Index(t)
			case types.KindComp:
				info.Comp.Fields[j] = types.Index(t)
			}
		}

		pos, err := seekPos(r)
		if err != nil {
			return fmt.Errorf("bwf: seek: %w", err)
		}
		bytesLeft := start + 4 + int64(entrySize) - pos
		if bytesLeft < 0 {
			return malformedf("type entry-size %d too small for its fields", entrySize)
		}
		if bytesLeft > 0 {
			if _, err := r.Seek(bytesLeft, io.SeekCurrent); err != nil {
				return fmt.Errorf("bwf: seek past extra type fields: %w", err)
			}
		}

		m.Types.New(info)
	}
	return nil
}

// readExternals parses the external-function table, mirroring
// parse_ext_function.
func readExternals(r io.ReadSeeker, m *module.Module, count int) error {
	for i := 0; i < count; i++ {
		start, err := seekPos(r)
		if err != nil {
			return fmt.Errorf("bwf: seek: %w", err)
		}

		entrySize, err := readInt32(r)
		if err != nil {
			return malformedf("truncated external-function entry-size: %w", err)
		}
		paramCount, err := readInt32(r)
		if err != nil {
			return malformedf("truncated param-count: %w", err)
		}
		retCount, err := readInt32(r)
		if err != nil {
			return malformedf("truncated ret-count: %w", err)
		}
		if paramCount < 0 || retCount < 0 {
			return malformedf("negative param-count/ret-count: %d/%d", paramCount, retCount)
		}

		params := make([]types.Index, paramCount)
		for j := range params {
			t, err := readInt32(r)
			if err != nil {
				return malformedf("truncated param type: %w", err)
			}
			params[j] = types.Index(t)
		}
		rets := make([]types.Index, retCount)
		for j := range rets {
			t, err := readInt32(r)
			if err != nil {
				return malformedf("truncated ret type: %w", err)
			}
			rets[j] = types.Index(t)
		}

		nameIndex, err := readInt32(r)
		if err != nil {
			return malformedf("truncated name-index: %w", err)
		}
		callConv, err := readInt32(r)
		if err != nil {
			return malformedf("truncated calling-convention: %w", err)
		}
		name, err := m.Strings.ReadString(int(nameIndex))
		if err != nil {
			return malformedf("external-function name-index out of range: %v", err)
		}

		pos, err := seekPos(r)
		if err != nil {
			return fmt.Errorf("bwf: seek: %w", err)
		}
		bytesLeft := start + 4 + int64(entrySize) - pos
		if bytesLeft < 0 {
			return malformedf("external-function entry-size %d too small for its fields", entrySize)
		}
		if bytesLeft > 0 {
			if _, err := r.Seek(bytesLeft, io.SeekCurrent); err != nil {
				return fmt.Errorf("bwf: seek past extra external-function fields: %w", err)
			}
		}

		m.Externals.Externals = append(m.Externals.Externals, module.ExternalFunction{
			Sig:      module.Signature{Params: params, Rets: rets},
			Name:     name,
			CallConv: module.CallingConvention(callConv),
		})
	}
	return nil
}

// readExtLibraries parses the external-library table, mirroring
// parse_ext_library.
func readExtLibraries(r io.ReadSeeker, m *module.Module, count int) error {
	for i := 0; i < count; i++ {
		start, err := seekPos(r)
		if err != nil {
			return fmt.Errorf("bwf: seek: %w", err)
		}

		entrySize, err := readInt32(r)
		if err != nil {
			return malformedf("truncated external-library entry-size: %w", err)
		}
		externalCount, err := readInt32(r)
		if err != nil {
			return malformedf("truncated external-count: %w", err)
		}
		if externalCount < 0 {
			return malformedf("negative external-count: %d", externalCount)
		}

		indices := make([]int, externalCount)
		for j := range indices {
			idx, err := readInt32(r)
			if err != nil {
				return malformedf("truncated external-index: %w", err)
			}
			indices[j] = int(idx)
		}

		filenameIndex, err := readInt32(r)
		if err != nil {
			return malformedf("truncated filename-index: %w", err)
		}
		filename, err := m.Strings.ReadString(int(filenameIndex))
		if err != nil {
			return malformedf("external-library filename-index out of range: %v", err)
		}

		pos, err := seekPos(r)
		if err != nil {
			return fmt.Errorf("bwf: seek: %w", err)
		}
		bytesLeft := start + 4 + int64(entrySize) - pos
		if bytesLeft < 0 {
			return malformedf("external-library entry-size %d too small for its fields", entrySize)
		}
		if bytesLeft > 0 {
			if _, err := r.Seek(bytesLeft, io.SeekCurrent); err != nil {
				return fmt.Errorf("bwf: seek past extra external-library fields: %w", err)
			}
		}

		m.ExtLibraries.Libraries = append(m.ExtLibraries.Libraries, module.ExternalLibrary{
			Filename: filename,
			Indices:  indices,
		})
	}
	return nil
}
