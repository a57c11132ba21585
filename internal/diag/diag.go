// Package diag implements the type checker's diagnostic sink: a
// categorised error type collected by a Collector that caps how many it
// reports and tracks a sticky had-error flag, plus the Logger used for
// progress output. The binary container codec uses only the Logger; its
// own failures are returned as plain errors.
//
// Grounded on xyproto-vibe67/errors.go's CompilerError/ErrorCollector,
// adapted from that file's syntax/semantic/codegen taxonomy to the
// taxonomy of spec §7.
package diag

import (
	"fmt"
	"strings"
)

// Category classifies a Diagnostic using the taxonomy named in spec §7.
type Category int

const (
	AllocationFailure Category = iota
	IOFailure
	MalformedContainer
	UnsupportedVersion
	TypeError
	StackError
	StackMergeError
	UnreachableCode
)

func (c Category) String() string {
	switch c {
	case AllocationFailure:
		return "allocation failure"
	case IOFailure:
		return "I/O failure"
	case MalformedContainer:
		return "malformed container"
	case UnsupportedVersion:
		return "unsupported version"
	case TypeError:
		return "type error"
	case StackError:
		return "stack error"
	case StackMergeError:
		return "stack merge error"
	case UnreachableCode:
		return "unreachable code"
	}
	return "unknown"
}

// Fatal reports whether a Category's propagation policy is "abort the
// current operation immediately" (spec §7's allocation/I/O failures) as
// opposed to "record and continue" (the type/stack/container categories).
func (c Category) Fatal() bool {
	switch c {
	case AllocationFailure, IOFailure:
		return true
	}
	return false
}

// Location pinpoints a Diagnostic to an IR byte offset, a source location,
// or neither (module/file-level diagnostics).
type Location struct {
	HasOffset bool
	Offset    int

	File   string
	Line   int
	Column int
}

func (loc Location) String() string {
	switch {
	case loc.HasOffset && loc.File != "":
		return fmt.Sprintf("%s (offset %d)", loc.File, loc.Offset)
	case loc.HasOffset:
		return fmt.Sprintf("offset %d", loc.Offset)
	case loc.File != "":
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
	default:
		return "<unknown location>"
	}
}

// AtOffset builds a Location naming an IR byte offset.
func AtOffset(offset int) Location {
	return Location{HasOffset: true, Offset: offset}
}

// Diagnostic is a single reported error or warning.
type Diagnostic struct {
	Category Category
	Message  string
	Location Location
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Category, d.Message)
}

// New builds a Diagnostic with the given category, location and message.
func New(category Category, loc Location, format string, args ...any) Diagnostic {
	return Diagnostic{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
}

// Collector accumulates diagnostics during checking or decoding, capping
// the number recorded and tracking whether any were fatal.
type Collector struct {
	maxErrors int
	errors    []Diagnostic
	hadError  bool
	hadFatal  bool
}

// NewCollector returns a Collector that stops recording non-fatal
// diagnostics once maxErrors have been collected. maxErrors <= 0 defaults
// to 10, matching NewErrorCollector's default.
func NewCollector(maxErrors int) *Collector {
	if maxErrors <= 0 {
		maxErrors = 10
	}
	return &Collector{maxErrors: maxErrors}
}

// Report records d. Fatal categories are always recorded even past the
// cap, since the caller is expected to abort immediately afterwards.
func (c *Collector) Report(d Diagnostic) {
	c.hadError = true
	if d.Category.Fatal() {
		c.hadFatal = true
	}
	if len(c.errors) >= c.maxErrors && !d.Category.Fatal() {
		return
	}
	c.errors = append(c.errors, d)
}

// Reportf is a convenience wrapper around Report/New.
func (c *Collector) Reportf(category Category, loc Location, format string, args ...any) {
	c.Report(New(category, loc, format, args...))
}

// HadError reports whether any diagnostic has been recorded.
func (c *Collector) HadError() bool {
	return c.hadError
}

// HadFatalError reports whether any fatal-category diagnostic was
// recorded.
func (c *Collector) HadFatalError() bool {
	return c.hadFatal
}

// Diagnostics returns the recorded diagnostics, up to the cap.
func (c *Collector) Diagnostics() []Diagnostic {
	return c.errors
}

// ShouldStop reports whether the error cap has been reached, for callers
// (the checker's instruction loop) that want to bail out early.
func (c *Collector) ShouldStop() bool {
	return len(c.errors) >= c.maxErrors
}

// Render formats every recorded diagnostic, one per line, plus a trailing
// count summary.
func (c *Collector) Render() string {
	var sb strings.Builder
	for _, d := range c.errors {
		sb.WriteString(d.Error())
		sb.WriteString("\n")
	}
	if len(c.errors) > 0 {
		fmt.Fprintf(&sb, "%d error(s) found\n", len(c.errors))
	}
	return sb.String()
}

// Clear resets the collector for reuse.
func (c *Collector) Clear() {
	c.errors = nil
	c.hadError = false
	c.hadFatal = false
}
