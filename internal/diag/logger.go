package diag

import (
	"fmt"
	"io"
)

// Logger is the ambient progress/trace sink used by cmd/budec and the
// codec. The teacher pack has no structured logging dependency anywhere
// (xyproto-vibe67's cli.go writes straight to os.Stderr gated on a
// Verbose/Quiet pair); this follows the same idiom rather than introduce
// one.
type Logger struct {
	w       io.Writer
	Verbose bool
	Quiet   bool
}

// NewLogger returns a Logger writing to w.
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Infof prints a message unless Quiet is set.
func (l *Logger) Infof(format string, args ...any) {
	if l.Quiet {
		return
	}
	fmt.Fprintf(l.w, format+"\n", args...)
}

// Debugf prints a message only when Verbose is set and Quiet is not.
func (l *Logger) Debugf(format string, args ...any) {
	if l.Quiet || !l.Verbose {
		return
	}
	fmt.Fprintf(l.w, format+"\n", args...)
}
