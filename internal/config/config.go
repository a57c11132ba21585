// Package config reads the small set of environment variables that
// configure a one-shot run of the toolchain: the newest container version
// the reader accepts, whether to log verbosely, and how many
// diagnostics to accumulate before giving up.
//
// Wires github.com/xyproto/env/v2, a direct dependency the teacher
// (xyproto-vibe67) carries in go.mod but never imports — its
// dependencies.go instead hand-rolls os.Getenv lookups for its
// FLAPC_<NAME> override convention. This package uses env/v2 properly for
// the same kind of lookup, keeping the FLAPC_<NAME>-style prefix
// convention (here BUDE_<NAME>) but through the library instead of
// os.Getenv directly.
package config

import "github.com/xyproto/env/v2"

// Config holds the environment-derived knobs for a single compiler run.
type Config struct {
	// MaxReaderVersion is the highest BudeBWF version the container
	// reader will accept; files declaring a newer version are rejected
	// with UnsupportedVersion.
	MaxReaderVersion int

	// Verbose enables internal/diag.Logger's debug-level output.
	Verbose bool

	// MaxErrors caps how many diagnostics internal/diag.Collector
	// accumulates before a type-checker run gives up.
	MaxErrors int
}

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultMaxReaderVersion = 5
	DefaultMaxErrors        = 10
)

// FromEnvironment reads BUDE_BWF_VERSION, BUDE_VERBOSE, and
// BUDE_MAX_ERRORS, falling back to the package defaults.
func FromEnvironment() Config {
	return Config{
		MaxReaderVersion: env.Int("BUDE_BWF_VERSION", DefaultMaxReaderVersion),
		Verbose:          env.Bool("BUDE_VERBOSE"),
		MaxErrors:        env.Int("BUDE_MAX_ERRORS", DefaultMaxErrors),
	}
}
