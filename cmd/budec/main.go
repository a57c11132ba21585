// Command budec is a thin driver over the compiler core: it reads a
// BudeBWF container and either type-checks and lowers every function,
// dumps the module, or type-checks it and emits FASM assembly for its
// first function. verify-dll checks a DLL's exports without reading a
// container.
//
// Grounded on xyproto-vibe67/main.go's flag-based CLI (versionString,
// package-level flag.FlagSet use, a RunCLI-style dispatch) and cli.go's
// subcommand shape (check/dump/emit here, build/run/test there). The
// core it wires -- region/ir/types/module/typecheck/bwf/asmgen -- is out
// of scope for the CLI itself (spec §6: "CLI/config: Out of scope
// (external collaborator)"), so this file only dispatches to it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ninesquared81/bude/internal/asmgen"
	"github.com/ninesquared81/bude/internal/bwf"
	"github.com/ninesquared81/bude/internal/config"
	"github.com/ninesquared81/bude/internal/diag"
	"github.com/ninesquared81/bude/internal/engine"
	"github.com/ninesquared81/bude/internal/module"
	"github.com/ninesquared81/bude/internal/typecheck"
)

var subcommands = []string{"check", "dump", "emit", "verify-dll", "help", "version"}

const versionString = "budec 0.1.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	switch args[0] {
	case "help", "--help", "-h":
		printUsage()
		return nil
	case "version", "--version", "-V":
		fmt.Println(versionString)
		return nil
	case "check":
		return cmdCheck(args[1:])
	case "dump":
		return cmdDump(args[1:])
	case "emit":
		return cmdEmit(args[1:])
	case "verify-dll":
		return cmdVerifyDLL(args[1:])
	default:
		if suggestion := engine.SuggestCommand(args[0], subcommands); suggestion != "" {
			return fmt.Errorf("unknown command: %s (did you mean %q?)\n\nRun 'budec help' for usage information", args[0], suggestion)
		}
		return fmt.Errorf("unknown command: %s\n\nRun 'budec help' for usage information", args[0])
	}
}

func printUsage() {
	fmt.Println(versionString)
	fmt.Println("usage:")
	fmt.Println("  budec check <file.bwf>          type-check every function, reporting diagnostics")
	fmt.Println("  budec dump  <file.bwf>           print a human-readable listing of strings/code")
	fmt.Println("  budec emit  <file.bwf> [-o out]  type-check then emit FASM assembly for the first function")
	fmt.Println("  budec verify-dll <dll> <name...> confirm a DLL exports the given function names")
}

// loadModule reads path as a BudeBWF container, honoring cfg.MaxReaderVersion.
func loadModule(path string, cfg config.Config, logger *diag.Logger) (*module.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("budec: %w", err)
	}
	defer f.Close()

	m, err := bwf.Read(f, path, cfg.MaxReaderVersion, logger)
	if err != nil {
		return nil, fmt.Errorf("budec: %w", err)
	}
	return m, nil
}

// checkModule type-checks and lowers every function in m in place,
// reporting through a fresh collector sized by cfg.MaxErrors. It returns
// the collector so callers can render diagnostics or decide whether
// emission may proceed (spec §7: "the emitter refuses to run if the
// checker reported errors").
func checkModule(m *module.Module, cfg config.Config) *diag.Collector {
	diags := diag.NewCollector(cfg.MaxErrors)
	for i := range m.Functions.Functions {
		fn := &m.Functions.Functions[i]
		block := fn.CheckedCode
		if block == nil {
			block = fn.LoweredCode
		}
		if block == nil {
			continue
		}
		checker := typecheck.New(block, diags)
		if checker.Check() {
			fn.LoweredCode = block
		}
	}
	return diags
}

func cmdCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "verbose diagnostic output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: budec check <file.bwf>")
	}

	cfg := config.FromEnvironment()
	cfg.Verbose = cfg.Verbose || *verbose
	logger := diag.NewLogger(os.Stderr)
	logger.Verbose = cfg.Verbose

	m, err := loadModule(fs.Arg(0), cfg, logger)
	if err != nil {
		return err
	}

	diags := checkModule(m, cfg)
	fmt.Print(diags.Render())
	if diags.HadError() {
		return fmt.Errorf("budec: type-checking reported %d error(s)", len(diags.Diagnostics()))
	}
	logger.Infof("%s: OK", fs.Arg(0))
	return nil
}

func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: budec dump <file.bwf>")
	}

	cfg := config.FromEnvironment()
	logger := diag.NewLogger(os.Stderr)
	logger.Verbose = cfg.Verbose

	m, err := loadModule(fs.Arg(0), cfg, logger)
	if err != nil {
		return err
	}
	return bwf.Dump(os.Stdout, m)
}

func cmdEmit(args []string) error {
	fs := flag.NewFlagSet("emit", flag.ExitOnError)
	outputPath := fs.String("o", "", "output path (default: stdout)")
	targetStr := fs.String("target", engine.SupportedPlatform.String(), "target platform (<arch>/<os>)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: budec emit <file.bwf> [-o out] [-target arch/os]")
	}

	target, err := engine.ParsePlatform(*targetStr)
	if err != nil {
		return fmt.Errorf("budec: %w", err)
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("budec: %w", err)
	}

	cfg := config.FromEnvironment()
	logger := diag.NewLogger(os.Stderr)
	logger.Verbose = cfg.Verbose

	m, err := loadModule(fs.Arg(0), cfg, logger)
	if err != nil {
		return err
	}

	diags := checkModule(m, cfg)
	if diags.HadError() {
		fmt.Fprint(os.Stderr, diags.Render())
		return fmt.Errorf("budec: refusing to emit assembly: module failed type-checking")
	}

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			return fmt.Errorf("budec: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := asmgen.Generate(out, m); err != nil {
		return fmt.Errorf("budec: %w", err)
	}
	logger.Infof("%s: assembly written", fs.Arg(0))
	return nil
}

// cmdVerifyDLL checks, independent of host OS, that a DLL on disk actually
// exports the function names given after it on the command line, catching
// a typo'd import name before fasm ever runs. It reads no container.
func cmdVerifyDLL(args []string) error {
	fs := flag.NewFlagSet("verify-dll", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: budec verify-dll <dll> <name> [name...]")
	}

	if err := asmgen.VerifyDLLExports(fs.Arg(0), fs.Args()[1:]); err != nil {
		return fmt.Errorf("budec: %w", err)
	}
	fmt.Printf("%s: exports all %d requested name(s)\n", fs.Arg(0), fs.NArg()-1)
	return nil
}
