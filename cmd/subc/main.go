// Command subc is the thin driver described in spec.md §6: it reads one
// .sb source file, runs it through the five-phase core in package
// compiler, and writes either the IR dump, the assembly text, or (in a
// future revision) a linked binary.  Everything in this file is the
// "external collaborator" §1 explicitly keeps out of the core - flag
// parsing, file I/O, and progress logging - mirroring the teacher's
// own thin flag-based main.go, generalized from a single "-compile"
// gcc-invoking mode to the compiler-driver surface §6 describes.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skx/subc/compiler"
	"github.com/skx/subc/diag"
)

// options holds the values every one of §6's flags is bound to.
type options struct {
	output  string
	asmOnly bool
	emitIR  bool
	optim   int
	verbose bool
}

var log = logrus.New()

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "subc <input.sb>",
		Short: "Compile an SB source file to x86-64 assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
		SilenceUsage: true,
	}

	flags := root.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "output file (default a.out, or <input>.s with -S); without -S the assembly text is written to <output>.s")
	flags.BoolVarP(&opts.asmOnly, "S", "S", false, "stop after assembly emission and write the .s file")
	flags.BoolVar(&opts.emitIR, "emit-ir", false, "print the lowered IR module and exit")
	flags.IntVarP(&opts.optim, "O", "O", 0, "optimization level (0-3; only constant folding under >=1)")
	flags.BoolVarP(&opts.verbose, "v", "v", false, "enable phase-by-phase progress diagnostics on stderr")

	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetOutput(os.Stderr)

	// pflag reads a single-dash word as a run of shorthand flags, so the
	// single-dash spelling -emit-ir is rewritten to its long form before
	// cobra parses the command line.
	args := os.Args[1:]
	for i, a := range args {
		if a == "-emit-ir" {
			args[i] = "--emit-ir"
		}
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run implements the body of §6's command surface: read the file, drive
// the core, write whichever artifact the flags selected.  It returns a
// Go error only for I/O failures (wrapped with github.com/pkg/errors for
// stack context); a failed compile phase prints its sink and calls
// os.Exit(1) directly, matching §6's "exit 1 on any failed phase".
func run(filename string, opts *options) error {
	if opts.optim < 0 || opts.optim > 3 {
		return errors.Errorf("invalid optimization level -O%d: must be 0-3", opts.optim)
	}

	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "unable to open input %q", filename)
	}

	sink := diag.NewSink(filename)
	copts := compiler.Options{
		Optimize: opts.optim >= 1,
		OnPhase: func(p compiler.Phase) {
			log.WithFields(logrus.Fields{"phase": p.String(), "file": filename}).Debug("entering phase")
		},
	}

	result, ok := compiler.Compile(filename, src, copts, sink)
	if !ok {
		sink.Fprint(os.Stderr)
		os.Exit(1)
	}
	if sink.WarningCount() > 0 {
		sink.Fprint(os.Stderr)
	}

	if opts.emitIR {
		fmt.Print(result.Module.String())
		return nil
	}

	out := opts.output
	if out == "" {
		if opts.asmOnly {
			out = strings.TrimSuffix(filename, ".sb") + ".s"
		} else {
			out = "a.out"
		}
	}

	if !opts.asmOnly {
		log.WithFields(logrus.Fields{"file": filename}).Warn(
			"assembling and linking is an external collaborator's concern (§1); writing assembly text to " + out + ".s instead")
		out += ".s"
	}

	if err := os.WriteFile(out, []byte(result.Assembly), 0o644); err != nil {
		return errors.Wrapf(err, "unable to write output %q", out)
	}
	log.WithFields(logrus.Fields{"file": out}).Info("wrote assembly")
	return nil
}
