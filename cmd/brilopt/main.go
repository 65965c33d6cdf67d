// Command brilopt reads an IR dictionary from a file or stdin, applies
// one named pass or analysis, and writes JSON (or a text report) to
// stdout.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/bril-tools/brilopt/internal/bril"
	"github.com/bril-tools/brilopt/internal/errs"
	"github.com/bril-tools/brilopt/internal/program"
)

func main() {
	var (
		file  string
		pass  string
		trace bool
	)
	flag.StringVar(&file, "file", "", "input IR JSON file (reads stdin if not provided)")
	flag.StringVar(&pass, "pass", "", fmt.Sprintf("transformation or analysis to run, one of: %v | %v", program.PassNames(), program.AnalysisNames()))
	flag.BoolVar(&trace, "trace", false, "log dataflow solver / LICM fixed-point iteration trace to stderr")
	flag.Parse()

	var traceLog *log.Logger
	if trace {
		traceLog = log.New(os.Stderr, "brilopt: trace: ", 0)
	}

	if err := run(file, pass, traceLog, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "brilopt: %v\n", err)
		os.Exit(1)
	}
}

func run(file, pass string, traceLog *log.Logger, stdin io.Reader, stdout io.Writer) error {
	var r io.Reader = stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	dict, err := bril.Decode(r)
	if err != nil {
		var malformed *errs.MalformedIR
		if errors.As(err, &malformed) {
			return fmt.Errorf("decoding failed: %w", malformed)
		}
		return err
	}

	prog, err := program.FromDict(dict)
	if err != nil {
		var malformed *errs.MalformedIR
		if errors.As(err, &malformed) {
			return fmt.Errorf("validation failed: %w", malformed)
		}
		return err
	}

	if pass == "" {
		return bril.Encode(stdout, prog.ToDict())
	}

	if out, ok := prog.RunPass(pass, traceLog); ok {
		return bril.Encode(stdout, out.ToDict())
	}

	if reports, ok := prog.RunAnalysis(pass, traceLog); ok {
		for _, r := range reports {
			fmt.Fprintln(stdout, r)
		}
		return nil
	}

	return fmt.Errorf("unknown pass or analysis %q (passes: %v, analyses: %v)", pass, program.PassNames(), program.AnalysisNames())
}
