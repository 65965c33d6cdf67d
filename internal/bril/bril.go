// Package bril is the thin, out-of-core boundary layer: it (de)serializes
// the external IR dictionary to and from JSON, and wraps the bril2json
// subprocess that turns textual Bril source into that dictionary. Nothing
// in internal/cfg, internal/dataflow, internal/analysis, internal/lvn,
// internal/dce, or internal/licm imports this package; they operate on
// cfg.Function values handed to them by internal/program.
package bril

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/bril-tools/brilopt/internal/errs"
	"github.com/bril-tools/brilopt/internal/ir"
)

// FunctionDict is the wire representation of a single function.
type FunctionDict struct {
	Name   string          `json:"name"`
	Args   []ir.Parameter  `json:"args,omitempty"`
	Instrs []ir.Instruction `json:"instrs"`
}

// ProgramDict is the wire representation of a whole program:
// `{ "functions": [...] }`.
type ProgramDict struct {
	Functions []FunctionDict `json:"functions"`
}

// Decode reads a ProgramDict as JSON from r. A malformed JSON document is
// surfaced as an *errs.MalformedIR, the same kind internal/cfg reports for
// a structurally invalid instruction stream, so callers can dispatch on a
// single error kind regardless of which stage rejected the input.
func Decode(r io.Reader) (*ProgramDict, error) {
	var p ProgramDict
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errs.WrapMalformedIR(err, "decoding bril program")
	}
	return &p, nil
}

// Encode writes p as JSON to w.
func Encode(w io.Writer, p *ProgramDict) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return errors.Wrap(err, "encoding bril program")
	}
	return nil
}

// RunBril2JSON shells out to the external bril2json binary to translate
// textual Bril source (read from r) into a ProgramDict. This package's
// only contract with it is "textual Bril in, IR dictionary out";
// bril2json's own grammar and implementation are out of scope here.
func RunBril2JSON(r io.Reader) (*ProgramDict, error) {
	path, err := exec.LookPath("bril2json")
	if err != nil {
		return nil, errors.Wrap(err, "locating bril2json")
	}
	cmd := exec.Command(path)
	cmd.Stdin = r
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrap(err, "running bril2json")
	}
	return Decode(bytes.NewReader(out))
}
