// Package program provides function/program-level orchestration: building
// a Program (a name-keyed collection of cfg.Function values) from the
// external IR dictionary, flattening it back, and dispatching named
// analyses and passes by name through a small registry.
package program

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/bril-tools/brilopt/internal/analysis"
	"github.com/bril-tools/brilopt/internal/bril"
	"github.com/bril-tools/brilopt/internal/cfg"
	"github.com/bril-tools/brilopt/internal/dataflow"
	"github.com/bril-tools/brilopt/internal/dce"
	"github.com/bril-tools/brilopt/internal/licm"
	"github.com/bril-tools/brilopt/internal/lvn"
)

// Program holds the basic-block decomposition of every function in a
// parsed IR dictionary. Function insertion order is preserved so emission
// is stable, even though correctness never depends on it.
type Program struct {
	order []string
	funcs map[string]*cfg.Function
}

// FromDict builds a Program from a parsed IR dictionary.
func FromDict(p *bril.ProgramDict) (*Program, error) {
	prog := &Program{funcs: make(map[string]*cfg.Function, len(p.Functions))}
	for _, fn := range p.Functions {
		f, err := cfg.NewFunction(fn.Name, fn.Args, fn.Instrs)
		if err != nil {
			return nil, err
		}
		prog.order = append(prog.order, fn.Name)
		prog.funcs[fn.Name] = f
	}
	return prog, nil
}

// ToDict flattens every function's blocks back into a single instruction
// list, preserving label instructions at block heads and the program's
// function order.
func (p *Program) ToDict() *bril.ProgramDict {
	out := &bril.ProgramDict{}
	for _, name := range p.order {
		f := p.funcs[name]
		out.Functions = append(out.Functions, bril.FunctionDict{
			Name:   f.Name,
			Args:   f.Params,
			Instrs: f.ToInstrs(),
		})
	}
	return out
}

// Func returns the named function, or nil if it does not exist.
func (p *Program) Func(name string) *cfg.Function { return p.funcs[name] }

// Names returns function names in their original program order.
func (p *Program) Names() []string {
	out := append([]string(nil), p.order...)
	return out
}

// Pass is a function-level transformation: it returns a new Function
// rather than mutating its input. trace receives iteration-level debug
// output from passes that emit one (currently only licm); the other
// passes ignore it.
type Pass func(f *cfg.Function, trace *log.Logger) *cfg.Function

// Passes is the dispatch table of named transformations.
var Passes = map[string]Pass{
	"dce":  func(f *cfg.Function, _ *log.Logger) *cfg.Function { return dce.Run(f) },
	"licm": licm.Run,
	"lvn":  func(f *cfg.Function, _ *log.Logger) *cfg.Function { return lvnPass(f) },
}

// lvnPass applies LVN to every block of f independently and returns a new
// Function with the rewritten blocks; the CFG shape (label_index,
// block_exits) is unchanged since LVN only renames destinations and
// substitutes argument names within a block, never altering control flow.
func lvnPass(f *cfg.Function) *cfg.Function {
	out := cfg.FilterCopy(f, nil)
	for i, block := range out.Blocks {
		out.Blocks[i] = lvn.Transform(block)
	}
	return out
}

// RunPass applies the named pass to every function in p and returns a new
// Program with the results (function order preserved). trace, if non-nil,
// receives the pass's iteration trace (see Pass); nil disables tracing.
func (p *Program) RunPass(name string, trace *log.Logger) (*Program, bool) {
	pass, ok := Passes[name]
	if !ok {
		return nil, false
	}
	if trace == nil {
		trace = log.New(io.Discard, "", 0)
	}
	out := &Program{order: append([]string(nil), p.order...), funcs: make(map[string]*cfg.Function, len(p.funcs))}
	for name, f := range p.funcs {
		out.funcs[name] = pass(f, trace)
	}
	return out, true
}

// PassNames returns the sorted list of registered pass names, for CLI help
// text and validation.
func PassNames() []string {
	names := make([]string, 0, len(Passes))
	for name := range Passes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Analysis is a read-only, informational report over a function: it
// prints a result rather than transforming the program. trace receives
// the dataflow solver's iteration trace for analyses built on it
// (currently only reaching_defs); other analyses ignore it.
type Analysis func(f *cfg.Function, trace *log.Logger) string

// Analyses is the dispatch table of named analyses.
var Analyses = map[string]Analysis{
	"reaching_defs": reachingDefsReport,
	"dominators":    func(f *cfg.Function, _ *log.Logger) string { return dominatorsReport(f) },
	"loops":         func(f *cfg.Function, _ *log.Logger) string { return loopsReport(f) },
	"reducible":     func(f *cfg.Function, _ *log.Logger) string { return reducibleReport(f) },
	"print":         func(f *cfg.Function, _ *log.Logger) string { return printReport(f) },
}

// AnalysisNames returns the sorted list of registered analysis names.
func AnalysisNames() []string {
	names := make([]string, 0, len(Analyses))
	for name := range Analyses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunAnalysis runs the named analysis over every function in p, returning
// one report string per function in program order. trace, if non-nil,
// receives the trace of analyses built on an iterative solver (see
// Analysis); nil disables tracing.
func (p *Program) RunAnalysis(name string, trace *log.Logger) ([]string, bool) {
	a, ok := Analyses[name]
	if !ok {
		return nil, false
	}
	if trace == nil {
		trace = log.New(io.Discard, "", 0)
	}
	reports := make([]string, 0, len(p.order))
	for _, name := range p.order {
		reports = append(reports, fmt.Sprintf("function %s\n%s", name, a(p.funcs[name], trace)))
	}
	return reports, true
}

func reachingDefsReport(f *cfg.Function, trace *log.Logger) string {
	out := dataflow.ReachingDefinitions{}.SolveWithTrace(f, trace)
	var b strings.Builder
	for i, facts := range out {
		vars := make([]string, 0, len(facts))
		for v := range facts {
			vars = append(vars, v)
		}
		sort.Strings(vars)
		fmt.Fprintf(&b, "  block %d: %v\n", i, vars)
	}
	return b.String()
}

func dominatorsReport(f *cfg.Function) string {
	doms := analysis.Dominators(f.BlockExits)
	var b strings.Builder
	for i, d := range doms {
		fmt.Fprintf(&b, "  block %d dominated by %v\n", i, d)
	}
	return b.String()
}

func loopsReport(f *cfg.Function) string {
	loops := analysis.ExtractNaturalLoops(f.BlockExits)
	var b strings.Builder
	for _, l := range loops {
		fmt.Fprintf(&b, "  header %d: %v\n", l.Header, l.Nodes)
	}
	return b.String()
}

func reducibleReport(f *cfg.Function) string {
	return fmt.Sprintf("  %v\n", analysis.IsReducible(f.BlockExits))
}

func printReport(f *cfg.Function) string {
	var b strings.Builder
	for _, instr := range f.ToInstrs() {
		fmt.Fprintf(&b, "  %s\n", instr.String())
	}
	return b.String()
}
