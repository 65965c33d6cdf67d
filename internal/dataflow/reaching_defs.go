package dataflow

import (
	"log"

	"github.com/bril-tools/brilopt/internal/cfg"
	"github.com/bril-tools/brilopt/internal/ir"
)

// DefSet is the set of definition sites reaching a program point for a
// single variable. There can be more than one reaching definition of the
// same variable at a given point because of conditional control flow.
type DefSet map[ir.DefSite]bool

func (s DefSet) clone() DefSet {
	c := make(DefSet, len(s))
	for d := range s {
		c[d] = true
	}
	return c
}

func (s DefSet) equal(o DefSet) bool {
	if len(s) != len(o) {
		return false
	}
	for d := range s {
		if !o[d] {
			return false
		}
	}
	return true
}

// ReachingDefsMap is the lattice value: variable name -> set of definition
// sites that may reach the current program point.
type ReachingDefsMap map[string]DefSet

// Equal implements Equatable.
func (m ReachingDefsMap) Equal(o ReachingDefsMap) bool {
	if len(m) != len(o) {
		return false
	}
	for v, defs := range m {
		od, ok := o[v]
		if !ok || !defs.equal(od) {
			return false
		}
	}
	return true
}

func (m ReachingDefsMap) clone() ReachingDefsMap {
	c := make(ReachingDefsMap, len(m))
	for v, defs := range m {
		c[v] = defs.clone()
	}
	return c
}

// ReachingDefinitions is the forward dataflow analysis whose lattice maps
// variable name to the set of definition sites that reach a point; join is
// pointwise union, and a definition kills any previous definition of the
// same variable within the same block.
type ReachingDefinitions struct{}

var _ Analysis[ReachingDefsMap] = ReachingDefinitions{}

// Init seeds each parameter's reaching definition with its own parameter
// site; it reaches every block of the function that can be reached from
// entry, except where a value-op redefining the same name kills it.
func (ReachingDefinitions) Init(f *cfg.Function) ReachingDefsMap {
	m := make(ReachingDefsMap, len(f.Params))
	for i, p := range f.Params {
		m[p.Name] = DefSet{ir.ParamSite(i): true}
	}
	return m
}

// Transfer applies kill-then-gen for every value-op in the block: a
// definition of v at (blockIdx, i) replaces whatever reached v on entry to
// the block.
func (ReachingDefinitions) Transfer(f *cfg.Function, blockIdx int, in ReachingDefsMap) ReachingDefsMap {
	out := in.clone()
	for i, instr := range f.Blocks[blockIdx] {
		if ir.IsValueOp(instr) {
			out[instr.Dest] = DefSet{ir.InstrSite(blockIdx, i): true}
		}
	}
	return out
}

// Merge is the pointwise union of all predecessor out-facts (and the
// block's own in-fact, carried along by Solve).
func (ReachingDefinitions) Merge(vals []ReachingDefsMap) ReachingDefsMap {
	merged := make(ReachingDefsMap)
	for _, val := range vals {
		for v, defs := range val {
			s, ok := merged[v]
			if !ok {
				s = make(DefSet)
				merged[v] = s
			}
			for d := range defs {
				s[d] = true
			}
		}
	}
	return merged
}

// Solve returns the reaching-definitions map at the end of every block of
// f (i.e. the solver's out-facts).
func (rd ReachingDefinitions) Solve(f *cfg.Function) []ReachingDefsMap {
	return Solve[ReachingDefsMap](rd, f)
}

// SolveWithTrace is Solve, but logs the solver's iteration trace to trace
// (nil disables tracing, same as Solve).
func (rd ReachingDefinitions) SolveWithTrace(f *cfg.Function, trace *log.Logger) []ReachingDefsMap {
	s := NewSolver[ReachingDefsMap]()
	if trace != nil {
		s = s.WithTrace(trace)
	}
	return s.Solve(rd, f)
}
