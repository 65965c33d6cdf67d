// Package dataflow provides a generic forward worklist solver plus the
// reaching-definitions analysis instance built on top of it.
package dataflow

import (
	"io"
	"log"

	"github.com/bril-tools/brilopt/internal/cfg"
)

// Analysis is the pluggable contract a forward dataflow problem supplies to
// Solve. Implementations must be monotone over a finite-height lattice for
// the worklist iteration to terminate.
type Analysis[L any] interface {
	// Init returns the initial per-block fact for func.
	Init(f *cfg.Function) L
	// Transfer computes the out-fact of block blockIdx given its in-fact.
	Transfer(f *cfg.Function, blockIdx int, in L) L
	// Merge combines the out-facts of a block's predecessors together with
	// its current in-fact into a new in-fact.
	Merge(vals []L) L
}

// Equatable is satisfied by lattice values the solver can compare for a
// fixed point without reflection.
type Equatable[L any] interface {
	Equal(other L) bool
}

// Solver runs Analysis a to a fixed point over f. trace, if non-nil,
// receives per-iteration debug output; it defaults to a discarding
// logger so tracing costs nothing unless explicitly enabled.
type Solver[L Equatable[L]] struct {
	trace *log.Logger
}

// NewSolver returns a Solver with tracing disabled.
func NewSolver[L Equatable[L]]() *Solver[L] {
	return &Solver[L]{trace: log.New(io.Discard, "", 0)}
}

// WithTrace returns a copy of s that logs its iteration trace to l.
func (s *Solver[L]) WithTrace(l *log.Logger) *Solver[L] {
	return &Solver[L]{trace: l}
}

// Solve runs the generic worklist algorithm:
//  1. compute predecessors from f.BlockExits, ignoring out-of-range
//     successors (e.g. the pointer to the trailing sentinel block itself
//     has none);
//  2. initialize in[b] = out[b] = a.Init(f) for every block;
//  3. repeatedly pop a block off the worklist, recompute its in-fact as
//     the merge of its predecessors' out-facts and its own current
//     in-fact, recompute its out-fact, and requeue every in-range
//     successor whose predecessor's out-fact changed.
func Solve[L Equatable[L]](a Analysis[L], f *cfg.Function) []L {
	return NewSolver[L]().Solve(a, f)
}

// Solve is the method form of the package-level Solve, honoring s's trace
// logger.
func (s *Solver[L]) Solve(a Analysis[L], f *cfg.Function) []L {
	n := len(f.Blocks)
	preds := make([][]int, n)
	for b, succs := range f.BlockExits {
		for _, succ := range succs {
			if succ < n {
				preds[succ] = append(preds[succ], b)
			}
		}
	}

	in := make([]L, n)
	out := make([]L, n)
	for b := 0; b < n; b++ {
		in[b] = a.Init(f)
		out[b] = a.Init(f)
	}

	worklist := make(map[int]bool, n)
	for b := 0; b < n; b++ {
		worklist[b] = true
	}

	for len(worklist) > 0 {
		var b int
		for k := range worklist {
			b = k
			break
		}
		delete(worklist, b)

		vals := make([]L, 0, len(preds[b])+1)
		for _, p := range preds[b] {
			vals = append(vals, out[p])
		}
		vals = append(vals, in[b])
		in[b] = a.Merge(vals)

		o := a.Transfer(f, b, in[b])
		if !o.Equal(out[b]) {
			s.trace.Printf("block %d out-fact changed", b)
			out[b] = o
			for _, succ := range f.BlockExits[b] {
				if succ < n {
					worklist[succ] = true
				}
			}
		}
	}

	return out
}
