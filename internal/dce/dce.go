// Package dce implements dead-code elimination: a global (function-level)
// pass that removes value-ops whose destination is never used anywhere in
// the function, and a local (block-level) pass that removes a value-op
// immediately shadowed by a later definition of the same destination with
// no intervening use. Both run to a fixed point.
package dce

import (
	"github.com/bril-tools/brilopt/internal/cfg"
	"github.com/bril-tools/brilopt/internal/ir"
)

// Run applies global DCE to fixed point, then local DCE to every block.
func Run(f *cfg.Function) *cfg.Function {
	optfunc := globalDCE(f)
	for i := range optfunc.Blocks {
		optfunc.Blocks[i] = localDCE(optfunc.Blocks[i])
	}
	return optfunc
}

// globalDCE iterates removal rounds until no candidate remains. In one pass
// over every instruction in block order, every arg reference marks its
// name used (and disqualifies it as a removal candidate for this round);
// a value-op whose destination has NOT yet been seen as used is recorded
// as a removal candidate, overwriting any earlier candidate for the same
// destination. The used-gate is essential: a definition used earlier in
// the same block's text (possible across a back-edge) must not be dropped
// just because its own instruction is scanned before the use is.
func globalDCE(f *cfg.Function) *cfg.Function {
	optfunc := cfg.FilterCopy(f, nil)
	for {
		candidates := make(map[string]cfg.Site)
		used := make(map[string]bool)

		for blockIdx, block := range optfunc.Blocks {
			for instrIdx, instr := range block {
				for _, arg := range instr.Args {
					used[arg] = true
					delete(candidates, arg)
				}
				if ir.IsValueOp(instr) && !used[instr.Dest] {
					candidates[instr.Dest] = cfg.Site{Block: blockIdx, Instr: instrIdx}
				}
			}
		}

		if len(candidates) == 0 {
			return optfunc
		}

		exclude := make(map[cfg.Site]bool, len(candidates))
		for _, site := range candidates {
			exclude[site] = true
		}
		optfunc = cfg.FilterCopy(optfunc, exclude)
	}
}

// localDCE iterates removal rounds on a single block until no candidate
// remains. candidates[d] tracks the index of d's last unread assignment;
// any arg reference drops its name from candidates (it has now been read),
// and a later value-op targeting a destination still in candidates marks
// the earlier index for removal.
func localDCE(block []ir.Instruction) []ir.Instruction {
	curr := block
	for {
		remove := make(map[int]bool)
		candidates := make(map[string]int)
		for idx, instr := range curr {
			for _, arg := range instr.Args {
				delete(candidates, arg)
			}
			if ir.IsValueOp(instr) {
				if prior, ok := candidates[instr.Dest]; ok {
					remove[prior] = true
				}
				candidates[instr.Dest] = idx
			}
		}
		if len(remove) == 0 {
			return curr
		}
		next := make([]ir.Instruction, 0, len(curr)-len(remove))
		for idx, instr := range curr {
			if !remove[idx] {
				next = append(next, instr)
			}
		}
		curr = next
	}
}
