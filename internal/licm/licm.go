// Package licm implements loop-invariant code motion: it combines
// reaching-definitions dataflow with dominance and natural-loop structure
// to decide which instructions are safe to hoist into a new preheader
// block ahead of each loop header.
package licm

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/bril-tools/brilopt/internal/analysis"
	"github.com/bril-tools/brilopt/internal/cfg"
	"github.com/bril-tools/brilopt/internal/dataflow"
	"github.com/bril-tools/brilopt/internal/ir"
)

// site is a (block, instr) pair used as a map key while marking
// loop-invariant and movable instructions.
type site struct {
	block, instr int
}

func (s site) less(o site) bool {
	if s.block != o.block {
		return s.block < o.block
	}
	return s.instr < o.instr
}

// Run clones f and, for every natural loop found in it, hoists every
// loop-invariant instruction proven safe to speculate into a new preheader
// block. The clone is mutated in place to splice in preheaders; callers
// receive the mutated clone. The input Function f is never modified.
//
// trace, if non-nil, receives a line per loop header describing how many
// instructions were found movable and hoisted; nil disables tracing.
func Run(f *cfg.Function, trace *log.Logger) *cfg.Function {
	if trace == nil {
		trace = log.New(io.Discard, "", 0)
	}

	out := f.Copy()

	doms := analysis.Dominators(out.BlockExits)
	domSets := make([]map[int]bool, len(doms))
	for i, d := range doms {
		domSets[i] = toSet(d)
	}

	defsAtEnd := dataflow.ReachingDefinitions{}.SolveWithTrace(out, trace)

	invLabelIndex := make(map[int]string, len(out.LabelIndex))
	for label, idx := range out.LabelIndex {
		invLabelIndex[idx] = label
	}

	for _, loop := range analysis.ExtractNaturalLoops(out.BlockExits) {
		loopSet := toSet(loop.Nodes)
		movable := findMovable(out, loopSet, defsAtEnd, domSets, trace)
		trace.Printf("loop header %d: %d instructions found loop-invariant and movable", loop.Header, len(movable))
		if len(movable) == 0 {
			continue
		}

		sites := make([]site, 0, len(movable))
		for s := range movable {
			sites = append(sites, s)
		}
		sort.Slice(sites, func(i, j int) bool { return sites[i].less(sites[j]) })

		instrs := make([]ir.Instruction, len(sites))
		for i, s := range sites {
			instrs[i] = out.Blocks[s.block][s.instr]
		}

		headerLabel := invLabelIndex[loop.Header]
		trace.Printf("hoisting %d instruction(s) into preheader of header %d (%s)", len(instrs), loop.Header, headerLabel)
		addPreheader(out, instrs, loop.Header, headerLabel)
	}

	return out
}

func toSet(vals []int) map[int]bool {
	s := make(map[int]bool, len(vals))
	for _, v := range vals {
		s[v] = true
	}
	return s
}

// findMovable computes the loop-invariant set, then narrows it to the
// subset that is safe to hoist into a preheader.
func findMovable(f *cfg.Function, loop map[int]bool, defsAtEnd []dataflow.ReachingDefsMap, domSets []map[int]bool, trace *log.Logger) map[site]bool {
	li := make(map[site]bool)

	// varUses[(defSite, varname)] = set of blocks that use varname as
	// defined at defSite, where defSite is inside the loop.
	type useKey struct {
		def  site
		name string
	}
	varUses := make(map[useKey]map[int]bool)

	changed := true
	for round := 0; changed; round++ {
		changed = false
		for blockID := range loop {
			block := f.Blocks[blockID]
			for instrID, instr := range block {
				if !ir.IsValueOp(instr) {
					continue
				}
				s := site{block: blockID, instr: instrID}
				if li[s] {
					continue
				}

				isLI := true
				for _, argname := range instr.Args {
					reaching := defsAtEnd[blockID][argname]
					var inLoopDefs []site
					for d := range reaching {
						if d.IsParam {
							continue
						}
						if loop[d.Block] {
							inLoopDefs = append(inLoopDefs, site{block: d.Block, instr: d.Instr})
						}
					}
					for _, d := range inLoopDefs {
						k := useKey{def: d, name: argname}
						if varUses[k] == nil {
							varUses[k] = make(map[int]bool)
						}
						varUses[k][blockID] = true
					}
					if len(inLoopDefs) > 0 && !allLI(li, inLoopDefs) {
						isLI = false
					}
				}

				if isLI {
					li[s] = true
					changed = true
				}
			}
		}
		trace.Printf("invariant-marking round %d: %d instructions marked loop-invariant so far", round, len(li))
	}

	movable := make(map[site]bool)
	for s := range li {
		varname := f.Blocks[s.block][s.instr].Dest
		uses := varUses[useKey{def: s, name: varname}]
		if len(uses) == 0 {
			continue // no recorded use inside the loop: pointless hoist
		}
		if !hoistSafe(f.Blocks[s.block][s.instr]) {
			continue
		}
		dominatesAllUses := true
		for usingBlock := range uses {
			if !domSets[usingBlock][s.block] {
				dominatesAllUses = false
				break
			}
		}
		if dominatesAllUses {
			movable[s] = true
		}
	}
	return movable
}

func allLI(li map[site]bool, sites []site) bool {
	for _, s := range sites {
		if !li[s] {
			return false
		}
	}
	return true
}

// hoistSafe reports whether instr may be evaluated speculatively, i.e.
// outside of its original control-flow position: it must carry no side
// effects and must not be capable of trapping (e.g. div).
func hoistSafe(instr ir.Instruction) bool {
	return !ir.CanHaveSideEffects(instr)
}

// addPreheader builds the preheader block named "__preheader_<headerLabel>"
// containing instrs (in ascending (block,instr) order — the callers
// already sorted them) followed by a jmp to the original header, then
// splices it into f: every existing jmp/br targeting the header is
// retargeted to the preheader, and any out-of-range sentinel successor
// equal to the pre-growth block count is bumped by one to stay in range
// once f.Blocks grows by one.
func addPreheader(f *cfg.Function, instrs []ir.Instruction, headerID int, headerLabel string) {
	oldLen := len(f.Blocks)
	for blockID, exits := range f.BlockExits {
		for i, exit := range exits {
			if exit == oldLen {
				f.BlockExits[blockID][i] = exit + 1
			}
		}
	}

	preheaderLabel := fmt.Sprintf("__preheader_%s", headerLabel)
	preheader := make([]ir.Instruction, 0, len(instrs)+2)
	preheader = append(preheader, ir.MkLabel(preheaderLabel))
	preheader = append(preheader, instrs...)
	preheader = append(preheader, ir.MkJmp(headerLabel))

	preheaderID := len(f.Blocks)
	for blockID, block := range f.Blocks {
		if len(block) == 0 {
			continue
		}
		last := block[len(block)-1]
		if !ir.IsTerminator(last) {
			continue
		}
		for i, label := range last.Labels {
			if label == headerLabel {
				last.Labels[i] = preheaderLabel
			}
		}
		f.Blocks[blockID][len(block)-1] = last
		for i, target := range f.BlockExits[blockID] {
			if target == headerID {
				f.BlockExits[blockID][i] = preheaderID
			}
		}
	}

	f.Blocks = append(f.Blocks, preheader)
	f.BlockExits = append(f.BlockExits, []int{headerID})
	f.LabelIndex[preheaderLabel] = preheaderID
}
