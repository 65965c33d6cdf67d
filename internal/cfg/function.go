// Package cfg lowers a flat instruction list into basic blocks and computes
// successor edges, producing the Function that every analysis and
// transformation in this toolkit operates on.
package cfg

import (
	"fmt"

	"github.com/bril-tools/brilopt/internal/errs"
	"github.com/bril-tools/brilopt/internal/ir"
)

// Site identifies a single instruction within a Function's block
// decomposition, used to mark instructions for removal in FilterCopy.
type Site struct {
	Block int
	Instr int
}

// Function is an instruction stream lowered into basic blocks, with a
// label->block index and per-block successor lists. Functions are built
// once from an instruction list and then treated as read-only inputs to
// analyses; transformations return a new Function (Copy or FilterCopy)
// rather than mutating their input. LICM is the sole exception: it mutates
// the Function it just cloned.
type Function struct {
	Name   string
	Params []ir.Parameter

	// Blocks is the ordered block decomposition; each block is an ordered
	// instruction list.
	Blocks [][]ir.Instruction

	// LabelIndex maps a label name to the index of the block it heads.
	LabelIndex map[string]int

	// BlockExits[i] is the ordered list of successor block indices of
	// block i. A trailing sentinel block with no successors may exist so
	// every index referenced anywhere is in range (see buildCFG).
	BlockExits [][]int
}

// NewFunction builds a Function from a flat instruction list by
// partitioning it into basic blocks and computing the CFG.
func NewFunction(name string, params []ir.Parameter, instrs []ir.Instruction) (*Function, error) {
	blocks, labelIndex, err := makeBlocks(instrs)
	if err != nil {
		return nil, err
	}
	blocks, exits, err := buildCFG(blocks, labelIndex)
	if err != nil {
		return nil, err
	}
	return &Function{Name: name, Params: params, Blocks: blocks, LabelIndex: labelIndex, BlockExits: exits}, nil
}

// makeBlocks partitions instrs into basic blocks, scanning left to right
// and closing the current block whenever a label or a terminator is seen.
func makeBlocks(instrs []ir.Instruction) ([][]ir.Instruction, map[string]int, error) {
	var blocks [][]ir.Instruction
	labelIndex := make(map[string]int)

	var curr []ir.Instruction
	for _, instr := range instrs {
		if !ir.IsLabel(instr) {
			curr = append(curr, instr)
		}

		if ir.IsLabel(instr) || ir.IsTerminator(instr) {
			if len(curr) > 0 {
				blocks = append(blocks, curr)
				curr = nil
			}
			if ir.IsLabel(instr) {
				if _, exists := labelIndex[instr.Label]; exists {
					return nil, nil, errs.NewMalformedIR("duplicate label %q", instr.Label)
				}
				labelIndex[instr.Label] = len(blocks)
				// Keep the label as the first instruction of its block so
				// flattening the blocks back out reproduces instrs.
				curr = append(curr, instr)
			}
		}
	}
	if len(curr) > 0 {
		blocks = append(blocks, curr)
	}
	return blocks, labelIndex, nil
}

// buildCFG computes successor indices for each block. A block ending in a
// terminator exits to its labels' blocks, in order; otherwise it falls
// through to the next block. If the final block falls through, its
// fall-through index is out of range (len(blocks)); an empty sentinel
// block is appended to both blocks and exits so every successor index
// stays in range and BlockExits remains parallel to Blocks.
func buildCFG(blocks [][]ir.Instruction, labelIndex map[string]int) ([][]ir.Instruction, [][]int, error) {
	exits := make([][]int, 0, len(blocks))
	for i, block := range blocks {
		last := block[len(block)-1]
		if ir.IsTerminator(last) {
			targets := make([]int, 0, len(last.Labels))
			for _, label := range last.Labels {
				idx, ok := labelIndex[label]
				if !ok {
					return nil, nil, &errs.MalformedIR{Reason: fmt.Sprintf("terminator in block %d references undefined label %q", i, label)}
				}
				targets = append(targets, idx)
			}
			exits = append(exits, targets)
		} else {
			exits = append(exits, []int{i + 1})
		}
	}
	if len(exits) > 0 && len(exits[len(exits)-1]) == 1 && exits[len(exits)-1][0] == len(blocks) {
		blocks = append(blocks, nil)
		exits = append(exits, []int{})
	}
	return blocks, exits, nil
}

// ToInstrs flattens f's blocks back into a single instruction list, in
// order, preserving label instructions at block heads. The trailing
// sentinel block, if any, is empty and contributes nothing.
func (f *Function) ToInstrs() []ir.Instruction {
	var out []ir.Instruction
	for _, block := range f.Blocks {
		out = append(out, block...)
	}
	return out
}

// Copy returns a deep clone of f.
func (f *Function) Copy() *Function {
	return FilterCopy(f, nil)
}

// FilterCopy produces a deep clone of other, omitting instructions whose
// (block, instr) Site is in exclude. Block boundaries are preserved: an
// excluded instruction leaves its block shorter, never removes the block
// itself. This is the primitive dead-code elimination builds on.
func FilterCopy(other *Function, exclude map[Site]bool) *Function {
	blocks := make([][]ir.Instruction, len(other.Blocks))
	for bi, block := range other.Blocks {
		var b []ir.Instruction
		for ii, instr := range block {
			if exclude != nil && exclude[Site{Block: bi, Instr: ii}] {
				continue
			}
			b = append(b, instr.Clone())
		}
		blocks[bi] = b
	}

	labelIndex := make(map[string]int, len(other.LabelIndex))
	for k, v := range other.LabelIndex {
		labelIndex[k] = v
	}

	exits := make([][]int, len(other.BlockExits))
	for i, e := range other.BlockExits {
		exits[i] = append([]int(nil), e...)
	}

	params := append([]ir.Parameter(nil), other.Params...)

	return &Function{Name: other.Name, Params: params, Blocks: blocks, LabelIndex: labelIndex, BlockExits: exits}
}
