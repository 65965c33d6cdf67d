// Package lvn implements local value numbering: per-block variable
// renaming followed by common-subexpression elimination via a value-keyed
// cache.
package lvn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bril-tools/brilopt/internal/ir"
)

// valEntry is one row of the value table: key identifies the computation,
// canonicalVar is the variable name it was first bound to.
type valEntry struct {
	key          string
	canonicalVar string
}

// Transform runs LVN on a single basic block and returns the rewritten
// block. It is pure on its input: block is never mutated in place.
func Transform(block []ir.Instruction) []ir.Instruction {
	renamed := renameVars(block)

	var valtable []valEntry // index is the value number
	env := make(map[string]int)
	valindex := make(map[string]int)

	out := make([]ir.Instruction, 0, len(renamed))
	for _, instr := range renamed {
		if !ir.IsValueOp(instr) {
			out = append(out, instr)
			continue
		}

		key, nums := valueKey(env, instr)
		if num, hit := valindex[key]; hit {
			env[instr.Dest] = num
			out = append(out, idOp(valtable[num].canonicalVar, instr.Dest, instr.Type))
			continue
		}

		num := len(valtable)
		valtable = append(valtable, valEntry{key: key, canonicalVar: instr.Dest})
		valindex[key] = num
		env[instr.Dest] = num
		out = append(out, reconstruct(valtable, instr, nums))
	}
	return out
}

// renameVars walks block left to right, rewriting every value-op
// destination to "<dest>__<idx>" and rewriting every argument reference to
// the most-recent rename of that name. This guarantees every definition in
// the block has a block-unique name before value numbering begins. A
// destination that already ends in "__<idx>" for its own index is kept as
// is, so running LVN on its own output does not rename again.
func renameVars(block []ir.Instruction) []ir.Instruction {
	curr := make(map[string]string)
	out := make([]ir.Instruction, len(block))
	for idx, instr := range block {
		c := instr.Clone()
		if ir.IsValueOp(c) {
			renamedDest := fmt.Sprintf("%s__%d", c.Dest, idx)
			if strings.HasSuffix(c.Dest, fmt.Sprintf("__%d", idx)) {
				renamedDest = c.Dest
			}
			curr[c.Dest] = renamedDest
			c.Dest = renamedDest
		}
		if c.Args != nil {
			args := make([]string, len(c.Args))
			for i, a := range c.Args {
				if r, ok := curr[a]; ok {
					args[i] = r
				} else {
					args[i] = a
				}
			}
			c.Args = args
		}
		out[idx] = c
	}
	return out
}

// valueKey computes the key identifying instr's computed value, plus the
// per-arg value numbers the key encodes (nil for const): for const it is
// (op, canonical-literal-text); for any other value-op it is
// (op, valnum(arg1), valnum(arg2), ...) in positional order, with no
// commutativity normalization. A missing env entry for an argument
// indicates a variable used before being defined in this block; LVN is
// only ever invoked on blocks internal/cfg has already validated, so this
// does not occur on well-formed input.
func valueKey(env map[string]int, instr ir.Instruction) (string, []int) {
	if instr.Op == ir.OpConst {
		return "const:" + canonicalLiteral(instr.Value), nil
	}
	nums := make([]int, len(instr.Args))
	for i, a := range instr.Args {
		nums[i] = env[a]
	}
	parts := make([]string, len(nums)+1)
	parts[0] = instr.Op
	for i, n := range nums {
		parts[i+1] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ":"), nums
}

// canonicalLiteral renders a literal value (as decoded from the IR's JSON
// `value` field) into a stable textual form suitable for use in a value
// key. Float64 values are formatted with strconv's shortest round-trip
// representation so two JSON literals that decode to the same float64
// always produce the same key, regardless of which decimal text produced
// them.
func canonicalLiteral(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// idOp builds the `id` instruction LVN emits for a redundant computation:
// an alias of the canonical variable already holding the value.
func idOp(canonicalVar, dest, typ string) ir.Instruction {
	return ir.Instruction{Op: ir.OpID, Dest: dest, Type: typ, Args: []string{canonicalVar}}
}

// reconstruct rebuilds a freshly-cached value-op with its args rewritten to
// the canonical variable of each operand's value number. This, not the raw
// renamed argument name, is what later instructions must reference so that
// a chain of CSE hits collapses onto a single representative variable.
func reconstruct(valtable []valEntry, instr ir.Instruction, nums []int) ir.Instruction {
	if instr.Op == ir.OpConst {
		return instr
	}
	c := instr.Clone()
	args := make([]string, len(nums))
	for i, n := range nums {
		args[i] = valtable[n].canonicalVar
	}
	c.Args = args
	return c
}
