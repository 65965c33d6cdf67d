package licm_test

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bril-tools/brilopt/internal/cfg"
	"github.com/bril-tools/brilopt/internal/ir"
	"github.com/bril-tools/brilopt/internal/licm"
)

// buildCountingLoop constructs:
//
//	@main(n: int) {
//	  i: int = const 0;
//	  j: int = const 1;
//	  limit: int = const 10;
//	.loop:
//	  cond: bool = lt i limit;
//	  br cond .body .exit;
//	.body:
//	  incr: int = <incrOp> j limit;
//	  x: int = add i incr;
//	  print x;
//	  one: int = const 1;
//	  i: int = add i one;
//	  jmp .loop;
//	.exit:
//	  print i;
//	}
//
// incr never depends on anything redefined inside the loop, so it is
// loop-invariant and has a single, dominated use; the constant one is
// invariant too and is used by the increment of i, so it is hoisted as
// well. i and x are redefined (or depend on a redefinition) every
// iteration, so they stay put.
func buildCountingLoop(t *testing.T, incrOp string) *cfg.Function {
	t.Helper()
	instrs := []ir.Instruction{
		{Op: "const", Dest: "i", Type: "int", Value: 0.0},
		{Op: "const", Dest: "j", Type: "int", Value: 1.0},
		{Op: "const", Dest: "limit", Type: "int", Value: 10.0},
		ir.MkJmp("loop"),
		ir.MkLabel("loop"),
		{Op: "lt", Dest: "cond", Type: "bool", Args: []string{"i", "limit"}},
		{Op: "br", Args: []string{"cond"}, Labels: []string{"body", "exit"}},
		ir.MkLabel("body"),
		{Op: incrOp, Dest: "incr", Type: "int", Args: []string{"j", "limit"}},
		{Op: "add", Dest: "x", Type: "int", Args: []string{"i", "incr"}},
		{Op: "print", Args: []string{"x"}},
		{Op: "const", Dest: "one", Type: "int", Value: 1.0},
		{Op: "add", Dest: "i", Type: "int", Args: []string{"i", "one"}},
		ir.MkJmp("loop"),
		ir.MkLabel("exit"),
		{Op: "print", Args: []string{"i"}},
	}
	f, err := cfg.NewFunction("main", []ir.Parameter{{Name: "n", Type: "int"}}, instrs)
	require.NoError(t, err)
	return f
}

func TestLICMHoistsLoopInvariantAdd(t *testing.T) {
	f := buildCountingLoop(t, "add")
	out := licm.Run(f, nil)

	preheaderID, ok := out.LabelIndex["__preheader_loop"]
	require.True(t, ok, "expected a preheader block for .loop")
	preheader := out.Blocks[preheaderID]
	// label, incr, one, jmp
	require.Len(t, preheader, 4)
	assert.Equal(t, "loop", func() string {
		// last instruction must be a jmp into the original header.
		last := preheader[len(preheader)-1]
		return last.Labels[0]
	}())
	assert.Equal(t, "add", preheader[1].Op)
	assert.Equal(t, []string{"j", "limit"}, preheader[1].Args)

	// Hoisted instructions are copied into the preheader; the original incr
	// stays in the loop body.
	bodyID := out.LabelIndex["body"]
	var bodyHasIncr bool
	for _, instr := range out.Blocks[bodyID] {
		if instr.Dest == "incr" {
			bodyHasIncr = true
		}
	}
	assert.True(t, bodyHasIncr, "the original incr must remain in the loop body")

	// The entry block's jmp to .loop now targets the preheader instead.
	entryBlock := out.Blocks[0]
	entryJmp := entryBlock[len(entryBlock)-1]
	assert.Equal(t, []string{"__preheader_loop"}, entryJmp.Labels)
	assert.Equal(t, []int{preheaderID}, out.BlockExits[0])
}

func TestLICMDoesNotHoistTrapCapableDiv(t *testing.T) {
	f := buildCountingLoop(t, "div")
	out := licm.Run(f, nil)

	// The constant one is still hoisted, so a preheader exists, but it must
	// not contain the div.
	preheaderID, ok := out.LabelIndex["__preheader_loop"]
	require.True(t, ok, "expected a preheader block for .loop")
	for _, instr := range out.Blocks[preheaderID] {
		assert.NotEqual(t, "incr", instr.Dest, "div must not be hoisted since it can trap")
	}

	bodyID := out.LabelIndex["body"]
	var sawIncr bool
	for _, instr := range out.Blocks[bodyID] {
		if instr.Dest == "incr" {
			sawIncr = true
		}
	}
	assert.True(t, sawIncr, "incr must remain in the loop body")
}

func TestLICMLeavesFunctionWithoutLoopsUntouched(t *testing.T) {
	instrs := []ir.Instruction{
		{Op: "const", Dest: "a", Type: "int", Value: 1.0},
		{Op: "const", Dest: "b", Type: "int", Value: 2.0},
		{Op: "add", Dest: "c", Type: "int", Args: []string{"a", "b"}},
		{Op: "print", Args: []string{"c"}},
	}
	f, err := cfg.NewFunction("main", nil, instrs)
	require.NoError(t, err)

	out := licm.Run(f, nil)
	assert.Equal(t, instrs, out.ToInstrs())
}

func TestLICMTraceLogsInvariantMarkingRounds(t *testing.T) {
	f := buildCountingLoop(t, "add")
	var buf bytes.Buffer
	licm.Run(f, log.New(&buf, "", 0))
	assert.Contains(t, buf.String(), "loop-invariant")
}
