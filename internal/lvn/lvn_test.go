package lvn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bril-tools/brilopt/internal/ir"
	"github.com/bril-tools/brilopt/internal/lvn"
)

// Two additions of the same operand pair collapse: the second becomes an
// id of the first's renamed destination, and the downstream mul picks up
// the canonical name on both operands.
func TestLVNRenamesAndCSEs(t *testing.T) {
	block := []ir.Instruction{
		{Op: "const", Dest: "a", Type: "int", Value: 4.0},
		{Op: "const", Dest: "b", Type: "int", Value: 2.0},
		{Op: "add", Dest: "s1", Type: "int", Args: []string{"a", "b"}},
		{Op: "add", Dest: "s2", Type: "int", Args: []string{"a", "b"}},
		{Op: "mul", Dest: "m", Type: "int", Args: []string{"s1", "s2"}},
		{Op: "print", Args: []string{"m"}},
	}

	out := lvn.Transform(block)

	want := []ir.Instruction{
		{Op: "const", Dest: "a__0", Type: "int", Value: 4.0},
		{Op: "const", Dest: "b__1", Type: "int", Value: 2.0},
		{Op: "add", Dest: "s1__2", Type: "int", Args: []string{"a__0", "b__1"}},
		{Op: "id", Dest: "s2__3", Type: "int", Args: []string{"s1__2"}},
		{Op: "mul", Dest: "m__4", Type: "int", Args: []string{"s1__2", "s1__2"}},
		{Op: "print", Args: []string{"m__4"}},
	}
	assert.Equal(t, want, out)
}

func TestLVNIsIdempotentOnStraightLineCode(t *testing.T) {
	block := []ir.Instruction{
		{Op: "const", Dest: "a", Type: "int", Value: 4.0},
		{Op: "const", Dest: "b", Type: "int", Value: 4.0},
		{Op: "add", Dest: "c", Type: "int", Args: []string{"a", "b"}},
		{Op: "print", Args: []string{"c"}},
	}
	once := lvn.Transform(block)
	twice := lvn.Transform(once)
	assert.Equal(t, once, twice)
}

func TestLVNFoldsDuplicateConstants(t *testing.T) {
	block := []ir.Instruction{
		{Op: "const", Dest: "a", Type: "int", Value: 4.0},
		{Op: "const", Dest: "b", Type: "int", Value: 4.0},
		{Op: "add", Dest: "c", Type: "int", Args: []string{"a", "b"}},
	}
	out := lvn.Transform(block)
	// b's const is a duplicate of a's value, so it becomes an id of a.
	assert.Equal(t, "id", out[1].Op)
	assert.Equal(t, []string{"a__0"}, out[1].Args)
	// c's add then references the canonical a__0 on both sides, not the
	// raw renamed b__1.
	assert.Equal(t, []string{"a__0", "a__0"}, out[2].Args)
}

func TestLVNDoesNotFoldEffectOps(t *testing.T) {
	block := []ir.Instruction{
		{Op: "const", Dest: "a", Type: "int", Value: 1.0},
		{Op: "print", Args: []string{"a"}},
		{Op: "print", Args: []string{"a"}},
	}
	out := lvn.Transform(block)
	assert.Equal(t, "print", out[1].Op)
	assert.Equal(t, "print", out[2].Op)
}
