// Package ir defines the instruction and function data model this toolkit
// operates on: a small SSA-adjacent intermediate representation consisting
// of labeled instructions grouped into basic blocks.
package ir

// DefSite identifies a place in a Function where a value is defined: either
// a function parameter (by its 0-based index) or an in-function instruction
// (by block and instruction index). Modeled with an explicit IsParam flag
// rather than a nullable block index; note that the zero value is equal to
// InstrSite(0, 0).
type DefSite struct {
	IsParam bool
	Param   int
	Block   int
	Instr   int
}

// ParamSite builds the DefSite for the i'th function parameter.
func ParamSite(i int) DefSite { return DefSite{IsParam: true, Param: i} }

// InstrSite builds the DefSite for instruction instr of block b.
func InstrSite(b, instr int) DefSite { return DefSite{Block: b, Instr: instr} }

// Instruction is a tagged record over the three recognized instruction
// shapes: Label, Value-op (including const), and Effect-op. Fields that do
// not apply to a given shape are left at their zero value; Is* predicates
// below are the only sanctioned way to classify an instruction.
type Instruction struct {
	// Label is set only for label instructions.
	Label string `json:"label,omitempty"`

	// Op is the operator name. Empty for label instructions.
	Op string `json:"op,omitempty"`

	// Dest, present only on value-ops, is the destination variable name.
	Dest string `json:"dest,omitempty"`

	// Type, present only on value-ops, is the result type.
	Type string `json:"type,omitempty"`

	// Value, present only on const value-ops, is the literal value.
	Value interface{} `json:"value,omitempty"`

	// Args is the ordered argument-name list, present on value-ops
	// (except const) and optionally on effect-ops.
	Args []string `json:"args,omitempty"`

	// Labels is the ordered list of target label names, required on
	// terminator effect-ops (jmp, br).
	Labels []string `json:"labels,omitempty"`
}

// Operator names with special meaning: the terminators jmp and br, plus
// const, div and id.
const (
	OpJmp   = "jmp"
	OpBr    = "br"
	OpConst = "const"
	// OpDiv is the only operator this toolkit conservatively assumes can
	// trap; implementers extending CanHaveSideEffects to other
	// trap-capable operators (mod, loads) should add them alongside it.
	OpDiv = "div"
	OpID  = "id"
)

// IsLabel reports whether i is a label instruction.
func IsLabel(i Instruction) bool { return i.Label != "" }

// IsValueOp reports whether i has a destination, i.e. it produces a named
// result.
func IsValueOp(i Instruction) bool { return !IsLabel(i) && i.Dest != "" }

// IsEffectOp reports whether i is neither a label nor a value-op.
func IsEffectOp(i Instruction) bool { return !IsLabel(i) && !IsValueOp(i) }

// IsTerminator reports whether i is a control-transfer instruction.
func IsTerminator(i Instruction) bool { return i.Op == OpJmp || i.Op == OpBr }

// CanHaveSideEffects gates speculative hoisting: it is true for effect-ops
// and for value-ops whose operator is known to trap. At minimum div is
// trap-capable (divide by zero); extend this to any operator whose
// evaluation may abort or depend on machine state (modulo, loads, ...).
func CanHaveSideEffects(i Instruction) bool {
	if IsEffectOp(i) {
		return true
	}
	return i.Op == OpDiv
}

// MkLabel constructs a label instruction.
func MkLabel(name string) Instruction { return Instruction{Label: name} }

// MkJmp constructs an unconditional jump to target.
func MkJmp(target string) Instruction { return Instruction{Op: OpJmp, Labels: []string{target}} }

// Clone returns a deep copy of i; Args and Labels are copied, Value is
// copied by reference since literal values (numbers, strings, bools) are
// immutable in Go once decoded from JSON.
func (i Instruction) Clone() Instruction {
	c := i
	if i.Args != nil {
		c.Args = append([]string(nil), i.Args...)
	}
	if i.Labels != nil {
		c.Labels = append([]string(nil), i.Labels...)
	}
	return c
}

// Parameter is a named, typed function parameter.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
