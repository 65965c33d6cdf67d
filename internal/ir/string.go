package ir

import (
	"fmt"
	"strings"
)

// String renders i as a single line, suitable for -pass print output and
// test failure messages.
func (i Instruction) String() string {
	switch {
	case IsLabel(i):
		return fmt.Sprintf(".%s:", i.Label)
	case IsValueOp(i):
		if i.Op == OpConst {
			return fmt.Sprintf("%s: %s = const %v", i.Dest, i.Type, i.Value)
		}
		return fmt.Sprintf("%s: %s = %s %s", i.Dest, i.Type, i.Op, strings.Join(i.Args, " "))
	default: // effect-op
		switch i.Op {
		case OpJmp:
			return fmt.Sprintf("jmp .%s", i.Labels[0])
		case OpBr:
			return fmt.Sprintf("br %s .%s .%s", i.Args[0], i.Labels[0], i.Labels[1])
		default:
			return fmt.Sprintf("%s %s", i.Op, strings.Join(i.Args, " "))
		}
	}
}
