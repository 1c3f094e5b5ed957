package ir

import (
	"fmt"
	"strings"
)

// Dump renders m as the textual IR grammar a parser collaborator would
// accept back (`define`/`declare`/`const`, block labels, one instruction per
// line), so repeated Dump(Parse(Dump(m))) round-trips are checkable even
// though this module implements only the Dump half.
func Dump(m *Module) string {
	var b strings.Builder
	for _, c := range m.Constants() {
		fmt.Fprintf(&b, "const %s %s = %s\n", c.Linkage, c.Name, dumpBytes(c.Bytes))
	}
	if len(m.Constants()) > 0 {
		b.WriteByte('\n')
	}
	funcs := m.Functions()
	for i, fn := range funcs {
		dumpFunction(&b, fn)
		if i < len(funcs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func dumpBytes(bs []byte) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, by := range bs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", by)
	}
	b.WriteByte(']')
	return b.String()
}

func dumpFunction(b *strings.Builder, fn *Function) {
	if fn.IsDeclaration() {
		types := make([]string, len(fn.Signature.Args))
		for i, t := range fn.Signature.Args {
			types[i] = t.String()
		}
		fmt.Fprintf(b, "declare %s @%s(%s)\n", fn.Signature.Ret, fn.Name, strings.Join(types, ", "))
		return
	}
	args := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		args[i] = fmt.Sprintf("%s %s", fn.Signature.Args[i], a)
	}
	fmt.Fprintf(b, "define %s %s @%s(%s) {\n", fn.Signature.Ret, fn.Linkage, fn.Name, strings.Join(args, ", "))
	for _, blk := range fn.Blocks {
		fmt.Fprintf(b, "%s:\n", blk.Name)
		for _, inst := range blk.Instructions {
			fmt.Fprintf(b, "  %s\n", formatInstruction(inst))
		}
	}
	b.WriteString("}\n")
}

// formatInstruction renders one instruction as `[%dst = ]opcode
// operands...` plus opcode-specific extras (a predicate, a cast's target
// type, an alloca's type and alignment, branch labels). No separate type
// token follows the opcode; a literal operand is printed with its own type,
// a variable operand by name only.
func formatInstruction(i *Instruction) string {
	var b strings.Builder
	if i.Defines() {
		fmt.Fprintf(&b, "%s = ", i.Output)
	}
	b.WriteString(i.Opcode.String())

	switch i.Opcode {
	case OpCmp:
		fmt.Fprintf(&b, " %s %s", i.Predicate, operandList(i.Operands))
	case OpZExt, OpSExt, OpTrunc, OpIntToFP, OpFPToInt, OpBitcast:
		fmt.Fprintf(&b, " %s to %s", operandList(i.Operands), i.Output.Type())
	case OpAlloca:
		fmt.Fprintf(&b, " %s, align %d", i.AuxType, i.Align)
	case OpGetElemPtr:
		fmt.Fprintf(&b, " %s, %s", operandList(i.Operands), i.AuxType)
	case OpConstAddr:
		fmt.Fprintf(&b, " @%s", i.ConstName)
	case OpBr:
		fmt.Fprintf(&b, " label %s", i.Target)
	case OpBrCond:
		fmt.Fprintf(&b, " %s, label %s, label %s", operandList(i.Operands), i.TrueTarget, i.FalseTarget)
	case OpSwitch:
		fmt.Fprintf(&b, " %s [", operandList(i.Operands))
		for j, c := range i.Cases {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: label %s", c.Value, c.Target)
		}
		fmt.Fprintf(&b, "], default label %s", i.Default)
	case OpRet:
		if len(i.Operands) > 0 {
			fmt.Fprintf(&b, " %s", operandList(i.Operands))
		}
	case OpCall:
		fmt.Fprintf(&b, " @%s(%s)", i.Callee, operandList(i.Operands))
	case OpPhi:
		for j, v := range i.Operands {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "[%s, %s]", v, i.IncomingBlocks[j])
		}
	case OpIntrinsic:
		fmt.Fprintf(&b, " %s", i.Intrinsic)
	case OpDebugMarker:
		fmt.Fprintf(&b, " line %d col %d", i.DebugLine, i.DebugCol)
	case OpVecInsert, OpVecExtract:
		fmt.Fprintf(&b, " %s, lane %d", operandList(i.Operands), i.Lane)
	default:
		if len(i.Operands) > 0 {
			fmt.Fprintf(&b, " %s", operandList(i.Operands))
		}
	}
	return b.String()
}

func operandList(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
