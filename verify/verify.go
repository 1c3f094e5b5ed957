// Package verify checks that an *ir.Module satisfies the invariants every
// downstream component (register allocator, MI builder, target back-end)
// assumes without re-checking: definitions precede uses, types match across
// every use, each block ends in exactly one terminator, calls agree in
// arity and type with their callee, branch targets exist, and return types
// match the function signature.
package verify

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ironhold/ygen/ir"
)

// Kind names one of the checks §4.1 enumerates.
type Kind string

const (
	KindUseBeforeDef     Kind = "use-before-def"
	KindTypeMismatch     Kind = "type-mismatch"
	KindTerminator       Kind = "terminator"
	KindCallArity        Kind = "call-arity"
	KindUnknownTarget    Kind = "unknown-target"
	KindReturnType       Kind = "return-type"
	KindUnknownConstant  Kind = "unknown-constant"
	KindUnknownCallee    Kind = "unknown-callee"
	KindDuplicateBlock   Kind = "duplicate-block"
	KindMalformedPhi     Kind = "malformed-phi"
)

// Error is a located verification failure: which function, which block,
// which instruction index within it (-1 if the error isn't instruction-
// scoped), and which check failed.
type Error struct {
	Function    string
	Block       string
	Instruction int
	Kind        Kind
	Message     string
}

// Error implements error.
func (e *Error) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("verify: %s: function %s: %s", e.Kind, e.Function, e.Message)
	}
	if e.Instruction < 0 {
		return fmt.Sprintf("verify: %s: %s/%s: %s", e.Kind, e.Function, e.Block, e.Message)
	}
	return fmt.Sprintf("verify: %s: %s/%s#%d: %s", e.Kind, e.Function, e.Block, e.Instruction, e.Message)
}

func fail(fn, block string, idx int, kind Kind, format string, args ...any) error {
	return errors.WithStack(&Error{
		Function:    fn,
		Block:       block,
		Instruction: idx,
		Kind:        kind,
		Message:     fmt.Sprintf(format, args...),
	})
}

// Module verifies every defined function in m. It stops at the first error
// (abort-on-first-error, matching the framework's error-handling policy: no
// partial emission past an invalid module).
func Module(m *ir.Module) error {
	for _, fn := range m.Functions() {
		if fn.IsDeclaration() {
			continue
		}
		if err := Function(m, fn); err != nil {
			return err
		}
	}
	return nil
}

// Function verifies one function's body against m (for constant and callee
// lookups).
func Function(m *ir.Module, fn *ir.Function) error {
	if fn.IsDeclaration() {
		return nil
	}

	seenBlocks := make(map[string]bool, len(fn.Blocks))
	for _, blk := range fn.Blocks {
		if seenBlocks[blk.Name] {
			return fail(fn.Name, blk.Name, -1, KindDuplicateBlock, "block name %q reused within function", blk.Name)
		}
		seenBlocks[blk.Name] = true
	}

	defined := make(map[string]ir.Type, len(fn.Args))
	for _, a := range fn.Args {
		defined[a.Name()] = a.Type()
	}

	for _, blk := range fn.Blocks {
		if err := verifyBlock(m, fn, blk, defined, seenBlocks); err != nil {
			return err
		}
	}
	return nil
}

func verifyBlock(m *ir.Module, fn *ir.Function, blk *ir.Block, defined map[string]ir.Type, blocks map[string]bool) error {
	if len(blk.Instructions) == 0 {
		return fail(fn.Name, blk.Name, -1, KindTerminator, "block has no instructions, must end in a terminator")
	}
	for idx, inst := range blk.Instructions {
		isLast := idx == len(blk.Instructions)-1
		if inst.Opcode.IsTerminator() && !isLast {
			return fail(fn.Name, blk.Name, idx, KindTerminator, "terminator %s is not the block's last instruction", inst.Opcode)
		}
		if !inst.Opcode.IsTerminator() && isLast {
			return fail(fn.Name, blk.Name, idx, KindTerminator, "block does not end in a terminator")
		}

		for _, in := range inst.Inputs() {
			defTy, ok := defined[in.Name()]
			if !ok {
				return fail(fn.Name, blk.Name, idx, KindUseBeforeDef, "variable %s used before its definition", in)
			}
			if !defTy.Equal(in.Type()) {
				return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "variable %s used as %s but defined as %s", in, in.Type(), defTy)
			}
		}

		if err := verifyOperandTypes(fn, blk, idx, inst); err != nil {
			return err
		}

		switch inst.Opcode {
		case ir.OpBr:
			if err := requireTarget(fn, blk, idx, blocks, inst.Target); err != nil {
				return err
			}
		case ir.OpBrCond:
			if err := requireTarget(fn, blk, idx, blocks, inst.TrueTarget); err != nil {
				return err
			}
			if err := requireTarget(fn, blk, idx, blocks, inst.FalseTarget); err != nil {
				return err
			}
		case ir.OpSwitch:
			for _, c := range inst.Cases {
				if err := requireTarget(fn, blk, idx, blocks, c.Target); err != nil {
					return err
				}
			}
			if err := requireTarget(fn, blk, idx, blocks, inst.Default); err != nil {
				return err
			}
		case ir.OpRet:
			if err := verifyReturn(fn, blk, idx, inst); err != nil {
				return err
			}
		case ir.OpCall:
			if err := verifyCall(m, fn, blk, idx, inst); err != nil {
				return err
			}
		case ir.OpConstAddr:
			if _, ok := m.Constant(inst.ConstName); !ok {
				return fail(fn.Name, blk.Name, idx, KindUnknownConstant, "reference to undefined constant %q", inst.ConstName)
			}
		case ir.OpPhi:
			if len(inst.Operands) != len(inst.IncomingBlocks) {
				return fail(fn.Name, blk.Name, idx, KindMalformedPhi, "phi has %d operands but %d incoming blocks", len(inst.Operands), len(inst.IncomingBlocks))
			}
			for _, pred := range inst.IncomingBlocks {
				if err := requireTarget(fn, blk, idx, blocks, pred); err != nil {
					return err
				}
			}
		}

		if inst.Defines() {
			defined[inst.Output.Name()] = inst.Output.Type()
		}
	}
	return nil
}

func requireTarget(fn *ir.Function, blk *ir.Block, idx int, blocks map[string]bool, target string) error {
	if !blocks[target] {
		return fail(fn.Name, blk.Name, idx, KindUnknownTarget, "branch target %q is not a block in this function", target)
	}
	return nil
}

func verifyReturn(fn *ir.Function, blk *ir.Block, idx int, inst *ir.Instruction) error {
	ret := fn.Signature.Ret
	if ret.IsVoid() {
		if len(inst.Operands) != 0 {
			return fail(fn.Name, blk.Name, idx, KindReturnType, "void function returns a value")
		}
		return nil
	}
	if len(inst.Operands) != 1 {
		return fail(fn.Name, blk.Name, idx, KindReturnType, "non-void function must return exactly one value")
	}
	if !inst.Operands[0].Type().Equal(ret) {
		return fail(fn.Name, blk.Name, idx, KindReturnType, "return type %s does not match signature return type %s", inst.Operands[0].Type(), ret)
	}
	return nil
}

func verifyCall(m *ir.Module, fn *ir.Function, blk *ir.Block, idx int, inst *ir.Instruction) error {
	callee, ok := m.Function(inst.Callee)
	if !ok {
		return fail(fn.Name, blk.Name, idx, KindUnknownCallee, "call to undefined function %q", inst.Callee)
	}
	sig := callee.Signature
	if sig.Variadic {
		if len(inst.Operands) < len(sig.Args) {
			return fail(fn.Name, blk.Name, idx, KindCallArity, "call to %q passes %d arguments, variadic signature requires at least %d", inst.Callee, len(inst.Operands), len(sig.Args))
		}
	} else if len(inst.Operands) != len(sig.Args) {
		return fail(fn.Name, blk.Name, idx, KindCallArity, "call to %q passes %d arguments, signature has %d", inst.Callee, len(inst.Operands), len(sig.Args))
	}
	for i, argTy := range sig.Args {
		if !inst.Operands[i].Type().Equal(argTy) {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "call to %q argument %d has type %s, expected %s", inst.Callee, i, inst.Operands[i].Type(), argTy)
		}
	}
	if inst.Defines() && !inst.Output.Type().Equal(sig.Ret) {
		return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "call to %q result type %s does not match callee return type %s", inst.Callee, inst.Output.Type(), sig.Ret)
	}
	return nil
}

// verifyOperandTypes checks the opcode-specific type-matching rules that
// aren't already covered by call/return/branch handling above.
func verifyOperandTypes(fn *ir.Function, blk *ir.Block, idx int, inst *ir.Instruction) error {
	switch inst.Opcode {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem, ir.OpAnd, ir.OpOr, ir.OpXor:
		if len(inst.Operands) != 2 {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "%s takes exactly two operands", inst.Opcode)
		}
		if !inst.Operands[0].Type().Equal(inst.Operands[1].Type()) {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "%s operand types %s and %s do not match", inst.Opcode, inst.Operands[0].Type(), inst.Operands[1].Type())
		}
		if inst.Defines() && !inst.Output.Type().Equal(inst.Operands[0].Type()) {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "%s output type %s does not match operand type %s", inst.Opcode, inst.Output.Type(), inst.Operands[0].Type())
		}
	case ir.OpStore:
		if len(inst.Operands) != 2 {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "store takes a pointer and a value operand")
		}
		if !inst.Operands[0].Type().IsPointer() {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "store target is not a pointer")
		}
	case ir.OpLoad, ir.OpGetElemPtr:
		if len(inst.Operands) == 0 || !inst.Operands[0].Type().IsPointer() {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "%s base operand is not a pointer", inst.Opcode)
		}
	case ir.OpBrCond:
		if len(inst.Operands) != 1 {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "br_cond takes exactly one condition operand")
		}
	case ir.OpSelect:
		if len(inst.Operands) != 3 {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "select takes exactly three operands")
		}
		if !inst.Operands[1].Type().Equal(inst.Operands[2].Type()) {
			return fail(fn.Name, blk.Name, idx, KindTypeMismatch, "select arm types %s and %s do not match", inst.Operands[1].Type(), inst.Operands[2].Type())
		}
	}
	return nil
}
