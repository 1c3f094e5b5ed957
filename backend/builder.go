package backend

import (
	"github.com/pkg/errors"

	"github.com/ironhold/ygen/cfg"
	"github.com/ironhold/ygen/ir"
	"github.com/ironhold/ygen/regalloc"
	"github.com/ironhold/ygen/target"
)

// Block is one lowered basic block: its label and the MI stream between it
// and the next label.
type Block struct {
	Name string
	MIs  []MI
}

// Function is one function's MI stream, ready for a target back-end to
// expand into concrete instructions.
type Function struct {
	Name      string
	Blocks    []Block
	IsLeaf    bool
	StackSize int

	// Source is the *ir.Function this MI stream was built from. A target
	// back-end's peephole pass uses it (via cfg.BranchesTo) to tell a
	// phi-resolution copy sitting on a loop back edge from a genuine dead
	// move; nil when a Function is built by hand rather than via Build
	// (unit tests exercising the MI layer directly have no IR to point to).
	Source *ir.Function
}

// Build lowers fn's verified IR into an MI stream, consulting alloc for
// variable locations and conv for argument/return placement and callee-
// saved registers. order is the block visitation order (cfg.Layout's
// output); fn.Blocks themselves are not reordered, only walked in this
// order when lowering.
func Build(fn *ir.Function, alloc *regalloc.Allocation, order []string, conv target.CallingConvention) (*Function, error) {
	blocks := make(map[string]*ir.Block, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blocks[b.Name] = b
	}

	phisOf := make(map[string][]*ir.Instruction)
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Opcode == ir.OpPhi {
				phisOf[b.Name] = append(phisOf[b.Name], inst)
			}
		}
	}

	out := &Function{Name: fn.Name, Source: fn, IsLeaf: cfg.IsLeaf(fn), StackSize: alloc.StackSize}

	b := &builder{fn: fn, alloc: alloc, conv: conv, phisOf: phisOf, blocks: blocks}
	b.allocaOffset = make(map[string]int)
	b.allocaCursor = alloc.StackSize

	for i, name := range order {
		blk, ok := blocks[name]
		if !ok {
			return nil, errors.Errorf("backend: layout names unknown block %q", name)
		}
		mi := Block{Name: name}
		b.cur = &mi
		b.curName = name
		if i == 0 {
			b.emit(MI{Opcode: MIPrologue})
		}
		if err := b.lowerBlock(blk, name); err != nil {
			return nil, errors.Wrapf(err, "backend: %s/%s", fn.Name, name)
		}
		out.Blocks = append(out.Blocks, mi)
	}
	out.StackSize = b.allocaCursor
	return out, nil
}

type builder struct {
	fn      *ir.Function
	alloc   *regalloc.Allocation
	conv    target.CallingConvention
	phisOf  map[string][]*ir.Instruction
	blocks  map[string]*ir.Block
	cur      *Block
	curName  string
	curIndex int

	allocaOffset map[string]int
	allocaCursor int
}

func (b *builder) emit(m MI) { b.cur.MIs = append(b.cur.MIs, m) }

func (b *builder) locOf(v ir.Value) Operand {
	if lit, ok := v.(ir.Literal); ok {
		return Imm(lit.Int64())
	}
	vr := v.(ir.Variable)
	loc, ok := b.alloc.Locations[vr.Name()]
	if !ok {
		panic("BUG: verifier should have rejected a use of an unallocated variable: " + vr.Name())
	}
	return Loc(loc)
}

func meta(t ir.Type) MetaType {
	return MetaType{Bits: t.BitSize(), Signed: t.IsSigned(), Float: t.IsFloat()}
}

func (b *builder) lowerBlock(blk *ir.Block, name string) error {
	for idx, inst := range blk.Instructions {
		b.curIndex = idx
		if err := b.lowerInst(inst); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) lowerInst(inst *ir.Instruction) error {
	switch inst.Opcode {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpShr:
		dst := b.locOf(inst.Output)
		b.emit(MI{Opcode: MIMove, Meta: meta(inst.Output.Type()), Operands: []Operand{dst, b.locOf(inst.Operands[0])}})
		b.emit(MI{Opcode: arithOpcode(inst.Opcode), Meta: meta(inst.Output.Type()), Operands: []Operand{dst, b.locOf(inst.Operands[1])}})

	case ir.OpNeg:
		dst := b.locOf(inst.Output)
		b.emit(MI{Opcode: MIMove, Meta: meta(inst.Output.Type()), Operands: []Operand{dst, b.locOf(inst.Operands[0])}})
		b.emit(MI{Opcode: MINeg, Meta: meta(inst.Output.Type()), Operands: []Operand{dst}})

	case ir.OpCmp:
		b.lowerCmp(inst)

	case ir.OpZExt, ir.OpSExt, ir.OpTrunc, ir.OpBitcast, ir.OpIntToFP, ir.OpFPToInt:
		dst := b.locOf(inst.Output)
		m := meta(inst.Output.Type())
		m.Signed = inst.Signed
		b.emit(MI{Opcode: MIMove, Meta: m, Operands: []Operand{dst, b.locOf(inst.Operands[0])}})

	case ir.OpAlloca:
		dst := b.locOf(inst.Output)
		off := b.frameSlot(inst.Output.Name(), inst.AuxType.ByteSize(), inst.Align)
		b.emit(MI{Opcode: MIAdrLoad, Meta: meta(ir.Ptr), Operands: []Operand{dst, FrameMem(int64(-off))}})

	case ir.OpLoad:
		dst := b.locOf(inst.Output)
		base := locationOf(b.locOf(inst.Operands[0]))
		b.emit(MI{Opcode: MILoad, Meta: meta(inst.AuxType), Operands: []Operand{dst, Mem(base, regalloc.Location{}, 0, 0)}})

	case ir.OpStore:
		base := locationOf(b.locOf(inst.Operands[0]))
		b.emit(MI{Opcode: MIStore, Meta: meta(inst.Operands[1].Type()), Operands: []Operand{Mem(base, regalloc.Location{}, 0, 0), b.locOf(inst.Operands[1])}})

	case ir.OpGetElemPtr:
		// Move(index) -> Mul(elem_size) -> Add(base) -> Load: four MIs,
		// since the two-operand Mul needs the index copied into dst first.
		// dst holds the index, then the scaled index, then the address,
		// then the loaded element.
		dst := b.locOf(inst.Output)
		base := locationOf(b.locOf(inst.Operands[0]))
		b.emit(MI{Opcode: MIMove, Meta: meta(ir.I64), Operands: []Operand{dst, b.locOf(inst.Operands[1])}})
		b.emit(MI{Opcode: MIMul, Meta: meta(ir.I64), Operands: []Operand{dst, Imm(int64(inst.ElemSize))}})
		b.emit(MI{Opcode: MIAdd, Meta: meta(ir.Ptr), Operands: []Operand{dst, Loc(base)}})
		b.emit(MI{Opcode: MILoad, Meta: meta(inst.AuxType), Operands: []Operand{dst, Mem(locationOf(dst), regalloc.Location{}, 0, 0)}})

	case ir.OpConstAddr:
		dst := b.locOf(inst.Output)
		b.emit(MI{Opcode: MIAdrLoad, Meta: meta(ir.Ptr), Operands: []Operand{dst, Sym(inst.ConstName)}})

	case ir.OpBr:
		b.movePhisFor(inst.Target, b.curName)
		b.emit(MI{Opcode: MIBr, Operands: []Operand{Label(inst.Target)}})

	case ir.OpBrCond:
		// Phi moves for each successor are emitted unconditionally ahead
		// of the branch rather than split onto their own edge blocks:
		// since a phi's own output location is never read by the other
		// successor's phis, both moves are safe to execute regardless of
		// which way the branch goes (a critical-edge split would still be
		// needed if a later peephole pass started reusing registers
		// across these moves, which none here does).
		b.movePhisFor(inst.TrueTarget, b.curName)
		b.movePhisFor(inst.FalseTarget, b.curName)
		b.emit(MI{Opcode: MICompare, Predicate: PredNotEqual, Operands: []Operand{b.locOf(inst.Operands[0]), Imm(0)}})
		b.emit(MI{Opcode: MIBrCond, Predicate: PredNotEqual, Operands: []Operand{Label(inst.TrueTarget), Label(inst.FalseTarget)}})

	case ir.OpSwitch:
		for _, c := range inst.Cases {
			b.movePhisFor(c.Target, b.curName)
		}
		b.movePhisFor(inst.Default, b.curName)
		cases := make([]SwitchCase, len(inst.Cases))
		for i, c := range inst.Cases {
			cases[i] = SwitchCase{Value: c.Value.Int64(), Target: c.Target}
		}
		b.emit(MI{Opcode: MISwitch, Operands: []Operand{b.locOf(inst.Operands[0])}, Cases: cases, Default: inst.Default})
		b.emit(MI{Opcode: MIBr, Operands: []Operand{Label(inst.Default)}})

	case ir.OpRet:
		if len(inst.Operands) == 1 {
			class, reg := b.conv.Return(inst.Operands[0].Type())
			b.emit(MI{Opcode: MIMove, Meta: meta(inst.Operands[0].Type()), Operands: []Operand{Loc(regalloc.Reg(class, reg)), b.locOf(inst.Operands[0])}})
		}
		b.emit(MI{Opcode: MIEpilogue})
		b.emit(MI{Opcode: MIReturn})

	case ir.OpCall:
		return b.lowerCall(inst)

	case ir.OpPhi:
		// resolved by predecessor-edge moves in OpBr/OpBrCond/OpSwitch.

	case ir.OpSelect:
		dst := b.locOf(inst.Output)
		b.emit(MI{Opcode: MIMove, Meta: meta(inst.Output.Type()), Operands: []Operand{dst, b.locOf(inst.Operands[2])}})
		b.emit(MI{Opcode: MICompare, Predicate: PredNotEqual, Operands: []Operand{b.locOf(inst.Operands[0]), Imm(0)}})
		b.emit(MI{Opcode: MICondMove, Predicate: PredNotEqual, Operands: []Operand{dst, b.locOf(inst.Operands[1])}})

	case ir.OpVecInsert, ir.OpVecExtract, ir.OpDebugMarker, ir.OpIntrinsic:
		// Vector lane ops, debug markers, and intrinsics are expanded
		// directly by the target back-end from the IR instruction (they
		// need target-specific encodings with no useful MI-level common
		// shape); the MI builder passes them through untouched.

	default:
		return errors.Errorf("backend: unhandled opcode %s", inst.Opcode)
	}
	return nil
}

func arithOpcode(op ir.Opcode) MIOpcode {
	switch op {
	case ir.OpAdd:
		return MIAdd
	case ir.OpSub:
		return MISub
	case ir.OpMul:
		return MIMul
	case ir.OpDiv:
		return MIDiv
	case ir.OpRem:
		return MIRem
	case ir.OpAnd:
		return MIAnd
	case ir.OpOr:
		return MIOr
	case ir.OpXor:
		return MIXor
	case ir.OpShl:
		return MIShl
	case ir.OpShr:
		return MIShr
	default:
		panic("BUG: arithOpcode called with a non-arithmetic opcode")
	}
}

func (b *builder) lowerCmp(inst *ir.Instruction) {
	dst := b.locOf(inst.Output)
	b.emit(MI{Opcode: MICompare, Meta: MetaType{Bits: inst.Operands[0].Type().BitSize(), Signed: inst.Signed, Float: inst.Operands[0].Type().IsFloat()}, Predicate: predicateOf(inst.Predicate), Operands: []Operand{b.locOf(inst.Operands[0]), b.locOf(inst.Operands[1])}})
	b.emit(MI{Opcode: MIMove, Meta: meta(ir.U8), Operands: []Operand{dst, Imm(0)}})
	b.emit(MI{Opcode: MICondMove, Predicate: predicateOf(inst.Predicate), Operands: []Operand{dst, Imm(1)}})
}

func predicateOf(p ir.Predicate) Predicate {
	switch p {
	case ir.PredEqual:
		return PredEqual
	case ir.PredNotEqual:
		return PredNotEqual
	case ir.PredLessThan:
		return PredLessThan
	case ir.PredLessEqual:
		return PredLessEqual
	case ir.PredGreaterThan:
		return PredGreaterThan
	case ir.PredGreaterEqual:
		return PredGreaterEqual
	default:
		panic("BUG: invalid predicate reached the MI builder")
	}
}

// frameSlot assigns (once per key) a frame-pointer-relative offset,
// distinct from the register allocator's own spill area: this is for
// values regalloc never assigns a location itself, namely an alloca's
// address and a caller-saved register's save slot across a call.
func (b *builder) frameSlot(name string, size, align int) int {
	if off, ok := b.allocaOffset[name]; ok {
		return off
	}
	if align < 1 {
		align = 1
	}
	if rem := b.allocaCursor % align; rem != 0 {
		b.allocaCursor += align - rem
	}
	b.allocaCursor += size
	b.allocaOffset[name] = b.allocaCursor
	return b.allocaCursor
}

func locationOf(op Operand) regalloc.Location {
	if op.Kind == OperandLocation {
		return op.Loc
	}
	return regalloc.Location{}
}

// movePhisFor emits, ahead of a branch to target, one Move per phi in the
// target block whose incoming value comes from from.
func (b *builder) movePhisFor(target, from string) {
	for _, phi := range b.phisOf[target] {
		for i, pred := range phi.IncomingBlocks {
			if pred != from {
				continue
			}
			dst := b.locOf(phi.Output)
			b.emit(MI{Opcode: MIMove, Meta: meta(phi.Output.Type()), Operands: []Operand{dst, b.locOf(phi.Operands[i])}})
		}
	}
}

func (b *builder) lowerCall(inst *ir.Instruction) error {
	type stackArg struct {
		val    ir.Value
		offset int64
	}
	var stackArgs []stackArg
	offset := int64(b.conv.ShadowSpace())
	for i, arg := range inst.Operands {
		class, reg, onStack := b.conv.Argument(i, arg.Type())
		if onStack {
			stackArgs = append(stackArgs, stackArg{val: arg, offset: offset})
			offset += 8
			continue
		}
		b.emit(MI{Opcode: MIMove, Meta: meta(arg.Type()), Operands: []Operand{Loc(regalloc.Reg(class, reg)), b.locOf(arg)}})
	}
	// Right-to-left: each slot's address is fixed regardless of emission
	// order, but the last argument is stored first, matching the order a
	// real push-based call sequence would use.
	for i := len(stackArgs) - 1; i >= 0; i-- {
		sa := stackArgs[i]
		b.emit(MI{Opcode: MIStore, Meta: meta(sa.val.Type()), Operands: []Operand{ArgMem(sa.offset), b.locOf(sa.val)}})
	}

	saves := b.callerSaveSpills(inst)
	for _, s := range saves {
		b.emit(MI{Opcode: MIStore, Meta: MetaType{Bits: s.size * 8}, Operands: []Operand{FrameMem(int64(-s.slot)), Loc(s.loc)}})
	}

	b.emit(MI{Opcode: MICall, Operands: []Operand{Sym(inst.Callee)}})

	if inst.Defines() {
		class, reg := b.conv.Return(inst.Output.Type())
		dst := b.locOf(inst.Output)
		b.emit(MI{Opcode: MIMove, Meta: meta(inst.Output.Type()), Operands: []Operand{dst, Loc(regalloc.Reg(class, reg))}})
	}

	for _, s := range saves {
		b.emit(MI{Opcode: MILoad, Meta: MetaType{Bits: s.size * 8}, Operands: []Operand{Loc(s.loc), FrameMem(int64(-s.slot))}})
	}
	return nil
}

type callerSave struct {
	loc  regalloc.Location
	size int
	slot int
}

// callerSaveSpills looks up the liveness snapshot the allocator recorded
// for this call and returns the register-resident values the callee is
// free to clobber (anything not in conv's callee-saved list), each
// assigned a fresh frame slot to spill into across the call.
func (b *builder) callerSaveSpills(inst *ir.Instruction) []callerSave {
	key := regalloc.SnapshotKey{Block: b.curName, Index: b.curIndex}
	live := b.alloc.Snapshots[key]
	var saves []callerSave
	for _, lv := range live {
		if lv.Location.OnStack || b.conv.IsCalleeSaved(lv.Location.Class, lv.Location.Reg) {
			continue
		}
		slot := b.frameSlot("callspill$"+lv.Name, 8, 8)
		saves = append(saves, callerSave{loc: lv.Location, size: 8, slot: slot})
	}
	return saves
}
