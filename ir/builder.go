package ir

// Builder constructs one Function's body: it mints fresh SSA names and
// appends instructions to whichever block is current, matching the
// append-only, frozen-after-verify construction lifecycle. A parser (or any
// other front-end) drives one Builder per function being built.
type Builder struct {
	fn  *Function
	cur *Block
}

// NewBuilder returns a Builder appending to fn. fn should already carry its
// Signature and Args; the builder only ever appends blocks/instructions.
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

// CreateBlock appends a new, empty block named name and makes it current.
// The first block created becomes the function's entry block.
func (b *Builder) CreateBlock(name string) *Block {
	blk := &Block{Name: name}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	b.cur = blk
	return blk
}

// SetBlock switches subsequent Insert calls to append to blk.
func (b *Builder) SetBlock(blk *Block) { b.cur = blk }

// CurrentBlock returns the block instructions are currently appended to.
func (b *Builder) CurrentBlock() *Block { return b.cur }

// mint allocates a fresh SSA variable of typ, scoped to the function.
func (b *Builder) mint(typ Type) Variable {
	return Variable{name: b.fn.mintName(), typ: typ}
}

// Mint allocates a fresh SSA variable of typ without appending any
// instruction. Front-ends use this to name formal arguments before the
// entry block exists.
func (b *Builder) Mint(typ Type) Variable { return b.mint(typ) }

// Insert appends inst to the current block. If inst defines a value and its
// Output is not already set, a fresh variable of outTyp is minted and
// assigned as inst.Output. Insert returns inst.Output (the zero Variable for
// instructions that define nothing).
func (b *Builder) Insert(inst *Instruction, outTyp Type) Variable {
	if !inst.Output.Valid() && !outTyp.IsVoid() {
		inst.Output = b.mint(outTyp)
	}
	b.cur.Append(inst)
	return inst.Output
}

// BinOp appends a binary arithmetic/bitwise instruction (Add, Sub, Mul, Div,
// Rem, And, Or, Xor, Shl, Shr) and returns its result.
func (b *Builder) BinOp(op Opcode, lhs, rhs Value) Variable {
	return b.Insert(&Instruction{Opcode: op, Operands: []Value{lhs, rhs}}, lhs.Type())
}

// Neg appends a unary negate.
func (b *Builder) Neg(v Value) Variable {
	return b.Insert(&Instruction{Opcode: OpNeg, Operands: []Value{v}}, v.Type())
}

// Cmp appends an integer/float comparison producing a U8 boolean result.
func (b *Builder) Cmp(pred Predicate, signed bool, lhs, rhs Value) Variable {
	return b.Insert(&Instruction{Opcode: OpCmp, Operands: []Value{lhs, rhs}, Predicate: pred, Signed: signed}, U8)
}

// Cast appends a ZExt/SExt/Trunc/IntToFP/FPToInt/Bitcast conversion of v to dst.
func (b *Builder) Cast(op Opcode, v Value, dst Type, signed bool) Variable {
	return b.Insert(&Instruction{Opcode: op, Operands: []Value{v}, AuxType: v.Type(), Signed: signed}, dst)
}

// Alloca reserves align-aligned stack storage for one value of typ and
// returns a pointer to it.
func (b *Builder) Alloca(typ Type, align int) Variable {
	return b.Insert(&Instruction{Opcode: OpAlloca, AuxType: typ, Align: align}, Ptr)
}

// Load reads one value of typ from ptr.
func (b *Builder) Load(ptr Value, typ Type) Variable {
	return b.Insert(&Instruction{Opcode: OpLoad, Operands: []Value{ptr}, AuxType: typ}, typ)
}

// Store writes val to ptr; stores define no value.
func (b *Builder) Store(ptr, val Value) {
	b.Insert(&Instruction{Opcode: OpStore, Operands: []Value{ptr, val}}, Void)
}

// GetElemPtr computes base + index*elemSize and loads one elemType value
// from the resulting address; the result is the loaded value, not the
// address (matching the fused address-compute-and-dereference contract
// §4.3 specifies for getelementptr).
func (b *Builder) GetElemPtr(base, index Value, elemSize int, elemType Type) Variable {
	return b.Insert(&Instruction{Opcode: OpGetElemPtr, Operands: []Value{base, index}, ElemSize: elemSize, AuxType: elemType}, elemType)
}

// ConstAddr appends out = address of the named module-level constant.
func (b *Builder) ConstAddr(name string) Variable {
	return b.Insert(&Instruction{Opcode: OpConstAddr, ConstName: name}, Ptr)
}

// Br appends an unconditional branch, terminating the current block.
func (b *Builder) Br(target string) {
	b.Insert(&Instruction{Opcode: OpBr, Target: target}, Void)
}

// BrCond appends a conditional branch, terminating the current block.
func (b *Builder) BrCond(cond Value, trueTarget, falseTarget string) {
	b.Insert(&Instruction{Opcode: OpBrCond, Operands: []Value{cond}, TrueTarget: trueTarget, FalseTarget: falseTarget}, Void)
}

// Switch appends a multi-way branch on scrutinee, terminating the current
// block.
func (b *Builder) Switch(scrutinee Value, cases []SwitchCase, def string) {
	b.Insert(&Instruction{Opcode: OpSwitch, Operands: []Value{scrutinee}, Cases: cases, Default: def}, Void)
}

// Ret appends a return, terminating the current block. Pass a nil val for a
// void return.
func (b *Builder) Ret(val Value) {
	inst := &Instruction{Opcode: OpRet}
	if val != nil {
		inst.Operands = []Value{val}
	}
	b.Insert(inst, Void)
}

// Call appends a call to callee with args, returning the result (the zero
// Variable if retType is Void).
func (b *Builder) Call(callee string, args []Value, retType Type) Variable {
	return b.Insert(&Instruction{Opcode: OpCall, Operands: args, Callee: callee}, retType)
}

// Phi appends a phi node merging one value per incoming predecessor, in the
// same order as incoming.
func (b *Builder) Phi(typ Type, incoming []string, values []Value) Variable {
	return b.Insert(&Instruction{Opcode: OpPhi, Operands: values, IncomingBlocks: incoming}, typ)
}

// Select appends out = cond != 0 ? ifTrue : ifFalse.
func (b *Builder) Select(cond, ifTrue, ifFalse Value) Variable {
	return b.Insert(&Instruction{Opcode: OpSelect, Operands: []Value{cond, ifTrue, ifFalse}}, ifTrue.Type())
}

// VecInsert inserts elem into vec at lane.
func (b *Builder) VecInsert(vec, elem Value, lane int) Variable {
	return b.Insert(&Instruction{Opcode: OpVecInsert, Operands: []Value{vec, elem}, Lane: lane}, vec.Type())
}

// VecExtract extracts the scalar at lane from vec.
func (b *Builder) VecExtract(vec Value, lane int) Variable {
	return b.Insert(&Instruction{Opcode: OpVecExtract, Operands: []Value{vec}, Lane: lane}, vec.Type().LaneType())
}

// DebugMarker appends a passive side-table reference; it defines nothing.
func (b *Builder) DebugMarker(line, col int) {
	b.Insert(&Instruction{Opcode: OpDebugMarker, DebugLine: line, DebugCol: col}, Void)
}

// Intrinsic appends a zero-argument query (stack pointer, frame pointer) or
// a debug trap.
func (b *Builder) Intrinsic(kind Intrinsic) Variable {
	typ := Ptr
	if kind == IntrinsicDebugTrap {
		typ = Void
	}
	return b.Insert(&Instruction{Opcode: OpIntrinsic, Intrinsic: kind}, typ)
}
