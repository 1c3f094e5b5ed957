package ir

// Opcode identifies the operation an Instruction performs.
type Opcode uint16

const (
	_ Opcode = iota

	// Arithmetic. Binary: out = lhs <op> rhs. Neg is unary.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg

	// Bitwise. Binary, except Shl/Shr which take (value, shift-amount).
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr

	// OpCmp computes a six-predicate integer/float comparison; Predicate
	// names which one. Always produces a byte-class integer result.
	OpCmp

	// Casts.
	OpZExt     // zero-extend
	OpSExt     // sign-extend
	OpTrunc    // truncate to a narrower integer
	OpIntToFP  // signed/unsigned int -> float, per the instruction's Signed flag
	OpFPToInt  // float -> signed/unsigned int, per the instruction's Signed flag
	OpBitcast  // reinterpret bits, same width

	// Memory.
	OpAlloca // reserve AuxType-sized, Align-aligned stack storage; output is a ptr
	OpLoad
	OpStore
	OpGetElemPtr // out = the AuxType value loaded from Operands[0] + Operands[1]*ElemSize
	OpConstAddr  // out = address of the named module-level Constant, ptr-typed

	// Control. Terminators: Br, BrCond, Switch, Ret.
	OpBr
	OpBrCond
	OpSwitch
	OpRet

	// OpCall invokes Callee with Inputs as arguments; Output is set unless
	// the callee returns void.
	OpCall

	// OpPhi merges Inputs, one per entry in IncomingBlocks (same order),
	// each valid along the matching predecessor edge.
	OpPhi

	// OpSelect: out = Inputs[0] != 0 ? Inputs[1] : Inputs[2].
	OpSelect

	// Vector.
	OpVecInsert // out = insert Inputs[1] into Inputs[0] at Lane
	OpVecExtract

	// OpDebugMarker carries a DebugLoc side-table reference and produces
	// no value; it is a no-op to every pass except a line-table exporter.
	OpDebugMarker

	// Intrinsics: OpIntrinsic with Intrinsic naming the operation. All are
	// NullAry producing a ptr-typed output (stack pointer, frame pointer)
	// or are a debug trap (void, no output).
	OpIntrinsic
)

//go:generate stringer -type=Opcode

// String implements fmt.Stringer.
func (o Opcode) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpRem:
		return "rem"
	case OpNeg:
		return "neg"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpShl:
		return "shl"
	case OpShr:
		return "shr"
	case OpCmp:
		return "cmp"
	case OpZExt:
		return "zext"
	case OpSExt:
		return "sext"
	case OpTrunc:
		return "trunc"
	case OpIntToFP:
		return "inttofp"
	case OpFPToInt:
		return "fptoint"
	case OpBitcast:
		return "bitcast"
	case OpAlloca:
		return "alloca"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpGetElemPtr:
		return "getelementptr"
	case OpConstAddr:
		return "const_addr"
	case OpBr:
		return "br"
	case OpBrCond:
		return "br_cond"
	case OpSwitch:
		return "switch"
	case OpRet:
		return "ret"
	case OpCall:
		return "call"
	case OpPhi:
		return "phi"
	case OpSelect:
		return "select"
	case OpVecInsert:
		return "vec_insert"
	case OpVecExtract:
		return "vec_extract"
	case OpDebugMarker:
		return "dbg"
	case OpIntrinsic:
		return "intrinsic"
	default:
		return "invalid"
	}
}

// IsTerminator reports whether o ends a block.
func (o Opcode) IsTerminator() bool {
	switch o {
	case OpBr, OpBrCond, OpSwitch, OpRet:
		return true
	default:
		return false
	}
}

// Predicate names one of the six comparison relations OpCmp can carry,
// crossed with integer-signedness / float as recorded on the instruction
// separately (Signed, and the operand type's IsFloat).
type Predicate byte

const (
	PredEqual Predicate = iota
	PredNotEqual
	PredLessThan
	PredLessEqual
	PredGreaterThan
	PredGreaterEqual
)

// String implements fmt.Stringer.
func (p Predicate) String() string {
	switch p {
	case PredEqual:
		return "eq"
	case PredNotEqual:
		return "ne"
	case PredLessThan:
		return "lt"
	case PredLessEqual:
		return "le"
	case PredGreaterThan:
		return "gt"
	case PredGreaterEqual:
		return "ge"
	default:
		return "invalid"
	}
}

// Intrinsic names a zero-argument, side-effect-free query the target
// back-end must satisfy without a real function call.
type Intrinsic byte

const (
	IntrinsicStackPointer Intrinsic = iota
	IntrinsicFramePointer
	IntrinsicDebugTrap
)

// String implements fmt.Stringer.
func (i Intrinsic) String() string {
	switch i {
	case IntrinsicStackPointer:
		return "stack_pointer"
	case IntrinsicFramePointer:
		return "frame_pointer"
	case IntrinsicDebugTrap:
		return "debugtrap"
	default:
		return "invalid"
	}
}
