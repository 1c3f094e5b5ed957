// Package regalloc implements a linear-scan register allocator over one
// ir.Function at a time. It knows nothing about any particular target's
// register names: it asks a Convention capability where arguments and
// returns live, and a ClassInfo capability how many registers of each
// class exist and which are callee-saved/REX-requiring, then hands back an
// allocation the MI builder and target back-end can consume.
package regalloc

import "fmt"

// Class names a register class: general-purpose, floating-point, or SIMD
// vector. Integer and pointer IR types allocate to GPR; f32/f64 to FP;
// vector types to SIMD. Compares always produce a byte-class GPR result.
type Class byte

const (
	ClassGPR Class = iota
	ClassFP
	ClassSIMD
)

// String implements fmt.Stringer.
func (c Class) String() string {
	switch c {
	case ClassGPR:
		return "gpr"
	case ClassFP:
		return "fp"
	case ClassSIMD:
		return "simd"
	default:
		return "invalid"
	}
}

// Location is where the allocator placed one SSA variable: either a
// physical register (identified abstractly, by class and an index the
// target back-end maps to a concrete register name) or a frame-pointer-
// relative stack slot.
type Location struct {
	Class Class

	// OnStack reports which arm of this union is live.
	OnStack bool

	// Reg is valid when !OnStack: an index into Class's register file,
	// abstract until the target back-end resolves it to a real name.
	Reg int

	// StackOffset/StackSize are valid when OnStack: a frame-pointer-
	// relative displacement and the slot's byte size.
	StackOffset int
	StackSize   int
}

// String implements fmt.Stringer.
func (l Location) String() string {
	if l.OnStack {
		return fmt.Sprintf("[fp-%d]", -l.StackOffset)
	}
	return fmt.Sprintf("%s#%d", l.Class, l.Reg)
}

// Reg builds a register Location.
func Reg(class Class, index int) Location {
	return Location{Class: class, Reg: index}
}

// Stack builds a stack-slot Location.
func Stack(offset, size int) Location {
	return Location{OnStack: true, StackOffset: offset, StackSize: size}
}
