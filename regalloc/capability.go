package regalloc

import "github.com/ironhold/ygen/ir"

// ClassInfo answers questions about one target's register files that the
// allocator needs but must not hard-code: how many registers exist per
// class, and the two properties the scoring order in §4.2 cares about.
// A target package (e.g. target/x64) implements this.
type ClassInfo interface {
	// Count returns the number of allocatable registers in class.
	Count(class Class) int
	// IsCalleeSaved reports whether register index of class must be saved
	// by the callee's prologue if the allocator hands it out.
	IsCalleeSaved(class Class, index int) bool
	// RequiresREX reports whether addressing register index of class needs
	// a REX prefix (x86-64; always false on targets without the concept).
	RequiresREX(class Class, index int) bool
	// ClassOf reports which register class a value of typ allocates to.
	ClassOf(typ ir.Type) Class
}

// Convention is the capability the allocator consults to place formal
// arguments and the return value before its own scan begins — exactly the
// "reify the global calling-convention selector as an explicit parameter"
// resolution from the design notes. A target package's CallingConvention
// implements this.
type Convention interface {
	// Argument returns the location the index'th argument of type typ is
	// passed in. onStack is true when the argument is passed on the stack
	// rather than in a register (Reg/class are then meaningless).
	Argument(index int, typ ir.Type) (class Class, reg int, onStack bool)
	// Return returns the location a value of typ is returned in.
	Return(typ ir.Type) (class Class, reg int)
	// StackAlign is the required alignment, in bytes, of the stack-slot
	// cursor (e.g. 16 for SysV AMD64).
	StackAlign() int
	// ShadowSpace is the caller-reserved stack area (in bytes) above the
	// return address the callee may use freely; 0 on conventions that
	// don't reserve one.
	ShadowSpace() int
}
