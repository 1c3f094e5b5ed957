// Package ir implements the target-agnostic, typed, block-structured
// intermediate representation that the rest of ygen lowers.
package ir

import "fmt"

// Type is the tag of a ygen value type: a scalar or a fixed-width vector
// of scalars.
type Type struct {
	tag   typeTag
	lane  typeTag // lane type, only meaningful when tag == typeVector
	lanes int     // lane count, only meaningful when tag == typeVector
}

type typeTag byte

const (
	tagInvalid typeTag = iota
	tagI8
	tagI16
	tagI32
	tagI64
	tagU8
	tagU16
	tagU32
	tagU64
	tagF32
	tagF64
	tagPtr
	tagVoid
	tagVector
)

var (
	I8   = Type{tag: tagI8}
	I16  = Type{tag: tagI16}
	I32  = Type{tag: tagI32}
	I64  = Type{tag: tagI64}
	U8   = Type{tag: tagU8}
	U16  = Type{tag: tagU16}
	U32  = Type{tag: tagU32}
	U64  = Type{tag: tagU64}
	F32  = Type{tag: tagF32}
	F64  = Type{tag: tagF64}
	Ptr  = Type{tag: tagPtr}
	Void = Type{tag: tagVoid}
)

// Vector builds a fixed-width vector type of lanes lanes of lane.
// lane must be a scalar (non-vector, non-void) type.
func Vector(lane Type, lanes int) Type {
	if lane.tag == tagVector || lane.tag == tagVoid || lane.tag == tagInvalid {
		panic("BUG: invalid vector lane type " + lane.String())
	}
	return Type{tag: tagVector, lane: lane.tag, lanes: lanes}
}

// PointerWidth is the width in bytes of Ptr on the only target family this
// module supports: a 64-bit little-endian general-purpose ISA.
const PointerWidth = 8

// ByteSize returns the size of a value of this type in bytes.
func (t Type) ByteSize() int {
	if t.tag == tagVector {
		return scalarByteSize(t.lane) * t.lanes
	}
	return scalarByteSize(t.tag)
}

// BitSize returns the size of a value of this type in bits.
func (t Type) BitSize() int { return t.ByteSize() * 8 }

func scalarByteSize(tag typeTag) int {
	switch tag {
	case tagI8, tagU8:
		return 1
	case tagI16, tagU16:
		return 2
	case tagI32, tagU32, tagF32:
		return 4
	case tagI64, tagU64, tagF64:
		return 8
	case tagPtr:
		return PointerWidth
	case tagVoid:
		return 0
	default:
		panic("BUG: unsized type tag")
	}
}

// IsFloat reports whether t is f32 or f64 (vectors report their lane type).
func (t Type) IsFloat() bool { return t.scalarTag() == tagF32 || t.scalarTag() == tagF64 }

// IsSigned reports whether t is one of the signed integer types.
func (t Type) IsSigned() bool {
	switch t.scalarTag() {
	case tagI8, tagI16, tagI32, tagI64:
		return true
	default:
		return false
	}
}

// IsInteger reports whether t is an integer scalar or vector-of-integer type.
func (t Type) IsInteger() bool {
	switch t.scalarTag() {
	case tagI8, tagI16, tagI32, tagI64, tagU8, tagU16, tagU32, tagU64:
		return true
	default:
		return false
	}
}

// IsVector reports whether t is a fixed-width vector type.
func (t Type) IsVector() bool { return t.tag == tagVector }

// IsVoid reports whether t is the void type.
func (t Type) IsVoid() bool { return t.tag == tagVoid }

// IsPointer reports whether t is the pointer type.
func (t Type) IsPointer() bool { return t.tag == tagPtr }

// Lanes returns the lane count of a vector type, or 1 for scalars.
func (t Type) Lanes() int {
	if t.tag == tagVector {
		return t.lanes
	}
	return 1
}

// LaneType returns the scalar lane type of a vector type, or t itself for
// scalars.
func (t Type) LaneType() Type {
	if t.tag == tagVector {
		return Type{tag: t.lane}
	}
	return t
}

func (t Type) scalarTag() typeTag {
	if t.tag == tagVector {
		return t.lane
	}
	return t.tag
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if t.tag == tagVector {
		return fmt.Sprintf("%s<%d>", Type{tag: t.lane}.String(), t.lanes)
	}
	switch t.tag {
	case tagI8:
		return "i8"
	case tagI16:
		return "i16"
	case tagI32:
		return "i32"
	case tagI64:
		return "i64"
	case tagU8:
		return "u8"
	case tagU16:
		return "u16"
	case tagU32:
		return "u32"
	case tagU64:
		return "u64"
	case tagF32:
		return "f32"
	case tagF64:
		return "f64"
	case tagPtr:
		return "ptr"
	case tagVoid:
		return "void"
	default:
		return "invalid"
	}
}

// Equal reports whether t and other denote the same type.
func (t Type) Equal(other Type) bool {
	return t.tag == other.tag && t.lane == other.lane && t.lanes == other.lanes
}
