package ir

// Linkage controls the visibility of a Constant or Function across object
// file boundaries.
type Linkage byte

const (
	// LinkageInternal is only visible within the defining compilation unit.
	LinkageInternal Linkage = iota
	// LinkageExternal is visible to other compilation units.
	LinkageExternal
	// LinkageExternImport names a symbol defined elsewhere (no body/bytes
	// in this module).
	LinkageExternImport
)

// String implements fmt.Stringer.
func (l Linkage) String() string {
	switch l {
	case LinkageInternal:
		return "internal"
	case LinkageExternal:
		return "external"
	case LinkageExternImport:
		return "extern_import"
	default:
		return "invalid"
	}
}

// Constant is a named, immutable byte array with linkage: string literals,
// jump tables, and other data known at compile time.
type Constant struct {
	Name    string
	Bytes   []byte
	Linkage Linkage
}

// FromBytes builds an internal-linkage constant from raw bytes.
func FromBytes(name string, data []byte) Constant {
	return Constant{Name: name, Bytes: append([]byte(nil), data...), Linkage: LinkageInternal}
}

// FromString builds a NUL-terminated internal-linkage constant, matching
// the textual IR's `const foo = "bytes"` form.
func FromString(name, s string) Constant {
	b := append([]byte(s), 0)
	return Constant{Name: name, Bytes: b, Linkage: LinkageInternal}
}

// FromInt builds a constant holding the little-endian bytes of v truncated
// to typ's width, matching `const foo = [1, 2, 3]` byte-array literals once
// folded to a scalar initializer.
func FromInt(name string, typ Type, v int64) Constant {
	n := typ.ByteSize()
	b := make([]byte, n)
	u := uint64(v)
	for i := 0; i < n; i++ {
		b[i] = byte(u >> (8 * i))
	}
	return Constant{Name: name, Bytes: b, Linkage: LinkageInternal}
}
