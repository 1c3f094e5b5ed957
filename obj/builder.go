// Package obj accumulates sections, symbols, and relocations the way §4.6
// describes, then serialises that accumulated state into one of five
// platform container formats. It never encodes instructions itself — the
// bytes it writes come from a target back-end's Encode output (package
// target/x64) or target/wasm.Module; this package only knows how to frame
// those bytes inside ELF/PE/Mach-O/Wasm/XCOFF.
package obj

import (
	"github.com/pkg/errors"
)

// SectionKind names one of the three sections §4.6 fixes.
type SectionKind byte

const (
	SectionText SectionKind = iota
	SectionData
	SectionRodata
)

// String implements fmt.Stringer.
func (k SectionKind) String() string {
	switch k {
	case SectionText:
		return ".text"
	case SectionData:
		return ".data"
	case SectionRodata:
		return ".rodata"
	default:
		return "invalid"
	}
}

// Scope names a symbol's visibility, mirroring ir.Linkage but kept local to
// obj so this package never imports ir directly (it only ever sees names
// and bytes, handed to it by the caller after lowering).
type Scope byte

const (
	ScopeCompilation Scope = iota // internal: visible only within this object
	ScopeLinkageVisible
	ScopeDynamicallyImported
)

// SymbolKind names what a symbol denotes.
type SymbolKind byte

const (
	SymbolFunction SymbolKind = iota
	SymbolData
	SymbolReadonlyData
)

// Symbol is one entry the object writer tracks: its name, scope, kind, the
// section it is defined in, its offset within that section, and its size.
// A Symbol with Declared==true and Defined==false is an import: the object
// writers emit it as an undefined symbol. Verify rejects only relocations
// that target a name never declared or defined.
type Symbol struct {
	Name    string
	Scope   Scope
	Kind    SymbolKind
	Section SectionKind
	Offset  int
	Size    int

	Declared bool
	Defined  bool
}

// RelocKind names the relocation encoding §6 fixes: "32-bit PLT-relative
// with encoding x86-branch or aarch64-call per architecture".
type RelocKind byte

const (
	RelocX86Branch RelocKind = iota
	RelocAArch64Call
)

// Relocation is one deferred patch: at Offset bytes into Section, write a
// relocation entry for Symbol with Addend, to be resolved by the loader
// (for an object file) or the JIT linker (for an in-memory link).
type Relocation struct {
	Section SectionKind
	Offset  int
	Symbol  string
	Addend  int32
	Kind    RelocKind
}

// Builder accumulates the state every container format serialises: section
// bytes, the symbol table, and the relocation list.
type Builder struct {
	Sections map[SectionKind][]byte
	Symbols  []Symbol
	Relocs   []Relocation

	bySymbolName map[string]int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		Sections:     map[SectionKind][]byte{SectionText: {}, SectionData: {}, SectionRodata: {}},
		bySymbolName: map[string]int{},
	}
}

// Declare registers name as an expected symbol (the object-writer analogue
// of an IR `declare`) without yet defining it. Declaring the same name
// twice is a no-op.
func (b *Builder) Declare(name string, kind SymbolKind, scope Scope) {
	if i, ok := b.bySymbolName[name]; ok {
		b.Symbols[i].Declared = true
		return
	}
	b.bySymbolName[name] = len(b.Symbols)
	b.Symbols = append(b.Symbols, Symbol{Name: name, Kind: kind, Scope: scope, Declared: true})
}

// Define appends code/data to section under name, marking the symbol
// defined at its offset within that section. Define implicitly declares
// the symbol if it was never declared, matching a front-end that emits a
// function body without a separate forward declaration.
func (b *Builder) Define(name string, kind SymbolKind, scope Scope, section SectionKind, bytes []byte) {
	offset := len(b.Sections[section])
	b.Sections[section] = append(b.Sections[section], bytes...)

	i, ok := b.bySymbolName[name]
	if !ok {
		b.bySymbolName[name] = len(b.Symbols)
		b.Symbols = append(b.Symbols, Symbol{Name: name})
		i = len(b.Symbols) - 1
	}
	b.Symbols[i].Name = name
	b.Symbols[i].Kind = kind
	b.Symbols[i].Scope = scope
	b.Symbols[i].Section = section
	b.Symbols[i].Offset = offset
	b.Symbols[i].Size = len(bytes)
	b.Symbols[i].Declared = true
	b.Symbols[i].Defined = true
}

// Relocate records a pending relocation at offset bytes into section,
// targeting symbol.
func (b *Builder) Relocate(section SectionKind, offset int, symbol string, addend int32, kind RelocKind) {
	b.Relocs = append(b.Relocs, Relocation{Section: section, Offset: offset, Symbol: symbol, Addend: addend, Kind: kind})
}

// ErrUnsupportedFormat is returned by a container writer that recognises
// the requested format name but has no implementation (XCOFF, see xcoff.go).
var ErrUnsupportedFormat = errors.New("obj: unsupported container format")

// Verify enforces §4.6's "every define references a prior declare"
// invariant (loosened, as Define above does, to auto-declare on first
// definition — the spec's fatal case is a *reference* with no definition
// ever appearing, checked here): every relocation must target either a
// defined symbol or one explicitly declared (an import the linker/loader
// resolves externally).
func (b *Builder) Verify() error {
	for _, r := range b.Relocs {
		sym, ok := b.bySymbolName[r.Symbol]
		if !ok {
			return errors.Errorf("obj: relocation at %s+%d references undeclared symbol %q", r.Section, r.Offset, r.Symbol)
		}
		if !b.Symbols[sym].Defined && !b.Symbols[sym].Declared {
			return errors.Errorf("obj: symbol %q is referenced but never declared or defined", r.Symbol)
		}
	}
	return nil
}
