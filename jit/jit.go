// Package jit implements the in-memory linker §4.7 describes: given a set
// of already-encoded function/data byte blobs keyed by symbol name, it
// resolves relocations between them, maps the result into an executable
// page, and hands back a page a caller can invoke directly — no object
// file, no external linker, no disk round-trip.
package jit

import (
	"github.com/pkg/errors"
)

// Kind names what one Entry's bytes represent.
type Kind byte

const (
	KindFunction Kind = iota
	KindData
)

// entry is one symbol added to a Linker: its bytes, kind, whether it is the
// link's entry point, and whether it is merely declared (imported, never
// given bytes) — linking a map with an imported symbol still present is a
// fatal condition per §4.7.
type entry struct {
	name     string
	bytes    []byte
	kind     Kind
	isEntry  bool
	imported bool
}

// Reloc is one generic relocation: patch a 32-bit little-endian signed
// displacement `at` bytes into `from`'s bytes so it equals `to`'s mapped
// position minus (the patch site's position + 1), plus addend.
type Reloc struct {
	From, To string
	At       int
	Addend   int32
}

// CustomReloc is a caller-provided patch closure, applied before generic
// relocations (§4.7 step 4): it receives the fully-concatenated code buffer
// and the final offset of every symbol, and patches buf in place.
type CustomReloc func(buf []byte, positions map[string]int) error

// Linker accumulates entries and relocations the way obj.Builder does for a
// container format, but resolves and maps them in memory instead of
// serialising a file.
type Linker struct {
	entries    []entry
	byName     map[string]int
	generics   []Reloc
	customs    []CustomReloc
	entryName  string
	haveEntry  bool

	// Log is called with printf-style diagnostics at each link step; it
	// defaults to a no-op.
	Log func(format string, args ...any)
}

// NewLinker returns an empty Linker.
func NewLinker() *Linker {
	return &Linker{byName: map[string]int{}, Log: func(string, ...any) {}}
}

// AddFunction registers a function's encoded bytes under name. At most one
// entry may be marked isEntry across the whole link.
func (l *Linker) AddFunction(name string, code []byte, isEntry bool) error {
	if isEntry {
		if l.haveEntry {
			return errors.Errorf("jit: link already has an entry function (%s), cannot also mark %s", l.entryName, name)
		}
		l.haveEntry = true
		l.entryName = name
	}
	l.byName[name] = len(l.entries)
	l.entries = append(l.entries, entry{name: name, bytes: code, kind: KindFunction, isEntry: isEntry})
	return nil
}

// AddData registers a data/label blob under name.
func (l *Linker) AddData(name string, data []byte) {
	l.byName[name] = len(l.entries)
	l.entries = append(l.entries, entry{name: name, bytes: data, kind: KindData})
}

// Import registers name as an external symbol with no bytes of its own.
// Per §4.7's fatal conditions, Link rejects any map that still references an
// imported symbol.
func (l *Linker) Import(name string) {
	l.byName[name] = len(l.entries)
	l.entries = append(l.entries, entry{name: name, imported: true})
}

// AddCustomReloc registers a caller-supplied patch closure, run before
// generic relocations.
func (l *Linker) AddCustomReloc(fn CustomReloc) { l.customs = append(l.customs, fn) }

// AddReloc registers a generic relocation.
func (l *Linker) AddReloc(from, to string, at int, addend int32) {
	l.generics = append(l.generics, Reloc{From: from, To: to, At: at, Addend: addend})
}

// Linked is the resolved, concatenated, but not-yet-mapped result of Link.
type Linked struct {
	Code      []byte
	Positions map[string]int
	EntryName string
}

// Link performs §4.7's six steps short of the final page mapping: entry
// function first, then every other function, then every data blob, then
// custom relocations, then generic relocations. Returns the concatenated,
// fully-patched byte buffer and each symbol's offset within it.
func (l *Linker) Link() (*Linked, error) {
	for _, e := range l.entries {
		if e.imported {
			return nil, errors.Errorf("jit: symbol %q is imported but never defined — JIT maps cannot reference unlinked symbols", e.name)
		}
	}

	positions := make(map[string]int, len(l.entries))
	var code []byte

	place := func(e entry) {
		positions[e.name] = len(code)
		code = append(code, e.bytes...)
	}

	if l.haveEntry {
		place(l.entries[l.byName[l.entryName]])
		l.Log("jit: placed entry function %q at offset 0", l.entryName)
	}
	for _, e := range l.entries {
		if e.kind != KindFunction || e.isEntry {
			continue
		}
		place(e)
		l.Log("jit: placed function %q at offset %d", e.name, positions[e.name])
	}
	for _, e := range l.entries {
		if e.kind != KindData {
			continue
		}
		place(e)
		l.Log("jit: placed data %q at offset %d", e.name, positions[e.name])
	}

	for _, fn := range l.customs {
		if err := fn(code, positions); err != nil {
			return nil, errors.Wrap(err, "jit: custom relocation")
		}
	}

	for _, r := range l.generics {
		fromPos, ok := positions[r.From]
		if !ok {
			return nil, errors.Errorf("jit: relocation references unknown symbol %q", r.From)
		}
		toPos, ok := positions[r.To]
		if !ok {
			return nil, errors.Errorf("jit: relocation references unknown symbol %q", r.To)
		}
		patchAt := fromPos + r.At
		if patchAt+4 > len(code) {
			return nil, errors.Errorf("jit: relocation at %s+%d overruns the linked code (len %d)", r.From, r.At, len(code))
		}
		disp := int32(toPos-(patchAt+1)) + r.Addend
		code[patchAt+0] = byte(disp)
		code[patchAt+1] = byte(disp >> 8)
		code[patchAt+2] = byte(disp >> 16)
		code[patchAt+3] = byte(disp >> 24)
	}

	return &Linked{Code: code, Positions: positions, EntryName: l.entryName}, nil
}
