package obj

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ELF constants this writer needs. Only the subset of the format a
// relocatable object (ET_REL) requires is modelled — no program headers, no
// dynamic section, matching what `ld`/a JIT loader need from a `.o` file,
// not a standalone executable (grounded on the pack's
// xyproto-vibe67 ELF writer's header/section-table layout, simplified from
// its dynamically-linked-executable scope down to ET_REL).
const (
	elfClass64   = 2
	elfDataLSB   = 1
	elfVersion   = 1
	elfOSABISysV = 0
	etRel        = 1
	emX86_64     = 62

	shtNull     = 0
	shtProgbits = 1
	shtSymtab   = 2
	shtStrtab   = 3
	shtRela     = 4

	shfWrite = 1 << 0
	shfAlloc = 1 << 1
	shfExec  = 1 << 2

	stbLocal  = 0
	stbGlobal = 1
	stbWeak   = 2

	sttNotype = 0
	sttObject = 1
	sttFunc   = 2

	rX8664PLT32 = 4 // R_X86_64_PLT32
)

type elfSectionHeader struct {
	NameOff   uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

// WriteELF serialises b as a SysV x86-64 ET_REL object file: section
// headers for .text/.data/.rodata plus .symtab/.strtab/.rela.text, one
// R_X86_64_PLT32 relocation per recorded Relocation.
func WriteELF(b *Builder) ([]byte, error) {
	if err := b.Verify(); err != nil {
		return nil, errors.Wrap(err, "obj: elf")
	}

	shstrtab := newStrtab()
	strtab := newStrtab()

	type sec struct {
		name  string
		kind  SectionKind
		flags uint64
		typ   uint32
	}
	secs := []sec{
		{name: "", kind: 0, typ: shtNull},
		{".text", SectionText, shfAlloc | shfExec, shtProgbits},
		{".data", SectionData, shfAlloc | shfWrite, shtProgbits},
		{".rodata", SectionRodata, shfAlloc, shtProgbits},
	}

	var symtabBytes bytes.Buffer
	// The null symbol occupies index 0, as ELF requires.
	writeElfSym(&symtabBytes, 0, 0, 0, 0, 0)
	symIndex := map[string]uint32{}

	// Local symbols first (ELF requires all STB_LOCAL entries to precede
	// STB_GLOBAL ones; sh_info on .symtab records the first global index).
	var locals, globals []Symbol
	for _, s := range b.Symbols {
		if !s.Defined {
			continue // imports get a relocation-only symbol below
		}
		if s.Scope == ScopeCompilation {
			locals = append(locals, s)
		} else {
			globals = append(globals, s)
		}
	}
	firstGlobal := uint32(1 + len(locals))
	sectionIndexOf := func(k SectionKind) uint16 { return uint16(k) + 1 } // +1 for the null section
	for _, s := range append(append([]Symbol{}, locals...), globals...) {
		nameOff := strtab.add(s.Name)
		bind := byte(stbLocal)
		if s.Scope != ScopeCompilation {
			bind = stbGlobal
		}
		typ := byte(sttObject)
		if s.Kind == SymbolFunction {
			typ = sttFunc
		}
		symIndex[s.Name] = uint32(symtabBytes.Len() / 24)
		writeElfSym(&symtabBytes, nameOff, bind<<4|typ, sectionIndexOf(s.Section), uint64(s.Offset), uint64(s.Size))
	}
	// Imports (declared, never defined): undefined symbols (shndx 0),
	// global binding, so the loader resolves them externally.
	for _, s := range b.Symbols {
		if s.Defined {
			continue
		}
		nameOff := strtab.add(s.Name)
		symIndex[s.Name] = uint32(symtabBytes.Len() / 24)
		writeElfSym(&symtabBytes, nameOff, stbGlobal<<4|sttNotype, 0, 0, 0)
	}

	var relaText bytes.Buffer
	for _, r := range b.Relocs {
		if r.Section != SectionText {
			continue // only .text carries call-site relocations in this target
		}
		idx, ok := symIndex[r.Symbol]
		if !ok {
			return nil, errors.Errorf("obj: elf: relocation references unknown symbol %q", r.Symbol)
		}
		info := uint64(idx)<<32 | rX8664PLT32
		binary.Write(&relaText, binary.LittleEndian, uint64(r.Offset))
		binary.Write(&relaText, binary.LittleEndian, info)
		binary.Write(&relaText, binary.LittleEndian, int64(r.Addend))
	}

	shstrtab.add(".shstrtab")
	shstrtab.add(".symtab")
	shstrtab.add(".strtab")
	shstrtab.add(".rela.text")
	for _, s := range secs[1:] {
		shstrtab.add(s.name)
	}

	const ehSize = 64
	const shSize = 64
	headers := make([]elfSectionHeader, 0, 8)
	var body bytes.Buffer
	offset := uint64(ehSize)

	addSection := func(name string, typ uint32, flags uint64, data []byte, link, info uint32, entsize uint64) {
		headers = append(headers, elfSectionHeader{
			NameOff: shstrtab.offsets[name], Type: typ, Flags: flags,
			Offset: offset, Size: uint64(len(data)), Link: link, Info: info, AddrAlign: 1, EntSize: entsize,
		})
		body.Write(data)
		offset += uint64(len(data))
	}

	headers = append(headers, elfSectionHeader{}) // SHN_UNDEF
	addSection(".text", shtProgbits, shfAlloc|shfExec, b.Sections[SectionText], 0, 0, 0)
	addSection(".data", shtProgbits, shfAlloc|shfWrite, b.Sections[SectionData], 0, 0, 0)
	addSection(".rodata", shtProgbits, shfAlloc, b.Sections[SectionRodata], 0, 0, 0)
	symtabIdx := uint32(len(headers))
	addSection(".symtab", shtSymtab, 0, symtabBytes.Bytes(), symtabIdx+1, firstGlobal, 24)
	addSection(".strtab", shtStrtab, 0, strtab.bytes(), 0, 0, 0)
	addSection(".rela.text", shtRela, 0, relaText.Bytes(), symtabIdx, 1, 24)
	addSection(".shstrtab", shtStrtab, 0, shstrtab.bytes(), 0, 0, 0)

	shoff := offset

	var out bytes.Buffer
	out.Write([]byte{0x7F, 'E', 'L', 'F', elfClass64, elfDataLSB, elfVersion, elfOSABISysV, 0, 0, 0, 0, 0, 0, 0, 0})
	binary.Write(&out, binary.LittleEndian, uint16(etRel))
	binary.Write(&out, binary.LittleEndian, uint16(emX86_64))
	binary.Write(&out, binary.LittleEndian, uint32(elfVersion))
	binary.Write(&out, binary.LittleEndian, uint64(0)) // e_entry
	binary.Write(&out, binary.LittleEndian, uint64(0)) // e_phoff
	binary.Write(&out, binary.LittleEndian, shoff)
	binary.Write(&out, binary.LittleEndian, uint32(0)) // e_flags
	binary.Write(&out, binary.LittleEndian, uint16(ehSize))
	binary.Write(&out, binary.LittleEndian, uint16(0)) // e_phentsize
	binary.Write(&out, binary.LittleEndian, uint16(0)) // e_phnum
	binary.Write(&out, binary.LittleEndian, uint16(shSize))
	binary.Write(&out, binary.LittleEndian, uint16(len(headers)))
	binary.Write(&out, binary.LittleEndian, uint16(len(headers)-1)) // e_shstrndx: last section added

	out.Write(body.Bytes())
	for _, h := range headers {
		binary.Write(&out, binary.LittleEndian, h.NameOff)
		binary.Write(&out, binary.LittleEndian, h.Type)
		binary.Write(&out, binary.LittleEndian, h.Flags)
		binary.Write(&out, binary.LittleEndian, h.Addr)
		binary.Write(&out, binary.LittleEndian, h.Offset)
		binary.Write(&out, binary.LittleEndian, h.Size)
		binary.Write(&out, binary.LittleEndian, h.Link)
		binary.Write(&out, binary.LittleEndian, h.Info)
		binary.Write(&out, binary.LittleEndian, h.AddrAlign)
		binary.Write(&out, binary.LittleEndian, h.EntSize)
	}
	return out.Bytes(), nil
}

func writeElfSym(buf *bytes.Buffer, nameOff uint32, info byte, shndx uint16, value, size uint64) {
	binary.Write(buf, binary.LittleEndian, nameOff)
	buf.WriteByte(info)
	buf.WriteByte(0) // st_other
	binary.Write(buf, binary.LittleEndian, shndx)
	binary.Write(buf, binary.LittleEndian, value)
	binary.Write(buf, binary.LittleEndian, size)
}

// strtab accumulates a null-separated string table, tracking each string's
// offset (including the mandatory leading empty string at offset 0) so
// section/symbol headers can reference names by offset.
type strtab struct {
	buf     bytes.Buffer
	offsets map[string]uint32
}

func newStrtab() *strtab {
	t := &strtab{offsets: map[string]uint32{}}
	t.buf.WriteByte(0)
	return t
}

func (t *strtab) add(s string) uint32 {
	if off, ok := t.offsets[s]; ok {
		return off
	}
	off := uint32(t.buf.Len())
	t.buf.WriteString(s)
	t.buf.WriteByte(0)
	t.offsets[s] = off
	return off
}

func (t *strtab) bytes() []byte { return t.buf.Bytes() }
