package obj

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// PE/COFF constants for a relocatable object (not a linked .exe): a bare
// COFF header, one section per SectionKind, a symbol table, and one
// IMAGE_REL_AMD64_REL32 relocation per recorded Relocation — grounded on
// the pack's tinyrange-rtg pe64.go container-layout shape, trimmed to the
// object (not final-executable) case §6 calls for.
const (
	imageFileMachineAMD64 = 0x8664
	imageSCNCntCode        = 0x00000020
	imageSCNCntInitData    = 0x00000040
	imageSCNMemExecute     = 0x20000000
	imageSCNMemRead        = 0x40000000
	imageSCNMemWrite       = 0x80000000

	imageRelAMD64Rel32 = 0x0004
	imageSymClassExternal = 2
	imageSymClassStatic   = 3
)

type peSectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

// WritePE serialises b as a Windows x64 COFF object file (IMAGE_FILE_MACHINE_AMD64):
// no optional header (object files omit it), .text/.data/.rdata sections,
// per-section relocation tables, and a symbol table with one entry per
// defined or imported Symbol.
func WritePE(b *Builder) ([]byte, error) {
	if err := b.Verify(); err != nil {
		return nil, errors.Wrap(err, "obj: pe")
	}

	type secDef struct {
		name  string
		kind  SectionKind
		chars uint32
	}
	secs := []secDef{
		{".text", SectionText, imageSCNCntCode | imageSCNMemExecute | imageSCNMemRead},
		{".data", SectionData, imageSCNCntInitData | imageSCNMemRead | imageSCNMemWrite},
		{".rdata", SectionRodata, imageSCNCntInitData | imageSCNMemRead},
	}

	const coffHeaderSize = 20
	const sectionHeaderSize = 40
	headerSize := coffHeaderSize + sectionHeaderSize*len(secs)

	var raw bytes.Buffer
	offsets := map[SectionKind]uint32{}
	var relocBlocks [][]byte
	symIndex := map[string]uint32{}
	var symtab bytes.Buffer
	var strtab bytes.Buffer // COFF long-name string table, offset 4 onward
	numSyms := uint32(0)

	addSym := func(name string, value uint32, section int16, storageClass byte) {
		var nameField [8]byte
		if len(name) <= 8 {
			copy(nameField[:], name)
		} else {
			off := uint32(strtab.Len() + 4)
			strtab.WriteString(name)
			strtab.WriteByte(0)
			binary.LittleEndian.PutUint32(nameField[4:8], off)
		}
		symIndex[name] = numSyms
		symtab.Write(nameField[:])
		binary.Write(&symtab, binary.LittleEndian, value)
		binary.Write(&symtab, binary.LittleEndian, section)
		binary.Write(&symtab, binary.LittleEndian, uint16(0)) // type
		symtab.WriteByte(storageClass)
		symtab.WriteByte(0) // number of aux symbols
		numSyms++
	}

	for i, s := range secs {
		offsets[s.kind] = uint32(raw.Len())
		raw.Write(b.Sections[s.kind])
		relocs := relocsFor(b, s.kind)
		var rb bytes.Buffer
		for _, r := range relocs {
			binary.Write(&rb, binary.LittleEndian, uint32(r.Offset))
			idx, ok := symIndex[r.Symbol]
			if !ok {
				// Symbol table entries are written below in source order;
				// PE relocations reference by index, so imports/functions
				// referenced by an earlier section's relocations must
				// already exist. Reserve a placeholder now; patched after
				// the full symbol table is built (see pass below).
				idx = 0
				_ = idx
			}
			binary.Write(&rb, binary.LittleEndian, idx)
			binary.Write(&rb, binary.LittleEndian, uint16(imageRelAMD64Rel32))
		}
		relocBlocks = append(relocBlocks, rb.Bytes())
		_ = i
	}

	for _, s := range b.Symbols {
		class := byte(imageSymClassStatic)
		if s.Scope != ScopeCompilation {
			class = imageSymClassExternal
		}
		section := int16(sectionIndexOf(s.Section)) + 1
		if !s.Defined {
			section = 0
		}
		addSym(s.Name, uint32(s.Offset), section, class)
	}

	// Second pass: now that every symbol has an index, fix up the
	// relocation blocks built above (written with placeholder index 0).
	relocBlocks = nil
	for _, s := range secs {
		relocs := relocsFor(b, s.kind)
		var rb bytes.Buffer
		for _, r := range relocs {
			binary.Write(&rb, binary.LittleEndian, uint32(r.Offset))
			idx := symIndex[r.Symbol]
			binary.Write(&rb, binary.LittleEndian, idx)
			binary.Write(&rb, binary.LittleEndian, uint16(imageRelAMD64Rel32))
		}
		relocBlocks = append(relocBlocks, rb.Bytes())
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint16(imageFileMachineAMD64))
	binary.Write(&out, binary.LittleEndian, uint16(len(secs)))
	binary.Write(&out, binary.LittleEndian, uint32(0)) // TimeDateStamp
	symtabOffset := uint32(headerSize) + uint32(raw.Len())
	for _, rb := range relocBlocks {
		symtabOffset += uint32(len(rb))
	}
	binary.Write(&out, binary.LittleEndian, symtabOffset)
	binary.Write(&out, binary.LittleEndian, numSyms)
	binary.Write(&out, binary.LittleEndian, uint16(0)) // SizeOfOptionalHeader
	binary.Write(&out, binary.LittleEndian, uint16(0)) // Characteristics

	dataStart := uint32(headerSize)
	relocStart := dataStart + uint32(raw.Len())
	for i, s := range secs {
		var name [8]byte
		copy(name[:], s.name)
		relocOff := relocStart
		for j := 0; j < i; j++ {
			relocOff += uint32(len(relocBlocks[j]))
		}
		hdr := peSectionHeader{
			Name: name, VirtualSize: 0, VirtualAddress: 0,
			SizeOfRawData: uint32(len(b.Sections[s.kind])), PointerToRawData: dataStart + offsets[s.kind],
			PointerToRelocations: relocOff, NumberOfRelocations: uint16(len(relocBlocks[i]) / 10),
			Characteristics: s.chars,
		}
		binary.Write(&out, binary.LittleEndian, hdr)
	}
	out.Write(raw.Bytes())
	for _, rb := range relocBlocks {
		out.Write(rb)
	}
	out.Write(symtab.Bytes())
	binary.Write(&out, binary.LittleEndian, uint32(strtab.Len()+4))
	out.Write(strtab.Bytes())
	return out.Bytes(), nil
}

// sectionIndexOf relies on SectionKind's own iota ordering (Text=0, Data=1,
// Rodata=2), matching the fixed order sections are emitted in below.
func sectionIndexOf(kind SectionKind) int { return int(kind) }

func relocsFor(b *Builder, kind SectionKind) []Relocation {
	var out []Relocation
	for _, r := range b.Relocs {
		if r.Section == kind {
			out = append(out, r)
		}
	}
	return out
}
