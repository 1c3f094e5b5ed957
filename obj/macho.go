package obj

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Mach-O MH_OBJECT constants, grounded on the pack's xyproto-flapc
// macho.go header/load-command layout, trimmed to one LC_SEGMENT_64
// carrying all three sections (an object file has no further segments) and
// one LC_SYMTAB.
const (
	machoMagic64   = 0xFEEDFACF
	cpuTypeX86_64  = 0x01000007
	cpuSubtypeAll  = 0x3
	mhObject       = 0x1

	lcSegment64 = 0x19
	lcSymtab    = 0x2

	nListExtern = 0x01
	nListSect   = 0x0e
)

type machoSection64 struct {
	SectName  [16]byte
	SegName   [16]byte
	Addr      uint64
	Size      uint64
	Offset    uint32
	Align     uint32
	Reloff    uint32
	Nreloc    uint32
	Flags     uint32
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}

// WriteMachO serialises b as a Darwin x86-64 MH_OBJECT: one LC_SEGMENT_64
// ("") holding __text/__data/__const, one LC_SYMTAB.
func WriteMachO(b *Builder) ([]byte, error) {
	if err := b.Verify(); err != nil {
		return nil, errors.Wrap(err, "obj: macho")
	}

	names := map[SectionKind]string{SectionText: "__text", SectionData: "__data", SectionRodata: "__const"}
	order := []SectionKind{SectionText, SectionData, SectionRodata}

	const machHeaderSize = 32
	const segCmdSize = 72
	const sectSize = 80
	const symtabCmdSize = 24

	segSize := segCmdSize + sectSize*len(order)
	loadCommandsSize := segSize + symtabCmdSize

	dataStart := uint32(machHeaderSize + loadCommandsSize)
	var raw bytes.Buffer
	fileOffsets := map[SectionKind]uint32{}
	for _, k := range order {
		fileOffsets[k] = dataStart + uint32(raw.Len())
		raw.Write(b.Sections[k])
	}
	segFileSize := uint32(raw.Len())

	var strtab bytes.Buffer
	strtab.WriteByte(0)
	var symtab bytes.Buffer
	nsyms := uint32(0)
	sectionOrdinal := func(k SectionKind) uint8 { return uint8(indexOf(order, k) + 1) }
	for _, s := range b.Symbols {
		nameOff := uint32(strtab.Len())
		strtab.WriteString(s.Name)
		strtab.WriteByte(0)
		binary.Write(&symtab, binary.LittleEndian, nameOff)
		if !s.Defined {
			// Mach-O object imports are left as undefined (n_sect=0) externs.
			symtab.WriteByte(nListExtern)
			symtab.WriteByte(0)
			binary.Write(&symtab, binary.LittleEndian, uint16(0))
			binary.Write(&symtab, binary.LittleEndian, uint64(0))
			nsyms++
			continue
		}
		symtab.WriteByte(nListExtern | nListSect)
		symtab.WriteByte(sectionOrdinal(s.Section))
		binary.Write(&symtab, binary.LittleEndian, uint16(0))
		binary.Write(&symtab, binary.LittleEndian, uint64(fileOffsets[s.Section]-dataStart+uint32(s.Offset)))
		nsyms++
	}
	symtabOff := dataStart + segFileSize
	strtabOff := symtabOff + uint32(symtab.Len())

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(machoMagic64))
	binary.Write(&out, binary.LittleEndian, uint32(cpuTypeX86_64))
	binary.Write(&out, binary.LittleEndian, uint32(cpuSubtypeAll))
	binary.Write(&out, binary.LittleEndian, uint32(mhObject))
	binary.Write(&out, binary.LittleEndian, uint32(2)) // ncmds: segment + symtab
	binary.Write(&out, binary.LittleEndian, uint32(loadCommandsSize))
	binary.Write(&out, binary.LittleEndian, uint32(0)) // flags
	binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved

	binary.Write(&out, binary.LittleEndian, uint32(lcSegment64))
	binary.Write(&out, binary.LittleEndian, uint32(segCmdSize+sectSize*len(order)))
	var segName [16]byte
	out.Write(segName[:])
	binary.Write(&out, binary.LittleEndian, uint64(0))          // vmaddr
	binary.Write(&out, binary.LittleEndian, uint64(segFileSize)) // vmsize
	binary.Write(&out, binary.LittleEndian, uint64(dataStart))
	binary.Write(&out, binary.LittleEndian, uint64(segFileSize))
	binary.Write(&out, binary.LittleEndian, uint32(7)) // maxprot rwx
	binary.Write(&out, binary.LittleEndian, uint32(7)) // initprot
	binary.Write(&out, binary.LittleEndian, uint32(len(order)))
	binary.Write(&out, binary.LittleEndian, uint32(0)) // flags

	for _, k := range order {
		var sectName, segN [16]byte
		copy(sectName[:], names[k])
		sh := machoSection64{SectName: sectName, SegName: segN, Addr: uint64(fileOffsets[k] - dataStart), Size: uint64(len(b.Sections[k])), Offset: fileOffsets[k], Align: 0}
		binary.Write(&out, binary.LittleEndian, sh)
	}

	binary.Write(&out, binary.LittleEndian, uint32(lcSymtab))
	binary.Write(&out, binary.LittleEndian, uint32(symtabCmdSize))
	binary.Write(&out, binary.LittleEndian, symtabOff)
	binary.Write(&out, binary.LittleEndian, nsyms)
	binary.Write(&out, binary.LittleEndian, strtabOff)
	binary.Write(&out, binary.LittleEndian, uint32(strtab.Len()))

	out.Write(raw.Bytes())
	out.Write(symtab.Bytes())
	out.Write(strtab.Bytes())
	return out.Bytes(), nil
}

func indexOf(order []SectionKind, k SectionKind) int {
	for i, o := range order {
		if o == k {
			return i
		}
	}
	return -1
}
