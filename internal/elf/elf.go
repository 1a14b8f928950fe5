// Package elf implements a parser for ELF object files of both classes
// and byte orders.
package elf

import (
	"encoding/binary"
	"fmt"
)

// Sentinel names substituted when a string table offset can not be resolved.
const (
	InvalidName = "<invalid_name>"
	Unnamed     = "<unnamed>"
)

// Class selects the 32 or 64 bit layout of the file.
type Class uint8

// object file classes.
const (
	Class32 Class = 1
	Class64 Class = 2
)

// String implements the fmt.Stringer interface.
func (c Class) String() string {
	switch c {
	case Class32:
		return "ELF32"
	case Class64:
		return "ELF64"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// headerSize returns the object header size of the class.
func (c Class) headerSize() uint64 {
	if c == Class64 {
		return headerSize64
	}
	return headerSize32
}

// ByteOrder selects the byte order of all multi byte fields of the file.
type ByteOrder uint8

// object file byte orders.
const (
	LittleEndian ByteOrder = 1
	BigEndian    ByteOrder = 2
)

// String implements the fmt.Stringer interface.
func (b ByteOrder) String() string {
	switch b {
	case LittleEndian:
		return "little endian"
	case BigEndian:
		return "big endian"
	default:
		return fmt.Sprintf("order(%d)", uint8(b))
	}
}

// binary returns the matching decoder for the byte order.
func (b ByteOrder) binary() binary.ByteOrder {
	if b == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// FileType describes the object file type.
type FileType uint16

// object file types.
const (
	FileNone FileType = 0
	FileRel  FileType = 1
	FileExec FileType = 2
	FileDyn  FileType = 3
	FileCore FileType = 4
)

// String implements the fmt.Stringer interface.
func (f FileType) String() string {
	switch f {
	case FileNone:
		return "none"
	case FileRel:
		return "relocatable"
	case FileExec:
		return "executable"
	case FileDyn:
		return "shared object"
	case FileCore:
		return "core"
	default:
		return fmt.Sprintf("type(0x%X)", uint16(f))
	}
}

// Machine describes the target machine of the file.
type Machine uint16

// target machines.
const (
	MachineNone    Machine = 0
	MachineSPARC   Machine = 0x02
	Machine386     Machine = 0x03
	MachineMIPS    Machine = 0x08
	MachinePPC     Machine = 0x14
	MachineARM     Machine = 0x28
	MachineX86_64  Machine = 0x3E
	MachineAArch64 Machine = 0xB7
	MachineRISCV   Machine = 0xF3
)

// String implements the fmt.Stringer interface.
func (m Machine) String() string {
	switch m {
	case MachineNone:
		return "none"
	case MachineSPARC:
		return "SPARC"
	case Machine386:
		return "Intel 80386"
	case MachineMIPS:
		return "MIPS"
	case MachinePPC:
		return "PowerPC"
	case MachineARM:
		return "ARM"
	case MachineX86_64:
		return "AMD x86-64"
	case MachineAArch64:
		return "AArch64"
	case MachineRISCV:
		return "RISC-V"
	default:
		return fmt.Sprintf("machine(0x%X)", uint16(m))
	}
}

// SectionType describes the contents of a section.
type SectionType uint32

// section types.
const (
	SectionNull     SectionType = 0
	SectionProgBits SectionType = 1
	SectionSymTab   SectionType = 2
	SectionStrTab   SectionType = 3
	SectionRela     SectionType = 4
	SectionHash     SectionType = 5
	SectionDynamic  SectionType = 6
	SectionNote     SectionType = 7
	SectionNoBits   SectionType = 8
	SectionRel      SectionType = 9
	SectionShLib    SectionType = 10
	SectionDynSym   SectionType = 11
)

// String implements the fmt.Stringer interface.
func (s SectionType) String() string {
	switch s {
	case SectionNull:
		return "NULL"
	case SectionProgBits:
		return "PROGBITS"
	case SectionSymTab:
		return "SYMTAB"
	case SectionStrTab:
		return "STRTAB"
	case SectionRela:
		return "RELA"
	case SectionHash:
		return "HASH"
	case SectionDynamic:
		return "DYNAMIC"
	case SectionNote:
		return "NOTE"
	case SectionNoBits:
		return "NOBITS"
	case SectionRel:
		return "REL"
	case SectionShLib:
		return "SHLIB"
	case SectionDynSym:
		return "DYNSYM"
	default:
		return fmt.Sprintf("type(0x%X)", uint32(s))
	}
}

// Ident holds the decoded identification bytes at the start of the file.
type Ident struct {
	Class   Class
	Order   ByteOrder
	Version uint8
}

// Header is the object header with the class dependent fields widened
// to 64 bit.
type Header struct {
	Ident

	Type      FileType
	Machine   Machine
	Version   uint32
	Entry     uint64
	PhOff     uint64
	ShOff     uint64
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrNdx  uint16
}

// Section is a section header descriptor with its resolved name.
type Section struct {
	Name      string
	NameOff   uint32
	Type      SectionType
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

// Symbol is a symbol table entry with its resolved name.
type Symbol struct {
	Name    string
	NameOff uint32
	Info    uint8
	Other   uint8
	Shndx   uint16
	Value   uint64
	Size    uint64
}
