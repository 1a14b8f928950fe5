// Package elftest builds object file images in memory for tests.
// It encodes all records on its own so that tests do not depend on the
// layout knowledge of the parser under test.
package elftest

import (
	"bytes"
	"encoding/binary"
)

// class and byte order values of the identification bytes.
const (
	Class32 byte = 1
	Class64 byte = 2

	LittleEndian byte = 1
	BigEndian    byte = 2
)

// section type values.
const (
	TypeProgBits uint32 = 1
	TypeSymTab   uint32 = 2
	TypeStrTab   uint32 = 3
	TypeNoBits   uint32 = 8
	TypeDynSym   uint32 = 11
)

// machine values.
const (
	MachineARM     uint16 = 0x28
	MachineAArch64 uint16 = 0xB7
)

// RawSection describes a section to add to the image.
type RawSection struct {
	Name    string
	Type    uint32
	Flags   uint64
	Addr    uint64
	Data    []byte
	Size    uint64 // overrides len(Data) if not 0
	Link    uint32
	Info    uint32
	EntSize uint64
}

// Sym describes a symbol table entry to add to the image.
type Sym struct {
	Name  string
	Value uint64
	Size  uint64
	Info  uint8
	Shndx uint16
}

// Builder assembles an object file image. Sections are laid out in add
// order after the object header, followed by the section name table and
// the section header table. Index 0 is the null section, the section name
// table gets the last index.
type Builder struct {
	class   byte
	order   byte
	machine uint16
	entry   uint64
	strNdx  *uint16

	sections []RawSection
}

// New creates a builder for an image of the given class and byte order.
func New(class, order byte) *Builder {
	return &Builder{
		class:   class,
		order:   order,
		machine: MachineARM,
	}
}

// SetMachine sets the machine field of the object header.
func (b *Builder) SetMachine(machine uint16) *Builder {
	b.machine = machine
	return b
}

// SetEntry sets the entry point address of the object header.
func (b *Builder) SetEntry(entry uint64) *Builder {
	b.entry = entry
	return b
}

// SetShStrNdx overrides the section name table index of the object header,
// pointing it at an arbitrary section.
func (b *Builder) SetShStrNdx(idx uint16) *Builder {
	b.strNdx = &idx
	return b
}

// AddRaw adds a section and returns its index.
func (b *Builder) AddRaw(s RawSection) uint16 {
	b.sections = append(b.sections, s)
	return uint16(len(b.sections))
}

// AddSection adds a section with raw contents and returns its index.
func (b *Builder) AddSection(name string, typ uint32, addr uint64, data []byte) uint16 {
	return b.AddRaw(RawSection{
		Name: name,
		Type: typ,
		Addr: addr,
		Data: data,
	})
}

// AddSymTab adds a .symtab section with the given symbols and a .strtab
// section holding their names. It returns the index of the symbol table.
func (b *Builder) AddSymTab(syms ...Sym) uint16 {
	return b.addSymbols(".symtab", TypeSymTab, ".strtab", syms)
}

// AddDynSym adds a .dynsym section with the given symbols and a .dynstr
// section holding their names. It returns the index of the symbol table.
func (b *Builder) AddDynSym(syms ...Sym) uint16 {
	return b.addSymbols(".dynsym", TypeDynSym, ".dynstr", syms)
}

func (b *Builder) addSymbols(name string, typ uint32, poolName string, syms []Sym) uint16 {
	data, pool := b.encodeSymbols(syms)
	idx := uint16(len(b.sections) + 1)
	b.AddRaw(RawSection{
		Name:    name,
		Type:    typ,
		Data:    data,
		Link:    uint32(idx) + 1,
		EntSize: b.symbolSize(),
	})
	b.AddRaw(RawSection{
		Name: poolName,
		Type: TypeStrTab,
		Data: pool,
	})
	return idx
}

// Build lays out and encodes the image.
func (b *Builder) Build() []byte {
	bo := b.byteOrder()
	names, nameOffsets := b.sectionNames()

	offset := b.headerSize()
	offsets := make([]uint64, len(b.sections))
	for i, s := range b.sections {
		offsets[i] = offset
		offset += uint64(len(s.Data))
	}
	namesOffset := offset
	shOff := namesOffset + uint64(len(names))

	shNum := uint16(len(b.sections)) + 2
	strNdx := shNum - 1
	if b.strNdx != nil {
		strNdx = *b.strNdx
	}

	buf := &bytes.Buffer{}
	b.writeHeader(buf, bo, shOff, shNum, strNdx)
	for _, s := range b.sections {
		buf.Write(s.Data)
	}
	buf.Write(names)

	b.writeSection(buf, bo, RawSection{}, 0, 0) // null section
	for i, s := range b.sections {
		b.writeSection(buf, bo, s, nameOffsets[i], offsets[i])
	}
	b.writeSection(buf, bo, RawSection{
		Name: ".shstrtab",
		Type: TypeStrTab,
		Data: names,
	}, nameOffsets[len(b.sections)], namesOffset)

	return buf.Bytes()
}

// sectionNames packs all section names into a string pool and returns the
// pool plus the name offset of every added section and of the name table
// itself.
func (b *Builder) sectionNames() ([]byte, []uint32) {
	pool := []byte{0}
	offsets := make([]uint32, 0, len(b.sections)+1)
	for _, s := range b.sections {
		offsets = append(offsets, uint32(len(pool)))
		pool = append(pool, s.Name...)
		pool = append(pool, 0)
	}
	offsets = append(offsets, uint32(len(pool)))
	pool = append(pool, ".shstrtab"...)
	pool = append(pool, 0)
	return pool, offsets
}

func (b *Builder) headerSize() uint64 {
	if b.class == Class64 {
		return 64
	}
	return 52
}

func (b *Builder) sectionSize() uint16 {
	if b.class == Class64 {
		return 64
	}
	return 40
}

func (b *Builder) symbolSize() uint64 {
	if b.class == Class64 {
		return 24
	}
	return 16
}

func (b *Builder) byteOrder() binary.ByteOrder {
	if b.order == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

type header32 struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	PhOff     uint32
	ShOff     uint32
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrNdx  uint16
}

type header64 struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
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

type section32 struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	AddrAlign uint32
	EntSize   uint32
}

type section64 struct {
	Name      uint32
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

type sym32 struct {
	Name  uint32
	Value uint32
	Size  uint32
	Info  uint8
	Other uint8
	Shndx uint16
}

type sym64 struct {
	Name  uint32
	Info  uint8
	Other uint8
	Shndx uint16
	Value uint64
	Size  uint64
}

func (b *Builder) ident() [16]byte {
	var ident [16]byte
	copy(ident[:], []byte{0x7F, 'E', 'L', 'F'})
	ident[4] = b.class
	ident[5] = b.order
	ident[6] = 1
	return ident
}

func (b *Builder) writeHeader(buf *bytes.Buffer, bo binary.ByteOrder,
	shOff uint64, shNum, strNdx uint16) {

	if b.class == Class64 {
		write(buf, bo, header64{
			Ident:     b.ident(),
			Type:      2, // executable
			Machine:   b.machine,
			Version:   1,
			Entry:     b.entry,
			ShOff:     shOff,
			EhSize:    64,
			ShEntSize: b.sectionSize(),
			ShNum:     shNum,
			ShStrNdx:  strNdx,
		})
		return
	}
	write(buf, bo, header32{
		Ident:     b.ident(),
		Type:      2, // executable
		Machine:   b.machine,
		Version:   1,
		Entry:     uint32(b.entry),
		ShOff:     uint32(shOff),
		EhSize:    52,
		ShEntSize: b.sectionSize(),
		ShNum:     shNum,
		ShStrNdx:  strNdx,
	})
}

func (b *Builder) writeSection(buf *bytes.Buffer, bo binary.ByteOrder,
	s RawSection, nameOff uint32, offset uint64) {

	size := uint64(len(s.Data))
	if s.Size != 0 {
		size = s.Size
	}

	if b.class == Class64 {
		write(buf, bo, section64{
			Name:    nameOff,
			Type:    s.Type,
			Flags:   s.Flags,
			Addr:    s.Addr,
			Offset:  offset,
			Size:    size,
			Link:    s.Link,
			Info:    s.Info,
			EntSize: s.EntSize,
		})
		return
	}
	write(buf, bo, section32{
		Name:    nameOff,
		Type:    s.Type,
		Flags:   uint32(s.Flags),
		Addr:    uint32(s.Addr),
		Offset:  uint32(offset),
		Size:    uint32(size),
		Link:    s.Link,
		Info:    s.Info,
		EntSize: uint32(s.EntSize),
	})
}

// encodeSymbols encodes the symbol records and packs their names into a
// string pool.
func (b *Builder) encodeSymbols(syms []Sym) ([]byte, []byte) {
	bo := b.byteOrder()
	pool := []byte{0}
	buf := &bytes.Buffer{}

	for _, sym := range syms {
		nameOff := uint32(0)
		if sym.Name != "" {
			nameOff = uint32(len(pool))
			pool = append(pool, sym.Name...)
			pool = append(pool, 0)
		}

		if b.class == Class64 {
			write(buf, bo, sym64{
				Name:  nameOff,
				Info:  sym.Info,
				Shndx: sym.Shndx,
				Value: sym.Value,
				Size:  sym.Size,
			})
			continue
		}
		write(buf, bo, sym32{
			Name:  nameOff,
			Value: uint32(sym.Value),
			Size:  uint32(sym.Size),
			Info:  sym.Info,
			Shndx: sym.Shndx,
		})
	}
	return buf.Bytes(), pool
}

// write encodes a fixed size value, writes into a byte buffer do not fail.
func write(buf *bytes.Buffer, bo binary.ByteOrder, v any) {
	_ = binary.Write(buf, bo, v)
}
