package elf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"

	"github.com/retroenv/armdisasm/internal/filemap"
)

// Parsing errors, one per validation.
var (
	ErrTooSmall    = errors.New("file too small for an object header")
	ErrNotElf      = errors.New("missing ELF magic")
	ErrBadVersion  = errors.New("unsupported ELF version")
	ErrBadShStrNdx = errors.New("section name table index out of range")
	ErrBadShStrTab = errors.New("section name table has unexpected type")
	ErrTruncated   = errors.New("table extends past end of file")
)

// object header and table record sizes per class.
const (
	headerSize32 = 52
	headerSize64 = 64

	sectionSize32 = 40
	sectionSize64 = 64

	symbolSize32 = 16
	symbolSize64 = 24
)

var elfMagic = []byte{0x7F, 'E', 'L', 'F'}

// Parser reads the metadata of a mapped object file.
// A single Parse call populates the header, section and symbol tables,
// afterwards the query methods give read access to the results.
type Parser struct {
	logger *log.Logger
	m      *filemap.Mapping

	bo      binary.ByteOrder
	header  Header
	shTable []byte

	sections []Section
	symbols  []Symbol

	strtab []byte
	dynstr []byte
}

// New creates a parser for the mapped object file.
// The mapping has to outlive the parser. No parsing happens yet.
func New(logger *log.Logger, m *filemap.Mapping) (*Parser, error) {
	if m.Len() < headerSize32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, m.Len())
	}

	return &Parser{
		logger: logger,
		m:      m,
		bo:     binary.LittleEndian,
	}, nil
}

// Parse reads the file metadata in stages: identification, object header,
// section headers, section names, symbols and symbol names.
// Structural failures abort parsing, unresolvable names degrade to
// sentinel names and emit a diagnostic.
func (p *Parser) Parse() error {
	if err := p.identify(); err != nil {
		return err
	}
	if err := p.readHeader(); err != nil {
		return err
	}
	if p.header.ShNum == 0 {
		return nil
	}

	p.readSections()
	if err := p.resolveSectionNames(); err != nil {
		return err
	}
	p.readSymbols()
	p.resolveSymbolNames()
	return nil
}

// identify decodes the identification bytes and fixes the class and byte
// order for all subsequent reads.
func (p *Parser) identify() error {
	data := p.m.Data()
	if !bytes.Equal(data[:4], elfMagic) {
		return ErrNotElf
	}

	if data[4] == 2 {
		p.header.Class = Class64
	} else {
		p.header.Class = Class32
	}
	if data[5] == 1 {
		p.header.Order = LittleEndian
	} else {
		p.header.Order = BigEndian
	}
	p.bo = p.header.Order.binary()

	p.header.Ident.Version = data[6]
	if p.header.Ident.Version != 1 {
		return fmt.Errorf("%w: %d", ErrBadVersion, p.header.Ident.Version)
	}
	return nil
}

// readHeader decodes the object header using the class dependent layout
// and validates the section header table bounds.
func (p *Parser) readHeader() error {
	size := p.header.Class.headerSize()
	data, err := p.m.Slice(0, size)
	if err != nil {
		return fmt.Errorf("%w: %s header needs %d bytes, have %d",
			ErrTooSmall, p.header.Class, size, p.m.Len())
	}

	bo := p.bo
	p.header.Type = FileType(bo.Uint16(data[16:]))
	p.header.Machine = Machine(bo.Uint16(data[18:]))
	p.header.Version = bo.Uint32(data[20:])

	if p.header.Class == Class64 {
		p.header.Entry = bo.Uint64(data[24:])
		p.header.PhOff = bo.Uint64(data[32:])
		p.header.ShOff = bo.Uint64(data[40:])
		p.header.Flags = bo.Uint32(data[48:])
		p.header.EhSize = bo.Uint16(data[52:])
		p.header.PhEntSize = bo.Uint16(data[54:])
		p.header.PhNum = bo.Uint16(data[56:])
		p.header.ShEntSize = bo.Uint16(data[58:])
		p.header.ShNum = bo.Uint16(data[60:])
		p.header.ShStrNdx = bo.Uint16(data[62:])
	} else {
		p.header.Entry = uint64(bo.Uint32(data[24:]))
		p.header.PhOff = uint64(bo.Uint32(data[28:]))
		p.header.ShOff = uint64(bo.Uint32(data[32:]))
		p.header.Flags = bo.Uint32(data[36:])
		p.header.EhSize = bo.Uint16(data[40:])
		p.header.PhEntSize = bo.Uint16(data[42:])
		p.header.PhNum = bo.Uint16(data[44:])
		p.header.ShEntSize = bo.Uint16(data[46:])
		p.header.ShNum = bo.Uint16(data[48:])
		p.header.ShStrNdx = bo.Uint16(data[50:])
	}

	if p.header.ShNum == 0 {
		return nil
	}
	if p.header.ShStrNdx >= p.header.ShNum {
		return fmt.Errorf("%w: index %d with %d sections",
			ErrBadShStrNdx, p.header.ShStrNdx, p.header.ShNum)
	}

	minSize := uint64(sectionSize32)
	if p.header.Class == Class64 {
		minSize = sectionSize64
	}
	if uint64(p.header.ShEntSize) < minSize {
		return fmt.Errorf("%w: section header entry size %d below %d",
			ErrTruncated, p.header.ShEntSize, minSize)
	}

	total := uint64(p.header.ShNum) * uint64(p.header.ShEntSize)
	table, err := p.m.Slice(p.header.ShOff, total)
	if err != nil {
		return fmt.Errorf("%w: section header table at offset %d size %d",
			ErrTruncated, p.header.ShOff, total)
	}
	p.shTable = table
	return nil
}

// readSections decodes all section header records in file order, callers
// index sections by their original position.
func (p *Parser) readSections() {
	bo := p.bo
	entSize := uint64(p.header.ShEntSize)
	p.sections = make([]Section, p.header.ShNum)

	for i := range p.sections {
		rec := p.shTable[uint64(i)*entSize:]
		s := &p.sections[i]
		s.NameOff = bo.Uint32(rec[0:])
		s.Type = SectionType(bo.Uint32(rec[4:]))

		if p.header.Class == Class64 {
			s.Flags = bo.Uint64(rec[8:])
			s.Addr = bo.Uint64(rec[16:])
			s.Offset = bo.Uint64(rec[24:])
			s.Size = bo.Uint64(rec[32:])
			s.Link = bo.Uint32(rec[40:])
			s.Info = bo.Uint32(rec[44:])
			s.AddrAlign = bo.Uint64(rec[48:])
			s.EntSize = bo.Uint64(rec[56:])
		} else {
			s.Flags = uint64(bo.Uint32(rec[8:]))
			s.Addr = uint64(bo.Uint32(rec[12:]))
			s.Offset = uint64(bo.Uint32(rec[16:]))
			s.Size = uint64(bo.Uint32(rec[20:]))
			s.Link = bo.Uint32(rec[24:])
			s.Info = bo.Uint32(rec[28:])
			s.AddrAlign = uint64(bo.Uint32(rec[32:]))
			s.EntSize = uint64(bo.Uint32(rec[36:]))
		}
	}
}

// resolveSectionNames resolves all section names against the section name
// table and caches the .strtab and .dynstr pools for symbol resolution.
func (p *Parser) resolveSectionNames() error {
	strs := p.sections[p.header.ShStrNdx]
	if strs.Type != SectionStrTab {
		return fmt.Errorf("%w: section %d has type %s",
			ErrBadShStrTab, p.header.ShStrNdx, strs.Type)
	}
	pool, err := p.m.Slice(strs.Offset, strs.Size)
	if err != nil {
		return fmt.Errorf("%w: section name table at offset %d size %d",
			ErrTruncated, strs.Offset, strs.Size)
	}

	for i := range p.sections {
		s := &p.sections[i]
		name, ok := cString(pool, s.NameOff)
		if !ok {
			p.logger.Warn("Invalid section name offset",
				log.Int("section", i),
				log.Hex("offset", s.NameOff))
			s.Name = InvalidName
			continue
		}
		s.Name = name

		switch name {
		case ".strtab":
			if p.strtab == nil {
				p.strtab = p.stringPool(s)
			}
		case ".dynstr":
			if p.dynstr == nil {
				p.dynstr = p.stringPool(s)
			}
		}
	}
	return nil
}

// stringPool returns the bytes of a string table section, nil if the
// section does not fit within the file.
func (p *Parser) stringPool(s *Section) []byte {
	pool, err := p.m.Slice(s.Offset, s.Size)
	if err != nil {
		p.logger.Warn("String table does not fit within the file",
			log.String("section", s.Name),
			log.Hex("offset", s.Offset),
			log.Hex("size", s.Size))
		return nil
	}
	return pool
}

// readSymbols collects the entries of all symbol bearing sections into a
// single flat list in file order.
func (p *Parser) readSymbols() {
	symSize := uint64(symbolSize32)
	if p.header.Class == Class64 {
		symSize = symbolSize64
	}

	for i := range p.sections {
		s := &p.sections[i]
		if s.Type != SectionSymTab && s.Type != SectionDynSym {
			continue
		}
		if s.EntSize == 0 {
			continue
		}

		data, err := p.m.Slice(s.Offset, s.Size)
		if err != nil || s.EntSize < symSize {
			p.logger.Warn("Skipping symbol table",
				log.String("section", s.Name),
				log.Hex("offset", s.Offset),
				log.Hex("size", s.Size),
				log.Hex("entsize", s.EntSize))
			continue
		}

		count := s.Size / s.EntSize
		for j := uint64(0); j < count; j++ {
			p.symbols = append(p.symbols, p.readSymbol(data[j*s.EntSize:]))
		}
	}
}

// readSymbol decodes a symbol record using the class dependent field order.
func (p *Parser) readSymbol(rec []byte) Symbol {
	bo := p.bo
	sym := Symbol{
		NameOff: bo.Uint32(rec[0:]),
	}
	if p.header.Class == Class64 {
		sym.Info = rec[4]
		sym.Other = rec[5]
		sym.Shndx = bo.Uint16(rec[6:])
		sym.Value = bo.Uint64(rec[8:])
		sym.Size = bo.Uint64(rec[16:])
	} else {
		sym.Value = uint64(bo.Uint32(rec[4:]))
		sym.Size = uint64(bo.Uint32(rec[8:]))
		sym.Info = rec[12]
		sym.Other = rec[13]
		sym.Shndx = bo.Uint16(rec[14:])
	}
	return sym
}

// resolveSymbolNames resolves all symbol names. The pool is chosen by the
// type of the section the symbol refers to: symbols of dynamic sections
// resolve against .dynstr, all others against .strtab.
func (p *Parser) resolveSymbolNames() {
	for i := range p.symbols {
		sym := &p.symbols[i]
		pool := p.strtab
		if idx := int(sym.Shndx); idx < len(p.sections) {
			typ := p.sections[idx].Type
			if typ == SectionDynamic || typ == SectionDynSym {
				pool = p.dynstr
			}
		}

		name, ok := cString(pool, sym.NameOff)
		if !ok {
			p.logger.Debug("Invalid symbol name offset",
				log.Int("symbol", i),
				log.Hex("offset", sym.NameOff))
			sym.Name = Unnamed
			continue
		}
		sym.Name = name
	}
}

// cString reads the 0 terminated string at the given offset of a string
// pool. Offsets outside the pool report false, an unterminated string is
// cut at the pool end.
func cString(pool []byte, offset uint32) (string, bool) {
	if uint64(offset) >= uint64(len(pool)) {
		return "", false
	}
	str := pool[offset:]
	if end := bytes.IndexByte(str, 0); end >= 0 {
		str = str[:end]
	}
	return string(str), true
}

// Header returns the parsed object header.
func (p *Parser) Header() Header {
	return p.header
}

// Sections returns all section descriptors in file order.
func (p *Parser) Sections() []Section {
	return p.sections
}

// Symbols returns all symbol entries across the symbol bearing sections
// in file order.
func (p *Parser) Symbols() []Symbol {
	return p.symbols
}

// SectionData returns the bytes of the first section with the given name.
// It reports false if no section matches, the section occupies no file
// storage or its data lies outside the file.
func (p *Parser) SectionData(name string) ([]byte, bool) {
	s, ok := p.section(name)
	if !ok || s.Type == SectionNoBits {
		return nil, false
	}

	data, err := p.m.Slice(s.Offset, s.Size)
	if err != nil {
		p.logger.Warn("Section data lies outside the file",
			log.String("section", name),
			log.Hex("offset", s.Offset),
			log.Hex("size", s.Size))
		return nil, false
	}
	return data, true
}

// SectionSize returns the size of the first section with the given name,
// 0 if no section matches.
func (p *Parser) SectionSize(name string) uint64 {
	s, ok := p.section(name)
	if !ok {
		return 0
	}
	return s.Size
}

// SectionAddress returns the virtual address of the first section with
// the given name, 0 if no section matches.
func (p *Parser) SectionAddress(name string) uint64 {
	s, ok := p.section(name)
	if !ok {
		return 0
	}
	return s.Addr
}

// section finds the first section with the given name.
func (p *Parser) section(name string) (*Section, bool) {
	for i := range p.sections {
		if p.sections[i].Name == name {
			return &p.sections[i], true
		}
	}
	return nil, false
}
