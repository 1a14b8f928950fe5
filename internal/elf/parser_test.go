package elf

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"

	"github.com/retroenv/armdisasm/internal/elf/elftest"
	"github.com/retroenv/armdisasm/internal/filemap"
)

func parse(t *testing.T, data []byte) (*Parser, error) {
	t.Helper()

	parser, err := New(log.NewTestLogger(t), filemap.NewFromBytes(data))
	assert.NoError(t, err)
	return parser, parser.Parse()
}

// minimalHeader64 builds a bare 64 byte object header without any section
// headers, pinning the on-disk field offsets independent of the builder.
func minimalHeader64() []byte {
	data := make([]byte, 64)
	copy(data, []byte{0x7F, 'E', 'L', 'F', 2, 1, 1})
	data[16] = 2    // executable
	data[18] = 0x28 // ARM
	data[20] = 1    // version
	return data
}

func TestParseMinimal(t *testing.T) {
	parser, err := parse(t, minimalHeader64())
	assert.NoError(t, err)

	header := parser.Header()
	assert.Equal(t, Class64, header.Class)
	assert.Equal(t, LittleEndian, header.Order)
	assert.Equal(t, FileExec, header.Type)
	assert.Equal(t, MachineARM, header.Machine)
	assert.Empty(t, parser.Sections())
	assert.Empty(t, parser.Symbols())
}

func TestParseSections(t *testing.T) {
	code := []byte{0x01, 0x00, 0xA0, 0xE3}
	builder := elftest.New(elftest.Class64, elftest.LittleEndian)
	builder.SetEntry(0x1000)
	builder.AddSection(".text", elftest.TypeProgBits, 0x1000, code)
	builder.AddSection(".data", elftest.TypeProgBits, 0x2000, []byte{0xAA, 0xBB})

	parser, err := parse(t, builder.Build())
	assert.NoError(t, err)

	header := parser.Header()
	assert.Equal(t, uint64(0x1000), header.Entry)
	assert.Equal(t, uint16(4), header.ShNum)
	assert.Equal(t, uint16(3), header.ShStrNdx)

	sections := parser.Sections()
	assert.Len(t, sections, 4)
	assert.Equal(t, "", sections[0].Name)
	assert.Equal(t, ".text", sections[1].Name)
	assert.Equal(t, uint32(1), sections[1].NameOff)
	assert.Equal(t, ".data", sections[2].Name)
	assert.Equal(t, ".shstrtab", sections[3].Name)
	assert.Equal(t, SectionStrTab, sections[3].Type)

	data, ok := parser.SectionData(".text")
	assert.True(t, ok)
	assert.Equal(t, code, data)
	assert.Equal(t, uint64(4), parser.SectionSize(".text"))
	assert.Equal(t, uint64(0x1000), parser.SectionAddress(".text"))

	_, ok = parser.SectionData(".rodata")
	assert.False(t, ok)
	assert.Equal(t, uint64(0), parser.SectionSize(".rodata"))
	assert.Equal(t, uint64(0), parser.SectionAddress(".rodata"))
}

func TestParseSymbols(t *testing.T) {
	builder := elftest.New(elftest.Class64, elftest.LittleEndian)
	text := builder.AddSection(".text", elftest.TypeProgBits, 0x1000, make([]byte, 8))
	builder.AddSymTab(
		elftest.Sym{Name: "main", Value: 0x1000, Size: 8, Shndx: text},
		elftest.Sym{Value: 0x1004, Shndx: text},
	)

	parser, err := parse(t, builder.Build())
	assert.NoError(t, err)

	syms := parser.Symbols()
	assert.Len(t, syms, 2)
	assert.Equal(t, "main", syms[0].Name)
	assert.Equal(t, uint64(0x1000), syms[0].Value)
	assert.Equal(t, uint64(8), syms[0].Size)
	assert.Equal(t, text, syms[0].Shndx)
	assert.Equal(t, "", syms[1].Name)
	assert.Equal(t, uint64(0x1004), syms[1].Value)
}

func TestParseDynamicSymbols(t *testing.T) {
	builder := elftest.New(elftest.Class64, elftest.LittleEndian)
	text := builder.AddSection(".text", elftest.TypeProgBits, 0x1000, make([]byte, 8))

	// the first symbol refers to the .dynsym section itself and resolves
	// against .dynstr, the second refers to .text and resolves against the
	// absent .strtab pool
	dynsym := uint16(2)
	builder.AddDynSym(
		elftest.Sym{Name: "printf", Value: 0x2000, Shndx: dynsym},
		elftest.Sym{Name: "helper", Value: 0x1004, Shndx: text},
	)

	parser, err := parse(t, builder.Build())
	assert.NoError(t, err)

	syms := parser.Symbols()
	assert.Len(t, syms, 2)
	assert.Equal(t, "printf", syms[0].Name)
	assert.Equal(t, Unnamed, syms[1].Name)
}

func TestParse32BigEndian(t *testing.T) {
	code := []byte{0xEA, 0x00, 0x00, 0x01}
	builder := elftest.New(elftest.Class32, elftest.BigEndian)
	builder.SetEntry(0x8000)
	text := builder.AddSection(".text", elftest.TypeProgBits, 0x8000, code)
	builder.AddSymTab(elftest.Sym{Name: "_start", Value: 0x8000, Size: 4, Shndx: text})

	parser, err := parse(t, builder.Build())
	assert.NoError(t, err)

	header := parser.Header()
	assert.Equal(t, Class32, header.Class)
	assert.Equal(t, BigEndian, header.Order)
	assert.Equal(t, uint64(0x8000), header.Entry)
	assert.Equal(t, uint16(40), header.ShEntSize)

	data, ok := parser.SectionData(".text")
	assert.True(t, ok)
	assert.Equal(t, code, data)
	assert.Equal(t, uint64(0x8000), parser.SectionAddress(".text"))

	syms := parser.Symbols()
	assert.Len(t, syms, 1)
	assert.Equal(t, "_start", syms[0].Name)
	assert.Equal(t, uint64(0x8000), syms[0].Value)
	assert.Equal(t, uint64(4), syms[0].Size)
}

func TestParseErrors(t *testing.T) {
	base := func() *elftest.Builder {
		builder := elftest.New(elftest.Class64, elftest.LittleEndian)
		builder.AddSection(".text", elftest.TypeProgBits, 0x1000, make([]byte, 4))
		return builder
	}

	t.Run("too small", func(t *testing.T) {
		_, err := New(log.NewTestLogger(t), filemap.NewFromBytes(make([]byte, 51)))
		assert.ErrorContains(t, err, "file too small")
	})

	t.Run("missing magic", func(t *testing.T) {
		data := base().Build()
		data[0] = 0x7E
		_, err := parse(t, data)
		assert.ErrorContains(t, err, "missing ELF magic")
	})

	t.Run("bad version", func(t *testing.T) {
		data := base().Build()
		data[6] = 2
		_, err := parse(t, data)
		assert.ErrorContains(t, err, "unsupported ELF version")
	})

	t.Run("section name table index out of range", func(t *testing.T) {
		data := base().SetShStrNdx(99).Build()
		_, err := parse(t, data)
		assert.ErrorContains(t, err, "index out of range")
	})

	t.Run("section name table has wrong type", func(t *testing.T) {
		data := base().SetShStrNdx(1).Build() // .text is PROGBITS
		_, err := parse(t, data)
		assert.ErrorContains(t, err, "unexpected type")
	})

	t.Run("truncated section header table", func(t *testing.T) {
		data := base().Build()
		_, err := parse(t, data[:len(data)-10])
		assert.ErrorContains(t, err, "past end of file")
	})
}

func TestParseSkipsBrokenSymbolTables(t *testing.T) {
	t.Run("entry size zero", func(t *testing.T) {
		builder := elftest.New(elftest.Class64, elftest.LittleEndian)
		builder.AddRaw(elftest.RawSection{
			Name: ".symtab",
			Type: elftest.TypeSymTab,
			Data: make([]byte, 48),
		})

		parser, err := parse(t, builder.Build())
		assert.NoError(t, err)
		assert.Empty(t, parser.Symbols())
	})

	t.Run("table past end of file", func(t *testing.T) {
		builder := elftest.New(elftest.Class64, elftest.LittleEndian)
		builder.AddRaw(elftest.RawSection{
			Name:    ".symtab",
			Type:    elftest.TypeSymTab,
			Size:    1 << 20,
			EntSize: 24,
		})

		parser, err := parse(t, builder.Build())
		assert.NoError(t, err)
		assert.Empty(t, parser.Symbols())
	})
}

func TestSectionDataNoStorage(t *testing.T) {
	builder := elftest.New(elftest.Class64, elftest.LittleEndian)
	builder.AddRaw(elftest.RawSection{
		Name: ".bss",
		Type: elftest.TypeNoBits,
		Addr: 0x3000,
		Size: 4,
	})
	builder.AddSection(".data", elftest.TypeProgBits, 0x2000, []byte{1, 2, 3, 4})

	parser, err := parse(t, builder.Build())
	assert.NoError(t, err)

	// the file range of .bss overlaps .data and would fit, its data is
	// still reported absent
	_, ok := parser.SectionData(".bss")
	assert.False(t, ok)
	assert.Equal(t, uint64(4), parser.SectionSize(".bss"))
	assert.Equal(t, uint64(0x3000), parser.SectionAddress(".bss"))
}

func TestSectionDataOutOfFile(t *testing.T) {
	builder := elftest.New(elftest.Class64, elftest.LittleEndian)
	builder.AddRaw(elftest.RawSection{
		Name: ".broken",
		Type: elftest.TypeProgBits,
		Size: 1 << 20,
	})

	parser, err := parse(t, builder.Build())
	assert.NoError(t, err)

	_, ok := parser.SectionData(".broken")
	assert.False(t, ok)
	assert.Equal(t, uint64(1<<20), parser.SectionSize(".broken"))
}

func TestDuplicateSectionNames(t *testing.T) {
	builder := elftest.New(elftest.Class64, elftest.LittleEndian)
	builder.AddSection(".text", elftest.TypeProgBits, 0x1000, []byte{0x11, 0x22})
	builder.AddSection(".text", elftest.TypeProgBits, 0x2000, []byte{0x33, 0x44})

	parser, err := parse(t, builder.Build())
	assert.NoError(t, err)

	// the first section wins on duplicate names
	data, ok := parser.SectionData(".text")
	assert.True(t, ok)
	assert.Equal(t, []byte{0x11, 0x22}, data)
	assert.Equal(t, uint64(0x1000), parser.SectionAddress(".text"))
}
