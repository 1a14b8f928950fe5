package writer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/retroenv/armdisasm/internal/arch"
	"github.com/retroenv/armdisasm/internal/elf"
	"github.com/retroenv/armdisasm/internal/session"
)

var listingInstructions = []arch.Instruction{
	{
		Address:  0x8000,
		Enc:      0xE3A00001,
		Width:    4,
		Mnemonic: "MOV",
		Operands: "R0, #0x1",
	},
	{
		Address:  0x8004,
		Enc:      0xEAFFFFFD,
		Width:    4,
		Mnemonic: "B",
		Operands: "0x00008000",
		Comment:  "start",
		IsBranch: true,
		Target:   0x8000,
	},
}

var expectedListingDefault = `loc_00008000:
  MOV R0, #0x1                   ; 00008000  E3A00001
  B 0x00008000                   ; 00008004  EAFFFFFD  -> start
`

var expectedListingPlain = `  MOV R0, #0x1
  B 0x00008000
`

var expectedListingOffsets = `loc_00008000:
  MOV R0, #0x1                   ; 00008000
  B 0x00008000                   ; 00008004  -> start
`

func TestWriteListing(t *testing.T) {
	tests := []struct {
		name     string
		options  Options
		expected string
	}{
		{
			name:     "comments and labels",
			options:  Options{HexComments: true, OffsetComments: true, Labels: true},
			expected: expectedListingDefault,
		},
		{
			name:     "plain",
			options:  Options{},
			expected: expectedListingPlain,
		},
		{
			name:     "offsets only",
			options:  Options{OffsetComments: true, Labels: true},
			expected: expectedListingOffsets,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buffer := &bytes.Buffer{}
			w := New(buffer, tt.options)

			assert.NoError(t, w.WriteListing(listingInstructions))
			assert.Equal(t, tt.expected, buffer.String())
		})
	}
}

func TestWriteHexDump(t *testing.T) {
	buffer := &bytes.Buffer{}
	w := New(buffer, Options{})

	data := append([]byte("Hello, ARM world"), 0x00, 0x01, 0x7F, 0xFF)
	assert.NoError(t, w.WriteHexDump(0x8000, data))

	expected := "00008000  48 65 6C 6C 6F 2C 20 41 52 4D 20 77 6F 72 6C 64  |Hello, ARM world|\n" +
		"00008010  00 01 7F FF" + strings.Repeat(" ", 38) + "|....|\n"
	assert.Equal(t, expected, buffer.String())
}

func TestWriteHexDumpEmpty(t *testing.T) {
	buffer := &bytes.Buffer{}
	w := New(buffer, Options{})

	assert.NoError(t, w.WriteHexDump(0x8000, nil))
	assert.Empty(t, buffer.String())
}

func TestWriteSectionTable(t *testing.T) {
	buffer := &bytes.Buffer{}
	w := New(buffer, Options{})

	sections := []elf.Section{
		{Type: elf.SectionNull},
		{Name: ".text", Type: elf.SectionProgBits, Addr: 0x8000, Offset: 0x34, Size: 8},
	}
	assert.NoError(t, w.WriteSectionTable(sections))

	lines := strings.Split(buffer.String(), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "Idx Name               Type       Address            Offset     Size", lines[0])
	assert.Equal(t, "  0                    NULL       0000000000000000        0        0", lines[1])
	assert.Equal(t, "  1 .text              PROGBITS   0000000000008000       34        8", lines[2])
	assert.Equal(t, "", lines[3])
}

func TestWriteSymbolTable(t *testing.T) {
	buffer := &bytes.Buffer{}
	w := New(buffer, Options{})

	symbols := []session.Symbol{
		{Name: "start", Value: 0x8000, Size: 8, Section: ".text"},
		{Name: "data", Value: 0x10000, Size: 256, Section: ".data"},
	}
	assert.NoError(t, w.WriteSymbolTable(symbols))

	lines := strings.Split(buffer.String(), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "Value                Size Section        Name", lines[0])
	assert.Equal(t, "0000000000008000        8 .text          start", lines[1])
	assert.Equal(t, "0000000000010000      256 .data          data", lines[2])
}

func TestReport(t *testing.T) {
	header := elf.Header{
		Ident:   elf.Ident{Class: elf.Class64, Order: elf.LittleEndian},
		Machine: elf.MachineAArch64,
		Entry:   0x400000,
	}
	sections := []elf.Section{
		{Name: ".text", Type: elf.SectionProgBits, Addr: 0x400000, Size: 8},
	}
	symbols := []session.Symbol{
		{Name: "main", Value: 0x400000, Size: 8, Section: ".text"},
	}

	report := NewReport("test.elf", header, sections, symbols, listingInstructions)

	buffer := &bytes.Buffer{}
	w := New(buffer, Options{})
	assert.NoError(t, w.WriteReport(report))

	var decoded Report
	assert.NoError(t, json.Unmarshal(buffer.Bytes(), &decoded))

	assert.Equal(t, "test.elf", decoded.File)
	assert.Equal(t, "ELF64", decoded.Class)
	assert.Equal(t, "AArch64", decoded.Machine)
	assert.Equal(t, "0x400000", decoded.Entry)

	assert.Len(t, decoded.Sections, 1)
	assert.Equal(t, ".text", decoded.Sections[0].Name)
	assert.Equal(t, "PROGBITS", decoded.Sections[0].Type)
	assert.Equal(t, "0x400000", decoded.Sections[0].Address)

	assert.Len(t, decoded.Symbols, 1)
	assert.Equal(t, "main", decoded.Symbols[0].Name)
	assert.Equal(t, "0x400000", decoded.Symbols[0].Value)

	assert.Len(t, decoded.Instructions, 2)
	assert.Equal(t, "0x8000", decoded.Instructions[0].Address)
	assert.Equal(t, "E3A00001", decoded.Instructions[0].Encoding)
	assert.Equal(t, "MOV", decoded.Instructions[0].Mnemonic)
	assert.Equal(t, "", decoded.Instructions[0].Target)
	assert.Equal(t, "0x8000", decoded.Instructions[1].Target)
	assert.Equal(t, "start", decoded.Instructions[1].Symbol)
}

func TestReportSchema(t *testing.T) {
	buffer := &bytes.Buffer{}
	w := New(buffer, Options{})

	assert.NoError(t, w.WriteReportSchema())

	output := buffer.String()
	assert.Contains(t, output, "$schema")
	assert.Contains(t, output, "Path of the processed object file")
	assert.Contains(t, output, "Decoded instructions of the selected section")
}
