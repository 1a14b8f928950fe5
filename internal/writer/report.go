package writer

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/retroenv/armdisasm/internal/arch"
	"github.com/retroenv/armdisasm/internal/elf"
	"github.com/retroenv/armdisasm/internal/session"
)

// Report is the machine readable result of a disassembly run.
type Report struct {
	File         string              `json:"file" jsonschema:"title=File,description=Path of the processed object file"`
	Class        string              `json:"class" jsonschema:"title=Class,description=Object file class"`
	Machine      string              `json:"machine" jsonschema:"title=Machine,description=Machine architecture of the object file"`
	Entry        string              `json:"entry" jsonschema:"title=Entry,description=Entry point address"`
	Sections     []ReportSection     `json:"sections,omitempty" jsonschema:"title=Sections,description=Section headers of the object file"`
	Symbols      []ReportSymbol      `json:"symbols,omitempty" jsonschema:"title=Symbols,description=Symbols of the object file"`
	Instructions []ReportInstruction `json:"instructions,omitempty" jsonschema:"title=Instructions,description=Decoded instructions of the selected section"`
}

// ReportSection describes one section header.
type ReportSection struct {
	Name    string `json:"name" jsonschema:"title=Name,description=Section name"`
	Type    string `json:"type" jsonschema:"title=Type,description=Section type"`
	Address string `json:"address" jsonschema:"title=Address,description=Virtual address of the section"`
	Size    uint64 `json:"size" jsonschema:"title=Size,description=Section size in octets"`
}

// ReportSymbol describes one symbol.
type ReportSymbol struct {
	Name    string `json:"name" jsonschema:"title=Name,description=Symbol name"`
	Value   string `json:"value" jsonschema:"title=Value,description=Symbol value"`
	Size    uint64 `json:"size" jsonschema:"title=Size,description=Symbol size in octets"`
	Section string `json:"section" jsonschema:"title=Section,description=Name of the section the symbol belongs to"`
}

// ReportInstruction describes one decoded instruction.
type ReportInstruction struct {
	Address  string `json:"address" jsonschema:"title=Address,description=Virtual address of the instruction"`
	Encoding string `json:"encoding" jsonschema:"title=Encoding,description=Raw instruction encoding as hex"`
	Mnemonic string `json:"mnemonic" jsonschema:"title=Mnemonic,description=Instruction mnemonic"`
	Operands string `json:"operands,omitempty" jsonschema:"title=Operands,description=Instruction operands"`
	Target   string `json:"target,omitempty" jsonschema:"title=Target,description=Branch target address"`
	Symbol   string `json:"symbol,omitempty" jsonschema:"title=Symbol,description=Symbol at the branch target"`
}

// NewReport builds a report from the loaded state of a session.
func NewReport(file string, header elf.Header, sections []elf.Section,
	symbols []session.Symbol, instructions []arch.Instruction) Report {

	report := Report{
		File:    file,
		Class:   header.Class.String(),
		Machine: header.Machine.String(),
		Entry:   hexString(header.Entry),
	}

	for _, section := range sections {
		report.Sections = append(report.Sections, ReportSection{
			Name:    section.Name,
			Type:    section.Type.String(),
			Address: hexString(section.Addr),
			Size:    section.Size,
		})
	}

	for _, sym := range symbols {
		report.Symbols = append(report.Symbols, ReportSymbol{
			Name:    sym.Name,
			Value:   hexString(sym.Value),
			Size:    sym.Size,
			Section: sym.Section,
		})
	}

	for _, ins := range instructions {
		instruction := ReportInstruction{
			Address:  hexString(ins.Address),
			Encoding: ins.EncString(),
			Mnemonic: ins.Mnemonic,
			Operands: ins.Operands,
			Symbol:   ins.Comment,
		}
		if ins.IsBranch {
			instruction.Target = hexString(ins.Target)
		}
		report.Instructions = append(report.Instructions, instruction)
	}

	return report
}

func hexString(value uint64) string {
	return fmt.Sprintf("0x%X", value)
}

// WriteReport writes the report as indented JSON.
func (w *Writer) WriteReport(report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// WriteReportSchema writes the JSON schema of the report format.
func (w *Writer) WriteReportSchema() error {
	reflector := new(jsonschema.Reflector)
	data, err := json.MarshalIndent(reflector.Reflect(&Report{}), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}
	return nil
}
