package writer

import (
	"fmt"

	"github.com/retroenv/armdisasm/internal/elf"
	"github.com/retroenv/armdisasm/internal/session"
)

// WriteSectionTable writes one line per section header.
func (w *Writer) WriteSectionTable(sections []elf.Section) error {
	if _, err := fmt.Fprintf(w.writer, "%3s %-18s %-10s %-16s %8s %8s\n",
		"Idx", "Name", "Type", "Address", "Offset", "Size"); err != nil {

		return fmt.Errorf("writing section table header: %w", err)
	}

	for i, section := range sections {
		if _, err := fmt.Fprintf(w.writer, "%3d %-18s %-10s %016X %8X %8d\n",
			i, section.Name, section.Type, section.Addr,
			section.Offset, section.Size); err != nil {

			return fmt.Errorf("writing section table row: %w", err)
		}
	}
	return nil
}

// WriteSymbolTable writes one line per symbol.
func (w *Writer) WriteSymbolTable(symbols []session.Symbol) error {
	if _, err := fmt.Fprintf(w.writer, "%-16s %8s %-14s %s\n",
		"Value", "Size", "Section", "Name"); err != nil {

		return fmt.Errorf("writing symbol table header: %w", err)
	}

	for _, sym := range symbols {
		if _, err := fmt.Fprintf(w.writer, "%016X %8d %-14s %s\n",
			sym.Value, sym.Size, sym.Section, sym.Name); err != nil {

			return fmt.Errorf("writing symbol table row: %w", err)
		}
	}
	return nil
}
