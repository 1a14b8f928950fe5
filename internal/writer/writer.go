// Package writer renders listings, tables, hex dumps and reports.
package writer

import (
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/retrogolib/set"

	"github.com/retroenv/armdisasm/internal/arch"
)

// Writer renders the output views of a disassembly run.
type Writer struct {
	options Options
	writer  io.Writer
}

// Options of the writer.
type Options struct {
	HexComments    bool // raw instruction encoding in the comment column
	OffsetComments bool // instruction address in the comment column
	Labels         bool // loc_ labels for branch targets inside the listing
}

// New creates a new writer.
func New(w io.Writer, options Options) *Writer {
	return &Writer{
		options: options,
		writer:  w,
	}
}

// WriteListing writes all instructions as an assembly style listing.
// Branch targets that lie inside the listing get a label line, the comment
// column carries address, raw encoding and the resolved branch symbol.
func (w *Writer) WriteListing(instructions []arch.Instruction) error {
	targets := set.New[uint64]()
	if w.options.Labels {
		for _, ins := range instructions {
			if ins.IsBranch {
				targets.Add(ins.Target)
			}
		}
	}

	for _, ins := range instructions {
		if w.options.Labels && targets.Contains(ins.Address) {
			if _, err := fmt.Fprintf(w.writer, "loc_%08X:\n", ins.Address); err != nil {
				return fmt.Errorf("writing label: %w", err)
			}
		}

		if err := w.writeCodeLine(ins); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeCodeLine(ins arch.Instruction) error {
	var parts []string
	if w.options.OffsetComments {
		parts = append(parts, fmt.Sprintf("%08X", ins.Address))
	}
	if w.options.HexComments {
		parts = append(parts, ins.EncString())
	}
	if ins.Comment != "" {
		parts = append(parts, "-> "+ins.Comment)
	}

	if len(parts) == 0 {
		if _, err := fmt.Fprintf(w.writer, "  %s\n", ins.String()); err != nil {
			return fmt.Errorf("writing code line: %w", err)
		}
		return nil
	}

	if _, err := fmt.Fprintf(w.writer, "  %-30s ; %s\n",
		ins.String(), strings.Join(parts, "  ")); err != nil {

		return fmt.Errorf("writing code line: %w", err)
	}
	return nil
}
