// Package arch contains types and functions used for multi architecture support.
// It acts as a bridge between the session and the architecture specific decoders.
package arch

import (
	"fmt"
	"strings"
)

// Mode selects the instruction set the decoder assumes for a byte region.
type Mode uint8

// Instruction set modes supported by the decoders.
const (
	// ModeARM decodes the classic 32-bit ARM (A32) instruction set.
	ModeARM Mode = iota
	// ModeThumb decodes the 16-bit Thumb set including 32-bit Thumb-2 encodings.
	ModeThumb
	// ModeA64 decodes the 64-bit ARM (A64) instruction set.
	ModeA64
)

// String implements the fmt.Stringer interface.
func (m Mode) String() string {
	switch m {
	case ModeARM:
		return "arm"
	case ModeThumb:
		return "thumb"
	case ModeA64:
		return "a64"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ModeFromString returns the mode matching the given name.
func ModeFromString(name string) (Mode, error) {
	switch strings.ToLower(name) {
	case "arm":
		return ModeARM, nil
	case "thumb":
		return ModeThumb, nil
	case "a64", "arm64", "aarch64":
		return ModeA64, nil
	default:
		return ModeARM, fmt.Errorf("unsupported mode '%s'", name)
	}
}

// Instruction is a single decoded instruction.
// Width holds the number of octets consumed from the input stream and Enc the
// raw encoding packed into the low Width*8 bits. For 32-bit Thumb-2 encodings
// Enc holds the first halfword in the upper 16 bits.
type Instruction struct {
	Address  uint64 // virtual address of the instruction
	Enc      uint32 // raw encoding
	Width    int    // octets consumed, 2 or 4, smaller for a truncated tail
	Mnemonic string
	Operands string
	Comment  string // resolved branch target symbol, set by the session
	IsBranch bool
	Target   uint64 // absolute branch target, valid only if IsBranch is set
}

// String implements the fmt.Stringer interface.
func (i Instruction) String() string {
	if i.Operands == "" {
		return i.Mnemonic
	}
	return i.Mnemonic + " " + i.Operands
}

// EncString returns the raw encoding as hex, scaled to the instruction width.
func (i Instruction) EncString() string {
	return fmt.Sprintf("%0*X", i.Width*2, i.Enc)
}

// Decoder translates a byte region into a sequence of instructions.
type Decoder interface {
	// Decode walks code in a single forward pass and returns one record per
	// consumed instruction. The cumulative width of the returned records
	// always equals len(code); a tail shorter than one instruction yields a
	// final record with mnemonic "???" covering the remaining octets.
	Decode(code []byte, baseVA uint64, mode Mode) []Instruction
}
