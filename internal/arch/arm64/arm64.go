// Package arm64 decodes A64 instruction streams.
package arm64

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/retroenv/armdisasm/internal/arch"
)

// Decoder decodes A64 instruction streams using the x/arch decoder with
// GNU assembler syntax output.
type Decoder struct{}

var _ arch.Decoder = (*Decoder)(nil)

// New creates a decoder for the A64 instruction set.
func New() *Decoder {
	return &Decoder{}
}

// Decode walks the byte region in fixed 4 byte steps. Words that do not
// decode become UNK records, a shorter tail becomes a single ??? record.
func (d *Decoder) Decode(code []byte, baseVA uint64, _ arch.Mode) []arch.Instruction {
	var instructions []arch.Instruction

	size := uint64(len(code))
	for offset := uint64(0); offset < size; offset += 4 {
		addr := baseVA + offset
		if size-offset < 4 {
			instructions = append(instructions, truncated(code[offset:], addr))
			break
		}
		instructions = append(instructions, decode(code[offset:offset+4], addr))
	}
	return instructions
}

// decode decodes a single instruction word. Branch instructions carry
// their absolute target, computed from the pc relative argument without
// any pc skew.
func decode(code []byte, addr uint64) arch.Instruction {
	word := binary.LittleEndian.Uint32(code)
	ins := arch.Instruction{
		Address: addr,
		Enc:     word,
		Width:   4,
	}

	inst, err := arm64asm.Decode(code)
	if err != nil {
		ins.Mnemonic = "UNK"
		ins.Operands = fmt.Sprintf("0x%X", word)
		return ins
	}

	text := arm64asm.GNUSyntax(inst)
	mnemonic, operands, _ := strings.Cut(text, " ")
	ins.Mnemonic = mnemonic
	ins.Operands = operands

	switch inst.Op {
	case arm64asm.B, arm64asm.BL, arm64asm.CBZ, arm64asm.CBNZ,
		arm64asm.TBZ, arm64asm.TBNZ:
		for _, arg := range inst.Args {
			rel, ok := arg.(arm64asm.PCRel)
			if !ok {
				continue
			}
			ins.IsBranch = true
			ins.Target = addr + uint64(int64(rel))
			break
		}
	}
	return ins
}

// truncated builds the ??? record for a tail shorter than one word.
// The encoding keeps the remaining bytes in little endian order.
func truncated(code []byte, addr uint64) arch.Instruction {
	enc := uint32(0)
	for i := len(code) - 1; i >= 0; i-- {
		enc = enc<<8 | uint32(code[i])
	}
	return arch.Instruction{
		Address:  addr,
		Enc:      enc,
		Width:    len(code),
		Mnemonic: "???",
	}
}
