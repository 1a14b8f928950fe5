// Package arm decodes A32 and Thumb instruction streams into their
// textual form.
package arm

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/retroenv/armdisasm/internal/arch"
)

// instruction class identification masks, checked in order.
const (
	branchMask     = 0x0E000000
	branchValue    = 0x0A000000
	dataProcMask   = 0x0C000000
	dataProcValue  = 0x00000000
	loadStoreMask  = 0x0C000000
	loadStoreValue = 0x04000000
)

// data processing opcodes that take no first source register.
const (
	opMov = 13
	opMvn = 15
)

// condSuffix maps the condition nibble to the mnemonic suffix.
// Index 14 is the always condition and adds no suffix.
var condSuffix = [16]string{
	"EQ", "NE", "CS", "CC", "MI", "PL", "VS", "VC",
	"HI", "LS", "GE", "LT", "GT", "LE", "", "NV",
}

// dataProcOps maps bits 24..21 of a data processing instruction to its
// mnemonic.
var dataProcOps = [16]string{
	"AND", "EOR", "SUB", "RSB", "ADD", "ADC", "SBC", "RSC",
	"TST", "TEQ", "CMP", "CMN", "ORR", "MOV", "BIC", "MVN",
}

// Decoder decodes A32 and Thumb instruction streams.
type Decoder struct{}

var _ arch.Decoder = (*Decoder)(nil)

// New creates a decoder for the 32 bit instruction sets.
func New() *Decoder {
	return &Decoder{}
}

// Decode walks the byte region in a single forward pass. Each step consumes
// 2 or 4 octets, a tail shorter than one instruction becomes a single ???
// record, the summed widths of the results always equal the region length.
func (d *Decoder) Decode(code []byte, baseVA uint64, mode arch.Mode) []arch.Instruction {
	var instructions []arch.Instruction

	size := uint64(len(code))
	for offset := uint64(0); offset < size; {
		var ins arch.Instruction
		if mode == arch.ModeThumb {
			ins = decodeThumb(code[offset:], baseVA+offset)
		} else {
			ins = decodeARM(code[offset:], baseVA+offset)
		}
		instructions = append(instructions, ins)
		offset += uint64(ins.Width)
	}
	return instructions
}

// decodeARM decodes one A32 instruction word.
func decodeARM(code []byte, addr uint64) arch.Instruction {
	if len(code) < 4 {
		return truncated(code, addr)
	}

	word := binary.LittleEndian.Uint32(code)
	ins := arch.Instruction{
		Address: addr,
		Enc:     word,
		Width:   4,
	}
	cond := condSuffix[word>>28]

	switch {
	case word&branchMask == branchValue:
		decodeBranch(&ins, word, cond)
	case word&dataProcMask == dataProcValue:
		decodeDataProcessing(&ins, word, cond)
	case word&loadStoreMask == loadStoreValue:
		decodeLoadStore(&ins, word, cond)
	default:
		ins.Mnemonic = "UNK" + cond
		ins.Operands = fmt.Sprintf("0x%X", word)
	}
	return ins
}

// decodeBranch decodes B and BL. The offset is the 24 bit immediate times
// 4, sign extended, relative to the instruction address plus 8.
func decodeBranch(ins *arch.Instruction, word uint32, cond string) {
	ins.Mnemonic = "B" + cond
	if word&0x01000000 != 0 {
		ins.Mnemonic = "BL" + cond
	}

	offset := signExtend((word&0x00FFFFFF)<<2, 25)
	ins.IsBranch = true
	ins.Target = ins.Address + 8 + offset
	ins.Operands = fmt.Sprintf("0x%08X", ins.Target)
}

// decodeDataProcessing decodes the register and immediate forms of the
// data processing instructions. MOV and MVN take no first source register.
func decodeDataProcessing(ins *arch.Instruction, word uint32, cond string) {
	op := word >> 21 & 0xF
	ins.Mnemonic = dataProcOps[op] + cond

	operands := fmt.Sprintf("R%d", word>>12&0xF)
	if op != opMov && op != opMvn {
		operands += fmt.Sprintf(", R%d", word>>16&0xF)
	}

	if word&0x02000000 != 0 {
		rotate := int(word>>8&0xF) * 2
		imm := bits.RotateLeft32(word&0xFF, -rotate)
		operands += fmt.Sprintf(", #0x%X", imm)
	} else {
		operands += fmt.Sprintf(", R%d", word&0xF)
	}
	ins.Operands = operands
}

// decodeLoadStore decodes the single register load and store forms.
// A zero immediate omits the offset in the rendered address.
func decodeLoadStore(ins *arch.Instruction, word uint32, cond string) {
	mnemonic := "STR"
	if word&0x00100000 != 0 {
		mnemonic = "LDR"
	}
	if word&0x00400000 != 0 {
		mnemonic += "B"
	}
	ins.Mnemonic = mnemonic + cond

	rt := word >> 12 & 0xF
	rn := word >> 16 & 0xF

	if word&0x02000000 != 0 {
		ins.Operands = fmt.Sprintf("R%d, [R%d, R%d]", rt, rn, word&0xF)
		return
	}

	offset := word & 0xFFF
	if offset == 0 {
		ins.Operands = fmt.Sprintf("R%d, [R%d]", rt, rn)
		return
	}
	sign := "-"
	if word&0x00800000 != 0 {
		sign = ""
	}
	ins.Operands = fmt.Sprintf("R%d, [R%d, #%s0x%X]", rt, rn, sign, offset)
}

// truncated builds the ??? record for a tail shorter than one instruction.
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

// signExtend interprets val as a signed integer with the sign at the given
// bit position and widens it to 64 bit.
func signExtend(val uint32, signBit uint) uint64 {
	if val&(1<<signBit) != 0 {
		return uint64(val) | ^uint64(0)<<signBit
	}
	return uint64(val)
}
