package arm

import (
	"encoding/binary"
	"fmt"

	"github.com/retroenv/armdisasm/internal/arch"
)

// decodeThumb decodes one Thumb instruction. A halfword starting a 32 bit
// sequence is only consumed as such when a second halfword remains,
// otherwise it falls through to the 16 bit decoding.
func decodeThumb(code []byte, addr uint64) arch.Instruction {
	if len(code) < 2 {
		return truncated(code, addr)
	}

	hw := binary.LittleEndian.Uint16(code)
	ins := arch.Instruction{
		Address: addr,
		Enc:     uint32(hw),
		Width:   2,
	}

	switch {
	case hw&0xF000 == 0xD000:
		decodeThumbCondBranch(&ins, hw)
	case hw&0xF800 == 0xE000:
		decodeThumbBranch(&ins, hw)
	case isThumb32Prefix(hw) && len(code) >= 4:
		word := uint32(hw)<<16 | uint32(binary.LittleEndian.Uint16(code[2:]))
		ins.Enc = word
		ins.Width = 4
		decodeThumb32(&ins, word)
	default:
		decodeThumbDataProcessing(&ins, hw)
	}
	return ins
}

// isThumb32Prefix reports whether the halfword starts a 32 bit sequence,
// the top five bits are 11101, 11110 or 11111.
func isThumb32Prefix(hw uint16) bool {
	prefix := hw >> 11
	return prefix == 0x1D || prefix == 0x1E || prefix == 0x1F
}

// decodeThumbCondBranch decodes the conditional branch with its doubled
// 8 bit immediate, the target is relative to the instruction address
// plus 4.
func decodeThumbCondBranch(ins *arch.Instruction, hw uint16) {
	ins.Mnemonic = "B" + condSuffix[hw>>8&0xF]

	offset := signExtend(uint32(hw&0xFF)<<1, 8)
	ins.IsBranch = true
	ins.Target = ins.Address + 4 + offset
	ins.Operands = fmt.Sprintf("0x%08X", ins.Target)
}

// decodeThumbBranch decodes the unconditional branch with its doubled
// 11 bit immediate.
func decodeThumbBranch(ins *arch.Instruction, hw uint16) {
	ins.Mnemonic = "B"

	offset := signExtend(uint32(hw&0x7FF)<<1, 11)
	ins.IsBranch = true
	ins.Target = ins.Address + 4 + offset
	ins.Operands = fmt.Sprintf("0x%08X", ins.Target)
}

// decodeThumb32 decodes the concatenated word of a 32 bit sequence, the
// first halfword is the most significant. BL reconstructs its displacement
// from the S, J1, J2, imm10 and imm11 fields.
func decodeThumb32(ins *arch.Instruction, word uint32) {
	if word&0xF800D000 != 0xF000D000 {
		ins.Mnemonic = "T32_UNK"
		ins.Operands = fmt.Sprintf("0x%X", word)
		return
	}

	ins.Mnemonic = "BL"
	s := word >> 26 & 1
	j1 := word >> 13 & 1
	j2 := word >> 11 & 1
	imm10 := word >> 16 & 0x3FF
	imm11 := word & 0x7FF

	i1 := j1 ^ s ^ 1
	i2 := j2 ^ s ^ 1

	offset := signExtend(s<<24|i1<<23|i2<<22|imm10<<12|imm11<<1, 24)
	ins.IsBranch = true
	ins.Target = ins.Address + 4 + offset
	ins.Operands = fmt.Sprintf("0x%08X", ins.Target)
}

// decodeThumbDataProcessing decodes the MOV immediate and ADD immediate
// forms, everything else renders as an unknown halfword.
func decodeThumbDataProcessing(ins *arch.Instruction, hw uint16) {
	switch {
	case hw&0xFF00 == 0x2000:
		ins.Mnemonic = "MOV"
		ins.Operands = fmt.Sprintf("R%d, #0x%X", hw>>8&0x7, hw&0xFF)
	case hw&0xFE00 == 0x1C00:
		ins.Mnemonic = "ADD"
		ins.Operands = fmt.Sprintf("R%d, R%d, #%d", hw&0x7, hw>>3&0x7, hw>>6&0x7)
	default:
		ins.Mnemonic = "T16_UNK"
		ins.Operands = fmt.Sprintf("0x%X", hw)
	}
}
