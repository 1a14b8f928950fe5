package arm

import (
	"encoding/binary"
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/retroenv/armdisasm/internal/arch"
)

// halfwords encodes instruction halfwords as a little endian byte stream.
func halfwords(values ...uint16) []byte {
	data := make([]byte, 0, len(values)*2)
	for _, value := range values {
		data = binary.LittleEndian.AppendUint16(data, value)
	}
	return data
}

func decodeHalfword(t *testing.T, hw uint16, addr uint64) arch.Instruction {
	t.Helper()

	instructions := New().Decode(halfwords(hw), addr, arch.ModeThumb)
	assert.Len(t, instructions, 1)
	return instructions[0]
}

func TestDecodeThumbBranches(t *testing.T) {
	tests := []struct {
		name     string
		hw       uint16
		addr     uint64
		mnemonic string
		operands string
		target   uint64
	}{
		{"conditional branch backwards", 0xD0FE, 0x100, "BEQ", "0x00000100", 0x100},
		{"conditional branch forwards", 0xD105, 0x100, "BNE", "0x0000010E", 0x10E},
		{"unconditional branch to self", 0xE7FE, 0x100, "B", "0x00000100", 0x100},
		{"unconditional branch forwards", 0xE002, 0x100, "B", "0x00000108", 0x108},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := decodeHalfword(t, tt.hw, tt.addr)
			assert.Equal(t, tt.mnemonic, ins.Mnemonic)
			assert.Equal(t, tt.operands, ins.Operands)
			assert.True(t, ins.IsBranch)
			assert.Equal(t, tt.target, ins.Target)
			assert.Equal(t, 2, ins.Width)
		})
	}
}

func TestDecodeThumbDataProcessing(t *testing.T) {
	tests := []struct {
		name     string
		hw       uint16
		mnemonic string
		operands string
	}{
		{"mov immediate", 0x2042, "MOV", "R0, #0x42"},
		{"mov immediate max", 0x20FF, "MOV", "R0, #0xFF"},
		{"mov to other register falls through", 0x2742, "T16_UNK", "0x2742"},
		{"add immediate", 0x1C49, "ADD", "R1, R1, #1"},
		{"add immediate max", 0x1DF6, "ADD", "R6, R6, #7"},
		{"unknown halfword", 0x4770, "T16_UNK", "0x4770"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := decodeHalfword(t, tt.hw, 0x100)
			assert.Equal(t, tt.mnemonic, ins.Mnemonic)
			assert.Equal(t, tt.operands, ins.Operands)
			assert.False(t, ins.IsBranch)
			assert.Equal(t, 2, ins.Width)
		})
	}
}

func TestDecodeThumb32(t *testing.T) {
	t.Run("bl forward", func(t *testing.T) {
		instructions := New().Decode(halfwords(0xF000, 0xF800), 0x100, arch.ModeThumb)
		assert.Len(t, instructions, 1)

		ins := instructions[0]
		assert.Equal(t, "BL", ins.Mnemonic)
		assert.Equal(t, "0x00000104", ins.Operands)
		assert.True(t, ins.IsBranch)
		assert.Equal(t, uint64(0x104), ins.Target)
		assert.Equal(t, 4, ins.Width)
		assert.Equal(t, uint32(0xF000F800), ins.Enc)
	})

	t.Run("bl backwards", func(t *testing.T) {
		instructions := New().Decode(halfwords(0xF7FF, 0xFFFE), 0x100, arch.ModeThumb)
		assert.Len(t, instructions, 1)

		ins := instructions[0]
		assert.Equal(t, "BL", ins.Mnemonic)
		assert.True(t, ins.IsBranch)
		assert.Equal(t, uint64(0x100), ins.Target)
	})

	t.Run("unknown wide instruction", func(t *testing.T) {
		instructions := New().Decode(halfwords(0xF000, 0x0000), 0x100, arch.ModeThumb)
		assert.Len(t, instructions, 1)

		ins := instructions[0]
		assert.Equal(t, "T32_UNK", ins.Mnemonic)
		assert.Equal(t, "0xF0000000", ins.Operands)
		assert.False(t, ins.IsBranch)
		assert.Equal(t, 4, ins.Width)
	})
}

func TestDecodeThumbPrefixWithShortTail(t *testing.T) {
	// a 32 bit prefix halfword with no second halfword left decodes as a
	// 16 bit instruction, the spare byte becomes the ??? record
	code := []byte{0x00, 0xF0, 0x12}
	instructions := New().Decode(code, 0x100, arch.ModeThumb)
	assert.Len(t, instructions, 2)

	assert.Equal(t, "T16_UNK", instructions[0].Mnemonic)
	assert.Equal(t, "0xF000", instructions[0].Operands)
	assert.Equal(t, 2, instructions[0].Width)

	assert.Equal(t, "???", instructions[1].Mnemonic)
	assert.Equal(t, 1, instructions[1].Width)
	assert.Equal(t, uint32(0x12), instructions[1].Enc)
	assert.Equal(t, uint64(0x102), instructions[1].Address)
}

func TestDecodeThumbStream(t *testing.T) {
	code := halfwords(0x2042, 0xF000, 0xF800, 0xD0FE)
	instructions := New().Decode(code, 0x100, arch.ModeThumb)
	assert.Len(t, instructions, 3)

	assert.Equal(t, "MOV", instructions[0].Mnemonic)
	assert.Equal(t, uint64(0x100), instructions[0].Address)
	assert.Equal(t, "BL", instructions[1].Mnemonic)
	assert.Equal(t, uint64(0x102), instructions[1].Address)
	assert.Equal(t, "BEQ", instructions[2].Mnemonic)
	assert.Equal(t, uint64(0x106), instructions[2].Address)

	total := 0
	for _, ins := range instructions {
		total += ins.Width
	}
	assert.Equal(t, len(code), total)
}
