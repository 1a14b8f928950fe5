// Package options contains the program options.
package options

// Parameters contains file path options.
type Parameters struct {
	Input  string
	Output string
	Batch  string
}

// Flags contains behavior options.
type Flags struct {
	Sections bool
	Symbols  bool
	HexDump  bool
	JSON     bool
	Schema   bool
	Debug    bool
	Quiet    bool
}

// Selection contains section, mode and address range options. The raw
// fields hold the command line values, normalization parses them into the
// numeric fields.
type Selection struct {
	Section string
	Mode    string // decoding mode override: arm, thumb, a64

	BaseRaw   string
	OffsetRaw string
	LengthRaw string

	Base    uint64
	HasBase bool
	Offset  uint64
	Length  uint64
}

// Program options of the disassembler.
type Program struct {
	Parameters
	Flags
	Selection
}

// Disassembler defines options to control the listing output.
type Disassembler struct {
	HexComments    bool
	OffsetComments bool
	Labels         bool
}

// NewDisassembler returns a new options instance with default options.
func NewDisassembler() Disassembler {
	return Disassembler{
		HexComments:    true,
		OffsetComments: true,
		Labels:         true,
	}
}
