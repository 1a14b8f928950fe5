// Package detector selects the instruction decoder for an object file.
package detector

import (
	"fmt"

	"github.com/retroenv/retrogolib/log"

	"github.com/retroenv/armdisasm/internal/arch"
	"github.com/retroenv/armdisasm/internal/arch/arm"
	"github.com/retroenv/armdisasm/internal/arch/arm64"
	"github.com/retroenv/armdisasm/internal/elf"
)

// Detector picks a decoder and its default mode from the object header.
type Detector struct {
	logger *log.Logger
}

// New creates a new decoder detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the decoder and default decoding mode from the machine
// field of the object header. ARM files whose entry address has the thumb
// bit set default to thumb mode.
func (d *Detector) Detect(header elf.Header) (arch.Decoder, arch.Mode, error) {
	switch header.Machine {
	case elf.MachineARM:
		mode := arch.ModeARM
		if header.Entry&1 != 0 {
			mode = arch.ModeThumb
		}
		d.logger.Debug("Detected ARM object file",
			log.Stringer("mode", mode),
			log.Hex("entry", header.Entry))
		return arm.New(), mode, nil

	case elf.MachineAArch64:
		d.logger.Debug("Detected AArch64 object file",
			log.Hex("entry", header.Entry))
		return arm64.New(), arch.ModeA64, nil

	default:
		return nil, arch.ModeARM, fmt.Errorf("unsupported machine type %s", header.Machine)
	}
}
