package writer

import (
	"fmt"
	"strings"
)

const dataBytesPerLine = 16

// WriteHexDump writes data as a classic 16 bytes per line hex dump with an
// ASCII gutter, addresses starting at base.
func (w *Writer) WriteHexDump(base uint64, data []byte) error {
	for offset := 0; offset < len(data); offset += dataBytesPerLine {
		end := min(offset+dataBytesPerLine, len(data))
		line := data[offset:end]

		hexPart := &strings.Builder{}
		asciiPart := &strings.Builder{}
		for _, b := range line {
			hexPart.WriteString(fmt.Sprintf("%02X ", b))

			if b >= 0x20 && b <= 0x7E {
				asciiPart.WriteByte(b)
			} else {
				asciiPart.WriteByte('.')
			}
		}

		if _, err := fmt.Fprintf(w.writer, "%08X  %-49s|%s|\n",
			base+uint64(offset), hexPart.String(), asciiPart.String()); err != nil {

			return fmt.Errorf("writing dump line: %w", err)
		}
	}
	return nil
}
