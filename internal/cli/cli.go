// Package cli handles command line interface logic
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/retroenv/armdisasm/internal/arch"
	"github.com/retroenv/armdisasm/internal/options"
)

// ParseFlags parses command line flags and returns program and disassembler options
func ParseFlags() (options.Program, options.Disassembler, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	var noHexComments, noOffsets, noLabels bool
	flags.BoolVar(&noHexComments, "nohexcomments", false, "do not output instruction encodings as hex values in comments")
	flags.BoolVar(&noOffsets, "nooffsets", false, "do not output addresses in comments")
	flags.BoolVar(&noLabels, "nolabels", false, "do not output labels for branch targets")

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || (len(args) == 0 && opts.Batch == "" && !opts.Schema) {
		return opts, options.Disassembler{}, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, options.Disassembler{}, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, options.Disassembler{}, err
	}

	if opts.Batch == "" && len(args) > 0 {
		opts.Input = args[0]
	}

	disasmOptions := options.NewDisassembler()
	disasmOptions.HexComments = !noHexComments
	disasmOptions.OffsetComments = !noOffsets
	disasmOptions.Labels = !noLabels

	return opts, disasmOptions, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: armdisasm [options] <file.elf>\n\n")
	e.flags.PrintDefaults()
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after file to disassemble, please pass the file to disassemble as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	if opts.Mode != "" {
		if _, err := arch.ModeFromString(opts.Mode); err != nil {
			return err
		}
	}

	var err error
	if opts.BaseRaw != "" {
		if opts.Base, err = parseAddress(opts.BaseRaw); err != nil {
			return fmt.Errorf("invalid base address: %w", err)
		}
		opts.HasBase = true
	}
	if opts.OffsetRaw != "" {
		if opts.Offset, err = parseAddress(opts.OffsetRaw); err != nil {
			return fmt.Errorf("invalid offset: %w", err)
		}
	}
	if opts.LengthRaw != "" {
		if opts.Length, err = parseAddress(opts.LengthRaw); err != nil {
			return fmt.Errorf("invalid length: %w", err)
		}
	}
	return nil
}

// parseAddress parses a decimal or 0x prefixed hex number.
func parseAddress(s string) (uint64, error) {
	value, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing number '%s': %w", s, err)
	}
	return value, nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Output, "o", "", "name of the output file, printed on console if no name given")
	flags.StringVar(&opts.Batch, "batch", "", "process a batch of files matching the given pattern, for example *.elf")
	flags.StringVar(&opts.Section, "s", ".text", "name of the section to disassemble or dump")
	flags.StringVar(&opts.Mode, "mode", "", "decoding mode: arm, thumb, a64 (default: auto-detected from the file)")
	flags.StringVar(&opts.BaseRaw, "base", "", "base address of the listing (default: the section address)")
	flags.StringVar(&opts.OffsetRaw, "offset", "", "start offset of the hex dump inside the section")
	flags.StringVar(&opts.LengthRaw, "length", "", "number of bytes to dump, 0 dumps up to the section end")
	flags.BoolVar(&opts.Sections, "sections", false, "print the section table")
	flags.BoolVar(&opts.Symbols, "symbols", false, "print the symbol table")
	flags.BoolVar(&opts.HexDump, "hexdump", false, "print a hex dump of the section")
	flags.BoolVar(&opts.JSON, "json", false, "output the result as JSON report")
	flags.BoolVar(&opts.Schema, "schema", false, "print the JSON schema of the report format and exit")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}
