// Package fileprocessor handles file loading and processing operations
package fileprocessor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"github.com/retroenv/armdisasm/internal/arch"
	"github.com/retroenv/armdisasm/internal/elf"
	"github.com/retroenv/armdisasm/internal/options"
	"github.com/retroenv/armdisasm/internal/session"
	"github.com/retroenv/armdisasm/internal/writer"
)

// ProcessFile handles the complete processing workflow of one object file.
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program,
	disasmOptions options.Disassembler) error {

	output, err := createWriter(opts)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if closer, ok := output.(io.Closer); ok && output != os.Stdout {
			_ = closer.Close()
		}
	}()

	notifier := newLoadNotifier(logger)
	sess := session.New(logger, notifier)
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("Closing session failed", log.Err(err))
		}
	}()

	if err := sess.Load(opts.Input); err != nil {
		return fmt.Errorf("loading file: %w", err)
	}

	select {
	case ok := <-notifier.done:
		if !ok {
			return fmt.Errorf("loading %s: %s", opts.Input, notifier.message())
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	return process(sess, opts, disasmOptions, output)
}

// process writes the views selected by the options for a loaded session.
func process(sess *session.Session, opts options.Program,
	disasmOptions options.Disassembler, w io.Writer) error {

	out := writer.New(w, writer.Options{
		HexComments:    disasmOptions.HexComments,
		OffsetComments: disasmOptions.OffsetComments,
		Labels:         disasmOptions.Labels,
	})

	if opts.Sections || opts.Symbols {
		if opts.Sections {
			if err := out.WriteSectionTable(sess.Sections()); err != nil {
				return err
			}
		}
		if opts.Symbols {
			if err := out.WriteSymbolTable(sess.Symbols()); err != nil {
				return err
			}
		}
		return nil
	}

	section, ok := findSection(sess.Sections(), opts.Section)
	if !ok {
		return fmt.Errorf("section %s not found", opts.Section)
	}

	base := section.Addr
	if opts.HasBase {
		base = opts.Base
	}

	if opts.HexDump {
		return out.WriteHexDump(base+opts.Offset, sess.HexDump(opts.Section, opts.Offset, opts.Length))
	}

	mode := sess.DefaultMode()
	if opts.Mode != "" {
		var err error
		if mode, err = arch.ModeFromString(opts.Mode); err != nil {
			return err
		}
	}

	instructions := sess.Disassemble(opts.Section, base, mode)

	if opts.JSON {
		header, _ := sess.Header()
		report := writer.NewReport(opts.Input, header, sess.Sections(), sess.Symbols(), instructions)
		return out.WriteReport(report)
	}

	return out.WriteListing(instructions)
}

func findSection(sections []elf.Section, name string) (elf.Section, bool) {
	for _, section := range sections {
		if section.Name == name {
			return section, true
		}
	}
	return elf.Section{}, false
}

// GetFilesToProcess returns the list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files matching pattern %s", opts.Batch)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// GenerateOutputFilename generates the output filename for a given input file
func GenerateOutputFilename(inputFile, extension string) string {
	ext := filepath.Ext(inputFile)
	return inputFile[:len(inputFile)-len(ext)] + extension
}

func createWriter(opts options.Program) (io.Writer, error) {
	if opts.Output == "" {
		return os.Stdout, nil
	}

	file, err := os.Create(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("creating output file %s: %w", opts.Output, err)
	}
	return file, nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	logger.Info("armdisasm", log.String("version", buildinfo.Version(version, commit, date)))
}
