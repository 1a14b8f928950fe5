// Package session owns the loaded object file and serves queries over it.
package session

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/retroenv/retrogolib/log"

	"github.com/retroenv/armdisasm/internal/arch"
	"github.com/retroenv/armdisasm/internal/detector"
	"github.com/retroenv/armdisasm/internal/elf"
	"github.com/retroenv/armdisasm/internal/filemap"
	"github.com/retroenv/armdisasm/internal/symbols"
	"github.com/retroenv/armdisasm/internal/workerpool"
)

// Symbol is the session level view of a symbol with its section resolved.
type Symbol struct {
	Name    string
	Value   uint64
	Size    uint64
	Section string
}

// Session holds the mapped file, its parsed form and the matching decoder
// under a single guard. Loads run asynchronously on the worker pool, a load
// in progress is not cancellable and a following load waits for it.
type Session struct {
	logger   *log.Logger
	notifier Notifier
	detector *detector.Detector
	pool     *workerpool.Pool

	mu      sync.Mutex
	mapping *filemap.Mapping
	parser  *elf.Parser
	decoder arch.Decoder
	mode    arch.Mode
	index   *symbols.Index
}

// New creates a new session that reports load lifecycle events to the
// given notifier.
func New(logger *log.Logger, notifier Notifier) *Session {
	if notifier == nil {
		notifier = NopNotifier{}
	}

	return &Session{
		logger:   logger,
		notifier: notifier,
		detector: detector.New(logger),
		pool:     workerpool.New(workerpool.DefaultWorkers()),
	}
}

// Load maps and parses the given file asynchronously. Started is emitted
// synchronously, all further events are emitted from the worker. The only
// returned error is a pool rejection after Close.
func (s *Session) Load(path string) error {
	s.notifier.Started()

	if err := s.pool.Enqueue(func() {
		s.load(path)
	}); err != nil {
		return fmt.Errorf("scheduling load: %w", err)
	}
	return nil
}

// load replaces the session state with the given file. It runs on a worker
// and holds the guard for the whole load so that queries observe either the
// previous or the new snapshot, never a partial one.
func (s *Session) load(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.releaseLocked(); err != nil {
		s.logger.Warn("Releasing previous mapping failed", log.Err(err))
	}

	m, err := filemap.Open(path)
	if err != nil {
		s.fail(err)
		return
	}
	s.notifier.Progress(30)

	parser, err := elf.New(s.logger, m)
	if err != nil {
		_ = m.Close()
		s.fail(err)
		return
	}
	if err := parser.Parse(); err != nil {
		_ = m.Close()
		s.fail(fmt.Errorf("parsing object file: %w", err))
		return
	}
	s.notifier.Progress(70)

	decoder, mode, err := s.detector.Detect(parser.Header())
	if err != nil {
		_ = m.Close()
		s.fail(err)
		return
	}

	s.mapping = m
	s.parser = parser
	s.decoder = decoder
	s.mode = mode
	s.index = symbols.NewIndex(parser.Symbols())

	s.notifier.Progress(100)
	s.notifier.Finished(true)
}

// fail reports a failed load, the session stays unloaded.
func (s *Session) fail(err error) {
	s.logger.Debug("Load failed", log.Err(err))

	s.notifier.Finished(false)
	s.notifier.Error(err.Error())
}

// releaseLocked drops all state of the current load. The guard must be held.
func (s *Session) releaseLocked() error {
	m := s.mapping
	s.mapping = nil
	s.parser = nil
	s.decoder = nil
	s.mode = arch.ModeARM
	s.index = nil

	if m == nil {
		return nil
	}
	return m.Close()
}

// SectionNames returns the names of all sections of the loaded file,
// omitting empty and unresolvable names. Empty when nothing is loaded.
func (s *Session) SectionNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parser == nil {
		return nil
	}

	sections := s.parser.Sections()
	names := make([]string, 0, len(sections))
	for _, section := range sections {
		if section.Name == "" || section.Name == elf.InvalidName {
			continue
		}
		names = append(names, section.Name)
	}
	return names
}

// Sections returns the section headers of the loaded file.
func (s *Session) Sections() []elf.Section {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parser == nil {
		return nil
	}
	return s.parser.Sections()
}

// Symbols returns all symbols of the loaded file with the name of their
// section resolved. Empty when nothing is loaded.
func (s *Session) Symbols() []Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parser == nil {
		return nil
	}

	sections := s.parser.Sections()
	syms := s.parser.Symbols()
	result := make([]Symbol, 0, len(syms))
	for _, sym := range syms {
		sectionName := "unknown"
		if int(sym.Shndx) < len(sections) {
			sectionName = sections[sym.Shndx].Name
		}
		result = append(result, Symbol{
			Name:    sym.Name,
			Value:   sym.Value,
			Size:    sym.Size,
			Section: sectionName,
		})
	}
	return result
}

// Header returns the object header of the loaded file and whether a file
// is loaded.
func (s *Session) Header() (elf.Header, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parser == nil {
		return elf.Header{}, false
	}
	return s.parser.Header(), true
}

// DefaultMode returns the decoding mode detected for the loaded file.
func (s *Session) DefaultMode() arch.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// Disassemble decodes the named section at the given base address. The
// section bytes are copied under the guard and decoded outside of it, so a
// concurrent reload does not invalidate the pass. Branch targets matching
// an indexed symbol get the symbol name attached as comment. Empty when the
// section is absent or nothing is loaded.
func (s *Session) Disassemble(section string, baseVA uint64, mode arch.Mode) []arch.Instruction {
	s.mu.Lock()
	var code []byte
	decoder := s.decoder
	index := s.index
	found := false
	if s.parser != nil && decoder != nil {
		if data, ok := s.parser.SectionData(section); ok {
			code = bytes.Clone(data)
			found = true
		}
	}
	s.mu.Unlock()

	if !found {
		return nil
	}

	instructions := decoder.Decode(code, baseVA, mode)
	for i := range instructions {
		ins := &instructions[i]
		if !ins.IsBranch {
			continue
		}
		if info, ok := index.Lookup(ins.Target); ok {
			ins.Comment = info.Name
		}
	}
	return instructions
}

// HexDump returns a copy of the sub-range of the named section, clamped to
// the section end. A length of 0 selects everything up to the section end.
// Empty when the offset lies at or behind the section end, the section is
// absent or nothing is loaded.
func (s *Session) HexDump(section string, offset, length uint64) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parser == nil {
		return nil
	}
	data, ok := s.parser.SectionData(section)
	if !ok {
		return nil
	}

	size := uint64(len(data))
	if offset >= size {
		return nil
	}
	if length == 0 || length > size-offset {
		length = size - offset
	}
	return bytes.Clone(data[offset : offset+length])
}

// Close shuts down the worker pool, waiting for a load in flight, and
// releases the mapped file. Load calls after Close are rejected.
func (s *Session) Close() error {
	s.pool.Shutdown()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked()
}
