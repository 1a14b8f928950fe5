// Package filemap provides read-only, bounds-checked views over object files.
package filemap

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrEmptyFile is returned when opening a zero length file.
var ErrEmptyFile = errors.New("file is empty")

// ErrOutOfBounds is returned when a read exceeds the mapped region.
var ErrOutOfBounds = errors.New("read out of bounds")

// Mapping is an immutable byte region backed by a memory mapped file.
// The region stays valid until Close is called.
type Mapping struct {
	data   []byte
	file   *os.File // nil for in-memory regions
	mapped bool
	closed bool
}

// Open maps the file at the given path read-only into memory.
// The file descriptor is kept open while the mapping is alive.
func Open(path string) (*Mapping, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("getting file info for %s: %w", path, err)
	}
	if info.Size() == 0 {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	data, err := syscall.Mmap(int(file.Fd()), 0, int(info.Size()),
		syscall.PROT_READ, syscall.MAP_PRIVATE)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mapping file %s: %w", path, err)
	}

	return &Mapping{
		data:   data,
		file:   file,
		mapped: true,
	}, nil
}

// NewFromBytes returns an in-memory region that shares the given data.
// Closing it is a no-op, the region is useful for tests and embedded use.
func NewFromBytes(data []byte) *Mapping {
	return &Mapping{data: data}
}

// Slice returns the sub-range [offset, offset+n) of the region.
// It fails with ErrOutOfBounds when the range exceeds the region, the
// check is safe against offset+n overflowing.
func (m *Mapping) Slice(offset, n uint64) ([]byte, error) {
	length := m.Len()
	if offset > length || n > length-offset {
		return nil, fmt.Errorf("%w: offset %d length %d exceeds size %d",
			ErrOutOfBounds, offset, n, length)
	}
	return m.data[offset : offset+n], nil
}

// Data returns the full mapped region.
func (m *Mapping) Data() []byte {
	return m.data
}

// Len returns the length of the region in bytes.
func (m *Mapping) Len() uint64 {
	return uint64(len(m.data))
}

// Close releases the mapping and the underlying file.
// It is safe to call multiple times, the region is released exactly once.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var unmapErr error
	if m.mapped {
		unmapErr = syscall.Munmap(m.data)
	}
	m.data = nil

	if m.file != nil {
		closeErr := m.file.Close()
		m.file = nil
		if unmapErr == nil {
			unmapErr = closeErr
		}
	}
	if unmapErr != nil {
		return fmt.Errorf("releasing mapping: %w", unmapErr)
	}
	return nil
}
