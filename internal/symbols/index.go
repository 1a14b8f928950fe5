// Package symbols builds an address index from the symbols of an object file.
package symbols

import (
	"github.com/retroenv/armdisasm/internal/elf"
)

// Info describes a named location in the object file.
type Info struct {
	Name  string
	Value uint64
	Size  uint64
}

// Index maps addresses to symbol information for fast lookups.
type Index struct {
	byAddress map[uint64]Info
}

// NewIndex builds an address index from parsed symbols. Symbols keep their
// file order, the first symbol seen at an address wins. Undefined symbols
// and symbols without a usable name are skipped.
func NewIndex(syms []elf.Symbol) *Index {
	index := &Index{
		byAddress: make(map[uint64]Info, len(syms)),
	}

	for _, sym := range syms {
		if sym.Name == "" || sym.Name == elf.Unnamed || sym.Name == elf.InvalidName {
			continue
		}
		if sym.Shndx == 0 {
			continue
		}
		if _, ok := index.byAddress[sym.Value]; ok {
			continue
		}

		index.byAddress[sym.Value] = Info{
			Name:  sym.Name,
			Value: sym.Value,
			Size:  sym.Size,
		}
	}

	return index
}

// Lookup returns the symbol at the given address. Thumb function symbols
// carry the mode bit in their value, odd-tagged entries therefore match
// their even instruction address as well.
func (i *Index) Lookup(addr uint64) (Info, bool) {
	if info, ok := i.byAddress[addr]; ok {
		return info, true
	}
	info, ok := i.byAddress[addr|1]
	return info, ok
}

// Len returns the number of indexed addresses.
func (i *Index) Len() int {
	return len(i.byAddress)
}
