// Package loader is the ELF external collaborator described in spec §4.7:
// it produces code bytes and their load address, a .text-local symbol
// table, and the entry address, then gets out of the way. Everything past
// that contract (relocation, dynamic linking, section permissions) is
// deliberately not modeled — the core only ever sees a flat file image plus
// a start/end pair and a name->address map.
package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/yalue/elf_reader"
)

// Image is the output of loading one ELF32 MIPS LE executable.
type Image struct {
	// Raw is the full on-disk file image; the core's memory blob is
	// initialized from this so .rodata/.data addresses resolve correctly.
	Raw []byte
	// TextStart/TextEnd bound the .text section within Raw.
	TextStart, TextEnd uint32
	// Entry is the initial PC, taken from the "__start" symbol.
	Entry uint32
	// Symbols maps every non-empty symbol name found inside .text to its
	// address (spec §4.3/§4.7: "restricted to those inside .text").
	Symbols map[string]uint32
}

const (
	machineMIPS = 8 // elf.EM_MIPS
)

// Load parses path as an ELF32 MIPS little-endian executable and extracts
// the contract described in spec §6/§4.7.
func Load(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	f, err := elf_reader.ParseELFFile(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing ELF: %w", err)
	}
	if f.Is64Bit() {
		return nil, fmt.Errorf("loader: expected ELF32, got ELF64")
	}

	machine, err := f.GetMachineType()
	if err != nil {
		return nil, fmt.Errorf("loader: reading e_machine: %w", err)
	}
	if uint16(machine) != machineMIPS {
		return nil, fmt.Errorf("loader: expected MIPS (machine type %d), got %d", machineMIPS, machine)
	}

	img := &Image{Raw: raw, Symbols: make(map[string]uint32)}

	textStart, textEnd, found := uint32(0), uint32(0), false
	symSectionIndex := uint16(0)
	sectionCount := f.GetSectionCount()

	for i := uint16(0); i < sectionCount; i++ {
		name, err := f.GetSectionName(i)
		if err != nil {
			continue
		}
		switch name {
		case ".text":
			header, err := f.GetSectionHeader(i)
			if err != nil {
				return nil, fmt.Errorf("loader: reading .text header: %w", err)
			}
			addr := uint32(header.GetVirtualAddress())
			size := uint32(header.GetSize())
			textStart, textEnd, found = addr, addr+size, true
		case ".symtab":
			symSectionIndex = i
		}
	}
	if !found {
		return nil, fmt.Errorf("loader: no .text section in %s", path)
	}
	img.TextStart, img.TextEnd = textStart, textEnd

	if symSectionIndex != 0 {
		symbols, err := f.GetSymbols(symSectionIndex, true)
		if err == nil {
			for i, sym := range symbols {
				name, nerr := f.GetSymbolName(symSectionIndex, uint16(i))
				if nerr != nil || name == "" {
					continue
				}
				addr := uint32(sym.GetValue())
				if addr < textStart || addr >= textEnd {
					continue
				}
				img.Symbols[name] = addr
			}
		}
	}

	entry, ok := img.Symbols["__start"]
	if !ok {
		return nil, fmt.Errorf("loader: no __start symbol in %s", path)
	}
	img.Entry = entry

	return img, nil
}

// FilterLabels drops the symbols the disassembler's linear listing should
// never render as a label: anything "_"-prefixed other than "__start", and
// anything with an empty name (spec §4.3).
func (img *Image) FilterLabels() map[string]uint32 {
	out := make(map[string]uint32, len(img.Symbols))
	for name, addr := range img.Symbols {
		if name == "" {
			continue
		}
		if name != "__start" && strings.HasPrefix(name, "_") {
			continue
		}
		out[name] = addr
	}
	return out
}
