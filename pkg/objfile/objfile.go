// Package objfile parses executable images into a uniform view: concrete
// container kind, byte order, presence of debug symbols and access to the
// named DWARF debug sections.
//
// ELF, Mach-O and PE images are parsed with the standard library readers,
// COFF object files ride on debug/pe's optional-header-less path and WASM
// images get a minimal custom-section scan.
package objfile

import (
	"bytes"
	"debug/dwarf"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/srclist/srclist/pkg/dwarf/godwarf"
)

// ErrUnknownFormat is returned by Parse when the input matches none of the
// supported container signatures.
var ErrUnknownFormat = errors.New("unrecognized object file format")

// Kind is the concrete container format of a parsed file.
type Kind uint8

const (
	KindELF Kind = iota
	KindMachO
	KindCOFF
	KindPE
	KindWASM
)

func (k Kind) String() string {
	switch k {
	case KindELF:
		return "ELF"
	case KindMachO:
		return "Mach-O"
	case KindCOFF:
		return "COFF"
	case KindPE:
		return "PE"
	case KindWASM:
		return "WASM"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// File is a parsed object container.
type File struct {
	Kind      Kind
	ByteOrder binary.ByteOrder

	elfFile   *elf.File
	machoFile *macho.File
	peFile    *pe.File

	// custom sections of a WASM image, by name
	wasmSections map[string][]byte
}

// COFF machine numbers recognized at offset 0 of an optional-header-less
// object file.
var coffMachines = map[uint16]bool{
	pe.IMAGE_FILE_MACHINE_I386:  true,
	pe.IMAGE_FILE_MACHINE_AMD64: true,
	pe.IMAGE_FILE_MACHINE_ARM:   true,
	pe.IMAGE_FILE_MACHINE_ARMNT: true,
	pe.IMAGE_FILE_MACHINE_ARM64: true,
}

// Parse parses data as an object container, auto-detecting its format from
// the leading magic number. Data with an unrecognized magic number fails
// with ErrUnknownFormat, data with a recognized magic number but a
// malformed body fails with the underlying reader's error.
func Parse(data []byte) (*File, error) {
	if len(data) < 4 {
		return nil, ErrUnknownFormat
	}

	switch {
	case bytes.HasPrefix(data, []byte("\x7fELF")):
		ef, err := elf.NewFile(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &File{Kind: KindELF, ByteOrder: ef.ByteOrder, elfFile: ef}, nil

	case isMachoMagic(data):
		mf, err := macho.NewFile(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &File{Kind: KindMachO, ByteOrder: mf.ByteOrder, machoFile: mf}, nil

	case bytes.HasPrefix(data, []byte("MZ")):
		pf, err := pe.NewFile(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &File{Kind: KindPE, ByteOrder: binary.LittleEndian, peFile: pf}, nil

	case coffMachines[binary.LittleEndian.Uint16(data)]:
		pf, err := pe.NewFile(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &File{Kind: KindCOFF, ByteOrder: binary.LittleEndian, peFile: pf}, nil

	case bytes.HasPrefix(data, []byte("\x00asm")):
		sections, err := parseWASM(data)
		if err != nil {
			return nil, err
		}
		return &File{Kind: KindWASM, ByteOrder: binary.LittleEndian, wasmSections: sections}, nil
	}

	return nil, ErrUnknownFormat
}

func isMachoMagic(data []byte) bool {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		switch order.Uint32(data) {
		case macho.Magic32, macho.Magic64, macho.MagicFat:
			return true
		}
	}
	return false
}

// HasDebugSymbols returns true if the container carries a DWARF info
// section.
func (f *File) HasDebugSymbols() bool {
	switch f.Kind {
	case KindELF:
		return f.elfFile.Section(".debug_info") != nil || f.elfFile.Section(".zdebug_info") != nil
	case KindMachO:
		return f.machoFile.Section("__debug_info") != nil || f.machoFile.Section("__zdebug_info") != nil
	case KindCOFF, KindPE:
		return f.peFile.Section(".debug_info") != nil || f.peFile.Section(".zdebug_info") != nil
	case KindWASM:
		_, ok := f.wasmSections[".debug_info"]
		return ok
	}
	return false
}

// DebugSection returns the contents of the named debug section, e.g.
// DebugSection("line") returns .debug_line (or __debug_line). A section the
// container does not carry yields a nil buffer with no error.
func (f *File) DebugSection(name string) ([]byte, error) {
	switch f.Kind {
	case KindELF:
		return godwarf.GetDebugSectionElf(f.elfFile, name)
	case KindMachO:
		return godwarf.GetDebugSectionMacho(f.machoFile, name)
	case KindCOFF, KindPE:
		return godwarf.GetDebugSectionPE(f.peFile, name)
	case KindWASM:
		return f.wasmSections[".debug_"+name], nil
	}
	return nil, fmt.Errorf("no debug sections in %v files", f.Kind)
}

// DWARF returns the parsed DWARF debug data of the container.
func (f *File) DWARF() (*dwarf.Data, error) {
	switch f.Kind {
	case KindELF:
		return f.elfFile.DWARF()
	case KindMachO:
		return f.machoFile.DWARF()
	case KindCOFF, KindPE:
		return f.peFile.DWARF()
	case KindWASM:
		return f.wasmDWARF()
	}
	return nil, fmt.Errorf("no DWARF data in %v files", f.Kind)
}

func (f *File) wasmDWARF() (*dwarf.Data, error) {
	var sections [7][]byte
	for i, name := range []string{"abbrev", "info", "line", "ranges", "str", "aranges", "frame"} {
		sections[i] = f.wasmSections[".debug_"+name]
	}
	d, err := dwarf.New(sections[0], sections[5], sections[6], sections[1], sections[2], nil, sections[3], sections[4])
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"line_str", "str_offsets", "addr", "rnglists"} {
		if contents := f.wasmSections[".debug_"+name]; contents != nil {
			if err := d.AddSection(".debug_"+name, contents); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}
