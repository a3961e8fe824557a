// elfwriter is a package to write minimal ELF files containing named
// sections. It exists to synthesize object files with debug sections, it
// is not a general purpose ELF writer, notably missing:
// - program headers
// - symbol tables
// - 32bit executables

package elfwriter

import (
	"debug/elf"
	"encoding/binary"
	"io"
)

// WriteSeeker is the union of io.Writer and io.Seeker.
type WriteSeeker interface {
	io.Writer
	io.Seeker
}

// Writer writes ELF files.
type Writer struct {
	w     WriteSeeker
	Err   error
	order binary.ByteOrder

	sections []section

	seekSectionHeader int64
	seekSectionNum    int64
}

type section struct {
	name string
	off  uint64
	size uint64
}

// New creates a new Writer and writes the file header, except for the
// fields describing the section header table, which are patched in by
// Finalize.
func New(w WriteSeeker, fhdr *elf.FileHeader) *Writer {
	const (
		ehsize    = 64
		shentsize = 64
	)

	if seek, _ := w.Seek(0, io.SeekCurrent); seek != 0 {
		panic("can't write halfway through a file")
	}

	if fhdr.Class != elf.ELFCLASS64 {
		panic("unsupported")
	}

	r := &Writer{w: w}
	switch fhdr.Data {
	case elf.ELFDATA2LSB:
		r.order = binary.LittleEndian
	case elf.ELFDATA2MSB:
		r.order = binary.BigEndian
	default:
		panic("unsupported")
	}

	// e_ident
	r.Write([]byte{0x7f, 'E', 'L', 'F', byte(fhdr.Class), byte(fhdr.Data), byte(fhdr.Version), byte(fhdr.OSABI), byte(fhdr.ABIVersion), 0, 0, 0, 0, 0, 0, 0})

	r.u16(uint16(fhdr.Type))    // e_type
	r.u16(uint16(fhdr.Machine)) // e_machine
	r.u32(uint32(fhdr.Version)) // e_version
	r.u64(0)                    // e_entry
	r.u64(0)                    // e_phoff
	r.seekSectionHeader = r.Here()
	r.u64(0)      // e_shoff
	r.u32(0)      // e_flags
	r.u16(ehsize) // e_ehsize
	r.u16(0)      // e_phentsize
	r.u16(0)      // e_phnum
	r.u16(shentsize)
	r.seekSectionNum = r.Here()
	r.u16(0) // e_shnum
	r.u16(0) // e_shstrndx

	// Sanity check, size of file header should be the same as ehsize
	if sz, _ := w.Seek(0, io.SeekCurrent); sz != ehsize {
		panic("internal error, ELF header size")
	}

	return r
}

// AddSection writes data to the current location and records a section
// header for it under the given name.
func (w *Writer) AddSection(name string, data []byte) {
	w.Align(8)
	w.sections = append(w.sections, section{
		name: name,
		off:  uint64(w.Here()),
		size: uint64(len(data)),
	})
	w.Write(data)
}

// Finalize writes the section name string table and the section header
// table, then patches the file header to point at them. No more sections
// can be added afterwards.
func (w *Writer) Finalize() {
	shstrtab := section{name: ".shstrtab"}
	nameOffsets := make([]uint32, len(w.sections)+1)

	w.Align(8)
	shstrtab.off = uint64(w.Here())
	w.Write([]byte{0}) // name of the null section
	for i, sect := range append(w.sections, shstrtab) {
		nameOffsets[i] = uint32(uint64(w.Here()) - shstrtab.off)
		w.Write(append([]byte(sect.name), 0))
	}
	shstrtab.size = uint64(w.Here()) - shstrtab.off

	w.Align(8)
	shoff := w.Here()

	// null section header
	w.Write(make([]byte, 64))

	shdr := func(nameOff uint32, typ elf.SectionType, sect section) {
		w.u32(nameOff)
		w.u32(uint32(typ))
		w.u64(0) // sh_flags
		w.u64(0) // sh_addr
		w.u64(sect.off)
		w.u64(sect.size)
		w.u32(0) // sh_link
		w.u32(0) // sh_info
		w.u64(1) // sh_addralign
		w.u64(0) // sh_entsize
	}
	for i, sect := range w.sections {
		shdr(nameOffsets[i], elf.SHT_PROGBITS, sect)
	}
	shdr(nameOffsets[len(w.sections)], elf.SHT_STRTAB, shstrtab)

	// Patch File Header
	w.w.Seek(w.seekSectionHeader, io.SeekStart)
	w.u64(uint64(shoff))
	w.w.Seek(w.seekSectionNum, io.SeekStart)
	w.u16(uint16(len(w.sections) + 2))
	w.u16(uint16(len(w.sections) + 1))
	w.w.Seek(0, io.SeekEnd)
}

// Here returns the current seek offset from the start of the file.
func (w *Writer) Here() int64 {
	r, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil && w.Err == nil {
		w.Err = err
	}
	return r
}

// Align writes as many padding bytes as needed to make the current file
// offset a multiple of align.
func (w *Writer) Align(align int64) {
	off := w.Here()
	alignOff := (off + (align - 1)) &^ (align - 1)
	if alignOff-off > 0 {
		w.Write(make([]byte, alignOff-off))
	}
}

func (w *Writer) Write(buf []byte) {
	_, err := w.w.Write(buf)
	if err != nil && w.Err == nil {
		w.Err = err
	}
}

func (w *Writer) u16(n uint16) {
	err := binary.Write(w.w, w.order, n)
	if err != nil && w.Err == nil {
		w.Err = err
	}
}

func (w *Writer) u32(n uint32) {
	err := binary.Write(w.w, w.order, n)
	if err != nil && w.Err == nil {
		w.Err = err
	}
}

func (w *Writer) u64(n uint64) {
	err := binary.Write(w.w, w.order, n)
	if err != nil && w.Err == nil {
		w.Err = err
	}
}
