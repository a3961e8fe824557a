package dwarfbuilder

import (
	"bytes"
	"encoding/binary"

	"github.com/srclist/srclist/pkg/dwarf/leb128"
)

// LineFile describes one entry of a synthesized file-name table.
type LineFile struct {
	Name   string
	DirIdx uint64
	MTime  uint64
	Length uint64
	MD5    [16]byte
}

// LineTable describes one synthesized .debug_line unit. Version selects the
// table shape: 2 through 4 produce the implicit-scheme table, 5 produces an
// entry-format table. For version 5 tables HasMTime, HasLength and HasMD5
// select which per-file fields the entry format declares; earlier versions
// always declare modification time and length.
type LineTable struct {
	Version     uint16
	Order       binary.ByteOrder
	IncludeDirs []string
	Files       []LineFile

	HasMTime  bool
	HasLength bool
	HasMD5    bool
}

const (
	lnctPath = 0x1 + iota
	lnctDirectoryIndex
	lnctTimestamp
	lnctSize
	lnctMD5
)

// Build encodes the table, returning the bytes of a complete .debug_line
// unit with an empty line-number program.
func (lt *LineTable) Build() []byte {
	order := lt.Order
	if order == nil {
		order = binary.LittleEndian
	}

	var hdr bytes.Buffer
	if lt.Version >= 5 {
		lt.buildTables5(&hdr)
	} else {
		lt.buildTables2(&hdr)
	}

	var buf bytes.Buffer
	post := 6 // version and header-length fields
	if lt.Version >= 5 {
		post += 2 // address_size and segment_selector_size
	}
	u32(&buf, order, uint32(post+fixedPrologueSize(lt.Version)+hdr.Len()))
	u16(&buf, order, lt.Version)
	if lt.Version >= 5 {
		buf.WriteByte(8) // address_size
		buf.WriteByte(0) // segment_selector_size
	}
	u32(&buf, order, uint32(fixedPrologueSize(lt.Version)+hdr.Len()))

	buf.WriteByte(1) // minimum_instruction_length
	if lt.Version >= 4 {
		buf.WriteByte(1) // maximum_operations_per_instruction
	}
	buf.WriteByte(1)    // default_is_stmt
	buf.WriteByte(0xfb) // line_base (-5)
	buf.WriteByte(14)   // line_range
	buf.WriteByte(13)   // opcode_base
	buf.Write([]byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1})

	buf.Write(hdr.Bytes())
	return buf.Bytes()
}

// fixedPrologueSize is the size of the prologue fields after the
// header-length field, up to the directory table.
func fixedPrologueSize(version uint16) int {
	n := 5 + 12 // fixed fields + standard opcode lengths
	if version >= 4 {
		n++
	}
	return n
}

func (lt *LineTable) buildTables2(buf *bytes.Buffer) {
	for _, dir := range lt.IncludeDirs {
		buf.WriteString(dir)
		buf.WriteByte(0)
	}
	buf.WriteByte(0)

	for i := range lt.Files {
		f := &lt.Files[i]
		buf.WriteString(f.Name)
		buf.WriteByte(0)
		leb128.EncodeUnsigned(buf, f.DirIdx)
		leb128.EncodeUnsigned(buf, f.MTime)
		leb128.EncodeUnsigned(buf, f.Length)
	}
	buf.WriteByte(0)
}

func (lt *LineTable) buildTables5(buf *bytes.Buffer) {
	// directory table
	buf.WriteByte(1)
	leb128.EncodeUnsigned(buf, lnctPath)
	leb128.EncodeUnsigned(buf, uint64(DW_FORM_string))
	leb128.EncodeUnsigned(buf, uint64(len(lt.IncludeDirs)))
	for _, dir := range lt.IncludeDirs {
		buf.WriteString(dir)
		buf.WriteByte(0)
	}

	// file-name table entry format
	formats := [][2]uint64{
		{lnctPath, uint64(DW_FORM_string)},
		{lnctDirectoryIndex, 0x0f}, // DW_FORM_udata
	}
	if lt.HasMTime {
		formats = append(formats, [2]uint64{lnctTimestamp, 0x0f})
	}
	if lt.HasLength {
		formats = append(formats, [2]uint64{lnctSize, 0x0f})
	}
	if lt.HasMD5 {
		formats = append(formats, [2]uint64{lnctMD5, 0x1e}) // DW_FORM_data16
	}
	buf.WriteByte(byte(len(formats)))
	for _, f := range formats {
		leb128.EncodeUnsigned(buf, f[0])
		leb128.EncodeUnsigned(buf, f[1])
	}

	leb128.EncodeUnsigned(buf, uint64(len(lt.Files)))
	for i := range lt.Files {
		f := &lt.Files[i]
		buf.WriteString(f.Name)
		buf.WriteByte(0)
		leb128.EncodeUnsigned(buf, f.DirIdx)
		if lt.HasMTime {
			leb128.EncodeUnsigned(buf, f.MTime)
		}
		if lt.HasLength {
			leb128.EncodeUnsigned(buf, f.Length)
		}
		if lt.HasMD5 {
			buf.Write(f.MD5[:])
		}
	}
}

func u16(buf *bytes.Buffer, order binary.ByteOrder, n uint16) {
	binary.Write(buf, order, n)
}

func u32(buf *bytes.Buffer, order binary.ByteOrder, n uint32) {
	binary.Write(buf, order, n)
}
