// Package line parses the header of DWARF line-number programs, up to and
// including their file-name tables. Both the DWARF version 2 through 4
// table shape (implicit directory indices, timestamp and size always
// declared) and the DWARF version 5 entry-format shape (explicit content
// type / form pairs, optional MD5 digests) are supported.
package line

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path"

	"github.com/srclist/srclist/pkg/dwarf/leb128"
	"github.com/srclist/srclist/pkg/dwarf/util"
)

// DebugLinePrologue prologue of .debug_line data.
type DebugLinePrologue struct {
	UnitLength     uint32
	Version        uint16
	Length         uint32
	MinInstrLength uint8
	MaxOpPerInstr  uint8
	InitialIsStmt  uint8
	LineBase       int8
	LineRange      uint8
	OpcodeBase     uint8
	StdOpLengths   []uint8
}

// DebugLineInfo info of one unit of .debug_line data.
type DebugLineInfo struct {
	Prologue    *DebugLinePrologue
	IncludeDirs []string
	FileNames   []*FileEntry

	// HasMTime, HasLength and HasMD5 report which per-file fields the
	// file-name table declares. Tables before DWARF 5 always carry
	// modification time and length and never an MD5 digest.
	HasMTime  bool
	HasLength bool
	HasMD5    bool

	Logf func(string, ...interface{})

	compdir string
	order   binary.ByteOrder

	// debugLineStr and debugStr are the contents of the .debug_line_str
	// and .debug_str sections, used to resolve DW_FORM_line_strp and
	// DW_FORM_strp references.
	debugLineStr []byte
	debugStr     []byte
}

// FileEntry is an entry of the file-name table.
type FileEntry struct {
	Name        string // name as recorded in the table
	Path        string // Name joined with its directory and the compilation directory
	DirIdx      uint64
	LastModTime uint64
	Length      uint64
	MD5         [16]byte
}

// Parse parses a single line-number program header from buf, stopping after
// its file-name table. Compdir is the DW_AT_comp_dir attribute of the
// associated compile unit, order the byte order the unit was encoded with.
func Parse(compdir string, buf *bytes.Buffer, debugLineStr, debugStr []byte, logfn func(string, ...interface{}), order binary.ByteOrder) (*DebugLineInfo, error) {
	dbl := new(DebugLineInfo)
	dbl.Logf = logfn
	if logfn == nil {
		dbl.Logf = func(string, ...interface{}) {}
	}
	dbl.compdir = compdir
	dbl.order = order
	dbl.debugLineStr = debugLineStr
	dbl.debugStr = debugStr

	if err := parseDebugLinePrologue(dbl, buf); err != nil {
		return nil, err
	}
	if dbl.Prologue.Version >= 5 {
		if err := parseIncludeDirs5(dbl, buf); err != nil {
			return nil, err
		}
		if err := parseFileEntries5(dbl, buf); err != nil {
			return nil, err
		}
	} else {
		dbl.HasMTime = true
		dbl.HasLength = true
		if err := parseIncludeDirs2(dbl, buf); err != nil {
			return nil, err
		}
		if err := parseFileEntries2(dbl, buf); err != nil {
			return nil, err
		}
	}

	return dbl, nil
}

func parseDebugLinePrologue(dbl *DebugLineInfo, buf *bytes.Buffer) error {
	p := new(DebugLinePrologue)

	var err error
	if p.UnitLength, err = readUint32(dbl, buf); err != nil {
		return fmt.Errorf("debug_line truncated reading unit length: %v", err)
	}
	if p.UnitLength == 0xffffffff {
		return fmt.Errorf("debug_line uses the unsupported 64-bit DWARF format")
	}
	if p.Version, err = readUint16(dbl, buf); err != nil {
		return fmt.Errorf("debug_line truncated reading version: %v", err)
	}
	if p.Version < 2 || p.Version > 5 {
		return fmt.Errorf("unsupported debug_line version %d", p.Version)
	}
	if p.Version >= 5 {
		// address_size and segment_selector_size
		if buf.Len() < 2 {
			return ErrBufferUnderflow
		}
		buf.Next(2)
	}

	if p.Length, err = readUint32(dbl, buf); err != nil {
		return fmt.Errorf("debug_line truncated reading prologue length: %v", err)
	}

	fixed := make([]byte, 4)
	if _, err = buf.Read(fixed); err != nil || len(fixed) < 4 {
		return ErrBufferUnderflow
	}
	p.MinInstrLength = fixed[0]
	if p.Version >= 4 {
		p.MaxOpPerInstr = fixed[1]
		p.InitialIsStmt = fixed[2]
		p.LineBase = int8(fixed[3])
		if buf.Len() < 1 {
			return ErrBufferUnderflow
		}
		p.LineRange = buf.Next(1)[0]
	} else {
		p.MaxOpPerInstr = 1
		p.InitialIsStmt = fixed[1]
		p.LineBase = int8(fixed[2])
		p.LineRange = fixed[3]
	}

	if buf.Len() < 1 {
		return ErrBufferUnderflow
	}
	p.OpcodeBase = buf.Next(1)[0]
	if p.OpcodeBase == 0 {
		return fmt.Errorf("debug_line has invalid opcode base 0")
	}

	p.StdOpLengths = make([]uint8, p.OpcodeBase-1)
	if err := binary.Read(buf, dbl.order, &p.StdOpLengths); err != nil {
		return ErrBufferUnderflow
	}

	dbl.Prologue = p
	return nil
}

// parseIncludeDirs2 parses the directory table for DWARF version 2 through 4.
// Directory index 0 refers to the compilation directory.
func parseIncludeDirs2(info *DebugLineInfo, buf *bytes.Buffer) error {
	info.IncludeDirs = append(info.IncludeDirs, info.compdir)
	for {
		str, err := util.ParseString(buf)
		if err != nil {
			return fmt.Errorf("error reading include directory: %v", err)
		}
		if str == "" {
			break
		}

		info.IncludeDirs = append(info.IncludeDirs, str)
	}
	return nil
}

// parseIncludeDirs5 parses the directory table for DWARF version 5.
func parseIncludeDirs5(info *DebugLineInfo, buf *bytes.Buffer) error {
	dirEntryFormReader, err := readEntryFormat(buf, info.order)
	if err != nil {
		return err
	}
	dirCount, _, err := leb128.DecodeUnsigned(buf)
	if err != nil {
		return fmt.Errorf("error reading directory entries table: %v", err)
	}
	info.IncludeDirs = make([]string, 0, allocHint(dirCount, buf))
	for i := uint64(0); i < dirCount; i++ {
		dirEntryFormReader.reset()
		for dirEntryFormReader.next(buf) {
			if dirEntryFormReader.contentType != _DW_LNCT_path {
				continue
			}
			dir, err := info.resolveString(dirEntryFormReader)
			if err != nil {
				return fmt.Errorf("error reading directory entries table: %v", err)
			}
			info.IncludeDirs = append(info.IncludeDirs, dir)
		}
		if dirEntryFormReader.err != nil {
			return fmt.Errorf("error reading directory entries table: %v", dirEntryFormReader.err)
		}
	}
	return nil
}

// parseFileEntries2 parses the file table for DWARF 2 through 4.
func parseFileEntries2(info *DebugLineInfo, buf *bytes.Buffer) error {
	for {
		entry := new(FileEntry)

		var err error
		entry.Name, err = util.ParseString(buf)
		if err != nil {
			return fmt.Errorf("error reading file entry: %v", err)
		}
		if entry.Name == "" {
			break
		}

		if entry.DirIdx, _, err = leb128.DecodeUnsigned(buf); err != nil {
			return fmt.Errorf("error reading file entry: %v", err)
		}
		if entry.LastModTime, _, err = leb128.DecodeUnsigned(buf); err != nil {
			return fmt.Errorf("error reading file entry: %v", err)
		}
		if entry.Length, _, err = leb128.DecodeUnsigned(buf); err != nil {
			return fmt.Errorf("error reading file entry: %v", err)
		}
		info.joinPath(entry, int(entry.DirIdx))

		info.FileNames = append(info.FileNames, entry)
	}
	return nil
}

// parseFileEntries5 parses the file table for DWARF 5.
func parseFileEntries5(info *DebugLineInfo, buf *bytes.Buffer) error {
	fileEntryFormReader, err := readEntryFormat(buf, info.order)
	if err != nil {
		return err
	}
	info.HasMTime = fileEntryFormReader.hasContentType(_DW_LNCT_timestamp)
	info.HasLength = fileEntryFormReader.hasContentType(_DW_LNCT_size)
	info.HasMD5 = fileEntryFormReader.hasContentType(_DW_LNCT_MD5)

	fileCount, _, err := leb128.DecodeUnsigned(buf)
	if err != nil {
		return fmt.Errorf("error reading file entries table: %v", err)
	}
	info.FileNames = make([]*FileEntry, 0, allocHint(fileCount, buf))
	for i := uint64(0); i < fileCount; i++ {
		var (
			entry  = new(FileEntry)
			diridx = 0
		)

		fileEntryFormReader.reset()

		for fileEntryFormReader.next(buf) {
			switch fileEntryFormReader.contentType {
			case _DW_LNCT_path:
				entry.Name, err = info.resolveString(fileEntryFormReader)
				if err != nil {
					return fmt.Errorf("error reading file entries table: %v", err)
				}
			case _DW_LNCT_directory_index:
				diridx = int(fileEntryFormReader.u64)
			case _DW_LNCT_timestamp:
				entry.LastModTime = fileEntryFormReader.u64
			case _DW_LNCT_size:
				entry.Length = fileEntryFormReader.u64
			case _DW_LNCT_MD5:
				if fileEntryFormReader.formCode != _DW_FORM_data16 {
					return fmt.Errorf("unsupported form %#x for file MD5 digest", fileEntryFormReader.formCode)
				}
				copy(entry.MD5[:], fileEntryFormReader.block)
			}
		}
		if fileEntryFormReader.err != nil {
			return fmt.Errorf("error reading file entries table: %v", fileEntryFormReader.err)
		}

		entry.DirIdx = uint64(diridx)
		info.joinPath(entry, diridx)
		info.FileNames = append(info.FileNames, entry)
	}
	return nil
}

// joinPath fills entry.Path from entry.Name and the directory table. A
// relative directory is prepended with the compilation directory before the
// file name is appended.
func (info *DebugLineInfo) joinPath(entry *FileEntry, diridx int) {
	if pathIsAbs(entry.Name) {
		entry.Path = entry.Name
		return
	}
	dir := ""
	if diridx >= 0 && diridx < len(info.IncludeDirs) {
		dir = info.IncludeDirs[diridx]
	} else {
		info.Logf("directory index %d out of range (%d directories)", diridx, len(info.IncludeDirs))
	}
	if !pathIsAbs(dir) && info.compdir != "" {
		dir = path.Join(info.compdir, dir)
	}
	entry.Path = path.Join(dir, entry.Name)
}

// resolveString returns the string value last read by rdr, resolving
// indirect references through .debug_line_str and .debug_str.
func (info *DebugLineInfo) resolveString(rdr *formReader) (string, error) {
	switch rdr.formCode {
	case _DW_FORM_string:
		return rdr.str, nil
	case _DW_FORM_line_strp:
		return stringAt(info.debugLineStr, rdr.u64)
	case _DW_FORM_strp:
		return stringAt(info.debugStr, rdr.u64)
	default:
		return "", fmt.Errorf("unsupported string form %#x", rdr.formCode)
	}
}

func stringAt(section []byte, off uint64) (string, error) {
	if off >= uint64(len(section)) {
		return "", fmt.Errorf("string offset %#x out of section bounds", off)
	}
	return util.ParseString(bytes.NewBuffer(section[off:]))
}

// allocHint bounds a declared entry count before it is used as an
// allocation size. Every table entry takes at least one byte, so a count
// exceeding the remaining buffer can not be honest; the per-entry loop
// will fail on the underflow.
func allocHint(count uint64, buf *bytes.Buffer) int {
	if max := uint64(buf.Len()); count > max {
		return int(max)
	}
	return int(count)
}

// pathIsAbs returns true if this is an absolute path.
// We can not use path.IsAbs because it will not recognize windows paths as
// absolute. We also can not use filepath.Abs because we want this
// processing to be independent of the host operating system (we could be
// reading an executable file produced on windows on a unix machine or vice
// versa).
func pathIsAbs(s string) bool {
	if len(s) >= 1 && s[0] == '/' {
		return true
	}
	if len(s) >= 2 && s[1] == ':' && (('a' <= s[0] && s[0] <= 'z') || ('A' <= s[0] && s[0] <= 'Z')) {
		return true
	}
	return false
}

func readUint16(info *DebugLineInfo, buf *bytes.Buffer) (uint16, error) {
	n, err := util.ReadUintRaw(buf, info.order, 2)
	return uint16(n), err
}

func readUint32(info *DebugLineInfo, buf *bytes.Buffer) (uint32, error) {
	n, err := util.ReadUintRaw(buf, info.order, 4)
	return uint32(n), err
}
