package pdb

import (
	"fmt"
)

// DebugInfo is the parsed DBI stream: the list of modules contributing to
// the program, in their stored order.
type DebugInfo struct {
	Machine uint16
	Modules []Module
}

// Module is one entry of the DBI module-info substream.
type Module struct {
	Name       string
	ObjectFile string

	// SymStream is the index of the stream holding the module's symbols
	// and line information, or invalidStreamIndex if the module has none.
	SymStream uint16

	SymSize uint32
	C11Size uint32
	C13Size uint32

	SourceFileCount uint16
}

// HasInfo returns true if the module has an associated per-module
// information stream.
func (m *Module) HasInfo() bool {
	return m.SymStream != invalidStreamIndex
}

// DebugInformation loads and parses the DBI stream of the PDB.
func (p *PDB) DebugInformation() (*DebugInfo, error) {
	buf, err := streamBuf(p, streamDBI, "DBI")
	if err != nil {
		return nil, err
	}

	buf.ctx = "reading DBI header"
	if sig := buf.u32(); buf.err == nil && sig != 0xffffffff {
		return nil, fmt.Errorf("pdb DBI stream has invalid version signature %#x", sig)
	}
	buf.u32() // version header
	buf.u32() // age
	buf.u16() // global symbol stream
	buf.u16() // build number
	buf.u16() // public symbol stream
	buf.u16() // pdb dll version
	buf.u16() // symbol record stream
	buf.u16() // pdb dll rbld
	modInfoSize := buf.u32()
	buf.u32() // section contribution size
	buf.u32() // section map size
	buf.u32() // source info size
	buf.u32() // type server map size
	buf.u32() // MFC type server index
	buf.u32() // optional dbg header size
	buf.u32() // EC substream size
	buf.u16() // flags
	machine := buf.u16()
	buf.u32() // padding
	if buf.err != nil {
		return nil, buf.err
	}

	dbi := &DebugInfo{Machine: machine}

	buf.ctx = "reading module info substream"
	substreamStart := buf.off
	modInfo := buf.bytes(int(modInfoSize))
	if buf.err != nil {
		return nil, buf.err
	}
	mbuf := &pdbBuf{buf: modInfo, kind: "stream", ctx: fmt.Sprintf("reading module info substream at offset %#x", substreamStart)}
	for mbuf.off < len(mbuf.buf) {
		var mod Module
		mbuf.u32()     // unused
		mbuf.bytes(28) // section contribution entry
		mbuf.u16()     // flags
		mod.SymStream = mbuf.u16()
		mod.SymSize = mbuf.u32()
		mod.C11Size = mbuf.u32()
		mod.C13Size = mbuf.u32()
		mod.SourceFileCount = mbuf.u16()
		mbuf.u16() // padding
		mbuf.u32() // unused
		mbuf.u32() // source file name index
		mbuf.u32() // pdb file path name index
		mod.Name = mbuf.cstring()
		mod.ObjectFile = mbuf.cstring()
		mbuf.align(0, 4)
		if mbuf.err != nil {
			return nil, mbuf.err
		}
		dbi.Modules = append(dbi.Modules, mod)
	}

	return dbi, nil
}
