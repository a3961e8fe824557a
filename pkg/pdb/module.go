package pdb

import (
	"fmt"
)

// debugSubsectionFileChecksums is the C13 subsection kind holding the
// file-checksum table.
const debugSubsectionFileChecksums = 0xF4

// ChecksumKind identifies the hash algorithm of a file-checksum entry.
type ChecksumKind uint8

const (
	ChecksumNone ChecksumKind = iota
	ChecksumMD5
	ChecksumSHA1
	ChecksumSHA256
)

func (k ChecksumKind) String() string {
	switch k {
	case ChecksumNone:
		return "none"
	case ChecksumMD5:
		return "MD5"
	case ChecksumSHA1:
		return "SHA1"
	case ChecksumSHA256:
		return "SHA256"
	}
	return fmt.Sprintf("ChecksumKind(%d)", uint8(k))
}

// FileChecksum is one entry of a module's file-checksum table.
type FileChecksum struct {
	// NameOffset is the offset of the file name in the /names string
	// table.
	NameOffset uint32
	Kind       ChecksumKind
	Sum        []byte
}

// ModuleInfo is the parsed per-module information stream.
type ModuleInfo struct {
	mod  *Module
	data []byte
}

// ModuleInfo loads the per-module information stream of mod. Modules
// without one yield nil with no error.
func (p *PDB) ModuleInfo(mod *Module) (*ModuleInfo, error) {
	if !mod.HasInfo() {
		return nil, nil
	}
	data, err := p.StreamData(int(mod.SymStream))
	if err != nil {
		return nil, fmt.Errorf("loading info stream of module %q: %v", mod.Name, err)
	}
	return &ModuleInfo{mod: mod, data: data}, nil
}

// LineProgram is a module's line information. Only the file-checksum table
// is decoded; it names every source file the module was built from.
type LineProgram struct {
	checksums []FileChecksum
}

// Files returns the file-checksum entries of the line program in table
// order.
func (lp *LineProgram) Files() []FileChecksum {
	return lp.checksums
}

// LineProgram parses the C13 line-information substream of the module.
func (mi *ModuleInfo) LineProgram() (*LineProgram, error) {
	c13Start := uint64(mi.mod.SymSize) + uint64(mi.mod.C11Size)
	c13End := c13Start + uint64(mi.mod.C13Size)
	if c13End > uint64(len(mi.data)) {
		return nil, fmt.Errorf("pdb module %q line information out of stream bounds", mi.mod.Name)
	}

	lp := &LineProgram{}
	buf := &pdbBuf{
		buf:  mi.data[:c13End],
		kind: "stream",
		off:  int(c13Start),
		ctx:  fmt.Sprintf("reading C13 line information of module %q", mi.mod.Name),
	}
	for buf.off < len(buf.buf) {
		kind := buf.u32()
		length := buf.u32()
		body := buf.bytes(int(length))
		buf.align(0, 4)
		if buf.err != nil {
			return nil, buf.err
		}
		if kind != debugSubsectionFileChecksums {
			continue
		}

		cbuf := &pdbBuf{buf: body, kind: "stream", ctx: fmt.Sprintf("reading file checksums of module %q", mi.mod.Name)}
		for cbuf.off < len(cbuf.buf) {
			var entry FileChecksum
			entry.NameOffset = cbuf.u32()
			size := cbuf.u8()
			entry.Kind = ChecksumKind(cbuf.u8())
			entry.Sum = cbuf.bytes(int(size))
			cbuf.align(0, 4)
			if cbuf.err != nil {
				return nil, cbuf.err
			}
			lp.checksums = append(lp.checksums, entry)
		}
	}
	return lp, nil
}
