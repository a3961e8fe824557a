// Package pdbbuilder synthesizes minimal big-MSF PDB images for tests:
// a superblock, a stream directory, a PDB info stream with a named stream
// map, a /names string table, a DBI module list and per-module streams
// carrying C13 file-checksum tables.
package pdbbuilder

import (
	"bytes"
	"encoding/binary"

	"github.com/srclist/srclist/pkg/pdb"
)

// FileChecksum describes one file-checksum entry of a synthesized module.
type FileChecksum struct {
	Name string
	Kind pdb.ChecksumKind
	Sum  []byte
}

// Module describes one module of a synthesized PDB. A module with NoInfo
// set has no per-module information stream.
type Module struct {
	Name   string
	Files  []FileChecksum
	NoInfo bool
}

const blockSize = 512

const msfMagic = "Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00"

// Build serializes a PDB image containing the given modules.
func Build(modules []Module) []byte {
	names, nameOffs := buildStringBuffer(modules)

	// stream layout: 0 old directory, 1 PDB info, 2 TPI, 3 DBI, 4 IPI,
	// 5 /names, then one stream per module that has info
	streams := make([][]byte, 6)
	streams[1] = buildInfoStream(5)
	streams[5] = buildNamesStream(names)

	modStreams := make([]uint16, len(modules))
	modSizes := make([]uint32, len(modules))
	for i := range modules {
		if modules[i].NoInfo {
			modStreams[i] = 0xffff
			continue
		}
		content := buildModuleStream(&modules[i], nameOffs)
		modStreams[i] = uint16(len(streams))
		modSizes[i] = uint32(len(content) - 4)
		streams = append(streams, content)
	}
	streams[3] = buildDBIStream(modules, modStreams, modSizes)

	return assemble(streams)
}

// buildStringBuffer lays out the /names string buffer and returns the
// offset of every file name in it.
func buildStringBuffer(modules []Module) ([]byte, map[string]uint32) {
	var buf bytes.Buffer
	buf.WriteByte(0) // offset 0 is the empty string
	offs := make(map[string]uint32)
	for i := range modules {
		for _, f := range modules[i].Files {
			if _, ok := offs[f.Name]; ok {
				continue
			}
			offs[f.Name] = uint32(buf.Len())
			buf.WriteString(f.Name)
			buf.WriteByte(0)
		}
	}
	return buf.Bytes(), offs
}

func buildNamesStream(names []byte) []byte {
	var buf bytes.Buffer
	w32(&buf, 0xEFFEEFFE) // signature
	w32(&buf, 1)          // hash version
	w32(&buf, uint32(len(names)))
	buf.Write(names)
	return buf.Bytes()
}

// buildInfoStream builds the PDB info stream with a named stream map
// registering /names at the given stream index.
func buildInfoStream(namesStream uint32) []byte {
	var buf bytes.Buffer
	w32(&buf, 20000404) // version VC70
	w32(&buf, 0)        // signature
	w32(&buf, 1)        // age
	buf.Write(make([]byte, 16))

	mapStrings := []byte("/names\x00")
	w32(&buf, uint32(len(mapStrings)))
	buf.Write(mapStrings)
	w32(&buf, 1) // size
	w32(&buf, 1) // capacity
	w32(&buf, 1) // present bit vector word count
	w32(&buf, 1) // present bit vector
	w32(&buf, 0) // deleted bit vector word count
	w32(&buf, 0) // bucket key: offset of "/names"
	w32(&buf, namesStream)
	return buf.Bytes()
}

func buildDBIStream(modules []Module, modStreams []uint16, modSizes []uint32) []byte {
	var mods bytes.Buffer
	for i := range modules {
		w32(&mods, 0)                  // unused
		mods.Write(make([]byte, 28))   // section contribution
		w16(&mods, 0)                  // flags
		w16(&mods, modStreams[i])      // module sym stream
		w32(&mods, 4)                  // sym byte size (signature only)
		w32(&mods, 0)                  // C11 byte size
		w32(&mods, modSizes[i])        // C13 byte size
		w16(&mods, uint16(len(modules[i].Files)))
		w16(&mods, 0) // padding
		w32(&mods, 0) // unused
		w32(&mods, 0) // source file name index
		w32(&mods, 0) // pdb file path name index
		mods.WriteString(modules[i].Name)
		mods.WriteByte(0)
		mods.WriteString(modules[i].Name + ".obj")
		mods.WriteByte(0)
		for mods.Len()%4 != 0 {
			mods.WriteByte(0)
		}
	}

	var buf bytes.Buffer
	w32(&buf, 0xffffffff) // version signature
	w32(&buf, 19990903)   // version header V70
	w32(&buf, 1)          // age
	w16(&buf, 0xffff)     // global symbol stream
	w16(&buf, 0)          // build number
	w16(&buf, 0xffff)     // public symbol stream
	w16(&buf, 0)          // pdb dll version
	w16(&buf, 0xffff)     // symbol record stream
	w16(&buf, 0)          // pdb dll rbld
	w32(&buf, uint32(mods.Len()))
	for i := 0; i < 7; i++ {
		w32(&buf, 0) // substream sizes and type server index
	}
	w16(&buf, 0)      // flags
	w16(&buf, 0x8664) // machine amd64
	w32(&buf, 0)      // padding
	buf.Write(mods.Bytes())
	return buf.Bytes()
}

// buildModuleStream builds a per-module stream: a 4-byte symbol substream
// followed by a C13 file-checksum subsection.
func buildModuleStream(mod *Module, nameOffs map[string]uint32) []byte {
	var chk bytes.Buffer
	for _, f := range mod.Files {
		w32(&chk, nameOffs[f.Name])
		chk.WriteByte(byte(len(f.Sum)))
		chk.WriteByte(byte(f.Kind))
		chk.Write(f.Sum)
		for chk.Len()%4 != 0 {
			chk.WriteByte(0)
		}
	}

	var buf bytes.Buffer
	w32(&buf, 4) // symbol substream signature
	w32(&buf, 0xF4)
	w32(&buf, uint32(chk.Len()))
	buf.Write(chk.Bytes())
	return buf.Bytes()
}

// assemble lays the streams out into blocks and prepends the superblock.
func assemble(streams [][]byte) []byte {
	blocksNeeded := func(n int) int { return (n + blockSize - 1) / blockSize }

	// directory
	var dir bytes.Buffer
	w32(&dir, uint32(len(streams)))
	for _, s := range streams {
		w32(&dir, uint32(len(s)))
	}
	next := uint32(3) // blocks 0-2: superblock and free block maps
	for _, s := range streams {
		for i := 0; i < blocksNeeded(len(s)); i++ {
			w32(&dir, next)
			next++
		}
	}

	dirBlocks := blocksNeeded(dir.Len())
	var blockMap bytes.Buffer
	for i := 0; i < dirBlocks; i++ {
		w32(&blockMap, next)
		next++
	}
	blockMapAddr := next
	numBlocks := next + 1

	img := make([]byte, int(numBlocks)*blockSize)
	copy(img, msfMagic)
	binary.LittleEndian.PutUint32(img[32:], blockSize)
	binary.LittleEndian.PutUint32(img[36:], 1) // free block map block
	binary.LittleEndian.PutUint32(img[40:], numBlocks)
	binary.LittleEndian.PutUint32(img[44:], uint32(dir.Len()))
	binary.LittleEndian.PutUint32(img[52:], blockMapAddr)

	off := 3 * blockSize
	for _, s := range streams {
		copy(img[off:], s)
		off += blocksNeeded(len(s)) * blockSize
	}
	copy(img[off:], dir.Bytes())
	off += dirBlocks * blockSize
	copy(img[off:], blockMap.Bytes())

	return img
}

func w16(buf *bytes.Buffer, n uint16) {
	binary.Write(buf, binary.LittleEndian, n)
}

func w32(buf *bytes.Buffer, n uint32) {
	binary.Write(buf, binary.LittleEndian, n)
}
