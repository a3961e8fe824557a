// Package pdb provides a reader for Microsoft PDB (program database)
// files, the container Windows toolchains store debug information in.
//
// A PDB file is a big-MSF container: a superblock, a block allocation map
// and a stream directory slicing the file into numbered streams. On top of
// that the package understands the substreams needed to enumerate the
// source files recorded at build time: the PDB info stream and its named
// stream map, the /names string table, the DBI module list and each
// module's C13 file-checksum subsection.
//
// The format is documented by the LLVM project:
//
//	https://llvm.org/docs/PDB/MsfFile.html
//	https://llvm.org/docs/PDB/DbiStream.html
package pdb

import (
	"errors"
	"fmt"
	"io"
)

// ErrNotAPDB is the error returned when the file being opened does not
// carry the MSF magic. Any other failure means the file looked like a PDB
// but could not be parsed.
var ErrNotAPDB = errors.New("not a PDB file")

// msfMagic is the magic string at offset 0 of every big-MSF file.
const msfMagic = "Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00"

const (
	streamPDBInfo = 1
	streamDBI     = 3

	// nilStreamSize marks a stream with no content in the directory.
	nilStreamSize = 0xffffffff

	// invalidStreamIndex marks the absence of a stream reference.
	invalidStreamIndex = 0xffff
)

// pdbBuf is a cursor over a raw byte buffer with a sticky error, in which
// the fixed-size little-endian fields of MSF structures are decoded.
type pdbBuf struct {
	buf  []byte
	kind string
	off  int
	err  error
	ctx  string
}

func (buf *pdbBuf) u8() uint8 {
	if buf.err != nil {
		return 0
	}
	if buf.off+1 > len(buf.buf) {
		buf.err = fmt.Errorf("pdb %s truncated at offset %#x while %s", buf.kind, buf.off, buf.ctx)
		return 0
	}
	r := buf.buf[buf.off]
	buf.off++
	return r
}

func (buf *pdbBuf) u16() uint16 {
	const stride = 2
	if buf.err != nil {
		return 0
	}
	if buf.off+stride > len(buf.buf) {
		buf.err = fmt.Errorf("pdb %s truncated at offset %#x while %s", buf.kind, buf.off, buf.ctx)
		return 0
	}
	r := uint16(buf.buf[buf.off]) | uint16(buf.buf[buf.off+1])<<8
	buf.off += stride
	return r
}

func (buf *pdbBuf) u32() uint32 {
	const stride = 4
	if buf.err != nil {
		return 0
	}
	if buf.off+stride > len(buf.buf) {
		buf.err = fmt.Errorf("pdb %s truncated at offset %#x while %s", buf.kind, buf.off, buf.ctx)
		return 0
	}
	r := uint32(buf.buf[buf.off]) | uint32(buf.buf[buf.off+1])<<8 | uint32(buf.buf[buf.off+2])<<16 | uint32(buf.buf[buf.off+3])<<24
	buf.off += stride
	return r
}

func (buf *pdbBuf) bytes(n int) []byte {
	if buf.err != nil {
		return nil
	}
	if n < 0 || buf.off+n > len(buf.buf) {
		buf.err = fmt.Errorf("pdb %s truncated at offset %#x while %s", buf.kind, buf.off, buf.ctx)
		return nil
	}
	r := buf.buf[buf.off : buf.off+n]
	buf.off += n
	return r
}

func (buf *pdbBuf) cstring() string {
	if buf.err != nil {
		return ""
	}
	for end := buf.off; end < len(buf.buf); end++ {
		if buf.buf[end] == 0 {
			r := string(buf.buf[buf.off:end])
			buf.off = end + 1
			return r
		}
	}
	buf.err = fmt.Errorf("pdb %s unterminated string at offset %#x while %s", buf.kind, buf.off, buf.ctx)
	return ""
}

// align advances the cursor to the next multiple of n relative to base.
func (buf *pdbBuf) align(base, n int) {
	if rem := (buf.off - base) % n; rem != 0 {
		buf.off += n - rem
	}
}

func streamBuf(pdb *PDB, index int, name string) (*pdbBuf, error) {
	data, err := pdb.StreamData(index)
	if err != nil {
		return nil, err
	}
	return &pdbBuf{
		buf:  data,
		kind: "stream",
		ctx:  fmt.Sprintf("reading %s stream %d", name, index),
	}, nil
}

// PDB represents an open PDB file.
type PDB struct {
	BlockSize uint32
	NumBlocks uint32

	raw          []byte
	streamSizes  []uint32
	streamBlocks [][]uint32
}

// Open reads a PDB file from rs. A file that does not start with the MSF
// magic, or that declares an invalid block size, fails with an error
// wrapping ErrNotAPDB; any other failure is a structural error in a file
// that is recognizably a PDB.
func Open(rs io.ReadSeeker) (*PDB, error) {
	magic := make([]byte, len(msfMagic))
	if _, err := io.ReadFull(rs, magic); err != nil {
		return nil, fmt.Errorf("%w: file too short for MSF header", ErrNotAPDB)
	}
	if string(magic) != msfMagic {
		return nil, fmt.Errorf("%w: bad MSF magic", ErrNotAPDB)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(rs)
	if err != nil {
		return nil, err
	}

	buf := &pdbBuf{buf: raw, kind: "file", off: len(msfMagic), ctx: "reading superblock"}

	p := &PDB{raw: raw}
	p.BlockSize = buf.u32()
	buf.u32() // free block map block
	p.NumBlocks = buf.u32()
	numDirectoryBytes := buf.u32()
	buf.u32() // unknown
	blockMapAddr := buf.u32()
	if buf.err != nil {
		return nil, buf.err
	}

	switch p.BlockSize {
	case 512, 1024, 2048, 4096:
	default:
		// an invalid page size means this is not a PDB after all
		return nil, fmt.Errorf("%w: invalid block size %d", ErrNotAPDB, p.BlockSize)
	}

	if err := p.readStreamDirectory(numDirectoryBytes, blockMapAddr); err != nil {
		return nil, err
	}
	return p, nil
}

// block returns the contents of block i.
func (p *PDB) block(i uint32) ([]byte, error) {
	start := uint64(i) * uint64(p.BlockSize)
	end := start + uint64(p.BlockSize)
	if i >= p.NumBlocks || end > uint64(len(p.raw)) {
		return nil, fmt.Errorf("pdb block %d out of range", i)
	}
	return p.raw[start:end], nil
}

// blocksNeeded is the number of blocks a stream of size bytes occupies.
func (p *PDB) blocksNeeded(size uint32) int {
	return int((uint64(size) + uint64(p.BlockSize) - 1) / uint64(p.BlockSize))
}

// readStreamDirectory loads the stream directory: the stream count, the
// size of every stream and the list of blocks each stream's content lives
// in.
func (p *PDB) readStreamDirectory(numDirectoryBytes, blockMapAddr uint32) error {
	blockMap, err := p.block(blockMapAddr)
	if err != nil {
		return err
	}
	mapBuf := &pdbBuf{buf: blockMap, kind: "block map", ctx: "reading stream directory block list"}

	directory := make([]byte, 0, numDirectoryBytes)
	for i := 0; i < p.blocksNeeded(numDirectoryBytes); i++ {
		blk, err := p.block(mapBuf.u32())
		if mapBuf.err != nil {
			return mapBuf.err
		}
		if err != nil {
			return err
		}
		directory = append(directory, blk...)
	}
	directory = directory[:numDirectoryBytes]

	buf := &pdbBuf{buf: directory, kind: "stream directory", ctx: "reading stream sizes"}
	numStreams := buf.u32()
	p.streamSizes = make([]uint32, numStreams)
	for i := range p.streamSizes {
		p.streamSizes[i] = buf.u32()
	}
	buf.ctx = "reading stream block lists"
	p.streamBlocks = make([][]uint32, numStreams)
	for i := range p.streamBlocks {
		size := p.streamSizes[i]
		if size == nilStreamSize {
			continue
		}
		blocks := make([]uint32, p.blocksNeeded(size))
		for j := range blocks {
			blocks[j] = buf.u32()
		}
		p.streamBlocks[i] = blocks
	}
	return buf.err
}

// StreamData assembles and returns the contents of stream index.
func (p *PDB) StreamData(index int) ([]byte, error) {
	if index < 0 || index >= len(p.streamSizes) {
		return nil, fmt.Errorf("pdb stream %d out of range (%d streams)", index, len(p.streamSizes))
	}
	size := p.streamSizes[index]
	if size == nilStreamSize {
		return nil, nil
	}
	data := make([]byte, 0, size)
	for _, blkidx := range p.streamBlocks[index] {
		blk, err := p.block(blkidx)
		if err != nil {
			return nil, err
		}
		data = append(data, blk...)
	}
	return data[:size], nil
}

// namedStream returns the index of the stream registered under name in the
// PDB info stream's named stream map, or an error if no stream has that
// name.
func (p *PDB) namedStream(name string) (int, error) {
	buf, err := streamBuf(p, streamPDBInfo, "PDB info")
	if err != nil {
		return 0, err
	}
	buf.ctx = "reading PDB info header"
	buf.u32()     // version
	buf.u32()     // signature
	buf.u32()     // age
	buf.bytes(16) // guid

	buf.ctx = "reading named stream map"
	names := buf.bytes(int(buf.u32()))
	count := buf.u32()
	buf.u32() // capacity
	for _, vec := range []string{"present", "deleted"} {
		buf.ctx = "reading named stream map " + vec + " bit vector"
		buf.bytes(4 * int(buf.u32()))
	}

	buf.ctx = "reading named stream map buckets"
	for i := uint32(0); i < count; i++ {
		nameoff := buf.u32()
		streamIndex := buf.u32()
		if buf.err != nil {
			return 0, buf.err
		}
		if nameoff >= uint32(len(names)) {
			return 0, fmt.Errorf("pdb named stream map key %#x out of range", nameoff)
		}
		sbuf := &pdbBuf{buf: names, kind: "stream", off: int(nameoff), ctx: "reading named stream map key"}
		if sbuf.cstring() == name {
			return int(streamIndex), nil
		}
	}
	if buf.err != nil {
		return 0, buf.err
	}
	return 0, fmt.Errorf("pdb has no stream named %q", name)
}
