package pdb

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// stringTableSignature is the header magic of the /names stream.
const stringTableSignature = 0xEFFEEFFE

// stringTableCacheSize bounds the per-table cache of resolved strings.
// Checksum entries of different modules reference the same handful of
// source names over and over.
const stringTableCacheSize = 1024

// StringTable is the PDB-wide /names string table. File-name references in
// checksum entries are byte offsets into its string buffer.
type StringTable struct {
	buf   []byte
	cache *lru.Cache
}

// StringTable loads the /names stream of the PDB.
func (p *PDB) StringTable() (*StringTable, error) {
	index, err := p.namedStream("/names")
	if err != nil {
		return nil, err
	}
	buf, err := streamBuf(p, index, "/names")
	if err != nil {
		return nil, err
	}
	buf.ctx = "reading string table header"
	if sig := buf.u32(); buf.err == nil && sig != stringTableSignature {
		return nil, fmt.Errorf("pdb string table has invalid signature %#x", sig)
	}
	if ver := buf.u32(); buf.err == nil && ver != 1 && ver != 2 {
		return nil, fmt.Errorf("pdb string table has unsupported hash version %d", ver)
	}
	strbuf := buf.bytes(int(buf.u32()))
	if buf.err != nil {
		return nil, buf.err
	}

	cache, err := lru.New(stringTableCacheSize)
	if err != nil {
		return nil, err
	}
	return &StringTable{buf: strbuf, cache: cache}, nil
}

// StringAt resolves the string at byte offset off of the table.
func (st *StringTable) StringAt(off uint32) (string, error) {
	if s, ok := st.cache.Get(off); ok {
		return s.(string), nil
	}
	if off >= uint32(len(st.buf)) {
		return "", fmt.Errorf("pdb string table offset %#x out of range", off)
	}
	buf := &pdbBuf{buf: st.buf, kind: "string table", off: int(off), ctx: "resolving string"}
	s := buf.cstring()
	if buf.err != nil {
		return "", buf.err
	}
	st.cache.Add(off, s)
	return s, nil
}
