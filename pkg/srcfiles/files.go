// Package srcfiles extracts the list of original source files that
// contributed to a compiled binary, by decoding the debug information the
// compiler embedded in it. PDB containers and DWARF-carrying ELF and
// Mach-O containers are supported.
package srcfiles

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// Checksum is a digest of a source file's content as recorded by the
// compiler at build time. Its dynamic type is one of MD5, SHA1 or SHA256;
// callers distinguish the algorithm by type switch. A record with no
// recorded checksum holds nil.
type Checksum interface {
	checksum() []byte
	String() string
}

// MD5 is an MD5 content digest.
type MD5 [16]byte

// SHA1 is a SHA-1 content digest.
type SHA1 [20]byte

// SHA256 is a SHA-256 content digest.
type SHA256 [32]byte

func (c MD5) checksum() []byte    { return c[:] }
func (c SHA1) checksum() []byte   { return c[:] }
func (c SHA256) checksum() []byte { return c[:] }

func (c MD5) String() string    { return "MD5:" + hex.EncodeToString(c[:]) }
func (c SHA1) String() string   { return "SHA1:" + hex.EncodeToString(c[:]) }
func (c SHA256) String() string { return "SHA256:" + hex.EncodeToString(c[:]) }

// FileRecord is the information recorded for one source file. Only the
// path is always present: a Size or Timestamp of 0 means the field was not
// recorded (0 is a reserved sentinel in the formats decoded here, never a
// real value), and a nil Checksum means none was recorded.
type FileRecord struct {
	Path      string
	Size      uint64
	Timestamp uint64
	Checksum  Checksum
}

// checksumRank orders checksums for deterministic sorting: records without
// one first, then by algorithm, then by digest bytes.
func checksumRank(c Checksum) int {
	switch c.(type) {
	case nil:
		return 0
	case MD5:
		return 1
	case SHA1:
		return 2
	case SHA256:
		return 3
	}
	return 4
}

func recordLess(a, b *FileRecord) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	if a.Size != b.Size {
		return a.Size < b.Size
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	ra, rb := checksumRank(a.Checksum), checksumRank(b.Checksum)
	if ra != rb {
		return ra < rb
	}
	if a.Checksum == nil {
		return false
	}
	return bytes.Compare(a.Checksum.checksum(), b.Checksum.checksum()) < 0
}

// normalize sorts records ascending by path and collapses records that are
// identical in all fields to a single occurrence. Records sharing a path
// but differing elsewhere are all retained. The non-path fields are used
// as tie-breakers so that the output order is deterministic.
func normalize(files []FileRecord) []FileRecord {
	sort.Slice(files, func(i, j int) bool {
		return recordLess(&files[i], &files[j])
	})
	out := files[:0]
	for i := range files {
		if i > 0 && files[i] == out[len(out)-1] {
			continue
		}
		out = append(out, files[i])
	}
	return out
}
