package srcfiles

import (
	"errors"
	"io"
	"os"

	"github.com/srclist/srclist/pkg/logflags"
	"github.com/srclist/srclist/pkg/objfile"
	"github.com/srclist/srclist/pkg/pdb"
)

// Parse extracts the source-file records from the binary read from rs.
// The stream is probed as a PDB first; a stream that is recognizably not a
// PDB is rewound and parsed as an object container (ELF, Mach-O, COFF, PE
// or WASM, auto-detected). Any other PDB open failure propagates without
// fallback.
//
// The returned records are sorted by path and contain no fully identical
// duplicates. The caller retains ownership of rs.
func Parse(rs io.ReadSeeker) ([]FileRecord, error) {
	p, err := pdb.Open(rs)
	if err == nil {
		return parsePDB(p)
	}
	if !errors.Is(err, pdb.ErrNotAPDB) {
		return nil, &PDBError{err}
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, &IOError{err}
	}
	data, err := io.ReadAll(rs)
	if err != nil {
		return nil, &IOError{err}
	}

	f, err := objfile.Parse(data)
	if err != nil {
		if errors.Is(err, objfile.ErrUnknownFormat) {
			return nil, ErrUnrecognizedFileFormat
		}
		return nil, &ObjectError{err}
	}
	if logflags.Objfile() {
		logflags.ObjfileLogger().Debugf("detected %s container", f.Kind)
	}

	if !f.HasDebugSymbols() {
		return nil, ErrMissingDebugSymbols
	}

	switch f.Kind {
	case objfile.KindELF, objfile.KindMachO:
		return parseDWARF(f)
	case objfile.KindCOFF, objfile.KindPE:
		// Windows debug information is expected in a separate PDB file,
		// not in embedded COFF/PE debug sections.
		return nil, ErrMissingDebugSymbols
	case objfile.KindWASM:
		return nil, ErrWASMUnsupported
	}
	return nil, ErrUnrecognizedFileFormat
}

// ParsePath opens the file at path and extracts its source-file records
// with Parse.
func ParsePath(path string) ([]FileRecord, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, &IOError{err}
	}
	defer fh.Close()
	return Parse(fh)
}
