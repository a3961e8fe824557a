package srcfiles

import (
	"errors"
)

var (
	// ErrMissingDebugSymbols means the file is a valid object container
	// but carries no debug information this package can extract.
	ErrMissingDebugSymbols = errors.New("file was missing debug symbols")

	// ErrUnrecognizedFileFormat means the file matches neither the PDB
	// signature nor any supported object-container signature.
	ErrUnrecognizedFileFormat = errors.New("file format was unrecognized")

	// ErrWASMUnsupported means the file is a WASM image, whose debug
	// information this package does not extract yet.
	ErrWASMUnsupported = errors.New("extracting debug information from WASM files is not supported")
)

// PDBError means the file opened as a PDB container but its structure
// could not be parsed.
type PDBError struct {
	Err error
}

func (e *PDBError) Error() string { return "error parsing PDB file: " + e.Err.Error() }
func (e *PDBError) Unwrap() error { return e.Err }

// ObjectError means the bytes failed to parse as a valid object container.
type ObjectError struct {
	Err error
}

func (e *ObjectError) Error() string { return "error parsing object file: " + e.Err.Error() }
func (e *ObjectError) Unwrap() error { return e.Err }

// DWARFError means a debug section, attribute or string failed to decode.
type DWARFError struct {
	Err error
}

func (e *DWARFError) Error() string { return "error parsing DWARF information: " + e.Err.Error() }
func (e *DWARFError) Unwrap() error { return e.Err }

// IOError means the underlying stream failed to open, read or seek.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return "error reading input data: " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }
