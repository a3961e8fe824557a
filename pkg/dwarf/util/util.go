// Package util contains low-level readers shared by the DWARF decoding
// packages.
package util

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ParseString reads a NUL-terminated string from data.
func ParseString(data *bytes.Buffer) (string, error) {
	str, err := data.ReadString(0x0)
	if err != nil {
		return "", err
	}

	return str[:len(str)-1], nil
}

// ReadUintRaw reads an integer of size bytes, with the specified byte order,
// from reader.
func ReadUintRaw(reader io.Reader, order binary.ByteOrder, size int) (uint64, error) {
	switch size {
	case 1:
		var n uint8
		if err := binary.Read(reader, order, &n); err != nil {
			return 0, err
		}
		return uint64(n), nil
	case 2:
		var n uint16
		if err := binary.Read(reader, order, &n); err != nil {
			return 0, err
		}
		return uint64(n), nil
	case 4:
		var n uint32
		if err := binary.Read(reader, order, &n); err != nil {
			return 0, err
		}
		return uint64(n), nil
	case 8:
		var n uint64
		if err := binary.Read(reader, order, &n); err != nil {
			return 0, err
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported integer size %d", size)
}
