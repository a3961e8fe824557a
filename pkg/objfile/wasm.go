package objfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/srclist/srclist/pkg/dwarf/leb128"
)

// parseWASM scans the sections of a WASM image, collecting the custom
// sections (id 0) DWARF data is stored in. Non-custom sections are skipped.
func parseWASM(data []byte) (map[string][]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("wasm image truncated in header")
	}
	if version := binary.LittleEndian.Uint32(data[4:]); version != 1 {
		return nil, fmt.Errorf("unsupported wasm version %d", version)
	}

	sections := make(map[string][]byte)
	buf := bytes.NewBuffer(data[8:])
	for buf.Len() > 0 {
		id, err := buf.ReadByte()
		if err != nil {
			return nil, err
		}
		size, _, err := leb128.DecodeUnsigned(buf)
		if err != nil || size > uint64(buf.Len()) {
			return nil, fmt.Errorf("wasm image truncated in section size")
		}
		body := buf.Next(int(size))
		if id != 0 {
			continue
		}

		sbuf := bytes.NewBuffer(body)
		namelen, _, err := leb128.DecodeUnsigned(sbuf)
		if err != nil || namelen > uint64(sbuf.Len()) {
			return nil, fmt.Errorf("wasm image truncated in custom section name")
		}
		name := string(sbuf.Next(int(namelen)))
		sections[name] = sbuf.Bytes()
	}
	return sections, nil
}
