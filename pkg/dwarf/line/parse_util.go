package line

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/srclist/srclist/pkg/dwarf/leb128"
	"github.com/srclist/srclist/pkg/dwarf/util"
)

const (
	_DW_FORM_block      = 0x09
	_DW_FORM_block1     = 0x0a
	_DW_FORM_block2     = 0x03
	_DW_FORM_block4     = 0x04
	_DW_FORM_data1      = 0x0b
	_DW_FORM_data2      = 0x05
	_DW_FORM_data4      = 0x06
	_DW_FORM_data8      = 0x07
	_DW_FORM_data16     = 0x1e
	_DW_FORM_flag       = 0x0c
	_DW_FORM_line_strp  = 0x1f
	_DW_FORM_sdata      = 0x0d
	_DW_FORM_sec_offset = 0x17
	_DW_FORM_string     = 0x08
	_DW_FORM_strp       = 0x0e
	_DW_FORM_udata      = 0x0f
)

const (
	_DW_LNCT_path = 0x1 + iota
	_DW_LNCT_directory_index
	_DW_LNCT_timestamp
	_DW_LNCT_size
	_DW_LNCT_MD5
)

var ErrBufferUnderflow = errors.New("buffer underflow")

// formReader reads the fields of one entry of a DWARF 5 directory or
// file-name table, according to the entry format description at the start of
// the table.
type formReader struct {
	order        binary.ByteOrder
	contentTypes []uint64
	formCodes    []uint64

	contentType uint64
	formCode    uint64

	block []byte
	u64   uint64
	i64   int64
	str   string
	err   error

	nexti int
}

func readEntryFormat(buf *bytes.Buffer, order binary.ByteOrder) (*formReader, error) {
	if buf.Len() < 1 {
		return nil, ErrBufferUnderflow
	}
	count := buf.Next(1)[0]
	r := &formReader{
		order:        order,
		contentTypes: make([]uint64, count),
		formCodes:    make([]uint64, count),
	}
	for i := range r.contentTypes {
		var err error
		if r.contentTypes[i], _, err = leb128.DecodeUnsigned(buf); err != nil {
			return nil, err
		}
		if r.formCodes[i], _, err = leb128.DecodeUnsigned(buf); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (rdr *formReader) hasContentType(contentType uint64) bool {
	for _, ct := range rdr.contentTypes {
		if ct == contentType {
			return true
		}
	}
	return false
}

func (rdr *formReader) reset() {
	rdr.err = nil
	rdr.nexti = 0
}

func (rdr *formReader) next(buf *bytes.Buffer) bool {
	if rdr.err != nil {
		return false
	}
	if rdr.nexti >= len(rdr.contentTypes) {
		return false
	}

	rdr.contentType = rdr.contentTypes[rdr.nexti]
	rdr.formCode = rdr.formCodes[rdr.nexti]

	switch rdr.formCode {
	case _DW_FORM_block:
		var n uint64
		if n, _, rdr.err = leb128.DecodeUnsigned(buf); rdr.err != nil {
			return false
		}
		rdr.readBlock(buf, n)

	case _DW_FORM_block1:
		if buf.Len() < 1 {
			rdr.err = ErrBufferUnderflow
			return false
		}
		rdr.readBlock(buf, uint64(buf.Next(1)[0]))

	case _DW_FORM_block2:
		rdr.u64, rdr.err = util.ReadUintRaw(buf, rdr.order, 2)
		if rdr.err != nil {
			return false
		}
		rdr.readBlock(buf, rdr.u64)

	case _DW_FORM_block4:
		rdr.u64, rdr.err = util.ReadUintRaw(buf, rdr.order, 4)
		if rdr.err != nil {
			return false
		}
		rdr.readBlock(buf, rdr.u64)

	case _DW_FORM_data1, _DW_FORM_flag:
		rdr.u64, rdr.err = util.ReadUintRaw(buf, rdr.order, 1)

	case _DW_FORM_data2:
		rdr.u64, rdr.err = util.ReadUintRaw(buf, rdr.order, 2)

	case _DW_FORM_data4, _DW_FORM_line_strp, _DW_FORM_sec_offset, _DW_FORM_strp:
		rdr.u64, rdr.err = util.ReadUintRaw(buf, rdr.order, 4)

	case _DW_FORM_data8:
		rdr.u64, rdr.err = util.ReadUintRaw(buf, rdr.order, 8)

	case _DW_FORM_data16:
		rdr.readBlock(buf, 16)

	case _DW_FORM_sdata:
		rdr.i64, _, rdr.err = leb128.DecodeSigned(buf)

	case _DW_FORM_udata:
		rdr.u64, _, rdr.err = leb128.DecodeUnsigned(buf)

	case _DW_FORM_string:
		rdr.str, rdr.err = util.ParseString(buf)

	default:
		rdr.err = fmt.Errorf("unknown form code %#x", rdr.formCode)
	}

	if rdr.err != nil {
		return false
	}

	rdr.nexti++
	return true
}

func (rdr *formReader) readBlock(buf *bytes.Buffer, n uint64) {
	if uint64(buf.Len()) < n {
		rdr.err = ErrBufferUnderflow
		return
	}
	if cap(rdr.block) < int(n) {
		rdr.block = make([]byte, 0, n)
	}
	rdr.block = rdr.block[:n]
	buf.Read(rdr.block)
}
