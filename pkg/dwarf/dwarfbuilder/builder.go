// Package dwarfbuilder provides a way to build DWARF sections with
// arbitrary contents. It is used to synthesize test fixtures without
// invoking a compiler.
package dwarfbuilder

import (
	"bytes"
	"debug/dwarf"
	"encoding/binary"
	"fmt"

	"github.com/srclist/srclist/pkg/dwarf/leb128"
)

// Form represents a DWARF form kind (see Figure 20, page 160 and following,
// DWARF v4).
type Form uint16

const (
	DW_FORM_addr       Form = 0x01 // address
	DW_FORM_data1      Form = 0x0b // constant
	DW_FORM_data2      Form = 0x05 // constant
	DW_FORM_data4      Form = 0x06 // constant
	DW_FORM_data8      Form = 0x07 // constant
	DW_FORM_string     Form = 0x08 // string
	DW_FORM_sec_offset Form = 0x17 // lineptr, loclistptr, macptr, rangelistptr
)

// SecOffset is an offset into another debug section, written with
// DW_FORM_sec_offset. DW_AT_stmt_list attributes use it to point at a
// line-number program inside .debug_line.
type SecOffset uint32

type tagDescr struct {
	tag dwarf.Tag

	attr     []dwarf.Attr
	form     []Form
	children bool
}

type tagState struct {
	off int
	tagDescr
}

// Builder incrementally builds matching .debug_info and .debug_abbrev
// sections out of compile-unit DIEs.
type Builder struct {
	info     bytes.Buffer
	abbrevs  []tagDescr
	tagStack []*tagState

	unitLengthOffs []int
}

// New creates a new DWARF builder.
func New() *Builder {
	return &Builder{}
}

// AddCompileUnit starts a new compile unit with the given name and
// compilation directory, its line-number program located at offset stmtList
// of .debug_line. Call TagClose after adding all children elements.
func (b *Builder) AddCompileUnit(name, compdir string, stmtList SecOffset) {
	if len(b.tagStack) > 0 {
		panic("AddCompileUnit with an open tag")
	}

	b.unitLengthOffs = append(b.unitLengthOffs, b.info.Len())
	b.info.Write([]byte{
		0x0, 0x0, 0x0, 0x0, // length
		0x4, 0x0, // version
		0x0, 0x0, 0x0, 0x0, // debug_abbrev_offset
		0x8, // address_size
	})

	b.TagOpen(dwarf.TagCompileUnit, name)
	b.Attr(dwarf.AttrCompDir, compdir)
	b.Attr(dwarf.AttrStmtList, stmtList)
}

// TagOpen starts a new DIE, call TagClose after adding all attributes and
// children elements.
func (b *Builder) TagOpen(tag dwarf.Tag, name string) {
	if len(b.tagStack) > 0 {
		b.tagStack[len(b.tagStack)-1].children = true
	}
	ts := &tagState{off: b.info.Len()}
	ts.tag = tag
	b.info.WriteByte(0)
	b.tagStack = append(b.tagStack, ts)
	b.Attr(dwarf.AttrName, name)
}

// TagClose closes the current DIE.
func (b *Builder) TagClose() {
	if len(b.tagStack) <= 0 {
		panic("TagClose with no open tags")
	}
	tag := b.tagStack[len(b.tagStack)-1]
	abbrev := b.abbrevFor(tag.tagDescr)
	b.info.Bytes()[tag.off] = abbrev
	if tag.children {
		b.info.WriteByte(0)
	}
	b.tagStack = b.tagStack[:len(b.tagStack)-1]
}

// Attr adds an attribute to the current DIE.
func (b *Builder) Attr(attr dwarf.Attr, val interface{}) {
	if len(b.tagStack) <= 0 {
		panic("Attr with no open tags")
	}
	tag := b.tagStack[len(b.tagStack)-1]
	if tag.children {
		panic("Can't add attributes after adding children")
	}

	tag.attr = append(tag.attr, attr)

	switch x := val.(type) {
	case string:
		tag.form = append(tag.form, DW_FORM_string)
		b.info.Write([]byte(x))
		b.info.WriteByte(0)
	case uint8:
		tag.form = append(tag.form, DW_FORM_data1)
		binary.Write(&b.info, binary.LittleEndian, x)
	case uint16:
		tag.form = append(tag.form, DW_FORM_data2)
		binary.Write(&b.info, binary.LittleEndian, x)
	case SecOffset:
		tag.form = append(tag.form, DW_FORM_sec_offset)
		binary.Write(&b.info, binary.LittleEndian, uint32(x))
	default:
		panic("unknown value type")
	}
}

// Build closes b and returns the debug_abbrev and debug_info sections.
func (b *Builder) Build() (abbrev, info []byte, err error) {
	if len(b.tagStack) > 0 {
		err = fmt.Errorf("unbalanced TagOpen/TagClose %d", len(b.tagStack))
		return
	}

	abbrev = b.makeAbbrevTable()
	info = b.info.Bytes()
	offs := append(b.unitLengthOffs[1:], len(info))
	for i, off := range b.unitLengthOffs {
		binary.LittleEndian.PutUint32(info[off:], uint32(offs[i]-off-4))
	}

	return
}

func sameTagDescr(a, b tagDescr) bool {
	if a.tag != b.tag {
		return false
	}
	if len(a.attr) != len(b.attr) {
		return false
	}
	if a.children != b.children {
		return false
	}
	for i := range a.attr {
		if a.attr[i] != b.attr[i] {
			return false
		}
		if a.form[i] != b.form[i] {
			return false
		}
	}
	return true
}

// abbrevFor returns an abbrev for the given entry description. If no abbrev
// for tag already exist a new one is created.
func (b *Builder) abbrevFor(tag tagDescr) byte {
	for abbrev, descr := range b.abbrevs {
		if sameTagDescr(descr, tag) {
			return byte(abbrev + 1)
		}
	}

	b.abbrevs = append(b.abbrevs, tag)
	return byte(len(b.abbrevs))
}

func (b *Builder) makeAbbrevTable() []byte {
	var abbrev bytes.Buffer

	for i := range b.abbrevs {
		leb128.EncodeUnsigned(&abbrev, uint64(i+1))
		leb128.EncodeUnsigned(&abbrev, uint64(b.abbrevs[i].tag))
		if b.abbrevs[i].children {
			abbrev.WriteByte(0x01)
		} else {
			abbrev.WriteByte(0x00)
		}
		for j := range b.abbrevs[i].attr {
			leb128.EncodeUnsigned(&abbrev, uint64(b.abbrevs[i].attr[j]))
			leb128.EncodeUnsigned(&abbrev, uint64(b.abbrevs[i].form[j]))
		}
		leb128.EncodeUnsigned(&abbrev, 0)
		leb128.EncodeUnsigned(&abbrev, 0)
	}
	// the abbreviation sequence ends with an entry whose code is 0
	abbrev.WriteByte(0)

	return abbrev.Bytes()
}
