package objfile

import (
	"bytes"
	"compress/zlib"
	"debug/elf"
	"debug/pe"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/srclist/srclist/pkg/dwarf/leb128"
	"github.com/srclist/srclist/pkg/elfwriter"
)

// memWriter is an in-memory elfwriter.WriteSeeker.
type memWriter struct {
	buf []byte
	pos int64
}

func (w *memWriter) Write(p []byte) (int, error) {
	if int(w.pos) > len(w.buf) {
		w.buf = append(w.buf, make([]byte, int(w.pos)-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.buf = append(w.buf, p[n:]...)
	w.pos += int64(len(p))
	return len(p), nil
}

func (w *memWriter) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		w.pos = offset
	case io.SeekCurrent:
		w.pos += offset
	case io.SeekEnd:
		w.pos = int64(len(w.buf)) + offset
	}
	return w.pos, nil
}

// makeELF builds an ELF image containing the given sections.
func makeELF(t *testing.T, data elf.Data, sections map[string][]byte) []byte {
	t.Helper()
	w := &memWriter{}
	ew := elfwriter.New(w, &elf.FileHeader{
		Class:   elf.ELFCLASS64,
		Data:    data,
		Version: elf.EV_CURRENT,
		Type:    elf.ET_EXEC,
		Machine: elf.EM_X86_64,
	})
	for name, contents := range sections {
		ew.AddSection(name, contents)
	}
	ew.Finalize()
	if ew.Err != nil {
		t.Fatalf("error writing ELF image: %v", ew.Err)
	}
	return w.buf
}

func zdebug(t *testing.T, contents []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("ZLIB")
	binary.Write(&buf, binary.BigEndian, uint64(len(contents)))
	zw := zlib.NewWriter(&buf)
	zw.Write(contents)
	if err := zw.Close(); err != nil {
		t.Fatalf("error compressing section: %v", err)
	}
	return buf.Bytes()
}

func TestParseELF(t *testing.T) {
	lineData := []byte{1, 2, 3, 4}
	img := makeELF(t, elf.ELFDATA2LSB, map[string][]byte{
		".debug_info": {9},
		".debug_line": lineData,
	})
	f, err := Parse(img)
	if err != nil {
		t.Fatalf("error parsing image: %v", err)
	}
	if f.Kind != KindELF {
		t.Fatalf("kind %v, want ELF", f.Kind)
	}
	if f.ByteOrder != binary.LittleEndian {
		t.Errorf("byte order %v, want little endian", f.ByteOrder)
	}
	if !f.HasDebugSymbols() {
		t.Error("debug symbols not detected")
	}
	got, err := f.DebugSection("line")
	if err != nil {
		t.Fatalf("error reading .debug_line: %v", err)
	}
	if !bytes.Equal(got, lineData) {
		t.Errorf(".debug_line contents %v, want %v", got, lineData)
	}
	if sec, err := f.DebugSection("ranges"); err != nil || sec != nil {
		t.Errorf("absent section: got %v, %v, want nil, nil", sec, err)
	}
}

func TestParseELFBigEndian(t *testing.T) {
	img := makeELF(t, elf.ELFDATA2MSB, map[string][]byte{".debug_info": {1}})
	f, err := Parse(img)
	if err != nil {
		t.Fatalf("error parsing image: %v", err)
	}
	if f.ByteOrder != binary.BigEndian {
		t.Errorf("byte order %v, want big endian", f.ByteOrder)
	}
	if !f.HasDebugSymbols() {
		t.Error("debug symbols not detected")
	}
}

func TestParseELFNoDebugSymbols(t *testing.T) {
	img := makeELF(t, elf.ELFDATA2LSB, map[string][]byte{".text": {0x90}})
	f, err := Parse(img)
	if err != nil {
		t.Fatalf("error parsing image: %v", err)
	}
	if f.HasDebugSymbols() {
		t.Error("debug symbols detected in image without any")
	}
}

func TestParseELFCompressedSection(t *testing.T) {
	lineData := []byte("uncompressed line table bytes")
	img := makeELF(t, elf.ELFDATA2LSB, map[string][]byte{
		".zdebug_info": zdebug(t, []byte{1}),
		".zdebug_line": zdebug(t, lineData),
	})
	f, err := Parse(img)
	if err != nil {
		t.Fatalf("error parsing image: %v", err)
	}
	if !f.HasDebugSymbols() {
		t.Error("debug symbols not detected")
	}
	got, err := f.DebugSection("line")
	if err != nil {
		t.Fatalf("error reading .zdebug_line: %v", err)
	}
	if !bytes.Equal(got, lineData) {
		t.Errorf(".zdebug_line contents %q, want %q", got, lineData)
	}
}

func wasmCustomSection(name string, body []byte) []byte {
	var sec bytes.Buffer
	leb128.EncodeUnsigned(&sec, uint64(len(name)))
	sec.WriteString(name)
	sec.Write(body)

	var buf bytes.Buffer
	buf.WriteByte(0)
	leb128.EncodeUnsigned(&buf, uint64(sec.Len()))
	buf.Write(sec.Bytes())
	return buf.Bytes()
}

func TestParseWASM(t *testing.T) {
	var img bytes.Buffer
	img.WriteString("\x00asm")
	binary.Write(&img, binary.LittleEndian, uint32(1))
	// a non-custom section, skipped by the scan
	img.Write([]byte{1, 2, 0x60, 0})
	img.Write(wasmCustomSection(".debug_info", []byte{7}))
	img.Write(wasmCustomSection(".debug_line", []byte{1, 2, 3}))

	f, err := Parse(img.Bytes())
	if err != nil {
		t.Fatalf("error parsing image: %v", err)
	}
	if f.Kind != KindWASM {
		t.Fatalf("kind %v, want WASM", f.Kind)
	}
	if !f.HasDebugSymbols() {
		t.Error("debug symbols not detected")
	}
	sec, err := f.DebugSection("line")
	if err != nil {
		t.Fatalf("error reading section: %v", err)
	}
	if !bytes.Equal(sec, []byte{1, 2, 3}) {
		t.Errorf("section contents %v, want [1 2 3]", sec)
	}
}

func TestParseWASMBadVersion(t *testing.T) {
	img := append([]byte("\x00asm"), 2, 0, 0, 0)
	if _, err := Parse(img); err == nil {
		t.Fatal("expected error for unsupported wasm version")
	}
}

func TestParseWASMTruncatedSection(t *testing.T) {
	var img bytes.Buffer
	img.WriteString("\x00asm")
	binary.Write(&img, binary.LittleEndian, uint32(1))
	img.Write([]byte{0, 0x20, 1}) // declares 32 bytes, carries 1
	if _, err := Parse(img.Bytes()); err == nil {
		t.Fatal("expected error for truncated section")
	}
}

func TestParseWASMTornSectionSize(t *testing.T) {
	var img bytes.Buffer
	img.WriteString("\x00asm")
	binary.Write(&img, binary.LittleEndian, uint32(1))
	img.Write([]byte{0, 0x80}) // section size torn mid-value
	if _, err := Parse(img.Bytes()); err == nil {
		t.Fatal("expected error for torn section size")
	}
}

func TestParseCOFF(t *testing.T) {
	var img bytes.Buffer
	binary.Write(&img, binary.LittleEndian, uint16(pe.IMAGE_FILE_MACHINE_AMD64))
	img.Write(make([]byte, 18)) // no sections, no symbols, no optional header

	f, err := Parse(img.Bytes())
	if err != nil {
		t.Fatalf("error parsing image: %v", err)
	}
	if f.Kind != KindCOFF {
		t.Fatalf("kind %v, want COFF", f.Kind)
	}
	if f.HasDebugSymbols() {
		t.Error("debug symbols detected in image without any")
	}
}

func TestParseUnknownFormat(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{1, 2},
		[]byte("not an executable"),
		{0xff, 0xff, 0xff, 0xff},
	} {
		if _, err := Parse(data); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("Parse(%v): error %v, want ErrUnknownFormat", data, err)
		}
	}
}

func TestParseCorruptPE(t *testing.T) {
	data := append([]byte("MZ"), make([]byte, 62)...)
	_, err := Parse(data)
	if err == nil {
		t.Fatal("expected error for corrupt PE image")
	}
	if errors.Is(err, ErrUnknownFormat) {
		t.Fatal("corrupt image with valid magic should not report ErrUnknownFormat")
	}
}

func TestParseMachO(t *testing.T) {
	var img bytes.Buffer
	for _, v := range []uint32{
		0xfeedfacf, // 64-bit magic
		0x01000007, // cputype amd64
		3,          // cpusubtype
		2,          // filetype execute
		0, 0, 0, 0, // no load commands
	} {
		binary.Write(&img, binary.LittleEndian, v)
	}
	f, err := Parse(img.Bytes())
	if err != nil {
		t.Fatalf("error parsing image: %v", err)
	}
	if f.Kind != KindMachO {
		t.Fatalf("kind %v, want Mach-O", f.Kind)
	}
	if f.HasDebugSymbols() {
		t.Error("debug symbols detected in image without any")
	}
}
