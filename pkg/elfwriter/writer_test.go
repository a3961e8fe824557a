package elfwriter

import (
	"bytes"
	"debug/elf"
	"io"
	"testing"
)

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

func TestRoundTrip(t *testing.T) {
	sections := map[string][]byte{
		".debug_info": {1, 2, 3},
		".debug_line": bytes.Repeat([]byte{0xcc}, 300),
		".shortname":  {},
	}

	for _, data := range []elf.Data{elf.ELFDATA2LSB, elf.ELFDATA2MSB} {
		w := &memWriter{}
		ew := New(w, &elf.FileHeader{
			Class:   elf.ELFCLASS64,
			Data:    data,
			Version: elf.EV_CURRENT,
			Type:    elf.ET_EXEC,
			Machine: elf.EM_X86_64,
		})
		for _, name := range []string{".debug_info", ".debug_line", ".shortname"} {
			ew.AddSection(name, sections[name])
		}
		ew.Finalize()
		if ew.Err != nil {
			t.Fatalf("%v: error writing image: %v", data, ew.Err)
		}

		f, err := elf.NewFile(bytes.NewReader(w.buf))
		if err != nil {
			t.Fatalf("%v: error reading image back: %v", data, err)
		}
		for name, want := range sections {
			sec := f.Section(name)
			if sec == nil {
				t.Fatalf("%v: section %s not found", data, name)
			}
			got, err := sec.Data()
			if err != nil {
				t.Fatalf("%v: error reading section %s: %v", data, name, err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("%v: section %s contents %v, want %v", data, name, got, want)
			}
		}
		if f.Section(".debug_ranges") != nil {
			t.Errorf("%v: found a section that was never written", data)
		}
	}
}
