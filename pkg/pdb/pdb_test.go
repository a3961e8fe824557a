package pdb_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/srclist/srclist/pkg/pdb"
	"github.com/srclist/srclist/pkg/pdb/pdbbuilder"
)

func open(t *testing.T, modules []pdbbuilder.Module) *pdb.PDB {
	t.Helper()
	p, err := pdb.Open(bytes.NewReader(pdbbuilder.Build(modules)))
	if err != nil {
		t.Fatalf("error opening PDB: %v", err)
	}
	return p
}

func TestOpenNotAPDB(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		[]byte("MZ"),
		[]byte("\x7fELF and then some padding to get past the magic length"),
		bytes.Repeat([]byte{0xab}, 512),
	} {
		_, err := pdb.Open(bytes.NewReader(data))
		if !errors.Is(err, pdb.ErrNotAPDB) {
			t.Errorf("Open(%.10q...): error %v, want ErrNotAPDB", data, err)
		}
	}
}

func TestOpenBadBlockSize(t *testing.T) {
	img := pdbbuilder.Build(nil)
	binary.LittleEndian.PutUint32(img[32:], 123)
	_, err := pdb.Open(bytes.NewReader(img))
	if !errors.Is(err, pdb.ErrNotAPDB) {
		t.Fatalf("error %v, want ErrNotAPDB", err)
	}
}

func TestOpenTruncatedDirectory(t *testing.T) {
	img := pdbbuilder.Build(nil)
	_, err := pdb.Open(bytes.NewReader(img[:1024]))
	if err == nil {
		t.Fatal("expected error for truncated file")
	}
	if errors.Is(err, pdb.ErrNotAPDB) {
		t.Fatal("structurally broken PDB should not report ErrNotAPDB")
	}
}

func TestDebugInformation(t *testing.T) {
	p := open(t, []pdbbuilder.Module{
		{Name: "main", Files: []pdbbuilder.FileChecksum{
			{Name: `c:\src\main.c`, Kind: pdb.ChecksumMD5, Sum: bytes.Repeat([]byte{1}, 16)},
		}},
		{Name: "empty", NoInfo: true},
	})

	dbi, err := p.DebugInformation()
	if err != nil {
		t.Fatalf("error reading DBI stream: %v", err)
	}
	if dbi.Machine != 0x8664 {
		t.Errorf("machine %#x, want 0x8664", dbi.Machine)
	}
	if len(dbi.Modules) != 2 {
		t.Fatalf("%d modules, want 2", len(dbi.Modules))
	}
	if dbi.Modules[0].Name != "main" || dbi.Modules[0].ObjectFile != "main.obj" {
		t.Errorf("bad module names: %q %q", dbi.Modules[0].Name, dbi.Modules[0].ObjectFile)
	}
	if !dbi.Modules[0].HasInfo() {
		t.Error("module main should have an info stream")
	}
	if dbi.Modules[1].HasInfo() {
		t.Error("module empty should not have an info stream")
	}

	mi, err := p.ModuleInfo(&dbi.Modules[1])
	if err != nil {
		t.Fatalf("error loading module info: %v", err)
	}
	if mi != nil {
		t.Error("module without info stream should yield nil ModuleInfo")
	}
}

func TestLineProgramChecksums(t *testing.T) {
	want := []pdbbuilder.FileChecksum{
		{Name: `c:\src\a.c`, Kind: pdb.ChecksumMD5, Sum: bytes.Repeat([]byte{0x11}, 16)},
		{Name: `c:\src\b.c`, Kind: pdb.ChecksumSHA1, Sum: bytes.Repeat([]byte{0x22}, 20)},
		{Name: `c:\src\c.c`, Kind: pdb.ChecksumSHA256, Sum: bytes.Repeat([]byte{0x33}, 32)},
		{Name: `c:\src\d.c`, Kind: pdb.ChecksumNone},
	}
	p := open(t, []pdbbuilder.Module{{Name: "main", Files: want}})

	dbi, err := p.DebugInformation()
	if err != nil {
		t.Fatalf("error reading DBI stream: %v", err)
	}
	st, err := p.StringTable()
	if err != nil {
		t.Fatalf("error reading string table: %v", err)
	}
	mi, err := p.ModuleInfo(&dbi.Modules[0])
	if err != nil {
		t.Fatalf("error loading module info: %v", err)
	}
	lp, err := mi.LineProgram()
	if err != nil {
		t.Fatalf("error parsing line program: %v", err)
	}

	files := lp.Files()
	if len(files) != len(want) {
		t.Fatalf("%d checksum entries, want %d", len(files), len(want))
	}
	for i, f := range files {
		name, err := st.StringAt(f.NameOffset)
		if err != nil {
			t.Fatalf("entry %d: error resolving name: %v", i, err)
		}
		if name != want[i].Name {
			t.Errorf("entry %d: name %q, want %q", i, name, want[i].Name)
		}
		if f.Kind != want[i].Kind {
			t.Errorf("entry %d: kind %v, want %v", i, f.Kind, want[i].Kind)
		}
		if !bytes.Equal(f.Sum, want[i].Sum) {
			t.Errorf("entry %d: sum %x, want %x", i, f.Sum, want[i].Sum)
		}
	}
}

// TestMultiBlockStream checks stream reassembly for streams larger than one
// MSF block.
func TestMultiBlockStream(t *testing.T) {
	files := make([]pdbbuilder.FileChecksum, 60)
	for i := range files {
		files[i] = pdbbuilder.FileChecksum{
			Name: fmt.Sprintf(`c:\src\gen_%03d.c`, i),
			Kind: pdb.ChecksumSHA256,
			Sum:  bytes.Repeat([]byte{byte(i)}, 32),
		}
	}
	p := open(t, []pdbbuilder.Module{{Name: "big", Files: files}})

	dbi, err := p.DebugInformation()
	if err != nil {
		t.Fatalf("error reading DBI stream: %v", err)
	}
	st, err := p.StringTable()
	if err != nil {
		t.Fatalf("error reading string table: %v", err)
	}
	mi, err := p.ModuleInfo(&dbi.Modules[0])
	if err != nil {
		t.Fatalf("error loading module info: %v", err)
	}
	lp, err := mi.LineProgram()
	if err != nil {
		t.Fatalf("error parsing line program: %v", err)
	}
	got := lp.Files()
	if len(got) != len(files) {
		t.Fatalf("%d checksum entries, want %d", len(got), len(files))
	}
	for i := range got {
		name, err := st.StringAt(got[i].NameOffset)
		if err != nil {
			t.Fatalf("entry %d: error resolving name: %v", i, err)
		}
		if name != files[i].Name {
			t.Errorf("entry %d: name %q, want %q", i, name, files[i].Name)
		}
	}
}

func TestStringTableBadOffset(t *testing.T) {
	p := open(t, []pdbbuilder.Module{
		{Name: "main", Files: []pdbbuilder.FileChecksum{
			{Name: "x.c", Kind: pdb.ChecksumNone},
		}},
	})
	st, err := p.StringTable()
	if err != nil {
		t.Fatalf("error reading string table: %v", err)
	}
	if _, err := st.StringAt(0xfffffff0); err == nil {
		t.Fatal("expected error for out of range string offset")
	}
}
