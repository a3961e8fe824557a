package fileindex

import (
	"testing"

	"github.com/srclist/srclist/pkg/srcfiles"
)

func TestUnder(t *testing.T) {
	records := []srcfiles.FileRecord{
		{Path: "/home/user/project/lib/a.c"},
		{Path: "/home/user/project/main.c"},
		{Path: "/home/user/project/main.c", Size: 120},
		{Path: "/usr/include/stdio.h"},
	}
	ix := New(records)

	got := ix.Under("/home/user/project")
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d: %v", len(got), got)
	}
	if got[0].Path != "/home/user/project/lib/a.c" {
		t.Errorf("wrong first record %q", got[0].Path)
	}
	if got[1].Path != "/home/user/project/main.c" || got[2].Path != "/home/user/project/main.c" {
		t.Errorf("records sharing a path not both returned: %v", got[1:])
	}
	if got[1].Size != 0 || got[2].Size != 120 {
		t.Errorf("records sharing a path lost their relative order: %v", got[1:])
	}

	if got := ix.Under("/usr"); len(got) != 1 || got[0].Path != "/usr/include/stdio.h" {
		t.Errorf("wrong result for /usr: %v", got)
	}
	if got := ix.Under("/nosuch"); len(got) != 0 {
		t.Errorf("expected no records, got %v", got)
	}
}
