package logflags

import (
	"testing"
)

func TestSetup(t *testing.T) {
	defer func() {
		pdbFlag = false
		objfileFlag = false
		debugLine = false
	}()

	if err := Setup(false, "pdb", ""); err == nil {
		t.Fatal("expected error for --log-output without --log")
	}
	if err := Setup(true, "pdb,line", ""); err != nil {
		t.Fatal(err)
	}
	if !PDB() || !DebugLine() {
		t.Fatal("layers not enabled")
	}
	if Objfile() {
		t.Fatal("objfile layer enabled unexpectedly")
	}
	if err := Setup(true, "nosuchlayer", ""); err == nil {
		t.Fatal("expected error for unknown layer")
	}
}
