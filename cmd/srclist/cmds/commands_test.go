package cmds

import (
	"crypto/md5"
	"os"
	"path/filepath"
	"testing"

	"github.com/srclist/srclist/pkg/config"
	"github.com/srclist/srclist/pkg/srcfiles"
)

func TestSubstitutionRules(t *testing.T) {
	defer func() {
		conf = nil
		substitutePath = nil
	}()
	conf = &config.Config{
		SubstitutePath: config.SubstitutePathRules{{From: "/a", To: "/b"}},
	}
	substitutePath = []string{`/build/src /home/user/src`, `"/data/my src" /home/src`}

	rules, err := substitutionRules()
	if err != nil {
		t.Fatalf("error building rules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("%d rules, want 3", len(rules))
	}
	if rules[1].From != "/build/src" || rules[1].To != "/home/user/src" {
		t.Errorf("bad rule: %+v", rules[1])
	}
	if rules[2].From != "/data/my src" || rules[2].To != "/home/src" {
		t.Errorf("bad quoted rule: %+v", rules[2])
	}

	substitutePath = []string{"only-one-field"}
	if _, err := substitutionRules(); err == nil {
		t.Fatal("expected error for rule with a single field")
	}
}

func TestChecksumParts(t *testing.T) {
	var sum srcfiles.MD5
	sum[0] = 0xfe
	kind, hexsum, ok := checksumParts(sum)
	if !ok || kind != "MD5" || hexsum != "fe000000000000000000000000000000" {
		t.Errorf("got %q %q %v", kind, hexsum, ok)
	}
	if _, _, ok := checksumParts(nil); ok {
		t.Error("nil checksum should not decompose")
	}
}

func TestVerifyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.c")
	content := []byte("int main() { return 0; }\n")
	if err := os.WriteFile(path, content, 0o666); err != nil {
		t.Fatalf("error writing fixture: %v", err)
	}

	sum := srcfiles.MD5(md5.Sum(content))
	var badsum srcfiles.MD5

	for _, tc := range []struct {
		name string
		rec  srcfiles.FileRecord
		want verifyResult
	}{
		{"ok", srcfiles.FileRecord{Path: path, Checksum: sum}, verifyOk},
		{"mismatch", srcfiles.FileRecord{Path: path, Checksum: badsum}, verifyMismatch},
		{"missing", srcfiles.FileRecord{Path: filepath.Join(dir, "gone.c"), Checksum: sum}, verifyMissing},
		{"skipped", srcfiles.FileRecord{Path: path}, verifySkipped},
	} {
		if got := verifyFile(&tc.rec); got != tc.want {
			t.Errorf("%s: verify result %d, want %d", tc.name, got, tc.want)
		}
	}
}
