package config

import (
	"testing"
)

func TestSubstitutePathApply(t *testing.T) {
	rules := SubstitutePathRules{
		{From: "/build/src", To: "/home/user/project"},
		{From: `C:\work`, To: "/mnt/work"},
	}

	for _, tc := range []struct {
		in, want string
	}{
		{"/build/src/main.c", "/home/user/project/main.c"},
		{"/build/src", "/home/user/project"},
		{"/build/srcfoo/main.c", "/build/srcfoo/main.c"},
		{`C:\work\lib.c`, "/mnt/work/lib.c"},
		{"/unrelated/main.c", "/unrelated/main.c"},
	} {
		if got := rules.Apply(tc.in); got != tc.want {
			t.Errorf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitQuotedFields(t *testing.T) {
	in := `field1 'field 2' field3 'field 4' 'field\'5'`
	tgt := []string{"field1", "field 2", "field3", "field 4", "field'5"}
	out := SplitQuotedFields(in, '\'')

	if len(tgt) != len(out) {
		t.Fatalf("expected %#v, got %#v (len mismatch)", tgt, out)
	}

	for i := range tgt {
		if tgt[i] != out[i] {
			t.Fatalf("expected %#v, got %#v (mismatch at %d)", tgt, out, i)
		}
	}
}
