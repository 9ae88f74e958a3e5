package fonts

import "testing"

func TestLoadBuiltinFamilies(t *testing.T) {
	for _, name := range []string{"", "Go", "go mono", " GO MONO "} {
		fam, err := Load(name)
		if err != nil {
			t.Fatalf("Load(%q) error: %v", name, err)
		}
		if len(fam.Regular) == 0 || len(fam.Bold) == 0 {
			t.Fatalf("Load(%q) returned empty font data", name)
		}
	}
	if _, err := Load("Comic Sans"); err == nil {
		t.Fatalf("expected error for unknown family")
	}
	if got := Names(); len(got) != 2 || got[0] != "Go" {
		t.Fatalf("unexpected names: %v", got)
	}
}
