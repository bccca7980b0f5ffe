package theme

import "testing"

func TestByName(t *testing.T) {
	for _, th := range All {
		got, ok := ByName(th.Name)
		if !ok || got.Name != th.Name {
			t.Errorf("ByName(%q) = %q, %v", th.Name, got.Name, ok)
		}
	}
	if _, ok := ByName("solarized"); ok {
		t.Error("unknown theme reported found")
	}
}

func TestSetActive(t *testing.T) {
	prev := Active
	t.Cleanup(func() { Active = prev })

	if !SetActive("tokyo-night") || Active.Name != "tokyo-night" {
		t.Fatalf("Active = %q after SetActive(tokyo-night)", Active.Name)
	}
	if SetActive("nope") {
		t.Error("SetActive accepted an unknown theme")
	}
	if Active.Name != "tokyo-night" {
		t.Errorf("unknown theme changed Active to %q", Active.Name)
	}
}

func TestSegmentWraps(t *testing.T) {
	th := FlexokiDark
	n := len(th.Segments)
	if n == 0 {
		t.Fatal("no segment colors")
	}
	if th.Segment(n) != th.Segment(0) {
		t.Error("segment colors do not wrap")
	}
	if th.Segment(-1) != th.Accent {
		t.Error("negative id should use the accent")
	}
}

func TestNamesMatchesAll(t *testing.T) {
	names := Names()
	if len(names) != len(All) {
		t.Fatalf("Names() = %d entries, All = %d", len(names), len(All))
	}
	seen := map[string]bool{}
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate theme name %q", n)
		}
		seen[n] = true
	}
}
