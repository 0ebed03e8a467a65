package ir

import "testing"

func TestTableCoversEveryAddedOpcode(t *testing.T) {
	for _, v := range []Version{{3, 6}, {3, 8}, {3, 10}, {3, 11}, {3, 12}, {3, 13}} {
		tbl := Table(v)
		if len(tbl.byName) == 0 {
			t.Fatalf("version %s: empty opcode table", v)
		}
		for name, info := range tbl.byName {
			if info.Name != name {
				t.Errorf("version %s: opcode %q registered under mismatched name %q", v, name, info.Name)
			}
			if info.Effect == nil {
				t.Errorf("version %s: opcode %q has no stack-effect function", v, name)
			}
		}
	}
}

func TestDespecialize(t *testing.T) {
	cases := []struct {
		name    string
		version Version
		want    string
	}{
		{"LOAD_ATTR_SLOT", Version{3, 12}, "LOAD_ATTR"},
		{"BINARY_OP_ADD_INT", Version{3, 11}, "BINARY_OP"},
		{"LOAD_ATTR", Version{3, 12}, "LOAD_ATTR"},
		{"LOAD_ATTR_SLOT", Version{3, 10}, "LOAD_ATTR_SLOT"}, // no specialization before 3.11
	}
	for _, c := range cases {
		if got := Despecialize(c.name, c.version); got != c.want {
			t.Errorf("Despecialize(%q, %s) = %q, want %q", c.name, c.version, got, c.want)
		}
	}
}

func TestVersionJumpEncoding(t *testing.T) {
	if (Version{3, 9}).JumpIsRelativeFromNext() {
		t.Error("3.9 should use pre-3.10 jump encoding")
	}
	if !(Version{3, 10}).JumpIsRelativeFromNext() {
		t.Error("3.10 should use relative-from-next jump encoding")
	}
}

func TestVersionCompareArgShift(t *testing.T) {
	if (Version{3, 11}).CompareArgShift() != 0 {
		t.Error("3.11 compare arg shift should be 0")
	}
	if (Version{3, 13}).CompareArgShift() != 5 {
		t.Error("3.13 compare arg shift should be 5")
	}
}

func TestDecodeExceptionTable(t *testing.T) {
	// start=1, length=2, target=10, depth_with_lasti = (3<<1)|1 = 7
	raw := []byte{1, 2, 10, 7}
	regions, err := DecodeExceptionTable(raw, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("want 1 region, got %d", len(regions))
	}
	r := regions[0]
	if r.Start != 2 || r.End != 6 || r.Handler != 20 || r.StackDepth != 3 || !r.HasLasti {
		t.Errorf("unexpected region: %+v", r)
	}
}
