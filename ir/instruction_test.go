package ir

import "testing"

func TestJumpTargetEncodings(t *testing.T) {
	cases := []struct {
		desc    string
		version Version
		in      Instruction
		want    uint32
	}{
		{"3.10 relative words from next", Version{3, 10},
			Instruction{Offset: 6, Opcode: "POP_JUMP_IF_FALSE", Arg: 2, Size: 2}, 12},
		{"3.11 backward words from next", Version{3, 11},
			Instruction{Offset: 30, Opcode: "JUMP_BACKWARD", Arg: 11, Size: 2}, 10},
		{"pre-3.10 absolute", Version{3, 8},
			Instruction{Offset: 6, Opcode: "POP_JUMP_IF_FALSE", Arg: 18, Size: 2}, 18},
		{"pre-3.10 relative forward", Version{3, 9},
			Instruction{Offset: 8, Opcode: "FOR_ITER", Arg: 12, Size: 2}, 22},
		{"absolute regardless of version", Version{3, 10},
			Instruction{Offset: 16, Opcode: "JUMP_ABSOLUTE", Arg: 0, Size: 2}, 0},
	}
	for _, c := range cases {
		table := Table(c.version)
		info, ok := table.ByName(c.in.Opcode)
		if !ok {
			t.Fatalf("%s: opcode %s not in table", c.desc, c.in.Opcode)
		}
		if got := c.in.Target(c.version, info); got != c.want {
			t.Errorf("%s: Target = %d, want %d", c.desc, got, c.want)
		}
	}
}

func TestStreamIndexAndEnd(t *testing.T) {
	v := Version{3, 11}
	s := NewStream(v, []Instruction{
		{Offset: 0, Opcode: "RESUME", Size: 2},
		{Offset: 2, Opcode: "LOAD_CONST", Size: 2},
		{Offset: 4, Opcode: "RETURN_VALUE", Size: 2},
	})
	if i, ok := s.IndexAt(2); !ok || i != 1 {
		t.Fatalf("IndexAt(2) = %d, %v", i, ok)
	}
	if _, ok := s.IndexAt(3); ok {
		t.Fatalf("IndexAt(3) must fail: no instruction starts mid-slot")
	}
	if s.End() != 6 {
		t.Fatalf("End = %d, want 6", s.End())
	}
}

func TestTargetPanicsOnNonJump(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Target on a non-jump must panic (a decoder bug, not bad input)")
		}
	}()
	in := Instruction{Offset: 0, Opcode: "LOAD_CONST", Size: 2}
	info, _ := Table(Version{3, 11}).ByName("LOAD_CONST")
	in.Target(Version{3, 11}, info)
}

func TestInlineCacheStride(t *testing.T) {
	v311 := Version{3, 11}
	if v311.InlineCacheStride(FamilyCompare) == 0 {
		t.Error("3.11 COMPARE family must carry inline-cache slots")
	}
	if (Version{3, 10}).InlineCacheStride(FamilyCompare) != 0 {
		t.Error("pre-3.11 has no inline caches")
	}
}
