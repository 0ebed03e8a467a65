package cfg

import (
	"testing"

	"github.com/mna/depyc/ir"
)

// whileFixture builds:
//
//	0: LOAD_FAST x          header (loop header)
//	2: POP_JUMP_IF_FALSE L  -> exit
//	4: LOAD_FAST x          body
//	6: JUMP_ABSOLUTE 0      -> header (loop_back)
//	L (8): RETURN_VALUE     exit
func whileFixture(t *testing.T) (*ir.Stream, ir.OpcodeTable) {
	t.Helper()
	v := ir.Version{Major: 3, Minor: 8}
	table := ir.Table(v)
	sz := uint32(2)
	insns := []ir.Instruction{
		{Offset: 0, Opcode: "LOAD_FAST", Size: sz},
		{Offset: 2, Opcode: "POP_JUMP_IF_FALSE", Arg: 8, Size: sz}, // pre-3.10: absolute
		{Offset: 4, Opcode: "LOAD_FAST", Size: sz},
		{Offset: 6, Opcode: "JUMP_ABSOLUTE", Arg: 0, Size: sz},
		{Offset: 8, Opcode: "RETURN_VALUE", Size: sz},
	}
	return ir.NewStream(v, insns), table
}

func TestAnalyzeDetectsNaturalLoop(t *testing.T) {
	stream, table := whileFixture(t)
	g, err := BuildCFG("t", stream, table, nil)
	if err != nil {
		t.Fatalf("BuildCFG: %v", err)
	}
	header, _ := g.BlockContaining(0)
	if !header.IsLoopHeader {
		t.Fatalf("want block at offset 0 marked as loop header")
	}

	d := Analyze(g)
	body, ok := d.LoopBodies[header.ID]
	if !ok {
		t.Fatalf("want a natural loop recorded for header %d", header.ID)
	}
	if !body[header.ID] {
		t.Fatalf("loop body must include its own header")
	}
	bodyBlock, _ := g.BlockContaining(4)
	if !body[bodyBlock.ID] {
		t.Fatalf("loop body must include the block at offset 4")
	}
	if d.EnclosingLoop[bodyBlock.ID] != header.ID {
		t.Fatalf("enclosing loop of body block = %v, want header %d", d.EnclosingLoop[bodyBlock.ID], header.ID)
	}
	exitBlock, _ := g.BlockContaining(8)
	if d.EnclosingLoop[exitBlock.ID] != noBlock {
		t.Fatalf("exit block must not be considered inside the loop")
	}
}

func TestAnalyzeDominance(t *testing.T) {
	stream, table := ifElseFixtureForDom(t)
	g, err := BuildCFG("t", stream, table, nil)
	if err != nil {
		t.Fatalf("BuildCFG: %v", err)
	}
	d := Analyze(g)
	header, _ := g.BlockContaining(0)
	merge, _ := g.BlockContaining(10)
	if !d.Dominates(header.ID, merge.ID) {
		t.Fatalf("header must dominate the merge block")
	}
	pd, ok := d.PostDominator(header.ID)
	if !ok || pd != merge.ID {
		t.Fatalf("PostDominator(header) = %v, want merge block %d", pd, merge.ID)
	}
}

func ifElseFixtureForDom(t *testing.T) (*ir.Stream, ir.OpcodeTable) {
	t.Helper()
	return ifElseFixture(t)
}
