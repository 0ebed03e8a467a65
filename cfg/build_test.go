package cfg

import (
	"testing"

	"github.com/mna/depyc/ir"
)

// fixture builds a small instruction stream equivalent to:
//
//	LOAD_FAST x        (0)
//	POP_JUMP_IF_FALSE L (2)
//	LOAD_CONST 0       (4)  -> then-branch
//	JUMP_FORWARD M     (6)
//	LOAD_CONST 1       (8)  L: else-branch
//	RETURN_VALUE       (10) M: merge
func ifElseFixture(t *testing.T) (*ir.Stream, ir.OpcodeTable) {
	t.Helper()
	v := ir.Version{Major: 3, Minor: 10}
	table := ir.Table(v)
	sz := uint32(2)
	insns := []ir.Instruction{
		{Offset: 0, Opcode: "LOAD_FAST", Arg: 0, Size: sz},
		{Offset: 2, Opcode: "POP_JUMP_IF_FALSE", Arg: 2, Size: sz}, // word units, relative from next (3.10+): target 8
		{Offset: 4, Opcode: "LOAD_CONST", Arg: 0, Size: sz},
		{Offset: 6, Opcode: "JUMP_FORWARD", Arg: 1, Size: sz},
		{Offset: 8, Opcode: "LOAD_CONST", Arg: 1, Size: sz},
		{Offset: 10, Opcode: "RETURN_VALUE", Size: sz},
	}
	return ir.NewStream(v, insns), table
}

func TestBuildCFGBlockPartition(t *testing.T) {
	stream, table := ifElseFixture(t)
	g, err := BuildCFG("t", stream, table, nil)
	if err != nil {
		t.Fatalf("BuildCFG: %v", err)
	}

	// Invariant 1: block offsets are disjoint, their union covers every
	// instruction offset, and BlockContaining is consistent with placement.
	seen := map[uint32]bool{}
	for _, b := range g.Blocks {
		for _, in := range b.Insns {
			if seen[in.Offset] {
				t.Fatalf("offset %d claimed by more than one block", in.Offset)
			}
			seen[in.Offset] = true
			found, ok := g.BlockContaining(in.Offset)
			if !ok || found.ID != b.ID {
				t.Fatalf("BlockContaining(%d) = %v, want block %d", in.Offset, found, b.ID)
			}
		}
	}
	for _, in := range stream.Instructions {
		if !seen[in.Offset] {
			t.Fatalf("offset %d not covered by any block", in.Offset)
		}
	}

	if len(g.Blocks) != 4 {
		t.Fatalf("want 4 blocks (header, then, else, merge), got %d", len(g.Blocks))
	}
}

func TestBuildCFGConditionalHasTrueAndFalseSuccessor(t *testing.T) {
	stream, table := ifElseFixture(t)
	g, err := BuildCFG("t", stream, table, nil)
	if err != nil {
		t.Fatalf("BuildCFG: %v", err)
	}

	header, _ := g.BlockContaining(0)
	var trues, falses int
	for _, e := range header.Succs {
		switch e.Kind {
		case EdgeCondTrue:
			trues++
		case EdgeCondFalse:
			falses++
		}
	}
	// Invariant 2.
	if trues != 1 || falses != 1 {
		t.Fatalf("want exactly one cond_true and one cond_false successor, got %d/%d", trues, falses)
	}
}

func TestBuildCFGExceptionEdgeTargetsHandler(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 11}
	table := ir.Table(v)
	sz := uint32(2)
	insns := []ir.Instruction{
		{Offset: 0, Opcode: "LOAD_FAST", Size: sz},
		{Offset: 2, Opcode: "RETURN_VALUE", Size: sz},
		{Offset: 4, Opcode: "PUSH_EXC_INFO", Size: sz},
		{Offset: 6, Opcode: "RERAISE", Arg: 0, Size: sz},
	}
	stream := ir.NewStream(v, insns)
	regions := []ir.ExceptionRegion{{Start: 0, End: 4, Handler: 4, HasLasti: true}}

	g, err := BuildCFG("t", stream, table, regions)
	if err != nil {
		t.Fatalf("BuildCFG: %v", err)
	}
	for _, b := range g.Blocks {
		for _, e := range b.Succs {
			if e.Kind != EdgeException {
				continue
			}
			// Invariant 3.
			if !g.Blocks[e.To].IsHandler {
				t.Fatalf("exception edge target block %d is not marked IsHandler", e.To)
			}
		}
	}
}

func TestBuildCFGMalformedJumpTarget(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 10}
	table := ir.Table(v)
	insns := []ir.Instruction{
		{Offset: 0, Opcode: "JUMP_FORWARD", Arg: 1000, Size: 2},
	}
	stream := ir.NewStream(v, insns)
	if _, err := BuildCFG("t", stream, table, nil); err == nil {
		t.Fatalf("want error for out-of-range jump target, got nil")
	}
}
